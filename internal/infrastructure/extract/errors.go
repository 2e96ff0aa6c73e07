package extract

import (
	"errors"
	"fmt"
)

// Row error codes
const (
	ErrCodeMissingColumns  = "ERR_EXTRACT_MISSING_COLUMNS"
	ErrCodeMalformedRow    = "ERR_EXTRACT_MALFORMED_ROW"
	ErrCodeInvalidDocType  = "ERR_EXTRACT_INVALID_DOC_TYPE"
	ErrCodeInvalidFolio    = "ERR_EXTRACT_INVALID_FOLIO"
	ErrCodeInvalidDate     = "ERR_EXTRACT_INVALID_DATE"
	ErrCodeInvalidDocument = "ERR_EXTRACT_INVALID_DOCUMENT"
	ErrCodeZeroTotal       = "ERR_EXTRACT_ZERO_TOTAL"
)

// File-level errors
var (
	// ErrEmptyFile is returned when the extract file has no content
	ErrEmptyFile = errors.New("extract file is empty")

	// ErrMissingHeader is returned when the extract has no header row
	ErrMissingHeader = errors.New("extract file missing header row")

	// ErrBadFilename is returned when the tax period cannot be derived
	// from the extract filename
	ErrBadFilename = errors.New("extract filename does not encode a tax period")
)

// RowError represents a problem with a specific extract row
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	}
}

// NewRowErrorWithValue creates a new RowError carrying the offending value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
		Value:   value,
	}
}
