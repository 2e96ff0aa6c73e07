package billing

import "fmt"

// Violation codes for payment distribution validation
const (
	ViolationAmountNotPositive    = "AMOUNT_NOT_POSITIVE"
	ViolationEmptyDistribution    = "EMPTY_DISTRIBUTION"
	ViolationDistributionMismatch = "DISTRIBUTION_MISMATCH"
	ViolationDuplicateDocument    = "DUPLICATE_DOCUMENT"
	ViolationDocumentNotFound     = "DOCUMENT_NOT_FOUND"
	ViolationCreditNoteTarget     = "CREDIT_NOTE_TARGET"
	ViolationHistoricalTarget     = "HISTORICAL_TARGET"
	ViolationStateNotPayable      = "STATE_NOT_PAYABLE"
	ViolationExceedsOutstanding   = "EXCEEDS_OUTSTANDING"
)

// Violation names one broken business rule, with the offending value spelled
// out in the message. Violations are expected outcomes, not errors.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewViolation creates a violation with a formatted message
func NewViolation(code, format string, args ...any) Violation {
	return Violation{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (v Violation) String() string {
	return v.Code + ": " + v.Message
}
