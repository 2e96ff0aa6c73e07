package extract

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/tecnipro/cobranzas/internal/domain/billing"
)

// Delimiter is the field separator used by the SII sales register export
const Delimiter = ';'

// Column names as they appear in the SII register header row
const (
	ColDocType       = "Tipo Doc"
	ColSaleKind      = "Tipo Venta"
	ColPayerTaxID    = "Rut cliente"
	ColPayerName     = "Razon Social"
	ColFolio         = "Folio"
	ColIssueDate     = "Fecha Docto"
	ColReceptionDate = "Fecha Recepcion"
	ColAckDate       = "Fecha Acuse Recibo"
	ColExempt        = "Monto Exento"
	ColNet           = "Monto Neto"
	ColVAT           = "Monto IVA"
	ColTotal         = "Monto total"
	ColRefDocType    = "Tipo Docto. Referencia"
	ColRefFolio      = "Folio Docto. Referencia"
)

// requiredColumns must all be present in the header row for a file to parse
var requiredColumns = []string{ColDocType, ColFolio, ColIssueDate, ColTotal, ColPayerTaxID}

// periodPattern matches the month and year encoded in extract filenames,
// e.g. "RegistroVentas 03_2024.csv" or "ventas 032024.csv"
var periodPattern = regexp.MustCompile(`(?i)(\d{2})[\s_]?(\d{4})\.csv$`)

// dateLayouts in trial order. The full datetime forms come first so the
// date-only layouts cannot claim a prefix of a longer value.
var dateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006",
	"02-01-2006",
}

// PeriodFromFilename derives the "YYYY-MM" tax period from an extract
// filename. The filename is the only source of the period; a name that does
// not encode one is rejected.
func PeriodFromFilename(name string) (string, error) {
	m := periodPattern.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	month, err := strconv.Atoi(m[1])
	if err != nil || month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %q has month %q", ErrBadFilename, name, m[1])
	}
	return m[2] + "-" + m[1], nil
}

// Result holds everything parsed out of one extract file
type Result struct {
	Period      string              `json:"period"`
	SourceFile  string              `json:"source_file"`
	Documents   []*billing.Document `json:"-"`
	Errors      []RowError          `json:"errors,omitempty"`
	Warnings    []RowError          `json:"warnings,omitempty"`
	TotalRows   int                 `json:"total_rows"`
	SkippedRows int                 `json:"skipped_rows"`
}

// InvoiceCount returns the number of parsed invoices (types 33 and 34)
func (r *Result) InvoiceCount() int {
	n := 0
	for _, d := range r.Documents {
		if d.DocType.IsInvoice() {
			n++
		}
	}
	return n
}

// CreditNoteCount returns the number of parsed credit notes (type 61)
func (r *Result) CreditNoteCount() int {
	n := 0
	for _, d := range r.Documents {
		if d.DocType.IsCreditNote() {
			n++
		}
	}
	return n
}

// TotalInvoiceAmount sums the total of every parsed invoice
func (r *Result) TotalInvoiceAmount() int64 {
	var sum int64
	for _, d := range r.Documents {
		if d.DocType.IsInvoice() {
			sum += d.Amounts.Total
		}
	}
	return sum
}

// Parser turns SII sales register extracts into billing documents.
// Unrecognized document types are skipped; rows that should be relevant but
// cannot be parsed are collected as row errors without aborting the file.
type Parser struct {
	cutoverYear int
	logger      *zap.Logger
}

// NewParser creates a parser bound to the management cutover year
func NewParser(cutoverYear int, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{cutoverYear: cutoverYear, logger: logger}
}

// ParseFile opens and parses one extract file from disk. The tax period is
// taken from the filename.
func (p *Parser) ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract file: %w", err)
	}
	defer f.Close()
	return p.Parse(filepath.Base(path), f)
}

// ParseAll parses a batch of extract files, ordered by tax period so earlier
// months import first. A file whose name encodes no period fails the batch.
func (p *Parser) ParseAll(paths []string) ([]*Result, error) {
	type entry struct {
		path   string
		period string
	}
	entries := make([]entry, 0, len(paths))
	for _, path := range paths {
		period, err := PeriodFromFilename(filepath.Base(path))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{path: path, period: period})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].period < entries[j].period })

	results := make([]*Result, 0, len(entries))
	for _, e := range entries {
		res, err := p.ParseFile(e.path)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Parse parses one extract from a reader. sourceFile is the original
// filename and must encode the tax period.
func (p *Parser) Parse(sourceFile string, r io.Reader) (*Result, error) {
	period, err := PeriodFromFilename(sourceFile)
	if err != nil {
		return nil, err
	}

	result := &Result{Period: period, SourceFile: sourceFile}

	decoded, encoding, err := decodeReader(r)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Parsing sales register extract",
		zap.String("file", sourceFile),
		zap.String("period", period),
		zap.String("encoding", encoding))

	reader := csv.NewReader(decoded)
	reader.Comma = Delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		result.Errors = append(result.Errors, NewRowError(1, strings.Join(missing, ", "),
			ErrCodeMissingColumns, "required columns not found in header"))
		return result, nil
	}

	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Errors = append(result.Errors, NewRowError(rowNum, "",
				ErrCodeMalformedRow, err.Error()))
			continue
		}
		if isBlank(record) {
			continue
		}
		result.TotalRows++

		field := func(name string) string {
			idx := cols[name]
			if idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		p.parseRow(rowNum, field, result)
	}

	p.logger.Info("Extract parsed",
		zap.String("file", sourceFile),
		zap.Int("rows", result.TotalRows),
		zap.Int("documents", len(result.Documents)),
		zap.Int("skipped", result.SkippedRows),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// parseRow converts one data row into a document, recording row errors and
// warnings on the result instead of failing.
func (p *Parser) parseRow(rowNum int, field func(string) string, result *Result) {
	rawType := field(ColDocType)
	typeCode, err := strconv.Atoi(rawType)
	if err != nil {
		result.Errors = append(result.Errors, NewRowErrorWithValue(rowNum, ColDocType,
			ErrCodeInvalidDocType, "document type is not a number", rawType))
		return
	}
	docType := billing.DocumentType(typeCode)
	if !docType.IsValid() {
		result.SkippedRows++
		return
	}

	folio, ok := parseFolio(field(ColFolio))
	if !ok {
		result.Errors = append(result.Errors, NewRowErrorWithValue(rowNum, ColFolio,
			ErrCodeInvalidFolio, "folio is empty or not a number", field(ColFolio)))
		return
	}

	issueDate, ok := parseDate(field(ColIssueDate))
	if !ok {
		result.Errors = append(result.Errors, NewRowErrorWithValue(rowNum, ColIssueDate,
			ErrCodeInvalidDate, fmt.Sprintf("folio %d: issue date is empty or unrecognized", folio),
			field(ColIssueDate)))
		return
	}

	amounts := billing.Amounts{
		Exempt: p.parseAmount(rowNum, ColExempt, field(ColExempt)),
		Net:    p.parseAmount(rowNum, ColNet, field(ColNet)),
		VAT:    p.parseAmount(rowNum, ColVAT, field(ColVAT)),
		Total:  p.parseAmount(rowNum, ColTotal, field(ColTotal)),
	}
	if amounts.Total == 0 && docType.IsInvoice() {
		// Imported anyway, flagged for review
		result.Warnings = append(result.Warnings, NewRowError(rowNum, ColTotal,
			ErrCodeZeroTotal, fmt.Sprintf("folio %d: invoice has a zero total", folio)))
	}

	doc, err := billing.NewImportedDocument(docType, folio, issueDate, amounts,
		result.Period, result.SourceFile, p.cutoverYear)
	if err != nil {
		result.Errors = append(result.Errors, NewRowError(rowNum, "",
			ErrCodeInvalidDocument, err.Error()))
		return
	}

	doc.SaleKind = field(ColSaleKind)
	doc.PayerTaxID = field(ColPayerTaxID)
	doc.PayerName = field(ColPayerName)
	doc.ReceptionDate = parseOptionalDate(field(ColReceptionDate))
	doc.AcknowledgeDate = parseOptionalDate(field(ColAckDate))
	if refFolio, ok := parseFolio(field(ColRefFolio)); ok {
		doc.RefFolio = &refFolio
	}
	if refType, ok := parseFolio(field(ColRefDocType)); ok {
		t := billing.DocumentType(refType)
		doc.RefDocType = &t
	}

	result.Documents = append(result.Documents, doc)
}

// parseAmount converts a monetary field to integer pesos. Empty or
// unparseable values count as zero, matching how the register leaves
// unused amount columns blank.
func (p *Parser) parseAmount(rowNum int, column, value string) int64 {
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		p.logger.Debug("Unparseable amount treated as zero",
			zap.Int("row", rowNum),
			zap.String("column", column),
			zap.String("value", value))
		return 0
	}
	return n
}

func parseFolio(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseOptionalDate(value string) *time.Time {
	if t, ok := parseDate(value); ok {
		return &t
	}
	return nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// decodeReader sniffs the extract encoding and returns a UTF-8 reader.
// SII exports are UTF-8 or ISO-8859-1; the first chunk decides.
func decodeReader(r io.Reader) (io.Reader, string, error) {
	buf := bufio.NewReader(r)

	head, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("failed to read extract: %w", err)
	}
	if len(head) == 0 {
		return nil, "", ErrEmptyFile
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
		return buf, "utf-8", nil
	}

	const checkSize = 4096
	chunk, err := buf.Peek(checkSize)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("failed to read extract: %w", err)
	}
	if validUTF8Chunk(chunk) {
		return buf, "utf-8", nil
	}
	return transform.NewReader(buf, charmap.ISO8859_1.NewDecoder()), "latin-1", nil
}

// validUTF8Chunk validates a prefix of the stream, tolerating a multi-byte
// rune cut off at the chunk boundary.
func validUTF8Chunk(chunk []byte) bool {
	for trimmed := 0; len(chunk) > 0 && trimmed <= utf8.UTFMax; trimmed++ {
		if utf8.Valid(chunk) {
			return true
		}
		chunk = chunk[:len(chunk)-1]
	}
	return false
}
