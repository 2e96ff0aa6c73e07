package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

// DocumentType is the SII document type code from the sales register
type DocumentType int

const (
	DocTypeFacturaElectronica DocumentType = 33 // electronic invoice
	DocTypeFacturaExenta      DocumentType = 34 // VAT-exempt invoice
	DocTypeNotaCredito        DocumentType = 61 // credit note
)

// IsValid checks if the type is one of the relevant SII codes
func (t DocumentType) IsValid() bool {
	switch t {
	case DocTypeFacturaElectronica, DocTypeFacturaExenta, DocTypeNotaCredito:
		return true
	}
	return false
}

// IsInvoice returns true for the two invoice sub-types
func (t DocumentType) IsInvoice() bool {
	return t == DocTypeFacturaElectronica || t == DocTypeFacturaExenta
}

// IsCreditNote returns true for SII type 61
func (t DocumentType) IsCreditNote() bool {
	return t == DocTypeNotaCredito
}

// String returns the official SII document type name
func (t DocumentType) String() string {
	switch t {
	case DocTypeFacturaElectronica:
		return "Factura Electronica"
	case DocTypeFacturaExenta:
		return "Factura Exenta"
	case DocTypeNotaCredito:
		return "Nota de Credito"
	}
	return "Desconocido"
}

// DocumentState is the collection lifecycle state of a document
type DocumentState string

const (
	StatePending DocumentState = "PENDING" // no payments, balance untouched
	StatePartial DocumentState = "PARTIAL" // some payments, balance remaining
	StateSettled DocumentState = "SETTLED" // balance fully covered
	StateVoided  DocumentState = "VOIDED"  // cancelled by credit notes, terminal
)

// IsValid checks if the state is a known lifecycle state
func (s DocumentState) IsValid() bool {
	switch s {
	case StatePending, StatePartial, StateSettled, StateVoided:
		return true
	}
	return false
}

// CanReceivePayment returns true if payments can be applied in this state
func (s DocumentState) CanReceivePayment() bool {
	return s == StatePending || s == StatePartial
}

// String returns the string representation of DocumentState
func (s DocumentState) String() string {
	return string(s)
}

// Amounts holds the monetary breakdown of a document.
// All values are integer Chilean pesos, the currency has no minor fraction.
type Amounts struct {
	Exempt int64 `json:"exempt"`
	Net    int64 `json:"net"`
	VAT    int64 `json:"vat"`
	Total  int64 `json:"total"`
}

// Document represents one row of the SII sales register: an invoice or a
// credit note issued by the provider. (DocType, Folio) is unique.
type Document struct {
	shared.BaseEntity
	DocType            DocumentType  `json:"doc_type"`
	SaleKind           string        `json:"sale_kind,omitempty"` // "Tipo Venta" column, informational
	PayerTaxID         string        `json:"payer_tax_id"`        // RUT of the billing intermediary
	PayerName          string        `json:"payer_name"`
	Folio              int64         `json:"folio"`
	IssueDate          time.Time     `json:"issue_date"`
	ReceptionDate      *time.Time    `json:"reception_date,omitempty"`
	AcknowledgeDate    *time.Time    `json:"acknowledge_date,omitempty"`
	Amounts            Amounts       `json:"amounts"`
	RefFolio           *int64        `json:"ref_folio,omitempty"` // credit notes: folio of the amended invoice
	RefDocType         *DocumentType `json:"ref_doc_type,omitempty"`
	TaxPeriod          string        `json:"tax_period"` // "YYYY-MM", from the extract filename
	SourceFile         string        `json:"source_file"`
	ImportedAt         time.Time     `json:"imported_at"`
	ClientID           *uuid.UUID    `json:"client_id,omitempty"`
	CourseLabel        *string       `json:"course_label,omitempty"`
	State              DocumentState `json:"state"`
	OutstandingBalance int64         `json:"outstanding_balance"`
}

// NewImportedDocument creates a Document in its initial lifecycle state.
// Documents issued before the cutover year are frozen as settled history;
// active invoices start pending with their full total outstanding.
// Credit notes never carry a balance of their own.
func NewImportedDocument(
	docType DocumentType,
	folio int64,
	issueDate time.Time,
	amounts Amounts,
	taxPeriod string,
	sourceFile string,
	cutoverYear int,
) (*Document, error) {
	if !docType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_DOC_TYPE", "Document type %d is not a relevant SII type", int(docType))
	}
	if folio <= 0 {
		return nil, shared.NewDomainErrorf("INVALID_FOLIO", "Folio must be positive, got %d", folio)
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if taxPeriod == "" {
		return nil, shared.NewDomainError("INVALID_TAX_PERIOD", "Tax period is required")
	}

	doc := &Document{
		BaseEntity: shared.NewBaseEntity(),
		DocType:    docType,
		Folio:      folio,
		IssueDate:  issueDate,
		Amounts:    amounts,
		TaxPeriod:  taxPeriod,
		SourceFile: sourceFile,
		ImportedAt: time.Now().UTC(),
	}

	switch {
	case issueDate.Year() < cutoverYear:
		doc.State = StateSettled
		doc.OutstandingBalance = 0
	case docType.IsCreditNote():
		doc.State = StatePending
		doc.OutstandingBalance = 0
	default:
		doc.State = StatePending
		doc.OutstandingBalance = amounts.Total
	}

	return doc, nil
}

// IsHistorical reports whether the document predates the management cutover
// year and is therefore frozen: settled at import, excluded from assignment
// and from balance propagation.
func (d *Document) IsHistorical(cutoverYear int) bool {
	return d.IssueDate.Year() < cutoverYear
}

// IsActiveInvoice reports whether the document is an invoice under active
// collection management.
func (d *Document) IsActiveInvoice(cutoverYear int) bool {
	return d.DocType.IsInvoice() && !d.IsHistorical(cutoverYear)
}

// HasReference reports whether a credit note carries a resolvable reference
// to the invoice it amends.
func (d *Document) HasReference() bool {
	return d.RefFolio != nil && *d.RefFolio > 0
}

// Recalculate re-derives the outstanding balance and lifecycle state from the
// current totals of applied payments and referencing credit notes. It is a
// pure function of those sums, so repeated calls converge to the same state.
// Voided is terminal and never produced here.
func (d *Document) Recalculate(paidSum, creditSum int64) {
	outstanding := d.Amounts.Total - paidSum - creditSum
	if outstanding < 0 {
		outstanding = 0
	}
	d.OutstandingBalance = outstanding

	switch {
	case outstanding == 0:
		d.State = StateSettled
	case paidSum > 0:
		d.State = StatePartial
	default:
		d.State = StatePending
	}
	d.Touch()
}

// Void marks the invoice as cancelled by credit notes. Terminal.
func (d *Document) Void() {
	d.State = StateVoided
	d.OutstandingBalance = 0
	d.Touch()
}

// AssignClient links the invoice to a real client. Only active invoices may
// carry management fields.
func (d *Document) AssignClient(clientID uuid.UUID, cutoverYear int) error {
	if d.DocType.IsCreditNote() {
		return shared.NewDomainErrorf("NOT_AN_INVOICE", "Folio %d: credit notes do not carry a client assignment", d.Folio)
	}
	if d.IsHistorical(cutoverYear) {
		return shared.NewDomainErrorf("HISTORICAL_DOCUMENT", "Folio %d: invoices issued before %d do not accept client assignment", d.Folio, cutoverYear)
	}
	d.ClientID = &clientID
	d.Touch()
	return nil
}

// AssignCourse tags the invoice with the course it was billed for.
// An empty label clears the assignment.
func (d *Document) AssignCourse(label string, cutoverYear int) error {
	if d.DocType.IsCreditNote() {
		return shared.NewDomainErrorf("NOT_AN_INVOICE", "Folio %d: credit notes do not carry a course assignment", d.Folio)
	}
	if d.IsHistorical(cutoverYear) {
		return shared.NewDomainErrorf("HISTORICAL_DOCUMENT", "Folio %d: invoices issued before %d do not accept course assignment", d.Folio, cutoverYear)
	}
	if label == "" {
		d.CourseLabel = nil
	} else {
		d.CourseLabel = &label
	}
	d.Touch()
	return nil
}
