package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tecnipro/cobranzas/internal/domain/billing"
)

// DocumentModel is the persistence model for sales register documents.
// (doc_type, folio) mirrors the SII uniqueness of the register.
type DocumentModel struct {
	BaseModel
	DocType            int        `gorm:"not null;uniqueIndex:idx_documents_type_folio,priority:1;index:idx_documents_type"`
	SaleKind           string     `gorm:"type:varchar(50)"`
	PayerTaxID         string     `gorm:"type:varchar(20);index"`
	PayerName          string     `gorm:"type:varchar(200)"`
	Folio              int64      `gorm:"not null;uniqueIndex:idx_documents_type_folio,priority:2;index:idx_documents_folio"`
	IssueDate          time.Time  `gorm:"not null;index"`
	ReceptionDate      *time.Time
	AcknowledgeDate    *time.Time
	AmountExempt       int64      `gorm:"not null;default:0"`
	AmountNet          int64      `gorm:"not null;default:0"`
	AmountVAT          int64      `gorm:"column:amount_vat;not null;default:0"`
	AmountTotal        int64      `gorm:"not null;default:0"`
	RefFolio           *int64     `gorm:"index"`
	RefDocType         *int
	TaxPeriod          string     `gorm:"type:varchar(7);not null;index"`
	SourceFile         string     `gorm:"type:varchar(255);not null"`
	ImportedAt         time.Time  `gorm:"not null"`
	ClientID           *uuid.UUID `gorm:"type:uuid;index"`
	CourseLabel        *string    `gorm:"type:varchar(200)"`
	State              string     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	OutstandingBalance int64      `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document
func (m *DocumentModel) ToDomain() *billing.Document {
	doc := &billing.Document{
		BaseEntity:      m.BaseModel.ToDomain(),
		DocType:         billing.DocumentType(m.DocType),
		SaleKind:        m.SaleKind,
		PayerTaxID:      m.PayerTaxID,
		PayerName:       m.PayerName,
		Folio:           m.Folio,
		IssueDate:       m.IssueDate,
		ReceptionDate:   m.ReceptionDate,
		AcknowledgeDate: m.AcknowledgeDate,
		Amounts: billing.Amounts{
			Exempt: m.AmountExempt,
			Net:    m.AmountNet,
			VAT:    m.AmountVAT,
			Total:  m.AmountTotal,
		},
		RefFolio:           m.RefFolio,
		TaxPeriod:          m.TaxPeriod,
		SourceFile:         m.SourceFile,
		ImportedAt:         m.ImportedAt,
		ClientID:           m.ClientID,
		CourseLabel:        m.CourseLabel,
		State:              billing.DocumentState(m.State),
		OutstandingBalance: m.OutstandingBalance,
	}
	if m.RefDocType != nil {
		t := billing.DocumentType(*m.RefDocType)
		doc.RefDocType = &t
	}
	return doc
}

// DocumentModelFromDomain converts a domain Document to its persistence model
func DocumentModelFromDomain(d *billing.Document) *DocumentModel {
	m := &DocumentModel{
		DocType:            int(d.DocType),
		SaleKind:           d.SaleKind,
		PayerTaxID:         d.PayerTaxID,
		PayerName:          d.PayerName,
		Folio:              d.Folio,
		IssueDate:          d.IssueDate,
		ReceptionDate:      d.ReceptionDate,
		AcknowledgeDate:    d.AcknowledgeDate,
		AmountExempt:       d.Amounts.Exempt,
		AmountNet:          d.Amounts.Net,
		AmountVAT:          d.Amounts.VAT,
		AmountTotal:        d.Amounts.Total,
		RefFolio:           d.RefFolio,
		TaxPeriod:          d.TaxPeriod,
		SourceFile:         d.SourceFile,
		ImportedAt:         d.ImportedAt,
		ClientID:           d.ClientID,
		CourseLabel:        d.CourseLabel,
		State:              d.State.String(),
		OutstandingBalance: d.OutstandingBalance,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	if d.RefDocType != nil {
		t := int(*d.RefDocType)
		m.RefDocType = &t
	}
	return m
}

// PaymentModel is the persistence model for received payments
type PaymentModel struct {
	BaseModel
	PaymentDate time.Time `gorm:"not null;index"`
	TotalAmount int64     `gorm:"not null"`
	Note        string    `gorm:"type:varchar(500)"`
	RecordedBy  string    `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity:  m.BaseModel.ToDomain(),
		PaymentDate: m.PaymentDate,
		TotalAmount: m.TotalAmount,
		Note:        m.Note,
		RecordedBy:  m.RecordedBy,
	}
}

// PaymentModelFromDomain converts a domain Payment to its persistence model
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		PaymentDate: p.PaymentDate,
		TotalAmount: p.TotalAmount,
		Note:        p.Note,
		RecordedBy:  p.RecordedBy,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// AllocationModel is the persistence model for payment-to-document splits.
// Rows are deleted together with their payment on reversal.
type AllocationModel struct {
	BaseModel
	PaymentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount     int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation
func (m *AllocationModel) ToDomain() *billing.Allocation {
	return &billing.Allocation{
		BaseEntity:    m.BaseModel.ToDomain(),
		PaymentID:     m.PaymentID,
		DocumentID:    m.DocumentID,
		AppliedAmount: m.Amount,
	}
}

// AllocationModelFromDomain converts a domain Allocation to its persistence model
func AllocationModelFromDomain(a *billing.Allocation) *AllocationModel {
	m := &AllocationModel{
		PaymentID:  a.PaymentID,
		DocumentID: a.DocumentID,
		Amount:     a.AppliedAmount,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}
