package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tecnipro/cobranzas/internal/domain/audit"
)

// AuditEntryModel is the persistence model for the append-only action log
type AuditEntryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Timestamp time.Time `gorm:"not null;index"`
	Actor     string    `gorm:"type:varchar(100);not null;index"`
	Action    string    `gorm:"type:varchar(50);not null;index"`
	Detail    string    `gorm:"type:text"`
	SourceIP  string    `gorm:"type:varchar(45)"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// ToDomain converts the persistence model to a domain Entry
func (m *AuditEntryModel) ToDomain() audit.Entry {
	return audit.Entry{
		ID:        m.ID,
		Timestamp: m.Timestamp,
		Actor:     m.Actor,
		Action:    audit.Action(m.Action),
		Detail:    m.Detail,
		SourceIP:  m.SourceIP,
	}
}

// AuditEntryModelFromDomain converts a domain Entry to its persistence model
func AuditEntryModelFromDomain(e *audit.Entry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Action:    string(e.Action),
		Detail:    e.Detail,
		SourceIP:  e.SourceIP,
	}
}
