package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/tecnipro/cobranzas/internal/domain/shared"
)

// Action identifies the kind of mutation an entry records
type Action string

const (
	ActionImportExtract   Action = "import_extract"
	ActionApplyCreditNote Action = "apply_credit_note"
	ActionRegisterPayment Action = "register_payment"
	ActionReversePayment  Action = "reverse_payment"
	ActionCreateClient    Action = "create_client"
	ActionUpdateClient    Action = "update_client"
	ActionMergeClients    Action = "merge_clients"
	ActionAssignClient    Action = "assign_client"
	ActionAssignCourse    Action = "assign_course"
)

// Actor is the attribution of a mutating call, supplied by the surrounding
// (authenticated) layer.
type Actor struct {
	Name     string `json:"name"`
	SourceIP string `json:"source_ip,omitempty"`
}

// System is the attribution used for mutations not driven by an operator
var System = Actor{Name: "system"}

// Entry is one append-only action log record. Entries are never updated or
// deleted; a reversal leaves both its own entry and the original in place.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    Action    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	SourceIP  string    `json:"source_ip,omitempty"`
}

// NewEntry creates an audit entry attributed to the given actor
func NewEntry(actor Actor, action Action, detail string) (*Entry, error) {
	if actor.Name == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Audit actor is required")
	}
	if action == "" {
		return nil, shared.NewDomainError("INVALID_ACTION", "Audit action is required")
	}
	return &Entry{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Actor:     actor.Name,
		Action:    action,
		Detail:    detail,
		SourceIP:  actor.SourceIP,
	}, nil
}
