// Package audit records the lifecycle and integrity events of logical users.
//
// Events never carry PII: the pseudonym is already opaque, row ids appear only
// as decimal strings of internal keys (meaningless without a binding), and
// Detail is restricted to non-identifying operational text.
package audit

import (
	"time"

	"veil/pkg/domain"
)

// Category classifies audit events by their primary purpose.
type Category string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// creation, update and deletion of personal data.
	CategoryCompliance Category = "compliance"

	// CategoryIntegrity covers detected violations of the one-binding-per-user
	// invariant and failed compensations. These demand operator repair.
	CategoryIntegrity Category = "integrity"
)

// Action names what happened.
type Action string

const (
	ActionUserCreated  Action = "user_created"
	ActionUserUpdated  Action = "user_updated"
	ActionUserDeleted  Action = "user_deleted"
	ActionUserAccessed Action = "user_accessed"

	// ActionIntegrityFault: a binding exists without its target rows, an auth
	// row has no binding, or a delete left orphans behind.
	ActionIntegrityFault Action = "integrity_fault"
	// ActionCompensationApplied: a saga step was rolled back after a later
	// step failed.
	ActionCompensationApplied Action = "compensation_applied"
	// ActionCompensationFailed: a compensating delete itself failed, leaving
	// an orphan for repair.
	ActionCompensationFailed Action = "compensation_failed"
)

// Event is emitted from the orchestrator to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Category  Category         `json:"category"`
	Action    Action           `json:"action"`
	Pseudonym domain.Pseudonym `json:"pseudonym,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
