package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TargetTypeCase   = "case"
	TargetTypeAgency = "agency"
	TargetTypeNote   = "case_note"
)

const (
	ActionCaseCreate      = "case.create"
	ActionCaseAllocate    = "case.allocate"
	ActionCaseReassign    = "case.reassign"
	ActionCaseTransition  = "case.transition"
	ActionCaseReopen      = "case.reopen"
	ActionCaseRescore     = "case.rescore"
	ActionCaseRemarks     = "case.remarks"
	ActionCaseNoteCreate  = "case.note.create"
	ActionAgencyCreate    = "agency.create"
	ActionAgencyUpdate    = "agency.update"
	ActionAgencyBreach    = "agency.sla_breach"
	ActionAgencyBreachRst = "agency.reset_breaches"
)

// Event is an append-only audit record. Rows are inserted once and never
// updated or deleted; replaying a case's events in created_at order
// reconstructs its status history.
type Event struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	EnterpriseID snowflake.ID `gorm:"index" json:"enterprise_id"`

	ActorType string `gorm:"not null" json:"actor_type"`
	ActorID   string `gorm:"not null" json:"actor_id"`
	ActorRole string `json:"actor_role,omitempty"`

	Action     string `gorm:"not null;index" json:"action"`
	TargetType string `gorm:"not null;index:idx_audit_target" json:"target_type"`
	TargetID   string `gorm:"not null;index:idx_audit_target" json:"target_id"`

	// Metadata carries the before/after field diff for mutations.
	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Event) TableName() string {
	return "audit_events"
}
