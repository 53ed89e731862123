package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAllocated  Status = "allocated"
	StatusInProgress Status = "in_progress"
	StatusContacted  Status = "contacted"
	StatusPromised   Status = "promised"
	StatusRecovered  Status = "recovered"
	StatusResolved   Status = "resolved"
	StatusEscalated  Status = "escalated"
	StatusReturned   Status = "returned"
	StatusFailed     Status = "failed"
	StatusClosed     Status = "closed"
)

// Case is a single debt account under collection. Rows are never deleted:
// cases reach a terminal status and stay for audit and reporting.
type Case struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	EnterpriseID snowflake.ID `gorm:"not null;index" json:"enterprise_id"`
	AccountID    string       `gorm:"not null" json:"account_id"`

	DebtorName  string `gorm:"not null" json:"debtor_name"`
	DebtorEmail string `json:"debtor_email,omitempty"`
	DebtorPhone string `json:"debtor_phone,omitempty"`

	Amount   float64 `gorm:"not null" json:"amount"`
	Currency string  `gorm:"not null;default:USD" json:"currency"`
	DebtType string  `gorm:"index" json:"debt_type,omitempty"`

	DaysDelinquent int `gorm:"not null;default:0" json:"days_delinquent"`

	AIScore            int       `gorm:"column:ai_score;not null;default:0" json:"ai_score"`
	Priority           string    `gorm:"not null;index" json:"priority"`
	SLAContactDeadline time.Time `gorm:"column:sla_contact_deadline" json:"sla_contact_deadline"`
	SLADeadline        time.Time `gorm:"column:sla_deadline;index" json:"sla_deadline"`

	Status Status `gorm:"not null;index" json:"status"`

	// AssignedDCAID is zero only while the case sits unallocated in pending.
	AssignedDCAID snowflake.ID `gorm:"column:assigned_dca_id;index" json:"assigned_dca_id,omitempty"`

	Remarks        string `json:"remarks,omitempty"`
	ProofType      string `json:"proof_type,omitempty"`
	ProofReference string `json:"proof_reference,omitempty"`

	// BreachCounted makes the SLA monitor idempotent: once a case has been
	// counted against its agency, re-scans skip it.
	BreachCounted bool `gorm:"not null;default:false" json:"breach_counted"`

	Version   int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Case) TableName() string {
	return "cases"
}

func (c *Case) IsTerminal() bool {
	return IsTerminal(c.Status)
}

// HasProof reports whether both proof fields are recorded.
func (c *Case) HasProof() bool {
	return c.ProofType != "" && c.ProofReference != ""
}

// CaseNote is an agency-authored annotation on a case. Notes accumulate; the
// flat Remarks field on Case always holds the latest one.
type CaseNote struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CaseID     snowflake.ID `gorm:"not null;index" json:"case_id"`
	AuthorID   snowflake.ID `gorm:"not null" json:"author_id"`
	AuthorRole string       `gorm:"not null" json:"author_role"`
	Body       string       `gorm:"not null" json:"body"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (CaseNote) TableName() string {
	return "case_notes"
}
