package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateCaseRequest struct {
	AccountID      string
	DebtorName     string
	DebtorEmail    string
	DebtorPhone    string
	Amount         float64
	Currency       string
	DebtType       string
	DaysDelinquent int
}

// BulkRow pairs a CSV row number with its parsed create request.
type BulkRow struct {
	Row     int
	Request CreateCaseRequest
	Raw     []string
}

type BulkRowSuccess struct {
	Row      int          `json:"row"`
	CaseID   snowflake.ID `json:"case_id"`
	AIScore  int          `json:"ai_score"`
	Priority string       `json:"priority"`
	AgencyID snowflake.ID `json:"agency_id,omitempty"`
	Pending  bool         `json:"pending,omitempty"`
}

type BulkRowFailure struct {
	Row     int      `json:"row"`
	Message string   `json:"message"`
	Raw     []string `json:"raw,omitempty"`
}

type BulkResult struct {
	TotalRows int              `json:"total_rows"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Successes []BulkRowSuccess `json:"successes"`
	Failures  []BulkRowFailure `json:"failures"`
}

type ListCaseRequest struct {
	PageToken string
	PageSize  int
	Status    string
	Priority  string
	AgencyID  string
}

type ListCaseResponse struct {
	Cases         []Case `json:"cases"`
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

type TransitionRequest struct {
	CaseID         string
	ToStatus       Status
	Remarks        string
	ProofType      string
	ProofReference string
}

type AddNoteRequest struct {
	CaseID string
	Body   string
}

// KPIs are dashboard aggregates computed on demand from the case store.
type KPIs struct {
	TotalCases       int64            `json:"total_cases"`
	ByStatus         map[string]int64 `json:"by_status"`
	ByPriority       map[string]int64 `json:"by_priority"`
	TotalAmount      float64          `json:"total_amount"`
	RecoveredAmount  float64          `json:"recovered_amount"`
	RecoveryRate     float64          `json:"recovery_rate"`
	SLABreachedCases int64            `json:"sla_breached_cases"`
	UnallocatedCases int64            `json:"unallocated_cases"`
}

type Service interface {
	Create(ctx context.Context, req CreateCaseRequest) (Case, error)
	BulkCreate(ctx context.Context, rows []BulkRow) BulkResult
	GetByID(ctx context.Context, id string) (Case, error)
	List(ctx context.Context, req ListCaseRequest) (ListCaseResponse, error)

	Transition(ctx context.Context, req TransitionRequest) (Case, error)
	Reassign(ctx context.Context, id string) (Case, error)
	Reopen(ctx context.Context, id string) (Case, error)
	Rescore(ctx context.Context, id string) (Case, error)
	RetryAllocation(ctx context.Context, id string) (Case, error)

	AddNote(ctx context.Context, req AddNoteRequest) (CaseNote, error)
	ListNotes(ctx context.Context, caseID string) ([]CaseNote, error)

	Dashboard(ctx context.Context) (KPIs, error)
}

var (
	ErrInvalidEnterprise = errors.New("invalid_enterprise")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidDebtorName = errors.New("invalid_debtor_name")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidDelinquent = errors.New("invalid_days_delinquent")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidNote       = errors.New("invalid_note")
	ErrNotFound          = errors.New("not_found")

	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrForbiddenTransition = errors.New("forbidden_transition")
	ErrProofRequired       = errors.New("proof_required")
	ErrProofAlreadySet     = errors.New("proof_already_recorded")
	ErrNotTerminal         = errors.New("not_terminal")
	ErrAlreadyAllocated    = errors.New("already_allocated")
	ErrTerminalCase        = errors.New("terminal_case")

	// ErrConflict is a lost optimistic-version race; the caller re-fetches
	// and retries.
	ErrConflict = errors.New("conflict")
)
