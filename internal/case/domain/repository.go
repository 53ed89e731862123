package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	EnterpriseID snowflake.ID
	Status       Status
	Priority     string
	AgencyID     snowflake.ID
	AfterID      snowflake.ID
	Limit        int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Case) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Case, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Case, error)

	// UpdateCAS persists the case only when the stored version still equals
	// expectedVersion, bumping the version on success. Returns ErrConflict
	// on a lost race.
	UpdateCAS(ctx context.Context, db *gorm.DB, c *Case, expectedVersion int64) error

	// ListOverdue returns open (non-terminal) cases whose resolution
	// deadline passed before now and that have not been breach-counted.
	ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Case, error)

	// ListEscalatable returns worked cases whose resolution deadline passed
	// before cutoff and that are not yet escalated or terminal.
	ListEscalatable(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*Case, error)

	// MarkBreachCounted flips the breach flag if and only if the case is
	// still open at update time. Returns false when the case went terminal
	// or was already counted in the meantime.
	MarkBreachCounted(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	InsertNote(ctx context.Context, db *gorm.DB, note *CaseNote) error
	ListNotes(ctx context.Context, db *gorm.DB, caseID snowflake.ID) ([]*CaseNote, error)

	Stats(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID) (KPIs, error)
}
