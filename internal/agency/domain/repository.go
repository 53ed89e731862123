package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	EnterpriseID   snowflake.ID
	ActiveOnly     bool
	AcceptingOnly  bool
	Specialization string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, agency *Agency) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Agency, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Agency, error)
	Update(ctx context.Context, db *gorm.DB, agency *Agency) error

	// ClaimSlot atomically reserves one unit of capacity. The capacity and
	// eligibility predicates live in the UPDATE's WHERE clause, so two
	// concurrent claims can never both take the last slot. Returns false
	// when the agency had no headroom or stopped accepting.
	ClaimSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	// ReleaseSlot returns one unit of capacity, never dropping below zero.
	ReleaseSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// IncrementBreach bumps the SLA breach counter.
	IncrementBreach(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// ResetBreaches zeroes the SLA breach counter (administrative action).
	ResetBreaches(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
