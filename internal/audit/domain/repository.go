package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	EnterpriseID snowflake.ID
	Action       string
	TargetType   string
	TargetID     string
	ActorID      string
	StartAt      *time.Time
	EndAt        *time.Time
	AfterID      snowflake.ID
	Limit        int
}

// Repository is append-only on purpose: there is no update or delete.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *Event) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Event, error)
}
