package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Entry is the write-side shape of an audit event. The service fills in the
// actor from context when the caller leaves it empty.
type Entry struct {
	EnterpriseID snowflake.ID
	Action       string
	TargetType   string
	TargetID     string
	Metadata     map[string]any
}

type ListRequest struct {
	PageToken  string
	PageSize   int
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListResponse struct {
	Events        []Event `json:"events"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	HasMore       bool    `json:"has_more"`
}

type Service interface {
	// Record appends one event. When tx is non-nil the insert joins the
	// caller's transaction so the event commits atomically with the
	// mutation it describes.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
