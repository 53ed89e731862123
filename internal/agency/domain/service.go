package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateAgencyRequest struct {
	Name               string
	Code               string
	ContactPerson      string
	Email              string
	PerformanceScore   float64
	MaxConcurrentCases int
	Specializations    []string
}

type UpdateAgencyRequest struct {
	ID                 string
	ContactPerson      *string
	Email              *string
	PerformanceScore   *float64
	RecoveryRate       *float64
	MaxConcurrentCases *int
	Specializations    []string
	IsActive           *bool
	IsAcceptingCases   *bool
}

type ListAgencyRequest struct {
	ActiveOnly    bool
	AcceptingOnly bool
}

type Service interface {
	Create(ctx context.Context, req CreateAgencyRequest) (Agency, error)
	Update(ctx context.Context, req UpdateAgencyRequest) (Agency, error)
	GetByID(ctx context.Context, id snowflake.ID) (Agency, error)
	List(ctx context.Context, req ListAgencyRequest) ([]Agency, error)
	ResetBreaches(ctx context.Context, id snowflake.ID) (Agency, error)
}

var (
	ErrInvalidEnterprise = errors.New("invalid_enterprise")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidCode       = errors.New("invalid_code")
	ErrInvalidCapacity   = errors.New("invalid_capacity")
	ErrInvalidID         = errors.New("invalid_id")
	ErrDuplicateCode     = errors.New("duplicate_code")
	ErrNotFound          = errors.New("not_found")
)
