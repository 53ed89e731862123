package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/recovahq/recova/internal/actorcontext"
)

type Service interface {
	// Authenticate resolves a raw bearer secret to the actor it represents.
	Authenticate(ctx context.Context, raw string) (actorcontext.Actor, error)
	Issue(ctx context.Context, req IssueRequest) (*SecretResponse, error)
	Revoke(ctx context.Context, tokenID snowflake.ID) error
	List(ctx context.Context, enterpriseID snowflake.ID) ([]Response, error)
}

type IssueRequest struct {
	Name         string            `json:"name"`
	ActorID      snowflake.ID      `json:"actor_id,string"`
	Role         actorcontext.Role `json:"role"`
	EnterpriseID snowflake.ID      `json:"enterprise_id,string"`
	AgencyID     snowflake.ID      `json:"agency_id,string"`
	ExpiresAt    *time.Time        `json:"expires_at"`
}

type Response struct {
	ID           snowflake.ID `json:"id,string"`
	Name         string       `json:"name"`
	ActorID      snowflake.ID `json:"actor_id,string"`
	Role         string       `json:"role"`
	EnterpriseID snowflake.ID `json:"enterprise_id,string"`
	AgencyID     snowflake.ID `json:"agency_id,string,omitempty"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	LastUsedAt   *time.Time   `json:"last_used_at,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
}

// SecretResponse carries the raw secret exactly once, at issue time.
type SecretResponse struct {
	ID    snowflake.ID `json:"id,string"`
	Token string       `json:"token"`
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidRole       = errors.New("invalid_role")
	ErrInvalidEnterprise = errors.New("invalid_enterprise")
	ErrInvalidAgency     = errors.New("invalid_agency")
	ErrInvalidID         = errors.New("invalid_id")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not_found")
)
