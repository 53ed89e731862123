package authorization

import (
	"context"
	"errors"

	"github.com/recovahq/recova/internal/actorcontext"
)

var (
	ErrInvalidActor      = errors.New("invalid_actor")
	ErrInvalidEnterprise = errors.New("invalid_enterprise")
	ErrInvalidObject     = errors.New("invalid_object")
	ErrInvalidAction     = errors.New("invalid_action")
	ErrForbidden         = errors.New("forbidden")
)

// Service answers capability questions. Row-level scoping (which cases a
// dca_user may see) stays in the case service; this layer only decides
// whether a role may perform an action at all.
type Service interface {
	Authorize(ctx context.Context, actor actorcontext.Actor, object string, action string) error
}
