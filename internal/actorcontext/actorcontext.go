package actorcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Role is the coarse access level carried by a bearer token.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleEnterpriseAdmin Role = "enterprise_admin"
	RoleDCAUser         Role = "dca_user"
	RoleSystem          Role = "system"
)

// Actor identifies who is performing a request: a human resolved from a
// bearer token, or the system actor for scheduler-driven mutations.
type Actor struct {
	ID           snowflake.ID
	Role         Role
	EnterpriseID snowflake.ID
	// AgencyID is set only for dca_user actors.
	AgencyID snowflake.ID
}

// System is the actor attached to scheduler and migration mutations.
func System() Actor {
	return Actor{Role: RoleSystem}
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// EnterpriseIDFromContext returns the acting enterprise scope, if any.
func EnterpriseIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	actor, ok := FromContext(ctx)
	if !ok || actor.EnterpriseID == 0 {
		return 0, false
	}
	return actor.EnterpriseID, true
}
