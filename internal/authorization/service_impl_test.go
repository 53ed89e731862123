package authorization

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/recovahq/recova/internal/actorcontext"
)

func newTestAuthz(t *testing.T) Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	return NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorize_RoleCapabilities(t *testing.T) {
	svc := newTestAuthz(t)
	ctx := context.Background()

	superAdmin := actorcontext.Actor{ID: 1, Role: actorcontext.RoleSuperAdmin}
	admin := actorcontext.Actor{ID: 2, Role: actorcontext.RoleEnterpriseAdmin, EnterpriseID: 7}
	dca := actorcontext.Actor{ID: 3, Role: actorcontext.RoleDCAUser, EnterpriseID: 7, AgencyID: 11}
	system := actorcontext.System()

	tests := []struct {
		name    string
		actor   actorcontext.Actor
		object  string
		action  string
		allowed bool
	}{
		{"super_admin views cases", superAdmin, ObjectCase, ActionCaseView, true},
		{"super_admin views audit", superAdmin, ObjectAuditLog, ActionAuditLogView, true},
		{"super_admin cannot create", superAdmin, ObjectCase, ActionCaseCreate, false},
		{"super_admin cannot reassign", superAdmin, ObjectCase, ActionCaseReassign, false},
		{"super_admin cannot run sla", superAdmin, ObjectSLA, ActionSLARun, false},

		{"admin creates cases", admin, ObjectCase, ActionCaseCreate, true},
		{"admin reassigns", admin, ObjectCase, ActionCaseReassign, true},
		{"admin reopens", admin, ObjectCase, ActionCaseReopen, true},
		{"admin manages agencies", admin, ObjectAgency, ActionAgencyCreate, true},
		{"admin resets breaches", admin, ObjectAgency, ActionAgencyReset, true},
		{"admin runs sla", admin, ObjectSLA, ActionSLARun, true},

		{"dca views cases", dca, ObjectCase, ActionCaseView, true},
		{"dca updates cases", dca, ObjectCase, ActionCaseUpdate, true},
		{"dca adds notes", dca, ObjectCase, ActionCaseNote, true},
		{"dca cannot create", dca, ObjectCase, ActionCaseCreate, false},
		{"dca cannot reassign", dca, ObjectCase, ActionCaseReassign, false},
		{"dca cannot manage agencies", dca, ObjectAgency, ActionAgencyCreate, false},
		{"dca cannot read audit", dca, ObjectAuditLog, ActionAuditLogView, false},

		{"system allocates", system, ObjectCase, ActionCaseAllocate, true},
		{"system runs sla", system, ObjectSLA, ActionSLARun, true},
		{"system cannot manage agencies", system, ObjectAgency, ActionAgencyUpdate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tt.actor, tt.object, tt.action)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorize_InputValidation(t *testing.T) {
	svc := newTestAuthz(t)
	ctx := context.Background()
	admin := actorcontext.Actor{ID: 2, Role: actorcontext.RoleEnterpriseAdmin, EnterpriseID: 7}

	err := svc.Authorize(ctx, admin, "", ActionCaseView)
	assert.ErrorIs(t, err, ErrInvalidObject)

	err = svc.Authorize(ctx, admin, ObjectCase, " ")
	assert.ErrorIs(t, err, ErrInvalidAction)

	err = svc.Authorize(ctx, actorcontext.Actor{ID: 5}, ObjectCase, ActionCaseView)
	assert.ErrorIs(t, err, ErrInvalidActor)
}

func TestAuthorize_StaleRoleGroupingReplaced(t *testing.T) {
	svc := newTestAuthz(t)
	ctx := context.Background()

	// The same user first authorizes as a dca_user, then its token is
	// reissued with the admin role. The old grouping must not linger.
	asDCA := actorcontext.Actor{ID: 9, Role: actorcontext.RoleDCAUser, EnterpriseID: 7, AgencyID: 11}
	require.NoError(t, svc.Authorize(ctx, asDCA, ObjectCase, ActionCaseView))
	assert.ErrorIs(t, svc.Authorize(ctx, asDCA, ObjectCase, ActionCaseCreate), ErrForbidden)

	asAdmin := actorcontext.Actor{ID: 9, Role: actorcontext.RoleEnterpriseAdmin, EnterpriseID: 7}
	require.NoError(t, svc.Authorize(ctx, asAdmin, ObjectCase, ActionCaseCreate))

	// Demoting back works the same way.
	assert.ErrorIs(t, svc.Authorize(ctx, asDCA, ObjectCase, ActionCaseCreate), ErrForbidden)
}
