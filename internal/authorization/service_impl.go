package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/recovahq/recova/internal/actorcontext"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
)

//go:embed model.conf
var modelText string

const (
	ObjectCase      = "case"
	ObjectAgency    = "agency"
	ObjectAuditLog  = "audit_log"
	ObjectDashboard = "dashboard"
	ObjectSLA       = "sla"
)

const (
	ActionCaseView     = "case.view"
	ActionCaseCreate   = "case.create"
	ActionCaseUpdate   = "case.update"
	ActionCaseReassign = "case.reassign"
	ActionCaseReopen   = "case.reopen"
	ActionCaseRescore  = "case.rescore"
	ActionCaseAllocate = "case.allocate"
	ActionCaseNote     = "case.note"

	ActionAgencyView   = "agency.view"
	ActionAgencyCreate = "agency.create"
	ActionAgencyUpdate = "agency.update"
	ActionAgencyReset  = "agency.reset_breaches"

	ActionAuditLogView = "audit_log.view"

	ActionDashboardView = "dashboard.view"

	ActionSLARun = "sla.run"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor actorcontext.Actor, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}
	if actor.Role == "" {
		return ErrInvalidActor
	}

	subject, domain := subjectAndDomain(actor)
	roleName := fmt.Sprintf("role:%s", actor.Role)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, object, action)
		return ErrForbidden
	}
	if shouldAuditGrant(action) {
		s.auditGranted(ctx, actor, object, action)
	}
	return nil
}

// subjectAndDomain maps an actor to a casbin subject and tenancy domain.
// System and super_admin actors have no enterprise of their own; they live
// in the wildcard domain so their role grouping applies everywhere.
func subjectAndDomain(actor actorcontext.Actor) (string, string) {
	domain := "*"
	if actor.EnterpriseID != 0 {
		domain = fmt.Sprintf("enterprise:%s", actor.EnterpriseID.String())
	}
	if actor.Role == actorcontext.RoleSystem {
		return "system", domain
	}
	return fmt.Sprintf("user:%s", actor.ID.String()), domain
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor actorcontext.Actor, object string, action string) {
	if s.auditSvc == nil || actor.EnterpriseID == 0 {
		return
	}
	_ = s.auditSvc.Record(ctx, nil, auditdomain.Entry{
		EnterpriseID: actor.EnterpriseID,
		Action:       "authorization.denied",
		TargetType:   "capability",
		TargetID:     object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"role":   string(actor.Role),
		},
	})
}

func (s *ServiceImpl) auditGranted(ctx context.Context, actor actorcontext.Actor, object string, action string) {
	if s.auditSvc == nil || actor.EnterpriseID == 0 {
		return
	}
	_ = s.auditSvc.Record(ctx, nil, auditdomain.Entry{
		EnterpriseID: actor.EnterpriseID,
		Action:       "authorization.granted",
		TargetType:   "capability",
		TargetID:     object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"role":   string(actor.Role),
		},
	})
}

// shouldAuditGrant flags the destructive capabilities whose successful use
// is itself worth an audit row, not just the resulting mutation.
func shouldAuditGrant(action string) bool {
	switch action {
	case ActionCaseReassign, ActionCaseReopen, ActionAgencyReset:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// super_admin sees everything, changes nothing.
		{"role:super_admin", ObjectCase, ActionCaseView},
		{"role:super_admin", ObjectAgency, ActionAgencyView},
		{"role:super_admin", ObjectAuditLog, ActionAuditLogView},
		{"role:super_admin", ObjectDashboard, ActionDashboardView},

		// enterprise_admin owns the full lifecycle inside its tenant.
		{"role:enterprise_admin", ObjectCase, ActionCaseView},
		{"role:enterprise_admin", ObjectCase, ActionCaseCreate},
		{"role:enterprise_admin", ObjectCase, ActionCaseUpdate},
		{"role:enterprise_admin", ObjectCase, ActionCaseReassign},
		{"role:enterprise_admin", ObjectCase, ActionCaseReopen},
		{"role:enterprise_admin", ObjectCase, ActionCaseRescore},
		{"role:enterprise_admin", ObjectCase, ActionCaseAllocate},
		{"role:enterprise_admin", ObjectCase, ActionCaseNote},
		{"role:enterprise_admin", ObjectAgency, ActionAgencyView},
		{"role:enterprise_admin", ObjectAgency, ActionAgencyCreate},
		{"role:enterprise_admin", ObjectAgency, ActionAgencyUpdate},
		{"role:enterprise_admin", ObjectAgency, ActionAgencyReset},
		{"role:enterprise_admin", ObjectAuditLog, ActionAuditLogView},
		{"role:enterprise_admin", ObjectDashboard, ActionDashboardView},
		{"role:enterprise_admin", ObjectSLA, ActionSLARun},

		// dca_user works only the cases assigned to its agency.
		{"role:dca_user", ObjectCase, ActionCaseView},
		{"role:dca_user", ObjectCase, ActionCaseUpdate},
		{"role:dca_user", ObjectCase, ActionCaseNote},
		{"role:dca_user", ObjectDashboard, ActionDashboardView},

		// system covers scheduler-driven allocation and SLA sweeps.
		{"role:system", ObjectCase, ActionCaseView},
		{"role:system", ObjectCase, ActionCaseUpdate},
		{"role:system", ObjectCase, ActionCaseAllocate},
		{"role:system", ObjectSLA, ActionSLARun},
	}

	for _, policy := range policies {
		params := make([]interface{}, 0, len(policy))
		for _, value := range policy {
			params = append(params, value)
		}
		if _, err := enforcer.AddPolicy(params...); err != nil {
			return err
		}
	}
	return nil
}
