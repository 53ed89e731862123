package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/recovahq/recova/internal/actorcontext"
	"github.com/recovahq/recova/internal/allocation"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
	"github.com/recovahq/recova/internal/case/domain"
	"github.com/recovahq/recova/internal/clock"
	"github.com/recovahq/recova/internal/notification"
	obsmetrics "github.com/recovahq/recova/internal/observability/metrics"
	"github.com/recovahq/recova/internal/scoring"
	"github.com/recovahq/recova/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Scorer    *scoring.Scorer
	Allocator *allocation.Engine
	AuditSvc  auditdomain.Service
	Notifier  notification.Notifier
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	scorer    *scoring.Scorer
	allocator *allocation.Engine
	auditSvc  auditdomain.Service
	notifier  notification.Notifier
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("case.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		scorer:    p.Scorer,
		allocator: p.Allocator,
		auditSvc:  p.AuditSvc,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCaseRequest) (domain.Case, error) {
	enterpriseID, ok := actorcontext.EnterpriseIDFromContext(ctx)
	if !ok || enterpriseID == 0 {
		return domain.Case{}, domain.ErrInvalidEnterprise
	}

	debtorName := strings.TrimSpace(req.DebtorName)
	if debtorName == "" {
		return domain.Case{}, domain.ErrInvalidDebtorName
	}
	if req.Amount <= 0 {
		return domain.Case{}, domain.ErrInvalidAmount
	}
	if req.DaysDelinquent < 0 {
		return domain.Case{}, domain.ErrInvalidDelinquent
	}

	now := s.clock.Now()
	result := s.scorer.Evaluate(req.Amount, req.DaysDelinquent, now)

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	c := domain.Case{
		ID:                 s.genID.Generate(),
		EnterpriseID:       enterpriseID,
		AccountID:          strings.TrimSpace(req.AccountID),
		DebtorName:         debtorName,
		DebtorEmail:        strings.TrimSpace(req.DebtorEmail),
		DebtorPhone:        strings.TrimSpace(req.DebtorPhone),
		Amount:             req.Amount,
		Currency:           currency,
		DebtType:           strings.ToLower(strings.TrimSpace(req.DebtType)),
		DaysDelinquent:     req.DaysDelinquent,
		AIScore:            result.Score,
		Priority:           string(result.Priority),
		SLAContactDeadline: result.ContactDeadline,
		SLADeadline:        result.ResolutionDeadline,
		Status:             domain.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agency, allocErr := s.allocator.Allocate(ctx, tx, allocation.Request{
			EnterpriseID: enterpriseID,
			DebtType:     c.DebtType,
		})
		switch {
		case allocErr == nil:
			c.Status = domain.StatusAllocated
			c.AssignedDCAID = agency.ID
		case errors.Is(allocErr, allocation.ErrNoEligibleAgency):
			// The case is persisted unallocated and retried later; the
			// caller sees the pending status, not a dropped row.
			s.metrics.IncAllocationFailure()
		default:
			return allocErr
		}

		if err := s.repo.Insert(ctx, tx, &c); err != nil {
			return err
		}

		metadata := map[string]any{
			"status":   string(c.Status),
			"ai_score": c.AIScore,
			"priority": c.Priority,
			"amount":   c.Amount,
		}
		if c.AssignedDCAID != 0 {
			metadata["assigned_dca_id"] = c.AssignedDCAID.String()
		} else {
			metadata["allocation_error"] = allocation.ErrNoEligibleAgency.Error()
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: enterpriseID,
			Action:       auditdomain.ActionCaseCreate,
			TargetType:   auditdomain.TargetTypeCase,
			TargetID:     c.ID.String(),
			Metadata:     metadata,
		})
	})
	if err != nil {
		return domain.Case{}, err
	}

	if c.AssignedDCAID != 0 {
		s.metrics.IncAllocation(c.AssignedDCAID.String())
		s.notifier.CaseAllocated(ctx, c.ID, c.AssignedDCAID)
	}

	return c, nil
}

// BulkCreate processes rows independently: one bad row never aborts the
// batch, and each committed row obeys the same atomicity rules as a single
// create.
func (s *Service) BulkCreate(ctx context.Context, rows []domain.BulkRow) domain.BulkResult {
	result := domain.BulkResult{
		TotalRows: len(rows),
		Successes: []domain.BulkRowSuccess{},
		Failures:  []domain.BulkRowFailure{},
	}

	for _, row := range rows {
		c, err := s.Create(ctx, row.Request)
		if err != nil {
			result.Failures = append(result.Failures, domain.BulkRowFailure{
				Row:     row.Row,
				Message: err.Error(),
				Raw:     row.Raw,
			})
			continue
		}
		result.Successes = append(result.Successes, domain.BulkRowSuccess{
			Row:      row.Row,
			CaseID:   c.ID,
			AIScore:  c.AIScore,
			Priority: c.Priority,
			AgencyID: c.AssignedDCAID,
			Pending:  c.Status == domain.StatusPending,
		})
	}

	result.Succeeded = len(result.Successes)
	result.Failed = len(result.Failures)
	return result
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Case, error) {
	caseID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Case{}, domain.ErrInvalidID
	}

	c, err := s.repo.FindByID(ctx, s.db, caseID)
	if err != nil {
		return domain.Case{}, err
	}
	if c == nil {
		return domain.Case{}, domain.ErrNotFound
	}
	if err := s.checkReadScope(ctx, c); err != nil {
		return domain.Case{}, err
	}
	return *c, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCaseRequest) (domain.ListCaseResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	filter := domain.ListFilter{
		Status:   domain.Status(strings.TrimSpace(req.Status)),
		Priority: strings.TrimSpace(req.Priority),
		Limit:    pageSize + 1,
	}

	actor, _ := actorcontext.FromContext(ctx)
	switch actor.Role {
	case actorcontext.RoleSuperAdmin:
		// governance view: unscoped
	case actorcontext.RoleDCAUser:
		filter.AgencyID = actor.AgencyID
	default:
		filter.EnterpriseID = actor.EnterpriseID
	}

	if agencyID := strings.TrimSpace(req.AgencyID); agencyID != "" && filter.AgencyID == 0 {
		parsed, err := snowflake.ParseString(agencyID)
		if err != nil {
			return domain.ListCaseResponse{}, domain.ErrInvalidID
		}
		filter.AgencyID = parsed
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListCaseResponse{}, domain.ErrInvalidID
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListCaseResponse{}, domain.ErrInvalidID
		}
		filter.AfterID = afterID
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListCaseResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Case) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		items = items[:pageSize]
	}

	cases := make([]domain.Case, 0, len(items))
	for _, item := range items {
		if item != nil {
			cases = append(cases, *item)
		}
	}

	resp := domain.ListCaseResponse{Cases: cases, HasMore: pageInfo.HasMore}
	if pageInfo.HasMore {
		resp.NextPageToken = pageInfo.NextPageToken
	}
	return resp, nil
}

func (s *Service) Dashboard(ctx context.Context) (domain.KPIs, error) {
	actor, _ := actorcontext.FromContext(ctx)
	var scope snowflake.ID
	if actor.Role != actorcontext.RoleSuperAdmin {
		scope = actor.EnterpriseID
	}
	return s.repo.Stats(ctx, s.db, scope)
}

func (s *Service) checkReadScope(ctx context.Context, c *domain.Case) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.ErrNotFound
	}
	switch actor.Role {
	case actorcontext.RoleSuperAdmin, actorcontext.RoleSystem:
		return nil
	case actorcontext.RoleDCAUser:
		if c.AssignedDCAID != actor.AgencyID {
			return domain.ErrNotFound
		}
		return nil
	default:
		if c.EnterpriseID != actor.EnterpriseID {
			return domain.ErrNotFound
		}
		return nil
	}
}
