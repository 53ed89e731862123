package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/recovahq/recova/internal/actorcontext"
	"github.com/recovahq/recova/internal/agency/domain"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
	"github.com/recovahq/recova/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("agency.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAgencyRequest) (domain.Agency, error) {
	enterpriseID, ok := actorcontext.EnterpriseIDFromContext(ctx)
	if !ok || enterpriseID == 0 {
		return domain.Agency{}, domain.ErrInvalidEnterprise
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Agency{}, domain.ErrInvalidName
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.Agency{}, domain.ErrInvalidCode
	}
	if req.MaxConcurrentCases <= 0 {
		return domain.Agency{}, domain.ErrInvalidCapacity
	}

	now := time.Now().UTC()
	agency := domain.Agency{
		ID:                 s.genID.Generate(),
		EnterpriseID:       enterpriseID,
		Name:               name,
		Code:               code,
		ContactPerson:      strings.TrimSpace(req.ContactPerson),
		Email:              strings.TrimSpace(req.Email),
		PerformanceScore:   req.PerformanceScore,
		MaxConcurrentCases: req.MaxConcurrentCases,
		Specializations:    datatypes.NewJSONSlice(req.Specializations),
		IsActive:           true,
		IsAcceptingCases:   true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &agency); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateCode
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: enterpriseID,
			Action:       auditdomain.ActionAgencyCreate,
			TargetType:   auditdomain.TargetTypeAgency,
			TargetID:     agency.ID.String(),
			Metadata: map[string]any{
				"name": agency.Name,
				"code": agency.Code,
			},
		})
	})
	if err != nil {
		return domain.Agency{}, err
	}

	return agency, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateAgencyRequest) (domain.Agency, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return domain.Agency{}, domain.ErrInvalidID
	}

	agency, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Agency{}, err
	}
	if agency == nil {
		return domain.Agency{}, domain.ErrNotFound
	}

	changes := map[string]any{}
	if req.ContactPerson != nil {
		agency.ContactPerson = strings.TrimSpace(*req.ContactPerson)
		changes["contact_person"] = agency.ContactPerson
	}
	if req.Email != nil {
		agency.Email = strings.TrimSpace(*req.Email)
		changes["email"] = agency.Email
	}
	if req.PerformanceScore != nil {
		agency.PerformanceScore = *req.PerformanceScore
		changes["performance_score"] = agency.PerformanceScore
	}
	if req.RecoveryRate != nil {
		agency.RecoveryRate = *req.RecoveryRate
		changes["recovery_rate"] = agency.RecoveryRate
	}
	if req.MaxConcurrentCases != nil {
		if *req.MaxConcurrentCases <= 0 {
			return domain.Agency{}, domain.ErrInvalidCapacity
		}
		agency.MaxConcurrentCases = *req.MaxConcurrentCases
		changes["max_concurrent_cases"] = agency.MaxConcurrentCases
	}
	if req.Specializations != nil {
		agency.Specializations = datatypes.NewJSONSlice(req.Specializations)
		changes["specializations"] = req.Specializations
	}
	if req.IsActive != nil {
		agency.IsActive = *req.IsActive
		changes["is_active"] = agency.IsActive
	}
	if req.IsAcceptingCases != nil {
		agency.IsAcceptingCases = *req.IsAcceptingCases
		changes["is_accepting_cases"] = agency.IsAcceptingCases
	}
	if len(changes) == 0 {
		return *agency, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, agency); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: agency.EnterpriseID,
			Action:       auditdomain.ActionAgencyUpdate,
			TargetType:   auditdomain.TargetTypeAgency,
			TargetID:     agency.ID.String(),
			Metadata:     changes,
		})
	})
	if err != nil {
		return domain.Agency{}, err
	}

	return *agency, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Agency, error) {
	agency, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Agency{}, err
	}
	if agency == nil {
		return domain.Agency{}, domain.ErrNotFound
	}
	return *agency, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAgencyRequest) ([]domain.Agency, error) {
	filter := domain.ListFilter{
		ActiveOnly:    req.ActiveOnly,
		AcceptingOnly: req.AcceptingOnly,
	}
	if enterpriseID, ok := actorcontext.EnterpriseIDFromContext(ctx); ok {
		filter.EnterpriseID = enterpriseID
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	agencies := make([]domain.Agency, 0, len(items))
	for _, item := range items {
		if item != nil {
			agencies = append(agencies, *item)
		}
	}
	return agencies, nil
}

func (s *Service) ResetBreaches(ctx context.Context, id snowflake.ID) (domain.Agency, error) {
	agency, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Agency{}, err
	}
	if agency == nil {
		return domain.Agency{}, domain.ErrNotFound
	}

	previous := agency.SLABreachCount
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ResetBreaches(ctx, tx, id); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: agency.EnterpriseID,
			Action:       auditdomain.ActionAgencyBreachRst,
			TargetType:   auditdomain.TargetTypeAgency,
			TargetID:     agency.ID.String(),
			Metadata: map[string]any{
				"previous_breach_count": previous,
			},
		})
	})
	if err != nil {
		return domain.Agency{}, err
	}

	agency.SLABreachCount = 0
	return *agency, nil
}
