package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/recovahq/recova/internal/actorcontext"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
	"github.com/recovahq/recova/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func New(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorType, actorID, actorRole := resolveActor(ctx)
	enterpriseID := entry.EnterpriseID
	if enterpriseID == 0 {
		if id, ok := actorcontext.EnterpriseIDFromContext(ctx); ok {
			enterpriseID = id
		}
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	event := auditdomain.Event{
		ID:           s.genID.Generate(),
		EnterpriseID: enterpriseID,
		ActorType:    actorType,
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       action,
		TargetType:   targetType,
		TargetID:     entry.TargetID,
		Metadata:     datatypes.JSONMap(payload),
		CreatedAt:    time.Now().UTC(),
	}

	db := s.db
	if tx != nil {
		db = tx
	}
	if err := s.repo.Insert(ctx, db, &event); err != nil {
		s.log.Error("audit insert failed",
			zap.String("action", action),
			zap.String("target_id", entry.TargetID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidTimeRange
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	filter := auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorID:    req.ActorID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      pageSize + 1,
	}
	if enterpriseID, ok := actorcontext.EnterpriseIDFromContext(ctx); ok {
		filter.EnterpriseID = enterpriseID
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		filter.AfterID = afterID
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *auditdomain.Event) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		items = items[:pageSize]
	}

	events := make([]auditdomain.Event, 0, len(items))
	for _, item := range items {
		if item != nil {
			events = append(events, *item)
		}
	}

	resp := auditdomain.ListResponse{Events: events, HasMore: pageInfo.HasMore}
	if pageInfo.HasMore {
		resp.NextPageToken = pageInfo.NextPageToken
	}
	return resp, nil
}

func resolveActor(ctx context.Context) (actorType, actorID, actorRole string) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return "system", "unknown", ""
	}
	if actor.Role == actorcontext.RoleSystem {
		return "system", "scheduler", string(actor.Role)
	}
	return "user", actor.ID.String(), string(actor.Role)
}
