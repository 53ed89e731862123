package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/recovahq/recova/internal/actorcontext"
	authdomain "github.com/recovahq/recova/internal/auth/domain"
	"github.com/recovahq/recova/internal/clock"
)

const (
	tokenPrefix      = "rcv_live_"
	tokenSecretBytes = 32
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  authdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  authdomain.Repository
}

func New(p Params) authdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("auth.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Authenticate(ctx context.Context, raw string) (actorcontext.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return actorcontext.Actor{}, authdomain.ErrUnauthorized
	}

	token, err := s.repo.FindByHash(ctx, s.db, authdomain.HashToken(raw))
	if err != nil {
		return actorcontext.Actor{}, err
	}
	now := s.clock.Now().UTC()
	if token == nil || !token.Usable(now) {
		return actorcontext.Actor{}, authdomain.ErrUnauthorized
	}

	// Best effort; a failed touch never blocks the request.
	if err := s.repo.TouchLastUsed(ctx, s.db, token.ID, now); err != nil {
		s.log.Warn("token last_used update failed", zap.Error(err))
	}

	return actorcontext.Actor{
		ID:           token.ActorID,
		Role:         actorcontext.Role(token.Role),
		EnterpriseID: token.EnterpriseID,
		AgencyID:     token.AgencyID,
	}, nil
}

func (s *Service) Issue(ctx context.Context, req authdomain.IssueRequest) (*authdomain.SecretResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, authdomain.ErrInvalidName
	}
	switch req.Role {
	case actorcontext.RoleSuperAdmin, actorcontext.RoleEnterpriseAdmin, actorcontext.RoleDCAUser:
	default:
		return nil, authdomain.ErrInvalidRole
	}
	if req.Role != actorcontext.RoleSuperAdmin && req.EnterpriseID == 0 {
		return nil, authdomain.ErrInvalidEnterprise
	}
	if req.Role == actorcontext.RoleDCAUser && req.AgencyID == 0 {
		return nil, authdomain.ErrInvalidAgency
	}

	secret := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	raw := tokenPrefix + hex.EncodeToString(secret)

	actorID := req.ActorID
	if actorID == 0 {
		actorID = s.genID.Generate()
	}
	token := authdomain.Token{
		ID:           s.genID.Generate(),
		TokenHash:    authdomain.HashToken(raw),
		Name:         name,
		ActorID:      actorID,
		Role:         string(req.Role),
		EnterpriseID: req.EnterpriseID,
		AgencyID:     req.AgencyID,
		IsActive:     true,
		CreatedAt:    s.clock.Now().UTC(),
		ExpiresAt:    req.ExpiresAt,
	}
	if err := s.repo.Insert(ctx, s.db, &token); err != nil {
		return nil, err
	}

	s.log.Info("token issued",
		zap.String("token_id", token.ID.String()),
		zap.String("role", token.Role),
	)
	return &authdomain.SecretResponse{ID: token.ID, Token: raw}, nil
}

func (s *Service) Revoke(ctx context.Context, tokenID snowflake.ID) error {
	if tokenID == 0 {
		return authdomain.ErrInvalidID
	}
	token, err := s.repo.FindByID(ctx, s.db, tokenID)
	if err != nil {
		return err
	}
	if token == nil {
		return authdomain.ErrNotFound
	}
	return s.repo.Revoke(ctx, s.db, tokenID, s.clock.Now().UTC())
}

func (s *Service) List(ctx context.Context, enterpriseID snowflake.ID) ([]authdomain.Response, error) {
	tokens, err := s.repo.List(ctx, s.db, enterpriseID)
	if err != nil {
		return nil, err
	}
	out := make([]authdomain.Response, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, authdomain.Response{
			ID:           token.ID,
			Name:         token.Name,
			ActorID:      token.ActorID,
			Role:         token.Role,
			EnterpriseID: token.EnterpriseID,
			AgencyID:     token.AgencyID,
			IsActive:     token.IsActive && token.RevokedAt == nil,
			CreatedAt:    token.CreatedAt,
			LastUsedAt:   token.LastUsedAt,
			ExpiresAt:    token.ExpiresAt,
		})
	}
	return out, nil
}
