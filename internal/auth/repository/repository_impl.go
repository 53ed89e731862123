package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/recovahq/recova/internal/auth/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, token *domain.Token) error {
	return db.WithContext(ctx).Create(token).Error
}

func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, hash string) (*domain.Token, error) {
	var token domain.Token
	err := db.WithContext(ctx).
		Where("token_hash = ?", hash).
		Take(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Token, error) {
	var token domain.Token
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID) ([]domain.Token, error) {
	var tokens []domain.Token
	stmt := db.WithContext(ctx).Model(&domain.Token{})
	if enterpriseID != 0 {
		stmt = stmt.Where("enterprise_id = ?", enterpriseID)
	}
	if err := stmt.Order("id asc").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE access_tokens
		 SET is_active = ?, revoked_at = ?
		 WHERE id = ? AND revoked_at IS NULL`,
		false, at, id,
	).Error
}

func (r *repo) TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE access_tokens SET last_used_at = ? WHERE id = ?`,
		at, id,
	).Error
}
