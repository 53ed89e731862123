package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, token *Token) error
	FindByHash(ctx context.Context, db *gorm.DB, hash string) (*Token, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Token, error)
	List(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID) ([]Token, error)
	Revoke(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
