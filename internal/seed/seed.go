package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/recovahq/recova/internal/actorcontext"
	authdomain "github.com/recovahq/recova/internal/auth/domain"
	enterprisedomain "github.com/recovahq/recova/internal/enterprise/domain"
)

const (
	defaultEnterpriseName = "Main"
	defaultEnterpriseSlug = "main"

	bootstrapTokenName = "bootstrap admin"
)

// EnsureDefaultEnterprise seeds the default tenant for startup bootstrap,
// so a fresh self-hosted install can create cases without any setup calls.
func EnsureDefaultEnterprise(db *gorm.DB) error {
	return ensureEnterprise(db, 0)
}

// EnsureDefaultEnterpriseWithID pins the seeded tenant to a fixed id, which
// keeps token and case fixtures stable across environments.
func EnsureDefaultEnterpriseWithID(db *gorm.DB, id int64) error {
	return ensureEnterprise(db, snowflake.ID(id))
}

func ensureEnterprise(db *gorm.DB, id snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing enterprisedomain.Enterprise
		err := tx.WithContext(ctx).
			Where("slug = ?", defaultEnterpriseSlug).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if id == 0 {
			id = node.Generate()
		}
		now := time.Now().UTC()
		enterprise := enterprisedomain.Enterprise{
			ID:        id,
			Name:      defaultEnterpriseName,
			Slug:      defaultEnterpriseSlug,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&enterprise).Error
	})
}

// EnsureBootstrapToken mints the first enterprise_admin bearer token from an
// operator-provided secret, so a fresh install can reach the token endpoints
// at all. No-op when the secret is empty or any token already exists; only
// the digest of the secret is stored.
func EnsureBootstrapToken(db *gorm.DB, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&authdomain.Token{}).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		var enterprise enterprisedomain.Enterprise
		if err := tx.WithContext(ctx).
			Where("slug = ?", defaultEnterpriseSlug).
			First(&enterprise).Error; err != nil {
			return err
		}

		token := authdomain.Token{
			ID:           node.Generate(),
			TokenHash:    authdomain.HashToken(secret),
			Name:         bootstrapTokenName,
			ActorID:      node.Generate(),
			Role:         string(actorcontext.RoleEnterpriseAdmin),
			EnterpriseID: enterprise.ID,
			IsActive:     true,
			CreatedAt:    time.Now().UTC(),
		}
		return tx.WithContext(ctx).Create(&token).Error
	})
}
