package seed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/recovahq/recova/internal/actorcontext"
	authdomain "github.com/recovahq/recova/internal/auth/domain"
	authrepo "github.com/recovahq/recova/internal/auth/repository"
	authservice "github.com/recovahq/recova/internal/auth/service"
	"github.com/recovahq/recova/internal/clock"
	enterprisedomain "github.com/recovahq/recova/internal/enterprise/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&enterprisedomain.Enterprise{}, &authdomain.Token{}))
	return db
}

func TestEnsureBootstrapToken_MintsFirstAdminToken(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, EnsureDefaultEnterpriseWithID(db, 42))

	secret := "rcv_live_bootstrap_secret"
	require.NoError(t, EnsureBootstrapToken(db, secret))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := authservice.New(authservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  authrepo.Provide(),
	})

	actor, err := svc.Authenticate(context.Background(), secret)
	require.NoError(t, err)
	assert.Equal(t, actorcontext.RoleEnterpriseAdmin, actor.Role)
	assert.Equal(t, snowflake.ID(42), actor.EnterpriseID)

	// Only the digest is persisted.
	var stored authdomain.Token
	require.NoError(t, db.Take(&stored).Error)
	assert.Equal(t, authdomain.HashToken(secret), stored.TokenHash)
	assert.NotEqual(t, secret, stored.TokenHash)
}

func TestEnsureBootstrapToken_EmptySecretIsNoop(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, EnsureDefaultEnterprise(db))

	require.NoError(t, EnsureBootstrapToken(db, "  "))

	var count int64
	require.NoError(t, db.Model(&authdomain.Token{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEnsureBootstrapToken_SkipsWhenTokensExist(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, EnsureDefaultEnterpriseWithID(db, 42))

	require.NoError(t, EnsureBootstrapToken(db, "first-secret"))
	require.NoError(t, EnsureBootstrapToken(db, "second-secret"))

	var tokens []authdomain.Token
	require.NoError(t, db.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, authdomain.HashToken("first-secret"), tokens[0].TokenHash)
}
