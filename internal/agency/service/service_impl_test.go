package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/recovahq/recova/internal/actorcontext"
	"github.com/recovahq/recova/internal/agency/domain"
	agencyrepo "github.com/recovahq/recova/internal/agency/repository"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
	auditrepo "github.com/recovahq/recova/internal/audit/repository"
	auditservice "github.com/recovahq/recova/internal/audit/service"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Agency{}, &auditdomain.Event{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	svc := New(Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  agencyrepo.Provide(),
		AuditSvc: auditservice.New(auditservice.Params{
			DB: db, Log: log, GenID: node, Repo: auditrepo.Provide(),
		}),
	})
	return svc, db
}

func adminCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID:           100,
		Role:         actorcontext.RoleEnterpriseAdmin,
		EnterpriseID: 7,
	})
}

func TestCreate_NormalizesAndAudits(t *testing.T) {
	svc, db := newTestService(t)

	agency, err := svc.Create(adminCtx(), domain.CreateAgencyRequest{
		Name:               "  Apex Recovery  ",
		Code:               "apex-01",
		PerformanceScore:   82,
		MaxConcurrentCases: 25,
		Specializations:    []string{"credit_card", "auto_loan"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Apex Recovery", agency.Name)
	assert.Equal(t, "APEX-01", agency.Code)
	assert.True(t, agency.IsActive)
	assert.True(t, agency.IsAcceptingCases)
	assert.Zero(t, agency.CurrentActiveCases)

	var count int64
	require.NoError(t, db.Model(&auditdomain.Event{}).
		Where("action = ?", auditdomain.ActionAgencyCreate).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(adminCtx(), domain.CreateAgencyRequest{Code: "X", MaxConcurrentCases: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(adminCtx(), domain.CreateAgencyRequest{Name: "X", MaxConcurrentCases: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = svc.Create(adminCtx(), domain.CreateAgencyRequest{Name: "X", Code: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)

	_, err = svc.Create(context.Background(), domain.CreateAgencyRequest{Name: "X", Code: "X", MaxConcurrentCases: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidEnterprise)
}

func TestCreate_DuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)

	req := domain.CreateAgencyRequest{Name: "First", Code: "DUP-1", MaxConcurrentCases: 5}
	_, err := svc.Create(adminCtx(), req)
	require.NoError(t, err)

	req.Name = "Second"
	_, err = svc.Create(adminCtx(), req)
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestUpdate_PartialFields(t *testing.T) {
	svc, _ := newTestService(t)

	agency, err := svc.Create(adminCtx(), domain.CreateAgencyRequest{
		Name: "Updatable", Code: "UP-1", PerformanceScore: 50, MaxConcurrentCases: 10,
	})
	require.NoError(t, err)

	score := 91.5
	accepting := false
	updated, err := svc.Update(adminCtx(), domain.UpdateAgencyRequest{
		ID:               agency.ID.String(),
		PerformanceScore: &score,
		IsAcceptingCases: &accepting,
	})
	require.NoError(t, err)
	assert.Equal(t, 91.5, updated.PerformanceScore)
	assert.False(t, updated.IsAcceptingCases)
	// untouched fields survive
	assert.Equal(t, "Updatable", updated.Name)
	assert.Equal(t, 10, updated.MaxConcurrentCases)

	badCapacity := 0
	_, err = svc.Update(adminCtx(), domain.UpdateAgencyRequest{
		ID:                 agency.ID.String(),
		MaxConcurrentCases: &badCapacity,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)

	_, err = svc.Update(adminCtx(), domain.UpdateAgencyRequest{ID: "garbage"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestUpdate_PersistsZeroValues(t *testing.T) {
	svc, db := newTestService(t)

	agency, err := svc.Create(adminCtx(), domain.CreateAgencyRequest{
		Name: "Winding Down", Code: "WD-1", PerformanceScore: 60, MaxConcurrentCases: 10,
	})
	require.NoError(t, err)

	off := false
	zeroScore := 0.0
	empty := ""
	_, err = svc.Update(adminCtx(), domain.UpdateAgencyRequest{
		ID:               agency.ID.String(),
		IsActive:         &off,
		IsAcceptingCases: &off,
		PerformanceScore: &zeroScore,
		ContactPerson:    &empty,
	})
	require.NoError(t, err)

	// The row itself must carry the false flags, not just the response.
	var stored domain.Agency
	require.NoError(t, db.Where("id = ?", agency.ID).Take(&stored).Error)
	assert.False(t, stored.IsActive)
	assert.False(t, stored.IsAcceptingCases)
	assert.Zero(t, stored.PerformanceScore)
	assert.Empty(t, stored.ContactPerson)
}

func TestList_FiltersInactive(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(adminCtx(), domain.CreateAgencyRequest{Name: "Live", Code: "L-1", MaxConcurrentCases: 5})
	require.NoError(t, err)
	paused, err := svc.Create(adminCtx(), domain.CreateAgencyRequest{Name: "Paused", Code: "P-1", MaxConcurrentCases: 5})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(adminCtx(), domain.UpdateAgencyRequest{ID: paused.ID.String(), IsActive: &inactive})
	require.NoError(t, err)

	all, err := svc.List(adminCtx(), domain.ListAgencyRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(adminCtx(), domain.ListAgencyRequest{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Live", active[0].Name)
}

func TestResetBreaches(t *testing.T) {
	svc, db := newTestService(t)

	agency, err := svc.Create(adminCtx(), domain.CreateAgencyRequest{
		Name: "Breacher", Code: "B-1", MaxConcurrentCases: 5,
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.Agency{}).
		Where("id = ?", agency.ID).
		Update("sla_breach_count", 4).Error)

	reset, err := svc.ResetBreaches(adminCtx(), agency.ID)
	require.NoError(t, err)
	assert.Zero(t, reset.SLABreachCount)

	var stored domain.Agency
	require.NoError(t, db.First(&stored, "id = ?", agency.ID).Error)
	assert.Zero(t, stored.SLABreachCount)

	var count int64
	require.NoError(t, db.Model(&auditdomain.Event{}).
		Where("action = ?", auditdomain.ActionAgencyBreachRst).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.ResetBreaches(adminCtx(), 999999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
