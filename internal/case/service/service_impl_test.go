package service

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
	agencydomain "github.com/recovahq/recova/internal/agency/domain"
	agencyrepo "github.com/recovahq/recova/internal/agency/repository"
	"github.com/recovahq/recova/internal/allocation"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
	auditrepo "github.com/recovahq/recova/internal/audit/repository"
	auditservice "github.com/recovahq/recova/internal/audit/service"
	"github.com/recovahq/recova/internal/case/domain"
	caserepo "github.com/recovahq/recova/internal/case/repository"
	"github.com/recovahq/recova/internal/clock"
	"github.com/recovahq/recova/internal/config"
	"github.com/recovahq/recova/internal/notification"
	"github.com/recovahq/recova/internal/scoring"
	"github.com/recovahq/recova/pkg/db/pagination"
)

const testEnterpriseID snowflake.ID = 42

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func scoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		AmountCap:      25000,
		DelinquencyCap: 90,

		MediumThreshold:   30,
		HighThreshold:     55,
		CriticalThreshold: 80,

		ContactWindowCritical: 12 * time.Hour,
		ContactWindowHigh:     24 * time.Hour,
		ContactWindowMedium:   3 * 24 * time.Hour,
		ContactWindowLow:      5 * 24 * time.Hour,

		ResolutionWindowCritical: 3 * 24 * time.Hour,
		ResolutionWindowHigh:     7 * 24 * time.Hour,
		ResolutionWindowMedium:   15 * 24 * time.Hour,
		ResolutionWindowLow:      30 * 24 * time.Hour,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&agencydomain.Agency{},
		&domain.Case{},
		&domain.CaseNote{},
		&auditdomain.Event{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	agencyRepo := agencyrepo.Provide()
	allocator := allocation.New(allocation.Params{DB: db, Log: log, AgencyRepo: agencyRepo})
	auditSvc := auditservice.New(auditservice.Params{DB: db, Log: log, GenID: node, Repo: auditrepo.Provide()})

	svc := New(Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fakeClock,
		Repo:      caserepo.Provide(),
		Scorer:    scoring.New(scoringConfig()),
		Allocator: allocator,
		AuditSvc:  auditSvc,
		Notifier:  notification.NewLogNotifier(log),
	})

	return &fixture{svc: svc, db: db, node: node, clock: fakeClock}
}

func (f *fixture) seedAgency(t *testing.T, mutate func(*agencydomain.Agency)) *agencydomain.Agency {
	t.Helper()
	a := &agencydomain.Agency{
		ID:                 f.node.Generate(),
		EnterpriseID:       testEnterpriseID,
		Name:               "Test Agency",
		Code:               fmt.Sprintf("AG-%d", f.node.Generate()),
		PerformanceScore:   75,
		MaxConcurrentCases: 10,
		IsActive:           true,
		IsAcceptingCases:   true,
	}
	if mutate != nil {
		mutate(a)
	}
	require.NoError(t, f.db.Create(a).Error)
	return a
}

func adminCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID:           1001,
		Role:         actorcontext.RoleEnterpriseAdmin,
		EnterpriseID: testEnterpriseID,
	})
}

func dcaCtx(agencyID snowflake.ID) context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID:           2002,
		Role:         actorcontext.RoleDCAUser,
		EnterpriseID: testEnterpriseID,
		AgencyID:     agencyID,
	})
}

func (f *fixture) agencyLoad(t *testing.T, id snowflake.ID) int {
	t.Helper()
	var a agencydomain.Agency
	require.NoError(t, f.db.First(&a, "id = ?", id).Error)
	return a.CurrentActiveCases
}

func (f *fixture) auditActions(t *testing.T, targetID string) []string {
	t.Helper()
	var events []auditdomain.Event
	require.NoError(t, f.db.
		Where("target_id = ?", targetID).
		Order("created_at asc, id asc").
		Find(&events).Error)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

func TestCreate_ScoresAllocatesAndAudits(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{
		AccountID:      "ACC-100",
		DebtorName:     "Alice Carter",
		Amount:         12000,
		DaysDelinquent: 90,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusAllocated, c.Status)
	assert.Equal(t, agency.ID, c.AssignedDCAID)
	assert.Equal(t, "high", c.Priority)
	assert.Equal(t, "USD", c.Currency)
	assert.True(t, c.SLAContactDeadline.Before(c.SLADeadline))
	assert.Equal(t, 1, f.agencyLoad(t, agency.ID))

	assert.Equal(t, []string{auditdomain.ActionCaseCreate}, f.auditActions(t, c.ID.String()))
}

func TestCreate_NoAgencyLeavesCasePending(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{
		DebtorName: "Bob Dole",
		Amount:     900,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Zero(t, c.AssignedDCAID)

	var stored domain.Case
	require.NoError(t, f.db.First(&stored, "id = ?", c.ID).Error)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "", Amount: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidDebtorName)

	_, err = f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "X", Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "X", Amount: 10, DaysDelinquent: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidDelinquent)

	_, err = f.svc.Create(context.Background(), domain.CreateCaseRequest{DebtorName: "X", Amount: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidEnterprise)
}

func TestBulkCreate_RowsFailIndependently(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	rows := []domain.BulkRow{
		{Row: 2, Request: domain.CreateCaseRequest{DebtorName: "Good Row", Amount: 500}},
		{Row: 3, Request: domain.CreateCaseRequest{DebtorName: "", Amount: 500}},
		{Row: 4, Request: domain.CreateCaseRequest{DebtorName: "Another Good", Amount: 20000, DaysDelinquent: 60}},
	}

	result := f.svc.BulkCreate(adminCtx(), rows)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 3, result.Failures[0].Row)
	require.Len(t, result.Successes, 2)
	assert.NotZero(t, result.Successes[0].CaseID)
}

func TestTransition_HappyPathAndSlotRelease(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Walk Through", Amount: 5000})
	require.NoError(t, err)
	require.Equal(t, 1, f.agencyLoad(t, agency.ID))

	for _, to := range []domain.Status{
		domain.StatusInProgress, domain.StatusContacted, domain.StatusPromised,
	} {
		c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{
			CaseID:   c.ID.String(),
			ToStatus: to,
		})
		require.NoError(t, err, "to=%s", to)
		assert.Equal(t, to, c.Status)
		assert.Equal(t, 1, f.agencyLoad(t, agency.ID))
	}

	c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{
		CaseID:         c.ID.String(),
		ToStatus:       domain.StatusRecovered,
		ProofType:      "payment_receipt",
		ProofReference: "RCPT-881",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRecovered, c.Status)
	// The terminal transition frees the agency slot.
	assert.Equal(t, 0, f.agencyLoad(t, agency.ID))

	actions := f.auditActions(t, c.ID.String())
	require.Len(t, actions, 5)
	assert.Equal(t, auditdomain.ActionCaseCreate, actions[0])
	for _, action := range actions[1:] {
		assert.Equal(t, auditdomain.ActionCaseTransition, action)
	}
}

func TestTransition_ProofGate(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Proof Needed", Amount: 5000})
	require.NoError(t, err)
	for _, to := range []domain.Status{domain.StatusInProgress, domain.StatusContacted, domain.StatusPromised} {
		c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{CaseID: c.ID.String(), ToStatus: to})
		require.NoError(t, err)
	}

	_, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{
		CaseID:   c.ID.String(),
		ToStatus: domain.StatusRecovered,
	})
	assert.ErrorIs(t, err, domain.ErrProofRequired)

	_, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{
		CaseID:    c.ID.String(),
		ToStatus:  domain.StatusResolved,
		ProofType: "settlement_letter",
	})
	assert.ErrorIs(t, err, domain.ErrProofRequired)
}

func TestTransition_ProofImmutableOnceSet(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Proof Kept", Amount: 5000})
	require.NoError(t, err)
	for _, to := range []domain.Status{domain.StatusInProgress, domain.StatusContacted, domain.StatusPromised} {
		c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{CaseID: c.ID.String(), ToStatus: to})
		require.NoError(t, err)
	}
	c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{
		CaseID:         c.ID.String(),
		ToStatus:       domain.StatusRecovered,
		ProofType:      "payment_receipt",
		ProofReference: "RCPT-1",
	})
	require.NoError(t, err)

	c, err = f.svc.Reopen(adminCtx(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "payment_receipt", c.ProofType)

	_, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{
		CaseID:         c.ID.String(),
		ToStatus:       domain.StatusContacted,
		ProofType:      "payment_receipt",
		ProofReference: "RCPT-2",
	})
	assert.ErrorIs(t, err, domain.ErrProofAlreadySet)
}

func TestTransition_TerminalCaseIsFrozen(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Done Deal", Amount: 5000})
	require.NoError(t, err)
	c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{CaseID: c.ID.String(), ToStatus: domain.StatusFailed})
	require.NoError(t, err)

	_, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{CaseID: c.ID.String(), ToStatus: domain.StatusInProgress})
	assert.ErrorIs(t, err, domain.ErrTerminalCase)
}

func TestTransition_RoleGuards(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)
	other := f.seedAgency(t, func(a *agencydomain.Agency) { a.PerformanceScore = 1 })

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Guarded", Amount: 5000})
	require.NoError(t, err)
	require.Equal(t, agency.ID, c.AssignedDCAID)

	// The assigned agency's user may work the case.
	c, err = f.svc.Transition(dcaCtx(agency.ID), domain.TransitionRequest{
		CaseID:   c.ID.String(),
		ToStatus: domain.StatusInProgress,
	})
	require.NoError(t, err)

	// A different agency's user cannot even see it.
	_, err = f.svc.Transition(dcaCtx(other.ID), domain.TransitionRequest{
		CaseID:   c.ID.String(),
		ToStatus: domain.StatusContacted,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// super_admin observes, never mutates.
	superCtx := actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID: 3003, Role: actorcontext.RoleSuperAdmin,
	})
	_, err = f.svc.Transition(superCtx, domain.TransitionRequest{
		CaseID:   c.ID.String(),
		ToStatus: domain.StatusContacted,
	})
	assert.ErrorIs(t, err, domain.ErrForbiddenTransition)
}

func TestTransition_ReturnedClearsAssignmentAndFreesSlot(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Round Trip", Amount: 5000})
	require.NoError(t, err)

	c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{CaseID: c.ID.String(), ToStatus: domain.StatusReturned})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, c.Status)
	assert.Zero(t, c.AssignedDCAID)
	assert.Equal(t, 0, f.agencyLoad(t, agency.ID))
}

func TestTransition_StaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Raced", Amount: 5000})
	require.NoError(t, err)

	// A concurrent writer bumps the version behind our back.
	require.NoError(t, f.db.Model(&domain.Case{}).
		Where("id = ?", c.ID).
		Update("version", gorm.Expr("version + 1")).Error)

	stale := c
	stale.Status = domain.StatusInProgress
	err = f.db.Transaction(func(tx *gorm.DB) error {
		return caserepo.Provide().UpdateCAS(context.Background(), tx, &stale, c.Version)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestReassign_SwapsAgenciesAtomically(t *testing.T) {
	f := newFixture(t)
	first := f.seedAgency(t, func(a *agencydomain.Agency) { a.PerformanceScore = 90 })
	second := f.seedAgency(t, func(a *agencydomain.Agency) { a.PerformanceScore = 50 })

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Mover", Amount: 5000})
	require.NoError(t, err)
	require.Equal(t, first.ID, c.AssignedDCAID)

	c, err = f.svc.Reassign(adminCtx(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, second.ID, c.AssignedDCAID)
	assert.Equal(t, domain.StatusAllocated, c.Status)

	assert.Equal(t, 0, f.agencyLoad(t, first.ID))
	assert.Equal(t, 1, f.agencyLoad(t, second.ID))
}

func TestReassign_NoAlternativeAgencyLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	only := f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Stuck", Amount: 5000})
	require.NoError(t, err)

	_, err = f.svc.Reassign(adminCtx(), c.ID.String())
	assert.ErrorIs(t, err, allocation.ErrNoEligibleAgency)

	// Failed reassignment must not leak or free the original slot.
	assert.Equal(t, 1, f.agencyLoad(t, only.ID))
	var stored domain.Case
	require.NoError(t, f.db.First(&stored, "id = ?", c.ID).Error)
	assert.Equal(t, only.ID, stored.AssignedDCAID)
}

func TestReassign_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Protected", Amount: 5000})
	require.NoError(t, err)

	_, err = f.svc.Reassign(dcaCtx(agency.ID), c.ID.String())
	assert.ErrorIs(t, err, domain.ErrForbiddenTransition)
}

func TestRetryAllocation_PendingCaseGetsAgency(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Waiting", Amount: 5000})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, c.Status)

	agency := f.seedAgency(t, nil)

	c, err = f.svc.RetryAllocation(adminCtx(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAllocated, c.Status)
	assert.Equal(t, agency.ID, c.AssignedDCAID)

	_, err = f.svc.RetryAllocation(adminCtx(), c.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyAllocated)
}

func TestReopen_PrefersPreviousAgency(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Back Again", Amount: 5000})
	require.NoError(t, err)
	c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{CaseID: c.ID.String(), ToStatus: domain.StatusFailed})
	require.NoError(t, err)
	require.Equal(t, 0, f.agencyLoad(t, agency.ID))

	c, err = f.svc.Reopen(adminCtx(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, c.Status)
	assert.Equal(t, agency.ID, c.AssignedDCAID)
	assert.Equal(t, 1, f.agencyLoad(t, agency.ID))
}

func TestReopen_FallsBackToPendingWhenAgencyIsFull(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, func(a *agencydomain.Agency) { a.MaxConcurrentCases = 1 })

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Unlucky", Amount: 5000})
	require.NoError(t, err)
	c, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{CaseID: c.ID.String(), ToStatus: domain.StatusFailed})
	require.NoError(t, err)

	// Someone else takes the only slot.
	require.NoError(t, f.db.Model(&agencydomain.Agency{}).
		Where("id = ?", agency.ID).
		Update("current_active_cases", 1).Error)

	c, err = f.svc.Reopen(adminCtx(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Zero(t, c.AssignedDCAID)
}

func TestReopen_OpenCaseRejected(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Still Open", Amount: 5000})
	require.NoError(t, err)

	_, err = f.svc.Reopen(adminCtx(), c.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotTerminal)
}

func TestRescore_RefreshesDerivedFields(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Aging", Amount: 500, DaysDelinquent: 5})
	require.NoError(t, err)
	require.Equal(t, "low", c.Priority)

	// The debt aged badly.
	require.NoError(t, f.db.Model(&domain.Case{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{"amount": 15000, "days_delinquent": 60}).Error)

	c, err = f.svc.Rescore(adminCtx(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "high", c.Priority)
	assert.Contains(t, f.auditActions(t, c.ID.String()), auditdomain.ActionCaseRescore)
}

func TestAddNote_AppendsHistoryAndUpdatesRemarks(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Chatty", Amount: 5000})
	require.NoError(t, err)

	note, err := f.svc.AddNote(dcaCtx(agency.ID), domain.AddNoteRequest{
		CaseID: c.ID.String(),
		Body:   "left voicemail, retry friday",
	})
	require.NoError(t, err)
	assert.Equal(t, "dca_user", note.AuthorRole)

	_, err = f.svc.AddNote(dcaCtx(agency.ID), domain.AddNoteRequest{
		CaseID: c.ID.String(),
		Body:   "debtor agreed to installment plan",
	})
	require.NoError(t, err)

	notes, err := f.svc.ListNotes(adminCtx(), c.ID.String())
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	var stored domain.Case
	require.NoError(t, f.db.First(&stored, "id = ?", c.ID).Error)
	assert.Equal(t, notes[len(notes)-1].Body, stored.Remarks)
}

func TestAddNote_Guards(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)
	stranger := f.seedAgency(t, func(a *agencydomain.Agency) { a.PerformanceScore = 1 })

	c, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Quiet", Amount: 5000})
	require.NoError(t, err)
	require.Equal(t, agency.ID, c.AssignedDCAID)

	_, err = f.svc.AddNote(dcaCtx(agency.ID), domain.AddNoteRequest{CaseID: c.ID.String(), Body: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidNote)

	_, err = f.svc.AddNote(dcaCtx(stranger.ID), domain.AddNoteRequest{CaseID: c.ID.String(), Body: "sneaky"})
	assert.Error(t, err)
}

func TestList_ScopesByRole(t *testing.T) {
	f := newFixture(t)
	agency := f.seedAgency(t, nil)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{
			DebtorName: fmt.Sprintf("Debtor %d", i),
			Amount:     1000 * float64(i+1),
		})
		require.NoError(t, err)
	}

	resp, err := f.svc.List(adminCtx(), domain.ListCaseRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Cases, 3)

	resp, err = f.svc.List(dcaCtx(agency.ID), domain.ListCaseRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Cases, 3)

	resp, err = f.svc.List(dcaCtx(999), domain.ListCaseRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Cases)
}

func TestList_CursorPagination(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{
			DebtorName: fmt.Sprintf("Debtor %d", i),
			Amount:     100,
		})
		require.NoError(t, err)
	}

	first, err := f.svc.List(adminCtx(), domain.ListCaseRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, first.Cases, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	// The token is an encoded cursor pointing at the last row of the page.
	cursor, err := pagination.DecodeCursor(first.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, first.Cases[1].ID.String(), cursor.ID)

	_, err = f.svc.List(adminCtx(), domain.ListCaseRequest{PageSize: 2, PageToken: "not-a-cursor"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	second, err := f.svc.List(adminCtx(), domain.ListCaseRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, second.Cases, 2)
	assert.NotEqual(t, first.Cases[0].ID, second.Cases[0].ID)

	third, err := f.svc.List(adminCtx(), domain.ListCaseRequest{PageSize: 2, PageToken: second.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, third.Cases, 1)
	assert.False(t, third.HasMore)
}

func TestDashboard_KPIs(t *testing.T) {
	f := newFixture(t)
	f.seedAgency(t, nil)

	a, err := f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "One", Amount: 1000})
	require.NoError(t, err)
	_, err = f.svc.Create(adminCtx(), domain.CreateCaseRequest{DebtorName: "Two", Amount: 3000})
	require.NoError(t, err)

	for _, to := range []domain.Status{domain.StatusInProgress, domain.StatusContacted, domain.StatusPromised} {
		a, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{CaseID: a.ID.String(), ToStatus: to})
		require.NoError(t, err)
	}
	a, err = f.svc.Transition(adminCtx(), domain.TransitionRequest{
		CaseID:         a.ID.String(),
		ToStatus:       domain.StatusRecovered,
		ProofType:      "payment_receipt",
		ProofReference: "RCPT-7",
	})
	require.NoError(t, err)

	kpis, err := f.svc.Dashboard(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, int64(2), kpis.TotalCases)
	assert.Equal(t, int64(1), kpis.ByStatus[string(domain.StatusRecovered)])
	assert.InDelta(t, 4000, kpis.TotalAmount, 0.001)
	assert.InDelta(t, 1000, kpis.RecoveredAmount, 0.001)
	assert.InDelta(t, 0.25, kpis.RecoveryRate, 0.001)
}
