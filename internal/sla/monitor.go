// Package sla detects cases whose resolution deadline has passed while they
// are still open, and charges the breach to the responsible agency exactly
// once. Breach detection never changes a case's status; disposition stays a
// human decision.
package sla

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	agencydomain "github.com/recovahq/recova/internal/agency/domain"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
	casedomain "github.com/recovahq/recova/internal/case/domain"
	"github.com/recovahq/recova/internal/notification"
	obsmetrics "github.com/recovahq/recova/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const scanBatchSize = 500

type Breach struct {
	CaseID   snowflake.ID `json:"case_id"`
	AgencyID snowflake.ID `json:"agency_id"`
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	CaseRepo   casedomain.Repository
	AgencyRepo agencydomain.Repository
	AuditSvc   auditdomain.Service
	Notifier   notification.Notifier
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Monitor struct {
	db         *gorm.DB
	log        *zap.Logger
	caseRepo   casedomain.Repository
	agencyRepo agencydomain.Repository
	auditSvc   auditdomain.Service
	notifier   notification.Notifier
	metrics    *obsmetrics.Metrics
}

func New(p Params) *Monitor {
	return &Monitor{
		db:         p.DB,
		log:        p.Log.Named("sla.monitor"),
		caseRepo:   p.CaseRepo,
		agencyRepo: p.AgencyRepo,
		auditSvc:   p.AuditSvc,
		notifier:   p.Notifier,
		metrics:    p.Metrics,
	}
}

// CheckBreaches scans for overdue open cases and increments the assigned
// agency's breach counter once per case. The scan result is a snapshot; the
// per-case claim re-checks terminality inside the UPDATE, so a case that
// resolves between scan and claim is skipped, and a re-run never
// double-counts.
func (m *Monitor) CheckBreaches(ctx context.Context, now time.Time) ([]Breach, error) {
	start := time.Now()
	defer func() {
		m.metrics.ObserveSLAScan(time.Since(start))
	}()

	overdue, err := m.caseRepo.ListOverdue(ctx, m.db, now, scanBatchSize)
	if err != nil {
		return nil, err
	}

	var breaches []Breach
	for _, c := range overdue {
		if c == nil {
			continue
		}

		breach, err := m.countBreach(ctx, c)
		if err != nil {
			m.log.Error("breach count failed",
				zap.String("case_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if breach == nil {
			continue
		}

		breaches = append(breaches, *breach)
		m.metrics.IncSLABreach()
		m.notifier.SLABreached(ctx, breach.CaseID, breach.AgencyID)
	}

	m.log.Info("sla scan finished",
		zap.Int("overdue", len(overdue)),
		zap.Int("new_breaches", len(breaches)),
	)
	return breaches, nil
}

func (m *Monitor) countBreach(ctx context.Context, c *casedomain.Case) (*Breach, error) {
	var breach *Breach
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := m.caseRepo.MarkBreachCounted(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		if !claimed {
			// went terminal or already counted since the scan snapshot
			return nil
		}

		if c.AssignedDCAID != 0 {
			if err := m.agencyRepo.IncrementBreach(ctx, tx, c.AssignedDCAID); err != nil {
				return err
			}
		}

		if err := m.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: c.EnterpriseID,
			Action:       auditdomain.ActionAgencyBreach,
			TargetType:   auditdomain.TargetTypeCase,
			TargetID:     c.ID.String(),
			Metadata: map[string]any{
				"agency_id":    c.AssignedDCAID.String(),
				"sla_deadline": c.SLADeadline,
				"status":       string(c.Status),
			},
		}); err != nil {
			return err
		}

		breach = &Breach{CaseID: c.ID, AgencyID: c.AssignedDCAID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return breach, nil
}

var Module = fx.Module("sla.monitor",
	fx.Provide(New),
)
