// Package scheduler drives the periodic background work: the hourly SLA
// breach scan and the escalation sweep for cases stuck long past their
// deadline. Jobs run with a timeout, a named logger, and, when Redis is
// configured, a distributed lock so a single replica owns each run.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/recovahq/recova/internal/actorcontext"
	casedomain "github.com/recovahq/recova/internal/case/domain"
	"github.com/recovahq/recova/internal/clock"
	"github.com/recovahq/recova/internal/config"
	"github.com/recovahq/recova/internal/distlock"
	"github.com/recovahq/recova/internal/notification"
	"github.com/recovahq/recova/internal/sla"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	slaScanLockKey     = "recova:scheduler:sla_scan"
	escalationBatch    = 200
	escalationInterval = 24 * time.Hour
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	Monitor  *sla.Monitor
	CaseRepo casedomain.Repository
	CaseSvc  casedomain.Service
	Notifier notification.Notifier
	Locker   *distlock.Locker `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.SchedulerConfig
	clock    clock.Clock
	monitor  *sla.Monitor
	caseRepo casedomain.Repository
	caseSvc  casedomain.Service
	notifier notification.Notifier
	locker   *distlock.Locker

	stop chan struct{}
	done chan struct{}
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler"),
		cfg:      p.Cfg.Scheduler,
		clock:    p.Clock,
		monitor:  p.Monitor,
		caseRepo: p.CaseRepo,
		caseSvc:  p.CaseSvc,
		notifier: p.Notifier,
		locker:   p.Locker,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.loop()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)

	scanTicker := time.NewTicker(s.cfg.SLAScanInterval)
	defer scanTicker.Stop()
	escalateTicker := time.NewTicker(escalationInterval)
	defer escalateTicker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-scanTicker.C:
			s.runJob("sla_scan", s.cfg.SLAScanTimeout, s.runSLAScan)
		case <-escalateTicker.C:
			if s.cfg.EscalationEnable {
				s.runJob("escalation", s.cfg.SLAScanTimeout, s.runEscalation)
			}
		}
	}
}

func (s *Scheduler) runJob(name string, timeout time.Duration, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = actorcontext.WithActor(ctx, actorcontext.System())

	log := s.log.With(zap.String("job", name))

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, slaScanLockKey+":"+name, timeout)
		if err != nil {
			log.Warn("job lock unavailable, running unguarded", zap.Error(err))
		} else if !ok {
			log.Debug("job held by another instance, skipping")
			return
		} else {
			defer func() {
				if err := s.locker.Release(context.Background(), slaScanLockKey+":"+name, token); err != nil {
					log.Warn("job lock release failed", zap.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	err := fn(ctx)
	switch {
	case err == nil:
		log.Info("job finished", zap.Duration("took", time.Since(start)))
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("job timed out", zap.Duration("timeout", timeout))
	default:
		log.Error("job failed", zap.Error(err))
	}
}

func (s *Scheduler) runSLAScan(ctx context.Context) error {
	_, err := s.monitor.CheckBreaches(ctx, s.clock.Now())
	return err
}

// runEscalation pushes cases overdue beyond the escalation window into the
// escalated status through the state machine, as the system actor. Cases the
// machine refuses (racing transitions, undefined moves) are skipped, not
// forced.
func (s *Scheduler) runEscalation(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.EscalationAfter)
	cases, err := s.caseRepo.ListEscalatable(ctx, s.db, cutoff, escalationBatch)
	if err != nil {
		return err
	}

	for _, c := range cases {
		if c == nil {
			continue
		}
		_, err := s.caseSvc.Transition(ctx, casedomain.TransitionRequest{
			CaseID:   c.ID.String(),
			ToStatus: casedomain.StatusEscalated,
			Remarks:  "auto-escalated: overdue beyond escalation window",
		})
		if err != nil {
			s.log.Debug("escalation skipped",
				zap.String("case_id", c.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func registerHooks(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			s.Stop()
			return nil
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
