// Package allocation selects which collection agency works a case. The
// ranking is deterministic: performance first, then breach history, then
// remaining headroom, with agency id as the final tie-break. Capacity is
// reserved with an atomic claim so concurrent allocations can never
// oversubscribe an agency.
package allocation

import (
	"context"
	"errors"
	"sort"

	"github.com/bwmarrin/snowflake"
	agencydomain "github.com/recovahq/recova/internal/agency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoEligibleAgency means the filtered candidate pool was empty or every
// candidate lost its last slot to a concurrent claim. The case stays in
// pending and allocation is retried later; it is never dropped.
var ErrNoEligibleAgency = errors.New("no_eligible_agency")

type Request struct {
	EnterpriseID snowflake.ID
	DebtType     string
	// Exclude removes the case's current agency from the pool on
	// reassignment.
	Exclude snowflake.ID
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	AgencyRepo agencydomain.Repository
}

type Engine struct {
	db         *gorm.DB
	log        *zap.Logger
	agencyRepo agencydomain.Repository
}

func New(p Params) *Engine {
	return &Engine{
		db:         p.DB,
		log:        p.Log.Named("allocation.engine"),
		agencyRepo: p.AgencyRepo,
	}
}

// Allocate picks the best eligible agency and reserves one capacity slot on
// it. When tx is non-nil the claim joins the caller's transaction. Ranked
// candidates are claimed in order: if a concurrent request takes a
// candidate's last slot, the next one is tried.
func (e *Engine) Allocate(ctx context.Context, tx *gorm.DB, req Request) (*agencydomain.Agency, error) {
	db := e.db
	if tx != nil {
		db = tx
	}

	pool, err := e.agencyRepo.List(ctx, db, agencydomain.ListFilter{
		EnterpriseID:  req.EnterpriseID,
		ActiveOnly:    true,
		AcceptingOnly: true,
	})
	if err != nil {
		return nil, err
	}

	candidates := Rank(pool, req.DebtType, req.Exclude)
	if len(candidates) == 0 {
		return nil, ErrNoEligibleAgency
	}

	for _, candidate := range candidates {
		claimed, err := e.agencyRepo.ClaimSlot(ctx, db, candidate.ID)
		if err != nil {
			return nil, err
		}
		if claimed {
			candidate.CurrentActiveCases++
			e.log.Debug("capacity claimed",
				zap.String("agency_id", candidate.ID.String()),
				zap.Int("active_cases", candidate.CurrentActiveCases),
			)
			return candidate, nil
		}
	}

	return nil, ErrNoEligibleAgency
}

// Reclaim reserves a slot on one specific agency, used when a reopened case
// goes back to its previous assignee. Returns false when that agency cannot
// take the case anymore.
func (e *Engine) Reclaim(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID) (bool, error) {
	if agencyID == 0 {
		return false, nil
	}
	db := e.db
	if tx != nil {
		db = tx
	}
	return e.agencyRepo.ClaimSlot(ctx, db, agencyID)
}

// Release returns one capacity slot, used when a case leaves an active
// status or when the old agency is swapped out on reassignment.
func (e *Engine) Release(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID) error {
	if agencyID == 0 {
		return nil
	}
	db := e.db
	if tx != nil {
		db = tx
	}
	return e.agencyRepo.ReleaseSlot(ctx, db, agencyID)
}

// Rank filters the pool down to eligible candidates and orders them.
// Specialization on the case's debt type is a soft preference: when any
// eligible candidate declares it, the pool narrows to those; otherwise the
// full eligible set stays in play.
func Rank(pool []*agencydomain.Agency, debtType string, exclude snowflake.ID) []*agencydomain.Agency {
	eligible := make([]*agencydomain.Agency, 0, len(pool))
	for _, a := range pool {
		if a == nil || a.ID == exclude || !a.Eligible() {
			continue
		}
		eligible = append(eligible, a)
	}

	if debtType != "" {
		specialized := make([]*agencydomain.Agency, 0, len(eligible))
		for _, a := range eligible {
			if a.HasSpecialization(debtType) {
				specialized = append(specialized, a)
			}
		}
		if len(specialized) > 0 {
			eligible = specialized
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.PerformanceScore != b.PerformanceScore {
			return a.PerformanceScore > b.PerformanceScore
		}
		if a.SLABreachCount != b.SLABreachCount {
			return a.SLABreachCount < b.SLABreachCount
		}
		if a.Utilization() != b.Utilization() {
			return a.Utilization() < b.Utilization()
		}
		return a.ID < b.ID
	})

	return eligible
}

var Module = fx.Module("allocation.engine",
	fx.Provide(New),
)
