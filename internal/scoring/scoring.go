// Package scoring computes the case score, priority band, and SLA deadlines
// at ingestion time. The score is a deterministic weighted sum of the debt
// amount and the delinquency age; there is no model behind it.
package scoring

import (
	"time"

	"github.com/recovahq/recova/internal/config"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// amount carries more weight than age: a large fresh debt is worth more
// collector attention than a small stale one.
const (
	amountWeight      = 0.6
	delinquencyWeight = 0.4
)

type Result struct {
	Score              int
	Priority           Priority
	ContactDeadline    time.Time
	ResolutionDeadline time.Time
}

type Scorer struct {
	cfg config.ScoringConfig
}

func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score maps (amount, daysDelinquent) to an integer in [0,100]. It is
// monotone non-decreasing in both arguments: each input is normalized
// against its configured cap before weighting.
func (s *Scorer) Score(amount float64, daysDelinquent int) int {
	amountPart := clamp01(amount / s.cfg.AmountCap)
	agePart := clamp01(float64(daysDelinquent) / float64(s.cfg.DelinquencyCap))

	raw := (amountPart*amountWeight + agePart*delinquencyWeight) * 100
	score := int(raw + 0.5)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Band places a score into one of the four ordered priority tiers using the
// configured thresholds.
func (s *Scorer) Band(score int) Priority {
	switch {
	case score >= s.cfg.CriticalThreshold:
		return PriorityCritical
	case score >= s.cfg.HighThreshold:
		return PriorityHigh
	case score >= s.cfg.MediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Deadlines returns the contact and resolution deadlines for a priority,
// measured from createdAt. Windows shrink as priority rises.
func (s *Scorer) Deadlines(priority Priority, createdAt time.Time) (contact, resolution time.Time) {
	var contactWindow, resolutionWindow time.Duration
	switch priority {
	case PriorityCritical:
		contactWindow = s.cfg.ContactWindowCritical
		resolutionWindow = s.cfg.ResolutionWindowCritical
	case PriorityHigh:
		contactWindow = s.cfg.ContactWindowHigh
		resolutionWindow = s.cfg.ResolutionWindowHigh
	case PriorityMedium:
		contactWindow = s.cfg.ContactWindowMedium
		resolutionWindow = s.cfg.ResolutionWindowMedium
	default:
		contactWindow = s.cfg.ContactWindowLow
		resolutionWindow = s.cfg.ResolutionWindowLow
	}
	return createdAt.Add(contactWindow), createdAt.Add(resolutionWindow)
}

// Evaluate runs the full pipeline for a case at createdAt.
func (s *Scorer) Evaluate(amount float64, daysDelinquent int, createdAt time.Time) Result {
	score := s.Score(amount, daysDelinquent)
	priority := s.Band(score)
	contact, resolution := s.Deadlines(priority, createdAt)
	return Result{
		Score:              score,
		Priority:           priority,
		ContactDeadline:    contact,
		ResolutionDeadline: resolution,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
