package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Agency is a debt-collection agency (DCA) that works cases on behalf of an
// enterprise. Load and breach counters are mutated by the allocation engine
// and the SLA monitor; performance_score is an external input recomputed
// periodically outside this engine.
type Agency struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	EnterpriseID snowflake.ID `gorm:"not null;index" json:"enterprise_id"`
	Name         string       `gorm:"not null" json:"name"`
	Code         string       `gorm:"not null;uniqueIndex" json:"code"`

	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty"`

	PerformanceScore float64 `gorm:"not null;default:0" json:"performance_score"`
	RecoveryRate     float64 `gorm:"not null;default:0" json:"recovery_rate"`
	SLABreachCount   int     `gorm:"column:sla_breach_count;not null;default:0" json:"sla_breach_count"`

	MaxConcurrentCases int `gorm:"not null;default:50" json:"max_concurrent_cases"`
	CurrentActiveCases int `gorm:"not null;default:0" json:"current_active_cases"`

	Specializations datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"specializations,omitempty"`

	IsActive         bool `gorm:"not null;default:true" json:"is_active"`
	IsAcceptingCases bool `gorm:"not null;default:true" json:"is_accepting_cases"`

	Version   int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Agency) TableName() string {
	return "agencies"
}

// Eligible reports whether the agency can accept one more case right now.
func (a *Agency) Eligible() bool {
	return a.IsActive && a.IsAcceptingCases && a.CurrentActiveCases < a.MaxConcurrentCases
}

// Utilization is the load ratio used as a ranking tie-breaker. A zero-cap
// agency counts as fully loaded.
func (a *Agency) Utilization() float64 {
	if a.MaxConcurrentCases <= 0 {
		return 1
	}
	return float64(a.CurrentActiveCases) / float64(a.MaxConcurrentCases)
}

// HasSpecialization reports whether the agency declares the given debt type.
func (a *Agency) HasSpecialization(debtType string) bool {
	for _, s := range a.Specializations {
		if s == debtType {
			return true
		}
	}
	return false
}
