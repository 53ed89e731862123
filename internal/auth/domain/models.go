package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Token stores a hashed bearer credential bound to one actor identity.
// The raw secret is shown once at issue time and never persisted.
type Token struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	TokenHash    string       `gorm:"column:token_hash;type:text;not null;uniqueIndex:ux_access_tokens_hash"`
	Name         string       `gorm:"type:text;not null"`
	ActorID      snowflake.ID `gorm:"column:actor_id;not null;index"`
	Role         string       `gorm:"type:text;not null"`
	EnterpriseID snowflake.ID `gorm:"column:enterprise_id;index"`
	AgencyID     snowflake.ID `gorm:"column:agency_id"`
	IsActive     bool         `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	LastUsedAt   *time.Time   `gorm:"column:last_used_at"`
	ExpiresAt    *time.Time   `gorm:"column:expires_at"`
	RevokedAt    *time.Time   `gorm:"column:revoked_at"`
}

func (Token) TableName() string { return "access_tokens" }

// Usable reports whether the token can authenticate a request right now.
func (t *Token) Usable(now time.Time) bool {
	if !t.IsActive || t.RevokedAt != nil {
		return false
	}
	if t.ExpiresAt != nil && !now.Before(*t.ExpiresAt) {
		return false
	}
	return true
}
