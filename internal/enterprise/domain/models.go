package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Enterprise is the tenant boundary. Every case, agency, token and audit
// event belongs to exactly one enterprise.
type Enterprise struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Slug      string       `gorm:"not null;uniqueIndex" json:"slug"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Enterprise) TableName() string { return "enterprises" }
