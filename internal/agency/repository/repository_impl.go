package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/recovahq/recova/internal/agency/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, agency *domain.Agency) error {
	return db.WithContext(ctx).Create(agency).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Agency, error) {
	var agency domain.Agency
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&agency).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &agency, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Agency, error) {
	var agencies []*domain.Agency
	stmt := db.WithContext(ctx).Model(&domain.Agency{})
	if filter.EnterpriseID != 0 {
		stmt = stmt.Where("enterprise_id = ?", filter.EnterpriseID)
	}
	if filter.ActiveOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	if filter.AcceptingOnly {
		stmt = stmt.Where("is_accepting_cases = ?", true)
	}
	if err := stmt.Order("id asc").Find(&agencies).Error; err != nil {
		return nil, err
	}
	return agencies, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, agency *domain.Agency) error {
	agency.UpdatedAt = time.Now().UTC()
	agency.Version++

	// Select forces zero-valued fields (false flags, cleared contact
	// details) through; the version predicate is the compare-and-swap.
	result := db.WithContext(ctx).
		Model(&domain.Agency{}).
		Where("id = ? AND version = ?", agency.ID, agency.Version-1).
		Select("*").
		Omit("id", "created_at").
		Updates(agency)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) ClaimSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE agencies
		 SET current_active_cases = current_active_cases + 1,
		     version = version + 1,
		     updated_at = ?
		 WHERE id = ?
		   AND is_active = ?
		   AND is_accepting_cases = ?
		   AND current_active_cases < max_concurrent_cases`,
		time.Now().UTC(), id, true, true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ReleaseSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE agencies
		 SET current_active_cases = current_active_cases - 1,
		     version = version + 1,
		     updated_at = ?
		 WHERE id = ? AND current_active_cases > 0`,
		time.Now().UTC(), id,
	).Error
}

func (r *repo) IncrementBreach(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE agencies
		 SET sla_breach_count = sla_breach_count + 1,
		     version = version + 1,
		     updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id,
	).Error
}

func (r *repo) ResetBreaches(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE agencies
		 SET sla_breach_count = 0,
		     version = version + 1,
		     updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id,
	).Error
}
