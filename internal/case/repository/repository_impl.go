package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/recovahq/recova/internal/case/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Case) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Case, error) {
	var c domain.Case
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Case, error) {
	var cases []*domain.Case
	stmt := db.WithContext(ctx).Model(&domain.Case{})

	if filter.EnterpriseID != 0 {
		stmt = stmt.Where("enterprise_id = ?", filter.EnterpriseID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		stmt = stmt.Where("priority = ?", filter.Priority)
	}
	if filter.AgencyID != 0 {
		stmt = stmt.Where("assigned_dca_id = ?", filter.AgencyID)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	if err := stmt.Order("id asc").Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *repo) UpdateCAS(ctx context.Context, db *gorm.DB, c *domain.Case, expectedVersion int64) error {
	c.Version = expectedVersion + 1
	c.UpdatedAt = time.Now().UTC()

	// Select forces zero-valued fields (cleared agency, false flags)
	// through; the version predicate is the compare-and-swap.
	result := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(c)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *repo) ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.Case, error) {
	var cases []*domain.Case
	stmt := db.WithContext(ctx).Model(&domain.Case{}).
		Where("sla_deadline < ?", now.UTC()).
		Where("breach_counted = ?", false).
		Where("status NOT IN ?", terminalStatuses()).
		Order("sla_deadline asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *repo) ListEscalatable(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*domain.Case, error) {
	var cases []*domain.Case
	stmt := db.WithContext(ctx).Model(&domain.Case{}).
		Where("sla_deadline < ?", cutoff.UTC()).
		Where("status NOT IN ?", append(terminalStatuses(),
			domain.StatusEscalated, domain.StatusPending, domain.StatusReturned)).
		Order("sla_deadline asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *repo) MarkBreachCounted(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	// Terminality is re-checked here, not only at scan time: a case that
	// resolved between scan and claim must not be counted.
	result := db.WithContext(ctx).Exec(
		`UPDATE cases
		 SET breach_counted = ?, version = version + 1, updated_at = ?
		 WHERE id = ?
		   AND breach_counted = ?
		   AND status NOT IN ?`,
		true, time.Now().UTC(), id, false, terminalStatuses(),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertNote(ctx context.Context, db *gorm.DB, note *domain.CaseNote) error {
	return db.WithContext(ctx).Create(note).Error
}

func (r *repo) ListNotes(ctx context.Context, db *gorm.DB, caseID snowflake.ID) ([]*domain.CaseNote, error) {
	var notes []*domain.CaseNote
	err := db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at asc, id asc").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, enterpriseID snowflake.ID) (domain.KPIs, error) {
	kpis := domain.KPIs{
		ByStatus:   map[string]int64{},
		ByPriority: map[string]int64{},
	}

	scope := func() *gorm.DB {
		stmt := db.WithContext(ctx).Model(&domain.Case{})
		if enterpriseID != 0 {
			stmt = stmt.Where("enterprise_id = ?", enterpriseID)
		}
		return stmt
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var statusBuckets []bucket
	if err := scope().
		Select("status as key, count(*) as count").
		Group("status").
		Scan(&statusBuckets).Error; err != nil {
		return domain.KPIs{}, err
	}
	for _, b := range statusBuckets {
		kpis.ByStatus[b.Key] = b.Count
		kpis.TotalCases += b.Count
	}

	var priorityBuckets []bucket
	if err := scope().
		Select("priority as key, count(*) as count").
		Group("priority").
		Scan(&priorityBuckets).Error; err != nil {
		return domain.KPIs{}, err
	}
	for _, b := range priorityBuckets {
		kpis.ByPriority[b.Key] = b.Count
	}

	type amounts struct {
		Total     float64
		Recovered float64
	}
	var sums amounts
	if err := scope().
		Select(
			"coalesce(sum(amount), 0) as total, coalesce(sum(case when status = ? then amount else 0 end), 0) as recovered",
			domain.StatusRecovered,
		).
		Scan(&sums).Error; err != nil {
		return domain.KPIs{}, err
	}
	kpis.TotalAmount = sums.Total
	kpis.RecoveredAmount = sums.Recovered
	if sums.Total > 0 {
		kpis.RecoveryRate = sums.Recovered / sums.Total
	}

	if err := scope().
		Where("breach_counted = ?", true).
		Count(&kpis.SLABreachedCases).Error; err != nil {
		return domain.KPIs{}, err
	}

	if err := scope().
		Where("status = ?", domain.StatusPending).
		Count(&kpis.UnallocatedCases).Error; err != nil {
		return domain.KPIs{}, err
	}

	return kpis, nil
}

func terminalStatuses() []domain.Status {
	return []domain.Status{
		domain.StatusRecovered,
		domain.StatusResolved,
		domain.StatusFailed,
		domain.StatusClosed,
	}
}
