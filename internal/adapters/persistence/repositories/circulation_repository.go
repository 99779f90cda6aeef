package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/core/domain"
)

// CirculationRepository handles circulation record data access
type CirculationRepository struct {
	db *gorm.DB
}

// NewCirculationRepository creates a new circulation repository
func NewCirculationRepository(db *gorm.DB) *CirculationRepository {
	return &CirculationRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *CirculationRepository) WithTx(tx *gorm.DB) *CirculationRepository {
	return &CirculationRepository{db: tx}
}

// Create creates a new circulation record
func (r *CirculationRepository) Create(ctx context.Context, record *models.CirculationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByID gets a circulation record by ID with book and user loaded
func (r *CirculationRepository) GetByID(ctx context.Context, id uint) (*models.CirculationRecord, error) {
	var record models.CirculationRecord
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		First(&record, id).Error
	return &record, err
}

// CirculationFilter represents circulation list filters
type CirculationFilter struct {
	Status string
	BookID *uint
	UserID *uint
}

// List lists circulation records with filters and pagination
func (r *CirculationRepository) List(ctx context.Context, filter *CirculationFilter, offset, limit int) ([]*models.CirculationRecord, int64, error) {
	var records []*models.CirculationRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&models.CirculationRecord{})
	if filter != nil {
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.BookID != nil {
			query = query.Where("book_id = ?", *filter.BookID)
		}
		if filter.UserID != nil {
			query = query.Where("user_id = ?", *filter.UserID)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Book").
		Preload("User").
		Order("issue_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error

	return records, total, err
}

// FindActiveLoan finds an active loan of the given book held by the given
// user, or gorm.ErrRecordNotFound when none exists
func (r *CirculationRepository) FindActiveLoan(ctx context.Context, bookID, userID uint) (*models.CirculationRecord, error) {
	var record models.CirculationRecord
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND user_id = ? AND status IN ?", bookID, userID, statusStrings(domain.ActiveStatuses())).
		First(&record).Error
	return &record, err
}

// ListActiveByUser lists the user's loans that still hold a copy
func (r *CirculationRepository) ListActiveByUser(ctx context.Context, userID uint) ([]*models.CirculationRecord, error) {
	var records []*models.CirculationRecord
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ? AND status IN ?", userID, statusStrings(domain.ActiveStatuses())).
		Order("due_date ASC").
		Find(&records).Error
	return records, err
}

// ListByUser lists the user's full borrowing history
func (r *CirculationRepository) ListByUser(ctx context.Context, userID uint) ([]*models.CirculationRecord, error) {
	var records []*models.CirculationRecord
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("issue_date DESC").
		Find(&records).Error
	return records, err
}

// ListDueBefore lists records past their due date whose status the overdue
// sweep may transition (borrowed or renewed)
func (r *CirculationRepository) ListDueBefore(ctx context.Context, cutoff time.Time) ([]*models.CirculationRecord, error) {
	var records []*models.CirculationRecord
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		Where("due_date < ? AND status IN ?", cutoff, statusStrings(domain.SweepableStatuses())).
		Find(&records).Error
	return records, err
}

// ListOverdue lists all records currently marked overdue
func (r *CirculationRepository) ListOverdue(ctx context.Context) ([]*models.CirculationRecord, error) {
	var records []*models.CirculationRecord
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		Where("status = ?", string(domain.StatusOverdue)).
		Order("due_date ASC").
		Find(&records).Error
	return records, err
}

// UpdateWithVersion persists the record's mutable fields only if its version
// still matches the version it was read at, then bumps the version. Returns
// domain.ErrStaleRecord when a concurrent writer got there first; the record
// on disk is left as that writer produced it.
func (r *CirculationRepository) UpdateWithVersion(ctx context.Context, record *models.CirculationRecord) error {
	res := r.db.WithContext(ctx).Model(&models.CirculationRecord{}).
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(map[string]interface{}{
			"due_date":      record.DueDate,
			"return_date":   record.ReturnDate,
			"returned_to":   record.ReturnedTo,
			"status":        record.Status,
			"fine":          record.Fine,
			"renewal_count": record.RenewalCount,
			"notes":         record.Notes,
			"version":       record.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleRecord
	}
	record.Version++
	return nil
}

// CountActiveByBook counts loans of the given book that still hold a copy
func (r *CirculationRepository) CountActiveByBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CirculationRecord{}).
		Where("book_id = ? AND status IN ?", bookID, statusStrings(domain.ActiveStatuses())).
		Count(&count).Error
	return count, err
}

// CountByStatus counts records in the given statuses
func (r *CirculationRepository) CountByStatus(ctx context.Context, statuses ...domain.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CirculationRecord{}).
		Where("status IN ?", statusStrings(statuses)).
		Count(&count).Error
	return count, err
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
