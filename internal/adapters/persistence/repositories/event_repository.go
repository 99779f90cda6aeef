package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/models"
)

// EventRepository handles library event data access
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetByID gets an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).First(&event, id).Error
	return &event, err
}

// List lists events with pagination, soonest first
func (r *EventRepository) List(ctx context.Context, offset, limit int) ([]*models.Event, int64, error) {
	var events []*models.Event
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Event{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("start_date ASC").
		Offset(offset).
		Limit(limit).
		Find(&events).Error

	return events, total, err
}

// ListUpcoming lists events that have not yet ended
func (r *EventRepository) ListUpcoming(ctx context.Context, limit int) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("end_date >= ?", time.Now()).
		Order("start_date ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// ListFeatured lists events flagged as featured, soonest first
func (r *EventRepository) ListFeatured(ctx context.Context, limit int) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.WithContext(ctx).
		Where("featured = ?", true).
		Order("start_date ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// CountRegistrations counts attendees registered for an event
func (r *EventRepository) CountRegistrations(ctx context.Context, eventID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventRegistration{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}

// IsRegistered reports whether the user is registered for the event
func (r *EventRepository) IsRegistered(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventRegistration{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

// CreateRegistration adds the user to the event's attendee list
func (r *EventRepository) CreateRegistration(ctx context.Context, reg *models.EventRegistration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

// DeleteRegistration removes the user from the event's attendee list and
// returns how many rows were removed
func (r *EventRepository) DeleteRegistration(ctx context.Context, eventID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&models.EventRegistration{})
	return res.RowsAffected, res.Error
}

// Update updates an event
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// Delete soft deletes an event
func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Event{}, id).Error
}
