package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
)

// Event service errors
var (
	ErrEventNotFound     = errors.New("event not found")
	ErrBadDateRange      = errors.New("event end date is before its start date")
	ErrEventStarted      = errors.New("event has already started")
	ErrEventFull         = errors.New("event is at full capacity")
	ErrAlreadyRegistered = errors.New("user is already registered for this event")
	ErrNotRegistered     = errors.New("user is not registered for this event")
)

// EventService handles library event business logic
type EventService struct {
	eventRepo *repositories.EventRepository
}

// NewEventService creates a new event service
func NewEventService(eventRepo *repositories.EventRepository) *EventService {
	return &EventService{eventRepo: eventRepo}
}

// EventInput represents create/update event input. Capacity 0 means the
// event has no seat limit.
type EventInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Category    string    `json:"category,omitempty"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Capacity    int       `json:"capacity,omitempty" validate:"gte=0"`
	Featured    bool      `json:"featured,omitempty"`
}

// Create creates a new event
func (s *EventService) Create(ctx context.Context, input *EventInput, creatorID uint) (*models.Event, error) {
	if input.EndDate.Before(input.StartDate) {
		return nil, ErrBadDateRange
	}

	event := &models.Event{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Category:    input.Category,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Capacity:    input.Capacity,
		Featured:    input.Featured,
		CreatedBy:   creatorID,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	log.Printf("📅 Event created: %q (%s)", event.Title, event.StartDate.Format("2006-01-02"))
	return event, nil
}

// GetByID gets an event by ID
func (s *EventService) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

// ListEventsOutput represents event list output
type ListEventsOutput struct {
	Events     []*models.Event `json:"events"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// List lists events
func (s *EventService) List(ctx context.Context, page, limit int) (*ListEventsOutput, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	offset := (page - 1) * limit
	events, total, err := s.eventRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	return &ListEventsOutput{
		Events:     events,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// ListUpcoming lists events that have not yet ended
func (s *EventService) ListUpcoming(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return s.eventRepo.ListUpcoming(ctx, limit)
}

// ListFeatured lists events flagged for the front page
func (s *EventService) ListFeatured(ctx context.Context, limit int) ([]*models.Event, error) {
	if limit < 1 || limit > 20 {
		limit = 3
	}
	return s.eventRepo.ListFeatured(ctx, limit)
}

// Register signs a user up for an event. Registration closes once the
// event has started, and a capacity of 0 means unlimited seats. The unique
// index on (event_id, user_id) backs the duplicate check.
func (s *EventService) Register(ctx context.Context, eventID, userID uint) (*models.Event, error) {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if event.StartDate.Before(time.Now()) {
		return nil, ErrEventStarted
	}

	registered, err := s.eventRepo.IsRegistered(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrAlreadyRegistered
	}

	if event.Capacity > 0 {
		count, err := s.eventRepo.CountRegistrations(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if count >= int64(event.Capacity) {
			return nil, ErrEventFull
		}
	}

	reg := &models.EventRegistration{EventID: eventID, UserID: userID}
	if err := s.eventRepo.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}

	log.Printf("🎟️ User %d registered for event %q", userID, event.Title)
	return event, nil
}

// Unregister removes a user from an event's attendee list. Like
// registration, it is only allowed before the event starts.
func (s *EventService) Unregister(ctx context.Context, eventID, userID uint) error {
	event, err := s.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	if event.StartDate.Before(time.Now()) {
		return ErrEventStarted
	}

	removed, err := s.eventRepo.DeleteRegistration(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotRegistered
	}

	log.Printf("🎟️ User %d unregistered from event %q", userID, event.Title)
	return nil
}

// Update updates an event
func (s *EventService) Update(ctx context.Context, id uint, input *EventInput) (*models.Event, error) {
	if input.EndDate.Before(input.StartDate) {
		return nil, ErrBadDateRange
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	event.Title = input.Title
	event.Description = input.Description
	event.Location = input.Location
	event.Category = input.Category
	event.StartDate = input.StartDate
	event.EndDate = input.EndDate
	event.Capacity = input.Capacity
	event.Featured = input.Featured

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

// Delete soft deletes an event
func (s *EventService) Delete(ctx context.Context, id uint) error {
	if _, err := s.eventRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	return s.eventRepo.Delete(ctx, id)
}
