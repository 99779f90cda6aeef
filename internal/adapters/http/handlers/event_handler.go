package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shelfdesk/internal/core/services"
	"shelfdesk/internal/pkg/pagination"
	"shelfdesk/internal/pkg/response"
	"shelfdesk/internal/pkg/validator"
)

// EventHandler handles library event endpoints
type EventHandler struct {
	eventService *services.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create handles creating an event
// @Summary Create event
// @Description Create a new library event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.EventInput true "Event data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /events [post]
func (h *EventHandler) Create(c *fiber.Ctx) error {
	var input services.EventInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(&input); err != nil {
		return response.UnprocessableEntity(c, err.Error())
	}

	creatorID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	event, err := h.eventService.Create(c.Context(), &input, creatorID)
	if err != nil {
		if errors.Is(err, services.ErrBadDateRange) {
			return response.BadRequest(c, "End date must not be before start date")
		}
		return response.InternalServerError(c, "Failed to create event")
	}

	return response.Created(c, "Event created successfully", event)
}

// List handles listing events
// @Summary List events
// @Description List library events ordered by start date
// @Tags Events
// @Accept json
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /events [get]
func (h *EventHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	result, err := h.eventService.List(c.Context(), params.Page, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list events")
	}

	return response.Success(c, "Events retrieved successfully", result)
}

// Upcoming handles listing upcoming events
// @Summary List upcoming events
// @Description List events that have not ended yet
// @Tags Events
// @Accept json
// @Produce json
// @Param limit query int false "Max items"
// @Success 200 {object} response.Response
// @Router /events/upcoming [get]
func (h *EventHandler) Upcoming(c *fiber.Ctx) error {
	events, err := h.eventService.ListUpcoming(c.Context(), c.QueryInt("limit", 8))
	if err != nil {
		return response.InternalServerError(c, "Failed to list upcoming events")
	}

	return response.Success(c, "Upcoming events retrieved", events)
}

// Featured handles listing featured events
// @Summary List featured events
// @Description List events flagged for the front page
// @Tags Events
// @Accept json
// @Produce json
// @Param limit query int false "Max items"
// @Success 200 {object} response.Response
// @Router /events/featured [get]
func (h *EventHandler) Featured(c *fiber.Ctx) error {
	events, err := h.eventService.ListFeatured(c.Context(), c.QueryInt("limit", 3))
	if err != nil {
		return response.InternalServerError(c, "Failed to list featured events")
	}

	return response.Success(c, "Featured events retrieved", events)
}

// Register handles signing the current user up for an event
// @Summary Register for event
// @Description Register the authenticated user for an event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /events/{id}/register [post]
func (h *EventHandler) Register(c *fiber.Ctx) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid event ID")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	event, err := h.eventService.Register(c.Context(), eventID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEventNotFound):
			return response.NotFound(c, "Event not found")
		case errors.Is(err, services.ErrEventStarted):
			return response.BadRequest(c, "Cannot register for an event that has started")
		case errors.Is(err, services.ErrEventFull):
			return response.Conflict(c, "Event is at full capacity")
		case errors.Is(err, services.ErrAlreadyRegistered):
			return response.Conflict(c, "You are already registered for this event")
		default:
			return response.InternalServerError(c, "Failed to register for event")
		}
	}

	return response.Success(c, "Registered for event successfully", event)
}

// Unregister handles removing the current user from an event
// @Summary Unregister from event
// @Description Unregister the authenticated user from an event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /events/{id}/unregister [post]
func (h *EventHandler) Unregister(c *fiber.Ctx) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid event ID")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.eventService.Unregister(c.Context(), eventID, userID); err != nil {
		switch {
		case errors.Is(err, services.ErrEventNotFound):
			return response.NotFound(c, "Event not found")
		case errors.Is(err, services.ErrEventStarted):
			return response.BadRequest(c, "Cannot unregister from an event that has started")
		case errors.Is(err, services.ErrNotRegistered):
			return response.Conflict(c, "You are not registered for this event")
		default:
			return response.InternalServerError(c, "Failed to unregister from event")
		}
	}

	return response.Success(c, "Unregistered from event successfully", nil)
}

// GetByID handles getting one event
// @Summary Get event
// @Description Get an event by ID
// @Tags Events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c *fiber.Ctx) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid event ID")
	}

	event, err := h.eventService.GetByID(c.Context(), eventID)
	if err != nil {
		if errors.Is(err, services.ErrEventNotFound) {
			return response.NotFound(c, "Event not found")
		}
		return response.InternalServerError(c, "Failed to get event")
	}

	return response.Success(c, "Event retrieved successfully", event)
}

// Update handles updating an event
// @Summary Update event
// @Description Update a library event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param body body services.EventInput true "Event data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *fiber.Ctx) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid event ID")
	}

	var input services.EventInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(&input); err != nil {
		return response.UnprocessableEntity(c, err.Error())
	}

	event, err := h.eventService.Update(c.Context(), eventID, &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEventNotFound):
			return response.NotFound(c, "Event not found")
		case errors.Is(err, services.ErrBadDateRange):
			return response.BadRequest(c, "End date must not be before start date")
		default:
			return response.InternalServerError(c, "Failed to update event")
		}
	}

	return response.Success(c, "Event updated successfully", event)
}

// Delete handles deleting an event
// @Summary Delete event
// @Description Delete a library event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *fiber.Ctx) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid event ID")
	}

	if err := h.eventService.Delete(c.Context(), eventID); err != nil {
		if errors.Is(err, services.ErrEventNotFound) {
			return response.NotFound(c, "Event not found")
		}
		return response.InternalServerError(c, "Failed to delete event")
	}

	return response.Success(c, "Event deleted successfully", nil)
}
