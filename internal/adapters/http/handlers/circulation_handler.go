package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/core/services"
	"shelfdesk/internal/pkg/pagination"
	"shelfdesk/internal/pkg/response"
	"shelfdesk/internal/pkg/validator"
)

// CirculationHandler handles circulation endpoints
type CirculationHandler struct {
	circService *services.CirculationService
}

// NewCirculationHandler creates a new circulation handler
func NewCirculationHandler(circService *services.CirculationService) *CirculationHandler {
	return &CirculationHandler{circService: circService}
}

// Issue handles issuing a book to a member
// @Summary Issue book
// @Description Lend one copy of a book to a member
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.IssueInput true "Issue data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /circulation/issue [post]
func (h *CirculationHandler) Issue(c *fiber.Ctx) error {
	var input services.IssueInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(&input); err != nil {
		return response.UnprocessableEntity(c, err.Error())
	}

	staffID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	record, err := h.circService.Issue(c.Context(), &input, staffID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBookNotFound):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, domain.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, domain.ErrBookUnavailable):
			return response.Conflict(c, "No copies available")
		case errors.Is(err, domain.ErrDuplicateLoan):
			return response.Conflict(c, "User already has an active loan for this book")
		case errors.Is(err, domain.ErrInvariantViolation):
			return response.InternalServerError(c, "Availability counter corrupted, contact an administrator")
		default:
			return response.InternalServerError(c, "Failed to issue book")
		}
	}

	return response.Created(c, "Book issued successfully", record.ToResponse())
}

// Return handles returning a book
// @Summary Return book
// @Description Close a loan, calculate any fine and restore availability
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Circulation record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /circulation/{id}/return [post]
func (h *CirculationHandler) Return(c *fiber.Ctx) error {
	recordID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid record ID")
	}

	staffID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	record, err := h.circService.Return(c.Context(), recordID, staffID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			return response.NotFound(c, "Circulation record not found")
		case errors.Is(err, domain.ErrAlreadyReturned):
			return response.Conflict(c, "Book already returned")
		case errors.Is(err, domain.ErrStaleRecord):
			return response.Conflict(c, "Record was modified concurrently, please retry")
		default:
			return response.InternalServerError(c, "Failed to return book")
		}
	}

	return response.Success(c, "Book returned successfully", record.ToResponse())
}

// Renew handles renewing a loan
// @Summary Renew loan
// @Description Extend a loan's due date by the renewal period
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Circulation record ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /circulation/{id}/renew [post]
func (h *CirculationHandler) Renew(c *fiber.Ctx) error {
	recordID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid record ID")
	}

	requesterID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	role, _ := c.Locals("role").(string)

	record, err := h.circService.Renew(c.Context(), recordID, requesterID, domain.Role(role))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			return response.NotFound(c, "Circulation record not found")
		case errors.Is(err, domain.ErrAlreadyReturned):
			return response.Conflict(c, "Loan is already closed")
		case errors.Is(err, domain.ErrRenewalLimitReached):
			return response.Conflict(c, "Renewal limit reached")
		case errors.Is(err, domain.ErrNotAuthorized):
			return response.Forbidden(c, "Only the borrower or staff may renew this loan")
		case errors.Is(err, domain.ErrStaleRecord):
			return response.Conflict(c, "Record was modified concurrently, please retry")
		default:
			return response.InternalServerError(c, "Failed to renew loan")
		}
	}

	return response.Success(c, "Loan renewed successfully", record.ToResponse())
}

// MarkLost handles marking a loan as lost
// @Summary Mark loan lost
// @Description Move an active loan to the terminal lost state
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Circulation record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /circulation/{id}/lost [post]
func (h *CirculationHandler) MarkLost(c *fiber.Ctx) error {
	recordID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid record ID")
	}

	staffID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	record, err := h.circService.MarkLost(c.Context(), recordID, staffID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			return response.NotFound(c, "Circulation record not found")
		case errors.Is(err, domain.ErrAlreadyReturned):
			return response.Conflict(c, "Loan is already closed")
		default:
			return response.InternalServerError(c, "Failed to mark loan lost")
		}
	}

	return response.Success(c, "Loan marked as lost", record.ToResponse())
}

// List handles listing circulation records
// @Summary List circulation records
// @Description List circulation records with optional filters
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param status query string false "Status filter"
// @Param book_id query int false "Book ID filter"
// @Param user_id query int false "User ID filter"
// @Success 200 {object} response.Response
// @Router /circulation [get]
func (h *CirculationHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	input := &services.ListInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Status: c.Query("status"),
	}
	if id := c.QueryInt("book_id", 0); id > 0 {
		bookID := uint(id)
		input.BookID = &bookID
	}
	if id := c.QueryInt("user_id", 0); id > 0 {
		userID := uint(id)
		input.UserID = &userID
	}

	result, err := h.circService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list circulation records")
	}

	return response.Success(c, "Circulation records retrieved", result)
}

// GetByID handles getting one circulation record
// @Summary Get circulation record
// @Description Get a circulation record by ID
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Circulation record ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /circulation/{id} [get]
func (h *CirculationHandler) GetByID(c *fiber.Ctx) error {
	recordID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid record ID")
	}

	record, err := h.circService.GetByID(c.Context(), recordID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return response.NotFound(c, "Circulation record not found")
		}
		return response.InternalServerError(c, "Failed to get circulation record")
	}

	// Members may only see their own records
	requesterID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(string)
	if record.UserID != requesterID && !domain.Role(role).IsStaff() {
		return response.Forbidden(c, "You may only view your own loans")
	}

	return response.Success(c, "Circulation record retrieved", record.ToResponse())
}

// ListOverdue handles listing overdue loans
// @Summary List overdue loans
// @Description Sweep due dates, then list every overdue loan
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /circulation/overdue [get]
func (h *CirculationHandler) ListOverdue(c *fiber.Ctx) error {
	records, err := h.circService.ListOverdue(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list overdue loans")
	}

	responses := toResponses(records)
	return response.Success(c, "Overdue loans retrieved", responses)
}

// UserActive handles listing a user's active loans
// @Summary List user's active loans
// @Description List loans currently holding a copy for the given user
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} response.Response
// @Router /circulation/user/{userId} [get]
func (h *CirculationHandler) UserActive(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}
	if err := h.checkOwnership(c, userID); err != nil {
		return err
	}

	records, err := h.circService.ListUserActive(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list active loans")
	}

	return response.Success(c, "Active loans retrieved", toResponses(records))
}

// UserHistory handles listing a user's borrowing history
// @Summary List user's borrowing history
// @Description List all circulation records for the given user
// @Tags Circulation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} response.Response
// @Router /circulation/history/{userId} [get]
func (h *CirculationHandler) UserHistory(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}
	if err := h.checkOwnership(c, userID); err != nil {
		return err
	}

	records, err := h.circService.ListUserHistory(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list borrowing history")
	}

	return response.Success(c, "Borrowing history retrieved", toResponses(records))
}

// checkOwnership rejects members asking about another user's loans
func (h *CirculationHandler) checkOwnership(c *fiber.Ctx, userID uint) error {
	requesterID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	role, _ := c.Locals("role").(string)

	if userID != requesterID && !domain.Role(role).IsStaff() {
		return response.Forbidden(c, "You may only view your own loans")
	}
	return nil
}

func toResponses(records []*models.CirculationRecord) []*models.CirculationResponse {
	responses := make([]*models.CirculationResponse, len(records))
	for i, record := range records {
		responses[i] = record.ToResponse()
	}
	return responses
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
