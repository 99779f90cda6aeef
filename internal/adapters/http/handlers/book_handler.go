package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shelfdesk/internal/core/services"
	"shelfdesk/internal/pkg/pagination"
	"shelfdesk/internal/pkg/response"
	"shelfdesk/internal/pkg/validator"
)

// BookHandler handles catalog endpoints
type BookHandler struct {
	bookService *services.BookService
	userService *services.UserService
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *services.BookService, userService *services.UserService) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		userService: userService,
	}
}

// Create handles adding a book to the catalog
// @Summary Create book
// @Description Add a new book to the catalog
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateBookInput true "Book data"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books [post]
func (h *BookHandler) Create(c *fiber.Ctx) error {
	var input services.CreateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(&input); err != nil {
		return response.UnprocessableEntity(c, err.Error())
	}

	book, err := h.bookService.Create(c.Context(), &input)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateISBN) {
			return response.Conflict(c, "A book with this ISBN already exists")
		}
		return response.InternalServerError(c, "Failed to create book")
	}

	return response.Created(c, "Book created successfully", book)
}

// List handles listing catalog books
// @Summary List books
// @Description List catalog books with search and filters
// @Tags Books
// @Accept json
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param category query string false "Category filter"
// @Param search query string false "Search in title, author and ISBN"
// @Param featured query bool false "Featured filter"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	input := &services.ListBooksInput{
		Page:     params.Page,
		Limit:    params.Limit,
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if v := c.Query("featured"); v != "" {
		featured := v == "true" || v == "1"
		input.Featured = &featured
	}

	result, err := h.bookService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list books")
	}

	return response.Success(c, "Books retrieved successfully", result)
}

// Featured handles listing featured books
// @Summary List featured books
// @Description List books flagged as featured
// @Tags Books
// @Accept json
// @Produce json
// @Param limit query int false "Max items"
// @Success 200 {object} response.Response
// @Router /books/featured [get]
func (h *BookHandler) Featured(c *fiber.Ctx) error {
	books, err := h.bookService.ListFeatured(c.Context(), c.QueryInt("limit", 8))
	if err != nil {
		return response.InternalServerError(c, "Failed to list featured books")
	}

	return response.Success(c, "Featured books retrieved", books)
}

// NewArrivals handles listing recently added books
// @Summary List new arrivals
// @Description List the most recently added books
// @Tags Books
// @Accept json
// @Produce json
// @Param limit query int false "Max items"
// @Success 200 {object} response.Response
// @Router /books/new-arrivals [get]
func (h *BookHandler) NewArrivals(c *fiber.Ctx) error {
	books, err := h.bookService.ListNewArrivals(c.Context(), c.QueryInt("limit", 8))
	if err != nil {
		return response.InternalServerError(c, "Failed to list new arrivals")
	}

	return response.Success(c, "New arrivals retrieved", books)
}

// GetByID handles getting one book
// @Summary Get book
// @Description Get a book with its reviews
// @Tags Books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) GetByID(c *fiber.Ctx) error {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.bookService.GetByID(c.Context(), bookID)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to get book")
	}

	return response.Success(c, "Book retrieved successfully", book)
}

// Update handles updating a book
// @Summary Update book
// @Description Update catalog fields of a book
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.UpdateBookInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *fiber.Ctx) error {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var input services.UpdateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(&input); err != nil {
		return response.UnprocessableEntity(c, err.Error())
	}

	book, err := h.bookService.Update(c.Context(), bookID, &input)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to update book")
	}

	return response.Success(c, "Book updated successfully", book)
}

// Delete handles deleting a book
// @Summary Delete book
// @Description Remove a book from the catalog
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.bookService.Delete(c.Context(), bookID); err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, services.ErrBookOnLoan):
			return response.Conflict(c, "Book has copies out on loan")
		default:
			return response.InternalServerError(c, "Failed to delete book")
		}
	}

	return response.Success(c, "Book deleted successfully", nil)
}

// AddReview handles adding a review to a book
// @Summary Add review
// @Description Add a review and recompute the book's rating
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.AddReviewInput true "Review data"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/{id}/reviews [post]
func (h *BookHandler) AddReview(c *fiber.Ctx) error {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var input services.AddReviewInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validator.ValidateStruct(&input); err != nil {
		return response.UnprocessableEntity(c, err.Error())
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	user, err := h.userService.GetByID(c.Context(), userID)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	book, err := h.bookService.AddReview(c.Context(), bookID, user, &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			return response.NotFound(c, "Book not found")
		case errors.Is(err, services.ErrAlreadyRated):
			return response.Conflict(c, "You already reviewed this book")
		default:
			return response.InternalServerError(c, "Failed to add review")
		}
	}

	return response.Created(c, "Review added successfully", book)
}
