package services

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/core/domain"
)

// Book service errors
var (
	ErrBookNotFound  = domain.ErrBookNotFound
	ErrDuplicateISBN = errors.New("book with this ISBN already exists")
	ErrAlreadyRated  = errors.New("user already reviewed this book")
	ErrBookOnLoan    = errors.New("book has active loans and cannot be deleted")
)

// BookService handles catalog business logic
type BookService struct {
	bookRepo *repositories.BookRepository
	circRepo *repositories.CirculationRepository
}

// NewBookService creates a new book service
func NewBookService(bookRepo *repositories.BookRepository, circRepo *repositories.CirculationRepository) *BookService {
	return &BookService{
		bookRepo: bookRepo,
		circRepo: circRepo,
	}
}

// CreateBookInput represents create book input
type CreateBookInput struct {
	ISBN            string `json:"isbn" validate:"required"`
	Title           string `json:"title" validate:"required,max=200"`
	Author          string `json:"author" validate:"required"`
	Category        string `json:"category" validate:"required"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	Description     string `json:"description,omitempty" validate:"max=2000"`
	Location        string `json:"location,omitempty"`
	Language        string `json:"language,omitempty"`
	Pages           int    `json:"pages,omitempty"`
	CoverImage      string `json:"cover_image,omitempty"`
	Featured        bool   `json:"featured,omitempty"`
	TotalCopies     int    `json:"total_copies" validate:"required,gte=1"`
}

// Create adds a book to the catalog. All copies start on the shelf.
func (s *BookService) Create(ctx context.Context, input *CreateBookInput) (*models.Book, error) {
	exists, err := s.bookRepo.ExistsByISBN(ctx, input.ISBN)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateISBN
	}

	book := &models.Book{
		ISBN:            input.ISBN,
		Title:           input.Title,
		Author:          input.Author,
		Category:        input.Category,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		Description:     input.Description,
		Location:        input.Location,
		Language:        input.Language,
		Pages:           input.Pages,
		CoverImage:      input.CoverImage,
		Featured:        input.Featured,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
	}
	if book.Language == "" {
		book.Language = "English"
	}
	if book.CoverImage == "" {
		book.CoverImage = "default-book-cover.jpg"
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	log.Printf("📚 Book added: %q (%s), %d copies", book.Title, book.ISBN, book.TotalCopies)
	return book, nil
}

// GetByID gets a book with its reviews
func (s *BookService) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByIDWithReviews(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// ListBooksInput represents catalog list input
type ListBooksInput struct {
	Page     int
	Limit    int
	Category string
	Search   string
	Featured *bool
}

// ListBooksOutput represents catalog list output
type ListBooksOutput struct {
	Books      []*models.Book `json:"books"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// List lists catalog books
func (s *BookService) List(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	filter := &repositories.BookFilter{
		Category: input.Category,
		Search:   input.Search,
		Featured: input.Featured,
	}

	offset := (input.Page - 1) * input.Limit
	books, total, err := s.bookRepo.List(ctx, filter, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListBooksOutput{
		Books:      books,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// ListFeatured lists featured books
func (s *BookService) ListFeatured(ctx context.Context, limit int) ([]*models.Book, error) {
	if limit < 1 || limit > 50 {
		limit = 8
	}
	return s.bookRepo.ListFeatured(ctx, limit)
}

// ListNewArrivals lists the most recently added books
func (s *BookService) ListNewArrivals(ctx context.Context, limit int) ([]*models.Book, error) {
	if limit < 1 || limit > 50 {
		limit = 8
	}
	return s.bookRepo.ListNewArrivals(ctx, limit)
}

// UpdateBookInput represents update book input. Pointer fields are applied
// only when present.
type UpdateBookInput struct {
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	Category        *string `json:"category,omitempty"`
	Publisher       *string `json:"publisher,omitempty"`
	PublicationYear *int    `json:"publication_year,omitempty"`
	Description     *string `json:"description,omitempty"`
	Location        *string `json:"location,omitempty"`
	Language        *string `json:"language,omitempty"`
	Pages           *int    `json:"pages,omitempty"`
	CoverImage      *string `json:"cover_image,omitempty"`
	Featured        *bool   `json:"featured,omitempty"`
	TotalCopies     *int    `json:"total_copies,omitempty" validate:"omitempty,gte=1"`
}

// Update updates catalog fields of a book. Changing totalCopies shifts
// availableCopies by the same delta, clamped at zero so active loans are
// never counted as available.
func (s *BookService) Update(ctx context.Context, id uint, input *UpdateBookInput) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.Category != nil {
		book.Category = *input.Category
	}
	if input.Publisher != nil {
		book.Publisher = *input.Publisher
	}
	if input.PublicationYear != nil {
		book.PublicationYear = *input.PublicationYear
	}
	if input.Description != nil {
		book.Description = *input.Description
	}
	if input.Location != nil {
		book.Location = *input.Location
	}
	if input.Language != nil {
		book.Language = *input.Language
	}
	if input.Pages != nil {
		book.Pages = *input.Pages
	}
	if input.CoverImage != nil {
		book.CoverImage = *input.CoverImage
	}
	if input.Featured != nil {
		book.Featured = *input.Featured
	}
	if input.TotalCopies != nil && *input.TotalCopies != book.TotalCopies {
		delta := *input.TotalCopies - book.TotalCopies
		book.TotalCopies = *input.TotalCopies
		book.AvailableCopies += delta
		if book.AvailableCopies < 0 {
			book.AvailableCopies = 0
		}
		if book.AvailableCopies > book.TotalCopies {
			book.AvailableCopies = book.TotalCopies
		}
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}

	return book, nil
}

// Delete removes a book from the catalog. Books with copies out on loan
// cannot be deleted; copies written off as lost do not block deletion.
func (s *BookService) Delete(ctx context.Context, id uint) error {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	active, err := s.circRepo.CountActiveByBook(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrBookOnLoan
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		return err
	}

	log.Printf("🗑️ Book deleted: %q (%s)", book.Title, book.ISBN)
	return nil
}

// AddReviewInput represents add review input
type AddReviewInput struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required"`
}

// AddReview stores a review and recomputes the book's aggregate rating.
// The recompute is an explicit step here at the call site, not a side
// effect of persistence.
func (s *BookService) AddReview(ctx context.Context, bookID uint, user *models.User, input *AddReviewInput) (*models.Book, error) {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	reviewed, err := s.bookRepo.HasReview(ctx, bookID, user.ID)
	if err != nil {
		return nil, err
	}
	if reviewed {
		return nil, ErrAlreadyRated
	}

	review := &models.Review{
		BookID:  bookID,
		UserID:  user.ID,
		Name:    user.Name,
		Rating:  input.Rating,
		Comment: input.Comment,
	}
	if err := s.bookRepo.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	if err := s.RecomputeRating(ctx, bookID); err != nil {
		return nil, err
	}

	return s.bookRepo.GetByIDWithReviews(ctx, bookID)
}

// RecomputeRating recalculates a book's aggregate rating from its reviews
func (s *BookService) RecomputeRating(ctx context.Context, bookID uint) error {
	avg, err := s.bookRepo.AverageRating(ctx, bookID)
	if err != nil {
		return err
	}
	return s.bookRepo.SetRating(ctx, bookID, avg)
}
