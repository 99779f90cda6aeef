package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/core/domain"
)

// BookRepository handles book data access
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *BookRepository) WithTx(tx *gorm.DB) *BookRepository {
	return &BookRepository{db: tx}
}

// Create creates a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID gets a book by ID
func (r *BookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	return &book, err
}

// GetByIDWithReviews gets a book by ID including its reviews
func (r *BookRepository) GetByIDWithReviews(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Preload("Reviews").First(&book, id).Error
	return &book, err
}

// ExistsByISBN checks whether a book with the given ISBN exists
func (r *BookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Book{}).Where("isbn = ?", isbn).Count(&count).Error
	return count > 0, err
}

// BookFilter represents catalog list filters
type BookFilter struct {
	Category string
	Search   string
	Featured *bool
}

// List lists books with filters and pagination
func (r *BookRepository) List(ctx context.Context, filter *BookFilter, offset, limit int) ([]*models.Book, int64, error) {
	var books []*models.Book
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Book{})
	if filter != nil {
		if filter.Category != "" {
			query = query.Where("category = ?", filter.Category)
		}
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			query = query.Where("title LIKE ? OR author LIKE ? OR isbn LIKE ?", pattern, pattern, pattern)
		}
		if filter.Featured != nil {
			query = query.Where("featured = ?", *filter.Featured)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&books).Error

	return books, total, err
}

// ListFeatured lists featured books
func (r *BookRepository) ListFeatured(ctx context.Context, limit int) ([]*models.Book, error) {
	var books []*models.Book
	err := r.db.WithContext(ctx).
		Where("featured = ?", true).
		Order("title ASC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// ListNewArrivals lists the most recently added books
func (r *BookRepository) ListNewArrivals(ctx context.Context, limit int) ([]*models.Book, error) {
	var books []*models.Book
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// Update updates a book
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Save(book).Error
}

// Delete soft deletes a book
func (r *BookRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Book{}, id).Error
}

// DecrementAvailable atomically takes one loanable copy of the book.
// The availability check and the decrement are a single conditional UPDATE,
// so two concurrent issues cannot both take the last copy. Returns
// domain.ErrBookUnavailable when no copies are free and
// domain.ErrInvariantViolation when the counter is found below zero,
// which should be unreachable and indicates a bug upstream.
func (r *BookRepository) DecrementAvailable(ctx context.Context, bookID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Zero rows: either the book is gone, the shelf is empty, or the
	// counter is corrupted. Tell those apart.
	var book models.Book
	if err := r.db.WithContext(ctx).Select("available_copies").First(&book, bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrBookNotFound
		}
		return err
	}
	if book.AvailableCopies < 0 {
		return domain.ErrInvariantViolation
	}
	return domain.ErrBookUnavailable
}

// IncrementAvailable atomically returns one copy to the shelf, clamped so
// the counter never exceeds total_copies. Hitting the ceiling is not an
// error: over-availability saturates safely, unlike under-availability.
func (r *BookRepository) IncrementAvailable(ctx context.Context, bookID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrBookNotFound
	}
	// Already at total_copies; clamp silently.
	return nil
}

// CreateReview stores a review for a book
func (r *BookRepository) CreateReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// HasReview checks whether the user already reviewed the book
func (r *BookRepository) HasReview(ctx context.Context, bookID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("book_id = ? AND user_id = ?", bookID, userID).
		Count(&count).Error
	return count > 0, err
}

// AverageRating computes the mean review rating of a book, 0 with no reviews
func (r *BookRepository) AverageRating(ctx context.Context, bookID uint) (float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("book_id = ?", bookID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}

// SetRating stores the recomputed aggregate rating on the book row
func (r *BookRepository) SetRating(ctx context.Context, bookID uint, rating float64) error {
	return r.db.WithContext(ctx).Model(&models.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("rating", rating).Error
}
