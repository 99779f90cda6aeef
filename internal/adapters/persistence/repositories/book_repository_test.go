package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/core/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "shelfdesk_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	return db
}

func seedBook(t *testing.T, db *gorm.DB, copies int) *models.Book {
	t.Helper()

	book := &models.Book{
		ISBN:            "978-0-13-468599-1",
		Title:           "The Go Programming Language",
		Author:          "Donovan & Kernighan",
		Category:        "Programming",
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestDecrementAvailableStopsAtZero(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, 2)

	require.NoError(t, repo.DecrementAvailable(ctx, book.ID))
	require.NoError(t, repo.DecrementAvailable(ctx, book.ID))

	err := repo.DecrementAvailable(ctx, book.ID)
	assert.ErrorIs(t, err, domain.ErrBookUnavailable)

	fresh, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.AvailableCopies)
}

func TestDecrementAvailableUnknownBook(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)

	err := repo.DecrementAvailable(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestIncrementAvailableClampsAtTotal(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, 2)
	require.NoError(t, repo.DecrementAvailable(ctx, book.ID))

	require.NoError(t, repo.IncrementAvailable(ctx, book.ID))
	// Counter is full: a further increment saturates without error.
	require.NoError(t, repo.IncrementAvailable(ctx, book.ID))

	fresh, err := repo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.AvailableCopies)
}

func TestIncrementAvailableUnknownBook(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)

	err := repo.IncrementAvailable(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestAverageRating(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, 1)

	avg, err := repo.AverageRating(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, avg)

	require.NoError(t, repo.CreateReview(ctx, &models.Review{BookID: book.ID, UserID: 1, Name: "A", Rating: 4, Comment: "good"}))
	require.NoError(t, repo.CreateReview(ctx, &models.Review{BookID: book.ID, UserID: 2, Name: "B", Rating: 5, Comment: "great"}))

	avg, err = repo.AverageRating(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, avg)
}

func TestUpdateWithVersionDetectsStaleWrite(t *testing.T) {
	db := newTestDB(t)
	circRepo := NewCirculationRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, 1)
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	record := &models.CirculationRecord{
		BookID:    book.ID,
		UserID:    1,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, 14),
		Status:    string(domain.StatusBorrowed),
	}
	require.NoError(t, circRepo.Create(ctx, record))

	// Two readers hold the same version.
	first, err := circRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	second, err := circRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)

	first.Status = string(domain.StatusReturned)
	require.NoError(t, circRepo.UpdateWithVersion(ctx, first))
	assert.EqualValues(t, 1, first.Version)

	second.Status = string(domain.StatusOverdue)
	err = circRepo.UpdateWithVersion(ctx, second)
	assert.ErrorIs(t, err, domain.ErrStaleRecord)

	// The loser's write left no trace.
	fresh, err := circRepo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusReturned), fresh.Status)
}

func TestListDueBeforeSelectsOnlySweepableStatuses(t *testing.T) {
	db := newTestDB(t)
	circRepo := NewCirculationRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, 4)
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	pastDue := now.AddDate(0, 0, -2)

	for i, status := range []domain.Status{
		domain.StatusBorrowed, domain.StatusRenewed, domain.StatusOverdue, domain.StatusReturned,
	} {
		require.NoError(t, circRepo.Create(ctx, &models.CirculationRecord{
			BookID:    book.ID,
			UserID:    uint(i + 1),
			IssueDate: pastDue.AddDate(0, 0, -14),
			DueDate:   pastDue,
			Status:    string(status),
		}))
	}

	records, err := circRepo.ListDueBefore(ctx, now)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Contains(t, []string{
			string(domain.StatusBorrowed), string(domain.StatusRenewed),
		}, record.Status)
	}
}
