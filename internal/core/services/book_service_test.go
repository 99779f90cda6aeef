package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/core/domain"
)

func newBookService(t *testing.T) (*BookService, *circFixture) {
	t.Helper()

	f := newCircFixture(t)
	svc := NewBookService(
		repositories.NewBookRepository(f.db),
		repositories.NewCirculationRepository(f.db),
	)
	return svc, f
}

func TestCreateBookStartsFullyAvailable(t *testing.T) {
	svc, _ := newBookService(t)
	ctx := context.Background()

	book, err := svc.Create(ctx, &CreateBookInput{
		ISBN:        "978-0-13-468599-1",
		Title:       "The Go Programming Language",
		Author:      "Donovan & Kernighan",
		Category:    "Programming",
		TotalCopies: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, book.AvailableCopies)
	assert.Equal(t, "English", book.Language)
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	svc, _ := newBookService(t)
	ctx := context.Background()

	input := &CreateBookInput{
		ISBN:        "978-0-13-468599-1",
		Title:       "The Go Programming Language",
		Author:      "Donovan & Kernighan",
		Category:    "Programming",
		TotalCopies: 1,
	}
	_, err := svc.Create(ctx, input)
	require.NoError(t, err)

	_, err = svc.Create(ctx, input)
	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestUpdateTotalCopiesShiftsAvailability(t *testing.T) {
	svc, f := newBookService(t)
	ctx := context.Background()

	book := f.seedBook(t, 3)

	// Two copies out on loan.
	bookRepo := repositories.NewBookRepository(f.db)
	require.NoError(t, bookRepo.DecrementAvailable(ctx, book.ID))
	require.NoError(t, bookRepo.DecrementAvailable(ctx, book.ID))

	five := 5
	updated, err := svc.Update(ctx, book.ID, &UpdateBookInput{TotalCopies: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalCopies)
	assert.Equal(t, 3, updated.AvailableCopies)

	// Shrinking below the number of loaned copies clamps at zero.
	two := 2
	updated, err = svc.Update(ctx, book.ID, &UpdateBookInput{TotalCopies: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TotalCopies)
	assert.Equal(t, 0, updated.AvailableCopies)
}

func TestDeleteBookWithActiveLoansRejected(t *testing.T) {
	svc, f := newBookService(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, book.ID)
	assert.ErrorIs(t, err, ErrBookOnLoan)

	_, err = f.service.Return(ctx, issued.ID, staff.ID)
	require.NoError(t, err)
	assert.NoError(t, svc.Delete(ctx, book.ID))
}

func TestDeleteBookWithOnlyLostCopiesAllowed(t *testing.T) {
	svc, f := newBookService(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)
	_, err = f.service.MarkLost(ctx, issued.ID, staff.ID)
	require.NoError(t, err)

	// The lost copy leaves available below total, but with no loan still
	// holding a copy the book can be removed from the catalog.
	assert.Equal(t, 0, f.availableCopies(t, book.ID))
	assert.NoError(t, svc.Delete(ctx, book.ID))
}

func TestAddReviewRecomputesRating(t *testing.T) {
	svc, f := newBookService(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	alice := f.seedUser(t, domain.RoleMember)
	bob := f.seedUser(t, domain.RoleMember)

	_, err := svc.AddReview(ctx, book.ID, alice, &AddReviewInput{Rating: 3, Comment: "fine"})
	require.NoError(t, err)

	updated, err := svc.AddReview(ctx, book.ID, bob, &AddReviewInput{Rating: 5, Comment: "excellent"})
	require.NoError(t, err)

	assert.Equal(t, 4.0, updated.Rating)
	assert.Len(t, updated.Reviews, 2)
}

func TestAddReviewTwiceRejected(t *testing.T) {
	svc, f := newBookService(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)

	_, err := svc.AddReview(ctx, book.ID, member, &AddReviewInput{Rating: 4, Comment: "good"})
	require.NoError(t, err)

	_, err = svc.AddReview(ctx, book.ID, member, &AddReviewInput{Rating: 5, Comment: "changed my mind"})
	assert.ErrorIs(t, err, ErrAlreadyRated)
}

func TestAddReviewUnknownBook(t *testing.T) {
	svc, f := newBookService(t)

	member := f.seedUser(t, domain.RoleMember)
	_, err := svc.AddReview(context.Background(), 9999, member, &AddReviewInput{Rating: 4, Comment: "good"})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestListBooksFilters(t *testing.T) {
	svc, f := newBookService(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&models.Book{
		ISBN: "978-1", Title: "Clean Code", Author: "Martin", Category: "Programming",
		TotalCopies: 1, AvailableCopies: 1,
	}).Error)
	require.NoError(t, f.db.Create(&models.Book{
		ISBN: "978-2", Title: "Dune", Author: "Herbert", Category: "Fiction", Featured: true,
		TotalCopies: 1, AvailableCopies: 1,
	}).Error)

	out, err := svc.List(ctx, &ListBooksInput{Category: "Fiction"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.Total)

	out, err = svc.List(ctx, &ListBooksInput{Search: "clean"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.Total)

	featured := true
	out, err = svc.List(ctx, &ListBooksInput{Featured: &featured})
	require.NoError(t, err)
	require.Len(t, out.Books, 1)
	assert.Equal(t, "Dune", out.Books[0].Title)
}
