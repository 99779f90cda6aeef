package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
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

type circFixture struct {
	db      *gorm.DB
	service *CirculationService
	now     time.Time
}

func newCircFixture(t *testing.T) *circFixture {
	t.Helper()

	db := newTestDB(t)
	f := &circFixture{
		db:  db,
		now: time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
	}

	f.service = NewCirculationService(
		db,
		repositories.NewCirculationRepository(db),
		repositories.NewBookRepository(db),
		repositories.NewUserRepository(db),
		14,
	).WithClock(func() time.Time { return f.now })

	return f
}

// advance moves the fixture clock forward
func (f *circFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *circFixture) seedBook(t *testing.T, copies int) *models.Book {
	t.Helper()

	book := &models.Book{
		ISBN:            fmt.Sprintf("978-0-00-%06d-0", time.Now().UnixNano()%1000000),
		Title:           "The Go Programming Language",
		Author:          "Donovan & Kernighan",
		Category:        "Programming",
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, f.db.Create(book).Error)
	return book
}

func (f *circFixture) seedUser(t *testing.T, role domain.Role) *models.User {
	t.Helper()

	var count int64
	f.db.Model(&models.User{}).Count(&count)

	user := &models.User{
		Name:         "Test User",
		Email:        fmt.Sprintf("user%d@example.com", count+1),
		Password:     "not-a-real-hash",
		Role:         string(role),
		MembershipNo: fmt.Sprintf("LIB-%05d", count+1),
		IsActive:     true,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *circFixture) availableCopies(t *testing.T, bookID uint) int {
	t.Helper()

	var book models.Book
	require.NoError(t, f.db.First(&book, bookID).Error)
	return book.AvailableCopies
}

func TestIssueDecrementsAvailability(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	record, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusBorrowed), record.Status)
	assert.Equal(t, f.now.AddDate(0, 0, 14), record.DueDate)
	assert.Equal(t, 0, f.availableCopies(t, book.ID))
}

func TestIssueLastCopyTwiceFails(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	first := f.seedUser(t, domain.RoleMember)
	second := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	_, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: first.ID}, staff.ID)
	require.NoError(t, err)

	_, err = f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: second.ID}, staff.ID)
	assert.ErrorIs(t, err, domain.ErrBookUnavailable)
	assert.Equal(t, 0, f.availableCopies(t, book.ID))
}

func TestIssueDuplicateLoanRejected(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 3)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	_, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	_, err = f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	assert.ErrorIs(t, err, domain.ErrDuplicateLoan)

	// The failed issue must not leak a copy.
	assert.Equal(t, 2, f.availableCopies(t, book.ID))
}

func TestIssueUnknownBookOrUser(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	staff := f.seedUser(t, domain.RoleLibrarian)

	_, err := f.service.Issue(ctx, &IssueInput{BookID: 9999, UserID: staff.ID}, staff.ID)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	_, err = f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: 9999}, staff.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestIssueWithExplicitDueDate(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	due := f.now.AddDate(0, 0, 3)
	record, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID, DueDate: &due}, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, due, record.DueDate)
}

func TestReturnOnTime(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	f.advance(7 * 24 * time.Hour)

	returned, err := f.service.Return(ctx, issued.ID, staff.ID)
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusReturned), returned.Status)
	assert.Zero(t, returned.Fine)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, 1, f.availableCopies(t, book.ID))
}

func TestReturnLateChargesFine(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	// 14-day loan returned 17 days after issue: 3 days late.
	f.advance(17 * 24 * time.Hour)

	returned, err := f.service.Return(ctx, issued.ID, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.50, returned.Fine)
}

func TestReturnTwiceRejected(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	_, err = f.service.Return(ctx, issued.ID, staff.ID)
	require.NoError(t, err)

	_, err = f.service.Return(ctx, issued.ID, staff.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyReturned)

	// The double return must not over-credit the shelf.
	assert.Equal(t, 1, f.availableCopies(t, book.ID))
}

func TestRenewExtendsFromCurrentDueDate(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)
	originalDue := issued.DueDate

	renewed, err := f.service.Renew(ctx, issued.ID, member.ID, domain.RoleMember)
	require.NoError(t, err)

	assert.Equal(t, originalDue.AddDate(0, 0, domain.RenewalDays), renewed.DueDate)
	assert.Equal(t, 1, renewed.RenewalCount)
	assert.Equal(t, string(domain.StatusRenewed), renewed.Status)
}

func TestRenewalLimit(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	for i := 0; i < domain.MaxRenewals; i++ {
		_, err = f.service.Renew(ctx, issued.ID, member.ID, domain.RoleMember)
		require.NoError(t, err)
	}

	_, err = f.service.Renew(ctx, issued.ID, member.ID, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrRenewalLimitReached)
}

func TestRenewAuthorization(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	borrower := f.seedUser(t, domain.RoleMember)
	stranger := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: borrower.ID}, staff.ID)
	require.NoError(t, err)

	_, err = f.service.Renew(ctx, issued.ID, stranger.ID, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	// Staff may renew on the borrower's behalf.
	renewed, err := f.service.Renew(ctx, issued.ID, staff.ID, domain.RoleLibrarian)
	require.NoError(t, err)
	assert.Equal(t, 1, renewed.RenewalCount)
}

func TestRenewClosedLoanRejected(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)
	_, err = f.service.Return(ctx, issued.ID, staff.ID)
	require.NoError(t, err)

	_, err = f.service.Renew(ctx, issued.ID, member.ID, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
}

func TestSweepOverdueFlipsPastDueLoans(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 2)
	late := f.seedUser(t, domain.RoleMember)
	onTime := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	lateLoan, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: late.ID}, staff.ID)
	require.NoError(t, err)

	f.advance(10 * 24 * time.Hour)
	currentLoan, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: onTime.ID}, staff.ID)
	require.NoError(t, err)

	f.advance(5 * 24 * time.Hour) // lateLoan now 1 day past due

	flipped, err := f.service.SweepOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, flipped, 1)
	assert.Equal(t, lateLoan.ID, flipped[0].ID)
	assert.Equal(t, string(domain.StatusOverdue), flipped[0].Status)

	fresh, err := f.service.GetByID(ctx, currentLoan.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusBorrowed), fresh.Status)
}

func TestSweepOverdueIsIdempotent(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	_, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	f.advance(15 * 24 * time.Hour)

	first, err := f.service.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := f.service.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestReturnAfterSweep(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	f.advance(16 * 24 * time.Hour) // 2 days past due
	_, err = f.service.SweepOverdue(ctx)
	require.NoError(t, err)

	returned, err := f.service.Return(ctx, issued.ID, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusReturned), returned.Status)
	assert.Equal(t, 1.00, returned.Fine)
	assert.Equal(t, 1, f.availableCopies(t, book.ID))
}

func TestRenewOverdueLoan(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)
	originalDue := issued.DueDate

	f.advance(16 * 24 * time.Hour)
	_, err = f.service.SweepOverdue(ctx)
	require.NoError(t, err)

	// Renewing an overdue loan counts from the standing due date, not now.
	renewed, err := f.service.Renew(ctx, issued.ID, member.ID, domain.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, originalDue.AddDate(0, 0, domain.RenewalDays), renewed.DueDate)
	assert.Equal(t, string(domain.StatusRenewed), renewed.Status)
}

func TestMarkLostIsTerminalAndKeepsCopyOffShelf(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	issued, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	lost, err := f.service.MarkLost(ctx, issued.ID, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusLost), lost.Status)

	// The copy is gone, so availability stays at zero.
	assert.Equal(t, 0, f.availableCopies(t, book.ID))

	_, err = f.service.Return(ctx, issued.ID, staff.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyReturned)

	_, err = f.service.Renew(ctx, issued.ID, member.ID, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
}

func TestListOverdueSweepsFirst(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	_, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	f.advance(20 * 24 * time.Hour)

	overdue, err := f.service.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, string(domain.StatusOverdue), overdue[0].Status)
}

func TestListUserActiveAndHistory(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	first := f.seedBook(t, 1)
	second := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	loanA, err := f.service.Issue(ctx, &IssueInput{BookID: first.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)
	_, err = f.service.Issue(ctx, &IssueInput{BookID: second.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	_, err = f.service.Return(ctx, loanA.ID, staff.ID)
	require.NoError(t, err)

	active, err := f.service.ListUserActive(ctx, member.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].BookID)

	history, err := f.service.ListUserHistory(ctx, member.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newCircFixture(t)
	ctx := context.Background()

	book := f.seedBook(t, 2)
	first := f.seedUser(t, domain.RoleMember)
	second := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	loanA, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: first.ID}, staff.ID)
	require.NoError(t, err)
	_, err = f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: second.ID}, staff.ID)
	require.NoError(t, err)

	_, err = f.service.Return(ctx, loanA.ID, staff.ID)
	require.NoError(t, err)

	out, err := f.service.List(ctx, &ListInput{Status: string(domain.StatusBorrowed)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, out.Total)
	require.Len(t, out.Records, 1)
	assert.Equal(t, second.ID, out.Records[0].UserID)
}
