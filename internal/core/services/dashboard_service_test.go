package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/core/domain"
)

func TestGetStatsCounts(t *testing.T) {
	f := newCircFixture(t)
	svc := NewDashboardService(f.db)
	ctx := context.Background()

	bookA := f.seedBook(t, 3)
	f.seedBook(t, 2)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	_, err := f.service.Issue(ctx, &IssueInput{BookID: bookA.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.TotalBooks)
	assert.EqualValues(t, 4, stats.AvailableCopies)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.BorrowedBooks)
	assert.EqualValues(t, 0, stats.OverdueBooks)
	require.Len(t, stats.RecentActivity, 1)
	assert.Equal(t, member.Name, stats.RecentActivity[0].User)
}

func TestGetStatsPropagatesQueryErrors(t *testing.T) {
	f := newCircFixture(t)
	svc := NewDashboardService(f.db)

	require.NoError(t, f.db.Migrator().DropTable(&models.CirculationRecord{}))

	_, err := svc.GetStats(context.Background())
	assert.Error(t, err)
}

func TestGenerateReportUnknownType(t *testing.T) {
	f := newCircFixture(t)
	svc := NewDashboardService(f.db)

	_, err := svc.GenerateReport(context.Background(), "payroll", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrUnknownReportType)
}

func TestCirculationReportFiltersByDate(t *testing.T) {
	f := newCircFixture(t)
	svc := NewDashboardService(f.db)
	ctx := context.Background()

	book := f.seedBook(t, 1)
	member := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	_, err := f.service.Issue(ctx, &IssueInput{BookID: book.ID, UserID: member.ID}, staff.ID)
	require.NoError(t, err)

	report, err := svc.GenerateReport(ctx, "circulation", time.Time{}, time.Time{})
	require.NoError(t, err)
	records, ok := report.Data.([]*models.CirculationRecord)
	require.True(t, ok)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Book)
	assert.Equal(t, book.Title, records[0].Book.Title)

	// A window that starts after the record was written is empty.
	report, err = svc.GenerateReport(ctx, "circulation", time.Now().Add(time.Hour), time.Time{})
	require.NoError(t, err)
	records, ok = report.Data.([]*models.CirculationRecord)
	require.True(t, ok)
	assert.Empty(t, records)
}

func TestPopularBooksReportOrdersByBorrowCount(t *testing.T) {
	f := newCircFixture(t)
	svc := NewDashboardService(f.db)
	ctx := context.Background()

	hit := f.seedBook(t, 3)
	other := f.seedBook(t, 3)
	alice := f.seedUser(t, domain.RoleMember)
	bob := f.seedUser(t, domain.RoleMember)
	staff := f.seedUser(t, domain.RoleLibrarian)

	_, err := f.service.Issue(ctx, &IssueInput{BookID: hit.ID, UserID: alice.ID}, staff.ID)
	require.NoError(t, err)
	_, err = f.service.Issue(ctx, &IssueInput{BookID: hit.ID, UserID: bob.ID}, staff.ID)
	require.NoError(t, err)
	_, err = f.service.Issue(ctx, &IssueInput{BookID: other.ID, UserID: alice.ID}, staff.ID)
	require.NoError(t, err)

	report, err := svc.GenerateReport(ctx, "popular-books", time.Time{}, time.Time{})
	require.NoError(t, err)
	rows, ok := report.Data.([]ReportBorrowCount)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, hit.ISBN, rows[0].ISBN)
	assert.EqualValues(t, 2, rows[0].BorrowCount)
}

func TestUsersReportOmitsPasswordHashes(t *testing.T) {
	f := newCircFixture(t)
	svc := NewDashboardService(f.db)
	ctx := context.Background()

	f.seedUser(t, domain.RoleMember)

	report, err := svc.GenerateReport(ctx, "users", time.Time{}, time.Time{})
	require.NoError(t, err)
	users, ok := report.Data.([]*models.UserResponse)
	require.True(t, ok)
	require.Len(t, users, 1)
	assert.NotEmpty(t, users[0].MembershipNo)
}
