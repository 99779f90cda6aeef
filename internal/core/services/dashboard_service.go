package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/core/domain"
)

// Dashboard service errors
var ErrUnknownReportType = errors.New("unknown report type")

// DashboardService handles admin dashboard aggregation
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// DashboardStats represents admin dashboard data
type DashboardStats struct {
	TotalBooks      int64 `json:"total_books"`
	AvailableCopies int64 `json:"available_copies"`
	TotalUsers      int64 `json:"total_users"`
	BorrowedBooks   int64 `json:"borrowed_books"`
	OverdueBooks    int64 `json:"overdue_books"`

	RecentActivity       []Activity     `json:"recent_activity"`
	PopularBooks         []PopularBook  `json:"popular_books"`
	CategoryDistribution []CategoryStat `json:"category_distribution"`
	MonthlyStats         []MonthlyStat  `json:"monthly_stats"`
}

// Activity represents a recent circulation action
type Activity struct {
	ID        uint      `json:"id"`
	Type      string    `json:"type"`
	User      string    `json:"user"`
	Book      string    `json:"book"`
	Timestamp time.Time `json:"timestamp"`
}

// PopularBook represents a most-borrowed book
type PopularBook struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	BorrowCount int64  `json:"borrow_count"`
}

// CategoryStat represents book count per category
type CategoryStat struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// MonthlyStat represents issues and returns in one month
type MonthlyStat struct {
	Month   string `json:"month"`
	Borrows int64  `json:"borrows"`
	Returns int64  `json:"returns"`
}

// GetStats returns the admin dashboard statistics
func (s *DashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	if err := s.db.WithContext(ctx).Table("books").Where("deleted_at IS NULL").
		Count(&stats.TotalBooks).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Table("books").Where("deleted_at IS NULL").
		Select("COALESCE(SUM(available_copies), 0)").Scan(&stats.AvailableCopies).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Table("users").Where("deleted_at IS NULL").
		Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Table("circulation_records").
		Where("status IN ?", []string{string(domain.StatusBorrowed), string(domain.StatusRenewed)}).
		Count(&stats.BorrowedBooks).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Table("circulation_records").
		Where("status = ?", string(domain.StatusOverdue)).
		Count(&stats.OverdueBooks).Error; err != nil {
		return nil, err
	}

	if err := s.loadRecentActivity(ctx, stats); err != nil {
		return nil, err
	}
	if err := s.loadPopularBooks(ctx, stats); err != nil {
		return nil, err
	}
	if err := s.loadCategoryDistribution(ctx, stats); err != nil {
		return nil, err
	}
	if err := s.loadMonthlyStats(ctx, stats); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *DashboardService) loadRecentActivity(ctx context.Context, stats *DashboardStats) error {
	rows := []struct {
		ID        uint
		Status    string
		UserName  string
		BookTitle string
		CreatedAt time.Time
	}{}

	err := s.db.WithContext(ctx).Table("circulation_records").
		Select("circulation_records.id, circulation_records.status, circulation_records.created_at, users.name AS user_name, books.title AS book_title").
		Joins("JOIN users ON users.id = circulation_records.user_id").
		Joins("JOIN books ON books.id = circulation_records.book_id").
		Order("circulation_records.created_at DESC").
		Limit(5).
		Scan(&rows).Error
	if err != nil {
		return err
	}

	stats.RecentActivity = make([]Activity, len(rows))
	for i, row := range rows {
		stats.RecentActivity[i] = Activity{
			ID:        row.ID,
			Type:      row.Status,
			User:      row.UserName,
			Book:      row.BookTitle,
			Timestamp: row.CreatedAt,
		}
	}
	return nil
}

func (s *DashboardService) loadPopularBooks(ctx context.Context, stats *DashboardStats) error {
	return s.db.WithContext(ctx).Table("circulation_records").
		Select("books.title, books.author, COUNT(*) AS borrow_count").
		Joins("JOIN books ON books.id = circulation_records.book_id").
		Group("books.id, books.title, books.author").
		Order("borrow_count DESC").
		Limit(5).
		Scan(&stats.PopularBooks).Error
}

func (s *DashboardService) loadCategoryDistribution(ctx context.Context, stats *DashboardStats) error {
	return s.db.WithContext(ctx).Table("books").
		Select("category AS name, COUNT(*) AS value").
		Where("deleted_at IS NULL").
		Group("category").
		Order("value DESC").
		Scan(&stats.CategoryDistribution).Error
}

// Report represents a date-ranged staff report
type Report struct {
	Type        string      `json:"type"`
	GeneratedAt time.Time   `json:"generated_at"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Data        interface{} `json:"data"`
}

// ReportBorrowCount represents one row of the popular-books report
type ReportBorrowCount struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Category    string `json:"category"`
	BorrowCount int64  `json:"borrow_count"`
}

// GenerateReport builds a staff report over [start, end]. A zero start
// means "from the beginning", a zero end means "until now". Supported
// types: circulation, overdue, inventory, users, popular-books.
func (s *DashboardService) GenerateReport(ctx context.Context, reportType string, start, end time.Time) (*Report, error) {
	now := time.Now()
	if end.IsZero() {
		end = now
	}

	report := &Report{
		Type:        reportType,
		GeneratedAt: now,
		StartDate:   start,
		EndDate:     end,
	}

	switch reportType {
	case "circulation":
		var records []*models.CirculationRecord
		err := s.db.WithContext(ctx).
			Preload("Book").
			Preload("User").
			Where("created_at >= ? AND created_at <= ?", start, end).
			Order("created_at DESC").
			Find(&records).Error
		if err != nil {
			return nil, err
		}
		report.Data = records

	case "overdue":
		var records []*models.CirculationRecord
		err := s.db.WithContext(ctx).
			Preload("Book").
			Preload("User").
			Where("status = ? AND created_at >= ? AND created_at <= ?", string(domain.StatusOverdue), start, end).
			Order("due_date ASC").
			Find(&records).Error
		if err != nil {
			return nil, err
		}
		report.Data = records

	case "inventory":
		var books []*models.Book
		err := s.db.WithContext(ctx).
			Where("created_at >= ? AND created_at <= ?", start, end).
			Order("title ASC").
			Find(&books).Error
		if err != nil {
			return nil, err
		}
		report.Data = books

	case "users":
		var users []*models.User
		err := s.db.WithContext(ctx).
			Where("created_at >= ? AND created_at <= ?", start, end).
			Order("name ASC").
			Find(&users).Error
		if err != nil {
			return nil, err
		}
		responses := make([]*models.UserResponse, len(users))
		for i, user := range users {
			responses[i] = user.ToResponse()
		}
		report.Data = responses

	case "popular-books":
		var rows []ReportBorrowCount
		err := s.db.WithContext(ctx).Table("circulation_records").
			Select("books.title, books.author, books.isbn, books.category, COUNT(*) AS borrow_count").
			Joins("JOIN books ON books.id = circulation_records.book_id").
			Where("circulation_records.created_at >= ? AND circulation_records.created_at <= ?", start, end).
			Group("books.id, books.title, books.author, books.isbn, books.category").
			Order("borrow_count DESC").
			Limit(20).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		report.Data = rows

	default:
		return nil, ErrUnknownReportType
	}

	return report, nil
}

// loadMonthlyStats fills issue/return counts for the last 6 months
func (s *DashboardService) loadMonthlyStats(ctx context.Context, stats *DashboardStats) error {
	now := time.Now()
	stats.MonthlyStats = make([]MonthlyStat, 0, 6)

	for i := 5; i >= 0; i-- {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -i, 0)
		monthEnd := monthStart.AddDate(0, 1, 0)

		var borrows, returns int64
		s.db.WithContext(ctx).Table("circulation_records").
			Where("issue_date >= ? AND issue_date < ?", monthStart, monthEnd).
			Count(&borrows)
		s.db.WithContext(ctx).Table("circulation_records").
			Where("return_date >= ? AND return_date < ?", monthStart, monthEnd).
			Count(&returns)

		stats.MonthlyStats = append(stats.MonthlyStats, MonthlyStat{
			Month:   monthStart.Format("Jan"),
			Borrows: borrows,
			Returns: returns,
		})
	}
	return nil
}
