package models

import (
	"time"

	"gorm.io/gorm"

	"shelfdesk/internal/core/domain"
)

// ============================================================
// Users & Auth
// ============================================================

// User represents users table
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password     string         `gorm:"size:255;not null" json:"-"`
	Role         string         `gorm:"size:20;default:'member'" json:"role"`
	Phone        string         `gorm:"size:30" json:"phone"`
	MembershipNo string         `gorm:"uniqueIndex;size:20;not null" json:"membership_no"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	MembershipNo string    `json:"membership_no"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Phone:        u.Phone,
		MembershipNo: u.MembershipNo,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog
// ============================================================

// Book represents books table. AvailableCopies is only ever mutated through
// the conditional increment/decrement statements in BookRepository so that
// 0 <= available_copies <= total_copies holds at all times.
type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ISBN            string         `gorm:"uniqueIndex;size:20;not null" json:"isbn"`
	Title           string         `gorm:"size:200;not null;index" json:"title"`
	Author          string         `gorm:"size:150;not null;index" json:"author"`
	Category        string         `gorm:"size:50;not null;index" json:"category"`
	Publisher       string         `gorm:"size:150" json:"publisher"`
	PublicationYear int            `json:"publication_year"`
	Description     string         `gorm:"type:text" json:"description"`
	Location        string         `gorm:"size:50" json:"location"`
	Language        string         `gorm:"size:30;default:'English'" json:"language"`
	Pages           int            `json:"pages"`
	CoverImage      string         `gorm:"size:255;default:'default-book-cover.jpg'" json:"cover_image"`
	Featured        bool           `gorm:"default:false" json:"featured"`
	Rating          float64        `gorm:"default:0" json:"rating"`
	TotalCopies     int            `gorm:"not null" json:"total_copies"`
	AvailableCopies int            `gorm:"not null" json:"available_copies"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Reviews []Review `gorm:"foreignKey:BookID" json:"reviews,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// Review represents reviews table (one review per user per book)
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    uint      `gorm:"not null;uniqueIndex:idx_reviews_book_user" json:"book_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reviews_book_user" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

// ============================================================
// Circulation
// ============================================================

// CirculationRecord represents circulation_records table, one row per
// physical-copy loan. Rows are never deleted; the table is the audit trail.
// Version backs the optimistic concurrency check in CirculationRepository.
type CirculationRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	BookID       uint       `gorm:"not null;index" json:"book_id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	IssuedBy     *uint      `json:"issued_by"`
	ReturnedTo   *uint      `json:"returned_to"`
	IssueDate    time.Time  `gorm:"not null" json:"issue_date"`
	DueDate      time.Time  `gorm:"not null;index" json:"due_date"`
	ReturnDate   *time.Time `json:"return_date"`
	Status       string     `gorm:"size:20;not null;default:'borrowed';index" json:"status"`
	Fine         float64    `gorm:"default:0" json:"fine"`
	RenewalCount int        `gorm:"default:0" json:"renewal_count"`
	Notes        string     `gorm:"type:text" json:"notes"`
	Version      uint       `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (CirculationRecord) TableName() string {
	return "circulation_records"
}

// CirculationStatus returns the typed status of the record
func (r *CirculationRecord) CirculationStatus() domain.Status {
	return domain.Status(r.Status)
}

// CirculationResponse DTO
type CirculationResponse struct {
	ID           uint       `json:"id"`
	BookID       uint       `json:"book_id"`
	BookTitle    string     `json:"book_title,omitempty"`
	BookISBN     string     `json:"book_isbn,omitempty"`
	UserID       uint       `json:"user_id"`
	UserName     string     `json:"user_name,omitempty"`
	IssueDate    time.Time  `json:"issue_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date"`
	Status       string     `json:"status"`
	Fine         float64    `json:"fine"`
	RenewalCount int        `json:"renewal_count"`
	Notes        string     `json:"notes,omitempty"`
}

func (r *CirculationRecord) ToResponse() *CirculationResponse {
	resp := &CirculationResponse{
		ID:           r.ID,
		BookID:       r.BookID,
		UserID:       r.UserID,
		IssueDate:    r.IssueDate,
		DueDate:      r.DueDate,
		ReturnDate:   r.ReturnDate,
		Status:       r.Status,
		Fine:         r.Fine,
		RenewalCount: r.RenewalCount,
		Notes:        r.Notes,
	}

	if r.Book != nil {
		resp.BookTitle = r.Book.Title
		resp.BookISBN = r.Book.ISBN
	}
	if r.User != nil {
		resp.UserName = r.User.Name
	}

	return resp
}

// ============================================================
// Events
// ============================================================

// Event represents library events table. Capacity 0 means unlimited seats.
type Event struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Location    string         `gorm:"size:200" json:"location"`
	Category    string         `gorm:"size:50" json:"category"`
	StartDate   time.Time      `gorm:"not null;index" json:"start_date"`
	EndDate     time.Time      `gorm:"not null" json:"end_date"`
	Capacity    int            `gorm:"default:0" json:"capacity"`
	Featured    bool           `gorm:"default:false" json:"featured"`
	CreatedBy   uint           `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Creator *User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (Event) TableName() string {
	return "events"
}

// EventRegistration represents event_registrations table, one row per
// attendee per event
type EventRegistration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;uniqueIndex:idx_event_regs_event_user" json:"event_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_event_regs_event_user" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (EventRegistration) TableName() string {
	return "event_registrations"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Book{},
		&Review{},
		&CirculationRecord{},
		&Event{},
		&EventRegistration{},
	)
}
