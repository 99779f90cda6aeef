package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/adapters/persistence/repositories"
	"shelfdesk/internal/core/domain"
)

// CirculationService owns the loan lifecycle: issue, return, renew, the
// overdue sweep and lost handling. It is the only writer of circulation
// records, and every status change goes through the transition table in
// the domain package, so no code path can produce an illegal transition.
type CirculationService struct {
	db       *gorm.DB
	circRepo *repositories.CirculationRepository
	bookRepo *repositories.BookRepository
	userRepo repositories.UserRepository
	loanDays int
	now      func() time.Time
}

// NewCirculationService creates a new circulation service. loanDays is the
// default loan period applied when an issue request carries no due date.
func NewCirculationService(
	db *gorm.DB,
	circRepo *repositories.CirculationRepository,
	bookRepo *repositories.BookRepository,
	userRepo repositories.UserRepository,
	loanDays int,
) *CirculationService {
	if loanDays < 1 {
		loanDays = 14
	}
	return &CirculationService{
		db:       db,
		circRepo: circRepo,
		bookRepo: bookRepo,
		userRepo: userRepo,
		loanDays: loanDays,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests use this to pin time.
func (s *CirculationService) WithClock(now func() time.Time) *CirculationService {
	s.now = now
	return s
}

// IssueInput represents issue book input
type IssueInput struct {
	BookID  uint       `json:"book_id" validate:"required"`
	UserID  uint       `json:"user_id" validate:"required"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Notes   string     `json:"notes,omitempty"`
}

// Issue lends one copy of a book to a borrower. The availability check and
// the counter decrement are one conditional UPDATE inside the same
// transaction as the duplicate-loan check and the record insert, so
// concurrent issues on the last copy cannot both succeed and a failed
// insert rolls the counter back.
func (s *CirculationService) Issue(ctx context.Context, input *IssueInput, staffID uint) (*models.CirculationRecord, error) {
	book, err := s.bookRepo.GetByID(ctx, input.BookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}

	if _, err := s.userRepo.GetByID(ctx, input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	now := s.now()
	dueDate := now.AddDate(0, 0, s.loanDays)
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}

	record := &models.CirculationRecord{
		BookID:    input.BookID,
		UserID:    input.UserID,
		IssuedBy:  &staffID,
		IssueDate: now,
		DueDate:   dueDate,
		Status:    string(domain.StatusBorrowed),
		Notes:     input.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One active loan per user per title. Checked inside the
		// transaction so two concurrent issues for the same borrower
		// cannot both slip past it.
		if _, err := s.circRepo.WithTx(tx).FindActiveLoan(ctx, input.BookID, input.UserID); err == nil {
			return domain.ErrDuplicateLoan
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.bookRepo.WithTx(tx).DecrementAvailable(ctx, input.BookID); err != nil {
			return err
		}
		return s.circRepo.WithTx(tx).Create(ctx, record)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			log.Printf("🚨 INVARIANT VIOLATION: negative available_copies for book %d (isbn %s)", book.ID, book.ISBN)
		}
		return nil, err
	}

	log.Printf("✅ Book issued: %q to user %d, due %s", book.Title, input.UserID, dueDate.Format("2006-01-02"))
	return s.circRepo.GetByID(ctx, record.ID)
}

// Return closes a loan: stamps the return, fixes the fine for late returns
// and gives the copy back to the shelf. Record update and counter increment
// commit together or not at all. A concurrent writer on the same record
// triggers one re-read and retry; the terminal check runs again on the
// fresh state, so a return that raced another return is rejected.
func (s *CirculationService) Return(ctx context.Context, recordID uint, staffID uint) (*models.CirculationRecord, error) {
	for attempt := 0; ; attempt++ {
		record, err := s.circRepo.GetByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrRecordNotFound
			}
			return nil, err
		}

		status := record.CirculationStatus()
		if !status.CanTransition(domain.StatusReturned) {
			return nil, domain.ErrAlreadyReturned
		}

		now := s.now()
		record.ReturnDate = &now
		record.ReturnedTo = &staffID
		record.Fine = domain.CalculateFine(record.DueDate, now)
		record.Status = string(domain.StatusReturned)

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.circRepo.WithTx(tx).UpdateWithVersion(ctx, record); err != nil {
				return err
			}
			return s.bookRepo.WithTx(tx).IncrementAvailable(ctx, record.BookID)
		})
		if errors.Is(err, domain.ErrStaleRecord) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}

		if record.Fine > 0 {
			log.Printf("💰 Late return on record %d: fine %.2f", record.ID, record.Fine)
		}
		return s.circRepo.GetByID(ctx, record.ID)
	}
}

// Renew extends a loan by 14 days counted from the current due date, never
// from now, so renewing an overdue loan pushes exactly 14 days past the due
// date that stands. Only the borrower or staff may renew, and only twice.
func (s *CirculationService) Renew(ctx context.Context, recordID uint, requesterID uint, requesterRole domain.Role) (*models.CirculationRecord, error) {
	for attempt := 0; ; attempt++ {
		record, err := s.circRepo.GetByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrRecordNotFound
			}
			return nil, err
		}

		status := record.CirculationStatus()
		if !status.CanTransition(domain.StatusRenewed) {
			return nil, domain.ErrAlreadyReturned
		}
		if record.RenewalCount >= domain.MaxRenewals {
			return nil, domain.ErrRenewalLimitReached
		}
		if record.UserID != requesterID && !requesterRole.IsStaff() {
			return nil, domain.ErrNotAuthorized
		}

		record.DueDate = record.DueDate.AddDate(0, 0, domain.RenewalDays)
		record.Status = string(domain.StatusRenewed)
		record.RenewalCount++

		err = s.circRepo.UpdateWithVersion(ctx, record)
		if errors.Is(err, domain.ErrStaleRecord) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}

		log.Printf("🔄 Loan %d renewed (%d/%d), new due date %s",
			record.ID, record.RenewalCount, domain.MaxRenewals, record.DueDate.Format("2006-01-02"))
		return s.circRepo.GetByID(ctx, record.ID)
	}
}

// SweepOverdue transitions every borrowed or renewed record past its due
// date to overdue and returns the records it flipped. The sweep is the sole
// authority for that transition; nothing flips records to overdue on read.
// Safe to call repeatedly and concurrently: records already overdue are not
// selected, and a record returned mid-sweep fails the version check and is
// skipped rather than dragged back to overdue.
func (s *CirculationService) SweepOverdue(ctx context.Context) ([]*models.CirculationRecord, error) {
	now := s.now()
	candidates, err := s.circRepo.ListDueBefore(ctx, now)
	if err != nil {
		return nil, err
	}

	updated := make([]*models.CirculationRecord, 0, len(candidates))
	for _, record := range candidates {
		record.Status = string(domain.StatusOverdue)
		if err := s.circRepo.UpdateWithVersion(ctx, record); err != nil {
			if errors.Is(err, domain.ErrStaleRecord) {
				// Raced a return or renew; the other write wins.
				continue
			}
			return updated, err
		}
		updated = append(updated, record)
	}

	if len(updated) > 0 {
		log.Printf("⏰ Overdue sweep: %d record(s) marked overdue", len(updated))
	}
	return updated, nil
}

// MarkLost moves an active loan to the terminal lost state. The copy is
// gone, so availability is not restored.
func (s *CirculationService) MarkLost(ctx context.Context, recordID uint, staffID uint) (*models.CirculationRecord, error) {
	record, err := s.circRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}

	if !record.CirculationStatus().CanTransition(domain.StatusLost) {
		return nil, domain.ErrAlreadyReturned
	}

	record.Status = string(domain.StatusLost)
	record.ReturnedTo = &staffID
	if err := s.circRepo.UpdateWithVersion(ctx, record); err != nil {
		return nil, err
	}

	log.Printf("📕 Loan %d marked lost", record.ID)
	return s.circRepo.GetByID(ctx, record.ID)
}

// GetByID gets a circulation record
func (s *CirculationService) GetByID(ctx context.Context, recordID uint) (*models.CirculationRecord, error) {
	record, err := s.circRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListInput represents circulation list input
type ListInput struct {
	Page   int
	Limit  int
	Status string
	BookID *uint
	UserID *uint
}

// ListOutput represents circulation list output
type ListOutput struct {
	Records    []*models.CirculationResponse `json:"records"`
	Total      int64                         `json:"total"`
	Page       int                           `json:"page"`
	Limit      int                           `json:"limit"`
	TotalPages int                           `json:"total_pages"`
}

// List lists circulation records
func (s *CirculationService) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	filter := &repositories.CirculationFilter{
		Status: input.Status,
		BookID: input.BookID,
		UserID: input.UserID,
	}

	offset := (input.Page - 1) * input.Limit
	records, total, err := s.circRepo.List(ctx, filter, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.CirculationResponse, len(records))
	for i, record := range records {
		responses[i] = record.ToResponse()
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListOutput{
		Records:    responses,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// ListUserActive lists a user's loans that still hold a copy
func (s *CirculationService) ListUserActive(ctx context.Context, userID uint) ([]*models.CirculationRecord, error) {
	return s.circRepo.ListActiveByUser(ctx, userID)
}

// ListUserHistory lists a user's full borrowing history
func (s *CirculationService) ListUserHistory(ctx context.Context, userID uint) ([]*models.CirculationRecord, error) {
	return s.circRepo.ListByUser(ctx, userID)
}

// ListOverdue runs the sweep, then returns everything currently overdue
// (freshly flipped records plus those from earlier sweeps)
func (s *CirculationService) ListOverdue(ctx context.Context) ([]*models.CirculationRecord, error) {
	if _, err := s.SweepOverdue(ctx); err != nil {
		return nil, err
	}
	return s.circRepo.ListOverdue(ctx)
}
