package config

import (
	"log"

	"gorm.io/gorm"

	"shelfdesk/internal/adapters/persistence/models"
	"shelfdesk/internal/core/domain"
	"shelfdesk/internal/pkg/password"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	if s.cfg.IsDev() {
		if err := s.seedLibrarianUser(); err != nil {
			log.Printf("⚠️ Librarian seeder skipped: %v", err)
		}
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds the default admin account if no admin exists.
// In production the password must be rotated immediately after first login.
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", string(domain.RoleAdmin)).Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:         "System Administrator",
		Email:        "admin@shelfdesk.local",
		Password:     hashedPassword,
		Role:         string(domain.RoleAdmin),
		MembershipNo: "LIB-00001",
		IsActive:     true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Email)
	return nil
}

// seedLibrarianUser seeds a librarian account for development
func (s *Seeder) seedLibrarianUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", string(domain.RoleLibrarian)).Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := password.Hash("librarian123")
	if err != nil {
		return err
	}

	librarian := &models.User{
		Name:         "Front Desk Librarian",
		Email:        "librarian@shelfdesk.local",
		Password:     hashedPassword,
		Role:         string(domain.RoleLibrarian),
		MembershipNo: "LIB-00002",
		IsActive:     true,
	}

	if err := s.db.Create(librarian).Error; err != nil {
		return err
	}

	log.Printf("✅ Librarian user created: %s", librarian.Email)
	return nil
}
