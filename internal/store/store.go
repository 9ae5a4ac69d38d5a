package store

import (
	"context"
	"strings"
	"time"

	"github.com/joescharf/adreview/internal/models"
)

// ReportListFilter specifies filters for listing analysis history.
type ReportListFilter struct {
	UserEmail string
	Search    string // matched against title, summary, and document
	MinScore  *float64
	MaxScore  *float64
	Since     time.Time
	Limit     int
}

// Store defines the persistence interface for adreview.
type Store interface {
	// Analysis history
	SaveReport(ctx context.Context, r *models.ReportRecord) error
	GetReport(ctx context.Context, id string) (*models.ReportRecord, error)
	ListReports(ctx context.Context, filter ReportListFilter) ([]*models.ReportRecord, error)
	DeleteReport(ctx context.Context, id string) error
	UpdateRating(ctx context.Context, id string, rating models.Rating, humanCount int) (*models.ReportRecord, error)

	// Admin users
	UpsertAdmin(ctx context.Context, a *models.AdminUser) error
	GetAdmin(ctx context.Context, email string) (*models.AdminUser, error)
	ListAdmins(ctx context.Context) ([]*models.AdminUser, error)
	DeleteAdmin(ctx context.Context, email string) error
	CountAdmins(ctx context.Context) (int, error)
	// BootstrapAdmin grants a only while no admin exists. It reports whether
	// the grant was made.
	BootstrapAdmin(ctx context.Context, a *models.AdminUser) (bool, error)

	// Login history
	RecordLogin(ctx context.Context, e *models.LoginEvent) error
	ListLogins(ctx context.Context, limit int) ([]*models.LoginEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether err is a store lookup miss.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}
