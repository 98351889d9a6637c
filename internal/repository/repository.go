// Package repository persists users, listings, inquiries and login history.
package repository

import (
	"context"

	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/search"
	"github.com/google/uuid"
)

// Repository is the catalog store. Lookups of missing rows return an error
// matching apperr.ErrNotFound; unique key violations match apperr.ErrConflict.
type Repository interface {
	// CreateUser inserts user and assigns its ID.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// GetUserByLogin looks a user up by username, then by lowercased email.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	// LoginTaken reports whether username or a non-empty email is already
	// registered as anyone's username or email.
	LoginTaken(ctx context.Context, username, email string) (bool, error)
	HasAdmin(ctx context.Context) (bool, error)

	// CreateBattery inserts battery and assigns its ID.
	CreateBattery(ctx context.Context, battery *models.Battery) error
	GetBattery(ctx context.Context, id int64) (*models.Battery, error)
	GetBatteryByReference(ctx context.Context, ref uuid.UUID) (*models.Battery, error)
	FindBatteries(ctx context.Context, q search.Query) ([]*models.Battery, error)
	UpdateBattery(ctx context.Context, battery *models.Battery) error
	DeleteBattery(ctx context.Context, id int64) error

	// CreateInquiry inserts inquiry and assigns its ID.
	CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error
	ListInquiries(ctx context.Context, limit int) ([]*models.Inquiry, error)

	RecordLogin(ctx context.Context, event *models.LoginEvent) error
	ListLogins(ctx context.Context, limit int) ([]*models.LoginEvent, error)
}
