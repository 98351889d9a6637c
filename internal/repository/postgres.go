package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/search"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const userColumns = `id, username, COALESCE(email, ''), password_hash, company, phone, location, country, role, created_at`

const batteryColumns = `id, reference, user_id, title, description, price, listing_type, availability, rental_period,
	battery_type, category, technology_type, capacity, voltage, current_rating, cycle_count, health_percentage,
	dimensions, weight, manufacturer, model_number, year_of_manufacture, warranty, certifications, images,
	additional_specs, location, country, created_at, updated_at`

const inquiryColumns = `id, user_id, battery_id, message, contact_email, status, created_at`

const loginColumns = `id, user_id, login_key, ip_address, user_agent, created_at`

// PostgresRepository implements Repository on a pgx connection pool. Every
// call is bounded by the configured query timeout.
type PostgresRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
	logger  *zap.Logger
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool, timeout time.Duration, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		timeout: timeout,
		logger:  logger,
	}
}

func (r *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// mapError translates driver errors into the repository sentinels
func mapError(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %s: %w", what, pgErr.ConstraintName, apperr.ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", what, pgErr.ConstraintName, apperr.ErrNotFound)
		}
	}

	return fmt.Errorf("%s: %w", what, err)
}

// CreateUser creates a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (username, email, password_hash, company, phone, location, country, role, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Company,
		user.Phone,
		user.Location,
		user.Country,
		string(user.Role),
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return mapError(err, "failed to create user %q", user.Username)
	}

	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Company,
		&user.Phone,
		&user.Location,
		&user.Country,
		&user.Role,
		&user.CreatedAt,
	)
	return user, err
}

// GetUserByID retrieves a user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "failed to get user %d", id)
	}
	return user, nil
}

// GetUserByLogin retrieves a user by username, falling back to email
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 OR email = lower($1)
		ORDER BY (username = $1) DESC
		LIMIT 1
	`

	user, err := scanUser(r.db.QueryRow(ctx, query, login))
	if err != nil {
		return nil, mapError(err, "failed to get user by login")
	}
	return user, nil
}

// LoginTaken checks if a username or email is already used as either login
// key by any user
func (r *PostgresRepository) LoginTaken(ctx context.Context, username, email string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE username = $1 OR email = lower($1)
			   OR ($2 <> '' AND (username = $2 OR email = lower($2)))
		)
	`

	if err := r.db.QueryRow(ctx, query, username, email).Scan(&exists); err != nil {
		return false, mapError(err, "failed to check login")
	}
	return exists, nil
}

// HasAdmin reports whether an administrative user exists
func (r *PostgresRepository) HasAdmin(ctx context.Context) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE role = $1)`

	if err := r.db.QueryRow(ctx, query, string(models.RoleAdmin)).Scan(&exists); err != nil {
		return false, mapError(err, "failed to check admin")
	}
	return exists, nil
}

// CreateBattery creates a new listing
func (r *PostgresRepository) CreateBattery(ctx context.Context, b *models.Battery) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO batteries (
			reference, user_id, title, description, price, listing_type, availability, rental_period,
			battery_type, category, technology_type, capacity, voltage, current_rating, cycle_count,
			health_percentage, dimensions, weight, manufacturer, model_number, year_of_manufacture,
			warranty, certifications, images, additional_specs, location, country, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		b.Reference,
		b.UserID,
		b.Title,
		b.Description,
		b.Price,
		string(b.ListingType),
		b.Availability,
		b.RentalPeriod,
		string(b.BatteryType),
		string(b.Category),
		b.TechnologyType,
		b.Capacity,
		b.Voltage,
		b.CurrentRating,
		b.CycleCount,
		b.HealthPercentage,
		b.Dimensions,
		b.Weight,
		b.Manufacturer,
		b.ModelNumber,
		b.YearOfManufacture,
		b.Warranty,
		b.Certifications,
		b.Images,
		b.AdditionalSpecs,
		b.Location,
		b.Country,
		b.CreatedAt,
		b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return mapError(err, "failed to create battery")
	}

	r.logger.Info("Battery listing created",
		zap.Int64("battery_id", b.ID),
		zap.Int64("user_id", b.UserID))

	return nil
}

func scanBattery(row pgx.Row) (*models.Battery, error) {
	b := &models.Battery{}
	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.UserID,
		&b.Title,
		&b.Description,
		&b.Price,
		&b.ListingType,
		&b.Availability,
		&b.RentalPeriod,
		&b.BatteryType,
		&b.Category,
		&b.TechnologyType,
		&b.Capacity,
		&b.Voltage,
		&b.CurrentRating,
		&b.CycleCount,
		&b.HealthPercentage,
		&b.Dimensions,
		&b.Weight,
		&b.Manufacturer,
		&b.ModelNumber,
		&b.YearOfManufacture,
		&b.Warranty,
		&b.Certifications,
		&b.Images,
		&b.AdditionalSpecs,
		&b.Location,
		&b.Country,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

// GetBattery retrieves a listing by ID
func (r *PostgresRepository) GetBattery(ctx context.Context, id int64) (*models.Battery, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + batteryColumns + ` FROM batteries WHERE id = $1`

	b, err := scanBattery(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "failed to get battery %d", id)
	}
	return b, nil
}

// GetBatteryByReference retrieves a listing by its public reference
func (r *PostgresRepository) GetBatteryByReference(ctx context.Context, ref uuid.UUID) (*models.Battery, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + batteryColumns + ` FROM batteries WHERE reference = $1`

	b, err := scanBattery(r.db.QueryRow(ctx, query, ref))
	if err != nil {
		return nil, mapError(err, "failed to get battery %s", ref)
	}
	return b, nil
}

// FindBatteries runs a search query, most recent listings first
func (r *PostgresRepository) FindBatteries(ctx context.Context, q search.Query) ([]*models.Battery, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	where := q.Where
	if where == nil {
		where = search.And()
	}

	clause, args := search.Render(where, 1)
	query := `SELECT ` + batteryColumns + ` FROM batteries WHERE ` + clause + ` ORDER BY ` + search.OrderBy
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to query batteries")
	}
	defer rows.Close()

	batteries := make([]*models.Battery, 0)
	for rows.Next() {
		b, err := scanBattery(rows)
		if err != nil {
			return nil, mapError(err, "failed to scan battery row")
		}
		batteries = append(batteries, b)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to iterate batteries")
	}

	return batteries, nil
}

// UpdateBattery writes every mutable column of a listing
func (r *PostgresRepository) UpdateBattery(ctx context.Context, b *models.Battery) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE batteries SET
			title = $2, description = $3, price = $4, listing_type = $5, availability = $6,
			rental_period = $7, battery_type = $8, category = $9, technology_type = $10, capacity = $11,
			voltage = $12, current_rating = $13, cycle_count = $14, health_percentage = $15,
			dimensions = $16, weight = $17, manufacturer = $18, model_number = $19,
			year_of_manufacture = $20, warranty = $21, certifications = $22, images = $23,
			additional_specs = $24, location = $25, country = $26, updated_at = $27
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		b.ID,
		b.Title,
		b.Description,
		b.Price,
		string(b.ListingType),
		b.Availability,
		b.RentalPeriod,
		string(b.BatteryType),
		string(b.Category),
		b.TechnologyType,
		b.Capacity,
		b.Voltage,
		b.CurrentRating,
		b.CycleCount,
		b.HealthPercentage,
		b.Dimensions,
		b.Weight,
		b.Manufacturer,
		b.ModelNumber,
		b.YearOfManufacture,
		b.Warranty,
		b.Certifications,
		b.Images,
		b.AdditionalSpecs,
		b.Location,
		b.Country,
		b.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "failed to update battery %d", b.ID)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("battery %d: %w", b.ID, apperr.ErrNotFound)
	}

	return nil
}

// DeleteBattery permanently removes a listing
func (r *PostgresRepository) DeleteBattery(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result, err := r.db.Exec(ctx, `DELETE FROM batteries WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "failed to delete battery %d", id)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("battery %d: %w", id, apperr.ErrNotFound)
	}

	return nil
}

// CreateInquiry stores an inquiry about a listing
func (r *PostgresRepository) CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO inquiries (user_id, battery_id, message, contact_email, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		inquiry.UserID,
		inquiry.BatteryID,
		inquiry.Message,
		inquiry.ContactEmail,
		string(inquiry.Status),
		inquiry.CreatedAt,
	).Scan(&inquiry.ID)
	if err != nil {
		return mapError(err, "failed to create inquiry")
	}

	return nil
}

// ListInquiries returns inquiries, newest first
func (r *PostgresRepository) ListInquiries(ctx context.Context, limit int) ([]*models.Inquiry, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + inquiryColumns + ` FROM inquiries ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to query inquiries")
	}
	defer rows.Close()

	inquiries := make([]*models.Inquiry, 0)
	for rows.Next() {
		i := &models.Inquiry{}
		if err := rows.Scan(&i.ID, &i.UserID, &i.BatteryID, &i.Message, &i.ContactEmail, &i.Status, &i.CreatedAt); err != nil {
			return nil, mapError(err, "failed to scan inquiry row")
		}
		inquiries = append(inquiries, i)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to iterate inquiries")
	}

	return inquiries, nil
}

// RecordLogin appends a login history entry
func (r *PostgresRepository) RecordLogin(ctx context.Context, event *models.LoginEvent) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO login_history (user_id, login_key, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		event.UserID,
		event.LoginKey,
		event.IPAddress,
		event.UserAgent,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return mapError(err, "failed to record login")
	}

	return nil
}

// ListLogins returns login history, newest first
func (r *PostgresRepository) ListLogins(ctx context.Context, limit int) ([]*models.LoginEvent, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + loginColumns + ` FROM login_history ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to query login history")
	}
	defer rows.Close()

	events := make([]*models.LoginEvent, 0)
	for rows.Next() {
		e := &models.LoginEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.LoginKey, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, mapError(err, "failed to scan login row")
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to iterate login history")
	}

	return events, nil
}
