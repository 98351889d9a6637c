package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/search"
	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used as a test double. It
// filters through the same search predicates as PostgresRepository.
type MemoryRepository struct {
	mu        sync.RWMutex
	users     map[int64]*models.User
	batteries map[int64]*models.Battery
	inquiries []*models.Inquiry
	logins    []*models.LoginEvent
	nextID    map[string]int64
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[int64]*models.User),
		batteries: make(map[int64]*models.Battery),
		nextID:    make(map[string]int64),
	}
}

func (r *MemoryRepository) id(table string) int64 {
	r.nextID[table]++
	return r.nextID[table]
}

func (r *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loginTakenLocked(user.Username, user.Email) {
		return fmt.Errorf("user %q: %w", user.Username, apperr.ErrConflict)
	}

	user.ID = r.id("users")
	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (r *MemoryRepository) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == login {
			c := *u
			return &c, nil
		}
	}
	email := strings.ToLower(login)
	for _, u := range r.users {
		if u.Email != "" && u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", login, apperr.ErrNotFound)
}

func (r *MemoryRepository) LoginTaken(_ context.Context, username, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loginTakenLocked(username, email), nil
}

// loginTakenLocked reports whether either key collides with any user's
// username or email
func (r *MemoryRepository) loginTakenLocked(username, email string) bool {
	keys := []string{username}
	if email != "" {
		keys = append(keys, email)
	}
	for _, u := range r.users {
		for _, key := range keys {
			if u.Username == key || (u.Email != "" && u.Email == strings.ToLower(key)) {
				return true
			}
		}
	}
	return false
}

func (r *MemoryRepository) HasAdmin(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.IsAdmin() {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) CreateBattery(_ context.Context, battery *models.Battery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[battery.UserID]; !ok {
		return fmt.Errorf("owner %d: %w", battery.UserID, apperr.ErrNotFound)
	}

	battery.ID = r.id("batteries")
	r.batteries[battery.ID] = battery.Clone()
	return nil
}

func (r *MemoryRepository) GetBattery(_ context.Context, id int64) (*models.Battery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.batteries[id]
	if !ok {
		return nil, fmt.Errorf("battery %d: %w", id, apperr.ErrNotFound)
	}
	return b.Clone(), nil
}

func (r *MemoryRepository) GetBatteryByReference(_ context.Context, ref uuid.UUID) (*models.Battery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.batteries {
		if b.Reference == ref {
			return b.Clone(), nil
		}
	}
	return nil, fmt.Errorf("battery %s: %w", ref, apperr.ErrNotFound)
}

func (r *MemoryRepository) FindBatteries(_ context.Context, q search.Query) ([]*models.Battery, error) {
	r.mu.RLock()
	all := make([]*models.Battery, 0, len(r.batteries))
	for _, b := range r.batteries {
		all = append(all, b.Clone())
	}
	r.mu.RUnlock()

	return q.Apply(all), nil
}

func (r *MemoryRepository) UpdateBattery(_ context.Context, battery *models.Battery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batteries[battery.ID]; !ok {
		return fmt.Errorf("battery %d: %w", battery.ID, apperr.ErrNotFound)
	}
	r.batteries[battery.ID] = battery.Clone()
	return nil
}

func (r *MemoryRepository) DeleteBattery(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batteries[id]; !ok {
		return fmt.Errorf("battery %d: %w", id, apperr.ErrNotFound)
	}
	delete(r.batteries, id)
	return nil
}

func (r *MemoryRepository) CreateInquiry(_ context.Context, inquiry *models.Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.batteries[inquiry.BatteryID]; !ok {
		return fmt.Errorf("battery %d: %w", inquiry.BatteryID, apperr.ErrNotFound)
	}

	inquiry.ID = r.id("inquiries")
	c := *inquiry
	r.inquiries = append(r.inquiries, &c)
	return nil
}

func (r *MemoryRepository) ListInquiries(_ context.Context, limit int) ([]*models.Inquiry, error) {
	r.mu.RLock()
	out := make([]*models.Inquiry, 0, len(r.inquiries))
	for _, i := range r.inquiries {
		c := *i
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

func (r *MemoryRepository) RecordLogin(_ context.Context, event *models.LoginEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = r.id("logins")
	c := *event
	r.logins = append(r.logins, &c)
	return nil
}

func (r *MemoryRepository) ListLogins(_ context.Context, limit int) ([]*models.LoginEvent, error) {
	r.mu.RLock()
	out := make([]*models.LoginEvent, 0, len(r.logins))
	for _, e := range r.logins {
		c := *e
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && limit < len(items) {
		return items[:limit]
	}
	return items
}
