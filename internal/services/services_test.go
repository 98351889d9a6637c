package services

import (
	"context"
	"testing"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/crypto"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/repository"
	"github.com/denzelpenzel/battery-marketplace/internal/search"
	"github.com/denzelpenzel/battery-marketplace/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	repo      *repository.MemoryRepository
	sessions  *session.MemoryStore
	auth      *AuthService
	users     *UserService
	batteries *BatteryService
	inquiries *InquiryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	repo := repository.NewMemoryRepository()
	sessions := session.NewMemoryStore(0)
	validator := NewValidator()

	return &fixture{
		repo:      repo,
		sessions:  sessions,
		auth:      NewAuthService(repo, sessions, crypto.NewHasher(1024, 8, 1), validator, logger),
		users:     NewUserService(repo, logger),
		batteries: NewBatteryService(repo, validator, logger),
		inquiries: NewInquiryService(repo, validator, logger),
	}
}

func (f *fixture) register(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	user, token, err := f.auth.Register(context.Background(), &models.UserRegistration{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	}, ClientInfo{IPAddress: "127.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return user, token
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func stringPtr(v string) *string {
	return &v
}

func listingRequest(userID int64) *models.CreateBatteryRequest {
	return &models.CreateBatteryRequest{
		UserID:         userID,
		Title:          "Tesla Powerwall 2",
		Description:    "13.5 kWh home battery",
		Price:          decimalPtr(8500),
		ListingType:    models.ListingSell,
		BatteryType:    models.BatteryUsed,
		Category:       models.CategoryResidential,
		TechnologyType: "Lithium-ion",
		Capacity:       decimalPtr(13),
		Manufacturer:   "Tesla",
		Location:       "Austin",
		Country:        "USA",
	}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, token, err := f.auth.Register(ctx, &models.UserRegistration{
		Username: "  acme ",
		Email:    "Sales@Acme.COM",
		Password: "secret123",
		Company:  "Acme Storage",
	}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "acme", user.Username)
	assert.Equal(t, "sales@acme.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	resolved, err := f.sessions.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved)

	_, _, err = f.auth.Register(ctx, &models.UserRegistration{Username: "acme", Password: "another1"}, ClientInfo{})
	requireKind(t, err, apperr.KindConflict)

	_, _, err = f.auth.Register(ctx, &models.UserRegistration{Username: "ab", Password: "1"}, ClientInfo{})
	requireKind(t, err, apperr.KindValidation)

	byEmail, second, err := f.auth.Login(ctx, &models.UserLogin{Username: "sales@acme.com", Password: "secret123"}, ClientInfo{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.NotEqual(t, token, second)

	_, _, err = f.auth.Login(ctx, &models.UserLogin{Username: "acme", Password: "wrong-password"}, ClientInfo{})
	requireKind(t, err, apperr.KindUnauthenticated)

	_, _, err = f.auth.Login(ctx, &models.UserLogin{Username: "nobody", Password: "secret123"}, ClientInfo{})
	requireKind(t, err, apperr.KindUnauthenticated)

	logins, err := f.auth.ListLogins(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logins, 2)
	assert.Equal(t, "sales@acme.com", logins[0].LoginKey)
	assert.Equal(t, "10.0.0.1", logins[0].IPAddress)
}

func TestLoginRejectsMalformedStoredHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.repo.CreateUser(ctx, &models.User{Username: "legacy", PasswordHash: "not-a-hash"}))

	_, _, err := f.auth.Login(ctx, &models.UserLogin{Username: "legacy", Password: "whatever"}, ClientInfo{})
	requireKind(t, err, apperr.KindUnauthenticated)
}

func TestLoginKeysUniqueAcrossUsernameAndEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.auth.Register(ctx, &models.UserRegistration{Username: "bob@x.com", Password: "secret123"}, ClientInfo{})
	requireKind(t, err, apperr.KindValidation)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "username", appErr.Fields[0].Field)

	// a username stored before the rule existed still blocks the same email
	require.NoError(t, f.repo.CreateUser(ctx, &models.User{Username: "carol@x.com", PasswordHash: "x.y"}))
	_, _, err = f.auth.Register(ctx, &models.UserRegistration{Username: "carol", Email: "Carol@X.com", Password: "secret123"}, ClientInfo{})
	requireKind(t, err, apperr.KindConflict)

	bob, _, err := f.auth.Register(ctx, &models.UserRegistration{Username: "bob", Email: "bob@x.com", Password: "secret123"}, ClientInfo{})
	require.NoError(t, err)

	_, _, err = f.auth.Register(ctx, &models.UserRegistration{Username: "robert", Email: "BOB@x.com", Password: "secret123"}, ClientInfo{})
	requireKind(t, err, apperr.KindConflict)

	user, _, err := f.auth.Login(ctx, &models.UserLogin{Username: "BOB@X.COM", Password: "secret123"}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, user.ID)
}

func TestLoginUnknownUserStillVerifiesHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "seller")

	var encoded []string
	verify := f.auth.verify
	f.auth.verify = func(candidate, hash string) (bool, error) {
		encoded = append(encoded, hash)
		return verify(candidate, hash)
	}

	_, _, err := f.auth.Login(ctx, &models.UserLogin{Username: "nobody", Password: "secret123"}, ClientInfo{})
	requireKind(t, err, apperr.KindUnauthenticated)
	_, _, err = f.auth.Login(ctx, &models.UserLogin{Username: "seller", Password: "wrong-password"}, ClientInfo{})
	requireKind(t, err, apperr.KindUnauthenticated)

	require.Len(t, encoded, 2)
	assert.NotEmpty(t, encoded[0])
	assert.NotEqual(t, encoded[0], encoded[1])
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, token := f.register(t, "seller")

	require.NoError(t, f.auth.Logout(ctx, token))
	_, err := f.sessions.Resolve(ctx, token)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, f.auth.Logout(ctx, token))
	require.NoError(t, f.auth.Logout(ctx, ""))
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	admin, created, err := f.auth.SeedAdmin(ctx, "admin", "admin@example.com", "changeme")
	require.NoError(t, err)
	require.True(t, created)
	assert.True(t, admin.IsAdmin())

	_, created, err = f.auth.SeedAdmin(ctx, "admin2", "admin2@example.com", "changeme")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.users.RequireAdmin(ctx, admin.ID)
	require.NoError(t, err)

	member, _ := f.register(t, "member")
	_, err = f.users.RequireAdmin(ctx, member.ID)
	requireKind(t, err, apperr.KindForbidden)
}

func TestCreateBattery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, _ := f.register(t, "owner")

	b, err := f.batteries.CreateBattery(ctx, listingRequest(owner.ID))
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.True(t, b.Availability)
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)
	assert.NotNil(t, b.Certifications)
	assert.NotNil(t, b.AdditionalSpecs)

	byID, err := f.batteries.GetBattery(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, b.Reference, byID.Reference)

	byRef, err := f.batteries.GetBattery(ctx, b.Reference.String())
	require.NoError(t, err)
	assert.Equal(t, b.ID, byRef.ID)

	_, err = f.batteries.GetBattery(ctx, "42")
	requireKind(t, err, apperr.KindNotFound)
	_, err = f.batteries.GetBattery(ctx, "not-an-id")
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.batteries.CreateBattery(ctx, listingRequest(999))
	requireKind(t, err, apperr.KindNotFound)
}

func TestCreateBatteryValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, _ := f.register(t, "owner")

	tests := []struct {
		name   string
		mutate func(*models.CreateBatteryRequest)
		field  string
	}{
		{"missing title", func(r *models.CreateBatteryRequest) { r.Title = "" }, "title"},
		{"blank title", func(r *models.CreateBatteryRequest) { r.Title = "   " }, "title"},
		{"blank manufacturer", func(r *models.CreateBatteryRequest) { r.Manufacturer = " \t " }, "manufacturer"},
		{"blank country", func(r *models.CreateBatteryRequest) { r.Country = "  " }, "country"},
		{"missing price", func(r *models.CreateBatteryRequest) { r.Price = nil }, "price"},
		{"negative price", func(r *models.CreateBatteryRequest) { r.Price = decimalPtr(-1) }, "price"},
		{"zero capacity", func(r *models.CreateBatteryRequest) { r.Capacity = decimalPtr(0) }, "capacity"},
		{"unknown category", func(r *models.CreateBatteryRequest) { r.Category = "marine" }, "category"},
		{"unknown listing type", func(r *models.CreateBatteryRequest) { r.ListingType = "swap" }, "listingType"},
		{"health over 100", func(r *models.CreateBatteryRequest) { v := 101; r.HealthPercentage = &v }, "healthPercentage"},
		{"rental period on sale", func(r *models.CreateBatteryRequest) { r.RentalPeriod = stringPtr("monthly") }, "rentalPeriod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := listingRequest(owner.ID)
			tt.mutate(req)

			_, err := f.batteries.CreateBattery(ctx, req)
			requireKind(t, err, apperr.KindValidation)

			appErr, ok := err.(*apperr.Error)
			require.True(t, ok)
			fields := make([]string, 0, len(appErr.Fields))
			for _, fe := range appErr.Fields {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	req := listingRequest(owner.ID)
	req.Price = decimalPtr(0)
	req.ListingType = models.ListingRent
	req.RentalPeriod = stringPtr("monthly")
	b, err := f.batteries.CreateBattery(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, b.RentalPeriod)
	assert.Equal(t, "monthly", *b.RentalPeriod)
}

func TestOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, _ := f.register(t, "owner")
	intruder, _ := f.register(t, "intruder")

	b, err := f.batteries.CreateBattery(ctx, listingRequest(owner.ID))
	require.NoError(t, err)

	_, err = f.batteries.LoadOwned(ctx, intruder.ID, b.ID)
	requireKind(t, err, apperr.KindForbidden)

	err = f.batteries.DeleteBattery(ctx, intruder.ID, b.ID)
	requireKind(t, err, apperr.KindForbidden)

	stored, err := f.batteries.GetBattery(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, b.Title, stored.Title)
	assert.Equal(t, b.UpdatedAt, stored.UpdatedAt)

	_, err = f.batteries.LoadOwned(ctx, owner.ID, 404)
	requireKind(t, err, apperr.KindNotFound)

	require.NoError(t, f.batteries.DeleteBattery(ctx, owner.ID, b.ID))
	_, err = f.batteries.GetBattery(ctx, "1")
	requireKind(t, err, apperr.KindNotFound)
}

func TestUpdateBattery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, _ := f.register(t, "owner")

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.batteries.now = func() time.Time { return created }

	req := listingRequest(owner.ID)
	req.ListingType = models.ListingRent
	req.RentalPeriod = stringPtr("weekly")
	b, err := f.batteries.CreateBattery(ctx, req)
	require.NoError(t, err)

	owned, err := f.batteries.LoadOwned(ctx, owner.ID, b.ID)
	require.NoError(t, err)

	// a clock that has not moved still yields a strictly newer timestamp
	updated, err := f.batteries.UpdateBattery(ctx, owned, &models.UpdateBatteryRequest{
		Price: decimalPtr(7999),
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(7999)))
	assert.True(t, updated.UpdatedAt.After(b.UpdatedAt))
	assert.Equal(t, b.CreatedAt, updated.CreatedAt)
	assert.Equal(t, b.Title, updated.Title)

	f.batteries.now = func() time.Time { return created.Add(time.Hour) }
	sell := models.ListingSell
	updated, err = f.batteries.UpdateBattery(ctx, updated, &models.UpdateBatteryRequest{
		ListingType: &sell,
		Title:       stringPtr(" Powerwall "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Powerwall", updated.Title)
	assert.Nil(t, updated.RentalPeriod)
	assert.Equal(t, created.Add(time.Hour), updated.UpdatedAt)

	stored, err := f.batteries.GetBattery(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt, stored.UpdatedAt)
	assert.Equal(t, models.ListingSell, stored.ListingType)

	_, err = f.batteries.UpdateBattery(ctx, stored, &models.UpdateBatteryRequest{
		RentalPeriod: stringPtr("daily"),
	})
	requireKind(t, err, apperr.KindValidation)

	_, err = f.batteries.UpdateBattery(ctx, stored, &models.UpdateBatteryRequest{
		Capacity: decimalPtr(0),
	})
	requireKind(t, err, apperr.KindValidation)

	_, err = f.batteries.UpdateBattery(ctx, stored, &models.UpdateBatteryRequest{
		Title:        stringPtr("   "),
		Manufacturer: stringPtr(""),
	})
	requireKind(t, err, apperr.KindValidation)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Fields, 2)
	assert.Equal(t, "title", appErr.Fields[0].Field)
	assert.Equal(t, "must not be blank", appErr.Fields[0].Message)
	assert.Equal(t, "manufacturer", appErr.Fields[1].Field)

	unchanged, err := f.batteries.GetBattery(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Powerwall", unchanged.Title)
}

func TestSearchAndListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, _ := f.register(t, "owner")
	other, _ := f.register(t, "other")

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	create := func(offset time.Duration, req *models.CreateBatteryRequest) *models.Battery {
		f.batteries.now = func() time.Time { return base.Add(offset) }
		b, err := f.batteries.CreateBattery(ctx, req)
		require.NoError(t, err)
		return b
	}

	tesla := create(0, listingRequest(owner.ID))

	lg := listingRequest(other.ID)
	lg.Title = "LG Chem RESU"
	lg.Manufacturer = "LG"
	lg.Capacity = decimalPtr(9)
	create(time.Minute, lg)

	container := listingRequest(other.ID)
	container.Title = "Containerised storage"
	container.Description = "Grid scale, Tesla Megapack cells"
	container.Manufacturer = "Fluence"
	container.Category = models.CategoryUtilityScale
	container.Capacity = decimalPtr(2000)
	big := create(2*time.Minute, container)

	found, err := f.batteries.SearchBatteries(ctx, search.Filter{Query: search.Some("tesla")}, search.Page{})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, big.ID, found[0].ID)
	assert.Equal(t, tesla.ID, found[1].ID)

	found, err = f.batteries.SearchBatteries(ctx, search.Filter{MinCapacity: search.Some(decimal.NewFromInt(50))}, search.Page{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, big.ID, found[0].ID)

	utility, err := f.batteries.BatteriesByCategory(ctx, "utility-scale", search.Page{})
	require.NoError(t, err)
	require.Len(t, utility, 1)

	_, err = f.batteries.BatteriesByCategory(ctx, "marine", search.Page{})
	requireKind(t, err, apperr.KindValidation)

	featured, err := f.batteries.FeaturedBatteries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, featured, 2)
	assert.Equal(t, big.ID, featured[0].ID)

	page, err := f.batteries.ListBatteries(ctx, search.Page{Limit: 1, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, tesla.ID, page[0].ID)

	mine, err := f.batteries.BatteriesByOwner(ctx, owner.ID, search.Page{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, tesla.ID, mine[0].ID)
}

func TestInquiries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, _ := f.register(t, "owner")
	buyer, _ := f.register(t, "buyer")

	b, err := f.batteries.CreateBattery(ctx, listingRequest(owner.ID))
	require.NoError(t, err)

	inquiry, err := f.inquiries.CreateInquiry(ctx, buyer.ID, &models.CreateInquiryRequest{
		BatteryID:    b.ID,
		Message:      "  Is this still available?  ",
		ContactEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryNew, inquiry.Status)
	assert.Equal(t, "Is this still available?", inquiry.Message)
	require.NotNil(t, inquiry.ContactEmail)

	_, err = f.inquiries.CreateInquiry(ctx, buyer.ID, &models.CreateInquiryRequest{BatteryID: 404, Message: "hello"})
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.inquiries.CreateInquiry(ctx, buyer.ID, &models.CreateInquiryRequest{BatteryID: b.ID, Message: "   "})
	requireKind(t, err, apperr.KindValidation)

	list, err := f.inquiries.ListInquiries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].ContactEmail)
}
