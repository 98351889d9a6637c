package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/denzelpenzel/battery-marketplace/internal/repository"
	"github.com/denzelpenzel/battery-marketplace/internal/search"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultFeaturedLimit is the size of the featured listing strip
const DefaultFeaturedLimit = 6

// BatteryService orchestrates the listing lifecycle
type BatteryService struct {
	repo      repository.Repository
	validator *Validator
	logger    *zap.Logger
	now       func() time.Time
}

// NewBatteryService creates a new battery service
func NewBatteryService(repo repository.Repository, validator *Validator, logger *zap.Logger) *BatteryService {
	return &BatteryService{
		repo:      repo,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *BatteryService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// rentalPeriodError rejects a rental period on a listing that is not for rent
func rentalPeriodError(listingType models.ListingType, rentalPeriod *string) *apperr.FieldError {
	if rentalPeriod == nil || strings.TrimSpace(*rentalPeriod) == "" || listingType == models.ListingRent {
		return nil
	}
	return &apperr.FieldError{Field: "rentalPeriod", Message: "is only allowed when listingType is rent"}
}

// validate runs tag validation and the cross-field rental period rule,
// reporting every failing field together
func (s *BatteryService) validate(req interface{}, listingType models.ListingType, rentalPeriod *string) error {
	err := s.validator.Struct(req)

	fe := rentalPeriodError(listingType, rentalPeriod)
	if fe == nil {
		return err
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindValidation {
		appErr.Fields = append(appErr.Fields, *fe)
		return appErr
	}
	if err != nil {
		return err
	}
	return apperr.Validation("Validation failed", *fe)
}

// CreateBattery validates and stores a new listing for an existing user
func (s *BatteryService) CreateBattery(ctx context.Context, req *models.CreateBatteryRequest) (*models.Battery, error) {
	if err := s.validate(req, req.ListingType, req.RentalPeriod); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetUserByID(ctx, req.UserID); err != nil {
		return nil, translate(err, "User not found")
	}

	now := s.timestamp()
	b := &models.Battery{
		Reference:         uuid.New(),
		UserID:            req.UserID,
		Title:             strings.TrimSpace(req.Title),
		Description:       strings.TrimSpace(req.Description),
		Price:             *req.Price,
		ListingType:       req.ListingType,
		Availability:      true,
		RentalPeriod:      nonEmpty(req.RentalPeriod),
		BatteryType:       req.BatteryType,
		Category:          req.Category,
		TechnologyType:    strings.TrimSpace(req.TechnologyType),
		Capacity:          *req.Capacity,
		Voltage:           req.Voltage,
		CurrentRating:     req.CurrentRating,
		CycleCount:        req.CycleCount,
		HealthPercentage:  req.HealthPercentage,
		Dimensions:        req.Dimensions,
		Weight:            req.Weight,
		Manufacturer:      strings.TrimSpace(req.Manufacturer),
		ModelNumber:       req.ModelNumber,
		YearOfManufacture: req.YearOfManufacture,
		Warranty:          req.Warranty,
		Certifications:    orEmpty(req.Certifications),
		Images:            orEmpty(req.Images),
		AdditionalSpecs:   req.AdditionalSpecs,
		Location:          strings.TrimSpace(req.Location),
		Country:           strings.TrimSpace(req.Country),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Availability != nil {
		b.Availability = *req.Availability
	}
	if b.AdditionalSpecs == nil {
		b.AdditionalSpecs = map[string]any{}
	}

	if err := s.repo.CreateBattery(ctx, b); err != nil {
		return nil, translate(err, "User not found")
	}

	return b, nil
}

// GetBattery resolves a listing by numeric id or, failing that, by its
// public reference
func (s *BatteryService) GetBattery(ctx context.Context, idOrRef string) (*models.Battery, error) {
	var (
		b   *models.Battery
		err error
	)

	if id, perr := strconv.ParseInt(idOrRef, 10, 64); perr == nil {
		b, err = s.repo.GetBattery(ctx, id)
	} else if ref, uerr := uuid.Parse(idOrRef); uerr == nil {
		b, err = s.repo.GetBatteryByReference(ctx, ref)
	} else {
		return nil, apperr.NotFound("Battery not found")
	}

	if err != nil {
		return nil, translate(err, "Battery not found")
	}
	return b, nil
}

// ListBatteries returns one page of all listings, most recent first
func (s *BatteryService) ListBatteries(ctx context.Context, page search.Page) ([]*models.Battery, error) {
	return s.SearchBatteries(ctx, search.Filter{}, page)
}

// SearchBatteries runs the conjunction of the filter's criteria
func (s *BatteryService) SearchBatteries(ctx context.Context, filter search.Filter, page search.Page) ([]*models.Battery, error) {
	batteries, err := s.repo.FindBatteries(ctx, search.NewQuery(filter, page))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return batteries, nil
}

// BatteriesByCategory lists listings in one category
func (s *BatteryService) BatteriesByCategory(ctx context.Context, category string, page search.Page) ([]*models.Battery, error) {
	if !search.IsCategory(category) {
		return nil, apperr.Validation("Invalid category",
			apperr.FieldError{Field: "category", Message: "must be one of: " + models.Categories})
	}
	return s.SearchBatteries(ctx, search.Filter{Category: search.Some(models.Category(category))}, page)
}

// FeaturedBatteries returns the most recent listings
func (s *BatteryService) FeaturedBatteries(ctx context.Context, limit int) ([]*models.Battery, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	if limit > search.MaxLimit {
		limit = search.MaxLimit
	}
	return s.SearchBatteries(ctx, search.Filter{}, search.Page{Limit: limit})
}

// BatteriesByOwner lists the listings owned by a user
func (s *BatteryService) BatteriesByOwner(ctx context.Context, userID int64, page search.Page) ([]*models.Battery, error) {
	return s.SearchBatteries(ctx, search.Filter{OwnerID: search.Some(userID)}, page)
}

// LoadOwned returns the listing when actorID owns it
func (s *BatteryService) LoadOwned(ctx context.Context, actorID, id int64) (*models.Battery, error) {
	b, err := s.repo.GetBattery(ctx, id)
	if err != nil {
		return nil, translate(err, "Battery not found")
	}

	if b.UserID != actorID {
		s.logger.Warn("Rejected listing mutation by non-owner",
			zap.Int64("battery_id", id),
			zap.Int64("user_id", actorID))
		return nil, apperr.Forbidden("You do not have permission to modify this listing")
	}

	return b, nil
}

// UpdateBattery applies the supplied fields to an owned listing and always
// refreshes updatedAt
func (s *BatteryService) UpdateBattery(ctx context.Context, b *models.Battery, req *models.UpdateBatteryRequest) (*models.Battery, error) {
	listingType := b.ListingType
	if req.ListingType != nil {
		listingType = *req.ListingType
	}
	if err := s.validate(req, listingType, req.RentalPeriod); err != nil {
		return nil, err
	}

	updated := b.Clone()
	applyUpdate(updated, req)
	if updated.ListingType != models.ListingRent {
		updated.RentalPeriod = nil
	}

	now := s.timestamp()
	if !now.After(b.UpdatedAt) {
		now = b.UpdatedAt.Add(time.Microsecond)
	}
	updated.UpdatedAt = now

	if err := s.repo.UpdateBattery(ctx, updated); err != nil {
		return nil, translate(err, "Battery not found")
	}

	return updated, nil
}

// DeleteBattery permanently removes an owned listing
func (s *BatteryService) DeleteBattery(ctx context.Context, actorID, id int64) error {
	if _, err := s.LoadOwned(ctx, actorID, id); err != nil {
		return err
	}

	if err := s.repo.DeleteBattery(ctx, id); err != nil {
		return translate(err, "Battery not found")
	}

	s.logger.Info("Battery listing deleted",
		zap.Int64("battery_id", id),
		zap.Int64("user_id", actorID))

	return nil
}

func applyUpdate(b *models.Battery, req *models.UpdateBatteryRequest) {
	setString(&b.Title, req.Title)
	setString(&b.Description, req.Description)
	if req.Price != nil {
		b.Price = *req.Price
	}
	if req.ListingType != nil {
		b.ListingType = *req.ListingType
	}
	if req.Availability != nil {
		b.Availability = *req.Availability
	}
	if req.RentalPeriod != nil {
		b.RentalPeriod = nonEmpty(req.RentalPeriod)
	}
	if req.BatteryType != nil {
		b.BatteryType = *req.BatteryType
	}
	if req.Category != nil {
		b.Category = *req.Category
	}
	setString(&b.TechnologyType, req.TechnologyType)
	if req.Capacity != nil {
		b.Capacity = *req.Capacity
	}
	setString(&b.Voltage, req.Voltage)
	setString(&b.CurrentRating, req.CurrentRating)
	if req.CycleCount != nil {
		b.CycleCount = req.CycleCount
	}
	if req.HealthPercentage != nil {
		b.HealthPercentage = req.HealthPercentage
	}
	setString(&b.Dimensions, req.Dimensions)
	setString(&b.Weight, req.Weight)
	setString(&b.Manufacturer, req.Manufacturer)
	setString(&b.ModelNumber, req.ModelNumber)
	if req.YearOfManufacture != nil {
		b.YearOfManufacture = req.YearOfManufacture
	}
	setString(&b.Warranty, req.Warranty)
	if req.Certifications != nil {
		b.Certifications = req.Certifications
	}
	if req.Images != nil {
		b.Images = req.Images
	}
	if req.AdditionalSpecs != nil {
		b.AdditionalSpecs = req.AdditionalSpecs
	}
	setString(&b.Location, req.Location)
	setString(&b.Country, req.Country)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func nonEmpty(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
