package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingType is the commercial intent of a listing
type ListingType string

const (
	ListingBuy  ListingType = "buy"
	ListingSell ListingType = "sell"
	ListingRent ListingType = "rent"
	ListingLend ListingType = "lend"
)

// BatteryType is the condition of the offered battery
type BatteryType string

const (
	BatteryNew        BatteryType = "new"
	BatteryUsed       BatteryType = "used"
	BatterySecondLife BatteryType = "second-life"
)

// Category is the application segment a battery is meant for
type Category string

const (
	CategoryResidential     Category = "residential"
	CategoryCommercial      Category = "commercial"
	CategoryIndustrial      Category = "industrial"
	CategoryUtilityScale    Category = "utility-scale"
	CategoryElectricVehicle Category = "electric-vehicle"
	CategoryPortable        Category = "portable"
	CategoryOffGrid         Category = "off-grid"
)

// Validator "oneof" parameters for the enumerations above.
const (
	ListingTypes  = "buy sell rent lend"
	BatteryTypes  = "new used second-life"
	Categories    = "residential commercial industrial utility-scale electric-vehicle portable off-grid"
	InquiryStates = "new read replied closed"
)

// Battery is a marketplace listing
type Battery struct {
	ID        int64     `json:"id" db:"id"`
	Reference uuid.UUID `json:"reference" db:"reference"`
	UserID    int64     `json:"userId" db:"user_id"`

	Title        string          `json:"title" db:"title"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	ListingType  ListingType     `json:"listingType" db:"listing_type"`
	Availability bool            `json:"availability" db:"availability"`
	RentalPeriod *string         `json:"rentalPeriod" db:"rental_period"`

	BatteryType    BatteryType `json:"batteryType" db:"battery_type"`
	Category       Category    `json:"category" db:"category"`
	TechnologyType string      `json:"technologyType" db:"technology_type"`

	Capacity          decimal.Decimal `json:"capacity" db:"capacity"`
	Voltage           string          `json:"voltage" db:"voltage"`
	CurrentRating     string          `json:"currentRating" db:"current_rating"`
	CycleCount        *int            `json:"cycleCount" db:"cycle_count"`
	HealthPercentage  *int            `json:"healthPercentage" db:"health_percentage"`
	Dimensions        string          `json:"dimensions" db:"dimensions"`
	Weight            string          `json:"weight" db:"weight"`
	Manufacturer      string          `json:"manufacturer" db:"manufacturer"`
	ModelNumber       string          `json:"modelNumber" db:"model_number"`
	YearOfManufacture *int            `json:"yearOfManufacture" db:"year_of_manufacture"`
	Warranty          string          `json:"warranty" db:"warranty"`
	Certifications    []string        `json:"certifications" db:"certifications"`
	Images            []string        `json:"images" db:"images"`
	AdditionalSpecs   map[string]any  `json:"additionalSpecs" db:"additional_specs"`

	Location string `json:"location" db:"location"`
	Country  string `json:"country" db:"country"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Clone returns a deep copy of the listing
func (b *Battery) Clone() *Battery {
	c := *b
	if b.RentalPeriod != nil {
		v := *b.RentalPeriod
		c.RentalPeriod = &v
	}
	c.CycleCount = cloneInt(b.CycleCount)
	c.HealthPercentage = cloneInt(b.HealthPercentage)
	c.YearOfManufacture = cloneInt(b.YearOfManufacture)
	c.Certifications = append([]string{}, b.Certifications...)
	c.Images = append([]string{}, b.Images...)
	c.AdditionalSpecs = make(map[string]any, len(b.AdditionalSpecs))
	for k, v := range b.AdditionalSpecs {
		c.AdditionalSpecs[k] = v
	}
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// CreateBatteryRequest represents a listing creation request
type CreateBatteryRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`

	Title        string           `json:"title" validate:"required,notblank,max=200"`
	Description  string           `json:"description" validate:"required,notblank,max=10000"`
	Price        *decimal.Decimal `json:"price" validate:"required,gte=0"`
	ListingType  ListingType      `json:"listingType" validate:"required,oneof=buy sell rent lend"`
	Availability *bool            `json:"availability"`
	RentalPeriod *string          `json:"rentalPeriod" validate:"omitempty,max=100"`

	BatteryType    BatteryType `json:"batteryType" validate:"required,oneof=new used second-life"`
	Category       Category    `json:"category" validate:"required,oneof=residential commercial industrial utility-scale electric-vehicle portable off-grid"`
	TechnologyType string      `json:"technologyType" validate:"required,notblank,max=100"`

	Capacity          *decimal.Decimal `json:"capacity" validate:"required,gt=0"`
	Voltage           string           `json:"voltage" validate:"max=50"`
	CurrentRating     string           `json:"currentRating" validate:"max=50"`
	CycleCount        *int             `json:"cycleCount" validate:"omitempty,gte=0"`
	HealthPercentage  *int             `json:"healthPercentage" validate:"omitempty,gte=0,lte=100"`
	Dimensions        string           `json:"dimensions" validate:"max=100"`
	Weight            string           `json:"weight" validate:"max=50"`
	Manufacturer      string           `json:"manufacturer" validate:"required,notblank,max=100"`
	ModelNumber       string           `json:"modelNumber" validate:"max=100"`
	YearOfManufacture *int             `json:"yearOfManufacture" validate:"omitempty,gte=1900,lte=2100"`
	Warranty          string           `json:"warranty" validate:"max=100"`
	Certifications    []string         `json:"certifications" validate:"omitempty,dive,required,max=100"`
	Images            []string         `json:"images" validate:"omitempty,dive,required,max=2048"`
	AdditionalSpecs   map[string]any   `json:"additionalSpecs"`

	Location string `json:"location" validate:"required,notblank,max=100"`
	Country  string `json:"country" validate:"required,notblank,max=100"`
}

// UpdateBatteryRequest represents a partial listing update. Nil fields are
// left untouched.
type UpdateBatteryRequest struct {
	Title        *string          `json:"title" validate:"omitempty,notblank,max=200"`
	Description  *string          `json:"description" validate:"omitempty,notblank,max=10000"`
	Price        *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	ListingType  *ListingType     `json:"listingType" validate:"omitempty,oneof=buy sell rent lend"`
	Availability *bool            `json:"availability"`
	RentalPeriod *string          `json:"rentalPeriod" validate:"omitempty,max=100"`

	BatteryType    *BatteryType `json:"batteryType" validate:"omitempty,oneof=new used second-life"`
	Category       *Category    `json:"category" validate:"omitempty,oneof=residential commercial industrial utility-scale electric-vehicle portable off-grid"`
	TechnologyType *string      `json:"technologyType" validate:"omitempty,notblank,max=100"`

	Capacity          *decimal.Decimal `json:"capacity" validate:"omitempty,gt=0"`
	Voltage           *string          `json:"voltage" validate:"omitempty,max=50"`
	CurrentRating     *string          `json:"currentRating" validate:"omitempty,max=50"`
	CycleCount        *int             `json:"cycleCount" validate:"omitempty,gte=0"`
	HealthPercentage  *int             `json:"healthPercentage" validate:"omitempty,gte=0,lte=100"`
	Dimensions        *string          `json:"dimensions" validate:"omitempty,max=100"`
	Weight            *string          `json:"weight" validate:"omitempty,max=50"`
	Manufacturer      *string          `json:"manufacturer" validate:"omitempty,notblank,max=100"`
	ModelNumber       *string          `json:"modelNumber" validate:"omitempty,max=100"`
	YearOfManufacture *int             `json:"yearOfManufacture" validate:"omitempty,gte=1900,lte=2100"`
	Warranty          *string          `json:"warranty" validate:"omitempty,max=100"`
	Certifications    []string         `json:"certifications" validate:"omitempty,dive,required,max=100"`
	Images            []string         `json:"images" validate:"omitempty,dive,required,max=2048"`
	AdditionalSpecs   map[string]any   `json:"additionalSpecs"`

	Location *string `json:"location" validate:"omitempty,notblank,max=100"`
	Country  *string `json:"country" validate:"omitempty,notblank,max=100"`
}
