package search

import (
	"strconv"
	"strings"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

// MaxLimit caps every page size.
const MaxLimit = 100

// Page selects a window of results. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// Getter returns the raw value of a query parameter, or "" when absent.
type Getter func(key string) string

// ParseFilter reads the search query parameters. Empty parameters are
// treated as absent.
func ParseFilter(get Getter) (Filter, error) {
	var (
		f      Filter
		fields []apperr.FieldError
	)

	text := func(key string) Optional[string] {
		if v := strings.TrimSpace(get(key)); v != "" {
			return Some(v)
		}
		return None[string]()
	}

	enum := func(key, allowed string) Optional[string] {
		v := text(key)
		if s, ok := v.Get(); ok && !oneOf(s, allowed) {
			fields = append(fields, apperr.FieldError{Field: key, Message: "must be one of: " + allowed})
			return None[string]()
		}
		return v
	}

	number := func(key string) Optional[decimal.Decimal] {
		s, ok := text(key).Get()
		if !ok {
			return None[decimal.Decimal]()
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			fields = append(fields, apperr.FieldError{Field: key, Message: "must be a number"})
			return None[decimal.Decimal]()
		}
		return Some(d)
	}

	f.Query = text("q")
	if v, ok := enum("type", models.BatteryTypes).Get(); ok {
		f.BatteryType = Some(models.BatteryType(v))
	}
	if v, ok := enum("category", models.Categories).Get(); ok {
		f.Category = Some(models.Category(v))
	}
	if v, ok := enum("listingType", models.ListingTypes).Get(); ok {
		f.ListingType = Some(models.ListingType(v))
	}
	f.Manufacturer = text("manufacturer")
	f.Location = text("location")
	f.Country = text("country")
	f.MinCapacity = number("minCapacity")
	f.MaxCapacity = number("maxCapacity")
	f.MinPrice = number("minPrice")
	f.MaxPrice = number("maxPrice")

	if len(fields) > 0 {
		return Filter{}, apperr.Validation("Invalid search parameters", fields...)
	}
	return f, nil
}

// ParsePage reads limit and offset. defaultLimit applies when limit is
// absent or zero, so only views with a zero default can be unbounded.
// Limits above MaxLimit are clamped.
func ParsePage(get Getter, defaultLimit int) (Page, error) {
	var fields []apperr.FieldError

	parse := func(key string, def int) int {
		s := strings.TrimSpace(get(key))
		if s == "" {
			return def
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			fields = append(fields, apperr.FieldError{Field: key, Message: "must be a non-negative integer"})
			return def
		}
		return n
	}

	p := Page{
		Limit:  parse("limit", defaultLimit),
		Offset: parse("offset", 0),
	}
	if len(fields) > 0 {
		return Page{}, apperr.Validation("Invalid pagination parameters", fields...)
	}
	if p.Limit == 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p, nil
}

// IsCategory reports whether s names a known category.
func IsCategory(s string) bool {
	return oneOf(s, models.Categories)
}

func oneOf(s, allowed string) bool {
	for _, v := range strings.Fields(allowed) {
		if s == v {
			return true
		}
	}
	return false
}
