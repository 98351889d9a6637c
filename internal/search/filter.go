package search

import (
	"sort"

	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

// Filter is the sparse set of catalog search criteria. Absent fields add no
// condition.
type Filter struct {
	Query        Optional[string]
	BatteryType  Optional[models.BatteryType]
	Category     Optional[models.Category]
	ListingType  Optional[models.ListingType]
	Manufacturer Optional[string]
	Location     Optional[string]
	Country      Optional[string]
	MinCapacity  Optional[decimal.Decimal]
	MaxCapacity  Optional[decimal.Decimal]
	MinPrice     Optional[decimal.Decimal]
	MaxPrice     Optional[decimal.Decimal]
	OwnerID      Optional[int64]
}

// Predicate composes the conjunction of every present criterion. Inverted
// bounds are kept as given and simply match nothing.
func (f Filter) Predicate() Predicate {
	var preds []Predicate

	if q, ok := f.Query.Get(); ok {
		preds = append(preds, Contains(q, FieldTitle, FieldDescription, FieldManufacturer, FieldTechnologyType))
	}
	if v, ok := f.BatteryType.Get(); ok {
		preds = append(preds, Equals(FieldBatteryType, string(v)))
	}
	if v, ok := f.Category.Get(); ok {
		preds = append(preds, Equals(FieldCategory, string(v)))
	}
	if v, ok := f.ListingType.Get(); ok {
		preds = append(preds, Equals(FieldListingType, string(v)))
	}
	if v, ok := f.Manufacturer.Get(); ok {
		preds = append(preds, Contains(v, FieldManufacturer))
	}
	if v, ok := f.Location.Get(); ok {
		preds = append(preds, Contains(v, FieldLocation))
	}
	if v, ok := f.Country.Get(); ok {
		preds = append(preds, Equals(FieldCountry, v))
	}
	if v, ok := f.MinCapacity.Get(); ok {
		preds = append(preds, AtLeast(FieldCapacity, v))
	}
	if v, ok := f.MaxCapacity.Get(); ok {
		preds = append(preds, AtMost(FieldCapacity, v))
	}
	if v, ok := f.MinPrice.Get(); ok {
		preds = append(preds, AtLeast(FieldPrice, v))
	}
	if v, ok := f.MaxPrice.Get(); ok {
		preds = append(preds, AtMost(FieldPrice, v))
	}
	if v, ok := f.OwnerID.Get(); ok {
		preds = append(preds, OwnedBy(v))
	}

	return And(preds...)
}

// Query is a filtered, paginated listing lookup. Results are always ordered
// most recently created first. A zero Limit means no limit.
type Query struct {
	Where  Predicate
	Limit  int
	Offset int
}

// NewQuery builds a query from a filter and page.
func NewQuery(f Filter, p Page) Query {
	return Query{Where: f.Predicate(), Limit: p.Limit, Offset: p.Offset}
}

// OrderBy is the SQL ordering matching Apply.
const OrderBy = "created_at DESC, id DESC"

// Apply filters, orders and paginates listings in memory.
func (q Query) Apply(listings []*models.Battery) []*models.Battery {
	where := q.Where
	if where == nil {
		where = And()
	}

	matched := make([]*models.Battery, 0, len(listings))
	for _, b := range listings {
		if where.Matches(b) {
			matched = append(matched, b)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return MoreRecent(matched[i], matched[j])
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []*models.Battery{}
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched
}

// MoreRecent reports whether a sorts before b: newer creation time first,
// higher id breaking ties.
func MoreRecent(a, b *models.Battery) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
