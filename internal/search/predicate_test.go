package search

import (
	"testing"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/apperr"
	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func listing(id int64, mutate func(b *models.Battery)) *models.Battery {
	b := &models.Battery{
		ID:             id,
		UserID:         1,
		Title:          "Battery",
		Description:    "Storage unit",
		Price:          decimal.NewFromInt(1000),
		ListingType:    models.ListingSell,
		Availability:   true,
		BatteryType:    models.BatteryNew,
		Category:       models.CategoryResidential,
		TechnologyType: "LFP",
		Capacity:       decimal.NewFromInt(10),
		Manufacturer:   "Generic",
		Location:       "Bavaria",
		Country:        "Germany",
		CreatedAt:      base.Add(time.Duration(id) * time.Hour),
	}
	if mutate != nil {
		mutate(b)
	}
	return b
}

func fixtures() []*models.Battery {
	return []*models.Battery{
		listing(1, func(b *models.Battery) {
			b.Manufacturer = "Tesla"
			b.Title = "Powerwall 2"
			b.Capacity = decimal.NewFromFloat(13.5)
			b.Price = decimal.NewFromInt(9000)
		}),
		listing(2, func(b *models.Battery) {
			b.Manufacturer = "LG Energy Solution"
			b.Title = "RESU Prime"
			b.Capacity = decimal.NewFromInt(10)
			b.Price = decimal.NewFromInt(5000)
			b.Location = "Texas"
			b.Country = "USA"
		}),
		listing(3, func(b *models.Battery) {
			b.Manufacturer = "BYD"
			b.Title = "Container storage"
			b.Description = "Used Tesla modules, repacked"
			b.Capacity = decimal.NewFromInt(250)
			b.Price = decimal.NewFromInt(80000)
			b.BatteryType = models.BatterySecondLife
			b.Category = models.CategoryUtilityScale
			b.ListingType = models.ListingRent
		}),
		listing(4, func(b *models.Battery) {
			b.Manufacturer = "CATL"
			b.TechnologyType = "NMC"
			b.Capacity = decimal.NewFromInt(50)
			b.Price = decimal.NewFromInt(20000)
			b.Category = models.CategoryCommercial
			b.UserID = 2
		}),
	}
}

func ids(listings []*models.Battery) []int64 {
	out := make([]int64, 0, len(listings))
	for _, b := range listings {
		out = append(out, b.ID)
	}
	return out
}

func run(f Filter) []int64 {
	return ids(NewQuery(f, Page{}).Apply(fixtures()))
}

func TestEmptyFilterReturnsAllMostRecentFirst(t *testing.T) {
	assert.Equal(t, []int64{4, 3, 2, 1}, run(Filter{}))

	clause, args := Render(Filter{}.Predicate(), 1)
	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, args)
}

func TestFilterSemantics(t *testing.T) {
	d := decimal.NewFromInt

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"manufacturer substring ignores case", Filter{Manufacturer: Some("tesla")}, []int64{1}},
		{"manufacturer is not equality", Filter{Manufacturer: Some("energy")}, []int64{2}},
		{"free text covers description", Filter{Query: Some("TESLA")}, []int64{3, 1}},
		{"free text covers technology type", Filter{Query: Some("nmc")}, []int64{4}},
		{"battery type exact", Filter{BatteryType: Some(models.BatterySecondLife)}, []int64{3}},
		{"category exact", Filter{Category: Some(models.CategoryCommercial)}, []int64{4}},
		{"listing type exact", Filter{ListingType: Some(models.ListingRent)}, []int64{3}},
		{"country exact", Filter{Country: Some("USA")}, []int64{2}},
		{"country is case sensitive", Filter{Country: Some("usa")}, []int64{}},
		{"location substring", Filter{Location: Some("tex")}, []int64{2}},
		{"min capacity excludes smaller", Filter{MinCapacity: Some(d(50))}, []int64{4, 3}},
		{"capacity bounds are inclusive", Filter{MinCapacity: Some(d(10)), MaxCapacity: Some(d(10))}, []int64{2}},
		{"price range", Filter{MinPrice: Some(d(5000)), MaxPrice: Some(d(20000))}, []int64{4, 2, 1}},
		{"inverted bounds match nothing", Filter{MinPrice: Some(d(10000)), MaxPrice: Some(d(1))}, []int64{}},
		{"owner", Filter{OwnerID: Some(int64(2))}, []int64{4}},
		{"combined", Filter{Query: Some("tesla"), MinCapacity: Some(d(100))}, []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.filter))
		})
	}
}

func TestFilterCompositionIsConjunctive(t *testing.T) {
	d := decimal.NewFromInt
	filters := []Filter{
		{Query: Some("tesla")},
		{MinCapacity: Some(d(12))},
		{MaxPrice: Some(d(10000))},
		{Country: Some("Germany")},
		{BatteryType: Some(models.BatteryNew)},
	}

	for i := range filters {
		for j := range filters {
			combined := And(filters[i].Predicate(), filters[j].Predicate())
			for _, b := range fixtures() {
				want := filters[i].Predicate().Matches(b) && filters[j].Predicate().Matches(b)
				assert.Equal(t, want, combined.Matches(b), "filters %d and %d on listing %d", i, j, b.ID)
			}
		}
	}
}

func TestRenderSQL(t *testing.T) {
	f := Filter{
		Query:       Some("50%_off"),
		Category:    Some(models.CategoryResidential),
		MinCapacity: Some(decimal.NewFromInt(50)),
		MaxPrice:    Some(decimal.NewFromInt(1000)),
	}

	clause, args := Render(f.Predicate(), 3)
	assert.Equal(t,
		"((title ILIKE $3 OR description ILIKE $3 OR manufacturer ILIKE $3 OR technology_type ILIKE $3)"+
			" AND category = $4 AND capacity >= $5 AND price <= $6)",
		clause)
	require.Len(t, args, 4)
	assert.Equal(t, `%50\%\_off%`, args[0])
	assert.Equal(t, "residential", args[1])
	assert.True(t, decimal.NewFromInt(50).Equal(args[2].(decimal.Decimal)))
	assert.True(t, decimal.NewFromInt(1000).Equal(args[3].(decimal.Decimal)))
}

func TestRenderDegenerateConjunctions(t *testing.T) {
	clause, args := Render(And(OwnedBy(9)), 1)
	assert.Equal(t, "user_id = $1", clause)
	assert.Equal(t, []any{int64(9)}, args)

	clause, args = Render(And(), 1)
	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, args)
	assert.True(t, And().Matches(listing(1, nil)))

	clause, args = Render(Contains("tesla"), 1)
	assert.Equal(t, "FALSE", clause)
	assert.Empty(t, args)
	assert.False(t, Contains("tesla").Matches(listing(1, nil)))
}

func TestQueryPagination(t *testing.T) {
	all := fixtures()

	assert.Equal(t, []int64{3, 2}, ids(Query{Limit: 2, Offset: 1}.Apply(all)))
	assert.Equal(t, []int64{}, ids(Query{Offset: 10}.Apply(all)))
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(Query{}.Apply(all)))
}

func TestMoreRecentBreaksTiesByID(t *testing.T) {
	a := listing(1, func(b *models.Battery) { b.CreatedAt = base })
	b := listing(2, func(b *models.Battery) { b.CreatedAt = base })
	assert.True(t, MoreRecent(b, a))
	assert.False(t, MoreRecent(a, b))
}

func params(values map[string]string) Getter {
	return func(key string) string { return values[key] }
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(params(map[string]string{
		"q":           " tesla ",
		"type":        "second-life",
		"minCapacity": "50",
		"maxPrice":    "1000.50",
		"location":    "",
	}))
	require.NoError(t, err)

	q, ok := f.Query.Get()
	assert.True(t, ok)
	assert.Equal(t, "tesla", q)
	assert.Equal(t, Some(models.BatterySecondLife), f.BatteryType)
	_, ok = f.Location.Get()
	assert.False(t, ok)
	_, ok = f.Category.Get()
	assert.False(t, ok)
	maxPrice, _ := f.MaxPrice.Get()
	assert.Equal(t, "1000.5", maxPrice.String())
}

func TestParseFilterRejectsInvalidValues(t *testing.T) {
	_, err := ParseFilter(params(map[string]string{
		"type":        "refurbished",
		"minCapacity": "lots",
		"listingType": "sell",
	}))
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	require.Len(t, appErr.Fields, 2)
	assert.Equal(t, "type", appErr.Fields[0].Field)
	assert.Equal(t, "minCapacity", appErr.Fields[1].Field)
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage(params(nil), 20)
	require.NoError(t, err)
	assert.Equal(t, Page{Limit: 20}, p)

	p, err = ParsePage(params(map[string]string{"limit": "500", "offset": "40"}), 20)
	require.NoError(t, err)
	assert.Equal(t, Page{Limit: MaxLimit, Offset: 40}, p)

	p, err = ParsePage(params(map[string]string{"limit": "0"}), 20)
	require.NoError(t, err)
	assert.Equal(t, Page{Limit: 20}, p)

	p, err = ParsePage(params(map[string]string{"limit": "0", "offset": "5"}), 0)
	require.NoError(t, err)
	assert.Equal(t, Page{Offset: 5}, p)

	_, err = ParsePage(params(map[string]string{"limit": "ten"}), 20)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = ParsePage(params(map[string]string{"offset": "-1"}), 20)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
