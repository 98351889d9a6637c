// Package search composes listing filters into predicates that evaluate both
// in memory and as a parameterised SQL WHERE clause, so every store applies
// identical filter semantics.
package search

import (
	"fmt"
	"strings"

	"github.com/denzelpenzel/battery-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

// Predicate is a single filter condition or a composition of conditions.
type Predicate interface {
	// Matches evaluates the predicate against one listing.
	Matches(b *models.Battery) bool

	writeSQL(w *sqlWriter)
}

// TextField is a string column of the batteries table.
type TextField struct {
	Column string
	value  func(*models.Battery) string
}

// NumberField is a numeric column of the batteries table.
type NumberField struct {
	Column string
	value  func(*models.Battery) decimal.Decimal
}

var (
	FieldTitle          = TextField{"title", func(b *models.Battery) string { return b.Title }}
	FieldDescription    = TextField{"description", func(b *models.Battery) string { return b.Description }}
	FieldManufacturer   = TextField{"manufacturer", func(b *models.Battery) string { return b.Manufacturer }}
	FieldTechnologyType = TextField{"technology_type", func(b *models.Battery) string { return b.TechnologyType }}
	FieldLocation       = TextField{"location", func(b *models.Battery) string { return b.Location }}
	FieldCountry        = TextField{"country", func(b *models.Battery) string { return b.Country }}
	FieldBatteryType    = TextField{"battery_type", func(b *models.Battery) string { return string(b.BatteryType) }}
	FieldCategory       = TextField{"category", func(b *models.Battery) string { return string(b.Category) }}
	FieldListingType    = TextField{"listing_type", func(b *models.Battery) string { return string(b.ListingType) }}

	FieldCapacity = NumberField{"capacity", func(b *models.Battery) decimal.Decimal { return b.Capacity }}
	FieldPrice    = NumberField{"price", func(b *models.Battery) decimal.Decimal { return b.Price }}
)

// Contains matches when any of fields contains needle, ignoring case.
func Contains(needle string, fields ...TextField) Predicate {
	return containsPredicate{needle: needle, fields: fields}
}

// Equals matches when field equals value exactly.
func Equals(field TextField, value string) Predicate {
	return equalsPredicate{field: field, value: value}
}

// OwnedBy matches listings belonging to userID.
func OwnedBy(userID int64) Predicate {
	return ownerPredicate{userID: userID}
}

// AtLeast is an inclusive lower bound on field.
func AtLeast(field NumberField, bound decimal.Decimal) Predicate {
	return boundPredicate{field: field, bound: bound, lower: true}
}

// AtMost is an inclusive upper bound on field.
func AtMost(field NumberField, bound decimal.Decimal) Predicate {
	return boundPredicate{field: field, bound: bound}
}

// And matches when every predicate matches. An empty And matches everything.
func And(preds ...Predicate) Predicate {
	return andPredicate(preds)
}

type containsPredicate struct {
	needle string
	fields []TextField
}

func (p containsPredicate) Matches(b *models.Battery) bool {
	needle := strings.ToLower(p.needle)
	for _, f := range p.fields {
		if strings.Contains(strings.ToLower(f.value(b)), needle) {
			return true
		}
	}
	return false
}

func (p containsPredicate) writeSQL(w *sqlWriter) {
	if len(p.fields) == 0 {
		w.write("FALSE")
		return
	}
	placeholder := w.arg("%" + escapeLike(p.needle) + "%")
	w.write("(")
	for i, f := range p.fields {
		if i > 0 {
			w.write(" OR ")
		}
		w.write(f.Column + " ILIKE " + placeholder)
	}
	w.write(")")
}

type equalsPredicate struct {
	field TextField
	value string
}

func (p equalsPredicate) Matches(b *models.Battery) bool {
	return p.field.value(b) == p.value
}

func (p equalsPredicate) writeSQL(w *sqlWriter) {
	w.write(p.field.Column + " = " + w.arg(p.value))
}

type ownerPredicate struct {
	userID int64
}

func (p ownerPredicate) Matches(b *models.Battery) bool {
	return b.UserID == p.userID
}

func (p ownerPredicate) writeSQL(w *sqlWriter) {
	w.write("user_id = " + w.arg(p.userID))
}

type boundPredicate struct {
	field NumberField
	bound decimal.Decimal
	lower bool
}

func (p boundPredicate) Matches(b *models.Battery) bool {
	cmp := p.field.value(b).Cmp(p.bound)
	if p.lower {
		return cmp >= 0
	}
	return cmp <= 0
}

func (p boundPredicate) writeSQL(w *sqlWriter) {
	op := " <= "
	if p.lower {
		op = " >= "
	}
	w.write(p.field.Column + op + w.arg(p.bound))
}

type andPredicate []Predicate

func (p andPredicate) Matches(b *models.Battery) bool {
	for _, pred := range p {
		if !pred.Matches(b) {
			return false
		}
	}
	return true
}

func (p andPredicate) writeSQL(w *sqlWriter) {
	w.join(p, " AND ", "TRUE")
}

// Render returns the SQL for p with placeholders numbered from firstArg,
// together with the positional arguments.
func Render(p Predicate, firstArg int) (string, []any) {
	w := &sqlWriter{first: firstArg}
	p.writeSQL(w)
	return w.sb.String(), w.args
}

type sqlWriter struct {
	sb    strings.Builder
	args  []any
	first int
}

func (w *sqlWriter) write(s string) {
	w.sb.WriteString(s)
}

func (w *sqlWriter) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", w.first+len(w.args)-1)
}

func (w *sqlWriter) join(preds []Predicate, sep, empty string) {
	switch len(preds) {
	case 0:
		w.write(empty)
	case 1:
		preds[0].writeSQL(w)
	default:
		w.write("(")
		for i, pred := range preds {
			if i > 0 {
				w.write(sep)
			}
			pred.writeSQL(w)
		}
		w.write(")")
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
