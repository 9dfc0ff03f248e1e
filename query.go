package salesdb

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Query holds optional criteria. Unset criteria impose no constraint,
// set ones are combined with AND.
type Query struct {
	status     *string
	category   *string
	fulfilment *string
	channel    *string
	city       *string
	state      *string
	minAmount  *decimal.Decimal
	maxAmount  *decimal.Decimal
	startDate  *time.Time
	endDate    *time.Time
}

// Q starts an empty query that matches every record.
func Q() *Query {
	return &Query{}
}

func (q *Query) Status(s string) *Query {
	q.status = &s
	return q
}

func (q *Query) Category(c string) *Query {
	q.category = &c
	return q
}

func (q *Query) Fulfilment(f string) *Query {
	q.fulfilment = &f
	return q
}

func (q *Query) Channel(c string) *Query {
	q.channel = &c
	return q
}

func (q *Query) City(c string) *Query {
	q.city = &c
	return q
}

func (q *Query) State(s string) *Query {
	q.state = &s
	return q
}

// MinAmount is an inclusive lower bound.
func (q *Query) MinAmount(a decimal.Decimal) *Query {
	q.minAmount = &a
	return q
}

// MaxAmount is an inclusive upper bound.
func (q *Query) MaxAmount(a decimal.Decimal) *Query {
	q.maxAmount = &a
	return q
}

// StartDate is an inclusive lower bound compared by calendar day.
func (q *Query) StartDate(d time.Time) *Query {
	d = truncateToDay(d)
	q.startDate = &d
	return q
}

// EndDate is an inclusive upper bound compared by calendar day.
func (q *Query) EndDate(d time.Time) *Query {
	d = truncateToDay(d)
	q.endDate = &d
	return q
}

// Date narrows the query to a single calendar day.
func (q *Query) Date(d time.Time) *Query {
	return q.StartDate(d).EndDate(d)
}

// Filter returns the records matching q in their original order.
// It never modifies records.
func Filter(records []Record, q *Query) []Record {
	result := make([]Record, 0)
	if q == nil {
		q = Q()
	}

	m := q.matcher()
	for i := range records {
		if m.match(&records[i]) {
			result = append(result, records[i])
		}
	}

	return result
}

// key identifies the criteria of q. Queries with the same set criteria
// share a key.
func (q *Query) key() uint64 {
	if q == nil {
		q = Q()
	}

	d := xxhash.New()
	field := func(name string, value *string) {
		if value == nil {
			return
		}
		_, _ = d.WriteString(name)
		_, _ = d.WriteString(strconv.Quote(*value))
	}

	field("status", q.status)
	field("category", q.category)
	field("fulfilment", q.fulfilment)
	field("channel", q.channel)
	field("city", q.city)
	field("state", q.state)

	if q.minAmount != nil {
		field("min", strPtr(q.minAmount.String()))
	}

	if q.maxAmount != nil {
		field("max", strPtr(q.maxAmount.String()))
	}

	if q.startDate != nil {
		field("from", strPtr(q.startDate.Format(jsonDateLayout)))
	}

	if q.endDate != nil {
		field("to", strPtr(q.endDate.Format(jsonDateLayout)))
	}

	return d.Sum64()
}

func strPtr(s string) *string { return &s }

type predicate func(r *Record) bool

type matcher struct {
	predicates []predicate
}

func (m matcher) match(r *Record) bool {
	for _, p := range m.predicates {
		if !p(r) {
			return false
		}
	}
	return true
}

func (q *Query) matcher() matcher {
	// a Caser carries state, one per matcher keeps Filter safe for concurrent use
	fold := cases.Fold()
	eqFold := func(field func(r *Record) string, want string) predicate {
		want = fold.String(want)
		return func(r *Record) bool {
			return fold.String(field(r)) == want
		}
	}

	var m matcher

	if q.status != nil {
		m.predicates = append(m.predicates, eqFold(func(r *Record) string { return r.Status }, *q.status))
	}

	if q.category != nil {
		m.predicates = append(m.predicates, eqFold(func(r *Record) string { return r.Category }, *q.category))
	}

	if q.fulfilment != nil {
		m.predicates = append(m.predicates, eqFold(func(r *Record) string { return r.Fulfilment }, *q.fulfilment))
	}

	if q.channel != nil {
		m.predicates = append(m.predicates, eqFold(func(r *Record) string { return r.Channel }, *q.channel))
	}

	if q.minAmount != nil {
		lower := *q.minAmount
		m.predicates = append(m.predicates, func(r *Record) bool {
			return r.Amount.GreaterThanOrEqual(lower)
		})
	}

	if q.maxAmount != nil {
		upper := *q.maxAmount
		m.predicates = append(m.predicates, func(r *Record) bool {
			return r.Amount.LessThanOrEqual(upper)
		})
	}

	if q.startDate != nil {
		from := *q.startDate
		m.predicates = append(m.predicates, func(r *Record) bool {
			return !truncateToDay(r.Date).Before(from)
		})
	}

	if q.endDate != nil {
		to := *q.endDate
		m.predicates = append(m.predicates, func(r *Record) bool {
			return !truncateToDay(r.Date).After(to)
		})
	}

	if q.city != nil {
		m.predicates = append(m.predicates, eqFold(func(r *Record) string { return r.ShipCity }, *q.city))
	}

	if q.state != nil {
		m.predicates = append(m.predicates, eqFold(func(r *Record) string { return r.ShipState }, *q.state))
	}

	return m
}

// truncateToDay drops the time of day, keeping the calendar date as seen
// in the value's own location.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return truncateToDay(a).Equal(truncateToDay(b))
}
