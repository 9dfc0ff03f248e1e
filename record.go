package salesdb

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var ErrInvalidRecord = errors.New("invalid record")

const jsonDateLayout = "2006-01-02"

// CustomerRef points at a customer owned by another system.
// The store carries it along but never persists or interprets it.
type CustomerRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Record is one sales transaction.
type Record struct {
	Index      int
	OrderID    string
	Date       time.Time
	Status     string
	Fulfilment string
	Channel    string
	Category   string
	Size       string
	Amount     decimal.Decimal
	ShipCity   string
	ShipState  string
	Customer   *CustomerRef
}

// Clone returns a deep copy, so the customer reference is not shared.
func (r Record) Clone() Record {
	var cp Record
	if err := copier.CopyWithOption(&cp, &r, copier.Option{DeepCopy: true}); err != nil {
		panic("could not copy record: " + err.Error())
	}

	// copier walks struct fields, decimal keeps its value in unexported ones
	cp.Amount = r.Amount
	cp.Date = r.Date

	return cp
}

// Validate reports whether the record can be admitted to the store and
// written to the backing file without corrupting it.
func (r Record) Validate() error {
	if r.Index < 0 {
		return errors.Wrapf(ErrInvalidRecord, "negative index %d", r.Index)
	}

	if r.Date.IsZero() {
		return errors.Wrapf(ErrInvalidRecord, "order %s has no date", r.OrderID)
	}

	// the file keeps two-digit years
	if y := r.Date.Year(); y < minYear || y > maxYear {
		return errors.Wrapf(ErrInvalidRecord, "order %s has year %d outside %d-%d", r.OrderID, y, minYear, maxYear)
	}

	if r.Amount.IsNegative() {
		return errors.Wrapf(ErrInvalidRecord, "order %s has negative amount %s", r.OrderID, r.Amount)
	}

	for i, f := range r.textFields() {
		if strings.ContainsAny(f, ",\r\n") {
			return errors.Wrapf(
				ErrInvalidRecord,
				"column %s of order %s contains a delimiter or line break",
				columnNames[textColumns[i]], r.OrderID,
			)
		}
	}

	return nil
}

func (r Record) textFields() []string {
	return []string{
		r.OrderID, r.Status, r.Fulfilment, r.Channel, r.Category,
		r.Size, r.ShipCity, r.ShipState,
	}
}

type recordJSON struct {
	Index      int          `json:"index"`
	OrderID    string       `json:"orderId"`
	Date       string       `json:"date"`
	Status     string       `json:"status"`
	Fulfilment string       `json:"fulfilment"`
	Channel    string       `json:"channel"`
	Category   string       `json:"category"`
	Size       string       `json:"size"`
	Amount     string       `json:"amount"`
	ShipCity   string       `json:"shipCity"`
	ShipState  string       `json:"shipState"`
	Customer   *CustomerRef `json:"customer,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Index:      r.Index,
		OrderID:    r.OrderID,
		Date:       r.Date.Format(jsonDateLayout),
		Status:     r.Status,
		Fulfilment: r.Fulfilment,
		Channel:    r.Channel,
		Category:   r.Category,
		Size:       r.Size,
		Amount:     r.Amount.String(),
		ShipCity:   r.ShipCity,
		ShipState:  r.ShipState,
		Customer:   r.Customer,
	})
}

// RecordFromJSON builds a record from a JSON object. Missing keys leave
// fields at their zero value; date must be yyyy-MM-dd and amount may be
// either a JSON number or a string.
func RecordFromJSON(b []byte) (Record, error) {
	if !gjson.ValidBytes(b) {
		return Record{}, errors.Wrap(ErrInvalidRecord, "malformed json")
	}

	doc := gjson.ParseBytes(b)
	if !doc.IsObject() {
		return Record{}, errors.Wrap(ErrInvalidRecord, "json value is not an object")
	}

	r := Record{
		Index:      int(doc.Get("index").Int()),
		OrderID:    doc.Get("orderId").String(),
		Status:     doc.Get("status").String(),
		Fulfilment: doc.Get("fulfilment").String(),
		Channel:    doc.Get("channel").String(),
		Category:   doc.Get("category").String(),
		Size:       doc.Get("size").String(),
		ShipCity:   doc.Get("shipCity").String(),
		ShipState:  doc.Get("shipState").String(),
	}

	if d := doc.Get("date"); d.Exists() {
		t, err := time.Parse(jsonDateLayout, d.String())
		if err != nil {
			return Record{}, errors.Wrapf(ErrInvalidRecord, "date %q: %s", d.String(), err.Error())
		}
		r.Date = t
	}

	if a := doc.Get("amount"); a.Exists() {
		amount, err := decimal.NewFromString(a.String())
		if err != nil {
			return Record{}, errors.Wrapf(ErrInvalidRecord, "amount %q: %s", a.String(), err.Error())
		}
		r.Amount = amount
	}

	if c := doc.Get("customer"); c.Exists() && c.IsObject() {
		r.Customer = &CustomerRef{
			ID:   int(c.Get("id").Int()),
			Name: c.Get("name").String(),
		}
	}

	return r, nil
}
