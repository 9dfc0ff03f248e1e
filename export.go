package salesdb

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

type exportRow struct {
	Index      int    `csv:"index"`
	OrderID    string `csv:"order_id"`
	Date       string `csv:"date"`
	Status     string `csv:"status"`
	Fulfilment string `csv:"fulfilment"`
	Channel    string `csv:"channel"`
	Category   string `csv:"category"`
	Size       string `csv:"size"`
	Amount     string `csv:"amount"`
	ShipCity   string `csv:"ship_city"`
	ShipState  string `csv:"ship_state"`
}

// ExportCSV writes records as RFC 4180 CSV with quoting and ISO dates.
// Unlike the backing file it can carry any field content.
func ExportCSV(w io.Writer, records []Record) error {
	rows := make([]*exportRow, 0, len(records))
	for i := range records {
		r := &records[i]
		rows = append(rows, &exportRow{
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
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return errors.Wrap(err, "could not export records")
	}

	return nil
}

// ExportCSV writes a snapshot of the store, see the package level ExportCSV.
func (db *DB) ExportCSV(w io.Writer, q *Query) error {
	return ExportCSV(w, db.Filter(q))
}
