package salesdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrParse = errors.New("malformed line")

const (
	delimiter   = ","
	columnCount = 11

	// dateLayout is the canonical MM/dd/yy layout written to the file.
	// parseDateLayout additionally accepts single digit months and days.
	dateLayout      = "01/02/06"
	parseDateLayout = "1/2/06"

	// years a two-digit year parses back to
	minYear = 1969
	maxYear = 2068
)

const (
	colIndex = iota
	colOrderID
	colDate
	colStatus
	colFulfilment
	colChannel
	colCategory
	colSize
	colAmount
	colShipCity
	colShipState
)

var columnNames = [columnCount]string{
	"index", "Order ID", "Date", "Status", "Fulfilment", "Sales Channel",
	"Category", "Size", "Amount", "ship-city", "ship-state",
}

// positions of Record.textFields in the line
var textColumns = []int{
	colOrderID, colStatus, colFulfilment, colChannel, colCategory,
	colSize, colShipCity, colShipState,
}

// DefaultHeader is written as the first line of a newly created file.
var DefaultHeader = strings.Join(columnNames[:], delimiter)

// ParseError describes a line of the backing file that could not be decoded.
type ParseError struct {
	Line   int
	Column string
	Reason string
}

func (pe *ParseError) Error() string {
	var loc []string
	if pe.Line > 0 {
		loc = append(loc, "line "+strconv.Itoa(pe.Line))
	}
	if pe.Column != "" {
		loc = append(loc, "column "+pe.Column)
	}

	if len(loc) == 0 {
		return ErrParse.Error() + ": " + pe.Reason
	}

	return fmt.Sprintf("%s (%s): %s", ErrParse.Error(), strings.Join(loc, ", "), pe.Reason)
}

func (pe *ParseError) Unwrap() error {
	return ErrParse
}

// DecodeLine parses one data line of the backing file.
// The returned error is always a *ParseError.
func DecodeLine(line string) (Record, error) {
	line = strings.TrimSuffix(line, "\r")
	cols := strings.Split(line, delimiter)
	if len(cols) != columnCount {
		return Record{}, &ParseError{
			Reason: fmt.Sprintf("expected %d columns, got %d", columnCount, len(cols)),
		}
	}

	idx, err := strconv.Atoi(strings.TrimSpace(cols[colIndex]))
	if err != nil {
		return Record{}, columnError(colIndex, err)
	}

	if idx < 0 {
		return Record{}, &ParseError{Column: columnNames[colIndex], Reason: "index cannot be negative"}
	}

	date, err := time.Parse(parseDateLayout, strings.TrimSpace(cols[colDate]))
	if err != nil {
		return Record{}, columnError(colDate, err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(cols[colAmount]))
	if err != nil {
		return Record{}, columnError(colAmount, err)
	}

	if amount.IsNegative() {
		return Record{}, &ParseError{Column: columnNames[colAmount], Reason: "amount cannot be negative"}
	}

	return Record{
		Index:      idx,
		OrderID:    cols[colOrderID],
		Date:       date,
		Status:     cols[colStatus],
		Fulfilment: cols[colFulfilment],
		Channel:    cols[colChannel],
		Category:   cols[colCategory],
		Size:       cols[colSize],
		Amount:     amount,
		ShipCity:   cols[colShipCity],
		ShipState:  cols[colShipState],
	}, nil
}

// EncodeRecord renders a record as one line without the trailing newline.
// Records must pass Validate first, otherwise the line may not decode back.
func EncodeRecord(r Record) string {
	var sb strings.Builder

	sb.WriteString(strconv.Itoa(r.Index))
	for col := colOrderID; col < columnCount; col++ {
		sb.WriteString(delimiter)
		switch col {
		case colOrderID:
			sb.WriteString(r.OrderID)
		case colDate:
			sb.WriteString(r.Date.Format(dateLayout))
		case colStatus:
			sb.WriteString(r.Status)
		case colFulfilment:
			sb.WriteString(r.Fulfilment)
		case colChannel:
			sb.WriteString(r.Channel)
		case colCategory:
			sb.WriteString(r.Category)
		case colSize:
			sb.WriteString(r.Size)
		case colAmount:
			sb.WriteString(r.Amount.String())
		case colShipCity:
			sb.WriteString(r.ShipCity)
		case colShipState:
			sb.WriteString(r.ShipState)
		}
	}

	return sb.String()
}

func columnError(col int, err error) *ParseError {
	return &ParseError{Column: columnNames[col], Reason: err.Error()}
}
