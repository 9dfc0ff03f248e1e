package salesdb

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRecord_Clone(t *testing.T) {
	r := sampleRecords()[0]
	r.Customer = &CustomerRef{ID: 42, Name: "Asha"}

	cp := r.Clone()
	assert.True(t, r.Equal(cp))
	assert.Equal(t, r.Date, cp.Date)
	assert.True(t, r.Amount.Equal(cp.Amount))
	require.NotNil(t, cp.Customer)
	assert.Equal(t, *r.Customer, *cp.Customer)

	cp.Customer.Name = "Ravi"
	cp.Status = "Returned"
	assert.Equal(t, "Asha", r.Customer.Name, "customer reference must not be shared")
	assert.Equal(t, "Shipped", r.Status)
}

func TestRecord_Validate(t *testing.T) {
	valid := sampleRecords()[0]
	require.NoError(t, valid.Validate())

	tt := []struct {
		name   string
		mutate func(r *Record)
	}{
		{"negative index", func(r *Record) { r.Index = -1 }},
		{"missing date", func(r *Record) { r.Date = time.Time{} }},
		{"negative amount", func(r *Record) { r.Amount = amount("-0.01") }},
		{"delimiter in order id", func(r *Record) { r.OrderID = "171,1" }},
		{"line break in city", func(r *Record) { r.ShipCity = "MUM\nBAI" }},
		{"carriage return in size", func(r *Record) { r.Size = "S\r" }},
		{"year after two-digit window", func(r *Record) { r.Date = date(2069, time.January, 1) }},
		{"year before two-digit window", func(r *Record) { r.Date = date(1968, time.December, 31) }},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}
}

func TestRecord_Validate_YearWindowBounds(t *testing.T) {
	r := sampleRecords()[0]

	r.Date = date(1969, time.January, 1)
	assert.NoError(t, r.Validate())

	r.Date = date(2068, time.December, 31)
	assert.NoError(t, r.Validate())

	line := EncodeRecord(r)
	back, err := DecodeLine(line)
	require.NoError(t, err)
	assert.Equal(t, 2068, back.Date.Year())
}

func TestRecord_JSON(t *testing.T) {
	r := sampleRecords()[1]
	r.Customer = &CustomerRef{ID: 7, Name: "Meera"}

	b, err := json.Marshal(r)
	require.NoError(t, err)

	assert.Equal(t, int64(2), gjson.GetBytes(b, "index").Int())
	assert.Equal(t, "171-2", gjson.GetBytes(b, "orderId").String())
	assert.Equal(t, "2022-05-01", gjson.GetBytes(b, "date").String())
	assert.Equal(t, "329.5", gjson.GetBytes(b, "amount").String())
	assert.Equal(t, "Meera", gjson.GetBytes(b, "customer.name").String())

	back, err := RecordFromJSON(b)
	require.NoError(t, err)
	assert.True(t, r.Equal(back))
	require.NotNil(t, back.Customer)
	assert.Equal(t, 7, back.Customer.ID)
}

func TestRecordFromJSON(t *testing.T) {
	t.Run("numeric amount", func(t *testing.T) {
		r, err := RecordFromJSON([]byte(`{"orderId":"X-1","date":"2022-04-30","status":"Shipped","amount":12.5,"shipCity":"Pune"}`))
		require.NoError(t, err)

		assert.Equal(t, 0, r.Index)
		assert.Equal(t, "X-1", r.OrderID)
		assert.Equal(t, date(2022, time.April, 30), r.Date)
		assert.True(t, amount("12.5").Equal(r.Amount))
		assert.Equal(t, "Pune", r.ShipCity)
		assert.Nil(t, r.Customer)
	})

	tt := []struct {
		name string
		in   string
	}{
		{"not json", `{"orderId":`},
		{"not an object", `[1,2]`},
		{"bad date", `{"date":"04/30/22"}`},
		{"bad amount", `{"amount":"lots"}`},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RecordFromJSON([]byte(tc.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}
}
