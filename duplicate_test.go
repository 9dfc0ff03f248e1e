package salesdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Equal(t *testing.T) {
	a := sampleRecords()[0]

	t.Run("identical records", func(t *testing.T) {
		b := a
		assert.True(t, a.Equal(b))
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("amount scale does not matter", func(t *testing.T) {
		b := a
		b.Amount = amount("449")
		assert.True(t, a.Equal(b))
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("time of day does not matter", func(t *testing.T) {
		b := a
		b.Date = b.Date.Add(13 * time.Hour)
		assert.True(t, a.Equal(b))
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("customer reference is ignored", func(t *testing.T) {
		b := a
		b.Customer = &CustomerRef{ID: 1}
		assert.True(t, a.Equal(b))
	})

	t.Run("any persisted field makes a difference", func(t *testing.T) {
		mutations := []func(r *Record){
			func(r *Record) { r.Index++ },
			func(r *Record) { r.OrderID += "x" },
			func(r *Record) { r.Date = r.Date.AddDate(0, 0, 1) },
			func(r *Record) { r.Status = "shipped" },
			func(r *Record) { r.Fulfilment = "Merchant" },
			func(r *Record) { r.Channel = "Non-Amazon" },
			func(r *Record) { r.Category = "kurta" },
			func(r *Record) { r.Size = "XXL" },
			func(r *Record) { r.Amount = amount("449.01") },
			func(r *Record) { r.ShipCity = "PUNE" },
			func(r *Record) { r.ShipState = "GOA" },
		}

		for _, mutate := range mutations {
			b := a
			mutate(&b)
			assert.False(t, a.Equal(b), "%+v", b)
		}
	})
}

func TestIsDuplicate(t *testing.T) {
	var stored []fingerprinted
	for _, r := range sampleRecords() {
		stored = append(stored, newFingerprinted(r))
	}

	same := sampleRecords()[1]
	assert.True(t, isDuplicate(stored, newFingerprinted(same)))

	sameOrderOtherIndex := sampleRecords()[1]
	sameOrderOtherIndex.Index = 99
	assert.False(t, isDuplicate(stored, newFingerprinted(sameOrderOtherIndex)))

	assert.False(t, isDuplicate(nil, newFingerprinted(same)))
}
