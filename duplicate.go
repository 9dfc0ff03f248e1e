package salesdb

import "github.com/cespare/xxhash/v2"

// Equal reports whether every persisted field of r and other matches.
// Index takes part in the comparison; the customer reference does not.
func (r Record) Equal(other Record) bool {
	return r.Index == other.Index &&
		r.OrderID == other.OrderID &&
		sameDay(r.Date, other.Date) &&
		r.Status == other.Status &&
		r.Fulfilment == other.Fulfilment &&
		r.Channel == other.Channel &&
		r.Category == other.Category &&
		r.Size == other.Size &&
		r.Amount.Equal(other.Amount) &&
		r.ShipCity == other.ShipCity &&
		r.ShipState == other.ShipState
}

// Fingerprint hashes the encoded form of the record. Structurally equal
// records always share a fingerprint.
func (r Record) Fingerprint() uint64 {
	return xxhash.Sum64String(EncodeRecord(r))
}

// fingerprinted pairs a stored record with its fingerprint so the
// duplicate scan compares hashes before fields.
type fingerprinted struct {
	Record
	fp uint64
}

func newFingerprinted(r Record) fingerprinted {
	return fingerprinted{Record: r, fp: r.Fingerprint()}
}

// isDuplicate scans records for a structural duplicate of candidate.
// The business key (OrderID) is deliberately not treated as unique here.
func isDuplicate(records []fingerprinted, candidate fingerprinted) bool {
	for i := range records {
		if records[i].fp != candidate.fp {
			continue
		}

		if records[i].Equal(candidate.Record) {
			return true
		}
	}

	return false
}
