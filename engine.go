package salesdb

import (
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrDuplicate = errors.New("structurally identical record already exists")
var ErrRecordNotFound = errors.New("record not found")
var ErrIndexConflict = errors.New("index is already taken")

// LoadReport summarizes the initial load of the backing file.
type LoadReport struct {
	Accepted   int
	Malformed  int
	Duplicates int
	Conflicts  int
}

// Stats describes the current state of the store.
type Stats struct {
	Records   int
	NextIndex int
	FileSize  int64
	// Checksum is an xxhash digest of every encoded record in order.
	Checksum uint64
}

// engine owns the canonical record sequence. It is not safe for concurrent
// use, DB serializes access to it.
type engine struct {
	records   []fingerprinted
	p         persister
	nextIndex int
	retired   map[int]struct{}
	report    LoadReport
	log       *zap.Logger
}

func newEngine(p persister, log *zap.Logger) *engine {
	return &engine{
		p:         p,
		nextIndex: 1,
		retired:   make(map[int]struct{}),
		log:       log,
	}
}

func (e *engine) load() error {
	err := e.p.load(func(lineNo int, line string) {
		r, err := DecodeLine(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = lineNo
			}
			e.report.Malformed++
			e.log.Warn("skipping malformed line", zap.Int("line", lineNo), zap.Error(err))
			return
		}

		c := newFingerprinted(r)
		if isDuplicate(e.records, c) {
			e.report.Duplicates++
			e.log.Warn("skipping duplicate record", zap.Int("line", lineNo), zap.Int("index", r.Index))
			return
		}

		if e.position(r.Index) >= 0 {
			e.report.Conflicts++
			e.log.Warn("skipping record with an index already in use",
				zap.Int("line", lineNo), zap.Int("index", r.Index))
			return
		}

		e.records = append(e.records, c)
		e.bumpNextIndex(r.Index)
		e.report.Accepted++
	})
	if err != nil {
		return errors.Wrap(err, "could not load records")
	}

	e.log.Info("records loaded",
		zap.Int("accepted", e.report.Accepted),
		zap.Int("malformed", e.report.Malformed),
		zap.Int("duplicates", e.report.Duplicates),
		zap.Int("conflicts", e.report.Conflicts),
	)

	return nil
}

func (e *engine) bumpNextIndex(idx int) {
	if idx >= e.nextIndex {
		e.nextIndex = idx + 1
	}
}

// position does a linear scan for the record with the given index.
func (e *engine) position(idx int) int {
	for i := range e.records {
		if e.records[i].Index == idx {
			return i
		}
	}
	return -1
}

func (e *engine) insert(candidate Record) (Record, error) {
	c := newFingerprinted(candidate)
	if isDuplicate(e.records, c) {
		return Record{}, errors.Wrapf(ErrDuplicate, "order %s", candidate.OrderID)
	}

	if err := candidate.Validate(); err != nil {
		return Record{}, err
	}

	rec := candidate.Clone()
	rec.Date = truncateToDay(rec.Date)
	prevNextIndex := e.nextIndex

	switch {
	case rec.Index == 0:
		rec.Index = e.nextIndex
	case e.position(rec.Index) >= 0:
		return Record{}, errors.Wrapf(ErrIndexConflict, "index %d belongs to another record", rec.Index)
	case e.isRetired(rec.Index):
		return Record{}, errors.Wrapf(ErrIndexConflict, "index %d belonged to a deleted record", rec.Index)
	}

	e.bumpNextIndex(rec.Index)
	e.records = append(e.records, newFingerprinted(rec))

	if err := e.p.append(EncodeRecord(rec)); err != nil {
		e.records = e.records[:len(e.records)-1]
		e.nextIndex = prevNextIndex
		e.log.Error("insert rolled back", zap.Int("index", rec.Index), zap.Error(err))
		return Record{}, errors.Wrapf(err, "could not insert record %d", rec.Index)
	}

	return rec.Clone(), nil
}

func (e *engine) update(newVersion Record) error {
	pos := e.position(newVersion.Index)
	if pos < 0 {
		return errors.Wrapf(ErrRecordNotFound, "index %d", newVersion.Index)
	}

	if err := newVersion.Validate(); err != nil {
		return err
	}

	rec := newVersion.Clone()
	rec.Date = truncateToDay(rec.Date)

	prev := e.records[pos]
	e.records[pos] = newFingerprinted(rec)

	if err := e.p.rewrite(e.lines()); err != nil {
		e.records[pos] = prev
		e.log.Error("update rolled back", zap.Int("index", newVersion.Index), zap.Error(err))
		return errors.Wrapf(err, "could not update record %d", newVersion.Index)
	}

	return nil
}

func (e *engine) delete(idx int) error {
	pos := e.position(idx)
	if pos < 0 {
		return errors.Wrapf(ErrRecordNotFound, "index %d", idx)
	}

	removed := e.records[pos]
	e.records = slices.Delete(e.records, pos, pos+1)

	if err := e.p.rewrite(e.lines()); err != nil {
		e.records = slices.Insert(e.records, pos, removed)
		e.log.Error("delete rolled back", zap.Int("index", idx), zap.Error(err))
		return errors.Wrapf(err, "could not delete record %d", idx)
	}

	e.retired[idx] = struct{}{}
	return nil
}

func (e *engine) isRetired(idx int) bool {
	_, ok := e.retired[idx]
	return ok
}

func (e *engine) get(idx int) (Record, error) {
	pos := e.position(idx)
	if pos < 0 {
		return Record{}, errors.Wrapf(ErrRecordNotFound, "index %d", idx)
	}

	return e.records[pos].Clone(), nil
}

func (e *engine) snapshot() []Record {
	out := make([]Record, len(e.records))
	for i := range e.records {
		out[i] = e.records[i].Clone()
	}
	return out
}

// match returns the positions of the records satisfying q.
func (e *engine) match(q *Query) []int {
	if q == nil {
		q = Q()
	}

	positions := make([]int, 0)
	m := q.matcher()
	for i := range e.records {
		if m.match(&e.records[i].Record) {
			positions = append(positions, i)
		}
	}

	return positions
}

func (e *engine) at(positions []int) []Record {
	out := make([]Record, len(positions))
	for i, pos := range positions {
		out[i] = e.records[pos].Clone()
	}
	return out
}

func (e *engine) lines() []string {
	out := make([]string, len(e.records))
	for i := range e.records {
		out[i] = EncodeRecord(e.records[i].Record)
	}
	return out
}

func (e *engine) stats() Stats {
	d := xxhash.New()
	for _, l := range e.lines() {
		_, _ = d.WriteString(l)
		_, _ = d.WriteString("\n")
	}

	return Stats{
		Records:   len(e.records),
		NextIndex: e.nextIndex,
		FileSize:  e.p.size(),
		Checksum:  d.Sum64(),
	}
}

func (e *engine) count() int {
	return len(e.records)
}

func (e *engine) close() error {
	e.records = nil
	return e.p.close()
}
