package salesdb

import (
	"sync"
	"time"

	"github.com/denismitr/salesdb/internal/lru"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
)

var ErrDatabaseAlreadyClosed = errors.New("database already closed")
var ErrDatasetTooLarge = errors.New("backing file is too large to be held in memory")

// DB is a sales record store backed by a delimited text file.
// Mutations are serialized and each one is either fully persisted or not
// applied at all; readers always get copies of committed state.
type DB struct {
	e       *engine
	results resultCache
	mu      sync.RWMutex
	closed  bool
}

// resultCache maps a query key to the positions of matching records.
type resultCache interface {
	Add(key uint64, positions []int) bool
	Get(key uint64) ([]int, bool)
	Purge()
}

func positionsSize(positions []int) uint64 {
	// slice header plus elements
	return uint64(24 + 8*len(positions))
}

type Closer func() error

func NullCloser() error { return nil }

// Open loads the file at path, creating it with a header when it does not
// exist, and returns a DB ready for use together with its closer.
func Open(path string, cfg *Config) (*DB, Closer, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.applyDefaults()

	if err := c.validate(); err != nil {
		return nil, NullCloser, err
	}

	p, err := newFilePersistence(path, &c)
	if err != nil {
		return nil, NullCloser, errors.Wrapf(err, "could not open %s", path)
	}

	if !c.DisableMemoryCheck {
		if err := checkMemory(p.size(), memory.TotalMemory(), c.MaxMemoryFraction); err != nil {
			_ = p.close()
			return nil, NullCloser, err
		}
	}

	db, err := open(p, &c)
	if err != nil {
		_ = p.close()
		return nil, NullCloser, err
	}

	return db, db.close, nil
}

func open(p persister, cfg *Config) (*DB, error) {
	e := newEngine(p, cfg.Logger)
	if err := e.load(); err != nil {
		return nil, err
	}

	var results resultCache = lru.NullCache[[]int]{}
	if !cfg.DisableQueryCache {
		c, err := lru.NewCache[[]int](queryCacheShards, cfg.QueryCacheBytes, positionsSize)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidConfig, err.Error())
		}
		results = c
	}

	return &DB{e: e, results: results}, nil
}

// checkMemory rejects a file whose size exceeds fraction of total memory.
// A zero total means the platform could not report it.
func checkMemory(size int64, total uint64, fraction float64) error {
	if total == 0 {
		return nil
	}

	limit := fraction * float64(total)
	if float64(size) > limit {
		return errors.Wrapf(ErrDatasetTooLarge, "%d bytes exceeds the limit of %.0f bytes", size, limit)
	}

	return nil
}

func (db *DB) close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseAlreadyClosed
	}

	db.closed = true
	return db.e.close()
}

// Insert admits candidate unless it is a structural duplicate of a stored
// record. A zero Index is replaced by the next free index. The stored
// record is returned.
func (db *DB) Insert(candidate Record) (Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return Record{}, ErrDatabaseAlreadyClosed
	}

	stored, err := db.e.insert(candidate)
	if err != nil {
		return Record{}, err
	}

	db.results.Purge()
	return stored, nil
}

// Update replaces the whole record that has the same Index as newVersion.
func (db *DB) Update(newVersion Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseAlreadyClosed
	}

	if err := db.e.update(newVersion); err != nil {
		return err
	}

	db.results.Purge()
	return nil
}

func (db *DB) Delete(index int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrDatabaseAlreadyClosed
	}

	if err := db.e.delete(index); err != nil {
		return err
	}

	db.results.Purge()
	return nil
}

func (db *DB) Get(index int) (Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return Record{}, ErrDatabaseAlreadyClosed
	}

	return db.e.get(index)
}

// All returns a snapshot of every record in insertion order.
// Read methods of a closed DB return zero values.
func (db *DB) All() []Record {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil
	}

	return db.e.snapshot()
}

// Filter returns copies of the records matching q in insertion order,
// never nil unless the DB is closed.
// Results are cached per query until the next committed mutation.
func (db *DB) Filter(q *Query) []Record {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil
	}

	key := q.key()
	positions, ok := db.results.Get(key)
	if !ok {
		positions = db.e.match(q)
		db.results.Add(key, positions)
	}

	return db.e.at(positions)
}

func (db *DB) ByCategory(category string) []Record {
	return db.Filter(Q().Category(category))
}

func (db *DB) ByDate(date time.Time) []Record {
	return db.Filter(Q().Date(date))
}

func (db *DB) ByStatus(status string) []Record {
	return db.Filter(Q().Status(status))
}

func (db *DB) ByFulfilment(fulfilment string) []Record {
	return db.Filter(Q().Fulfilment(fulfilment))
}

func (db *DB) ByChannel(channel string) []Record {
	return db.Filter(Q().Channel(channel))
}

func (db *DB) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return 0
	}

	return db.e.count()
}

func (db *DB) LoadReport() LoadReport {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return LoadReport{}
	}

	return db.e.report
}

func (db *DB) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return Stats{}
	}

	return db.e.stats()
}
