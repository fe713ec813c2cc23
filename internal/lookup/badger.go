package lookup

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BadgerConfig configures a BadgerTable.
type BadgerConfig struct {
	// Path is the directory for the database files. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in memory only. Useful for testing.
	InMemory bool

	// ReadOnly opens an existing database without write access: Put will fail.
	ReadOnly bool
}

// BadgerTable is a Table stored in a BadgerDB database. It is safe for concurrent use.
type BadgerTable struct {
	db *badger.DB
}

var _ Table = (*BadgerTable)(nil)

// klogAdapter adapts klog to BadgerDB's Logger interface. BadgerDB info and debug messages are only
// logged at higher verbosity levels.
type klogAdapter struct{}

func (klogAdapter) Errorf(format string, args ...interface{}) {
	klog.ErrorDepth(1, fmt.Sprintf("badger: "+format, args...))
}

func (klogAdapter) Warningf(format string, args ...interface{}) {
	klog.WarningDepth(1, fmt.Sprintf("badger: "+format, args...))
}

func (klogAdapter) Infof(format string, args ...interface{}) {
	klog.V(2).Infof("badger: "+format, args...)
}

func (klogAdapter) Debugf(format string, args ...interface{}) {
	klog.V(3).Infof("badger: "+format, args...)
}

// OpenBadger opens (or creates) the table. The caller must Close it when done.
func OpenBadger(cfg BadgerConfig) (*BadgerTable, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("lookup: path is required for a persistent table")
		}
		if !cfg.ReadOnly {
			if err := os.MkdirAll(cfg.Path, 0750); err != nil {
				return nil, errors.Wrapf(err, "lookup: failed to create directory %q", cfg.Path)
			}
		}
		opts = badger.DefaultOptions(cfg.Path).WithReadOnly(cfg.ReadOnly)
	}
	opts = opts.WithLogger(klogAdapter{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup: failed to open badger database (path=%q, in_memory=%v)", cfg.Path, cfg.InMemory)
	}
	return &BadgerTable{db: db}, nil
}

// Put stores value for key.
func (t *BadgerTable) Put(key []byte, value float64) error {
	err := t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, encodeValue(value))
	})
	return errors.Wrap(err, "lookup: failed to store value")
}

// Lookup implements Table.
func (t *BadgerTable) Lookup(key []byte) (value float64, found bool, err error) {
	err = t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decodeErr error
			value, decodeErr = decodeValue(val)
			found = decodeErr == nil
			return decodeErr
		})
	})
	if err != nil {
		return 0, false, errors.Wrap(err, "lookup: failed to read value")
	}
	return
}

// Close the underlying database.
func (t *BadgerTable) Close() error {
	return errors.Wrap(t.db.Close(), "lookup: failed to close badger database")
}
