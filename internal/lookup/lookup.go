// Package lookup provides read-only position to utility tables, consulted by the lookup evaluator.
//
// Keys are the binary position keys of games.Keyed states, values are utilities in [0, 1] from the
// perspective of the first player. Two implementations are provided: MapTable, in memory, and
// BadgerTable, backed by an embedded BadgerDB database that can be filled once and reused across runs.
package lookup

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/pkg/errors"
)

// Table is a read-only key-value collaborator.
type Table interface {
	// Lookup returns the utility stored for key, and whether it was found.
	Lookup(key []byte) (value float64, found bool, err error)
}

// MapTable is an in-memory Table. It is safe for concurrent use.
type MapTable struct {
	mu     sync.RWMutex
	values map[string]float64
}

var _ Table = (*MapTable)(nil)

// NewMapTable returns an empty MapTable.
func NewMapTable() *MapTable {
	return &MapTable{values: make(map[string]float64)}
}

// Put stores value for key.
func (t *MapTable) Put(key []byte, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[string(key)] = value
}

// Len returns the number of entries.
func (t *MapTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

// Lookup implements Table.
func (t *MapTable) Lookup(key []byte) (float64, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	value, found := t.values[string(key)]
	return value, found, nil
}

// encodeValue encodes a utility as 8 big-endian bytes.
func encodeValue(value float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(value))
	return buf
}

func decodeValue(buf []byte) (float64, error) {
	if len(buf) != 8 {
		return 0, errors.Errorf("invalid lookup value of %d bytes, expected 8", len(buf))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf)), nil
}
