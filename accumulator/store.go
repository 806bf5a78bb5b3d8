package accumulator

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/sealedsum/sealedsum/hebackend"
)

// entryPrefix is the key prefix of the accumulator entry table.
var entryPrefix = []byte("a/")

// Store maps each principal to its current ciphertext handle. A principal's
// slot is either absent or holds exactly one handle; a write replaces the
// whole entry and entries are never deleted.
type Store struct {
	db   db.Database
	zero func() (hebackend.Handle, error)
}

// NewStore creates a Store on the given database. The engine provides the
// canonical zero handle materialized for principals read before their first
// write.
func NewStore(d db.Database, engine hebackend.Engine) *Store {
	return &Store{db: d, zero: engine.Zero}
}

// Read returns the principal's current handle. If the principal has no entry
// yet, the canonical zero handle is materialized, persisted as the
// principal's entry and returned, so subsequent homomorphic operations always
// have a concrete operand. The materialization is a mutation belonging to the
// caller's operation.
func (s *Store) Read(principal common.Address) (hebackend.Handle, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, entryPrefix)
	data, err := rTx.Get(principal.Bytes())
	switch {
	case err == nil:
		return hebackend.Handle(data), nil
	case errors.Is(err, db.ErrKeyNotFound):
		z, err := s.zero()
		if err != nil {
			return nil, fmt.Errorf("cannot materialize zero handle: %w", err)
		}
		if err := s.Write(principal, z); err != nil {
			return nil, err
		}
		return z, nil
	default:
		return nil, fmt.Errorf("cannot read accumulator entry: %w", err)
	}
}

// Write replaces the principal's entry atomically. No validation of handle
// provenance happens here; that is the service's responsibility.
func (s *Store) Write(principal common.Address, h hebackend.Handle) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), entryPrefix)
	defer wTx.Discard()
	if err := wTx.Set(principal.Bytes(), h); err != nil {
		return fmt.Errorf("cannot store accumulator entry: %w", err)
	}
	return wTx.Commit()
}

// Has reports whether the principal already holds an entry, without
// materializing anything.
func (s *Store) Has(principal common.Address) (bool, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, entryPrefix)
	_, err := rTx.Get(principal.Bytes())
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
