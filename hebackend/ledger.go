package hebackend

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// grantPrefix is the key prefix of the grant table.
var grantPrefix = []byte("g/")

// selfParty is the reserved grantee key for the service itself.
var selfParty = []byte("self")

// Ledger is a KV-backed AccessLedger shared by the backend implementations.
// A grant is a single key handle||party with an empty value; writing it twice
// leaves the table unchanged, which makes grants idempotent.
type Ledger struct {
	db db.Database
}

// NewLedger creates a grant ledger on top of the given database.
func NewLedger(d db.Database) *Ledger {
	return &Ledger{db: d}
}

func grantKey(h Handle, party []byte) []byte {
	key := make([]byte, 0, len(h)+len(party))
	key = append(key, h...)
	return append(key, party...)
}

func (l *Ledger) set(key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(l.db.WriteTx(), grantPrefix)
	defer wTx.Discard()
	if err := wTx.Set(key, []byte{}); err != nil {
		return fmt.Errorf("cannot store grant: %w", err)
	}
	return wTx.Commit()
}

// GrantSelf records a grant for the service itself on the handle.
func (l *Ledger) GrantSelf(h Handle) error {
	return l.set(grantKey(h, selfParty))
}

// GrantTo records a grant for the given party on the handle.
func (l *Ledger) GrantTo(h Handle, party common.Address) error {
	return l.set(grantKey(h, party.Bytes()))
}

// CanDecrypt reports whether the party holds a grant on the handle.
func (l *Ledger) CanDecrypt(h Handle, party common.Address) (bool, error) {
	rTx := prefixeddb.NewPrefixedReader(l.db, grantPrefix)
	_, err := rTx.Get(grantKey(h, party.Bytes()))
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasSelfGrant reports whether the service itself holds a grant on the handle.
func (l *Ledger) HasSelfGrant(h Handle) (bool, error) {
	rTx := prefixeddb.NewPrefixedReader(l.db, grantPrefix)
	_, err := rTx.Get(grantKey(h, selfParty))
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
