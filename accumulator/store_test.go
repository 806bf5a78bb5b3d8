package accumulator

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"

	elgamalbackend "github.com/sealedsum/sealedsum/hebackend/elgamal"
	"github.com/sealedsum/sealedsum/util"

	"github.com/ethereum/go-ethereum/common"
)

func randomPrincipal() common.Address {
	return common.BytesToAddress(util.RandomBytes(20))
}

func TestStoreReadMaterializesZero(t *testing.T) {
	c := qt.New(t)
	kv := memdb.New()
	backend, err := elgamalbackend.New(kv)
	c.Assert(err, qt.IsNil)
	store := NewStore(kv, backend)

	p := randomPrincipal()
	has, err := store.Has(p)
	c.Assert(err, qt.IsNil)
	c.Assert(has, qt.IsFalse)

	h, err := store.Read(p)
	c.Assert(err, qt.IsNil)
	zero, err := backend.Zero()
	c.Assert(err, qt.IsNil)
	c.Assert(h.Equal(zero), qt.IsTrue)

	// the zero entry was persisted as part of the read
	has, err = store.Has(p)
	c.Assert(err, qt.IsNil)
	c.Assert(has, qt.IsTrue)
}

func TestStoreWriteReplacesEntry(t *testing.T) {
	c := qt.New(t)
	kv := memdb.New()
	backend, err := elgamalbackend.New(kv)
	c.Assert(err, qt.IsNil)
	store := NewStore(kv, backend)

	p := randomPrincipal()
	h1 := util.RandomBytes(32)
	h2 := util.RandomBytes(32)

	c.Assert(store.Write(p, h1), qt.IsNil)
	got, err := store.Read(p)
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(got), qt.DeepEquals, h1)

	c.Assert(store.Write(p, h2), qt.IsNil)
	got, err = store.Read(p)
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(got), qt.DeepEquals, h2)
}

func TestStoreEntriesAreIndependent(t *testing.T) {
	c := qt.New(t)
	kv := memdb.New()
	backend, err := elgamalbackend.New(kv)
	c.Assert(err, qt.IsNil)
	store := NewStore(kv, backend)

	a := randomPrincipal()
	b := randomPrincipal()
	ha := util.RandomBytes(32)

	c.Assert(store.Write(a, ha), qt.IsNil)
	has, err := store.Has(b)
	c.Assert(err, qt.IsNil)
	c.Assert(has, qt.IsFalse)
}
