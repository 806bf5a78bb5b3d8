package audit

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/sealedsum/sealedsum/util"
)

func TestLogSinkEmitNeverBlocks(t *testing.T) {
	c := qt.New(t)

	s := NewLogSink(4)
	defer s.Close()

	principal := common.BytesToAddress(util.RandomBytes(20))
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10_000; i++ {
			s.Emit("accumulator.increment", principal, util.RandomBytes(32))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		c.Fatal("emit blocked")
	}
}

func TestLogSinkEmitDuringClose(t *testing.T) {
	s := NewLogSink(4)
	principal := common.BytesToAddress(util.RandomBytes(20))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.Emit("accumulator.increment", principal, util.RandomBytes(32))
			}
		}()
	}
	s.Close()
	wg.Wait()

	// emitting after close is a no-op
	s.Emit("accumulator.decrement", principal, util.RandomBytes(32))
}

func TestLogSinkCloseIsIdempotent(t *testing.T) {
	s := NewLogSink(0)
	s.Emit("accumulator.decrement", common.BytesToAddress(util.RandomBytes(20)), util.RandomBytes(32))
	s.Close()
	s.Close()
}
