// Package chain holds the execution primitives shared by the ledger programs:
// the call context of a transaction, the clock it is stamped with, day
// arithmetic and the named rejection type.
package chain

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eduwordle/puzzle-ledger/internal/model"
)

// DayLength is the length of a puzzle day in seconds.
const DayLength int64 = 86400

// Call is the context of one ledger transaction. Every program invoked while
// the transaction runs sees the same Call (with Sender rewritten for
// program-to-program calls).
type Call struct {
	TxID   string
	Sender common.Address
	Time   time.Time
}

// As returns a copy of the call issued by another sender, used when one
// program invokes another inside the same transaction.
func (c Call) As(sender common.Address) Call {
	c.Sender = sender
	return c
}

// Today returns the day id of the call's timestamp.
func (c Call) Today() int64 {
	return DayID(c.Time)
}

// Event builds an event emitted by contract during this call.
func (c Call) Event(contract common.Address, name string, attrs map[string]string) *model.Event {
	return &model.Event{
		TxID:       c.TxID,
		Contract:   contract,
		Name:       name,
		DayID:      c.Today(),
		Attributes: attrs,
		Time:       c.Time,
	}
}

// DayID floors a timestamp to the UTC midnight that starts its day, in epoch
// seconds.
func DayID(t time.Time) int64 {
	sec := t.Unix()
	return sec - sec%DayLength
}

// DayTime converts a day id back to a UTC time.
func DayTime(day int64) time.Time {
	return time.Unix(day, 0).UTC()
}

// Clock provides the block timestamp for new transactions.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ManualClock is a settable clock for tests and replays.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a clock frozen at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t.UTC()}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
