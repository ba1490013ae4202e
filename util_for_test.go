package tenantdb_test

import (
	"bytes"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pagelens/tenantdb"
	"github.com/pagelens/tenantdb/internal/memstore"
)

// fakeClock hands out a controllable timestamp so stamping is deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func zerologTo(buff *bytes.Buffer) zerolog.Logger {
	return zerolog.New(buff)
}

type testEnv struct {
	db    *tenantdb.DB
	store *memstore.Store
	logs  *bytes.Buffer
	clock *fakeClock
}

func newTestEnv(opts ...tenantdb.Option) *testEnv {
	env := &testEnv{
		store: memstore.New(),
		logs:  bytes.NewBuffer(nil),
		clock: newFakeClock(),
	}
	log := zerolog.New(env.logs)
	all := append([]tenantdb.Option{
		tenantdb.WithLogger(log),
		tenantdb.WithClock(env.clock),
	}, opts...)
	env.db = tenantdb.New(env.store, all...)
	return env
}
