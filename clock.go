package tenantdb

import "time"

// Clock supplies the timestamps stamped onto documents. Swap it out in tests
// for deterministic created_at/updated_at values.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
