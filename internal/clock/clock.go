package clock

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

type Clock interface {
	Now() time.Time
}

// Local reports wall time in a fixed location.
type Local struct {
	loc *time.Location
}

// NewLocal loads the named zone ("America/La_Paz"). An empty name means UTC.
func NewLocal(name string) (*Local, error) {
	if name == "" {
		return &Local{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "load location %q", name)
	}
	return &Local{loc: loc}, nil
}

func (c *Local) Now() time.Time { return time.Now().In(c.loc) }

func (c *Local) Location() *time.Location { return c.loc }

// Fixed is a settable clock for tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Fixed) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
