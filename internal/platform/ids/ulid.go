package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

type Generator interface{ NewID(t time.Time) string }

// ULID hands out monotonic ULIDs. Safe for concurrent use.
type ULID struct {
	mu      sync.Mutex
	entropy io.Reader
}

func NewULID() *ULID {
	return &ULID{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULID) NewID(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}
