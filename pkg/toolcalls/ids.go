package toolcalls

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator issues offer identifiers
type IDGenerator interface {
	NewOfferID(supplierID int) string
}

// ULIDGenerator issues ids like "offer-s2-01J9...". Monotonic entropy keeps ids issued
// within the same millisecond distinct and ordered.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func (g *ULIDGenerator) NewOfferID(supplierID int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	return fmt.Sprintf("offer-s%d-%s", supplierID, id.String())
}
