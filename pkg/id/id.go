package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes used for journal records.
const (
	PrefixTrade    = "trade"
	PrefixFollowUp = "followup"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// ulid.Monotonic keeps IDs generated within the same millisecond
	// lexicographically increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string stamped with the current time.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID string stamped with t.
//
// Journal entries keep the ULID's time component equal to their creation
// timestamp, so sorting entries by ID sorts them by creation time.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// Only fails if entropy fails or t is outside the ULID time range.
		panic(err)
	}
	return id.String()
}

// WithPrefix returns "<prefix>_<ulid>", e.g. "trade_01HV...".
func WithPrefix(prefix string) string {
	if prefix == "" {
		return New()
	}
	return prefix + "_" + New()
}

// Time extracts the creation time from an ID produced by this package.
// Prefixed IDs are accepted.
func Time(s string) (time.Time, bool) {
	if i := len(s) - ulid.EncodedSize; i > 0 {
		s = s[i:]
	}
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()).UTC(), true
}
