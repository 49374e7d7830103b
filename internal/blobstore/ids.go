package blobstore

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	StrategyTimestamp = "timestamp"
	StrategyUUID      = "uuid"

	fallbackBlobName = "blob"
	maxIDLength      = 255
)

// TimestampIDs derives ids from the creation time in milliseconds and the
// original filename. Issued timestamps are strictly increasing per generator.
type TimestampIDs struct {
	now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewTimestampIDs creates a generator reading the wall clock.
func NewTimestampIDs() *TimestampIDs {
	return &TimestampIDs{now: time.Now}
}

// NextID returns "<unix-millis>-<name>".
func (g *TimestampIDs) NextID(originalName string) string {
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	ms := now().UnixMilli()

	g.mu.Lock()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	g.mu.Unlock()

	return truncateID(fmt.Sprintf("%d-%s", ms, SanitizeName(originalName)))
}

// UUIDIDs issues random UUIDs, keeping the original file extension.
type UUIDIDs struct{}

func (UUIDIDs) NextID(originalName string) string {
	ext := filepath.Ext(SanitizeName(originalName))
	if len(ext) > 16 {
		ext = ""
	}
	return uuid.NewString() + ext
}

// NewIDGenerator resolves a configured strategy name.
func NewIDGenerator(strategy string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyTimestamp:
		return NewTimestampIDs(), nil
	case StrategyUUID:
		return UUIDIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q", strategy)
	}
}

// SanitizeName reduces a client filename to something usable inside an id.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(filepath.FromSlash(name)))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if strings.Trim(name, ".") == "" {
		return fallbackBlobName
	}
	return name
}

// ValidID reports whether id can name a stored blob.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	if strings.HasPrefix(id, ".") {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}

func truncateID(id string) string {
	if len(id) <= maxIDLength {
		return id
	}
	return strings.ToValidUTF8(id[:maxIDLength], "")
}
