package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Blob names under which the journal is persisted.
const (
	EntriesBlob  = "tradingJournal"
	SettingsBlob = "journalSettings"
)

// State is everything a Store persists.
type State struct {
	Entries  []Entry
	Settings Settings

	// SettingsLoaded is set by Load when a settings blob was found.
	SettingsLoaded bool
}

// Store persists the journal as two opaque blobs. Implementations must
// write both blobs or neither.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
	Close() error
}

// Stamper is implemented by stores that record when a blob was written.
type Stamper interface {
	UpdatedAt(ctx context.Context, name string) (time.Time, error)
}

// encodeState serializes s into blobs keyed by name.
func encodeState(s State) (map[string][]byte, error) {
	entries := s.Entries
	if entries == nil {
		entries = []Entry{}
	}
	eb, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode entries: %w", err)
	}
	sb, err := json.Marshal(s.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return map[string][]byte{EntriesBlob: eb, SettingsBlob: sb}, nil
}

// decodeState parses blobs; a missing blob yields the empty journal or the
// default settings.
func decodeState(blobs map[string][]byte) (State, error) {
	s := State{Entries: []Entry{}, Settings: DefaultSettings()}
	if b, ok := blobs[EntriesBlob]; ok && len(b) > 0 {
		if err := json.Unmarshal(b, &s.Entries); err != nil {
			return State{}, fmt.Errorf("decode %s: %w", EntriesBlob, err)
		}
	}
	if b, ok := blobs[SettingsBlob]; ok && len(b) > 0 {
		if err := json.Unmarshal(b, &s.Settings); err != nil {
			return State{}, fmt.Errorf("decode %s: %w", SettingsBlob, err)
		}
		s.SettingsLoaded = true
	}
	return s, nil
}
