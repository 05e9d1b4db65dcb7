package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Book is the in-memory journal for a session. It saves through its Store
// after every change. A failed load or save is reported as a
// PERSISTENCE_FAILURE warning and the in-memory state stays authoritative.
//
// A Book is not safe for concurrent use.
type Book struct {
	store    Store
	log      zerolog.Logger
	entries  []Entry
	settings Settings

	settingsLoaded bool
}

// OpenBook loads the journal from store. A nil store keeps the journal in
// memory only.
func OpenBook(ctx context.Context, store Store, log zerolog.Logger) (*Book, []Warning) {
	b := &Book{
		store:    store,
		log:      log,
		entries:  []Entry{},
		settings: DefaultSettings(),
	}
	if store == nil {
		return b, nil
	}

	st, err := store.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load journal")
		return b, []Warning{{Code: WarnPersistenceFailure, Msg: fmt.Sprintf("journal could not be loaded, starting empty: %v", err)}}
	}
	b.entries = st.Entries
	b.settings = st.Settings
	b.settingsLoaded = st.SettingsLoaded
	log.Debug().Int("entries", len(b.entries)).Msg("journal loaded")
	return b, nil
}

// Entries returns copies of all entries in insertion order.
func (b *Book) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.Clone()
	}
	return out
}

// Entry returns a copy of the entry with the given id.
func (b *Book) Entry(id string) (Entry, error) {
	i := b.index(id)
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b.entries[i].Clone(), nil
}

// Settings returns the current settings.
func (b *Book) Settings() Settings {
	s := b.settings
	s.DefaultExchanges = cloneSlice(b.settings.DefaultExchanges)
	return s
}

// SetSettings replaces the settings.
func (b *Book) SetSettings(ctx context.Context, s Settings) []Warning {
	s.DefaultExchanges = cloneSlice(s.DefaultExchanges)
	b.settings = s
	b.settingsLoaded = true
	return b.save(ctx)
}

// DefaultTo uses s as the settings if none were loaded or set. Nothing is
// saved until the next mutation.
func (b *Book) DefaultTo(s Settings) {
	if b.settingsLoaded {
		return
	}
	s.DefaultExchanges = cloneSlice(s.DefaultExchanges)
	b.settings = s
}

// Add appends a new entry.
func (b *Book) Add(ctx context.Context, e Entry) ([]Warning, error) {
	if e.ID == "" {
		return nil, invalid("id", "required")
	}
	if b.index(e.ID) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	b.entries = append(b.entries, e.Clone())
	return b.save(ctx), nil
}

// Put replaces the stored entry with the same id.
func (b *Book) Put(ctx context.Context, e Entry) ([]Warning, error) {
	i := b.index(e.ID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e.ID)
	}
	b.entries[i] = e.Clone()
	return b.save(ctx), nil
}

// Remove deletes an entry.
func (b *Book) Remove(ctx context.Context, id string) ([]Warning, error) {
	i := b.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return b.save(ctx), nil
}

// ReplaceAll swaps in a whole new entry list, e.g. after an approved
// exchange sync.
func (b *Book) ReplaceAll(ctx context.Context, entries []Entry) []Warning {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	b.entries = out
	return b.save(ctx)
}

func (b *Book) index(id string) int {
	for i, e := range b.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (b *Book) save(ctx context.Context) []Warning {
	if b.store == nil {
		return nil
	}
	err := b.store.Save(ctx, State{Entries: b.entries, Settings: b.settings})
	if err != nil {
		b.log.Error().Err(err).Msg("save journal")
		return []Warning{{Code: WarnPersistenceFailure, Msg: fmt.Sprintf("journal is not being saved: %v", err)}}
	}
	b.log.Debug().Int("entries", len(b.entries)).Msg("journal saved")
	return nil
}

// LastSaved reports when the entries were last written, if the store
// keeps track.
func (b *Book) LastSaved(ctx context.Context) (time.Time, bool) {
	st, ok := b.store.(Stamper)
	if !ok {
		return time.Time{}, false
	}
	t, err := st.UpdatedAt(ctx, EntriesBlob)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
