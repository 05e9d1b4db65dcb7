package journal

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	state   State
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) (State, error) {
	if m.loadErr != nil {
		return State{}, m.loadErr
	}
	return m.state, nil
}

func (m *memStore) Save(_ context.Context, s State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = s
	return nil
}

func (m *memStore) Close() error { return nil }

func TestOpenBookMemoryOnly(t *testing.T) {
	t.Parallel()

	b, ws := OpenBook(context.Background(), nil, zerolog.Nop())
	assert.Empty(t, ws)
	assert.Empty(t, b.Entries())
	assert.Equal(t, DefaultSettings(), b.Settings())

	ws, err := b.Add(context.Background(), Entry{ID: "trade_1"})
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestOpenBookLoadFailure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	store := &memStore{loadErr: errors.New("file is encrypted or is not a database")}

	b, ws := OpenBook(context.Background(), store, zerolog.New(&logs))
	require.Len(t, ws, 1)
	assert.Equal(t, WarnPersistenceFailure, ws[0].Code)
	assert.Empty(t, b.Entries())
	assert.Equal(t, DefaultSettings(), b.Settings())
	assert.Contains(t, logs.String(), "load journal")
}

func TestBookSavesAfterEveryChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{state: State{Entries: []Entry{}, Settings: DefaultSettings()}}
	b, ws := OpenBook(ctx, store, zerolog.Nop())
	require.Empty(t, ws)

	_, err := b.Add(ctx, Entry{ID: "trade_1", Coin: "BTC"})
	require.NoError(t, err)
	_, err = b.Add(ctx, Entry{ID: "trade_2", Coin: "ETH"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.saves)

	_, err = b.Put(ctx, Entry{ID: "trade_1", Coin: "SOL"})
	require.NoError(t, err)
	got, err := b.Entry("trade_1")
	require.NoError(t, err)
	assert.Equal(t, "SOL", got.Coin)

	_, err = b.Remove(ctx, "trade_2")
	require.NoError(t, err)
	assert.Len(t, store.state.Entries, 1)

	ws = b.SetSettings(ctx, Settings{DefaultExchanges: []string{"EdgeX"}, RiskPercentage: 1, AccountSize: 100})
	assert.Empty(t, ws)
	assert.InDelta(t, 100.0, store.state.Settings.AccountSize, 1e-12)
	assert.Equal(t, 5, store.saves)
}

func TestBookErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _ := OpenBook(ctx, &memStore{}, zerolog.Nop())

	_, err := b.Add(ctx, Entry{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = b.Add(ctx, Entry{ID: "trade_1"})
	require.NoError(t, err)
	_, err = b.Add(ctx, Entry{ID: "trade_1"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = b.Put(ctx, Entry{ID: "trade_9"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.Remove(ctx, "trade_9")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = b.Entry("trade_9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookSaveFailureKeepsMemoryState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	b, _ := OpenBook(ctx, store, zerolog.Nop())

	store.saveErr = errors.New("quota exceeded")
	ws, err := b.Add(ctx, Entry{ID: "trade_1"})
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, WarnPersistenceFailure, ws[0].Code)
	assert.Contains(t, ws[0].Msg, "quota exceeded")

	assert.Len(t, b.Entries(), 1)
	assert.Empty(t, store.state.Entries)
}

func TestBookReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _ := OpenBook(ctx, nil, zerolog.Nop())

	e := Entry{ID: "trade_1", Images: []string{"a.png"}}
	_, err := b.Add(ctx, e)
	require.NoError(t, err)
	e.Images[0] = "changed"

	got := b.Entries()
	assert.Equal(t, "a.png", got[0].Images[0])
	got[0].Images[0] = "changed again"

	again, err := b.Entry("trade_1")
	require.NoError(t, err)
	assert.Equal(t, "a.png", again.Images[0])

	s := b.Settings()
	s.DefaultExchanges[0] = "Nowhere"
	assert.Equal(t, "Blofin", b.Settings().DefaultExchanges[0])
}

func TestBookReplaceAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	b, _ := OpenBook(ctx, store, zerolog.Nop())
	_, err := b.Add(ctx, Entry{ID: "trade_1"})
	require.NoError(t, err)

	ws := b.ReplaceAll(ctx, []Entry{{ID: "trade_2"}, {ID: "trade_3"}})
	assert.Empty(t, ws)
	assert.Len(t, b.Entries(), 2)
	assert.Len(t, store.state.Entries, 2)
}

func TestBookDefaultTo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	seed := Settings{DefaultExchanges: []string{"EdgeX"}, RiskPercentage: 1, AccountSize: 750}

	b, _ := OpenBook(ctx, &memStore{}, zerolog.Nop())
	b.DefaultTo(seed)
	assert.Equal(t, seed, b.Settings())

	saved := &memStore{state: State{Settings: DefaultSettings(), SettingsLoaded: true}}
	b, _ = OpenBook(ctx, saved, zerolog.Nop())
	b.DefaultTo(seed)
	assert.Equal(t, DefaultSettings(), b.Settings())
	assert.Zero(t, saved.saves)
}

type stampedStore struct {
	memStore
	at time.Time
}

func (s *stampedStore) UpdatedAt(context.Context, string) (time.Time, error) {
	if s.at.IsZero() {
		return time.Time{}, errors.New("never saved")
	}
	return s.at, nil
}

func TestBookLastSaved(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	b, _ := OpenBook(ctx, nil, zerolog.Nop())
	_, ok := b.LastSaved(ctx)
	assert.False(t, ok)

	b, _ = OpenBook(ctx, &memStore{}, zerolog.Nop())
	_, ok = b.LastSaved(ctx)
	assert.False(t, ok)

	st := &stampedStore{}
	b, _ = OpenBook(ctx, st, zerolog.Nop())
	_, ok = b.LastSaved(ctx)
	assert.False(t, ok)

	st.at = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	got, ok := b.LastSaved(ctx)
	require.True(t, ok)
	assert.Equal(t, st.at, got)
}
