package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/popdict/internal/kvstore"
	mock_kvstore "github.com/at-ishikawa/popdict/internal/mocks/kvstore"
	"github.com/at-ishikawa/popdict/internal/translation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock advances one second on every call.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *kvstore.MemoryStore) {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	opts = append([]Option{WithClock(newFakeClock().Now)}, opts...)
	return NewStore(kv, opts...), kv
}

func phrase(text string) translation.Translation {
	return translation.NewPhrase(translation.PhraseTranslation{
		Text:        text,
		Translation: "translated " + text,
		Languages:   translation.Languages{SourceLanguageCode: "en", TargetLanguageCode: "vi"},
	})
}

func assertCanonicalOrder(t *testing.T, entries []Entry) {
	t.Helper()
	seenUnpinned := false
	for i, e := range entries {
		if !e.Pinned {
			seenUnpinned = true
		} else {
			assert.False(t, seenUnpinned, "pinned entry %s after an unpinned entry", e.ID)
			require.NotNil(t, e.PinnedAt)
		}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		if prev.Pinned && e.Pinned {
			assert.LessOrEqual(t, *prev.PinnedAt, *e.PinnedAt)
		}
		if !prev.Pinned && !e.Pinned {
			assert.GreaterOrEqual(t, prev.Timestamp, e.Timestamp)
		}
	}
}

func TestStore_SaveRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	word := translation.NewWord(translation.WordTranslation{
		Word: "run",
		Meanings: []translation.Meaning{
			{Pronunciation: translation.Pronunciation{Text: "/rʌn/"}, PartOfSpeech: "verb", Definition: "chạy"},
		},
		Languages: translation.Languages{SourceLanguageCode: "en", TargetLanguageCode: "vi"},
	})
	saved, err := store.Save(ctx, word)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.Pinned)
	assert.Nil(t, saved.PinnedAt)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	if diff := cmp.Diff(word, entries[0].Translation); diff != "" {
		t.Errorf("stored translation mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, saved, entries[0])

	got, ok, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, saved, got)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SaveEvictsOldestUnpinned(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var saved []Entry
	for i := range DefaultMaxEntries + 1 {
		e, err := store.Save(ctx, phrase(fmt.Sprintf("phrase %d", i)))
		require.NoError(t, err)
		saved = append(saved, e)
		entries, err := store.List(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(entries), DefaultMaxEntries)
	}

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, DefaultMaxEntries)
	assertCanonicalOrder(t, entries)
	for i, e := range entries {
		assert.Equal(t, saved[len(saved)-1-i].ID, e.ID)
	}
	_, ok, err := store.Get(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PinnedEntriesSurviveTheCap(t *testing.T) {
	store, _ := newTestStore(t, WithMaxEntries(3))
	ctx := context.Background()

	old, err := store.Save(ctx, phrase("old"))
	require.NoError(t, err)
	pinned, err := store.TogglePin(ctx, old.ID)
	require.NoError(t, err)
	require.True(t, pinned.Pinned)

	for i := range 5 {
		_, err := store.Save(ctx, phrase(fmt.Sprintf("new %d", i)))
		require.NoError(t, err)
	}

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, old.ID, entries[0].ID)
	assertCanonicalOrder(t, entries)
	assert.Equal(t, "new 4", entries[1].Translation.Text())
	assert.Equal(t, "new 3", entries[2].Translation.Text())
}

func TestStore_SaveWhenFullOfPinnedEntries(t *testing.T) {
	store, _ := newTestStore(t, WithMaxEntries(2))
	ctx := context.Background()

	for i := range 2 {
		e, err := store.Save(ctx, phrase(fmt.Sprintf("keep %d", i)))
		require.NoError(t, err)
		_, err = store.TogglePin(ctx, e.ID)
		require.NoError(t, err)
	}

	dropped, err := store.Save(ctx, phrase("dropped"))
	assert.ErrorIs(t, err, ErrHistoryFull)
	assert.NotEmpty(t, dropped.ID)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, e.Pinned)
		assert.NotEqual(t, dropped.ID, e.ID)
	}
}

func TestStore_TogglePin(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, phrase("first"))
	require.NoError(t, err)
	second, err := store.Save(ctx, phrase("second"))
	require.NoError(t, err)

	pinnedFirst, err := store.TogglePin(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, pinnedFirst.Pinned)
	require.NotNil(t, pinnedFirst.PinnedAt)

	pinnedSecond, err := store.TogglePin(ctx, second.ID)
	require.NoError(t, err)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, []string{entries[0].ID, entries[1].ID})
	assertCanonicalOrder(t, entries)

	unpinned, err := store.TogglePin(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, unpinned.Pinned)
	assert.Nil(t, unpinned.PinnedAt)

	repinned, err := store.TogglePin(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, repinned.PinnedAt)
	assert.Greater(t, *repinned.PinnedAt, *pinnedSecond.PinnedAt)

	entries, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, []string{entries[0].ID, entries[1].ID})

	_, err = store.TogglePin(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestStore_TogglePinTwiceRestoresUnpinned(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	e, err := store.Save(ctx, phrase("hello"))
	require.NoError(t, err)
	_, err = store.TogglePin(ctx, e.ID)
	require.NoError(t, err)
	got, err := store.TogglePin(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, e, got)
}

func TestStore_Remove(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	a, err := store.Save(ctx, phrase("a"))
	require.NoError(t, err)
	b, err := store.Save(ctx, phrase("b"))
	require.NoError(t, err)
	c, err := store.Save(ctx, phrase("c"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, b.ID))
	before, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, b.ID))
	require.NoError(t, store.Remove(ctx, "missing"))
	after, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID}, []string{entries[0].ID, entries[1].ID})

	require.NoError(t, store.RemoveMany(ctx, []string{a.ID, c.ID, "missing"}))
	entries, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.RemoveMany(ctx, nil))
}

func TestStore_Clear(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, phrase("a"))
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx))

	_, err = kv.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, store.Clear(ctx))
}

func TestStore_Usage(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	usage, err := store.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, Usage{}, usage)

	for i := range 3 {
		_, err := store.Save(ctx, phrase(fmt.Sprintf("phrase %d", i)))
		require.NoError(t, err)
	}
	raw, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)

	usage, err = store.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, usage.EntryCount)
	assert.InDelta(t, float64(len(raw))/1024, usage.UsageKB, 0.005)
}

func TestStore_MalformedHistory(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, StorageKey, []byte(`{not json`)))

	entries, err := store.List(ctx)
	assert.ErrorIs(t, err, ErrMalformedHistory)
	assert.Empty(t, entries)

	_, err = store.Usage(ctx)
	assert.ErrorIs(t, err, ErrMalformedHistory)
	assert.ErrorIs(t, store.Remove(ctx, "x"), ErrMalformedHistory)
	_, err = store.TogglePin(ctx, "x")
	assert.ErrorIs(t, err, ErrMalformedHistory)

	raw, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, `{not json`, string(raw))

	saved, err := store.Save(ctx, phrase("fresh"))
	require.NoError(t, err)
	entries, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, saved.ID, entries[0].ID)
}

func TestStore_StorageFailures(t *testing.T) {
	ctx := context.Background()
	errBackend := errors.New("backend down")

	tests := []struct {
		name   string
		expect func(kv *mock_kvstore.MockStore)
		call   func(store *Store) error
	}{
		{
			name: "list read failure",
			expect: func(kv *mock_kvstore.MockStore) {
				kv.EXPECT().Get(gomock.Any(), StorageKey).Return(nil, errBackend)
			},
			call: func(store *Store) error {
				entries, err := store.List(ctx)
				assert.Empty(t, entries)
				return err
			},
		},
		{
			name: "save read failure writes nothing",
			expect: func(kv *mock_kvstore.MockStore) {
				kv.EXPECT().Get(gomock.Any(), StorageKey).Return(nil, errBackend)
			},
			call: func(store *Store) error {
				_, err := store.Save(ctx, phrase("a"))
				return err
			},
		},
		{
			name: "save write failure",
			expect: func(kv *mock_kvstore.MockStore) {
				kv.EXPECT().Get(gomock.Any(), StorageKey).Return(nil, kvstore.ErrNotFound)
				kv.EXPECT().Set(gomock.Any(), StorageKey, gomock.Any()).Return(errBackend)
			},
			call: func(store *Store) error {
				_, err := store.Save(ctx, phrase("a"))
				return err
			},
		},
		{
			name: "clear failure",
			expect: func(kv *mock_kvstore.MockStore) {
				kv.EXPECT().Remove(gomock.Any(), StorageKey).Return(errBackend)
			},
			call: func(store *Store) error {
				return store.Clear(ctx)
			},
		},
		{
			name: "search read failure",
			expect: func(kv *mock_kvstore.MockStore) {
				kv.EXPECT().Get(gomock.Any(), StorageKey).Return(nil, errBackend)
			},
			call: func(store *Store) error {
				entries, err := store.Search(ctx, "source:en")
				assert.Empty(t, entries)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			kv := mock_kvstore.NewMockStore(ctrl)
			tt.expect(kv)

			err := tt.call(NewStore(kv))
			assert.ErrorIs(t, err, errBackend)
		})
	}
}

func TestStore_ConcurrentSaves(t *testing.T) {
	store, _ := newTestStore(t, WithMaxEntries(100))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Save(ctx, phrase(fmt.Sprintf("phrase %d", i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 30)
	assertCanonicalOrder(t, entries)
}

func TestSortEntries(t *testing.T) {
	at := func(v int64) *int64 { return &v }
	entries := []Entry{
		{ID: "b", Timestamp: 100},
		{ID: "p2", Timestamp: 50, Pinned: true, PinnedAt: at(20)},
		{ID: "a", Timestamp: 100},
		{ID: "c", Timestamp: 300},
		{ID: "p1", Timestamp: 10, Pinned: true, PinnedAt: at(10)},
		{ID: "p3", Timestamp: 70, Pinned: true, PinnedAt: at(20)},
	}

	SortEntries(entries)

	var got []string
	for _, e := range entries {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"p1", "p3", "p2", "c", "a", "b"}, got)
}

func TestStore_ListSortsValuesWrittenElsewhere(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, StorageKey, []byte(`[
		{"id":"old","timestamp":1,"translation":{"kind":"phrase","text":"old","translation":"x","source_language_code":"en"},"pinned":false},
		{"id":"new","timestamp":2,"translation":{"kind":"phrase","text":"new","translation":"x","source_language_code":"en"},"pinned":false},
		{"id":"pinned","timestamp":0,"translation":{"kind":"phrase","text":"pinned","translation":"x","source_language_code":"en"},"pinned":true,"pinnedAt":5}
	]`)))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"pinned", "new", "old"}, ids)
	assertCanonicalOrder(t, entries)
}

func TestStore_Update(t *testing.T) {
	store, _ := newTestStore(t, WithMaxEntries(2))
	ctx := context.Background()

	a, err := store.Save(ctx, phrase("a"))
	require.NoError(t, err)

	imported := []Entry{
		{ID: "old", Timestamp: 1, Translation: phrase("old")},
		{ID: "new", Timestamp: a.Timestamp + 1, Translation: phrase("new")},
	}
	got, err := store.Update(ctx, func(entries []Entry) ([]Entry, error) {
		return append(entries, imported...), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", a.ID}, []string{got[0].ID, got[1].ID})

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, entries)

	errAbort := errors.New("abort")
	_, err = store.Update(ctx, func(entries []Entry) ([]Entry, error) {
		return nil, errAbort
	})
	assert.ErrorIs(t, err, errAbort)
	entries, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
