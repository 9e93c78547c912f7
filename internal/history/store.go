package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/at-ishikawa/popdict/internal/kvstore"
	"github.com/at-ishikawa/popdict/internal/translation"
)

// Store is the only writer of the stored history.
//
// Every read-modify-write runs under a mutex, so concurrent callers sharing a Store never
// lose each other's updates. Failures are logged here and also returned to the caller.
type Store struct {
	kv         kvstore.Store
	maxEntries int
	now        func() time.Time

	mu sync.Mutex
}

type Option func(*Store)

// WithMaxEntries overrides DefaultMaxEntries. Values below 1 are ignored.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock overrides the clock used for timestamps and pin times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) MaxEntries() int {
	return s.maxEntries
}

func newID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// load reads the stored history in canonical order, whoever wrote it.
// A missing key is an empty history.
func (s *Store) load(ctx context.Context) ([]Entry, []byte, error) {
	raw, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []Entry{}, nil, nil
	}
	if err != nil {
		return []Entry{}, nil, fmt.Errorf("kv.Get(%s) > %w", StorageKey, err)
	}

	entries, err := Decode(raw)
	if err != nil {
		return []Entry{}, raw, err
	}
	SortEntries(entries)
	return entries, raw, nil
}

// persist sorts the entries canonically and writes them back.
func (s *Store) persist(ctx context.Context, entries []Entry) error {
	SortEntries(entries)
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("json.Marshal > %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("kv.Set(%s) > %w", StorageKey, err)
	}
	return nil
}

func logFailure(operation string, err error) {
	slog.Default().Error("history operation failed",
		"operation", operation,
		"key", StorageKey,
		"error", err,
	)
}

// Save records a new lookup. Unpinned entries beyond the size cap are evicted, oldest first.
// Stored data that cannot be decoded is replaced by the new history.
func (s *Store) Save(ctx context.Context, t translation.Translation) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.load(ctx)
	if err != nil {
		if !errors.Is(err, ErrMalformedHistory) {
			logFailure("save", err)
			return Entry{}, err
		}
		slog.Default().Warn("discarding malformed history", "key", StorageKey, "error", err)
	}

	now := s.now()
	entry := Entry{
		ID:          newID(now),
		Timestamp:   now.UnixMilli(),
		Translation: t,
	}
	entries = append([]Entry{entry}, entries...)
	SortEntries(entries)
	if len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}

	if err := s.persist(ctx, entries); err != nil {
		logFailure("save", err)
		return Entry{}, err
	}
	if !lo.ContainsBy(entries, func(e Entry) bool { return e.ID == entry.ID }) {
		return entry, ErrHistoryFull
	}
	return entry, nil
}

// List returns the whole history in canonical order.
// On failure it returns an empty history together with the error.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.load(ctx)
	if err != nil {
		logFailure("list", err)
		return []Entry{}, err
	}
	return entries, nil
}

// Get returns the entry with the id, and whether it exists.
func (s *Store) Get(ctx context.Context, id string) (Entry, bool, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := lo.Find(entries, func(e Entry) bool { return e.ID == id })
	return entry, ok, nil
}

// Remove deletes the entry with the id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.RemoveMany(ctx, []string{id})
}

// RemoveMany deletes every entry whose id is in ids. Unknown ids are ignored.
func (s *Store) RemoveMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.load(ctx)
	if err != nil {
		logFailure("remove", err)
		return err
	}

	remove := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	kept := lo.Reject(entries, func(e Entry, _ int) bool {
		_, ok := remove[e.ID]
		return ok
	})
	if len(kept) == len(entries) {
		return nil
	}

	if err := s.persist(ctx, kept); err != nil {
		logFailure("remove", err)
		return err
	}
	return nil
}

// Clear deletes the whole history.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, StorageKey); err != nil {
		err = fmt.Errorf("kv.Remove(%s) > %w", StorageKey, err)
		logFailure("clear", err)
		return err
	}
	return nil
}

// TogglePin pins an unpinned entry or unpins a pinned one and returns the updated entry.
// Pinning stamps PinnedAt with the current time; unpinning clears it.
func (s *Store) TogglePin(ctx context.Context, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.load(ctx)
	if err != nil {
		logFailure("toggle pin", err)
		return Entry{}, err
	}

	_, index, ok := lo.FindIndexOf(entries, func(e Entry) bool { return e.ID == id })
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	entry := &entries[index]
	entry.Pinned = !entry.Pinned
	if entry.Pinned {
		pinnedAt := s.now().UnixMilli()
		entry.PinnedAt = &pinnedAt
	} else {
		entry.PinnedAt = nil
	}
	updated := *entry

	if err := s.persist(ctx, entries); err != nil {
		logFailure("toggle pin", err)
		return Entry{}, err
	}
	return updated, nil
}

// Usage reports the number of stored entries and the size of the stored value in kilobytes,
// rounded to two decimals.
func (s *Store) Usage(ctx context.Context) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, raw, err := s.load(ctx)
	if err != nil {
		logFailure("usage", err)
		return Usage{}, err
	}
	return Usage{
		EntryCount: len(entries),
		UsageKB:    math.Round(float64(len(raw))/1024*100) / 100,
	}, nil
}

// Update replaces the history with the result of fn, applied under the store lock.
// The result is sorted canonically and capped before it is written; fn must not keep the slice.
func (s *Store) Update(ctx context.Context, fn func(entries []Entry) ([]Entry, error)) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.load(ctx)
	if err != nil {
		logFailure("update", err)
		return nil, err
	}
	updated, err := fn(entries)
	if err != nil {
		return nil, err
	}
	SortEntries(updated)
	if len(updated) > s.maxEntries {
		updated = updated[:s.maxEntries]
	}
	if err := s.persist(ctx, updated); err != nil {
		logFailure("update", err)
		return nil, err
	}
	return updated, nil
}
