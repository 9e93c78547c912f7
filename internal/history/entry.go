// Package history stores the lookup history: a small, capped, pinnable and searchable list of
// translations kept under a single key of a kvstore.Store.
package history

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/at-ishikawa/popdict/internal/translation"
)

const (
	// StorageKey is the key the serialized history is kept under.
	StorageKey = "translationHistory"
	// DefaultMaxEntries is the number of entries kept unless configured otherwise.
	DefaultMaxEntries = 20
)

var (
	ErrMalformedHistory = errors.New("stored history is malformed")
	ErrEntryNotFound    = errors.New("history entry not found")
	// ErrHistoryFull is returned by Save when every kept slot is taken by a pinned entry,
	// so the new entry was dropped by the size cap.
	ErrHistoryFull = errors.New("history is full of pinned entries")
)

// Entry is a single stored lookup.
type Entry struct {
	ID          string                  `json:"id"`
	Timestamp   int64                   `json:"timestamp"`
	Translation translation.Translation `json:"translation"`
	Pinned      bool                    `json:"pinned"`
	// PinnedAt is set while the entry is pinned and cleared when it is unpinned.
	PinnedAt *int64 `json:"pinnedAt,omitempty"`
}

// Usage summarizes how much storage the history takes.
type Usage struct {
	EntryCount int     `json:"entryCount"`
	UsageKB    float64 `json:"usageKB"`
}

// SortEntries orders entries canonically in place: pinned entries first by pin time, oldest
// pin first, then unpinned entries newest first. Ties fall back to newest timestamp, then id.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, compareEntries)
}

func compareEntries(a, b Entry) int {
	if a.Pinned != b.Pinned {
		if a.Pinned {
			return -1
		}
		return 1
	}
	if a.Pinned {
		if c := cmp.Compare(pinnedAt(a), pinnedAt(b)); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func pinnedAt(e Entry) int64 {
	if e.PinnedAt == nil {
		return 0
	}
	return *e.PinnedAt
}

// Decode parses a stored history value.
func Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: json.Unmarshal > %v", ErrMalformedHistory, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
