// Package datasync imports history dumps into the history store and copies the stored history
// between storage backends.
package datasync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/kvstore"
)

// ImportResult tracks counts for each import operation.
type ImportResult struct {
	New     int
	Skipped int
	Updated int
	// Dropped counts imported entries that did not fit under the size cap.
	Dropped int
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// Importer merges history dumps into a history store.
type Importer struct {
	store  *history.Store
	writer io.Writer
}

// NewImporter creates a new Importer.
func NewImporter(store *history.Store, writer io.Writer) *Importer {
	return &Importer{
		store:  store,
		writer: writer,
	}
}

// ParseDump reads a history dump: either a JSON array of entries or a JSON object holding the
// array under the storage key, as exported from browser storage.
func ParseDump(data []byte) ([]history.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("json.Unmarshal > %w", err)
		}
		inner, ok := wrapped[history.StorageKey]
		if !ok {
			return nil, fmt.Errorf("dump has no %q key", history.StorageKey)
		}
		trimmed = inner
	}

	var entries []history.Entry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("json.Unmarshal > %w", err)
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d has no id", i)
		}
	}
	normalizePins(entries)
	return entries, nil
}

// normalizePins gives pinned entries without a pin time their creation time and clears the
// pin time of unpinned entries.
func normalizePins(entries []history.Entry) {
	for i, e := range entries {
		if e.Pinned && e.PinnedAt == nil {
			pinnedAt := e.Timestamp
			entries[i].PinnedAt = &pinnedAt
		}
		if !e.Pinned {
			entries[i].PinnedAt = nil
		}
	}
}

// Import merges entries into the store by id. Existing entries are kept unless
// opts.UpdateExisting is set.
func (imp *Importer) Import(ctx context.Context, entries []history.Entry, opts ImportOptions) (*ImportResult, error) {
	var result ImportResult
	merge := func(existing []history.Entry) ([]history.Entry, error) {
		index := make(map[string]int, len(existing))
		for i, e := range existing {
			index[e.ID] = i
		}

		merged := append([]history.Entry(nil), existing...)
		for _, e := range entries {
			label := history.DisplayTextOf(e).Primary
			i, found := index[e.ID]
			switch {
			case !found:
				index[e.ID] = len(merged)
				merged = append(merged, e)
				fmt.Fprintf(imp.writer, "  [NEW]  %q (%s)\n", label, e.ID)
				result.New++
			case opts.UpdateExisting:
				merged[i] = e
				fmt.Fprintf(imp.writer, "  [UPDATE]  %q (%s)\n", label, e.ID)
				result.Updated++
			default:
				fmt.Fprintf(imp.writer, "  [SKIP]  %q (%s)\n", label, e.ID)
				result.Skipped++
			}
		}
		return merged, nil
	}

	if opts.DryRun {
		current, err := imp.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("store.List() > %w", err)
		}
		merged, _ := merge(current)
		result.Dropped = max(0, len(merged)-imp.store.MaxEntries())
		return &result, nil
	}

	var mergedCount int
	kept, err := imp.store.Update(ctx, func(current []history.Entry) ([]history.Entry, error) {
		merged, err := merge(current)
		mergedCount = len(merged)
		return merged, err
	})
	if err != nil {
		return nil, fmt.Errorf("store.Update() > %w", err)
	}
	result.Dropped = mergedCount - len(kept)
	return &result, nil
}

// CopyResult reports what Copy wrote.
type CopyResult struct {
	Copied int
	// Dropped counts entries that did not fit under the size cap of the destination.
	Dropped int
}

// Copy replaces the history of to with the history stored in from. The entries are sorted and
// capped by the destination store. It returns nil when from holds no history.
func Copy(ctx context.Context, from kvstore.Store, to *history.Store) (*CopyResult, error) {
	value, err := from.Get(ctx, history.StorageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("from.Get(%s) > %w", history.StorageKey, err)
	}
	entries, err := history.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("history.Decode > %w", err)
	}
	normalizePins(entries)

	kept, err := to.Update(ctx, func(_ []history.Entry) ([]history.Entry, error) {
		return entries, nil
	})
	if err != nil {
		return nil, fmt.Errorf("store.Update() > %w", err)
	}
	return &CopyResult{
		Copied:  len(kept),
		Dropped: len(entries) - len(kept),
	}, nil
}
