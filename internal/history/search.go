package history

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/at-ishikawa/popdict/internal/query"
	"github.com/at-ishikawa/popdict/internal/translation"
)

// Search returns the entries matching the query in canonical order.
// A blank query returns the whole history.
func (s *Store) Search(ctx context.Context, rawQuery string) ([]Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return []Entry{}, err
	}
	q := query.Parse(rawQuery)
	if q.IsEmpty() {
		return entries, nil
	}
	return Filter(entries, q), nil
}

// Filter keeps the entries matching every known operator of q and, when q has text,
// whose looked up text contains it. Operators with unknown fields are ignored.
func Filter(entries []Entry, q query.Query) []Entry {
	if unknown := lo.Reject(q.Operators, func(o query.Operator, _ int) bool { return o.Field.Known() }); len(unknown) > 0 {
		slog.Default().Debug("ignoring unknown search operators", "operators", unknown)
	}
	source, hasSource := q.Last(query.FieldSource)
	target, hasTarget := q.Last(query.FieldTarget)
	text := strings.ToLower(q.Text)

	return lo.Filter(entries, func(e Entry, _ int) bool {
		languages := e.Translation.Languages()
		if hasSource && !strings.EqualFold(languages.SourceLanguageCode, source) {
			return false
		}
		if hasTarget && !strings.EqualFold(languages.TargetLanguageCode, target) {
			return false
		}
		if text == "" {
			return true
		}
		if e.Translation.Kind == translation.KindUnknown {
			return false
		}
		return strings.Contains(strings.ToLower(e.Translation.Text()), text)
	})
}
