// Package statistics summarizes the lookup history by month and language pair.
package statistics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/translation"
)

// LookupStatistics holds statistics for a time period
type LookupStatistics struct {
	Period       string // "2025-01"
	LookupsCount int
	WordsCount   int
	PhrasesCount int
	UniqueTexts  int
}

// LanguagePairCount counts lookups from one language into another
type LanguagePairCount struct {
	Source string
	Target string
	Count  int
}

// AggregateStatistics holds totals across all periods with global unique counts
type AggregateStatistics struct {
	LookupsCount  int
	UniqueTexts   int
	PinnedCount   int
	LanguagePairs []LanguagePairCount
}

// StatisticsResult holds both per-period and aggregate statistics
type StatisticsResult struct {
	Periods   []LookupStatistics
	Aggregate AggregateStatistics
}

type periodData struct {
	lookups     int
	words       int
	phrases     int
	uniqueTexts map[string]struct{}
}

type languagePair struct {
	source string
	target string
}

// CalculateStatistics calculates lookup statistics from history entries.
// It accepts optional year and month filters (0 means no filter). Times are bucketed in loc.
func CalculateStatistics(entries []history.Entry, year, month int, loc *time.Location) StatisticsResult {
	stats := make(map[string]*periodData)
	globalUniqueTexts := make(map[string]struct{})
	pairs := make(map[languagePair]int)
	var pinned int

	for _, e := range entries {
		at := time.UnixMilli(e.Timestamp).In(loc)
		if !matchesFilter(at.Year(), int(at.Month()), year, month) {
			continue
		}

		period := fmt.Sprintf("%d-%02d", at.Year(), int(at.Month()))
		data := ensurePeriodExists(stats, period)
		data.lookups++
		switch e.Translation.Kind {
		case translation.KindWord:
			data.words++
		case translation.KindPhrase:
			data.phrases++
		}
		if text := strings.ToLower(e.Translation.Text()); text != "" {
			data.uniqueTexts[text] = struct{}{}
			globalUniqueTexts[text] = struct{}{}
		}
		if e.Pinned {
			pinned++
		}

		languages := e.Translation.Languages()
		if languages.SourceLanguageCode != "" {
			pairs[languagePair{
				source: strings.ToLower(languages.SourceLanguageCode),
				target: strings.ToLower(languages.TargetLanguageCode),
			}]++
		}
	}

	return buildResult(stats, globalUniqueTexts, pairs, pinned)
}

func ensurePeriodExists(stats map[string]*periodData, period string) *periodData {
	if stats[period] == nil {
		stats[period] = &periodData{
			uniqueTexts: make(map[string]struct{}),
		}
	}
	return stats[period]
}

func matchesFilter(entryYear, entryMonth, filterYear, filterMonth int) bool {
	if filterYear == 0 {
		return true
	}
	if entryYear != filterYear {
		return false
	}
	if filterMonth == 0 {
		return true
	}
	return entryMonth == filterMonth
}

func buildResult(stats map[string]*periodData, globalUniqueTexts map[string]struct{}, pairs map[languagePair]int, pinned int) StatisticsResult {
	periods := make([]LookupStatistics, 0, len(stats))

	var totalLookups int
	for period, data := range stats {
		periods = append(periods, LookupStatistics{
			Period:       period,
			LookupsCount: data.lookups,
			WordsCount:   data.words,
			PhrasesCount: data.phrases,
			UniqueTexts:  len(data.uniqueTexts),
		})
		totalLookups += data.lookups
	}

	// Sort by period descending (newest first)
	slices.SortFunc(periods, func(a, b LookupStatistics) int {
		return cmp.Compare(b.Period, a.Period)
	})

	languagePairs := make([]LanguagePairCount, 0, len(pairs))
	for pair, count := range pairs {
		languagePairs = append(languagePairs, LanguagePairCount{Source: pair.source, Target: pair.target, Count: count})
	}
	slices.SortFunc(languagePairs, func(a, b LanguagePairCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})

	return StatisticsResult{
		Periods: periods,
		Aggregate: AggregateStatistics{
			LookupsCount:  totalLookups,
			UniqueTexts:   len(globalUniqueTexts),
			PinnedCount:   pinned,
			LanguagePairs: languagePairs,
		},
	}
}
