package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/statistics"
	"github.com/at-ishikawa/popdict/internal/translation"
)

func init() {
	color.NoColor = true
}

func TestPrinter_PrintTranslation(t *testing.T) {
	tests := []struct {
		name        string
		translation translation.Translation
		want        string
	}{
		{
			name: "word",
			translation: translation.NewWord(translation.WordTranslation{
				Word:      "run",
				VerbForms: []string{"run", "ran", "run"},
				Meanings: []translation.Meaning{
					{
						Pronunciation: translation.Pronunciation{Text: "/rʌn/"},
						PartOfSpeech:  "verb",
						Definition:    "chạy",
						Synonyms:      &translation.Synonyms{Items: []string{"sprint", "jog"}},
						Examples:      []translation.Example{{Text: "I run every day.", Translation: "Tôi chạy mỗi ngày."}},
					},
				},
				Languages: translation.Languages{SourceLanguageCode: "en", TargetLanguageCode: "vi"},
			}),
			want: "run (en → vi)\n" +
				"  run - ran - run\n" +
				"1. verb /rʌn/\n" +
				"   chạy\n" +
				"   Synonyms: sprint, jog\n" +
				"   - I run every day.\n" +
				"     Tôi chạy mỗi ngày.\n",
		},
		{
			name: "phrase",
			translation: translation.NewPhrase(translation.PhraseTranslation{
				Text:        "good morning",
				Translation: "chào buổi sáng",
				Languages:   translation.Languages{SourceLanguageCode: "en"},
			}),
			want: "good morning (en)\n  chào buổi sáng\n",
		},
		{
			name:        "unknown",
			translation: translation.Translation{Raw: json.RawMessage(`{}`)},
			want:        "Unknown entry\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewPrinter(&buf).PrintTranslation(tt.translation))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrinter_PrintEntries(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local).UnixMilli()
	pinnedAt := ts
	entries := []history.Entry{
		{
			ID:        "1-pinned",
			Timestamp: ts,
			Pinned:    true,
			PinnedAt:  &pinnedAt,
			Translation: translation.NewWord(translation.WordTranslation{
				Word:     "run",
				Meanings: []translation.Meaning{{Pronunciation: translation.Pronunciation{Text: "/rʌn/"}}},
			}),
		},
		{
			ID:          "2-phrase",
			Timestamp:   ts,
			Translation: translation.NewPhrase(translation.PhraseTranslation{Text: "hello"}),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf).PrintEntries(entries))
	assert.Equal(t,
		"* 1-pinned  run /rʌn/ 2024-05-01 10:30:00\n"+
			"  2-phrase  hello 2024-05-01 10:30:00\n",
		buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf).PrintEntries(nil))
	assert.Equal(t, "No history entries.\n", buf.String())
}

func TestPrinter_PrintUsage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf).PrintUsage(history.Usage{EntryCount: 3, UsageKB: 1.5}, 20))
	assert.Equal(t, "3 / 20 entries, 1.50 KB\n", buf.String())
}

func TestPrinter_PrintStatistics(t *testing.T) {
	tests := []struct {
		name   string
		result statistics.StatisticsResult
		want   string
	}{
		{
			name: "periods and language pairs",
			result: statistics.StatisticsResult{
				Periods: []statistics.LookupStatistics{
					{Period: "2025-02", LookupsCount: 3, WordsCount: 2, PhrasesCount: 1, UniqueTexts: 2},
				},
				Aggregate: statistics.AggregateStatistics{
					LookupsCount:  3,
					UniqueTexts:   2,
					PinnedCount:   1,
					LanguagePairs: []statistics.LanguagePairCount{{Source: "en", Target: "vi", Count: 2}, {Source: "ja", Count: 1}},
				},
			},
			want: "2025-02  3 lookups (2 words, 1 phrases), 2 unique\n" +
				"Total: 3 lookups, 2 unique, 1 pinned\n" +
				"  en -> vi: 2\n" +
				"  ja -> ?: 1\n",
		},
		{
			name: "empty",
			want: "No lookups in this period.\nTotal: 0 lookups, 0 unique, 0 pinned\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewPrinter(&buf).PrintStatistics(tt.result))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
