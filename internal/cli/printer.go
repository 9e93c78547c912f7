// Package cli renders lookups and the lookup history on a terminal.
package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/statistics"
	"github.com/at-ishikawa/popdict/internal/translation"
)

type Printer struct {
	writer io.Writer
	bold   *color.Color
	italic *color.Color
	faint  *color.Color
	pin    *color.Color
	warn   *color.Color
}

func NewPrinter(writer io.Writer) *Printer {
	return &Printer{
		writer: writer,
		bold:   color.New(color.Bold),
		italic: color.New(color.Italic),
		faint:  color.New(color.Faint),
		pin:    color.New(color.FgYellow),
		warn:   color.New(color.FgRed),
	}
}

// PrintTranslation writes the full result of a lookup.
func (p *Printer) PrintTranslation(t translation.Translation) error {
	var b strings.Builder
	switch t.Kind {
	case translation.KindWord:
		w := t.Word
		fmt.Fprintf(&b, "%s%s\n", p.bold.Sprint(w.Word), p.languageSuffix(w.Languages))
		if len(w.VerbForms) > 0 {
			fmt.Fprintf(&b, "  %s\n", p.faint.Sprint(strings.Join(w.VerbForms, " - ")))
		}
		for i, m := range w.Meanings {
			header := fmt.Sprintf("%d.", i+1)
			if m.PartOfSpeech != "" {
				header += " " + p.italic.Sprint(m.PartOfSpeech)
			}
			if pron := m.Pronunciation.Primary(); pron != "" {
				header += " " + pron
			}
			fmt.Fprintf(&b, "%s\n", header)
			fmt.Fprintf(&b, "   %s\n", m.Definition)
			if m.Synonyms != nil && len(m.Synonyms.Items) > 0 {
				label := m.Synonyms.Label
				if label == "" {
					label = "Synonyms"
				}
				fmt.Fprintf(&b, "   %s: %s\n", label, strings.Join(m.Synonyms.Items, ", "))
			}
			for _, e := range m.Examples {
				fmt.Fprintf(&b, "   - %s\n", p.italic.Sprint(e.Text))
				if e.Translation != "" {
					fmt.Fprintf(&b, "     %s\n", e.Translation)
				}
			}
		}
	case translation.KindPhrase:
		fmt.Fprintf(&b, "%s%s\n", p.bold.Sprint(t.Phrase.Text), p.languageSuffix(t.Phrase.Languages))
		fmt.Fprintf(&b, "  %s\n", t.Phrase.Translation)
	default:
		fmt.Fprintf(&b, "%s\n", history.UnknownEntryText)
	}

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}

func (p *Printer) languageSuffix(l translation.Languages) string {
	if l.SourceLanguageCode == "" {
		return ""
	}
	codes := l.SourceLanguageCode
	if l.TargetLanguageCode != "" {
		codes += " → " + l.TargetLanguageCode
	}
	return " " + p.faint.Sprintf("(%s)", codes)
}

// PrintEntries writes one line per entry using its display text.
func (p *Printer) PrintEntries(entries []history.Entry) error {
	if len(entries) == 0 {
		if _, err := fmt.Fprintln(p.writer, "No history entries."); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		return nil
	}

	var b strings.Builder
	for _, e := range entries {
		dt := history.DisplayTextOf(e)
		marker := " "
		if e.Pinned {
			marker = p.pin.Sprint("*")
		}
		line := fmt.Sprintf("%s %s  %s", marker, p.faint.Sprint(e.ID), p.bold.Sprint(dt.Primary))
		if dt.Secondary != "" {
			line += " " + p.italic.Sprint(dt.Secondary)
		}
		line += " " + p.faint.Sprint(time.UnixMilli(e.Timestamp).Format(time.DateTime))
		fmt.Fprintln(&b, line)
	}
	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}

// PrintUsage writes the storage usage of the history.
func (p *Printer) PrintUsage(usage history.Usage, maxEntries int) error {
	if _, err := fmt.Fprintf(p.writer, "%d / %d entries, %.2f KB\n", usage.EntryCount, maxEntries, usage.UsageKB); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}

// PrintWarning writes a highlighted warning line.
func (p *Printer) PrintWarning(format string, args ...any) error {
	if _, err := p.warn.Fprintf(p.writer, format+"\n", args...); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}

// PrintStatistics writes lookup counts per month followed by the totals.
func (p *Printer) PrintStatistics(result statistics.StatisticsResult) error {
	var b strings.Builder
	if len(result.Periods) == 0 {
		fmt.Fprintln(&b, "No lookups in this period.")
	}
	for _, s := range result.Periods {
		fmt.Fprintf(&b, "%s  %d lookups (%d words, %d phrases), %d unique\n",
			p.bold.Sprint(s.Period), s.LookupsCount, s.WordsCount, s.PhrasesCount, s.UniqueTexts)
	}
	agg := result.Aggregate
	fmt.Fprintf(&b, "Total: %d lookups, %d unique, %d pinned\n", agg.LookupsCount, agg.UniqueTexts, agg.PinnedCount)
	for _, pair := range agg.LanguagePairs {
		target := pair.Target
		if target == "" {
			target = "?"
		}
		fmt.Fprintf(&b, "  %s -> %s: %d\n", pair.Source, target, pair.Count)
	}

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}
