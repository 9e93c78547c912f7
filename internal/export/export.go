// Package export writes the lookup history as Markdown, YAML, or PDF.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/translation"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
	FormatPDF      Format = "pdf"
)

// String is used both by fmt.Print and by Cobra in help text
func (f *Format) String() string {
	return string(*f)
}

// Set must have pointer receiver so it doesn't change the value of a copy
func (f *Format) Set(v string) error {
	switch Format(v) {
	case FormatMarkdown, FormatYAML, FormatPDF:
		*f = Format(v)
		return nil
	default:
		return fmt.Errorf(`must be one of "markdown", "yaml", or "pdf"`)
	}
}

// Type is only used in help text
func (f *Format) Type() string {
	return "format"
}

// Extension returns the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatYAML:
		return ".yml"
	case FormatPDF:
		return ".pdf"
	}
	return ".md"
}

// Markdown renders entries as a Markdown document, one section per entry.
func Markdown(w io.Writer, entries []history.Entry) error {
	var b strings.Builder
	b.WriteString("# Lookup history\n\n")
	if len(entries) == 0 {
		b.WriteString("No entries.\n")
	}
	for _, e := range entries {
		writeMarkdownEntry(&b, e)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("io.WriteString > %w", err)
	}
	return nil
}

func writeMarkdownEntry(b *strings.Builder, e history.Entry) {
	dt := history.DisplayTextOf(e)
	title := dt.Primary
	if e.Translation.Kind == translation.KindPhrase {
		title = e.Translation.Phrase.Text
	}
	if e.Pinned {
		title += " (pinned)"
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintf(b, "_%s_", time.UnixMilli(e.Timestamp).UTC().Format(time.DateTime))
	if l := e.Translation.Languages(); l.SourceLanguageCode != "" {
		fmt.Fprintf(b, " (%s", l.SourceLanguageCode)
		if l.TargetLanguageCode != "" {
			fmt.Fprintf(b, " -> %s", l.TargetLanguageCode)
		}
		b.WriteString(")")
	}
	b.WriteString("\n\n")

	switch e.Translation.Kind {
	case translation.KindWord:
		w := e.Translation.Word
		if len(w.VerbForms) > 0 {
			fmt.Fprintf(b, "Verb forms: %s\n\n", strings.Join(w.VerbForms, ", "))
		}
		for _, m := range w.Meanings {
			line := "- "
			if m.PartOfSpeech != "" {
				line += fmt.Sprintf("*%s* ", m.PartOfSpeech)
			}
			if pron := m.Pronunciation.Primary(); pron != "" {
				line += pron + " "
			}
			line += m.Definition
			fmt.Fprintln(b, strings.TrimSpace(line))
			if m.Synonyms != nil && len(m.Synonyms.Items) > 0 {
				label := m.Synonyms.Label
				if label == "" {
					label = "Synonyms"
				}
				fmt.Fprintf(b, "    - %s: %s\n", label, strings.Join(m.Synonyms.Items, ", "))
			}
			for _, ex := range m.Examples {
				if ex.Translation != "" {
					fmt.Fprintf(b, "    - > %s (%s)\n", ex.Text, ex.Translation)
				} else {
					fmt.Fprintf(b, "    - > %s\n", ex.Text)
				}
			}
		}
	case translation.KindPhrase:
		fmt.Fprintf(b, "%s\n", e.Translation.Phrase.Translation)
	default:
		fmt.Fprintf(b, "%s\n", history.UnknownEntryText)
	}
	b.WriteString("\n")
}

type yamlEntry struct {
	ID          string                  `yaml:"id"`
	Timestamp   string                  `yaml:"timestamp"`
	Pinned      bool                    `yaml:"pinned,omitempty"`
	PinnedAt    string                  `yaml:"pinned_at,omitempty"`
	Translation translation.Translation `yaml:"translation"`
}

// YAML renders entries as a YAML list with RFC 3339 times.
func YAML(w io.Writer, entries []history.Entry) error {
	docs := make([]yamlEntry, 0, len(entries))
	for _, e := range entries {
		doc := yamlEntry{
			ID:          e.ID,
			Timestamp:   time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339),
			Pinned:      e.Pinned,
			Translation: e.Translation,
		}
		if e.PinnedAt != nil {
			doc.PinnedAt = time.UnixMilli(*e.PinnedAt).UTC().Format(time.RFC3339)
		}
		docs = append(docs, doc)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(docs); err != nil {
		return fmt.Errorf("yaml.Encode > %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("yaml.Close > %w", err)
	}
	return nil
}
