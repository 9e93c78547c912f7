package history

import (
	"github.com/at-ishikawa/popdict/internal/translation"
)

const (
	// UnknownEntryText is shown for entries whose translation could not be classified.
	UnknownEntryText = "Unknown entry"

	maxPrimaryRunes = 30
	ellipsis        = "..."
)

// DisplayText is the compact label of an entry in a list.
type DisplayText struct {
	Primary   string `json:"primaryText"`
	Secondary string `json:"secondaryText"`
}

// DisplayTextOf returns the label of the entry. Words show their pronunciation as the secondary
// text; phrases are truncated to 30 characters.
func DisplayTextOf(entry Entry) DisplayText {
	t := entry.Translation
	switch t.Kind {
	case translation.KindWord:
		dt := DisplayText{Primary: t.Word.Word}
		if len(t.Word.Meanings) > 0 {
			dt.Secondary = t.Word.Meanings[0].Pronunciation.Primary()
		}
		return dt
	case translation.KindPhrase:
		return DisplayText{Primary: truncate(t.Phrase.Text, maxPrimaryRunes)}
	}
	return DisplayText{Primary: UnknownEntryText}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
