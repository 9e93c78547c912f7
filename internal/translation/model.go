// Package translation defines the structured lookup result returned by the translation backend
// and stored in the lookup history.
package translation

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrUnclassifiable = errors.New("translation is neither a word nor a phrase")
	ErrNoJSONPayload  = errors.New("no JSON payload found")
)

// Kind discriminates the variants of Translation.
type Kind string

const (
	KindUnknown Kind = ""
	KindWord    Kind = "word"
	KindPhrase  Kind = "phrase"
)

// Translation is a tagged union of WordTranslation and PhraseTranslation.
// Exactly one of Word or Phrase is set when Kind is KindWord or KindPhrase.
// Values that could not be classified keep their original JSON in Raw.
type Translation struct {
	Kind   Kind
	Word   *WordTranslation
	Phrase *PhraseTranslation
	Raw    json.RawMessage
}

// Languages holds the language codes shared by both variants.
type Languages struct {
	SourceLanguageCode    string `json:"source_language_code" yaml:"source_language_code"`
	TargetLanguageCode    string `json:"target_language_code,omitempty" yaml:"target_language_code,omitempty"`
	SourceTTSLanguageCode string `json:"source_tts_language_code,omitempty" yaml:"source_tts_language_code,omitempty"`
	TargetTTSLanguageCode string `json:"target_tts_language_code,omitempty" yaml:"target_tts_language_code,omitempty"`
}

// WordTranslation is a dictionary-style result for a single word.
type WordTranslation struct {
	Word string `json:"word" yaml:"word"`
	// VerbForms holds infinitive, past and past participle by position.
	VerbForms []string  `json:"verb_forms,omitempty" yaml:"verb_forms,omitempty"`
	Meanings  []Meaning `json:"meanings" yaml:"meanings"`
	Languages `yaml:",inline"`
}

// PhraseTranslation is a plain translation of a phrase or sentence.
type PhraseTranslation struct {
	Text        string `json:"text" yaml:"text"`
	Translation string `json:"translation" yaml:"translation"`
	Languages   `yaml:",inline"`
}

type Meaning struct {
	Pronunciation Pronunciation `json:"pronunciation,omitzero" yaml:"pronunciation,omitempty"`
	PartOfSpeech  string        `json:"part_of_speech" yaml:"part_of_speech"`
	Definition    string        `json:"definition" yaml:"definition"`
	Synonyms      *Synonyms     `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Examples      []Example     `json:"examples" yaml:"examples"`
}

type Synonyms struct {
	Label string   `json:"label" yaml:"label"`
	Items []string `json:"items" yaml:"items"`
}

type Example struct {
	Text          string `json:"text" yaml:"text"`
	Pronunciation string `json:"pronunciation,omitempty" yaml:"pronunciation,omitempty"`
	Translation   string `json:"translation,omitempty" yaml:"translation,omitempty"`
}

// NewWord wraps a WordTranslation into a Translation.
func NewWord(w WordTranslation) Translation {
	return Translation{Kind: KindWord, Word: &w}
}

// NewPhrase wraps a PhraseTranslation into a Translation.
func NewPhrase(p PhraseTranslation) Translation {
	return Translation{Kind: KindPhrase, Phrase: &p}
}

// Text returns the looked up text: the word for words, the source text for phrases.
func (t Translation) Text() string {
	switch t.Kind {
	case KindWord:
		return t.Word.Word
	case KindPhrase:
		return t.Phrase.Text
	}
	return ""
}

func (t Translation) Languages() Languages {
	switch t.Kind {
	case KindWord:
		return t.Word.Languages
	case KindPhrase:
		return t.Phrase.Languages
	}
	return Languages{}
}

// Validate reports whether the translation is complete enough to be shown and stored.
func (t Translation) Validate() error {
	switch t.Kind {
	case KindWord:
		if strings.TrimSpace(t.Word.Word) == "" {
			return errors.New("word is empty")
		}
		if len(t.Word.Meanings) == 0 {
			return fmt.Errorf("word %q has no meanings", t.Word.Word)
		}
		if len(t.Word.VerbForms) > 3 {
			return fmt.Errorf("word %q has %d verb forms", t.Word.Word, len(t.Word.VerbForms))
		}
		return nil
	case KindPhrase:
		if strings.TrimSpace(t.Phrase.Text) == "" {
			return errors.New("phrase text is empty")
		}
		return nil
	}
	return ErrUnclassifiable
}

// MarshalJSON writes the variant fields flattened next to an explicit "kind".
func (t Translation) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case KindWord:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			*WordTranslation
		}{KindWord, t.Word})
	case KindPhrase:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			*PhraseTranslation
		}{KindPhrase, t.Phrase})
	}
	if len(t.Raw) == 0 {
		return []byte("null"), nil
	}
	return t.Raw, nil
}

func (t *Translation) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// MarshalYAML writes the same shape as the JSON form.
func (t Translation) MarshalYAML() (interface{}, error) {
	switch t.Kind {
	case KindWord:
		return struct {
			Kind            Kind `yaml:"kind"`
			WordTranslation `yaml:",inline"`
		}{KindWord, *t.Word}, nil
	case KindPhrase:
		return struct {
			Kind              Kind `yaml:"kind"`
			PhraseTranslation `yaml:",inline"`
		}{KindPhrase, *t.Phrase}, nil
	}
	return nil, nil
}

// Pronunciation is either a plain transcription or a set of dialect variants such as "UK" and "US".
type Pronunciation struct {
	Text     string
	Variants map[string]PronunciationVariant
}

type PronunciationVariant struct {
	IPA     string `json:"ipa" yaml:"ipa"`
	TTSCode string `json:"tts_code,omitempty" yaml:"tts_code,omitempty"`
}

func (p Pronunciation) IsZero() bool {
	return p.Text == "" && len(p.Variants) == 0
}

func (p Pronunciation) MarshalJSON() ([]byte, error) {
	if len(p.Variants) > 0 {
		return json.Marshal(p.Variants)
	}
	return json.Marshal(p.Text)
}

func (p *Pronunciation) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*p = Pronunciation{}
		return nil
	case strings.HasPrefix(trimmed, "{"):
		var variants map[string]PronunciationVariant
		if err := json.Unmarshal(data, &variants); err != nil {
			return fmt.Errorf("json.Unmarshal(pronunciation variants) > %w", err)
		}
		*p = Pronunciation{Variants: variants}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("json.Unmarshal(pronunciation) > %w", err)
	}
	*p = Pronunciation{Text: text}
	return nil
}

func (p Pronunciation) MarshalYAML() (interface{}, error) {
	if len(p.Variants) > 0 {
		return p.Variants, nil
	}
	return p.Text, nil
}

var preferredDialects = []string{"US", "UK"}

// Primary returns the transcription to show when only one fits: the plain text, or the IPA of
// the first non-empty variant in the order US, UK, then the remaining dialects alphabetically.
func (p Pronunciation) Primary() string {
	if len(p.Variants) == 0 {
		return p.Text
	}
	for _, dialect := range p.Dialects() {
		if ipa := p.Variants[dialect].IPA; ipa != "" {
			return ipa
		}
	}
	return ""
}

// Dialects returns the variant keys in display order.
func (p Pronunciation) Dialects() []string {
	dialects := make([]string, 0, len(p.Variants))
	for _, d := range preferredDialects {
		if _, ok := p.Variants[d]; ok {
			dialects = append(dialects, d)
		}
	}
	var others []string
	for d := range p.Variants {
		if !slices.Contains(preferredDialects, d) {
			others = append(others, d)
		}
	}
	slices.Sort(others)
	return append(dialects, others...)
}
