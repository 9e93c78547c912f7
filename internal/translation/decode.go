package translation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Decode classifies and decodes a translation payload.
//
// Payloads carrying a "kind" are decoded as that variant. Older payloads without it are
// classified by their fields: "word" with "meanings" is a word, "text" with "translation"
// and no "word" is a phrase. Anything else is returned as KindUnknown with the original
// JSON kept in Raw; only syntactically invalid JSON is an error.
func Decode(data []byte) (Translation, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Translation{}, fmt.Errorf("json.Valid(%s) > invalid translation payload", string(trimmed))
	}
	unknown := Translation{Kind: KindUnknown, Raw: json.RawMessage(append([]byte(nil), trimmed...))}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return unknown, nil
	}

	var probe struct {
		Kind        Kind            `json:"kind"`
		Word        *string         `json:"word"`
		Meanings    json.RawMessage `json:"meanings"`
		Text        *string         `json:"text"`
		Translation *string         `json:"translation"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		// Valid JSON whose fields have unexpected types.
		return unknown, nil
	}

	kind := probe.Kind
	if kind == KindUnknown {
		hasMeanings := len(probe.Meanings) > 0 && string(probe.Meanings) != "null"
		switch {
		case probe.Word != nil && hasMeanings:
			kind = KindWord
		case probe.Word == nil && probe.Text != nil && probe.Translation != nil:
			kind = KindPhrase
		}
	}

	switch kind {
	case KindWord:
		var word WordTranslation
		if err := json.Unmarshal(trimmed, &word); err != nil {
			return unknown, nil
		}
		return NewWord(word), nil
	case KindPhrase:
		var phrase PhraseTranslation
		if err := json.Unmarshal(trimmed, &phrase); err != nil {
			return unknown, nil
		}
		return NewPhrase(phrase), nil
	}
	return unknown, nil
}

// ExtractJSON returns the JSON object embedded in a model reply.
// It prefers a ```json fenced block, then any fenced block, then the first balanced {...} object.
func ExtractJSON(content string) (string, error) {
	if block, ok := fencedBlock(content, "```json"); ok {
		return block, nil
	}
	if block, ok := fencedBlock(content, "```"); ok {
		return block, nil
	}
	if object, ok := firstObject(content); ok {
		return object, nil
	}
	return "", ErrNoJSONPayload
}

func fencedBlock(content, marker string) (string, bool) {
	start := strings.Index(content, marker)
	if start < 0 {
		return "", false
	}
	rest := content[start+len(marker):]
	// skip the remainder of the opening fence line, e.g. a language tag
	if newline := strings.IndexByte(rest, '\n'); newline >= 0 {
		rest = rest[newline+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	block := strings.TrimSpace(rest[:end])
	if block == "" {
		return "", false
	}
	return block, true
}

func firstObject(content string) (string, bool) {
	first := -1
	depth := 0
	inString := false
	escapeNext := false

	for i, ch := range content {
		// quotes before the object belong to prose
		if first == -1 {
			if ch == '{' {
				first = i
				depth = 1
			}
			continue
		}
		if escapeNext {
			escapeNext = false
			continue
		}
		if ch == '\\' && inString {
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[first : i+1], true
			}
		}
	}
	return "", false
}
