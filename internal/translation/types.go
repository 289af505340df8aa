package translation

import (
	"encoding/json"
	"fmt"
	"strings"

	"codeberg.org/snonux/readalong/internal/vocabulary"
)

// Request is the /translate payload
type Request struct {
	Text      string `json:"text"`
	Index     int    `json:"index"`
	SourceURL string `json:"source_url,omitempty"`
}

// Result is the /translate reply. Translation is kept raw: it only feeds
// the vocabulary notebook and never decides whether a reply is usable.
type Result struct {
	Index       int             `json:"index"`
	HTML        string          `json:"html"`
	Translation json.RawMessage `json:"translation,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Words decodes the vocabulary of the reply. Entries the server sends as
// bare strings or as objects with a "word" field are returned; every entry
// that cannot be read is reported in skipped and left out.
func (r *Result) Words() (words []vocabulary.Word, skipped []error) {
	if r == nil || len(r.Translation) == 0 {
		return nil, nil
	}

	var details struct {
		Vocabulary json.RawMessage `json:"vocabulary"`
	}
	if err := json.Unmarshal(r.Translation, &details); err != nil {
		return nil, []error{fmt.Errorf("translation is not an object: %w", err)}
	}
	if len(details.Vocabulary) == 0 || string(details.Vocabulary) == "null" {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(details.Vocabulary, &entries); err != nil {
		return nil, []error{fmt.Errorf("vocabulary is not a list: %w", err)}
	}

	for i, raw := range entries {
		w, err := decodeWord(raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("vocabulary entry %d: %w", i, err))
			continue
		}
		if strings.TrimSpace(w.Word) != "" {
			words = append(words, w)
		}
	}
	return words, skipped
}

func decodeWord(raw json.RawMessage) (vocabulary.Word, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return vocabulary.Word{Word: s}, nil
	}

	var w vocabulary.Word
	if err := json.Unmarshal(raw, &w); err != nil {
		return vocabulary.Word{}, fmt.Errorf("neither a string nor a word object: %s", raw)
	}
	return w, nil
}

// AppError is an error reported by the server in the reply's error field
type AppError struct {
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}
