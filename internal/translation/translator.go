package translation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"codeberg.org/snonux/readalong/internal/guard"
	"codeberg.org/snonux/readalong/internal/page"
	"codeberg.org/snonux/readalong/internal/vocabulary"
)

// Endpoint is the server path of the translate action
const Endpoint = "/translate"

// LoadingHTML is shown in the container while a request is in flight
const LoadingHTML = `<div class="text-blue-500">Translating...</div>`

var (
	// ErrEmptyTranslation is reported when the reply carries no html
	ErrEmptyTranslation = errors.New("Received empty translation")
	// ErrEmptyText is reported for a paragraph with no text; no request is sent
	ErrEmptyText = errors.New("Empty text content")
)

// Poster performs one JSON round trip
type Poster interface {
	PostJSON(ctx context.Context, endpoint string, payload, out any) error
}

// Recorder stores the vocabulary of a successful translation
type Recorder interface {
	Record(ctx context.Context, words []vocabulary.Word, sourceURL string) error
}

// Option configures a Translator
type Option func(*Translator)

// WithGuard rejects a second translate for an index that is still in flight
func WithGuard(g *guard.Keyed) Option {
	return func(t *Translator) { t.guard = g }
}

// WithRecorder records the vocabulary of every successful translation
func WithRecorder(r Recorder) Option {
	return func(t *Translator) { t.recorder = r }
}

// WithCache keeps every successful result in c
func WithCache(c *TranslationCache) Option {
	return func(t *Translator) { t.cache = c }
}

// WithLogger sets the logger used for diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) { t.logger = l }
}

// Translator handles the translate action for one server
type Translator struct {
	poster   Poster
	guard    *guard.Keyed
	recorder Recorder
	cache    *TranslationCache
	logger   *slog.Logger
}

// NewTranslator creates a new translator that posts through poster
func NewTranslator(poster Poster, opts ...Option) *Translator {
	t := &Translator{
		poster: poster,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate sends paragraph index to the server and renders the outcome into sink.
// The sink always ends up visible, showing either the translation or an error;
// the returned error only reports what the sink already shows.
func (t *Translator) Translate(ctx context.Context, index int, sourceURL string, src page.TextSource, sink page.Container) (*Result, error) {
	if t.guard != nil {
		release, ok := t.guard.Acquire(fmt.Sprintf("translate:%d", index))
		if !ok {
			t.logger.Debug("Translate already in progress", "index", index)
			return nil, guard.ErrBusy
		}
		defer release()
	}

	text, err := src.Text()
	if err != nil {
		return nil, t.fail(sink, index, err)
	}

	sink.SetHTML(LoadingHTML)
	sink.Show()

	if strings.TrimSpace(text) == "" {
		return nil, t.fail(sink, index, ErrEmptyText)
	}

	req := Request{Text: text, Index: index, SourceURL: sourceURL}

	var result Result
	if err := t.poster.PostJSON(ctx, Endpoint, req, &result); err != nil {
		return nil, t.fail(sink, index, err)
	}
	t.logger.Debug("Translation API response", "index", index, "html_bytes", len(result.HTML), "error", result.Error)

	if result.Error != "" {
		return nil, t.fail(sink, index, &AppError{Message: result.Error})
	}
	if result.HTML == "" {
		return nil, t.fail(sink, index, ErrEmptyTranslation)
	}

	sink.SetHTML(result.HTML)

	if t.cache != nil {
		t.cache.Add(index, &result)
	}

	if t.recorder != nil {
		words, skipped := result.Words()
		for _, err := range skipped {
			t.logger.Warn("Skipping vocabulary entry", "index", index, "error", err)
		}
		if len(words) > 0 {
			if err := t.recorder.Record(ctx, words, sourceURL); err != nil {
				t.logger.Warn("Failed to record vocabulary", "index", index, "error", err)
			}
		}
	}

	return &result, nil
}

func (t *Translator) fail(sink page.Container, index int, err error) error {
	t.logger.Error("Translation failed", "index", index, "error", err)
	sink.SetHTML(RenderError(err.Error()))
	sink.Show()
	return err
}

// RenderError returns the inline markup for a failed translation
func RenderError(message string) string {
	return `<div class="text-red-500">Translation Error: ` + html.EscapeString(message) + `</div>`
}

// SaveTranslation writes the rendered fragment of paragraph index to dir
func SaveTranslation(dir string, index int, result *Result) (string, error) {
	outputFile := filepath.Join(dir, page.ContainerID(index)+".html")

	if err := os.WriteFile(outputFile, []byte(result.HTML+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write translation file: %w", err)
	}

	return outputFile, nil
}

// TranslationCache keeps the last successful result per paragraph. It is
// never consulted before a request.
type TranslationCache struct {
	mu      sync.RWMutex
	results map[int]*Result
}

// NewTranslationCache creates a new translation cache
func NewTranslationCache() *TranslationCache {
	return &TranslationCache{
		results: make(map[int]*Result),
	}
}

// Add stores the result for index
func (tc *TranslationCache) Add(index int, result *Result) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.results[index] = result
}

// Get retrieves the result for index
func (tc *TranslationCache) Get(index int) (*Result, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	result, ok := tc.results[index]
	return result, ok
}

// GetAll returns a copy of all cached results
func (tc *TranslationCache) GetAll() map[int]*Result {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	all := make(map[int]*Result, len(tc.results))
	for k, v := range tc.results {
		all[k] = v
	}
	return all
}
