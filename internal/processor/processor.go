package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"codeberg.org/snonux/readalong/internal/archive"
	"codeberg.org/snonux/readalong/internal/audio"
	"codeberg.org/snonux/readalong/internal/batch"
	"codeberg.org/snonux/readalong/internal/cli"
	"codeberg.org/snonux/readalong/internal/dispatch"
	"codeberg.org/snonux/readalong/internal/guard"
	"codeberg.org/snonux/readalong/internal/gui"
	"codeberg.org/snonux/readalong/internal/logger"
	"codeberg.org/snonux/readalong/internal/page"
	"codeberg.org/snonux/readalong/internal/translation"
	"codeberg.org/snonux/readalong/internal/vocabulary"
)

// playback is a player whose background playback can be awaited and stopped
type playback interface {
	audio.Player
	Wait()
	Stop()
}

// Processor carries out the readalong commands
type Processor struct {
	flags  *cli.Flags
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	dispatcher       *dispatch.Dispatcher
	guard            *guard.Keyed
	translator       *translation.Translator
	translationCache *translation.TranslationCache
	speaker          *audio.Speaker
	player           playback

	mu       sync.Mutex
	notebook *vocabulary.Notebook
}

// NewProcessor creates a processor from resolved flags
func NewProcessor(flags *cli.Flags) (*Processor, error) {
	level, err := logger.ParseLevel(flags.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.WithLevel(level), logger.WithLogFile(flags.LogFile))

	d, err := dispatch.New(dispatch.Options{
		BaseURL: flags.ServerURL,
		Timeout: flags.Timeout,
		Retry:   flags.Retry,
		Breaker: flags.Breaker,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	p := &Processor{
		flags:            flags,
		stdout:           os.Stdout,
		stderr:           os.Stderr,
		logger:           log,
		dispatcher:       d,
		guard:            guard.New(),
		translationCache: translation.NewTranslationCache(),
	}

	opts := []translation.Option{
		translation.WithGuard(p.guard),
		translation.WithCache(p.translationCache),
		translation.WithLogger(log),
	}
	if !flags.NoRecord {
		opts = append(opts, translation.WithRecorder(p))
	}
	p.translator = translation.NewTranslator(d, opts...)

	p.setPlayer(audio.NewCommandPlayer(d, "", log))

	return p, nil
}

// setPlayer replaces the player and rebuilds the speaker around it
func (p *Processor) setPlayer(pl playback) {
	p.player = pl
	p.speaker = audio.NewSpeaker(p.dispatcher, pl,
		audio.WithGuard(p.guard),
		audio.WithLogger(p.logger),
	)
}

// Close releases the notebook
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.notebook == nil {
		return nil
	}
	err := p.notebook.Close()
	p.notebook = nil
	return err
}

// Record implements translation.Recorder, opening the notebook on first use
func (p *Processor) Record(ctx context.Context, words []vocabulary.Word, sourceURL string) error {
	nb, err := p.openNotebook()
	if err != nil {
		return err
	}
	return nb.Record(ctx, words, sourceURL)
}

func (p *Processor) notebookPath() string {
	if p.flags.NotebookPath != "" {
		return p.flags.NotebookPath
	}
	return vocabulary.DefaultPath()
}

func (p *Processor) openNotebook() (*vocabulary.Notebook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.notebook != nil {
		return p.notebook, nil
	}
	nb, err := vocabulary.Open(p.notebookPath())
	if err != nil {
		return nil, err
	}
	p.notebook = nb
	return nb, nil
}

// loadDocument reads the paragraphs from --batch or --page
func (p *Processor) loadDocument(ctx context.Context) (*page.Document, error) {
	if p.flags.BatchFile != "" {
		return batch.LoadDocument(p.flags.BatchFile)
	}
	if p.flags.PageURL == "" {
		return nil, errors.New("no paragraphs to read: use --page or --batch")
	}

	// Relative pages live on the reading server; source_url is always absolute
	pageURL, err := p.dispatcher.Resolve(p.flags.PageURL)
	if err != nil {
		return nil, err
	}
	return page.Load(ctx, p.dispatcher, pageURL)
}

// Translate translates one paragraph and prints its container
func (p *Processor) Translate(ctx context.Context, index int) error {
	doc, err := p.loadDocument(ctx)
	if err != nil {
		return err
	}

	if err := p.translateParagraph(ctx, doc, index); err != nil {
		return fmt.Errorf("paragraph %d: %w", index, err)
	}
	return nil
}

// TranslateAll translates every paragraph in index order
func (p *Processor) TranslateAll(ctx context.Context) error {
	doc, err := p.loadDocument(ctx)
	if err != nil {
		return err
	}

	indices := doc.Indices()
	if len(indices) == 0 {
		return fmt.Errorf("no indexed paragraphs found in %s", doc.URL)
	}

	translated, failed := 0, 0
	for i, index := range indices {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(p.stdout, "\n[%d/%d] Paragraph %d\n", i+1, len(indices), index)
		if err := p.translateParagraph(ctx, doc, index); err != nil {
			failed++
			continue
		}
		translated++
	}

	fmt.Fprintf(p.stdout, "\n=== Translation Summary ===\n")
	fmt.Fprintf(p.stdout, "Total paragraphs: %d\n", len(indices))
	fmt.Fprintf(p.stdout, "Translated: %d\n", translated)
	if failed > 0 {
		fmt.Fprintf(p.stdout, "Errors: %d\n", failed)
	}
	fmt.Fprintf(p.stdout, "===========================\n")

	return nil
}

// translateParagraph runs the translate action and prints whatever the
// container ended up showing
func (p *Processor) translateParagraph(ctx context.Context, doc *page.Document, index int) error {
	box := doc.Container(index)
	result, err := p.translator.Translate(ctx, index, doc.URL, doc.Source(index), box)

	if p.flags.Plain {
		fmt.Fprintln(p.stdout, page.PlainText(box.HTML()))
	} else {
		fmt.Fprintln(p.stdout, box.HTML())
	}

	if err != nil {
		return err
	}

	if p.flags.SaveDir != "" {
		if err := os.MkdirAll(p.flags.SaveDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path, err := translation.SaveTranslation(p.flags.SaveDir, index, result)
		if err != nil {
			fmt.Fprintf(p.stderr, "Warning: %v\n", err)
		} else {
			fmt.Fprintf(p.stderr, "Saved: %s\n", path)
		}
	}

	return nil
}

// Speak reads one paragraph aloud and waits for playback to finish
func (p *Processor) Speak(ctx context.Context, index int) error {
	doc, err := p.loadDocument(ctx)
	if err != nil {
		return err
	}

	btn := doc.Button(index)
	btn.OnChange(func(t *page.Toggle) {
		fmt.Fprintf(p.stderr, "[speak %d] %s\n", index, describeButton(t))
	})

	if err := p.speaker.Speak(ctx, index, doc.Source(index), btn); err != nil {
		return fmt.Errorf("paragraph %d: %w", index, err)
	}

	fmt.Fprintf(p.stdout, "Playing paragraph %d...\n", index)

	done := make(chan struct{})
	go func() {
		p.player.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.player.Stop()
		<-done
		return ctx.Err()
	}

	fmt.Fprintf(p.stdout, "Done.\n")
	return nil
}

func describeButton(t *page.Toggle) string {
	state := "idle"
	if t.Icon() == audio.BusyIcon {
		state = "busy"
	}
	if !t.Enabled() {
		state += ", disabled"
	}
	return state
}

// ListParagraphs prints the indexed paragraphs of the source
func (p *Processor) ListParagraphs(ctx context.Context) error {
	doc, err := p.loadDocument(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "%d paragraphs in %s\n\n", doc.Len(), doc.URL)
	for _, index := range doc.Indices() {
		src, err := doc.Paragraph(index)
		if err != nil {
			continue
		}
		text, _ := src.Text()
		fmt.Fprintf(p.stdout, "%4d  %s\n", index, truncate(text, 72))
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}

// ListVocabulary prints a page of the notebook
func (p *Processor) ListVocabulary(ctx context.Context) error {
	nb, err := p.openNotebook()
	if err != nil {
		return err
	}

	filter := p.vocabFilter()

	entries, err := nb.List(ctx, filter)
	if err != nil {
		return err
	}
	total, err := nb.Count(ctx, filter)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintf(p.stdout, "No words found\n")
		return nil
	}

	fmt.Fprintf(p.stdout, "%-6s %-24s %-6s %-5s %5s  %-10s  %s\n", "ID", "WORD", "POS", "LEVEL", "FREQ", "FIRST SEEN", "MEANING")
	for _, e := range entries {
		fmt.Fprintf(p.stdout, "%-6d %-24s %-6s %-5s %5d  %-10s  %s\n",
			e.ID, e.Word, e.POS, e.DifficultyLevel, e.Frequency,
			e.CreatedAt.Local().Format("2006-01-02"), meaning(e))
	}
	fmt.Fprintf(p.stdout, "\nShowing %d of %d words\n", len(entries), total)
	return nil
}

// meaning joins the definitions of e for the list view
func meaning(e vocabulary.Entry) string {
	var parts []string
	for _, d := range []string{e.DefinitionCN, e.DefinitionEN} {
		if d != "" {
			parts = append(parts, d)
		}
	}
	return truncate(strings.Join(parts, "; "), 48)
}

func (p *Processor) vocabFilter() vocabulary.Filter {
	return vocabulary.Filter{
		Limit:      p.flags.VocabLimit,
		Offset:     p.flags.VocabOffset,
		Search:     p.flags.VocabSearch,
		Difficulty: p.flags.VocabDifficulty,
		SortBy:     p.flags.VocabSort,
		SortOrder:  p.flags.VocabOrder,
	}
}

// VocabularyStats prints the notebook summary
func (p *Processor) VocabularyStats(ctx context.Context) error {
	nb, err := p.openNotebook()
	if err != nil {
		return err
	}

	stats, err := nb.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "Words:         %d\n", stats.Words)
	fmt.Fprintf(p.stdout, "Occurrences:   %d\n", stats.Occurrences)
	fmt.Fprintf(p.stdout, "Source pages:  %d\n", stats.Sources)
	fmt.Fprintf(p.stdout, "New this week: %d\n", stats.LastWeek)

	if len(stats.ByDifficulty) > 0 {
		levels := make([]string, 0, len(stats.ByDifficulty))
		for level := range stats.ByDifficulty {
			levels = append(levels, level)
		}
		sort.Strings(levels)

		fmt.Fprintf(p.stdout, "\nBy level:\n")
		for _, level := range levels {
			name := level
			if name == "" {
				name = "unrated"
			}
			fmt.Fprintf(p.stdout, "  %-8s %d\n", name, stats.ByDifficulty[level])
		}
	}
	return nil
}

// DeleteVocabulary removes one word from the notebook
func (p *Processor) DeleteVocabulary(ctx context.Context, id int64) error {
	nb, err := p.openNotebook()
	if err != nil {
		return err
	}

	if err := nb.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(p.stdout, "Deleted word %d\n", id)
	return nil
}

// ArchiveVocabulary moves the notebook aside so the next run starts fresh
func (p *Processor) ArchiveVocabulary() error {
	if err := p.Close(); err != nil {
		return err
	}

	archived, err := archive.ArchiveNotebook(p.notebookPath())
	if err != nil {
		return fmt.Errorf("failed to archive notebook: %w", err)
	}

	fmt.Fprintf(p.stdout, "Notebook archived to: %s\n", archived)
	return nil
}

// RunGUIMode launches the GUI application
func (p *Processor) RunGUIMode(ctx context.Context) error {
	doc, err := p.loadDocument(ctx)
	if err != nil {
		return err
	}

	guiConfig := &gui.Config{
		Document: doc,
		Poster:   p.dispatcher,
		Player:   p.player,
		Logger:   p.logger,
	}
	if !p.flags.NoRecord {
		guiConfig.Recorder = p
	}

	app := gui.New(guiConfig)
	app.Run()

	return nil
}
