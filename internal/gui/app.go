package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/readalong/internal"
	"codeberg.org/snonux/readalong/internal/audio"
	"codeberg.org/snonux/readalong/internal/guard"
	"codeberg.org/snonux/readalong/internal/logger"
	"codeberg.org/snonux/readalong/internal/page"
	"codeberg.org/snonux/readalong/internal/translation"
)

// Player plays synthesised audio and can be stopped
type Player interface {
	audio.Player
	Stopper
}

// Config holds GUI application configuration
type Config struct {
	Document *page.Document
	Poster   translation.Poster
	Player   Player
	Recorder translation.Recorder // Optional vocabulary notebook
	Logger   *slog.Logger
}

// Application represents the main GUI application
type Application struct {
	// Fyne components
	app    fyne.App
	window fyne.Window

	// UI elements
	rows             map[int]*ParagraphRow
	order            []int
	translateAllBtn  *ttwidget.Button
	audioPlayer      *AudioPlayer
	logViewer        *LogViewer
	statusLabel      *widget.Label
	queueStatusLabel *widget.Label

	// Actions
	doc        *page.Document
	translator *translation.Translator
	speaker    *audio.Speaker
	player     Player
	cache      *translation.TranslationCache
	queue      *TranslateQueue
	logger     *slog.Logger

	// Background processing
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new GUI application for config.Document
func New(config *Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	myApp := app.NewWithID("org.codeberg.snonux.readalong")
	myApp.SetIcon(GetAppIcon())

	base := config.Logger
	if base == nil {
		base = slog.Default()
	}

	a := &Application{
		app:       myApp,
		doc:       config.Document,
		player:    config.Player,
		cache:     translation.NewTranslationCache(),
		rows:      make(map[int]*ParagraphRow),
		logViewer: NewLogViewer(),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.logger = logger.Tee(base, a.logViewer, slog.LevelInfo)

	// Translate and speak share one guard so a paragraph can be translated
	// while it is being read aloud, but never twice at once
	inflight := guard.New()
	a.translator = translation.NewTranslator(config.Poster,
		translation.WithGuard(inflight),
		translation.WithRecorder(config.Recorder),
		translation.WithCache(a.cache),
		translation.WithLogger(a.logger),
	)
	a.speaker = audio.NewSpeaker(config.Poster, config.Player,
		audio.WithGuard(inflight),
		audio.WithLogger(a.logger),
	)

	a.queue = NewTranslateQueue(ctx, a.translate)
	a.queue.SetCallback(func(ParagraphJob) { a.updateQueueStatus() })

	a.setupUI()
	return a
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("ReadAlong v%s - %s", internal.Version, a.doc.URL))
	a.window.SetIcon(GetAppIcon())
	a.window.Resize(fyne.NewSize(900, 750))

	paragraphs := container.NewVBox()
	for _, index := range a.doc.Indices() {
		src, err := a.doc.Paragraph(index)
		if err != nil {
			continue
		}
		text, _ := src.Text()

		row := NewParagraphRow(index, text,
			func() { a.onTranslate(index) },
			func() { a.onSpeak(index) },
		)
		a.rows[index] = row
		a.order = append(a.order, index)

		paragraphs.Add(row)
		paragraphs.Add(widget.NewSeparator())
	}
	if len(a.order) == 0 {
		paragraphs.Add(widget.NewLabel(fmt.Sprintf("No indexed paragraphs found on %s", a.doc.URL)))
	}

	a.translateAllBtn = ttwidget.NewButtonWithIcon("", theme.MailForwardIcon(), a.onTranslateAll)
	helpButton := ttwidget.NewButtonWithIcon("", theme.HelpIcon(), a.onShowHotkeys)
	a.audioPlayer = NewAudioPlayer(a.player)
	watchPlayback(a.player, a.audioPlayer)

	toolbar := container.NewHBox(
		a.translateAllBtn,
		widget.NewSeparator(),
		helpButton,
	)

	a.statusLabel = widget.NewLabel("Ready")
	a.queueStatusLabel = widget.NewLabel("Queue: Empty")
	a.queueStatusLabel.TextStyle = fyne.TextStyle{Italic: true}

	statusSection := container.NewVBox(
		a.audioPlayer,
		widget.NewSeparator(),
		a.statusLabel,
		a.queueStatusLabel,
		a.logViewer,
	)

	content := container.NewBorder(
		container.NewVBox(toolbar, widget.NewSeparator()),
		statusSection,
		nil, nil,
		container.NewVScroll(paragraphs),
	)

	// Add the tooltip layer to enable tooltips
	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))

	// Now that tooltip layer is created, set all tooltips
	a.translateAllBtn.SetToolTip("Translate all paragraphs (a)")
	helpButton.SetToolTip("Show hotkeys (h)")
	a.audioPlayer.SetToolTips()
	for _, row := range a.rows {
		row.SetToolTips()
	}

	a.window.SetOnClosed(func() {
		a.cancel()
		a.queue.Stop()
		if a.player != nil {
			a.player.Stop()
		}
		a.wg.Wait()
	})

	a.setupKeyboardShortcuts()
}

// setupKeyboardShortcuts binds single-key shortcuts
func (a *Application) setupKeyboardShortcuts() {
	a.window.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 'a', 'A':
			a.onTranslateAll()
		case 's', 'S':
			a.audioPlayer.Stop()
		case 'h', 'H', '?':
			a.onShowHotkeys()
		}
	})
}

// Run starts the GUI application
func (a *Application) Run() {
	a.window.ShowAndRun()
}

// translate renders paragraph index into its row
func (a *Application) translate(ctx context.Context, index int) error {
	row, ok := a.rows[index]
	if !ok {
		return fmt.Errorf("%w: %d", page.ErrNoParagraph, index)
	}

	_, err := a.translator.Translate(ctx, index, a.doc.URL, a.doc.Source(index), row.Container())
	return err
}

func (a *Application) onTranslate(index int) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		a.updateStatus(fmt.Sprintf("Translating paragraph %d...", index))
		err := a.translate(a.ctx, index)
		switch {
		case errors.Is(err, guard.ErrBusy):
			a.updateStatus(fmt.Sprintf("Paragraph %d is already being translated", index))
		case err != nil:
			a.updateStatus(fmt.Sprintf("Translation of paragraph %d failed", index))
		default:
			a.updateStatus(fmt.Sprintf("Translated paragraph %d", index))
		}
	}()
}

func (a *Application) onTranslateAll() {
	for _, index := range a.order {
		if _, err := a.queue.Add(index); err != nil {
			a.updateStatus(fmt.Sprintf("Could not queue paragraph %d: %v", index, err))
			return
		}
	}
}

func (a *Application) onSpeak(index int) {
	row, ok := a.rows[index]
	if !ok {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		err := a.speaker.Speak(a.ctx, index, a.doc.Source(index), row.Button())
		switch {
		case errors.Is(err, guard.ErrBusy):
			// Button is already busy
		case err != nil:
			a.audioPlayer.SetStatus(fmt.Sprintf("Speech failed for paragraph %d: %v", index, err))
		default:
			a.audioPlayer.SetPlaying(index)
		}
	}()
}

func (a *Application) onShowHotkeys() {
	hotkeys := widget.NewLabel(`a - Translate all paragraphs
s - Stop audio
h - Show this help`)
	popup := widget.NewModalPopUp(
		container.NewVBox(
			widget.NewLabelWithStyle("Hotkeys", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
			hotkeys,
		),
		a.window.Canvas(),
	)

	// Close on any key
	prev := a.window.Canvas().OnTypedRune()
	a.window.Canvas().SetOnTypedRune(func(rune) {
		popup.Hide()
		a.window.Canvas().SetOnTypedRune(prev)
	})
	popup.Show()
}

func (a *Application) updateQueueStatus() {
	queued, processing, completed, failed := a.queue.GetQueueStatus()

	text := "Queue: Empty"
	if queued+processing+completed+failed > 0 {
		text = fmt.Sprintf("Queue: %d queued, %d processing, %d done", queued, processing, completed)
		if failed > 0 {
			text += fmt.Sprintf(", %d failed", failed)
		}
	}

	fyne.Do(func() {
		a.queueStatusLabel.SetText(text)
	})
}

func (a *Application) updateStatus(message string) {
	fyne.Do(func() {
		a.statusLabel.SetText(message)
	})
}
