package gui

import (
	"fmt"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/readalong/internal/audio"
	"codeberg.org/snonux/readalong/internal/page"
	"codeberg.org/snonux/readalong/internal/translation"
)

// translationView shows a container's markup as plain text in a label.
// It implements page.Container; the state is kept here and pushed to the
// label on the main thread.
type translationView struct {
	mu     sync.Mutex
	html   string
	hidden bool

	label *widget.Label
}

func newTranslationView() *translationView {
	v := &translationView{
		hidden: true,
		label:  widget.NewLabel(""),
	}
	v.label.Wrapping = fyne.TextWrapWord
	v.label.Hide()
	return v
}

func (v *translationView) SetHTML(html string) {
	v.mu.Lock()
	v.html = html
	v.mu.Unlock()

	text := page.PlainText(html)
	importance := widget.MediumImportance
	switch {
	case strings.Contains(html, "text-red-500"):
		importance = widget.DangerImportance
	case html == translation.LoadingHTML:
		importance = widget.LowImportance
	}

	fyne.Do(func() {
		v.label.Importance = importance
		v.label.SetText(text)
	})
}

func (v *translationView) HTML() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.html
}

func (v *translationView) Show() {
	v.mu.Lock()
	v.hidden = false
	v.mu.Unlock()

	fyne.Do(v.label.Show)
}

func (v *translationView) Hidden() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hidden
}

// speakButton implements page.Button over a tooltip button
type speakButton struct {
	mu      sync.Mutex
	icon    string
	enabled bool

	button *ttwidget.Button
}

func newSpeakButton(tapped func()) *speakButton {
	return &speakButton{
		icon:    audio.IdleIcon,
		enabled: true,
		button:  ttwidget.NewButtonWithIcon("", theme.VolumeUpIcon(), tapped),
	}
}

func (b *speakButton) SetIcon(icon string) {
	b.mu.Lock()
	b.icon = icon
	b.mu.Unlock()

	res := theme.VolumeUpIcon()
	if icon == audio.BusyIcon {
		res = theme.ViewRefreshIcon()
	}
	fyne.Do(func() { b.button.SetIcon(res) })
}

func (b *speakButton) Icon() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.icon
}

func (b *speakButton) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.enabled = enabled
	b.mu.Unlock()

	fyne.Do(func() {
		if enabled {
			b.button.Enable()
		} else {
			b.button.Disable()
		}
	})
}

func (b *speakButton) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// ParagraphRow is one paragraph with its controls and translation
type ParagraphRow struct {
	widget.BaseWidget

	Index int

	container    *fyne.Container
	textLabel    *widget.Label
	translateBtn *ttwidget.Button
	speak        *speakButton
	view         *translationView
}

// NewParagraphRow creates the row for paragraph index
func NewParagraphRow(index int, text string, onTranslate, onSpeak func()) *ParagraphRow {
	r := &ParagraphRow{
		Index: index,
		view:  newTranslationView(),
		speak: newSpeakButton(onSpeak),
	}

	r.textLabel = widget.NewLabel(text)
	r.textLabel.Wrapping = fyne.TextWrapWord

	r.translateBtn = ttwidget.NewButtonWithIcon("", theme.DocumentIcon(), onTranslate)

	controls := container.NewVBox(r.translateBtn, r.speak.button)
	r.container = container.NewBorder(
		nil, nil,
		controls, nil,
		container.NewVBox(r.textLabel, r.view.label),
	)

	r.ExtendBaseWidget(r)
	return r
}

// CreateRenderer implements fyne.Widget
func (r *ParagraphRow) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(r.container)
}

// SetToolTips sets the tooltips once the window tooltip layer exists
func (r *ParagraphRow) SetToolTips() {
	r.translateBtn.SetToolTip(fmt.Sprintf("Translate paragraph %d", r.Index))
	r.speak.button.SetToolTip(fmt.Sprintf("Read paragraph %d aloud", r.Index))
}

// Container returns the row's translation container
func (r *ParagraphRow) Container() page.Container {
	return r.view
}

// Button returns the row's speak button
func (r *ParagraphRow) Button() page.Button {
	return r.speak
}
