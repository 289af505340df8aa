package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"
)

// Stopper ends background playback
type Stopper interface {
	Stop()
}

// AudioPlayer is the playback status bar with a stop control
type AudioPlayer struct {
	widget.BaseWidget

	container   *fyne.Container
	stopButton  *ttwidget.Button
	statusLabel *widget.Label

	stopper Stopper
}

// NewAudioPlayer creates a status bar that stops playback through stopper
func NewAudioPlayer(stopper Stopper) *AudioPlayer {
	p := &AudioPlayer{stopper: stopper}

	p.stopButton = ttwidget.NewButton("", p.onStop)
	p.stopButton.Icon = theme.MediaStopIcon()
	p.stopButton.Disable()

	p.statusLabel = widget.NewLabel("No audio playing")

	p.container = container.NewHBox(
		p.stopButton,
		layout.NewSpacer(),
		p.statusLabel,
	)

	p.ExtendBaseWidget(p)
	return p
}

// CreateRenderer implements fyne.Widget
func (p *AudioPlayer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.container)
}

// SetToolTips sets the tooltips once the window tooltip layer exists
func (p *AudioPlayer) SetToolTips() {
	p.stopButton.SetToolTip("Stop audio (s)")
}

// SetPlaying shows that paragraph index is playing. Safe from any goroutine.
func (p *AudioPlayer) SetPlaying(index int) {
	fyne.Do(func() {
		p.stopButton.Enable()
		p.statusLabel.SetText(fmt.Sprintf("Playing paragraph %d", index))
	})
}

// SetStatus replaces the status text and disables the stop control.
// Safe from any goroutine.
func (p *AudioPlayer) SetStatus(text string) {
	fyne.Do(func() {
		p.stopButton.Disable()
		p.statusLabel.SetText(text)
	})
}

// Finished resets the bar once playback has ended on its own.
// Safe from any goroutine.
func (p *AudioPlayer) Finished() {
	p.SetStatus("No audio playing")
}

// finishNotifier is a player that reports playback running to its end
type finishNotifier interface {
	SetOnFinish(fn func())
}

// watchPlayback resets bar whenever player finishes on its own
func watchPlayback(player Player, bar *AudioPlayer) {
	if n, ok := player.(finishNotifier); ok {
		n.SetOnFinish(bar.Finished)
	}
}

// Stop ends playback if any is running
func (p *AudioPlayer) Stop() {
	p.onStop()
}

func (p *AudioPlayer) onStop() {
	if p.stopper != nil {
		p.stopper.Stop()
	}
	p.SetStatus("Stopped")
}
