package page

import (
	"sync"
)

// TextSource supplies the text of one paragraph
type TextSource interface {
	Text() (string, error)
}

// Container receives rendered result markup
type Container interface {
	SetHTML(html string)
	HTML() string
	Show()
	Hidden() bool
}

// Button is the control that triggered a speak request
type Button interface {
	SetIcon(icon string)
	Icon() string
	SetEnabled(enabled bool)
	Enabled() bool
}

// StaticText is a TextSource over a fixed string
type StaticText string

// Text returns the string itself
func (s StaticText) Text() (string, error) {
	return string(s), nil
}

// Box is an in-memory Container. New boxes start hidden.
type Box struct {
	mu       sync.Mutex
	id       string
	html     string
	visible  bool
	onChange func(*Box)
}

// NewBox creates a hidden container with the given element id
func NewBox(id string) *Box {
	return &Box{id: id}
}

// ID returns the element id, e.g. "translation-2"
func (b *Box) ID() string {
	return b.id
}

// SetHTML replaces the container content
func (b *Box) SetHTML(html string) {
	b.mu.Lock()
	b.html = html
	cb := b.onChange
	b.mu.Unlock()
	if cb != nil {
		cb(b)
	}
}

// HTML returns the current content
func (b *Box) HTML() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.html
}

// Show removes the hidden state
func (b *Box) Show() {
	b.mu.Lock()
	b.visible = true
	cb := b.onChange
	b.mu.Unlock()
	if cb != nil {
		cb(b)
	}
}

// Hidden reports whether the container is still hidden
func (b *Box) Hidden() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.visible
}

// OnChange registers a callback fired after every mutation
func (b *Box) OnChange(fn func(*Box)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Toggle is an in-memory Button. New toggles are enabled with no icon.
type Toggle struct {
	mu       sync.Mutex
	icon     string
	disabled bool
	onChange func(*Toggle)
}

// NewToggle creates an enabled button showing icon
func NewToggle(icon string) *Toggle {
	return &Toggle{icon: icon}
}

// SetIcon replaces the button markup
func (t *Toggle) SetIcon(icon string) {
	t.mu.Lock()
	t.icon = icon
	cb := t.onChange
	t.mu.Unlock()
	if cb != nil {
		cb(t)
	}
}

// Icon returns the current button markup
func (t *Toggle) Icon() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.icon
}

// SetEnabled enables or disables the button
func (t *Toggle) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.disabled = !enabled
	cb := t.onChange
	t.mu.Unlock()
	if cb != nil {
		cb(t)
	}
}

// Enabled reports whether the button accepts clicks
func (t *Toggle) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.disabled
}

// OnChange registers a callback fired after every mutation
func (t *Toggle) OnChange(fn func(*Toggle)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}
