package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/snonux/readalong/internal/guard"
	"codeberg.org/snonux/readalong/internal/page"
)

// Endpoint is the server path of the speak action
const Endpoint = "/tts"

const (
	// BusyIcon is shown while the request is in flight
	BusyIcon = `<i class="fas fa-spinner fa-spin"></i>`
	// IdleIcon is the resting state of a speak button
	IdleIcon = page.SpeakIcon
)

// ErrNoAudio is returned when the server reports success without an audio URL
var ErrNoAudio = errors.New("no audio_url in response")

// Request is the /tts payload
type Request struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// Result is the /tts reply
type Result struct {
	Success  bool   `json:"success"`
	AudioURL string `json:"audio_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SynthesisError is returned when the server reports success=false
type SynthesisError struct {
	Message string
}

func (e *SynthesisError) Error() string {
	if e.Message == "" {
		return "speech synthesis failed"
	}
	return "speech synthesis failed: " + e.Message
}

// Poster performs one JSON round trip
type Poster interface {
	PostJSON(ctx context.Context, endpoint string, payload, out any) error
}

// Player starts playback of an audio source. Play returns once playback
// has started or failed to start; playback itself continues in the background.
type Player interface {
	Play(ctx context.Context, src string) error
}

// Option configures a Speaker
type Option func(*Speaker)

// WithGuard rejects a second speak for an index that is still in flight
func WithGuard(g *guard.Keyed) Option {
	return func(s *Speaker) { s.guard = g }
}

// WithLogger sets the logger used for diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(s *Speaker) { s.logger = l }
}

// Speaker handles the speak action for one server
type Speaker struct {
	poster Poster
	player Player
	guard  *guard.Keyed
	logger *slog.Logger
}

// NewSpeaker creates a speaker that posts through poster and plays through player
func NewSpeaker(poster Poster, player Player, opts ...Option) *Speaker {
	s := &Speaker{
		poster: poster,
		player: player,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Speak synthesises paragraph index and starts playback. btn is busy and
// disabled while the request runs and is restored to idle and enabled on
// every exit path. Failures are logged; the returned error is informational.
func (s *Speaker) Speak(ctx context.Context, index int, src page.TextSource, btn page.Button) error {
	if s.guard != nil {
		release, ok := s.guard.Acquire(fmt.Sprintf("tts:%d", index))
		if !ok {
			s.logger.Debug("Speak already in progress", "index", index)
			return guard.ErrBusy
		}
		defer release()
	}

	text, err := src.Text()
	if err != nil {
		s.logger.Error("TTS request failed", "index", index, "error", err)
		return err
	}

	btn.SetIcon(BusyIcon)
	btn.SetEnabled(false)
	defer func() {
		btn.SetIcon(IdleIcon)
		btn.SetEnabled(true)
	}()

	var result Result
	if err := s.poster.PostJSON(ctx, Endpoint, Request{Text: text, Index: index}, &result); err != nil {
		s.logger.Error("TTS request failed", "index", index, "error", err)
		return err
	}

	if !result.Success {
		err := &SynthesisError{Message: result.Error}
		s.logger.Warn("TTS request failed", "index", index, "error", err)
		return err
	}
	if result.AudioURL == "" {
		s.logger.Warn("TTS request failed", "index", index, "error", ErrNoAudio)
		return ErrNoAudio
	}

	if err := s.player.Play(ctx, result.AudioURL); err != nil {
		s.logger.Error("Playback failed", "index", index, "audio_url", result.AudioURL, "error", err)
		btn.SetIcon(IdleIcon)
		return fmt.Errorf("playback failed: %w", err)
	}

	s.logger.Debug("Playback started", "index", index, "audio_url", result.AudioURL)
	return nil
}
