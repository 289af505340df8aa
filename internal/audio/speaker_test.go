package audio

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/readalong/internal/dispatch"
	"codeberg.org/snonux/readalong/internal/guard"
	"codeberg.org/snonux/readalong/internal/page"
	"codeberg.org/snonux/readalong/internal/testutil"
)

type buttonState struct {
	icon    string
	enabled bool
}

// recordButton tracks every state a toggle passes through
func recordButton(btn *page.Toggle) func() []buttonState {
	var mu sync.Mutex
	var states []buttonState
	btn.OnChange(func(t *page.Toggle) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, buttonState{t.Icon(), t.Enabled()})
	})
	return func() []buttonState {
		mu.Lock()
		defer mu.Unlock()
		return append([]buttonState(nil), states...)
	}
}

func assertIdle(t *testing.T, btn page.Button) {
	t.Helper()
	assert.Equal(t, IdleIcon, btn.Icon())
	assert.True(t, btn.Enabled(), "button should be re-enabled")
}

func TestSpeak_Success(t *testing.T) {
	poster := &testutil.MockPoster{Replies: map[string]string{
		Endpoint: `{"success":true,"audio_url":"/tts/abc.wav"}`,
	}}
	player := &testutil.MockPlayer{}
	btn := page.NewToggle(IdleIcon)
	states := recordButton(btn)

	err := NewSpeaker(poster, player).Speak(context.Background(), 2, page.StaticText("Hello world"), btn)
	require.NoError(t, err)

	assert.Equal(t, []string{"/tts/abc.wav"}, player.Played())
	assert.Equal(t, []any{Request{Text: "Hello world", Index: 2}}, poster.Payloads)
	assertIdle(t, btn)

	got := states()
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, buttonState{BusyIcon, true}, got[0])
	assert.Equal(t, buttonState{BusyIcon, false}, got[1])
}

func TestSpeak_RestoresButtonOnEveryPath(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		postErr   error
		playErr   error
		wantPlays int
		wantErr   func(error) bool
	}{
		{
			name:    "dispatcher rejects",
			postErr: &dispatch.TransportError{Endpoint: "/tts", Err: errors.New("connection refused")},
			wantErr: func(err error) bool {
				var te *dispatch.TransportError
				return errors.As(err, &te)
			},
		},
		{
			name:    "malformed reply",
			postErr: dispatch.ErrMalformedResponse,
			wantErr: func(err error) bool { return errors.Is(err, dispatch.ErrMalformedResponse) },
		},
		{
			name:  "server reports failure",
			reply: `{"success":false,"error":"REPLICATE_API_TOKEN missing"}`,
			wantErr: func(err error) bool {
				var se *SynthesisError
				return errors.As(err, &se) && se.Message == "REPLICATE_API_TOKEN missing"
			},
		},
		{
			name:    "success without url",
			reply:   `{"success":true}`,
			wantErr: func(err error) bool { return errors.Is(err, ErrNoAudio) },
		},
		{
			name:      "playback rejects",
			reply:     `{"success":true,"audio_url":"/tts/x.wav"}`,
			playErr:   errors.New("no audio player found"),
			wantPlays: 1,
			wantErr:   func(err error) bool { return err != nil && errors.Unwrap(err) != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &testutil.MockPoster{Replies: map[string]string{Endpoint: tt.reply}}
			if tt.postErr != nil {
				poster.Errors = map[string]error{Endpoint: tt.postErr}
			}
			player := &testutil.MockPlayer{Err: tt.playErr}
			btn := page.NewToggle(IdleIcon)

			err := NewSpeaker(poster, player).Speak(context.Background(), 1, page.StaticText("text"), btn)
			assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
			assert.Len(t, player.Played(), tt.wantPlays)
			assertIdle(t, btn)
		})
	}
}

func TestSpeak_RestoresButtonOnPanic(t *testing.T) {
	btn := page.NewToggle(IdleIcon)
	s := NewSpeaker(panicPoster{}, &testutil.MockPlayer{})

	func() {
		defer func() { recover() }()
		s.Speak(context.Background(), 0, page.StaticText("text"), btn)
	}()

	assertIdle(t, btn)
}

type panicPoster struct{}

func (panicPoster) PostJSON(ctx context.Context, endpoint string, payload, out any) error {
	panic("boom")
}

func TestSpeak_SourceError(t *testing.T) {
	poster := &testutil.MockPoster{}
	btn := page.NewToggle(IdleIcon)
	states := recordButton(btn)

	err := NewSpeaker(poster, &testutil.MockPlayer{}).Speak(context.Background(), 7, testutil.MockSource{Err: page.ErrNoParagraph}, btn)
	assert.ErrorIs(t, err, page.ErrNoParagraph)
	assert.Zero(t, poster.CallCount())
	assert.Empty(t, states(), "button must not change when there is nothing to speak")
}

func TestSpeak_Guard(t *testing.T) {
	poster := &testutil.MockPoster{
		Replies: map[string]string{Endpoint: `{"success":true,"audio_url":"/tts/a.wav"}`},
		Block:   make(chan struct{}),
	}
	player := &testutil.MockPlayer{}
	g := guard.New()
	s := NewSpeaker(poster, player, WithGuard(g))
	btn := page.NewToggle(IdleIcon)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Speak(context.Background(), 5, page.StaticText("text"), btn)
	}()

	require.Eventually(t, func() bool { return !btn.Enabled() }, 2*time.Second, 5*time.Millisecond)

	err := s.Speak(context.Background(), 5, page.StaticText("text"), btn)
	assert.ErrorIs(t, err, guard.ErrBusy)
	assert.Equal(t, BusyIcon, btn.Icon(), "rejected trigger must not touch the button")

	close(poster.Block)
	wg.Wait()

	assert.Equal(t, 1, poster.CallCount())
	assert.True(t, reflect.DeepEqual(player.Played(), []string{"/tts/a.wav"}))
	assertIdle(t, btn)
}
