package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Fetcher downloads a server resource
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (io.ReadCloser, error)
}

// CommandPlayer downloads an audio source and plays it with a platform
// command (afplay on macOS; mpg123, ffplay, sox, paplay or aplay on Linux)
type CommandPlayer struct {
	fetcher Fetcher
	dir     string
	logger  *slog.Logger

	// resolve picks the command line for a downloaded file
	resolve func(file string) ([]string, error)

	mu       sync.Mutex
	current  *exec.Cmd
	onFinish func()
	wg       sync.WaitGroup
}

// NewCommandPlayer creates a player that downloads through fetcher into dir
// (os.TempDir() when empty)
func NewCommandPlayer(fetcher Fetcher, dir string, logger *slog.Logger) *CommandPlayer {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandPlayer{
		fetcher: fetcher,
		dir:     dir,
		logger:  logger,
		resolve: func(file string) ([]string, error) {
			return playerCommand(runtime.GOOS, exec.LookPath, file)
		},
	}
}

// Play downloads src and starts playback. It stops any playback already running.
func (p *CommandPlayer) Play(ctx context.Context, src string) error {
	file, err := p.download(ctx, src)
	if err != nil {
		return err
	}

	argv, err := p.resolve(file)
	if err != nil {
		os.Remove(file)
		return err
	}

	// Stop, start and hand-over happen under one lock so concurrent calls
	// cannot leave an untracked process playing
	p.mu.Lock()
	p.stopLocked()

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		os.Remove(file)
		return fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	p.current = cmd
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer os.Remove(file)

		err := cmd.Wait()

		// Only playback that ran to its end reports; stopped or replaced
		// processes are no longer current
		p.mu.Lock()
		finished := p.current == cmd
		if finished {
			p.current = nil
		}
		onFinish := p.onFinish
		p.mu.Unlock()

		if err != nil {
			p.logger.Debug("Player exited", "command", argv[0], "error", err)
		}
		if finished && onFinish != nil {
			onFinish()
		}
	}()

	return nil
}

// SetOnFinish registers fn to run when playback ends without being stopped
// or replaced by another Play
func (p *CommandPlayer) SetOnFinish(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFinish = fn
}

// Stop kills the running playback, if any
func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *CommandPlayer) stopLocked() {
	if p.current != nil && p.current.Process != nil {
		p.current.Process.Kill()
		p.current = nil
	}
}

// Wait blocks until all started playback has finished
func (p *CommandPlayer) Wait() {
	p.wg.Wait()
}

// download copies src into a uniquely named file under p.dir
func (p *CommandPlayer) download(ctx context.Context, src string) (string, error) {
	body, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	file := filepath.Join(p.dir, uuid.NewString()+audioExt(src))
	out, err := os.Create(file)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}

	written, err := io.Copy(out, body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(file)
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	if written == 0 {
		os.Remove(file)
		return "", fmt.Errorf("no audio data received from %s", src)
	}

	return file, nil
}

// audioExt returns the extension of the source path, defaulting to .wav
func audioExt(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".wav", ".mp3", ".ogg", ".opus", ".flac", ".aac":
		return ext
	}
	return ".wav"
}

// playerCommand picks the command line that plays file on goos
func playerCommand(goos string, lookPath func(string) (string, error), file string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"afplay", file}, nil
	case "windows":
		return []string{"cmd", "/c", "start", "/min", file}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}

	candidates := [][]string{
		{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", file},
		{"play", "-q", file},
		{"paplay", file},
		{"aplay", "-q", file},
	}
	// mpg123 handles MP3 best but cannot play WAV
	if strings.EqualFold(filepath.Ext(file), ".mp3") {
		candidates = append([][]string{{"mpg123", "-q", file}}, candidates...)
	}

	for _, c := range candidates {
		if _, err := lookPath(c[0]); err == nil {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no audio player found. Install ffplay, sox, paplay, aplay or mpg123")
}
