package cli

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"ServerURL", flags.ServerURL, DefaultServerURL},
		{"LogLevel", flags.LogLevel, "info"},
		{"VocabLimit", flags.VocabLimit, 20},
		{"VocabSort", flags.VocabSort, "frequency"},
		{"VocabOrder", flags.VocabOrder, "desc"},
		{"Timeout", flags.Timeout, time.Duration(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	// Dispatcher behaviour is opt-in
	boolTests := []struct {
		name  string
		value bool
	}{
		{"Retry", flags.Retry},
		{"Breaker", flags.Breaker},
		{"All", flags.All},
		{"Plain", flags.Plain},
		{"NoRecord", flags.NoRecord},
		{"Archive", flags.Archive},
	}

	for _, tt := range boolTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != false {
				t.Errorf("%s = %v, want false", tt.name, tt.value)
			}
		})
	}
}

func TestLoadFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.url", "http://config:5000")
	viper.Set("server.timeout", "20s")
	viper.Set("server.retry", true)
	viper.Set("log.level", "warn")
	viper.Set("notebook.path", "/data/vocabulary.db")

	flags := NewFlags()
	flags.LoadFromViper()

	if flags.ServerURL != "http://config:5000" {
		t.Errorf("ServerURL = %s", flags.ServerURL)
	}
	if flags.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v", flags.Timeout)
	}
	if !flags.Retry || flags.Breaker {
		t.Errorf("Retry = %v, Breaker = %v", flags.Retry, flags.Breaker)
	}
	if flags.LogLevel != "warn" {
		t.Errorf("LogLevel = %s", flags.LogLevel)
	}
	if flags.NotebookPath != "/data/vocabulary.db" {
		t.Errorf("NotebookPath = %s", flags.NotebookPath)
	}
	if flags.LogFile != "" {
		t.Errorf("LogFile = %s, want empty", flags.LogFile)
	}
}

func TestLoadFromViper_Empty(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	flags := NewFlags()
	flags.LoadFromViper()

	if flags.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %s, want default", flags.ServerURL)
	}
	if flags.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", flags.LogLevel)
	}
}
