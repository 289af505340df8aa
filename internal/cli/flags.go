package cli

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultServerURL is where the reading server listens unless configured
const DefaultServerURL = "http://127.0.0.1:5000"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile      string
	ServerURL    string
	Timeout      time.Duration
	Retry        bool
	Breaker      bool
	LogLevel     string
	LogFile      string
	NotebookPath string

	// Source flags
	PageURL   string
	BatchFile string

	// Translate flags
	All      bool
	Plain    bool
	SaveDir  string
	NoRecord bool

	// Vocabulary flags
	VocabLimit      int
	VocabOffset     int
	VocabSearch     string
	VocabDifficulty string
	VocabSort       string
	VocabOrder      string
	Archive         bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		ServerURL:  DefaultServerURL,
		LogLevel:   "info",
		VocabLimit: 20,
		VocabSort:  "frequency",
		VocabOrder: "desc",
	}
}

// LoadFromViper copies the configurable values from viper, so a config file
// or READALONG_* variable applies wherever no flag was given
func (f *Flags) LoadFromViper() {
	if v := viper.GetString("server.url"); v != "" {
		f.ServerURL = v
	}
	if viper.IsSet("server.timeout") {
		f.Timeout = viper.GetDuration("server.timeout")
	}
	// The flags are bound to these keys, so an explicit --retry=false wins over the file
	if viper.IsSet("server.retry") {
		f.Retry = viper.GetBool("server.retry")
	}
	if viper.IsSet("server.breaker") {
		f.Breaker = viper.GetBool("server.breaker")
	}
	if v := viper.GetString("log.level"); v != "" {
		f.LogLevel = v
	}
	if v := viper.GetString("log.file"); v != "" {
		f.LogFile = v
	}
	if v := viper.GetString("notebook.path"); v != "" {
		f.NotebookPath = v
	}
}
