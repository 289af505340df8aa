package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/readalong/internal"
)

// Runner carries out the commands once flags and config are resolved
type Runner interface {
	Translate(ctx context.Context, index int) error
	TranslateAll(ctx context.Context) error
	Speak(ctx context.Context, index int) error
	ListParagraphs(ctx context.Context) error
	ListVocabulary(ctx context.Context) error
	VocabularyStats(ctx context.Context) error
	DeleteVocabulary(ctx context.Context, id int64) error
	ArchiveVocabulary() error
	RunGUIMode(ctx context.Context) error
	Close() error
}

// RunnerFactory builds a Runner from the resolved flags
type RunnerFactory func(flags *Flags) (Runner, error)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, newRunner RunnerFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "readalong",
		Short: "Read news articles with paragraph translation and speech",
		Long: `readalong reads article paragraphs and sends them to a reading server
for translation (POST /translate) and speech synthesis (POST /tts).

Vocabulary returned with each translation is kept in a local notebook.

Examples:
  readalong paragraphs --page https://example.com/article
  readalong translate 3 --page https://example.com/article
  readalong translate --all --batch paragraphs.txt --plain
  readalong speak 3 --page https://example.com/article
  readalong vocab list --search market
  readalong gui --page https://example.com/article`,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newTranslateCommand(flags, newRunner),
		newSpeakCommand(flags, newRunner),
		newParagraphsCommand(flags, newRunner),
		newVocabCommand(flags, newRunner),
		newGUICommand(flags, newRunner),
	)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.readalong.yaml)")
	pf.StringVar(&flags.ServerURL, "server", flags.ServerURL, "Reading server base URL")
	pf.DurationVar(&flags.Timeout, "timeout", 0, "Per-request timeout, e.g. 30s (0 waits indefinitely)")
	pf.BoolVar(&flags.Retry, "retry", false, "Retry a request once after a network failure")
	pf.BoolVar(&flags.Breaker, "breaker", false, "Stop calling the server after repeated network failures")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFile, "log-file", "", "Also write logs to this file (rotated)")
	pf.StringVar(&flags.NotebookPath, "notebook", "", "Vocabulary notebook database (default is ~/.local/state/readalong/vocabulary.db)")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	viper.BindPFlag("server.url", pf.Lookup("server"))
	viper.BindPFlag("server.timeout", pf.Lookup("timeout"))
	viper.BindPFlag("server.retry", pf.Lookup("retry"))
	viper.BindPFlag("server.breaker", pf.Lookup("breaker"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.file", pf.Lookup("log-file"))
	viper.BindPFlag("notebook.path", pf.Lookup("notebook"))
}

func addSourceFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().StringVar(&flags.PageURL, "page", "", "Article page URL (relative to --server or absolute)")
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Read paragraphs from file (one per line)")
	cmd.MarkFlagsMutuallyExclusive("page", "batch")
	cmd.MarkFlagsOneRequired("page", "batch")
}

// withRunner resolves config, builds the runner and closes it afterwards
func withRunner(flags *Flags, newRunner RunnerFactory, fn func(Runner) error) error {
	flags.LoadFromViper()

	r, err := newRunner(flags)
	if err != nil {
		return err
	}
	defer r.Close()

	return fn(r)
}

func newTranslateCommand(flags *Flags, newRunner RunnerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate [index]",
		Short: "Translate a paragraph",
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.All {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(flags, newRunner, func(r Runner) error {
				if flags.All {
					return r.TranslateAll(cmd.Context())
				}
				index, err := parseIndex(args[0])
				if err != nil {
					return err
				}
				return r.Translate(cmd.Context(), index)
			})
		},
	}

	addSourceFlags(cmd, flags)
	cmd.Flags().BoolVar(&flags.All, "all", false, "Translate every paragraph in order")
	cmd.Flags().BoolVar(&flags.Plain, "plain", false, "Print plain text instead of HTML")
	cmd.Flags().StringVar(&flags.SaveDir, "save", "", "Also save each translation as HTML into this directory")
	cmd.Flags().BoolVar(&flags.NoRecord, "no-record", false, "Do not add vocabulary to the notebook")

	return cmd
}

func newSpeakCommand(flags *Flags, newRunner RunnerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speak <index>",
		Short: "Read a paragraph aloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return withRunner(flags, newRunner, func(r Runner) error {
				return r.Speak(cmd.Context(), index)
			})
		},
	}

	addSourceFlags(cmd, flags)
	return cmd
}

func newParagraphsCommand(flags *Flags, newRunner RunnerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paragraphs",
		Short: "List the indexed paragraphs of a page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(flags, newRunner, func(r Runner) error {
				return r.ListParagraphs(cmd.Context())
			})
		},
	}

	addSourceFlags(cmd, flags)
	return cmd
}

func newVocabCommand(flags *Flags, newRunner RunnerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage the vocabulary notebook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flags.Archive {
				return cmd.Help()
			}
			return withRunner(flags, newRunner, func(r Runner) error {
				return r.ArchiveVocabulary()
			})
		},
	}
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Move the notebook into an archive and start a fresh one")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(flags, newRunner, func(r Runner) error {
				return r.ListVocabulary(cmd.Context())
			})
		},
	}
	list.Flags().IntVar(&flags.VocabLimit, "limit", flags.VocabLimit, "Maximum number of words")
	list.Flags().IntVar(&flags.VocabOffset, "offset", 0, "Skip this many words")
	list.Flags().StringVar(&flags.VocabSearch, "search", "", "Only words or definitions containing this text")
	list.Flags().StringVar(&flags.VocabDifficulty, "difficulty", "", "Only words of this difficulty level (e.g. B2)")
	list.Flags().StringVar(&flags.VocabSort, "sort", flags.VocabSort, "Sort by created_at, word or frequency")
	list.Flags().StringVar(&flags.VocabOrder, "order", flags.VocabOrder, "Sort order: asc or desc")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show notebook statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(flags, newRunner, func(r Runner) error {
				return r.VocabularyStats(cmd.Context())
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a word from the notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid word id: %s", args[0])
			}
			return withRunner(flags, newRunner, func(r Runner) error {
				return r.DeleteVocabulary(cmd.Context(), id)
			})
		},
	}

	cmd.AddCommand(list, stats, del)
	return cmd
}

func newGUICommand(flags *Flags, newRunner RunnerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop reader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(flags, newRunner, func(r Runner) error {
				return r.RunGUIMode(cmd.Context())
			})
		},
	}

	addSourceFlags(cmd, flags)
	return cmd
}

func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid paragraph index: %s", arg)
	}
	return index, nil
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".readalong" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".readalong")
	}

	// Environment variables, e.g. READALONG_SERVER_URL
	viper.SetEnvPrefix("READALONG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
