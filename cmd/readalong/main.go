package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"codeberg.org/snonux/readalong/internal/cli"
	"codeberg.org/snonux/readalong/internal/processor"
)

func main() {
	// A .env next to the binary's working directory may carry READALONG_* settings
	_ = godotenv.Load()

	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags, func(f *cli.Flags) (cli.Runner, error) {
		p, err := processor.NewProcessor(f)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
