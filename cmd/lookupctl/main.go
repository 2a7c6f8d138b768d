package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"chronolookup-api/internal/app"
	"chronolookup-api/internal/config"
	"chronolookup-api/internal/logger"
)

var (
	logLevelFlag string
	noPersist    bool
	application  *app.App
	rootCmd      = &cobra.Command{
		Use:           "lookupctl",
		Short:         "Look up ChronoStory items and mobs from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return openApp()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeApp()
		},
	}
)

// openApp builds the application, sweeps and restores cached responses.
func openApp() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(os.Stderr, "lookupctl", logLevelFlag, true)
	a, err := app.Build(cfg, log)
	if err != nil {
		return err
	}
	a.Maintainer.Resume()
	application = a
	return nil
}

// closeApp persists the caches and releases the snapshot store.
func closeApp() error {
	if application == nil {
		return nil
	}
	a := application
	application = nil

	var err error
	if !noPersist {
		err = a.Maintainer.PersistAll()
	}
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noPersist, "no-persist", false, "Do not save the caches on exit")

	if err := rootCmd.Execute(); err != nil {
		_ = closeApp()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
