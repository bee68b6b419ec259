package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"genfix"
)

var (
	v          = genfix.NewViper()
	configFile string
	settings   *genfix.Settings
	logger     *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "genfix",
		Short:         "Generate, quality-check and fix AP-style exam questions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			settings, err = genfix.LoadSettings(v, configFile)
			if err != nil {
				return err
			}
			logger = genfix.NewLogger(settings.Verbose, settings.LogFile)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.Bool("verbose", false, "log LLM transcripts and debug output")
	flags.String("log-file", "", "also write JSON logs to this rotating file")
	flags.String("db-driver", "", "database driver (sqlite3 or postgres)")
	flags.String("db", "", "database DSN")
	for name, key := range map[string]string{
		"verbose":   "verbose",
		"log-file":  "log_file",
		"db-driver": "database.driver",
		"db":        "database.dsn",
	} {
		mustBind(key, flags.Lookup(name))
	}

	root.AddCommand(
		newRunCmd(),
		newHistoryCmd(),
		newShowCmd(),
		newExportCmd(),
		newCoursesCmd(),
	)
	return root
}

// mustBind ties a flag to a viper key so the flag overrides file and env values
func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func openDB(cmd *cobra.Command) (*genfix.DB, error) {
	db, err := genfix.OpenDB(settings.Database.Driver, settings.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.CreateTables(cmd.Context()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
