// Package cli implements the intakectl command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yukikurage/stage-intake/internal/config"
	"github.com/yukikurage/stage-intake/internal/database"
	"gorm.io/gorm"
)

// Exit codes
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	dbDriver string
	dbDSN    string
}

// NewRootCmd creates the top-level "intakectl" command with all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "intakectl",
		Short: "Administer the stage intake database",
		Long:  "intakectl runs migrations and manages accounts outside the web interface.\nDatabase settings come from DB_DRIVER and DB_DSN unless overridden by flags.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.dbDriver, "db-driver", "", "database driver: sqlite, mysql or postgres (default: DB_DRIVER)")
	root.PersistentFlags().StringVar(&flags.dbDSN, "dsn", "", "database DSN (default: DB_DSN)")

	root.AddCommand(newMigrateCmd(flags))
	root.AddCommand(newCreateAdminCmd(flags))
	root.AddCommand(newListUsersCmd(flags))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	_ = godotenv.Load()

	if err := NewRootCmd().Execute(); err != nil {
		var ce *codeError
		if errors.As(err, &ce) {
			os.Exit(ce.code)
		}
		os.Exit(exitUserError)
	}
	os.Exit(exitSuccess)
}

// openDB connects and migrates using env configuration overridden by flags.
func (f *rootFlags) openDB() (*gorm.DB, func(), error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		// A valid --db-driver makes a bad DB_DRIVER irrelevant.
		if f.dbDriver == "" {
			return nil, nil, err
		}
		cfg = &config.Config{DBDSN: "intake.db"}
	}
	if f.dbDriver != "" {
		cfg.DBDriver = f.dbDriver
	}
	if f.dbDSN != "" {
		cfg.DBDSN = f.dbDSN
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	if err := database.Migrate(db); err != nil {
		closeDB()
		return nil, nil, err
	}
	return db, closeDB, nil
}

// codeError carries the process exit code for a failed command.
type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string { return e.err.Error() }

func (e *codeError) Unwrap() error { return e.err }

func systemError(format string, args ...interface{}) error {
	return &codeError{code: exitSysError, err: fmt.Errorf(format, args...)}
}
