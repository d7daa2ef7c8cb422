// Command checknfctl runs administrative tasks against the CHECKNF database.
package main

import (
	"context"
	"fmt"
	"os"

	"checknf/internal/config"
	"checknf/internal/infra"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:     "checknfctl",
	Short:   "Administrative CLI for the CHECKNF backend",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		nivel, _ := cmd.Flags().GetString("log-level")
		infra.SetupLogger("development", nivel)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "zerolog level (debug, info, warn, error)")
}

// conectar loads the runtime config and opens the database it points at.
func conectar() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
