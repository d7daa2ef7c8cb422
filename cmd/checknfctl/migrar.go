package main

import (
	"checknf/internal/infra"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrarCmd = &cobra.Command{
	Use:   "migrar",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := conectar()
		if err != nil {
			return err
		}
		if err := infra.Migrar(db); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
		return nil
	},
}

var reverterCmd = &cobra.Command{
	Use:     "reverter",
	Short:   "Roll back the last N migrations",
	Example: `  checknfctl migrar reverter --passos 2`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		passos, _ := cmd.Flags().GetInt("passos")
		_, db, err := conectar()
		if err != nil {
			return err
		}
		if err := infra.Reverter(db, passos); err != nil {
			return err
		}
		log.Info().Int("passos", passos).Msg("migrations rolled back")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrarCmd)
	migrarCmd.AddCommand(reverterCmd)
	reverterCmd.Flags().Int("passos", 1, "number of migrations to roll back")
}
