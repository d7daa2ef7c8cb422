package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"checknf/internal/acesso"
	"checknf/internal/model"
	"checknf/internal/repository"
	"checknf/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const minSenha = 8

var criarAdminCmd = &cobra.Command{
	Use:     "criar-admin [username]",
	Short:   "Create an admin login, or reset an existing one back to admin",
	Example: `  checknfctl criar-admin maria --nome "Maria Souza" --senha 'troque-me-ja'`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCriarAdmin,
}

var hashSenhaCmd = &cobra.Command{
	Use:   "hash-senha [senha]",
	Short: "Print the bcrypt hash of a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := service.HashSenha(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(criarAdminCmd, hashSenhaCmd)
	criarAdminCmd.Flags().String("nome", "", "display name (defaults to the username)")
	criarAdminCmd.Flags().String("senha", "", "initial password")
	_ = criarAdminCmd.MarkFlagRequired("senha")
}

func runCriarAdmin(cmd *cobra.Command, args []string) error {
	username := strings.TrimSpace(args[0])
	nome, _ := cmd.Flags().GetString("nome")
	senha, _ := cmd.Flags().GetString("senha")
	if username == "" {
		return errors.New("username vazio")
	}
	if len(senha) < minSenha {
		return fmt.Errorf("a senha precisa de ao menos %d caracteres", minSenha)
	}
	if strings.TrimSpace(nome) == "" {
		nome = username
	}

	_, db, err := conectar()
	if err != nil {
		return err
	}
	criado, err := garantirAdmin(cmd.Context(), repository.NewUsuarioRepository(db), username, nome, senha)
	if err != nil {
		return err
	}
	acao := "updated"
	if criado {
		acao = "created"
	}
	log.Info().Str("username", username).Msgf("admin %s", acao)
	return nil
}

// garantirAdmin upserts username as an active admin with the given password.
func garantirAdmin(ctx context.Context, repo repository.UsuarioRepository, username, nome, senha string) (bool, error) {
	hash, err := service.HashSenha(senha)
	if err != nil {
		return false, err
	}

	u, err := repo.FindByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = repo.Create(ctx, &model.Usuario{
			Username:     username,
			Nome:         nome,
			PasswordHash: hash,
			Role:         string(acesso.RoleAdmin),
			Activo:       true,
		})
		// lookups skip inactive logins, so the name may still be taken
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, fmt.Errorf("usuario %q existe e está inativo; reative-o antes", username)
		}
		return err == nil, err
	}
	if err != nil {
		return false, err
	}
	u.PasswordHash = hash
	u.Role = string(acesso.RoleAdmin)
	u.Fretista = nil
	u.Activo = true
	if err := repo.Update(ctx, u); err != nil {
		return false, err
	}
	return false, nil
}
