package service

import (
	"context"
	"errors"
	"strings"

	"checknf/internal/acesso"
	"checknf/internal/dto"
	"checknf/internal/eventos"
	"checknf/internal/model"
	"checknf/internal/repository"
	"checknf/internal/sessao"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, s *sessao.Sessao) error
	Me(ctx context.Context, s *sessao.Sessao) (*dto.MeResponse, error)
	AlterarSenha(ctx context.Context, s *sessao.Sessao, req dto.AlterarSenhaRequest) error
	CriarUsuario(ctx context.Context, req dto.CriarUsuarioRequest) (*dto.UsuarioResponse, error)
	ListarUsuarios(ctx context.Context) ([]dto.UsuarioResponse, error)
	AtualizarUsuario(ctx context.Context, id uuid.UUID, req dto.AtualizarUsuarioRequest) (*dto.UsuarioResponse, error)
	DesativarUsuario(ctx context.Context, id uuid.UUID) error
	ReativarUsuario(ctx context.Context, id uuid.UUID) error
}

type authService struct {
	repo      repository.UsuarioRepository
	emissor   *sessao.Emissor
	revogacao sessao.Revogacao
	hub       Publicador
	relogio   Relogio
}

func NewAuthService(repo repository.UsuarioRepository, emissor *sessao.Emissor, revogacao sessao.Revogacao, hub Publicador, relogio Relogio) AuthService {
	return &authService{repo: repo, emissor: emissor, revogacao: revogacao, hub: hub, relogio: relogio}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, ErrCredenciaisInvalidas
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrCredenciaisInvalidas
	}

	resp, claims, err := s.emitir(user)
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", user.Username).Str("role", user.Role).Msg("auth: login")
	if s.hub != nil {
		s.hub.Publicar(ctx, eventos.Evento{
			Tipo:      eventos.SessaoIniciada,
			Em:        s.relogio.agora(),
			UsuarioID: user.ID.String(),
			Dados:     map[string]any{"username": user.Username, "role": user.Role, "jti": claims.ID},
		})
	}
	return resp, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims, err := s.emissor.Validar(refreshToken, sessao.TipoRefresh)
	if err != nil {
		return nil, err
	}
	if s.revogacao != nil {
		revogado, err := s.revogacao.Revogado(ctx, claims)
		if err != nil {
			return nil, err
		}
		if revogado {
			return nil, sessao.ErrTokenRevogado
		}
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, sessao.ErrTokenInvalido
	}
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil || !user.Activo {
		return nil, ErrUsuarioNaoEncontrado
	}

	resp, _, err := s.emitir(user)
	if err != nil {
		return nil, err
	}
	// refresh tokens are single use
	if s.revogacao != nil && claims.ExpiresAt != nil {
		if err := s.revogacao.Revogar(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			log.Warn().Err(err).Msg("auth: failed to revoke used refresh token")
		}
	}
	return resp, nil
}

func (s *authService) Logout(ctx context.Context, sess *sessao.Sessao) error {
	if s.revogacao != nil {
		if err := s.revogacao.Revogar(ctx, sess.TokenID, sess.ExpiraEm); err != nil {
			return err
		}
	}
	log.Info().Str("username", sess.Username).Msg("auth: logout")
	if s.hub != nil {
		s.hub.Publicar(ctx, eventos.Evento{
			Tipo:      eventos.SessaoEncerrada,
			Em:        s.relogio.agora(),
			UsuarioID: sess.UsuarioID.String(),
			Dados:     map[string]any{"username": sess.Username},
		})
	}
	return nil
}

func (s *authService) Me(ctx context.Context, sess *sessao.Sessao) (*dto.MeResponse, error) {
	user, err := s.repo.FindByID(ctx, sess.UsuarioID)
	if err != nil {
		return nil, ErrUsuarioNaoEncontrado
	}
	role := acesso.Role(user.Role)
	return &dto.MeResponse{
		User:    usuarioToResponse(user),
		Landing: acesso.Landing(role),
		Paginas: acesso.Paginas(role),
	}, nil
}

func (s *authService) AlterarSenha(ctx context.Context, sess *sessao.Sessao, req dto.AlterarSenhaRequest) error {
	user, err := s.repo.FindByID(ctx, sess.UsuarioID)
	if err != nil {
		return ErrUsuarioNaoEncontrado
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.SenhaAtual)); err != nil {
		return ErrSenhaIncorreta
	}
	hash, err := HashSenha(req.NovaSenha)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.repo.Update(ctx, user)
}

func (s *authService) CriarUsuario(ctx context.Context, req dto.CriarUsuarioRequest) (*dto.UsuarioResponse, error) {
	fretista := limparFretista(req.Fretista)
	if req.Role == string(acesso.RoleCarrier) && fretista == nil {
		return nil, ErrFretistaObrigatorio
	}
	hash, err := HashSenha(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.Usuario{
		Username:     strings.TrimSpace(req.Username),
		Nome:         req.Nome,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Fretista:     fretista,
		Activo:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsuarioDuplicado
		}
		return nil, err
	}
	resp := usuarioToResponse(user)
	return &resp, nil
}

func (s *authService) ListarUsuarios(ctx context.Context) ([]dto.UsuarioResponse, error) {
	users, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.UsuarioResponse, len(users))
	for i := range users {
		resp[i] = usuarioToResponse(&users[i])
	}
	return resp, nil
}

func (s *authService) AtualizarUsuario(ctx context.Context, id uuid.UUID, req dto.AtualizarUsuarioRequest) (*dto.UsuarioResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrUsuarioNaoEncontrado
	}
	if req.Role != "" && req.Role != user.Role && user.Role == string(acesso.RoleAdmin) {
		if err := s.garantirOutroAdmin(ctx); err != nil {
			return nil, err
		}
	}
	antes := *user
	if req.Nome != "" {
		user.Nome = req.Nome
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Fretista != nil {
		user.Fretista = limparFretista(req.Fretista)
	}
	if user.Role == string(acesso.RoleCarrier) && user.Fretista == nil {
		return nil, ErrFretistaObrigatorio
	}
	// admin password reset
	if req.Password != "" {
		hash, err := HashSenha(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if user.Role != antes.Role || !mesmoFretista(user.Fretista, antes.Fretista) || user.PasswordHash != antes.PasswordHash {
		if err := s.encerrarSessoes(ctx, user); err != nil {
			return nil, err
		}
	}
	resp := usuarioToResponse(user)
	return &resp, nil
}

func (s *authService) DesativarUsuario(ctx context.Context, id uuid.UUID) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrUsuarioNaoEncontrado
	}
	if user.Role == string(acesso.RoleAdmin) && user.Activo {
		if err := s.garantirOutroAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.setActivo(ctx, id, false); err != nil {
		return err
	}
	return s.encerrarSessoes(ctx, user)
}

func (s *authService) ReativarUsuario(ctx context.Context, id uuid.UUID) error {
	return s.setActivo(ctx, id, true)
}

func (s *authService) setActivo(ctx context.Context, id uuid.UUID, activo bool) error {
	if err := s.repo.SetActivo(ctx, id, activo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUsuarioNaoEncontrado
		}
		return err
	}
	return nil
}

// encerrarSessoes revokes every token already issued to user, so the next
// request or refresh picks up the stored role and fretista.
func (s *authService) encerrarSessoes(ctx context.Context, user *model.Usuario) error {
	if s.revogacao == nil {
		return nil
	}
	ate := s.relogio.agora().Add(s.emissor.RefreshTTL())
	if err := s.revogacao.RevogarUsuario(ctx, user.ID.String(), ate); err != nil {
		return err
	}
	log.Info().Str("username", user.Username).Msg("auth: sessions revoked")
	return nil
}

func mesmoFretista(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *authService) garantirOutroAdmin(ctx context.Context) error {
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrUltimoAdmin
	}
	return nil
}

func (s *authService) emitir(user *model.Usuario) (*dto.LoginResponse, *sessao.Claims, error) {
	access, claims, err := s.emissor.Emitir(user, sessao.TipoAcesso)
	if err != nil {
		return nil, nil, err
	}
	refresh, _, err := s.emissor.Emitir(user, sessao.TipoRefresh)
	if err != nil {
		return nil, nil, err
	}
	role := acesso.Role(user.Role)
	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.emissor.AcessoTTL().Seconds()),
		User:         usuarioToResponse(user),
		Landing:      acesso.Landing(role),
		Paginas:      acesso.Paginas(role),
	}, claims, nil
}

// HashSenha is shared with the admin CLI.
func HashSenha(senha string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(senha), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func limparFretista(f *string) *string {
	if f == nil {
		return nil
	}
	v := strings.TrimSpace(*f)
	if v == "" {
		return nil
	}
	return &v
}

func usuarioToResponse(u *model.Usuario) dto.UsuarioResponse {
	return dto.UsuarioResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Nome:     u.Nome,
		Email:    u.Email,
		Role:     u.Role,
		Fretista: u.Fretista,
		Activo:   u.Activo,
	}
}
