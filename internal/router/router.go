package router

import (
	"context"
	"time"

	"checknf/internal/acesso"
	"checknf/internal/config"
	"checknf/internal/eventos"
	"checknf/internal/handler"
	"checknf/internal/infra"
	"checknf/internal/middleware"
	"checknf/internal/repository"
	"checknf/internal/service"
	"checknf/internal/sessao"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-wide resources built in main.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Hub     *eventos.Hub
	Storage service.Armazenamento
	Fila    service.Enfileirador
	Loc     *time.Location
	// OCRBreaker is nil when OCR is disabled.
	OCRBreaker *infra.Breaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis/S3
// Background goroutines started here (cache invalidation, limiter purge) stop with ctx.
func New(ctx context.Context, d Deps) (*gin.Engine, error) {
	if err := acesso.Validar(); err != nil {
		return nil, err
	}
	cfg := d.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	geral := middleware.NewLimitador(1000, time.Minute, "Demasiadas requisições, tente novamente mais tarde")
	login := middleware.LoginLimitador()
	middleware.StartPurga(ctx, geral, login)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(middleware.ErrorHandler())
	r.Use(geral.Middleware())

	// ── Sessions ─────────────────────────────────────────────────────────────
	emissor := sessao.NewEmissor(cfg.JWTSecret,
		time.Duration(cfg.JWTExpirationHours)*time.Hour,
		time.Duration(cfg.JWTRefreshHours)*time.Hour)
	revogacao := sessao.NewRedisRevogacao(d.Redis)
	relogio := service.NewRelogio(d.Loc)

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(d.DB)
	notaRepo := repository.NewNotaFiscalRepository(d.DB)
	documentoRepo := repository.NewDocumentoRepository(d.DB)
	clienteRepo := repository.NewClienteRepository(d.DB)
	fretistaRepo := repository.NewFretistaRepository(d.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, emissor, revogacao, d.Hub, relogio)
	notaSvc := service.NewNotaService(notaRepo, d.Storage, d.Hub, relogio)
	documentoSvc := service.NewDocumentoService(documentoRepo, d.Storage, d.Fila, relogio)
	dashboardSvc := service.NewDashboardService(notaRepo, d.Redis,
		time.Duration(cfg.DashboardCacheSeconds)*time.Second, relogio)
	relatorioSvc := service.NewRelatorioService(notaRepo, relogio)
	clienteSvc := service.NewClienteService(clienteRepo)
	fretistaSvc := service.NewFretistaService(fretistaRepo)

	dashboardSvc.Observar(ctx, d.Hub)

	// ── Handlers ─────────────────────────────────────────────────────────────
	maxUpload := int64(cfg.UploadMaxMB) << 20
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	notasH := handler.NewNotasHandler(notaSvc)
	canhotosH := handler.NewCanhotosHandler(notaSvc, maxUpload)
	documentosH := handler.NewDocumentosHandler(documentoSvc, maxUpload)
	dashboardH := handler.NewDashboardHandler(dashboardSvc)
	relatoriosH := handler.NewRelatoriosHandler(relatorioSvc)
	clientesH := handler.NewClientesHandler(clienteSvc)
	fretistasH := handler.NewFretistasHandler(fretistaSvc)
	eventosH := handler.NewEventosHandler(d.Hub, cfg.Origins())

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.OCRBreaker))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", login.Middleware(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	jwtMW := middleware.JWTAuth(emissor, revogacao)
	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/auth/me", authH.Me)
		v1.POST("/auth/logout", authH.Logout)
		v1.POST("/auth/senha", authH.AlterarSenha)

		// token travels in the query string; browsers cannot set headers on upgrade
		v1.GET("/eventos", middleware.RequirePagina(handler.PaginasEventos...), eventosH.Stream)

		v1.GET("/dashboard", middleware.RequirePagina(acesso.PaginaDashboard), dashboardH.Painel)

		notas := v1.Group("/notas", middleware.RequirePagina(acesso.PaginaNotas))
		{
			notas.GET("", notasH.Listar)
			notas.GET("/opcoes", notasH.Opcoes)
			notas.GET("/:id", notasH.ObterPorID)
			notas.POST("", notasH.Criar)
			notas.PUT("/:id", notasH.Atualizar)
			notas.PATCH("/:id/status", notasH.AlterarStatus)
			notas.POST("/excluir", notasH.Excluir)
			notas.GET("/:id/canhoto", notasH.CanhotoURL)
		}

		canhotos := v1.Group("/canhotos", middleware.RequirePagina(acesso.PaginaCanhotos))
		{
			canhotos.GET("", canhotosH.Listar)
			canhotos.GET("/:id/url", canhotosH.URL)
			canhotos.POST("/:id", canhotosH.Anexar)
		}

		docs := v1.Group("/documentos", middleware.RequirePagina(acesso.PaginaUpload))
		{
			docs.POST("", documentosH.Enviar)
			docs.GET("", documentosH.Listar)
			docs.GET("/:id", documentosH.ObterPorID)
			docs.POST("/:id/reprocessar", documentosH.Reprocessar)
		}

		rel := v1.Group("/relatorios", middleware.RequirePagina(acesso.PaginaRelatorios))
		{
			rel.GET("/notas.xlsx", relatoriosH.Notas)
			rel.GET("/pendencias.pdf", relatoriosH.Pendencias)
		}

		clientes := v1.Group("/clientes", middleware.RequirePagina(acesso.PaginaClientes))
		{
			clientes.POST("", clientesH.Criar)
			clientes.GET("", clientesH.Listar)
			clientes.GET("/:id", clientesH.ObterPorID)
			clientes.PUT("/:id", clientesH.Atualizar)
			clientes.DELETE("/:id", clientesH.Desativar)
			clientes.PATCH("/:id/reativar", clientesH.Reativar)
		}

		fretistas := v1.Group("/fretistas", middleware.RequirePagina(acesso.PaginaFretistas))
		{
			fretistas.POST("", fretistasH.Criar)
			fretistas.GET("", fretistasH.Listar)
			fretistas.GET("/:id", fretistasH.ObterPorID)
			fretistas.PUT("/:id", fretistasH.Atualizar)
			fretistas.DELETE("/:id", fretistasH.Desativar)
			fretistas.PATCH("/:id/reativar", fretistasH.Reativar)
		}

		usuarios := v1.Group("/usuarios", middleware.RequirePagina(acesso.PaginaUsuarios))
		{
			usuarios.POST("", usuariosH.Criar)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Atualizar)
			usuarios.DELETE("/:id", usuariosH.Desativar)
			usuarios.PATCH("/:id/reativar", usuariosH.Reativar)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, nil
}
