package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checknf/internal/config"
	"checknf/internal/eventos"
	"checknf/internal/infra"
	"checknf/internal/repository"
	"checknf/internal/router"
	"checknf/internal/service"
	"checknf/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.SetupLogger(cfg.Env, cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.Migrar(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := infra.NewS3Storage(ctx, infra.StorageConfig{
		Bucket:     cfg.S3Bucket,
		Region:     cfg.S3Region,
		Endpoint:   cfg.S3Endpoint,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		PresignTTL: time.Duration(cfg.S3PresignMinutes) * time.Minute,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure object storage")
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Str("bucket", cfg.S3Bucket).Msg("object storage bucket unavailable")
	}

	var sinks []eventos.Sink
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		sinks = append(sinks, eventos.NewKafkaSink(brokers, cfg.KafkaTopic))
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("kafka event sink enabled")
	}
	hub := eventos.NewHub(sinks...)
	defer hub.Close()

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	dispatcher := worker.NewDispatcher(rdb)

	ocrCB := infra.NewBreaker("vision", infra.BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	})
	ocr, err := infra.NewVisionOCR(ctx, infra.OCRConfig{
		CredentialsJSON: cfg.VisionCredentialsJSON,
		CredentialsFile: cfg.VisionCredentialsFile,
	}, ocrCB)
	if err != nil {
		// uploads still queue; jobs wait until a replica with credentials consumes them
		log.Warn().Err(err).Msg("ocr disabled, worker pool not started")
		ocrCB = nil
	} else {
		defer ocr.Close()
		ocrWorker := worker.NewOCRWorker(
			repository.NewDocumentoRepository(db),
			repository.NewNotaFiscalRepository(db),
			repository.NewClienteRepository(db),
			storage, ocr, hub, loc,
		)
		worker.StartWorkerPool(ctx, rdb, dispatcher, &worker.WorkerHandlers{OCR: ocrWorker}, worker.PoolConfig{
			Workers:       cfg.WorkerPoolSize,
			MaxTentativas: cfg.OCRMaxTentativas,
		})
	}
	worker.StartRetryCron(ctx, rdb)

	mailer := infra.NewMailer(infra.MailerConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if mailer.Configurado() {
		relatorios := service.NewRelatorioService(repository.NewNotaFiscalRepository(db), service.NewRelogio(loc))
		worker.StartDigestCron(ctx, worker.NewDigest(worker.DigestConfig{
			Fonte:         relatorios,
			Mailer:        mailer,
			Destinatarios: cfg.Destinatarios(),
			Hora:          cfg.DigestHora,
			Loc:           loc,
			RDB:           rdb,
		}))
	} else {
		log.Info().Msg("smtp not configured, overdue digest disabled")
	}

	r, err := router.New(ctx, router.Deps{
		Config:     cfg,
		DB:         db,
		Redis:      rdb,
		Hub:        hub,
		Storage:    storage,
		Fila:       dispatcher,
		Loc:        loc,
		OCRBreaker: ocrCB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("CHECKNF backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
