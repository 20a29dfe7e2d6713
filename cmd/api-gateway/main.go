package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/material-submission-api/api/swagger"
	"github.com/noah-isme/material-submission-api/internal/handler"
	"github.com/noah-isme/material-submission-api/internal/middleware"
	"github.com/noah-isme/material-submission-api/internal/models"
	"github.com/noah-isme/material-submission-api/internal/repository"
	"github.com/noah-isme/material-submission-api/internal/service"
	"github.com/noah-isme/material-submission-api/pkg/cache"
	"github.com/noah-isme/material-submission-api/pkg/config"
	"github.com/noah-isme/material-submission-api/pkg/database"
	"github.com/noah-isme/material-submission-api/pkg/jobs"
	"github.com/noah-isme/material-submission-api/pkg/logger"
	"github.com/noah-isme/material-submission-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/material-submission-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/material-submission-api/pkg/middleware/requestid"
	"github.com/noah-isme/material-submission-api/pkg/storage"
)

// @title Material Submission API
// @version 1.0.0
// @description Tracks didactic material submissions from teachers through school, regional office and management validation.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
		redisClient, err = cache.NewRedis(pingCtx, cfg.Redis)
		cancel()
		if err != nil {
			logr.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer app.mailQueue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	router    *gin.Engine
	mailQueue *jobs.Queue
}

func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	profileRepo := repository.NewProfileRepository(db)
	stageRepo := repository.NewSchoolStageRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	statusRepo := repository.NewSubmissionStatusRepository(db)
	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && redisClient != nil)

	catalog := service.NewStatusCatalog(statusRepo, map[service.StatusRole]string{
		service.StatusPending:   cfg.Statuses.Pending,
		service.StatusSent:      cfg.Statuses.Sent,
		service.StatusValidated: cfg.Statuses.Validated,
		service.StatusRejected:  cfg.Statuses.Rejected,
	}, logr)
	if err := catalog.Load(ctx); err != nil {
		return nil, fmt.Errorf("load status catalog: %w", err)
	}

	profiles := service.NewReferenceService[models.Profile](profileRepo, validate, logr, service.ReferenceConfig{Resource: "profile", MaxLength: 50})
	stages := service.NewReferenceService[models.SchoolStage](stageRepo, validate, logr, service.ReferenceConfig{Resource: "school stage", MaxLength: 100})
	subjects := service.NewReferenceService[models.Subject](subjectRepo, validate, logr, service.ReferenceConfig{Resource: "subject", MaxLength: 100})
	statuses := service.NewSubmissionStatusService(statusRepo, catalog, validate, logr)

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, profileRepo, auditRepo, validate, logr, service.UserConfig{
		TeacherProfileName: cfg.Admin.TeacherProfileName,
	})

	submissionSvc := service.NewSubmissionService(service.SubmissionServiceParams{
		Repo:      submissionRepo,
		Stages:    stageRepo,
		Subjects:  subjectRepo,
		Users:     userRepo,
		Statuses:  statusRepo,
		Catalog:   catalog,
		Cache:     cacheSvc,
		Audit:     auditRepo,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	querySvc := service.NewSubmissionQueryService(submissionRepo, catalog, cacheSvc, logr, service.SubmissionQueryConfig{
		StatsTTL: cfg.Stats.CacheTTL,
	})

	mailSvc, mailQueue, err := buildMail(ctx, cfg, metrics, validate, logr)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	ops := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), cfg, routeHandlers{
		auth:        handler.NewAuthHandler(authSvc),
		users:       handler.NewUserHandler(userSvc),
		profiles:    handler.NewReferenceHandler[models.Profile](profiles),
		stages:      handler.NewReferenceHandler[models.SchoolStage](stages),
		subjects:    handler.NewReferenceHandler[models.Subject](subjects),
		statuses:    handler.NewReferenceHandler[models.SubmissionStatus](statuses),
		submissions: handler.NewSubmissionHandler(submissionSvc, querySvc),
		mail:        handler.NewMailHandler(mailSvc),
		tokens:      authSvc,
	})

	return &application{router: r, mailQueue: mailQueue}, nil
}

func buildMail(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*service.MailService, *jobs.Queue, error) {
	spool, err := storage.NewLocalStorage(cfg.Mail.SpoolDir)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare mail spool: %w", err)
	}

	var sender mailer.Sender
	if cfg.Mail.SendgridAPIKey != "" {
		sender = mailer.NewSendGridSender(cfg.Mail.SendgridAPIKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	} else {
		logr.Warn("SENDGRID_API_KEY not set, attachments will only be logged")
		sender = mailer.NewConsoleSender(logr)
	}

	mailSvc := service.NewMailService(sender, spool, metrics, validate, logr, service.MailConfig{
		MaxFileSize:  cfg.Mail.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Mail.AllowedMIMEs,
		SpoolTTL:     cfg.Mail.SpoolTTL,
	})
	queue := jobs.NewQueue("mail", mailSvc.Deliver, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.Retries,
		RetryDelay: 2 * time.Second,
		OnGiveUp:   mailSvc.GiveUp,
		Logger:     logr,
	})
	mailSvc.SetQueue(queue)
	queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mailSvc.CleanupSpool()
			}
		}
	}()

	return mailSvc, queue, nil
}
