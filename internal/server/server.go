package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/meterbook/internal/clock"
	"github.com/smallbiznis/meterbook/internal/config"
	"github.com/smallbiznis/meterbook/internal/observability"
	obsmiddleware "github.com/smallbiznis/meterbook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/meterbook/internal/observability/metrics"
	obstracing "github.com/smallbiznis/meterbook/internal/observability/tracing"
	"github.com/smallbiznis/meterbook/internal/providers/pdf"
	"github.com/smallbiznis/meterbook/internal/providers/xlsx"
	readingdomain "github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/smallbiznis/meterbook/internal/reminder"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine     *gin.Engine
	Config     config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	ReadingSvc readingdomain.Service
	Reminder   *reminder.Scheduler
	PDF        pdf.Provider
	XLSX       xlsx.Provider
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	clock      clock.Clock
	readingSvc readingdomain.Service
	reminder   *reminder.Scheduler
	pdf        pdf.Provider
	xlsx       xlsx.Provider
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Config,
		log:        p.Log.Named("http.server"),
		clock:      p.Clock,
		readingSvc: p.ReadingSvc,
		reminder:   p.Reminder,
		pdf:        p.PDF,
		xlsx:       p.XLSX,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/readings", s.ListReadings)
		api.POST("/readings", s.CreateReading)
		api.DELETE("/readings/:id", s.DeleteReading)
		api.GET("/readings/previous", s.PreviousReading)

		api.GET("/summaries", s.ListSummaries)

		api.GET("/backup", s.ExportBackup)
		api.POST("/backup", s.ImportBackup)

		api.GET("/migration", s.MigrationStatus)
		api.POST("/migration", s.RunMigration)
		api.POST("/migration/skip", s.SkipMigration)
		api.POST("/migration/reset", s.ResetMigration)

		api.GET("/reminder/next", s.NextReminder)

		api.GET("/reports/monthly.pdf", s.MonthlyReportPDF)
		api.GET("/reports/readings.xlsx", s.ReadingsWorkbook)
	}
}
