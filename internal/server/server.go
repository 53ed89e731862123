package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	agencydomain "github.com/recovahq/recova/internal/agency/domain"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
	authdomain "github.com/recovahq/recova/internal/auth/domain"
	"github.com/recovahq/recova/internal/authorization"
	casedomain "github.com/recovahq/recova/internal/case/domain"
	"github.com/recovahq/recova/internal/clock"
	"github.com/recovahq/recova/internal/config"
	obsmetrics "github.com/recovahq/recova/internal/observability/metrics"
	"github.com/recovahq/recova/internal/sla"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type engineParams struct {
	fx.In

	Metrics *obsmetrics.Metrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	return NewEngine(p.Metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	authSvc    authdomain.Service
	authzSvc   authorization.Service
	auditSvc   auditdomain.Service
	caseSvc    casedomain.Service
	agencySvc  agencydomain.Service
	slaMonitor *sla.Monitor
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	AuthSvc    authdomain.Service
	AuthzSvc   authorization.Service
	AuditSvc   auditdomain.Service
	CaseSvc    casedomain.Service
	AgencySvc  agencydomain.Service
	SLAMonitor *sla.Monitor
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("http.server"),
		genID:      p.GenID,
		clock:      p.Clock,
		authSvc:    p.AuthSvc,
		authzSvc:   p.AuthzSvc,
		auditSvc:   p.AuditSvc,
		caseSvc:    p.CaseSvc,
		agencySvc:  p.AgencySvc,
		slaMonitor: p.SLAMonitor,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.AuthRequired())

	// -------- Cases --------
	api.POST("/cases", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseCreate), s.CreateCase)
	api.POST("/cases/bulk", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseCreate), s.BulkUploadCases)
	api.GET("/cases", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseView), s.ListCases)
	api.GET("/cases/:id", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseView), s.GetCaseByID)
	api.PATCH("/cases/:id", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseUpdate), s.TransitionCase)
	api.POST("/cases/:id/reassign", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseReassign), s.ReassignCase)
	api.POST("/cases/:id/reopen", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseReopen), s.ReopenCase)
	api.POST("/cases/:id/rescore", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseRescore), s.RescoreCase)
	api.POST("/cases/:id/retry-allocation", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseAllocate), s.RetryCaseAllocation)
	api.GET("/cases/:id/notes", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseView), s.ListCaseNotes)
	api.POST("/cases/:id/notes", s.authorizeAction(authorization.ObjectCase, authorization.ActionCaseNote), s.AddCaseNote)

	// -------- Agencies --------
	api.GET("/agencies", s.authorizeAction(authorization.ObjectAgency, authorization.ActionAgencyView), s.ListAgencies)
	api.POST("/agencies", s.authorizeAction(authorization.ObjectAgency, authorization.ActionAgencyCreate), s.CreateAgency)
	api.GET("/agencies/:id", s.authorizeAction(authorization.ObjectAgency, authorization.ActionAgencyView), s.GetAgencyByID)
	api.PATCH("/agencies/:id", s.authorizeAction(authorization.ObjectAgency, authorization.ActionAgencyUpdate), s.UpdateAgency)
	api.POST("/agencies/:id/reset-breaches", s.authorizeAction(authorization.ObjectAgency, authorization.ActionAgencyReset), s.ResetAgencyBreaches)

	// -------- Dashboard / Audit / SLA --------
	api.GET("/dashboard", s.authorizeAction(authorization.ObjectDashboard, authorization.ActionDashboardView), s.GetDashboard)
	api.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
	api.POST("/sla/check", s.authorizeAction(authorization.ObjectSLA, authorization.ActionSLARun), s.RunSLACheck)

	// -------- Tokens (admin bootstrap surface) --------
	tokens := api.Group("/tokens", s.RequireAdmin())
	{
		tokens.GET("", s.ListTokens)
		tokens.POST("", s.IssueToken)
		tokens.DELETE("/:id", s.RevokeToken)
	}
}
