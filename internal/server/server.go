package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/identity"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/observability"
	obsmiddleware "github.com/smallbiznis/invoicer/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicer/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoicer/internal/observability/tracing"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	quotationdomain "github.com/smallbiznis/invoicer/internal/quotation/domain"
	"github.com/smallbiznis/invoicer/internal/ratelimit"
	"github.com/smallbiznis/invoicer/internal/render"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	registerValidation()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obsCfg.ServiceName))
	r.Use(obstracing.SpanEnricher())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	engine       *gin.Engine
	log          *zap.Logger
	verifier     *identity.Verifier
	identity     identity.PasswordResetter
	invoiceSvc   invoicedomain.Service
	quotationSvc quotationdomain.Service
	companySvc   companydomain.Service
	auditSvc     auditdomain.Service
	renderer     render.Renderer
	pdf          pdf.Provider
	defaults     *config.DocumentDefaultsHolder
	resetLimiter *ratelimit.PasswordResetLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Log          *zap.Logger
	Verifier     *identity.Verifier
	Identity     identity.PasswordResetter
	InvoiceSvc   invoicedomain.Service
	QuotationSvc quotationdomain.Service
	CompanySvc   companydomain.Service
	AuditSvc     auditdomain.Service
	Renderer     render.Renderer
	PDF          pdf.Provider
	Defaults     *config.DocumentDefaultsHolder
	ResetLimiter *ratelimit.PasswordResetLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		log:          p.Log.Named("http.server"),
		verifier:     p.Verifier,
		identity:     p.Identity,
		invoiceSvc:   p.InvoiceSvc,
		quotationSvc: p.QuotationSvc,
		companySvc:   p.CompanySvc,
		auditSvc:     p.AuditSvc,
		renderer:     p.Renderer,
		pdf:          p.PDF,
		defaults:     p.Defaults,
		resetLimiter: p.ResetLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/forgot-password", s.ForgotPassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	api.GET("/me", s.Me)

	// -------- Company --------
	api.GET("/company", s.GetCompany)
	api.PUT("/company", s.UpsertCompany)

	api.GET("/audit-logs", s.ListAuditLogs)

	// -------- Invoices --------
	invoices := api.Group("/invoices")
	{
		invoices.GET("", s.ListInvoices)
		invoices.POST("", s.CreateInvoice)
		invoices.GET("/next-number", s.NextInvoiceNumber)
		invoices.GET("/draft", s.DraftInvoice)
		invoices.GET("/:id", s.GetInvoiceByID)
		invoices.PUT("/:id", s.UpdateInvoice)
		invoices.DELETE("/:id", s.DeleteInvoice)
		invoices.GET("/:id/print", s.PrintInvoice)
		invoices.GET("/:id/pdf", s.InvoicePDF)
	}

	// -------- Quotations --------
	quotations := api.Group("/quotations")
	{
		quotations.GET("", s.ListQuotations)
		quotations.POST("", s.CreateQuotation)
		quotations.GET("/next-number", s.NextQuotationNumber)
		quotations.GET("/draft", s.DraftQuotation)
		quotations.GET("/:id", s.GetQuotationByID)
		quotations.PUT("/:id", s.UpdateQuotation)
		quotations.DELETE("/:id", s.DeleteQuotation)
		quotations.POST("/:id/send", s.SendQuotation)
		quotations.POST("/:id/accept", s.AcceptQuotation)
		quotations.POST("/:id/reject", s.RejectQuotation)
		quotations.POST("/:id/convert", s.ConvertQuotation)
		quotations.GET("/:id/print", s.PrintQuotation)
		quotations.GET("/:id/pdf", s.QuotationPDF)
	}
}
