package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/config"
	"github.com/perkflow/benefit-reimbursement/internal/report"
	"github.com/perkflow/benefit-reimbursement/internal/repository"
	"github.com/perkflow/benefit-reimbursement/internal/workflow"
)

// Server is the HTTP adapter over the approval pipeline
type Server struct {
	router   *gin.Engine
	handlers *Handlers
	logger   *zap.Logger
}

// New creates a configured server
func New(
	cfg config.ServerConfig,
	engine *workflow.Engine,
	reporter *report.BalanceReporter,
	employees *repository.EmployeeRepository,
	categories *repository.CategoryRepository,
	logger *zap.Logger,
	debug bool,
) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors())

	s := &Server{
		router:   router,
		handlers: NewHandlers(engine, reporter, employees, categories, logger),
		logger:   logger,
	}
	s.registerRoutes()

	return s
}

// Handler returns the underlying http handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "benefit-reimbursement",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := s.router.Group("/api/v1")
	{
		api.POST("/reimbursement/submit", s.handlers.SubmitReimbursement)
		api.GET("/reimbursement/:id", s.handlers.GetReimbursement)

		api.GET("/employees", s.handlers.ListEmployees)
		api.POST("/employees", s.handlers.CreateEmployee)
		api.GET("/employees/:id", s.handlers.GetEmployee)
		api.GET("/employees/:id/balances", s.handlers.GetBalances)
		api.GET("/employees/:id/balances/export", s.handlers.ExportBalances)

		api.GET("/categories", s.handlers.ListCategories)
		api.POST("/categories", s.handlers.CreateCategory)
		api.PUT("/categories/:id", s.handlers.UpdateCategory)
		api.DELETE("/categories/:id", s.handlers.DeleteCategory)
		api.GET("/categories/:id/keywords", s.handlers.ListKeywords)
		api.POST("/categories/:id/keywords", s.handlers.AddKeyword)
		api.DELETE("/categories/:id/keywords/:keywordId", s.handlers.DeleteKeyword)
	}
}

// requestLogger logs HTTP requests with latency and status
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// cors adds permissive CORS headers for the SPA frontend
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Addr formats the listen address
func Addr(cfg config.ServerConfig) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
