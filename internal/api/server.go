// Package api exposes analysis runs over HTTP
package api

import (
	"net/http"

	"tumorexpr/adapters/excel"
	"tumorexpr/adapters/report"
	"tumorexpr/internal/pipeline"
	"tumorexpr/ports"

	"github.com/gin-gonic/gin"
)

// ServerOptions configures the HTTP server
type ServerOptions struct {
	GinMode     string
	MaxUploadMB int
	Sheet       string
}

// Server serves the analysis API. The repository is optional; without it
// runs are returned but not listed or fetched later.
type Server struct {
	router     *gin.Engine
	runner     *pipeline.Runner
	repository ports.RunRepository
	renderer   *report.Renderer
	opts       ServerOptions
}

// NewServer creates the server and registers its routes
func NewServer(runner *pipeline.Runner, repository ports.RunRepository, opts ServerOptions) *Server {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 32
	}
	if opts.Sheet == "" {
		opts.Sheet = excel.DefaultSheet
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), corsMiddleware())
	router.MaxMultipartMemory = int64(opts.MaxUploadMB) << 20

	s := &Server{
		router:     router,
		runner:     runner,
		repository: repository,
		renderer:   report.NewRenderer(),
		opts:       opts,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthcheck", healthCheckHandler)

	api := s.router.Group("/api")
	api.GET("/regions", handleRegions)
	api.POST("/analyses", s.handleCreateAnalysis)
	api.GET("/analyses", s.handleListAnalyses)
	api.GET("/analyses/:id", s.handleGetAnalysis)
	api.GET("/analyses/:id/report", s.handleGetReport)
}

// Handler returns the HTTP handler for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
