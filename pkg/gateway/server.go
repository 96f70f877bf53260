package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default HTTP API configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server is the gateway's HTTP API: command injection, node status,
// and Prometheus metrics
type Server struct {
	router     *gin.Engine
	port       int
	httpServer *http.Server

	submit func(CommandRequest) bool

	// Status returns a snapshot of node counters for /api/status
	Status func() map[string]interface{}
}

// Data is []int because encoding/json reads []byte as base64, not a
// number array
type commandBody struct {
	Cmd  *uint16 `json:"cmd" binding:"required"`
	Dst  *uint8  `json:"dst"`
	Data []int   `json:"data"`
}

// NewServer creates the HTTP API bound to a command sink
func NewServer(config *ServerConfig, submit func(CommandRequest) bool) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		port:   config.Port,
		submit: submit,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/command", s.handleCommand)
		api.GET("/status", s.handleStatus)
	}

	s.router.GET("/metrics", gin.WrapH(MetricsHandler()))
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (s *Server) handleCommand(c *gin.Context) {
	var body commandBody
	if err := c.ShouldBindJSON(&body); err != nil {
		CommandsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "json_parse"})
		return
	}

	req := CommandRequest{
		Cmd:   *body.Cmd,
		Dst:   mdp.EndpointOrigin,
		Data:  dataBytes(body.Data),
		Reply: make(chan CommandResult, 1),
	}
	if body.Dst != nil {
		req.Dst = *body.Dst
	}

	if !s.submit(req) {
		CommandsTotal.WithLabelValues("busy").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "busy"})
		return
	}

	select {
	case res := <-req.Reply:
		if res.Err != nil {
			CommandsTotal.WithLabelValues("failed").Inc()
			c.JSON(http.StatusConflict, gin.H{"error": res.Err.Error()})
			return
		}
		CommandsTotal.WithLabelValues("sent").Inc()
		c.JSON(http.StatusOK, gin.H{"sent": true, "seq": res.Seq})
	case <-time.After(3 * time.Second):
		CommandsTotal.WithLabelValues("timeout").Inc()
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timeout"})
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.Status == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.Status())
}

// Handler exposes the routes for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until the context is canceled
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("❌ API server error: %v\n", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Stop shuts the HTTP server down
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
