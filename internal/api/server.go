// Package api serves the HTTP status and control surface for a running
// mining job. It reads everything through the narrow StatusSource interface
// so it stays decoupled from the miner internals.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cyclemine/pkg/mining/core"
	"cyclemine/pkg/mining/miner"
)

// Status is the point-in-time state of the running job.
type Status struct {
	PluginName    string         `json:"plugin_name"`
	JobID         uint32         `json:"job_id"`
	RunID         string         `json:"run_id"`
	Running       bool           `json:"running"`
	SolutionFound bool           `json:"solution_found"`
	GraphsPerSec  float64        `json:"graphs_per_sec"`
	Stats         miner.JobStats `json:"stats"`
	LastError     string         `json:"last_error,omitempty"`
}

// StatusSource is what the server needs from the job monitor.
type StatusSource interface {
	Status() Status
	Solutions() []core.Solution
	RequestStop()
}

// Server wraps the gin router serving the status API.
type Server struct {
	router *gin.Engine
	src    StatusSource
	log    *zap.SugaredLogger
}

// NewServer builds the API server around a status source.
func NewServer(src StatusSource, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{router: router, src: src, log: log}

	v1 := router.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/solutions", s.handleSolutions)
	v1.POST("/stop", s.handleStop)

	return s
}

// Router exposes the underlying engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves the API on addr, blocking until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Infow("status API listening", "addr", addr)
	return s.router.Run(addr)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.src.Status())
}

func (s *Server) handleSolutions(c *gin.Context) {
	sols := s.src.Solutions()
	if sols == nil {
		sols = []core.Solution{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(sols), "solutions": sols})
}

func (s *Server) handleStop(c *gin.Context) {
	s.log.Infow("stop requested via API")
	s.src.RequestStop()
	c.JSON(http.StatusOK, gin.H{"message": "stop requested"})
}
