// Package httpapi exposes the orchestration core over HTTP. It is the
// driver boundary: one call per agent-phase transition, plus completion
// recording and recommendation queries.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/executor"
	"github.com/fyrsmithlabs/workflowd/internal/memory"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// Server provides the HTTP endpoints for workflowd.
type Server struct {
	echo   *echo.Echo
	exec   *executor.Executor
	memory *memory.Service
	logger *zap.Logger
	addr   string
}

// NewServer creates the HTTP server.
func NewServer(exec *executor.Executor, mem *memory.Service, logger *zap.Logger, addr string) (*Server, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if mem == nil {
		return nil, fmt.Errorf("memory service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if addr == "" {
		addr = ":8715"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{echo: e, exec: exec, memory: mem, logger: logger, addr: addr}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)

	v1 := s.echo.Group("/v1")
	v1.POST("/execute", s.handleExecute)
	v1.POST("/execute/batch", s.handleExecuteBatch)
	v1.POST("/workflows/complete", s.handleWorkflowComplete)
	v1.POST("/learnings", s.handleAddLearning)
	v1.GET("/recommendations", s.handleRecommendations)
	v1.GET("/metrics/trend", s.handleQualityTrend)
}

// Start serves until the listener fails.
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the echo handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type executeRequest struct {
	Agent     workflow.Agent `json:"agent"`
	Input     map[string]any `json:"input"`
	TimeoutMS int            `json:"timeout_ms"`
	Retries   int            `json:"retries"`
}

func (r executeRequest) toExecutor() executor.Request {
	return executor.Request{
		Agent:   r.Agent,
		Input:   r.Input,
		Timeout: time.Duration(r.TimeoutMS) * time.Millisecond,
		Retries: r.Retries,
	}
}

// handleExecute runs one agent invocation. In-band failures still return
// 200: the Result encodes the outcome.
func (s *Server) handleExecute(c echo.Context) error {
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result := s.exec.Execute(c.Request().Context(), req.toExecutor())
	return c.JSON(http.StatusOK, result)
}

type executeBatchRequest struct {
	Requests []executeRequest `json:"requests"`
}

func (s *Server) handleExecuteBatch(c echo.Context) error {
	var req executeBatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	reqs := make([]executor.Request, len(req.Requests))
	for i, r := range req.Requests {
		reqs[i] = r.toExecutor()
	}
	results := s.exec.ExecuteParallel(c.Request().Context(), reqs)
	return c.JSON(http.StatusOK, results)
}

type workflowCompleteRequest struct {
	Workflow  *workflow.Workflow `json:"workflow"`
	Success   bool               `json:"success"`
	Practices []string           `json:"practices,omitempty"`
}

func (s *Server) handleWorkflowComplete(c echo.Context) error {
	var req workflowCompleteRequest
	if err := c.Bind(&req); err != nil || req.Workflow == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.memory.RecordWorkflow(c.Request().Context(), req.Workflow, req.Success, req.Practices...); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleAddLearning(c echo.Context) error {
	var record memory.LearningRecord
	if err := c.Bind(&record); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	stored, err := s.memory.AddLearning(c.Request().Context(), record)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, stored)
}

func (s *Server) handleRecommendations(c echo.Context) error {
	var w workflow.Workflow
	if err := echo.QueryParamsBinder(c).
		Int("id", &w.ID).
		String("title", &w.Title).
		Strings("labels", &w.Labels).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if w.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	return c.JSON(http.StatusOK, s.memory.Recommendations(c.Request().Context(), &w))
}

func (s *Server) handleQualityTrend(c echo.Context) error {
	return c.JSON(http.StatusOK, s.memory.Metrics().GetQualityTrend())
}
