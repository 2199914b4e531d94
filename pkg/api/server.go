// Package api exposes spec.md §6's external interfaces over HTTP:
// task submission/lookup, agent registration/heartbeat/deregistration,
// health, and a WebSocket event stream upgrade.
package api

import (
	"context"
	"net"
	"net/http"

	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/config"
	"github.com/swarmruntime/core/pkg/database"
	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/events"
	"github.com/swarmruntime/core/pkg/id"
	"github.com/swarmruntime/core/pkg/scheduler"
	"github.com/swarmruntime/core/pkg/task"
)

// Server is the HTTP API server over gin.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	cfg         *config.Config
	clock       clock.Clock
	repo        task.Repository
	queue       *task.Queue
	agents      *scheduler.AgentRegistry
	publisher   *events.Publisher
	connManager *events.ConnectionManager
	db          *sql.DB
}

// NewServer creates a Server wired to the given core components. db is
// optional: when nil, /healthz omits the database section.
func NewServer(
	cfg *config.Config,
	c clock.Clock,
	repo task.Repository,
	queue *task.Queue,
	agents *scheduler.AgentRegistry,
	publisher *events.Publisher,
	connManager *events.ConnectionManager,
	db *sql.DB,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(securityHeaders())

	s := &Server{
		engine:      e,
		cfg:         cfg,
		clock:       c,
		repo:        repo,
		queue:       queue,
		agents:      agents,
		publisher:   publisher,
		connManager: connManager,
		db:          db,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.healthHandler)
	s.engine.POST("/tasks", s.submitTaskHandler)
	s.engine.GET("/tasks/:id", s.getTaskHandler)
	s.engine.POST("/agents", s.registerAgentHandler)
	s.engine.POST("/agents/:id/heartbeat", s.heartbeatHandler)
	s.engine.DELETE("/agents/:id", s.unregisterAgentHandler)
	s.engine.GET("/ws", s.wsHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, used
// by tests to bind a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler, e.g. for httptest.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) healthHandler(c *gin.Context) {
	resp := HealthResponse{Status: "healthy"}
	if s.cfg != nil {
		resp.Providers = s.cfg.Stats().Providers
	}
	if s.queue != nil {
		resp.Queue.Total = s.queue.Len()
	}
	if s.db != nil {
		dbHealth, err := database.Health(c.Request.Context(), s.db)
		resp.Database = dbHealth
		if err != nil {
			resp.Status = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) submitTaskHandler(c *gin.Context) {
	var req SubmitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	t := task.New(req.Title, req.Description, req.Type, parsePriority(req.Priority), s.clock.Now())
	if req.TimeoutMs > 0 {
		t.TimeoutMs = req.TimeoutMs
	}
	if req.MaxRetries != nil {
		t.MaxRetries = *req.MaxRetries
	}
	if len(req.Tags) > 0 {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any)
		}
		t.Metadata["tags"] = req.Tags
	}
	for k, v := range req.Metadata {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any)
		}
		t.Metadata[k] = v
	}
	for _, blockerID := range req.BlockedBy {
		t.BlockedBy[id.TaskID(blockerID)] = struct{}{}
	}
	for _, blockedID := range req.Blocks {
		t.Blocks[id.TaskID(blockedID)] = struct{}{}
	}

	if err := t.Queue(); err != nil {
		status, body := writeError(err)
		c.JSON(status, body)
		return
	}
	if err := s.repo.Save(c.Request.Context(), t); err != nil {
		status, body := writeError(err)
		c.JSON(status, body)
		return
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(t); err != nil {
			status, body := writeError(err)
			c.JSON(status, body)
			return
		}
	}

	if s.publisher != nil {
		s.publisher.PublishTaskStatus(string(t.ID), events.TaskStatusPayload{Status: string(t.Status)})
	}

	c.JSON(http.StatusCreated, toTaskResponse(t))
}

func (s *Server) getTaskHandler(c *gin.Context) {
	t, err := s.repo.FindByID(c.Request.Context(), id.TaskID(c.Param("id")))
	if err != nil {
		status, body := writeError(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(t))
}

func (s *Server) registerAgentHandler(c *gin.Context) {
	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	caps := make(map[string]struct{}, len(req.Capabilities))
	for _, cap := range req.Capabilities {
		caps[cap] = struct{}{}
	}
	a := &scheduler.Agent{
		ID:            req.ID,
		Capabilities:  caps,
		Status:        scheduler.AgentIdle,
		HealthScore:   1,
		MaxConcurrent: req.MaxConcurrent,
		LastHeartbeat: s.clock.Now(),
	}
	s.agents.Register(a)

	if s.publisher != nil {
		s.publisher.PublishAgentStatus(events.AgentStatusPayload{AgentID: a.ID, Status: "registered", Capabilities: req.Capabilities})
	}

	c.JSON(http.StatusCreated, toAgentResponse(*a))
}

func (s *Server) heartbeatHandler(c *gin.Context) {
	agentID := c.Param("id")
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if _, ok := s.agents.Get(agentID); !ok {
		status, body := writeError(errs.New(errs.KindNotFound, "agent not found"))
		c.JSON(status, body)
		return
	}

	s.agents.Heartbeat(agentID, s.clock.Now(), req.HealthScore)

	if s.publisher != nil {
		s.publisher.PublishAgentHeartbeat(events.AgentHeartbeatPayload{AgentID: agentID, Health: req.Health, Load: req.Load})
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) unregisterAgentHandler(c *gin.Context) {
	agentID := c.Param("id")
	s.agents.Unregister(agentID)
	if s.publisher != nil {
		s.publisher.PublishAgentStatus(events.AgentStatusPayload{AgentID: agentID, Status: "deregistered"})
	}
	c.Status(http.StatusNoContent)
}

func toTaskResponse(t *task.Task) TaskResponse {
	errMsg := ""
	if t.Error != nil {
		errMsg = t.Error.Error()
	}
	return TaskResponse{
		ID:              string(t.ID),
		Title:           t.Title,
		Description:     t.Description,
		Type:            t.Type,
		Status:          string(t.Status),
		Priority:        priorityName(t.Priority),
		AssignedAgentID: t.AssignedAgentID,
		RetryCount:      t.RetryCount,
		MaxRetries:      t.MaxRetries,
		Error:           errMsg,
		CreatedAt:       t.CreatedAt,
		StartedAt:       t.StartedAt,
		CompletedAt:     t.CompletedAt,
		Metadata:        t.Metadata,
	}
}

func toAgentResponse(a scheduler.Agent) AgentResponse {
	caps := make([]string, 0, len(a.Capabilities))
	for cap := range a.Capabilities {
		caps = append(caps, cap)
	}
	return AgentResponse{
		ID:            a.ID,
		Capabilities:  caps,
		Status:        string(a.Status),
		HealthScore:   a.HealthScore,
		Load:          a.Load,
		LastHeartbeat: a.LastHeartbeat,
	}
}

func parsePriority(s string) task.Priority {
	switch s {
	case "critical":
		return task.PriorityCritical
	case "high":
		return task.PriorityHigh
	case "low":
		return task.PriorityLow
	default:
		return task.PriorityNormal
	}
}

func priorityName(p task.Priority) string {
	switch p {
	case task.PriorityCritical:
		return "critical"
	case task.PriorityHigh:
		return "high"
	case task.PriorityLow:
		return "low"
	default:
		return "normal"
	}
}
