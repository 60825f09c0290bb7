package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"steward/internal/config"
	"steward/internal/controller"
	"steward/pkg/logging"
	"steward/pkg/metrics"
)

// ControllerAPI is what the HTTP surface needs from the controller.
type ControllerAPI interface {
	Statuses() []controller.AppStatus
	Status(application string) (controller.AppStatus, bool)
	TriggerSync(application string) error
	IsRunning() bool
	QueueLength() int
}

// Server exposes steward's status, webhook, and metrics endpoints.
type Server struct {
	echo       *echo.Echo
	controller ControllerAPI
	config     config.ServerConfig
}

// New builds the HTTP server and registers its routes.
func New(cfg config.ServerConfig, ctrl ControllerAPI) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:       e,
		controller: ctrl,
		config:     cfg,
	}

	e.GET("/healthz", s.handleHealthz)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api/v1")
	api.GET("/applications", s.handleListApplications)
	api.GET("/applications/:name", s.handleGetApplication)
	api.POST("/applications/:name/sync", s.handleSync)
	api.POST("/webhook", s.handleWebhook)

	return s
}

// Start begins serving in the background and returns once the listener is
// requested. Failures after startup are logged, not returned.
func (s *Server) Start() error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	go func() {
		if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server", err, "HTTP server stopped")
		}
	}()

	logging.Info("Server", "Listening on %s", address)
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(c echo.Context) error {
	status := http.StatusOK
	if !s.controller.IsRunning() {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]interface{}{
		"running":     s.controller.IsRunning(),
		"queueLength": s.controller.QueueLength(),
	})
}

func (s *Server) handleListApplications(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"applications": s.controller.Statuses(),
	})
}

func (s *Server) handleGetApplication(c echo.Context) error {
	name := c.Param("name")
	status, ok := s.controller.Status(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown application %q", name))
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleSync(c echo.Context) error {
	name := c.Param("name")
	if err := s.controller.TriggerSync(name); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	logging.Info("Server", "Manual sync requested for %s", name)
	return c.JSON(http.StatusAccepted, map[string]string{"application": name, "status": "queued"})
}

// webhookPayload is the minimal body accepted on the generic webhook
// endpoint. Repository hosting services can be pointed at it with a small
// adapter; the application name is all steward needs.
type webhookPayload struct {
	Application string `json:"application"`
}

func (s *Server) handleWebhook(c echo.Context) error {
	var payload webhookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed webhook payload")
	}
	if payload.Application == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing application name")
	}

	if err := s.controller.TriggerSync(payload.Application); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	logging.Info("Server", "Webhook sync requested for %s", payload.Application)
	return c.JSON(http.StatusAccepted, map[string]string{"application": payload.Application, "status": "queued"})
}
