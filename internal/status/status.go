// Package status exposes a tiny read-only HTTP introspection surface over
// the rendezvous registry, additive to and entirely separate from the
// signaling wire protocol. Grounded on internal/httpapi/server.go's
// echo.New() + middleware.Recover() + slog request-logger shape.
package status

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"mirrorcast/internal/rendezvous"
)

// Server is the Echo application serving GET /channels.
type Server struct {
	echo     *echo.Echo
	registry *rendezvous.Registry
}

// New constructs the status app over registry.
func New(registry *rendezvous.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, registry: registry}
	e.GET("/channels", s.handleChannels)
	return s
}

// Start listens and serves on addr; it blocks until the server stops.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

type channelView struct {
	ID   uint32 `json:"id"`
	Port uint16 `json:"port"`
}

func (s *Server) handleChannels(c echo.Context) error {
	entries := s.registry.Snapshot()
	out := make([]channelView, len(entries))
	for i, e := range entries {
		out[i] = channelView{ID: e.ID, Port: e.Port}
	}
	return c.JSON(http.StatusOK, out)
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			slog.Debug("status http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}
