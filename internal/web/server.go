// Package web exposes the proxy's HTTP surface: health endpoints, the
// single/multi pickup proxy and the email relay. CORS is wide open, the
// dashboard may be served from anywhere.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/robotikz/foodsharing-watcher/internal/foodsharing"
	"github.com/robotikz/foodsharing-watcher/internal/mailer"
	"github.com/robotikz/foodsharing-watcher/internal/proxy"
)

// Server wires the aggregator and the mailer into HTTP handlers.
type Server struct {
	Aggregator *proxy.Aggregator
	Client     *foodsharing.Client
	Mailer     *mailer.Mailer
	Log        *zap.Logger
}

// Routes builds the echo instance with all middleware and handlers attached.
func (s *Server) Routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, "X-CSRF-Token", echo.HeaderAccept},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.Log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.String("request_id", v.RequestID),
				zap.Error(v.Error))
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "path": "/"})
	})
	e.GET("/proxy", s.handleProxy)
	e.POST("/notify-email", s.handleNotifyEmail)

	return e
}

// handleProxy serves both target modes. Multi-store requests always answer
// 200 and report per-leg statuses inside the payload; single-URL requests
// forward the real upstream status. Consumers depend on both behaviors, so
// the asymmetry stays.
func (s *Server) handleProxy(c echo.Context) error {
	fwd := foodsharing.ForwardHeaders{
		Accept:    c.Request().Header.Get("Accept"),
		CSRFToken: c.Request().Header.Get("X-Csrf-Token"),
	}

	if storeIDs := c.QueryParams()["store_id"]; len(storeIDs) > 0 {
		results := s.Aggregator.FetchStores(c.Request().Context(), storeIDs, fwd)
		c.Response().Header().Set("Cache-Control", "no-store")
		return c.JSON(http.StatusOK, foodsharing.MultiResponse{Multi: true, Results: results})
	}

	raw := c.QueryParam("url")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing url param"})
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid url"})
	}
	if !s.Client.Allowed(u) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("Only %s /api/* is allowed", s.Client.Host()),
		})
	}

	leg, err := s.Aggregator.FetchURL(c.Request().Context(), u, fwd)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	defer func() { _ = leg.Body.Close() }()

	// only content-type crosses over; upstream cookies die here
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Stream(leg.Status, leg.ContentType, leg.Body)
}

func (s *Server) handleNotifyEmail(c echo.Context) error {
	var req struct {
		Subject string `json:"subject"`
		Text    string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid JSON body"})
	}
	if req.Subject == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing subject or text"})
	}

	if err := s.Mailer.Send(c.Request().Context(), req.Subject, req.Text); err != nil {
		s.Log.Error("notify-email failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, e *echo.Echo, log *zap.Logger) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", addr))
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
