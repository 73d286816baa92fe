// Package httpapi serves the storefront over HTTP: products, search, flags,
// cart and performance budgets.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/time/rate"

	"github.com/Aman-CERP/perfshop/internal/app"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/search"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP surface over an App.
type Server struct {
	app    *app.App
	echo   *echo.Echo
	latest search.Latest
}

// Options configures a Server.
type Options struct {
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64
	RateBurst int

	// ServiceName enables otelecho tracing when set.
	ServiceName string
}

// NewServer creates a server. ctx bounds background goroutines such as
// the rate limiter sweep.
func NewServer(ctx context.Context, a *app.App, opts Options) *Server {
	s := &Server{app: a}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	if opts.ServiceName != "" {
		e.Use(otelecho.Middleware(opts.ServiceName))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				slog.InfoContext(ctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.WarnContext(ctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		e.Use(NewRateLimiter(ctx, rate.Limit(opts.RateLimit), burst).Middleware())
	}

	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.GET("/health", s.health)

	api.GET("/products", s.listProducts)
	api.GET("/products/:id", s.getProduct)
	api.GET("/search", s.search)
	api.GET("/search/latest", s.latestSearch)

	api.GET("/flags", s.listFlags)
	api.PUT("/flags", s.replaceFlags)
	api.PUT("/flags/:key", s.setFlag)

	api.GET("/cart", s.getCart)
	api.POST("/cart/items", s.addCartItem)
	api.PATCH("/cart/items/:id", s.updateCartItem)
	api.DELETE("/cart/items/:id", s.removeCartItem)

	api.GET("/budgets", s.budgets)
	api.POST("/vitals", s.recordVitals)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("http server shutting down")
	return s.echo.Shutdown(shutdownCtx)
}

// errorHandler renders ShopErrors with their mapped status and echo errors
// with theirs.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, shoperrors.JSONError{Code: fmt.Sprintf("HTTP_%d", he.Code), Message: msg})
		return
	}

	status := shoperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logFailure(c, err)
	}
	_ = c.JSON(status, shoperrors.ToJSON(err))
}

// logFailure logs a server-side failure with its error fields. Fatal
// errors log at error level, the rest at warn.
func logFailure(c echo.Context, err error) {
	fields := shoperrors.FormatForLog(err)
	attrs := make([]slog.Attr, 0, len(fields)+2)
	attrs = append(attrs, slog.String("method", c.Request().Method), slog.String("path", c.Path()))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}

	level := slog.LevelWarn
	if shoperrors.IsFatal(err) {
		level = slog.LevelError
	}
	slog.LogAttrs(c.Request().Context(), level, "request failed", attrs...)
}
