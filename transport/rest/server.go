package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
}

// New builds the lobby API: ping plus create, join, list, get and delete of online games.
func New(logger *slog.Logger, games gameService) *Server {
	log := logger.With("component", "rest")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second
	e.Server.IdleTimeout = 30 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Error("request failed", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
				return nil
			}

			log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)

			return nil
		},
	}))

	handler := NewGameHandler(log, games)

	e.GET("/ping", Ping)
	e.GET("/games", handler.ListWaitingGames)
	e.POST("/games", handler.CreateGame)
	e.GET("/games/:id", handler.GetGame)
	e.POST("/games/:id/join", handler.JoinGame)
	e.DELETE("/games/:id", handler.DeleteGame)

	return &Server{
		logger: log,
		echo:   e,
	}
}

func (that *Server) Start(port string) error {
	if err := that.echo.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if err := that.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	that.echo.ServeHTTP(w, r)
}

func Ping(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "pong")
}
