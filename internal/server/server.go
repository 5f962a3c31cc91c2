// Package server is a reference implementation of the task store API backed
// by SQLite.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/nick-dorsch/todolist/internal/db"
)

const sessionCookie = "session"

type Options struct {
	// AllowAnonymous lets requests without a session act as a shared
	// anonymous user.
	AllowAnonymous bool
	AllowedOrigins []string
	SessionTTL     time.Duration
	BcryptCost     int
	Logger         *logrus.Entry
}

type Server struct {
	db   *db.DB
	echo *echo.Echo
	opts Options
	log  *logrus.Entry

	anonMu sync.Mutex
	anonID int64
}

func NewServer(database *db.DB, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Server{db: database, opts: opts, log: opts.Logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		AllowCredentials: !containsWildcard(opts.AllowedOrigins),
	}))
	e.Use(requestLogger(s.log))

	e.GET("/test_db", testDB(database))
	e.POST("/register", register(database, opts.BcryptCost))
	e.POST("/login", login(database, opts.SessionTTL))
	e.POST("/logout", logout(database))

	tasks := e.Group("", s.authenticate)
	tasks.GET("/tasks", listTasks(database))
	tasks.POST("/tasks", createTask(database))
	tasks.PUT("/tasks/:id", updateTask(database))
	tasks.DELETE("/tasks/:id", deleteTask(database))
	tasks.POST("/updateOrder", updateOrder(database))

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and blocks until the server stops. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("api server listening")
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// handleError renders every error as {"message": ...}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	} else {
		s.log.WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, message{Message: msg})
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to write error response")
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
