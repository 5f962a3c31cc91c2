package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/nick-dorsch/todolist/internal/db"
)

const userIDKey = "user_id"

// requestLogger logs one line per request and echoes the request id back
// to the caller.
func requestLogger(log *logrus.Entry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			entry := log.WithFields(logrus.Fields{
				"method":      req.Method,
				"path":        req.URL.Path,
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  id,
			})
			if c.Response().Status >= http.StatusInternalServerError {
				entry.Warn("request handled")
			} else {
				entry.Debug("request handled")
			}
			return nil
		}
	}
}

// authenticate resolves the session cookie to a user. Without a valid
// session the request is rejected unless anonymous access is allowed.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if cookie, err := c.Cookie(sessionCookie); err == nil && cookie.Value != "" {
			session, err := s.db.GetSession(ctx, cookie.Value)
			if err != nil {
				return err
			}
			if session != nil {
				c.Set(userIDKey, session.UserID)
				return next(c)
			}
		}

		if !s.opts.AllowAnonymous {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
		id, err := s.anonymousUser(c)
		if err != nil {
			return err
		}
		c.Set(userIDKey, id)
		return next(c)
	}
}

func (s *Server) anonymousUser(c echo.Context) (int64, error) {
	s.anonMu.Lock()
	defer s.anonMu.Unlock()
	if s.anonID != 0 {
		return s.anonID, nil
	}
	u, err := s.db.EnsureUser(c.Request().Context(), db.AnonymousUser)
	if err != nil {
		return 0, err
	}
	s.anonID = u.ID
	return u.ID, nil
}

func currentUser(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}
