package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/nick-dorsch/todolist/internal/db"
	"github.com/nick-dorsch/todolist/pkg/models"
)

const maxUsernameLength = 50

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func testDB(database *db.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		n, err := database.CountUsers(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, message{Message: "Database connection failed"})
		}
		return c.JSON(http.StatusOK, message{Message: fmt.Sprintf("Database is connected, %d users found.", n)})
	}
}

func readCredentials(c echo.Context) (models.Credentials, error) {
	var creds models.Credentials
	if err := c.Bind(&creds); err != nil {
		return creds, badRequest("Invalid request data")
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" || len([]rune(creds.Username)) > maxUsernameLength {
		return creds, badRequest("Invalid request data")
	}
	return creds, nil
}

func register(database *db.DB, cost int) echo.HandlerFunc {
	return func(c echo.Context) error {
		creds, err := readCredentials(c)
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if _, err := database.CreateUser(c.Request().Context(), creds.Username, string(hash)); err != nil {
			if errors.Is(err, db.ErrDuplicateUser) {
				return badRequest("Username already exists")
			}
			return err
		}
		return c.JSON(http.StatusCreated, message{Message: "User registered successfully"})
	}
}

func login(database *db.DB, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		creds, err := readCredentials(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		user, err := database.GetUserByUsername(ctx, creds.Username)
		if err != nil {
			return err
		}
		invalid := echo.NewHTTPError(http.StatusUnauthorized, "Invalid username or password")
		if user == nil {
			return invalid
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
			return invalid
		}

		session, err := database.CreateSession(ctx, user.ID, ttl)
		if err != nil {
			return err
		}
		c.SetCookie(&http.Cookie{
			Name:     sessionCookie,
			Value:    session.Token,
			Path:     "/",
			Expires:  session.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		return c.JSON(http.StatusOK, message{Message: "Logged in successfully"})
	}
}

func logout(database *db.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if cookie, err := c.Cookie(sessionCookie); err == nil && cookie.Value != "" {
			if err := database.DeleteSession(c.Request().Context(), cookie.Value); err != nil {
				return err
			}
		}
		c.SetCookie(&http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
		return c.NoContent(http.StatusNoContent)
	}
}

func listTasks(database *db.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := database.ListTasks(c.Request().Context(), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func createTask(database *db.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.NewTask
		if err := c.Bind(&req); err != nil {
			return badRequest("Invalid task data")
		}
		req.Task = strings.TrimSpace(req.Task)
		if req.Priority != "" && !req.Priority.Valid() {
			return badRequest("Invalid task data")
		}

		task, err := database.CreateTask(c.Request().Context(), currentUser(c), req)
		if errors.Is(err, db.ErrInvalidTask) {
			return badRequest("Invalid task data")
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func taskID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Task not found")
	}
	return id, nil
}

func updateTask(database *db.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return err
		}
		var patch models.TaskPatch
		if err := c.Bind(&patch); err != nil || patch.Empty() {
			return badRequest("Invalid update data")
		}
		if patch.Priority != nil && !patch.Priority.Valid() {
			return badRequest("Invalid update data")
		}

		task, err := database.UpdateTask(c.Request().Context(), currentUser(c), id, patch)
		switch {
		case errors.Is(err, db.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		case errors.Is(err, db.ErrInvalidTask):
			return badRequest("Invalid update data")
		case err != nil:
			return err
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(database *db.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskID(c)
		if err != nil {
			return err
		}
		err = database.DeleteTask(c.Request().Context(), currentUser(c), id)
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		if err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func updateOrder(database *db.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.OrderUpdate
		if err := c.Bind(&req); err != nil {
			return badRequest("Invalid order data")
		}
		if len(req.NewOrder) == 0 || !slices.Contains(req.NewOrder, req.TaskID) {
			return badRequest("Invalid order data")
		}

		err := database.ReorderTasks(c.Request().Context(), currentUser(c), req.NewOrder)
		if errors.Is(err, db.ErrInvalidOrder) {
			return badRequest("Invalid order data")
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, message{Message: "Order updated"})
	}
}
