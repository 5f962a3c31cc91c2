package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nick-dorsch/todolist/pkg/models"
)

// Register creates an account on stores that support it.
func (c *Client) Register(ctx context.Context, username, password string) error {
	creds := models.Credentials{Username: username, Password: password}
	if _, err := c.do(ctx, http.MethodPost, "/register", creds); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Login starts a session. The session cookie is kept by the client's jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	creds := models.Credentials{Username: username, Password: password}
	if _, err := c.do(ctx, http.MethodPost, "/login", creds); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/logout", nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
