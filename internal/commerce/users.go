package commerce

import (
	"context"
	"fmt"
)

// User is the authenticated account as served by /me.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsSeller bool   `json:"is_seller"`
	StripeID string `json:"stripe_id,omitempty"`
}

// RegisterParams carries the fields for a new account.
type RegisterParams struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account. The API expects the payload wrapped as
// {"user": {...}}.
func (c *Client) Register(ctx context.Context, params RegisterParams) error {
	payload := map[string]RegisterParams{"user": params}
	if err := c.post(ctx, "/users/register", payload, nil); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

// Login exchanges credentials for a bearer token and the account. The
// token is installed on the client for subsequent authenticated calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, User, error) {
	payload := map[string]map[string]string{
		"user": {"email": email, "password": password},
	}
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.post(ctx, "/users/log_in", payload, &resp); err != nil {
		return "", User{}, fmt.Errorf("log in: %w", err)
	}

	c.SetToken(resp.Token)
	return resp.Token, resp.User, nil
}

// Me fetches the account behind the current bearer token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	if err := c.get(ctx, "/me", &user); err != nil {
		return User{}, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}
