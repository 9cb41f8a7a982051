// Package identity consumes the external identity provider as an opaque
// authenticated-user contract. The OAuth handshake happens on the provider's
// side; this client only resolves access tokens to users.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pixelmint/pixelmint/internal/config"
)

// ErrUnauthorized is returned when the provider rejects the access token.
var ErrUnauthorized = errors.New("invalid or expired access token")

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// FullName reads the display name from the provider's free-form metadata.
func (u *User) FullName() string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := u.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (u *User) AvatarURL() string {
	if v, ok := u.UserMetadata["avatar_url"].(string); ok {
		return v
	}
	return ""
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.IdentityBaseURL, "/"),
		apiKey:  cfg.IdentityAPIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// GetUser resolves an access token to the user it belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity provider error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	return &user, nil
}
