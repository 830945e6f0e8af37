package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

type client struct {
	base  string
	http  *http.Client
	token string
}

func (c *client) call(ctx context.Context, method, path string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func main() {
	base := os.Getenv("JAMAAT_API_URL")
	if base == "" {
		base = "http://localhost:5000"
	}
	c := &client{base: base, http: &http.Client{Timeout: 10 * time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if code, err := c.call(ctx, http.MethodGet, "/health", nil, nil); err != nil || code != http.StatusOK {
		log.Fatalf("health: status=%d err=%v", code, err)
	}

	var msg struct {
		Message string `json:"message"`
	}
	if code, err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &msg); err != nil || code != http.StatusUnauthorized {
		log.Fatalf("anonymous me: status=%d err=%v", code, err)
	}

	suffix := uuid.NewString()[:8]
	email := "smoke-" + suffix + "@example.com"
	password := uuid.NewString()
	reg := map[string]string{
		"firstName": "Smoke",
		"lastName":  "Test",
		"username":  "smoke-" + suffix,
		"email":     email,
		"password":  password,
	}
	if code, err := c.call(ctx, http.MethodPost, "/api/auth/register", reg, &msg); err != nil || code != http.StatusCreated {
		log.Fatalf("register: status=%d message=%q err=%v", code, msg.Message, err)
	}

	var login struct {
		Token string `json:"token"`
		User  struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	code, err := c.call(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &login)
	if err != nil || code != http.StatusOK {
		log.Fatalf("login: status=%d err=%v", code, err)
	}
	if login.User.Role != "user" {
		log.Fatalf("new accounts must start as user, got %q", login.User.Role)
	}
	c.token = login.Token

	var me struct {
		ID string `json:"id"`
	}
	if code, err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &me); err != nil || code != http.StatusOK || me.ID != login.User.ID {
		log.Fatalf("me: status=%d id=%q err=%v", code, me.ID, err)
	}

	body := map[string]any{"name": "Smoke", "address": "nowhere", "coordinates": []float64{0, 0}}
	if code, err := c.call(ctx, http.MethodPost, "/api/mosques", body, &msg); err != nil || code != http.StatusForbidden {
		log.Fatalf("user must not create mosques: status=%d err=%v", code, err)
	}

	var page struct {
		TotalEvents int `json:"totalEvents"`
	}
	if code, err := c.call(ctx, http.MethodGet, "/api/events?upcoming=true", nil, &page); err != nil || code != http.StatusOK {
		log.Fatalf("list events: status=%d err=%v", code, err)
	}

	fmt.Printf("✅ jamaat-api smoke test passed: user=%s upcoming_events=%d\n", login.User.ID, page.TotalEvents)
}
