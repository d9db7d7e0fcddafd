package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/auth"
	"github.com/civicalert/civicalert-server/internal/config"
	"github.com/civicalert/civicalert-server/internal/realtime"
	"github.com/civicalert/civicalert-server/internal/service/analytics"
	"github.com/civicalert/civicalert-server/internal/service/notifications"
	"github.com/civicalert/civicalert-server/internal/service/reports"
	"github.com/civicalert/civicalert-server/internal/store/sqlite"
)

type testServer struct {
	ts   *httptest.Server
	hub  *realtime.Hub
	auth *auth.Service
	st   *sqlite.SQLiteStore
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zerolog.Nop()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})

	hub := realtime.NewHub(authService, &logger)
	notificationService := notifications.NewService(st, hub, &logger)
	reportService := reports.NewService(st, hub, notificationService, &logger)
	analyticsService := analytics.NewService(st)

	server := NewServer(hub, Services{
		Auth:          authService,
		Reports:       reportService,
		Notifications: notificationService,
		Analytics:     analyticsService,
	}, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, hub: hub, auth: authService, st: st}
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}

	return resp, data
}

// registerCitizen registers a citizen account and returns its id and token.
func (s *testServer) registerCitizen(t *testing.T, name, email string) (string, string) {
	t.Helper()

	resp, data := s.doJSON(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", email, resp.StatusCode, data)
	}

	var auth AuthResponse
	if err := json.Unmarshal(data, &auth); err != nil {
		t.Fatalf("unmarshal auth response: %v", err)
	}

	claims, err := s.auth.ValidateToken(auth.Token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}

	return claims.UserID, auth.Token
}

// loginAdmin creates an admin account and returns its id and token.
func (s *testServer) loginAdmin(t *testing.T, name, email string) (string, string) {
	t.Helper()

	user, err := s.auth.CreateAdmin(context.Background(), name, email, "password123")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}

	token, err := s.auth.Login(context.Background(), email, "password123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}

	return user.ID, token
}

func sampleReportRequest() ReportRequest {
	return ReportRequest{
		Type:        "flood",
		Severity:    "high",
		Description: "river overflowing near the bridge",
		Latitude:    -6.2,
		Longitude:   106.8,
		Address:     "Jalan Merdeka 1",
	}
}
