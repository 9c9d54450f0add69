package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"posturewatch.org/internal/auth"
	"posturewatch.org/internal/posture"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "provider-token",
				"token_type":   "bearer",
			})
		case "/userinfo":
			writeJSON(w, http.StatusOK, map[string]any{
				"sub":     "sub-123",
				"name":    "Test Account",
				"email":   "test@example.com",
				"picture": "https://example.com/avatar.png",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(provider.Close)

	codec, err := auth.NewCodec("test-secret", "posturewatch")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	exchanger := auth.NewExchanger(map[string]auth.ProviderConfig{
		"google": {
			Name:         "Google",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			TokenURL:     provider.URL + "/token",
			UserInfoURL:  provider.URL + "/userinfo",
		},
	}, time.Second)
	manager, err := auth.NewManager(auth.NewInMemory(), codec, exchanger)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	detector := posture.NewDetector(1.0, nil)
	postureSvc := posture.NewService(posture.NewInMemory(), detector)

	api := New(ReadyProbe{}, "test", manager, postureSvc)
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) login() (string, map[string]any) {
	c.t.Helper()
	resp := c.post("/auth/login", map[string]any{
		"provider":     "google",
		"code":         "auth-code",
		"redirect_uri": "http://localhost:3000/callback",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode login response: %v", err)
	}
	token, _ := payload["access_token"].(string)
	if token == "" {
		c.t.Fatalf("empty access token issued")
	}
	return token, payload
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestLoginIssuesSessionToken(t *testing.T) {
	api := newTestAPI(t)

	token, payload := api.login()
	if payload["token_type"] != "bearer" {
		t.Fatalf("unexpected token_type: %v", payload["token_type"])
	}
	account, ok := payload["account"].(map[string]any)
	if !ok {
		t.Fatalf("missing account in login response")
	}
	if account["email"] != "test@example.com" {
		t.Fatalf("unexpected email: %v", account["email"])
	}
	if account["provider"] != "google" {
		t.Fatalf("unexpected provider: %v", account["provider"])
	}

	// Token grants access to the profile endpoint.
	resp := api.get("/auth/me", nil, map[string]string{"Authorization": "Bearer " + token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected /auth/me status: %d", resp.StatusCode)
	}
	me := decode[map[string]any](t, resp)
	if me["id"] != account["id"] {
		t.Fatalf("profile mismatch: %v vs %v", me["id"], account["id"])
	}
}

func TestLoginRepeatReturnsSameAccount(t *testing.T) {
	api := newTestAPI(t)

	_, first := api.login()
	_, second := api.login()

	firstAcc := first["account"].(map[string]any)
	secondAcc := second["account"].(map[string]any)
	if firstAcc["id"] != secondAcc["id"] {
		t.Fatalf("expected same account across logins: %v vs %v", firstAcc["id"], secondAcc["id"])
	}
	if first["access_token"] == second["access_token"] {
		t.Fatalf("expected distinct session tokens per login")
	}
}

func TestLoginValidation(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/auth/login", map[string]any{"provider": "", "code": "x"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp = api.post("/auth/login", map[string]any{"provider": "google", "code": ""}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLoginUnknownProviderRejected(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/auth/login", map[string]any{
		"provider": "gitlab",
		"code":     "auth-code",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login()
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	resp := api.post("/auth/logout", nil, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = api.get("/auth/me", nil, authHeader)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
	errBody := decode[map[string]any](t, resp)
	if errBody["error"] != "token revoked" {
		t.Fatalf("unexpected error message: %v", errBody["error"])
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/pose/baseline", map[string]any{
		"landmarks": []map[string]float64{{"x": 0, "y": 0}},
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestPostureFlow(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login()
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	// Sampling before a baseline exists is a conflict.
	resp := api.post("/pose/sample", map[string]any{
		"landmarks": []map[string]float64{{"x": 0, "y": 0}},
	}, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 without baseline, got %d", resp.StatusCode)
	}

	// Capture a baseline at the origin.
	resp = api.post("/pose/baseline", map[string]any{
		"landmarks": []map[string]float64{{"x": 0, "y": 0}},
	}, authHeader)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	baseline := decode[map[string]any](t, resp)
	if baseline["id"] == "" {
		t.Fatalf("expected baseline id")
	}

	// A conforming sample is no violation.
	resp = api.post("/pose/sample", map[string]any{
		"landmarks": []map[string]float64{{"x": 0.5, "y": 0}},
	}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	result := decode[map[string]any](t, resp)
	if result["is_violation"] != false {
		t.Fatalf("expected no violation, got %v", result)
	}

	// A sample past the threshold is a violation.
	resp = api.post("/pose/sample", map[string]any{
		"landmarks": []map[string]float64{{"x": 2, "y": 0}},
	}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	result = decode[map[string]any](t, resp)
	if result["is_violation"] != true {
		t.Fatalf("expected violation, got %v", result)
	}
	if result["score"].(float64) != 2.0 {
		t.Fatalf("unexpected score: %v", result["score"])
	}

	// A mismatched landmark count is unprocessable.
	resp = api.post("/pose/sample", map[string]any{
		"landmarks": []map[string]float64{{"x": 0, "y": 0}, {"x": 1, "y": 1}},
	}, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	// Stats for today reflect the single violation.
	resp = api.get("/pose/stats", nil, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	stats := decode[statsResponse](t, resp)
	if stats.ViolationCount != 1 {
		t.Fatalf("unexpected violation count: %d", stats.ViolationCount)
	}
	if stats.MeanScore != 2.0 {
		t.Fatalf("unexpected mean score: %v", stats.MeanScore)
	}
	if stats.Period != time.Now().UTC().Format("2006-01-02") {
		t.Fatalf("unexpected period: %s", stats.Period)
	}
}

func TestStatsRejectsMalformedPeriod(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login()

	resp := api.get("/pose/stats", url.Values{"period": []string{"03/01/2026"}}, map[string]string{
		"Authorization": "Bearer " + token,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBaselineRejectsEmptyLandmarks(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login()

	resp := api.post("/pose/baseline", map[string]any{
		"landmarks": []map[string]float64{},
	}, map[string]string{"Authorization": "Bearer " + token})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthEndpointsArePublic(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.get(path, nil, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}
