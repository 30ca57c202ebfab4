package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/internal/config"
	"careerpath/internal/coverletter"
	"careerpath/internal/matching"
	"careerpath/internal/observability"
	"careerpath/internal/types"
)

const (
	testResume = "Experienced in Python, SQL, and Power BI for dashboard reporting"
	testJob    = "Looking for a Data Analyst skilled in Python, SQL Server, Tableau, and ETL pipelines"
)

func testAppConfig() *config.Config {
	return &config.Config{
		Letter: config.LetterConfig{
			Tone:    "professional",
			Words:   coverletter.DefaultWordCount,
			Role:    coverletter.DefaultRole,
			Company: coverletter.DefaultCompany,
		},
	}
}

func newTestServer(t *testing.T, mutate func(*ServerConfig)) (*Server, http.Handler) {
	t.Helper()

	cfg := ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		Version:        "test",
		MaxRequestSize: 1 << 20,
		RequestTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := NewServer(testAppConfig(), cfg, matching.NewEngine(nil, nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.RateLimiter != nil {
			s.RateLimiter.Close()
		}
	})

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	return s, s.Handler(om)
}

func postJSON(t *testing.T, h http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMatchEndpoint(t *testing.T) {
	_, h := newTestServer(t, nil)

	body := fmt.Sprintf(`{"resume":%q,"jobDescription":%q}`, testResume, testJob)
	rec := postJSON(t, h, "/match", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var got matching.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 24, got.Match.Score)
	assert.Equal(t, matching.ScoreBreakdown{SkillCoverage: 40, TextSimilarity: 11, KeywordOverlap: 6}, got.Match.Breakdown)
	assert.Equal(t, matching.SkillSet{"python", "sql"}, got.Match.Strengths)
	assert.Equal(t, matching.SkillSet{"etl", "sql server", "tableau"}, got.Match.Gaps)
}

func TestMatchEndpointEmptyTexts(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := postJSON(t, h, "/match", `{"resume":"","jobDescription":""}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got matching.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 50, got.Match.Score)
	assert.Equal(t, 100, got.Match.Breakdown.SkillCoverage)
}

func TestCoverLetterEndpoint(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := postJSON(t, h, "/cover-letter",
		`{"skills":["python","sql"],"gaps":["tableau"],"role":"Data Analyst","company":"Acme","tone":"friendly","words":0}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got types.CoverLetterOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, coverletter.ToneFriendly, got.Tone)
	assert.False(t, got.Truncated)
	assert.Contains(t, got.Text, "Data Analyst")
	assert.Contains(t, got.Text, "Acme")
	assert.Contains(t, got.Text, "python")
}

func TestCoverLetterEndpointDefaults(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := postJSON(t, h, "/cover-letter", `{"skills":["python"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got types.CoverLetterOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, coverletter.ToneProfessional, got.Tone)
	assert.Equal(t, coverletter.DefaultRole, got.Role)
	assert.Equal(t, coverletter.DefaultCompany, got.Company)
}

func TestCoverLetterEndpointRejectsUnknownTone(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := postJSON(t, h, "/cover-letter", `{"skills":["python"],"tone":"sarcastic"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "INVALID_TONE", got.Code)
}

func TestAnalyzeEndpoint(t *testing.T) {
	_, h := newTestServer(t, nil)

	body := fmt.Sprintf(`{"resume":%q,"jobDescription":%q,"role":"Data Analyst","company":"Acme","words":10}`, testResume, testJob)
	rec := postJSON(t, h, "/analyze", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got types.AnalyzeOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 24, got.Analysis.Match.Score)
	assert.True(t, got.Letter.Truncated)
	assert.Equal(t, 10, got.Letter.WordCount)
	assert.True(t, strings.HasSuffix(got.Letter.Text, "..."))
}

func TestRequestValidationErrors(t *testing.T) {
	_, h := newTestServer(t, func(c *ServerConfig) { c.MaxRequestSize = 256 })

	tests := []struct {
		name        string
		contentType string
		body        string
		wantMessage string
	}{
		{"wrong content type", "text/plain", `{}`, "content-type must be application/json"},
		{"malformed json", "application/json", `{"resume":`, "failed to parse JSON"},
		{"body too large", "application/json", `{"resume":"` + strings.Repeat("x", 512) + `"}`, "request body too large"},
		{"negative words", "application/json; charset=utf-8", `{"words":-1}`, "words is below minimum of 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/match"
			if strings.Contains(tt.body, "words") {
				path = "/cover-letter"
			}
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var got ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Contains(t, got.Message, tt.wantMessage)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/match", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	s, h := newTestServer(t, func(c *ServerConfig) { c.APIKeys = []string{"secret-key-123"} })
	body := `{"resume":"python","jobDescription":"python"}`

	assert.Equal(t, http.StatusUnauthorized, postJSON(t, h, "/match", body, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, postJSON(t, h, "/match", body, map[string]string{"X-API-Key": "wrong"}).Code)
	assert.Equal(t, http.StatusOK, postJSON(t, h, "/match", body, map[string]string{"X-API-Key": "secret-key-123"}).Code)
	assert.Equal(t, http.StatusOK, postJSON(t, h, "/match", body, map[string]string{"Authorization": "Bearer secret-key-123"}).Code)

	s.APIKeys.Replace([]string{"rotated"}, 2)
	assert.Equal(t, http.StatusUnauthorized, postJSON(t, h, "/match", body, map[string]string{"X-API-Key": "secret-key-123"}).Code)
	assert.Equal(t, http.StatusOK, postJSON(t, h, "/match", body, map[string]string{"X-API-Key": "rotated"}).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	_, h := newTestServer(t, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 2, ByIP: true}
	})
	body := `{"resume":"python","jobDescription":"python"}`

	assert.Equal(t, http.StatusOK, postJSON(t, h, "/match", body, nil).Code)
	assert.Equal(t, http.StatusOK, postJSON(t, h, "/match", body, nil).Code)

	limited := postJSON(t, h, "/match", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
}

func TestRateLimitIgnoresForwardedHeadersFromUntrustedPeers(t *testing.T) {
	s, h := newTestServer(t, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})
	body := `{"resume":"python","jobDescription":"python"}`

	statuses := make([]int, 0, 20)
	for i := range 20 {
		rec := postJSON(t, h, "/match", body, map[string]string{
			"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i),
			"X-Real-IP":       fmt.Sprintf("10.0.1.%d", i),
		})
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	for _, code := range statuses[1:] {
		assert.Equal(t, http.StatusTooManyRequests, code)
	}
	assert.Equal(t, 1, s.RateLimiter.GetStats()["active_limiters"])
}

func TestRateLimitHonoursForwardedHeadersFromTrustedProxy(t *testing.T) {
	_, h := newTestServer(t, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{
			Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true,
			TrustedProxies: []string{"192.0.2.0/24"},
		}
	})
	body := `{"resume":"python","jobDescription":"python"}`

	// httptest requests arrive from 192.0.2.1
	first := map[string]string{"X-Forwarded-For": "203.0.113.7"}
	assert.Equal(t, http.StatusOK, postJSON(t, h, "/match", body, first).Code)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(t, h, "/match", body, first).Code)

	other := map[string]string{"X-Forwarded-For": "198.51.100.1"}
	assert.Equal(t, http.StatusOK, postJSON(t, h, "/match", body, other).Code)
}

func TestRateLimitByAPIKeyOnlyForKnownKeys(t *testing.T) {
	s, h := newTestServer(t, func(c *ServerConfig) {
		c.APIKeys = []string{"good-key"}
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByAPIKey: true}
	})
	body := `{"resume":"python","jobDescription":"python"}`

	assert.Equal(t, http.StatusUnauthorized, postJSON(t, h, "/match", body, map[string]string{"X-API-Key": "guess-1"}).Code)
	for i := 2; i <= 5; i++ {
		rec := postJSON(t, h, "/match", body, map[string]string{"X-API-Key": fmt.Sprintf("guess-%d", i)})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}

	assert.Equal(t, http.StatusOK, postJSON(t, h, "/match", body, map[string]string{"X-API-Key": "good-key"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(t, h, "/match", body, map[string]string{"X-API-Key": "good-key"}).Code)
	assert.Equal(t, 2, s.RateLimiter.GetStats()["active_limiters"])
}

func TestRequestIDPropagation(t *testing.T) {
	_, h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestHealthAndStats(t *testing.T) {
	_, h := newTestServer(t, nil)
	postJSON(t, h, "/match", `{"resume":"python","jobDescription":"sql"}`, nil)
	postJSON(t, h, "/match", `{`, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "test", health["version"])
	vocab := health["vocabulary"].(map[string]any)
	assert.Greater(t, vocab["skills"], float64(0))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	requests := stats["requests"].(map[string]any)
	assert.Equal(t, float64(2), requests["match"])
	assert.Equal(t, float64(1), requests["failed"])
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, h := newTestServer(t, nil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.serve(ctx, &http.Server{Handler: h, ReadHeaderTimeout: time.Second}, listener)
	}()

	url := "http://" + listener.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewServerRejectsBadLetterDefaults(t *testing.T) {
	cfg := testAppConfig()
	cfg.Letter.Tone = "loud"
	_, err := NewServer(cfg, ServerConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestRateLimitKey(t *testing.T) {
	s, err := NewServer(testAppConfig(), ServerConfig{
		APIKeys:   []string{"k1"},
		RateLimit: &config.RateLimitConfig{ByAPIKey: true, ByIP: true},
	}, nil, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/match", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("X-API-Key", "k1")
	assert.Equal(t, "api:k1", s.rateLimitKey(req))

	req.Header.Set("X-API-Key", "unknown")
	assert.Equal(t, "ip:192.0.2.10", s.rateLimitKey(req))

	s.RateLimit = &config.RateLimitConfig{ByIP: true}
	assert.Equal(t, "ip:192.0.2.10", s.rateLimitKey(req))

	s.RateLimit = &config.RateLimitConfig{}
	assert.Equal(t, "", s.rateLimitKey(req))
}

func TestClientIP(t *testing.T) {
	trusted, err := config.RateLimitConfig{TrustedProxies: []string{"10.0.0.0/8", "192.0.2.10"}}.TrustedProxyPrefixes()
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"untrusted peer ignores headers", "198.51.100.4:1234", "203.0.113.5", "203.0.113.6", "198.51.100.4"},
		{"trusted peer uses forwarded client", "192.0.2.10:1234", "203.0.113.5", "", "203.0.113.5"},
		{"spoofed left entries are skipped", "192.0.2.10:1234", "1.2.3.4, 203.0.113.5, 10.1.1.1", "", "203.0.113.5"},
		{"all hops trusted", "10.0.0.2:1234", "10.9.9.9, 10.0.0.3", "", "10.9.9.9"},
		{"garbage hop falls back to real ip", "192.0.2.10:1234", "bogus", "198.51.100.9", "198.51.100.9"},
		{"trusted peer without headers", "10.0.0.2:1234", "", "", "10.0.0.2"},
		{"ipv4 mapped peer", "[::ffff:198.51.100.4]:1234", "203.0.113.5", "", "198.51.100.4"},
		{"no port", "198.51.100.4", "", "", "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, clientIP(req, trusted))
		})
	}
}

func TestNewServerRejectsBadTrustedProxy(t *testing.T) {
	_, err := NewServer(testAppConfig(), ServerConfig{
		RateLimit: &config.RateLimitConfig{TrustedProxies: []string{"not-an-ip"}},
	}, nil, nil)
	assert.ErrorContains(t, err, "invalid trusted proxy")
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstCapacity: 1, CleanupEvery: time.Hour, IdleTTL: time.Minute}, nil)
	defer rl.Close()

	assert.True(t, rl.Allow("ip:a"))
	assert.False(t, rl.Allow("ip:a"))
	assert.Equal(t, 1, rl.GetStats()["active_limiters"])

	rl.cleanup(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, rl.GetStats()["active_limiters"])
	assert.True(t, rl.Allow("ip:a"))

	rl.Close()
}

func TestAPIKeyStore(t *testing.T) {
	store := NewAPIKeyStore([]string{" alpha ", "", "beta"})
	assert.Equal(t, 2, store.Len())
	assert.True(t, store.Contains("alpha"))
	assert.False(t, store.Contains("gamma"))
	assert.Equal(t, int64(0), store.Version())

	store.Replace(nil, 4)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int64(4), store.Version())
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}
