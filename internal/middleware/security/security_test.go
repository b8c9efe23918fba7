package security

import (
	"bytes"
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dailyledger/internal/log"
)

func TestClassify(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   Verdict
	}{
		{"plain api call", http.MethodGet, "/api/expenses?day=2024-02-15", "curl/8.0", VerdictClean},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "", VerdictBlocked},
		{"dotenv probe", http.MethodGet, "/.env", "", VerdictBlocked},
		{"trace method", "TRACE", "/api/expenses", "", VerdictBlocked},
		{"eval in query", http.MethodGet, "/api/expenses?q=eval(1)", "", VerdictSuspicious},
		{"scanner agent", http.MethodGet, "/api/expenses", "sqlmap/1.7", VerdictSuspicious},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.ua)
			if got := d.Classify(r); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	if got := d.ExtractClientIP(r); got != "203.0.113.9" {
		t.Errorf("trusted proxy: got %q", got)
	}

	r.RemoteAddr = "198.51.100.7:5555"
	if got := d.ExtractClientIP(r); got != "198.51.100.7" {
		t.Errorf("untrusted peer: got %q", got)
	}

	if err := d.AddTrustedProxy("198.51.100.0/24"); err != nil {
		t.Fatal(err)
	}
	if got := d.ExtractClientIP(r); got != "203.0.113.9" {
		t.Errorf("added proxy: got %q", got)
	}
	if err := d.AddTrustedProxy("nope"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}

func TestDetectorMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Component: "test", Handler: slog.NewTextHandler(&buf, nil)})
	d := NewDetector()
	served := 0
	h := d.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served++
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blocked status = %d", rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	r.Header.Set("User-Agent", "nikto")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if served != 1 {
		t.Fatalf("served = %d, want 1", served)
	}
	m := d.GetMetrics()
	if m.BlockedRequests != 1 || m.SuspiciousRequests != 1 {
		t.Fatalf("metrics = %+v", m)
	}
	if !strings.Contains(buf.String(), "Blocked suspicious request") {
		t.Errorf("missing block log in %q", buf.String())
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/totals", nil))
	if got := rec.Header().Get("Content-Security-Policy"); got != "default-src 'none'; frame-ancestors 'none'" {
		t.Errorf("CSP = %q", got)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/totals", nil)
	r.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}
