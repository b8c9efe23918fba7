package security

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"dailyledger/internal/log"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Verdict classifies a request.
type Verdict int

const (
	VerdictClean Verdict = iota
	// VerdictSuspicious requests are logged and served.
	VerdictSuspicious
	// VerdictBlocked requests never reach the API.
	VerdictBlocked
)

var (
	// Probes for files and admin panels the ledger never serves.
	blockedPatterns = []string{
		"../", "..\\", "%2e%2e", ".env", ".git", ".ssh", "etc/passwd",
		"wp-admin", "phpmyadmin", "admin.php", "config.php", "cmd.exe",
	}
	injectionPatterns = []string{
		"<script", "javascript:", "eval(", "union select", "drop table",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}
	unusualMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

// Detector handles suspicious request detection
type Detector struct {
	metrics        DetectionMetrics
	mu             sync.RWMutex
	trustedProxies []*net.IPNet
}

// NewDetector creates a detector that trusts loopback and private networks
// as proxies.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("::1/128"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// Classify inspects path, query, method, user agent and forwarding headers.
func (d *Detector) Classify(r *http.Request) Verdict {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)

	for _, p := range blockedPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return VerdictBlocked
		}
	}
	if unusualMethods[r.Method] {
		return VerdictBlocked
	}
	if len(r.URL.String()) > 2048 {
		return VerdictBlocked
	}

	for _, p := range injectionPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return VerdictSuspicious
		}
	}
	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range scannerAgents {
		if strings.Contains(ua, agent) {
			return VerdictSuspicious
		}
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return VerdictSuspicious
	}
	return VerdictClean
}

// DetectSuspiciousRequest reports whether r is anything but clean.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	return d.Classify(r) != VerdictClean
}

// Middleware logs suspicious requests and answers blocked ones with a JSON 400.
func (d *Detector) Middleware(logger *log.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(log.ComponentSecurity)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := d.Classify(r)
			if verdict == VerdictClean {
				next.ServeHTTP(w, r)
				return
			}

			fields := log.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
				WithClientIP(d.ExtractClientIP(r))

			if verdict == VerdictBlocked {
				atomic.AddInt64(&d.metrics.BlockedRequests, 1)
				logger.WarnContext(r.Context(), "Blocked suspicious request", fields.ToSlice()...)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad request"})
				return
			}

			atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
			logger.WarnContext(r.Context(), "Suspicious request", fields.ToSlice()...)
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractClientIP returns the peer address, or the first valid forwarded
// address when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		BlockedRequests:    atomic.LoadInt64(&d.metrics.BlockedRequests),
	}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.mu.Lock()
	d.trustedProxies = append(d.trustedProxies, network)
	d.mu.Unlock()
	return nil
}
