// Package oracle provides implementations of the boost module's verification
// oracle: an HTTP client against the identity gateway and a static in-memory
// oracle for tests and local nets.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"prizeboost/crypto"
)

// Config defines the HTTP client settings for the identity gateway.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client retrieves verification windows from the upstream identity gateway.
// Responses are cached briefly so a burst of claims for the same winner does
// not hammer the gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cacheTTL   time.Duration

	mu    sync.Mutex
	cache map[[20]byte]cachedWindow
}

type cachedWindow struct {
	until   uint64
	expires time.Time
}

// verificationPayload mirrors the gateway's JSON response.
type verificationPayload struct {
	Address       string `json:"address"`
	VerifiedUntil uint64 `json:"verifiedUntil"`
}

// NewClient constructs a client with sane defaults.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("oracle: base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		cacheTTL:   ttl,
		cache:      make(map[[20]byte]cachedWindow),
	}, nil
}

// VerifiedUntil fetches the end of the verification window for the supplied
// address. A zero return means the identity has never been verified.
func (c *Client) VerifiedUntil(addr [20]byte) (uint64, error) {
	if c == nil {
		return 0, fmt.Errorf("oracle: client not configured")
	}
	now := time.Now()
	c.mu.Lock()
	if entry, ok := c.cache[addr]; ok && now.Before(entry.expires) {
		c.mu.Unlock()
		return entry.until, nil
	}
	c.mu.Unlock()

	encoded := crypto.NewAddress(crypto.BoostPrefix, addr[:]).String()
	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/identity/%s/verification", c.baseURL, encoded), nil)
	if err != nil {
		return 0, fmt.Errorf("oracle: request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle: call: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// Unknown identity: cache the negative answer too.
		c.store(addr, 0, now)
		return 0, nil
	default:
		return 0, fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
	}
	var payload verificationPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("oracle: decode: %w", err)
	}
	c.store(addr, payload.VerifiedUntil, now)
	return payload.VerifiedUntil, nil
}

func (c *Client) store(addr [20]byte, until uint64, now time.Time) {
	c.mu.Lock()
	c.cache[addr] = cachedWindow{until: until, expires: now.Add(c.cacheTTL)}
	c.mu.Unlock()
}

// Static is an in-memory oracle for tests and local nets.
type Static struct {
	mu      sync.RWMutex
	windows map[[20]byte]uint64
}

// NewStatic creates an empty static oracle.
func NewStatic() *Static {
	return &Static{windows: make(map[[20]byte]uint64)}
}

// SetVerifiedUntil records a verification window for an address.
func (s *Static) SetVerifiedUntil(addr [20]byte, until uint64) {
	s.mu.Lock()
	s.windows[addr] = until
	s.mu.Unlock()
}

// VerifiedUntil implements boost.VerificationOracle.
func (s *Static) VerifiedUntil(addr [20]byte) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windows[addr], nil
}
