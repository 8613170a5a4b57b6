package mailer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Relay endpoints that forward a request to the email API when the direct
// route is blocked. Each prefixes the target URL in its own format.
var defaultProxyPrefixes = []string{
	"https://cors-anywhere.herokuapp.com/",
	"https://api.allorigins.win/raw?url=",
	"https://corsproxy.io/?",
	"https://thingproxy.freeboard.io/fetch/",
}

// ProxyStrategy posts the message to the email API through a rotation of
// public relay endpoints, returning on the first one that accepts it.
type ProxyStrategy struct {
	apiURL     string
	prefixes   []string
	httpClient *http.Client
}

// NewProxyStrategy creates a new ProxyStrategy. A nil prefixes slice uses the
// default rotation.
func NewProxyStrategy(apiURL string, prefixes []string, timeout time.Duration) *ProxyStrategy {
	if prefixes == nil {
		prefixes = defaultProxyPrefixes
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ProxyStrategy{
		apiURL:     apiURL,
		prefixes:   prefixes,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements Strategy.
func (s *ProxyStrategy) Name() string { return "cors-proxy" }

// Send implements Strategy.
func (s *ProxyStrategy) Send(ctx context.Context, msg *Message) error {
	var lastErr error
	for _, prefix := range s.prefixes {
		target := s.wrap(prefix)
		if err := postEmailPayload(ctx, s.httpClient, target, msg); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("all relay endpoints failed: %w", lastErr)
}

func (s *ProxyStrategy) wrap(prefix string) string {
	// Relays taking the target as a query parameter need it escaped.
	if len(prefix) > 0 && (prefix[len(prefix)-1] == '=' || prefix[len(prefix)-1] == '?') {
		return prefix + url.QueryEscape(s.apiURL)
	}
	return prefix + s.apiURL
}
