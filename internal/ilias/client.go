package ilias

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"iliassync/internal/ratelimit"
)

// maxTransientRetries bounds immediate retries of the HTTP/2 clean-reset
// false positive; any further failure propagates to the caller.
const maxTransientRetries = 3

// Client issues rate-limited, retry-wrapped requests against ILIAS. The
// underlying http.Client must already carry an authenticated session; how
// that session is established is not this package's concern.
type Client struct {
	httpc     *http.Client
	limiter   *ratelimit.Limiter
	logger    *zap.Logger
	userAgent string
}

// NewClient wraps httpc with the shared rate limiter and retry policy.
func NewClient(httpc *http.Client, limiter *ratelimit.Limiter, logger *zap.Logger, userAgent string) *Client {
	return &Client{
		httpc:     httpc,
		limiter:   limiter,
		logger:    logger,
		userAgent: userAgent,
	}
}

// Get fetches rawurl, resolving site-relative addresses against BaseURL.
func (c *Client) Get(ctx context.Context, rawurl string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, rawurl)
}

// Head issues a HEAD request under the same rate limit and retry policy.
func (c *Client) Head(ctx context.Context, rawurl string) (*http.Response, error) {
	return c.do(ctx, http.MethodHead, rawurl)
}

func (c *Client) do(ctx context.Context, method, rawurl string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	target := resolveURL(rawurl)
	c.logger.Debug("requesting", zap.String("method", method), zap.String("url", target))
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, err
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		resp, err := c.httpc.Do(req)
		if err == nil {
			return resp, nil
		}
		if attempt <= maxTransientRetries && isHTTP2NoError(err) {
			c.logger.Warn("encountered HTTP/2 NO_ERROR, retrying request",
				zap.String("url", target),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return nil, err
	}
}

// resolveURL mirrors how hrefs appear in ILIAS markup: absolute, schemeless
// on the site host, or site-relative.
func resolveURL(rawurl string) string {
	switch {
	case strings.HasPrefix(rawurl, "http://") || strings.HasPrefix(rawurl, "https://"):
		return rawurl
	case strings.HasPrefix(rawurl, "ilias.studium.kit.edu"):
		return "https://" + rawurl
	default:
		return BaseURL + rawurl
	}
}

// isHTTP2NoError reports whether err is the spurious stream reset some
// servers send with reason NO_ERROR when reusing a connection.
func isHTTP2NoError(err error) bool {
	var streamErr http2.StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Code == http2.ErrCodeNo
	}
	var goAway http2.GoAwayError
	if errors.As(err, &goAway) {
		return goAway.ErrCode == http2.ErrCodeNo
	}
	return false
}
