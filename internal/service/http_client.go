package service

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewPlatformHTTPClient returns a client that sends at most rps requests per
// second through base. A nil base uses http.DefaultTransport.
func NewPlatformHTTPClient(base http.RoundTripper, rps int, timeout time.Duration) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	if rps <= 0 {
		rps = 1
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &limitedTransport{
			base:    base,
			limiter: rate.NewLimiter(rate.Limit(rps), rps),
		},
	}
}
