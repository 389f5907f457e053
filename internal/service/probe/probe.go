package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/oshokin/serve-bootstrap/internal/logger"
)

const (
	// DefaultTimeout bounds the whole probe.
	DefaultTimeout = 30 * time.Second
	// DefaultInterval is the delay between attempts.
	DefaultInterval = 250 * time.Millisecond
)

var (
	// ErrUnreachable is returned when the deadline passes without a successful attempt.
	ErrUnreachable = errors.New("server is not reachable")
	// errBadHTTPStatus is returned when the health endpoint answers with a non-2xx status.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errAddressRequired is returned when no address is given.
	errAddressRequired = errors.New("address must be provided")
)

// Options controls the probe.
type Options struct {
	// Address is the host:port to connect to.
	Address string
	// HealthPath, when set, must answer an HTTP GET with a 2xx status.
	HealthPath string
	// Timeout bounds the whole probe; DefaultTimeout when zero.
	Timeout time.Duration
	// Interval is the delay between attempts; DefaultInterval when zero.
	Interval time.Duration
	// HTTPClient performs health requests; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// LocalAddress turns a bind host into something a client can dial:
// wildcard and empty hosts become loopback.
func LocalAddress(host string, port string) string {
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::", "[::]":
		host = "::1"
	}

	return net.JoinHostPort(host, port)
}

// Wait retries until the server accepts a TCP connection (and answers the
// health path, if any) or the timeout passes.
func Wait(ctx context.Context, opts *Options) error {
	if opts == nil || opts.Address == "" {
		return errAddressRequired
	}

	ctx = logger.WithName(ctx, "probe")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	attempts := 0

	for {
		attempts++

		err := attempt(ctx, opts, interval)
		if err == nil {
			logger.InfoKV(ctx, "Server is reachable", "address", opts.Address, "attempts", attempts)
			return nil
		}

		logger.DebugKV(ctx, "Probe attempt failed", "address", opts.Address, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s after %d attempts: %w: %w", opts.Address, attempts, ErrUnreachable, err)
		case <-ticker.C:
		}
	}
}

// attempt makes one connection and, optionally, one health request.
func attempt(ctx context.Context, opts *Options, dialTimeout time.Duration) error {
	dialer := &net.Dialer{Timeout: dialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		return err
	}

	_ = conn.Close()

	if opts.HealthPath == "" {
		return nil
	}

	return checkHealth(ctx, opts)
}

func checkHealth(ctx context.Context, opts *Options) error {
	target := url.URL{
		Scheme: "http",
		Host:   opts.Address,
		Path:   opts.HealthPath,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return err
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	response, err := client.Do(req)
	if err != nil {
		return err
	}

	_ = response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s, %s: %w", target.String(), response.Status, errBadHTTPStatus)
	}

	return nil
}
