// Package fetch downloads remote files into the staging directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/umu-launcher/umu-setup/internal/logging"
	"github.com/umu-launcher/umu-setup/internal/messages"
)

// ErrFetch reports a transport failure or a non-success status from the remote host.
var ErrFetch = errors.New(messages.FetchFailed)

const (
	// DefaultIdleTimeout bounds how long a download may go without receiving data.
	DefaultIdleTimeout = 300 * time.Second
	// DefaultMaxBytes caps the size of a downloaded archive.
	DefaultMaxBytes = int64(4 << 30)

	downloadRetryCount   = 1
	downloadRetryBackoff = 250 * time.Millisecond
)

// Progress receives download progress. Start is called with -1 when the length is unknown.
type Progress interface {
	Start(total int64)
	Advance(n int64)
	Finish()
}

// errStalled is the cancel cause when no data arrived within the idle timeout.
var errStalled = errors.New(messages.FetchStalled)

// Client performs direct HTTP downloads.
type Client struct {
	httpClient  *http.Client
	idleTimeout time.Duration
	maxBytes    int64
	progress   Progress
	log        *logging.Logger
	sleep      func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The idle timeout still applies on top of it.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithIdleTimeout sets how long a download may receive nothing before it fails.
// Non-positive values keep the default.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithMaxBytes caps the response size. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithProgress reports download progress to p.
func WithProgress(p Progress) Option {
	return func(c *Client) {
		c.progress = p
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New returns a Client that fails a download after DefaultIdleTimeout without data.
// The transfer as a whole has no deadline.
func New(opts ...Option) *Client {
	c := &Client{
		idleTimeout: DefaultIdleTimeout,
		maxBytes:    DefaultMaxBytes,
		log:         logging.Nop(),
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: newTransport(c.idleTimeout)}
	}
	return c
}

func newTransport(idle time.Duration) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: idle, KeepAlive: 30 * time.Second}
	transport.DialContext = dialer.DialContext
	transport.ResponseHeaderTimeout = idle
	return transport
}

// Fetch downloads rawURL into dest, replacing any existing file.
// Any non-200 status or transport failure is reported as ErrFetch. A partial file is removed on failure.
func (c *Client) Fetch(ctx context.Context, rawURL string, dest string) error {
	host := hostOf(rawURL)
	var lastErr error
	for attempt := 0; attempt <= downloadRetryCount; attempt++ {
		err := c.fetchOnce(ctx, rawURL, host, dest)
		if err == nil {
			return nil
		}
		_ = os.Remove(dest)
		lastErr = err
		var retry *retryableError
		if !errors.As(err, &retry) || attempt >= downloadRetryCount {
			break
		}
		c.log.Debug().Msgf(messages.FetchRetryingFmt, rawURL, attempt+1, retry.err)
		c.sleep(downloadRetryBackoff)
	}
	var retry *retryableError
	if errors.As(lastErr, &retry) {
		return retry.err
	}
	return lastErr
}

// retryableError marks a failure worth one more attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }

func (e *retryableError) Unwrap() error { return e.err }

func (c *Client) fetchOnce(ctx context.Context, rawURL string, host string, dest string) error {
	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	watchdog := time.AfterFunc(c.idleTimeout, func() { cancel(errStalled) })
	defer watchdog.Stop()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf(messages.FetchCreateRequestFmt, rawURL, err)
	}
	req.Header.Set("User-Agent", "umu-setup")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, reqCtx, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf(messages.FetchStatusFmt, ErrFetch, host, resp.StatusCode)
		if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
			return &retryableError{err: statusErr}
		}
		return statusErr
	}

	c.log.Debug().Str("path", dest).Msg("Writing")
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf(messages.FetchCreateFileFmt, dest, err)
	}

	var body io.Reader = &idleReader{r: io.LimitReader(resp.Body, c.maxBytes+1), timer: watchdog, idle: c.idleTimeout}
	if c.progress != nil {
		c.progress.Start(resp.ContentLength)
		defer c.progress.Finish()
		body = &progressReader{r: body, p: c.progress}
	}
	n, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if copyErr != nil {
		return c.transportError(ctx, reqCtx, rawURL, copyErr)
	}
	if n > c.maxBytes {
		return fmt.Errorf(messages.FetchTooLargeFmt, ErrFetch, rawURL, c.maxBytes)
	}
	if closeErr != nil {
		return fmt.Errorf(messages.FetchCloseFileFmt, dest, closeErr)
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, reqCtx context.Context, rawURL string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf(messages.FetchTransportFmt, ErrFetch, rawURL, ctx.Err())
	}
	if errors.Is(context.Cause(reqCtx), errStalled) || isTimeoutError(err) {
		return fmt.Errorf(messages.FetchTimeoutFmt, ErrFetch, rawURL, c.idleTimeout)
	}
	wrapped := fmt.Errorf(messages.FetchTransportFmt, ErrFetch, rawURL, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &retryableError{err: wrapped}
	}
	return wrapped
}

// isTimeoutError reports whether err is a network timeout.
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// idleReader pushes the stall deadline back every time data arrives.
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (r *idleReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	if n > 0 {
		r.timer.Reset(r.idle)
	}
	return n, err
}

type progressReader struct {
	r io.Reader
	p Progress
}

func (r *progressReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	if n > 0 {
		r.p.Advance(int64(n))
	}
	return n, err
}
