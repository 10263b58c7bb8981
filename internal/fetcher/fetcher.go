// Package fetcher retrieves the JSON metadata document that sits under each
// validated URL.
package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

// DefaultMaxBodyBytes caps a response body when Options leaves it unset.
const DefaultMaxBodyBytes = 5 * 1024 * 1024

// ErrStatus is returned for non-2xx responses when Options.FailOnStatus is set.
var ErrStatus = errors.New("unexpected HTTP status")

// Options controls HTTP fetching behaviour.
type Options struct {
	// Suffix is appended to every URL after a single "/".
	Suffix       string
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	// RateLimit is the maximum number of requests per second. Zero disables it.
	RateLimit    float64
	FailOnStatus bool
	// Client replaces the default client, mainly for tests.
	Client       *http.Client
}

// Response is what came back for one URL.
type Response struct {
	URL         string
	Target      string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
}

// HTTPFetcher issues GET requests with a single shared http.Client.
type HTTPFetcher struct {
	client       *http.Client
	suffix       string
	userAgent    string
	maxBodyBytes int64
	failOnStatus bool
	limiter      *rate.Limiter
}

// New constructs an HTTPFetcher from opts.
func New(opts Options) *HTTPFetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	client := opts.Client
	if client == nil {
		transport := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		client = &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &HTTPFetcher{
		client:       client,
		suffix:       opts.Suffix,
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		failOnStatus: opts.FailOnStatus,
		limiter:      limiter,
	}
}

// Target derives the request URL for raw: the path gets exactly one trailing
// separator and then suffix. Query and fragment are kept.
//
//	https://a.com   -> https://a.com/about.json
//	https://a.com/  -> https://a.com/about.json
func Target(raw, suffix string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("derive target from %q: not an absolute URL", raw)
	}

	suffix = strings.TrimLeft(suffix, "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + suffix
	if u.RawPath != "" {
		u.RawPath = strings.TrimRight(u.RawPath, "/") + "/" + suffix
	}

	target := u.String()
	if _, err := url.ParseRequestURI(target); err != nil {
		return "", fmt.Errorf("derived target %q: %w", target, err)
	}
	return target, nil
}

// Fetch downloads the metadata document for raw. The status code is recorded
// but any body counts as a successful transport unless FailOnStatus is set,
// in which case the response is returned together with an ErrStatus error.
func (f *HTTPFetcher) Fetch(ctx context.Context, raw string) (*Response, error) {
	target, err := Target(raw, f.suffix)
	if err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http fetch failed: %w", err)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, err
	}

	out := &Response{
		URL:         raw,
		Target:      target,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Duration:    time.Since(start),
	}

	if f.failOnStatus && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return out, fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return out, nil
}

func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		rc, err := newDeflateReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("deflate decode: %w", err)
		}
		reader = rc
		closers = append(closers, rc)
	}

	limited := io.LimitReader(reader, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}
	return body, nil
}

// newDeflateReader decodes HTTP "deflate", which is a zlib stream. Some
// servers send raw DEFLATE instead; that is accepted when the zlib header
// is absent.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err != nil && len(header) < 2 {
		if errors.Is(err, io.EOF) {
			return io.NopCloser(br), nil
		}
		return nil, err
	}
	if isZlibHeader(header[0], header[1]) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// isZlibHeader checks CM == 8 (deflate), CINFO <= 7 and the FCHECK checksum.
func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
