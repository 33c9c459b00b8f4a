// Package imageproxy fetches remote images server-side so the browser can
// load them from the API origin.
package imageproxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/docker/go-units"
)

const (
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"

	DefaultProbeTimeout = 10 * time.Second
)

type Image struct {
	Body        []byte
	ContentType string
}

// ProbeResult describes a HEAD request against an image URL.
type ProbeResult struct {
	OK            bool   `json:"ok"`
	Status        int    `json:"status"`
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
	IsImage       bool   `json:"is_image"`
}

type Proxy struct {
	client       *http.Client
	timeout      time.Duration
	probeTimeout time.Duration
	maxBytes     int64
}

// ErrBlockedAddress is returned when a URL resolves to a loopback, private
// or link-local address.
var ErrBlockedAddress = errors.New("destination address not allowed")

// New returns a proxy that refuses to connect to non-public addresses.
func New(timeout time.Duration, maxBytes int64) *Proxy {
	dialer := &net.Dialer{Timeout: timeout, Control: denyPrivate}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &Proxy{
		client:       &http.Client{Transport: transport},
		timeout:      timeout,
		probeTimeout: DefaultProbeTimeout,
		maxBytes:     maxBytes,
	}
}

// AllowPrivateNetworks lifts the address restriction. Used for local
// development and tests against loopback servers.
func (p *Proxy) AllowPrivateNetworks() *Proxy {
	p.client = &http.Client{}
	return p
}

// denyPrivate runs after DNS resolution, so it also covers hostnames that
// resolve to internal addresses.
func denyPrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublic(ip) {
		return ErrBlockedAddress
	}
	return nil
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// Fetch downloads rawURL. Only image/* and octet-stream responses are
// relayed; a non-2xx upstream status is returned as an upstream error
// carrying that status.
func (p *Proxy) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	u, err := ParseImageURL(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.do(ctx, http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream(resp.StatusCode, nil, "failed to fetch image: upstream responded %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsImageContentType(contentType) {
		return nil, apperr.Validation("url does not point to an image (content type %q)", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, classify(ctx, err)
	}
	if int64(len(body)) > p.maxBytes {
		return nil, apperr.Validation("image exceeds %s", units.HumanSize(float64(p.maxBytes)))
	}

	return &Image{Body: body, ContentType: contentType}, nil
}

// Probe issues a HEAD request. Upstream error statuses are reported in the
// result rather than as errors.
func (p *Proxy) Probe(ctx context.Context, rawURL string) (*ProbeResult, error) {
	u, err := ParseImageURL(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	resp, err := p.do(ctx, http.MethodHead, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return &ProbeResult{
		OK:            resp.StatusCode >= 200 && resp.StatusCode <= 299,
		Status:        resp.StatusCode,
		ContentType:   contentType,
		ContentLength: length,
		IsImage:       IsImageContentType(contentType),
	}, nil
}

func (p *Proxy) do(ctx context.Context, method string, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, apperr.Validation("invalid url")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return resp, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrBlockedAddress) {
		return apperr.Validation("url resolves to a non-public address")
	}
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.Timeout("image request timed out")
	}
	return apperr.Upstream(0, err, "failed to fetch image")
}

// ParseImageURL accepts absolute http(s) URLs only.
func ParseImageURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, apperr.Validation("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation("invalid url: %s", rawURL)
	}
	return u, nil
}

func IsImageContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "image/") || strings.Contains(ct, "octet-stream")
}
