package images

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// DefaultDownloadTimeout is the default timeout for image downloads
const DefaultDownloadTimeout = 30 * time.Second

// ErrForbiddenHost is returned when a URL resolves to an address on the
// server's own network.
var ErrForbiddenHost = errors.New("host not allowed")

// cgnatPrefix is the shared address space of RFC 6598.
var cgnatPrefix = netip.MustParsePrefix("100.64.0.0/10")

// Downloader fetches property photos the agent referenced by URL.
// Connections to loopback, private, link-local and unspecified addresses are
// refused, including those reached through redirects.
type Downloader struct {
	client  *resty.Client
	timeout time.Duration
	maxSize int64
}

// NewDownloader creates a new Downloader with default settings.
func NewDownloader() *Downloader {
	return &Downloader{
		client: resty.New().
			SetDebug(false).
			SetTransport(newTransport(false)).
			SetTimeout(DefaultDownloadTimeout).
			SetHeader("Accept", "image/*"),
		timeout: DefaultDownloadTimeout,
		maxSize: DefaultMaxImageSize,
	}
}

// WithAllowPrivateHosts lifts the address restriction, e.g. for images
// served from a local test server.
func (d *Downloader) WithAllowPrivateHosts() *Downloader {
	d.client.SetTransport(newTransport(true))
	return d
}

func newTransport(allowPrivate bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	if !allowPrivate {
		dialer.Control = checkDialAddress
		// A proxy would be dialed instead of the image host
		t.Proxy = nil
	}
	t.DialContext = dialer.DialContext
	return t
}

// checkDialAddress runs after name resolution, so it sees the address that
// is actually connected to.
func checkDialAddress(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if isForbiddenAddr(addr) {
		return fmt.Errorf("%w: %s", ErrForbiddenHost, addr)
	}
	return nil
}

func isForbiddenAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		cgnatPrefix.Contains(addr)
}

// WithTimeout sets a custom timeout for downloads.
func (d *Downloader) WithTimeout(timeout time.Duration) *Downloader {
	d.timeout = timeout
	d.client.SetTimeout(timeout)
	return d
}

// WithMaxSize sets a custom maximum file size.
func (d *Downloader) WithMaxSize(maxSize int64) *Downloader {
	d.maxSize = maxSize
	return d
}

// Download fetches an image from a URL.
// It respects context cancellation and enforces size limits.
func (d *Downloader) Download(ctx context.Context, imageURL string) (Image, error) {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Image{}, fmt.Errorf("invalid image URL: %q", imageURL)
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	log.Info().Str("url", imageURL).Msg("downloading image")

	res, err := handleError(d.client.R().
		SetContext(reqCtx).
		SetDoNotParseResponse(true).
		Get(imageURL))
	if res != nil && res.RawBody() != nil {
		defer res.RawBody().Close()
	}
	if err != nil {
		return Image{}, fmt.Errorf("failed to download image: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return Image{}, fmt.Errorf("download failed: %s (status: %d)", imageURL, res.StatusCode())
	}
	body := res.RawBody()

	// Validate Content-Type is an image
	contentType := res.Header().Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return Image{}, fmt.Errorf("%w: expected image/*, got %s", ErrInvalidContentType, contentType)
	}

	// Check Content-Length if available
	if cl := res.RawResponse.ContentLength; cl > d.maxSize {
		return Image{}, fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", ErrTooLarge, cl, d.maxSize)
	}

	data, err := readLimited(body, d.maxSize)
	if err != nil {
		return Image{}, err
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = u.Host
	}
	return New(name, data, contentType)
}

// DownloadAll fetches each URL in order, stopping at the first failure.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string) ([]Image, error) {
	imgs := make([]Image, 0, len(urls))
	for _, u := range urls {
		img, err := d.Download(ctx, u)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

// ParseURLList splits a textarea value into trimmed, non-empty lines.
func ParseURLList(s string) []string {
	var urls []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("download failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}
	return res, nil
}
