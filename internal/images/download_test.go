package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// newTestDownloader can reach the httptest servers on 127.0.0.1.
func newTestDownloader() *Downloader {
	return NewDownloader().WithAllowPrivateHosts()
}

func TestDownloader_Download_Success(t *testing.T) {
	var handlerCalled bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/salon.png" {
			t.Errorf("invalid request to test server: %s %s", r.Method, r.URL.Path)
		}
		handlerCalled = true
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(pngMagic)
	}))
	defer ts.Close()

	img, err := newTestDownloader().Download(context.Background(), ts.URL+"/salon.png")
	require.NoError(t, err)

	assert.True(t, handlerCalled)
	assert.Equal(t, "salon.png", img.Name)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, pngMagic, img.Data)
}

func TestDownloader_Download_RejectsUnsniffableContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("123"))
	}))
	defer ts.Close()

	_, err := newTestDownloader().Download(context.Background(), ts.URL+"/foo.jpeg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidContentType))
}

func TestDownloader_Download_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestDownloader().Download(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 404")
}

func TestDownloader_Download_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// This should never be reached
		t.Error("request should have been canceled")
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := newTestDownloader().Download(ctx, ts.URL)
	assert.Error(t, err)
}

func TestDownloader_Download_SizeLimit(t *testing.T) {
	largeData := make([]byte, 100)
	copy(largeData, pngMagic)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(largeData)
	}))
	defer ts.Close()

	_, err := newTestDownloader().WithMaxSize(50).Download(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
	assert.Contains(t, err.Error(), "too large")
}

func TestDownloader_Download_ContentLengthExceedsLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", "999999999")
		w.WriteHeader(http.StatusOK)
		// Don't actually write that much data
	}))
	defer ts.Close()

	_, err := newTestDownloader().WithMaxSize(1000).Download(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestDownloader_Download_InvalidContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer ts.Close()

	_, err := newTestDownloader().Download(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidContentType))
	assert.Contains(t, err.Error(), "invalid content type")
}

func TestDownloader_Download_RejectsNonHTTPURL(t *testing.T) {
	_, err := newTestDownloader().Download(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid image URL")
}

func TestDownloader_DownloadAll_StopsAtFirstError(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if strings.HasSuffix(r.URL.Path, "missing.png") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngMagic)
	}))
	defer ts.Close()

	_, err := newTestDownloader().DownloadAll(context.Background(), []string{
		ts.URL + "/a.png",
		ts.URL + "/missing.png",
		ts.URL + "/b.png",
	})
	assert.Error(t, err)
	assert.Equal(t, 2, requests)
}

func TestDownloader_Download_RejectsPrivateHosts(t *testing.T) {
	var handlerCalled bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngMagic)
	}))
	defer ts.Close()

	_, err := NewDownloader().Download(context.Background(), ts.URL+"/salon.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host not allowed")
	assert.False(t, handlerCalled)

	_, err = NewDownloader().Download(context.Background(), "http://localhost:1/salon.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host not allowed")
}

func TestIsForbiddenAddr(t *testing.T) {
	tests := []struct {
		addr      string
		forbidden bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.10", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"::1", true},
		{"::", true},
		{"fc00::1", true},
		{"fe80::1", true},
		{"::ffff:127.0.0.1", true},
		{"::ffff:10.0.0.1", true},
		{"8.8.8.8", false},
		{"151.101.1.69", false},
		{"2a00:1450:4003:80f::200e", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.forbidden, isForbiddenAddr(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestParseURLList(t *testing.T) {
	urls := ParseURLList("  https://a.example/1.jpg \n\n\thttps://b.example/2.png\r\n")
	assert.Equal(t, []string{"https://a.example/1.jpg", "https://b.example/2.png"}, urls)
	assert.Nil(t, ParseURLList("   \n"))
}
