// Package web serves the InmoPilot pages: the listing generator form, the
// generated listing, the history and the prompt academy.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/llm"
	"github.com/tudextra/inmopilot-ai/internal/session"
	"github.com/tudextra/inmopilot-ai/internal/storage"
)

const (
	DefaultHistoryLimit = 20

	// multipartMemory is how much of an upload is kept in memory before
	// spilling to temporary files.
	multipartMemory = 32 << 20
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"home", "generator", "result", "history", "academy"}

// Options configures a Server.
type Options struct {
	Generator  llm.Generator
	Store      storage.Store
	Sessions   *session.Store
	Downloader *images.Downloader
	Journal    *Journal

	MaxImages     int
	MaxImageBytes int64
	// MaxRequestBytes caps a whole form submission. Defaults to room for
	// MaxImages images of MaxImageBytes plus 1 MiB of form fields.
	MaxRequestBytes int64
	HistoryLimit    int
}

// Server renders the application pages.
type Server struct {
	gen        llm.Generator
	store      storage.Store
	sessions   *session.Store
	downloader *images.Downloader
	journal    *Journal

	maxImages       int
	maxImageBytes   int64
	maxRequestBytes int64
	historyLimit    int

	templates map[string]*template.Template
	mux       *http.ServeMux
}

func NewServer(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = session.DefaultMaxImages
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = images.DefaultMaxImageSize
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = int64(opts.MaxImages)*opts.MaxImageBytes + 1<<20
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewStore(session.Options{MaxImages: opts.MaxImages})
	}
	if opts.Downloader == nil {
		opts.Downloader = images.NewDownloader().WithMaxSize(opts.MaxImageBytes)
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		gen:             opts.Generator,
		store:           opts.Store,
		sessions:        opts.Sessions,
		downloader:      opts.Downloader,
		journal:         opts.Journal,
		maxImages:       opts.MaxImages,
		maxImageBytes:   opts.MaxImageBytes,
		maxRequestBytes: opts.MaxRequestBytes,
		historyLimit:    opts.HistoryLimit,
		templates:       templates,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /generator", s.handleNewDraft)
	s.mux.HandleFunc("GET /generator/{draft}", s.handleDraft)
	s.mux.HandleFunc("POST /generator/{draft}/images", s.handleAttachImages)
	s.mux.HandleFunc("POST /generator/{draft}/reset", s.handleReset)
	s.mux.HandleFunc("POST /generator/{draft}", s.handleSubmit)
	s.mux.HandleFunc("GET /listings/{id}", s.handleListing)
	s.mux.HandleFunc("POST /listings/{id}/delete", s.handleDeleteListing)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("GET /academy", s.handleAcademy)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return accessLog(s.mux)
}

var templateFuncs = template.FuncMap{
	"pluralize": pluralize,
	// previewURL marks a data URL built from a sniffed image as safe for src.
	"previewURL": func(p session.Preview) template.URL {
		if !strings.HasPrefix(p.DataURL, "data:image/") {
			return ""
		}
		return template.URL(p.DataURL)
	},
}

func parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = t
	}
	return templates, nil
}

// page is the data every template receives.
type page struct {
	View View
	Nav  []View
	Body any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, view View, body any) {
	t, ok := s.templates[name]
	if !ok {
		zerolog.Ctx(r.Context()).Error().Str("template", name).Msg("unknown template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page{View: view, Nav: navViews, Body: body}); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
