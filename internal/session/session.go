// Package session keeps the in-progress listing forms ("drafts") and the
// rendered generation results between requests.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/listing"
)

const (
	DefaultDraftTTL   = time.Hour
	DefaultResultTTL  = time.Hour
	DefaultMaxImages  = 10
	DefaultMaxResults = 50

	cleanupInterval = 10 * time.Minute
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrTooManyImages = errors.New("too many images")
)

// Options configures a Store. Zero values fall back to the defaults.
type Options struct {
	DraftTTL  time.Duration
	ResultTTL time.Duration
	MaxImages int
	// MaxResults caps the result views held at once. The one closest to
	// expiry is evicted first.
	MaxResults int
}

// Store holds drafts and results in memory with expiry.
type Store struct {
	drafts     *cache.Cache
	results    *cache.Cache
	resultsMu  sync.Mutex
	maxImages  int
	maxResults int
}

func NewStore(opts Options) *Store {
	if opts.DraftTTL <= 0 {
		opts.DraftTTL = DefaultDraftTTL
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	return &Store{
		drafts:     cache.New(opts.DraftTTL, cleanupInterval),
		results:    cache.New(opts.ResultTTL, cleanupInterval),
		maxImages:  opts.MaxImages,
		maxResults: opts.MaxResults,
	}
}

// New creates a draft with the default form values and no images.
func (s *Store) New() *Draft {
	d := &Draft{
		ID:        uuid.NewString(),
		data:      listing.DefaultListingData(),
		maxImages: s.maxImages,
	}
	s.drafts.SetDefault(d.ID, d)
	return d
}

// Get returns the draft and extends its lifetime.
func (s *Store) Get(id string) (*Draft, error) {
	v, ok := s.drafts.Get(id)
	if !ok {
		return nil, ErrDraftNotFound
	}
	d := v.(*Draft)
	s.drafts.SetDefault(id, d)
	return d, nil
}

func (s *Store) Delete(id string) {
	s.drafts.Delete(id)
}

// PutResult stores the result view of a finished generation under id,
// evicting the oldest views beyond MaxResults.
func (s *Store) PutResult(id string, view *ResultView) {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()

	if _, exists := s.results.Get(id); !exists {
		s.results.DeleteExpired()
		for s.results.ItemCount() >= s.maxResults {
			if !s.evictOldestResult() {
				break
			}
		}
	}
	s.results.SetDefault(id, view)
}

func (s *Store) evictOldestResult() bool {
	var oldestID string
	var oldest int64
	for id, item := range s.results.Items() {
		if oldestID == "" || item.Expiration < oldest {
			oldestID, oldest = id, item.Expiration
		}
	}
	if oldestID == "" {
		return false
	}
	s.results.Delete(oldestID)
	return true
}

func (s *Store) Result(id string) (*ResultView, bool) {
	v, ok := s.results.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*ResultView), true
}

func (s *Store) DeleteResult(id string) {
	s.results.Delete(id)
}

// Draft is the agent's form state: property attributes plus the photos
// attached so far.
type Draft struct {
	ID string

	mu        sync.Mutex
	data      listing.ListingData
	images    []images.Image
	maxImages int
}

func (d *Draft) Data() listing.ListingData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

func (d *Draft) SetData(data listing.ListingData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = data
}

// Images returns a copy of the attached images.
func (d *Draft) Images() []images.Image {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]images.Image, len(d.images))
	copy(out, d.images)
	return out
}

func (d *Draft) ImageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.images)
}

func (d *Draft) MaxImages() int {
	return d.maxImages
}

// AddImages appends imgs. Nothing is added when the total would exceed the
// draft's image limit.
func (d *Draft) AddImages(imgs ...images.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.images)+len(imgs) > d.maxImages {
		return fmt.Errorf("%w: %d + %d exceeds limit of %d", ErrTooManyImages, len(d.images), len(imgs), d.maxImages)
	}
	d.images = append(d.images, imgs...)
	return nil
}

// Reset restores the default form values and clears the images.
func (d *Draft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = listing.DefaultListingData()
	d.images = nil
}

// Previews renders the attached images as data URLs.
func (d *Draft) Previews() []Preview {
	return NewPreviews(d.Images())
}

// Preview is an image ready to embed in a page.
type Preview struct {
	Name    string
	DataURL string
}

func NewPreviews(imgs []images.Image) []Preview {
	previews := make([]Preview, len(imgs))
	for i, img := range imgs {
		previews[i] = Preview{Name: img.Name, DataURL: img.DataURL()}
	}
	return previews
}

// ResultView is everything the result page shows for one generation.
// Images are kept raw and encoded for the page on each render.
type ResultView struct {
	ID        string
	CreatedAt time.Time
	Data      listing.ListingData
	Result    listing.GenerationResult
	Images    []images.Image
}

func (v *ResultView) Previews() []Preview {
	return NewPreviews(v.Images)
}
