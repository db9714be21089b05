package llm

import (
	"context"
	"errors"

	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/listing"
)

// ErrNoImages is returned when a listing is requested without any photos.
var ErrNoImages = errors.New("no images provided")

// Generator produces the listing description and price estimate for a property.
type Generator interface {
	// GenerateListing runs the description and price requests and merges
	// their results. It fails if either request fails.
	GenerateListing(ctx context.Context, imgs []images.Image, data listing.ListingData) (*listing.GenerationResult, error)
}
