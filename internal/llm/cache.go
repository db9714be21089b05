package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/listing"
	"github.com/tudextra/inmopilot-ai/internal/storage"
)

// DefaultCacheMaxAge bounds how long a grounded price estimate is reused.
const DefaultCacheMaxAge = 24 * time.Hour

// CachedGenerator wraps a Generator with SQLite caching.
type CachedGenerator struct {
	inner  Generator
	store  storage.Store
	maxAge time.Duration
}

// NewCachedGenerator creates a cached generator whose entries expire after
// DefaultCacheMaxAge.
func NewCachedGenerator(inner Generator, store storage.Store) *CachedGenerator {
	return &CachedGenerator{inner: inner, store: store, maxAge: DefaultCacheMaxAge}
}

// WithMaxAge sets how old a cache entry may be. Zero keeps entries forever.
func (c *CachedGenerator) WithMaxAge(maxAge time.Duration) *CachedGenerator {
	c.maxAge = maxAge
	return c
}

func (c *CachedGenerator) expired(entry *storage.GenerationCacheEntry) bool {
	return c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge
}

// requestHash identifies a generation request by its photos and form data.
func requestHash(imgs []images.Image, data listing.ListingData) string {
	h := sha256.New()
	h.Write([]byte(images.Hash(imgs...)))
	h.Write([]byte{0x1e})
	h.Write([]byte(data.CacheKey()))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateListing implements the Generator interface with caching.
func (c *CachedGenerator) GenerateListing(ctx context.Context, imgs []images.Image, data listing.ListingData) (*listing.GenerationResult, error) {
	if len(imgs) == 0 {
		return nil, ErrNoImages
	}

	hash := requestHash(imgs, data)

	// Check cache
	if c.store != nil {
		cached, err := c.store.GetGenerationCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check generation cache")
		} else if cached != nil && c.expired(cached) {
			log.Debug().Str("hash", hash[:16]).Time("cachedAt", cached.CreatedAt).Msg("generation cache entry expired")
		} else if cached != nil {
			log.Debug().Str("hash", hash[:16]).Msg("generation cache hit")
			return &listing.GenerationResult{
				Description:     cached.Description,
				PriceSuggestion: cached.PriceSuggestion,
				Sources:         cached.Sources,
				Usage:           listing.Usage{}, // Zero usage for cached result
				Cached:          true,
			}, nil
		}
	}

	// Call underlying generator
	result, err := c.inner.GenerateListing(ctx, imgs, data)
	if err != nil {
		return nil, err
	}

	// Cache the result
	if c.store != nil {
		entry := &storage.GenerationCacheEntry{
			Description:     result.Description,
			PriceSuggestion: result.PriceSuggestion,
			Sources:         result.Sources,
		}
		if err := c.store.SetGenerationCache(hash, entry); err != nil {
			log.Warn().Err(err).Msg("failed to cache generation result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached generation result")
		}
	}

	return result, nil
}

// GetGeminiGenerator extracts GeminiGenerator from a Generator.
// Recursively unwraps CachedGenerator wrappers to find the underlying GeminiGenerator.
func GetGeminiGenerator(g Generator) *GeminiGenerator {
	curr := g
	for {
		switch t := curr.(type) {
		case *GeminiGenerator:
			return t
		case *CachedGenerator:
			curr = t.inner
		default:
			return nil
		}
	}
}
