package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/listing"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultModel             = "gemini-2.5-flash"
	DefaultMaxImages         = 10
	DefaultRequestsPerMinute = 30
)

// Call names reported in GenerationResult.Calls
const (
	CallDescription = "description"
	CallPrice       = "price"
)

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30 // text/image/video
	geminiOutputPricePerMillion = 2.50 // including thinking
)

// contentGenerator is the subset of *genai.Models used by GeminiGenerator.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configures a GeminiGenerator. Zero values fall back to the defaults.
type GeminiOptions struct {
	Model             string
	MaxImages         int
	RequestsPerMinute int
}

// GeminiGenerator uses Google's Gemini API for listing copy and price estimation.
type GeminiGenerator struct {
	models    contentGenerator
	model     string
	maxImages int
	limiter   *rate.Limiter
}

// NewGeminiGenerator creates a new Gemini-based generator authenticated with apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey string, opts GeminiOptions) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiGenerator(client.Models, opts), nil
}

func newGeminiGenerator(models contentGenerator, opts GeminiOptions) *GeminiGenerator {
	g := &GeminiGenerator{
		models:    models,
		model:     opts.Model,
		maxImages: opts.MaxImages,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.maxImages <= 0 {
		g.maxImages = DefaultMaxImages
	}
	rpm := opts.RequestsPerMinute
	if rpm == 0 {
		rpm = DefaultRequestsPerMinute
	}
	// Negative disables limiting. Burst 2 admits both calls of one listing at once.
	if rpm > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 2)
	}
	return g
}

// Model returns the Gemini model name used for both calls.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// callResult is the outcome of a single Gemini call.
type callResult struct {
	text    string
	sources []listing.Source
	usage   listing.Usage
}

// GenerateListing implements the Generator interface. The description and
// price requests run concurrently and the first failure cancels the other.
func (g *GeminiGenerator) GenerateListing(ctx context.Context, imgs []images.Image, data listing.ListingData) (*listing.GenerationResult, error) {
	if len(imgs) == 0 {
		return nil, ErrNoImages
	}
	if len(imgs) > g.maxImages {
		log.Warn().Int("imageCount", len(imgs)).Int("maxImages", g.maxImages).Msg("too many images, truncating")
		imgs = imgs[:g.maxImages]
	}

	var description, price *callResult
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		r, err := g.generateDescription(egCtx, imgs, data)
		if err != nil {
			return fmt.Errorf("description generation failed: %w", err)
		}
		description = r
		return nil
	})

	eg.Go(func() error {
		r, err := g.estimatePrice(egCtx, data)
		if err != nil {
			return fmt.Errorf("price estimation failed: %w", err)
		}
		price = r
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &listing.GenerationResult{
		Description:     description.text,
		PriceSuggestion: price.text,
		Sources:         price.sources,
		Usage:           description.usage.Add(price.usage),
		Calls: []listing.CallUsage{
			{Call: CallDescription, Usage: description.usage},
			{Call: CallPrice, Usage: price.usage},
		},
	}, nil
}

func (g *GeminiGenerator) generateDescription(ctx context.Context, imgs []images.Image, data listing.ListingData) (*callResult, error) {
	// Images first, then the instructions
	parts := make([]*genai.Part, 0, len(imgs)+1)
	for _, img := range imgs {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType},
		})
	}
	parts = append(parts, genai.NewPartFromText(listing.DescriptionPrompt(data)))

	r, err := g.execute(ctx, parts, nil)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("model", g.model).
		Int("imageCount", len(imgs)).
		Int64("inputTokens", r.usage.InputTokens).
		Int64("outputTokens", r.usage.OutputTokens).
		Float64("costUSD", r.usage.CostUSD).
		Msg("description llm call")

	return r, nil
}

func (g *GeminiGenerator) estimatePrice(ctx context.Context, data listing.ListingData) (*callResult, error) {
	parts := []*genai.Part{genai.NewPartFromText(listing.PricePrompt(data))}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	r, err := g.execute(ctx, parts, config)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("model", g.model).
		Int64("inputTokens", r.usage.InputTokens).
		Int64("outputTokens", r.usage.OutputTokens).
		Float64("costUSD", r.usage.CostUSD).
		Int("sourceCount", len(r.sources)).
		Str("priceSuggestion", r.text).
		Msg("price estimation llm call")

	return r, nil
}

// execute waits for the rate limiter, calls Gemini and extracts text,
// grounding sources and usage from the first candidate.
func (g *GeminiGenerator) execute(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig) (*callResult, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			// Wait fails early, without a context error, when the deadline
			// would pass before a token is available
			if ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
			}
			return nil, err
		}
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	r := &callResult{
		text:    strings.TrimSpace(result.Text()),
		sources: groundingSources(result.Candidates[0]),
	}
	if result.UsageMetadata != nil {
		r.usage = listing.Usage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
		r.usage.CostUSD = calculateGeminiCost(r.usage.InputTokens, r.usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}
	return r, nil
}

// groundingSources collects the web citations of a candidate. Chunks without
// a web URI are skipped.
func groundingSources(c *genai.Candidate) []listing.Source {
	if c.GroundingMetadata == nil {
		return nil
	}
	var sources []listing.Source
	for _, chunk := range c.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, listing.Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return sources
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
