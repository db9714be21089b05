package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/listing"
)

type generatorMock struct {
	mock.Mock
}

func (m *generatorMock) GenerateListing(ctx context.Context, imgs []images.Image, data listing.ListingData) (*listing.GenerationResult, error) {
	args := m.Called(ctx, imgs, data)
	result, _ := args.Get(0).(*listing.GenerationResult)
	return result, args.Error(1)
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "salon.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nfake"), 0644))
	return path
}

func testOptions(t *testing.T) *options {
	return &options{
		address:      " Calle Goya, Madrid ",
		propertyType: "Piso",
		rooms:        3,
		price:        "250.000€",
		tone:         "Profesional y claro",
		images:       []string{writeImage(t)},
	}
}

var testResult = &listing.GenerationResult{
	Description:     "Precioso piso luminoso.",
	PriceSuggestion: "Entre 250.000€ y 275.000€",
	Sources: []listing.Source{
		{URI: "https://www.idealista.com/a", Title: "idealista.com"},
		{URI: "https://www.fotocasa.es/b"},
	},
	Usage: listing.Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120, CostUSD: 0.00008},
}

func TestRun_PrintsResult(t *testing.T) {
	gen := new(generatorMock)
	gen.On("GenerateListing", mock.Anything, mock.MatchedBy(func(imgs []images.Image) bool {
		return len(imgs) == 1 && imgs[0].MIMEType == "image/png" && imgs[0].Name == "salon.png"
	}), mock.MatchedBy(func(d listing.ListingData) bool {
		return d.Address == "Calle Goya, Madrid"
	})).Return(testResult, nil)

	var out bytes.Buffer
	err := run(context.Background(), &out, testOptions(t), gen, images.NewDownloader(), images.DefaultMaxImageSize)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Precioso piso luminoso.")
	assert.Contains(t, text, "Entre 250.000€ y 275.000€")
	assert.Contains(t, text, "  1. idealista.com (https://www.idealista.com/a)")
	assert.Contains(t, text, "  2. https://www.fotocasa.es/b")
	assert.Contains(t, text, "Tokens: 100 input, 20 output, 120 total")
	gen.AssertExpectations(t)
}

func TestRun_JSON(t *testing.T) {
	gen := new(generatorMock)
	gen.On("GenerateListing", mock.Anything, mock.Anything, mock.Anything).Return(testResult, nil)

	opts := testOptions(t)
	opts.json = true

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, opts, gen, images.NewDownloader(), images.DefaultMaxImageSize))

	var decoded struct {
		Listing         listing.ListingData `json:"listing"`
		Description     string              `json:"description"`
		PriceSuggestion string              `json:"price_suggestion"`
		Sources         []listing.Source    `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "Calle Goya, Madrid", decoded.Listing.Address)
	assert.Equal(t, testResult.Description, decoded.Description)
	assert.Equal(t, testResult.PriceSuggestion, decoded.PriceSuggestion)
	assert.Equal(t, testResult.Sources, decoded.Sources)
}

func TestRun_ValidationError(t *testing.T) {
	gen := new(generatorMock)
	opts := testOptions(t)
	opts.tone = "Sarcástico"

	err := run(context.Background(), &bytes.Buffer{}, opts, gen, images.NewDownloader(), images.DefaultMaxImageSize)
	require.Error(t, err)
	assert.True(t, listing.IsValidationError(err))
	gen.AssertNotCalled(t, "GenerateListing", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_MissingImageFile(t *testing.T) {
	gen := new(generatorMock)
	opts := testOptions(t)
	opts.images = []string{filepath.Join(t.TempDir(), "nope.jpg")}

	err := run(context.Background(), &bytes.Buffer{}, opts, gen, images.NewDownloader(), images.DefaultMaxImageSize)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open image")
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"address", "type", "rooms", "price", "tone", "image", "image-url", "json"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "Piso", cmd.Flags().Lookup("type").DefValue)
	assert.Equal(t, "3", cmd.Flags().Lookup("rooms").DefValue)
	assert.Equal(t, "250.000€", cmd.Flags().Lookup("price").DefValue)
}
