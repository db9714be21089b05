package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tudextra/inmopilot-ai/internal/images"
	"github.com/tudextra/inmopilot-ai/internal/listing"
	"github.com/tudextra/inmopilot-ai/internal/storage"
)

type generatorMock struct {
	mock.Mock
}

func (m *generatorMock) GenerateListing(ctx context.Context, imgs []images.Image, data listing.ListingData) (*listing.GenerationResult, error) {
	args := m.Called(ctx, imgs, data)
	result, _ := args.Get(0).(*listing.GenerationResult)
	return result, args.Error(1)
}

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCachedGenerator_CachesResults(t *testing.T) {
	inner := new(generatorMock)
	store := newTestStore(t)
	imgs := testImages(2)

	inner.On("GenerateListing", mock.Anything, imgs, testData()).Return(&listing.GenerationResult{
		Description:     "Descripción",
		PriceSuggestion: "Entre 1€ y 2€",
		Sources:         []listing.Source{{URI: "https://a.example", Title: "A"}},
		Usage:           listing.Usage{InputTokens: 10, CostUSD: 0.01},
	}, nil).Once()

	cached := NewCachedGenerator(inner, store)

	first, err := cached.GenerateListing(context.Background(), imgs, testData())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, int64(10), first.Usage.InputTokens)

	second, err := cached.GenerateListing(context.Background(), imgs, testData())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Description, second.Description)
	assert.Equal(t, first.PriceSuggestion, second.PriceSuggestion)
	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, listing.Usage{}, second.Usage)

	inner.AssertNumberOfCalls(t, "GenerateListing", 1)
}

func TestCachedGenerator_ExpiredEntriesAreRefreshed(t *testing.T) {
	inner := new(generatorMock)
	store := newTestStore(t)
	imgs := testImages(1)

	require.NoError(t, store.SetGenerationCache(requestHash(imgs, testData()), &storage.GenerationCacheEntry{
		Description:     "Antigua",
		PriceSuggestion: "Entre 1€ y 2€",
		CreatedAt:       time.Now().Add(-2 * DefaultCacheMaxAge),
	}))

	inner.On("GenerateListing", mock.Anything, imgs, testData()).
		Return(&listing.GenerationResult{Description: "Nueva", PriceSuggestion: "Entre 3€ y 4€"}, nil).Once()

	cached := NewCachedGenerator(inner, store)

	result, err := cached.GenerateListing(context.Background(), imgs, testData())
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, "Nueva", result.Description)

	// The refreshed entry is served from the cache again
	result, err = cached.GenerateListing(context.Background(), imgs, testData())
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, "Nueva", result.Description)
	inner.AssertExpectations(t)
}

func TestCachedGenerator_ZeroMaxAgeNeverExpires(t *testing.T) {
	inner := new(generatorMock)
	store := newTestStore(t)
	imgs := testImages(1)

	require.NoError(t, store.SetGenerationCache(requestHash(imgs, testData()), &storage.GenerationCacheEntry{
		Description:     "Antigua",
		PriceSuggestion: "Entre 1€ y 2€",
		CreatedAt:       time.Now().Add(-365 * 24 * time.Hour),
	}))

	result, err := NewCachedGenerator(inner, store).WithMaxAge(0).GenerateListing(context.Background(), imgs, testData())
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, "Antigua", result.Description)
	inner.AssertNotCalled(t, "GenerateListing", mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedGenerator_DifferentDataMisses(t *testing.T) {
	inner := new(generatorMock)
	imgs := testImages(1)
	other := testData()
	other.Tone = "Lujoso y exclusivo"

	inner.On("GenerateListing", mock.Anything, mock.Anything, mock.Anything).
		Return(&listing.GenerationResult{Description: "x", PriceSuggestion: "y"}, nil)

	cached := NewCachedGenerator(inner, newTestStore(t))

	_, err := cached.GenerateListing(context.Background(), imgs, testData())
	require.NoError(t, err)
	_, err = cached.GenerateListing(context.Background(), imgs, other)
	require.NoError(t, err)
	_, err = cached.GenerateListing(context.Background(), testImages(2), testData())
	require.NoError(t, err)

	inner.AssertNumberOfCalls(t, "GenerateListing", 3)
}

func TestCachedGenerator_ErrorsAreNotCached(t *testing.T) {
	inner := new(generatorMock)
	imgs := testImages(1)

	inner.On("GenerateListing", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("boom")).Once()
	inner.On("GenerateListing", mock.Anything, mock.Anything, mock.Anything).
		Return(&listing.GenerationResult{Description: "ok"}, nil).Once()

	cached := NewCachedGenerator(inner, newTestStore(t))

	_, err := cached.GenerateListing(context.Background(), imgs, testData())
	assert.EqualError(t, err, "boom")

	result, err := cached.GenerateListing(context.Background(), imgs, testData())
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Description)
	assert.False(t, result.Cached)
}

func TestCachedGenerator_NoImages(t *testing.T) {
	inner := new(generatorMock)
	cached := NewCachedGenerator(inner, newTestStore(t))

	_, err := cached.GenerateListing(context.Background(), nil, testData())
	assert.ErrorIs(t, err, ErrNoImages)
	inner.AssertNotCalled(t, "GenerateListing", mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedGenerator_NilStorePassesThrough(t *testing.T) {
	inner := new(generatorMock)
	inner.On("GenerateListing", mock.Anything, mock.Anything, mock.Anything).
		Return(&listing.GenerationResult{Description: "ok"}, nil).Twice()

	cached := NewCachedGenerator(inner, nil)
	for i := 0; i < 2; i++ {
		_, err := cached.GenerateListing(context.Background(), testImages(1), testData())
		require.NoError(t, err)
	}
	inner.AssertExpectations(t)
}

func TestGetGeminiGenerator(t *testing.T) {
	gemini := newGeminiGenerator(new(modelsMock), GeminiOptions{})
	wrapped := NewCachedGenerator(NewCachedGenerator(gemini, nil), nil)

	assert.Same(t, gemini, GetGeminiGenerator(wrapped))
	assert.Nil(t, GetGeminiGenerator(new(generatorMock)))
}
