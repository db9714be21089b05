package web

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tudextra/inmopilot-ai/internal/listing"
)

// Journal writes one plain-text log file per generated listing.
// A nil *Journal discards everything.
type Journal struct {
	dir string
}

// NewJournal creates the journal directory if needed.
func NewJournal(dir string) (*Journal, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// Path returns the journal file path for a listing.
func (j *Journal) Path(listingID string) string {
	return filepath.Join(j.dir, fmt.Sprintf("listing_%s.log", listingID))
}

// Start truncates the journal for a listing and writes the submitted data.
func (j *Journal) Start(listingID string, data listing.ListingData, imageCount int) {
	if j == nil {
		return
	}
	f, err := os.OpenFile(j.Path(listingID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Error().Err(err).Str("listingID", listingID).Msg("failed to start listing journal")
		return
	}
	defer f.Close()

	header := fmt.Sprintf("=== Listing Log ===\nListing: %s\nStarted: %s\n\n",
		listingID, time.Now().Format("2006-01-02 15:04:05"))
	f.WriteString(header)

	j.Input(listingID, "address=%q type=%q rooms=%d price=%q tone=%q",
		data.Address, data.PropertyType, data.Rooms, data.Price, data.Tone)
	j.Input(listingID, "images=%d", imageCount)
}

func (j *Journal) appendLog(listingID, prefix, msg string) {
	if j == nil {
		return
	}
	f, err := os.OpenFile(j.Path(listingID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Error().Err(err).Str("listingID", listingID).Msg("failed to write listing journal")
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("15:04:05")
	f.WriteString(fmt.Sprintf("[%s] %s %s\n", timestamp, prefix, msg))
}

// Input logs what the agent submitted.
func (j *Journal) Input(listingID, format string, args ...any) {
	j.appendLog(listingID, "INPUT   ", fmt.Sprintf(format, args...))
}

// LLM logs an LLM result.
func (j *Journal) LLM(listingID, format string, args ...any) {
	j.appendLog(listingID, "LLM     ", fmt.Sprintf(format, args...))
}

// Internal logs internal processing.
func (j *Journal) Internal(listingID, format string, args ...any) {
	j.appendLog(listingID, "INTERNAL", fmt.Sprintf(format, args...))
}

// Error logs errors.
func (j *Journal) Error(listingID, format string, args ...any) {
	j.appendLog(listingID, "ERROR   ", fmt.Sprintf(format, args...))
}

// Result logs a finished generation.
func (j *Journal) Result(listingID string, r *listing.GenerationResult) {
	j.LLM(listingID, "description: %d chars", len([]rune(r.Description)))
	j.LLM(listingID, "price: %s", r.PriceSuggestion)
	for _, src := range r.Sources {
		j.LLM(listingID, "source: %s", src.URI)
	}
	for _, c := range r.Calls {
		j.LLM(listingID, "%s call: tokens in=%d out=%d total=%d cost=$%.6f",
			c.Call, c.Usage.InputTokens, c.Usage.OutputTokens, c.Usage.TotalTokens, c.Usage.CostUSD)
	}
	j.LLM(listingID, "tokens in=%d out=%d total=%d cost=$%.6f cached=%t",
		r.Usage.InputTokens, r.Usage.OutputTokens, r.Usage.TotalTokens, r.Usage.CostUSD, r.Cached)
}
