package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tudextra/inmopilot-ai/internal/listing"
	_ "modernc.org/sqlite"
)

// GenerationCacheEntry represents a cached generation result.
type GenerationCacheEntry struct {
	Description     string
	PriceSuggestion string
	Sources         []listing.Source
	CreatedAt       time.Time
}

// StoredListing is a generated listing kept in the history.
type StoredListing struct {
	ID              string
	CreatedAt       time.Time
	Data            listing.ListingData
	Description     string
	PriceSuggestion string
	Sources         []listing.Source
	ImageCount      int
	CostUSD         float64
}

// Store defines the interface for persistence.
type Store interface {
	Close() error

	// Generation cache methods
	GetGenerationCache(requestHash string) (*GenerationCacheEntry, error)
	SetGenerationCache(requestHash string, entry *GenerationCacheEntry) error

	// Listing history methods
	SaveListing(l *StoredListing) error
	GetListing(id string) (*StoredListing, error)
	RecentListings(limit int) ([]StoredListing, error)
	DeleteListing(id string) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based store.
// The dbPath is the path to the SQLite database file, or ":memory:".
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("dbPath", dbPath).Msg("failed to restrict database permissions")
	}

	store := &SQLiteStore{db: db}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	generationCacheQuery := `
	CREATE TABLE IF NOT EXISTS generation_cache (
		request_hash TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		price_suggestion TEXT NOT NULL,
		sources TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(generationCacheQuery); err != nil {
		return fmt.Errorf("failed to create generation_cache table: %w", err)
	}

	listingsQuery := `
	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		address TEXT NOT NULL,
		property_type TEXT NOT NULL,
		rooms INTEGER NOT NULL,
		price TEXT NOT NULL,
		tone TEXT NOT NULL,
		description TEXT NOT NULL,
		price_suggestion TEXT NOT NULL,
		sources TEXT NOT NULL DEFAULT '[]',
		image_count INTEGER NOT NULL DEFAULT 0,
		cost_usd REAL NOT NULL DEFAULT 0
	);
	`
	if _, err := s.db.Exec(listingsQuery); err != nil {
		return fmt.Errorf("failed to create listings table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at)"); err != nil {
		return fmt.Errorf("failed to create listings index: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetGenerationCache retrieves a cached generation result by request hash.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetGenerationCache(requestHash string) (*GenerationCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry GenerationCacheEntry
	var sourcesJSON string
	err := s.db.QueryRow(
		"SELECT description, price_suggestion, sources, created_at FROM generation_cache WHERE request_hash = ?",
		requestHash,
	).Scan(&entry.Description, &entry.PriceSuggestion, &sourcesJSON, &entry.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query generation cache: %w", err)
	}

	if entry.Sources, err = unmarshalSources(sourcesJSON); err != nil {
		return nil, err
	}

	return &entry, nil
}

// SetGenerationCache stores a generation result in the cache. CreatedAt is
// set to the current time when zero.
func (s *SQLiteStore) SetGenerationCache(requestHash string, entry *GenerationCacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	sourcesJSON, err := marshalSources(entry.Sources)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO generation_cache (request_hash, description, price_suggestion, sources, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(request_hash) DO UPDATE SET
			description = excluded.description,
			price_suggestion = excluded.price_suggestion,
			sources = excluded.sources,
			created_at = excluded.created_at
	`, requestHash, entry.Description, entry.PriceSuggestion, sourcesJSON, entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to cache generation result: %w", err)
	}
	return nil
}

// SaveListing stores a listing in the history. An empty ID is replaced with
// a new UUID, and CreatedAt is set to the current time when zero.
func (s *SQLiteStore) SaveListing(l *StoredListing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	sourcesJSON, err := marshalSources(l.Sources)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO listings (id, created_at, address, property_type, rooms, price, tone,
			description, price_suggestion, sources, image_count, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address,
			property_type = excluded.property_type,
			rooms = excluded.rooms,
			price = excluded.price,
			tone = excluded.tone,
			description = excluded.description,
			price_suggestion = excluded.price_suggestion,
			sources = excluded.sources,
			image_count = excluded.image_count,
			cost_usd = excluded.cost_usd
	`, l.ID, l.CreatedAt, l.Data.Address, l.Data.PropertyType, l.Data.Rooms, l.Data.Price, l.Data.Tone,
		l.Description, l.PriceSuggestion, sourcesJSON, l.ImageCount, l.CostUSD)

	if err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

const listingColumns = `id, created_at, address, property_type, rooms, price, tone,
	description, price_suggestion, sources, image_count, cost_usd`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*StoredListing, error) {
	var l StoredListing
	var sourcesJSON string
	err := row.Scan(&l.ID, &l.CreatedAt, &l.Data.Address, &l.Data.PropertyType, &l.Data.Rooms,
		&l.Data.Price, &l.Data.Tone, &l.Description, &l.PriceSuggestion, &sourcesJSON,
		&l.ImageCount, &l.CostUSD)
	if err != nil {
		return nil, err
	}
	if l.Sources, err = unmarshalSources(sourcesJSON); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListing retrieves a listing by ID.
// Returns nil, nil if the listing doesn't exist.
func (s *SQLiteStore) GetListing(id string) (*StoredListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := scanListing(s.db.QueryRow("SELECT "+listingColumns+" FROM listings WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query listing: %w", err)
	}
	return l, nil
}

// RecentListings returns up to limit listings, newest first.
func (s *SQLiteStore) RecentListings(limit int) ([]StoredListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT "+listingColumns+" FROM listings ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []StoredListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *l)
	}

	return listings, rows.Err()
}

// DeleteListing removes a listing from the history.
func (s *SQLiteStore) DeleteListing(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM listings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

func marshalSources(sources []listing.Source) (string, error) {
	if sources == nil {
		sources = []listing.Source{}
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sources: %w", err)
	}
	return string(b), nil
}

func unmarshalSources(s string) ([]listing.Source, error) {
	var sources []listing.Source
	if err := json.Unmarshal([]byte(s), &sources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, nil
	}
	return sources, nil
}
