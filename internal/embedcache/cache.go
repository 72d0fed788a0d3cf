// Package embedcache keeps computed embeddings in SQLite so that re-imported
// summaries are not embedded twice.
package embedcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/streed/meetnotes/internal/constants"
	"github.com/streed/meetnotes/internal/embeddings"
	"github.com/streed/meetnotes/internal/logger"
)

type Cache struct {
	conn *sql.DB
}

func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirectoryMode); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	logger.Debug("Embedding cache path: %s", path)

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}

	c := &Cache{conn: conn}
	if err := c.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
	}
	return c, nil
}

func (c *Cache) initialize() error {
	_, err := c.conn.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			dimensions INTEGER NOT NULL,
			embedding BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create embeddings table: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.conn.Close()
}

// Key identifies a (model, text) pair.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector, or nil when there is none.
func (c *Cache) Get(model, text string) ([]float64, error) {
	var blob []byte
	err := c.conn.QueryRow("SELECT embedding FROM embeddings WHERE key = ?", Key(model, text)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached embedding: %w", err)
	}
	return embeddings.BytesToEmbedding(blob)
}

func (c *Cache) Put(model, text string, embedding []float64) error {
	_, err := c.conn.Exec(
		"INSERT OR REPLACE INTO embeddings (key, model, dimensions, embedding) VALUES (?, ?, ?, ?)",
		Key(model, text), model, len(embedding), embeddings.EmbeddingToBytes(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached vectors.
func (c *Cache) Count() (int, error) {
	var n int
	if err := c.conn.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached embeddings: %w", err)
	}
	return n, nil
}
