// Package memorystorage provides a non-persistent storage backend used for
// local runs and tests. It reuses the jsondb cache without the file.
package memorystorage

import (
	"context"

	"github.com/diabesafe/backend/internal/db/jsondb"
	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/user"
)

// MemoryStorage keeps the whole dataset in process memory.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty in-memory storage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users:         map[string]*user.User{},
				EmailToUserID: map[string]string{},
				Predictions:   map[string]*models.PredictionRecord{},
				News:          []models.NewsItem{},
			},
		},
	}, nil
}

// SeedNews replaces the static news collection; used by tests and local runs.
func (theStorage *MemoryStorage) SeedNews(news []models.NewsItem) {
	theStorage.JSONDB.Cache.News = news
}

// Close is a no-op: nothing is persisted.
func (theStorage *MemoryStorage) Close() error {
	return nil
}

// Ping always succeeds.
func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
