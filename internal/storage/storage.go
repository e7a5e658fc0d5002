// Package storage declares the full storage contract implemented by the
// pluggable backends (postgres, file, memory). Consumers depend on narrower
// interfaces declared on their own side; this package exists for the
// backends and the application wiring.
package storage

import (
	"context"
	"database/sql"

	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/user"
)

// Storage is the union of every persistence operation the service needs.
//
// Lookup methods follow the (value, found, err) convention: err reports
// backend failures only, found reports absence. The transaction handle may
// be nil, in which case the operation runs standalone; backends without
// transaction support return a nil *sql.Tx from BeginTransaction and treat
// commit/rollback as no-ops.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)

	GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, bool, error)

	GetUserByEmail(ctx context.Context, email string, transaction *sql.Tx) (*user.User, bool, error)

	// UpdateUserProfile merges the name and email into the stored profile.
	// Backends do not distinguish a missing profile here; the error is
	// generic either way.
	UpdateUserProfile(ctx context.Context, userID, name, email string, transaction *sql.Tx) error

	InsertPrediction(ctx context.Context, record *models.PredictionRecord, transaction *sql.Tx) (string, error)

	GetPredictionByID(ctx context.Context, predictionID string) (*models.PredictionRecord, bool, error)

	// GetPredictions returns every stored record. No ordering is guaranteed.
	GetPredictions(ctx context.Context) ([]models.PredictionRecord, error)

	// GetNews returns the static news collection.
	GetNews(ctx context.Context) ([]models.NewsItem, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfPredictions(ctx context.Context) (int64, error)

	BeginTransaction() (*sql.Tx, error)

	CommitTransaction(transaction *sql.Tx) error

	RollbackTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
