// Package mockstorage provides a testify-based mock implementation
// of the internal storage interfaces used by the service and router
// packages. It is used for unit testing handlers by simulating storage
// behavior, in particular failure paths the real backends do not produce
// on demand.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/user"
)

// StorageMock is a testify mock that implements all interfaces
// used by the service for storage operations.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks account creation.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	args := m.Called(ctx, usr, transaction)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks a lookup by identifier.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, bool, error) {
	args := m.Called(ctx, userID, transaction)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// GetUserByEmail mocks a lookup by email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string, transaction *sql.Tx) (*user.User, bool, error) {
	args := m.Called(ctx, email, transaction)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

// UpdateUserProfile mocks the partial profile merge.
func (m *StorageMock) UpdateUserProfile(ctx context.Context, userID, name, email string, transaction *sql.Tx) error {
	args := m.Called(ctx, userID, name, email, transaction)
	return args.Error(0)
}

// InsertPrediction mocks appending a record.
func (m *StorageMock) InsertPrediction(ctx context.Context, record *models.PredictionRecord, transaction *sql.Tx) (string, error) {
	args := m.Called(ctx, record, transaction)
	return args.String(0), args.Error(1)
}

// GetPredictionByID mocks a record lookup.
func (m *StorageMock) GetPredictionByID(ctx context.Context, predictionID string) (*models.PredictionRecord, bool, error) {
	args := m.Called(ctx, predictionID)
	record, _ := args.Get(0).(*models.PredictionRecord)
	return record, args.Bool(1), args.Error(2)
}

// GetPredictions mocks the full listing.
func (m *StorageMock) GetPredictions(ctx context.Context) ([]models.PredictionRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]models.PredictionRecord)
	return records, args.Error(1)
}

// GetNews mocks reading the static news collection.
func (m *StorageMock) GetNews(ctx context.Context) ([]models.NewsItem, error) {
	args := m.Called(ctx)
	news, _ := args.Get(0).([]models.NewsItem)
	return news, args.Error(1)
}

// GetNumberOfUsers mocks the account counter.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfPredictions mocks the record counter.
func (m *StorageMock) GetNumberOfPredictions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	transaction, _ := args.Get(0).(*sql.Tx)
	return transaction, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(transaction *sql.Tx) error {
	args := m.Called(transaction)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(transaction *sql.Tx) error {
	args := m.Called(transaction)
	return args.Error(0)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the backend.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
