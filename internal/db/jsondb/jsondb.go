// Package jsondb implements the storage contract on top of a single JSON
// file. The whole dataset is kept in memory and flushed to disk on Close.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/user"
)

// CacheStruct is the serialized shape of the database file.
type CacheStruct struct {
	Users         map[string]*user.User
	EmailToUserID map[string]string
	Predictions   map[string]*models.PredictionRecord
	News          []models.NewsItem
}

// JSONDB is a file-backed document store guarded by a read-write mutex.
type JSONDB struct {
	fileName string
	mutex    sync.RWMutex
	Cache    CacheStruct
}

func emptyCache() CacheStruct {
	return CacheStruct{
		Users:         map[string]*user.User{},
		EmailToUserID: map[string]string{},
		Predictions:   map[string]*models.PredictionRecord{},
		News:          []models.NewsItem{},
	}
}

func initDBFile(fileName string) error {
	data, err := json.MarshalIndent(emptyCache(), "", "\t")
	if err != nil {
		return err
	}

	return os.WriteFile(fileName, data, 0644)
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	if err := os.WriteFile(fileName, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

// New opens (or initializes) the database file and loads it into memory.
func New(fileName string) (*JSONDB, error) {
	theDB := &JSONDB{
		fileName: fileName,
		Cache:    emptyCache(),
	}

	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
	}

	if err := parseJSONFile(fileName, &theDB.Cache); err != nil {
		return nil, err
	}
	if theDB.Cache.Users == nil {
		theDB.Cache.Users = map[string]*user.User{}
	}
	if theDB.Cache.EmailToUserID == nil {
		theDB.Cache.EmailToUserID = map[string]string{}
	}
	if theDB.Cache.Predictions == nil {
		theDB.Cache.Predictions = map[string]*models.PredictionRecord{}
	}

	return theDB, nil
}

// CreateUser stores a new account. A UUID is assigned when the user carries
// no identifier yet.
func (theDB *JSONDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	theDB.mutex.Lock()
	defer theDB.mutex.Unlock()

	if _, exists := theDB.Cache.EmailToUserID[usr.Email]; exists {
		return "", models.ErrEmailAlreadyTaken
	}

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	stored := *usr
	theDB.Cache.Users[stored.ID] = &stored
	theDB.Cache.EmailToUserID[stored.Email] = stored.ID

	return stored.ID, nil
}

// GetUserByID returns the account stored under the given identifier.
func (theDB *JSONDB) GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, bool, error) {
	theDB.mutex.RLock()
	defer theDB.mutex.RUnlock()

	usr, found := theDB.Cache.Users[userID]
	if !found {
		return nil, false, nil
	}

	copied := *usr

	return &copied, true, nil
}

// GetUserByEmail returns the account registered with the given email.
func (theDB *JSONDB) GetUserByEmail(ctx context.Context, email string, transaction *sql.Tx) (*user.User, bool, error) {
	theDB.mutex.RLock()
	defer theDB.mutex.RUnlock()

	userID, found := theDB.Cache.EmailToUserID[email]
	if !found {
		return nil, false, nil
	}

	usr := *theDB.Cache.Users[userID]

	return &usr, true, nil
}

// UpdateUserProfile merges name and email into the stored profile. An email
// held by a different account maps to models.ErrEmailAlreadyTaken. A missing
// profile surfaces as a plain error: the underlying operation cannot tell
// "no such user" apart from other failures.
func (theDB *JSONDB) UpdateUserProfile(ctx context.Context, userID, name, email string, transaction *sql.Tx) error {
	theDB.mutex.Lock()
	defer theDB.mutex.Unlock()

	usr, found := theDB.Cache.Users[userID]
	if !found {
		return fmt.Errorf("cannot update profile %q", userID)
	}

	if owner, taken := theDB.Cache.EmailToUserID[email]; taken && owner != userID {
		return models.ErrEmailAlreadyTaken
	}

	delete(theDB.Cache.EmailToUserID, usr.Email)
	usr.Name = name
	usr.Email = email
	theDB.Cache.EmailToUserID[email] = userID

	return nil
}

// InsertPrediction appends a new immutable record and returns its identifier.
func (theDB *JSONDB) InsertPrediction(ctx context.Context, record *models.PredictionRecord, transaction *sql.Tx) (string, error) {
	theDB.mutex.Lock()
	defer theDB.mutex.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	stored := *record
	theDB.Cache.Predictions[stored.ID] = &stored

	return stored.ID, nil
}

// GetPredictionByID returns the record stored under the given identifier.
func (theDB *JSONDB) GetPredictionByID(ctx context.Context, predictionID string) (*models.PredictionRecord, bool, error) {
	theDB.mutex.RLock()
	defer theDB.mutex.RUnlock()

	record, found := theDB.Cache.Predictions[predictionID]
	if !found {
		return nil, false, nil
	}

	copied := *record

	return &copied, true, nil
}

// GetPredictions returns every stored record in map iteration order.
func (theDB *JSONDB) GetPredictions(ctx context.Context) ([]models.PredictionRecord, error) {
	theDB.mutex.RLock()
	defer theDB.mutex.RUnlock()

	records := make([]models.PredictionRecord, 0, len(theDB.Cache.Predictions))
	for _, record := range theDB.Cache.Predictions {
		records = append(records, *record)
	}

	return records, nil
}

// GetNews returns the static news collection from the database file.
func (theDB *JSONDB) GetNews(ctx context.Context) ([]models.NewsItem, error) {
	theDB.mutex.RLock()
	defer theDB.mutex.RUnlock()

	news := make([]models.NewsItem, len(theDB.Cache.News))
	copy(news, theDB.Cache.News)

	return news, nil
}

// GetNumberOfUsers returns the total amount of registered accounts.
func (theDB *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	theDB.mutex.RLock()
	defer theDB.mutex.RUnlock()

	return int64(len(theDB.Cache.Users)), nil
}

// GetNumberOfPredictions returns the total amount of stored records.
func (theDB *JSONDB) GetNumberOfPredictions(ctx context.Context) (int64, error) {
	theDB.mutex.RLock()
	defer theDB.mutex.RUnlock()

	return int64(len(theDB.Cache.Predictions)), nil
}

// BeginTransaction is a no-op: the file backend mutates its cache atomically
// under the mutex.
func (theDB *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

// CommitTransaction is a no-op for the file backend.
func (theDB *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

// RollbackTransaction is a no-op for the file backend.
func (theDB *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

// Ping always succeeds while the process owns the file.
func (theDB *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the in-memory cache back to the database file.
func (theDB *JSONDB) Close() error {
	theDB.mutex.RLock()
	defer theDB.mutex.RUnlock()

	return writeToJSONFile(theDB.fileName, theDB.Cache)
}
