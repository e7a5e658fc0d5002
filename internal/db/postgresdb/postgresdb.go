// Package postgresdb implements the storage contract on PostgreSQL via the
// pgx stdlib driver. Schema is managed with goose migrations applied at
// startup.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/user"
)

// PostgresDB is the relational storage backend.
type PostgresDB struct {
	database *sql.DB
}

const uniqueViolationCode = "23505"

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// New connects to the database, verifies the connection within the given
// timeout and applies pending migrations from migrationsDir.
func New(
	outerCtx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(outerCtx, connectionTimeout)
	defer cancel()

	if err := database.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	if err := goose.Up(database, migrationsDir); err != nil {
		return nil, err
	}

	return &PostgresDB{database: database}, nil
}

func (pgdb *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction == nil {
		return pgdb.database
	}

	return transaction
}

func (pgdb *PostgresDB) executorFor(transaction *sql.Tx) executor {
	if transaction == nil {
		return pgdb.database
	}

	return transaction
}

// CreateUser inserts a new account; a UUID is assigned when the user carries
// no identifier yet. A duplicate email maps to models.ErrEmailAlreadyTaken.
func (pgdb *PostgresDB) CreateUser(outerCtx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	_, err := pgdb.executorFor(transaction).ExecContext(
		outerCtx,
		`INSERT INTO users ("id", "name", "username", "email", "password_hash", "created_at")
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		usr.ID, usr.Name, usr.Username, usr.Email, usr.PasswordHash, usr.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return "", models.ErrEmailAlreadyTaken
		}

		return "", err
	}

	return usr.ID, nil
}

func scanUser(row *sql.Row) (*user.User, bool, error) {
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Name, &usr.Username, &usr.Email, &usr.PasswordHash, &usr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return usr, true, nil
}

// GetUserByID returns the account stored under the given identifier.
func (pgdb *PostgresDB) GetUserByID(outerCtx context.Context, userID string, transaction *sql.Tx) (*user.User, bool, error) {
	row := pgdb.queryerFor(transaction).QueryRowContext(
		outerCtx,
		`SELECT "id", "name", "username", "email", "password_hash", "created_at" FROM users WHERE "id" = $1`,
		userID,
	)

	return scanUser(row)
}

// GetUserByEmail returns the account registered with the given email.
func (pgdb *PostgresDB) GetUserByEmail(outerCtx context.Context, email string, transaction *sql.Tx) (*user.User, bool, error) {
	row := pgdb.queryerFor(transaction).QueryRowContext(
		outerCtx,
		`SELECT "id", "name", "username", "email", "password_hash", "created_at" FROM users WHERE "email" = $1`,
		email,
	)

	return scanUser(row)
}

// UpdateUserProfile merges name and email into the stored profile. An
// unknown identifier is not distinguished from other failures; an email
// already held by another account maps to models.ErrEmailAlreadyTaken.
func (pgdb *PostgresDB) UpdateUserProfile(outerCtx context.Context, userID, name, email string, transaction *sql.Tx) error {
	result, err := pgdb.executorFor(transaction).ExecContext(
		outerCtx,
		`UPDATE users SET "name" = $1, "email" = $2 WHERE "id" = $3`,
		name, email, userID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return models.ErrEmailAlreadyTaken
		}

		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("cannot update profile %q", userID)
	}

	return nil
}

// InsertPrediction appends a new immutable record and returns its identifier.
func (pgdb *PostgresDB) InsertPrediction(outerCtx context.Context, record *models.PredictionRecord, transaction *sql.Tx) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	_, err := pgdb.executorFor(transaction).ExecContext(
		outerCtx,
		`INSERT INTO predictions
		 ("id", "height", "weight", "bmi", "glucose", "blood_pressure", "age", "result", "created_at")
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.Height, record.Weight, record.BMI,
		record.Glucose, record.BloodPressure, record.Age, record.Result, record.CreatedAt,
	)
	if err != nil {
		return "", err
	}

	return record.ID, nil
}

// GetPredictionByID returns the record stored under the given identifier.
func (pgdb *PostgresDB) GetPredictionByID(outerCtx context.Context, predictionID string) (*models.PredictionRecord, bool, error) {
	record := &models.PredictionRecord{}
	err := pgdb.database.QueryRowContext(
		outerCtx,
		`SELECT "id", "height", "weight", "bmi", "glucose", "blood_pressure", "age", "result", "created_at"
		 FROM predictions WHERE "id" = $1`,
		predictionID,
	).Scan(
		&record.ID, &record.Height, &record.Weight, &record.BMI,
		&record.Glucose, &record.BloodPressure, &record.Age, &record.Result, &record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return record, true, nil
}

// GetPredictions returns every stored record.
func (pgdb *PostgresDB) GetPredictions(outerCtx context.Context) ([]models.PredictionRecord, error) {
	rows, err := pgdb.database.QueryContext(
		outerCtx,
		`SELECT "id", "height", "weight", "bmi", "glucose", "blood_pressure", "age", "result", "created_at"
		 FROM predictions`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.PredictionRecord{}
	for rows.Next() {
		record := models.PredictionRecord{}
		err := rows.Scan(
			&record.ID, &record.Height, &record.Weight, &record.BMI,
			&record.Glucose, &record.BloodPressure, &record.Age, &record.Result, &record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// GetNews returns the static news collection.
func (pgdb *PostgresDB) GetNews(outerCtx context.Context) ([]models.NewsItem, error) {
	rows, err := pgdb.database.QueryContext(
		outerCtx,
		`SELECT "id", "title", "description", "url", "image_url", "source", "author", "published_at" FROM news`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	news := []models.NewsItem{}
	for rows.Next() {
		item := models.NewsItem{}
		err := rows.Scan(
			&item.ID, &item.Title, &item.Description, &item.URL,
			&item.ImageURL, &item.Source, &item.Author, &item.PublishedAt,
		)
		if err != nil {
			return nil, err
		}
		news = append(news, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return news, nil
}

func (pgdb *PostgresDB) countRows(outerCtx context.Context, query string) (int64, error) {
	var count int64
	if err := pgdb.database.QueryRowContext(outerCtx, query).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// GetNumberOfUsers returns the total amount of registered accounts.
func (pgdb *PostgresDB) GetNumberOfUsers(outerCtx context.Context) (int64, error) {
	return pgdb.countRows(outerCtx, `SELECT COUNT(*) FROM users`)
}

// GetNumberOfPredictions returns the total amount of stored records.
func (pgdb *PostgresDB) GetNumberOfPredictions(outerCtx context.Context) (int64, error) {
	return pgdb.countRows(outerCtx, `SELECT COUNT(*) FROM predictions`)
}

// BeginTransaction opens a database transaction.
func (pgdb *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return pgdb.database.Begin()
}

// CommitTransaction commits the transaction when it is non-nil.
func (pgdb *PostgresDB) CommitTransaction(transaction *sql.Tx) error {
	if transaction == nil {
		return nil
	}

	return transaction.Commit()
}

// RollbackTransaction rolls the transaction back; rolling back an already
// committed transaction is not an error.
func (pgdb *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	if transaction == nil {
		return nil
	}

	err := transaction.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// Ping checks the database connection.
func (pgdb *PostgresDB) Ping(outerCtx context.Context) error {
	return pgdb.database.PingContext(outerCtx)
}

// Close closes the underlying connection pool.
func (pgdb *PostgresDB) Close() error {
	return pgdb.database.Close()
}
