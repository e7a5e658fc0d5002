// Package service implements the application use cases on top of the
// storage and token layers: registration, login, token refresh, profile
// management, prediction records and news retrieval.
package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/diabesafe/backend/internal/auth"
	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/user"
)

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)

	GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, bool, error)

	GetUserByEmail(ctx context.Context, email string, transaction *sql.Tx) (*user.User, bool, error)

	UpdateUserProfile(ctx context.Context, userID, name, email string, transaction *sql.Tx) error
}

type predictionKeeper interface {
	InsertPrediction(ctx context.Context, record *models.PredictionRecord, transaction *sql.Tx) (string, error)

	GetPredictionByID(ctx context.Context, predictionID string) (*models.PredictionRecord, bool, error)

	GetPredictions(ctx context.Context) ([]models.PredictionRecord, error)
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfPredictions(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	transactioner
	userKeeper
	predictionKeeper
	statsKeeper
	pinger
}

// NewsProvider is the pluggable news strategy, chosen once at startup:
// either the static storage collection or the external headlines client.
type NewsProvider interface {
	GetNews(ctx context.Context) ([]models.NewsItem, error)
}

// ErrPasswordMismatch is returned when password and confirmation differ.
var ErrPasswordMismatch = errors.New("passwords do not match")

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password, so a caller cannot probe which accounts exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Service wires the use cases to storage, token handling and the news
// strategy.
type Service struct {
	db   storage
	auth *auth.Auth
	news NewsProvider
}

// New constructs a Service.
func New(db storage, theAuth *auth.Auth, news NewsProvider) *Service {
	return &Service{
		db:   db,
		auth: theAuth,
		news: news,
	}
}

// Register creates a new account under the bcrypt credential policy and
// returns the assigned user identifier. The caller validates field presence;
// this method enforces the confirmation match and email uniqueness.
func (s *Service) Register(ctx context.Context, request models.RegisterRequest) (string, error) {
	if request.Password != request.ConfirmPassword {
		return "", ErrPasswordMismatch
	}

	passwordHash, err := auth.HashPassword(request.Password)
	if err != nil {
		return "", err
	}

	transaction, err := s.db.BeginTransaction()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = s.db.RollbackTransaction(transaction)
	}()

	if _, found, err := s.db.GetUserByEmail(ctx, request.Email, transaction); err != nil {
		return "", err
	} else if found {
		return "", models.ErrEmailAlreadyTaken
	}

	userID, err := s.db.CreateUser(ctx, &user.User{
		Name:         request.Name,
		Username:     request.Username,
		Email:        request.Email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, transaction)
	if err != nil {
		return "", err
	}

	if err := s.db.CommitTransaction(transaction); err != nil {
		return "", err
	}

	return userID, nil
}

// Login verifies the submitted credentials and issues an access/refresh
// token pair. An unknown email and a wrong password fail identically.
func (s *Service) Login(ctx context.Context, request models.LoginRequest) (*models.LoginResponse, error) {
	usr, found, err := s.db.GetUserByEmail(ctx, request.Email, nil)
	if err != nil {
		return nil, err
	}
	if !found || !auth.VerifyPassword(usr.PasswordHash, request.Password) {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.auth.BuildAccessToken(usr.ID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.auth.BuildRefreshToken(usr.ID)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Message:      "Logged in successfully",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Data: &models.ProfileData{
			UserID:   usr.ID,
			Name:     usr.Name,
			Username: usr.Username,
			Email:    usr.Email,
		},
	}, nil
}

// Refresh verifies the refresh token and mints a new access token for the
// embedded user. No server-side state is consulted: a refresh token stays
// usable until it expires.
func (s *Service) Refresh(refreshToken string) (string, error) {
	userID, err := s.auth.ParseUserID(refreshToken)
	if err != nil {
		return "", err
	}

	return s.auth.BuildAccessToken(userID)
}

// GetProfile returns the public profile of the given user.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.ProfileData, error) {
	usr, found, err := s.db.GetUserByID(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrUserNotFound
	}

	return &models.ProfileData{
		UserID:   usr.ID,
		Name:     usr.Name,
		Username: usr.Username,
		Email:    usr.Email,
	}, nil
}

// UpdateProfile merges the name and email into the stored profile. The
// storage layer cannot tell an unknown identifier apart from other
// failures, so that case surfaces as a generic error.
func (s *Service) UpdateProfile(ctx context.Context, userID string, request models.UpdateProfileRequest) error {
	return s.db.UpdateUserProfile(ctx, userID, request.Name, request.Email, nil)
}

// CalculateBMI derives the body mass index from height in centimeters and
// weight in kilograms, rounded to two decimals.
func CalculateBMI(height, weight float64) float64 {
	heightInMeters := height / 100
	bmi := weight / (heightInMeters * heightInMeters)

	return math.Round(bmi*100) / 100
}

// CreatePrediction appends an immutable measurement record. The result field
// always holds the pending placeholder: no risk model runs in this service.
func (s *Service) CreatePrediction(ctx context.Context, request models.PredictionRequest) (*models.PredictionRecord, error) {
	record := &models.PredictionRecord{
		Height:        request.Height,
		Weight:        request.Weight,
		BMI:           CalculateBMI(request.Height, request.Weight),
		Glucose:       request.Glucose,
		BloodPressure: request.BloodPressure,
		Age:           request.Age,
		Result:        models.PredictionResultPending,
		CreatedAt:     time.Now().UTC(),
	}

	predictionID, err := s.db.InsertPrediction(ctx, record, nil)
	if err != nil {
		return nil, err
	}
	record.ID = predictionID

	return record, nil
}

// GetPrediction returns a single record by identifier.
func (s *Service) GetPrediction(ctx context.Context, predictionID string) (*models.PredictionRecord, error) {
	record, found, err := s.db.GetPredictionByID(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrPredictionNotFound
	}

	return record, nil
}

// GetPredictionHistory returns all stored records; ordering is whatever the
// backend yields.
func (s *Service) GetPredictionHistory(ctx context.Context) ([]models.PredictionRecord, error) {
	return s.db.GetPredictions(ctx)
}

// GetNews delegates to the configured news strategy.
func (s *Service) GetNews(ctx context.Context) ([]models.NewsItem, error) {
	return s.news.GetNews(ctx)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns account and prediction counters for the
// trusted-subnet stats endpoint.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	predictions, err := s.db.GetNumberOfPredictions(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users:       users,
		Predictions: predictions,
	}, nil
}
