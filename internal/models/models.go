// Package models defines the request/response structures of the HTTP API,
// the durable domain records, and the sentinel errors shared between the
// service and storage layers.
package models

import (
	"errors"
	"time"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// RegisterResponse is returned on successful registration.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the freshly issued token pair and the profile data
// of the authenticated user.
type LoginResponse struct {
	Message      string       `json:"message"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	Data         *ProfileData `json:"data,omitempty"`
}

// ProfileData is the public projection of a user account.
type ProfileData struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RefreshRequest is the body of POST /refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries the newly minted access token.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// UpdateProfileRequest is the body of PUT/PATCH /profile/{userId}.
// Both fields are mandatory; the update is a partial merge into the stored
// profile, not a full overwrite.
type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// PredictionRequest is the body of POST /prediction.
//
// The numeric fields are value types on purpose: `required` treats the zero
// value as absent, so a measurement of 0 is rejected the same way a missing
// field is.
type PredictionRequest struct {
	Height        float64 `json:"height" validate:"required"`
	Weight        float64 `json:"weight" validate:"required"`
	Glucose       float64 `json:"glucose" validate:"required"`
	BloodPressure float64 `json:"bloodPressure" validate:"required"`
	Age           int     `json:"age" validate:"required"`
}

// PredictionRecord is an immutable diabetes-risk measurement record.
// Records are append-only: no update or delete operation exists.
type PredictionRecord struct {
	ID            string    `json:"id"`
	Height        float64   `json:"height"`
	Weight        float64   `json:"weight"`
	BMI           float64   `json:"bmi"`
	Glucose       float64   `json:"glucose"`
	BloodPressure float64   `json:"bloodPressure"`
	Age           int       `json:"age"`
	Result        string    `json:"result"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PredictionResponse is returned on successful prediction creation.
type PredictionResponse struct {
	Message    string            `json:"message"`
	ID         string            `json:"id"`
	Prediction *PredictionRecord `json:"prediction"`
}

// PredictionHistoryResponse wraps the full list of stored records.
type PredictionHistoryResponse struct {
	Message     string             `json:"message"`
	Predictions []PredictionRecord `json:"predictions"`
}

// NewsItem is an opaque pass-through news article, sourced either from the
// static news collection or from the external headlines provider.
type NewsItem struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Source      string `json:"source,omitempty"`
	Author      string `json:"author,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// NewsResponse wraps the article list.
type NewsResponse struct {
	Message string     `json:"message"`
	News    []NewsItem `json:"news"`
}

// InternalStatsResponse carries counters for the trusted-subnet stats endpoint.
type InternalStatsResponse struct {
	Users       int64 `json:"users"`
	Predictions int64 `json:"predictions"`
}

// MessageResponse is the generic acknowledgement/error body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Storage backend selection, resolved from the configuration at startup.
const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// PredictionResultPending is stored in the Result field of every new record.
// No risk model runs inside this service; the value marks the record as
// awaiting external computation.
const PredictionResultPending = "Pending"

// ErrUserNotFound is returned when no account exists for the given identifier.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailAlreadyTaken is returned when registering an email that already has
// an account.
var ErrEmailAlreadyTaken = errors.New("email already registered")

// ErrPredictionNotFound is returned when no prediction record exists for the
// given identifier.
var ErrPredictionNotFound = errors.New("prediction not found")

// ErrNewsUnavailable is returned when the news source (storage collection or
// external provider) fails; the caller never receives a partial article list.
var ErrNewsUnavailable = errors.New("news source unavailable")
