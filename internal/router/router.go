// Package router wires the HTTP surface: route table, request decoding and
// validation, and the mapping from service errors to HTTP status codes.
package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/diabesafe/backend/internal/auth"
	"github.com/diabesafe/backend/internal/gzippedhttp"
	"github.com/diabesafe/backend/internal/ipchecker"
	"github.com/diabesafe/backend/internal/logger"
	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/service"
)

// Router holds the handler dependencies.
type Router struct {
	svc       *service.Service
	validate  *validator.Validate
	ipChecker *ipchecker.IPChecker
}

// New assembles the chi route table with logging and gzip middleware.
func New(svc *service.Service, ipChecker *ipchecker.IPChecker) *chi.Mux {
	theRouter := &Router{
		svc:       svc,
		validate:  validator.New(),
		ipChecker: ipChecker,
	}

	mux := chi.NewRouter()
	mux.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	mux.Post(`/register`, theRouter.PostRegister)
	mux.Post(`/login`, theRouter.PostLogin)
	mux.Post(`/logout`, theRouter.PostLogout)
	mux.Post(`/refresh`, theRouter.PostRefresh)

	mux.Get(`/profile/{userId}`, theRouter.GetProfile)
	mux.Put(`/profile/{userId}`, theRouter.UpdateProfile)
	mux.Patch(`/profile/{userId}`, theRouter.UpdateProfile)
	mux.Put(`/profile/update/{userId}`, theRouter.UpdateProfile)
	mux.Patch(`/profile/update/{userId}`, theRouter.UpdateProfile)

	mux.Post(`/prediction`, theRouter.PostPrediction)
	mux.Get(`/prediction/history`, theRouter.GetPredictionHistory)
	mux.Get(`/prediction/history/{predictionId}`, theRouter.GetPredictionByID)

	mux.Get(`/news`, theRouter.GetNews)
	mux.Get(`/ping`, theRouter.GetPing)
	mux.Get(`/api/internal/stats`, theRouter.GetInternalStats)

	return mux
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error encoding JSON response: ", err)
	}
}

func writeMessage(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.MessageResponse{Message: message})
}

// decodeAndValidate parses the JSON body into target and runs the validate
// tags. It writes the 400 response itself and reports success to the caller.
func (theRouter *Router) decodeAndValidate(response http.ResponseWriter, request *http.Request, target interface{}) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid JSON body")
		return false
	}

	if err := theRouter.validate.Struct(target); err != nil {
		writeMessage(response, http.StatusBadRequest, "Missing required fields")
		return false
	}

	return true
}

// writeError maps service errors onto the HTTP status taxonomy. Unknown
// errors become a generic 500 so storage details never leak to clients.
func (theRouter *Router) writeError(response http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPasswordMismatch):
		writeMessage(response, http.StatusBadRequest, "Passwords do not match")

	case errors.Is(err, models.ErrEmailAlreadyTaken):
		writeMessage(response, http.StatusConflict, "Email already registered")

	case errors.Is(err, service.ErrInvalidCredentials):
		// same status and body for unknown email and wrong password
		writeMessage(response, http.StatusNotFound, "Invalid email or password")

	case errors.Is(err, auth.ErrInvalidToken):
		writeMessage(response, http.StatusUnauthorized, "Invalid refresh token")

	case errors.Is(err, models.ErrUserNotFound):
		writeMessage(response, http.StatusNotFound, "User not found")

	case errors.Is(err, models.ErrPredictionNotFound):
		writeMessage(response, http.StatusNotFound, "Prediction not found")

	case errors.Is(err, models.ErrNewsUnavailable):
		writeMessage(response, http.StatusInternalServerError, "Unable to fetch news")

	default:
		logger.Log.Debugln("Unhandled service error: ", err)
		writeMessage(response, http.StatusInternalServerError, "Internal server error")
	}
}

// PostRegister handles POST /register.
func (theRouter *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	requestBody := models.RegisterRequest{}
	if !theRouter.decodeAndValidate(response, request, &requestBody) {
		return
	}

	userID, err := theRouter.svc.Register(request.Context(), requestBody)
	if err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.RegisterResponse{
		Message: "User registered successfully",
		UserID:  userID,
	})
}

// PostLogin handles POST /login.
func (theRouter *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	requestBody := models.LoginRequest{}
	if !theRouter.decodeAndValidate(response, request, &requestBody) {
		return
	}

	loginResponse, err := theRouter.svc.Login(request.Context(), requestBody)
	if err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, loginResponse)
}

// PostLogout handles POST /logout. The acknowledgement is stateless:
// outstanding tokens stay valid until expiry and must be discarded
// client-side.
func (theRouter *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	writeMessage(response, http.StatusOK, "Logged out successfully")
}

// PostRefresh handles POST /refresh.
func (theRouter *Router) PostRefresh(response http.ResponseWriter, request *http.Request) {
	requestBody := models.RefreshRequest{}
	if err := json.NewDecoder(request.Body).Decode(&requestBody); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if requestBody.RefreshToken == "" {
		writeMessage(response, http.StatusBadRequest, "Refresh token is required")
		return
	}

	accessToken, err := theRouter.svc.Refresh(requestBody.RefreshToken)
	if err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.RefreshResponse{AccessToken: accessToken})
}

// GetProfile handles GET /profile/{userId}.
func (theRouter *Router) GetProfile(response http.ResponseWriter, request *http.Request) {
	userID := chi.URLParam(request, "userId")

	profile, err := theRouter.svc.GetProfile(request.Context(), userID)
	if err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, map[string]interface{}{
		"message": "User profile fetched successfully",
		"user":    profile,
	})
}

// UpdateProfile handles PUT/PATCH /profile/{userId} and
// /profile/update/{userId}.
func (theRouter *Router) UpdateProfile(response http.ResponseWriter, request *http.Request) {
	userID := chi.URLParam(request, "userId")

	requestBody := models.UpdateProfileRequest{}
	if !theRouter.decodeAndValidate(response, request, &requestBody) {
		return
	}

	if err := theRouter.svc.UpdateProfile(request.Context(), userID, requestBody); err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeMessage(response, http.StatusOK, "User information updated successfully")
}

// PostPrediction handles POST /prediction. A zero value in any numeric
// field fails the `required` validation exactly like an absent field.
func (theRouter *Router) PostPrediction(response http.ResponseWriter, request *http.Request) {
	requestBody := models.PredictionRequest{}
	if !theRouter.decodeAndValidate(response, request, &requestBody) {
		return
	}

	record, err := theRouter.svc.CreatePrediction(request.Context(), requestBody)
	if err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.PredictionResponse{
		Message:    "Prediction created successfully",
		ID:         record.ID,
		Prediction: record,
	})
}

// GetPredictionHistory handles GET /prediction/history.
func (theRouter *Router) GetPredictionHistory(response http.ResponseWriter, request *http.Request) {
	records, err := theRouter.svc.GetPredictionHistory(request.Context())
	if err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.PredictionHistoryResponse{
		Message:     "Prediction history fetched successfully",
		Predictions: records,
	})
}

// GetPredictionByID handles GET /prediction/history/{predictionId}.
func (theRouter *Router) GetPredictionByID(response http.ResponseWriter, request *http.Request) {
	predictionID := chi.URLParam(request, "predictionId")

	record, err := theRouter.svc.GetPrediction(request.Context(), predictionID)
	if err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, map[string]interface{}{
		"message":    "Prediction fetched successfully",
		"prediction": record,
	})
}

// GetNews handles GET /news.
func (theRouter *Router) GetNews(response http.ResponseWriter, request *http.Request) {
	news, err := theRouter.svc.GetNews(request.Context())
	if err != nil {
		logger.Log.Debugln("Error fetching news: ", err)
		writeMessage(response, http.StatusInternalServerError, "Unable to fetch news")
		return
	}

	writeJSON(response, http.StatusOK, models.NewsResponse{
		Message: "News fetched successfully",
		News:    news,
	})
}

// GetPing handles GET /ping.
func (theRouter *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := theRouter.svc.Ping(request.Context()); err != nil {
		writeMessage(response, http.StatusInternalServerError, "Storage unavailable")
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalStats handles GET /api/internal/stats, restricted to the
// trusted subnet.
func (theRouter *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	clientIP, err := theRouter.ipChecker.GetClientIP(request)
	if err != nil || !theRouter.ipChecker.Check(clientIP) {
		writeMessage(response, http.StatusForbidden, "Forbidden")
		return
	}

	stats, err := theRouter.svc.GetInternalStats(request.Context())
	if err != nil {
		theRouter.writeError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}
