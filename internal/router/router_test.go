package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diabesafe/backend/internal/auth"
	"github.com/diabesafe/backend/internal/db/memorystorage"
	"github.com/diabesafe/backend/internal/ipchecker"
	"github.com/diabesafe/backend/internal/logger"
	"github.com/diabesafe/backend/internal/models"
	"github.com/diabesafe/backend/internal/newsclient"
	"github.com/diabesafe/backend/internal/service"
)

type testEnv struct {
	server  *httptest.Server
	auth    *auth.Auth
	storage *memorystorage.MemoryStorage
}

func newTestEnv(t *testing.T, news service.NewsProvider, trustedSubnet string) *testEnv {
	t.Helper()

	require.NoError(t, logger.Init("debug"))

	theStorage, err := memorystorage.New()
	require.NoError(t, err)

	theAuth, err := auth.New([]byte("router-test-secret"))
	require.NoError(t, err)

	if news == nil {
		news = theStorage
	}

	checker, err := ipchecker.New(trustedSubnet)
	require.NoError(t, err)

	svc := service.New(theStorage, theAuth, news)
	srv := httptest.NewServer(New(svc, checker))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, auth: theAuth, storage: theStorage}
}

func (env *testEnv) register(t *testing.T, email string) string {
	t.Helper()

	return env.registerNamed(t, "Budi", "budi", email)
}

func (env *testEnv) registerNamed(t *testing.T, name, username, email string) string {
	t.Helper()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"name":            name,
			"username":        username,
			"email":           email,
			"password":        "rahasia-123",
			"confirmPassword": "rahasia-123",
		}).
		Post(env.server.URL + "/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	registered := models.RegisterResponse{}
	require.NoError(t, json.Unmarshal(resp.Body(), &registered))
	require.NotEmpty(t, registered.UserID)

	return registered.UserID
}

func TestPostRegister(t *testing.T) {
	env := newTestEnv(t, nil, "")

	type tExpectedResponse struct {
		code int
		body *regexp.Regexp
	}
	testCases := []struct {
		name             string
		body             string
		expectedResponse tExpectedResponse
	}{
		{
			name: "positive",
			body: `{
				"name": "Budi",
				"username": "budi",
				"email": "budi@example.com",
				"password": "rahasia-123",
				"confirmPassword": "rahasia-123"
			}`,
			expectedResponse: tExpectedResponse{
				http.StatusCreated,
				regexp.MustCompile(`"userId"\s*:\s*"\w+-\w+-\w+-\w+-\w+"`),
			},
		},
		{
			name: "password_mismatch",
			body: `{
				"email": "mismatch@example.com",
				"password": "rahasia-123",
				"confirmPassword": "something-else"
			}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`Passwords do not match`),
			},
		},
		{
			name: "missing_password",
			body: `{"email": "nopass@example.com"}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`Missing required fields`),
			},
		},
		{
			name: "duplicate_email",
			body: `{
				"email": "budi@example.com",
				"password": "rahasia-123",
				"confirmPassword": "rahasia-123"
			}`,
			expectedResponse: tExpectedResponse{
				http.StatusConflict,
				regexp.MustCompile(`Email already registered`),
			},
		},
		{
			name: "empty_body",
			body: ``,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				nil,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post(env.server.URL + "/register")
			assert.NoError(t, err, "error making HTTP request")

			assert.Equal(t, testCase.expectedResponse.code, resp.StatusCode(), "Response code didn't match expected value")
			if testCase.expectedResponse.body != nil {
				assert.NotNil(
					t,
					testCase.expectedResponse.body.FindIndex(resp.Body()),
					fmt.Sprintf("The response body should match expected value (%s)", testCase.expectedResponse.body.String()),
				)
			}
		})
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t, nil, "")
	userID := env.register(t, "budi@example.com")

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"email": "budi@example.com", "password": "rahasia-123"}`).
		Post(env.server.URL + "/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	loggedIn := models.LoginResponse{}
	require.NoError(t, json.Unmarshal(resp.Body(), &loggedIn))
	assert.NotEmpty(t, loggedIn.AccessToken)
	assert.NotEmpty(t, loggedIn.RefreshToken)
	require.NotNil(t, loggedIn.Data)
	assert.Equal(t, userID, loggedIn.Data.UserID)

	// the issued access token must decode back to the same user
	decodedUserID, err := env.auth.ParseUserID(loggedIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, decodedUserID)
}

func TestLoginDoesNotDistinguishFailures(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.register(t, "budi@example.com")

	wrongPassword, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"email": "budi@example.com", "password": "wrong"}`).
		Post(env.server.URL + "/login")
	require.NoError(t, err)

	unknownEmail, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"email": "nobody@example.com", "password": "rahasia-123"}`).
		Post(env.server.URL + "/login")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, wrongPassword.StatusCode())
	assert.Equal(t, wrongPassword.StatusCode(), unknownEmail.StatusCode())
	assert.JSONEq(t, string(wrongPassword.Body()), string(unknownEmail.Body()))
}

func TestPostLogout(t *testing.T) {
	env := newTestEnv(t, nil, "")

	resp, err := resty.New().R().Post(env.server.URL + "/logout")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "Logged out successfully")
}

func TestPostRefresh(t *testing.T) {
	env := newTestEnv(t, nil, "")

	refreshToken, err := env.auth.BuildRefreshToken("user-42")
	require.NoError(t, err)

	testCases := []struct {
		name         string
		body         string
		expectedCode int
	}{
		{
			name:         "positive",
			body:         fmt.Sprintf(`{"refreshToken": %q}`, refreshToken),
			expectedCode: http.StatusOK,
		},
		{
			name:         "missing_token",
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "garbage_token",
			body:         `{"refreshToken": "not-a-jwt"}`,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "tampered_token",
			body:         fmt.Sprintf(`{"refreshToken": %q}`, refreshToken[:len(refreshToken)-2]+"xx"),
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post(env.server.URL + "/refresh")
			assert.NoError(t, err)
			assert.Equal(t, testCase.expectedCode, resp.StatusCode())

			if testCase.expectedCode == http.StatusOK {
				refreshed := models.RefreshResponse{}
				require.NoError(t, json.Unmarshal(resp.Body(), &refreshed))

				userID, err := env.auth.ParseUserID(refreshed.AccessToken)
				require.NoError(t, err)
				assert.Equal(t, "user-42", userID)
			}
		})
	}
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t, nil, "")
	userID := env.register(t, "budi@example.com")

	resp, err := resty.New().R().Get(env.server.URL + "/profile/" + userID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `"email":"budi@example.com"`)

	missing, err := resty.New().R().Get(env.server.URL + "/profile/no-such-user")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode())
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, nil, "")
	userID := env.register(t, "budi@example.com")

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name": "Budi Santoso", "email": "budi.santoso@example.com"}`).
		Put(env.server.URL + "/profile/" + userID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	viaUpdatePath, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name": "Budi S.", "email": "budi.santoso@example.com"}`).
		Patch(env.server.URL + "/profile/update/" + userID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, viaUpdatePath.StatusCode())

	fetched, err := resty.New().R().Get(env.server.URL + "/profile/" + userID)
	require.NoError(t, err)
	assert.Contains(t, string(fetched.Body()), `"name":"Budi S."`)
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	env := newTestEnv(t, nil, "")
	firstID := env.register(t, "budi@example.com")
	secondID := env.registerNamed(t, "Siti", "siti", "siti@example.com")

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name": "Siti", "email": "budi@example.com"}`).
		Put(env.server.URL + "/profile/" + secondID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode())

	// the email still belongs to the first account
	login, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"email": "budi@example.com", "password": "rahasia-123"}`).
		Post(env.server.URL + "/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, login.StatusCode())

	loggedIn := models.LoginResponse{}
	require.NoError(t, json.Unmarshal(login.Body(), &loggedIn))
	require.NotNil(t, loggedIn.Data)
	assert.Equal(t, firstID, loggedIn.Data.UserID)
}

func TestUpdateProfileMissingFields(t *testing.T) {
	env := newTestEnv(t, nil, "")
	userID := env.register(t, "budi@example.com")

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name": "Budi Santoso"}`).
		Put(env.server.URL + "/profile/" + userID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestUpdateProfileUnknownUserIsInternalError(t *testing.T) {
	env := newTestEnv(t, nil, "")

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"name": "Ghost", "email": "ghost@example.com"}`).
		Put(env.server.URL + "/profile/no-such-user")
	require.NoError(t, err)

	// storage cannot tell "no such user" apart, so this is a 500, not a 404
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
}

func TestPostPrediction(t *testing.T) {
	env := newTestEnv(t, nil, "")

	type tExpectedResponse struct {
		code int
		body *regexp.Regexp
	}
	testCases := []struct {
		name             string
		body             string
		expectedResponse tExpectedResponse
	}{
		{
			name: "positive",
			body: `{"height": 170, "weight": 70, "glucose": 95, "bloodPressure": 120, "age": 30}`,
			expectedResponse: tExpectedResponse{
				http.StatusCreated,
				regexp.MustCompile(`"bmi"\s*:\s*24\.22`),
			},
		},
		{
			name: "missing_glucose",
			body: `{"height": 170, "weight": 70, "bloodPressure": 120, "age": 30}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`Missing required fields`),
			},
		},
		{
			// zero is indistinguishable from absent: the documented edge case
			name: "zero_height_rejected",
			body: `{"height": 0, "weight": 70, "glucose": 95, "bloodPressure": 120, "age": 30}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`Missing required fields`),
			},
		},
		{
			name: "zero_age_rejected",
			body: `{"height": 170, "weight": 70, "glucose": 95, "bloodPressure": 120, "age": 0}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`Missing required fields`),
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post(env.server.URL + "/prediction")
			assert.NoError(t, err)

			assert.Equal(t, testCase.expectedResponse.code, resp.StatusCode())
			if testCase.expectedResponse.body != nil {
				assert.NotNil(t, testCase.expectedResponse.body.FindIndex(resp.Body()))
			}
		})
	}
}

func TestGetPredictionHistory(t *testing.T) {
	env := newTestEnv(t, nil, "")

	created, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"height": 170, "weight": 70, "glucose": 95, "bloodPressure": 120, "age": 30}`).
		Post(env.server.URL + "/prediction")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, created.StatusCode())

	predictionResponse := models.PredictionResponse{}
	require.NoError(t, json.Unmarshal(created.Body(), &predictionResponse))

	history, err := resty.New().R().Get(env.server.URL + "/prediction/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, history.StatusCode())

	historyResponse := models.PredictionHistoryResponse{}
	require.NoError(t, json.Unmarshal(history.Body(), &historyResponse))
	require.Len(t, historyResponse.Predictions, 1)
	assert.Equal(t, predictionResponse.ID, historyResponse.Predictions[0].ID)

	byID, err := resty.New().R().Get(env.server.URL + "/prediction/history/" + predictionResponse.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, byID.StatusCode())
	assert.Contains(t, string(byID.Body()), `"result":"Pending"`)

	missing, err := resty.New().R().Get(env.server.URL + "/prediction/history/no-such-id")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode())
}

func TestGetNewsFromStorage(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.storage.SeedNews([]models.NewsItem{
		{ID: "n1", Title: "Managing blood sugar"},
		{ID: "n2", Title: "BMI and you"},
	})

	resp, err := resty.New().R().Get(env.server.URL + "/news")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	newsResponse := models.NewsResponse{}
	require.NoError(t, json.Unmarshal(resp.Body(), &newsResponse))
	assert.Len(t, newsResponse.News, 2)
}

func TestGetNewsUpstreamFailure(t *testing.T) {
	// point the news client at a server that is already gone
	deadServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadServer.Close()

	env := newTestEnv(t, newsclient.New(deadServer.URL, "test-key", "id"), "")

	resp, err := resty.New().R().Get(env.server.URL + "/news")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "Unable to fetch news")
	assert.NotContains(t, string(resp.Body()), `"news"`)
}

func TestGetPing(t *testing.T) {
	env := newTestEnv(t, nil, "")

	resp, err := resty.New().R().Get(env.server.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestGetInternalStats(t *testing.T) {
	env := newTestEnv(t, nil, "192.168.1.0/24")
	env.register(t, "budi@example.com")

	allowed, err := resty.New().R().
		SetHeader("X-Real-IP", "192.168.1.10").
		Get(env.server.URL + "/api/internal/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, allowed.StatusCode())

	stats := models.InternalStatsResponse{}
	require.NoError(t, json.Unmarshal(allowed.Body(), &stats))
	assert.Equal(t, int64(1), stats.Users)

	denied, err := resty.New().R().
		SetHeader("X-Real-IP", "10.0.0.1").
		Get(env.server.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, denied.StatusCode())
}

func TestGetInternalStatsDisabledWithoutSubnet(t *testing.T) {
	env := newTestEnv(t, nil, "")

	resp, err := resty.New().R().Get(env.server.URL + "/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}
