package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reimburse/internal/auth"
	"reimburse/internal/config"
	"reimburse/internal/db/dbtest"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/handler"
	"reimburse/internal/repository"
	"reimburse/internal/service"
	"reimburse/internal/storage"
)

// memoryRevocations is an in-process token blacklist.
type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memoryRevocations) RevokeToken(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = true
	return nil
}

func (m *memoryRevocations) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[tokenID], nil
}

type testServer struct {
	e      *echo.Echo
	health error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	cfg := &config.Config{
		DocumentDir:      t.TempDir(),
		PublicBaseURL:    "http://localhost:8080",
		MaxDocumentBytes: 1 << 20,
		CORSOrigins:      []string{"*"},
	}

	store := repository.NewStore(dbtest.New(t))
	signing, err := auth.NewSigningContext("router-test-secret", "reimburse", time.Hour)
	require.NoError(t, err)
	jwtService := auth.NewJWTService(signing)

	docs, err := storage.NewLocalDocumentStore(cfg.DocumentDir, cfg.PublicBaseURL, cfg.MaxDocumentBytes)
	require.NoError(t, err)

	recorder := service.NewEventRecorder(store.TrackingEvents, logger)
	t.Cleanup(recorder.Close)

	authService := service.NewAuthService(store.Users, jwtService, &memoryRevocations{revoked: map[string]bool{}}, logger)

	ts := &testServer{e: echo.New()}
	Register(
		ts.e,
		cfg,
		logger,
		jwtService,
		authService,
		func(context.Context) error { return ts.health },
		handler.NewAuthHandler(authService, logger),
		handler.NewRequestHandler(service.NewRequestService(store, docs, recorder, logger), logger),
		handler.NewTrackingHandler(service.NewTrackingService(store, recorder, logger), logger),
		handler.NewPaymentHandler(service.NewPaymentService(store, logger), logger),
		handler.NewProfileHandler(service.NewProfileService(store.Profiles, nil, logger), logger),
	)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) submit(t *testing.T, token, category, amount string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("expenseCategory", category))
	require.NoError(t, form.WriteField("amount", amount))
	require.NoError(t, form.WriteField("description", "client visit"))
	part, err := form.CreateFormFile("document", "receipt.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/Request", &buf)
	req.Header.Set(echo.HeaderContentType, form.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, username, password, role string) string {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/User", "", map[string]string{
		"username": username, "password": password, "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/User/Login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestReimbursementLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice", "alice-pw", "Employee")
	hr := ts.login(t, "hr", "hr-password", "HR")

	rec := ts.submit(t, alice, "Travel", "120.50")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		RequestID      uint   `json:"requestId"`
		Document       string `json:"document"`
		TrackingID     uint   `json:"trackingId"`
		TrackingStatus string `json:"trackingStatus"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.RequestID)
	assert.Equal(t, "Pending", created.TrackingStatus)
	assert.True(t, strings.HasPrefix(created.Document, "http://localhost:8080/Documents/"), created.Document)

	// paying before approval is refused
	payment := map[string]interface{}{
		"requestId":         created.RequestID,
		"bankAccountNumber": "123456789012",
		"routingCode":       "HDFC0001234",
		"paymentAmount":     120.50,
	}
	rec = ts.do(t, http.MethodPost, "/api/PaymentDetails", hr, payment)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	path := "/api/Tracking/" + itoa(created.RequestID)
	rec = ts.do(t, http.MethodPut, path+"/Approved", hr, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tracking struct {
		Status       string     `json:"trackingStatus"`
		ApprovalDate *time.Time `json:"approvalDate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracking))
	assert.Equal(t, "Approved", tracking.Status)
	assert.NotNil(t, tracking.ApprovalDate)

	// approved is terminal
	rec = ts.do(t, http.MethodPut, path+"/Rejected", hr, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/PaymentDetails", hr, payment)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var paid struct {
		ID                uint   `json:"paymentId"`
		BankAccountNumber string `json:"bankAccountNumber"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	assert.Equal(t, "**** **** **** 9012", paid.BankAccountNumber)

	rec = ts.do(t, http.MethodGet, "/api/PaymentDetails/"+itoa(paid.ID), hr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "**** **** **** 9012")
	assert.NotContains(t, rec.Body.String(), "123456789012")

	rec = ts.do(t, http.MethodPost, "/api/PaymentDetails", hr, payment)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/Tracking/request/"+itoa(created.RequestID)+"/history", alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAuthorization(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice", "alice-pw", "Employee")
	bob := ts.login(t, "bob", "bob-pw", "Employee")
	hr := ts.login(t, "hr", "hr-password", "HR")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
		code   string
	}{
		{"missing token", http.MethodGet, "/api/Request", "", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"garbage token", http.MethodGet, "/api/Request", "not-a-jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"employee lists all requests", http.MethodGet, "/api/Request", alice, http.StatusForbidden, "FORBIDDEN"},
		{"employee lists payments", http.MethodGet, "/api/PaymentDetails", alice, http.StatusForbidden, "FORBIDDEN"},
		{"employee advances tracking", http.MethodPut, "/api/Tracking/1/Approved", alice, http.StatusForbidden, "FORBIDDEN"},
		{"other employee's requests", http.MethodGet, "/api/Request/user/alice", bob, http.StatusForbidden, "FORBIDDEN"},
		{"hr submits request", http.MethodPost, "/api/Request", hr, http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}

	rec := ts.do(t, http.MethodGet, "/api/Request", hr, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "alice", "alice-pw", "Employee")

	rec := ts.do(t, http.MethodPost, "/api/User", "", map[string]string{
		"username": "alice", "password": "another-pw", "role": "Employee",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "USER_ALREADY_EXISTS", decodeError(t, rec).Code)

	rec = ts.do(t, http.MethodPost, "/api/User", "", map[string]string{
		"username": "carol", "password": "carol-pw", "role": "Admin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/User/Login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice", "alice-pw", "Employee")

	rec := ts.do(t, http.MethodGet, "/api/Request/user/alice", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/User/Logout", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/Request/user/alice", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.health = errors.New("database is down")
	rec = ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
