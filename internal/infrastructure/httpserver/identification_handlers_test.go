package httpserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	config "github.com/eloquentlog/montafon/configs"
	"github.com/eloquentlog/montafon/internal/core/domain/auth"
	"github.com/eloquentlog/montafon/internal/core/domain/email"
	"github.com/eloquentlog/montafon/internal/infrastructure/httpserver"
	"github.com/eloquentlog/montafon/test/mocks"
)

func newTestServer(svc *mocks.IdentificationServiceMock) *httpserver.Server {
	// any bearer token passes; auth rejection paths build their own mock
	tokenSvc := &mocks.TokenServiceMock{VerifyFn: func(token string) (*auth.Claims, error) {
		return &auth.Claims{UserID: 1}, nil
	}}
	return newTestServerWithTokens(svc, tokenSvc)
}

func newTestServerWithTokens(svc *mocks.IdentificationServiceMock, tokenSvc *mocks.TokenServiceMock) *httpserver.Server {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return httpserver.NewServer(&config.ServerConfig{Host: "127.0.0.1", Port: "0"}, svc, tokenSvc, logger)
}

func TestIssueEndpoint(t *testing.T) {
	now := time.Now().UTC().Add(24 * time.Hour)
	tok := "tok"
	svc := &mocks.IdentificationServiceMock{IssueFn: func(ctx context.Context, recordID int64) (*email.UserEmail, error) {
		return &email.UserEmail{
			ID:                           recordID,
			IdentificationState:          email.IdentificationStatePending,
			IdentificationToken:          &tok,
			IdentificationTokenExpiresAt: &now,
		}, nil
	}}
	server := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/emails/7/identification", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), `"record_id":7`)
	// the token itself must never appear in the response
	require.NotContains(t, rec.Body.String(), tok)
}

func TestIssueEndpoint_InvalidID(t *testing.T) {
	server := newTestServer(&mocks.IdentificationServiceMock{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/emails/abc/identification", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueEndpoint_RequiresSession(t *testing.T) {
	issued := false
	svc := &mocks.IdentificationServiceMock{IssueFn: func(ctx context.Context, recordID int64) (*email.UserEmail, error) {
		issued = true
		return nil, email.ErrRecordNotFound
	}}

	t.Run("missing header", func(t *testing.T) {
		server := newTestServer(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/emails/7/identification", nil)
		rec := httptest.NewRecorder()
		server.Echo().ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		tokenSvc := &mocks.TokenServiceMock{VerifyFn: func(token string) (*auth.Claims, error) {
			return nil, auth.ErrSignatureInvalid
		}}
		server := newTestServerWithTokens(svc, tokenSvc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/emails/7/identification", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		server.Echo().ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	require.False(t, issued, "rejected requests must never reach the service")
}

func TestVerifyEndpoint(t *testing.T) {
	granted := time.Now().UTC()
	svc := &mocks.IdentificationServiceMock{VerifyFn: func(ctx context.Context, recordID int64, presentedToken string) (*email.UserEmail, error) {
		require.Equal(t, int64(7), recordID)
		require.Equal(t, "the-token", presentedToken)
		return &email.UserEmail{
			ID:                           recordID,
			IdentificationState:          email.IdentificationStateDone,
			IdentificationTokenGrantedAt: &granted,
		}, nil
	}}
	server := newTestServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/identification/7/verify?token=the-token", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"state":"done"`)
}

func TestVerifyByTokenEndpoint(t *testing.T) {
	granted := time.Now().UTC()
	svc := &mocks.IdentificationServiceMock{VerifyByTokenFn: func(ctx context.Context, presentedToken string) (*email.UserEmail, error) {
		require.Equal(t, "the-token", presentedToken)
		return &email.UserEmail{
			ID:                           9,
			IdentificationState:          email.IdentificationStateDone,
			IdentificationTokenGrantedAt: &granted,
		}, nil
	}}
	server := newTestServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/identification/verify?token=the-token", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"record_id":9`)
}

func TestVerifyEndpoint_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", email.ErrRecordNotFound, http.StatusNotFound},
		{"already verified", email.ErrAlreadyVerified, http.StatusConflict},
		{"no pending token", email.ErrNoPendingToken, http.StatusUnprocessableEntity},
		{"mismatch", email.ErrTokenMismatch, http.StatusUnprocessableEntity},
		{"expired", email.ErrTokenExpired, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mocks.IdentificationServiceMock{VerifyFn: func(ctx context.Context, recordID int64, presentedToken string) (*email.UserEmail, error) {
				return nil, tc.err
			}}
			server := newTestServer(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/identification/7/verify?token=x", nil)
			rec := httptest.NewRecorder()
			server.Echo().ServeHTTP(rec, req)

			require.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestVerifyEndpoint_MissingToken(t *testing.T) {
	server := newTestServer(&mocks.IdentificationServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/identification/7/verify", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(&mocks.IdentificationServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "montafon_dispatch_jobs_processed_total")
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&mocks.IdentificationServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
