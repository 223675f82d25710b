package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/cloud-audit/pkg/metrics"
	"github.com/de-tools/cloud-audit/pkg/models/api"
	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/services/auth"
	"github.com/de-tools/cloud-audit/pkg/services/checks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) Audit(ctx context.Context, ref domain.CredentialReference, names []string) (*domain.AuditReport, error) {
	args := m.Called(ctx, ref, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditReport), args.Error(1)
}

func newTestServer(t *testing.T, auditor *mockAuditor, gate *auth.Gate) *httptest.Server {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	reg := prometheus.NewRegistry()
	metrics.NewAudit(reg)

	webAPI := NewWebAPI(logger, Config{
		Addr:            ":0",
		ShutdownTimeout: time.Second,
		Dependencies: Dependencies{
			Auditor: auditor,
			Catalog: checks.DefaultRegistry(),
			Tokens:  gate,
			Gate:    gate,
			Metrics: reg,
		},
	})
	srv := httptest.NewServer(webAPI.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "Failed to send request")
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")
	return resp, data
}

func TestWebAPI_Endpoints(t *testing.T) {
	auditor := new(mockAuditor)
	srv := newTestServer(t, auditor, auth.NewGate(""))

	report := &domain.AuditReport{
		RunID:     "run-1",
		ProjectID: "proj",
		Results: map[string]domain.CheckResult{
			checks.PublicComputeIPs: {Findings: []domain.Finding{}},
		},
	}
	auditor.On("Audit", mock.Anything, domain.CredentialReference{Locator: "loc"}, []string{checks.PublicComputeIPs}).
		Return(report, nil)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expected       interface{}
		parseResponse  func([]byte) (interface{}, error)
	}{
		{
			name:           "Healthz",
			method:         http.MethodGet,
			path:           "/healthz",
			expectedStatus: http.StatusOK,
			expected:       "ok",
			parseResponse:  func(data []byte) (interface{}, error) { return string(data), nil },
		},
		{
			name:           "ListChecks",
			method:         http.MethodGet,
			path:           "/api/v1/checks",
			expectedStatus: http.StatusOK,
			expected:       8,
			parseResponse: func(data []byte) (interface{}, error) {
				var infos []api.CheckInfo
				err := json.Unmarshal(data, &infos)
				return len(infos), err
			},
		},
		{
			name:           "RunAudit",
			method:         http.MethodPost,
			path:           "/api/v1/audits",
			body:           `{"locator":"loc","checks":["public_compute_ips"]}`,
			expectedStatus: http.StatusOK,
			expected:       "run-1",
			parseResponse: func(data []byte) (interface{}, error) {
				var r api.AuditReport
				err := json.Unmarshal(data, &r)
				return r.RunID, err
			},
		},
		{
			name:           "PublicIPs",
			method:         http.MethodPost,
			path:           "/api/v1/public_ips",
			body:           `{"locator":"loc"}`,
			expectedStatus: http.StatusOK,
			expected:       "proj",
			parseResponse: func(data []byte) (interface{}, error) {
				var r api.AuditReport
				err := json.Unmarshal(data, &r)
				return r.ProjectID, err
			},
		},
		{
			name:           "StoreSecretNotConfigured",
			method:         http.MethodPost,
			path:           "/api/v1/secrets",
			body:           `{}`,
			expectedStatus: http.StatusNotImplemented,
			expected:       "not_configured",
			parseResponse: func(data []byte) (interface{}, error) {
				var r api.ErrorResponse
				err := json.Unmarshal(data, &r)
				return r.Error.Kind, err
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, tc.method, srv.URL+tc.path, "", tc.body)

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")

			actual, err := tc.parseResponse(body)
			require.NoError(t, err, "Failed to parse response")
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestWebAPI_Metrics(t *testing.T) {
	srv := newTestServer(t, new(mockAuditor), auth.NewGate(""))

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cloud_audit_runs_total")
}

func TestWebAPI_Gate(t *testing.T) {
	// Given a gate with one user
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	gate := auth.NewGate("key", auth.WithUsers(map[string]string{"alice": string(hash)}))
	expiredGate := auth.NewGate("key", auth.WithTTL(time.Minute), auth.WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	expired, _, err := expiredGate.Sign("alice")
	require.NoError(t, err)
	srv := newTestServer(t, new(mockAuditor), gate)

	// When a token is requested
	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/token", "", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token api.TokenResponse
	require.NoError(t, json.Unmarshal(body, &token))

	// Then it opens the gated routes
	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/checks", token.Token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tests := []struct {
		name     string
		token    string
		wantKind string
	}{
		{name: "missing", token: "", wantKind: "token_missing"},
		{name: "expired", token: expired, wantKind: "token_expired"},
		{name: "invalid", token: "abc.def.ghi", wantKind: "token_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/checks", tt.token, "")

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var r api.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &r))
			assert.Equal(t, tt.wantKind, r.Error.Kind)
		})
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
