package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/de-tools/cloud-audit/pkg/adapters"
	"github.com/de-tools/cloud-audit/pkg/models/api"
	"github.com/de-tools/cloud-audit/pkg/models/domain"
	auditsvc "github.com/de-tools/cloud-audit/pkg/services/audit"
	"github.com/de-tools/cloud-audit/pkg/services/auth"
	"github.com/de-tools/cloud-audit/pkg/services/checks"
	"github.com/de-tools/cloud-audit/pkg/services/credentials"
	"github.com/de-tools/cloud-audit/pkg/services/secrets"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type Auditor interface {
	Audit(ctx context.Context, ref domain.CredentialReference, names []string) (*domain.AuditReport, error)
}

type Catalog interface {
	Catalog() []domain.CheckInfo
}

type SecretStore interface {
	Store(ctx context.Context, material []byte) (string, error)
}

type TokenIssuer interface {
	Issue(username, password string) (string, time.Time, error)
}

type Handler struct {
	auditor Auditor
	catalog Catalog
	secrets SecretStore
	tokens  TokenIssuer
}

// NewHandler wires the audit endpoints. secretStore and tokens may be nil when the
// corresponding feature is not configured.
func NewHandler(auditor Auditor, catalog Catalog, secretStore SecretStore, tokens TokenIssuer) *Handler {
	return &Handler{
		auditor: auditor,
		catalog: catalog,
		secrets: secretStore,
		tokens:  tokens,
	}
}

func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	infos := h.catalog.Catalog()
	response := make([]api.CheckInfo, 0, len(infos))
	for _, info := range infos {
		response = append(response, adapters.MapCheckInfoDomainToApi(info))
	}
	writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	h.runChecks(w, r, nil)
}

// PublicIPs runs only the compute public address check.
func (h *Handler) PublicIPs(w http.ResponseWriter, r *http.Request) {
	h.runChecks(w, r, []string{checks.PublicComputeIPs})
}

// SQLIPs runs only the Cloud SQL public address check.
func (h *Handler) SQLIPs(w http.ResponseWriter, r *http.Request) {
	h.runChecks(w, r, []string{checks.PublicSQLIPs})
}

func (h *Handler) runChecks(w http.ResponseWriter, r *http.Request, fixed []string) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req api.AuditRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, api.ErrorDescriptor{Kind: "bad_request", Message: "invalid request body"})
		return
	}

	names := req.Checks
	if fixed != nil {
		names = fixed
	}
	ref := domain.CredentialReference{
		Material:        []byte(req.Credentials),
		Locator:         req.Locator,
		ExpectedProject: req.Project,
	}
	if len(req.Credentials) == 0 || string(req.Credentials) == "null" {
		ref.Material = nil
	}

	report, err := h.auditor.Audit(ctx, ref, names)
	if err != nil {
		logger.Warn().Err(err).Msg("audit rejected")
		writeError(ctx, w, statusFor(err), adapters.MapErrorToApi(err))
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapAuditReportDomainToApi(*report))
}

func (h *Handler) StoreSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if h.secrets == nil {
		writeError(ctx, w, http.StatusNotImplemented, api.ErrorDescriptor{Kind: "not_configured", Message: "secret store is not configured"})
		return
	}

	material, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, api.ErrorDescriptor{Kind: "bad_request", Message: "failed to read body"})
		return
	}

	locator, err := h.secrets.Store(ctx, material)
	if err != nil {
		logger.Error().Err(err).Msg("failed to store credentials")
		writeError(ctx, w, statusFor(err), adapters.MapErrorToApi(err))
		return
	}

	writeJSON(ctx, w, http.StatusCreated, api.SecretResponse{Locator: locator})
}

func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.tokens == nil {
		writeError(ctx, w, http.StatusNotImplemented, api.ErrorDescriptor{Kind: "not_configured", Message: "token issuing is not configured"})
		return
	}

	var req api.TokenRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, api.ErrorDescriptor{Kind: "bad_request", Message: "invalid request body"})
		return
	}

	token, expiresAt, err := h.tokens.Issue(req.Username, req.Password)
	if err != nil {
		zerolog.Ctx(ctx).Info().Str("username", req.Username).Msg("token request denied")
		writeError(ctx, w, statusFor(err), adapters.MapErrorToApi(err))
		return
	}

	writeJSON(ctx, w, http.StatusOK, api.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// statusFor picks the status from the same typed error MapErrorToApi reports,
// so the body kind and the status always agree.
func statusFor(err error) int {
	var (
		auditErr  *auditsvc.Error
		credErr   *credentials.Error
		secretErr *secrets.Error
		authErr   *auth.Error
	)
	switch {
	case errors.As(err, &auditErr):
		if auditErr.Kind == auditsvc.KindUnknownCheck {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &credErr):
		if credErr.Kind == credentials.KindSecretUnavailable {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	case errors.As(err, &secretErr):
		if secretErr.Kind == secrets.KindMalformedMaterial {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, desc api.ErrorDescriptor) {
	writeJSON(ctx, w, status, api.ErrorResponse{Error: desc})
}

// WriteError lets middleware answer with the handler's error body shape.
func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeError(r.Context(), w, status, adapters.MapErrorToApi(err))
}
