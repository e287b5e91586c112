package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/dto"
	"atelier/internal/netutil"
	"atelier/internal/observability/middleware"
	"atelier/internal/service"
	"atelier/internal/service/impl"
)

type handlers struct {
	deps Deps
}

type ctxKey int

const claimsKey ctxKey = iota

func claimsFrom(ctx context.Context) (*dto.SessionClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*dto.SessionClaims)
	return c, ok
}

// bearerToken extracts the token from an Authorization header, or "" when
// the header is absent or malformed.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// requireAuth rejects requests without a valid session token and stores the
// decoded claims on the request context.
func (h *handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, err := h.deps.Tokens.Validate(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.deps.Auth.Login(r.Context(), req, netutil.ClientIP(r), r.UserAgent())
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) verifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.deps.Auth.VerifyTwoFactor(r.Context(), req, netutil.ClientIP(r), r.UserAgent())
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) validateToken(w http.ResponseWriter, r *http.Request) {
	// The token comes from the Authorization header; a JSON body with a
	// token field is accepted for callers that cannot set headers.
	token := bearerToken(r)
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.Token
		}
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "Token required")
		return
	}
	claims, err := h.deps.Tokens.Validate(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.ValidateTokenResponse{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, dto.ValidateTokenResponse{
		Valid: true,
		User: &dto.TokenUser{
			ID:      claims.UserID,
			Email:   claims.Email,
			IsAdmin: claims.IsAdmin,
			Expires: claims.ExpiresAt.Time,
		},
	})
}

// targetAccount resolves which account a 2FA management call operates on.
// A userId different from the caller's requires an administrator and flags
// the operation as administrative.
func targetAccount(claims *dto.SessionClaims, userID string) (uuid.UUID, bool, error) {
	self, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false, impl.ErrInvalidInput
	}
	if userID == "" || userID == claims.UserID {
		return self, false, nil
	}
	if !claims.IsAdmin {
		return uuid.Nil, false, domain.ErrForbidden
	}
	target, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false, impl.ErrInvalidInput
	}
	return target, true, nil
}

func (h *handlers) enableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req dto.TwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	target, asAdmin, err := targetAccount(claims, req.UserID)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	prov, err := h.deps.TwoFactor.Enable(r.Context(), target, req.Type, asAdmin)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	if prov != nil {
		writeJSON(w, http.StatusOK, prov)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
}

func (h *handlers) disableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req dto.TwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	target, asAdmin, err := targetAccount(claims, req.UserID)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	if err := h.deps.TwoFactor.Disable(r.Context(), target, req.Type, asAdmin); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req dto.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	target, _, err := targetAccount(claims, req.UserID)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	at, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp")
		return
	}
	if err := h.deps.Auth.MarkLoggedOut(r.Context(), target, at, req.IP, req.Success); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) loginHistory(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	target, _, err := targetAccount(claims, r.URL.Query().Get("userId"))
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	attempts, err := h.deps.Auth.History(r.Context(), target)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func (h *handlers) downloadProject(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	idOrSlug := q.Get("projectId")
	if idOrSlug == "" {
		idOrSlug = q.Get("slug")
	}
	if idOrSlug == "" {
		writeError(w, http.StatusBadRequest, "projectId or slug required")
		return
	}

	project, err := h.deps.Access.ResolveProject(r.Context(), idOrSlug)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	// Identity is the bearer token when present, otherwise the bare email
	// passed by checkout flows.
	var who service.Identity
	if tok := bearerToken(r); tok != "" {
		if claims, err := h.deps.Tokens.Validate(tok); err == nil {
			if id, err := uuid.Parse(claims.UserID); err == nil {
				who.AccountID = &id
			}
			who.Email = claims.Email
		}
	}
	if who.Email == "" {
		who.Email = q.Get("email")
	}

	ok, err := h.deps.Access.HasAccess(r.Context(), who, project)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusForbidden, "Purchase or subscription required")
		return
	}

	path := filepath.Join(h.deps.ArchiveDir, filepath.Base(project.ArchivePath))
	f, err := os.Open(path)
	if err != nil {
		slog.ErrorContext(r.Context(), "archive missing",
			"project", project.ID, "path", path, "err", err)
		writeError(w, http.StatusNotFound, "Archive not available")
		return
	}
	defer f.Close()

	if err := h.deps.Access.RecordDownload(r.Context(), project); err != nil {
		slog.ErrorContext(r.Context(), "download accounting failed",
			"project", project.ID, "err", err)
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeContent(w, r, filepath.Base(path), time.Time{}, f)
}

// writeAuthError maps service errors onto HTTP statuses. Credential and
// second-factor failures deliberately share generic messages.
func (h *handlers) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, impl.ErrInvalidInput), errors.Is(err, impl.ErrUnknownFactor):
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, domain.ErrAccountNotActive):
		writeError(w, http.StatusUnauthorized, "Account is not active")
	case errors.Is(err, domain.ErrInvalidSecondFactor),
		errors.Is(err, domain.ErrFactorNotEnabled),
		errors.Is(err, domain.ErrChallengeMismatch):
		writeError(w, http.StatusBadRequest, "Invalid or expired code")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not allowed")
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
