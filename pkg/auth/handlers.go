package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// LoginRecorder receives the outcome of authentication attempts. user is
// nil when the username did not resolve to an account.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, r *http.Request, username string, user *store.User, succeeded bool)
}

// Handler serves login, logout and token refresh.
type Handler struct {
	users    *store.UserStore
	tokens   *TokenManager
	recorder LoginRecorder
	logger   *observability.Logger
}

// NewHandler creates the auth handler. recorder may be nil.
func NewHandler(users *store.UserStore, tokens *TokenManager, recorder LoginRecorder, logger *observability.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, recorder: recorder, logger: logger}
}

func (h *Handler) recordLogin(r *http.Request, username string, user *store.User, succeeded bool) {
	if h.recorder != nil {
		h.recorder.RecordLogin(r.Context(), r, username, user, succeeded)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	*TokenPair
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Login authenticates a username/password pair and issues a token pair.
// Invalid usernames and wrong passwords produce the same response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "username and password are required")
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.recordLogin(r, req.Username, nil, false)
			httputil.WriteUnauthorized(w, "incorrect username or password")
			return
		}
		h.logger.WithError(err).Error("login lookup failed")
		httputil.WriteInternalError(w)
		return
	}
	if !user.IsActive {
		h.recordLogin(r, req.Username, user, false)
		httputil.WriteUnauthorized(w, "account is disabled")
		return
	}
	if err := CheckPassword(user.Password, req.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			h.recordLogin(r, req.Username, user, false)
			httputil.WriteUnauthorized(w, "incorrect username or password")
			return
		}
		h.logger.WithError(err).Error("password check failed")
		httputil.WriteInternalError(w)
		return
	}

	ident := &Identity{UserID: user.ID, Username: user.Username, IsSuperuser: user.IsSuperuser}
	pair, err := h.tokens.IssuePair(ident)
	if err != nil {
		h.logger.WithError(err).Error("token issuance failed")
		httputil.WriteInternalError(w)
		return
	}
	if err := h.users.TouchLastLogin(r.Context(), user.ID); err != nil {
		h.logger.WithError(err).Warn("failed to record last login")
	}
	h.recordLogin(r, req.Username, user, true)

	httputil.WriteSuccess(w, loginResponse{
		TokenPair:   pair,
		UserID:      user.ID,
		Username:    user.Username,
		Name:        user.Name,
		Avatar:      user.Avatar,
		IsSuperuser: user.IsSuperuser,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh exchanges a refresh token for a new pair. The user is re-read so
// deactivation takes effect on the next refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	ident, err := h.tokens.ValidateRefresh(req.Refresh)
	if err != nil {
		httputil.WriteUnauthorized(w, "invalid refresh token")
		return
	}

	user, err := h.users.Get(r.Context(), ident.UserID)
	if err != nil {
		httputil.WriteUnauthorized(w, "account no longer exists")
		return
	}
	if !user.IsActive {
		httputil.WriteUnauthorized(w, "account is disabled")
		return
	}

	pair, err := h.tokens.IssuePair(&Identity{UserID: user.ID, Username: user.Username, IsSuperuser: user.IsSuperuser})
	if err != nil {
		h.logger.WithError(err).Error("token issuance failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, pair)
}

// Logout acknowledges the logout. Tokens are stateless, so the client
// discards them; nothing is revoked server-side.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccessMsg(w, "logged out")
}
