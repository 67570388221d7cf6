package httpapi

import (
	"net/http"
	"time"

	"tenauth.org/internal/audit"
)

type tokenRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := a.users.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	token, expires, err := a.tokens.Issue(user.Login, user.Roles)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.token.issue", map[string]any{"login": user.Login})
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
	})
}
