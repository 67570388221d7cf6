package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tenauth.org/internal/audit"
	"tenauth.org/internal/identity"
	"tenauth.org/internal/obs"
)

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	users, err := a.users.List(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := a.users.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := a.users.Me(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var params identity.CreateUserParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := a.users.Create(r.Context(), actor, params)
	observeDecision("user.create", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"user_id": user.ID,
		"login":   user.Login,
	})
	w.Header().Set("Location", "/v1/users/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleEditUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var params identity.EditUserParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	user, err := a.users.Edit(r.Context(), actor, id, params)
	observeDecision("user.edit", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.edit", map[string]any{"user_id": id})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleDisableUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := chi.URLParam(r, "id")
	err := a.users.Disable(r.Context(), actor, id)
	observeDecision("user.disable", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.disable", map[string]any{"user_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := chi.URLParam(r, "id")
	owner, _ := a.users.Owner(r.Context(), id)
	err := a.users.Delete(r.Context(), actor, id)
	observeDecision("user.delete", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	fields := map[string]any{"user_id": id}
	if owner != "" {
		fields["owner"] = owner
	}
	_ = audit.LogEvent(r.Context(), "user.delete", fields)
	w.WriteHeader(http.StatusNoContent)
}

func observeDecision(operation string, err error) {
	switch {
	case err == nil:
		obs.ObserveAuthzDecision(operation, "permit")
	case errors.Is(err, identity.ErrAccessDenied):
		obs.ObserveAuthzDecision(operation, "deny")
	}
}
