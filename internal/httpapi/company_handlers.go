package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tenauth.org/internal/audit"
	"tenauth.org/internal/identity"
)

// Company provisioning and maintenance is restricted to the global
// admin role; tenant admins only manage users inside their tenant.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return identity.Actor{}, false
	}
	if !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden")
		return identity.Actor{}, false
	}
	return actor, true
}

func (a *API) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(r); !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	companies, err := a.companies.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (a *API) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(r); !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	company, err := a.companies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *API) handleProvisionCompany(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	var params identity.CompanyParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	company, err := a.companies.Provision(r.Context(), actor, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "company.provision", map[string]any{
		"company_id": company.ID,
		"role_alias": company.RoleAlias,
	})
	w.Header().Set("Location", "/v1/companies/"+company.ID)
	writeJSON(w, http.StatusCreated, company)
}

func (a *API) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	var params identity.CompanyParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	company, err := a.companies.Update(r.Context(), id, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "company.update", map[string]any{"company_id": id})
	writeJSON(w, http.StatusOK, company)
}

func (a *API) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.companies.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "company.delete", map[string]any{"company_id": id})
	w.WriteHeader(http.StatusNoContent)
}
