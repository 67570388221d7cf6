package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tenauth.org/internal/identity"
)

const testPassword = "Ab1!Ab1!cde"

type apiFixture struct {
	store   *identity.MemoryStore
	acl     *identity.MemoryACL
	users   *identity.UserService
	tokens  *identity.TokenIssuer
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := identity.NewMemoryStore()
	acl := identity.NewMemoryACL()
	now := time.Now().UTC()
	for _, name := range []string{
		identity.RoleAdmin,
		"ROLE_ACME_LOCAL_ADMIN", "ROLE_ACME_LOCAL_USER",
		"ROLE_OTHER_LOCAL_ADMIN", "ROLE_OTHER_LOCAL_USER",
	} {
		if err := store.Roles().Create(context.Background(), &identity.Role{Name: name, CreatedAt: now}); err != nil {
			t.Fatalf("seed role %s: %v", name, err)
		}
	}

	validate := identity.NewValidator()
	authz := identity.NewAuthorizer(store.Roles(), acl)
	users := identity.NewUserService(store, acl, authz, validate)
	companies := identity.NewCompanyService(store, acl, validate)
	tokens, err := identity.NewTokenIssuer("test-secret", "tenauth")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	api := New(Config{
		Users:     users,
		Companies: companies,
		Tokens:    tokens,
		Version:   "test",
	})
	return &apiFixture{
		store:   store,
		acl:     acl,
		users:   users,
		tokens:  tokens,
		handler: api.Handler(),
	}
}

func (f *apiFixture) mint(t *testing.T, login string, roles ...string) string {
	t.Helper()
	token, _, err := f.tokens.Issue(login, roles)
	if err != nil {
		t.Fatalf("issue token for %s: %v", login, err)
	}
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["service"] != "tenauth-api" || body["version"] != "test" {
		t.Fatalf("body = %v", body)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id missing")
	}
}

func TestTokenEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	if _, err := identity.BootstrapAdmin(context.Background(), f.store, f.acl, "root", testPassword); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/v1/auth/token", "", `{"login":"root","password":"`+testPassword+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string    `json:"access_token"`
		TokenType   string    `json:"token_type"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TokenType != "Bearer" || !resp.ExpiresAt.After(time.Now()) {
		t.Fatalf("unexpected response: %+v", resp)
	}
	actor, err := f.tokens.Verify(resp.AccessToken)
	if err != nil || !actor.IsAdmin() {
		t.Fatalf("issued token = (%+v, %v)", actor, err)
	}

	rec = f.do(t, http.MethodPost, "/v1/auth/token", "", `{"login":"root","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/v1/auth/token", "", `{"login":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/users", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/v1/users", "garbage", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong scheme status = %d", rec.Code)
	}
}

func TestCreateUser(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.mint(t, "root", identity.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/v1/users", admin,
		`{"login":"bob","password":"`+testPassword+`","roles":["ROLE_ACME_LOCAL_USER"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/v1/users/") {
		t.Fatalf("location = %q", loc)
	}
	var created identity.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Enabled || created.Login != "bob" {
		t.Fatalf("created = %+v", created)
	}
	if strings.Contains(rec.Body.String(), testPassword) {
		t.Fatal("password leaked into the response")
	}
}

func TestCreateUserDenialsAreUniform(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.mint(t, "root", identity.RoleAdmin)
	acmeAdmin := f.mint(t, "acme-admin", "ROLE_ACME_LOCAL_ADMIN")
	plain := f.mint(t, "plain", "ROLE_ACME_LOCAL_USER")

	// Every rule failure maps to the same forbidden response.
	cases := []struct {
		name  string
		token string
		body  string
	}{
		{"own tenant sibling role", acmeAdmin, `{"login":"u1","password":"` + testPassword + `","roles":["ROLE_ACME_LOCAL_USER"]}`},
		{"admin role grant", admin, `{"login":"u2","password":"` + testPassword + `","roles":["ROLE_ADMIN"]}`},
		{"no roles", admin, `{"login":"u3","password":"` + testPassword + `"}`},
		{"unknown role", admin, `{"login":"u4","password":"` + testPassword + `","roles":["ROLE_GONE_LOCAL_USER"]}`},
		{"insufficient privilege", plain, `{"login":"u5","password":"` + testPassword + `","roles":["ROLE_OTHER_LOCAL_USER"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/users", tc.token, tc.body)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != "forbidden" {
				t.Fatalf("denial detail leaked: %q", body["error"])
			}
		})
	}

	// Cross-tenant creation is allowed for a local admin.
	rec := f.do(t, http.MethodPost, "/v1/users", acmeAdmin,
		`{"login":"u6","password":"`+testPassword+`","roles":["ROLE_OTHER_LOCAL_USER"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("cross tenant create = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetUserDenialLooksLikeMissing(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.mint(t, "root", identity.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/v1/users", admin,
		`{"login":"carol","password":"`+testPassword+`","roles":["ROLE_OTHER_LOCAL_USER"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed carol: %d", rec.Code)
	}
	var carol identity.User
	if err := json.Unmarshal(rec.Body.Bytes(), &carol); err != nil {
		t.Fatal(err)
	}

	bob := f.mint(t, "bob", "ROLE_ACME_LOCAL_USER")
	denied := f.do(t, http.MethodGet, "/v1/users/"+carol.ID, bob, "")
	missing := f.do(t, http.MethodGet, "/v1/users/does-not-exist", bob, "")
	if denied.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("denied=%d missing=%d, both must be 404", denied.Code, missing.Code)
	}
}

func TestEditUserWeakPassword(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.mint(t, "root", identity.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/v1/users", admin,
		`{"login":"bob","password":"`+testPassword+`","roles":["ROLE_ACME_LOCAL_USER"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed bob: %d", rec.Code)
	}
	var bob identity.User
	if err := json.Unmarshal(rec.Body.Bytes(), &bob); err != nil {
		t.Fatal(err)
	}

	bobToken := f.mint(t, "bob", "ROLE_ACME_LOCAL_USER")
	rec = f.do(t, http.MethodPut, "/v1/users/"+bob.ID, bobToken, `{"password":"abcdefgh"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak password status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPut, "/v1/users/"+bob.ID, bobToken, `{"password":"Xy9@Xy9@abc"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("self edit status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDisableAndDeleteUser(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.mint(t, "root", identity.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/v1/users", admin,
		`{"login":"bob","password":"`+testPassword+`","roles":["ROLE_ACME_LOCAL_USER"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed bob: %d", rec.Code)
	}
	var bob identity.User
	if err := json.Unmarshal(rec.Body.Bytes(), &bob); err != nil {
		t.Fatal(err)
	}
	bobToken := f.mint(t, "bob", "ROLE_ACME_LOCAL_USER")

	if rec := f.do(t, http.MethodPost, "/v1/users/"+bob.ID+"/disable", bobToken, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("disable status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodDelete, "/v1/users/"+bob.ID, bobToken, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodGet, "/v1/users/"+bob.ID, admin, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted get status = %d", rec.Code)
	}
}

func TestCompanyEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.mint(t, "root", identity.RoleAdmin)
	plain := f.mint(t, "bob", "ROLE_ACME_LOCAL_USER")

	// Provisioning is admin only.
	rec := f.do(t, http.MethodPost, "/v1/companies", plain, `{"name":"Widget Inc","role_alias":"widget"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin provision status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/v1/companies", admin, `{"name":"Widget Inc","role_alias":"widget"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("provision status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var company identity.Company
	if err := json.Unmarshal(rec.Body.Bytes(), &company); err != nil {
		t.Fatal(err)
	}
	if company.RoleAlias != "WIDGET" {
		t.Fatalf("alias = %q", company.RoleAlias)
	}
	if _, err := f.store.Roles().FindByName(context.Background(), "ROLE_WIDGET_LOCAL_ADMIN"); err != nil {
		t.Fatalf("provisioned role missing: %v", err)
	}

	// Reads are open to any authenticated caller.
	if rec := f.do(t, http.MethodGet, "/v1/companies", plain, ""); rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/v1/companies/"+company.ID, plain, ""); rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Alias changes are refused.
	rec = f.do(t, http.MethodPut, "/v1/companies/"+company.ID, admin, `{"name":"Widget Inc","role_alias":"gadget"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("alias change status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPut, "/v1/companies/"+company.ID, admin, `{"name":"Widget Holdings","role_alias":"widget"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if rec := f.do(t, http.MethodDelete, "/v1/companies/"+company.ID, plain, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin delete status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/v1/companies/"+company.ID, admin, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.mint(t, "root", identity.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/v1/users", admin,
		`{"login":"bob","password":"`+testPassword+`","roles":["ROLE_ACME_LOCAL_USER"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed bob: %d", rec.Code)
	}

	bobToken := f.mint(t, "bob", "ROLE_ACME_LOCAL_USER")
	rec = f.do(t, http.MethodGet, "/v1/users/me", bobToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var me identity.User
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if me.Login != "bob" {
		t.Fatalf("me = %+v", me)
	}
}
