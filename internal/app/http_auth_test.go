package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodGet, "/api/boards", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodGet, "/api/boards", "not-a-token", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestPageRedirectsToLogin(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodGet, "/board/brd_1", "", "")
	if rr.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/auth/login" {
		t.Fatalf("expected redirect to /auth/login, got %q", got)
	}
}

func TestDomainNotAllowed(t *testing.T) {
	env := newTestEnv()
	tok := token(t, "usr_x", "someone@elsewhere.com")

	rr := env.do(t, http.MethodGet, "/api/boards", tok, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body["code"] != "DOMAIN_NOT_ALLOWED" {
		t.Fatalf("expected DOMAIN_NOT_ALLOWED, got %v", body["code"])
	}

	page := env.do(t, http.MethodGet, "/board/brd_1", tok, "")
	if page.Code != http.StatusFound || page.Header().Get("Location") != "/unauthorized" {
		t.Fatalf("expected redirect to /unauthorized, got %d %q", page.Code, page.Header().Get("Location"))
	}
}

func TestLoginPageIsHTML(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodGet, "/auth/login", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("expected html content type, got %q", got)
	}
}

func TestSignUpSignInAndRefresh(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/api/auth/signup", "",
		`{"email":"Teacher@School.org","password":"correct-horse","displayName":"Ms. Rivera"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected session cookie to be set")
	}

	dup := env.do(t, http.MethodPost, "/api/auth/signup", "",
		`{"email":"teacher@school.org","password":"correct-horse","displayName":"Ms. Rivera"}`)
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate signup, got %d", dup.Code)
	}

	bad := env.do(t, http.MethodPost, "/api/auth/signin", "", `{"email":"teacher@school.org","password":"wrong-horse"}`)
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for wrong password, got %d", bad.Code)
	}

	ok := env.do(t, http.MethodPost, "/api/auth/signin", "", `{"email":"teacher@school.org","password":"correct-horse"}`)
	if ok.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", ok.Code, ok.Body.String())
	}
	var signedIn struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(ok.Body.Bytes(), &signedIn); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if signedIn.User.Email != "teacher@school.org" {
		t.Fatalf("expected normalized email, got %q", signedIn.User.Email)
	}

	refreshed := env.do(t, http.MethodPost, "/api/auth/refresh", "", `{"refreshToken":"`+signedIn.RefreshToken+`"}`)
	if refreshed.Code != http.StatusOK {
		t.Fatalf("expected status 200 on refresh, got %d", refreshed.Code)
	}
	reused := env.do(t, http.MethodPost, "/api/auth/refresh", "", `{"refreshToken":"`+signedIn.RefreshToken+`"}`)
	if reused.Code != http.StatusUnauthorized {
		t.Fatalf("expected refresh token to be single use, got %d", reused.Code)
	}
}

func TestSignUpOutsideDomain(t *testing.T) {
	env := newTestEnv()

	rr := env.do(t, http.MethodPost, "/api/auth/signup", "",
		`{"email":"a@gmail.com","password":"correct-horse","displayName":"A"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestSessionEndpointUsesCookie(t *testing.T) {
	env := newTestEnv()
	tok := token(t, "usr_1", "a@school.org")

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: tok})
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)

	var body struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !body.Authenticated || body.User.ID != "usr_1" {
		t.Fatalf("expected authenticated usr_1, got %+v", body)
	}

	anon := env.do(t, http.MethodGet, "/api/session", "", "")
	_ = json.Unmarshal(anon.Body.Bytes(), &body)
	if body.Authenticated {
		t.Fatal("expected anonymous session")
	}
}
