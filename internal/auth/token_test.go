package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, Claims{
		Sub:   "user-1",
		Name:  "Avery",
		Email: "avery@orchardview.org",
		JTI:   "jti-1",
		Exp:   time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(secret, issued)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Sub != "user-1" || claims.Name != "Avery" || claims.Email != "avery@orchardview.org" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, Claims{
		Sub:   "user-1",
		Email: "avery@orchardview.org",
		JTI:   "jti-1",
		Exp:   time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, issued); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	issued, err := IssueToken([]byte("secret"), Claims{Sub: "u", Email: "a@b.org", JTI: "j", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("other"), issued); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
	if _, err := ParseToken([]byte("secret"), strings.Replace(issued, ".", "x.", 1)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for modified payload, got %v", err)
	}
	if _, err := ParseToken([]byte("secret"), "garbage"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestRefreshTokenAndHash(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken() error = %v", err)
	}
	b, _ := NewRefreshToken()
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected refresh tokens %q %q", a, b)
	}
	if HashToken(a) != HashToken(a) || HashToken(a) == HashToken(b) {
		t.Fatal("HashToken must be deterministic and distinct")
	}
}

func TestDomainPolicy(t *testing.T) {
	p := NewDomainPolicy([]string{"orchardview.org", " @MuskegonISD.org "})
	cases := []struct {
		email string
		allow bool
	}{
		{"teacher@orchardview.org", true},
		{"Teacher@MUSKEGONISD.ORG", true},
		{"someone@gmail.com", false},
		{"no-at-sign", false},
		{"trailing@", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := p.Allowed(tc.email); got != tc.allow {
			t.Errorf("Allowed(%q) = %v, want %v", tc.email, got, tc.allow)
		}
	}
	if err := p.Check("x@gmail.com"); err != ErrDomainNotAllowed {
		t.Fatalf("expected ErrDomainNotAllowed, got %v", err)
	}
	if NewDomainPolicy(nil).Allowed("a@orchardview.org") {
		t.Fatal("empty policy must admit nobody")
	}
}
