package authpw

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"pblboard/api/internal/auth"
	"pblboard/api/internal/store"
)

type mockUserStore struct {
	users   map[string]store.User
	lookups int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]store.User)}
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	m.lookups++
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockUserStore) CreateUser(_ context.Context, user store.User) (store.User, error) {
	user.ID = "user-" + user.Email
	m.users[user.Email] = user
	return user, nil
}

func newTestService(m *mockUserStore) *Service {
	svc := NewService(m, auth.NewDomainPolicy([]string{"orchardview.org"}))
	svc.cost = bcrypt.MinCost
	return svc
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	m := newMockUserStore()
	svc := newTestService(m)

	user, err := svc.SignUp(ctx, SignUpRequest{Email: " Teacher@OrchardView.org ", Password: "password123", DisplayName: "Ms. Rivera"})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if user.Email != "teacher@orchardview.org" || user.ID == "" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "password123" {
		t.Fatal("password must be hashed")
	}

	cases := []struct {
		name string
		req  SignUpRequest
		want error
	}{
		{"duplicate", SignUpRequest{Email: "teacher@orchardview.org", Password: "password123", DisplayName: "X"}, ErrEmailTaken},
		{"missing fields", SignUpRequest{Email: "a@orchardview.org"}, ErrMissingFields},
		{"short password", SignUpRequest{Email: "b@orchardview.org", Password: "short", DisplayName: "B"}, ErrWeakPassword},
		{"blocked domain", SignUpRequest{Email: "c@gmail.com", Password: "password123", DisplayName: "C"}, auth.ErrDomainNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("SignUp() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSignUpChecksDomainBeforeStore(t *testing.T) {
	m := newMockUserStore()
	svc := newTestService(m)
	if _, err := svc.SignUp(context.Background(), SignUpRequest{Email: "x@gmail.com", Password: "password123", DisplayName: "X"}); !errors.Is(err, auth.ErrDomainNotAllowed) {
		t.Fatalf("expected ErrDomainNotAllowed, got %v", err)
	}
	if m.lookups != 0 {
		t.Fatalf("store was queried %d times for a blocked domain", m.lookups)
	}
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	m := newMockUserStore()
	svc := newTestService(m)
	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "teacher@orchardview.org", Password: "password123", DisplayName: "T"}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	user, err := svc.SignIn(ctx, SignInRequest{Email: "TEACHER@orchardview.org", Password: "password123"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if user.Email != "teacher@orchardview.org" {
		t.Fatalf("unexpected user: %+v", user)
	}

	cases := []struct {
		name string
		req  SignInRequest
		want error
	}{
		{"wrong password", SignInRequest{Email: "teacher@orchardview.org", Password: "nope-nope"}, ErrInvalidCredentials},
		{"unknown user", SignInRequest{Email: "ghost@orchardview.org", Password: "password123"}, ErrInvalidCredentials},
		{"empty", SignInRequest{}, ErrInvalidCredentials},
		{"blocked domain", SignInRequest{Email: "teacher@gmail.com", Password: "password123"}, auth.ErrDomainNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SignIn(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("SignIn() error = %v, want %v", err, tc.want)
			}
		})
	}
}
