package auth

import (
	"errors"
	"strings"
)

var ErrDomainNotAllowed = errors.New("email domain not allowed")

// DomainPolicy admits emails whose domain is on the allow-list. An empty
// policy admits nobody.
type DomainPolicy struct {
	domains map[string]struct{}
}

func NewDomainPolicy(domains []string) DomainPolicy {
	p := DomainPolicy{domains: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			p.domains[d] = struct{}{}
		}
	}
	return p
}

// Domain returns the lowercased part after the last "@", or "" when email
// has none.
func Domain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 || i == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[i+1:]))
}

func (p DomainPolicy) Allowed(email string) bool {
	d := Domain(email)
	if d == "" {
		return false
	}
	_, ok := p.domains[d]
	return ok
}

// Check returns ErrDomainNotAllowed for emails outside the allow-list.
func (p DomainPolicy) Check(email string) error {
	if !p.Allowed(email) {
		return ErrDomainNotAllowed
	}
	return nil
}
