// Package access resolves caller roles and stores caller profiles.
package access

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

var (
	ErrUnauthorized   = errors.New("authentication required")
	ErrForbidden      = errors.New("insufficient role")
	ErrUnknownRole    = errors.New("unknown role")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrEmptyPrincipal = errors.New("empty principal")
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser, RoleGuest:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool { return r.rank() >= min.rank() }

// Profile is the caller-maintained display data.
type Profile struct {
	Name string `json:"name"`
}

// Registry holds role assignments and profiles keyed by principal. The empty
// principal is the anonymous caller and is always a guest.
type Registry struct {
	mu       sync.RWMutex
	admins   map[string]bool
	roles    map[string]Role
	profiles map[string]Profile
}

// NewRegistry seeds the registry with principals that are always admin.
func NewRegistry(admins []string) *Registry {
	r := &Registry{
		admins:   make(map[string]bool),
		roles:    make(map[string]Role),
		profiles: make(map[string]Profile),
	}
	for _, p := range admins {
		if p = strings.TrimSpace(p); p != "" {
			r.admins[p] = true
		}
	}
	return r
}

// RoleOf returns the effective role of principal.
func (r *Registry) RoleOf(principal string) Role {
	if principal == "" {
		return RoleGuest
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.admins[principal] {
		return RoleAdmin
	}
	if role, ok := r.roles[principal]; ok {
		return role
	}
	return RoleUser
}

func (r *Registry) IsAdmin(principal string) bool {
	return r.RoleOf(principal) == RoleAdmin
}

// Require fails with ErrUnauthorized for anonymous callers and ErrForbidden
// for authenticated callers below min.
func (r *Registry) Require(principal string, min Role) error {
	if r.RoleOf(principal).AtLeast(min) {
		return nil
	}
	if principal == "" {
		return ErrUnauthorized
	}
	return fmt.Errorf("%w: %s requires %s", ErrForbidden, principal, min)
}

// AssignRole sets target's role. Only admins may assign roles, and
// configured admins cannot be demoted.
func (r *Registry) AssignRole(caller, target string, role Role) error {
	if err := r.Require(caller, RoleAdmin); err != nil {
		return err
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrEmptyPrincipal
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.admins[target] && role != RoleAdmin {
		return fmt.Errorf("%w: %s is a configured admin", ErrForbidden, target)
	}
	r.roles[target] = role
	return nil
}

// CallerProfile returns the caller's own profile; ok is false when none was
// saved.
func (r *Registry) CallerProfile(caller string) (p Profile, ok bool, err error) {
	if err := r.Require(caller, RoleUser); err != nil {
		return Profile{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok = r.profiles[caller]
	return p, ok, nil
}

func (r *Registry) SaveCallerProfile(caller string, p Profile) error {
	if err := r.Require(caller, RoleUser); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || utf8.RuneCountInString(p.Name) > 200 {
		return fmt.Errorf("%w: name must be 1-200 characters", ErrInvalidProfile)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[caller] = p
	return nil
}

// ProfileOf returns target's profile. Callers may read their own profile;
// admins may read anyone's.
func (r *Registry) ProfileOf(caller, target string) (Profile, bool, error) {
	if err := r.Require(caller, RoleUser); err != nil {
		return Profile{}, false, err
	}
	if caller != target && !r.IsAdmin(caller) {
		return Profile{}, false, fmt.Errorf("%w: cannot read another principal's profile", ErrForbidden)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[target]
	return p, ok, nil
}
