package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dailyledger/internal/access"
	"dailyledger/internal/log"
)

const opAccess = "access"

// GET /api/me/role
func (s *Server) handleCallerRole(w http.ResponseWriter, r *http.Request) {
	role := s.registry.RoleOf(access.PrincipalFromContext(r.Context()))
	NewResponse().JSON(map[string]string{"role": string(role)}).Write(w)
}

// GET /api/me/admin
func (s *Server) handleIsCallerAdmin(w http.ResponseWriter, r *http.Request) {
	admin := s.registry.IsAdmin(access.PrincipalFromContext(r.Context()))
	NewResponse().JSON(map[string]bool{"admin": admin}).Write(w)
}

// handleGetCallerProfile answers null when the caller has saved no profile.
// GET /api/me/profile
func (s *Server) handleGetCallerProfile(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.registry.CallerProfile(access.PrincipalFromContext(r.Context()))
	writeProfile(w, r, p, ok, err)
}

// PUT /api/me/profile
func (s *Server) handleSaveCallerProfile(w http.ResponseWriter, r *http.Request) {
	caller := access.PrincipalFromContext(r.Context())
	if err := s.registry.Require(caller, access.RoleUser); err != nil {
		errorResponse(r, err, opAccess).Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		errorResponse(r, err, opAccess).Write(w)
		return
	}
	if err := s.registry.SaveCallerProfile(caller, access.Profile{Name: p.Get("name")}); err != nil {
		errorResponse(r, err, opAccess).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Caller profile saved",
		log.NewFields().WithPrincipal(caller).ToSlice()...)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// GET /api/users/{principal}/profile
func (s *Server) handleGetUserProfile(w http.ResponseWriter, r *http.Request) {
	caller := access.PrincipalFromContext(r.Context())
	p, ok, err := s.registry.ProfileOf(caller, chi.URLParam(r, "principal"))
	writeProfile(w, r, p, ok, err)
}

// PUT /api/users/{principal}/role
func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	caller := access.PrincipalFromContext(r.Context())
	if err := s.registry.Require(caller, access.RoleAdmin); err != nil {
		errorResponse(r, err, opAccess).Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		errorResponse(r, err, opAccess).Write(w)
		return
	}
	role, err := access.ParseRole(p.Get("role"))
	if err != nil {
		errorResponse(r, err, opAccess).Write(w)
		return
	}
	target := chi.URLParam(r, "principal")
	if err := s.registry.AssignRole(caller, target, role); err != nil {
		errorResponse(r, err, opAccess).Write(w)
		return
	}
	fields := log.NewFields().WithPrincipal(caller)
	fields["target"] = target
	fields["role"] = string(role)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Role assigned", fields.ToSlice()...)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func writeProfile(w http.ResponseWriter, r *http.Request, p access.Profile, ok bool, err error) {
	if err != nil {
		errorResponse(r, err, opAccess).Write(w)
		return
	}
	if !ok {
		NewResponse().JSON(nil).Write(w)
		return
	}
	NewResponse().JSON(p).Write(w)
}
