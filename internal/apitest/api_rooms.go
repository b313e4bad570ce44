package apitest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"roomboard/internal/models"
)

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{"rooms": s.store.roomsOf(userFrom(r.Context()))})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	rm, err := s.store.createRoom(userFrom(r.Context()), req.Name)
	if err != nil {
		s.writeFail(w, "create room", err)
		return
	}
	writeJSON(w, 201, map[string]any{"public_id": rm.id, "name": rm.name})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := s.store.roomFor(userFrom(r.Context()), chi.URLParam(r, "roomID"))
	if err != nil {
		s.writeFail(w, "room", err)
		return
	}
	writeJSON(w, 200, rm)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.store.deleteRoom(userFrom(r.Context()), chi.URLParam(r, "roomID")); err != nil {
		s.writeFail(w, "delete room", err)
		return
	}
	writeJSON(w, 200, map[string]any{"message": "Room deleted."})
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.store.leaveRoom(userFrom(r.Context()), chi.URLParam(r, "roomID")); err != nil {
		s.writeFail(w, "leave room", err)
		return
	}
	writeJSON(w, 200, map[string]any{"message": "Left room."})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	ms, err := s.store.members(userFrom(r.Context()), chi.URLParam(r, "roomID"))
	if err != nil {
		s.writeFail(w, "members", err)
		return
	}
	writeJSON(w, 200, map[string]any{"members": ms})
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role             models.Role `json:"role"`
		ConfirmationName string      `json:"confirmation_name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	m, err := s.store.setRole(userFrom(r.Context()), chi.URLParam(r, "roomID"), chi.URLParam(r, "memberID"), req.Role, req.ConfirmationName)
	if err != nil {
		s.writeFail(w, "update role", err)
		return
	}
	writeJSON(w, 200, map[string]any{"member": m})
}

func (s *Server) handleInvites(w http.ResponseWriter, r *http.Request) {
	invs, err := s.store.invitesOf(userFrom(r.Context()), chi.URLParam(r, "roomID"))
	if err != nil {
		s.writeFail(w, "invites", err)
		return
	}
	writeJSON(w, 200, map[string]any{"invites": invs})
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role           models.Role `json:"role"`
		MaxUses        *int        `json:"max_uses"`
		ExpiresInHours *int        `json:"expires_in_hours"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	inv, err := s.store.createInvite(userFrom(r.Context()), chi.URLParam(r, "roomID"), req.Role, req.MaxUses, req.ExpiresInHours)
	if err != nil {
		s.writeFail(w, "create invite", err)
		return
	}
	writeJSON(w, 201, map[string]any{"invite": inv})
}

func (s *Server) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.store.revokeInvite(userFrom(r.Context()), chi.URLParam(r, "roomID"), code); err != nil {
		s.writeFail(w, "revoke invite", err)
		return
	}
	writeJSON(w, 200, map[string]any{"message": "Invite revoked.", "code": code})
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	rm, inv, err := s.store.acceptInvite(userFrom(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		s.writeFail(w, "accept invite", err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"room":       map[string]any{"public_id": rm.id, "name": rm.name},
		"membership": map[string]any{"role": inv.role},
		"invite":     map[string]any{"code": inv.code, "role": inv.role},
	})
}
