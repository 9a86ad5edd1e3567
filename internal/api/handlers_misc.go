package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"bakchod/internal/call"
	"bakchod/internal/contacts"
	"bakchod/internal/invites"
	"bakchod/pkg/apperr"
)

func (s *Server) createCall(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DisplayName  string   `json:"displayName"`
		TargetIDs    []string `json:"targetIds"`
		TargetChatID string   `json:"targetChatId"`
		Mode         string   `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	ref, err := s.calls.Create(r.Context(), call.CreateInput{
		FromUserID:      UserID(r),
		FromDisplayName: input.DisplayName,
		TargetIDs:       input.TargetIDs,
		TargetChatID:    input.TargetChatID,
		Mode:            call.Mode(input.Mode),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (s *Server) getCall(w http.ResponseWriter, r *http.Request) {
	inv, err := s.calls.Get(r.Context(), mux.Vars(r)["callId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) updateCallStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	inv, err := s.calls.UpdateStatus(r.Context(), mux.Vars(r)["callId"], call.Status(input.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) importContacts(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Contacts []contacts.Input `json:"contacts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	imported, err := s.contacts.Import(r.Context(), UserID(r), input.Contacts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": imported})
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	list, err := s.contacts.List(r.Context(), UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": list})
}

func (s *Server) refreshContacts(w http.ResponseWriter, r *http.Request) {
	list, err := s.contacts.RefreshStatus(r.Context(), UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": list})
}

func (s *Server) createInvite(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DisplayName string `json:"displayName"`
		TargetType  string `json:"targetType"`
		TargetValue string `json:"targetValue"`
		Note        string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	inv, err := s.invites.Create(r.Context(), invites.CreateInput{
		InviterUserID: UserID(r),
		InviterName:   input.DisplayName,
		TargetType:    invites.TargetType(input.TargetType),
		TargetValue:   input.TargetValue,
		Note:          input.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) listInvites(w http.ResponseWriter, r *http.Request) {
	list, err := s.invites.ListPending(r.Context(), UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invites": list})
}

func (s *Server) decideInvite(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Accepted bool `json:"accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.InvalidArg("invalid request body"))
		return
	}
	if err := s.invites.Decide(r.Context(), mux.Vars(r)["inviteId"], input.Accepted); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
