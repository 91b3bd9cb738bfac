package httpapi

import (
	"net/http"

	"github.com/louisbranch/indogram/internal/platform/httpx"
)

type createGroupRequest struct {
	Name   string `json:"name"`
	Locked bool   `json:"locked"`
	Me     string `json:"me"`
}

type groupInviteRequest struct {
	Username string `json:"username"`
	Me       string `json:"me"`
}

type groupRespondRequest struct {
	Action string `json:"action"`
	Me     string `json:"me"`
}

type groupMessageRequest struct {
	Text string `json:"text"`
	Me   string `json:"me"`
}

type groupLockRequest struct {
	Locked bool   `json:"locked"`
	Me     string `json:"me"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.ListGroups(r.Context(), queryViewer(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	resp := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		resp = append(resp, toGroupResponse(group, false))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := s.service.CreateGroup(r.Context(), bodyViewer(r, req.Me), req.Name, req.Locked)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toGroupResponse(group, false))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.service.GetGroup(r.Context(), queryViewer(r), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toGroupResponse(group, true))
}

func (s *Server) handleGroupInvite(w http.ResponseWriter, r *http.Request) {
	var req groupInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := s.service.InviteToGroup(r.Context(), bodyViewer(r, req.Me), r.PathValue("id"), req.Username)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, groupEnvelope{OK: true, Group: toGroupResponse(group, true)})
}

func (s *Server) handleGroupInviteRespond(w http.ResponseWriter, r *http.Request) {
	var req groupRespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := s.service.RespondGroupInvite(r.Context(), bodyViewer(r, req.Me), r.PathValue("id"), req.Action)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, groupEnvelope{OK: true, Group: toGroupResponse(group, true)})
}

func (s *Server) handleGroupMessage(w http.ResponseWriter, r *http.Request) {
	var req groupMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	message, err := s.service.PostGroupMessage(r.Context(), bodyViewer(r, req.Me), r.PathValue("id"), req.Text)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toMessageResponse(message))
}

func (s *Server) handleGroupLock(w http.ResponseWriter, r *http.Request) {
	var req groupLockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := s.service.SetGroupLocked(r.Context(), bodyViewer(r, req.Me), r.PathValue("id"), req.Locked)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toGroupResponse(group, false))
}
