package httpapi

import (
	"net/http"

	"github.com/louisbranch/indogram/internal/platform/httpx"
)

type friendInviteRequest struct {
	To string `json:"to"`
	Me string `json:"me"`
}

type friendRespondRequest struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Me     string `json:"me"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.service.ListNotifications(r.Context(), queryViewer(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	resp := make([]notificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		resp = append(resp, toNotificationResponse(notification))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.MarkRead(r.Context(), r.PathValue("id")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleFriendInvite(w http.ResponseWriter, r *http.Request) {
	var req friendInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	invite, err := s.service.InviteFriend(r.Context(), bodyViewer(r, req.Me), req.To)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, friendInviteResponse{OK: true, ID: invite.ID})
}

func (s *Server) handleFriendRespond(w http.ResponseWriter, r *http.Request) {
	var req friendRespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	response, err := s.service.RespondFriendInvite(r.Context(), bodyViewer(r, req.Me), req.ID, req.Action)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, friendRespondResponse{OK: true, OtherUser: response.OtherUser})
}
