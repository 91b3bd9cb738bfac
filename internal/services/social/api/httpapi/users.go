package httpapi

import (
	"net/http"

	"github.com/louisbranch/indogram/internal/platform/httpx"
	"github.com/louisbranch/indogram/internal/platform/requestctx"
	"github.com/louisbranch/indogram/internal/services/social/domain"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	NameID   string `json:"nameid"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type viewerRequest struct {
	Me string `json:"me"`
}

type renameRequest struct {
	To string `json:"to"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := s.service.Register(r.Context(), domain.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		NameID:   req.NameID,
		Name:     req.Name,
		Avatar:   req.Avatar,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := s.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.Me(r.Context(), requestctx.HandleFromContext(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		Username:  user.Handle,
		Name:      user.Name(),
		NameID:    user.NameID,
		Avatar:    user.Avatar,
		Following: user.Following,
	})
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	results, err := s.service.SearchUsers(r.Context(), queryViewer(r), r.URL.Query().Get("nameid"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	resp := make([]searchResultResponse, 0, len(results))
	for _, result := range results {
		resp = append(resp, searchResultResponse{
			Username:    result.Handle,
			Name:        result.Name(),
			NameID:      result.NameID,
			Avatar:      result.Avatar,
			IsFollowing: result.IsFollowing,
			IsMutual:    result.IsMutual,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.service.GetProfile(r.Context(), queryViewer(r), r.PathValue("username"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profileResponse{
		Username:  profile.Handle,
		Name:      profile.Name,
		Following: profile.Following,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.ProfileStats(r.Context(), queryViewer(r), r.PathValue("username"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, statsResponse{Followers: stats.Followers, Following: stats.Following})
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.service.ListPostsByAuthor(r.Context(), queryViewer(r), r.PathValue("username"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostsResponse(posts))
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	var req viewerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	following, err := s.service.Follow(r.Context(), bodyViewer(r, req.Me), r.PathValue("username"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, followResponse{OK: true, Following: following})
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	var req viewerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	following, err := s.service.Unfollow(r.Context(), bodyViewer(r, req.Me), r.PathValue("username"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, followResponse{OK: true, Following: following})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	renamed, err := s.service.RenameUser(r.Context(), r.PathValue("username"), req.To)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, renameResponse{OK: true, Username: renamed})
}
