package httpapi

import (
	"net/http"

	"github.com/louisbranch/indogram/internal/platform/httpx"
	"github.com/louisbranch/indogram/internal/services/social/domain"
)

type createPostRequest struct {
	Images  []string  `json:"images"`
	Caption string    `json:"caption"`
	Author  authorRef `json:"author"`
}

type commentRequest struct {
	Text   string    `json:"text"`
	Author authorRef `json:"author"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := s.service.ListFeed(r.Context(), queryViewer(r), r.URL.Query().Get("filter"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostsResponse(posts))
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	post, err := s.service.CreatePost(r.Context(), domain.CreatePostInput{
		Author:  bodyViewer(r, req.Author.Username),
		Images:  req.Images,
		Caption: req.Caption,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPostResponse(post))
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	post, err := s.service.ToggleLike(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	comment, err := s.service.AddComment(r.Context(), r.PathValue("id"), bodyViewer(r, req.Author.Username), req.Text)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePost(r.Context(), r.PathValue("id")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleTagPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.service.ListPostsByTag(r.Context(), r.PathValue("tag"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPostsResponse(posts))
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.TrendingTags(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	resp := make([]trendingResponse, 0, len(counts))
	for _, count := range counts {
		resp = append(resp, trendingResponse(count))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
