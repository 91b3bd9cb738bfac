// Package httpapi exposes the Indogram social service as a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/indogram/internal/platform/errors"
	"github.com/louisbranch/indogram/internal/platform/httpx"
	"github.com/louisbranch/indogram/internal/platform/requestctx"
	"github.com/louisbranch/indogram/internal/services/social/authtoken"
	"github.com/louisbranch/indogram/internal/services/social/domain"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 2 << 20

// TokenVerifier resolves a bearer token to a handle.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Server routes HTTP requests to the social domain service.
type Server struct {
	service *domain.Service
	tokens  TokenVerifier
}

// NewServer builds an HTTP API over service. A nil verifier disables bearer
// authentication; callers then act through the declared viewer only.
func NewServer(service *domain.Service, tokens TokenVerifier) *Server {
	return &Server{service: service, tokens: tokens}
}

// Handler returns the routed API wrapped in the standard middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID("api"),
		httpx.Trace("services/social/api/httpapi"),
		httpx.AccessLog(),
		httpx.CORS(),
		httpx.LimitBody(MaxBodyBytes),
		s.authenticate,
	)
}

// RegisterRoutes registers the API endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)

	mux.HandleFunc("GET /api/users/search", s.handleSearchUsers)
	mux.HandleFunc("GET /api/users/{username}", s.handleProfile)
	mux.HandleFunc("GET /api/users/{username}/stats", s.handleStats)
	mux.HandleFunc("GET /api/users/{username}/posts", s.handleUserPosts)
	mux.HandleFunc("POST /api/users/{username}/follow", s.handleFollow)
	mux.HandleFunc("POST /api/users/{username}/unfollow", s.handleUnfollow)
	mux.HandleFunc("POST /api/users/{username}/rename", s.handleRename)

	mux.HandleFunc("GET /api/posts", s.handleFeed)
	mux.HandleFunc("POST /api/posts", s.handleCreatePost)
	mux.HandleFunc("POST /api/posts/{id}/like", s.handleLike)
	mux.HandleFunc("POST /api/posts/{id}/comments", s.handleComment)
	mux.HandleFunc("DELETE /api/posts/{id}", s.handleDeletePost)
	mux.HandleFunc("GET /api/tags/trending", s.handleTrending)
	mux.HandleFunc("GET /api/tags/{tag}/posts", s.handleTagPosts)

	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("POST /api/groups/{id}/invite", s.handleGroupInvite)
	mux.HandleFunc("POST /api/groups/{id}/invite/respond", s.handleGroupInviteRespond)
	mux.HandleFunc("POST /api/groups/{id}/messages", s.handleGroupMessage)
	mux.HandleFunc("POST /api/groups/{id}/lock", s.handleGroupLock)

	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkRead)
	mux.HandleFunc("POST /api/friends/invite", s.handleFriendInvite)
	mux.HandleFunc("POST /api/friends/respond", s.handleFriendRespond)
}

// authenticate attaches the bearer token's handle to the request context.
// Missing or invalid tokens leave the request anonymous.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens != nil {
			if token, ok := authtoken.FromAuthorization(r.Header.Get("Authorization")); ok {
				if handle, err := s.tokens.Verify(token); err == nil {
					r = r.WithContext(requestctx.WithHandle(r.Context(), handle))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, okResponse{OK: true})
}

// queryViewer resolves the acting handle for read endpoints.
func queryViewer(r *http.Request) string {
	return requestctx.ViewerHandle(r.Context(), strings.TrimSpace(r.URL.Query().Get("me")))
}

// bodyViewer resolves the acting handle for write endpoints.
func bodyViewer(r *http.Request, declared string) string {
	return requestctx.ViewerHandle(r.Context(), strings.TrimSpace(declared))
}

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		httpx.WriteJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
		return false
	}
	httpx.WriteJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidRequest))
	return false
}
