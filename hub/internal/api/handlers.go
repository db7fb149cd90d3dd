package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amurg-ai/contenthub/pkg/protocol"
)

const (
	defaultPage = 1
	defaultSize = 10
)

// --- Exec and query envelopes ---

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	identity := callerFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req protocol.ExecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Kind: "invalid_request", Message: "invalid request body"})
		return
	}

	result, err := s.backend.Exec(r.Context(), identity.ID, req)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Kind: "invalid_request", Message: "invalid request body"})
		return
	}

	out, err := s.backend.Query(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Read-only REST views ---

func (s *Server) handleListHubs(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pageParams(w, r)
	if !ok {
		return
	}
	s.query(w, r, protocol.HubAddressesQuery{Page: page, Size: size})
}

func (s *Server) handleGetHub(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, protocol.HubQuery{Creator: chi.URLParam(r, "creator")})
}

func (s *Server) handleHubExists(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, protocol.UserHasHubQuery{Creator: chi.URLParam(r, "creator")})
}

// handleHubPosts lists the posts the caller may see: the full window for a
// subscriber, otherwise the latest post only.
func (s *Server) handleHubPosts(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pageParams(w, r)
	if !ok {
		return
	}
	identity := callerFromContext(r.Context())
	s.query(w, r, protocol.HubPostsQuery{
		User:  identity.ID,
		HubID: chi.URLParam(r, "creator"),
		Page:  page,
		Size:  size,
	})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pageParams(w, r)
	if !ok {
		return
	}
	identity := callerFromContext(r.Context())
	s.query(w, r, protocol.UserSubscriptionsQuery{User: identity.ID, Page: page, Size: size})
}

func (s *Server) handlePostLikes(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, protocol.PostLikesQuery{PostID: chi.URLParam(r, "postID")})
}

func (s *Server) handlePostLiked(w http.ResponseWriter, r *http.Request) {
	identity := callerFromContext(r.Context())
	s.query(w, r, protocol.UserPostLikedQuery{User: identity.ID, PostID: chi.URLParam(r, "postID")})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, q protocol.Query) {
	out, err := s.backend.QueryTyped(r.Context(), q)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// pageParams reads ?page= and ?size=. On a malformed value it writes a 400
// and reports false.
func pageParams(w http.ResponseWriter, r *http.Request) (page, size uint64, ok bool) {
	page, size = defaultPage, defaultSize
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page")
			return 0, 0, false
		}
		page = n
	}
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid size")
			return 0, 0, false
		}
		size = n
	}
	return page, size, true
}

func splitTypes(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
