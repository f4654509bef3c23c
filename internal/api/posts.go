// ABOUTME: Public browse-all-posts view, no authentication required
// ABOUTME: Optionally renders post bodies from markdown to HTML with goldmark

package api

import (
	"bytes"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/2389/nestbox/internal/registry"
)

var markdown = goldmark.New()

// handleAllPosts handles GET /posts: every user's posts, for the public
// browse view. With ?format=html each post gains a bodyHtml field rendered
// from its markdown body.
func (s *Server) handleAllPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListAll(r.Context(), registry.KindPosts)
	if err != nil {
		s.logger.Error("listing all posts", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if r.URL.Query().Get("format") == "html" {
		for _, p := range posts {
			var buf bytes.Buffer
			if err := markdown.Convert([]byte(p.Ref("body")), &buf); err != nil {
				s.logger.Warn("rendering post body", "id", p.ID(), "error", err)
				continue
			}
			p["bodyHtml"] = buf.String()
		}
	}

	s.logger.Info("retrieved all posts", "count", len(posts))
	s.writeJSON(w, http.StatusOK, nonNil(posts))
}
