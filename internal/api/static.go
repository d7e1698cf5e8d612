package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

func (s *Server) publicPath(elem ...string) string {
	return filepath.Join(append([]string{s.opts.PublicDir}, elem...)...)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.publicPath("index.html"))
	if err != nil {
		s.log.Error().Err(err).Msg("Error serving static file")
		respondJSON(w, http.StatusInternalServerError, message("Error serving static file"))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.log.Error().Err(err).Msg("Error serving static file")
		respondJSON(w, http.StatusInternalServerError, message("Error serving static file"))
		return
	}
	http.ServeContent(w, r, "index.html", info.ModTime(), f)
}

// serveDir serves files below root for requests under prefix. Directories
// are never listed.
func (s *Server) serveDir(prefix, root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, prefix)
		if !serveFile(w, r, root, name) {
			s.routeNotFound(w, r)
		}
	}
}

// handleFallback serves a file from the public directory when one matches,
// and the JSON 404 otherwise.
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		if serveFile(w, r, s.opts.PublicDir, r.URL.Path) {
			return
		}
	}
	s.routeNotFound(w, r)
}

func serveFile(w http.ResponseWriter, r *http.Request, root, name string) bool {
	if root == "" {
		return false
	}
	// http.Dir rejects names that climb out of root.
	f, err := http.Dir(root).Open(path.Clean("/" + name))
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

func (s *Server) routeNotFound(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Str("method", r.Method).Str("url", r.URL.RequestURI()).Msg("404 Not Found")
	respondJSON(w, http.StatusNotFound, message("Route not found"))
}
