package cas

import (
	"net/http"
	"strconv"

	"go.trai.ch/derive/internal/core/domain"
)

// ArtifactsPattern is the route Handler expects to be mounted on.
const ArtifactsPattern = "GET /artifacts/{path...}"

// Handler serves the committed content of an artifact. The ETag is the blob digest.
func Handler(s *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		artifact := domain.ArtifactPath(r.PathValue("path"))
		if err := artifact.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, digest, ok, err := s.lookup(artifact)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}

		etag := strconv.Quote(digest)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	})
}
