package server

import (
	"net/http"
	"os"

	"github.com/HaiFongPan/rbrowse/internal/utils"
)

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	local, err := s.resolve(uri)
	if err != nil {
		sendFSError(w, err)
		return
	}

	data, err := os.ReadFile(local)
	if err != nil {
		sendFSError(w, err)
		return
	}

	if r.URL.Query().Get("preview") == "true" {
		thumb, err := utils.Thumbnail(data, uri)
		if err != nil {
			sendError(w, http.StatusUnsupportedMediaType, "not a decodable image")
			return
		}
		data = thumb
	}

	w.Header().Set("Content-Type", utils.ContentTypeByName(uri))
	w.Write(data)
}
