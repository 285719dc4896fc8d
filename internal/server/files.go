package server

import (
	"net/http"
)

// fileEntry is one row of the GET /files listing. Modified is Unix seconds
// with sub-second precision.
type fileEntry struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"`
}

type listFilesResp struct {
	Files []fileEntry `json:"files"`
	Total int         `json:"total"`
}

// handleListFiles handles GET /files: every regular file in the upload
// directory with its size and modification time.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list files failed", map[string]any{"rid": RequestIDFromContext(r.Context())}, err)
		writeError(w, http.StatusInternalServerError, "error listing files: "+err.Error())
		return
	}

	resp := listFilesResp{
		Files: make([]fileEntry, 0, len(files)),
		Total: len(files),
	}
	for _, f := range files {
		resp.Files = append(resp.Files, fileEntry{
			Name:     f.Name,
			Size:     f.Size,
			Modified: float64(f.Modified.UnixNano()) / 1e9,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
