package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/service/shared"
)

// SharedHandler handles the common-folder endpoints
type SharedHandler struct {
	shared *shared.Service
	logger *zap.Logger
}

// NewSharedHandler creates a new SharedHandler
func NewSharedHandler(sharedSvc *shared.Service, logger *zap.Logger) *SharedHandler {
	return &SharedHandler{
		shared: sharedSvc,
		logger: logger,
	}
}

// HandleShared handles /api/shared: GET lists, POST uploads, DELETE removes.
// The target path comes from the "path" query parameter.
func (h *SharedHandler) HandleShared(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.upload(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SharedHandler) list(w http.ResponseWriter, r *http.Request) {
	listing, err := h.shared.List(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, h.logger, "shared list failed", err)
		return
	}
	writeJSON(w, listing)
}

func (h *SharedHandler) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Multipart field 'file' required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name, err := h.shared.Upload(header.Filename, file)
	if err != nil {
		writeError(w, h.logger, "shared upload failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"name": name})
}

func (h *SharedHandler) delete(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if err := h.shared.Delete(path); err != nil {
		writeError(w, h.logger, "shared delete failed", err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

// HandleDownload handles GET /api/shared/file?path=
func (h *SharedHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f, name, err := h.shared.Open(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, h.logger, "shared download failed", err)
		return
	}
	defer f.Close()

	size := int64(0)
	if stat, err := f.Stat(); err == nil {
		size = stat.Size()
	}
	serveFile(w, f, name, size)
}

// HandleCopy handles POST /api/shared/copy?path=, copying a shared file
// into the caller's private space.
func (h *SharedHandler) HandleCopy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := UserFrom(r)

	rec, err := h.shared.CopyToPrivate(user, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, h.logger, "shared copy failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}
