package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/port"
	"github.com/oocloud/oocloud/internal/service/drive"
)

// DriveHandler handles the private-space endpoints
type DriveHandler struct {
	drive  *drive.Service
	thumbs port.Thumbnailer
	logger *zap.Logger
}

// NewDriveHandler creates a new DriveHandler. thumbs may be nil, in which
// case thumbnail requests return 404.
func NewDriveHandler(driveSvc *drive.Service, thumbs port.Thumbnailer, logger *zap.Logger) *DriveHandler {
	return &DriveHandler{
		drive:  driveSvc,
		thumbs: thumbs,
		logger: logger,
	}
}

// HandleFiles handles GET /api/files and POST /api/files (upload)
func (h *DriveHandler) HandleFiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listFiles(w, r)
	case http.MethodPost:
		h.upload(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DriveHandler) listFiles(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r)

	records, err := h.drive.ListActive(user)
	if err != nil {
		writeError(w, h.logger, "list failed", err)
		return
	}
	writeJSON(w, records)
}

// HandleTrash handles GET /api/trash
func (h *DriveHandler) HandleTrash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := UserFrom(r)

	records, err := h.drive.ListTrashed(user)
	if err != nil {
		writeError(w, h.logger, "trash list failed", err)
		return
	}
	writeJSON(w, records)
}

func (h *DriveHandler) upload(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Multipart field 'file' required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	cat := domain.Category(r.FormValue("category"))

	rec, err := h.drive.Upload(user, cat, header.Filename, file)
	if err != nil {
		writeError(w, h.logger, "upload failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// HandleFile routes /api/files/{id} and /api/files/{id}/{action}
func (h *DriveHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/files/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		http.Error(w, "File ID required", http.StatusBadRequest)
		return
	}
	id := parts[0]

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.download(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "favorite":
		h.transition(w, r, id, h.drive.ToggleFavorite)
	case "restore":
		h.transition(w, r, id, h.drive.Restore)
	case "trash":
		h.transition(w, r, id, h.drive.SoftDelete)
	case "thumbnail":
		h.thumbnail(w, r, id)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *DriveHandler) download(w http.ResponseWriter, r *http.Request, id string) {
	user := UserFrom(r)

	rec, f, err := h.drive.Open(user, id)
	if err != nil {
		writeError(w, h.logger, "download failed", err)
		return
	}
	defer f.Close()

	serveFile(w, f, rec.PhysicalName, rec.Size)

	h.logger.Info("served file",
		zap.String("user", user.ID),
		zap.String("name", rec.PhysicalName))
}

func (h *DriveHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	user := UserFrom(r)

	res, err := h.drive.Delete(user, id)
	if err != nil {
		writeError(w, h.logger, "delete failed", err)
		return
	}
	writeJSON(w, res)
}

func (h *DriveHandler) transition(w http.ResponseWriter, r *http.Request, id string,
	op func(*domain.User, string) (*drive.TransitionResult, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := UserFrom(r)

	res, err := op(user, id)
	if err != nil {
		writeError(w, h.logger, "transition failed", err)
		return
	}
	writeJSON(w, res)
}

func (h *DriveHandler) thumbnail(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.thumbs == nil {
		http.Error(w, "Thumbnails not available", http.StatusNotFound)
		return
	}
	user := UserFrom(r)

	rec, err := h.drive.Get(user, id)
	if err != nil {
		writeError(w, h.logger, "thumbnail failed", err)
		return
	}
	if rec.Category != domain.CategoryPhoto {
		http.Error(w, "Not a photo", http.StatusNotFound)
		return
	}

	data, contentType, err := h.thumbs.Thumbnail(h.drive.AbsPath(rec), 256)
	if err != nil {
		writeError(w, h.logger, "thumbnail failed", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

// HandleBrowse handles GET /api/browse?path=
func (h *DriveHandler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := UserFrom(r)

	listing, err := h.drive.Browse(user, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, h.logger, "browse failed", err)
		return
	}
	writeJSON(w, listing)
}

// serveFile writes download headers and streams f to the client.
func serveFile(w http.ResponseWriter, f io.Reader, name string, size int64) {
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))

	io.Copy(w, f)
}
