package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/port"
)

// AdminHandler handles staff-only endpoints
type AdminHandler struct {
	users  port.UserRepository
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(users port.UserRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		users:  users,
		logger: logger,
	}
}

// HandleUsers handles GET /api/admin/users
func (h *AdminHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	users, err := h.users.ListUsers()
	if err != nil {
		writeError(w, h.logger, "user list failed", err)
		return
	}
	writeJSON(w, users)
}
