package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/service/auth"
)

// AuthHandler handles registration and login requests
type AuthHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authSvc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authSvc,
		logger: logger,
	}
}

type registerRequest struct {
	PhoneNumber string `json:"phone_number"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type otpRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// HandleRegister handles POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.auth.Register(req.PhoneNumber, req.Username, req.FullName, req.Password)
	if err != nil {
		writeError(w, h.logger, "register failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// HandleLogin handles POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.auth.Login(req.PhoneNumber, req.Password)
	if err != nil {
		writeError(w, h.logger, "login failed", err)
		return
	}

	writeJSON(w, tokenResponse{Token: token, User: user})
}

// HandleOTPRequest handles POST /api/auth/otp/request
func (h *AuthHandler) HandleOTPRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The code goes out through the SMS channel, never in the response.
	if _, err := h.auth.RequestOTP(req.PhoneNumber); err != nil {
		writeError(w, h.logger, "otp request failed", err)
		return
	}

	writeJSON(w, map[string]string{"status": "sent"})
}

// HandleOTPVerify handles POST /api/auth/otp/verify
func (h *AuthHandler) HandleOTPVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.auth.VerifyOTP(req.PhoneNumber, req.Code)
	if err != nil {
		writeError(w, h.logger, "otp verify failed", err)
		return
	}

	writeJSON(w, tokenResponse{Token: token, User: user})
}
