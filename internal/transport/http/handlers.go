package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"

	"trivia/internal/domain"
)

const qrSize = 256

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateRoomRequest is the body for room creation.
type CreateRoomRequest struct {
	OwnerName string `json:"ownerName" validate:"required,max=32"`
}

// CreateRoomResponse is the response for room creation
type CreateRoomResponse struct {
	RoomCode   string `json:"roomCode"`
	InviteLink string `json:"inviteLink"`
}

// JoinCheckResponse is the response for the pre-join check
type JoinCheckResponse struct {
	OK bool `json:"ok"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveRooms  int `json:"activeRooms"`
	TotalPlayers int `json:"totalPlayers"`
}

// handleCreateRoom handles POST /api/rooms
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_OWNER_NAME", "Owner name is required")
		return
	}

	session, err := s.hub.CreateRoom(req.OwnerName)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create room")
		return
	}

	s.sendSuccess(w, &CreateRoomResponse{
		RoomCode:   session.Code(),
		InviteLink: inviteLink(r, session.Code()),
	})
}

// handleJoinCheck handles GET /api/rooms/:code/join-check?name=
func (s *Server) handleJoinCheck(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	code := strings.ToUpper(p.ByName("code"))
	name := r.URL.Query().Get("name")

	session, err := s.hub.GetSession(code)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}

	switch err := session.CheckJoin(name); {
	case err == nil:
		s.sendSuccess(w, &JoinCheckResponse{OK: true})
	case errors.Is(err, domain.ErrEmptyName):
		s.sendError(w, http.StatusBadRequest, "EMPTY_NAME", "Display name is required")
	case errors.Is(err, domain.ErrNameTaken):
		s.sendError(w, http.StatusConflict, "NAME_TAKEN", "Display name already taken")
	case errors.Is(err, domain.ErrGameAlreadyStarted):
		s.sendError(w, http.StatusConflict, "GAME_ALREADY_STARTED", "Game has already started")
	default:
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// handleRoomQR handles GET /api/rooms/:code/qr and serves a PNG QR code of
// the room's invite link.
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	code := strings.ToUpper(p.ByName("code"))

	session, err := s.hub.GetSession(code)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}

	png, err := qrcode.Encode(inviteLink(r, session.Code()), qrcode.Medium, qrSize)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "QR_FAILED", "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &StatsResponse{
		ActiveRooms:  s.hub.RoomCount(),
		TotalPlayers: s.hub.TotalPlayerCount(),
	})
}

// inviteLink builds the join link for a room as seen from this request.
func inviteLink(r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/join/" + code
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
