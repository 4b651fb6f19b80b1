package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"spyfall/models"
	"spyfall/services"
)

type RoomHandler struct {
	roomService *services.RoomService
	userService *services.UserService
	publicURL   string
}

func NewRoomHandler(roomService *services.RoomService, userService *services.UserService, publicURL string) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		userService: userService,
		publicURL:   publicURL,
	}
}

type JoinRoomRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type UpdateTimerRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}

type LeaveRoomRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

type SubmitVoteRequest struct {
	PlayerID      string `json:"player_id" binding:"required"`
	VotedPlayerID string `json:"voted_player_id" binding:"required"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	user, ok := h.resolveUser(c)
	if !ok {
		return
	}

	room, player, err := h.roomService.CreateRoom(user)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"room":   services.ProjectRoomFor(room, user.ID),
		"player": player,
	})
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	user, ok := h.resolveUser(c)
	if !ok {
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, player, err := h.roomService.JoinRoom(user, req.InviteCode)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":   services.ProjectRoomFor(room, user.ID),
		"player": player,
	})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID := c.GetString("user_id")
	room, err := h.roomService.GetRoom(c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, services.ProjectRoomFor(room, userID))
}

func (h *RoomHandler) UpdateTimer(c *gin.Context) {
	userID := c.GetString("user_id")

	var req UpdateTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.UpdateTimer(c.Param("id"), userID, req.Minutes)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, services.ProjectRoomFor(room, userID))
}

func (h *RoomHandler) StartGame(c *gin.Context) {
	userID := c.GetString("user_id")

	room, err := h.roomService.StartGame(c.Param("id"), userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, services.ProjectRoomFor(room, userID))
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID := c.GetString("user_id")

	var req LeaveRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.LeaveRoom(c.Param("id"), req.PlayerID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if room == nil {
		// Last player out; the room is gone.
		c.JSON(http.StatusOK, gin.H{"deleted": true})
		return
	}
	c.JSON(http.StatusOK, services.ProjectRoomFor(room, userID))
}

func (h *RoomHandler) SubmitVote(c *gin.Context) {
	userID := c.GetString("user_id")

	var req SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.SubmitVote(c.Param("id"), req.PlayerID, req.VotedPlayerID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, services.ProjectRoomFor(room, userID))
}

func (h *RoomHandler) GetResult(c *gin.Context) {
	result, err := h.roomService.Result(c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// InviteQR renders the room's invite link as a QR code so the host can
// show it to players in the same room.
func (h *RoomHandler) InviteQR(c *gin.Context) {
	room, err := h.roomService.GetRoom(c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	link := fmt.Sprintf("%s/join?code=%s", h.publicURL, room.InviteCode)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *RoomHandler) resolveUser(c *gin.Context) (*models.User, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}
	u, err := h.userService.GetUser(userID.(string))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return nil, false
	}
	return u, true
}

// statusForError maps the service layer's error kinds onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrRoomNotFound), errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRoomFull),
		errors.Is(err, services.ErrGameAlreadyStarted),
		errors.Is(err, services.ErrNotEnoughPlayers),
		errors.Is(err, services.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
