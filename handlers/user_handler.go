package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spyfall/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type RegisterDeviceRequest struct {
	DeviceID        string `json:"device_id"`
	Name            string `json:"name" binding:"required"`
	ProfilePhotoURL string `json:"profile_photo_url"`
}

// RegisterDevice creates or updates the profile for a device identity and
// returns the token the device presents on every later call.
func (h *UserHandler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.CreateOrUpdateUser(req.DeviceID, req.Name, req.ProfilePhotoURL)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	token, err := h.userService.GenerateDeviceToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue device token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// Me returns the caller's own user record.
func (h *UserHandler) Me(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := h.userService.GetUser(userID.(string))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}
