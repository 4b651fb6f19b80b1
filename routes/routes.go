package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"spyfall/handlers"
	"spyfall/middleware"
	"spyfall/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients connect from app schemes, not browser origins
	},
}

func SetupRoutes(
	router *gin.Engine,
	userHandler *handlers.UserHandler,
	roomHandler *handlers.RoomHandler,
	hub *services.Hub,
	userService *services.UserService,
	roomService *services.RoomService,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		// Device registration is the only unauthenticated call: it mints
		// (or refreshes) the identity everything else requires.
		api.POST("/users", userHandler.RegisterDevice)

		protected := api.Group("/")
		protected.Use(middleware.DeviceAuth(jwtSecret))
		{
			protected.GET("/users/me", userHandler.Me)

			rooms := protected.Group("/rooms")
			{
				rooms.POST("", roomHandler.CreateRoom)
				rooms.POST("/join", roomHandler.JoinRoom)
				rooms.GET("/:id", roomHandler.GetRoom)
				rooms.PUT("/:id/timer", roomHandler.UpdateTimer)
				rooms.POST("/:id/start", roomHandler.StartGame)
				rooms.POST("/:id/leave", roomHandler.LeaveRoom)
				rooms.POST("/:id/vote", roomHandler.SubmitVote)
				rooms.GET("/:id/result", roomHandler.GetResult)
				rooms.GET("/:id/qr", roomHandler.InviteQR)
			}
		}
	}

	// WebSocket subscription to one room's snapshot stream. The device
	// token travels as a query parameter because websocket dials cannot
	// set an Authorization header from every client.
	router.GET("/ws/rooms/:id", func(c *gin.Context) {
		roomID := c.Param("id")
		token := c.Query("token")

		userID, err := userService.ParseDeviceToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid device token"})
			return
		}

		if _, err := roomService.GetRoom(roomID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for room %s: %v", roomID, err)
			return
		}

		hub.RegisterClient(conn, roomID, userID)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
