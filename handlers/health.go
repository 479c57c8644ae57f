package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
)

// HealthHandler — проверка живости сервиса и соединения с базой
func HealthHandler(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "ok"
	status := http.StatusOK
	if err := database.Pool.Ping(ctx); err != nil {
		dbStatus = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":    dbStatus,
		"remna":     remnaClient.IsConfigured(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
