package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/remna"
)

// respondRemna транслирует ответ панели как есть: статус панели,
// тело — данные панели или её сообщение об ошибке.
func respondRemna(c *gin.Context, result remna.Result) {
	status := result.Status
	if status == 0 {
		status = http.StatusBadGateway
	}
	if !result.OK() {
		c.JSON(status, gin.H{"success": false, "error": result.Err})
		return
	}
	c.JSON(status, gin.H{"success": true, "response": json.RawMessage(result.Data)})
}

// ===== Ноды =====

func ListNodesHandler(c *gin.Context) {
	respondRemna(c, remnaClient.GetNodes())
}

func EnableNodeHandler(c *gin.Context) {
	respondRemna(c, remnaClient.EnableNode(c.Param("uuid")))
}

func DisableNodeHandler(c *gin.Context) {
	respondRemna(c, remnaClient.DisableNode(c.Param("uuid")))
}

func RestartNodeHandler(c *gin.Context) {
	respondRemna(c, remnaClient.RestartNode(c.Param("uuid")))
}

// ===== Пользователи панели =====

func ListRemoteUsersHandler(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "25"))
	start, _ := strconv.Atoi(c.DefaultQuery("start", "0"))
	respondRemna(c, remnaClient.GetUsers(&remna.UsersParams{Size: size, Start: start}))
}

func EnableRemoteUserHandler(c *gin.Context) {
	respondRemna(c, remnaClient.EnableUser(c.Param("uuid")))
}

func DisableRemoteUserHandler(c *gin.Context) {
	respondRemna(c, remnaClient.DisableUser(c.Param("uuid")))
}

func RevokeRemoteUserHandler(c *gin.Context) {
	respondRemna(c, remnaClient.RevokeUser(c.Param("uuid")))
}

func ResetRemoteUserTrafficHandler(c *gin.Context) {
	respondRemna(c, remnaClient.ResetUserTraffic(c.Param("uuid")))
}

// ===== Сквады =====

func ListSquadsHandler(c *gin.Context) {
	respondRemna(c, remnaClient.GetInternalSquads())
}

func BulkUpdateSquadsHandler(c *gin.Context) {
	var body remna.BulkSquadsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса: " + err.Error()})
		return
	}
	respondRemna(c, remnaClient.BulkUpdateUsersSquads(body))
}

func AddUsersToSquadHandler(c *gin.Context) {
	var body remna.SquadUsersRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса: " + err.Error()})
		return
	}
	respondRemna(c, remnaClient.AddUsersToInternalSquad(c.Param("uuid"), body))
}

func RemoveUsersFromSquadHandler(c *gin.Context) {
	var body remna.SquadUsersRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса: " + err.Error()})
		return
	}
	respondRemna(c, remnaClient.RemoveUsersFromInternalSquad(c.Param("uuid"), body))
}

// ===== Статистика панели =====

func SystemStatsHandler(c *gin.Context) {
	respondRemna(c, remnaClient.GetSystemStats())
}

// ===== Тарифы =====

func ListTariffsHandler(c *gin.Context) {
	tariffs, err := models.ListActiveTariffs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tariffs": tariffs})
}

func CreateTariffHandler(c *gin.Context) {
	var t models.Tariff
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса: " + err.Error()})
		return
	}
	if t.Name == "" || t.Price <= 0 || t.DurationDays <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "нужны name, price > 0 и duration_days > 0"})
		return
	}
	if t.Currency == "" {
		t.Currency = "RUB"
	}
	created, err := models.CreateTariff(c.Request.Context(), &t)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка создания тарифа: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tariff": created})
}

// ===== Настройки =====

func GetSettingsHandler(c *gin.Context) {
	cfg, err := models.GetSystemConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": cfg})
}

type UpdateSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

func UpdateSettingHandler(c *gin.Context) {
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса: " + err.Error()})
		return
	}
	if err := models.SetSetting(c.Request.Context(), req.Key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
