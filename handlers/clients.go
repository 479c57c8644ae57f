package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/logging"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/remna"
)

type RegisterClientRequest struct {
	Email        *string `json:"email"`
	TelegramID   *string `json:"telegramId"`
	ReferralCode string  `json:"referralCode"`
}

// RegisterClientHandler создаёт клиента. Если передан реферальный код,
// новый клиент привязывается к его владельцу; неизвестный код не является
// ошибкой — регистрация проходит без привязки.
func RegisterClientHandler(c *gin.Context) {
	var req RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса: " + err.Error()})
		return
	}
	if req.Email == nil && req.TelegramID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "нужен email или telegramId"})
		return
	}

	ctx := c.Request.Context()
	var referrerID *string
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		referrer, err := models.FindClientByReferralCode(ctx, code)
		switch {
		case err == nil:
			referrerID = &referrer.ID
		case errors.Is(err, models.ErrNotFound):
			logging.L().Warn("регистрация с неизвестным реферальным кодом", zap.String("code", code))
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	client, err := models.CreateClient(ctx, req.Email, req.TelegramID, referrerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка создания клиента: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "client": client})
}

// GetClientHandler — карточка клиента
func GetClientHandler(c *gin.Context) {
	client, err := models.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "клиент не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "client": client})
}

// ActivateTrialHandler выдаёт пробный период по настройкам из system_settings
func ActivateTrialHandler(c *gin.Context) {
	ctx := c.Request.Context()
	client, err := models.GetClient(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "клиент не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res := activation.ActivateTrial(ctx, client)
	status := http.StatusOK
	if !res.OK {
		status = res.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
	}
	c.JSON(status, gin.H{"success": res.OK, "activation": res})
}

// SubscriptionQRHandler отдаёт PNG с QR-кодом ссылки на подписку клиента.
// Ссылка берётся из панели (subscriptionUrl пользователя), при её отсутствии
// собирается из remna_client_url и UUID.
func SubscriptionQRHandler(c *gin.Context) {
	ctx := c.Request.Context()
	client, err := models.GetClient(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "клиент не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if client.RemnaUUID == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "у клиента нет подписки"})
		return
	}

	subURL := ""
	result := remnaClient.GetUser(*client.RemnaUUID)
	if result.OK() {
		if user, ok := remna.ParseUser(result.Data); ok {
			subURL = user.SubscriptionURL
		}
	}
	if subURL == "" {
		sysCfg, err := models.GetSystemConfig(ctx)
		if err == nil && sysCfg.RemnaClientURL != "" {
			subURL = strings.TrimRight(sysCfg.RemnaClientURL, "/") + "/" + *client.RemnaUUID
		}
	}
	if subURL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ссылка на подписку недоступна"})
		return
	}

	png, err := qrcode.Encode(subURL, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка генерации QR: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ListReferralCreditsHandler — история реферальных начислений клиента
func ListReferralCreditsHandler(c *gin.Context) {
	credits, err := models.ListReferralCredits(c.Request.Context(), c.Param("id"), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "credits": credits})
}
