package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/auth"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/logging"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "нужны email и password"})
		return
	}

	admin, err := models.FindAdminByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный email или пароль"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !auth.VerifyPassword(req.Password, admin.PasswordHash) {
		logging.L().Warn("неудачная попытка входа", zap.String("email", req.Email))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный email или пароль"})
		return
	}

	access, refresh, err := auth.GenerateTokenPair(cfg, admin.ID, admin.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка выпуска токенов"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func RefreshHandler(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "нужен refreshToken"})
		return
	}

	claims, err := auth.ValidateRefreshToken(cfg, req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "недействительный refresh-токен"})
		return
	}

	access, refresh, err := auth.GenerateTokenPair(cfg, claims.AdminID, claims.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка выпуска токенов"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func ChangePasswordHandler(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "пароль должен быть не короче 8 символов"})
		return
	}

	admin, err := models.FindAdminByEmail(c.Request.Context(), c.GetString("adminEmail"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "администратор не найден"})
		return
	}
	if !auth.VerifyPassword(req.CurrentPassword, admin.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный текущий пароль"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка хеширования пароля"})
		return
	}
	if err := models.UpdateAdminPassword(c.Request.Context(), admin.ID, hash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logging.L().Info("пароль администратора изменён", zap.String("admin_id", admin.ID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
