package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/logging"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/monitoring"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/services"
)

type CreatePaymentRequest struct {
	ClientID string  `json:"clientId" binding:"required"`
	TariffID *string `json:"tariffId"` // nil ⇒ пополнение баланса
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Provider string  `json:"provider"`
}

// CreatePaymentHandler создаёт PENDING-платёж (checkout). Для покупки тарифа
// сумма берётся из тарифа, для пополнения — из запроса.
func CreatePaymentHandler(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := models.GetClient(ctx, req.ClientID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "клиент не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	amount := req.Amount
	currency := req.Currency
	if req.TariffID != nil {
		tariff, err := models.GetTariff(ctx, *req.TariffID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "тариф не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		amount = tariff.Price
		currency = tariff.Currency
	}
	if amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "сумма должна быть больше нуля"})
		return
	}
	if currency == "" {
		currency = "RUB"
	}
	provider := req.Provider
	if provider == "" {
		provider = "platega"
	}

	orderID := "ORD-" + uuid.NewString()
	payment, err := models.CreatePayment(ctx, req.ClientID, orderID, amount, currency, provider, req.TariffID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ошибка сохранения платежа: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "payment": payment})
}

// AdminMarkPaidHandler — ручное проведение платежа администратором
// (аналог разового скрипта для платежей ЮMoney без callback-а).
// Проходит тот же путь, что и webhook: условный переход, зачисление,
// активация, реферальные начисления. В отличие от webhook-а, ошибки
// активации возвращаются вызывающему.
func AdminMarkPaidHandler(c *gin.Context) {
	paymentID := c.Param("id")
	ctx := c.Request.Context()

	payment, err := models.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "платёж не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if payment.Status == models.PaymentStatusPaid {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "платёж уже оплачен"})
		return
	}

	var settled bool
	if payment.IsTopUp() {
		settled, err = models.SettleTopUp(ctx, payment.ID, "")
	} else {
		settled, err = models.SettleTariff(ctx, payment.ID, "")
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !settled {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "платёж уже оплачен"})
		return
	}

	logging.L().Info("платёж проведён вручную",
		zap.String("payment_id", payment.ID),
		zap.String("admin_id", c.GetString("adminID")))

	var activationResult *services.ActivationResult
	if !payment.IsTopUp() {
		monitoring.PaymentsSettledTotal.WithLabelValues("tariff").Inc()
		res := activation.ActivateByPaymentID(ctx, payment.ID)
		activationResult = &res
		if !res.OK {
			monitoring.ActivationFailuresTotal.Inc()
		}
	} else {
		monitoring.PaymentsSettledTotal.WithLabelValues("topup").Inc()
	}

	distribution, err := services.DistributeReferralRewards(ctx, payment.ID)
	if err != nil {
		logging.L().Error("mark-paid: ошибка реферальных начислений",
			zap.String("payment_id", payment.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"activation":   activationResult,
		"distribution": distribution,
	})
}

// PurchaseFromBalanceRequest — покупка тарифа со внутреннего баланса
type PurchaseFromBalanceRequest struct {
	TariffID string `json:"tariffId" binding:"required"`
}

// PurchaseFromBalanceHandler списывает цену тарифа с баланса и создаёт сразу
// оплаченный платёж в одной транзакции, затем активирует тариф. Ошибка
// активации возвращается клиенту, но платёж остаётся PAID.
func PurchaseFromBalanceHandler(c *gin.Context) {
	clientID := c.Param("id")
	var req PurchaseFromBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный формат запроса: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	tariff, err := models.GetTariff(ctx, req.TariffID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "тариф не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	orderID := "BAL-" + uuid.NewString()
	payment, debited, err := models.PurchaseFromBalance(ctx, clientID, orderID, tariff.Price, tariff.Currency, "balance", &tariff.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !debited {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "недостаточно средств на балансе"})
		return
	}

	monitoring.PaymentsSettledTotal.WithLabelValues("tariff").Inc()

	res := activation.ActivateByPaymentID(ctx, payment.ID)
	if !res.OK {
		monitoring.ActivationFailuresTotal.Inc()
	}

	distribution, err := services.DistributeReferralRewards(ctx, payment.ID)
	if err != nil {
		logging.L().Error("purchase: ошибка реферальных начислений",
			zap.String("payment_id", payment.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      res.OK,
		"payment":      payment,
		"activation":   res,
		"distribution": distribution,
	})
}

// ListClientPaymentsHandler — история платежей клиента
func ListClientPaymentsHandler(c *gin.Context) {
	payments, err := models.ListClientPayments(c.Request.Context(), c.Param("id"), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payments": payments})
}
