// Вебхуки платёжного провайдера и панели Remna.
//
// Платёжный callback всегда отвечает 200 {status:"ok"} — провайдер не должен
// повторять доставку из-за наших внутренних ошибок. Бизнес-ошибки уходят
// только в логи и метрики.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/logging"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/monitoring"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/services"
)

// Успешный платёж — CONFIRMED (по документации Platega), плюс обратная
// совместимость со старыми статусами
var successStatuses = map[string]bool{
	"CONFIRMED": true,
	"PAID":      true,
	"SUCCESS":   true,
	"COMPLETED": true,
}

// ProviderCallback — канонический вид callback-а после разбора: провайдерские
// особенности формы payload изолированы от логики settlement.
type ProviderCallback struct {
	Status        string
	Success       bool
	TransactionID string
	CandidateIDs  []string // все извлекаемые идентификаторы, в порядке приоритета
}

// NormalizeProviderCallback разбирает тело callback-а максимально терпимо:
// статус и идентификаторы могут лежать на верхнем уровне или внутри
// объекта transaction; отсутствие опознаваемого идентификатора — не ошибка.
func NormalizeProviderCallback(data map[string]any) ProviderCallback {
	transaction, _ := data["transaction"].(map[string]any)

	status := strings.ToUpper(strings.TrimSpace(firstString(
		data["status"],
		fieldOf(transaction, "status"),
	)))

	transactionID := firstString(
		data["transactionId"],
		data["id"],
		fieldOf(transaction, "id"),
		fieldOf(transaction, "transactionId"),
	)
	externalID := firstString(data["externalId"], fieldOf(transaction, "externalId"))
	invoiceID := firstString(data["invoiceId"], fieldOf(transaction, "invoiceId"))
	// payload — наш orderId, переданный при создании транзакции
	payload := firstString(data["payload"], fieldOf(transaction, "payload"))
	orderID := firstString(data["orderId"], data["order_id"], data["order"], data["merchant_order_id"])

	cb := ProviderCallback{
		Status:        status,
		Success:       successStatuses[status],
		TransactionID: transactionID,
	}

	seen := map[string]bool{}
	for _, id := range []string{payload, orderID, transactionID, externalID, invoiceID} {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		cb.CandidateIDs = append(cb.CandidateIDs, id)
	}
	return cb
}

func fieldOf(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

// firstString — первый аргумент, приводимый к непустой строке
// (числовые id провайдер тоже может прислать)
func firstString(values ...any) string {
	for _, v := range values {
		switch x := v.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				return s
			}
		case float64:
			if x != 0 {
				return strconv.FormatFloat(x, 'f', -1, 64)
			}
		case json.Number:
			if s := x.String(); s != "" && s != "0" {
				return s
			}
		}
	}
	return ""
}

// Подменяются в тестах
var (
	findPaymentByExternalID = models.FindPaymentByExternalID
	findPaymentByOrderID    = models.FindPaymentByOrderID
)

// lookupPayment ищет платёж по кандидатам в порядке приоритета: для каждого —
// сперва external_id провайдера, затем наш order_id; выигрывает первое
// попадание. «Не найдено» и сбой БД различаются: транзиентная ошибка
// возвращает failed=true, и вызывающая сторона не должна трактовать её
// как отсутствие платежа.
func lookupPayment(ctx context.Context, provider string, candidateIDs []string) (payment *models.Payment, failed bool) {
	for _, id := range candidateIDs {
		p, err := findPaymentByExternalID(ctx, id, provider)
		if err == nil {
			return p, false
		}
		if !errors.Is(err, models.ErrNotFound) {
			logging.L().Error("webhook: ошибка поиска платежа по external_id",
				zap.String("candidate_id", id), zap.Error(err))
			failed = true
		}
		p, err = findPaymentByOrderID(ctx, id)
		if err == nil {
			return p, false
		}
		if !errors.Is(err, models.ErrNotFound) {
			logging.L().Error("webhook: ошибка поиска платежа по order_id",
				zap.String("candidate_id", id), zap.Error(err))
			failed = true
		}
	}
	return nil, failed
}

// PlategaWebhookHandler — callback Platega при смене статуса оплаты.
// Пополнение баланса (без tariff_id) → зачисляем на баланс клиента.
// Покупка тарифа (есть tariff_id) → активируем тариф в панели, баланс не трогаем.
// Реферальные начисления — в обоих случаях.
func PlategaWebhookHandler(c *gin.Context) {
	const provider = "platega"
	monitoring.WebhooksReceivedTotal.WithLabelValues(provider).Inc()

	ack := func(result string) {
		monitoring.WebhooksProcessedTotal.WithLabelValues(provider, result).Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}

	defer func() {
		if r := recover(); r != nil {
			logging.L().Error("webhook: паника при обработке", zap.Any("panic", r))
			ack("error")
		}
	}()

	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil || len(data) == 0 {
		logging.L().Warn("webhook: пустое или некорректное тело")
		ack("ignored")
		return
	}

	cb := NormalizeProviderCallback(data)
	if !cb.Success {
		logging.L().Info("webhook: статус игнорируется", zap.String("status", cb.Status))
		ack("ignored")
		return
	}
	if len(cb.CandidateIDs) == 0 {
		logging.L().Warn("webhook: нет идентификаторов в payload")
		ack("ignored")
		return
	}

	ctx := c.Request.Context()

	payment, lookupFailed := lookupPayment(ctx, provider, cb.CandidateIDs)
	if payment == nil {
		if lookupFailed {
			// Сбой БД — не «не найден»: иначе доставка потеряна навсегда,
			// провайдер после 200 не повторит
			ack("error")
			return
		}
		logging.L().Warn("webhook: платёж не найден", zap.Strings("tried_ids", cb.CandidateIDs))
		ack("not_found")
		return
	}

	// Повторная доставка: платёж уже проведён
	if payment.Status == models.PaymentStatusPaid {
		logging.L().Info("webhook: платёж уже обработан", zap.String("payment_id", payment.ID))
		ack("duplicate")
		return
	}

	externalID := cb.TransactionID
	if externalID == "" {
		externalID = payment.ID
	}

	if payment.IsTopUp() {
		settled, err := models.SettleTopUp(ctx, payment.ID, externalID)
		if err != nil {
			logging.L().Error("webhook: ошибка проведения пополнения",
				zap.String("payment_id", payment.ID), zap.Error(err))
			ack("error")
			return
		}
		if settled {
			monitoring.PaymentsSettledTotal.WithLabelValues("topup").Inc()
			logging.L().Info("webhook: пополнение проведено, баланс зачислен",
				zap.String("payment_id", payment.ID), zap.Float64("amount", payment.Amount))
		}
	} else {
		settled, err := models.SettleTariff(ctx, payment.ID, externalID)
		if err != nil {
			logging.L().Error("webhook: ошибка проведения платежа за тариф",
				zap.String("payment_id", payment.ID), zap.Error(err))
			ack("error")
			return
		}
		if settled {
			monitoring.PaymentsSettledTotal.WithLabelValues("tariff").Inc()
			logging.L().Info("webhook: платёж за тариф проведён", zap.String("payment_id", payment.ID))

			// Активация после коммита; провал активации не откатывает PAID
			if res := activation.ActivateByPaymentID(ctx, payment.ID); !res.OK {
				monitoring.ActivationFailuresTotal.Inc()
				logging.L().Error("webhook: активация тарифа не удалась",
					zap.String("payment_id", payment.ID),
					zap.String("error", res.Error),
					zap.Int("status", res.Status))
			}
		}
	}

	// Реферальные начисления безопасны при повторных вызовах:
	// внутри свой fence по referral_distributed_at
	if _, err := services.DistributeReferralRewards(ctx, payment.ID); err != nil {
		logging.L().Error("webhook: ошибка реферальных начислений",
			zap.String("payment_id", payment.ID), zap.Error(err))
	}

	ack("settled")
}

// RemnaWebhookBody — события панели: user.*, node.*, service.* и т.д.
type RemnaWebhookBody struct {
	Scope     string         `json:"scope" binding:"required"`
	Event     string         `json:"event" binding:"required"`
	Timestamp string         `json:"timestamp" binding:"required"`
	Data      map[string]any `json:"data"`
}

// RemnaWebhookHandler подтверждает приём событий панели. Пока только логируем.
func RemnaWebhookHandler(c *gin.Context) {
	var body RemnaWebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid webhook payload", "error": err.Error()})
		return
	}

	keys := make([]string, 0, len(body.Data))
	for k := range body.Data {
		keys = append(keys, k)
	}
	logging.L().Info("remna webhook",
		zap.String("scope", body.Scope),
		zap.String("event", body.Event),
		zap.String("timestamp", body.Timestamp),
		zap.Strings("data_keys", keys))

	c.JSON(http.StatusOK, gin.H{"received": true, "scope": body.Scope, "event": body.Event})
}
