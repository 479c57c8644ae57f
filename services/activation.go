// Сервис активации тарифа в панели Remna для конкретного клиента.
// Используется из: вебхук оплаты, покупка с баланса, админ mark-as-paid.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/logging"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/remna"
)

// ActivationResult — итог активации. Ошибка панели не роняет платёж:
// финансовое состояние и состояние провижининга расходятся временно,
// сведение — задача оператора.
type ActivationResult struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Status int    `json:"status,omitempty"`
}

func activationErr(err string, status int) ActivationResult {
	return ActivationResult{OK: false, Error: err, Status: status}
}

type ActivationEngine struct {
	Remna *remna.Client
}

func NewActivationEngine(client *remna.Client) *ActivationEngine {
	return &ActivationEngine{Remna: client}
}

// ActivateTariffForClient приводит аккаунт клиента в панели к купленному тарифу:
//   - находит или создаёт пользователя панели (uuid → telegram-id → email → создание)
//   - повторная покупка ДОБАВЛЯЕТ дни к текущему сроку, не сбрасывая остаток
//   - лимиты трафика/устройств заменяются лимитами тарифа (0 = безлимит)
//   - activeInternalSquads заменяются сквадами тарифа целиком
func (e *ActivationEngine) ActivateTariffForClient(ctx context.Context, client *models.Client, tariff *models.Tariff) ActivationResult {
	remote, created, res := e.resolveRemoteUser(client, tariff)
	if remote == nil {
		return activationErr(res.Err, res.Status)
	}

	now := time.Now()
	var existingExpire *time.Time
	if !created {
		existingExpire = remote.ExpireAt
	}
	expireAt := ComputeExpireAt(existingExpire, tariff.DurationDays, now)

	update := remna.UserRequest{
		UUID:                 remote.UUID,
		ExpireAt:             &expireAt,
		TrafficLimitBytes:    normalizeTrafficLimit(tariff.TrafficLimitBytes),
		HwidDeviceLimit:      normalizeDeviceLimit(tariff.DeviceLimit),
		ActiveInternalSquads: tariff.InternalSquadUUIDs,
	}
	if update.ActiveInternalSquads == nil {
		update.ActiveInternalSquads = []string{}
	}

	if res := e.Remna.UpdateUser(update); !res.OK() {
		logging.L().Error("активация тарифа: панель отклонила обновление",
			zap.String("client_id", client.ID),
			zap.String("remna_uuid", remote.UUID),
			zap.String("error", res.Err),
			zap.Int("status", res.Status))
		return activationErr(res.Err, res.Status)
	}

	// Локальную ссылку на аккаунт панели сохраняем только после успешного push
	if client.RemnaUUID == nil || *client.RemnaUUID != remote.UUID {
		if err := models.SetRemnaUUID(ctx, client.ID, remote.UUID); err != nil {
			logging.L().Error("активация тарифа: не удалось сохранить remna_uuid",
				zap.String("client_id", client.ID), zap.Error(err))
		}
	}

	logging.L().Info("тариф активирован",
		zap.String("client_id", client.ID),
		zap.String("remna_uuid", remote.UUID),
		zap.Time("expire_at", expireAt),
		zap.Bool("created", created))
	return ActivationResult{OK: true}
}

// resolveRemoteUser находит аккаунт панели: по сохранённому uuid, затем по
// telegram-id, затем по email; если нигде нет — создаёт новый. Выигрывает
// первое успешное разрешение. При провале и создания возвращает ошибку панели.
func (e *ActivationEngine) resolveRemoteUser(client *models.Client, tariff *models.Tariff) (*remna.RemoteUser, bool, remna.Result) {
	if client.RemnaUUID != nil && *client.RemnaUUID != "" {
		res := e.Remna.GetUser(*client.RemnaUUID)
		if res.OK() {
			if u, ok := remna.ParseUser(res.Data); ok {
				return u, false, res
			}
		} else if res.Status == http.StatusServiceUnavailable {
			return nil, false, res
		}
	}

	if client.TelegramID != nil && *client.TelegramID != "" {
		res := e.Remna.GetUserByTelegramID(*client.TelegramID)
		if res.OK() {
			if u, ok := remna.ParseUser(res.Data); ok {
				return u, false, res
			}
		} else if res.Status == http.StatusServiceUnavailable {
			return nil, false, res
		}
	}

	if client.Email != nil && *client.Email != "" {
		res := e.Remna.GetUserByEmail(*client.Email)
		if res.OK() {
			if u, ok := remna.ParseUser(res.Data); ok {
				return u, false, res
			}
		} else if res.Status == http.StatusServiceUnavailable {
			return nil, false, res
		}
	}

	req := remna.UserRequest{
		Username: remoteUsername(client),
	}
	if client.Email != nil {
		req.Email = *client.Email
	}
	if client.TelegramID != nil {
		req.TelegramID = *client.TelegramID
	}
	res := e.Remna.CreateUser(req)
	if !res.OK() {
		return nil, false, res
	}
	uuid := remna.ExtractUUID(res.Data)
	if uuid == "" {
		return nil, false, remna.Result{Err: "панель не вернула uuid созданного пользователя", Status: res.Status}
	}
	return &remna.RemoteUser{UUID: uuid}, true, res
}

// remoteUsername — стабильное имя пользователя панели для клиента
func remoteUsername(client *models.Client) string {
	if client.TelegramID != nil && *client.TelegramID != "" {
		return "tg_" + *client.TelegramID
	}
	if client.Email != nil && *client.Email != "" {
		return strings.SplitN(*client.Email, "@", 2)[0] + "_" + client.ID[:8]
	}
	return "client_" + client.ID[:8]
}

// ComputeExpireAt: срок в будущем продлевается аддитивно; истёкший или
// отсутствующий срок считается от текущего момента. Повторная покупка
// никогда не укорачивает и не сбрасывает остаток.
func ComputeExpireAt(existing *time.Time, durationDays int, now time.Time) time.Time {
	if existing == nil || !existing.After(now) {
		return now.AddDate(0, 0, durationDays)
	}
	return existing.AddDate(0, 0, durationDays)
}

// 0/nil = безлимит; панель ждёт явный 0
func normalizeTrafficLimit(limit *int64) *int64 {
	var v int64
	if limit != nil {
		v = *limit
	}
	return &v
}

func normalizeDeviceLimit(limit *int) *int {
	var v int
	if limit != nil {
		v = *limit
	}
	return &v
}

// ActivateByPaymentID — активация по платежу: находит клиента и тариф
// из Payment и вызывает ActivateTariffForClient.
func (e *ActivationEngine) ActivateByPaymentID(ctx context.Context, paymentID string) ActivationResult {
	payment, err := models.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return activationErr("платёж не найден", http.StatusNotFound)
		}
		return activationErr(err.Error(), http.StatusInternalServerError)
	}
	if payment.TariffID == nil {
		return activationErr("платёж без тарифа: пополнение баланса не активируется", http.StatusBadRequest)
	}

	tariff, err := models.GetTariff(ctx, *payment.TariffID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return activationErr(fmt.Sprintf("тариф %s не найден", *payment.TariffID), http.StatusNotFound)
		}
		return activationErr(err.Error(), http.StatusInternalServerError)
	}

	client, err := models.GetClient(ctx, payment.ClientID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return activationErr("клиент не найден", http.StatusNotFound)
		}
		return activationErr(err.Error(), http.StatusInternalServerError)
	}

	return e.ActivateTariffForClient(ctx, client, tariff)
}

// ActivateTrial выдаёт пробный период из системных настроек
// (trial_days, trial_squad_uuid, лимиты) той же машинерией, что и платный тариф.
func (e *ActivationEngine) ActivateTrial(ctx context.Context, client *models.Client) ActivationResult {
	cfg, err := models.GetSystemConfig(ctx)
	if err != nil {
		return activationErr(err.Error(), http.StatusInternalServerError)
	}
	if cfg.TrialDays <= 0 || cfg.TrialSquadUUID == "" {
		return activationErr("пробный период не настроен", http.StatusBadRequest)
	}

	tariff := &models.Tariff{
		DurationDays:       cfg.TrialDays,
		TrafficLimitBytes:  cfg.TrialTrafficLimitBytes,
		DeviceLimit:        cfg.TrialDeviceLimit,
		InternalSquadUUIDs: []string{cfg.TrialSquadUUID},
	}
	return e.ActivateTariffForClient(ctx, client, tariff)
}
