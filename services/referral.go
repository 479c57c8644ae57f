// Трёхуровневая реферальная система: начисление процентов от платежей
// рефералам уровня 1, 2 и 3 при переходе платежа в статус PAID.
package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/logging"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/monitoring"
)

type DistributionResult struct {
	Distributed bool   `json:"distributed"`
	Message     string `json:"message"`
}

// PlannedCredit — одно запланированное начисление
type PlannedCredit struct {
	ReferrerID string
	Bonus      float64
	Level      int
}

// ComputeBonus — round(amount × percent / 100, 2 знака)
func ComputeBonus(amount, percent float64) float64 {
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// BuildDistributionPlan распределяет сумму по цепочке рефереров.
// Заблокированный реферер пропускается без начисления, но цепочку не рвёт:
// уровень считается по позиции в цепочке, а не по числу выплат.
func BuildDistributionPlan(chain []models.ChainMember, percents [3]float64, amount float64) []PlannedCredit {
	var plan []PlannedCredit
	for i, member := range chain {
		if i >= 3 {
			break
		}
		if member.IsBlocked || percents[i] <= 0 {
			continue
		}
		bonus := ComputeBonus(amount, percents[i])
		if bonus <= 0 {
			continue
		}
		plan = append(plan, PlannedCredit{ReferrerID: member.ID, Bonus: bonus, Level: i + 1})
	}
	return plan
}

// DistributeReferralRewards начисляет реферальные бонусы по платежу.
// Вызывать при каждом переводе платежа в PAID — идемпотентно: захват
// referral_distributed_at (условный UPDATE) и сами начисления выполняются
// в одной транзакции, поэтому ни «начислено без отметки», ни «отмечено без
// начислений» наблюдать нельзя. Из конкурентных вызовов выигрывает один,
// остальные видят занятый fence и возвращают distributed=false.
func DistributeReferralRewards(ctx context.Context, paymentID string) (DistributionResult, error) {
	// Проценты читаются заново при каждом вызове — смена настроек
	// применяется без рестарта
	cfg, err := models.GetSystemConfig(ctx)
	if err != nil {
		return DistributionResult{}, err
	}
	percents := [3]float64{cfg.DefaultReferralPercent, cfg.ReferralPercentLevel2, cfg.ReferralPercentLevel3}

	tx, err := database.Pool.Begin(ctx)
	if err != nil {
		return DistributionResult{}, err
	}
	defer tx.Rollback(ctx)

	var status string
	var clientID string
	var amount float64
	err = tx.QueryRow(ctx, `
		SELECT status, client_id, amount FROM payments WHERE id = $1
	`, paymentID).Scan(&status, &clientID, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DistributionResult{Distributed: false, Message: "платёж не найден"}, nil
		}
		return DistributionResult{}, err
	}
	if status != models.PaymentStatusPaid {
		return DistributionResult{Distributed: false, Message: "платёж не оплачен"}, nil
	}

	// Захват fence: compare-and-set, не read-then-write
	tag, err := tx.Exec(ctx, `
		UPDATE payments SET referral_distributed_at = NOW()
		WHERE id = $1 AND status = 'PAID' AND referral_distributed_at IS NULL
	`, paymentID)
	if err != nil {
		return DistributionResult{}, err
	}
	if tag.RowsAffected() == 0 {
		return DistributionResult{Distributed: false, Message: "бонусы по платежу уже распределены"}, nil
	}

	chain, err := models.ReferrerChain(ctx, tx, clientID)
	if err != nil {
		return DistributionResult{}, err
	}

	plan := BuildDistributionPlan(chain, percents, amount)
	for _, credit := range plan {
		_, err = tx.Exec(ctx, `
			UPDATE clients SET balance = balance + $2, updated_at = NOW() WHERE id = $1
		`, credit.ReferrerID, credit.Bonus)
		if err != nil {
			return DistributionResult{}, err
		}
		if err := models.InsertReferralCredit(ctx, tx, credit.ReferrerID, paymentID, credit.Bonus, credit.Level); err != nil {
			return DistributionResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return DistributionResult{}, err
	}

	for _, credit := range plan {
		monitoring.ReferralCreditsTotal.WithLabelValues(strconv.Itoa(credit.Level)).Inc()
		logging.L().Info("реферальный бонус начислен",
			zap.String("payment_id", paymentID),
			zap.String("referrer_id", credit.ReferrerID),
			zap.Float64("bonus", credit.Bonus),
			zap.Int("level", credit.Level))
	}

	if len(plan) == 0 {
		return DistributionResult{Distributed: true, Message: "рефереров нет или все заблокированы; платёж отмечен распределённым"}, nil
	}
	return DistributionResult{Distributed: true, Message: "начислено рефереров: " + strconv.Itoa(len(plan))}, nil
}
