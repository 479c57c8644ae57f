package models

import (
	"context"
	"time"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
)

// ReferralCredit — строка журнала начислений. Только append, никогда не
// изменяется и не удаляется.
type ReferralCredit struct {
	ID         string    `json:"id" db:"id"`
	ReferrerID string    `json:"referrer_id" db:"referrer_id"`
	PaymentID  string    `json:"payment_id" db:"payment_id"`
	Amount     float64   `json:"amount" db:"amount"`
	Level      int       `json:"level" db:"level"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func InsertReferralCredit(ctx context.Context, q Querier, referrerID, paymentID string, amount float64, level int) error {
	_, err := q.Exec(ctx, `
		INSERT INTO referral_credits (referrer_id, payment_id, amount, level)
		VALUES ($1, $2, $3, $4)
	`, referrerID, paymentID, amount, level)
	return err
}

func ListReferralCredits(ctx context.Context, referrerID string, limit int) ([]ReferralCredit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := database.Pool.Query(ctx, `
		SELECT id, referrer_id, payment_id, amount, level, created_at
		FROM referral_credits
		WHERE referrer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, referrerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []ReferralCredit
	for rows.Next() {
		var c ReferralCredit
		if err := rows.Scan(&c.ID, &c.ReferrerID, &c.PaymentID, &c.Amount, &c.Level, &c.CreatedAt); err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}
