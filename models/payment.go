package models

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
)

// Статусы платежа. Переходы: PENDING→PAID (терминальный) или PENDING→CANCELED.
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusCanceled = "CANCELED"
)

type Payment struct {
	ID                    string     `json:"id" db:"id"`
	ClientID              string     `json:"client_id" db:"client_id"`
	OrderID               string     `json:"order_id" db:"order_id"`
	Amount                float64    `json:"amount" db:"amount"`
	Currency              string     `json:"currency" db:"currency"`
	Status                string     `json:"status" db:"status"`
	Provider              string     `json:"provider" db:"provider"`
	ExternalID            *string    `json:"external_id" db:"external_id"`
	TariffID              *string    `json:"tariff_id" db:"tariff_id"`
	PaidAt                *time.Time `json:"paid_at" db:"paid_at"`
	ReferralDistributedAt *time.Time `json:"referral_distributed_at" db:"referral_distributed_at"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
}

// IsTopUp: платёж без тарифа — пополнение баланса
func (p *Payment) IsTopUp() bool { return p.TariffID == nil }

const paymentColumns = `id, client_id, order_id, amount, currency, status, provider, external_id, tariff_id, paid_at, referral_distributed_at, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.ClientID, &p.OrderID, &p.Amount, &p.Currency, &p.Status,
		&p.Provider, &p.ExternalID, &p.TariffID, &p.PaidAt, &p.ReferralDistributedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func GetPayment(ctx context.Context, id string) (*Payment, error) {
	row := database.Pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func FindPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	row := database.Pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID)
	return scanPayment(row)
}

func FindPaymentByExternalID(ctx context.Context, externalID, provider string) (*Payment, error) {
	row := database.Pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE external_id = $1 AND provider = $2
		LIMIT 1
	`, externalID, provider)
	return scanPayment(row)
}

func CreatePayment(ctx context.Context, clientID, orderID string, amount float64, currency, provider string, tariffID *string) (*Payment, error) {
	row := database.Pool.QueryRow(ctx, `
		INSERT INTO payments (client_id, order_id, amount, currency, provider, tariff_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		clientID, orderID, amount, currency, provider, tariffID)
	return scanPayment(row)
}

// CreatePaidPayment создаёт сразу оплаченный платёж (покупка с баланса).
// Принимает Querier: вставка выполняется в транзакции вместе со списанием.
func CreatePaidPayment(ctx context.Context, q Querier, clientID, orderID string, amount float64, currency, provider string, tariffID *string) (*Payment, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO payments (client_id, order_id, amount, currency, provider, tariff_id, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'PAID', NOW())
		RETURNING `+paymentColumns,
		clientID, orderID, amount, currency, provider, tariffID)
	return scanPayment(row)
}

// purchaseTx — списание с баланса и вставка PAID-платежа на одном Querier.
// Любая ошибка возвращается до коммита вызывающей транзакции, поэтому
// списание без платежа наблюдать нельзя.
func purchaseTx(ctx context.Context, q Querier, clientID, orderID string, amount float64, currency, provider string, tariffID *string) (*Payment, bool, error) {
	debited, err := DebitBalance(ctx, q, clientID, amount)
	if err != nil {
		return nil, false, err
	}
	if !debited {
		return nil, false, nil
	}
	payment, err := CreatePaidPayment(ctx, q, clientID, orderID, amount, currency, provider, tariffID)
	if err != nil {
		return nil, false, err
	}
	return payment, true, nil
}

// PurchaseFromBalance проводит покупку тарифа с внутреннего баланса:
// условное списание (balance >= amount, клиент не заблокирован) и создание
// оплаченного платежа в ОДНОЙ транзакции. Возвращает debited=false при
// нехватке средств; при ошибке вставки транзакция откатывается вместе
// со списанием.
func PurchaseFromBalance(ctx context.Context, clientID, orderID string, amount float64, currency, provider string, tariffID *string) (*Payment, bool, error) {
	tx, err := database.Pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	payment, debited, err := purchaseTx(ctx, tx, clientID, orderID, amount, currency, provider, tariffID)
	if err != nil {
		return nil, false, err
	}
	if !debited {
		return nil, false, tx.Commit(ctx)
	}
	return payment, true, tx.Commit(ctx)
}

func ListClientPayments(ctx context.Context, clientID string, limit int) ([]Payment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := database.Pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		err := rows.Scan(&p.ID, &p.ClientID, &p.OrderID, &p.Amount, &p.Currency, &p.Status,
			&p.Provider, &p.ExternalID, &p.TariffID, &p.PaidAt, &p.ReferralDistributedAt, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// SettleTopUp переводит платёж-пополнение PENDING→PAID и зачисляет сумму на
// баланс клиента в одной транзакции. Переход условный (WHERE status='PENDING'):
// из двух конкурентных доставок webhook выигрывает ровно одна, проигравшая
// получает settled=false и обязана трактовать это как «уже обработано».
func SettleTopUp(ctx context.Context, paymentID, externalID string) (settled bool, err error) {
	tx, err := database.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = 'PAID', paid_at = NOW(), external_id = COALESCE(external_id, $2)
		WHERE id = $1 AND status = 'PENDING'
	`, paymentID, nullIfEmpty(externalID))
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	// Атомарный относительный инкремент — никакого read-modify-write
	_, err = tx.Exec(ctx, `
		UPDATE clients SET balance = balance + p.amount, updated_at = NOW()
		FROM payments p
		WHERE p.id = $1 AND clients.id = p.client_id
	`, paymentID)
	if err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// SettleTariff переводит платёж за тариф PENDING→PAID. Баланс не трогаем:
// активация тарифа в панели выполняется вызывающей стороной после коммита.
func SettleTariff(ctx context.Context, paymentID, externalID string) (settled bool, err error) {
	tag, err := database.Pool.Exec(ctx, `
		UPDATE payments
		SET status = 'PAID', paid_at = NOW(), external_id = COALESCE(external_id, $2)
		WHERE id = $1 AND status = 'PENDING'
	`, paymentID, nullIfEmpty(externalID))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
