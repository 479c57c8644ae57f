package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeQuerier имитирует транзакцию для purchaseTx: Exec отвечает на
// списание, QueryRow — на вставку платежа.
type fakeQuerier struct {
	execTag       pgconn.CommandTag
	execErr       error
	rowScan       func(dest ...any) error
	execCalls     int
	queryRowCalls int
}

type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func (q *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execCalls++
	return q.execTag, q.execErr
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.queryRowCalls++
	return fakeRow{scan: q.rowScan}
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("не используется в этих тестах")
}

func scanFullPayment(dest ...any) error {
	*dest[0].(*string) = "pay-1"
	*dest[1].(*string) = "client-1"
	*dest[2].(*string) = "BAL-1"
	*dest[3].(*float64) = 199
	*dest[4].(*string) = "RUB"
	*dest[5].(*string) = PaymentStatusPaid
	*dest[6].(*string) = "balance"
	tariffID := "tariff-1"
	*dest[8].(**string) = &tariffID
	now := time.Now()
	*dest[9].(**time.Time) = &now
	*dest[11].(*time.Time) = now
	return nil
}

// TestPurchaseTx тестирует покупку с баланса: списание и вставка платежа
// идут на одном Querier, ошибка любого шага всплывает до коммита транзакции
func TestPurchaseTx(t *testing.T) {
	ctx := context.Background()
	tariffID := "tariff-1"

	t.Run("InsufficientFunds_NoInsert", func(t *testing.T) {
		q := &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 0")}
		payment, debited, err := purchaseTx(ctx, q, "client-1", "BAL-1", 199, "RUB", "balance", &tariffID)
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if debited {
			t.Error("debited = true при нехватке средств")
		}
		if payment != nil {
			t.Errorf("payment = %+v, ожидался nil", payment)
		}
		if q.queryRowCalls != 0 {
			t.Errorf("вставка платежа вызвана %d раз без списания", q.queryRowCalls)
		}
	})

	t.Run("DebitError_NoInsert", func(t *testing.T) {
		q := &fakeQuerier{execErr: errors.New("connection reset")}
		_, _, err := purchaseTx(ctx, q, "client-1", "BAL-1", 199, "RUB", "balance", &tariffID)
		if err == nil {
			t.Fatal("ошибка списания потеряна")
		}
		if q.queryRowCalls != 0 {
			t.Errorf("вставка платежа вызвана %d раз после ошибки списания", q.queryRowCalls)
		}
	})

	t.Run("InsertFailure_ErrorSurfaces", func(t *testing.T) {
		// Списание прошло, вставка упала: ошибка обязана дойти до вызывающей
		// транзакции, чтобы откат вернул списанное
		insertErr := errors.New("duplicate key value violates unique constraint")
		q := &fakeQuerier{
			execTag: pgconn.NewCommandTag("UPDATE 1"),
			rowScan: func(dest ...any) error { return insertErr },
		}
		payment, debited, err := purchaseTx(ctx, q, "client-1", "BAL-1", 199, "RUB", "balance", &tariffID)
		if !errors.Is(err, insertErr) {
			t.Fatalf("err = %v, ожидалась ошибка вставки", err)
		}
		if debited || payment != nil {
			t.Errorf("debited=%v payment=%+v при проваленной вставке", debited, payment)
		}
	})

	t.Run("HappyPath", func(t *testing.T) {
		q := &fakeQuerier{
			execTag: pgconn.NewCommandTag("UPDATE 1"),
			rowScan: scanFullPayment,
		}
		payment, debited, err := purchaseTx(ctx, q, "client-1", "BAL-1", 199, "RUB", "balance", &tariffID)
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if !debited {
			t.Fatal("debited = false при успешном списании")
		}
		if payment == nil || payment.ID != "pay-1" || payment.Status != PaymentStatusPaid {
			t.Errorf("payment = %+v, ожидался оплаченный pay-1", payment)
		}
		if q.execCalls != 1 || q.queryRowCalls != 1 {
			t.Errorf("exec=%d queryRow=%d, ожидалось по одному вызову", q.execCalls, q.queryRowCalls)
		}
	})
}

// TestPaymentIsTopUp тестирует выбор ветки проведения платежа:
// без тарифа — пополнение баланса, с тарифом — активация тарифа
func TestPaymentIsTopUp(t *testing.T) {
	tariffID := "tariff-1"

	tests := []struct {
		name        string
		payment     Payment
		expected    bool
		description string
	}{
		{
			name:        "NoTariff_TopUp",
			payment:     Payment{ID: "p1", Amount: 500},
			expected:    true,
			description: "Платёж без тарифа зачисляется на баланс",
		},
		{
			name:        "WithTariff_Activation",
			payment:     Payment{ID: "p2", Amount: 199, TariffID: &tariffID},
			expected:    false,
			description: "Платёж за тариф активируется в панели, баланс не трогается",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payment.IsTopUp(); got != tt.expected {
				t.Errorf("IsTopUp() = %v, ожидалось %v. %s", got, tt.expected, tt.description)
			}
		})
	}
}
