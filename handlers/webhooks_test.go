package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
)

func parseBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var data map[string]any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		t.Fatalf("невалидный JSON в фикстуре: %v", err)
	}
	return data
}

// TestNormalizeProviderCallback_Status тестирует распознавание успешного статуса
func TestNormalizeProviderCallbackStatus(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		expectedStatus  string
		expectedSuccess bool
		description     string
	}{
		{
			name:            "Confirmed_TopLevel",
			body:            `{"status":"CONFIRMED","payload":"ORD-1"}`,
			expectedStatus:  "CONFIRMED",
			expectedSuccess: true,
			description:     "Документированный статус Platega",
		},
		{
			name:            "Paid_LowerCase",
			body:            `{"status":"paid"}`,
			expectedStatus:  "PAID",
			expectedSuccess: true,
			description:     "Регистр не важен",
		},
		{
			name:            "Status_InsideTransaction",
			body:            `{"transaction":{"status":"SUCCESS","id":"tx-1"}}`,
			expectedStatus:  "SUCCESS",
			expectedSuccess: true,
			description:     "Статус внутри объекта transaction",
		},
		{
			name:            "TopLevelBeatsNested",
			body:            `{"status":"PENDING","transaction":{"status":"CONFIRMED"}}`,
			expectedStatus:  "PENDING",
			expectedSuccess: false,
			description:     "Верхний уровень приоритетнее вложенного",
		},
		{
			name:            "Canceled",
			body:            `{"status":"CANCELED"}`,
			expectedStatus:  "CANCELED",
			expectedSuccess: false,
			description:     "Неуспешный статус",
		},
		{
			name:            "NoStatus",
			body:            `{"payload":"ORD-2"}`,
			expectedStatus:  "",
			expectedSuccess: false,
			description:     "Отсутствие статуса — не успех",
		},
		{
			name:            "StatusWithSpaces",
			body:            `{"status":"  completed  "}`,
			expectedStatus:  "COMPLETED",
			expectedSuccess: true,
			description:     "Пробелы по краям обрезаются",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NormalizeProviderCallback(parseBody(t, tt.body))
			if cb.Status != tt.expectedStatus {
				t.Errorf("Status = %q, ожидалось %q. %s", cb.Status, tt.expectedStatus, tt.description)
			}
			if cb.Success != tt.expectedSuccess {
				t.Errorf("Success = %v, ожидалось %v. %s", cb.Success, tt.expectedSuccess, tt.description)
			}
		})
	}
}

// TestNormalizeProviderCallbackCandidates тестирует извлечение идентификаторов:
// порядок приоритета payload → orderId → transactionId → externalId → invoiceId
func TestNormalizeProviderCallbackCandidates(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expected    []string
		description string
	}{
		{
			name:        "AllIdentifiers",
			body:        `{"payload":"ORD-1","orderId":"ORD-2","transactionId":"tx-1","externalId":"ext-1","invoiceId":"inv-1"}`,
			expected:    []string{"ORD-1", "ORD-2", "tx-1", "ext-1", "inv-1"},
			description: "Полный набор в порядке приоритета",
		},
		{
			name:        "Duplicates_Removed",
			body:        `{"payload":"ORD-1","orderId":"ORD-1","transactionId":"tx-1"}`,
			expected:    []string{"ORD-1", "tx-1"},
			description: "Дубликаты схлопываются, приоритет сохраняется",
		},
		{
			name:        "Nested_Transaction",
			body:        `{"transaction":{"id":"tx-9","payload":"ORD-9"}}`,
			expected:    []string{"ORD-9", "tx-9"},
			description: "Идентификаторы из вложенного transaction",
		},
		{
			name:        "NumericID",
			body:        `{"transactionId":123456}`,
			expected:    []string{"123456"},
			description: "Числовой id приводится к строке",
		},
		{
			name:        "SnakeCaseOrder",
			body:        `{"order_id":"ORD-5"}`,
			expected:    []string{"ORD-5"},
			description: "Вариант order_id",
		},
		{
			name:        "NoIdentifiers",
			body:        `{"status":"CONFIRMED"}`,
			expected:    nil,
			description: "Ничего не извлечено",
		},
		{
			name:        "IDFieldAsTransactionID",
			body:        `{"id":"tx-7","status":"CONFIRMED"}`,
			expected:    []string{"tx-7"},
			description: "Верхнеуровневый id трактуется как id транзакции",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NormalizeProviderCallback(parseBody(t, tt.body))
			if !reflect.DeepEqual(cb.CandidateIDs, tt.expected) {
				t.Errorf("CandidateIDs = %v, ожидалось %v. %s", cb.CandidateIDs, tt.expected, tt.description)
			}
		})
	}
}

// TestLookupPayment тестирует поиск платежа по кандидатам: «не найден»
// и сбой БД — разные исходы, транзиентная ошибка не превращается в not_found
func TestLookupPayment(t *testing.T) {
	origExt, origOrd := findPaymentByExternalID, findPaymentByOrderID
	defer func() { findPaymentByExternalID, findPaymentByOrderID = origExt, origOrd }()

	ctx := context.Background()
	notFound := func(...string) (*models.Payment, error) { return nil, models.ErrNotFound }

	t.Run("FoundBySecondCandidate", func(t *testing.T) {
		findPaymentByExternalID = func(_ context.Context, id, provider string) (*models.Payment, error) {
			return nil, models.ErrNotFound
		}
		findPaymentByOrderID = func(_ context.Context, id string) (*models.Payment, error) {
			if id == "ORD-2" {
				return &models.Payment{ID: "pay-1", OrderID: "ORD-2"}, nil
			}
			return notFound()
		}

		payment, failed := lookupPayment(ctx, "platega", []string{"tx-1", "ORD-2"})
		if payment == nil || payment.ID != "pay-1" {
			t.Fatalf("payment = %+v, ожидался pay-1", payment)
		}
		if failed {
			t.Error("failed = true при успешном поиске")
		}
	})

	t.Run("NotFoundEverywhere", func(t *testing.T) {
		findPaymentByExternalID = func(_ context.Context, id, provider string) (*models.Payment, error) {
			return notFound()
		}
		findPaymentByOrderID = func(_ context.Context, id string) (*models.Payment, error) {
			return notFound()
		}

		payment, failed := lookupPayment(ctx, "platega", []string{"tx-1", "ORD-2"})
		if payment != nil {
			t.Errorf("payment = %+v, ожидался nil", payment)
		}
		if failed {
			t.Error("failed = true: «не найден» — не сбой")
		}
	})

	t.Run("TransientDBError_NotTreatedAsMissing", func(t *testing.T) {
		findPaymentByExternalID = func(_ context.Context, id, provider string) (*models.Payment, error) {
			return nil, errors.New("connection refused")
		}
		findPaymentByOrderID = func(_ context.Context, id string) (*models.Payment, error) {
			return notFound()
		}

		payment, failed := lookupPayment(ctx, "platega", []string{"tx-1"})
		if payment != nil {
			t.Errorf("payment = %+v, ожидался nil", payment)
		}
		if !failed {
			t.Error("failed = false: сбой БД нельзя трактовать как отсутствие платежа")
		}
	})

	t.Run("ErrorThenHit_StillResolves", func(t *testing.T) {
		findPaymentByExternalID = func(_ context.Context, id, provider string) (*models.Payment, error) {
			return nil, errors.New("connection refused")
		}
		findPaymentByOrderID = func(_ context.Context, id string) (*models.Payment, error) {
			return &models.Payment{ID: "pay-2", OrderID: id}, nil
		}

		payment, failed := lookupPayment(ctx, "platega", []string{"ORD-3"})
		if payment == nil || payment.ID != "pay-2" {
			t.Fatalf("payment = %+v, ожидался pay-2", payment)
		}
		if failed {
			t.Error("failed = true, хотя платёж в итоге найден")
		}
	})
}

// TestNormalizeProviderCallbackTransactionID проверяет выбор id транзакции
func TestNormalizeProviderCallbackTransactionID(t *testing.T) {
	cb := NormalizeProviderCallback(parseBody(t, `{"transactionId":"tx-1","id":"tx-2","transaction":{"id":"tx-3"}}`))
	if cb.TransactionID != "tx-1" {
		t.Errorf("TransactionID = %q, ожидалось tx-1 (явное поле приоритетнее)", cb.TransactionID)
	}

	cb = NormalizeProviderCallback(parseBody(t, `{"transaction":{"id":"tx-3"}}`))
	if cb.TransactionID != "tx-3" {
		t.Errorf("TransactionID = %q, ожидалось tx-3", cb.TransactionID)
	}
}
