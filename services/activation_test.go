package services

import (
	"testing"
	"time"
)

// TestComputeExpireAt тестирует расчёт срока подписки при активации тарифа
func TestComputeExpireAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	future := now.Add(10 * 24 * time.Hour)
	past := now.Add(-5 * 24 * time.Hour)

	tests := []struct {
		name         string
		existing     *time.Time
		durationDays int
		expected     time.Time
		description  string
	}{
		{
			name:         "NoExistingExpiry",
			existing:     nil,
			durationDays: 30,
			expected:     now.AddDate(0, 0, 30),
			description:  "Первая покупка — срок от текущего момента",
		},
		{
			name:         "FutureExpiry_Additive",
			existing:     &future,
			durationDays: 30,
			expected:     future.AddDate(0, 0, 30),
			description:  "Действующая подписка продлевается, остаток не сгорает",
		},
		{
			name:         "ExpiredSubscription",
			existing:     &past,
			durationDays: 30,
			expected:     now.AddDate(0, 0, 30),
			description:  "Истёкшая подписка считается от текущего момента",
		},
		{
			name:         "ExpiresExactlyNow",
			existing:     &now,
			durationDays: 7,
			expected:     now.AddDate(0, 0, 7),
			description:  "Срок ровно сейчас — как истёкший",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeExpireAt(tt.existing, tt.durationDays, now)
			if !got.Equal(tt.expected) {
				t.Errorf("ComputeExpireAt() = %v, ожидалось %v. %s", got, tt.expected, tt.description)
			}
		})
	}
}

// TestNormalizeLimits: nil в тарифе превращается в явный 0 (безлимит) для панели
func TestNormalizeLimits(t *testing.T) {
	if got := normalizeTrafficLimit(nil); got == nil || *got != 0 {
		t.Errorf("normalizeTrafficLimit(nil) = %v, ожидался явный 0", got)
	}
	limit := int64(1 << 30)
	if got := normalizeTrafficLimit(&limit); got == nil || *got != limit {
		t.Errorf("normalizeTrafficLimit(1GiB) = %v, ожидалось %d", got, limit)
	}

	if got := normalizeDeviceLimit(nil); got == nil || *got != 0 {
		t.Errorf("normalizeDeviceLimit(nil) = %v, ожидался явный 0", got)
	}
	devices := 5
	if got := normalizeDeviceLimit(&devices); got == nil || *got != 5 {
		t.Errorf("normalizeDeviceLimit(5) = %v, ожидалось 5", got)
	}
}
