package models

import (
	"strings"
	"testing"
)

// TestGenerateReferralCode тестирует формат и уникальность реферальных кодов
func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateReferralCode()
		if !strings.HasPrefix(code, "REF-") {
			t.Fatalf("код %q без префикса REF-", code)
		}
		if len(code) != len("REF-")+8 {
			t.Fatalf("код %q неожиданной длины", code)
		}
		if code != strings.ToUpper(code) {
			t.Fatalf("код %q не в верхнем регистре", code)
		}
		if seen[code] {
			t.Fatalf("код %q повторился", code)
		}
		seen[code] = true
	}
}
