package services

import (
	"testing"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/models"
)

// TestComputeBonus тестирует округление реферального бонуса
func TestComputeBonus(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		percent  float64
		expected float64
	}{
		{name: "Simple", amount: 100, percent: 30, expected: 30.00},
		{name: "Rounding_Down", amount: 99.99, percent: 30, expected: 30.00},  // 29.997 → 30.00
		{name: "Rounding_HalfUp", amount: 33.35, percent: 10, expected: 3.34}, // 3.335 → 3.34
		{name: "SmallAmount", amount: 0.01, percent: 10, expected: 0.00},
		{name: "ZeroPercent", amount: 100, percent: 0, expected: 0.00},
		{name: "FloatArtifacts", amount: 0.1, percent: 30, expected: 0.03}, // без двоичного мусора
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBonus(tt.amount, tt.percent)
			if got != tt.expected {
				t.Errorf("ComputeBonus(%v, %v) = %v, ожидалось %v", tt.amount, tt.percent, got, tt.expected)
			}
		})
	}
}

// TestBuildDistributionPlan тестирует трёхуровневое распределение по цепочке
func TestBuildDistributionPlan(t *testing.T) {
	percents := [3]float64{30, 10, 10}

	tests := []struct {
		name        string
		chain       []models.ChainMember
		amount      float64
		expected    []PlannedCredit
		description string
	}{
		{
			name: "FullChain",
			chain: []models.ChainMember{
				{ID: "r1"}, {ID: "r2"}, {ID: "r3"},
			},
			amount: 100,
			expected: []PlannedCredit{
				{ReferrerID: "r1", Bonus: 30.00, Level: 1},
				{ReferrerID: "r2", Bonus: 10.00, Level: 2},
				{ReferrerID: "r3", Bonus: 10.00, Level: 3},
			},
			description: "Три уровня, все активны",
		},
		{
			name: "BlockedFirstLevel_ChainNotBroken",
			chain: []models.ChainMember{
				{ID: "r1", IsBlocked: true}, {ID: "r2"}, {ID: "r3"},
			},
			amount: 100,
			expected: []PlannedCredit{
				{ReferrerID: "r2", Bonus: 10.00, Level: 2},
				{ReferrerID: "r3", Bonus: 10.00, Level: 3},
			},
			description: "Блокировка первого уровня не лишает верхние уровни их процентов",
		},
		{
			name: "SingleReferrer",
			chain: []models.ChainMember{
				{ID: "r1"},
			},
			amount:      50,
			expected:    []PlannedCredit{{ReferrerID: "r1", Bonus: 15.00, Level: 1}},
			description: "Короткая цепочка — только первый уровень",
		},
		{
			name:        "EmptyChain",
			chain:       nil,
			amount:      100,
			expected:    nil,
			description: "Без реферера начислений нет",
		},
		{
			name: "AllBlocked",
			chain: []models.ChainMember{
				{ID: "r1", IsBlocked: true}, {ID: "r2", IsBlocked: true},
			},
			amount:      100,
			expected:    nil,
			description: "Все заблокированы — план пуст",
		},
		{
			name: "ChainLongerThanThree",
			chain: []models.ChainMember{
				{ID: "r1"}, {ID: "r2"}, {ID: "r3"}, {ID: "r4"},
			},
			amount: 100,
			expected: []PlannedCredit{
				{ReferrerID: "r1", Bonus: 30.00, Level: 1},
				{ReferrerID: "r2", Bonus: 10.00, Level: 2},
				{ReferrerID: "r3", Bonus: 10.00, Level: 3},
			},
			description: "Четвёртый уровень не получает ничего",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildDistributionPlan(tt.chain, percents, tt.amount)
			if len(got) != len(tt.expected) {
				t.Fatalf("план из %d начислений, ожидалось %d. %s", len(got), len(tt.expected), tt.description)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("план[%d] = %+v, ожидалось %+v. %s", i, got[i], tt.expected[i], tt.description)
				}
			}
		})
	}
}

// TestBuildDistributionPlanZeroPercent: нулевой процент уровня выключает
// только этот уровень
func TestBuildDistributionPlanZeroPercent(t *testing.T) {
	chain := []models.ChainMember{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}
	plan := BuildDistributionPlan(chain, [3]float64{30, 0, 10}, 100)

	if len(plan) != 2 {
		t.Fatalf("план из %d начислений, ожидалось 2", len(plan))
	}
	if plan[0].Level != 1 || plan[0].Bonus != 30.00 {
		t.Errorf("план[0] = %+v, ожидался уровень 1 с бонусом 30", plan[0])
	}
	if plan[1].Level != 3 || plan[1].Bonus != 10.00 {
		t.Errorf("план[1] = %+v, ожидался уровень 3 с бонусом 10", plan[1])
	}
}
