package core_test

import (
	"errors"
	"testing"
	"time"

	"agency-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T { return &v }

var (
	jan1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now  = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
)

func rule(id int, agency *int, category, destination *string) core.CommissionRule {
	return core.CommissionRule{
		ID:              id,
		AgencyID:        agency,
		ProductCategory: category,
		Destination:     destination,
		Type:            core.RulePercentage,
		Value:           d("10"),
		EffectiveFrom:   jan1,
		IsActive:        true,
	}
}

func booking(agency int, amount string, category, destination *string) core.BookingInput {
	return core.BookingInput{AgencyID: agency, Amount: d(amount), ProductCategory: category, Destination: destination}
}

func TestResolveRulePrefersMostSpecific(t *testing.T) {
	rules := []core.CommissionRule{
		rule(3, nil, nil, nil),
		rule(2, ptr(1), ptr("flight"), nil),
		rule(1, ptr(1), ptr("flight"), ptr("Paris")),
	}

	tests := []struct {
		name    string
		booking core.BookingInput
		wantID  int
	}{
		{"all dimensions match", booking(1, "100", ptr("flight"), ptr("Paris")), 1},
		{"destination differs", booking(1, "100", ptr("flight"), ptr("Rome")), 2},
		{"no destination", booking(1, "100", ptr("flight"), nil), 2},
		{"category differs", booking(1, "100", ptr("hotel"), ptr("Paris")), 3},
		{"other agency", booking(2, "100", ptr("flight"), ptr("Paris")), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := core.ResolveRule(rules, tt.booking, now)
			if !ok {
				t.Fatal("expected a rule")
			}
			if got.ID != tt.wantID {
				t.Errorf("resolved rule %d, want %d", got.ID, tt.wantID)
			}
		})
	}
}

func TestResolveRuleTieBreaks(t *testing.T) {
	older := rule(10, ptr(1), nil, nil)
	newer := rule(5, ptr(1), nil, nil)
	newer.EffectiveFrom = jan1.AddDate(0, 3, 0)
	got, _ := core.ResolveRule([]core.CommissionRule{older, newer}, booking(1, "100", nil, nil), now)
	if got.ID != 5 {
		t.Errorf("expected latest effective_from to win, got rule %d", got.ID)
	}

	a := rule(7, ptr(1), nil, nil)
	b := rule(8, ptr(1), nil, nil)
	got, _ = core.ResolveRule([]core.CommissionRule{b, a}, booking(1, "100", nil, nil), now)
	if got.ID != 8 {
		t.Errorf("expected highest id to win a full tie, got rule %d", got.ID)
	}
}

func TestResolveRuleSkipsInapplicable(t *testing.T) {
	inactive := rule(1, nil, nil, nil)
	inactive.IsActive = false

	expired := rule(2, nil, nil, nil)
	expired.EffectiveUntil = ptr(jan1.AddDate(0, 2, 0))

	future := rule(3, nil, nil, nil)
	future.EffectiveFrom = now.AddDate(0, 1, 0)

	windowed := rule(4, nil, nil, nil)
	windowed.Type = core.RuleTiered
	windowed.MinAmount = ptr(d("1000"))

	_, ok := core.ResolveRule([]core.CommissionRule{inactive, expired, future, windowed}, booking(1, "500", nil, nil), now)
	if ok {
		t.Error("no rule should apply")
	}

	got, ok := core.ResolveRule([]core.CommissionRule{inactive, windowed}, booking(1, "1500", nil, nil), now)
	if !ok || got.ID != 4 {
		t.Errorf("expected tiered rule inside its window, got %+v %v", got, ok)
	}
}

func TestPercentageRuleAmountWindow(t *testing.T) {
	floored := rule(5, ptr(1), nil, nil)
	floored.MinAmount = ptr(d("50"))
	floored.MaxAmount = ptr(d("2000"))
	fallback := rule(6, nil, nil, nil)

	got, ok := core.ResolveRule([]core.CommissionRule{floored, fallback}, booking(1, "100", nil, nil), now)
	if !ok || got.ID != 5 {
		t.Fatalf("expected the windowed percentage rule, got %+v %v", got, ok)
	}
	if amount := core.ComputeCommission(got, d("100")); !amount.Equal(d("10")) {
		t.Errorf("commission = %s, want 10 (amount x value / 100)", amount)
	}

	for _, amount := range []string{"49.99", "2000.01"} {
		got, ok := core.ResolveRule([]core.CommissionRule{floored, fallback}, booking(1, amount, nil, nil), now)
		if !ok || got.ID != 6 {
			t.Errorf("amount %s outside the window should fall through to rule 6, got %+v %v", amount, got, ok)
		}
	}
}

func TestSpecificity(t *testing.T) {
	r := rule(1, ptr(1), nil, ptr("Paris"))
	if got := core.Specificity(&r); got != 2 {
		t.Errorf("Specificity = %d, want 2", got)
	}
	g := rule(2, nil, nil, nil)
	if got := core.Specificity(&g); got != 0 {
		t.Errorf("Specificity = %d, want 0", got)
	}
}

func TestComputeCommission(t *testing.T) {
	tiers := []core.RuleTier{
		{Threshold: d("0"), Rate: d("5")},
		{Threshold: d("1000"), Rate: d("7")},
		{Threshold: d("5000"), Rate: d("10")},
	}

	tests := []struct {
		name   string
		rule   core.CommissionRule
		amount string
		want   string
	}{
		{"percentage rounds to cents", core.CommissionRule{Type: core.RulePercentage, Value: d("10")}, "1234.56", "123.46"},
		{"percentage ignores amount floor", core.CommissionRule{Type: core.RulePercentage, Value: d("10"), MinAmount: ptr(d("50"))}, "100", "10"},
		{"percentage ignores amount ceiling", core.CommissionRule{Type: core.RulePercentage, Value: d("10"), MaxAmount: ptr(d("6000"))}, "5000", "500"},
		{"fixed raised to floor", core.CommissionRule{Type: core.RuleFixed, Value: d("20"), MinAmount: ptr(d("30"))}, "1000", "30"},
		{"fixed capped at ceiling", core.CommissionRule{Type: core.RuleFixed, Value: d("80"), MaxAmount: ptr(d("50"))}, "1000", "50"},
		{"fixed ignores amount", core.CommissionRule{Type: core.RuleFixed, Value: d("25")}, "99999", "25"},
		{"tier one", core.CommissionRule{Type: core.RuleTiered, Tiers: tiers}, "500", "25"},
		{"tier boundary", core.CommissionRule{Type: core.RuleTiered, Tiers: tiers}, "1000", "70"},
		{"top tier", core.CommissionRule{Type: core.RuleTiered, Tiers: tiers}, "7500", "750"},
		{"tiered without tiers uses value", core.CommissionRule{Type: core.RuleTiered, Value: d("3")}, "200", "6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rule
			got := core.ComputeCommission(&r, d(tt.amount))
			if !got.Equal(d(tt.want)) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTierRate(t *testing.T) {
	tiers := []core.RuleTier{{Threshold: d("100"), Rate: d("4")}, {Threshold: d("500"), Rate: d("6")}}
	if got := core.TierRate(tiers, d("50")); !got.IsZero() {
		t.Errorf("below first tier: got %s, want 0", got)
	}
	if got := core.TierRate(tiers, d("499.99")); !got.Equal(d("4")) {
		t.Errorf("got %s, want 4", got)
	}
	if got := core.TierRate(tiers, d("500")); !got.Equal(d("6")) {
		t.Errorf("got %s, want 6", got)
	}
}

func TestTieredPayoutNonDecreasing(t *testing.T) {
	r := core.CommissionRule{Type: core.RuleTiered, Tiers: []core.RuleTier{
		{Threshold: d("0"), Rate: d("2")},
		{Threshold: d("250"), Rate: d("3")},
		{Threshold: d("800"), Rate: d("3.5")},
	}}
	prev := decimal.Zero
	for amount := int64(0); amount <= 2000; amount += 25 {
		got := core.ComputeCommission(&r, decimal.NewFromInt(amount))
		if got.LessThan(prev) {
			t.Fatalf("payout dropped at %d: %s < %s", amount, got, prev)
		}
		prev = got
	}
}

func TestDefaultCommission(t *testing.T) {
	if got := core.DefaultCommission(d("5"), d("200")); !got.Equal(d("10")) {
		t.Errorf("got %s, want 10", got)
	}
}

func TestValidateRule(t *testing.T) {
	valid := func() core.CreateRuleInput {
		return core.CreateRuleInput{Type: core.RulePercentage, Value: d("10"), EffectiveFrom: jan1}
	}

	if err := core.ValidateRule(valid()); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*core.CreateRuleInput)
	}{
		{"unknown type", func(in *core.CreateRuleInput) { in.Type = "bonus" }},
		{"negative value", func(in *core.CreateRuleInput) { in.Value = d("-1") }},
		{"percentage over 100", func(in *core.CreateRuleInput) { in.Value = d("100.01") }},
		{"missing effective_from", func(in *core.CreateRuleInput) { in.EffectiveFrom = time.Time{} }},
		{"until before from", func(in *core.CreateRuleInput) { in.EffectiveUntil = ptr(jan1.AddDate(0, 0, -1)) }},
		{"min above max", func(in *core.CreateRuleInput) { in.MinAmount, in.MaxAmount = ptr(d("50")), ptr(d("10")) }},
		{"tiers on percentage rule", func(in *core.CreateRuleInput) {
			in.Tiers = []core.RuleTier{{Threshold: d("0"), Rate: d("1")}}
		}},
		{"thresholds not ascending", func(in *core.CreateRuleInput) {
			in.Type = core.RuleTiered
			in.Tiers = []core.RuleTier{{Threshold: d("100"), Rate: d("1")}, {Threshold: d("100"), Rate: d("2")}}
		}},
		{"rates decreasing", func(in *core.CreateRuleInput) {
			in.Type = core.RuleTiered
			in.Tiers = []core.RuleTier{{Threshold: d("0"), Rate: d("5")}, {Threshold: d("100"), Rate: d("4")}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			if err := core.ValidateRule(in); !errors.Is(err, core.ErrInvalidRule) {
				t.Errorf("expected InvalidRule, got %v", err)
			}
		})
	}

	fixed := valid()
	fixed.Type = core.RuleFixed
	fixed.Value = d("250")
	if err := core.ValidateRule(fixed); err != nil {
		t.Errorf("fixed amounts above 100 are allowed: %v", err)
	}
}

func TestCommissionTransitions(t *testing.T) {
	tests := []struct {
		from, to core.CommissionStatus
		want     bool
	}{
		{core.CommissionPending, core.CommissionApproved, true},
		{core.CommissionPending, core.CommissionCancelled, true},
		{core.CommissionPending, core.CommissionPaid, false},
		{core.CommissionApproved, core.CommissionPaid, true},
		{core.CommissionApproved, core.CommissionCancelled, true},
		{core.CommissionPaid, core.CommissionCancelled, false},
		{core.CommissionCancelled, core.CommissionApproved, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
