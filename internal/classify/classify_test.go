package classify

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		message string
		want    Skill
	}{
		{"what is my wallet balance?", SkillBalance},
		{"Check my BALANCE please", SkillBalance},
		{"cual es mi saldo", SkillBalance},
		{"revisa mi billetera", SkillBalance},
		{"show my transaction history", SkillTransaction},
		{"muestra mi historial", SkillTransaction},
		{"ver transacción reciente", SkillTransaction},
		{"ver transaccion reciente", SkillTransaction},
		{"what's the price of SOL today", SkillPrice},
		{"precio de sol", SkillPrice},
		{"cuanto vale un token", SkillPrice},
		{"revisa mi cartera", SkillBalance},
		{"¿cuánto vale?", SkillPrice},
		{"is the network healthy", SkillNetwork},
		{"current tps?", SkillNetwork},
		{"estado de la red por favor", SkillNetwork},
		{"hello there", SkillNone},
		{"", SkillNone},
		{"háblame de ti", SkillNone},
	}

	for _, tc := range cases {
		if got := Classify(tc.message); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Balance outranks price when a message mentions both.
	got := Classify("what's the price impact on my wallet balance")
	if got != SkillBalance {
		t.Fatalf("expected %q for mixed message, got %q", SkillBalance, got)
	}

	// Transaction outranks network.
	got = Classify("show transaction volume across the network")
	if got != SkillTransaction {
		t.Fatalf("expected %q for mixed message, got %q", SkillTransaction, got)
	}
}

func TestClassifySubstrings(t *testing.T) {
	// Containment is intentional: embedded keywords still trigger.
	if got := Classify("the fund was rebalanced overnight"); got != SkillBalance {
		t.Errorf("expected substring match, got %q", got)
	}
}

func TestClassifyIsStateless(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Classify("network status"); got != SkillNetwork {
			t.Fatalf("call %d: got %q", i, got)
		}
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("expected 4 skills, got %d", len(all))
	}
	if all[0] != SkillBalance || all[3] != SkillNetwork {
		t.Errorf("unexpected priority order: %v", all)
	}
	for _, s := range all {
		if !s.Known() {
			t.Errorf("All returned the none tag")
		}
	}
}
