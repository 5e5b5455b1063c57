// Package classify tags chat messages with the skill category they
// exercise. Classification is pure keyword matching: no model calls, no
// state, so the same message always yields the same tag.
package classify

import "strings"

// Skill is the closed set of task categories an agent records work under.
// The zero value SkillNone means the message matched no rule.
type Skill string

const (
	SkillNone        Skill = ""
	SkillBalance     Skill = "Balance Checker"
	SkillTransaction Skill = "Transaction Analyzer"
	SkillPrice       Skill = "Price Monitor"
	SkillNetwork     Skill = "Network Status"
)

// Known reports whether s is a real tag rather than SkillNone.
func (s Skill) Known() bool {
	return s != SkillNone
}

// rule maps a skill to its trigger keywords. English and Spanish terms
// share one list so both languages classify through the same path.
type rule struct {
	skill    Skill
	keywords []string
}

// rules are checked in order and the first match wins, so earlier entries
// shadow later ones when a message mixes topics.
var rules = []rule{
	{SkillBalance, []string{"balance", "wallet", "saldo", "billetera", "cartera"}},
	{SkillTransaction, []string{"transaction", "history", "transaccion", "transacción", "historial"}},
	{SkillPrice, []string{"price", "cost", "precio", "cuanto vale", "cuánto vale"}},
	{SkillNetwork, []string{"network", "tps", "slot", "estado de la red", "red de solana"}},
}

// Classify returns the skill tag for a message, or SkillNone when no rule
// matches. Matching is case-insensitive substring containment.
func Classify(message string) Skill {
	lowered := strings.ToLower(message)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lowered, kw) {
				return r.skill
			}
		}
	}
	return SkillNone
}

// All returns every real skill tag in rule priority order.
func All() []Skill {
	out := make([]Skill, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.skill)
	}
	return out
}
