package core

import (
	"sort"
	"strings"
)

// MaxTaskDivisions is how many ranked divisions a task keeps.
const MaxTaskDivisions = 3

// DefaultDivision is used when no division keyword matches.
const DefaultDivision = DivisionProduction

// Matching is plain substring containment on the lowercased text, so
// "testing" also matches inside "testingroom".
var divisionKeywords = map[Division][]string{
	DivisionMarketing:  {"marketing", "campaign", "brand", "social media", "seo", "advertis", "promotion", "launch event"},
	DivisionResearch:   {"research", "analy", "study", "experiment", "investigat", "prototype", "survey"},
	DivisionTesting:    {"test", "qa", "bug", "regression", "quality", "verify"},
	DivisionProduction: {"build", "deploy", "implement", "feature", "release", "develop", "ship"},
	DivisionSecurity:   {"security", "vulnerab", "breach", "encrypt", "threat", "pentest", "firewall"},
	DivisionLegal:      {"legal", "contract", "compliance", "licens", "gdpr", "trademark", "lawsuit"},
	DivisionAccounting: {"budget", "invoice", "financ", "accounting", "tax", "payroll", "expense"},
}

var swarmKeywords = []string{
	"cross-division",
	"company-wide",
	"organization-wide",
	"enterprise-wide",
	"all hands",
	"all-hands",
	"every division",
	"swarm",
}

var complexKeywords = []string{
	"migrate",
	"migration",
	"rewrite",
	"overhaul",
	"refactor",
	"redesign",
	"re-architect",
	"integrate",
}

// ClassifyDivisions ranks the divisions whose keywords appear in text.
// Each keyword hit scores one point; divisions scoring zero are dropped and
// ties keep WorkDivisions order. At most MaxTaskDivisions are returned, and
// DefaultDivision alone when nothing matches.
func ClassifyDivisions(text string) []Division {
	lower := strings.ToLower(text)

	type scored struct {
		div   Division
		score int
	}
	var hits []scored
	for _, div := range WorkDivisions {
		score := 0
		for _, kw := range divisionKeywords[div] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{div, score})
		}
	}

	if len(hits) == 0 {
		return []Division{DefaultDivision}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > MaxTaskDivisions {
		hits = hits[:MaxTaskDivisions]
	}

	out := make([]Division, len(hits))
	for i, h := range hits {
		out[i] = h.div
	}
	return out
}

// ClassifyComplexity derives the complexity tier. Swarm signals are checked
// first, so text matching both swarm and complex keywords is a swarm.
func ClassifyComplexity(text string, priority Priority) Complexity {
	lower := strings.ToLower(text)
	tier := priority.Tier()

	if tier == TierCritical || containsAny(lower, swarmKeywords) {
		return ComplexitySwarm
	}
	if tier == TierHigh || containsAny(lower, complexKeywords) {
		return ComplexityComplex
	}
	return ComplexityStandard
}

// Analyze classifies a request into a task.
func Analyze(req TaskRequest) Task {
	text := req.Title + " " + req.Description
	return Task{
		TaskRequest: req,
		Divisions:   ClassifyDivisions(text),
		Complexity:  ClassifyComplexity(text, req.Priority),
	}
}

// ChooseStrategy maps a classified task to a delegation strategy. Swarm wins
// regardless of division count; a complex task with a single division is
// delegated to one agent.
func ChooseStrategy(t Task) Strategy {
	if t.Complexity == ComplexitySwarm {
		return StrategySwarm
	}
	if len(t.Divisions) >= 2 {
		return StrategyMulti
	}
	return StrategySingle
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
