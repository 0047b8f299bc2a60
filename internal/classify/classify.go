// Package classify assigns an untyped webhook payload to exactly one
// business category. Classification is an ordered list of predicate/derive
// rules evaluated first-match-wins, so a payload carrying markers for more
// than one category always resolves the same way:
//
//  1. explicit type field: case / case_response
//  2. ai-studio markers (source, generationType, generated asset arrays)
//  3. advisory markers (source, sessionId, questions, known answer fields)
//  4. ads: the catch-all for legacy traffic with no markers at all
//
// Classify is pure and deterministic. It never returns an error: an
// unclassifiable payload is by definition an ads submission.
package classify

import (
	"strconv"
	"strings"

	"github.com/valle1212i/admin-portal-sub000/internal/domain"
)

// Hint carries HTTP-level context that participates in classification:
// the optional explicit type field and the x-tenant header.
type Hint struct {
	Type   string
	Tenant string
}

// Result is the outcome of classifying one payload.
type Result struct {
	Category   domain.Category
	TenantID   string
	Platform   string
	UserEmail  string
	UserID     string
	Answers    domain.StringMap
	AIStudio   *domain.AIStudioData
	Radgivning *domain.RadgivningData
}

// rule pairs a predicate with the derivation that runs when it matches.
type rule struct {
	name   string
	match  func(p map[string]interface{}, h Hint) bool
	derive func(p map[string]interface{}, h Hint, r *Result)
}

// rules in precedence order. ai-studio is checked before radgivning: a
// payload carrying both kinds of markers classifies as ai-studio.
var rules = []rule{
	{name: "explicit-case", match: matchExplicitCase, derive: deriveExplicitCase},
	{name: "ai-studio", match: matchAIStudio, derive: deriveAIStudio},
	{name: "radgivning", match: matchRadgivning, derive: deriveRadgivning},
	{name: "ads", match: func(map[string]interface{}, Hint) bool { return true }, derive: deriveAds},
}

// Classify runs the rule list over the payload and returns the category
// plus its derived sub-structure and the normalized answers map.
func Classify(payload map[string]interface{}, hint Hint) Result {
	r := Result{
		TenantID:  firstNonEmpty(str(payload, "tenantId"), hint.Tenant),
		UserEmail: str(payload, "userEmail"),
		UserID:    str(payload, "userId"),
	}
	if p := strings.ToLower(str(payload, "platform")); domain.KnownPlatform(p) {
		r.Platform = p
	}
	for _, rule := range rules {
		if rule.match(payload, hint) {
			rule.derive(payload, hint, &r)
			return r
		}
	}
	// Unreachable: the ads rule always matches.
	return r
}

// ---- rule: explicit case types -------------------------------------------

func matchExplicitCase(p map[string]interface{}, h Hint) bool {
	t := explicitType(p, h)
	return t == string(domain.CategoryCase) || t == string(domain.CategoryCaseResponse)
}

func deriveExplicitCase(p map[string]interface{}, h Hint, r *Result) {
	r.Category = domain.Category(explicitType(p, h))
}

func explicitType(p map[string]interface{}, h Hint) string {
	if t := str(p, "type"); t != "" {
		return t
	}
	return h.Type
}

// ---- rule: ai-studio ------------------------------------------------------

func matchAIStudio(p map[string]interface{}, _ Hint) bool {
	if str(p, "source") == "ai-studio" {
		return true
	}
	if str(p, "generationType") != "" {
		return true
	}
	if _, ok := p["generatedImages"]; ok {
		return true
	}
	_, ok := p["generatedPDFs"]
	return ok
}

func deriveAIStudio(p map[string]interface{}, _ Hint, r *Result) {
	r.Category = domain.CategoryAIStudio
	r.Answers = normalizeAnswers(p)
	r.AIStudio = &domain.AIStudioData{
		GeneratedImages: strSlice(p, "generatedImages"),
		GeneratedPDFs:   strSlice(p, "generatedPDFs"),
		GenerationType:  str(p, "generationType"),
		Prompt:          firstNonEmpty(str(p, "prompt"), str(p, "extraInfo")),
	}
}

// ---- rule: radgivning -----------------------------------------------------

// advisoryFields is the fixed set of known advisory answer fields, in the
// order the portal's form presents them. These become the derived
// question/answer list; blank answers are filtered out.
var advisoryFields = []struct {
	key   string
	label string
}{
	{"primaryGoal", "Vad är ditt primära mål?"},
	{"designStrategy", "Vilken designstrategi föredrar du?"},
	{"targetAudience", "Vem är din målgrupp?"},
	{"currentChallenges", "Vilka utmaningar har du idag?"},
	{"budgetRange", "Vilken budget arbetar du med?"},
	{"timeline", "Vilken tidsram gäller?"},
}

func matchRadgivning(p map[string]interface{}, _ Hint) bool {
	if str(p, "source") == "radgivning" {
		return true
	}
	if str(p, "sessionId") != "" {
		return true
	}
	if _, ok := p["questions"]; ok {
		return true
	}
	for _, f := range advisoryFields {
		if str(p, f.key) != "" {
			return true
		}
	}
	return false
}

func deriveRadgivning(p map[string]interface{}, _ Hint, r *Result) {
	r.Category = domain.CategoryRadgivning
	r.Answers = normalizeAnswers(p)

	data := &domain.RadgivningData{
		SessionID: str(p, "sessionId"),
		Priority:  normalizePriority(str(p, "priority")),
	}

	// Prefer an explicit questions array when the portal sends one.
	if raw, ok := p["questions"].([]interface{}); ok {
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			q := strings.TrimSpace(str(m, "question"))
			a := strings.TrimSpace(str(m, "answer"))
			if q == "" || a == "" {
				continue
			}
			data.Questions = append(data.Questions, domain.QA{Question: q, Answer: a})
		}
	}
	// Fall back to the known flat advisory fields.
	if len(data.Questions) == 0 {
		for _, f := range advisoryFields {
			if a := strings.TrimSpace(str(p, f.key)); a != "" {
				data.Questions = append(data.Questions, domain.QA{Question: f.label, Answer: a})
			}
		}
	}
	r.Radgivning = data
}

func normalizePriority(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "high", "urgent":
		return strings.ToLower(strings.TrimSpace(raw))
	default:
		return "medium"
	}
}

// ---- rule: ads (catch-all) ------------------------------------------------

func deriveAds(p map[string]interface{}, _ Hint, r *Result) {
	r.Category = domain.CategoryAds
	r.Answers = normalizeAnswers(p)
}

// ---- shared helpers --------------------------------------------------------

// legacyAnswerKeys are the flat fields the oldest portal version sends.
// They are folded into the answers map exactly once, at ingestion; nothing
// downstream ever reads them again.
var legacyAnswerKeys = []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "extraInfo"}

func normalizeAnswers(p map[string]interface{}) domain.StringMap {
	out := domain.StringMap{}
	if m, ok := p["answers"].(map[string]interface{}); ok {
		for k, v := range m {
			if s := asString(v); s != "" {
				out[k] = s
			}
		}
	}
	for _, k := range legacyAnswerKeys {
		if _, exists := out[k]; exists {
			continue
		}
		if s := str(p, k); s != "" {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func str(p map[string]interface{}, key string) string {
	return asString(p[key])
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func strSlice(p map[string]interface{}, key string) []string {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s := asString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
