package classifier

import "strings"

// DefaultLabel is returned when no rule matches
const DefaultLabel = "general"

// Rule maps a set of keywords to a category label
type Rule struct {
	Label    string
	Keywords []string
}

// DefaultRules returns the built-in category rules. Order is a priority
// list: the first matching rule wins, so more specific terms come before
// generic ones.
func DefaultRules() []Rule {
	return []Rule{
		{Label: "rental", Keywords: []string{"rental", "rent", "lease", "대여", "임대"}},
		{Label: "repair", Keywords: []string{"repair", "maintenance", "수리", "정비"}},
		{Label: "custom-fabrication", Keywords: []string{"custom", "fabrication", "맞춤", "제작"}},
		{Label: "assessment", Keywords: []string{"assessment", "evaluation", "평가"}},
		{Label: "budget", Keywords: []string{"budget", "funding", "subsidy cap", "예산"}},
		{Label: "staffing", Keywords: []string{"staffing", "personnel", "employee", "인사", "직원"}},
		{Label: "reporting", Keywords: []string{"report", "보고"}},
		{Label: "consultation", Keywords: []string{"consultation", "counsel", "상담"}},
		{Label: "experience-program", Keywords: []string{"experience program", "trial use", "체험"}},
		{Label: "education", Keywords: []string{"education", "training", "교육"}},
		{Label: "promotion", Keywords: []string{"promotion", "outreach", "홍보"}},
	}
}

// Classifier assigns coarse topical categories by keyword matching.
// Categories aid filtering and diagnostics; retrieval correctness does not
// depend on them.
type Classifier struct {
	rules []Rule
}

// New creates a Classifier over an ordered rule list
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// NewDefault creates a Classifier with the built-in rules
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify returns the label of the first rule with a keyword present in
// the lower-cased title+content, or DefaultLabel when none match
func (c *Classifier) Classify(title, content string) string {
	text := strings.ToLower(title + " " + content)
	if strings.TrimSpace(text) == "" {
		return DefaultLabel
	}
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Label
			}
		}
	}
	return DefaultLabel
}
