package assistant

import (
	"regexp"
	"strings"

	"github.com/ashureev/cohub/internal/domain"
)

// Rule is one entry of the ordered resolution table.
type Rule struct {
	Name  string
	Match func(lower, raw string) (Intent, bool)
}

// Resolver classifies messages by walking its rules in order; first match wins.
type Resolver struct {
	rules []Rule
}

// NewResolver returns a resolver over rules, in the given order.
func NewResolver(rules []Rule) *Resolver {
	return &Resolver{rules: rules}
}

// DefaultResolver returns navigation rules followed by payment query rules.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultRules())
}

// Resolve returns the first matching intent, or IntentUnmatched.
func (r *Resolver) Resolve(message string) Intent {
	raw := strings.TrimSpace(message)
	lower := strings.ToLower(raw)
	for _, rule := range r.rules {
		if intent, ok := rule.Match(lower, raw); ok {
			intent.Rule = rule.Name
			return intent
		}
	}
	return Intent{Kind: IntentUnmatched}
}

// Rules returns the rule names in evaluation order.
func (r *Resolver) Rules() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name)
	}
	return names
}

var statusOfPattern = regexp.MustCompile(`(?i)status of\s+(.+)`)

// DefaultRules is the fixed resolution table. Navigation always precedes
// data queries so a navigation phrase is never answered conversationally.
func DefaultRules() []Rule {
	return []Rule{
		navigateRule("navigate.dashboard", domain.RouteDashboard,
			"open dashboard", "go to dashboard", "navigate to dashboard", "show dashboard", "go home"),
		navigateRule("navigate.residents", domain.RouteResidents,
			"open residents", "go to residents", "navigate to residents", "show residents"),
		navigateRule("navigate.payments", domain.RoutePayments,
			"open payments", "go to payments", "navigate to payments", "show payments"),
		queryRule("query.latest", QueryLatest,
			"last payment", "recent payment", "latest payment"),
		queryRule("query.count", QueryCount,
			"how many payments", "number of payments", "payments count", "payment count"),
		queryRule("query.total", QueryTotal,
			"total paid", "total amount", "sum of payments", "total revenue"),
		{Name: "query.status", Match: matchStatusOf},
	}
}

func navigateRule(name string, route domain.Route, phrases ...string) Rule {
	return Rule{Name: name, Match: func(lower, _ string) (Intent, bool) {
		if containsAny(lower, phrases) {
			return Intent{Kind: IntentNavigation, Route: route}, true
		}
		return Intent{}, false
	}}
}

func queryRule(name string, kind QueryKind, phrases ...string) Rule {
	return Rule{Name: name, Match: func(lower, _ string) (Intent, bool) {
		if containsAny(lower, phrases) {
			return Intent{Kind: IntentDataQuery, Query: kind}, true
		}
		return Intent{}, false
	}}
}

func matchStatusOf(_, raw string) (Intent, bool) {
	m := statusOfPattern.FindStringSubmatch(raw)
	if m == nil {
		return Intent{}, false
	}
	name := strings.TrimRight(strings.TrimSpace(m[1]), "?.! ")
	if name == "" {
		return Intent{}, false
	}
	return Intent{Kind: IntentDataQuery, Query: QueryStatus, Name: name}, true
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
