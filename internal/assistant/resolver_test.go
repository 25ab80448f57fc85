package assistant

import (
	"testing"

	"github.com/ashureev/cohub/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestResolveNavigationIsCaseInsensitive(t *testing.T) {
	r := DefaultResolver()
	for _, msg := range []string{"open payments", "OPEN PAYMENTS", "Please Go To Payments now", "navigate to payments"} {
		intent := r.Resolve(msg)
		assert.Equal(t, IntentNavigation, intent.Kind, msg)
		assert.Equal(t, domain.RoutePayments, intent.Route, msg)
	}

	assert.Equal(t, domain.RouteDashboard, r.Resolve("go home").Route)
	assert.Equal(t, domain.RouteResidents, r.Resolve("show residents please").Route)
}

func TestResolveNavigationBeatsDataQuery(t *testing.T) {
	intent := DefaultResolver().Resolve("open payments and tell me the last payment")
	assert.Equal(t, IntentNavigation, intent.Kind)
	assert.Equal(t, "navigate.payments", intent.Rule)
}

func TestResolveDataQueries(t *testing.T) {
	r := DefaultResolver()
	cases := map[string]QueryKind{
		"What was my last payment?":    QueryLatest,
		"show the most recent payment": QueryLatest,
		"How many payments do I have":  QueryCount,
		"payment count":                QueryCount,
		"what's the total paid":        QueryTotal,
		"Total Revenue this year":      QueryTotal,
		"sum of payments":              QueryTotal,
	}
	for msg, want := range cases {
		intent := r.Resolve(msg)
		assert.Equal(t, IntentDataQuery, intent.Kind, msg)
		assert.Equal(t, want, intent.Query, msg)
	}
}

func TestResolveFirstDataGroupWins(t *testing.T) {
	intent := DefaultResolver().Resolve("last payment and total paid")
	assert.Equal(t, QueryLatest, intent.Query)
}

func TestResolveStatusOf(t *testing.T) {
	r := DefaultResolver()

	intent := r.Resolve("What is the Status of John?")
	assert.Equal(t, QueryStatus, intent.Query)
	assert.Equal(t, "John", intent.Name)

	intent = r.Resolve("status of   Mary Jane !")
	assert.Equal(t, "Mary Jane", intent.Name)

	assert.Equal(t, IntentUnmatched, r.Resolve("status of ?").Kind)
}

func TestResolveUnmatched(t *testing.T) {
	r := DefaultResolver()
	for _, msg := range []string{"hello there", "what's the weather", "pay my rent"} {
		assert.Equal(t, IntentUnmatched, r.Resolve(msg).Kind, msg)
	}
}

func TestCustomRuleOrder(t *testing.T) {
	always := Rule{Name: "always", Match: func(string, string) (Intent, bool) {
		return Intent{Kind: IntentDataQuery, Query: QueryCount}, true
	}}
	r := NewResolver(append([]Rule{always}, DefaultRules()...))

	assert.Equal(t, "always", r.Resolve("open payments").Rule)
	assert.Equal(t, "always", r.Rules()[0])
}
