// Package fallback produces deterministic, templated financial advice for
// queries the generation backend could not serve.
package fallback

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

// Advice pools, keyed by topic. Respond draws from exactly these strings, so
// tests can assert membership without pinning the selection.
var advicePools = map[domain.Topic][]string{
	domain.TopicSavings: {
		"Start with the 50/30/20 rule: 50% for needs, 30% for wants, 20% for savings.",
		"Set up automatic transfers to a separate savings account.",
		"Track your expenses for a month to identify spending patterns.",
		"Aim to save 3-6 months of expenses as an emergency fund.",
		"Consider high-yield savings accounts for better returns.",
	},
	domain.TopicBudgeting: {
		"Create a monthly budget using apps like Mint or YNAB.",
		"Use the envelope method for discretionary spending.",
		"Review and adjust your budget monthly.",
		"Include savings as a fixed expense in your budget.",
		"Set specific financial goals to stay motivated.",
	},
	domain.TopicInvestment: {
		"Start with index funds for broad market exposure.",
		"Consider SIP (Systematic Investment Plan) for regular investing.",
		"Diversify across different asset classes (stocks, bonds, gold).",
		"Invest in tax-saving instruments like ELSS under Section 80C.",
		"Consult a financial advisor for personalized advice.",
	},
	domain.TopicDebt: {
		"Pay off high-interest debt first (credit cards, personal loans).",
		"Consider debt consolidation for multiple loans.",
		"Avoid taking new debt while paying off existing ones.",
		"Use the snowball or avalanche method for debt repayment.",
		"Build an emergency fund to avoid new debt.",
	},
	domain.TopicTax: {
		"Maximize Section 80C deductions (ELSS, PPF, EPF).",
		"Consider health insurance under Section 80D.",
		"Use HRA and LTA benefits effectively.",
		"File returns on time to avoid penalties.",
		"Keep proper documentation for all deductions.",
	},
}

var topicHeadings = map[domain.Topic]string{
	domain.TopicSavings:    "Savings Tip",
	domain.TopicBudgeting:  "Budgeting Tip",
	domain.TopicInvestment: "Investment Tip",
	domain.TopicDebt:       "Debt Management Tip",
	domain.TopicTax:        "Tax Planning Tip",
}

const generalAdvice = `Financial Wellness Tips:

1. Emergency Fund: Save 3-6 months of expenses
2. Budget: Use the 50/30/20 rule
3. Invest: Start with index funds and SIP
4. Insurance: Get adequate health and life coverage
5. Tax Planning: Maximize deductions under 80C and 80D

Available tools: financial calculators (EMI, SIP, compound interest), live market data, and document analysis.`

// Responder selects advice templates. The randomness source is injected so
// tests can fix it.
type Responder struct {
	rng *rand.Rand
}

func New(rng *rand.Rand) *Responder {
	return &Responder{rng: rng}
}

// Respond returns topic-appropriate advice. A budgeting query with a known
// income gets a personalized 50/30/20 breakdown; everything else gets a
// template drawn from the topic's pool.
func (r *Responder) Respond(topic domain.Topic, entities domain.ExtractedEntities) string {
	if topic == domain.TopicBudgeting && entities.Income != nil {
		return personalBudget(*entities.Income)
	}

	pool, ok := advicePools[topic]
	if !ok {
		return generalAdvice
	}
	advice := pool[r.rng.Intn(len(pool))]
	return fmt.Sprintf("%s: %s", topicHeadings[topic], advice)
}

// Pool returns the fixed advice pool for a topic, nil for general.
func Pool(topic domain.Topic) []string {
	return advicePools[topic]
}

func personalBudget(income float64) string {
	needs := income * 0.5
	wants := income * 0.3
	savings := income * 0.2

	var b strings.Builder
	fmt.Fprintf(&b, "Personalized budget for ₹%s/month:\n\n", formatINR(income))
	b.WriteString("50/30/20 rule breakdown:\n")
	fmt.Fprintf(&b, "- Needs (50%%): ₹%s - rent, utilities, groceries, transport\n", formatINR(needs))
	fmt.Fprintf(&b, "- Wants (30%%): ₹%s - entertainment, dining, shopping\n", formatINR(wants))
	fmt.Fprintf(&b, "- Savings (20%%): ₹%s - emergency fund, investments\n\n", formatINR(savings))
	b.WriteString("Recommended allocation of needs:\n")
	fmt.Fprintf(&b, "- Rent/EMI: ₹%s (40%% of needs)\n", formatINR(needs*0.4))
	fmt.Fprintf(&b, "- Utilities & groceries: ₹%s (30%% of needs)\n", formatINR(needs*0.3))
	fmt.Fprintf(&b, "- Transport: ₹%s (20%% of needs)\n", formatINR(needs*0.2))
	fmt.Fprintf(&b, "- Insurance: ₹%s (10%% of needs)\n\n", formatINR(needs*0.1))
	b.WriteString("Putting savings to work:\n")
	fmt.Fprintf(&b, "- Emergency fund: ₹%s (50%% of savings)\n", formatINR(savings*0.5))
	fmt.Fprintf(&b, "- SIP/mutual funds: ₹%s (30%% of savings)\n", formatINR(savings*0.3))
	fmt.Fprintf(&b, "- Short-term goals: ₹%s (20%% of savings)", formatINR(savings*0.2))
	return b.String()
}

// formatINR rounds to the nearest rupee and inserts thousands separators.
func formatINR(v float64) string {
	n := int64(math.Round(v))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return sign + s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return sign + strings.Join(parts, ",")
}
