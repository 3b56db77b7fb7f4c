// Package extract pulls structured financial quantities out of free text.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

var (
	incomeRe = regexp.MustCompile(`₹?(\d+(?:,\d+)*(?:\.\d+)?)\s*(?:salary|income|earn)`)
	emiRe    = regexp.MustCompile(`₹?(\d+(?:,\d+)*(?:\.\d+)?)\s*emi`)
	loanRe   = regexp.MustCompile(`₹?(\d+(?:,\d+)*(?:\.\d+)?)\s*(?:loan|principal)`)
	rateRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	tenureRe = regexp.MustCompile(`(\d+)\s*(?:years?|yrs?)`)

	// Shorthand income mentions such as "rs 30k" or "50k per month" resolve
	// to thousands.
	thousandsRes = []*regexp.Regexp{
		regexp.MustCompile(`rs\.?\s*(\d+(?:,\d+)*)\s*k`),
		regexp.MustCompile(`₹\s*(\d+(?:,\d+)*)\s*k`),
		regexp.MustCompile(`inr\s*(\d+(?:,\d+)*)\s*k`),
		regexp.MustCompile(`(\d+(?:,\d+)*)\s*k\s*per\s*month`),
		regexp.MustCompile(`(\d+(?:,\d+)*)\s*thousand`),
	}
)

// Topic precedence is fixed: the first category with a keyword hit wins, so
// a message mentioning both "tax" and "invest" always classifies the same way.
var topicKeywords = []struct {
	topic    domain.Topic
	keywords []string
}{
	{domain.TopicSavings, []string{"save", "saving", "savings"}},
	{domain.TopicBudgeting, []string{"budget", "budgeting", "spend", "expense"}},
	{domain.TopicInvestment, []string{"invest", "investment", "stock", "mutual fund", "sip"}},
	{domain.TopicTax, []string{"tax", "80c", "80d", "deduction"}},
	{domain.TopicDebt, []string{"debt", "loan", "emi", "credit"}},
}

// Extractor parses financial queries with pattern rules. It never fails:
// fields it cannot parse stay unset and the topic defaults to general.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(text string) domain.ExtractedEntities {
	lower := strings.ToLower(text)

	entities := domain.ExtractedEntities{
		Income:       matchAmount(incomeRe, lower),
		EMI:          matchAmount(emiRe, lower),
		LoanAmount:   matchAmount(loanRe, lower),
		InterestRate: matchAmount(rateRe, lower),
		Topic:        classify(lower),
	}
	if entities.Income == nil {
		entities.Income = matchThousands(lower)
	}
	if m := tenureRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			entities.TenureYears = &n
		}
	}
	return entities
}

func classify(lower string) domain.Topic {
	for _, cat := range topicKeywords {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.topic
			}
		}
	}
	return domain.TopicGeneral
}

func matchAmount(re *regexp.Regexp, lower string) *float64 {
	m := re.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

func matchThousands(lower string) *float64 {
	for _, re := range thousandsRes {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		v *= 1000
		return &v
	}
	return nil
}
