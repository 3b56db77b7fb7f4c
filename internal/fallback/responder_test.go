package fallback

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

func newTestResponder() *Responder {
	return New(rand.New(rand.NewSource(1)))
}

func floatPtr(v float64) *float64 { return &v }

func TestRespond_DrawsFromTopicPool(t *testing.T) {
	topics := []domain.Topic{
		domain.TopicSavings,
		domain.TopicBudgeting,
		domain.TopicInvestment,
		domain.TopicDebt,
		domain.TopicTax,
	}
	r := newTestResponder()
	for _, topic := range topics {
		t.Run(string(topic), func(t *testing.T) {
			got := r.Respond(topic, domain.ExtractedEntities{Topic: topic})
			found := false
			for _, advice := range Pool(topic) {
				if strings.Contains(got, advice) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("response %q not drawn from the %s pool", got, topic)
			}
		})
	}
}

func TestRespond_GeneralTopic(t *testing.T) {
	got := newTestResponder().Respond(domain.TopicGeneral, domain.ExtractedEntities{})
	if !strings.Contains(got, "Emergency Fund") {
		t.Errorf("expected general wellness advice, got %q", got)
	}
}

func TestRespond_PersonalizedBudget(t *testing.T) {
	entities := domain.ExtractedEntities{
		Income: floatPtr(100000),
		Topic:  domain.TopicBudgeting,
	}
	got := newTestResponder().Respond(domain.TopicBudgeting, entities)

	for _, want := range []string{
		"₹100,000/month",
		"Needs (50%): ₹50,000",
		"Wants (30%): ₹30,000",
		"Savings (20%): ₹20,000",
		"Rent/EMI: ₹20,000",
		"Utilities & groceries: ₹15,000",
		"Transport: ₹10,000",
		"Insurance: ₹5,000",
		"Emergency fund: ₹10,000",
		"SIP/mutual funds: ₹6,000",
		"Short-term goals: ₹4,000",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in personalized budget:\n%s", want, got)
		}
	}
}

func TestRespond_BudgetRoundsToNearestRupee(t *testing.T) {
	entities := domain.ExtractedEntities{
		Income: floatPtr(33335),
		Topic:  domain.TopicBudgeting,
	}
	got := newTestResponder().Respond(domain.TopicBudgeting, entities)

	// 33335 * 0.5 = 16667.5 rounds to 16668.
	if !strings.Contains(got, "Needs (50%): ₹16,668") {
		t.Errorf("expected rounded needs figure, got:\n%s", got)
	}
}

func TestRespond_IncomeIgnoredForOtherTopics(t *testing.T) {
	entities := domain.ExtractedEntities{
		Income: floatPtr(100000),
		Topic:  domain.TopicSavings,
	}
	got := newTestResponder().Respond(domain.TopicSavings, entities)
	if strings.Contains(got, "Personalized budget") {
		t.Errorf("savings topic should not get the budget breakdown: %q", got)
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{2500000, "2,500,000"},
		{16667.5, "16,668"},
	}
	for _, tt := range tests {
		if got := formatINR(tt.in); got != tt.want {
			t.Errorf("formatINR(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
