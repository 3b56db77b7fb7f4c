package domain

// Topic classifies a financial query into one advice category.
type Topic string

// Topic values, in classification precedence order.
const (
	TopicSavings    Topic = "savings"
	TopicBudgeting  Topic = "budgeting"
	TopicInvestment Topic = "investment"
	TopicTax        Topic = "tax"
	TopicDebt       Topic = "debt"
	TopicGeneral    Topic = "general"
)

// ExtractedEntities holds the structured financial quantities pulled from
// a free-text message. Numeric fields are nil when not present in the text;
// Topic always resolves (TopicGeneral by default).
type ExtractedEntities struct {
	Income       *float64
	EMI          *float64
	LoanAmount   *float64
	InterestRate *float64
	TenureYears  *int
	Topic        Topic
}
