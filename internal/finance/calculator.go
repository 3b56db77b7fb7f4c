// Package finance holds the closed-form loan and investment calculators and
// the market data client.
package finance

import (
	"fmt"
	"math"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

// EMIResult is the amortization summary for a loan.
type EMIResult struct {
	Principal        float64        `json:"principal"`
	Rate             float64        `json:"rate"`
	TenureYears      int            `json:"tenure_years"`
	EMI              float64        `json:"emi"`
	TotalAmount      float64        `json:"total_amount"`
	TotalInterest    float64        `json:"total_interest"`
	MonthlyBreakdown []MonthlyEntry `json:"monthly_breakdown"`
}

// MonthlyEntry is one row of the amortization schedule. Only the first year
// is returned; the full schedule adds no insight for long tenures.
type MonthlyEntry struct {
	Month     int     `json:"month"`
	EMI       float64 `json:"emi"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// SIPResult projects a systematic investment plan.
type SIPResult struct {
	MonthlyAmount   float64 `json:"monthly_amount"`
	Rate            float64 `json:"rate"`
	Years           int     `json:"years"`
	FutureValue     float64 `json:"future_value"`
	TotalInvestment float64 `json:"total_investment"`
	TotalReturns    float64 `json:"total_returns"`
}

// CompoundResult projects compound interest growth.
type CompoundResult struct {
	Principal      float64 `json:"principal"`
	Rate           float64 `json:"rate"`
	Years          int     `json:"years"`
	Frequency      string  `json:"compound_frequency"`
	FinalAmount    float64 `json:"final_amount"`
	InterestEarned float64 `json:"interest_earned"`
}

var compoundFrequencies = map[string]int{
	"annually":      1,
	"semi-annually": 2,
	"quarterly":     4,
	"monthly":       12,
}

// EMI computes the equated monthly installment:
// P*r*(1+r)^n / ((1+r)^n - 1), with r the monthly rate and n total months.
// A zero rate degenerates to principal/months.
func EMI(principal, annualRate float64, tenureYears int) (EMIResult, error) {
	if principal <= 0 {
		return EMIResult{}, fmt.Errorf("principal must be positive: %w", domain.ErrInvalidArgument)
	}
	if annualRate < 0 {
		return EMIResult{}, fmt.Errorf("rate must not be negative: %w", domain.ErrInvalidArgument)
	}
	if tenureYears <= 0 {
		return EMIResult{}, fmt.Errorf("tenure must be positive: %w", domain.ErrInvalidArgument)
	}

	monthlyRate := annualRate / (12 * 100)
	months := tenureYears * 12

	var emi float64
	if monthlyRate == 0 {
		emi = principal / float64(months)
	} else {
		factor := math.Pow(1+monthlyRate, float64(months))
		emi = principal * monthlyRate * factor / (factor - 1)
	}

	total := emi * float64(months)

	breakdown := make([]MonthlyEntry, 0, 12)
	balance := principal
	for month := 1; month <= months && month <= 12; month++ {
		interest := balance * monthlyRate
		principalPart := emi - interest
		balance -= principalPart
		breakdown = append(breakdown, MonthlyEntry{
			Month:     month,
			EMI:       round2(emi),
			Principal: round2(principalPart),
			Interest:  round2(interest),
			Balance:   round2(balance),
		})
	}

	return EMIResult{
		Principal:        principal,
		Rate:             annualRate,
		TenureYears:      tenureYears,
		EMI:              round2(emi),
		TotalAmount:      round2(total),
		TotalInterest:    round2(total - principal),
		MonthlyBreakdown: breakdown,
	}, nil
}

// SIP computes the future value of monthly contributions:
// P * ((1+r)^n - 1) / r, with r the monthly rate.
func SIP(monthlyAmount, annualRate float64, years int) (SIPResult, error) {
	if monthlyAmount <= 0 {
		return SIPResult{}, fmt.Errorf("monthly amount must be positive: %w", domain.ErrInvalidArgument)
	}
	if annualRate < 0 {
		return SIPResult{}, fmt.Errorf("rate must not be negative: %w", domain.ErrInvalidArgument)
	}
	if years <= 0 {
		return SIPResult{}, fmt.Errorf("years must be positive: %w", domain.ErrInvalidArgument)
	}

	monthlyRate := annualRate / (12 * 100)
	months := years * 12

	var futureValue float64
	if monthlyRate == 0 {
		futureValue = monthlyAmount * float64(months)
	} else {
		futureValue = monthlyAmount * (math.Pow(1+monthlyRate, float64(months)) - 1) / monthlyRate
	}

	invested := monthlyAmount * float64(months)
	return SIPResult{
		MonthlyAmount:   monthlyAmount,
		Rate:            annualRate,
		Years:           years,
		FutureValue:     round2(futureValue),
		TotalInvestment: round2(invested),
		TotalReturns:    round2(futureValue - invested),
	}, nil
}

// CompoundInterest computes A = P(1 + r/n)^(nt) for the named compounding
// frequency (annually, semi-annually, quarterly, monthly).
func CompoundInterest(principal, annualRate float64, years int, frequency string) (CompoundResult, error) {
	if principal <= 0 {
		return CompoundResult{}, fmt.Errorf("principal must be positive: %w", domain.ErrInvalidArgument)
	}
	if annualRate <= 0 {
		return CompoundResult{}, fmt.Errorf("rate must be positive: %w", domain.ErrInvalidArgument)
	}
	if years <= 0 {
		return CompoundResult{}, fmt.Errorf("years must be positive: %w", domain.ErrInvalidArgument)
	}
	n, ok := compoundFrequencies[frequency]
	if !ok {
		return CompoundResult{}, fmt.Errorf("unknown compound frequency %q: %w", frequency, domain.ErrInvalidArgument)
	}

	r := annualRate / 100
	amount := principal * math.Pow(1+r/float64(n), float64(n*years))

	return CompoundResult{
		Principal:      principal,
		Rate:           annualRate,
		Years:          years,
		Frequency:      frequency,
		FinalAmount:    round2(amount),
		InterestEarned: round2(amount - principal),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
