// Package calculator computes fixed-rate amortized loan payments.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for inputs that do not describe a loan.
var ErrInvalidInput = errors.New("please enter valid numbers for all fields")

// Result is a payment schedule summary rounded to cents.
type Result struct {
	Monthly       decimal.Decimal `json:"monthly"`
	Total         decimal.Decimal `json:"total"`
	TotalInterest decimal.Decimal `json:"totalInterest"`
	Payments      float64         `json:"payments"`
}

// Calculate returns the monthly payment for principal borrowed at an annual
// rate (percent) over years.
//
//	M = P·r·(1+r)^n / ((1+r)^n − 1), r = rate/100/12, n = years·12
//
// A zero rate amortizes linearly: M = P/n.
func Calculate(principal, ratePercent, years float64) (Result, error) {
	if !finite(principal) || !finite(ratePercent) || !finite(years) {
		return Result{}, ErrInvalidInput
	}
	if principal < 0 || ratePercent < 0 || years <= 0 {
		return Result{}, fmt.Errorf("principal and rate must not be negative, term must be positive: %w", ErrInvalidInput)
	}

	n := years * 12
	r := ratePercent / 100 / 12

	var monthly float64
	if r == 0 {
		monthly = principal / n
	} else {
		x := math.Pow(1+r, n)
		monthly = principal * r * x / (x - 1)
	}
	total := monthly * n
	if !finite(monthly) || !finite(total) {
		return Result{}, ErrInvalidInput
	}
	return Result{
		Monthly:       decimal.NewFromFloat(monthly).Round(2),
		Total:         decimal.NewFromFloat(total).Round(2),
		TotalInterest: decimal.NewFromFloat(total - principal).Round(2),
		Payments:      n,
	}, nil
}

// CalculateStrings parses form values and calls Calculate.
func CalculateStrings(principal, ratePercent, years string) (Result, error) {
	p, errP := parse(principal)
	r, errR := parse(ratePercent)
	y, errY := parse(years)
	if err := errors.Join(errP, errR, errY); err != nil {
		return Result{}, ErrInvalidInput
	}
	return Calculate(p, r, y)
}

func parse(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
