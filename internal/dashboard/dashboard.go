// Package dashboard derives the read-only figures shown on the console's
// landing page.
package dashboard

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/hongminglow/lending-console/internal/models"
)

// RecentLimit is how many loans the recent-loans table shows.
const RecentLimit = 5

// Series is a labelled data series for the chart widget.
type Series struct {
	Title  string    `json:"title"`
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Summary holds the dashboard figures.
type Summary struct {
	Customers      int             `json:"customers"`
	ActiveLoans    int             `json:"activeLoans"`
	TotalDisbursed decimal.Decimal `json:"totalDisbursed"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	RecentLoans    []models.Loan   `json:"recentLoans"`
	Chart          Series          `json:"chart"`
}

// Summarize computes the figures. Nil slices count as empty.
func Summarize(customers []models.Customer, loans []models.Loan, transactions []models.Transaction) Summary {
	s := Summary{
		Customers:      len(customers),
		ActiveLoans:    ActiveLoans(loans),
		TotalDisbursed: TotalDisbursed(loans),
		TotalRevenue:   TotalRevenue(transactions),
		RecentLoans:    recent(loans),
		Chart:          LoanDistribution(loans),
	}
	return s
}

// SummarizeJSON computes the figures from raw list bodies. A body that is not
// a JSON array of objects counts as empty.
func SummarizeJSON(customers, loans, transactions []byte) Summary {
	return Summarize(
		decodeArray[models.Customer](customers),
		decodeArray[models.Loan](loans),
		decodeArray[models.Transaction](transactions),
	)
}

// ActiveLoans counts loans with status Active.
func ActiveLoans(loans []models.Loan) int {
	n := 0
	for _, l := range loans {
		if l.Status == models.LoanActive {
			n++
		}
	}
	return n
}

// TotalDisbursed sums every loan amount.
func TotalDisbursed(loans []models.Loan) decimal.Decimal {
	total := decimal.Zero
	for _, l := range loans {
		total = total.Add(decimal.NewFromFloat(l.Amount))
	}
	return total
}

// TotalRevenue sums every transaction amount.
func TotalRevenue(transactions []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range transactions {
		total = total.Add(decimal.NewFromFloat(t.Amount))
	}
	return total
}

// LoanDistribution plots loan amounts per customer.
func LoanDistribution(loans []models.Loan) Series {
	s := Series{
		Title:  "Loan Distribution",
		Label:  "Loan Amounts ($)",
		Labels: make([]string, 0, len(loans)),
		Data:   make([]float64, 0, len(loans)),
	}
	for _, l := range loans {
		s.Labels = append(s.Labels, l.Customer)
		s.Data = append(s.Data, l.Amount)
	}
	return s
}

func recent(loans []models.Loan) []models.Loan {
	n := min(len(loans), RecentLimit)
	out := make([]models.Loan, n)
	copy(out, loans[:n])
	return out
}

func decodeArray[T any](raw []byte) []T {
	out := []T{}
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return out
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return out
	}
	root.ForEach(func(_, v gjson.Result) bool {
		var item T
		if v.IsObject() && json.Unmarshal([]byte(v.Raw), &item) == nil {
			out = append(out, item)
		}
		return true
	})
	return out
}
