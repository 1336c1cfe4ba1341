package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/hongminglow/lending-console/internal/seed"
)

func TestSummarizeSeed(t *testing.T) {
	s := Summarize(seed.Customers(), seed.Loans(), seed.Transactions())

	assert.Equal(t, 8, s.Customers)
	assert.Equal(t, 3, s.ActiveLoans)
	assert.True(t, s.TotalDisbursed.Equal(decimal.NewFromInt(25500)), s.TotalDisbursed.String())
	assert.True(t, s.TotalRevenue.Equal(decimal.NewFromInt(22000)), s.TotalRevenue.String())
	assert.Len(t, s.RecentLoans, 4)
	assert.Equal(t, []string{"Kwame Mensah", "Ama Boateng", "Kojo Asare", "Kakra"}, s.Chart.Labels)
	assert.Equal(t, []float64{5000, 3000, 10000, 7500}, s.Chart.Data)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil, nil)
	assert.Zero(t, s.ActiveLoans)
	assert.True(t, s.TotalDisbursed.IsZero())
	assert.True(t, s.TotalRevenue.IsZero())
	assert.NotNil(t, s.RecentLoans)
	assert.NotNil(t, s.Chart.Labels)
}

func TestSummarizeJSONToleratesNonArrays(t *testing.T) {
	s := SummarizeJSON([]byte(`{"error":"unauthorized"}`), []byte(`not json`), nil)
	assert.Zero(t, s.Customers)
	assert.Zero(t, s.ActiveLoans)
	assert.True(t, s.TotalRevenue.IsZero())

	s = SummarizeJSON(
		[]byte(`[{"id":1},{"id":2}]`),
		[]byte(`[{"id":1,"amount":100.10,"status":"Active"},{"id":2,"amount":0.20,"status":"Pending"},7]`),
		[]byte(`[{"id":1,"amount":0.1},{"id":2,"amount":0.2}]`),
	)
	assert.Equal(t, 2, s.Customers)
	assert.Equal(t, 1, s.ActiveLoans)
	assert.Equal(t, "100.3", s.TotalDisbursed.String())
	assert.Equal(t, "0.3", s.TotalRevenue.String())
}

func TestRecentLoansCapped(t *testing.T) {
	loans := append(seed.Loans(), seed.Loans()...)
	s := Summarize(nil, loans, nil)
	assert.Len(t, s.RecentLoans, RecentLimit)
}
