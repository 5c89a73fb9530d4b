package usage

// Default per-1K-token USD rates for the generation model.
const (
	DefaultInputRatePer1K  = 0.00025
	DefaultOutputRatePer1K = 0.00125
)

// Rates is the per-1K-token pricing used for cost estimation.
type Rates struct {
	InputPer1K  float64
	OutputPer1K float64
}

// DefaultRates returns the built-in pricing table.
func DefaultRates() Rates {
	return Rates{InputPer1K: DefaultInputRatePer1K, OutputPer1K: DefaultOutputRatePer1K}
}

// EstimateCost computes the USD cost of a generation call. Pure function:
// same inputs always yield the same estimate.
func EstimateCost(inputTokens, outputTokens int, rates Rates) float64 {
	return float64(inputTokens)/1000*rates.InputPer1K +
		float64(outputTokens)/1000*rates.OutputPer1K
}

// Totals is an accumulated session usage snapshot.
type Totals struct {
	inputTokens  int
	outputTokens int
	requests     int
	costUSD      float64
}

// NewTotals creates a usage snapshot.
func NewTotals(inputTokens, outputTokens, requests int, costUSD float64) Totals {
	return Totals{inputTokens: inputTokens, outputTokens: outputTokens, requests: requests, costUSD: costUSD}
}

// InputTokens returns the accumulated prompt tokens.
func (t Totals) InputTokens() int { return t.inputTokens }

// OutputTokens returns the accumulated completion tokens.
func (t Totals) OutputTokens() int { return t.outputTokens }

// Requests returns the number of generation calls.
func (t Totals) Requests() int { return t.requests }

// CostUSD returns the accumulated estimated cost.
func (t Totals) CostUSD() float64 { return t.costUSD }
