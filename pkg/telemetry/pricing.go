package telemetry

// Pricing holds per-model USD prices per million tokens.
type Pricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// PricingTable maps model identifiers to their prices.
type PricingTable map[string]Pricing

// DefaultPricing returns a starter table for common local and hosted models.
// Config overrides merge on top per model.
func DefaultPricing() PricingTable {
	return PricingTable{
		"gpt-4o":      {Input: 2.50, Output: 10.00},
		"gpt-4o-mini": {Input: 0.15, Output: 0.60},
		"llama3":      {Input: 0, Output: 0},
		"qwen2.5":     {Input: 0, Output: 0},
		"deepseek-r1": {Input: 0.55, Output: 2.19},
	}
}

// EstimateCost estimates the USD cost of an interaction from token counts.
// Unknown models cost zero; a missing price is not an error.
func (t PricingTable) EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := t[model]
	if !ok {
		return 0
	}

	const millionTokens = 1_000_000
	return p.Input*float64(tokensIn)/millionTokens + p.Output*float64(tokensOut)/millionTokens
}
