package listing

// Source is a web citation the AI provider returned for the price estimate.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// Label returns the text to show for the source link.
func (s Source) Label() string {
	if s.Title != "" {
		return s.Title
	}
	return s.URI
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
		CostUSD:      u.CostUSD + o.CostUSD,
	}
}

// CallUsage is the usage of one AI call of a generation.
type CallUsage struct {
	Call  string `json:"call"`
	Usage Usage  `json:"usage"`
}

// GenerationResult is the merged outcome of the description and price calls.
// Usage is the sum over Calls.
type GenerationResult struct {
	Description     string      `json:"description"`
	PriceSuggestion string      `json:"price_suggestion"`
	Sources         []Source    `json:"sources,omitempty"`
	Usage           Usage       `json:"usage"`
	Calls           []CallUsage `json:"calls,omitempty"`
	Cached          bool        `json:"cached,omitempty"`
}
