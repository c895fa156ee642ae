package domain

// Intent is the coarse buying-intent label derived from the classifier reply.
type Intent string

const (
	IntentHigh   Intent = "High"
	IntentMedium Intent = "Medium"
	IntentLow    Intent = "Low"
)

// ScoredResult is one lead's outcome of a scoring run.
type ScoredResult struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Company   string `json:"company"`
	Intent    Intent `json:"intent"`
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
	// Fallback is set when the intent came from the classifier failure
	// fallback instead of a model reply.
	Fallback bool `json:"fallback"`
}

// ExportColumns is the fixed CSV column order of a results export.
var ExportColumns = []string{"name", "role", "company", "intent", "score", "reasoning"}
