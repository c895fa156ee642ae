// Package domain holds the lead scoring records shared by the scorers,
// the orchestrator and the session stores.
package domain

// Offer describes what is being sold. It is the context every lead is scored against.
type Offer struct {
	Name          string   `json:"name"`
	ValueProps    []string `json:"value_props"`
	IdealUseCases []string `json:"ideal_use_cases"`
}

// Clone returns a deep copy so stored offers cannot be mutated through callers.
func (o Offer) Clone() Offer {
	return Offer{
		Name:          o.Name,
		ValueProps:    append([]string(nil), o.ValueProps...),
		IdealUseCases: append([]string(nil), o.IdealUseCases...),
	}
}
