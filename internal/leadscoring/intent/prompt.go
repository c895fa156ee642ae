package intent

import (
	"encoding/json"
	"fmt"

	"leadscore_backend/internal/leadscoring/domain"
)

const classificationQuestion = "Classify buying intent (High, Medium, Low) and explain in 1-2 sentences."

// BuildPrompt renders the single user message sent for one lead. The full
// lead and offer records are embedded as JSON.
func BuildPrompt(lead domain.Lead, offer domain.Offer) string {
	leadJSON, err := json.Marshal(lead)
	if err != nil {
		leadJSON = []byte(fmt.Sprintf("%+v", lead))
	}
	offerJSON, err := json.Marshal(offer)
	if err != nil {
		offerJSON = []byte(fmt.Sprintf("%+v", offer))
	}

	return fmt.Sprintf(`Prospect: %s
Offer: %s
Question: %s`, leadJSON, offerJSON, classificationQuestion)
}
