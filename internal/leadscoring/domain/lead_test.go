package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLeadFromRowRequiresEveryField(t *testing.T) {
	fields := map[string]string{
		"name": "Ava", "role": "CEO", "company": "Flow",
		"industry": "SaaS", "location": "Berlin",
	}
	_, err := LeadFromRow(3, fields)

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Row != 3 || missing.Field != FieldLinkedInBio {
		t.Fatalf("unexpected error detail %+v", missing)
	}
}

func TestLeadFieldAndCompleteness(t *testing.T) {
	lead, err := LeadFromRow(1, map[string]string{
		"name": "Ava", "role": "CEO", "company": "Flow", "industry": "SaaS",
		"location": "Berlin", "linkedin_bio": "bio", "email": "ava@flow.io",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lead.IsComplete() {
		t.Fatalf("expected complete lead")
	}
	if v, ok := lead.Field("email"); !ok || v != "ava@flow.io" {
		t.Fatalf("expected extra field lookup, got %q %v", v, ok)
	}
	if _, ok := lead.Field("phone"); ok {
		t.Fatalf("expected unknown field to be absent")
	}

	lead.Location = ""
	if lead.IsComplete() {
		t.Fatalf("expected empty location to make lead incomplete")
	}
}

func TestLeadJSONIsFlat(t *testing.T) {
	lead := Lead{Name: "Ava", Role: "CEO", Company: "Flow", Extra: map[string]string{"email": "ava@flow.io"}}

	raw, err := json.Marshal(lead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"company":"Flow","email":"ava@flow.io","industry":"","linkedin_bio":"","location":"","name":"Ava","role":"CEO"}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}

	var decoded Lead
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Name != "Ava" || decoded.Extra["email"] != "ava@flow.io" {
		t.Fatalf("unexpected decoded lead %+v", decoded)
	}
}

func TestLeadColumnsOrder(t *testing.T) {
	lead := Lead{Extra: map[string]string{"zeta": "", "alpha": ""}}
	cols := lead.Columns()
	if len(cols) != 8 || cols[0] != FieldName || cols[5] != FieldLinkedInBio || cols[6] != "alpha" || cols[7] != "zeta" {
		t.Fatalf("unexpected columns %v", cols)
	}
}

func TestOfferCloneIsDeep(t *testing.T) {
	o := Offer{Name: "X", ValueProps: []string{"a"}, IdealUseCases: []string{"b"}}
	c := o.Clone()
	c.ValueProps[0] = "changed"
	if o.ValueProps[0] != "a" {
		t.Fatalf("expected clone not to alias value props")
	}
}
