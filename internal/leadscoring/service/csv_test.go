package service

import (
	"bytes"
	"strings"
	"testing"

	"leadscore_backend/internal/leadscoring/domain"
	"leadscore_backend/platform/apperr"
)

func TestParseLeadsMapsColumnsByHeader(t *testing.T) {
	input := "linkedin_bio,name,company,role,industry,location,email\n" +
		"\"Builds teams, ships products\",Ava Patel,FlowMetrics,CEO,SaaS,Berlin,ava@flowmetrics.io\n"

	leads, err := ParseLeads(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}
	lead := leads[0]
	if lead.Name != "Ava Patel" || lead.Role != "CEO" || lead.LinkedInBio != "Builds teams, ships products" {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.Extra["email"] != "ava@flowmetrics.io" {
		t.Fatalf("expected extra column to be kept, got %v", lead.Extra)
	}
}

func TestParseLeadsStripsBOMAndSkipsBlankLines(t *testing.T) {
	input := "\xEF\xBB\xBFname,role,company,industry,location,linkedin_bio\r\n" +
		"Ava,CEO,Flow,SaaS,Berlin,bio\r\n" +
		"\r\n" +
		"Leo,Manager,Acme,Retail,Austin,bio\r\n"

	leads, err := ParseLeads(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}
	if leads[0].Name != "Ava" {
		t.Fatalf("expected BOM to be stripped from the first header, got name %q", leads[0].Name)
	}
}

func TestParseLeadsEmptyFieldsAreAllowed(t *testing.T) {
	leads, err := ParseLeads(strings.NewReader("name,role,company,industry,location,linkedin_bio\nAva,,,,,\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leads[0].IsComplete() {
		t.Fatalf("expected lead with empty fields to be incomplete")
	}
}

func TestParseLeadsKeepsBareQuotesInText(t *testing.T) {
	input := "name,role,company,industry,location,linkedin_bio\n" +
		"Ava,CEO,Flow,SaaS,Berlin,Ex-\"Google\" engineer\n"

	leads, err := ParseLeads(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}
	if leads[0].LinkedInBio != `Ex-"Google" engineer` {
		t.Fatalf("expected bio kept as written, got %q", leads[0].LinkedInBio)
	}
}

func TestParseLeadsRejectsMalformedRows(t *testing.T) {
	cases := map[string]string{
		"missing column": "name,role,company,industry,location\nAva,CEO,Flow,SaaS,Berlin\n",
		"short row":      "name,role,company,industry,location,linkedin_bio\nAva,CEO,Flow,SaaS,Berlin,bio\nLeo,Manager\n",
		"bad quoting":    "name,role,company,industry,location,linkedin_bio\n\"Ava,CEO,Flow,SaaS,Berlin,bio\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLeads(strings.NewReader(input))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestParseLeadsShortRowNamesRowAndField(t *testing.T) {
	_, err := ParseLeads(strings.NewReader("name,role,company,industry,location,linkedin_bio\nAva,CEO,Flow,SaaS,Berlin,bio\nLeo,Manager\n"))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), `malformed row 2: missing field "company"`) {
		t.Fatalf("expected row and field in error, got %v", err)
	}
}

func TestParseLeadsEmptyInput(t *testing.T) {
	leads, err := ParseLeads(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leads == nil || len(leads) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", leads)
	}

	leads, err = ParseLeads(strings.NewReader("name,role,company,industry,location,linkedin_bio\n"))
	if err != nil || len(leads) != 0 {
		t.Fatalf("expected header-only input to give no leads, got %v, %v", leads, err)
	}
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResultsCSV(&buf, []domain.ScoredResult{
		{Name: "Ava", Role: "CEO", Company: "Flow", Intent: domain.IntentHigh, Score: 100, Reasoning: "High, strong fit"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "name,role,company,intent,score,reasoning\r\nAva,CEO,Flow,High,100,\"High, strong fit\"\r\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}
