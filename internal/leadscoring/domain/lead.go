package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Lead column names expected in an uploaded CSV.
const (
	FieldName        = "name"
	FieldRole        = "role"
	FieldCompany     = "company"
	FieldIndustry    = "industry"
	FieldLocation    = "location"
	FieldLinkedInBio = "linkedin_bio"
)

// RequiredFields lists the columns every lead row must carry, in CSV order.
var RequiredFields = []string{
	FieldName,
	FieldRole,
	FieldCompany,
	FieldIndustry,
	FieldLocation,
	FieldLinkedInBio,
}

// Lead is one prospect row. Required fields may be empty but never absent;
// any further columns of the upload are kept in Extra.
type Lead struct {
	Name        string
	Role        string
	Company     string
	Industry    string
	Location    string
	LinkedInBio string
	Extra       map[string]string
}

// MissingFieldError reports a required column absent from a lead row.
type MissingFieldError struct {
	Row   int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("malformed row %d: missing field %q", e.Row, e.Field)
}

// LeadFromRow builds a Lead from a header-keyed row. row is the 1-based data
// row number used in errors.
func LeadFromRow(row int, fields map[string]string) (Lead, error) {
	for _, f := range RequiredFields {
		if _, ok := fields[f]; !ok {
			return Lead{}, &MissingFieldError{Row: row, Field: f}
		}
	}

	lead := Lead{
		Name:        fields[FieldName],
		Role:        fields[FieldRole],
		Company:     fields[FieldCompany],
		Industry:    fields[FieldIndustry],
		Location:    fields[FieldLocation],
		LinkedInBio: fields[FieldLinkedInBio],
	}
	for k, v := range fields {
		if isRequired(k) {
			continue
		}
		if lead.Extra == nil {
			lead.Extra = make(map[string]string)
		}
		lead.Extra[k] = v
	}
	return lead, nil
}

// Field returns the value of a column by name.
func (l Lead) Field(name string) (string, bool) {
	switch name {
	case FieldName:
		return l.Name, true
	case FieldRole:
		return l.Role, true
	case FieldCompany:
		return l.Company, true
	case FieldIndustry:
		return l.Industry, true
	case FieldLocation:
		return l.Location, true
	case FieldLinkedInBio:
		return l.LinkedInBio, true
	}
	v, ok := l.Extra[name]
	return v, ok
}

// IsComplete reports whether every required field is non-empty.
func (l Lead) IsComplete() bool {
	for _, f := range RequiredFields {
		if v, _ := l.Field(f); v == "" {
			return false
		}
	}
	return true
}

// Columns returns all column names of the lead: required ones first, then
// extra columns sorted by name.
func (l Lead) Columns() []string {
	cols := append([]string(nil), RequiredFields...)
	extra := make([]string, 0, len(l.Extra))
	for k := range l.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// MarshalJSON renders the lead as the flat column map it was uploaded as.
func (l Lead) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(RequiredFields)+len(l.Extra))
	for _, c := range l.Columns() {
		out[c], _ = l.Field(c)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat column map produced by MarshalJSON.
func (l *Lead) UnmarshalJSON(data []byte) error {
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	lead, err := LeadFromRow(0, fields)
	if err != nil {
		return err
	}
	*l = lead
	return nil
}

func isRequired(name string) bool {
	for _, f := range RequiredFields {
		if f == name {
			return true
		}
	}
	return false
}
