package service

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"leadscore_backend/internal/leadscoring/domain"
	"leadscore_backend/platform/apperr"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseLeads reads a header-keyed CSV document into leads. Rows shorter than
// the header, or a header lacking a required column, reject the whole upload.
// Values past the header width are ignored and blank lines are skipped.
// A quote inside an unquoted field is kept as text.
func ParseLeads(r io.Reader) ([]domain.Lead, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	// Free-text columns such as linkedin_bio often carry bare quotes.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Lead{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid csv", err)
	}

	leads := make([]domain.Lead, 0)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "invalid csv", err)
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				fields[name] = record[i]
			}
		}

		lead, err := domain.LeadFromRow(row, fields)
		if err != nil {
			var missing *domain.MissingFieldError
			if errors.As(err, &missing) {
				return nil, apperr.Wrap(apperr.KindValidation, "malformed lead row", err).
					WithDetails(fmt.Sprintf("row %d is missing %q", missing.Row, missing.Field))
			}
			return nil, apperr.Wrap(apperr.KindValidation, "malformed lead row", err)
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// WriteResultsCSV writes results with the fixed export header and CRLF line
// endings.
func WriteResultsCSV(w io.Writer, results []domain.ScoredResult) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	if err := writer.Write(domain.ExportColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		record := []string{r.Name, r.Role, r.Company, string(r.Intent), strconv.Itoa(r.Score), r.Reasoning}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// EncodeResultsCSV renders results into memory.
func EncodeResultsCSV(results []domain.ScoredResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
