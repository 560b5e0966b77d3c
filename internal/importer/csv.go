package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/storage"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/validator"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
)

// originCSVImport marks leads created through this importer.
const originCSVImport = "csv_import"

// knownColumns maps CSV header names onto lead fields. Header matching is
// case-insensitive and ignores surrounding whitespace.
var knownColumns = map[string]func(lead *model.Lead, value string){
	"first_name":   func(l *model.Lead, v string) { l.FirstName = v },
	"last_name":    func(l *model.Lead, v string) { l.LastName = v },
	"email":        func(l *model.Lead, v string) { l.Email = v },
	"phone":        func(l *model.Lead, v string) { l.Phone = v },
	"linkedin_url": func(l *model.Lead, v string) { l.LinkedInURL = v },
	"city":         func(l *model.Lead, v string) { l.City = v },
	"company_name": func(l *model.Lead, v string) { l.CompanyName = v },
	"tags":         func(l *model.Lead, v string) { l.Tags = v },
}

// RowError records why one CSV row was rejected. Line numbers are 1-based and
// include the header row, matching what an operator sees in a spreadsheet.
type RowError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// Result summarizes one import run.
type Result struct {
	Parsed    int        `json:"parsed"`
	Imported  int        `json:"imported"`
	Rejected  int        `json:"rejected"`
	RowErrors []RowError `json:"row_errors,omitempty"`
}

// LeadImporter parses CSV lead exports and bulk-upserts the valid rows.
// Invalid rows are collected per line and never abort the run.
type LeadImporter struct {
	leadRepo storage.LeadRepo
}

// NewLeadImporter creates a CSV lead importer over the given repository.
func NewLeadImporter(leadRepo storage.LeadRepo) *LeadImporter {
	return &LeadImporter{leadRepo: leadRepo}
}

// Import reads CSV data from r and upserts every valid lead row for the
// tenant in ctx. The first row must be a header naming at least one known
// column; unknown columns are ignored.
func (i *LeadImporter) Import(ctx context.Context, r io.Reader) (*Result, error) {
	log := logger.FromContext(ctx)

	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, apperrors.NewFatal(err, "missing tenant for lead import")
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewFatal(fmt.Errorf("%w: empty input", apperrors.ErrBadRequest), "cannot import leads")
	}
	if err != nil {
		return nil, apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrBadRequest, err.Error()), "failed to read CSV header")
	}

	setters, err := resolveHeader(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	leads := make([]model.Lead, 0)
	line := 1 // Header consumed

	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			result.Rejected++
			result.RowErrors = append(result.RowErrors, RowError{Line: line, Error: readErr.Error()})
			continue
		}

		result.Parsed++
		lead := model.Lead{
			ID:        uuid.New().String(),
			CompanyID: companyID,
			Status:    "NEW",
			Origin:    originCSVImport,
		}
		for col, setter := range setters {
			if col < len(record) {
				setter(&lead, strings.TrimSpace(record[col]))
			}
		}

		if rowErr := validateRow(&lead); rowErr != nil {
			result.Rejected++
			result.RowErrors = append(result.RowErrors, RowError{Line: line, Error: rowErr.Error()})
			continue
		}
		leads = append(leads, lead)
	}

	if len(leads) > 0 {
		if err := i.leadRepo.BulkUpsert(ctx, leads); err != nil {
			return result, apperrors.NewRetryable(err, "failed to upsert %d imported leads", len(leads))
		}
		result.Imported = len(leads)
	}

	log.Info("Lead import finished",
		zap.Int("parsed", result.Parsed),
		zap.Int("imported", result.Imported),
		zap.Int("rejected", result.Rejected),
	)
	return result, nil
}

// resolveHeader maps column positions to field setters.
func resolveHeader(header []string) (map[int]func(*model.Lead, string), error) {
	setters := make(map[int]func(*model.Lead, string))
	for idx, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if setter, ok := knownColumns[normalized]; ok {
			setters[idx] = setter
		}
	}
	if len(setters) == 0 {
		return nil, apperrors.NewFatal(
			fmt.Errorf("%w: header names no known columns", apperrors.ErrBadRequest),
			"unusable CSV header",
		)
	}
	return setters, nil
}

// validateRow rejects rows with no usable identity or contact channel and
// rows that fail field validation.
func validateRow(lead *model.Lead) error {
	if lead.FirstName == "" && lead.LastName == "" {
		return fmt.Errorf("row has no name")
	}
	if lead.Email == "" && lead.Phone == "" && lead.LinkedInURL == "" {
		return fmt.Errorf("row has no contact channel")
	}
	if err := validator.Validate(lead); err != nil {
		return err
	}
	return nil
}
