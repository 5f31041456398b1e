package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/incident"
)

// Timestamp layouts accepted in extract files, tried in order.
var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// CSVSource reads an exported extract file carrying the same column
// contract as the database table. Used for local runs and backfills.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source reading the extract file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string {
	return "csv"
}

func (s *CSVSource) Fetch(ctx context.Context) ([]incident.Raw, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("csv_source", "cannot open extract file").WithCause(err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, apperrors.NewSchemaError("SOURCE_SCHEMA_MISMATCH",
			"extract file has no header row").WithCause(err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []incident.Raw
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewDataQualityError("MALFORMED_EXTRACT",
				fmt.Sprintf("extract file %s has a malformed record", s.path)).WithCause(err)
		}
		out = append(out, rowFromRecord(record, index))
	}

	return out, nil
}

// columnIndex validates the header against the column contract and returns
// the position of each column. Both missing and unexpected columns are
// schema errors; column order is free.
func columnIndex(header []string) (map[string]int, error) {
	want := make(map[string]bool, len(rawColumns))
	for _, c := range rawColumns {
		want[c] = true
	}

	index := make(map[string]int, len(header))
	var unexpected []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		if !want[name] {
			unexpected = append(unexpected, name)
			continue
		}
		index[name] = i
	}

	var missing []string
	for _, c := range rawColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 || len(unexpected) > 0 || len(header) != len(rawColumns) {
		return nil, apperrors.NewSchemaError("SOURCE_SCHEMA_MISMATCH",
			"extract file header does not match the expected columns").
			WithDetails(map[string]interface{}{
				"missing":    missing,
				"unexpected": unexpected,
			})
	}

	return index, nil
}

func rowFromRecord(record []string, index map[string]int) incident.Raw {
	get := func(col string) string {
		return record[index[col]]
	}

	return incident.Raw{
		Number:            get("inc_number"),
		Priority:          get("inc_priority"),
		State:             get("inc_state"),
		CreatedAt:         parseCSVTime(get("inc_sys_created_on")),
		ResolvedAt:        parseCSVTime(get("inc_resolved_at")),
		SLADue:            parseCSVTime(get("inc_sla_due")),
		AssignmentGroup:   get("inc_assignment_group"),
		AssignedTo:        get("inc_assigned_to"),
		Category:          get("inc_category"),
		BusinessService:   get("inc_business_service"),
		ConfigurationItem: get("inc_cmdb_ci"),
		CallerID:          get("inc_caller_id"),
		ShortDescription:  get("inc_short_description"),
		CloseCode:         get("inc_close_code"),
		CloseNotes:        get("inc_close_notes"),
		ResolutionHours:   parseCSVFloat(get("resolution_time_hours")),
	}
}

// parseCSVTime reads a timestamp cell. Blank and unparseable cells both
// yield nil; staging decides whether that makes the row unusable.
func parseCSVTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func parseCSVFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
