package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
)

const csvHeader = "inc_number,inc_priority,inc_state,inc_sys_created_on,inc_resolved_at,inc_sla_due," +
	"inc_assignment_group,inc_assigned_to,inc_category,inc_business_service,inc_cmdb_ci,inc_caller_id," +
	"inc_short_description,inc_close_code,inc_close_notes,resolution_time_hours"

func writeExtract(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extract.csv")
	content := strings.Join(lines, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSourceFetch(t *testing.T) {
	path := writeExtract(t,
		csvHeader,
		`INC0001001,1 - Critical,Closed,2025-03-10 09:00:00,2025-03-10 11:30:00,2025-03-10 13:00:00,`+
			`Network Ops,alice,Network,Email,srv-mail-01,carol,Mail outage,Solved,Restarted service,2.5`,
		`INC0001002,3 - Moderate,In Progress,2025-03-11 14:00:00,,,Service Desk,bob,Access,,,dave,Password reset,,,`,
	)

	rows, err := NewCSVSource(path).Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "INC0001001", first.Number)
	assert.Equal(t, "1 - Critical", first.Priority)
	assert.Equal(t, "Closed", first.State)
	require.NotNil(t, first.CreatedAt)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), *first.CreatedAt)
	require.NotNil(t, first.ResolvedAt)
	assert.Equal(t, "Network Ops", first.AssignmentGroup)
	require.NotNil(t, first.ResolutionHours)
	assert.Equal(t, 2.5, *first.ResolutionHours)

	second := rows[1]
	assert.Equal(t, "INC0001002", second.Number)
	assert.Nil(t, second.ResolvedAt)
	assert.Nil(t, second.SLADue)
	assert.Nil(t, second.ResolutionHours)
	assert.Equal(t, "", second.CloseCode)
}

func TestCSVSourceHeaderOrderIsFree(t *testing.T) {
	// Same columns, reversed order.
	cols := strings.Split(csvHeader, ",")
	for i, j := 0, len(cols)-1; i < j; i, j = i+1, j-1 {
		cols[i], cols[j] = cols[j], cols[i]
	}
	path := writeExtract(t,
		strings.Join(cols, ","),
		`1.5,Done?,Note,Hardware repair,frank,lap-042,,Hardware,erin,Field Support,,,2025-03-12 08:00:00,New,4 - Low,INC0001003`,
	)

	rows, err := NewCSVSource(path).Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "INC0001003", rows[0].Number)
	assert.Equal(t, "4 - Low", rows[0].Priority)
	assert.Equal(t, "New", rows[0].State)
	require.NotNil(t, rows[0].CreatedAt)
	require.NotNil(t, rows[0].ResolutionHours)
	assert.Equal(t, 1.5, *rows[0].ResolutionHours)
}

func TestCSVSourceMissingColumn(t *testing.T) {
	header := strings.Replace(csvHeader, "inc_priority,", "", 1)
	path := writeExtract(t, header)

	_, err := NewCSVSource(path).Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSchema))
}

func TestCSVSourceUnexpectedColumn(t *testing.T) {
	path := writeExtract(t, csvHeader+",inc_surprise")

	_, err := NewCSVSource(path).Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSchema))
}

func TestCSVSourceEmptyFile(t *testing.T) {
	path := writeExtract(t)

	_, err := NewCSVSource(path).Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSchema))
}

func TestCSVSourceHeaderOnly(t *testing.T) {
	path := writeExtract(t, csvHeader)

	rows, err := NewCSVSource(path).Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, rows, "a header with no data rows is a valid empty extract")
}

func TestCSVSourceMalformedRecord(t *testing.T) {
	path := writeExtract(t,
		csvHeader,
		`INC0001004,too,few,fields`,
	)

	_, err := NewCSVSource(path).Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDataQuality))
}

func TestCSVSourceUnparseableCellsBecomeNil(t *testing.T) {
	path := writeExtract(t,
		csvHeader,
		`INC0001005,2 - High,Closed,not-a-date,2025-03-10 11:00:00,,Net,a,Cat,Svc,ci,c,desc,code,notes,banana`,
	)

	rows, err := NewCSVSource(path).Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].CreatedAt, "bad timestamps surface downstream as staging exclusions")
	assert.Nil(t, rows[0].ResolutionHours)
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "absent.csv")).Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInfrastructure))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestCSVSourceCanceledContext(t *testing.T) {
	path := writeExtract(t,
		csvHeader,
		`INC0001006,4 - Low,New,2025-03-10 09:00:00,,,,,,,,,,,,`,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSVSource(path).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVSourceName(t *testing.T) {
	assert.Equal(t, "csv", NewCSVSource("x.csv").Name())
}
