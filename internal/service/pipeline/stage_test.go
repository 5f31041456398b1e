package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
)

func namedStage(name string, deps ...string) Stage {
	return Stage{
		Name:      name,
		DependsOn: deps,
		Run:       func(ctx context.Context) (int, error) { return 0, nil },
	}
}

func stageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
	}
	return names
}

func TestOrderLinearChain(t *testing.T) {
	ordered, err := order([]Stage{
		namedStage("transform", "load"),
		namedStage("publish", "transform"),
		namedStage("load"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"load", "transform", "publish"}, stageNames(ordered))
}

func TestOrderIndependentStagesRunInNameOrder(t *testing.T) {
	ordered, err := order([]Stage{
		namedStage("charlie"),
		namedStage("alpha"),
		namedStage("bravo"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, stageNames(ordered))
}

func TestOrderDiamond(t *testing.T) {
	ordered, err := order([]Stage{
		namedStage("merge", "right", "left"),
		namedStage("right", "root"),
		namedStage("left", "root"),
		namedStage("root"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "left", "right", "merge"}, stageNames(ordered))
}

func TestOrderDuplicateName(t *testing.T) {
	_, err := order([]Stage{
		namedStage("extract"),
		namedStage("extract"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "duplicate stage")
}

func TestOrderUnknownDependency(t *testing.T) {
	_, err := order([]Stage{
		namedStage("stage", "extract"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestOrderCycle(t *testing.T) {
	_, err := order([]Stage{
		namedStage("alpha", "bravo"),
		namedStage("bravo", "alpha"),
		namedStage("charlie"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "dependency cycle")
	assert.Contains(t, err.Error(), "alpha")
	assert.Contains(t, err.Error(), "bravo")
	assert.NotContains(t, err.Error(), "charlie")
}

func TestPipelineGraphOrder(t *testing.T) {
	o := &Orchestrator{}

	ordered, err := order(o.stages(&runState{}, &RunReport{}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"extract", "stage", "enrich",
		"aggregate_daily", "aggregate_groups", "materialize",
	}, stageNames(ordered))
}
