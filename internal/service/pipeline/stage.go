package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
)

// Stage is one unit of pipeline work. Run returns the number of rows the
// stage emitted; inputs and outputs travel on the run state its closure
// captures, so dependents read typed fields instead of looking results up
// by name.
type Stage struct {
	Name      string
	DependsOn []string
	Run       func(ctx context.Context) (int, error)
}

// order resolves execution order with a topological sort. Ready stages run
// in name order, so the same graph always executes the same way. Duplicate
// names, unknown dependencies and cycles are configuration errors raised
// before any stage runs.
func order(stages []Stage) ([]Stage, error) {
	byName := make(map[string]int, len(stages))
	for i, st := range stages {
		if _, dup := byName[st.Name]; dup {
			return nil, errors.NewConfigurationError("PIPELINE_GRAPH",
				fmt.Sprintf("duplicate stage %q", st.Name))
		}
		byName[st.Name] = i
	}

	indegree := make([]int, len(stages))
	dependents := make([][]int, len(stages))
	for i, st := range stages {
		for _, dep := range st.DependsOn {
			j, ok := byName[dep]
			if !ok {
				return nil, errors.NewConfigurationError("PIPELINE_GRAPH",
					fmt.Sprintf("stage %q depends on unknown stage %q", st.Name, dep))
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range stages {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	sortReady := func() {
		sort.Slice(ready, func(a, b int) bool {
			return stages[ready[a]].Name < stages[ready[b]].Name
		})
	}
	sortReady()

	ordered := make([]Stage, 0, len(stages))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		ordered = append(ordered, stages[i])

		released := false
		for _, dependent := range dependents[i] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			sortReady()
		}
	}

	if len(ordered) != len(stages) {
		var blocked []string
		for i, st := range stages {
			if indegree[i] > 0 {
				blocked = append(blocked, st.Name)
			}
		}
		sort.Strings(blocked)
		return nil, errors.NewConfigurationError("PIPELINE_GRAPH",
			fmt.Sprintf("dependency cycle through %s", strings.Join(blocked, ", ")))
	}

	return ordered, nil
}
