// Command generate-extract writes a synthetic raw incident extract in the
// CSV layout the pipeline's csv source accepts. Handy for local runs and
// load checks when no warehouse export is at hand:
//
//	go run ./scripts/generate-extract -rows 2000 -seed 7 -out extract.csv
//
// The output is deterministic for a given seed and deliberately includes
// the rough edges real exports have: duplicated numbers, blank keys,
// negative resolution times and the odd multi-week outlier.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"time"
)

var header = []string{
	"inc_number",
	"inc_priority",
	"inc_state",
	"inc_sys_created_on",
	"inc_resolved_at",
	"inc_sla_due",
	"inc_assignment_group",
	"inc_assigned_to",
	"inc_category",
	"inc_business_service",
	"inc_cmdb_ci",
	"inc_caller_id",
	"inc_short_description",
	"inc_close_code",
	"inc_close_notes",
	"resolution_time_hours",
}

type weighted struct {
	value  string
	weight int
}

var (
	priorities = []weighted{
		{"1 - Critical", 8},
		{"2 - High", 17},
		{"3 - Moderate", 50},
		{"4 - Low", 25},
	}
	states = []weighted{
		{"Closed", 65},
		{"Resolved", 10},
		{"In Progress", 12},
		{"New", 8},
		{"On Hold", 5},
	}
	groups = []weighted{
		{"Service Desk", 30},
		{"Network Operations", 20},
		{"Application Support", 20},
		{"Database Administration", 10},
		{"Field Support", 10},
		{"Security Operations", 7},
		{"", 3},
	}
	closeCodes = []weighted{
		{"Solved (Permanently)", 45},
		{"Solved (Work Around)", 25},
		{"Solved Remotely (Permanently)", 15},
		{"Closed/Resolved by Caller", 10},
		{"Not Solved (Not Reproducible)", 5},
	}
)

var categories = map[string][]string{
	"Network":  {"VPN drops every few minutes", "Switch port flapping", "Cannot reach file share"},
	"Hardware": {"Laptop will not power on", "Docking station not detected", "Printer offline"},
	"Software": {"Application crashes on startup", "License activation fails", "Update loop on reboot"},
	"Database": {"Report query times out", "Nightly job missed its window", "Replication lag alert"},
	"Access":   {"Password reset needed", "MFA token out of sync", "New starter account request"},
}

var services = []string{"Email", "VPN", "ERP", "CRM", "File Share", "Payroll"}

// Rough SLA target per priority, in hours. Jitter below keeps the due
// dates from being perfectly clean.
var slaTargets = map[string]int{
	"1 - Critical": 4,
	"2 - High":     24,
	"3 - Moderate": 72,
	"4 - Low":      168,
}

func main() {
	var (
		rows   = flag.Int("rows", 500, "number of incident rows to generate")
		seed   = flag.Int64("seed", 1, "random seed; the same seed reproduces the same extract")
		days   = flag.Int("days", 30, "length of the creation window in days, ending at -end")
		endStr = flag.String("end", "", "last day of the creation window (YYYY-MM-DD, default today UTC)")
		out    = flag.String("out", "", "output path; stdout when empty")
	)
	flag.Parse()

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		parsed, err := time.Parse("2006-01-02", *endStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -end %q: %v\n", *endStr, err)
			os.Exit(1)
		}
		end = parsed
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if err := writeExtract(w, *rows, *seed, end, *days); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeExtract(w io.Writer, rows int, seed int64, end time.Time, days int) error {
	rng := rand.New(rand.NewSource(seed))
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return err
	}

	var prev []string
	for i := 0; i < rows; i++ {
		// A couple percent of rows repeat an earlier number with a
		// drifted state, the way re-exports double rows up.
		if prev != nil && rng.Intn(100) < 2 {
			dup := append([]string(nil), prev...)
			dup[2] = "In Progress"
			dup[4] = ""
			dup[13] = ""
			dup[14] = ""
			dup[15] = ""
			if err := cw.Write(dup); err != nil {
				return err
			}
			continue
		}

		rec := record(rng, i, end, days)
		prev = rec
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func record(rng *rand.Rand, i int, end time.Time, days int) []string {
	created := end.AddDate(0, 0, -rng.Intn(days)).Add(time.Duration(rng.Intn(24*60)) * time.Minute)
	priority := choose(rng, priorities)
	state := choose(rng, states)

	number := fmt.Sprintf("INC%07d", 1000000+i)
	if rng.Intn(100) < 1 {
		number = ""
	}

	createdCell := ts(created)
	if rng.Intn(100) < 1 {
		createdCell = ""
	}

	var resolvedCell, closeCode, closeNotes, hoursCell string
	if state == "Closed" || state == "Resolved" {
		offset := time.Duration(rng.Intn(72*60)+5) * time.Minute
		switch {
		case rng.Intn(1000) < 5:
			// Multi-week stragglers that reopened a few times.
			offset = time.Duration(800+rng.Intn(400)) * time.Hour
		case rng.Intn(100) < 1:
			// Clock skew between source systems runs backwards.
			offset = -time.Duration(rng.Intn(120)+10) * time.Minute
		}
		resolved := created.Add(offset)
		resolvedCell = ts(resolved)
		if rng.Intn(100) < 20 {
			hoursCell = fmt.Sprintf("%.2f", offset.Hours())
		}
		if state == "Closed" {
			closeCode = choose(rng, closeCodes)
			if rng.Intn(100) < 60 {
				closeNotes = "Confirmed with caller before closing."
			}
		}
	}

	slaCell := ""
	if rng.Intn(100) >= 5 {
		jitter := time.Duration(rng.Intn(240)-120) * time.Minute
		slaCell = ts(created.Add(time.Duration(slaTargets[priority])*time.Hour + jitter))
	}

	category := pickKey(rng, categories)
	descriptions := categories[category]
	service := services[rng.Intn(len(services))]

	assignee := fmt.Sprintf("agent%02d", rng.Intn(40))
	if rng.Intn(100) < 10 {
		assignee = ""
	}

	return []string{
		number,
		priority,
		state,
		createdCell,
		resolvedCell,
		slaCell,
		choose(rng, groups),
		assignee,
		category,
		service,
		fmt.Sprintf("%s-prod-%02d", service, rng.Intn(8)),
		fmt.Sprintf("user%03d", rng.Intn(400)),
		descriptions[rng.Intn(len(descriptions))],
		closeCode,
		closeNotes,
		hoursCell,
	}
}

// ts renders a timestamp cell in the first layout the csv source accepts.
func ts(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func choose(rng *rand.Rand, choices []weighted) string {
	total := 0
	for _, c := range choices {
		total += c.weight
	}
	n := rng.Intn(total)
	for _, c := range choices {
		if n < c.weight {
			return c.value
		}
		n -= c.weight
	}
	return choices[len(choices)-1].value
}

func pickKey(rng *rand.Rand, m map[string][]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Map iteration order is random but not seeded; sort before picking
	// so the same seed yields the same extract.
	sort.Strings(keys)
	return keys[rng.Intn(len(keys))]
}
