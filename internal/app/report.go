package app

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"
	"github.com/specialistvlad/loopgrid/internal/evaluator"
	"github.com/specialistvlad/loopgrid/internal/scenario"
)

// Report is everything one Run produced.
type Report struct {
	// RunID identifies the Run in logs and in the JSON report.
	RunID     string
	Model     string
	Base      *evaluator.Result
	Scenarios []ScenarioReport
}

// ScenarioReport is the outcome of one scenario compared to the baseline.
type ScenarioReport struct {
	Scenario scenario.Scenario
	Result   *evaluator.Result
	Diffs    []scenario.Diff
}

// Converged reports whether every evaluation in the report converged.
func (r *Report) Converged() bool {
	if !r.Base.Converged() {
		return false
	}
	for _, s := range r.Scenarios {
		if !s.Result.Converged() {
			return false
		}
	}
	return true
}

func (a *App) writeReport(r *Report) error {
	if a.config.Output == OutputJSON {
		return writeJSONReport(a.outW, r)
	}
	ids := make([]string, 0, a.store.Len())
	for _, attr := range a.store.Attributes() {
		ids = append(ids, attr.ID)
	}
	return writeTextReport(a.outW, r, ids)
}

// writeTextReport renders r as aligned tables. ids fixes the row order.
func writeTextReport(w io.Writer, r *Report, ids []string) error {
	out := termenv.NewOutput(w)
	var sb strings.Builder

	fmt.Fprintf(&sb, "Model: %s\n\n", r.Model)
	writeResultHeader(&sb, out, baseScenario, "", r.Base)
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVALUE")
	for _, id := range ids {
		if v, ok := r.Base.Get(id); ok {
			fmt.Fprintf(tw, "%s\t%s\n", id, formatValue(v))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, s := range r.Scenarios {
		sb.WriteString("\n")
		writeResultHeader(&sb, out, s.Scenario.Name, s.Scenario.Description, s.Result)
		if len(s.Result.Overrides) > 0 {
			sb.WriteString("overrides: ")
			sb.WriteString(formatOverrides(s.Result.Overrides))
			sb.WriteString("\n")
		}

		byID := make(map[string]scenario.Diff, len(s.Diffs))
		for _, d := range s.Diffs {
			byID[d.ID] = d
		}
		tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tBASE\tVALUE\tCHANGE")
		for _, id := range ids {
			d, ok := byID[id]
			if !ok {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, formatValue(d.Base), formatValue(d.Value), formatChange(d))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeResultHeader(sb *strings.Builder, out *termenv.Output, name, description string, res *evaluator.Result) {
	fmt.Fprintf(sb, "== %s ==", name)
	if description != "" {
		fmt.Fprintf(sb, " %s", description)
	}
	sb.WriteString("\n")

	sum := res.Summary()
	fmt.Fprintf(sb, "%d attributes (%d inputs, %d derived) in %d blocks\n", sum.Attributes, sum.Inputs, sum.Derived, sum.Blocks)
	for _, c := range res.Cycles {
		fmt.Fprintf(sb, "cycle [%s]: %s after %d iterations (max delta %.4g)\n",
			strings.Join(c.Members, " "), cycleStatus(out, c), c.Iterations, c.MaxDelta)
	}
}

func cycleStatus(out *termenv.Output, c evaluator.ConvergenceRecord) string {
	switch {
	case c.Converged:
		return out.String("converged").Foreground(out.Color("2")).String()
	case c.Interrupted:
		return out.String("interrupted").Foreground(out.Color("1")).String()
	case c.Stabilized:
		return out.String("NOT converged, oscillation stabilized").Foreground(out.Color("3")).String()
	case c.Oscillating:
		return out.String("NOT converged, oscillating").Foreground(out.Color("3")).String()
	default:
		return out.String("NOT converged").Foreground(out.Color("3")).String()
	}
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func formatChange(d scenario.Diff) string {
	if d.Delta == 0 {
		return "-"
	}
	if math.IsNaN(d.Relative) {
		return fmt.Sprintf("%+.4f", d.Delta)
	}
	return fmt.Sprintf("%+.4f (%+.1f%%)", d.Delta, d.Relative*100)
}

func formatOverrides(overrides map[string]float64) string {
	ids := make([]string, 0, len(overrides))
	for id := range overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%g", id, overrides[id]))
	}
	return strings.Join(parts, ", ")
}

type jsonReport struct {
	RunID     string       `json:"run_id"`
	Model     string       `json:"model"`
	Converged bool         `json:"converged"`
	Base      jsonResult   `json:"base"`
	Scenarios []jsonResult `json:"scenarios"`
}

type jsonResult struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Overrides   map[string]float64 `json:"overrides,omitempty"`
	Summary     evaluator.Summary  `json:"summary"`
	Values      map[string]float64 `json:"values"`
	Cycles      []jsonCycle        `json:"cycles"`
	Diffs       []jsonDiff         `json:"diffs,omitempty"`
}

type jsonCycle struct {
	Members     []string `json:"members"`
	Iterations  int      `json:"iterations"`
	Converged   bool     `json:"converged"`
	MaxDelta    float64  `json:"max_delta"`
	Oscillating bool     `json:"oscillating,omitempty"`
	Stabilized  bool     `json:"stabilized,omitempty"`
	Interrupted bool     `json:"interrupted,omitempty"`
}

type jsonDiff struct {
	ID    string  `json:"id"`
	Base  float64 `json:"base"`
	Value float64 `json:"value"`
	Delta float64 `json:"delta"`
	// Relative is null when the baseline is zero.
	Relative *float64 `json:"relative"`
}

func toJSONResult(name, description string, res *evaluator.Result, diffs []scenario.Diff) jsonResult {
	out := jsonResult{
		Name:        name,
		Description: description,
		Overrides:   res.Overrides,
		Summary:     res.Summary(),
		Values:      res.Values.Map(),
		Cycles:      make([]jsonCycle, 0, len(res.Cycles)),
	}
	for _, c := range res.Cycles {
		out.Cycles = append(out.Cycles, jsonCycle{
			Members:     c.Members,
			Iterations:  c.Iterations,
			Converged:   c.Converged,
			MaxDelta:    c.MaxDelta,
			Oscillating: c.Oscillating,
			Stabilized:  c.Stabilized,
			Interrupted: c.Interrupted,
		})
	}
	for _, d := range diffs {
		jd := jsonDiff{ID: d.ID, Base: d.Base, Value: d.Value, Delta: d.Delta}
		if !math.IsNaN(d.Relative) {
			rel := d.Relative
			jd.Relative = &rel
		}
		out.Diffs = append(out.Diffs, jd)
	}
	return out
}

func writeJSONReport(w io.Writer, r *Report) error {
	out := jsonReport{
		RunID:     r.RunID,
		Model:     r.Model,
		Converged: r.Converged(),
		Base:      toJSONResult(baseScenario, "", r.Base, nil),
		Scenarios: make([]jsonResult, 0, len(r.Scenarios)),
	}
	for _, s := range r.Scenarios {
		out.Scenarios = append(out.Scenarios, toJSONResult(s.Scenario.Name, s.Scenario.Description, s.Result, s.Diffs))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
