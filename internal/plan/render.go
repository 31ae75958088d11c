package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// renderedJob is the serialization shape of one job instance.
type renderedJob struct {
	ID     string            `json:"id"`
	Job    string            `json:"job"`
	Matrix map[string]string `json:"matrix,omitempty"`
	Needs  []string          `json:"needs,omitempty"`
	Steps  []string          `json:"steps"`
}

// renderedPlan is the serialization shape of a whole plan.
type renderedPlan struct {
	Workflow string        `json:"workflow"`
	Event    string        `json:"event"`
	Ref      string        `json:"ref,omitempty"`
	Fired    bool          `json:"fired"`
	Jobs     []renderedJob `json:"jobs"`
}

func (p *Plan) rendered() renderedPlan {
	out := renderedPlan{
		Workflow: p.Workflow.Name,
		Event:    string(p.Event.Kind),
		Ref:      p.Event.Ref,
		Fired:    p.Fired,
		Jobs:     []renderedJob{},
	}
	for _, jp := range p.Jobs {
		rj := renderedJob{
			ID:    jp.ID,
			Job:   jp.JobName,
			Needs: jp.Needs,
		}
		if len(jp.Combo.Keys()) > 0 {
			rj.Matrix = jp.Combo.Values()
		}
		for _, s := range jp.Job.Steps {
			rj.Steps = append(rj.Steps, s.Name)
		}
		out.Jobs = append(out.Jobs, rj)
	}
	return out
}

// WriteJSON renders the plan as indented JSON. Output is deterministic for a
// given workflow and event.
func (p *Plan) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p.rendered())
}

// WriteText renders the plan as an aligned human-readable table.
func (p *Plan) WriteText(w io.Writer) error {
	if !p.Fired {
		_, err := fmt.Fprintf(w, "workflow %q does not fire for %s on %q\n",
			p.Workflow.Name, p.Event.Kind, p.Event.Ref)
		return err
	}

	fmt.Fprintf(w, "workflow %q, %s on %q: %d job instance(s)\n\n",
		p.Workflow.Name, p.Event.Kind, p.Event.Ref, len(p.Jobs))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tSTEPS\tNEEDS")
	for _, jp := range p.Jobs {
		needs := "-"
		if len(jp.Needs) > 0 {
			needs = strings.Join(jp.Needs, ", ")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", jp.ID, len(jp.Job.Steps), needs)
	}
	return tw.Flush()
}
