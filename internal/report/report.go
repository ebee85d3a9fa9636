// Package report renders the outcome of a compile run as YAML.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/specialistvlad/opcompile/internal/nodestore"
	"github.com/specialistvlad/opcompile/internal/scheduler"
	"gopkg.in/yaml.v3"
)

// Report is the document written at the end of a run.
type Report struct {
	RunID    string         `yaml:"run_id"`
	Backend  string         `yaml:"backend"`
	Started  time.Time      `yaml:"started"`
	Duration string         `yaml:"duration"`
	OK       bool           `yaml:"ok"`
	Threads  []ThreadReport `yaml:"threads"`
	Nodes    []NodeReport   `yaml:"nodes"`
}

// ThreadReport summarises one Compile call.
type ThreadReport struct {
	Thread     uint64   `yaml:"thread"`
	BatchID    string   `yaml:"batch_id"`
	Submitted  int      `yaml:"submitted"`
	Succeeded  int      `yaml:"succeeded"`
	Failed     int      `yaml:"failed"`
	Absorbed   int      `yaml:"absorbed,omitempty"`
	Retries    int      `yaml:"retries,omitempty"`
	Rounds     int      `yaml:"rounds"`
	RolledBack []string `yaml:"rolled_back,omitempty"`
	Error      string   `yaml:"error,omitempty"`
}

// NodeReport is one node's final outcome.
type NodeReport struct {
	Node        string `yaml:"node"`
	// Outcome is compiled, rolled_back, terminal, aborted or pending.
	Outcome     string `yaml:"outcome"`
	Thread      uint64 `yaml:"thread"`
	Scope       int64  `yaml:"scope,omitempty"`
	BinaryPath  string `yaml:"binary_path,omitempty"`
	JSONPath    string `yaml:"json_path,omitempty"`
	Slices      []int  `yaml:"slices,omitempty,flow"`
	FailurePath string `yaml:"failure_path,omitempty"`
	Error       string `yaml:"error,omitempty"`
}

// Thread builds the thread section from a Compile result. err is the
// structural error Compile returned, if any.
func Thread(res *scheduler.Result, err error) ThreadReport {
	tr := ThreadReport{
		Thread:    uint64(res.Thread),
		BatchID:   res.BatchID,
		Submitted: res.Stats.Submitted,
		Succeeded: res.Stats.Succeeded,
		Failed:    res.Stats.Failed,
		Absorbed:  res.Stats.Absorbed,
		Retries:   res.Stats.Retries,
		Rounds:    res.Stats.Rounds,
	}
	for _, rb := range res.RolledBack {
		tr.RolledBack = append(tr.RolledBack, fmt.Sprintf("%s (%s)", rb.Label, rb.FusionKind))
	}
	if err != nil {
		tr.Error = err.Error()
	}
	return tr
}

// Nodes converts every stored outcome into its report form.
func Nodes(ctx context.Context, store nodestore.Store) ([]NodeReport, error) {
	outcomes, err := store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading node outcomes: %w", err)
	}
	out := make([]NodeReport, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, NodeReport{
			Node:        o.Node.String(),
			Outcome:     outcomeName(o),
			Thread:      o.Thread,
			Scope:       o.Scope,
			BinaryPath:  o.BinaryPath,
			JSONPath:    o.JSONPath,
			Slices:      o.Slices,
			FailurePath: o.FailurePath,
			Error:       o.Error,
		})
	}
	return out, nil
}

// outcomeName is "terminal" for nodes that failed after recovery and
// "aborted" for nodes left unresolved by a structural error.
func outcomeName(o nodestore.Outcome) string {
	switch {
	case o.FailurePath != "":
		return "terminal"
	case o.Error != "":
		return "aborted"
	default:
		return o.State.String()
	}
}

// Write encodes the report as YAML. Threads are ordered by thread id.
func Write(w io.Writer, r Report) error {
	sort.Slice(r.Threads, func(i, j int) bool { return r.Threads[i].Thread < r.Threads[j].Thread })
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}
