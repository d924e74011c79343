// Package scenario loads simulation scenarios from HCL files.
//
// A scenario fixes the processor count, the plan of every process and,
// optionally, the session order the run is expected to produce:
//
//	processors = 1
//
//	process "p0" {
//	  priority    = 1
//	  start_after = "0ms"
//	  sessions    = ["150ms", "0ms", "0ms"]
//	}
//
//	expect = ["pid=0, session=0", "pid=0, session=1", "pid=0, session=2"]
package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/Andrej220/go-utils/procsched"
	"github.com/Andrej220/go-utils/procsched/internal/sim"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("scenario: invalid")

// Scenario is a decoded, validated scenario file.
type Scenario struct {
	Processors int
	Processes  []sim.Process

	// Expect is the expected event order, empty when the file sets none.
	Expect []string
}

// hclScenarioFile is the top-level structure of a scenario file.
type hclScenarioFile struct {
	Processors int           `hcl:"processors,attr"`
	Processes  []*hclProcess `hcl:"process,block"`
	Expect     []string      `hcl:"expect,optional"`
}

type hclProcess struct {
	Name       string    `hcl:"name,label"`
	Priority   int       `hcl:"priority,attr"`
	StartAfter string    `hcl:"start_after,optional"`
	Sessions   []string  `hcl:"sessions,attr"`
	Release    *bool     `hcl:"release,optional"`
	Retry      *hclRetry `hcl:"retry,block"`
}

type hclRetry struct {
	Attempts int    `hcl:"attempts,optional"`
	Initial  string `hcl:"initial,optional"`
	Max      string `hcl:"max,optional"`
}

// Load parses and validates the scenario file at path.
func Load(path string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(file, path)
}

// Parse parses and validates scenario source. filename is used in
// diagnostics only.
func Parse(src []byte, filename string) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (*Scenario, error) {
	var parsed hclScenarioFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	if parsed.Processors < 0 {
		return nil, fmt.Errorf("%w: %s: processors must be >= 0, got %d", ErrInvalid, filename, parsed.Processors)
	}
	if len(parsed.Processes) == 0 {
		return nil, fmt.Errorf("%w: %s: no process blocks", ErrInvalid, filename)
	}

	sc := &Scenario{
		Processors: parsed.Processors,
		Expect:     parsed.Expect,
	}
	seen := make(map[string]bool, len(parsed.Processes))
	for _, hp := range parsed.Processes {
		if seen[hp.Name] {
			return nil, fmt.Errorf("%w: %s: duplicate process %q", ErrInvalid, filename, hp.Name)
		}
		seen[hp.Name] = true

		p, err := hp.toProcess()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: process %q: %w", ErrInvalid, filename, hp.Name, err)
		}
		sc.Processes = append(sc.Processes, p)
	}
	return sc, nil
}

func (hp *hclProcess) toProcess() (sim.Process, error) {
	p := sim.Process{
		Name:     hp.Name,
		Priority: procsched.Priority(hp.Priority),
		Release:  hp.Release == nil || *hp.Release,
	}

	var err error
	if p.StartAfter, err = parseDuration("start_after", hp.StartAfter); err != nil {
		return p, err
	}
	if len(hp.Sessions) == 0 {
		return p, errors.New("at least one session is required")
	}
	for i, s := range hp.Sessions {
		d, err := parseDuration(fmt.Sprintf("sessions[%d]", i), s)
		if err != nil {
			return p, err
		}
		p.Sessions = append(p.Sessions, d)
	}

	if hp.Retry != nil {
		rp := &sim.RetryPolicy{Attempts: hp.Retry.Attempts}
		if rp.Initial, err = parseDuration("retry.initial", hp.Retry.Initial); err != nil {
			return p, err
		}
		if rp.Max, err = parseDuration("retry.max", hp.Retry.Max); err != nil {
			return p, err
		}
		p.Retry = rp
	}
	return p, nil
}

// parseDuration accepts Go duration strings; an empty string means zero.
func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", field, s)
	}
	return d, nil
}
