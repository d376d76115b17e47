package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/divverence/MarbleTesting/pkg/marble"
	"github.com/divverence/MarbleTesting/pkg/timeline"
)

// FormatVersion is the scenario format this harness writes and reads.
const FormatVersion = "1.1.0"

// supportedFormats lists the format_version values a scenario may declare.
const supportedFormats = ">= 1.0.0, < 2.0.0"

// DefaultProbe is the probe routes emit to when they name none.
const DefaultProbe = "out"

// Scenario defines a marble test run against the mapper system.
// The mapper turns every input marble into the events of its routes;
// expectations then describe what each probe must observe per tick.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden report.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// FormatVersion is the scenario format the file was written for.
	// Empty means the current format.
	FormatVersion string `yaml:"format_version,omitempty" json:"format_version,omitempty"`

	// Parser selects the diagram syntax: "single" (default) or "multi".
	Parser string `yaml:"parser,omitempty" json:"parser,omitempty"`

	// Interval is the virtual time one tick lasts, as a Go duration.
	// Routes with a delay need it.
	Interval string `yaml:"interval,omitempty" json:"interval,omitempty"`

	// System maps input marbles to emitted events. Marbles without a route
	// are echoed to the default probe.
	System []Route `yaml:"system,omitempty" json:"system,omitempty"`

	// Inputs are the timelines fed to the system.
	Inputs []InputTimeline `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	// Expectations are the timelines checked against the probes.
	Expectations []ExpectationTimeline `yaml:"expectations" json:"expectations"`

	// ExpectFailure turns the scenario around: it passes only if the run
	// fails this way.
	ExpectFailure *ExpectedFailure `yaml:"expect_failure,omitempty" json:"expect_failure,omitempty"`

	// Digest identifies the scenario's content. Set by the loaders.
	Digest string `yaml:"-" json:"-"`
}

// Route emits events when the system receives a marble.
type Route struct {
	// On is the input marble this route reacts to.
	On string `yaml:"on" json:"on"`

	// Emit lists the events sent, in order. An empty list swallows the marble.
	Emit []string `yaml:"emit" json:"emit"`

	// After delays the emission by a virtual duration.
	After string `yaml:"after,omitempty" json:"after,omitempty"`

	// Probe names the receiving probe. Defaults to "out".
	Probe string `yaml:"probe,omitempty" json:"probe,omitempty"`
}

// Delay parses After. An empty After is no delay.
func (r Route) Delay() (time.Duration, error) {
	if r.After == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.After)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", r.After)
	}
	return d, nil
}

// InputTimeline is a diagram of marbles sent to the system.
type InputTimeline struct {
	Sequence string `yaml:"sequence" json:"sequence"`
}

// ExpectationTimeline is a diagram of events a probe must observe.
type ExpectationTimeline struct {
	Sequence string `yaml:"sequence" json:"sequence"`

	// Probe defaults to "out".
	Probe string `yaml:"probe,omitempty" json:"probe,omitempty"`

	// Mode is "strict" (default) or "at_least".
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// ExpectedFailure describes the failure a scenario is expected to end with.
type ExpectedFailure struct {
	// Kind is a failure kind: missing_event, unexpected_events, assertion,
	// action or parse.
	Kind string `yaml:"kind" json:"kind"`

	// Tick pins the failing tick when set.
	Tick *int `yaml:"tick,omitempty" json:"tick,omitempty"`
}

// Expectation modes.
const (
	ModeStrict  = "strict"
	ModeAtLeast = "at_least"
)

// FailureParse marks a scenario whose diagrams do not parse.
const FailureParse timeline.FailureKind = "parse"

var failureKinds = map[timeline.FailureKind]bool{
	timeline.FailureMissingEvent:     true,
	timeline.FailureUnexpectedEvents: true,
	timeline.FailureAssertion:        true,
	timeline.FailureAction:           true,
	FailureParse:                     true,
}

// LoadScenario reads a scenario file. ".yaml" and ".yml" files are decoded
// strictly, rejecting unknown fields; ".cue" files are evaluated with CUE and
// decoded into the same structure.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		scenario, err = ParseYAML(data)
	case ".cue":
		scenario, err = ParseCUE(filepath.Base(path), data)
	default:
		return nil, fmt.Errorf("unsupported scenario file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return scenario, nil
}

// ParseYAML decodes and validates a YAML scenario.
func ParseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // typos such as "expectation:" fail loudly
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&scenario)
}

// ParseCUE evaluates and validates a CUE scenario. filename only labels
// error positions.
func ParseCUE(filename string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	var scenario Scenario
	if err := v.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return finish(&scenario)
}

func finish(s *Scenario) (*Scenario, error) {
	s.normalize()
	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	digest, err := digestScenario(s)
	if err != nil {
		return nil, err
	}
	s.Digest = digest
	return s, nil
}

// normalize puts every marble string into NFC so that a precomposed and a
// decomposed accent name the same marble.
func (s *Scenario) normalize() {
	for i := range s.System {
		r := &s.System[i]
		r.On = norm.NFC.String(r.On)
		for j := range r.Emit {
			r.Emit[j] = norm.NFC.String(r.Emit[j])
		}
	}
	for i := range s.Inputs {
		s.Inputs[i].Sequence = norm.NFC.String(s.Inputs[i].Sequence)
	}
	for i := range s.Expectations {
		s.Expectations[i].Sequence = norm.NFC.String(s.Expectations[i].Sequence)
	}
}

// Parse returns the diagram parser the scenario selects.
func (s *Scenario) Parse() marble.Parser {
	p, ok := marble.ParserByName(s.Parser)
	if !ok {
		return marble.Parse
	}
	return p
}

// TickInterval returns the parsed interval, zero when none is set.
func (s *Scenario) TickInterval() time.Duration {
	d, _ := time.ParseDuration(s.Interval)
	return d
}

// validateScenario checks that required fields are present and valid.
// Diagram syntax is not checked here; parse errors are a run outcome.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if err := checkFormat(s.FormatVersion); err != nil {
		return err
	}

	if _, ok := marble.ParserByName(s.Parser); !ok {
		return fmt.Errorf("unknown parser %q (want single or multi)", s.Parser)
	}

	var interval time.Duration
	if s.Interval != "" {
		d, err := time.ParseDuration(s.Interval)
		if err != nil {
			return fmt.Errorf("interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("interval must be positive, got %s", s.Interval)
		}
		interval = d
	}

	if len(s.Expectations) == 0 {
		return fmt.Errorf("expectations list is required and must be non-empty")
	}

	for i, r := range s.System {
		if r.On == "" {
			return fmt.Errorf("system[%d]: on is required", i)
		}
		d, err := r.Delay()
		if err != nil {
			return fmt.Errorf("system[%d].after: %w", i, err)
		}
		if d > 0 && interval == 0 {
			return fmt.Errorf("system[%d]: a delayed route needs an interval", i)
		}
	}

	for i, e := range s.Expectations {
		switch e.Mode {
		case "", ModeStrict, ModeAtLeast:
		default:
			return fmt.Errorf("expectations[%d]: unknown mode %q", i, e.Mode)
		}
	}

	if f := s.ExpectFailure; f != nil {
		if f.Kind == "" {
			return fmt.Errorf("expect_failure: kind is required")
		}
		if !failureKinds[timeline.FailureKind(f.Kind)] {
			return fmt.Errorf("expect_failure: unknown kind %q", f.Kind)
		}
	}

	return nil
}

func checkFormat(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("format_version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		return fmt.Errorf("format constraint: %w", err)
	}
	if !c.Check(v) {
		return fmt.Errorf("format_version %s is not supported (want %s)", v, supportedFormats)
	}
	if v.GreaterThan(semver.MustParse(FormatVersion)) {
		return fmt.Errorf("format_version %s is newer than this harness (%s)", v, FormatVersion)
	}
	return nil
}
