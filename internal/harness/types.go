package harness

// Failure is how a marble run ended when it did not pass.
type Failure struct {
	// Kind is a timeline.FailureKind or "parse". Empty for failures outside
	// the taxonomy, such as a cancelled context.
	Kind string `json:"kind,omitempty"`

	// Tick is the failing tick, when known.
	Tick *int `json:"tick,omitempty"`

	// Message is the full error text, pointer included.
	Message string `json:"message"`
}

// TickOutcome records one tick of the run.
type TickOutcome struct {
	Tick  int    `json:"tick"`
	Pass  bool   `json:"pass"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// RunID identifies this execution in the run history.
	RunID string `json:"run_id,omitempty"`

	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass indicates overall scenario success: the run passed, or it failed
	// exactly as expect_failure describes.
	Pass bool `json:"pass"`

	// Failure is the run's own failure, nil if every tick passed.
	Failure *Failure `json:"failure,omitempty"`

	// Ticks lists every tick that ran, in order.
	Ticks []TickOutcome `json:"ticks"`

	// Unobserved holds events left on probes no expectation consumed.
	Unobserved map[string][]string `json:"unobserved,omitempty"`

	// Errors explains why Pass is false.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(runID, scenario string) *Result {
	return &Result{
		RunID:    runID,
		Scenario: scenario,
		Pass:     true,
		Ticks:    []TickOutcome{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTick records the outcome of a tick.
func (r *Result) AddTick(tick int, err error) {
	outcome := TickOutcome{Tick: tick, Pass: err == nil}
	if err != nil {
		outcome.Error = err.Error()
	}
	r.Ticks = append(r.Ticks, outcome)
}
