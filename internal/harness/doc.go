// Package harness runs marble scenarios described in files.
//
// A scenario wires a small mapper system: every input marble is looked up
// in a route table and turned into events on named probes, immediately or
// after a virtual delay. Expectation timelines then state what each probe
// observes per tick.
//
// # Scenario Format
//
// Scenarios are YAML (strict, unknown fields rejected) or CUE files:
//
//	name: fanout
//	description: "b fans out to an unordered group"
//	format_version: 1.1.0
//	parser: single
//	interval: 1s
//	system:
//	  - on: b
//	    emit: [c, b]
//	  - on: d
//	    emit: [d]
//	    after: 2s
//	inputs:
//	  - sequence: "ab---d"
//	expectations:
//	  - sequence: "a<bc>-----d"
//
// An expect_failure block (kind and optional tick) inverts the verdict: the
// scenario passes only if the run fails that way.
//
// Marbles without a route are echoed to the "out" probe. Marble strings are
// NFC-normalized on load.
//
// # Deterministic Testing
//
// Runs use virtual time only and, by default, a fixed run id, so Report
// renders byte-identical output across runs for golden comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/fanout.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err == nil && !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
