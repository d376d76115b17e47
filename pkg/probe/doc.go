// Package probe is a small in-process runtime for marble tests of Go code.
//
// It provides the three capabilities a marble test needs from the system
// under test:
//
//   - Probe collects emitted events and hands them out one at a time.
//   - Tracker counts in-flight work and reports when the system is idle.
//   - Scheduler is a virtual clock whose timers only fire on Advance.
//
// A typical wiring:
//
//	tracker := probe.NewTracker()
//	sched := probe.NewScheduler(tracker)
//	out := probe.New[string]()
//	test := marbletest.New(tracker.WaitIdle, sched.Advance)
package probe
