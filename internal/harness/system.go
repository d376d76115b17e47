package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/divverence/MarbleTesting/pkg/probe"
)

// system is the mapper under test. Every received marble is looked up in
// the route table; each matching route sends its events to its probe from
// a goroutine, optionally after a virtual delay. Immediate routes of one
// marble share a goroutine so their events keep route order.
type system struct {
	tracker *probe.Tracker
	sched   *probe.Scheduler
	probes  map[string]*probe.Probe[string]
	routes  map[string][]Route
	logger  *slog.Logger
}

func newSystem(s *Scenario, logger *slog.Logger) *system {
	tracker := probe.NewTracker()
	sys := &system{
		tracker: tracker,
		sched:   probe.NewScheduler(tracker),
		probes:  map[string]*probe.Probe[string]{DefaultProbe: probe.New[string]()},
		routes:  make(map[string][]Route),
		logger:  logger,
	}
	for _, r := range s.System {
		if r.Probe == "" {
			r.Probe = DefaultProbe
		}
		sys.probe(r.Probe)
		sys.routes[r.On] = append(sys.routes[r.On], r)
	}
	for _, e := range s.Expectations {
		sys.probe(probeName(e.Probe))
	}
	return sys
}

func probeName(name string) string {
	if name == "" {
		return DefaultProbe
	}
	return name
}

func (s *system) probe(name string) *probe.Probe[string] {
	p, ok := s.probes[name]
	if !ok {
		p = probe.New[string]()
		s.probes[name] = p
	}
	return p
}

// receive is the input action of every input timeline.
func (s *system) receive(_ context.Context, m string) error {
	routes, ok := s.routes[m]
	if !ok {
		s.logger.Debug("echo", "marble", m)
		s.emit([]Route{{On: m, Emit: []string{m}, Probe: DefaultProbe}})
		return nil
	}

	var now []Route
	for _, r := range routes {
		delay, err := r.Delay()
		if err != nil {
			return fmt.Errorf("route %q: after: %w", r.On, err)
		}
		s.logger.Debug("route", "marble", m, "emit", r.Emit, "probe", r.Probe, "after", delay)
		if delay <= 0 {
			now = append(now, r)
			continue
		}
		s.sched.Schedule(delay, func() { s.emit([]Route{r}) })
	}
	s.emit(now)
	return nil
}

// emit sends the events of routes in order from one goroutine.
func (s *system) emit(routes []Route) {
	if len(routes) == 0 {
		return
	}
	s.tracker.Go(func() {
		for _, r := range routes {
			out := s.probes[r.Probe]
			for _, e := range r.Emit {
				out.Send(e)
			}
		}
	})
}

// leftovers reports events no expectation consumed, per probe.
func (s *system) leftovers() map[string][]string {
	out := make(map[string][]string)
	for name, p := range s.probes {
		for {
			e, ok := p.Next()
			if !ok {
				break
			}
			out[name] = append(out[name], e)
		}
	}
	return out
}
