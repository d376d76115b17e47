package testutil

import "sync"

// Absent is the script entry for a call that finds nothing pending.
const Absent = ""

// ScriptedProducer replays a fixed list of producer results.
//
// Every call to Next consumes one entry, including Absent ones, so a script
// such as Script(Absent, "a") reports nothing at the first call and "a" at
// the second. Once the script is exhausted Next keeps reporting nothing.
//
// Thread-safety: ScriptedProducer is safe for concurrent use via internal mutex.
type ScriptedProducer struct {
	mu      sync.Mutex
	entries []string
	idx     int
	calls   int
}

// Script creates a producer that returns entries in order.
func Script(entries ...string) *ScriptedProducer {
	return &ScriptedProducer{entries: entries}
}

// Next returns the next scripted entry.
func (p *ScriptedProducer) Next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.idx >= len(p.entries) {
		return "", false
	}
	e := p.entries[p.idx]
	p.idx++
	return e, e != Absent
}

// Calls returns how often Next was called.
func (p *ScriptedProducer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Remaining returns the entries not consumed yet.
func (p *ScriptedProducer) Remaining() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.entries[p.idx:]...)
}
