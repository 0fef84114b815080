package probe

import "sync"

// Probe binds an Env to an activation lifecycle. Detection runs exactly
// once per activation — repeated Activate or Snapshot calls within the
// same activation return the identical value, and the environment is not
// re-queried. Deactivate discards the snapshot; a later Activate starts
// a fresh activation.
//
// A Probe is safe for concurrent use, though detection itself is a
// synchronous one-shot and holds no resources between calls.
type Probe struct {
	env Env

	mu     sync.Mutex
	once   *sync.Once
	active bool
	snap   Snapshot
}

// New creates a Probe over env. The zero snapshot (all fields false) is
// returned by Snapshot until the first Activate.
func New(env Env) *Probe {
	return &Probe{env: env, once: new(sync.Once)}
}

// Activate runs detection if this activation has not run it yet and
// returns the snapshot. Idempotent within an activation.
func (p *Probe) Activate() Snapshot {
	p.mu.Lock()
	once := p.once
	p.mu.Unlock()

	once.Do(func() {
		snap := Detect(p.env)
		p.mu.Lock()
		p.snap = snap
		p.active = true
		p.mu.Unlock()
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Snapshot returns the current activation's snapshot, or the zero
// Snapshot when the probe is not active.
func (p *Probe) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Active reports whether detection has run in the current activation.
func (p *Probe) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Deactivate discards the snapshot. There is nothing else to release:
// detection holds no handles, timers, or subscriptions.
func (p *Probe) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.once = new(sync.Once)
	p.active = false
	p.snap = Snapshot{}
}
