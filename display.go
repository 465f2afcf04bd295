package console

import (
	"sync"
)

// DisplayOptions is the mutable display state of a session: the verbosity
// flag, the two templates, and the current message callback. Setters run on
// the command context while the receive loop reads concurrently; every read
// observes a fully written value, last writer wins.
type DisplayOptions struct {
	mu          sync.RWMutex
	verbose     bool
	longFormat  string
	shortFormat string
	callback    Callback
}

// DisplaySnapshot is a consistent view of the display state, taken once per
// received message.
type DisplaySnapshot struct {
	Verbose  bool
	Template string
	Callback Callback
}

func NewDisplayOptions() *DisplayOptions {
	return &DisplayOptions{
		longFormat:  DefaultLongFormat,
		shortFormat: DefaultShortFormat,
	}
}

func (d *DisplayOptions) SetVerbose(v bool) {
	d.mu.Lock()
	d.verbose = v
	d.mu.Unlock()
}

// ToggleVerbose flips the verbosity flag and returns the new value.
func (d *DisplayOptions) ToggleVerbose() bool {
	d.mu.Lock()
	d.verbose = !d.verbose
	v := d.verbose
	d.mu.Unlock()
	return v
}

func (d *DisplayOptions) SetLongFormat(f string) {
	d.mu.Lock()
	d.longFormat = f
	d.mu.Unlock()
}

func (d *DisplayOptions) SetShortFormat(f string) {
	d.mu.Lock()
	d.shortFormat = f
	d.mu.Unlock()
}

// SetCallback swaps the message callback. The slot is replaced whole, never
// partially overwritten.
func (d *DisplayOptions) SetCallback(cb Callback) {
	d.mu.Lock()
	d.callback = cb
	d.mu.Unlock()
}

func (d *DisplayOptions) Verbose() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.verbose
}

// Template returns the long template when verbose, the short one otherwise.
func (d *DisplayOptions) Template() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.verbose {
		return d.longFormat
	}
	return d.shortFormat
}

// Snapshot returns the current display state as one consistent read.
func (d *DisplayOptions) Snapshot() DisplaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tmpl := d.shortFormat
	if d.verbose {
		tmpl = d.longFormat
	}
	return DisplaySnapshot{
		Verbose:  d.verbose,
		Template: tmpl,
		Callback: d.callback,
	}
}
