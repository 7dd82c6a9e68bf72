package logs

// Follower decides when a display should jump to the newest entry.
// It holds no reference to the data, only the last observed view length.
type Follower struct {
	enabled bool
	lastLen int
}

// NewFollower returns a follower with auto-follow set to enabled.
func NewFollower(enabled bool) *Follower {
	return &Follower{enabled: enabled, lastLen: -1}
}

// Enabled reports whether auto-follow is on.
func (f *Follower) Enabled() bool {
	return f.enabled
}

// SetEnabled turns auto-follow on or off.
func (f *Follower) SetEnabled(enabled bool) {
	f.enabled = enabled
}

// Toggle flips auto-follow and returns the new setting.
func (f *Follower) Toggle() bool {
	f.enabled = !f.enabled
	return f.enabled
}

// Observe records the current filtered view length and reports whether the
// display must advance to the newest entry. That happens only while
// enabled and only when the length differs from the previous observation.
func (f *Follower) Observe(viewLen int) bool {
	changed := viewLen != f.lastLen
	f.lastLen = viewLen
	return f.enabled && changed
}
