package engine

// ForegroundCorrelation pairs an importance report with the app-name report
// that follows it, and holds the screen state that decides whether the
// resulting instance counts as in use.
type ForegroundCorrelation struct {
	pid      string
	pending  bool
	ScreenOn bool
	Unlocked bool
}

// Expect records pid as the outstanding foreground process.
func (f *ForegroundCorrelation) Expect(pid string) {
	f.pid = pid
	f.pending = true
}

// Pending reports whether a pid is outstanding.
func (f *ForegroundCorrelation) Pending() bool {
	return f.pending
}

// Resolve reports whether pid matches the outstanding one and clears it either way.
func (f *ForegroundCorrelation) Resolve(pid string) bool {
	matched := f.pending && f.pid == pid
	f.pid = ""
	f.pending = false
	return matched
}

// InUse reports whether the screen is on and unlocked.
func (f *ForegroundCorrelation) InUse() bool {
	return f.ScreenOn && f.Unlocked
}
