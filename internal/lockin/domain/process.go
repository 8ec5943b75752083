package domain

// ProcessReport summarizes one process enforcement pass.
type ProcessReport struct {
	Matched    int
	Terminated int
	Killed     int
	// Vanished counts matches that exited before they could be signalled.
	Vanished int
	Skipped  []SkippedProcess
}

// SkippedProcess is a matching process that refused to be signalled.
type SkippedProcess struct {
	PID  int32
	Name string
	Err  error
}
