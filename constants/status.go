package constants

// RunStatus is the canonical status for rows in protocol_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"   // in progress
	RunStatusExtracted RunStatus = "EXTRACTED" // record assembled and rendered
	RunStatusFailed    RunStatus = "FAILED"    // error stub rendered
)
