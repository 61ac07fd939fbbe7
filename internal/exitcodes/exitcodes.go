package exitcodes

// Exit codes for the sftp-tools commands
// These codes form the operational contract with scripts and operators
const (
	Success         = 0 // Every entry processed without error
	PartialFailure  = 1 // Run completed but one or more entries failed
	InvalidConfig   = 2 // Bad arguments or configuration
	SafetyViolation = 3 // Safety validator refused the remote root
	RuntimeError    = 4 // Listing or local I/O failure aborted the run
	ConnectionError = 5 // Could not connect or authenticate to the server
)
