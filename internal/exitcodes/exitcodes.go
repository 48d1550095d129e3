package exitcodes

// Exit codes for treeclean
// These codes form the contract with scripts and CI jobs that call the tool
const (
	Success         = 0 // Traversal completed without delete failures
	InvalidConfig   = 2 // Configuration file invalid, or root missing
	SafetyViolation = 3 // Safety validator refused a delete
	RuntimeError    = 4 // A delete or traversal failed, or the run was interrupted
)
