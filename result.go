package junebench

// Result is the outcome of one (task, attempt).
//
// Invariants: PassedTests implies Success. If PassedTests is false, either
// ErrorMessage is set or the attempt legitimately produced a solution that
// simply failed its tests (PassedTests=false with no ErrorMessage is only
// valid when tests actually ran and failed normally).
type Result struct {
	TaskID        string `json:"task_id"`
	Dataset       string `json:"dataset"`
	AttemptNumber int    `json:"attempt_number"`

	SolutionCode *string `json:"solution_code"`
	Success      bool    `json:"success"`
	PassedTests  bool    `json:"passed_tests"`
	ErrorMessage string  `json:"error_message,omitempty"`

	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	AgentIterations      int     `json:"agent_iterations"`
	CommandsExecuted     int     `json:"commands_executed"`
	FilesCreated         int     `json:"files_created"`
	FilesModified        int     `json:"files_modified"`
	TokensGenerated      int     `json:"tokens_generated,omitempty"`

	SandboxMetrics Metrics `json:"sandbox_metrics"`
}
