package junebench

// Report is the per-dataset aggregate produced by the Aggregator.
type Report struct {
	Dataset   string `json:"dataset"`
	ModelName string `json:"model_name"`
	Timestamp int64  `json:"timestamp"`

	TotalTasks  int     `json:"total_tasks"`
	PassedTests int     `json:"passed_tests"`
	PassAt1     float64 `json:"pass_at_1"`
	// PassAtK maps k -> pass@k, for k in {1, 5, 10, 100}.
	PassAtK map[int]float64 `json:"pass_at_k"`
	// SubstitutedK lists the k values that could not be computed directly
	// (n < k) and were substituted with the pass@n value instead.
	SubstitutedK []int `json:"substituted_k,omitempty"`

	AverageExecutionTime float64 `json:"average_execution_time"`
	AverageIterations    float64 `json:"average_iterations"`
	AverageCommands      float64 `json:"average_commands"`
	AverageTokens        float64 `json:"average_tokens"`

	EfficiencyScore float64 `json:"efficiency_score"`

	TaskResults []Result `json:"task_results"`

	BaselineComparisons []BaselineComparison `json:"baseline_comparisons"`
}

// BaselineComparison reports one baseline's metrics alongside this run's
// metrics and the deltas between them. Included for every baseline in the
// BaselineTable for the dataset, regardless of the sign of the delta.
type BaselineComparison struct {
	BaselineName string          `json:"baseline_name"`
	BaselinePassAt1 float64      `json:"baseline_pass_at_1"`
	BaselinePassAtK map[int]float64 `json:"baseline_pass_at_k"`
	OurPassAt1   float64         `json:"our_pass_at_1"`
	OurPassAtK   map[int]float64 `json:"our_pass_at_k"`
	DeltaPassAt1 float64         `json:"delta_pass_at_1"`
	DeltaPassAtK map[int]float64 `json:"delta_pass_at_k"`
}
