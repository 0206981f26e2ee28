package junebench

import "math"

// passAtKValues is the set of k values the Aggregator reports pass@k for.
var passAtKValues = []int{1, 5, 10, 100}

// passAtK computes the unbiased pass@k estimator for one task with n
// attempts, c of which passed. When n < k, k is substituted with n (the
// best available estimate); substituted reports which k that was.
func passAtK(n, c, k int) (value float64, substituted bool) {
	if n <= 0 {
		return 0, false
	}
	if n < k {
		k = n
		substituted = true
	}
	if n-c < k {
		return 1, substituted
	}
	return 1 - combRatio(n-c, n, k), substituted
}

// combRatio computes C(a, k) / C(n, k) in log space via lgamma, avoiding the
// overflow that computing each binomial coefficient directly would hit for
// n approaching 100.
func combRatio(a, n, k int) float64 {
	logC := func(total, choose int) float64 {
		l1, _ := math.Lgamma(float64(total + 1))
		l2, _ := math.Lgamma(float64(choose + 1))
		l3, _ := math.Lgamma(float64(total-choose+1))
		return l1 - l2 - l3
	}
	return math.Exp(logC(a, k) - logC(n, k))
}

// taskOutcome is the per-task summary the Aggregator needs before it can
// compute dataset-level pass@k: how many attempts, how many passed.
type taskOutcome struct {
	attempts int
	passed   int
}

// BuildReport reduces a flat list of per-attempt Results into a Report.
// Results must all share one dataset; an empty slice is a typed error since
// there is no meaningful report to build.
func BuildReport(dataset, modelName string, timestamp int64, results []Result) (Report, error) {
	if len(results) == 0 {
		return Report{}, &ErrEmptyResults{Dataset: dataset}
	}

	byTask := map[string]*taskOutcome{}
	for _, r := range results {
		o := byTask[r.TaskID]
		if o == nil {
			o = &taskOutcome{}
			byTask[r.TaskID] = o
		}
		o.attempts++
		if r.PassedTests {
			o.passed++
		}
	}

	passAt1Sum := 0.0
	passAtKSum := map[int]float64{}
	substitutedSet := map[int]bool{}
	for _, o := range byTask {
		p1, _ := passAtK(o.attempts, o.passed, 1)
		passAt1Sum += p1
		for _, k := range passAtKValues {
			v, sub := passAtK(o.attempts, o.passed, k)
			passAtKSum[k] += v
			if sub {
				substitutedSet[k] = true
			}
		}
	}
	numTasks := len(byTask)
	passAt1 := passAt1Sum / float64(numTasks)
	passAtKMean := make(map[int]float64, len(passAtKValues))
	for _, k := range passAtKValues {
		passAtKMean[k] = passAtKSum[k] / float64(numTasks)
	}
	var substitutedK []int
	for _, k := range passAtKValues {
		if substitutedSet[k] {
			substitutedK = append(substitutedK, k)
		}
	}

	passedTests := 0
	var execTimeSum, execTimeCount float64
	var iterSum, iterCount float64
	var cmdSum, cmdCount float64
	var tokenSum, tokenCount float64
	for _, r := range results {
		if r.PassedTests {
			passedTests++
		}
		execTimeSum += r.ExecutionTimeSeconds
		execTimeCount++
		if r.AgentIterations > 0 {
			iterSum += float64(r.AgentIterations)
			iterCount++
		}
		if r.CommandsExecuted > 0 {
			cmdSum += float64(r.CommandsExecuted)
			cmdCount++
		}
		if r.TokensGenerated > 0 {
			tokenSum += float64(r.TokensGenerated)
			tokenCount++
		}
	}

	avg := func(sum, count float64) float64 {
		if count == 0 {
			return 0
		}
		return sum / count
	}
	avgExecTime := avg(execTimeSum, execTimeCount)
	avgIterations := avg(iterSum, iterCount)
	avgCommands := avg(cmdSum, cmdCount)
	avgTokens := avg(tokenSum, tokenCount)

	efficiency := 0.5*passAt1 +
		0.2/(1+avgExecTime/60) +
		0.15/(1+avgIterations/5) +
		0.15/(1+avgCommands/20)

	return Report{
		Dataset:              dataset,
		ModelName:            modelName,
		Timestamp:            timestamp,
		TotalTasks:           numTasks,
		PassedTests:          passedTests,
		PassAt1:              passAt1,
		PassAtK:              passAtKMean,
		SubstitutedK:         substitutedK,
		AverageExecutionTime: avgExecTime,
		AverageIterations:    avgIterations,
		AverageCommands:      avgCommands,
		AverageTokens:        avgTokens,
		EfficiencyScore:      efficiency,
		TaskResults:          results,
		BaselineComparisons:  compareBaselines(dataset, passAt1, passAtKMean),
	}, nil
}
