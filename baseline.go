package junebench

// Baseline is one published model's pass@k numbers for a dataset, used to
// compute BaselineComparisons in BuildReport.
//
// Figures are approximate, taken from public papers and leaderboards at the
// time the dataset was added; they are not re-derived from our own runs.
type Baseline struct {
	Name    string
	PassAtK map[int]float64 // always carries k in {1, 5, 10, 100}
}

// BaselineTable maps dataset name to the baselines it's compared against.
// Datasets with no entry here simply get no BaselineComparisons.
var BaselineTable = map[string][]Baseline{
	"humaneval": {
		{Name: "GPT-4", PassAtK: map[int]float64{1: 0.674, 5: 0.90, 10: 0.95, 100: 0.99}},
		{Name: "Claude-3-Opus", PassAtK: map[int]float64{1: 0.84, 5: 0.92, 10: 0.95, 100: 0.98}},
		{Name: "Qwen2.5-32B", PassAtK: map[int]float64{1: 0.75, 5: 0.88, 10: 0.92, 100: 0.97}},
		{Name: "GPT-3.5-Turbo", PassAtK: map[int]float64{1: 0.48, 5: 0.70, 10: 0.78, 100: 0.90}},
	},
	"mbpp": {
		{Name: "GPT-4", PassAtK: map[int]float64{1: 0.83, 5: 0.92, 10: 0.95, 100: 0.98}},
		{Name: "Claude-3-Opus", PassAtK: map[int]float64{1: 0.87, 5: 0.94, 10: 0.96, 100: 0.99}},
		{Name: "Qwen2.5-32B", PassAtK: map[int]float64{1: 0.80, 5: 0.90, 10: 0.93, 100: 0.97}},
	},
}

// compareBaselines builds a BaselineComparison against every baseline
// registered for dataset. ourPassAtK need not carry every k in {1,5,10,100};
// missing entries fall back to ourPassAt1, matching how a partial pass@k
// table (e.g. only k=1 computed) is still comparable against full baseline
// tables.
func compareBaselines(dataset string, ourPassAt1 float64, ourPassAtK map[int]float64) []BaselineComparison {
	baselines, ok := BaselineTable[dataset]
	if !ok {
		return nil
	}

	ks := []int{1, 5, 10, 100}
	ours := make(map[int]float64, len(ks))
	for _, k := range ks {
		if v, ok := ourPassAtK[k]; ok {
			ours[k] = v
		} else {
			ours[k] = ourPassAt1
		}
	}

	comparisons := make([]BaselineComparison, 0, len(baselines))
	for _, b := range baselines {
		delta := make(map[int]float64, len(ks))
		for _, k := range ks {
			base, ok := b.PassAtK[k]
			if !ok {
				base = b.PassAtK[1]
			}
			delta[k] = ours[k] - base
		}
		comparisons = append(comparisons, BaselineComparison{
			BaselineName:    b.Name,
			BaselinePassAt1: b.PassAtK[1],
			BaselinePassAtK: b.PassAtK,
			OurPassAt1:      ourPassAt1,
			OurPassAtK:      ours,
			DeltaPassAt1:    ourPassAt1 - b.PassAtK[1],
			DeltaPassAtK:    delta,
		})
	}
	return comparisons
}
