package junebench

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
)

// WriteReportMarkdown renders report as Markdown and HTML alongside its
// evaluation_report.json, giving a skimmable summary next to the machine
// artifact. Non-fatal failures from either write surface as ErrArtifactWrite.
func WriteReportMarkdown(outDir string, report Report) error {
	dir := filepath.Join(outDir, report.Dataset)
	md := renderReportMarkdown(report)

	mdPath := filepath.Join(dir, "evaluation_report.md")
	if err := writeFileAtomic(mdPath, []byte(md), 0o640); err != nil {
		return &ErrArtifactWrite{Path: mdPath, Cause: err}
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &htmlBuf); err != nil {
		return &ErrArtifactWrite{Path: mdPath, Cause: fmt.Errorf("render html: %w", err)}
	}

	htmlPath := filepath.Join(dir, "evaluation_report.html")
	if err := writeFileAtomic(htmlPath, htmlBuf.Bytes(), 0o640); err != nil {
		return &ErrArtifactWrite{Path: htmlPath, Cause: err}
	}
	return nil
}

func renderReportMarkdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Evaluation Report: %s\n\n", r.Dataset)
	fmt.Fprintf(&b, "- **Model**: %s\n", r.ModelName)
	fmt.Fprintf(&b, "- **Total tasks**: %d\n", r.TotalTasks)
	fmt.Fprintf(&b, "- **Passed**: %d\n", r.PassedTests)
	fmt.Fprintf(&b, "- **pass@1**: %.4f\n\n", r.PassAt1)

	b.WriteString("## pass@k\n\n")
	b.WriteString("| k | value | substituted |\n")
	b.WriteString("|---|-------|-------------|\n")
	ks := make([]int, 0, len(r.PassAtK))
	for k := range r.PassAtK {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	substituted := make(map[int]bool, len(r.SubstitutedK))
	for _, k := range r.SubstitutedK {
		substituted[k] = true
	}
	for _, k := range ks {
		mark := ""
		if substituted[k] {
			mark = "yes"
		}
		fmt.Fprintf(&b, "| %d | %.4f | %s |\n", k, r.PassAtK[k], mark)
	}

	b.WriteString("\n## Execution profile\n\n")
	fmt.Fprintf(&b, "- Average execution time: %.2fs\n", r.AverageExecutionTime)
	fmt.Fprintf(&b, "- Average iterations: %.2f\n", r.AverageIterations)
	fmt.Fprintf(&b, "- Average commands: %.2f\n", r.AverageCommands)
	fmt.Fprintf(&b, "- Average tokens: %.2f\n", r.AverageTokens)
	fmt.Fprintf(&b, "- Efficiency score: %.4f\n", r.EfficiencyScore)

	if len(r.BaselineComparisons) > 0 {
		b.WriteString("\n## Baseline comparisons\n\n")
		b.WriteString("| baseline | baseline pass@1 | our pass@1 | delta |\n")
		b.WriteString("|----------|------------------|------------|-------|\n")
		for _, c := range r.BaselineComparisons {
			fmt.Fprintf(&b, "| %s | %.4f | %.4f | %+.4f |\n",
				c.BaselineName, c.BaselinePassAt1, c.OurPassAt1, c.DeltaPassAt1)
		}
	}

	return b.String()
}
