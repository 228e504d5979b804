package rfp

import (
	"fmt"
	"strings"
	"time"

	"rfp-launchpad-go/internal/model"
)

// FormatMarkdownReport 把一次流水线运行的结果渲染为 Markdown 报告，
// 交给下游投递层（邮件、文档生成等）使用。
func FormatMarkdownReport(result *model.RFPRunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# RFP Response Draft: %s\n\n", result.Breakdown.CompanyName)

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "%s\n\n", result.Breakdown.CompanyOverview)

	b.WriteString("## Objective\n\n")
	fmt.Fprintf(&b, "%s\n\n", result.Breakdown.Objective)

	b.WriteString("## Scope of Work\n\n")
	fmt.Fprintf(&b, "%s\n\n", result.Breakdown.ScopeOfWork)

	b.WriteString("## Questions & Answers\n\n")
	for i, answer := range result.Answers {
		fmt.Fprintf(&b, "### Q%d: %s\n\n", i+1, answer.Question)
		fmt.Fprintf(&b, "%s\n\n", answer.Answer)
		fmt.Fprintf(&b, "- Confidence: %s", answer.Confidence)
		if answer.Confidence != model.ConfidenceError {
			fmt.Fprintf(&b, " (avg relevance %.3f)", answer.AvgRelevanceScore)
		}
		b.WriteByte('\n')
		if answer.SME != nil {
			fmt.Fprintf(&b, "- Suggested SME: %s, %s (%s)\n", answer.SME.FullName, answer.SME.Role, answer.SME.Email)
		}
		if len(answer.Sources) > 0 {
			fmt.Fprintf(&b, "- Sources: %s\n", strings.Join(answer.Sources, "; "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "Generated %s · %d/%d questions answered · %.1fs elapsed\n",
		time.Time(result.Metadata.EndTime).Format("2006-01-02 15:04:05"),
		result.Metadata.QuestionsAnswered,
		result.Metadata.TotalQuestions,
		result.Metadata.ElapsedSeconds)

	return b.String()
}
