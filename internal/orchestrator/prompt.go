package orchestrator

import (
	"fmt"
	"strings"

	"github.com/shayc/council/pkg/models"
)

// responseLabels are the anonymization labels assigned to completed
// responses, in completed-subset order.
var responseLabels = []string{"A", "B", "C", "D"}

// BuiltPrompt is the judge's input text plus the label-to-name mapping
// used to build it. The parser re-identifies agents by display name from
// the judge's own headings, so the mapping is informational for callers
// that want to de-anonymize intermediate output.
type BuiltPrompt struct {
	// Text is the complete judge prompt.
	Text string
	// Labels maps anonymization label ("A") to agent display name.
	Labels map[string]string
}

// BuildEvaluationPrompt synthesizes the judge's input from the original
// prompt and the per-agent results. Completed responses are anonymized as
// Response A, B, C... in list order; failed agents are disclosed so the
// judge does not try to score answers it never saw.
//
// The output template is deliberately over-specified: ParseVerdict depends
// on the section markers, so any customization must preserve them or
// parsing degrades to the raw fallback.
func BuildEvaluationPrompt(originalPrompt string, records []*models.ResultRecord) BuiltPrompt {
	var completed, failed []*models.ResultRecord
	for _, r := range records {
		if r.Status == models.StatusComplete && r.Response != "" {
			completed = append(completed, r)
		} else {
			failed = append(failed, r)
		}
	}

	labels := make(map[string]string, len(completed))

	var b strings.Builder
	b.WriteString("You are an impartial judge evaluating answers from multiple AI assistants.\n\n")
	b.WriteString("The original question was:\n\n")
	b.WriteString(originalPrompt)
	b.WriteString("\n\n")

	if len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, r := range failed {
			names = append(names, r.Name)
		}
		fmt.Fprintf(&b, "Note: %s did not respond and must not be scored or ranked.\n\n",
			strings.Join(names, ", "))
	}

	b.WriteString("Here are the responses:\n\n")
	for i, r := range completed {
		label := responseLabels[i]
		labels[label] = r.Name
		fmt.Fprintf(&b, "## Response %s (%s)\n\n%s\n\n", label, r.Name, r.Response)
	}

	b.WriteString(scoringInstructions)
	b.WriteString("\n")
	b.WriteString("Use exactly this output format:\n\n")
	b.WriteString("## Evaluation Results\n\n")

	for _, r := range completed {
		fmt.Fprintf(&b, "### %s\n", r.Name)
		b.WriteString("| Criterion | Score |\n")
		b.WriteString("| --- | --- |\n")
		for _, c := range models.Criteria {
			fmt.Fprintf(&b, "| %s | X / 10 |\n", c)
		}
		b.WriteString("**Total: X / 50**\n")
		b.WriteString("**Justification:** one or two sentences\n\n")
	}

	b.WriteString("### Final Ranking\n")
	for i := range completed {
		fmt.Fprintf(&b, "%d. name — total/50\n", i+1)
	}
	b.WriteString("\n### Winner: name\n")
	b.WriteString("**Summary:** one paragraph comparing the responses\n")

	return BuiltPrompt{Text: b.String(), Labels: labels}
}

// scoringInstructions names the five criteria the judge scores out of 10.
const scoringInstructions = `Score every response on these five criteria, each out of 10:

1. Accuracy — factual correctness of the answer
2. Depth — thoroughness and coverage of the topic
3. Clarity — organization and readability
4. Reasoning — quality of the argument or explanation
5. Relevance — how directly the question is addressed

Use the response's real assistant name (given in parentheses above) as its
section heading. Score only the responses shown above.
`
