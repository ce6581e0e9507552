package models

import "sort"

// Criteria lists the five scoring criteria, in the order the judge is
// instructed to present them. Each is scored out of 10.
var Criteria = []string{"Accuracy", "Depth", "Clarity", "Reasoning", "Relevance"}

// ModelScore is one agent's scoring as recovered from the judge's text.
type ModelScore struct {
	// Name is the agent display name the score belongs to.
	Name string `json:"name"`
	// Accuracy is the accuracy score (0-10).
	Accuracy int `json:"accuracy"`
	// Depth is the depth score (0-10).
	Depth int `json:"depth"`
	// Clarity is the clarity score (0-10).
	Clarity int `json:"clarity"`
	// Reasoning is the reasoning score (0-10).
	Reasoning int `json:"reasoning"`
	// Relevance is the relevance score (0-10).
	Relevance int `json:"relevance"`
	// Total is the overall score out of 50. It is the sum of the five
	// criteria unless the judge stated an explicit total, in which case
	// the judge's figure is recorded even if it disagrees with the sum.
	Total int `json:"total"`
	// Justification is the judge's free-text justification, possibly empty.
	Justification string `json:"justification,omitempty"`
}

// Sum returns the sum of the five criterion scores.
func (s *ModelScore) Sum() int {
	return s.Accuracy + s.Depth + s.Clarity + s.Reasoning + s.Relevance
}

// Verdict is the final result of a run: the judge's structured scoring,
// or a raw-text fallback when the judge was unreachable or unparsable.
type Verdict struct {
	// Parsed is true iff at least one ModelScore was recovered.
	Parsed bool `json:"parsed"`
	// Scores holds one entry per agent the judge actually scored.
	Scores []ModelScore `json:"scores,omitempty"`
	// Ranking lists agent display names best to worst. Entries that could
	// not be matched to a known agent keep the judge's literal text.
	Ranking []string `json:"ranking,omitempty"`
	// Winner is the display name of the winning agent, possibly empty.
	Winner string `json:"winner,omitempty"`
	// Summary is the judge's closing summary, possibly empty.
	Summary string `json:"summary,omitempty"`
	// Raw is the judge's full response text, always retained as fallback.
	Raw string `json:"raw"`
}

// SortScores orders the verdict's scores by total, descending.
// Ties keep their relative order.
func (v *Verdict) SortScores() {
	sort.SliceStable(v.Scores, func(i, j int) bool {
		return v.Scores[i].Total > v.Scores[j].Total
	})
}

// ScoreFor returns the score for the given display name, or nil.
func (v *Verdict) ScoreFor(name string) *ModelScore {
	for i := range v.Scores {
		if v.Scores[i].Name == name {
			return &v.Scores[i]
		}
	}
	return nil
}
