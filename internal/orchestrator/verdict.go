package orchestrator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shayc/council/pkg/models"
)

// Regular expressions for scanning judge output. The parser locates
// section boundaries first, then applies narrow per-field extraction
// inside each bounded section, so a malformed field corrupts one value
// instead of the whole response.
var (
	// headingPattern matches any markdown heading line.
	headingPattern = regexp.MustCompile(`(?m)^#{1,6}[^\S\n].*$`)
	// resultsPattern matches the "## Evaluation Results" marker.
	resultsPattern = regexp.MustCompile(`(?im)^#{1,6}\s*evaluation results\s*$`)
	// rankingPattern matches the "### Final Ranking" heading.
	rankingPattern = regexp.MustCompile(`(?im)^#{1,6}\s*final ranking\s*:?\s*$`)
	// rankingEntryPattern matches one numbered ranking line.
	rankingEntryPattern = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`)
	// winnerPattern matches a "Winner: <name>" line, heading or not.
	winnerPattern = regexp.MustCompile(`(?im)^[#\s*]*winner\s*:\s*(.+)$`)
	// totalScorePattern matches an explicitly stated total out of 50.
	totalScorePattern = regexp.MustCompile(`(?i)total[^0-9\n]{0,40}?(\d{1,2})\s*/\s*50`)
	// justificationPattern matches the justification marker.
	justificationPattern = regexp.MustCompile(`(?i)\*\*justification:?\*\*:?\s*`)
	// summaryPattern matches the summary marker.
	summaryPattern = regexp.MustCompile(`(?i)\*\*summary:?\*\*:?\s*`)
)

// criterionPattern builds the per-criterion score regex: the label,
// a short run of non-digit filler (table punctuation, colons, bold
// markers), then "<digits> / 10".
func criterionPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `[^0-9\n]{0,40}?(\d{1,2})\s*/\s*10`)
}

var criterionPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(models.Criteria))
	for _, c := range models.Criteria {
		m[c] = criterionPattern(c)
	}
	return m
}()

// ParseVerdict recovers structured scores from the judge's raw text.
// It never fails: whatever cannot be recovered is simply absent, and a
// text with no recognizable per-agent subsection yields Parsed=false with
// the raw text retained verbatim.
func ParseVerdict(raw string, knownNames []string) *models.Verdict {
	v := &models.Verdict{Raw: raw}

	// Bound the scan to everything after the results marker when present,
	// so echoes of the original responses are never mistaken for scores.
	body := raw
	if loc := resultsPattern.FindStringIndex(raw); loc != nil {
		body = raw[loc[1]:]
	}

	for _, name := range knownNames {
		section, ok := sectionFor(body, name)
		if !ok {
			// The judge omitted this agent; it contributes no score.
			continue
		}
		v.Scores = append(v.Scores, parseScore(name, section))
	}

	v.Ranking = parseRanking(body, knownNames)
	v.Winner = parseWinner(body, knownNames)
	if v.Winner == "" && len(v.Ranking) > 0 {
		v.Winner = v.Ranking[0]
	}
	v.Summary = textAfterMarker(body, summaryPattern)

	v.Parsed = len(v.Scores) > 0
	return v
}

// FallbackVerdict builds the unparsed verdict used when the judge is
// unreachable or times out: the completed agents' raw texts concatenated,
// separated by a horizontal rule.
func FallbackVerdict(completed []*models.ResultRecord) *models.Verdict {
	parts := make([]string, 0, len(completed))
	for _, r := range completed {
		parts = append(parts, fmt.Sprintf("%s:\n%s", r.Name, r.Response))
	}
	return &models.Verdict{
		Parsed: false,
		Raw:    strings.Join(parts, "\n\n---\n\n"),
	}
}

// sectionFor returns the text between the first heading containing name
// (case-insensitive) and the next heading or end of text.
func sectionFor(body, name string) (string, bool) {
	headings := headingPattern.FindAllStringIndex(body, -1)
	for i, loc := range headings {
		if !containsFold(body[loc[0]:loc[1]], name) {
			continue
		}
		end := len(body)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		return body[loc[1]:end], true
	}
	return "", false
}

// parseScore extracts the five criterion scores, total, and justification
// from one agent's subsection. A criterion the judge did not mention
// scores 0, indistinguishable from an explicitly awarded zero.
func parseScore(name, section string) models.ModelScore {
	score := models.ModelScore{Name: name}

	fields := map[string]*int{
		"Accuracy":  &score.Accuracy,
		"Depth":     &score.Depth,
		"Clarity":   &score.Clarity,
		"Reasoning": &score.Reasoning,
		"Relevance": &score.Relevance,
	}
	for label, dst := range fields {
		if m := criterionPatterns[label].FindStringSubmatch(section); len(m) >= 2 {
			if n, err := strconv.Atoi(m[1]); err == nil && n <= 10 {
				*dst = n
			}
		}
	}

	// The judge's explicitly stated total wins over the computed sum,
	// even when the two disagree.
	score.Total = score.Sum()
	if m := totalScorePattern.FindStringSubmatch(section); len(m) >= 2 {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 50 {
			score.Total = n
		}
	}

	score.Justification = textAfterMarker(section, justificationPattern)
	return score
}

// parseRanking extracts the ordered ranking from the Final Ranking
// section. Each numbered line's leading fragment is matched against the
// known names both ways; a line matching no known name keeps its literal
// text as an unresolved entry.
func parseRanking(body string, knownNames []string) []string {
	loc := rankingPattern.FindStringIndex(body)
	if loc == nil {
		return nil
	}

	section := body[loc[1]:]
	if next := headingPattern.FindStringIndex(section); next != nil {
		section = section[:next[0]]
	}

	var ranking []string
	for _, m := range rankingEntryPattern.FindAllStringSubmatch(section, -1) {
		entry := cleanMarkdown(m[1])
		fragment := leadingFragment(entry)

		resolved := ""
		for _, name := range knownNames {
			if containsFold(entry, name) || containsFold(name, fragment) {
				resolved = name
				break
			}
		}
		if resolved == "" {
			resolved = entry
		}
		ranking = append(ranking, resolved)
	}
	return ranking
}

// parseWinner extracts the winner from a Winner: line, resolving against
// known names where possible.
func parseWinner(body string, knownNames []string) string {
	m := winnerPattern.FindStringSubmatch(body)
	if len(m) < 2 {
		return ""
	}
	literal := cleanMarkdown(m[1])
	for _, name := range knownNames {
		if containsFold(literal, name) || containsFold(name, literal) {
			return name
		}
	}
	return literal
}

// textAfterMarker returns the text following the first marker match, up
// to the next blank line or heading.
func textAfterMarker(body string, marker *regexp.Regexp) string {
	loc := marker.FindStringIndex(body)
	if loc == nil {
		return ""
	}
	rest := body[loc[1]:]

	end := len(rest)
	if i := strings.Index(rest, "\n\n"); i >= 0 && i < end {
		end = i
	}
	if i := headingPattern.FindStringIndex(rest); i != nil && i[0] < end {
		end = i[0]
	}
	return strings.TrimSpace(rest[:end])
}

// leadingFragment returns the ranking entry's text before any separator
// (em dash, hyphen run, colon, or parenthetical).
func leadingFragment(entry string) string {
	for _, sep := range []string{"—", " - ", "–", ":", "("} {
		if i := strings.Index(entry, sep); i >= 0 {
			entry = entry[:i]
		}
	}
	return strings.TrimSpace(entry)
}

// cleanMarkdown strips emphasis markers and surrounding whitespace.
func cleanMarkdown(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimSpace(s)
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
