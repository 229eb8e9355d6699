package oracle

import (
	_ "embed"
	"strconv"
	"strings"

	"github.com/spigell/cv-shortlister/internal/match"
)

//go:embed prompt.md
var promptTemplate string

//go:embed skills.md
var skillsTemplate string

// BuildPrompt renders the shortlisting prompt. Placeholders are substituted in
// a single pass, so document text that happens to contain a placeholder is
// left as is.
func BuildPrompt(jd, cv string, criteria match.Criteria, instructions string) string {
	r := strings.NewReplacer(
		"{{JD}}", strings.TrimSpace(jd),
		"{{CV}}", strings.TrimSpace(cv),
		"{{MIN_EXPERIENCE}}", strconv.Itoa(criteria.MinExperience),
		"{{OUTPUT_INSTRUCTIONS}}", strings.TrimSpace(instructions),
	)
	return strings.TrimSpace(r.Replace(promptTemplate))
}

// BuildSkillsPrompt renders the skill extraction prompt for a job description.
func BuildSkillsPrompt(jd string) string {
	return strings.TrimSpace(strings.ReplaceAll(skillsTemplate, "{{JD}}", strings.TrimSpace(jd)))
}
