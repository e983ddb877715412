package llm

import (
	"fmt"
	"strings"

	"github.com/jonathan/jobscout/internal/types"
)

const maxDescriptionChars = 4000

func buildFitPrompt(profile *types.CandidateProfile, posting *types.Posting, deterministicScore float64) string {
	var b strings.Builder

	b.WriteString("You are evaluating how well a job posting fits a candidate.\n\n")

	b.WriteString("CANDIDATE:\n")
	if len(profile.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(profile.Skills, ", "))
	}
	if lines := profile.ExperienceLines(); len(lines) > 0 {
		fmt.Fprintf(&b, "Experience: %s\n", strings.Join(lines, "; "))
	}
	if len(profile.Education) > 0 {
		fmt.Fprintf(&b, "Education: %s\n", strings.Join(profile.Education, "; "))
	}
	if len(profile.TargetRoles) > 0 {
		fmt.Fprintf(&b, "Target roles: %s\n", strings.Join(profile.TargetRoles, ", "))
	}
	if profile.Seniority != "" {
		fmt.Fprintf(&b, "Seniority: %s\n", profile.Seniority)
	}

	b.WriteString("\nJOB POSTING:\n")
	fmt.Fprintf(&b, "Title: %s\n", posting.Title)
	if posting.Company != nil {
		fmt.Fprintf(&b, "Company: %s\n", *posting.Company)
	}
	if posting.Location != nil {
		fmt.Fprintf(&b, "Location: %s\n", *posting.Location)
	}
	if posting.Modality != types.ModalityUnknown {
		fmt.Fprintf(&b, "Modality: %s\n", posting.Modality)
	}
	desc := posting.Description
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}
	if desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}

	fmt.Fprintf(&b, "\nA keyword-overlap heuristic scored this pairing %.0f/100. Use it as a weak prior only.\n", deterministicScore)

	b.WriteString(`
Respond with ONLY a JSON object, no markdown:
{
  "fit_score": <number between 0.0 and 1.0>,
  "fit_reasons": [<up to 5 short strings explaining the score>],
  "job_category": "<broad category, e.g. Engineering>",
  "job_subcategory": "<narrow category, e.g. Backend>"
}

Score 0.8+ only when the role clearly matches the candidate's skills and target roles.
Score below 0.3 when the role is in a different field or requires skills the candidate lacks.
`)

	return b.String()
}
