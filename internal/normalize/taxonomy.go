package normalize

import (
	"regexp"
	"strings"
)

type taxonomyRule struct {
	tokens      []string
	category    string
	subcategory string
}

// Keyword classification table; first matching rule wins, so more specific
// rules come first.
var taxonomyRules = []taxonomyRule{
	{[]string{"data", "analytics", "analyst", "bi", "tableau", "power bi"}, "Data", "Analytics"},
	{[]string{"backend", "api", "python", "java", "node", "microservices"}, "Engineering", "Backend"},
	{[]string{"frontend", "react", "next.js", "vue", "angular"}, "Engineering", "Frontend"},
	{[]string{"full stack", "fullstack"}, "Engineering", "Full Stack"},
	{[]string{"devops", "sre", "kubernetes", "terraform", "cloud"}, "Engineering", "DevOps"},
	{[]string{"product manager", "product owner", "roadmap"}, "Product", "Product Management"},
	{[]string{"designer", "ux", "ui"}, "Design", "UX/UI"},
	{[]string{"marketing", "seo", "growth"}, "Marketing", "Digital Marketing"},
	{[]string{"sales", "account executive", "business development"}, "Sales", "Commercial"},
}

var engineerPattern = regexp.MustCompile(`\b(engineer|developer)\b`)

// Classify derives taxonomy tags from a posting's title and description by
// keyword matching against a fixed category table.
func Classify(title, description string) (category, subcategory string) {
	corpus := strings.ToLower(title + " " + description)

	for _, rule := range taxonomyRules {
		for _, token := range rule.tokens {
			if strings.Contains(corpus, token) {
				return rule.category, rule.subcategory
			}
		}
	}

	if engineerPattern.MatchString(corpus) {
		return "Engineering", "General"
	}
	return "General", "Other"
}
