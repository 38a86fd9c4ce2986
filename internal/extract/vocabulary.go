package extract

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// techVocabulary is the fixed list of technologies recognised in page text.
var techVocabulary = []string{
	"JavaScript", "TypeScript", "React", "Next.js", "Node.js", "Python", "Java", "C++", "C#", "Go", "Rust", "PHP", "Ruby", "Swift", "Kotlin",
	"AWS", "Azure", "GCP", "Docker", "Kubernetes", "Terraform", "SQL", "NoSQL", "MongoDB", "PostgreSQL", "MySQL", "Redis", "GraphQL", "REST API",
	"HTML", "CSS", "Tailwind", "Sass", "Redux", "Vue", "Angular", "Svelte", "Git", "CI/CD", "Linux", "Agile", "Scrum", "Jira",
}

type term struct {
	name string
	re   *regexp.Regexp
}

var vocabularyTerms = compileVocabulary(techVocabulary)

func compileVocabulary(names []string) []term {
	terms := make([]term, 0, len(names))
	for _, n := range names {
		terms = append(terms, term{name: n, re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(n))})
	}
	return terms
}

// scanTechnologies returns the vocabulary entries that occur in text as
// whole words, case-insensitively, in vocabulary order. "Go" does not
// match inside "Google" and "Java" does not match inside "JavaScript".
func scanTechnologies(text string) []string {
	found := []string{}
	for _, t := range vocabularyTerms {
		if containsWord(text, t) {
			found = append(found, t.name)
		}
	}
	return found
}

// containsWord applies a word-boundary check only on the sides of the term
// that are themselves word characters, so "C++" and "C#" still match when
// followed by a space or punctuation.
func containsWord(text string, t term) bool {
	first, _ := utf8.DecodeRuneInString(t.name)
	last, _ := utf8.DecodeLastRuneInString(t.name)

	for _, loc := range t.re.FindAllStringIndex(text, -1) {
		if isWordRune(first) {
			if r, _ := utf8.DecodeLastRuneInString(text[:loc[0]]); loc[0] > 0 && isWordRune(r) {
				continue
			}
		}
		if isWordRune(last) {
			if r, _ := utf8.DecodeRuneInString(text[loc[1]:]); loc[1] < len(text) && isWordRune(r) {
				continue
			}
		}
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
