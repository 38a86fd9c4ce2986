package extract

import (
	"regexp"
	"strings"

	"github.com/amishk599/jobimport/internal/model"
)

var (
	titleRegex     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaTagRegex   = regexp.MustCompile(`(?is)<meta\b[^>]*>`)
	attributeRegex = regexp.MustCompile(`(?s)([a-zA-Z:_-]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// Heuristic fills the fields base leaves empty using page-level signals:
// the <title> element, the description meta tags, and a scan of the page
// text against a fixed technology vocabulary. It never fails.
func Heuristic(page string, base model.ExtractedFields) model.ExtractedFields {
	f := base

	if f.Title == "" {
		title, company := splitTitle(pageTitle(page))
		f.Title = title
		if f.Company == "" {
			f.Company = company
		}
	}

	if f.Description == "" {
		f.Description = metaDescription(page)
		if f.Description == "" {
			f.Description = model.DefaultDescription
		}
	}

	if len(f.TechStack) == 0 {
		f.TechStack = scanTechnologies(PageText(page) + " " + base.Description)
		if f.RequiredSkills.Len() == 0 {
			f.RequiredSkills = model.NewSkillLevels(model.DefaultSkillLevel, f.TechStack...)
		}
	}

	return f
}

// Basic runs the structured extractor, lets the heuristics fill the gaps,
// then applies placeholder defaults. It never fails.
func Basic(page string) model.ExtractedFields {
	return Heuristic(page, Structured(page)).WithDefaults()
}

func pageTitle(page string) string {
	m := titleRegex.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	return cleanText(m[1])
}

// splitTitle splits "Role | Company" style titles. "|" is used wherever it
// appears; "-" only when it occurs exactly once, since role names such as
// "Front-End Engineer" contain hyphens. Without a separator the whole title
// is the role and company is empty.
func splitTitle(raw string) (title, company string) {
	sep := ""
	switch {
	case strings.Contains(raw, "|"):
		sep = "|"
	case strings.Count(raw, "-") == 1:
		sep = "-"
	}
	if sep == "" {
		return raw, ""
	}
	parts := strings.Split(raw, sep)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// metaDescription returns the content of <meta name="description">, falling
// back to <meta property="og:description">. Attribute order does not matter.
func metaDescription(page string) string {
	var og string
	for _, tag := range metaTagRegex.FindAllString(page, -1) {
		attrs := metaAttributes(tag)
		content, ok := attrs["content"]
		if !ok {
			continue
		}
		if strings.EqualFold(attrs["name"], "description") {
			return cleanText(content)
		}
		if og == "" && strings.EqualFold(attrs["property"], "og:description") {
			og = cleanText(content)
		}
	}
	return og
}

func metaAttributes(tag string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attributeRegex.FindAllStringSubmatch(tag, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		attrs[strings.ToLower(m[1])] = value
	}
	return attrs
}
