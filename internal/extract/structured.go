package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/amishk599/jobimport/internal/model"
)

var jsonLDRegex = regexp.MustCompile(`(?is)<script[^>]*type\s*=\s*["']application/ld\+json["'][^>]*>(.*?)</script>`)

// Structured extracts fields from the first schema.org JobPosting found in
// the page's JSON-LD blocks. Blocks that do not parse are skipped. Fields
// the posting does not carry are left empty; no defaults are applied.
func Structured(page string) model.ExtractedFields {
	if posting := jobPostingNode(page); posting != nil {
		return fromJobPosting(posting)
	}
	return model.ExtractedFields{}
}

// JobPostingJSON returns the page's first JobPosting node re-encoded as
// compact JSON, or "" when there is none. Sibling nodes of an @graph are
// dropped.
func JobPostingJSON(page string) string {
	posting := jobPostingNode(page)
	if posting == nil {
		return ""
	}
	b, err := json.Marshal(posting)
	if err != nil {
		return ""
	}
	return string(b)
}

func jobPostingNode(page string) map[string]any {
	for _, m := range jsonLDRegex.FindAllStringSubmatch(page, -1) {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &data); err != nil {
			continue
		}
		if posting := findJobPosting(data); posting != nil {
			return posting
		}
	}
	return nil
}

// findJobPosting walks a decoded JSON-LD document (object, array or @graph
// container) and returns the first node typed JobPosting.
func findJobPosting(v any) map[string]any {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if p := findJobPosting(item); p != nil {
				return p
			}
		}
	case map[string]any:
		if isJobPosting(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findJobPosting(graph)
		}
	}
	return nil
}

func isJobPosting(t any) bool {
	switch typ := t.(type) {
	case string:
		return typ == "JobPosting"
	case []any:
		for _, s := range typ {
			if s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

func fromJobPosting(p map[string]any) model.ExtractedFields {
	var f model.ExtractedFields

	f.Title = cleanText(str(p["title"]))
	f.Company = organizationName(p["hiringOrganization"])
	if desc := str(p["description"]); desc != "" {
		f.Description = cleanText(desc)
	}
	f.Location = jobLocation(p["jobLocation"])
	if f.Location == "" && str(p["jobLocationType"]) == "TELECOMMUTE" {
		f.Location = model.DefaultLocation
	}
	f.Salary = baseSalary(p["baseSalary"])
	f.EmploymentType = strings.Join(stringList(p["employmentType"]), ", ")

	if skills := skillList(p["skills"]); len(skills) > 0 {
		f.TechStack = skills
		f.RequiredSkills = model.NewSkillLevels(model.DefaultSkillLevel, skills...)
	}
	return f
}

func organizationName(v any) string {
	switch org := v.(type) {
	case string:
		return strings.TrimSpace(org)
	case map[string]any:
		return strings.TrimSpace(str(org["name"]))
	}
	return ""
}

func jobLocation(v any) string {
	switch loc := v.(type) {
	case []any:
		for _, item := range loc {
			if s := jobLocation(item); s != "" {
				return s
			}
		}
	case map[string]any:
		switch addr := loc["address"].(type) {
		case string:
			return strings.TrimSpace(addr)
		case map[string]any:
			parts := nonEmpty(str(addr["addressLocality"]), str(addr["addressRegion"]))
			if len(parts) == 0 {
				parts = nonEmpty(str(addr["addressCountry"]))
			}
			return strings.Join(parts, ", ")
		}
	}
	return ""
}

func baseSalary(v any) string {
	salary, ok := v.(map[string]any)
	if !ok {
		return str(v)
	}
	currency := str(salary["currency"])

	switch value := salary["value"].(type) {
	case map[string]any:
		if c := str(value["currency"]); c != "" {
			currency = c
		}
		lo, hi := str(value["minValue"]), str(value["maxValue"])
		if lo == "" && hi == "" {
			return strings.TrimSpace(str(value["value"]) + " " + currency)
		}
		return strings.TrimSpace(lo + "-" + hi + " " + currency)
	case nil:
		return ""
	default:
		return strings.TrimSpace(str(value) + " " + currency)
	}
}

// skillList accepts either an array of names or a comma-separated string.
func skillList(v any) []string {
	if s, ok := v.(string); ok {
		return nonEmpty(strings.Split(s, ",")...)
	}
	return stringList(v)
}

// stringList accepts a string or an array of strings.
func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		return nonEmpty(val)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, str(item))
		}
		return nonEmpty(out...)
	}
	return nil
}

// str renders a scalar JSON value as text. Objects and arrays yield "".
func str(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
