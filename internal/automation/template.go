package automation

import (
	"regexp"
	"strings"

	"crmleads_backend/internal/leads/domain"
)

// placeholderPattern matches the supported template variables,
// case-insensitively and tolerating inner whitespace.
var placeholderPattern = regexp.MustCompile(`(?i)\{\{\s*(primeiro_nome|nome|origem|cidade|responsavel)\s*\}\}`)

// ApplyTemplateVariables renders a message template against a lead. Supported
// placeholders: {{nome}}, {{primeiro_nome}}, {{origem}}, {{cidade}},
// {{responsavel}}. Missing lead values render as empty strings; unknown
// placeholders are left untouched.
func ApplyTemplateVariables(template string, lead domain.Lead) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.ToLower(placeholderPattern.FindStringSubmatch(match)[1])
		switch key {
		case "nome":
			return lead.FullName
		case "primeiro_nome":
			return lead.FirstName()
		case "origem":
			return lead.Origin
		case "cidade":
			return deref(lead.City)
		case "responsavel":
			return lead.Owner
		}
		return match
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
