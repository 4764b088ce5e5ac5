package prompts

import "strings"

// Render substitutes {{name}} placeholders in template with the given
// values. Placeholders without a value are left untouched so a missing
// variable is visible in the output instead of silently vanishing.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
