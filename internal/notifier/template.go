package notifier

import "strings"

var jsonEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Substitute replaces {field} placeholders in tmpl with their values.
// When escapeJSON is set, every substituted value is escaped so the
// result still parses as JSON after substitution into a string literal.
func Substitute(tmpl string, vars map[string]string, escapeJSON bool) string {
	out := tmpl
	for name, value := range vars {
		if escapeJSON {
			value = jsonEscaper.Replace(value)
		}
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}
