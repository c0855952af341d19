package textutil

import "strings"

// groupNameReplacer maps path separators and shell-hostile characters out of
// group names. Separators become dashes; the rest are dropped.
var groupNameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-",
	"?", "", "\"", "", "<", "", ">", "", "|", "",
)

// SanitizeGroupName makes a tier or media base name safe to use as an output
// directory. Names that sanitize to nothing, or to a relative path element,
// become "unknown".
func SanitizeGroupName(value string) string {
	cleaned := strings.TrimSpace(groupNameReplacer.Replace(NormalizeTranscript(value)))
	switch cleaned {
	case "", ".", "..":
		return "unknown"
	}
	return cleaned
}
