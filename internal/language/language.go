package language

import "strings"

type entry struct {
	code2   string   // ISO 639-1
	code3   string   // ISO 639-2/T
	alt3    string   // ISO 639-2/B where it differs
	display string   // English name
	words   []string // spelled-out forms, including endonyms
}

// The corpus is Lithuanian; neighbouring languages cover mixed recordings.
var languages = []entry{
	{"lt", "lit", "", "Lithuanian", []string{"lithuanian", "lietuvių", "lietuviu"}},
	{"lv", "lav", "", "Latvian", []string{"latvian", "latviešu"}},
	{"et", "est", "", "Estonian", []string{"estonian", "eesti"}},
	{"pl", "pol", "", "Polish", []string{"polish", "polski"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"be", "bel", "", "Belarusian", []string{"belarusian"}},
	{"uk", "ukr", "", "Ukrainian", []string{"ukrainian"}},
	{"de", "deu", "ger", "German", []string{"german", "deutsch"}},
	{"fi", "fin", "", "Finnish", []string{"finnish", "suomi"}},
	{"en", "eng", "", "English", []string{"english"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = canonical(code)
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	return byWord[code]
}

// canonical lowercases a tag and drops any region subtag ("lt-LT" -> "lt").
func canonical(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// Normalize maps a language code, region-qualified tag, or spelled-out name
// to its ISO 639-1 code. Unrecognized two-letter codes pass through; anything
// else yields "".
func Normalize(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	if c := canonical(code); len(c) == 2 {
		return c
	}
	return ""
}

// Known reports whether code maps to a language in the table.
func Known(code string) bool {
	return lookup(code) != nil
}

// ToISO3 returns the three-letter code, or "und" when code is unrecognized.
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	return "und"
}

// DisplayName returns the English name for code, or the uppercased code when
// it is not in the table.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// DisplayList renders codes as a comma-separated list of names, each known
// language followed by its three-letter code: "Lithuanian (lit), Latvian (lav)".
func DisplayList(codes []string) string {
	names := make([]string, 0, len(codes))
	for _, code := range codes {
		name := DisplayName(code)
		if Known(code) {
			name += " (" + ToISO3(code) + ")"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
