package analyzer

import (
	"regexp"
	"strings"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// Docstring section grammars. Detection is ordered: Sphinx field lists are
// unambiguous, Google section headers come next, NumPy underlined headers
// last. Anything that matches none of them is kept whole as plain text.
var (
	sphinxFieldRe = regexp.MustCompile(`^:(parameter|param|argument|arg|returns?|raises?|rtype|type)\s*([^:]*):\s*(.*)$`)
	googleParamRe = regexp.MustCompile(`^(\*{0,2}\w+)\s*(?:\(([^)]*)\))?\s*:\s*(.*)$`)
	numpyRuleRe   = regexp.MustCompile(`^-{3,}\s*$`)
	numpyParamRe  = regexp.MustCompile(`^(\*{0,2}\w+)\s*(?::\s*(.*))?$`)
)

// ParseDocstring classifies a docstring as Google, NumPy, Sphinx or plain
// style and pulls out its summary, parameter entries, return description and
// raised exceptions. Best effort: a section that does not parse is simply
// absent from the result, never an error.
func ParseDocstring(text string) *graph.DocInfo {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	switch {
	case hasSphinxFields(lines):
		return parseSphinx(lines)
	case hasGoogleSections(lines):
		return parseGoogle(lines)
	case hasNumpySections(lines):
		return parseNumpy(lines)
	default:
		return &graph.DocInfo{Format: "plain", Summary: summaryOf(lines)}
	}
}

// summaryOf returns the first paragraph.
func summaryOf(lines []string) string {
	var out []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			break
		}
		out = append(out, strings.TrimSpace(line))
	}
	return strings.Join(out, " ")
}

// ---------- Sphinx ----------

func hasSphinxFields(lines []string) bool {
	for _, line := range lines {
		if sphinxFieldRe.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func parseSphinx(lines []string) *graph.DocInfo {
	info := &graph.DocInfo{Format: "sphinx", Summary: summaryOf(lines)}
	types := make(map[string]string)
	for _, line := range lines {
		m := sphinxFieldRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		field, arg, desc := m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
		switch field {
		case "param", "parameter", "arg", "argument":
			// ":param int count: ..." puts the type before the name.
			name, typ := arg, ""
			if parts := strings.Fields(arg); len(parts) == 2 {
				typ, name = parts[0], parts[1]
			}
			info.Params = append(info.Params, graph.DocParam{Name: name, Type: typ, Description: desc})
		case "type":
			types[arg] = desc
		case "return", "returns":
			info.Returns = desc
		case "rtype":
			if info.Returns == "" {
				info.Returns = desc
			}
		case "raise", "raises":
			if arg != "" {
				info.Raises = append(info.Raises, arg)
			} else if desc != "" {
				info.Raises = append(info.Raises, firstWord(desc))
			}
		}
	}
	// Separate ":type name:" fields fill in param types declared elsewhere.
	for i, p := range info.Params {
		if p.Type == "" {
			info.Params[i].Type = types[p.Name]
		}
	}
	return info
}

// ---------- Google ----------

var googleSections = map[string]string{
	"args":       "params",
	"arguments":  "params",
	"parameters": "params",
	"returns":    "returns",
	"yields":     "returns",
	"raises":     "raises",
}

func hasGoogleSections(lines []string) bool {
	for _, line := range lines {
		name, ok := strings.CutSuffix(strings.TrimSpace(line), ":")
		if ok && googleSections[strings.ToLower(name)] != "" {
			return true
		}
	}
	return false
}

func parseGoogle(lines []string) *graph.DocInfo {
	info := &graph.DocInfo{Format: "google", Summary: summaryOf(lines)}
	section := ""
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if name, ok := strings.CutSuffix(line, ":"); ok {
			if s := googleSections[strings.ToLower(name)]; s != "" {
				section = s
				continue
			}
		}
		if line == "" || section == "" {
			continue
		}
		switch section {
		case "params":
			if m := googleParamRe.FindStringSubmatch(line); m != nil {
				info.Params = append(info.Params, graph.DocParam{
					Name:        strings.TrimLeft(m[1], "*"),
					Type:        strings.TrimSpace(m[2]),
					Description: strings.TrimSpace(m[3]),
				})
			}
		case "returns":
			if info.Returns == "" {
				info.Returns = strings.TrimPrefix(line, ": ")
			}
		case "raises":
			if name, _, ok := strings.Cut(line, ":"); ok {
				info.Raises = append(info.Raises, strings.TrimSpace(name))
			} else {
				info.Raises = append(info.Raises, firstWord(line))
			}
		}
	}
	return info
}

// ---------- NumPy ----------

var numpySections = map[string]string{
	"parameters": "params",
	"returns":    "returns",
	"yields":     "returns",
	"raises":     "raises",
}

func hasNumpySections(lines []string) bool {
	for i := 0; i+1 < len(lines); i++ {
		name := strings.ToLower(strings.TrimSpace(lines[i]))
		if numpySections[name] != "" && numpyRuleRe.MatchString(strings.TrimSpace(lines[i+1])) {
			return true
		}
	}
	return false
}

func parseNumpy(lines []string) *graph.DocInfo {
	info := &graph.DocInfo{Format: "numpy", Summary: summaryOf(lines)}
	section := ""
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if i+1 < len(lines) && numpyRuleRe.MatchString(strings.TrimSpace(lines[i+1])) {
			if s := numpySections[strings.ToLower(line)]; s != "" {
				section = s
				i++ // skip the underline
				continue
			}
		}
		if line == "" || section == "" {
			continue
		}
		// Entry lines sit at the section's base indent; deeper lines are
		// entry descriptions.
		indented := strings.HasPrefix(lines[i], "    ") || strings.HasPrefix(lines[i], "\t")
		switch section {
		case "params":
			if indented {
				if n := len(info.Params); n > 0 {
					p := &info.Params[n-1]
					if p.Description != "" {
						p.Description += " "
					}
					p.Description += line
				}
				continue
			}
			if m := numpyParamRe.FindStringSubmatch(line); m != nil {
				info.Params = append(info.Params, graph.DocParam{
					Name: strings.TrimLeft(m[1], "*"),
					Type: strings.TrimSpace(m[2]),
				})
			}
		case "returns":
			if info.Returns == "" {
				info.Returns = line
			}
		case "raises":
			if !indented {
				info.Raises = append(info.Raises, firstWord(line))
			}
		}
	}
	return info
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return strings.TrimSuffix(f[0], ":")
	}
	return s
}
