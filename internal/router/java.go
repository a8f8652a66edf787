package router

import (
	"regexp"
	"strings"

	"github.com/madhatter5501/aegis/internal/store"
)

var (
	javaTypeRe   = regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+|final\s+|abstract\s+)*(class|interface)\s+(\w+)`)
	javaMethodRe = regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+|final\s+|abstract\s+|synchronized\s+)*(?:[\w<>\[\],.?\s]+?)\s+(\w+)\s*\(([^)]*)\)\s*(?:throws\s+[\w,.\s]+)?\s*[{;]`)
)

// ExtractJava recognizes class/interface declarations and access-modified
// method signatures. No SPEC_FULL.md annotation vocabulary is defined for
// Java (unlike Python's decorators), so every matched method is a plain
// RouteMethod; there is no endpoint/handler classification
// step.
func ExtractJava(content string) []Route {
	lines := strings.Split(content, "\n")
	var routes []Route

	for i, line := range lines {
		if m := javaTypeRe.FindStringSubmatch(line); m != nil {
			kind := store.RouteClass
			if m[1] == "interface" {
				kind = store.RouteInterface
			}
			name := m[2]
			routes = append(routes, Route{
				Type:      kind,
				Name:      name,
				Line:      i + 1,
				Signature: m[1] + " " + name,
				Keywords:  keywordsFor(name),
			})
			continue
		}
		if m := javaMethodRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			args := m[2]
			routes = append(routes, Route{
				Type:      store.RouteMethod,
				Name:      name,
				Line:      i + 1,
				Signature: name + "(" + normalizeArgs(args) + ")",
				Keywords:  keywordsFor(name),
			})
		}
	}
	return routes
}
