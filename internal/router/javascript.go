package router

import (
	"regexp"
	"strings"

	"github.com/madhatter5501/aegis/internal/store"
)

var (
	jsFunctionDeclRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(([^)]*)\)`)
	jsArrowConstRe   = regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s*)?\(([^)]*)\)\s*=>`)
	jsFunctionExprRe = regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s+)?function\s*\(([^)]*)\)`)
	jsClassRe        = regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)(?:\s+extends\s+(\w+))?`)
)

// ExtractJSOrTS recognizes the four shapes SPEC_FULL.md §4.5 names:
// function declarations, arrow-function consts, function-expression
// consts, and classes.
func ExtractJSOrTS(content string) []Route {
	lines := strings.Split(content, "\n")
	var routes []Route

	for i, line := range lines {
		if m := jsFunctionDeclRe.FindStringSubmatch(line); m != nil {
			routes = append(routes, functionRoute(m[1], m[2], i+1))
			continue
		}
		if m := jsArrowConstRe.FindStringSubmatch(line); m != nil {
			routes = append(routes, functionRoute(m[1], m[2], i+1))
			continue
		}
		if m := jsFunctionExprRe.FindStringSubmatch(line); m != nil {
			routes = append(routes, functionRoute(m[1], m[2], i+1))
			continue
		}
		if m := jsClassRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			var extra []string
			if m[2] != "" {
				extra = append(extra, m[2])
			}
			routes = append(routes, Route{
				Type:      store.RouteClass,
				Name:      name,
				Line:      i + 1,
				Signature: "class " + name,
				Keywords:  keywordsFor(name, extra...),
			})
		}
	}
	return routes
}

func functionRoute(name, args string, line int) Route {
	return Route{
		Type:      store.RouteFunction,
		Name:      name,
		Line:      line,
		Signature: name + "(" + normalizeArgs(args) + ")",
		Keywords:  keywordsFor(name),
	}
}
