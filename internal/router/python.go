package router

import (
	"regexp"
	"strings"

	"github.com/madhatter5501/aegis/internal/store"
)

var (
	pyDefRe       = regexp.MustCompile(`^(\s*)(async\s+)?def\s+(\w+)\s*\(([^)]*)\)`)
	pyClassRe     = regexp.MustCompile(`^(\s*)class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	pyDecoratorRe = regexp.MustCompile(`^\s*@([\w.]+)`)
	pyDocstartRe  = regexp.MustCompile(`^\s*("""|''')(.*)`)
)

// ExtractPython scans Python source line-by-line for function/class
// definitions, matching decorators against the endpoint/handler/property
// vocabularies and collecting base classes and docstrings.
func ExtractPython(content string) []Route {
	lines := strings.Split(content, "\n")
	var routes []Route
	var pendingDecorators []string

	for i, line := range lines {
		if m := pyDecoratorRe.FindStringSubmatch(line); m != nil {
			pendingDecorators = append(pendingDecorators, m[1])
			continue
		}

		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			name := m[3]
			args := normalizeArgs(m[4])
			route := Route{
				Type:      classifyPythonDef(name, line, pendingDecorators),
				Name:      name,
				Line:      i + 1,
				Signature: name + "(" + args + ")",
				Docstring: findDocstring(lines, i),
			}
			var decoratorKeywords []string
			if route.Type == store.RouteEndpoint || route.Type == store.RouteHandler {
				for _, d := range pendingDecorators {
					decoratorKeywords = append(decoratorKeywords, lastDecoratorSegment(d))
				}
				decoratorKeywords = append(decoratorKeywords, "api")
			}
			route.Keywords = keywordsFor(name, decoratorKeywords...)
			routes = append(routes, route)
			pendingDecorators = nil
			continue
		}

		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			name := m[2]
			bases := splitArgList(m[3])
			route := Route{
				Type:      store.RouteClass,
				Name:      name,
				Line:      i + 1,
				Signature: "class " + name,
				Docstring: findDocstring(lines, i),
				Keywords:  keywordsFor(name, bases...),
			}
			routes = append(routes, route)
			pendingDecorators = nil
			continue
		}

		if strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), "#") {
			pendingDecorators = nil
		}
	}
	return routes
}

// classifyPythonDef applies the decorator-name vocabularies from
// SPEC_FULL.md §4.5: route/get/post/put/delete/patch -> endpoint;
// command/event/handler -> handler; property -> property; else function.
func classifyPythonDef(name, defLine string, decorators []string) store.RouteType {
	for _, d := range decorators {
		seg := strings.ToLower(lastDecoratorSegment(d))
		if endpointDecorators[seg] {
			return store.RouteEndpoint
		}
		if handlerDecorators[seg] {
			return store.RouteHandler
		}
		if seg == "property" {
			return store.RouteProperty
		}
	}
	return store.RouteFunction
}

// lastDecoratorSegment resolves a decorator reference's leaf name,
// covering plain Name, Attribute (a.b.c) and Call (name(...)) forms by
// dropping any call-argument suffix and taking the final dotted segment.
func lastDecoratorSegment(decorator string) string {
	d := decorator
	if idx := strings.Index(d, "("); idx >= 0 {
		d = d[:idx]
	}
	parts := strings.Split(d, ".")
	return parts[len(parts)-1]
}

func findDocstring(lines []string, defLineIdx int) string {
	for j := defLineIdx + 1; j < len(lines) && j < defLineIdx+5; j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		m := pyDocstartRe.FindStringSubmatch(lines[j])
		if m == nil {
			return ""
		}
		quote := m[1]
		rest := m[2]
		if idx := strings.Index(rest, quote); idx >= 0 {
			return strings.TrimSpace(rest[:idx])
		}
		var b strings.Builder
		b.WriteString(rest)
		for k := j + 1; k < len(lines); k++ {
			if idx := strings.Index(lines[k], quote); idx >= 0 {
				b.WriteString("\n" + lines[k][:idx])
				return strings.TrimSpace(b.String())
			}
			b.WriteString("\n" + lines[k])
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}

func normalizeArgs(raw string) string {
	parts := splitArgList(raw)
	for i, p := range parts {
		if idx := strings.IndexAny(p, ":="); idx >= 0 {
			parts[i] = strings.TrimSpace(p[:idx])
		}
	}
	return strings.Join(parts, ", ")
}

func splitArgList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	fields := strings.Split(raw, ",")
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
