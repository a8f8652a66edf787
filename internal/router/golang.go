package router

import (
	"regexp"
	"strings"

	"github.com/madhatter5501/aegis/internal/store"
)

var (
	goMethodRe = regexp.MustCompile(`^\s*func\s+\(([^)]*)\)\s+(\w+)\s*\(([^)]*)\)`)
	goFuncRe   = regexp.MustCompile(`^\s*func\s+(\w+)\s*\(([^)]*)\)`)
	goTypeRe   = regexp.MustCompile(`^\s*type\s+(\w+)\s+(struct|interface)\b`)
)

// ExtractGo recognizes method and bare function declarations (flagging
// "Handler"-named or handler-commented ones as RouteHandler) and
// struct/interface type declarations.
func ExtractGo(content string) []Route {
	lines := strings.Split(content, "\n")
	var routes []Route

	for i, line := range lines {
		if m := goMethodRe.FindStringSubmatch(line); m != nil {
			recv := m[1]
			name := m[2]
			args := m[3]
			routes = append(routes, goFuncOrHandlerRoute(name, recv, args, line, i+1))
			continue
		}
		if m := goFuncRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			args := m[2]
			routes = append(routes, goFuncOrHandlerRoute(name, "", args, line, i+1))
			continue
		}
		if m := goTypeRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			kind := store.RouteStruct
			if m[2] == "interface" {
				kind = store.RouteInterface
			}
			routes = append(routes, Route{
				Type:      kind,
				Name:      name,
				Line:      i + 1,
				Signature: "type " + name + " " + m[2],
				Keywords:  keywordsFor(name),
			})
		}
	}
	return routes
}

func goFuncOrHandlerRoute(name, recv, args, sourceLine string, line int) Route {
	routeType := store.RouteFunction
	if strings.Contains(name, "Handler") || strings.Contains(strings.ToLower(sourceLine), "handler") {
		routeType = store.RouteHandler
	}
	signature := "func "
	if recv != "" {
		signature += "(" + recv + ") "
	}
	signature += name + "(" + normalizeArgs(args) + ")"

	return Route{
		Type:      routeType,
		Name:      name,
		Line:      line,
		Signature: signature,
		Keywords:  keywordsFor(name),
	}
}
