package router

import "github.com/madhatter5501/aegis/internal/store"

// Route is a single extracted symbol, prior to being persisted as a
// store.CodeRoute.
type Route struct {
	Type      store.RouteType
	Name      string
	Line      int
	Signature string
	Docstring string
	Keywords  []string
}

// Extractor pulls Routes out of one file's source text. Every extractor is
// regex-based: SPEC_FULL.md resolves the source's "prefer AST" guidance to
// "always regex" for a Go host (see DESIGN.md Open Question resolutions).
type Extractor func(content string) []Route

// extractors maps a file extension (without the leading dot) to its
// Extractor.
var extractors = map[string]Extractor{
	"py":   ExtractPython,
	"js":   ExtractJSOrTS,
	"ts":   ExtractJSOrTS,
	"go":   ExtractGo,
	"java": ExtractJava,
}
