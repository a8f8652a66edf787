package router

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/madhatter5501/aegis/internal/apperr"
	"github.com/madhatter5501/aegis/internal/store"
)

// Router builds and searches the code-routing index on top of the State
// Store's file index and code routes tables.
type Router struct {
	st *store.Store
}

// New wraps a Store for route building/search.
func New(st *store.Store) *Router {
	return &Router{st: st}
}

// BuildResult summarizes one BuildRoutingSystem pass.
type BuildResult struct {
	FilesScanned int
	RoutesFound  int
}

// BuildRoutingSystem walks every indexed file whose extension has a
// registered extractor, clears its previously-indexed routes, and
// re-inserts freshly extracted ones. Running it twice on an unchanged tree
// produces the same (file_path, name, route_type, line_number) tuples.
func (r *Router) BuildRoutingSystem() (BuildResult, error) {
	var result BuildResult

	for ext, extractor := range extractors {
		entries, err := r.st.SearchFileIndex(ext, "", "", 0)
		if err != nil {
			return result, err
		}
		for _, entry := range entries {
			n, err := r.indexFile(entry.Path, extractor)
			if err != nil {
				return result, err
			}
			result.FilesScanned++
			result.RoutesFound += n
		}
	}
	return result, nil
}

func (r *Router) indexFile(path string, extractor Extractor) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInvalidInput, err, "read file for routing: %s", path)
	}

	if _, err := r.st.ClearRoutesForFile(path); err != nil {
		return 0, err
	}

	routes := extractor(string(content))
	for _, route := range routes {
		cr := &store.CodeRoute{
			FilePath:   path,
			RouteType:  route.Type,
			Name:       route.Name,
			LineNumber: route.Line,
			Signature:  route.Signature,
			Docstring:  route.Docstring,
			Keywords:   route.Keywords,
		}
		if err := r.st.AddCodeRoute(cr); err != nil {
			return 0, err
		}
	}
	return len(routes), nil
}

// ExtensionOf strips the leading dot from a path's extension, as stored in
// file_index.extension.
func ExtensionOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// SearchRoutes delegates to the State Store's substring search, newest
// indexed first, up to limit.
func (r *Router) SearchRoutes(query string, routeType store.RouteType, limit int) ([]store.CodeRoute, error) {
	return r.st.SearchCodeRoutes(query, routeType, limit)
}
