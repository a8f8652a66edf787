package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/madhatter5501/aegis/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.New(db)
}

func TestExtractPythonEndpointFromDecorator(t *testing.T) {
	src := "@app.get(\"/users\")\ndef get_users():\n    pass\n"
	routes := ExtractPython(src)
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	r := routes[0]
	if r.Type != store.RouteEndpoint {
		t.Errorf("type = %s, want endpoint", r.Type)
	}
	if r.Name != "get_users" {
		t.Errorf("name = %s", r.Name)
	}
	if r.Signature != "get_users()" {
		t.Errorf("signature = %q", r.Signature)
	}
	hasAll := func(want ...string) bool {
		set := map[string]bool{}
		for _, k := range r.Keywords {
			set[k] = true
		}
		for _, w := range want {
			if !set[w] {
				return false
			}
		}
		return true
	}
	if !hasAll("get", "api", "users") {
		t.Errorf("keywords missing expected entries: %v", r.Keywords)
	}
}

func TestExtractPythonClassAndHandler(t *testing.T) {
	src := "class Widget(BaseModel):\n    pass\n\n@event(\"on_created\")\ndef handle_created(payload):\n    pass\n"
	routes := ExtractPython(src)
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].Type != store.RouteClass || routes[0].Name != "Widget" {
		t.Errorf("unexpected class route: %+v", routes[0])
	}
	if routes[1].Type != store.RouteHandler {
		t.Errorf("expected handler type, got %s", routes[1].Type)
	}
}

func TestExtractGoFunctionsAndHandler(t *testing.T) {
	src := "package main\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n\nfunc TaskHandler(w, r string) {\n}\n\ntype Widget struct {\n}\n\ntype Reader interface {\n}\n"
	routes := ExtractGo(src)
	var names []string
	for _, r := range routes {
		names = append(names, r.Name)
	}
	if len(routes) != 4 {
		t.Fatalf("expected 4 routes, got %d: %v", len(routes), names)
	}
	if routes[0].Type != store.RouteFunction {
		t.Errorf("Add should be a function, got %s", routes[0].Type)
	}
	if routes[1].Type != store.RouteHandler {
		t.Errorf("TaskHandler should be a handler, got %s", routes[1].Type)
	}
	if routes[2].Type != store.RouteStruct {
		t.Errorf("Widget should be a struct, got %s", routes[2].Type)
	}
	if routes[3].Type != store.RouteInterface {
		t.Errorf("Reader should be an interface, got %s", routes[3].Type)
	}
}

func TestExtractJSArrowAndClass(t *testing.T) {
	src := "export const handleClick = (event) => {\n}\n\nclass Button extends Component {\n}\n"
	routes := ExtractJSOrTS(src)
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].Name != "handleClick" || routes[0].Type != store.RouteFunction {
		t.Errorf("unexpected arrow route: %+v", routes[0])
	}
	if routes[1].Name != "Button" || routes[1].Type != store.RouteClass {
		t.Errorf("unexpected class route: %+v", routes[1])
	}
}

func TestExtractJavaClassAndMethod(t *testing.T) {
	src := "public class Widget {\n\tpublic int add(int a, int b) {\n\t\treturn a + b;\n\t}\n}\n\ninterface Reader {\n\tvoid read();\n}\n"
	routes := ExtractJava(src)
	if len(routes) != 3 {
		t.Fatalf("expected 3 routes, got %d: %+v", len(routes), routes)
	}
	if routes[0].Type != store.RouteClass || routes[0].Name != "Widget" {
		t.Errorf("unexpected class route: %+v", routes[0])
	}
	if routes[1].Type != store.RouteMethod || routes[1].Name != "add" {
		t.Errorf("unexpected method route: %+v", routes[1])
	}
	if routes[2].Type != store.RouteInterface || routes[2].Name != "Reader" {
		t.Errorf("unexpected interface route: %+v", routes[2])
	}
}

func TestBuildRoutingSystemIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "server.py")
	if err := os.WriteFile(path, []byte("@app.get(\"/users\")\ndef get_users():\n    pass\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := st.AddFileToIndex(&store.FileIndexEntry{Path: path, Extension: "py"}); err != nil {
		t.Fatalf("AddFileToIndex: %v", err)
	}

	r := New(st)
	first, err := r.BuildRoutingSystem()
	if err != nil {
		t.Fatalf("BuildRoutingSystem 1: %v", err)
	}
	second, err := r.BuildRoutingSystem()
	if err != nil {
		t.Fatalf("BuildRoutingSystem 2: %v", err)
	}
	if first != second {
		t.Fatalf("build result not stable: %+v vs %+v", first, second)
	}

	routes, err := st.GetRoutesForFile(path)
	if err != nil {
		t.Fatalf("GetRoutesForFile: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected exactly 1 route after two builds, got %d", len(routes))
	}
}
