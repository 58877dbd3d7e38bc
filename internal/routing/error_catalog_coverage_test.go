package routing

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
)

// Every code a handler can put on the wire needs a catalog message. Codes
// come from ErrCode* constants and from the code argument of WriteError and
// the controllers' writeError.
func TestErrorCatalog_CoversResponseCodes(t *testing.T) {
	path, err := DefaultErrorCatalogPath()
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := LoadErrorCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	root := filepath.Dir(filepath.Dir(filepath.Dir(path)))

	codes := responseCodes(t, filepath.Join(root, "internal"), filepath.Join(root, "modules"))
	if len(codes) == 0 {
		t.Fatal("no response codes found")
	}
	var missing []string
	for code := range codes {
		if _, ok := catalog.Message(code); !ok {
			missing = append(missing, code)
		}
	}
	slices.Sort(missing)
	if len(missing) > 0 {
		t.Fatalf("catalog has no message for: %v", missing)
	}
}

func TestResponseCodes_Extraction(t *testing.T) {
	dir := t.TempDir()
	src := `package demo

const ErrCodeBroken = "BROKEN"
const localCode = "local_code"
const notACode = "ignored"

func handle() {
	writeError(w, r, 400, "literal_code", "x")
	writeError(w, r, 400, localCode, "x")
	routing.WriteError(w, r, rc, 404, services.ErrCodeElsewhere, "x")
	writeError(w, r, 500, err.Error(), "dynamic")
}
`
	other := `package services

const ErrCodeElsewhere = "ELSEWHERE"
`
	writeGo(t, filepath.Join(dir, "demo", "demo.go"), src)
	writeGo(t, filepath.Join(dir, "services", "errors.go"), other)
	writeGo(t, filepath.Join(dir, "demo", "demo_test.go"), "package demo\n\nconst ErrCodeTestOnly = \"TEST_ONLY\"\n")

	got := responseCodes(t, dir)
	want := []string{"BROKEN", "ELSEWHERE", "literal_code", "local_code"}
	keys := make([]string, 0, len(got))
	for k := range got {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, want) {
		t.Fatalf("codes=%v want %v", keys, want)
	}
}

func writeGo(t *testing.T, path, src string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

type sourceFile struct {
	pkg  string
	file *ast.File
}

func responseCodes(t *testing.T, dirs ...string) map[string]struct{} {
	t.Helper()

	fset := token.NewFileSet()
	var files []sourceFile
	// constants by package name, then identifier
	consts := map[string]map[string]string{}
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
			if err != nil {
				return err
			}
			files = append(files, sourceFile{pkg: f.Name.Name, file: f})
			if consts[f.Name.Name] == nil {
				consts[f.Name.Name] = map[string]string{}
			}
			collectStringConsts(f, consts[f.Name.Name])
			return nil
		})
		if err != nil {
			t.Fatalf("walk %s: %v", dir, err)
		}
	}

	out := map[string]struct{}{}
	for _, pkg := range consts {
		for name, value := range pkg {
			if strings.HasPrefix(name, "ErrCode") && value != "" {
				out[value] = struct{}{}
			}
		}
	}
	for _, sf := range files {
		ast.Inspect(sf.file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			idx, ok := codeArgIndex(call.Fun)
			if !ok || len(call.Args) <= idx {
				return true
			}
			if code := constString(call.Args[idx], consts[sf.pkg], consts); code != "" {
				out[code] = struct{}{}
			}
			return true
		})
	}
	return out
}

func collectStringConsts(f *ast.File, into map[string]string) {
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		for _, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, name := range vs.Names {
				if i < len(vs.Values) {
					if s := literalString(vs.Values[i]); s != "" {
						into[name.Name] = s
					}
				}
			}
		}
	}
}

// codeArgIndex locates the code parameter: writeError(w, r, status, code, msg)
// and WriteError(w, r, rc, status, code, msg).
func codeArgIndex(fn ast.Expr) (int, bool) {
	switch x := fn.(type) {
	case *ast.Ident:
		switch x.Name {
		case "writeError":
			return 3, true
		case "WriteError":
			return 4, true
		}
	case *ast.SelectorExpr:
		if x.Sel.Name == "WriteError" {
			return 4, true
		}
	}
	return 0, false
}

func constString(expr ast.Expr, local map[string]string, all map[string]map[string]string) string {
	switch x := expr.(type) {
	case *ast.BasicLit:
		return literalString(x)
	case *ast.Ident:
		return local[x.Name]
	case *ast.SelectorExpr:
		if pkg, ok := x.X.(*ast.Ident); ok {
			return all[pkg.Name][x.Sel.Name]
		}
	}
	return ""
}

func literalString(expr ast.Expr) string {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return ""
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
