package architecture_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/incidentops/itsm-kpi-pipeline"

// TestDomainHasNoUpwardDependencies ensures the domain layer never imports
// the layers built on top of it.
func TestDomainHasNoUpwardDependencies(t *testing.T) {
	forbidden := []string{
		modulePath + "/internal/service",
		modulePath + "/internal/infrastructure",
		modulePath + "/internal/metrics",
	}

	for _, file := range goFilesUnder(t, "../../internal/domain") {
		for _, imp := range fileImports(t, file) {
			for _, prefix := range forbidden {
				if strings.HasPrefix(imp, prefix) {
					t.Errorf("domain file %s imports upward: %s", file, imp)
				}
			}
		}
	}
}

// TestDomainAvoidsInfrastructureLibraries ensures domain types stay free of
// driver and transport dependencies. database/sql/driver is allowed: value
// objects implement driver.Valuer without touching a database.
func TestDomainAvoidsInfrastructureLibraries(t *testing.T) {
	forbiddenExact := []string{
		"database/sql",
		"net/http",
	}
	forbiddenPrefixes := []string{
		"github.com/jackc/pgx",
		"github.com/lib/pq",
		"github.com/redis/go-redis",
		"github.com/knadh/koanf",
		"github.com/prometheus/client_golang",
		"go.opentelemetry.io",
		"go.uber.org/zap",
	}

	for _, file := range goFilesUnder(t, "../../internal/domain") {
		for _, imp := range fileImports(t, file) {
			for _, exact := range forbiddenExact {
				if imp == exact {
					t.Errorf("domain file %s imports infrastructure: %s", file, imp)
				}
			}
			for _, prefix := range forbiddenPrefixes {
				if strings.HasPrefix(imp, prefix) {
					t.Errorf("domain file %s imports infrastructure: %s", file, imp)
				}
			}
		}
	}
}

// TestComputationServicesAvoidInfrastructure ensures the three computation
// stages stay pure functions of their inputs. Only the pipeline package
// composes infrastructure, so a stage can be tested without wiring any.
func TestComputationServicesAvoidInfrastructure(t *testing.T) {
	services := []string{"staging", "enrichment", "aggregation"}

	for _, service := range services {
		t.Run(service, func(t *testing.T) {
			files := goFilesUnder(t, filepath.Join("../../internal/service", service))
			if len(files) == 0 {
				t.Fatalf("service %s has no files", service)
			}

			for _, file := range files {
				for _, imp := range fileImports(t, file) {
					if strings.HasPrefix(imp, modulePath+"/internal/infrastructure") ||
						strings.HasPrefix(imp, modulePath+"/internal/metrics") {
						t.Errorf("service %s imports infrastructure in %s: %s", service, file, imp)
					}
				}
			}
		})
	}
}

// TestValueObjectsAreImmutable ensures value objects don't have setters.
func TestValueObjectsAreImmutable(t *testing.T) {
	for _, file := range goFilesUnder(t, "../../internal/domain/values") {
		fset := token.NewFileSet()
		node, err := parser.ParseFile(fset, file, nil, parser.ParseComments)
		if err != nil {
			t.Errorf("failed to parse %s: %v", file, err)
			continue
		}

		ast.Inspect(node, func(n ast.Node) bool {
			if fn, ok := n.(*ast.FuncDecl); ok {
				if fn.Recv != nil && strings.HasPrefix(fn.Name.Name, "Set") {
					t.Errorf("value object in %s has setter method: %s", file, fn.Name.Name)
				}
			}
			return true
		})
	}
}

// Helper functions

// goFilesUnder collects non-test Go files recursively. filepath.Glob cannot
// expand ** so this walks instead.
func goFilesUnder(t *testing.T, root string) []string {
	t.Helper()

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	return files
}

func fileImports(t *testing.T, filename string) []string {
	t.Helper()

	content, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("failed to read %s: %v", filename, err)
	}

	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filename, content, parser.ImportsOnly)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", filename, err)
	}

	var imports []string
	for _, imp := range node.Imports {
		if imp.Path != nil {
			imports = append(imports, strings.Trim(imp.Path.Value, `"`))
		}
	}
	return imports
}
