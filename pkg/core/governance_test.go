//go:build governance

package core_test

import (
	"go/types"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/leapstack-labs/insightql"

// =============================================================================
// COHESION TEST - Core types must be shared by multiple packages
// =============================================================================

// TestGovernance_CoreCohesion verifies that types in pkg/core are genuinely
// shared across multiple packages. Single-use types belong to their sole
// consumer.
func TestGovernance_CoreCohesion(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedTypes |
			packages.NeedTypesInfo | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	coreDefs := make(map[types.Object]string)
	var corePkg *packages.Package

	for _, p := range pkgs {
		if p.PkgPath == modulePath+"/pkg/core" {
			corePkg = p
			scope := p.Types.Scope()
			for _, name := range scope.Names() {
				obj := scope.Lookup(name)
				if obj.Exported() {
					coreDefs[obj] = name
				}
			}
			break
		}
	}

	if corePkg == nil {
		t.Fatal("Could not find pkg/core")
	}

	// Count usages: CoreName -> set of importing packages
	usageMap := make(map[string]map[string]bool)
	for _, name := range coreDefs {
		usageMap[name] = make(map[string]bool)
	}

	base := modulePath + "/"

	for _, p := range pkgs {
		if p.PkgPath == corePkg.PkgPath || strings.HasSuffix(p.PkgPath, "_test") {
			continue
		}
		if p.TypesInfo == nil {
			continue
		}

		for _, info := range p.TypesInfo.Uses {
			if name, exists := coreDefs[info]; exists {
				importer := strings.TrimPrefix(p.PkgPath, base)
				usageMap[name][importer] = true
			}
		}
	}

	for name, importers := range usageMap {
		if isCohesionAllowlisted(name) {
			continue
		}

		if len(importers) == 0 {
			t.Logf("WARNING: Unused core identifier: %s (consider deleting)", name)
		} else if len(importers) == 1 {
			var user string
			for k := range importers {
				user = k
			}
			t.Errorf("COHESION VIOLATION: 'core.%s' is used ONLY by '%s'.\n"+
				"   Fix: Move it from pkg/core to %s.",
				name, user, user)
		}
	}
}

// isCohesionAllowlisted returns true for identifiers allowed to have single usage.
func isCohesionAllowlisted(name string) bool {
	allowlist := map[string]bool{
		"Ingestor":               true, // Interface - implementations live in ingest
		"DatasetStore":           true, // Interface - implementation lives in state
		"PersistedDataset":       true, // Durable unit of DatasetStore
		"SplitKey":               true, // Key resolution lives in query
		"MaxResultRows":          true, // Enforced by the result size guard
		"ResultTooLargeError":    true,
		"NewResultTooLargeError": true,
	}
	return allowlist[name]
}

// =============================================================================
// LAYERING TEST - Public packages never reach into internal ones
// =============================================================================

// TestGovernance_PkgLayering ensures pkg/... stays importable on its own:
// no internal packages and no CLI or transport stacks.
func TestGovernance_PkgLayering(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	forbiddenPrefixes := []string{
		modulePath + "/internal/",
		"github.com/spf13/",
		"github.com/go-chi/",
		"database/sql",
	}

	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			continue
		}
		for importPath := range pkg.Imports {
			for _, prefix := range forbiddenPrefixes {
				if strings.HasPrefix(importPath, prefix) {
					t.Errorf("LAYERING VIOLATION: Package '%s' imports '%s'.\n"+
						"   Fix: Move the dependency behind an interface in pkg/core.",
						strings.TrimPrefix(pkg.PkgPath, modulePath+"/"), importPath)
				}
			}
		}
	}
}
