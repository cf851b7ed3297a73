package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "leadsync"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule limits what one layer directory of a service may import. Paths in
// allow starting with "/" are relative to the service package; others are
// taken as-is. Standard library imports are always allowed.
type layerRule struct {
	allow      []string
	forbidden  []string
	allowThird bool
}

var layerRules = map[string]layerRule{
	"domain": {
		allow:     []string{"/domain"},
		forbidden: []string{"/adapters/", modulePath + "/internal/", modulePath + "/cmd/"},
	},
	"application": {
		allow: []string{
			"/application",
			"/domain",
			"/ports",
			// Workers own their reconnect policy.
			"github.com/juju/clock",
			"github.com/juju/retry",
		},
		forbidden: []string{"/adapters/", modulePath + "/internal/", modulePath + "/cmd/"},
	},
	"ports": {
		allow: []string{"/domain/entities"},
	},
	"transport": {
		allow: []string{"/transport"},
	},
	"adapters": {
		// The shared event envelope is the only runtime package adapters see.
		forbidden:  []string{modulePath + "/internal/platform/", modulePath + "/internal/app/", modulePath + "/cmd/"},
		allowThird: true,
	},
}

func main() {
	violations, err := collectViolations("contexts")
	if err != nil {
		fmt.Printf("boundary check failed: %v\n", err)
		os.Exit(1)
	}
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations walks root, laid out as <context>/<service>/<layer>/...,
// and reports every non-test import that breaks a layer rule.
func collectViolations(root string) ([]violation, error) {
	var violations []violation
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 3 {
			return nil
		}
		service := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[0], parts[1])
		found, err := checkFile(path, filepath.ToSlash(rel), parts[2], service)
		if err != nil {
			return err
		}
		violations = append(violations, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})
	return violations, nil
}

func checkFile(path string, name string, layer string, service string) ([]violation, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		report := func(rule string) {
			violations = append(violations, violation{
				File:   name,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   rule,
			})
		}

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, service) {
			report("cross-module imports are forbidden")
		}

		rule, ok := layerRules[layer]
		if !ok {
			continue
		}
		for _, fragment := range rule.forbidden {
			if strings.Contains(importPath, fragment) {
				report(fmt.Sprintf("%s must not import %s", layer, strings.Trim(fragment, "/")))
			}
		}
		if isStdlib(importPath) || (rule.allowThird && !strings.HasPrefix(importPath, modulePath+"/")) {
			continue
		}
		if rule.allow != nil && !isAllowed(importPath, resolve(rule.allow, service)) {
			report(layer + " import is outside explicit allowlist")
		}
	}
	return violations, nil
}

func resolve(allow []string, service string) []string {
	out := make([]string, 0, len(allow))
	for _, p := range allow {
		if strings.HasPrefix(p, "/") {
			p = service + p
		}
		out = append(out, p)
	}
	return out
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowed []string) bool {
	for _, p := range allowed {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, modulePath+"/") {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
