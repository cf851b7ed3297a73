package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContextsRespectLayerBoundaries(t *testing.T) {
	violations, err := collectViolations(filepath.Join("..", "contexts"))
	if err != nil {
		t.Fatalf("collect violations: %v", err)
	}
	for _, v := range violations {
		t.Errorf("%s:%d imports %q (%s)", v.File, v.Line, v.Import, v.Rule)
	}
}

func TestCollectViolationsFlagsLayerBreaks(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "sales/leads/domain/entities/lead.go", `package entities

import (
	"time"

	"leadsync/contexts/sales/leads/adapters/postgres"
	"leadsync/internal/platform/db"
)

var _ = time.Now
`)
	writeSource(t, root, "sales/leads/application/commands/sync.go", `package commands

import (
	"leadsync/contexts/billing/invoices/domain/entities"
	"leadsync/contexts/sales/leads/ports"
	"gorm.io/gorm"
)
`)
	writeSource(t, root, "sales/leads/adapters/postgres/repo.go", `package postgres

import (
	"gorm.io/gorm"
	"leadsync/contexts/sales/leads/domain/entities"
	"leadsync/internal/shared/events"
)
`)
	writeSource(t, root, "sales/leads/application/commands/sync_test.go", `package commands

import "leadsync/internal/platform/db"
`)

	violations, err := collectViolations(root)
	if err != nil {
		t.Fatalf("collect violations: %v", err)
	}

	got := map[string]int{}
	for _, v := range violations {
		got[v.File+" "+v.Import]++
	}
	want := map[string]int{
		// adapter import from domain plus allowlist miss
		"sales/leads/domain/entities/lead.go leadsync/contexts/sales/leads/adapters/postgres": 2,
		"sales/leads/domain/entities/lead.go leadsync/internal/platform/db":                   2,
		// cross-module plus allowlist miss
		"sales/leads/application/commands/sync.go leadsync/contexts/billing/invoices/domain/entities": 2,
		"sales/leads/application/commands/sync.go gorm.io/gorm":                                      1,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for key, count := range want {
		if got[key] != count {
			t.Fatalf("expected %d violations for %s, got %d (all: %v)", count, key, got[key], got)
		}
	}
}

func writeSource(t *testing.T, root string, name string, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
