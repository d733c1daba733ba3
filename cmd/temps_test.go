package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/mobench/internal/store"
)

func TestSelectTempsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	temps := []store.TempInfo{
		{Path: "a.json.tmp-1", ModTime: now.AddDate(0, 0, -10)}, // 10 days old
		{Path: "a.json.tmp-2", ModTime: now.AddDate(0, 0, -5)},  // 5 days old
		{Path: "a.json.tmp-3", ModTime: now.AddDate(0, 0, -1)},  // 1 day old
		{Path: "a.json.tmp-4", ModTime: now.AddDate(0, 0, -30)}, // 30 days old
	}

	// Delete temp files older than 7 days
	toDelete := selectTempsForDeletion(temps, 7, now)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 temp files to delete, got %d", len(toDelete))
	}

	found10 := false
	found30 := false
	for _, info := range toDelete {
		if info.Path == "a.json.tmp-1" {
			found10 = true
		}
		if info.Path == "a.json.tmp-4" {
			found30 = true
		}
	}

	if !found10 || !found30 {
		t.Error("Expected tmp-1 and tmp-4 to be selected for deletion")
	}
}

func TestSelectTempsForDeletion_All(t *testing.T) {
	now := time.Now()
	temps := []store.TempInfo{
		{Path: "a.json.tmp-1", ModTime: now},
		{Path: "a.json.tmp-2", ModTime: now.AddDate(0, 0, -3)},
	}

	if got := selectTempsForDeletion(temps, 0, now); len(got) != 2 {
		t.Errorf("Expected every temp file selected, got %d", len(got))
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestTempsListCommand_NoTemps(t *testing.T) {
	originalDir := tempsDir
	tempsDir = t.TempDir()
	defer func() { tempsDir = originalDir }()

	if err := runListTemps(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestTempsListCommand_MissingDir(t *testing.T) {
	originalDir := tempsDir
	tempsDir = filepath.Join(t.TempDir(), "missing")
	defer func() { tempsDir = originalDir }()

	if err := runListTemps(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestTempsCleanCommand_WithForce(t *testing.T) {
	dir := t.TempDir()

	oldTemp := filepath.Join(dir, "results.json.tmp-old")
	newTemp := filepath.Join(dir, "results.json.tmp-new")
	final := filepath.Join(dir, "results.json")
	for _, path := range []string{oldTemp, newTemp, final} {
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}

	// Manually set modification time to be old
	old := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(oldTemp, old, old); err != nil {
		t.Fatalf("Failed to set mtime: %v", err)
	}

	originalDir := tempsDir
	tempsDir = dir
	defer func() { tempsDir = originalDir }()

	// Set flags
	olderThanDays = 7
	forceClean = true
	defer func() {
		olderThanDays = 0
		forceClean = false
	}()

	if err := runCleanTemps(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if _, err := os.Stat(oldTemp); !os.IsNotExist(err) {
		t.Error("Expected old temp file to be deleted")
	}
	if _, err := os.Stat(newTemp); err != nil {
		t.Error("Expected recent temp file to be kept")
	}
	if _, err := os.Stat(final); err != nil {
		t.Error("Final store must never be touched")
	}
}
