// File path: internal/kb/loader_test.go
package kb

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDirParsesFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "payments.md", `---
id: payments-guide
title: Оплата заказов
slug: payments
tags: [оплата, billing]
---
# Оплата

Заказ можно оплатить картой или по счету.
`)
	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	doc := docs[0]
	if doc.ID != "payments-guide" || doc.Title != "Оплата заказов" || doc.Slug != "payments" {
		t.Fatalf("front matter not applied: %+v", doc)
	}
	if !reflect.DeepEqual(doc.Tags, []string{"оплата", "billing"}) {
		t.Fatalf("tags = %v", doc.Tags)
	}
	if doc.Content == "" || doc.Content[0] != '#' {
		t.Fatalf("front matter block leaked into content: %q", doc.Content)
	}
}

func TestLoadDirDefaultsFromFilename(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "refunds.md", "# Возврат средств\n\nВозврат занимает до 10 дней.\n")
	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	doc := docs[0]
	if doc.Slug != "refunds" || doc.ID != "refunds" {
		t.Fatalf("filename defaults not applied: %+v", doc)
	}
	if doc.Title != "Возврат средств" {
		t.Fatalf("expected title from first heading, got %q", doc.Title)
	}
}

func TestLoadDirSkipsNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "notes.txt", "not markdown")
	writeDoc(t, dir, "guide.md", "# Guide\ncontent")
	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 || docs[0].Slug != "guide" {
		t.Fatalf("expected only guide.md, got %+v", docs)
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	docs, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty set, got %d", len(docs))
	}
}
