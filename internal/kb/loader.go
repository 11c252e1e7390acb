// File path: internal/kb/loader.go
package kb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/helpmate-bot/helpmate/internal/common"
)

// Doc is one knowledge-base article loaded from a markdown file.
type Doc struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Slug    string   `json:"slug"`
	Tags    []string `json:"tags,omitempty"`
	Content string   `json:"content"`
}

// LoadDir reads every .md file under dir (non-recursive) into a Doc. Front
// matter, when present, overrides the defaults derived from the filename.
// A missing directory yields an empty set, matching the FAQ store behavior.
func LoadDir(dir string) ([]Doc, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			common.Logger().Warn("kb: documents directory missing", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read kb dir: %w", err)
	}
	var docs []Doc
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read kb file %s: %w", entry.Name(), err)
		}
		docs = append(docs, parseDoc(entry.Name(), string(data)))
	}
	common.Logger().Info("kb: documents loaded", "dir", dir, "count", len(docs))
	return docs, nil
}

// parseDoc builds a Doc from raw markdown. The slug defaults to the filename
// without extension; a leading front matter block (--- ... ---) may override
// id, title, slug, and tags.
func parseDoc(filename, raw string) Doc {
	slug := strings.TrimSuffix(filename, ".md")
	doc := Doc{ID: slug, Slug: slug, Title: slug, Content: raw}
	meta, body, ok := splitFrontMatter(raw)
	if !ok {
		if title := firstHeading(raw); title != "" {
			doc.Title = title
		}
		return doc
	}
	doc.Content = body
	for key, value := range meta {
		switch key {
		case "id":
			doc.ID = value
		case "title":
			doc.Title = value
		case "slug":
			doc.Slug = value
		case "tags":
			doc.Tags = splitTags(value)
		}
	}
	if doc.Title == slug {
		if title := firstHeading(body); title != "" {
			doc.Title = title
		}
	}
	return doc
}

// splitFrontMatter extracts the key/value block delimited by --- lines at the
// top of the file. Values are plain scalars or a comma/bracket tag list.
func splitFrontMatter(raw string) (map[string]string, string, bool) {
	trimmed := strings.TrimPrefix(raw, "\ufeff")
	if !strings.HasPrefix(trimmed, "---") {
		return nil, raw, false
	}
	rest := trimmed[3:]
	rest = strings.TrimPrefix(rest, "\r")
	if !strings.HasPrefix(rest, "\n") {
		return nil, raw, false
	}
	rest = rest[1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, raw, false
	}
	block := rest[:end]
	body := rest[end+4:]
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")
	meta := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		meta[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return meta, body, true
}

func splitTags(value string) []string {
	value = strings.Trim(value, "[]")
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.Trim(strings.TrimSpace(part), `"'`)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
	}
	return ""
}
