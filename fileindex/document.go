package fileindex

import (
	"path"
	"strconv"
	"strings"

	"github.com/biohub/subindex/external"
)

// ParentSection identifies the section a file-list manifest was found
// under, used to decide whether the built document carries a section field
// (spec §4.5: "present only when the parent node has an accNo and its type
// is not study").
type ParentSection struct {
	AccNo string
	Type  string
}

// reservedFieldNames are the fixed document fields a dynamic attribute must
// not collide with (spec §4.5: "skip ... if a field with the same name
// already exists on the document").
var reservedFieldNames = map[string]bool{
	"position": true, "size": true, "path": true, "name": true,
	"type": true, "isDirectory": true, "owner": true, "section": true,
}

// BuildDocument builds one file document from a manifest entry (spec §4.5,
// component C5), recording the side effects spec §4.5 names onto ctx:
// dynamic attribute names into fileColumns, both attribute names and
// values into searchableFileMetadata, and "SECTION" into fileColumns iff a
// section field was written.
func BuildDocument(entry external.ManifestEntry, parent ParentSection, owner string, position int64, ctx *Context) map[string]any {
	doc := map[string]any{
		"position":    position,
		"size":        parseSize(entry.Size),
		"type":        "file",
		"isDirectory": boolString(strings.EqualFold(entry.Type, "directory")),
		"owner":       owner,
	}

	if p, ok := resolvePath(entry); ok {
		doc["path"] = p
	}
	if name, ok := resolveName(entry, doc); ok {
		doc["name"] = name
		doc["name_lower"] = strings.ToLower(name)
	}
	if parent.AccNo != "" && parent.Type != "study" {
		section := normalizeSection(parent.AccNo)
		doc["section"] = section
		doc["section_lower"] = strings.ToLower(section)
		ctx.markSectionField()
	}

	isEPMC := strings.Contains(strings.ToLower(owner), "epmc")
	written := make(map[string]bool, len(reservedFieldNames))
	for k := range reservedFieldNames {
		written[k] = true
	}

	for _, attr := range entry.Attributes {
		name := strings.TrimSpace(attr.Name)
		value := strings.TrimSpace(attr.Value)
		if name == "" || value == "" {
			continue
		}
		if written[name] {
			continue
		}
		if strings.EqualFold(name, "type") && isEPMC {
			continue
		}
		written[name] = true
		doc[name] = strings.ToLower(value)
		doc[name+"_original"] = value
		ctx.addFileColumn(name)
		ctx.addSearchableMetadata(name)
		ctx.addSearchableMetadata(value)
	}

	return doc
}

func parseSize(raw string) int64 {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// resolvePath returns filePath if present, else relPath (spec §4.5).
func resolvePath(entry external.ManifestEntry) (string, bool) {
	if entry.FilePath != "" {
		return entry.FilePath, true
	}
	if entry.RelPath != "" {
		return entry.RelPath, true
	}
	return "", false
}

// resolveName returns the explicit fileName, else the basename of an
// already-resolved path field; a file with neither carries no name field
// at all (spec Testable Property 8).
func resolveName(entry external.ManifestEntry, doc map[string]any) (string, bool) {
	if entry.FileName != "" {
		return entry.FileName, true
	}
	if p, ok := doc["path"].(string); ok && p != "" {
		return path.Base(p), true
	}
	return "", false
}

func normalizeSection(accNo string) string {
	r := strings.NewReplacer("/", "", " ", "", "\t", "", "\n", "")
	return r.Replace(accNo)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
