package fileindex

// pendingManifest is one (fileName, filesUrl, parent section) triple found
// while walking a submission body, ready to be fetched (spec §4.6 steps
// 1-2).
type pendingManifest struct {
	FileName string
	FilesURL string
	Parent   ParentSection
}

// findManifests walks the raw submission JSON to find every parent node
// that has a fileList child with a non-empty fileName, recursing through
// both a singular "section" field and a "sections" array (spec §4.6 step
// 1; §6 "section(.sections)*.fileList.{fileName, filesUrl}").
func findManifests(doc map[string]any) []pendingManifest {
	var out []pendingManifest
	walkManifests(doc, ParentSection{}, &out)
	return out
}

func walkManifests(node any, parent ParentSection, out *[]pendingManifest) {
	m, ok := node.(map[string]any)
	if !ok {
		return
	}

	self := parent
	if accNo, ok := m["accNo"].(string); ok && accNo != "" {
		typ, _ := m["type"].(string)
		self = ParentSection{AccNo: accNo, Type: typ}
	}

	if fl, ok := m["fileList"]; ok {
		appendManifestsFrom(fl, self, out)
	}
	if section, ok := m["section"]; ok {
		walkManifests(section, self, out)
	}
	if sections, ok := m["sections"].([]any); ok {
		for _, s := range sections {
			walkManifests(s, self, out)
		}
	}
}

func appendManifestsFrom(fl any, parent ParentSection, out *[]pendingManifest) {
	switch v := fl.(type) {
	case map[string]any:
		addManifestEntry(v, parent, out)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				addManifestEntry(m, parent, out)
			}
		}
	}
}

func addManifestEntry(m map[string]any, parent ParentSection, out *[]pendingManifest) {
	fileName, _ := m["fileName"].(string)
	filesURL, _ := m["filesUrl"].(string)
	if fileName == "" || filesURL == "" {
		return
	}
	*out = append(*out, pendingManifest{FileName: fileName, FilesURL: filesURL, Parent: parent})
}
