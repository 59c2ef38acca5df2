// Package charrelation consumes the cached `{REGION}CharacterRelation.json`
// name-resolution table that advanced search filters catalog paths
// against. Producing that file from decoded tables is out of scope here;
// this package only knows how to read one and answer keyword queries
// against it.
package charrelation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// relationFile is the on-disk shape of a {REGION}CharacterRelation.json
// file: a character's internal ID mapped to every display name, alias, or
// voice-actor credit a search keyword might match against.
type relationFile map[string][]string

// Load reads the relation file for region (case-insensitive) out of dir,
// e.g. Load("ExtractedTable", "jp") reads dir/JPCharacterRelation.json.
func Load(dir, region string) (relationFile, error) {
	name := strings.ToUpper(region) + "CharacterRelation.json"
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("charrelation: read %s: %w", path, err)
	}

	var rel relationFile
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, fmt.Errorf("charrelation: parse %s: %w", path, err)
	}
	return rel, nil
}

// Search returns every character ID in the region's relation table whose
// name or alias list contains any of keywords, case-insensitively. version
// is accepted for forward compatibility with per-version relation tables
// but is not currently used to select among multiple files.
func Search(dir, version, region string, keywords []string) ([]string, error) {
	rel, err := Load(dir, region)
	if err != nil {
		return nil, err
	}

	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}

	var matches []string
	for id, aliases := range rel {
		if matchesAny(aliases, lowered) {
			matches = append(matches, id)
		}
	}
	return matches, nil
}

func matchesAny(aliases, keywords []string) bool {
	for _, alias := range aliases {
		lowered := strings.ToLower(alias)
		for _, k := range keywords {
			if strings.Contains(lowered, k) {
				return true
			}
		}
	}
	return false
}
