package manifest

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/baassets/pipeline/internal/catalog"
)

type glPayload struct {
	Resources []struct {
		Group        string `json:"group"`
		ResourcePath string `json:"resource_path"`
		ResourceSize uint64 `json:"resource_size"`
		ResourceHash string `json:"resource_hash"`
	} `json:"resources"`
}

// DecodeGL parses the single GL JSON payload and routes each resource by
// substring on its path: "TableBundles" -> table, "MediaResources" ->
// media, a ".bundle" suffix -> bundle.
func DecodeGL(data []byte, baseURL string) (catalog.Catalog, error) {
	var payload glPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return catalog.Catalog{}, fmt.Errorf("manifest: gl: %w", err)
	}

	out := catalog.New()
	for _, res := range payload.Resources {
		resourceType, localPath, ok := glRoute(res.ResourcePath)
		if !ok {
			logger.Info().Str("resource_path", res.ResourcePath).Msg("GL resource did not match any known routing substring, skipping")
			continue
		}

		out.Add(
			joinURL(baseURL, res.ResourcePath),
			localPath,
			res.ResourceSize,
			res.ResourceHash,
			catalog.CheckMD5,
			resourceType,
			map[string]any{"group": res.Group},
		)
	}
	return out, nil
}

func glRoute(resourcePath string) (catalog.ResourceType, string, bool) {
	switch {
	case strings.Contains(resourcePath, "TableBundles"):
		return catalog.ResourceTable, "Table/" + path.Base(resourcePath), true
	case strings.Contains(resourcePath, "MediaResources"):
		return catalog.ResourceMedia, "Media/" + path.Base(resourcePath), true
	case strings.HasSuffix(resourcePath, ".bundle"):
		return catalog.ResourceBundle, "Bundle/" + path.Base(resourcePath), true
	default:
		return "", "", false
	}
}
