package manifest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/baassets/pipeline/internal/catalog"
)

var cnMediaExtensions = map[int]string{
	1: "ogg",
	2: "mp4",
	3: "jpg",
	4: "png",
	5: "acb",
	6: "awb",
}

type cnBundleFeed struct {
	BundleFiles []struct {
		Name            string `json:"Name"`
		Size            uint64 `json:"Size"`
		Crc             string `json:"Crc"`
		IsPrologue      bool   `json:"IsPrologue"`
		IsSplitDownload bool   `json:"IsSplitDownload"`
	} `json:"BundleFiles"`
}

type cnTableFeed struct {
	Table map[string]struct {
		Name     string   `json:"Name"`
		Crc      string   `json:"Crc"`
		Size     uint64   `json:"Size"`
		Includes []string `json:"Includes"`
	} `json:"Table"`
}

// DecodeCNBundle parses the CN bundle feed (UTF-8 JSON with a BundleFiles
// array) and emits one bundle entry per element.
func DecodeCNBundle(data []byte, bundleBaseURL string) (catalog.Catalog, error) {
	var feed cnBundleFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return catalog.Catalog{}, fmt.Errorf("manifest: cn bundle: %w", err)
	}

	out := catalog.New()
	for _, b := range feed.BundleFiles {
		out.Add(
			joinURL(bundleBaseURL, b.Name),
			"Bundle/"+b.Name,
			b.Size,
			b.Crc,
			catalog.CheckMD5,
			catalog.ResourceBundle,
			map[string]any{
				"is_prologue":       b.IsPrologue,
				"is_split_download": b.IsSplitDownload,
			},
		)
	}
	return out, nil
}

// DecodeCNMedia parses the CN media feed: one "path,md5,mediaType,size,_"
// line per entry.
func DecodeCNMedia(data []byte, mediaBaseURL string) (catalog.Catalog, error) {
	out := catalog.New()

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			return catalog.Catalog{}, fmt.Errorf("manifest: cn media: malformed line %q", line)
		}

		relPath, md5, mediaTypeStr, sizeStr := fields[0], fields[1], fields[2], fields[3]

		mediaType, err := strconv.Atoi(mediaTypeStr)
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: cn media: bad mediaType in %q: %w", line, err)
		}
		size, err := strconv.ParseUint(sizeStr, 10, 64)
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: cn media: bad size in %q: %w", line, err)
		}

		if ext, ok := cnMediaExtensions[mediaType]; ok {
			relPath += "." + ext
		} else {
			logger.Info().Int("media_type", mediaType).Str("path", relPath).Msg("unknown CN media type, keeping entry without extension")
		}

		if len(md5) < 2 {
			return catalog.Catalog{}, fmt.Errorf("manifest: cn media: md5 too short in %q", line)
		}
		fetchPath := md5[:2] + "/" + md5

		out.Add(
			joinURL(mediaBaseURL, fetchPath),
			"Media/"+relPath,
			size,
			md5,
			catalog.CheckMD5,
			catalog.ResourceMedia,
			map[string]any{"media_type": mediaType},
		)
	}
	return out, nil
}

// DecodeCNTable parses the CN table feed: JSON {"Table": {key: {...}}}.
func DecodeCNTable(data []byte, tableBaseURL string) (catalog.Catalog, error) {
	var feed cnTableFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return catalog.Catalog{}, fmt.Errorf("manifest: cn table: %w", err)
	}

	out := catalog.New()
	for _, item := range feed.Table {
		if len(item.Crc) < 2 {
			return catalog.Catalog{}, fmt.Errorf("manifest: cn table: crc too short for %q", item.Name)
		}
		fetchPath := item.Crc[:2] + "/" + item.Crc

		out.Add(
			joinURL(tableBaseURL, fetchPath),
			"Table/"+item.Name,
			item.Size,
			item.Crc,
			catalog.CheckMD5,
			catalog.ResourceTable,
			map[string]any{"includes": item.Includes},
		)
	}
	return out, nil
}

func joinURL(base, rel string) string {
	if strings.HasSuffix(base, "/") {
		return base + rel
	}
	return base + "/" + rel
}
