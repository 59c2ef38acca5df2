package manifest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/baassets/pipeline/internal/catalog"
)

// DecodeJPMedia parses a JP media catalog: one leading i8, an i32 item
// count, then that many media records.
func DecodeJPMedia(data []byte, mediaBaseURL string) (catalog.Catalog, error) {
	r := newBinReader(data)
	if _, err := r.readI8(); err != nil {
		return catalog.Catalog{}, fmt.Errorf("manifest: jp media: %w", err)
	}
	count, err := r.readI32()
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("manifest: jp media: %w", err)
	}

	out := catalog.New()
	for i := int32(0); i < count; i++ {
		if _, err := r.readI32(); err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		key, err := r.readString()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		if _, err := r.readI8(); err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		relPath, err := r.readString()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		fileName, err := r.readString()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		size, err := r.readI64()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		crc, err := r.readI64()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		isPrologue, err := r.readBool()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		isSplitDownload, err := r.readBool()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}
		mediaType, err := r.readI32()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp media: record %d: %w", i, err)
		}

		normalizedPath := strings.ReplaceAll(relPath, "\\", "/")

		out.Add(
			joinURL(mediaBaseURL, key),
			"Media/"+normalizedPath,
			uint64(size),
			strconv.FormatInt(crc, 10),
			catalog.CheckCRC32,
			catalog.ResourceMedia,
			map[string]any{
				"file_name":         fileName,
				"media_type":        mediaType,
				"is_prologue":       isPrologue,
				"is_split_download": isSplitDownload,
			},
		)
	}
	return out, nil
}

// DecodeJPTable parses a JP table catalog: one leading i8, an i32 item
// count, then that many table records.
func DecodeJPTable(data []byte, tableBaseURL string) (catalog.Catalog, error) {
	r := newBinReader(data)
	if _, err := r.readI8(); err != nil {
		return catalog.Catalog{}, fmt.Errorf("manifest: jp table: %w", err)
	}
	count, err := r.readI32()
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("manifest: jp table: %w", err)
	}

	out := catalog.New()
	for i := int32(0); i < count; i++ {
		if _, err := r.readI32(); err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		key, err := r.readString()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		if _, err := r.readI8(); err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		name, err := r.readString()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		size, err := r.readI64()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		crc, err := r.readI64()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		isInBuild, err := r.readBool()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		isChanged, err := r.readBool()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		isPrologue, err := r.readBool()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		isSplitDownload, err := r.readBool()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}
		includes, err := r.readTableIncludes()
		if err != nil {
			return catalog.Catalog{}, fmt.Errorf("manifest: jp table: record %d: %w", i, err)
		}

		out.Add(
			joinURL(tableBaseURL, key),
			"Table/"+name,
			uint64(size),
			strconv.FormatInt(crc, 10),
			catalog.CheckCRC32,
			catalog.ResourceTable,
			map[string]any{
				"is_in_build":       isInBuild,
				"is_changed":        isChanged,
				"is_prologue":       isPrologue,
				"is_split_download": isSplitDownload,
				"includes":          includes,
			},
		)
	}
	return out, nil
}

type jpBundleFeed struct {
	BundleFiles []struct {
		Name            string `json:"Name"`
		Size            uint64 `json:"Size"`
		Crc             int64  `json:"Crc"`
		IsPrologue      bool   `json:"IsPrologue"`
		IsSplitDownload bool   `json:"IsSplitDownload"`
	} `json:"BundleFiles"`
}

// DecodeJPBundle parses the JP bundle feed. It shares the CN bundle feed's
// JSON shape, but the checksum is the server's numeric CRC rather than an
// MD5 hex digest.
func DecodeJPBundle(data []byte, bundleBaseURL string) (catalog.Catalog, error) {
	var feed jpBundleFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return catalog.Catalog{}, fmt.Errorf("manifest: jp bundle: %w", err)
	}

	out := catalog.New()
	for _, b := range feed.BundleFiles {
		out.Add(
			joinURL(bundleBaseURL, b.Name),
			"Bundle/"+b.Name,
			b.Size,
			strconv.FormatInt(b.Crc, 10),
			catalog.CheckCRC32,
			catalog.ResourceBundle,
			map[string]any{
				"is_prologue":       b.IsPrologue,
				"is_split_download": b.IsSplitDownload,
			},
		)
	}
	return out, nil
}
