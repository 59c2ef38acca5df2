package region

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/fetch"
	"github.com/baassets/pipeline/internal/manifest"
	"github.com/baassets/pipeline/internal/obfuscate"
	"github.com/baassets/pipeline/internal/progress"
)

const (
	jpNoticeIndexURL = "https://prod-noticeindex.bluearchiveyostar.com/prod/index.json"
	jpUptodownURL    = "https://blue-archive.jp.uptodown.com/android"
	jpApkpureURL     = "https://d.apkpure.com/b/XAPK/com.YostarJP.BlueArchive?nc=arm64-v8a&sv=24"

	// serverInfoDataURLKey is the obfuscated key under which the live
	// server URL is stored in the decoded GameMainConfig JSON object.
	serverInfoDataURLKey = "X04YXBFqd3ZpTg9cKmpvdmpOElwnamB2eE4cXDZqc3ZgTg=="

	gameMainConfigKeyName  = "GameMainConfig"
	serverInfoDataKeyName  = "ServerInfoDataUrl"
	gameMainConfigKeyBytes = 8
)

// JPDriver resolves the Japanese back-end: version is cross-checked
// between an official notice feed and a third-party listing page, the
// apk is downloaded as a single stream (not ranged), and the live server
// URL is not served by any endpoint — it is recovered by decrypting a
// TextAsset baked into the unpacked package.
type JPDriver struct {
	opts   Options
	client *http.Client
}

func (d *JPDriver) Run(ctx context.Context) (catalog.Catalog, *ServerInfo, error) {
	version := d.opts.Version
	if version == "" {
		v, err := d.latestVersion(ctx)
		if err != nil {
			return catalog.Catalog{}, nil, fmt.Errorf("region: jp: resolve version: %w", err)
		}
		version = v
	}
	d.opts.Logger.Info().Str("version", version).Msg("resolved jp version")

	apkPath, err := d.downloadAPK(ctx, version)
	if err != nil {
		return catalog.Catalog{}, nil, fmt.Errorf("region: jp: download apk: %w", err)
	}

	dataDir, err := d.extractAPK(apkPath)
	if err != nil {
		return catalog.Catalog{}, nil, fmt.Errorf("region: jp: extract apk: %w", err)
	}

	serverURL, bundleVersion, err := d.serverURL(ctx, dataDir, version)
	if err != nil {
		return catalog.Catalog{}, nil, fmt.Errorf("region: jp: recover server url: %w", err)
	}

	cat, root, err := d.resourceManifest(ctx, serverURL)
	if err != nil {
		return catalog.Catalog{}, nil, err
	}
	if cat.Len() == 0 {
		return catalog.Catalog{}, nil, fmt.Errorf("region: jp: merged catalog is empty")
	}

	return cat, &ServerInfo{Version: version, CatalogRoot: root, ServerURL: serverURL, BundleVersion: bundleVersion}, nil
}

func (d *JPDriver) latestVersion(ctx context.Context) (string, error) {
	officialBody, officialErr := fetch.New(d.client, http.MethodGet, jpNoticeIndexURL, d.opts.MaxRetries).GetBytes(ctx)
	var official string
	if officialErr == nil {
		var payload struct {
			LatestClientVersion string `json:"LatestClientVersion"`
		}
		if err := json.Unmarshal(officialBody, &payload); err == nil {
			official = payload.LatestClientVersion
		}
	}

	var uptodown string
	listingBody, listingErr := fetch.New(d.client, http.MethodGet, jpUptodownURL, d.opts.MaxRetries).WithScraperHeaders().GetBytes(ctx)
	if listingErr == nil {
		if m := versionPattern.Find(listingBody); m != nil {
			uptodown = string(m)
		}
	}

	if official == "" && uptodown == "" {
		return "", fmt.Errorf("unable to retrieve a version from either source")
	}
	if official != "" && uptodown != "" && official != uptodown && buildNumber(uptodown) > buildNumber(official) {
		return uptodown, nil
	}
	if official != "" {
		return official, nil
	}
	return uptodown, nil
}

func buildNumber(version string) int {
	idx := strings.LastIndex(version, ".")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(version[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

func (d *JPDriver) downloadAPK(ctx context.Context, version string) (string, error) {
	apkURL := jpApkpureURL + "&versionCode=" + versionBuildSuffix(version)

	resp, err := fetch.New(d.client, http.MethodGet, apkURL, d.opts.MaxRetries).WithScraperHeaders().GetResponse(ctx)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	disposition := resp.Header.Get("Content-Disposition")
	filename, ok := parseContentDispositionFilename(disposition)
	if !ok {
		return "", fmt.Errorf("apk response carried no usable Content-Disposition filename")
	}

	if err := os.MkdirAll(d.opts.TempDir, 0o755); err != nil {
		return "", err
	}
	apkPath := filepath.Join(d.opts.TempDir, filename)

	if _, err := fetch.New(d.client, http.MethodGet, apkURL, d.opts.MaxRetries).WithScraperHeaders().SaveFile(ctx, apkPath); err != nil {
		return "", err
	}
	return apkPath, nil
}

func versionBuildSuffix(version string) string {
	idx := strings.LastIndex(version, ".")
	if idx < 0 {
		return version
	}
	return version[idx+1:]
}

// parseContentDispositionFilename extracts the quoted filename from a
// Content-Disposition header value, mirroring the reference client's
// rsplit('"', 2)[-2] extraction.
func parseContentDispositionFilename(header string) (string, bool) {
	parts := strings.Split(header, `"`)
	if len(parts) < 2 {
		return "", false
	}
	return parts[len(parts)-2], true
}

// extractAPK unpacks the outer xapk archive to find the inner apk, then
// unpacks assets/bin/Data out of that apk. It returns the directory
// containing the unpacked data tree.
func (d *JPDriver) extractAPK(apkPath string) (string, error) {
	innerApks, err := extractZipFiltered(apkPath, d.opts.TempDir, "apk")
	if err != nil {
		return "", err
	}
	if len(innerApks) == 0 {
		// Not an xapk wrapper; treat the downloaded file itself as the apk.
		innerApks = []string{apkPath}
	}

	dataDir := filepath.Join(d.opts.TempDir, "data")
	for _, inner := range innerApks {
		if _, err := extractZipFiltered(inner, dataDir, "bin/Data"); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}

// serverURL recovers the live catalog server URL and the apk's build
// version baked into the unpacked asset tree. It walks the tree via the
// injected UnityAssetReader (see driver.go) rather than parsing Unity
// asset bundles itself.
func (d *JPDriver) serverURL(ctx context.Context, dataDir, expectedVersion string) (string, string, error) {
	if d.opts.AssetReader == nil {
		return "", "", fmt.Errorf("no unity asset reader configured; cannot recover the server url from the apk")
	}

	script, err := d.opts.AssetReader.FindTextAsset(ctx, dataDir, gameMainConfigKeyName)
	if err != nil {
		return "", "", fmt.Errorf("find GameMainConfig text asset: %w", err)
	}

	url, err := decodeServerURL(script)
	if err != nil {
		return "", "", err
	}
	d.opts.Logger.Info().Str("url", url).Msg("recovered jp server url")

	bundleVersion, err := d.opts.AssetReader.FindPlayerVersion(ctx, dataDir)
	if err != nil {
		d.opts.Logger.Error().Err(err).Msg("could not retrieve apk version data")
	} else if bundleVersion != "" && bundleVersion != expectedVersion {
		d.opts.Logger.Info().Str("apk_version", bundleVersion).Str("resolved_version", expectedVersion).
			Msg("server version differs from apk version")
	}

	return url, bundleVersion, nil
}

// decodeServerURL implements the reference client's GameMainConfig
// decode chain: base64-encode the raw script bytes, XOR-stream-decrypt
// against the keystream seeded by "GameMainConfig" to get a JSON object,
// look up the hardcoded ServerInfoDataUrl key, and XOR-stream-decrypt
// that value against the keystream seeded by "ServerInfoDataUrl".
func decodeServerURL(script []byte) (string, error) {
	b64 := base64.StdEncoding.EncodeToString(script)
	jsonStr := obfuscate.ConvertString(b64, obfuscate.Keystream(gameMainConfigKeyName, gameMainConfigKeyBytes))

	var obj map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &obj); err != nil {
		return "", fmt.Errorf("decode GameMainConfig json: %w", err)
	}

	encryptedURL, ok := obj[serverInfoDataURLKey]
	if !ok {
		return "", fmt.Errorf("GameMainConfig is missing the server info data url key")
	}

	url := obfuscate.ConvertString(encryptedURL, obfuscate.Keystream(serverInfoDataKeyName, gameMainConfigKeyBytes))
	if url == "" {
		return "", fmt.Errorf("decoded server url was empty")
	}
	return url, nil
}

func (d *JPDriver) resourceManifest(ctx context.Context, catalogURL string) (catalog.Catalog, string, error) {
	body, err := fetch.New(d.client, http.MethodGet, catalogURL, d.opts.MaxRetries).GetBytes(ctx)
	if err != nil {
		return catalog.Catalog{}, "", fmt.Errorf("region: jp: fetch connection groups: %w", err)
	}

	var api struct {
		ConnectionGroups []struct {
			OverrideConnectionGroups []struct {
				AddressablesCatalogUrlRoot string `json:"AddressablesCatalogUrlRoot"`
			} `json:"OverrideConnectionGroups"`
		} `json:"ConnectionGroups"`
	}
	if err := json.Unmarshal(body, &api); err != nil {
		return catalog.Catalog{}, "", fmt.Errorf("region: jp: decode connection groups: %w", err)
	}
	if len(api.ConnectionGroups) == 0 || len(api.ConnectionGroups[0].OverrideConnectionGroups) == 0 {
		return catalog.Catalog{}, "", fmt.Errorf("region: jp: connection groups carried no override catalog root")
	}
	overrides := api.ConnectionGroups[0].OverrideConnectionGroups
	root := overrides[len(overrides)-1].AddressablesCatalogUrlRoot + "/"

	bundleRoot := root + "Android/"
	mediaRoot := root + "MediaResources/"
	tableRoot := root + "TableBundles/"

	merged := catalog.New()

	tableBody, tableErr := fetch.New(d.client, http.MethodGet, tableRoot+"TableCatalog.bytes", d.opts.MaxRetries).
		WithReporter(progress.NewCLIProgress()).GetBytes(ctx)
	mediaBody, mediaErr := fetch.New(d.client, http.MethodGet, mediaRoot+"MediaCatalog.bytes", d.opts.MaxRetries).
		WithReporter(progress.NewCLIProgress()).GetBytes(ctx)
	if tableErr != nil || mediaErr != nil {
		d.opts.Logger.Error().Msg("failed to fetch table or media catalog; continuing with what is available")
	}
	if tableErr == nil {
		tableCat, err := manifest.DecodeJPTable(tableBody, tableRoot)
		if err != nil {
			d.opts.Logger.Error().Err(err).Msg("decode jp table manifest")
		} else {
			merged.Merge(tableCat)
		}
	}
	if mediaErr == nil {
		mediaCat, err := manifest.DecodeJPMedia(mediaBody, mediaRoot)
		if err != nil {
			d.opts.Logger.Error().Err(err).Msg("decode jp media manifest")
		} else {
			merged.Merge(mediaCat)
		}
	}

	bundleResp, err := fetch.New(d.client, http.MethodGet, bundleRoot+"bundleDownloadInfo.json", d.opts.MaxRetries).GetResponse(ctx)
	if err != nil {
		d.opts.Logger.Error().Err(err).Msg("failed to fetch bundle catalog; continuing with what is available")
	} else {
		defer bundleResp.Body.Close()
		if bundleResp.Header.Get("Content-Type") == "application/json" {
			bundleBody, err := readAll(bundleResp)
			if err != nil {
				d.opts.Logger.Error().Err(err).Msg("read bundle catalog")
			} else {
				bundleCat, err := manifest.DecodeJPBundle(bundleBody, bundleRoot)
				if err != nil {
					d.opts.Logger.Error().Err(err).Msg("decode jp bundle manifest")
				} else {
					merged.Merge(bundleCat)
				}
			}
		} else {
			d.opts.Logger.Error().Msg("bundle catalog response was not json; continuing with what is available")
		}
	}

	return merged, root, nil
}
