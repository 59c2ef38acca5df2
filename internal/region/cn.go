package region

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/fetch"
	"github.com/baassets/pipeline/internal/manifest"
	"github.com/baassets/pipeline/internal/progress"
)

const (
	cnHomeURL    = "https://bluearchive-cn.com/"
	cnVersionURL = "https://bluearchive-cn.com/api/meta/setup"
	cnInfoURL    = "https://gs-api.bluearchive-cn.com/api/state"
	cnBiliURL    = "https://line1-h5-pc-api.biligame.com/game/detail/gameinfo?game_base_id=109864"

	cnPackageWorkers = 5
)

var (
	versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)
	cnScriptTagRe  = regexp.MustCompile(`<script[^>]+type="module"[^>]+crossorigin[^>]+src="([^"]+)"[^>]*>`)
	cnApkURLRe     = regexp.MustCompile(`https?://[^\s"<>]+?\.apk`)
)

// CNDriver resolves the Chinese mainland back-end: an official apk mirror
// plus a permanent, permanently-authenticated server-state endpoint. CN
// rejects a user-supplied version — the version comes from the apk's own
// metadata endpoint and the server-state call must match it.
type CNDriver struct {
	opts   Options
	client *http.Client
}

func (d *CNDriver) Run(ctx context.Context) (catalog.Catalog, *ServerInfo, error) {
	if d.opts.Version != "" {
		return catalog.Catalog{}, nil, fmt.Errorf("region: cn: a version override is not supported; it is always resolved from the server")
	}

	version, err := d.latestVersion(ctx)
	if err != nil {
		return catalog.Catalog{}, nil, fmt.Errorf("region: cn: resolve version: %w", err)
	}
	d.opts.Logger.Info().Str("version", version).Msg("resolved cn version")

	apkURL, err := d.apkURL(ctx, false)
	if err != nil {
		d.opts.Logger.Error().Err(err).Msg("official apk lookup failed, falling back to bilibili")
		apkURL, err = d.apkURL(ctx, true)
		if err != nil {
			return catalog.Catalog{}, nil, fmt.Errorf("region: cn: resolve apk url: %w", err)
		}
	}

	if err := d.downloadExtractAPK(ctx, apkURL); err != nil {
		return catalog.Catalog{}, nil, fmt.Errorf("region: cn: acquire apk: %w", err)
	}

	state, err := d.serverState(ctx, version)
	if err != nil {
		return catalog.Catalog{}, nil, fmt.Errorf("region: cn: server state: %w", err)
	}

	cat, root, err := d.resourceManifest(ctx, state)
	if err != nil {
		return catalog.Catalog{}, nil, err
	}
	if cat.Len() == 0 {
		return catalog.Catalog{}, nil, fmt.Errorf("region: cn: merged catalog is empty")
	}

	return cat, &ServerInfo{Version: version, CatalogRoot: root}, nil
}

func (d *CNDriver) latestVersion(ctx context.Context) (string, error) {
	body, err := fetch.New(d.client, http.MethodGet, cnVersionURL, d.opts.MaxRetries).WithScraperHeaders().GetBytes(ctx)
	if err != nil {
		return "", err
	}
	m := versionPattern.Find(body)
	if m == nil {
		return "", fmt.Errorf("version pattern not found in response")
	}
	return string(m), nil
}

func (d *CNDriver) apkURL(ctx context.Context, useBili bool) (string, error) {
	if useBili {
		body, err := fetch.New(d.client, http.MethodGet, cnBiliURL, d.opts.MaxRetries).WithScraperHeaders().GetBytes(ctx)
		if err != nil {
			return "", err
		}
		var payload struct {
			AndroidDownloadLink string `json:"android_download_link"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("decode bilibili response: %w", err)
		}
		if payload.AndroidDownloadLink == "" {
			return "", fmt.Errorf("bilibili response missing android_download_link")
		}
		return payload.AndroidDownloadLink, nil
	}

	home, err := fetch.New(d.client, http.MethodGet, cnHomeURL, d.opts.MaxRetries).WithScraperHeaders().GetBytes(ctx)
	if err != nil {
		return "", err
	}
	scriptMatch := cnScriptTagRe.FindSubmatch(home)
	if scriptMatch == nil {
		return "", fmt.Errorf("could not find the entrypoint script tag in the home page")
	}

	script, err := fetch.New(d.client, http.MethodGet, string(scriptMatch[1]), d.opts.MaxRetries).WithScraperHeaders().GetBytes(ctx)
	if err != nil {
		return "", err
	}
	apkMatch := cnApkURLRe.Find(script)
	if apkMatch == nil {
		return "", fmt.Errorf("could not find an apk url in the entrypoint script")
	}
	return string(apkMatch), nil
}

// downloadExtractAPK splits the package into cnPackageWorkers ranged
// chunks, concatenates them, verifies the total size, retries the whole
// package once on mismatch, then extracts assets/bin/Data into the temp
// directory's data tree.
func (d *CNDriver) downloadExtractAPK(ctx context.Context, apkURL string) error {
	resp, err := fetch.New(d.client, http.MethodHead, apkURL, d.opts.MaxRetries).WithScraperHeaders().GetResponse(ctx)
	if err != nil {
		return fmt.Errorf("head apk: %w", err)
	}
	size := resp.ContentLength
	resp.Body.Close()
	if size <= 0 {
		return fmt.Errorf("apk head response carried no content length")
	}

	if err := os.MkdirAll(d.opts.TempDir, 0o755); err != nil {
		return err
	}
	apkPath := filepath.Join(d.opts.TempDir, filepath.Base(apkURL))

	if info, statErr := os.Stat(apkPath); statErr == nil && info.Size() == size {
		return d.extractAPKData(apkPath)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := d.downloadRangedChunks(ctx, apkURL, apkPath, size); err != nil {
			return err
		}
		info, err := os.Stat(apkPath)
		if err == nil && info.Size() == size {
			return d.extractAPKData(apkPath)
		}
		d.opts.Logger.Error().Msg("downloaded apk size mismatch, retrying once")
	}
	return fmt.Errorf("apk download size mismatch persisted after retry")
}

func (d *CNDriver) downloadRangedChunks(ctx context.Context, apkURL, apkPath string, size int64) error {
	chunkSize := size / cnPackageWorkers
	chunkPaths := make([]string, cnPackageWorkers)

	var wg sync.WaitGroup
	errs := make([]error, cnPackageWorkers)
	for i := 0; i < cnPackageWorkers; i++ {
		start := chunkSize * int64(i)
		end := start + chunkSize - 1
		if i == cnPackageWorkers-1 {
			end = size - 1
		}
		chunkPath := filepath.Join(d.opts.TempDir, fmt.Sprintf("chunk_%d.dat", i))
		chunkPaths[i] = chunkPath

		wg.Add(1)
		go func(i int, start, end int64, chunkPath string) {
			defer wg.Done()
			f := fetch.New(d.client, http.MethodGet, apkURL, d.opts.MaxRetries).WithScraperHeaders().WithRange(start, end)
			if _, err := f.SaveFile(ctx, chunkPath); err != nil {
				errs[i] = err
			}
		}(i, start, end, chunkPath)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("ranged chunk download: %w", err)
		}
	}

	out, err := os.Create(apkPath)
	if err != nil {
		return err
	}
	defer out.Close()
	for _, chunkPath := range chunkPaths {
		if err := appendFile(out, chunkPath); err != nil {
			return err
		}
		os.Remove(chunkPath)
	}
	return nil
}

func appendFile(dst *os.File, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = dst.ReadFrom(src)
	return err
}

func (d *CNDriver) extractAPKData(apkPath string) error {
	_, err := extractZipFiltered(apkPath, filepath.Join(d.opts.TempDir, "data"), "bin/Data")
	return err
}

type cnServerState struct {
	AddressablesCatalogUrlRoots []string `json:"AddressablesCatalogUrlRoots"`
	TableVersion                string   `json:"TableVersion"`
	MediaVersion                string   `json:"MediaVersion"`
	ResourceVersion             string   `json:"ResourceVersion"`
}

func (d *CNDriver) serverState(ctx context.Context, version string) (*cnServerState, error) {
	f := fetch.New(d.client, http.MethodGet, cnInfoURL, d.opts.MaxRetries).
		WithHeader("APP-VER", version).
		WithHeader("PLATFORM-ID", "1").
		WithHeader("CHANNEL-ID", "2")

	body, err := f.GetBytes(ctx)
	if err != nil {
		return nil, err
	}
	var state cnServerState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("decode server state: %w", err)
	}
	if len(state.AddressablesCatalogUrlRoots) == 0 {
		return nil, fmt.Errorf("server state carried no catalog url roots")
	}
	return &state, nil
}

func (d *CNDriver) resourceManifest(ctx context.Context, state *cnServerState) (catalog.Catalog, string, error) {
	root := state.AddressablesCatalogUrlRoots[0] + "/"
	bundleRoot := root + "AssetBundles/Android/"
	mediaRoot := root + "pool/MediaResources/"
	tableRoot := root + "pool/TableBundles/"

	tableURL := root + "Manifest/TableBundles/" + state.TableVersion + "/TableManifest"
	mediaURL := root + "Manifest/MediaResources/" + state.MediaVersion + "/MediaManifest"
	bundleURL := root + "AssetBundles/Catalog/" + state.ResourceVersion + "/Android/bundleDownloadInfo.json"

	merged := catalog.New()

	tableBody, tableErr := fetch.New(d.client, http.MethodGet, tableURL, d.opts.MaxRetries).
		WithReporter(progress.NewCLIProgress()).GetBytes(ctx)
	mediaBody, mediaErr := fetch.New(d.client, http.MethodGet, mediaURL, d.opts.MaxRetries).
		WithReporter(progress.NewCLIProgress()).GetBytes(ctx)
	if tableErr != nil || mediaErr != nil {
		d.opts.Logger.Error().Msg("failed to fetch table or media catalog; continuing with what is available")
	}
	if tableErr == nil {
		tableCat, err := manifest.DecodeCNTable(tableBody, tableRoot)
		if err != nil {
			d.opts.Logger.Error().Err(err).Msg("decode cn table manifest")
		} else {
			merged.Merge(tableCat)
		}
	}
	if mediaErr == nil {
		mediaCat, err := manifest.DecodeCNMedia(mediaBody, mediaRoot)
		if err != nil {
			d.opts.Logger.Error().Err(err).Msg("decode cn media manifest")
		} else {
			merged.Merge(mediaCat)
		}
	}

	bundleResp, err := fetch.New(d.client, http.MethodGet, bundleURL, d.opts.MaxRetries).GetResponse(ctx)
	if err != nil {
		d.opts.Logger.Error().Err(err).Msg("failed to fetch bundle catalog; continuing with what is available")
	} else {
		defer bundleResp.Body.Close()
		if bundleResp.Header.Get("Content-Type") == "application/json" {
			bundleBody, err := readAll(bundleResp)
			if err != nil {
				d.opts.Logger.Error().Err(err).Msg("read bundle catalog")
			} else {
				bundleCat, err := manifest.DecodeCNBundle(bundleBody, bundleRoot)
				if err != nil {
					d.opts.Logger.Error().Err(err).Msg("decode cn bundle manifest")
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

func readAll(resp *http.Response) ([]byte, error) {
	return io.ReadAll(resp.Body)
}
