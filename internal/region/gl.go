package region

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/fetch"
	"github.com/baassets/pipeline/internal/manifest"
	"github.com/baassets/pipeline/internal/progress"
)

const (
	glListingURL   = "https://blue-archive-global.en.uptodown.com/android"
	glPatchURL     = "https://api-pub.nexon.com/patch/v1.1/version-check"
	glMarketGameID = "com.nexon.bluearchive"
)

// GLDriver resolves the global back-end: no package download is required,
// a single persistent patch API resolves the catalog URL directly from a
// version string, and a version may be supplied by the caller.
type GLDriver struct {
	opts   Options
	client *http.Client
}

func (d *GLDriver) Run(ctx context.Context) (catalog.Catalog, *ServerInfo, error) {
	version := d.opts.Version
	if version == "" {
		v, err := d.latestVersion(ctx)
		if err != nil {
			return catalog.Catalog{}, nil, fmt.Errorf("region: gl: resolve version: %w", err)
		}
		version = v
	}
	d.opts.Logger.Info().Str("version", version).Msg("resolved gl version")

	catalogURL, err := d.serverURL(ctx, version)
	if err != nil {
		return catalog.Catalog{}, nil, fmt.Errorf("region: gl: resolve server url: %w", err)
	}

	cat, err := d.resourceManifest(ctx, catalogURL)
	if err != nil {
		return catalog.Catalog{}, nil, err
	}
	if cat.Len() == 0 {
		return catalog.Catalog{}, nil, fmt.Errorf("region: gl: merged catalog is empty")
	}

	return cat, &ServerInfo{Version: version, CatalogRoot: catalogURL}, nil
}

func (d *GLDriver) latestVersion(ctx context.Context) (string, error) {
	body, err := fetch.New(d.client, http.MethodGet, glListingURL, d.opts.MaxRetries).WithScraperHeaders().GetBytes(ctx)
	if err != nil {
		return "", err
	}
	m := versionPattern.Find(body)
	if m == nil {
		return "", fmt.Errorf("version pattern not found on listing page")
	}
	return string(m), nil
}

func (d *GLDriver) serverURL(ctx context.Context, version string) (string, error) {
	buildNumber := version
	if idx := strings.LastIndex(version, "."); idx >= 0 {
		buildNumber = version[idx+1:]
	}

	reqBody := struct {
		MarketGameID     string `json:"market_game_id"`
		MarketCode       string `json:"market_code"`
		CurrBuildVersion string `json:"curr_build_version"`
		CurrBuildNumber  string `json:"curr_build_number"`
	}{
		MarketGameID:     glMarketGameID,
		MarketCode:       "playstore",
		CurrBuildVersion: version,
		CurrBuildNumber:  buildNumber,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	body, err := fetch.New(d.client, http.MethodPost, glPatchURL, d.opts.MaxRetries).WithJSONBody(payload).GetBytes(ctx)
	if err != nil {
		return "", err
	}

	var resp struct {
		Patch struct {
			ResourcePath string `json:"resource_path"`
		} `json:"patch"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode version-check response: %w", err)
	}
	if resp.Patch.ResourcePath == "" {
		return "", fmt.Errorf("version-check response carried no resource_path")
	}
	return resp.Patch.ResourcePath, nil
}

func (d *GLDriver) resourceManifest(ctx context.Context, catalogURL string) (catalog.Catalog, error) {
	body, err := fetch.New(d.client, http.MethodGet, catalogURL, d.opts.MaxRetries).
		WithReporter(progress.NewCLIProgress()).GetBytes(ctx)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("region: gl: fetch resource manifest: %w", err)
	}

	base := catalogURL
	if idx := strings.LastIndex(catalogURL, "/"); idx >= 0 {
		base = catalogURL[:idx] + "/"
	}

	cat, err := manifest.DecodeGL(bytes.TrimSpace(body), base)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("region: gl: decode resource manifest: %w", err)
	}
	return cat, nil
}
