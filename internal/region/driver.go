// Package region implements the three regional orchestrators (CN, GL, JP):
// resolve version, optionally fetch and unpack the application package,
// discover the catalog root, fetch and decode manifests, and return the
// merged catalog.
package region

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/fetch"
	"github.com/baassets/pipeline/internal/manifest"
)

// Name identifies one of the three regional back-ends.
type Name string

const (
	CN Name = "cn"
	GL Name = "gl"
	JP Name = "jp"
)

// UnityAssetReader is the external collaborator that walks a tree of
// serialized Unity asset bundles and returns raw object payloads from it.
// This module does not implement a Unity asset-bundle parser (the same
// kind of external, schema-driven dependency as the flatbuffer decoder
// registry); JPDriver calls through this interface rather than parsing
// bundles itself.
type UnityAssetReader interface {
	// FindTextAsset returns the raw script bytes of the first TextAsset
	// named name found anywhere under dataDir.
	FindTextAsset(ctx context.Context, dataDir, name string) ([]byte, error)
	// FindPlayerVersion returns the apk build version recorded in the
	// tree's PlayerSettings object, if one is present.
	FindPlayerVersion(ctx context.Context, dataDir string) (string, error)
}

// ServerInfo is the resolved server state a driver recovers alongside its
// catalog: the version it settled on, the catalog root it fetched
// manifests from, and (JP only) the decrypted live server URL and the
// PlayerSettings.bundleVersion used for drift logging.
type ServerInfo struct {
	Version       string
	CatalogRoot   string
	ServerURL     string
	BundleVersion string
}

// Options carries the shared inputs every region driver needs. A nil
// AssetReader is valid for CN and GL, which never read assets out of an
// unpacked package; JPDriver
// returns an error from Run if asked to recover a server URL without one.
type Options struct {
	Proxy       string
	MaxRetries  int
	TempDir     string
	RawDir      string
	Version     string // user-supplied override; "" means auto-detect
	AssetReader UnityAssetReader
	Logger      zerolog.Logger
}

// Driver is the per-region orchestrator contract: resolve everything
// needed and return the merged catalog plus the resolved server state for
// this run.
type Driver interface {
	Run(ctx context.Context) (catalog.Catalog, *ServerInfo, error)
}

// New constructs the driver for name.
func New(name Name, opts Options) (Driver, error) {
	client, err := fetch.NewClient(opts.Proxy)
	if err != nil {
		return nil, fmt.Errorf("region: build http client: %w", err)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	manifest.SetLogger(opts.Logger)

	switch name {
	case CN:
		return &CNDriver{opts: opts, client: client}, nil
	case GL:
		return &GLDriver{opts: opts, client: client}, nil
	case JP:
		return &JPDriver{opts: opts, client: client}, nil
	default:
		return nil, fmt.Errorf("region: unknown region %q", name)
	}
}
