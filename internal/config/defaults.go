package config

const (
	defaultConfigPath        = "~/.config/plexconverter/config.toml"
	defaultDataDir           = "~/.local/share/plexconverter"
	defaultLogDir            = "~/.local/share/plexconverter/logs"
	defaultDatabaseName      = "plex_video_converter.db"
	defaultCatalogSource     = CatalogSourceSQLite
	defaultCatalogPath       = "~/PlexQualityCrawler/plex_quality_crawler.db"
	DefaultCatalogTable      = "FileRecords"
	defaultWorkerStaleAfter  = 300
	defaultSyncInterval      = 300
	defaultCoordinatorSync   = true
	defaultReclaimStale      = false
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	maxCompressionFactor     = 1.0
)

// Catalog source kinds.
const (
	CatalogSourceSQLite = "sqlite"
	CatalogSourceYAML   = "yaml"
)

// DefaultExcludedCodecs lists codecs that are already efficient enough that
// re-encoding is never scheduled.
var DefaultExcludedCodecs = []string{"hevc", "h265", "h.265", "av1", "vp9"}

// DefaultExcludedAddresses lists addresses that never identify a real worker:
// the unspecified and broadcast addresses plus the mDNS and SSDP multicast groups.
var DefaultExcludedAddresses = []string{"0.0.0.0", "255.255.255.255", "224.0.0.251", "239.255.255.250"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Catalog: Catalog{
			Source: defaultCatalogSource,
			Path:   defaultCatalogPath,
			Table:  DefaultCatalogTable,
		},
		Estimator: Estimator{
			ExcludedCodecs: append([]string(nil), DefaultExcludedCodecs...),
		},
		Workers: Workers{
			ExcludedAddresses: append([]string(nil), DefaultExcludedAddresses...),
			StaleAfter:        defaultWorkerStaleAfter,
		},
		Coordinator: Coordinator{
			SyncInterval: defaultSyncInterval,
			AutoSync:     defaultCoordinatorSync,
			ReclaimStale: defaultReclaimStale,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
