package types

import "time"

const (
	// DefaultBodyFormat is the annotation body media type carrying transcriptions.
	DefaultBodyFormat = "text/html"

	// DefaultExhibit is the data-exhibit value identifying the archival project.
	DefaultExhibit = "emily-dickinson-archive"
)

// ResolverConfig holds the literal markers the transcription resolver matches.
type ResolverConfig struct {
	// BodyFormat is the exact body format an annotation must carry (default "text/html").
	BodyFormat string `json:"body_format" yaml:"body_format"`

	// Exhibit is the data-exhibit attribute value a fragment must contain
	// (default "emily-dickinson-archive").
	Exhibit string `json:"exhibit" yaml:"exhibit"`
}

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "eda-transcribe/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for loading manifests over HTTP.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxRetries is the number of retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestsPerSecond caps outgoing manifest requests (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// CacheTTL is how long a fetched manifest is reused (default 10m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// Token is an optional bearer token for protected manifest hosts.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// ArchiveConfig holds settings for the transcription archive.
type ArchiveConfig struct {
	// DataDir is the base directory for the archive (contains index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// WindowConfig opens one viewer window on a manifest. CanvasID is optional;
// an empty value selects the manifest's first canvas.
type WindowConfig struct {
	ManifestID string `json:"manifest_id" yaml:"manifest_id" mapstructure:"manifest_id"`
	CanvasID   string `json:"canvas_id,omitempty" yaml:"canvas_id,omitempty" mapstructure:"canvas_id"`
}

// WorkspaceConfig lists the windows the viewer opens at startup.
type WorkspaceConfig struct {
	Windows []WindowConfig `json:"windows" yaml:"windows" mapstructure:"windows"`
}

// Config groups all settings for the CLI.
type Config struct {
	Resolver  ResolverConfig  `json:"resolver" yaml:"resolver"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Workspace WorkspaceConfig `json:"workspace" yaml:"workspace"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Resolver: ResolverConfig{
			BodyFormat: DefaultBodyFormat,
			Exhibit:    DefaultExhibit,
		},
		Fetch: FetchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "eda-transcribe/0.1",
			},
			MaxRetries:        5,
			RequestsPerSecond: 2,
			CacheTTL:          10 * time.Minute,
		},
		Archive: ArchiveConfig{
			DataDir:    "archive",
			MaxResults: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
