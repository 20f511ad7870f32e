// Package config loads service configuration from YAML files with
// environment-variable overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const defaultPath = "."

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port     int `json:"port" yaml:"port"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	// Detection configuration for the store-detection engine
	Detection *DetectionConfig `json:"detection" yaml:"detection"`

	// Position configuration for the positioning service
	Position *PositionConfig `json:"position" yaml:"position"`

	// Wireless configuration for the wireless-fingerprint service
	Wireless *WirelessConfig `json:"wireless" yaml:"wireless"`

	// PubSub configuration for event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// DistanceBand maps a maximum distance-to-center to a confidence score.
// Bands are evaluated in order; first match wins.
type DistanceBand struct {
	MaxMeters  float64 `json:"maxMeters" yaml:"maxMeters"`
	Confidence int     `json:"confidence" yaml:"confidence"`
}

// DetectionConfig centralizes every detection threshold so the engine and
// orchestrator never hard-code them.
type DetectionConfig struct {
	// Radius of the nearby-stores candidate query
	NearbySearchRadiusMeters float64 `json:"nearbySearchRadiusMeters" yaml:"nearbySearchRadiusMeters"`

	// Detections below this confidence always require user confirmation
	LowConfidenceThreshold int `json:"lowConfidenceThreshold" yaml:"lowConfidenceThreshold"`

	// Inside-geofence matches closer than this to the store center score full confidence
	TightRadiusMeters float64 `json:"tightRadiusMeters" yaml:"tightRadiusMeters"`

	// Default generated-geofence radius for unclassified stores
	MaxDistanceMeters float64 `json:"maxDistanceMeters" yaml:"maxDistanceMeters"`

	// Default generated-geofence radii per store classification
	BigBoxRadiusMeters   float64 `json:"bigBoxRadiusMeters" yaml:"bigBoxRadiusMeters"`
	PharmacyRadiusMeters float64 `json:"pharmacyRadiusMeters" yaml:"pharmacyRadiusMeters"`

	// Distance-band fallback table for outside-geofence scoring
	DistanceBands []DistanceBand `json:"distanceBands" yaml:"distanceBands"`

	// Confidence beyond the last distance band
	FallbackConfidence int `json:"fallbackConfidence" yaml:"fallbackConfidence"`

	// TTL for cached nearby-candidate query results
	CandidateCacheTTL time.Duration `json:"candidateCacheTtl" yaml:"candidateCacheTtl"`

	// Upper bound on a single continuous-detection tick
	TickTimeout time.Duration `json:"tickTimeout" yaml:"tickTimeout"`
}

// PositionConfig defines the positioning service policy.
type PositionConfig struct {
	// Cached fixes younger than this are served without a fresh read
	FixMaxAge time.Duration `json:"fixMaxAge" yaml:"fixMaxAge"`

	// A fresh fix that does not arrive within this window fails the read
	FixTimeout time.Duration `json:"fixTimeout" yaml:"fixTimeout"`

	// Continuous updates emit at most every interval
	UpdateInterval time.Duration `json:"updateInterval" yaml:"updateInterval"`

	// Continuous updates also emit when the device moves this far
	DistanceFilterMeters float64 `json:"distanceFilterMeters" yaml:"distanceFilterMeters"`

	// How often the continuous loop samples the platform source
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`

	// Request high-accuracy fixes; the service never degrades silently
	HighAccuracy bool `json:"highAccuracy" yaml:"highAccuracy"`

	// Permission re-prompt cap and spacing
	PermissionMaxPrompts     int           `json:"permissionMaxPrompts" yaml:"permissionMaxPrompts"`
	PermissionPromptInterval time.Duration `json:"permissionPromptInterval" yaml:"permissionPromptInterval"`
}

// WirelessConfig defines the wireless-fingerprint service configuration.
type WirelessConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Continuous scan interval; defaults to the position update interval
	ScanInterval time.Duration `json:"scanInterval" yaml:"scanInterval"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// DefaultDetection returns the standard detection thresholds.
func DefaultDetection() *DetectionConfig {
	return &DetectionConfig{
		NearbySearchRadiusMeters: 500,
		LowConfidenceThreshold:   80,
		TightRadiusMeters:        25,
		MaxDistanceMeters:        50,
		BigBoxRadiusMeters:       100,
		PharmacyRadiusMeters:     30,
		DistanceBands: []DistanceBand{
			{MaxMeters: 10, Confidence: 100},
			{MaxMeters: 25, Confidence: 95},
			{MaxMeters: 50, Confidence: 85},
			{MaxMeters: 100, Confidence: 70},
			{MaxMeters: 200, Confidence: 50},
		},
		FallbackConfidence: 30,
		CandidateCacheTTL:  time.Minute,
		TickTimeout:        15 * time.Second,
	}
}

// DefaultPosition returns the standard positioning policy.
func DefaultPosition() *PositionConfig {
	return &PositionConfig{
		FixMaxAge:                10 * time.Second,
		FixTimeout:               15 * time.Second,
		UpdateInterval:           10 * time.Second,
		DistanceFilterMeters:     50,
		PollInterval:             2 * time.Second,
		HighAccuracy:             true,
		PermissionMaxPrompts:     2,
		PermissionPromptInterval: 24 * time.Hour,
	}
}

// ApplyDefaults fills any missing sections or zero-valued fields with the
// documented defaults. Called from New and from tests that build configs by
// hand.
func (cfg *Config) ApplyDefaults() {
	if cfg.Detection == nil {
		cfg.Detection = DefaultDetection()
	}
	det, defs := cfg.Detection, DefaultDetection()
	if det.NearbySearchRadiusMeters <= 0 {
		det.NearbySearchRadiusMeters = defs.NearbySearchRadiusMeters
	}
	if det.LowConfidenceThreshold <= 0 {
		det.LowConfidenceThreshold = defs.LowConfidenceThreshold
	}
	if det.TightRadiusMeters <= 0 {
		det.TightRadiusMeters = defs.TightRadiusMeters
	}
	if det.MaxDistanceMeters <= 0 {
		det.MaxDistanceMeters = defs.MaxDistanceMeters
	}
	if det.BigBoxRadiusMeters <= 0 {
		det.BigBoxRadiusMeters = defs.BigBoxRadiusMeters
	}
	if det.PharmacyRadiusMeters <= 0 {
		det.PharmacyRadiusMeters = defs.PharmacyRadiusMeters
	}
	if len(det.DistanceBands) == 0 {
		det.DistanceBands = defs.DistanceBands
	}
	if det.FallbackConfidence <= 0 {
		det.FallbackConfidence = defs.FallbackConfidence
	}
	if det.CandidateCacheTTL <= 0 {
		det.CandidateCacheTTL = defs.CandidateCacheTTL
	}
	if det.TickTimeout <= 0 {
		det.TickTimeout = defs.TickTimeout
	}

	if cfg.Position == nil {
		cfg.Position = DefaultPosition()
	}
	pos, posDefs := cfg.Position, DefaultPosition()
	if pos.FixMaxAge <= 0 {
		pos.FixMaxAge = posDefs.FixMaxAge
	}
	if pos.FixTimeout <= 0 {
		pos.FixTimeout = posDefs.FixTimeout
	}
	if pos.UpdateInterval <= 0 {
		pos.UpdateInterval = posDefs.UpdateInterval
	}
	if pos.DistanceFilterMeters <= 0 {
		pos.DistanceFilterMeters = posDefs.DistanceFilterMeters
	}
	if pos.PollInterval <= 0 {
		pos.PollInterval = posDefs.PollInterval
	}
	if pos.PermissionMaxPrompts <= 0 {
		pos.PermissionMaxPrompts = posDefs.PermissionMaxPrompts
	}
	if pos.PermissionPromptInterval <= 0 {
		pos.PermissionPromptInterval = posDefs.PermissionPromptInterval
	}

	if cfg.Wireless == nil {
		cfg.Wireless = &WirelessConfig{Enabled: true}
	}
	if cfg.Wireless.ScanInterval <= 0 {
		cfg.Wireless.ScanInterval = cfg.Position.UpdateInterval
	}
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
