// =============================================================================
// NF-e / DANFE Filter - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Settings come from three
// layers, later layers winning:
//   1. Built-in defaults (Default)
//   2. The YAML file (config.yaml, or the --config flag)
//   3. Environment variables, optionally loaded from a .env file
//
// The heuristics used to classify invoices (shipment CFOPs, cancellation
// codes, filename marker, which voidance rules run) live here so they can be
// extended without code changes.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is used when --config is not given. It may be absent.
const DefaultConfigFile = "config.yaml"

// Filename rule modes.
const (
	FilenameRuleFallback = "fallback"
	FilenameRuleAlways   = "always"
	FilenameRuleOff      = "off"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	App            AppSettings            `yaml:"app"`
	Log            LogSettings            `yaml:"log"`
	Server         ServerSettings         `yaml:"server"`
	Archive        ArchiveSettings        `yaml:"archive"`
	Output         OutputSettings         `yaml:"output"`
	Classification ClassificationSettings `yaml:"classification"`
	OCR            OCRSettings            `yaml:"ocr"`
}

type AppSettings struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
}

type LogSettings struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}

// ServerSettings configures the HTTP upload form (serve command).
type ServerSettings struct {
	Port            int           `yaml:"port"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ArchiveSettings controls which archive entries are picked up.
// Matching is by extension, case-insensitive.
type ArchiveSettings struct {
	RecordExtensions    []string `yaml:"record_extensions"`
	RenderingExtensions []string `yaml:"rendering_extensions"`
}

// OutputSettings controls the layout of the generated archive.
type OutputSettings struct {
	// Dir is where the filter command writes the result archive.
	Dir string `yaml:"dir"`

	// FileNameFormat accepts {uuid}, {timestamp}, {date} and {time}.
	FileNameFormat string `yaml:"file_name_format"`

	RecordPrefix    string `yaml:"record_prefix"`
	RenderingPrefix string `yaml:"rendering_prefix"`
	ReportPath      string `yaml:"report_path"`
	WorkbookPath    string `yaml:"workbook_path"`

	// WorkbookEnabled adds the XLSX report next to the text report.
	WorkbookEnabled bool `yaml:"workbook_enabled"`

	// SplitByKind places entries under venda/, remessa/ and eventos/.
	SplitByKind bool `yaml:"split_by_kind"`
}

// ClassificationSettings holds the document-kind and voidance heuristics.
type ClassificationSettings struct {
	// ShipmentCFOPs are fiscal-operation codes that mark a remessa.
	ShipmentCFOPs []string `yaml:"shipment_cfops"`

	// ShipmentPurposeCodes are finNFe values that mark a remessa. Empty by
	// default: no finNFe value (1 normal, 2 complementar, 3 ajuste,
	// 4 devolução) denotes a shipment on its own.
	ShipmentPurposeCodes []string `yaml:"shipment_purpose_codes"`

	// CancelEventType is the tpEvento of a cancellation event.
	CancelEventType string `yaml:"cancel_event_type"`

	// CancelledStatusCodes are cStat values meaning "cancelled".
	CancelledStatusCodes []string `yaml:"cancelled_status_codes"`

	// CancelKeyword is searched case-insensitively in event descriptions
	// and reasons.
	CancelKeyword string `yaml:"cancel_keyword"`

	// EventRoots are root elements of cancellation-event envelopes.
	EventRoots []string `yaml:"event_roots"`

	// The invoice number of an event sits inside the 44-digit access key
	// (chNFe) at [AccessKeyOffset, AccessKeyOffset+AccessKeyLength).
	AccessKeyOffset int `yaml:"access_key_offset"`
	AccessKeyLength int `yaml:"access_key_length"`

	// FilenameMarker is the cancellation token looked up in entry names.
	FilenameMarker string `yaml:"filename_marker"`

	// FilenameRule is "fallback", "always" or "off".
	FilenameRule string `yaml:"filename_rule"`

	Rules RuleToggles `yaml:"rules"`
}

// RuleToggles switches the structural voidance rules on or off.
type RuleToggles struct {
	DuplicateFiling bool `yaml:"duplicate_filing"`
	UnlinkedEvents  bool `yaml:"unlinked_events"`
}

// OCRSettings configures image text recovery for DANFEs whose number is not
// found in the file name or the PDF text.
type OCRSettings struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	Key      string        `yaml:"key"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxPages int           `yaml:"max_pages"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() MainConfig {
	return MainConfig{
		App: AppSettings{
			Name:        "nfefilter",
			Environment: "local",
		},
		Log: LogSettings{Level: "info"},
		Server: ServerSettings{
			Port:            8080,
			MaxUploadBytes:  256 << 20,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Archive: ArchiveSettings{
			RecordExtensions:    []string{".xml"},
			RenderingExtensions: []string{".pdf"},
		},
		Output: OutputSettings{
			Dir:             "./output",
			FileNameFormat:  "resultado_filtrado_{uuid}.zip",
			RecordPrefix:    "XMLs_filtrados",
			RenderingPrefix: "DANFEs_filtrados",
			ReportPath:      "relatorio.txt",
			WorkbookPath:    "relatorio.xlsx",
			WorkbookEnabled: true,
			SplitByKind:     false,
		},
		Classification: ClassificationSettings{
			ShipmentCFOPs: []string{
				"5901", "6901", "5905", "6905", "5908", "6908",
				"5910", "6910", "5911", "6911", "5912", "6912",
				"5915", "6915", "5917", "6917", "5920", "6920",
				"5923", "6923", "5949", "6949",
			},
			ShipmentPurposeCodes: nil,
			CancelEventType:      "110111",
			CancelledStatusCodes: []string{"101", "151"},
			CancelKeyword:        "cancel",
			EventRoots:           []string{"procEventoNFe", "envEvento", "evento", "retEnvEvento"},
			AccessKeyOffset:      25,
			AccessKeyLength:      9,
			FilenameMarker:       "-cancelamento",
			FilenameRule:         FilenameRuleFallback,
			Rules: RuleToggles{
				DuplicateFiling: true,
				UnlinkedEvents:  true,
			},
		},
		OCR: OCRSettings{
			Enabled:  false,
			Language: "pt",
			Timeout:  30 * time.Second,
			MaxPages: 3,
		},
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig builds the configuration from defaults, the YAML file and
// the environment.
//
// PARAMETERS:
//   - configPath: path to the YAML file; empty skips the file.
//   - required: when false a missing file is not an error.
//
// RETURNS:
//   - The configuration.
//   - An error if the file cannot be read or parsed, or the result is invalid.
func LoadMainConfig(configPath string, required bool) (*MainConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
			// Defaults only.
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyMainConfigDefaults(&cfg)

	if err := validateMainConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets the environment win over the YAML file.
func applyEnvOverrides(cfg *MainConfig) {
	cfg.App.Environment = getEnv("APP_ENV", cfg.App.Environment)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Server.Port = getEnvAsInt("APP_PORT", cfg.Server.Port)
	cfg.Output.Dir = getEnv("OUTPUT_DIR", cfg.Output.Dir)
	cfg.OCR.Enabled = getEnvAsBool("OCR_ENABLED", cfg.OCR.Enabled)
	cfg.OCR.Endpoint = strings.TrimSpace(getEnv("OCR_ENDPOINT", cfg.OCR.Endpoint))
	cfg.OCR.Key = strings.TrimSpace(getEnv("OCR_KEY", cfg.OCR.Key))
}

// applyMainConfigDefaults restores defaults for values the YAML file blanked.
func applyMainConfigDefaults(cfg *MainConfig) {
	def := Default()

	if cfg.App.Name == "" {
		cfg.App.Name = def.App.Name
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = def.Server.MaxUploadBytes
	}
	if len(cfg.Archive.RecordExtensions) == 0 {
		cfg.Archive.RecordExtensions = def.Archive.RecordExtensions
	}
	if len(cfg.Archive.RenderingExtensions) == 0 {
		cfg.Archive.RenderingExtensions = def.Archive.RenderingExtensions
	}
	if cfg.Output.FileNameFormat == "" {
		cfg.Output.FileNameFormat = def.Output.FileNameFormat
	}
	if cfg.Output.RecordPrefix == "" {
		cfg.Output.RecordPrefix = def.Output.RecordPrefix
	}
	if cfg.Output.RenderingPrefix == "" {
		cfg.Output.RenderingPrefix = def.Output.RenderingPrefix
	}
	if cfg.Output.ReportPath == "" {
		cfg.Output.ReportPath = def.Output.ReportPath
	}
	if cfg.Output.WorkbookPath == "" {
		cfg.Output.WorkbookPath = def.Output.WorkbookPath
	}
	if cfg.Classification.CancelKeyword == "" {
		cfg.Classification.CancelKeyword = def.Classification.CancelKeyword
	}
	if cfg.Classification.FilenameRule == "" {
		cfg.Classification.FilenameRule = def.Classification.FilenameRule
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = def.OCR.Language
	}
	if cfg.OCR.MaxPages <= 0 {
		cfg.OCR.MaxPages = def.OCR.MaxPages
	}
}

// validateMainConfig rejects settings the pipeline cannot work with.
func validateMainConfig(cfg *MainConfig) error {
	switch cfg.Classification.FilenameRule {
	case FilenameRuleFallback, FilenameRuleAlways, FilenameRuleOff:
	default:
		return fmt.Errorf("classification.filename_rule must be %q, %q or %q, got %q",
			FilenameRuleFallback, FilenameRuleAlways, FilenameRuleOff, cfg.Classification.FilenameRule)
	}

	if cfg.Classification.AccessKeyOffset < 0 || cfg.Classification.AccessKeyLength <= 0 {
		return errors.New("classification.access_key_offset must be >= 0 and access_key_length > 0")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	if cfg.OCR.Enabled && (cfg.OCR.Endpoint == "" || cfg.OCR.Key == "") {
		return errors.New("ocr.endpoint and ocr.key are required when ocr.enabled=true")
	}

	return nil
}

// Address returns the HTTP listen address in :port form.
func (s ServerSettings) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
