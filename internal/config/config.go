package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when CONFIG_FILE is unset and the file exists
const DefaultConfigFile = "config.yaml"

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	CORSOrigins string `yaml:"cors_origins"`

	Google   GoogleConfig   `yaml:"google"`
	Drive    DriveConfig    `yaml:"drive"`
	Session  SessionConfig  `yaml:"session"`
	Artifact ArtifactConfig `yaml:"artifact"`
	Extract  ExtractConfig  `yaml:"extract"`

	// UnidocLicenseKey activates the metered document library license
	UnidocLicenseKey string `yaml:"unidoc_license_key"`
}

// GoogleConfig holds the OAuth client registration
type GoogleConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

// DriveConfig controls the Drive client
type DriveConfig struct {
	BaseURL         string        `yaml:"base_url"`
	TeamDriveID     string        `yaml:"team_drive_id"`
	RootFolderID    string        `yaml:"root_folder_id"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxDownloadSize int64         `yaml:"max_download_size"`
}

// SessionConfig holds cookie and ticket secrets
type SessionConfig struct {
	Secret         string        `yaml:"secret"`
	MaxAge         time.Duration `yaml:"max_age"`
	TicketSecret   string        `yaml:"ticket_secret"`
	TicketDuration time.Duration `yaml:"ticket_duration"`
}

// ArtifactConfig controls generated document storage
type ArtifactConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

// ExtractConfig controls text extraction
type ExtractConfig struct {
	MaxFileSize    int64         `yaml:"max_file_size"`
	DocConverter   string        `yaml:"doc_converter"`
	ConvertTimeout time.Duration `yaml:"convert_timeout"`
	Marker         string        `yaml:"marker"`
	LineBudget     int           `yaml:"line_budget"`
	OCRLanguages   []string      `yaml:"ocr_languages"`
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in that order. An empty path falls back to CONFIG_FILE.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		path = getEnv("CONFIG_FILE", "")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFile
	}

	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.CORSOrigins = getEnv("CORS_ORIGINS", c.CORSOrigins)

	c.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)
	c.Google.RedirectURL = getEnv("GOOGLE_REDIRECT_URL", c.Google.RedirectURL)
	if scopes := getEnv("GOOGLE_SCOPES", ""); scopes != "" {
		c.Google.Scopes = splitList(scopes)
	}

	c.Drive.BaseURL = getEnv("DRIVE_BASE_URL", c.Drive.BaseURL)
	c.Drive.TeamDriveID = getEnv("TEAM_DRIVE_ID", c.Drive.TeamDriveID)
	c.Drive.RootFolderID = getEnv("ROOT_FOLDER_ID", c.Drive.RootFolderID)

	c.Session.Secret = getEnv("SESSION_SECRET", c.Session.Secret)
	c.Session.TicketSecret = getEnv("TICKET_SECRET", c.Session.TicketSecret)

	c.Artifact.Dir = getEnv("ARTIFACT_DIR", c.Artifact.Dir)

	c.Extract.DocConverter = getEnv("DOC_CONVERTER", c.Extract.DocConverter)
	c.Extract.Marker = getEnv("EXTRACT_MARKER", c.Extract.Marker)
	if langs := getEnv("OCR_LANGUAGES", ""); langs != "" {
		c.Extract.OCRLanguages = splitList(langs)
	}

	c.UnidocLicenseKey = getEnv("UNIDOC_LICENSE_API_KEY", c.UnidocLicenseKey)

	var err error
	if c.Drive.Timeout, err = getDuration("DRIVE_TIMEOUT", c.Drive.Timeout); err != nil {
		return err
	}
	if c.Artifact.TTL, err = getDuration("ARTIFACT_TTL", c.Artifact.TTL); err != nil {
		return err
	}
	if c.Extract.MaxFileSize, err = getInt64("MAX_FILE_SIZE", c.Extract.MaxFileSize); err != nil {
		return err
	}
	lineBudget, err := getInt64("EXTRACT_LINE_BUDGET", int64(c.Extract.LineBudget))
	if err != nil {
		return err
	}
	c.Extract.LineBudget = int(lineBudget)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.CORSOrigins == "" {
		c.CORSOrigins = "http://localhost:3000"
	}
	if c.Google.RedirectURL == "" {
		c.Google.RedirectURL = "http://localhost:" + c.Port + "/auth/callback"
	}
	if c.Drive.RootFolderID == "" {
		c.Drive.RootFolderID = "root"
	}
	if c.Drive.Timeout <= 0 {
		c.Drive.Timeout = 60 * time.Second
	}
	if c.Drive.MaxDownloadSize <= 0 {
		c.Drive.MaxDownloadSize = 50 << 20
	}
	if c.Session.MaxAge <= 0 {
		c.Session.MaxAge = 24 * time.Hour
	}
	if c.Session.TicketDuration <= 0 {
		c.Session.TicketDuration = 15 * time.Minute
	}
	if c.Artifact.TTL <= 0 {
		c.Artifact.TTL = time.Hour
	}
	if c.Extract.MaxFileSize <= 0 {
		c.Extract.MaxFileSize = 50 << 20
	}
	if c.Extract.ConvertTimeout <= 0 {
		c.Extract.ConvertTimeout = 60 * time.Second
	}
	if c.Extract.Marker == "" {
		c.Extract.Marker = "reference"
	}
	if c.Extract.LineBudget <= 0 {
		c.Extract.LineBudget = 23
	}
}

// IsProduction reports whether secure cookies and secrets are required
func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// Origins returns the allowed CORS origins
func (c *Config) Origins() []string {
	return splitList(c.CORSOrigins)
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Google),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.IsProduction() {
		err := validation.ValidateStruct(&c.Session,
			validation.Field(&c.Session.Secret, validation.Required, validation.Length(32, 0)),
			validation.Field(&c.Session.TicketSecret, validation.Required, validation.Length(32, 0)),
		)
		if err != nil {
			return fmt.Errorf("invalid session configuration: %w", err)
		}
	}
	return nil
}

// Validate implements validation.Validatable
func (g GoogleConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.ClientID, validation.Required.Error("GOOGLE_CLIENT_ID is required")),
		validation.Field(&g.ClientSecret, validation.Required.Error("GOOGLE_CLIENT_SECRET is required")),
		validation.Field(&g.RedirectURL, validation.Required),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
