package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names the environment variable pointing at an optional TOML config file.
const ConfigFileEnv = "DOCOCR_CONFIG"

// Config holds all application configuration
type Config struct {
	OCR         OCRConfig         `toml:"ocr"`
	PDF         PDFConfig         `toml:"pdf"`
	Preprocess  PreprocessConfig  `toml:"preprocess"`
	Storage     StorageConfig     `toml:"storage"`
	Database    DatabaseConfig    `toml:"database"`
	ObjectStore ObjectStoreConfig `toml:"object_store"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	DefaultEngine string `toml:"default_engine"`
	Language      string `toml:"language"`
	Tesseract     string `toml:"tesseract"`
	TessdataDir   string `toml:"tessdata_dir"`
	PSM           int    `toml:"psm"`
	OEM           int    `toml:"oem"`
	Parallel      bool   `toml:"parallel"`
	MaxParallel   int    `toml:"max_parallel"`
}

// PDFConfig holds poppler binaries and classification tunables
type PDFConfig struct {
	Pdfinfo       string `toml:"pdfinfo"`
	Pdftotext     string `toml:"pdftotext"`
	Pdftoppm      string `toml:"pdftoppm"`
	Pdfunite      string `toml:"pdfunite"`
	Pdfseparate   string `toml:"pdfseparate"`
	DPI           int    `toml:"dpi"`
	SamplePages   int    `toml:"sample_pages"`
	TextThreshold int    `toml:"text_threshold"`
}

// PreprocessConfig holds the global preprocessing switches
type PreprocessConfig struct {
	Enabled       bool   `toml:"enabled"`
	Preset        string `toml:"preset"`
	Enhancement   bool   `toml:"enhancement"`
	Denoising     bool   `toml:"denoising"`
	Deskewing     bool   `toml:"deskewing"`
	Binarization  bool   `toml:"binarization"`
	KeepArtifacts bool   `toml:"keep_artifacts"`
}

// StorageConfig holds local filesystem locations
type StorageConfig struct {
	WorkDir       string `toml:"work_dir"`
	OutputDir     string `toml:"output_dir"`
	HeicConverter string `toml:"heic_converter"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `toml:"dsn"`
	SQLitePath       string        `toml:"sqlite_path"`
	MaxConns         int32         `toml:"max_conns"`
	MinConns         int32         `toml:"min_conns"`
	MaxConnLifetime  time.Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `toml:"max_conn_idle_time"`
	DialTimeout      time.Duration `toml:"dial_timeout"`
	StatementTimeout time.Duration `toml:"statement_timeout"`
}

// ObjectStoreConfig holds S3-compatible result storage configuration
type ObjectStoreConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr       string        `toml:"grpc_addr"`
	WatchDirs      []string      `toml:"watch_dirs"`
	Workers        int           `toml:"workers"`
	QueueSize      int           `toml:"queue_size"`
	ProcessTimeout time.Duration `toml:"process_timeout"`
	Debounce       time.Duration `toml:"debounce"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			DefaultEngine: "tesseract",
			Language:      "eng",
			Tesseract:     "tesseract",
			PSM:           3,
			OEM:           3,
		},
		PDF: PDFConfig{
			Pdfinfo:       "pdfinfo",
			Pdftotext:     "pdftotext",
			Pdftoppm:      "pdftoppm",
			Pdfunite:      "pdfunite",
			Pdfseparate:   "pdfseparate",
			DPI:           300,
			SamplePages:   3,
			TextThreshold: 50,
		},
		Preprocess: PreprocessConfig{
			Enabled:      true,
			Preset:       "general",
			Enhancement:  true,
			Denoising:    true,
			Deskewing:    true,
			Binarization: true,
		},
		Storage: StorageConfig{
			WorkDir:       "./tmp",
			OutputDir:     "./output",
			HeicConverter: "magick",
		},
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		ObjectStore: ObjectStoreConfig{
			Bucket: "ocr-results",
			Region: "us-east-1",
		},
		Server: ServerConfig{
			GRPCAddr:       ":8080",
			Workers:        4,
			QueueSize:      256,
			ProcessTimeout: 5 * time.Minute,
			Debounce:       500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from defaults, an optional TOML file named by
// DOCOCR_CONFIG, and environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv(ConfigFileEnv))
}

// LoadConfigFile is LoadConfig with an explicit TOML path; empty path skips the file.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, &AppError{
				Kind:    KindValidation,
				Code:    "CONFIG_ERROR",
				Message: "cannot read config file " + path,
				Details: map[string]any{"path": path},
				Cause:   err,
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OCR.DefaultEngine = getEnv("DEFAULT_OCR_ENGINE", c.OCR.DefaultEngine)
	c.OCR.Language = getEnv("OCR_LANGUAGE", c.OCR.Language)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.PSM = getEnvAsInt("TESSERACT_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("TESSERACT_OEM", c.OCR.OEM)
	c.OCR.Parallel = getEnvAsBool("OCR_PARALLEL", c.OCR.Parallel)
	c.OCR.MaxParallel = getEnvAsInt("OCR_MAX_PARALLEL", c.OCR.MaxParallel)

	c.PDF.Pdfinfo = getEnv("PDFINFO_BIN", c.PDF.Pdfinfo)
	c.PDF.Pdftotext = getEnv("PDFTOTEXT_BIN", c.PDF.Pdftotext)
	c.PDF.Pdftoppm = getEnv("PDFTOPPM_BIN", c.PDF.Pdftoppm)
	c.PDF.Pdfunite = getEnv("PDFUNITE_BIN", c.PDF.Pdfunite)
	c.PDF.Pdfseparate = getEnv("PDFSEPARATE_BIN", c.PDF.Pdfseparate)
	c.PDF.DPI = getEnvAsInt("PDF_DPI", c.PDF.DPI)
	c.PDF.SamplePages = getEnvAsInt("PDF_SAMPLE_PAGES", c.PDF.SamplePages)
	c.PDF.TextThreshold = getEnvAsInt("PDF_TEXT_THRESHOLD", c.PDF.TextThreshold)

	c.Preprocess.Enabled = getEnvAsBool("ENABLE_PREPROCESSING", c.Preprocess.Enabled)
	c.Preprocess.Preset = getEnv("PREPROCESS_PRESET", c.Preprocess.Preset)
	c.Preprocess.Enhancement = getEnvAsBool("ENABLE_ENHANCEMENT", c.Preprocess.Enhancement)
	c.Preprocess.Denoising = getEnvAsBool("ENABLE_DENOISING", c.Preprocess.Denoising)
	c.Preprocess.Deskewing = getEnvAsBool("ENABLE_DESKEWING", c.Preprocess.Deskewing)
	c.Preprocess.Binarization = getEnvAsBool("ENABLE_BINARIZATION", c.Preprocess.Binarization)
	c.Preprocess.KeepArtifacts = getEnvAsBool("KEEP_ARTIFACTS", c.Preprocess.KeepArtifacts)

	c.Storage.WorkDir = getEnv("WORK_DIR", c.Storage.WorkDir)
	c.Storage.OutputDir = getEnv("OUTPUT_DIR", c.Storage.OutputDir)
	c.Storage.HeicConverter = getEnv("HEIC_CONVERTER", c.Storage.HeicConverter)

	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.SQLitePath = getEnv("SQLITE_PATH", c.Database.SQLitePath)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.ObjectStore.Endpoint = getEnv("MINIO_ENDPOINT", c.ObjectStore.Endpoint)
	c.ObjectStore.AccessKey = getEnv("MINIO_ACCESS_KEY", c.ObjectStore.AccessKey)
	c.ObjectStore.SecretKey = getEnv("MINIO_SECRET_KEY", c.ObjectStore.SecretKey)
	c.ObjectStore.Bucket = getEnv("MINIO_BUCKET", c.ObjectStore.Bucket)
	c.ObjectStore.Region = getEnv("MINIO_REGION", c.ObjectStore.Region)
	c.ObjectStore.UseSSL = getEnvAsBool("MINIO_USE_SSL", c.ObjectStore.UseSSL)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.WatchDirs = getEnvAsList("WATCH_DIRS", c.Server.WatchDirs)
	c.Server.Workers = getEnvAsInt("WORKERS", c.Server.Workers)
	c.Server.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Server.QueueSize)
	c.Server.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Server.ProcessTimeout)
	c.Server.Debounce = getEnvAsDuration("WATCH_DEBOUNCE", c.Server.Debounce)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every out-of-range setting in one config error.
func (c *Config) Validate() error {
	return NewChecker().
		Check("ocr.default_engine", c.OCR.DefaultEngine, NotBlank).
		Check("ocr.language", c.OCR.Language, NotBlank).
		Check("ocr.psm", c.OCR.PSM, Between(0, 13)).
		Check("ocr.oem", c.OCR.OEM, Between(0, 3)).
		Check("ocr.max_parallel", c.OCR.MaxParallel, Between(0, 1024)).
		Check("pdf.dpi", c.PDF.DPI, Between(72, 1200)).
		Check("pdf.sample_pages", c.PDF.SamplePages, Between(1, 100)).
		Check("storage.work_dir", c.Storage.WorkDir, NotBlank).
		Check("server.workers", c.Server.Workers, Between(0, 256)).
		Check("server.queue_size", c.Server.QueueSize, Between(0, 1<<20)).
		Check("server.process_timeout", c.Server.ProcessTimeout, NonNegativeDuration).
		Check("log.format", c.Log.Format, AnyOf("json", "text")).
		Err("CONFIG_ERROR")
}
