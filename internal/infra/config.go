package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by OpenSink.
const (
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
	FormatSQLite = "sqlite"
)

type Config struct {
	Paths          PathsConfig  `yaml:"paths" json:"paths"`
	Files          FilesConfig  `yaml:"files" json:"files"`
	Sample         SampleConfig `yaml:"sample" json:"sample"`
	Variant        string       `yaml:"variant" json:"variant"`
	KeepMerchantID bool         `yaml:"keep_merchant_id" json:"keep_merchant_id"`
	Parallel       bool         `yaml:"parallel" json:"parallel"`
	Output         OutputConfig `yaml:"output" json:"output"`
	Ledger         LedgerConfig `yaml:"ledger" json:"ledger"`
	S3             S3Config     `yaml:"s3" json:"s3"`
	Log            LogConfig    `yaml:"log" json:"log"`
}

type PathsConfig struct {
	SourceDir string `yaml:"source_dir" json:"source_dir"`
	// IntermediateDir receives the basic tables before leakage columns are
	// dropped. Empty disables them.
	IntermediateDir string `yaml:"intermediate_dir" json:"intermediate_dir"`
	FeatureDir      string `yaml:"feature_dir" json:"feature_dir"`
}

type FilesConfig struct {
	Train string `yaml:"train" json:"train"`
	Test  string `yaml:"test" json:"test"`
}

type SampleConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Size    int    `yaml:"size" json:"size"`
	Seed    uint64 `yaml:"seed" json:"seed"`
}

type OutputConfig struct {
	Format     string `yaml:"format" json:"format"`
	Compress   bool   `yaml:"compress" json:"compress"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

type LedgerConfig struct {
	// Path of the SQLite run ledger. Empty disables it.
	Path string `yaml:"path" json:"path"`
}

// S3Config holds S3-compatible storage configuration. Uploads are enabled
// when Bucket is set.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Region    string `yaml:"region" json:"region"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	AccessKey string `yaml:"access_key" json:"-"`
	SecretKey string `yaml:"secret_key" json:"-"`
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			SourceDir:  "data/source",
			FeatureDir: "data/features",
		},
		Files: FilesConfig{
			Train: "ccf_offline_stage1_train.csv",
			Test:  "ccf_offline_stage1_test_revised.csv",
		},
		Sample: SampleConfig{
			Size: 10000,
			Seed: 10,
		},
		Variant: "relation",
		Output: OutputConfig{
			Format: FormatCSV,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and COUPONFEAT_* environment variables, in that order,
// then validates it.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Paths.SourceDir = getEnv("COUPONFEAT_SOURCE_DIR", c.Paths.SourceDir)
	c.Paths.IntermediateDir = getEnv("COUPONFEAT_INTERMEDIATE_DIR", c.Paths.IntermediateDir)
	c.Paths.FeatureDir = getEnv("COUPONFEAT_FEATURE_DIR", c.Paths.FeatureDir)
	c.Files.Train = getEnv("COUPONFEAT_TRAIN_FILE", c.Files.Train)
	c.Files.Test = getEnv("COUPONFEAT_TEST_FILE", c.Files.Test)
	c.Sample.Enabled = getEnvBool("COUPONFEAT_SAMPLE", c.Sample.Enabled)
	c.Sample.Size = getEnvInt("COUPONFEAT_SAMPLE_SIZE", c.Sample.Size)
	c.Variant = getEnv("COUPONFEAT_VARIANT", c.Variant)
	c.Parallel = getEnvBool("COUPONFEAT_PARALLEL", c.Parallel)
	c.Output.Format = getEnv("COUPONFEAT_OUTPUT_FORMAT", c.Output.Format)
	c.Output.Compress = getEnvBool("COUPONFEAT_OUTPUT_COMPRESS", c.Output.Compress)
	c.Output.SQLitePath = getEnv("COUPONFEAT_SQLITE_PATH", c.Output.SQLitePath)
	c.Ledger.Path = getEnv("COUPONFEAT_LEDGER_PATH", c.Ledger.Path)
	c.S3.Endpoint = getEnv("COUPONFEAT_S3_ENDPOINT", c.S3.Endpoint)
	c.S3.Region = getEnv("COUPONFEAT_S3_REGION", c.S3.Region)
	c.S3.Bucket = getEnv("COUPONFEAT_S3_BUCKET", c.S3.Bucket)
	c.S3.Prefix = getEnv("COUPONFEAT_S3_PREFIX", c.S3.Prefix)
	c.S3.AccessKey = getEnv("COUPONFEAT_S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("COUPONFEAT_S3_SECRET_KEY", c.S3.SecretKey)
	c.Log.Level = getEnv("COUPONFEAT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("COUPONFEAT_LOG_FORMAT", c.Log.Format)
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Paths),
		validation.Field(&c.Files),
		validation.Field(&c.Sample),
		validation.Field(&c.Variant,
			validation.Required.Error("variant is required"),
			validation.In("basic", "relation").Error("variant must be basic or relation"),
		),
		validation.Field(&c.Output),
		validation.Field(&c.S3),
		validation.Field(&c.Log),
	)
}

func (p PathsConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.SourceDir, validation.Required.Error("source directory cannot be empty")),
		validation.Field(&p.FeatureDir, validation.Required.Error("feature directory cannot be empty")),
	)
}

func (f FilesConfig) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Train, validation.Required),
		validation.Field(&f.Test, validation.Required),
	)
}

func (s SampleConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Size, validation.When(s.Enabled,
			validation.Required.Error("sample size is required when sampling"),
			validation.Min(1),
		)),
	)
}

func (o OutputConfig) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Format,
			validation.Required,
			validation.In(FormatCSV, FormatXLSX, FormatSQLite),
		),
		validation.Field(&o.SQLitePath, validation.When(o.Format == FormatSQLite,
			validation.Required.Error("sqlite path is required for sqlite output"),
		)),
	)
}

func (s S3Config) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Region, validation.When(s.Enabled(), validation.Required)),
		validation.Field(&s.AccessKey, validation.When(s.Enabled(), validation.Required)),
		validation.Field(&s.SecretKey, validation.When(s.Enabled(), validation.Required)),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("console", "json")),
	)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
