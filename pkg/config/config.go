package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/storacha/sasurl/pkg/deployment"
	"github.com/storacha/sasurl/pkg/sas"
	"github.com/storacha/sasurl/pkg/sas/s3sas"
)

const DefaultStack = "dev"

// Token issuer backends.
const (
	BackendARM       = "arm"
	BackendSharedKey = "sharedkey"
	BackendS3        = "s3"
)

// windowLayouts are the accepted formats for access window bounds.
var windowLayouts = []string{time.RFC3339, "2006-01-02"}

// IdentityConfig names the blob to sign and where it is served from
type IdentityConfig struct {
	AccountName       string `toml:"account_name" json:"account_name" mapstructure:"account_name" validate:"required" flag:"account-name"`
	ResourceGroupName string `toml:"resource_group_name" json:"resource_group_name" mapstructure:"resource_group_name" validate:"required" flag:"resource-group"`
	ContainerName     string `toml:"container_name" json:"container_name" mapstructure:"container_name" validate:"required" flag:"container"`
	BlobName          string `toml:"blob_name" json:"blob_name" mapstructure:"blob_name" validate:"required" flag:"blob"`
	BlobURL           string `toml:"blob_url" json:"blob_url" mapstructure:"blob_url" validate:"omitempty,url" flag:"blob-url"`
	EndpointSuffix    string `toml:"endpoint_suffix" json:"endpoint_suffix" mapstructure:"endpoint_suffix" validate:"required" flag:"endpoint-suffix"`
}

// WindowConfig is the access window requested for signed URLs
type WindowConfig struct {
	Start string `toml:"start" json:"start" mapstructure:"start" validate:"required" flag:"window-start"`
	End   string `toml:"end" json:"end" mapstructure:"end" validate:"required" flag:"window-end"`
}

// ARMConfig configures token issuance through the Azure storage control plane
type ARMConfig struct {
	SubscriptionID string `toml:"subscription_id" json:"subscription_id" mapstructure:"subscription_id" flag:"subscription-id"`
}

// SharedKeyConfig configures local signing with a storage account key
type SharedKeyConfig struct {
	AccountKey      string `toml:"account_key" json:"account_key" mapstructure:"account_key" flag:"account-key"`
	AccountKeyParam string `toml:"account_key_param" json:"account_key_param" mapstructure:"account_key_param" flag:"account-key-param"`
}

// S3Config configures presigning against an S3 compatible endpoint
type S3Config struct {
	Endpoint             string `toml:"endpoint" json:"endpoint" mapstructure:"endpoint" validate:"omitempty,url" flag:"s3-endpoint"`
	Region               string `toml:"region" json:"region" mapstructure:"region" flag:"s3-region"`
	AccessKeyID          string `toml:"access_key_id" json:"access_key_id" mapstructure:"access_key_id" flag:"s3-access-key-id"`
	SecretAccessKey      string `toml:"secret_access_key" json:"secret_access_key" mapstructure:"secret_access_key" flag:"s3-secret-access-key"`
	SecretAccessKeyParam string `toml:"secret_access_key_param" json:"secret_access_key_param" mapstructure:"secret_access_key_param" flag:"s3-secret-access-key-param"`
}

// IssuerConfig selects and configures the token issuer
type IssuerConfig struct {
	Backend   string          `toml:"backend" json:"backend" mapstructure:"backend" validate:"oneof=arm sharedkey s3" flag:"backend"`
	ARM       ARMConfig       `toml:"arm" json:"arm" mapstructure:"arm"`
	SharedKey SharedKeyConfig `toml:"sharedkey" json:"sharedkey" mapstructure:"sharedkey"`
	S3        S3Config        `toml:"s3" json:"s3" mapstructure:"s3"`
}

// DirectoriesConfig contains file system paths
type DirectoriesConfig struct {
	DataDir string `toml:"data_dir" json:"data_dir" mapstructure:"data_dir" flag:"data-dir"`
}

// Config represents the full configuration for composing a signed blob URL
type Config struct {
	// Name the outputs are recorded under
	Stack string `toml:"stack" json:"stack" mapstructure:"stack" validate:"required,excludesall=/" flag:"stack"`

	Identity IdentityConfig `toml:"identity" json:"identity" mapstructure:"identity"`

	Window WindowConfig `toml:"window" json:"window" mapstructure:"window"`

	Issuer IssuerConfig `toml:"issuer" json:"issuer" mapstructure:"issuer"`

	Directories DirectoriesConfig `toml:"directories" json:"directories" mapstructure:"directories"`
}

// LoadConfig is a comprehensive method that handles the entire configuration loading process
// flags > environment variables > config file > defaults
// It takes care of:
// 1. Loading defaults specified in code
// 2. Loading config from file if provided via --config
// 3. Setting up the default data directory if it is not provided
// 4. Applying CLI flag overrides to config state
// 5. Validating the final configuration
func LoadConfig(cCtx *cli.Context) (*Config, error) {
	// Start with defaults
	cfg := newDefault()

	// load from config file if specified
	configPath := cCtx.String("config")
	if configPath != "" {
		loadedCfg, err := load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration from file: %w", err)
		}
		cfg = loadedCfg
	}

	// Set up default directories (creates them if they don't exist)
	if err := setupDefaultDirectories(cfg); err != nil {
		return nil, fmt.Errorf("failed to set up default directories: %w", err)
	}

	// Apply CLI flags and environment variable overrides
	fromCLI(cCtx, cfg)

	// Validate the final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ResourceIdentity returns the configured blob identity.
func (cfg *Config) ResourceIdentity() sas.ResourceIdentity {
	return sas.ResourceIdentity{
		AccountName:       cfg.Identity.AccountName,
		ResourceGroupName: cfg.Identity.ResourceGroupName,
		ContainerName:     cfg.Identity.ContainerName,
		BlobName:          cfg.Identity.BlobName,
	}
}

// AccessWindow parses the configured window bounds.
func (w WindowConfig) AccessWindow() (sas.AccessWindow, error) {
	start, err := parseWindowTime(w.Start)
	if err != nil {
		return sas.AccessWindow{}, fmt.Errorf("parsing window start: %w", err)
	}
	end, err := parseWindowTime(w.End)
	if err != nil {
		return sas.AccessWindow{}, fmt.Errorf("parsing window end: %w", err)
	}
	window := sas.AccessWindow{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return sas.AccessWindow{}, err
	}
	return window, nil
}

func parseWindowTime(s string) (time.Time, error) {
	var err error
	for _, layout := range windowLayouts {
		var t time.Time
		t, err = time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor YYYY-MM-DD: %w", s, err)
}

// Validate performs validation on the configuration values and returns any errors.
// This can be called before using the configuration to ensure all required values are set.
func (cfg *Config) Validate() error {
	var errs error
	if err := validateConfig(cfg); err != nil {
		errs = multierror.Append(errs, err)
	}

	window, windowErr := cfg.Window.AccessWindow()
	if windowErr != nil {
		errs = multierror.Append(errs, windowErr)
	}

	// Validate backend specific settings
	switch cfg.Issuer.Backend {
	case BackendARM:
		if cfg.Issuer.ARM.SubscriptionID == "" {
			errs = multierror.Append(errs, fmt.Errorf("subscription ID is required for the %s backend", BackendARM))
		}
	case BackendSharedKey:
		if cfg.Issuer.SharedKey.AccountKey == "" && cfg.Issuer.SharedKey.AccountKeyParam == "" {
			errs = multierror.Append(errs, fmt.Errorf("account key or account key SSM parameter is required for the %s backend", BackendSharedKey))
		}
	case BackendS3:
		if cfg.Issuer.S3.Endpoint == "" {
			errs = multierror.Append(errs, fmt.Errorf("endpoint is required for the %s backend", BackendS3))
		}
		if cfg.Issuer.S3.AccessKeyID == "" {
			errs = multierror.Append(errs, fmt.Errorf("access key ID is required for the %s backend", BackendS3))
		}
		if cfg.Issuer.S3.SecretAccessKey == "" && cfg.Issuer.S3.SecretAccessKeyParam == "" {
			errs = multierror.Append(errs, fmt.Errorf("secret access key or secret access key SSM parameter is required for the %s backend", BackendS3))
		}
		if windowErr == nil && window.Duration() > s3sas.MaxExpiry {
			errs = multierror.Append(errs, fmt.Errorf("%w: the %s backend allows at most %s, set --window-start and --window-end (window is %s to %s)",
				s3sas.ErrWindowTooLong, BackendS3, s3sas.MaxExpiry, cfg.Window.Start, cfg.Window.End))
		}
	}

	if cfg.Directories.DataDir == "" {
		errs = multierror.Append(errs, fmt.Errorf("data directory path is required"))
	}

	return errs
}

// load reads the configuration from the given path and returns a Config.
// It binds and loads values from environment variables.
// It preserves default values for fields not specified in the config file, flags or env vars
func load(path string) (*Config, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("config file path cannot be empty")
	}
	if stat, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file path does not exist: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file at path %s: %w", path, err)
	} else if stat.IsDir() {
		return nil, fmt.Errorf("config file path points to a directory: %s", path)
	}

	// Initialize viper with defaults
	v, err := setupViperWithDefaults()
	if err != nil {
		return nil, err
	}

	// Read the configuration file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into our config struct
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	return cfg, nil
}

// newDefault creates a new configuration with pure default values.
// This only sets defaults that are not dependent on platform-specific logic.
// Application code should handle platform-specific defaults like file paths.
func newDefault() *Config {
	return &Config{
		Stack: DefaultStack,
		Identity: IdentityConfig{
			EndpointSuffix: deployment.DefaultBlobEndpointSuffix,
		},
		Window: WindowConfig{
			Start: sas.DefaultAccessWindow.Start.Format("2006-01-02"),
			End:   sas.DefaultAccessWindow.End.Format("2006-01-02"),
		},
		Issuer: IssuerConfig{
			Backend: BackendARM,
		},
		Directories: DirectoriesConfig{
			// No defaults for paths - platform-specific logic should set these
		},
	}
}

// fromCLI loads configuration values from CLI flags
func fromCLI(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet("stack") {
		cfg.Stack = ctx.String("stack")
	}

	// Identity settings
	if ctx.IsSet("account-name") {
		cfg.Identity.AccountName = ctx.String("account-name")
	}
	if ctx.IsSet("resource-group") {
		cfg.Identity.ResourceGroupName = ctx.String("resource-group")
	}
	if ctx.IsSet("container") {
		cfg.Identity.ContainerName = ctx.String("container")
	}
	if ctx.IsSet("blob") {
		cfg.Identity.BlobName = ctx.String("blob")
	}
	if ctx.IsSet("blob-url") {
		cfg.Identity.BlobURL = ctx.String("blob-url")
	}
	if ctx.IsSet("endpoint-suffix") {
		cfg.Identity.EndpointSuffix = ctx.String("endpoint-suffix")
	}

	// Window settings
	if ctx.IsSet("window-start") {
		cfg.Window.Start = ctx.String("window-start")
	}
	if ctx.IsSet("window-end") {
		cfg.Window.End = ctx.String("window-end")
	}

	// Issuer settings
	if ctx.IsSet("backend") {
		cfg.Issuer.Backend = ctx.String("backend")
	}
	if ctx.IsSet("subscription-id") {
		cfg.Issuer.ARM.SubscriptionID = ctx.String("subscription-id")
	}
	if ctx.IsSet("account-key") {
		cfg.Issuer.SharedKey.AccountKey = ctx.String("account-key")
	}
	if ctx.IsSet("account-key-param") {
		cfg.Issuer.SharedKey.AccountKeyParam = ctx.String("account-key-param")
	}
	if ctx.IsSet("s3-endpoint") {
		cfg.Issuer.S3.Endpoint = ctx.String("s3-endpoint")
	}
	if ctx.IsSet("s3-region") {
		cfg.Issuer.S3.Region = ctx.String("s3-region")
	}
	if ctx.IsSet("s3-access-key-id") {
		cfg.Issuer.S3.AccessKeyID = ctx.String("s3-access-key-id")
	}
	if ctx.IsSet("s3-secret-access-key") {
		cfg.Issuer.S3.SecretAccessKey = ctx.String("s3-secret-access-key")
	}
	if ctx.IsSet("s3-secret-access-key-param") {
		cfg.Issuer.S3.SecretAccessKeyParam = ctx.String("s3-secret-access-key-param")
	}

	// Directory settings
	if ctx.IsSet("data-dir") {
		cfg.Directories.DataDir = ctx.String("data-dir")
	}
}

// setupViperWithDefaults creates a new Viper instance with default values and environment bindings
func setupViperWithDefaults() (*viper.Viper, error) {
	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix("SASURL")
	v.AutomaticEnv()

	// Define specific environment variable mappings
	envMappings := map[string]string{
		"stack": "STACK",

		// Identity
		"identity.account_name":        "ACCOUNT_NAME",
		"identity.resource_group_name": "RESOURCE_GROUP",
		"identity.container_name":      "CONTAINER",
		"identity.blob_name":           "BLOB",
		"identity.blob_url":            "BLOB_URL",
		"identity.endpoint_suffix":     "ENDPOINT_SUFFIX",

		// Window
		"window.start": "WINDOW_START",
		"window.end":   "WINDOW_END",

		// Issuer
		"issuer.backend":                     "BACKEND",
		"issuer.arm.subscription_id":         "SUBSCRIPTION_ID",
		"issuer.sharedkey.account_key":       "ACCOUNT_KEY",
		"issuer.sharedkey.account_key_param": "ACCOUNT_KEY_PARAM",
		"issuer.s3.endpoint":                 "S3_ENDPOINT",
		"issuer.s3.region":                   "S3_REGION",
		"issuer.s3.access_key_id":            "S3_ACCESS_KEY_ID",
		"issuer.s3.secret_access_key":        "S3_SECRET_ACCESS_KEY",
		"issuer.s3.secret_access_key_param":  "S3_SECRET_ACCESS_KEY_PARAM",

		// Directories
		"directories.data_dir": "DATA_DIR",
	}

	// Create the aliases for environment variables
	for key, envVar := range envMappings {
		if err := v.BindEnv(key, "SASURL_"+envVar); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", key, err)
		}
	}

	// Start with default values
	defaultCfg := newDefault()

	// Set default values in Viper
	v.SetDefault("stack", defaultCfg.Stack)
	v.SetDefault("identity.endpoint_suffix", defaultCfg.Identity.EndpointSuffix)
	v.SetDefault("window.start", defaultCfg.Window.Start)
	v.SetDefault("window.end", defaultCfg.Window.End)
	v.SetDefault("issuer.backend", defaultCfg.Issuer.Backend)

	return v, nil
}

// setupDefaultDirectories configures default directories if they are not already set
func setupDefaultDirectories(cfg *Config) error {
	if cfg.Directories.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting user home directory: %w", err)
		}

		dataDir := filepath.Join(homeDir, ".sasurl")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating default data directory %s: %w", dataDir, err)
		}
		cfg.Directories.DataDir = dataDir
	}

	return nil
}
