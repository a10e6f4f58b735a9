package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/gdcard/pkg/constants"
)

// EnvPrefix prefixes every environment variable read into the config.
const EnvPrefix = "GDCARD"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Card
	SDPath   string
	MenuKind string
	ToolsDir string
	TempDir  string
	PSXDB    string

	// Behaviour
	CleanTemp        bool
	Unattended       bool
	LazyLoading      bool
	TruncateMenuGDI  bool
	DebugMenu        bool
	RevalidateErrors bool
	NameMaxLength    int
	SerialMaxLength  int

	// External shrink tool
	ShrinkEnabled   bool
	ShrinkCommand   string
	ShrinkBlacklist bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (GDCARD_ prefix)
// 3. .env files
// 4. Config file (~/.gdcard.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".gdcard")
	}

	// Read config file (ignore error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, err
		}
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),
		Format:     v.GetString("format"),

		SDPath:   v.GetString("sd_path"),
		MenuKind: v.GetString("menu_kind"),
		ToolsDir: v.GetString("tools_dir"),
		TempDir:  v.GetString("temp_dir"),
		PSXDB:    v.GetString("psx_db"),

		CleanTemp:        v.GetBool("clean_temp"),
		Unattended:       v.GetBool("unattended"),
		LazyLoading:      v.GetBool("lazy_loading"),
		TruncateMenuGDI:  v.GetBool("truncate_menu_gdi"),
		DebugMenu:        v.GetBool("debug_menu"),
		RevalidateErrors: v.GetBool("revalidate_errors"),
		NameMaxLength:    v.GetInt("name_max_length"),
		SerialMaxLength:  v.GetInt("serial_max_length"),

		ShrinkEnabled:   v.GetBool("gdishrink.enabled"),
		ShrinkCommand:   v.GetString("gdishrink.command"),
		ShrinkBlacklist: v.GetBool("gdishrink.blacklist"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("menu_kind", "gdMenu")
	v.SetDefault("tools_dir", "tools")
	v.SetDefault("temp_dir", os.TempDir())
	v.SetDefault("unattended", true)
	v.SetDefault("lazy_loading", true)
	v.SetDefault("truncate_menu_gdi", true)
	v.SetDefault("name_max_length", constants.NameMaxLength)
	v.SetDefault("serial_max_length", constants.SerialMaxLength)
	v.SetDefault("gdishrink.enabled", false)
	v.SetDefault("gdishrink.blacklist", true)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, sdPath string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if sdPath != "" {
		c.SDPath = sdPath
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
