package genfix

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the process configuration shared by the CLI and web server
type Settings struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Database DatabaseConfig `mapstructure:"database"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Server   ServerConfig   `mapstructure:"server"`
	Cycle    CycleSettings  `mapstructure:"cycle"`
	LogFile  string         `mapstructure:"log_file"`
	Verbose  bool           `mapstructure:"verbose"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	SheetName       string `mapstructure:"sheet_name"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	SessionSecret string `mapstructure:"session_secret"`
}

// CycleSettings tunes the pipeline around the core cycle
type CycleSettings struct {
	RepairDifficulty    bool    `mapstructure:"repair_difficulty"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	AvoidHistory        int     `mapstructure:"avoid_history"`
}

// NewViper returns a viper instance with defaults and GENFIX_ environment
// bindings, e.g. GENFIX_LLM_MODEL for llm.model
func NewViper() *viper.Viper {
	v := viper.New()

	llm := DefaultLLMConfig()
	v.SetDefault("llm.provider", llm.Provider)
	v.SetDefault("llm.model", llm.Model)
	v.SetDefault("llm.temperature", llm.Temperature)
	v.SetDefault("llm.max_tokens", llm.MaxTokens)
	v.SetDefault("llm.top_p", llm.TopP)
	v.SetDefault("llm.presence_penalty", llm.PresencePenalty)
	v.SetDefault("llm.frequency_penalty", llm.FrequencyPenalty)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "genfix.db")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.sheet_name", "Questions")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.session_secret", "")
	v.SetDefault("cycle.repair_difficulty", false)
	v.SetDefault("cycle.similarity_threshold", DefaultSimilarityThreshold)
	v.SetDefault("cycle.avoid_history", 20)
	v.SetDefault("log_file", "")
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("GENFIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadSettings loads .env (if present), then the config file (if given),
// then environment overrides into a Settings value. An unset model resolves
// to the provider's DefaultModel.
func LoadSettings(v *viper.Viper, configFile string) (*Settings, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, configFile, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	switch s.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		return nil, fmt.Errorf("%w: unknown LLM provider %q", ErrConfiguration, s.LLM.Provider)
	}
	if s.LLM.Model == "" {
		s.LLM.Model = DefaultModel(s.LLM.Provider)
	}
	return &s, nil
}

// CycleOptions returns the cycle options implied by the settings
func (s *Settings) CycleOptions() []CycleOption {
	opts := []CycleOption{WithSimilarityThreshold(s.Cycle.SimilarityThreshold)}
	if s.Cycle.RepairDifficulty {
		opts = append(opts, WithFixerOptions(WithDifficultyRepair()))
	}
	return opts
}
