package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "cv-screener"
)

type Config struct {
	Debug  bool          `mapstructure:"debug"`
	JSON   bool          `mapstructure:"json"`
	AI     *AIConfig     `mapstructure:"ai"`
	Server *ServerConfig `mapstructure:"server"`
}

type AIConfig struct {
	Provider     string             `mapstructure:"provider"`
	MaxLogLength int                `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig      `mapstructure:"gemini"`
	AzureOpenAI  *AzureOpenAIConfig `mapstructure:"azure-openai"`
}

type GeminiConfig struct {
	APIKey      string   `mapstructure:"api-key"`
	APIKeyFile  string   `mapstructure:"api-key-file"`
	Model       string   `mapstructure:"model"`
	MaxRetries  int      `mapstructure:"max-retries"`
	Temperature *float32 `mapstructure:"temperature"`
}

type AzureOpenAIConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Deployment  string        `mapstructure:"deployment"`
	APIVersion  string        `mapstructure:"api-version"`
	APIKey      string        `mapstructure:"api-key"`
	APIKeyFile  string        `mapstructure:"api-key-file"`
	Temperature *float32      `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Listen        string        `mapstructure:"listen"`
	MaxUploadSize int64         `mapstructure:"max-upload-size"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-screener matches candidate CVs against the requirements of a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"ai.provider":               "CV_SCREENER_AI_PROVIDER",
		"ai.azure-openai.endpoint":   "AZURE_OPENAI_ENDPOINT",
		"ai.azure-openai.deployment": "AZURE_OPENAI_DEPLOYMENT",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.max-upload-size", 10<<20)
	viper.SetDefault("server.timeout", "5m")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Only the screening commands need a provider config.
	if screenCmd.CalledAs() == "" && serveCmd.CalledAs() == "" {
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Without a config file everything comes from defaults and the environment.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.AllSettings())
}

// decodeConfig decodes viper settings into Config. Unknown keys are an error.
func decodeConfig(settings map[string]any) (*Config, error) {
	config := &Config{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
