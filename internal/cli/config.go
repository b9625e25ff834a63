package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wikigap/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wikigap configuration",
	Long: `Manage wikigap configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (WIKIGAP_*, .env)
3. Config file (~/.wikigap/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, environment and flags. Secrets are never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, _ = cmd.OutOrStdout().Write(yamlData)

		if cfg.LLM.Provider != "" {
			state := "not set"
			if cfg.LLM.APIKey != "" {
				state = "set"
			}
			fmt.Fprintf(os.Stderr, "\nLLM API key for %s: %s\n", cfg.LLM.Provider, state)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.wikigap/config.yaml with every available option.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}
		configPath := filepath.Join(home, ".wikigap", "config.yaml")

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  wikigap config show\n")
		fmt.Printf("\nTo customize, edit the file with your preferred editor:\n")
		fmt.Printf("  $EDITOR %s\n\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// writeDefaultConfig writes the commented default config; it refuses to overwrite
func writeDefaultConfig(path string) (err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'wikigap config show' to view it, or delete it first to recreate", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	var b strings.Builder
	b.WriteString("# wikigap configuration file\n")
	b.WriteString("#\n")
	b.WriteString("# Configuration hierarchy (highest to lowest priority):\n")
	b.WriteString("#   1. CLI flags\n")
	b.WriteString("#   2. Environment variables (WIKIGAP_*, e.g. WIKIGAP_LLM_PROVIDER)\n")
	b.WriteString("#   3. This config file\n")
	b.WriteString("#   4. Built-in defaults\n\n")
	b.Write(yamlData)
	b.WriteString("\n# Secrets are read from the environment only:\n")
	b.WriteString("#   export WIKIGAP_LLM_API_KEY=...   (or OPENAI_API_KEY, GEMINI_API_KEY, HF_API_TOKEN, ANTHROPIC_API_KEY)\n")
	b.WriteString("#   export WIKIGAP_EXPORT_S3_ACCESS_KEY=... WIKIGAP_EXPORT_S3_SECRET_KEY=...\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// loadConfig merges viper sources over the defaults and applies changed root flags
func loadConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("storage") {
		cfg.Storage.Backend, _ = flags.GetString("storage")
	}
	if flags.Changed("storage-path") {
		cfg.Storage.Path, _ = flags.GetString("storage-path")
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	applyProviderEnv(cfg)
	return cfg, nil
}

// applyProviderEnv fills secrets from the provider's conventional variables
func applyProviderEnv(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		var names []string
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			names = []string{"OPENAI_API_KEY"}
		case "anthropic", "claude":
			names = []string{"ANTHROPIC_API_KEY"}
		case "gemini", "google":
			names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
		case "huggingface", "hf":
			names = []string{"HF_API_TOKEN", "HUGGINGFACE_API_KEY"}
		}
		cfg.LLM.APIKey = firstEnv(names...)
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.Export.S3AccessKey == "" {
		cfg.Export.S3AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if cfg.Export.S3SecretKey == "" {
		cfg.Export.S3SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// bindEnvs registers every mapstructure key of v so that WIKIGAP_* variables
// reach Unmarshal even when no config file mentions the key
func bindEnvs(vp *viper.Viper, v any, parts ...string) {
	t := reflect.TypeOf(v)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		path := append(append([]string(nil), parts...), tag)
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			bindEnvs(vp, reflect.Zero(field.Type).Interface(), path...)
			continue
		}
		_ = vp.BindEnv(strings.Join(path, "."))
	}
}

// expandHome resolves a leading ~/ against the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
