package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	_ "embed"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dotcommander/airport/internal/errs"
)

//go:embed config_template.yml
var configTemplate string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AIRPORT_"

// Default environment variables holding provider keys.
const (
	GoogleKeyEnv        = "GOOGLE_GENERATIVE_AI_API_KEY"
	AirportDBKeyEnv     = "AIRPORT_DB_IO_API_KEY"
	AviationstackKeyEnv = "AVIATIONSTACK_API_KEY"
)

const defaultPersona = `You are an aviation assistant that provides accurate and concise information about airports worldwide.

Your main responsibilities are:
- Provide details about airports when given a name, city, or IATA/ICAO code.
- Always give results in a traveler-friendly format:
    ✈️ Airport Name (IATA / ICAO)
    📍 City, Country
    🕐 Timezone
    🌐 Coordinates
    🧭 Short summary about the airport's importance (international hub, regional airport, etc.)
- Keep responses concise but well-structured.`

// Credentials locate an API key: inline, from a named environment variable,
// or from the output of a command.
type Credentials struct {
	APIKey    string `yaml:"api-key" env:"API_KEY"`
	APIKeyEnv string `yaml:"api-key-env" env:"API_KEY_ENV"`
	APIKeyCmd string `yaml:"api-key-cmd" env:"API_KEY_CMD"`
}

// Model represents a text-generation model offered by an API.
type Model struct {
	Name           string
	API            string
	Aliases        []string `yaml:"aliases"`
	ThinkingBudget int      `yaml:"thinking-budget,omitempty"`
}

// API represents a text-generation endpoint and its models.
type API struct {
	Name        string
	Credentials `yaml:",inline"`
	BaseURL     string           `yaml:"base-url"`
	Models      map[string]Model `yaml:"models"`
	User        string           `yaml:"user"`
}

// APIs is a type alias to allow custom YAML decoding.
type APIs []API

// UnmarshalYAML implements sorted API YAML decoding.
func (apis *APIs) UnmarshalYAML(node *yaml.Node) error {
	for i := 0; i < len(node.Content); i += 2 {
		var api API
		if err := node.Content[i+1].Decode(&api); err != nil {
			return fmt.Errorf("error decoding YAML file: %s", err)
		}
		api.Name = node.Content[i].Value
		*apis = append(*apis, api)
	}
	return nil
}

// Provider configures an airport data provider.
type Provider struct {
	Credentials `yaml:",inline"`
	BaseURL     string `yaml:"base-url" env:"BASE_URL"`
}

// Settings holds persisted configuration loaded from the YAML settings file
// and environment variables.
type Settings struct {
	API              string        `yaml:"default-api" env:"API"`
	Model            string        `yaml:"default-model" env:"MODEL"`
	APIs             APIs          `yaml:"apis"`
	Temperature      float64       `yaml:"temp" env:"TEMP"`
	MaxTokens        int64         `yaml:"max-tokens" env:"MAX_TOKENS"`
	HTTPProxy        string        `yaml:"http-proxy" env:"HTTP_PROXY"`
	User             string        `yaml:"user" env:"USER_ID"`
	Agent            string        `yaml:"agent" env:"AGENT"`
	Persona          string        `yaml:"persona" env:"PERSONA"`
	AirportDB        Provider      `yaml:"airportdb" envPrefix:"AIRPORTDB_"`
	Aviationstack    Provider      `yaml:"aviationstack" envPrefix:"AVIATIONSTACK_"`
	ToolStrategy     string        `yaml:"tool-strategy" env:"TOOL_STRATEGY"`
	WorkflowStrategy string        `yaml:"workflow-strategy" env:"WORKFLOW_STRATEGY"`
	RequestTimeout   time.Duration `yaml:"request-timeout" env:"REQUEST_TIMEOUT"`
	NarrativeTimeout time.Duration `yaml:"narrative-timeout" env:"NARRATIVE_TIMEOUT"`
	Parallelism      int           `yaml:"parallelism" env:"PARALLELISM"`
	LogLevel         string        `yaml:"log-level" env:"LOG_LEVEL"`
	CachePath        string        `yaml:"cache-path" env:"CACHE_PATH"`
	NoHistory        bool          `yaml:"no-history" env:"NO_HISTORY"`
	WordWrap         int           `yaml:"word-wrap" env:"WORD_WRAP"`
	Raw              bool          `yaml:"raw" env:"RAW"`
	Quiet            bool          `yaml:"quiet" env:"QUIET"`
	Theme            string        `yaml:"theme" env:"THEME"`
}

// Runtime holds CLI-only options that are never loaded from the settings
// file.
type Runtime struct {
	SettingsPath string
	Strategy     string
	JSON         bool
	Copy         bool
}

// Config is the application configuration (settings + runtime-only options).
type Config struct {
	Settings `yaml:",inline"`
	Runtime  `yaml:"-" env:"-"`
}

// Ensure loads settings from disk and environment and applies defaults.
//
// It also creates the default settings file if it does not exist.
func Ensure() (Config, error) {
	var c Config
	home, err := os.UserHomeDir()
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not determine home directory."}
	}
	return Load(filepath.Join(home, ".config", "airport", "airport.yml"))
}

// Load reads the settings file at path (creating it from the template when
// missing), loads .env files, applies AIRPORT_ environment overrides and
// fills defaults.
func Load(path string) (Config, error) {
	var c Config
	c.SettingsPath = path

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not create config directory."}
	}
	if err := WriteConfigFile(path); err != nil {
		return c, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse settings file."}
	}

	if err := LoadDotEnv(".env", filepath.Join(dir, ".env")); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not load .env file."}
	}
	if err := env.ParseWithOptions(&c, env.Options{Prefix: EnvPrefix}); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse environment into settings file."}
	}

	if c.CachePath == "" {
		c.CachePath = filepath.Join(dir, "history")
	}
	if err := os.MkdirAll(c.CachePath, 0o700); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not create cache directory."}
	}

	c.applyDefaults()
	return c, nil
}

// LoadDotEnv loads every existing file in paths into the process
// environment. Variables that are already set are left untouched.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.API == "" {
		c.API = def.API
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	if len(c.APIs) == 0 {
		c.APIs = def.APIs
	}
	if c.Agent == "" {
		c.Agent = def.Agent
	}
	if c.Persona == "" {
		c.Persona = def.Persona
	}
	if c.ToolStrategy == "" {
		c.ToolStrategy = def.ToolStrategy
	}
	if c.WorkflowStrategy == "" {
		c.WorkflowStrategy = def.WorkflowStrategy
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.NarrativeTimeout == 0 {
		c.NarrativeTimeout = def.NarrativeTimeout
	}
	if c.Parallelism == 0 {
		c.Parallelism = def.Parallelism
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.WordWrap == 0 {
		c.WordWrap = def.WordWrap
	}
	if c.AirportDB.APIKeyEnv == "" {
		c.AirportDB.APIKeyEnv = AirportDBKeyEnv
	}
	if c.Aviationstack.APIKeyEnv == "" {
		c.Aviationstack.APIKeyEnv = AviationstackKeyEnv
	}
}

// WriteConfigFile creates the config file at path if it does not exist.
func WriteConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return errs.Error{Err: err, Reason: "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct{ Config Config }{Config: Default()}
	if err := tmpl.Execute(f, m); err != nil {
		return errs.Error{Err: err, Reason: "Could not render template."}
	}
	return nil
}

// Default returns the default configuration values.
func Default() Config {
	return Config{
		Settings: Settings{
			API:   "google",
			Model: "gemini-2.5-flash",
			APIs: APIs{
				{
					Name:        "google",
					Credentials: Credentials{APIKeyEnv: GoogleKeyEnv},
					Models: map[string]Model{
						"gemini-2.5-flash": {Aliases: []string{"flash"}},
						"gemini-2.5-pro":   {Aliases: []string{"pro"}, ThinkingBudget: 1024},
					},
				},
			},
			Temperature:      -1,
			Agent:            "airportInfoAgent",
			Persona:          defaultPersona,
			ToolStrategy:     "code",
			WorkflowStrategy: "search",
			RequestTimeout:   30 * time.Second,
			NarrativeTimeout: 2 * time.Minute,
			Parallelism:      4,
			LogLevel:         "warn",
			WordWrap:         80,
		},
	}
}
