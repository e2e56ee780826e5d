package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the runtime configuration. Defaults come from the constants in this
// package, then an optional YAML file, then environment variables.
type Settings struct {
	Server    ServerSettings    `yaml:"server"`
	Auth      AuthSettings      `yaml:"auth"`
	Log       LogSettings       `yaml:"log"`
	Redis     RedisSettings     `yaml:"redis"`
	Qdrant    QdrantSettings    `yaml:"qdrant"`
	Providers ProviderSettings  `yaml:"providers"`
	Chats     ChatSettings      `yaml:"chats"`
	Refresh   RefreshSettings   `yaml:"refresh"`
	RateLimit RateLimitSettings `yaml:"rate_limit"`
}

type ServerSettings struct {
	ListenAddr string `yaml:"listen_addr"`
}

type AuthSettings struct {
	Token        string `yaml:"token"`
	NoAuthBypass bool   `yaml:"no_auth_bypass"`
}

type LogSettings struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Disabled bool   `yaml:"disabled"`
}

type QdrantSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	APIKey   string `yaml:"api_key"`
	UseTLS   bool   `yaml:"use_tls"`
	Disabled bool   `yaml:"disabled"`
}

// ProviderSettings selects the embedding and chat model backends.
type ProviderSettings struct {
	Embedding string         `yaml:"embedding"`
	LLM       string         `yaml:"llm"`
	Ollama    OllamaSettings `yaml:"ollama"`
	Gemini    GeminiSettings `yaml:"gemini"`
	OpenAI    OpenAISettings `yaml:"openai"`
}

type OllamaSettings struct {
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	LLMModel       string `yaml:"llm_model"`
}

type GeminiSettings struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type OpenAISettings struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type ChatSettings struct {
	Dir        string `yaml:"dir"`
	ArchiveDir string `yaml:"archive_dir"`
}

type RefreshSettings struct {
	Spec     string `yaml:"spec"`
	Disabled bool   `yaml:"disabled"`
}

type RateLimitSettings struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
	Disabled  bool    `yaml:"disabled"`
}

func Defaults() *Settings {
	return &Settings{
		Server: ServerSettings{ListenAddr: ServerListenAddr},
		Log:    LogSettings{JSON: IS_PROD},
		Redis:  RedisSettings{Addr: RedisAddr},
		Qdrant: QdrantSettings{Host: QdrantHost, Port: QdrantGrpcPort, UseTLS: QdrantUseTLS},
		Providers: ProviderSettings{
			Embedding: DefaultProvider,
			LLM:       DefaultProvider,
			Ollama: OllamaSettings{
				BaseURL:        OllamaBaseURL,
				EmbeddingModel: OllamaEmbeddingModel,
				LLMModel:       OllamaLLMModel,
			},
			Gemini: GeminiSettings{Model: GeminiModelName, EmbeddingModel: GoogleEmbeddingModel},
			OpenAI: OpenAISettings{Model: OpenAIModelName, EmbeddingModel: OpenAIEmbeddingModel},
		},
		Chats:     ChatSettings{Dir: ChatsDir, ArchiveDir: ArchiveDir},
		Refresh:   RefreshSettings{Spec: RefreshCronSpec},
		RateLimit: RateLimitSettings{PerSecond: RATE_LIMIT_PER_SECOND, Burst: BURST_RATE_LIMIT_PER_SECOND},
	}
}

// Load reads settings from path. An empty path or a missing file yields the defaults
// with environment overrides applied.
func Load(path string) (*Settings, error) {
	s := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read settings: %w", err)
		default:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parse settings %s: %w", path, err)
			}
		}
	}
	applyEnv(s)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	for _, p := range []string{s.Providers.Embedding, s.Providers.LLM} {
		switch p {
		case "ollama", "gemini", "openai":
		default:
			return fmt.Errorf("unknown provider %q", p)
		}
	}
	if s.Chats.Dir == "" {
		return errors.New("chats dir must not be empty")
	}
	return nil
}

// SlogLevel maps the configured level name. Without one, the JSON handler logs at
// LOG_LEVEL_PROD and the dev handler at debug.
func (l LogSettings) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "":
		if l.JSON {
			return LOG_LEVEL_PROD
		}
		return slog.LevelDebug
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func applyEnv(s *Settings) {
	setString(&s.Server.ListenAddr, "LISTEN_ADDR")
	setString(&s.Auth.Token, "AUTH_TOKEN")
	setBool(&s.Auth.NoAuthBypass, "NO_AUTH_BYPASS")
	setString(&s.Log.Level, "LOG_LEVEL")
	setBool(&s.Log.JSON, "LOG_JSON")
	setString(&s.Redis.Addr, "REDIS_ADDR")
	setString(&s.Redis.Password, "REDIS_PASSWORD")
	setBool(&s.Redis.Disabled, "REDIS_DISABLED")
	setString(&s.Qdrant.Host, "QDRANT_HOST")
	setInt(&s.Qdrant.Port, "QDRANT_PORT")
	setString(&s.Qdrant.APIKey, "QDRANT_API_KEY")
	setBool(&s.Qdrant.Disabled, "QDRANT_DISABLED")
	setString(&s.Providers.Embedding, "EMBEDDING_PROVIDER")
	setString(&s.Providers.LLM, "LLM_PROVIDER")
	setString(&s.Providers.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&s.Providers.Ollama.EmbeddingModel, "OLLAMA_EMBEDDING_MODEL")
	setString(&s.Providers.Ollama.LLMModel, "OLLAMA_LLM_MODEL")
	setString(&s.Providers.Gemini.APIKey, "GOOGLE_API_KEY")
	setString(&s.Providers.Gemini.Model, "GEMINI_MODEL")
	setString(&s.Providers.Gemini.EmbeddingModel, "GEMINI_EMBEDDING_MODEL")
	setString(&s.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&s.Providers.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&s.Providers.OpenAI.Model, "OPENAI_MODEL")
	setString(&s.Providers.OpenAI.EmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&s.Chats.Dir, "CHATS_DIR")
	setString(&s.Chats.ArchiveDir, "CHATS_ARCHIVE_DIR")
	setString(&s.Refresh.Spec, "REFRESH_CRON")
	setBool(&s.Refresh.Disabled, "REFRESH_DISABLED")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
