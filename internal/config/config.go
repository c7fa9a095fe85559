package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool   `env:"DEBUG_MODE"`     //Режим дебага
	Provider  string `env:"IMAGE_PROVIDER"` // openai|gemini|stub — кто генерирует картинки

	OpenAI OpenAIImageConfig
	Gemini GeminiImageConfig

	GenerateTimeoutSeconds int           `env:"GENERATE_TIMEOUT_SECONDS"` // Таймаут одного запроса генерации
	StubDelay              time.Duration `env:"STUB_DELAY"`               // Искусственная задержка stub-провайдера

	// Сохранение полученных картинок на диск для просмотра
	SaveImages       bool   `env:"SAVE_IMAGES"`
	ImagesOutputDir  string `env:"IMAGES_OUTPUT_DIR"`  // Папка для сохранённых картинок
	ImagesTTLSeconds int    `env:"IMAGES_TTL_SECONDS"` // Через сколько секунд сохранённые картинки удаляются; 0 — не удалять

	// Логи пишем в файл: терминал занят интерфейсом
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS"`

	NotificationSoundPath string `env:"NOTIFICATION_SOUND_PATH"` // Звук при готовой картинке (mp3|wav); пусто — без звука

	// Twitch — дополнительный источник промптов
	TwitchUsername   string `env:"TWITCH_USERNAME"`
	TwitchOAuthToken string `env:"TWITCH_OAUTH_TOKEN"` // может быть без префикса oauth:
	TwitchChannel    string `env:"TWITCH_CHANNEL"`     // без #
	TwitchCommand    string `env:"TWITCH_COMMAND"`     // префикс команды, напр. !draw

	// StateServer — отдаёт состояние переписки веб-клиенту
	StateServer StateServerConfig
}

// OpenAIImageConfig параметры генерации через OpenAI Images API.
type OpenAIImageConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"` // Пусто — SDK возьмёт ключ из окружения сам
	Model   string `env:"OPENAI_IMAGE_MODEL"`
	Size    string `env:"OPENAI_IMAGE_SIZE"`    // напр. 1024x1024
	Quality string `env:"OPENAI_IMAGE_QUALITY"` // standard|hd для dall-e-3, low|medium|high для gpt-image-1
}

// GeminiImageConfig параметры генерации через Imagen (Gemini API).
type GeminiImageConfig struct {
	APIKey      string `env:"GEMINI_API_KEY"`
	Model       string `env:"GEMINI_IMAGE_MODEL"`
	AspectRatio string `env:"GEMINI_ASPECT_RATIO"` // 1:1, 16:9, ...
}

// StateServerConfig конфигурация HTTP/WebSocket сервера состояния.
type StateServerConfig struct {
	Enabled   bool   `env:"STATE_SERVER_ENABLED"`    // Главный флаг включения/выключения
	BindAddr  string `env:"STATE_SERVER_BIND_ADDR"`  // Адрес слушателя, напр. 127.0.0.1:3000
	AuthToken string `env:"STATE_SERVER_AUTH_TOKEN"` // Токен авторизации для POST /prompt (опционально)
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		Provider:  "openai",
		OpenAI: OpenAIImageConfig{
			Model:   "dall-e-3",
			Size:    "1024x1024",
			Quality: "",
		},
		Gemini: GeminiImageConfig{
			Model:       "imagen-4.0-generate-001",
			AspectRatio: "1:1",
		},
		GenerateTimeoutSeconds: 120,
		StubDelay:              2 * time.Second,
		SaveImages:             true,
		ImagesOutputDir:        "images/generated",
		ImagesTTLSeconds:       0,
		LogFile:                "logs/imagechat.log",
		LogMaxSizeMB:           10,
		LogMaxBackups:          3,
		TwitchCommand:          "!draw",
		StateServer: StateServerConfig{
			Enabled:  false,
			BindAddr: "127.0.0.1:3000",
		},
	}
}

// NewConfig загружает конфигурацию приложения из .env, окружения и флагов os.Args.
func NewConfig() (*Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load собирает конфигурацию: дефолты → .env → окружение → флаги из args.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага (подробные логи)")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "провайдер генерации: openai|gemini|stub")
	// OpenAI
	fs.StringVar(&cfg.OpenAI.Model, "openai-model", cfg.OpenAI.Model, "модель OpenAI для картинок (dall-e-3, gpt-image-1, ...)")
	fs.StringVar(&cfg.OpenAI.Size, "openai-size", cfg.OpenAI.Size, "размер картинки OpenAI, напр. 1024x1024")
	fs.StringVar(&cfg.OpenAI.Quality, "openai-quality", cfg.OpenAI.Quality, "качество картинки OpenAI")
	// Gemini
	fs.StringVar(&cfg.Gemini.Model, "gemini-model", cfg.Gemini.Model, "модель Imagen для картинок")
	fs.StringVar(&cfg.Gemini.AspectRatio, "gemini-aspect-ratio", cfg.Gemini.AspectRatio, "соотношение сторон Imagen, напр. 1:1")
	// Запросы
	fs.IntVar(&cfg.GenerateTimeoutSeconds, "generate-timeout-seconds", cfg.GenerateTimeoutSeconds, "таймаут одного запроса генерации в секундах")
	fs.DurationVar(&cfg.StubDelay, "stub-delay", cfg.StubDelay, "задержка stub-провайдера, напр. 2s")
	// Картинки
	fs.BoolVar(&cfg.SaveImages, "save-images", cfg.SaveImages, "сохранять полученные картинки на диск")
	fs.StringVar(&cfg.ImagesOutputDir, "images-output-dir", cfg.ImagesOutputDir, "папка для сохранённых картинок")
	fs.IntVar(&cfg.ImagesTTLSeconds, "images-ttl-seconds", cfg.ImagesTTLSeconds, "через сколько секунд удалять сохранённые картинки (0 — не удалять)")
	// Логи
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "файл логов")
	// Звук уведомления
	fs.StringVar(&cfg.NotificationSoundPath, "notification-sound-path", cfg.NotificationSoundPath, "путь к звуковому файлу уведомления (mp3 или wav)")
	// Twitch
	fs.StringVar(&cfg.TwitchUsername, "twitch-username", cfg.TwitchUsername, "логин Twitch для подключения к чату")
	fs.StringVar(&cfg.TwitchOAuthToken, "twitch-oauth-token", cfg.TwitchOAuthToken, "OAuth токен Twitch (может быть без префикса oauth:)")
	fs.StringVar(&cfg.TwitchChannel, "twitch-channel", cfg.TwitchChannel, "канал Twitch (без #)")
	fs.StringVar(&cfg.TwitchCommand, "twitch-command", cfg.TwitchCommand, "команда чата для генерации, напр. !draw")
	// StateServer
	fs.BoolVar(&cfg.StateServer.Enabled, "state-server-enabled", cfg.StateServer.Enabled, "включить сервер состояния (HTTP + WebSocket)")
	fs.StringVar(&cfg.StateServer.BindAddr, "state-server-bind-addr", cfg.StateServer.BindAddr, "адрес для прослушивания сервера состояния")
	fs.StringVar(&cfg.StateServer.AuthToken, "state-server-auth-token", cfg.StateServer.AuthToken, "токен авторизации для POST /prompt (опционально)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "gemini", "stub":
	default:
		return fmt.Errorf("unknown provider %q: use openai|gemini|stub", c.Provider)
	}
	if c.Provider == "gemini" && strings.TrimSpace(c.Gemini.APIKey) == "" {
		return fmt.Errorf("gemini: переменная окружения GEMINI_API_KEY не задана")
	}
	if c.GenerateTimeoutSeconds < 0 {
		return fmt.Errorf("generate timeout must not be negative: %d", c.GenerateTimeoutSeconds)
	}
	if c.SaveImages && strings.TrimSpace(c.ImagesOutputDir) == "" {
		return fmt.Errorf("images output dir is empty while save-images is on")
	}
	return nil
}

// GenerateTimeout возвращает таймаут запроса; 0 — без таймаута.
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}
