package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server" toml:"server"`
	Files  FilesConfig  `yaml:"files" toml:"files"`
	Status StatusConfig `yaml:"status" toml:"status"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" toml:"host" validate:"required"`        // リッスンするホスト
	Port int    `yaml:"port" toml:"port" validate:"min=0,max=65535"` // リッスンするポート番号（0 は空きポートを自動割り当て）

	// タイムアウト設定（0 は無効）
	ReadTimeout  Duration `yaml:"read_timeout" toml:"read_timeout"`   // 読み込みタイムアウト
	WriteTimeout Duration `yaml:"write_timeout" toml:"write_timeout"` // 書き込みタイムアウト

	MaxConnections int   `yaml:"max_connections" toml:"max_connections" validate:"min=0"` // 同時接続数の上限（0 は無制限）
	MaxBodyBytes   int64 `yaml:"max_body_bytes" toml:"max_body_bytes" validate:"min=0"`   // リクエストボディの上限（0 は無制限）
}

// FilesConfig はファイル配信の設定
type FilesConfig struct {
	// 配信ルートディレクトリ。存在確認はリクエスト毎に行うためここでは検証しない
	Root string `yaml:"root" toml:"root"`
}

// StatusConfig は状態確認用サーバーの設定
type StatusConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Host    string `yaml:"host" toml:"host" validate:"required_if=Enabled true"`
	Port    int    `yaml:"port" toml:"port" validate:"min=0,max=65535"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=text json"`
}

// Duration は "10s" のような文字列で設定できる time.Duration
type Duration time.Duration

// UnmarshalText は time.ParseDuration の書式を受け付ける
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("無効な時間指定 %q: %w", string(text), err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText は time.Duration の文字列表現を返す
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std は time.Duration に変換する
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

var validate = validator.New()

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           4221,
			ReadTimeout:    0, // 0 はタイムアウトなし
			WriteTimeout:   0,
			MaxConnections: 0,
			MaxBodyBytes:   16 << 20,
		},
		Status: StatusConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    4222,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load は設定を読み込む
// デフォルト値 -> 設定ファイル（path が空でなければ）-> 環境変数 の順に上書きする
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile は拡張子に応じて YAML または TOML を読み込む
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("YAMLの解析に失敗: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("TOMLの解析に失敗: %w", err)
		}
	default:
		return fmt.Errorf("未対応の設定ファイル形式: %s", path)
	}
	return nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("SERVER_PORT", c.Server.Port)
	c.Files.Root = getEnvOrDefault("SERVE_ROOT", c.Files.Root)
	c.Log.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", c.Log.Level))
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s (%s=%s): %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("無効な設定値: %s", strings.Join(msgs, ", "))
		}
		return err
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("タイムアウトに負の値は指定できません")
	}
	// ポート0はリッスン時に別々のポートが割り当てられるため重複しない
	if c.Status.Enabled && c.Server.Port != 0 && c.Status.Port == c.Server.Port && c.Status.Host == c.Server.Host {
		return fmt.Errorf("状態確認サーバーとHTTPサーバーのアドレスが重複しています: %s", c.ServerAddress())
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StatusAddress は状態確認サーバーのリッスンアドレスを返す
func (c *Config) StatusAddress() string {
	return fmt.Sprintf("%s:%d", c.Status.Host, c.Status.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
