package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App         AppConfig
	Server      ServerConfig
	Session     SessionConfig
	Upload      UploadConfig
	Terminology TerminologyConfig
	Welcome     WelcomeConfig
	Redis       RedisConfig
	AI          AIConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// SessionConfig 会话配置
type SessionConfig struct {
	Secret        string
	CookieName    string
	MaxTranscript int
}

// UploadConfig 上传配置
type UploadConfig struct {
	Dir     string
	MaxSize int64
}

// TerminologyConfig 术语表配置
type TerminologyConfig struct {
	Path string
}

// WelcomeConfig 欢迎页配置
type WelcomeConfig struct {
	TemplatePath string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AIConfig AI配置
type AIConfig struct {
	Provider string
	Timeout  int
	OpenAI   OpenAIConfig
	Alibaba  AlibabaConfig
	DeepSeek DeepSeekConfig
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AlibabaConfig 阿里云配置
type AlibabaConfig struct {
	AccessKeyID     string
	AccessKeySecret string
	Model           string
}

// DeepSeekConfig DeepSeek配置
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

var globalConfig *Config

// Load 加载配置
// path 为空时使用默认值，环境变量始终可覆盖配置文件
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("CDISC_ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 部署环境约定的裸环境变量名
	v.BindEnv("ai.openai.apikey", "API_KEY")
	v.BindEnv("session.secret", "SESSION_SECRET")
	v.BindEnv("upload.maxsize", "UPLOAD_SIZE_LIMIT")
	v.BindEnv("server.port", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "cdisc-assistant")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)

	// Session
	v.SetDefault("session.cookieName", "session_id")
	v.SetDefault("session.maxTranscript", 40)

	// Upload
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.maxSize", 16*1024*1024)

	// Terminology
	v.SetDefault("terminology.path", "./data/cdisc_terminology.json")

	// Welcome
	v.SetDefault("welcome.templatePath", "./templates/welcome.html")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout", 90)
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.baseURL", "")
	v.SetDefault("ai.deepseek.baseURL", "https://api.deepseek.com/v1")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.alibaba.model", "qwen-plus")
}
