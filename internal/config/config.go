package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Prompt    PromptConfig    `mapstructure:"prompt"`
	Chunker   ChunkerConfig   `mapstructure:"chunker"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
	LogQueries      bool   `mapstructure:"log_queries"` // 输出全部 SQL(默认只记慢查询与错误)
}

// RedisConfig Redis 配置(嵌入向量缓存 + 任务队列)
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// OpenAIConfig OpenAI Embedding 配置
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	EmbeddingModel string `mapstructure:"embedding_model"` // 默认 text-embedding-3-large
	Dimension      int    `mapstructure:"dimension"`       // 必须与模型输出一致
	BatchSize      int    `mapstructure:"batch_size"`      // 单次请求最多文本数
	MaxRetries     int    `mapstructure:"max_retries"`
}

// RetrievalConfig 检索配置
// InternalThreshold 是检索服务内部的宽松默认值, APIThreshold 是对外搜索接口
// 使用的严格默认值。两者有意分开配置, 不做统一。
type RetrievalConfig struct {
	TopK              int     `mapstructure:"top_k"`
	InternalThreshold float64 `mapstructure:"internal_threshold"`
	APIThreshold      float64 `mapstructure:"api_threshold"`
	AnalyticsLimit    int     `mapstructure:"analytics_limit"` // 查询日志列表上限
}

// PromptConfig Prompt 组装配置
type PromptConfig struct {
	MaxTokens int `mapstructure:"max_tokens"` // 下游模型 Token 预算上限
}

// ChunkerConfig 文档分块配置
type ChunkerConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`    // 字符数
	ChunkOverlap int `mapstructure:"chunk_overlap"` // 相邻分块重叠字符数
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称(dev, prod, test)
// configPath: 配置文件路径(可选)
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 环境变量优先级高于配置文件
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置: APP_DATABASE_HOST

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults()

	globalConfig = &cfg
	return &cfg, nil
}

// applyDefaults 填充未配置项的默认值
func (c *Config) applyDefaults() {
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-large"
	}
	if c.OpenAI.Dimension <= 0 {
		c.OpenAI.Dimension = 3072
	}
	if c.OpenAI.BatchSize <= 0 {
		c.OpenAI.BatchSize = 100
	}
	if c.OpenAI.MaxRetries <= 0 {
		c.OpenAI.MaxRetries = 3
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.InternalThreshold <= 0 {
		c.Retrieval.InternalThreshold = 0.1
	}
	if c.Retrieval.APIThreshold <= 0 {
		c.Retrieval.APIThreshold = 0.5
	}
	if c.Retrieval.AnalyticsLimit <= 0 {
		c.Retrieval.AnalyticsLimit = 100
	}
	if c.Prompt.MaxTokens <= 0 {
		c.Prompt.MaxTokens = 128000
	}
	if c.Chunker.ChunkSize <= 0 {
		c.Chunker.ChunkSize = 500
	}
	if c.Chunker.ChunkOverlap < 0 {
		c.Chunker.ChunkOverlap = 50
	}
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr 获取 Redis 地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
