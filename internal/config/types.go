package config

import (
	"fmt"
	"strings"
)

// Environment 对应站点运行环境，只有 local 会开启缓存调试注释。
type Environment string

const (
	EnvLocal       Environment = "local"
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

var supportedEnvironments = map[Environment]struct{}{
	EnvLocal:       {},
	EnvDevelopment: {},
	EnvStaging:     {},
	EnvProduction:  {},
}

// IsLocal 表示当前是否为本地开发实例。
func (e Environment) IsLocal() bool {
	return e == EnvLocal
}

// ParseEnvironment 归一化大小写与空白，空值回退为 production。
func ParseEnvironment(raw string) (Environment, error) {
	normalized := Environment(strings.ToLower(strings.TrimSpace(raw)))
	if normalized == "" {
		return EnvProduction, nil
	}
	if _, ok := supportedEnvironments[normalized]; !ok {
		return "", fmt.Errorf("不支持的运行环境: %s", raw)
	}
	return normalized, nil
}

// GlobalConfig 描述全局运行时行为。
type GlobalConfig struct {
	ListenPort    int         `mapstructure:"ListenPort"`
	LogLevel      string      `mapstructure:"LogLevel"`
	LogFilePath   string      `mapstructure:"LogFilePath"`
	LogMaxSize    int         `mapstructure:"LogMaxSize"`
	LogMaxBackups int         `mapstructure:"LogMaxBackups"`
	LogCompress   bool        `mapstructure:"LogCompress"`
	SiteURL       string      `mapstructure:"SiteURL"`
	CacheRoot     string      `mapstructure:"CacheRoot"`
	CacheEnabled  bool        `mapstructure:"CacheEnabled"`
	Environment   Environment `mapstructure:"Environment"`
	Locale        string      `mapstructure:"Locale"`
	TemplateDir   string      `mapstructure:"TemplateDir"`
	AdminSecret   string      `mapstructure:"AdminSecret"`
}

// AssetConfig 描述一类静态资源（styles/scripts/blocks）的扫描方式。
type AssetConfig struct {
	Name        string `mapstructure:"Name"`
	Dir         string `mapstructure:"Dir"`
	URL         string `mapstructure:"URL"`
	Pattern     string `mapstructure:"Pattern"`
	IDPrefix    string `mapstructure:"IDPrefix"`
	Directories bool   `mapstructure:"Directories"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig  `mapstructure:",squash"`
	Assets []AssetConfig `mapstructure:"Asset"`
}

// AdminProtected 表示管理端接口是否需要 JWT 鉴权。
func (g GlobalConfig) AdminProtected() bool {
	return g.AdminSecret != ""
}

// AssetNames 返回已配置的资源类别名称，供日志字段使用。
func AssetNames(assets []AssetConfig) []string {
	if len(assets) == 0 {
		return nil
	}
	result := make([]string, len(assets))
	for i, asset := range assets {
		result[i] = asset.Name
	}
	return result
}
