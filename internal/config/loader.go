package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 允许通过 VP_CACHE_<KEY> 环境变量覆盖顶层配置，例如 VP_CACHE_CACHEENABLED=false。
const EnvPrefix = "VP_CACHE"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		environmentDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	if len(cfg.Assets) == 0 {
		cfg.Assets = DefaultAssets()
	}
	for i := range cfg.Assets {
		applyAssetDefaults(&cfg.Assets[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := absolutize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("SiteURL", "")
	v.SetDefault("CacheRoot", "")
	v.SetDefault("CacheEnabled", true)
	v.SetDefault("Environment", string(EnvProduction))
	v.SetDefault("Locale", "")
	v.SetDefault("TemplateDir", "./templates")
	v.SetDefault("AdminSecret", "")
}

// DefaultAssets 返回未配置 [[Asset]] 时使用的三类资源。
func DefaultAssets() []AssetConfig {
	return []AssetConfig{
		{Name: "styles", Dir: "./assets/css", URL: "/assets/css", Pattern: "**.css", IDPrefix: "vp-"},
		{Name: "scripts", Dir: "./assets/js", URL: "/assets/js", Pattern: "**.js", IDPrefix: "@vp/"},
		{Name: "blocks", Dir: "./blocks", URL: "/blocks", Directories: true},
	}
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.Environment == "" {
		g.Environment = EnvProduction
	}
	if strings.TrimSpace(g.TemplateDir) == "" {
		g.TemplateDir = "./templates"
	}
	g.SiteURL = strings.TrimRight(strings.TrimSpace(g.SiteURL), "/")
}

func applyAssetDefaults(a *AssetConfig) {
	a.Name = strings.ToLower(strings.TrimSpace(a.Name))
	a.URL = strings.TrimRight(strings.TrimSpace(a.URL), "/")
	if a.Pattern == "" && !a.Directories {
		a.Pattern = "**"
	}
}

func absolutize(cfg *Config) error {
	resolve := func(field string, target *string) error {
		if *target == "" {
			return nil
		}
		abs, err := filepath.Abs(*target)
		if err != nil {
			return fmt.Errorf("无法解析 %s: %w", field, err)
		}
		*target = abs
		return nil
	}

	if err := resolve("CacheRoot", &cfg.Global.CacheRoot); err != nil {
		return err
	}
	if err := resolve("TemplateDir", &cfg.Global.TemplateDir); err != nil {
		return err
	}
	for i := range cfg.Assets {
		if err := resolve(assetField(cfg.Assets[i].Name, "Dir"), &cfg.Assets[i].Dir); err != nil {
			return err
		}
	}
	return nil
}

func environmentDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Environment(""))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return ParseEnvironment(v)
		case Environment:
			return ParseEnvironment(string(v))
		default:
			return nil, fmt.Errorf("不支持的 Environment 类型: %T", v)
		}
	}
}
