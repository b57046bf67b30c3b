package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别")
	}
	if g.SiteURL == "" && strings.TrimSpace(g.CacheRoot) == "" {
		return newFieldError("Global.SiteURL", "SiteURL 与 CacheRoot 至少提供一个")
	}
	if g.SiteURL != "" {
		if err := validateSiteURL(g.SiteURL); err != nil {
			return fmt.Errorf("Global.SiteURL: %w", err)
		}
	}
	if _, err := ParseEnvironment(string(g.Environment)); err != nil {
		return newFieldError("Global.Environment", "仅支持 local/development/staging/production")
	}
	if strings.TrimSpace(g.TemplateDir) == "" {
		return newFieldError("Global.TemplateDir", "不能为空")
	}

	seen := map[string]struct{}{}
	for i := range c.Assets {
		asset := &c.Assets[i]
		if asset.Name == "" {
			return newFieldError("Asset[].Name", "不能为空")
		}
		if strings.ContainsAny(asset.Name, `/\ `) {
			return newFieldError(assetField(asset.Name, "Name"), "不能包含路径分隔符或空格")
		}
		if _, exists := seen[asset.Name]; exists {
			return newFieldError(assetField(asset.Name, "Name"), "重复")
		}
		seen[asset.Name] = struct{}{}

		if strings.TrimSpace(asset.Dir) == "" {
			return newFieldError(assetField(asset.Name, "Dir"), "不能为空")
		}
		if asset.Pattern != "" {
			if _, err := glob.Compile(asset.Pattern, '/'); err != nil {
				return newFieldError(assetField(asset.Name, "Pattern"), fmt.Sprintf("无效的匹配模式: %v", err))
			}
		}
	}

	return nil
}

func validateSiteURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}
