// Package command wires the vp-cache CLI: cache maintenance commands
// (clear, flush, stat), the HTTP server and config diagnostics.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/config"
	"github.com/vupar/vp-cache/internal/logging"
	"github.com/vupar/vp-cache/internal/namespace"
	"github.com/vupar/vp-cache/internal/version"
)

const (
	// ConfigEnv 可覆盖默认配置路径，优先级低于 --config。
	ConfigEnv         = "VP_CACHE_CONFIG"
	defaultConfigPath = "config.toml"
)

// ExitError 携带退出码，main 据此调用 os.Exit。
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func exitf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode 将命令返回的错误转换为进程退出码。
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 2
}

// New 构建根命令。out/errOut 为命令输出目标，测试中可替换为缓冲区。
func New(out, errOut io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "vp-cache",
		Usage:     "File-backed fragment cache for template parts, menus and asset manifests",
		Version:   version.Full(),
		Writer:    out,
		ErrWriter: errOut,
		// 错误统一交给 main 处理，避免 cli 直接 os.Exit
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars(ConfigEnv),
			},
		},
		Commands: []*cli.Command{
			clearCommand(),
			flushCommand(),
			statCommand(),
			serveCommand(),
			checkConfigCommand(),
			versionCommand(),
		},
	}
}

// Run 执行 CLI 并返回退出码。
func Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	err := New(out, errOut).Run(ctx, args)
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
	}
	return ExitCode(err)
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, exitf(1, "加载配置失败: %w", err)
	}
	return cfg, nil
}

// CacheRoot 返回生效的缓存根目录：显式配置优先，否则由 SiteURL 推导。
func CacheRoot(cfg *config.Config) string {
	if cfg.Global.CacheRoot != "" {
		return cfg.Global.CacheRoot
	}
	return cache.RootFor(cfg.Global.SiteURL)
}

// openStore 为一次性维护命令打开缓存，I/O 警告写到 stderr。
func openStore(cmd *cli.Command) (*cache.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := cache.NewStore(CacheRoot(cfg), cache.WithLogger(logging.Console(cmd.Root().ErrWriter)))
	if err != nil {
		return nil, exitf(1, "初始化缓存目录失败: %w", err)
	}
	return store, nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "显示版本信息",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Fprintln(cmd.Root().Writer, version.Full())
			return nil
		},
	}
}

func checkConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-config",
		Usage: "仅校验配置后退出",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := logging.InitLogger(cfg.Global)
			if err != nil {
				return exitf(1, "初始化日志失败: %w", err)
			}
			fields := logging.BaseFields("check_config", cmd.String("config"))
			fields["assets"] = config.AssetNames(cfg.Assets)
			fields["namespaces"] = namespace.Keys()
			fields["cache_root"] = CacheRoot(cfg)
			fields["environment"] = cfg.Global.Environment
			fields["result"] = "ok"
			logger.WithFields(fields).Info("配置校验通过")
			return nil
		},
	}
}
