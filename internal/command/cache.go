package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/namespace"
)

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:      "clear",
		Usage:     "Clear currently typed cached entries",
		ArgsUsage: "[type]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			typ := cache.NormalizeNamespace(cmd.Args().First())
			stat := store.Stat()

			count := stat.Typed
			if typ != "" {
				count = stat.Namespaces[typ]
			}
			if count > 0 && !store.Clear(typ) {
				return exitf(1, "清理缓存失败: %s", store.Path(typ))
			}
			fmt.Fprintln(cmd.Root().Writer, "Success: "+namespace.ClearMessage(typ, count))
			return nil
		},
	}
}

func flushCommand() *cli.Command {
	return &cli.Command{
		Name:  "flush",
		Usage: "Clear all currently cached entries (typed and root)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			total := store.Stat().Total
			if total > 0 && !store.Flush() {
				return exitf(1, "清空缓存失败: %s", store.Root())
			}
			fmt.Fprintln(cmd.Root().Writer, "Success: "+namespace.FlushMessage(total))
			return nil
		},
	}
}

func statCommand() *cli.Command {
	return &cli.Command{
		Name:      "stat",
		Usage:     "Show statistics about cached entries",
		ArgsUsage: "[table|json|csv|yaml|ids|count]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			format := ParseFormat(cmd.Args().First())
			if err := WriteStat(cmd.Root().Writer, store.Stat(), format); err != nil {
				return exitf(1, "输出统计失败: %w", err)
			}
			return nil
		},
	}
}
