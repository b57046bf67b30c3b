package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggingFallbackToStdout(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.Chmod(blocked, 0o000); err != nil {
		t.Fatalf("设置目录权限失败: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(blocked, 0o755) })

	logPath := filepath.Join(blocked, "sub", "vp-cache.log")
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "info"
LogFilePath = "%s"
CacheRoot = "%s"
ListenPort = 5000
`, logPath, filepath.Join(dir, "cache")))

	out, _ := useBufferWriters(t)
	code := run([]string{"vp-cache", "--config", configPath, "check-config"})
	if code != 0 {
		t.Fatalf("日志 fallback 不应导致失败，得到 %d", code)
	}
	t.Log(out.String())
}

func TestMaintenanceCommandsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "cache")
	if err := os.MkdirAll(filepath.Join(root, "part"), 0o755); err != nil {
		t.Fatalf("创建缓存目录失败: %v", err)
	}
	for _, name := range []string{filepath.Join(root, "part", "k1"), filepath.Join(root, "abc")} {
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("写入缓存条目失败: %v", err)
		}
	}
	configPath := writeConfigFile(t, fmt.Sprintf(`CacheRoot = "%s"`, root))

	out, errOut := useBufferWriters(t)
	if code := run([]string{"vp-cache", "--config", configPath, "stat", "count"}); code != 0 {
		t.Fatalf("stat 失败: %s", errOut.String())
	}
	if got := strings.TrimSpace(out.String()); got != "4" {
		t.Fatalf("stat count 应为 4 行，得到 %s", got)
	}

	out.Reset()
	if code := run([]string{"vp-cache", "--config", configPath, "clear"}); code != 0 {
		t.Fatalf("clear 失败: %s", errOut.String())
	}
	if !strings.Contains(out.String(), "1 typed cache entries cleared.") {
		t.Fatalf("unexpected clear output: %s", out.String())
	}
	if _, err := os.Stat(filepath.Join(root, "abc")); err != nil {
		t.Fatalf("根条目应在 clear 后保留: %v", err)
	}
}
