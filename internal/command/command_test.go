package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/config"
	"github.com/vupar/vp-cache/internal/logging"
)

type fixture struct {
	configPath string
	store      *cache.Store
	out        *bytes.Buffer
	errOut     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "cache")
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(filepath.Join(templates, "part"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "part", "hello.html"), []byte("<p>hello {{.Args.who}}</p>"), 0o644))

	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`
SiteURL = "https://example.com"
CacheRoot = %q
TemplateDir = %q
`, root, templates)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := cache.NewStore(root)
	require.NoError(t, err)
	return &fixture{configPath: path, store: store, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
}

func (f *fixture) run(args ...string) int {
	f.out.Reset()
	f.errOut.Reset()
	full := append([]string{"vp-cache", "--config", f.configPath}, args...)
	return Run(context.Background(), full, f.out, f.errOut)
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	require.True(t, f.store.Set("", "styles.manifest", []byte("r")))
	require.True(t, f.store.Set("part", "a", []byte("1")))
	require.True(t, f.store.Set("part", "b", []byte("2")))
	require.True(t, f.store.Set("menu", "m", []byte("3")))
}

func TestClearCommand(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	require.Equal(t, 0, f.run("clear", "menu"))
	assert.Equal(t, "Success: 1 menu cache entries cleared.\n", f.out.String())

	require.Equal(t, 0, f.run("clear", "menu"))
	assert.Equal(t, "Success: No menu entries found, vp-cache is already empty.\n", f.out.String())

	require.Equal(t, 0, f.run("clear"))
	assert.Equal(t, "Success: 2 typed cache entries cleared.\n", f.out.String())
	assert.Equal(t, 1, f.store.Stat().Root)

	require.Equal(t, 0, f.run("clear"))
	assert.Equal(t, "Success: No typed entries found, vp-cache is already empty.\n", f.out.String())
}

func TestClearCommandNormalizesType(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	require.Equal(t, 0, f.run("clear", " /part/ "))
	assert.Equal(t, "Success: 2 part cache entries cleared.\n", f.out.String())
	assert.Equal(t, 0, f.store.Stat().Namespaces["part"])
	assert.Equal(t, 1, f.store.Stat().Namespaces["menu"])
}

func TestFlushCommand(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	require.Equal(t, 0, f.run("flush"))
	assert.Equal(t, "Success: 4 cache entries cleared.\n", f.out.String())
	assert.Zero(t, f.store.Stat().Total)

	require.Equal(t, 0, f.run("flush"))
	assert.Equal(t, "Success: No entries found, vp-cache is already empty.\n", f.out.String())
}

func TestStatFormats(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	require.Equal(t, 0, f.run("stat", "json"))
	var rows []StatRow
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &rows))
	assert.Equal(t, []StatRow{
		{Name: "menu", Count: 1, Description: "Number of menu typed cache entries"},
		{Name: "part", Count: 2, Description: "Number of part typed cache entries"},
		{Name: "typed", Count: 3, Description: "Sum of all typed cache entries (part, menu,...)"},
		{Name: "root", Count: 1, Description: "Number of root cache entries, without type"},
		{Name: "total", Count: 4, Description: "Sum of all typed and root cache entries"},
	}, rows)

	require.Equal(t, 0, f.run("stat", "yaml"))
	var yamlRows []StatRow
	require.NoError(t, yaml.Unmarshal(f.out.Bytes(), &yamlRows))
	assert.Equal(t, rows, yamlRows)

	require.Equal(t, 0, f.run("stat", "ids"))
	assert.Equal(t, "menu part typed root total\n", f.out.String())

	require.Equal(t, 0, f.run("stat", "count"))
	assert.Equal(t, "5\n", f.out.String())

	require.Equal(t, 0, f.run("stat", "csv"))
	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	assert.Equal(t, "name,count,description", lines[0])
	assert.Equal(t, `typed,3,"Sum of all typed cache entries (part, menu,...)"`, lines[3])

	require.Equal(t, 0, f.run("stat", "bogus"))
	assert.Contains(t, f.out.String(), "Number of part typed cache entries")
	assert.Contains(t, f.out.String(), "Size on disk:")
}

func TestStatEmptyCache(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 0, f.run("stat", "ids"))
	assert.Equal(t, "typed root total\n", f.out.String())
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat(" JSON "))
	assert.Equal(t, FormatTable, ParseFormat(""))
	assert.Equal(t, FormatTable, ParseFormat("xml"))
}

func TestConfigErrorsExitOne(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	code := Run(context.Background(), []string{"vp-cache", "--config", filepath.Join(t.TempDir(), "nope.toml"), "stat"}, out, errOut)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "加载配置失败")
}

func TestConfigFromEnv(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	t.Setenv(ConfigEnv, f.configPath)

	code := Run(context.Background(), []string{"vp-cache", "stat", "count"}, f.out, f.errOut)
	require.Equal(t, 0, code, f.errOut.String())
	assert.Equal(t, "5\n", f.out.String())
}

func TestVersionCommand(t *testing.T) {
	out := &bytes.Buffer{}
	require.Equal(t, 0, Run(context.Background(), []string{"vp-cache", "version"}, out, io.Discard))
	assert.True(t, strings.HasPrefix(out.String(), "vp-cache "))
}

func TestCacheRoot(t *testing.T) {
	cfg := &config.Config{Global: config.GlobalConfig{SiteURL: "https://a.example"}}
	assert.Equal(t, cache.RootFor("https://a.example"), CacheRoot(cfg))

	cfg.Global.CacheRoot = "/srv/cache"
	assert.Equal(t, "/srv/cache", CacheRoot(cfg))
}

func TestBuildAppServesParts(t *testing.T) {
	f := newFixture(t)
	cfg, err := config.Load(f.configPath)
	require.NoError(t, err)

	app, err := BuildApp(cfg, logging.Discard())
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/part/hello?who=world", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<p>hello world</p>", string(body))
	assert.Equal(t, "miss", resp.Header.Get("X-VP-Cache"))

	resp, err = app.Test(httptest.NewRequest("POST", "/-/events/post.saved", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Zero(t, f.store.Stat().Typed)
}
