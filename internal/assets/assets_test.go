package assets

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/vupar/vp-cache/internal/cache"
	"github.com/vupar/vp-cache/internal/config"
)

func TestBuildScripts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "autoload.js", "import './a'")
	writeFile(t, dir, "widgets/slider.js", "slider")
	writeFile(t, dir, "widgets/readme.md", "skip me")
	writeFile(t, dir, "menu.js", "menu")

	items, err := Build(context.Background(), Class{
		Name: "scripts", Dir: dir, URL: "/assets/js", Pattern: "**.js", IDPrefix: "@vp/",
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "@vp/widgets/slider", items[0].ID)
	assert.Equal(t, "/assets/js/widgets/slider.js", items[0].URL)
	assert.Equal(t, contentHash("slider"), items[0].Hash)

	assert.Equal(t, "@vp/autoload", items[1].ID)
	assert.Equal(t, []string{"@vp/widgets/slider", "@vp/menu"}, items[1].Deps)
	assert.Equal(t, "@vp/menu", items[2].ID)
	assert.Empty(t, items[2].Deps)
}

func TestBuildHashTracksContentNotMtime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "site.css", "body{}")
	class := Class{Name: "styles", Dir: dir, URL: "/css", Pattern: "**.css", IDPrefix: "vp-"}

	first, err := Build(context.Background(), class)
	require.NoError(t, err)

	// 重写相同内容不改变哈希
	writeFile(t, dir, "site.css", "body{}")
	second, err := Build(context.Background(), class)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	writeFile(t, dir, "site.css", "body{color:red}")
	third, err := Build(context.Background(), class)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].Hash, third[0].Hash)
	assert.Equal(t, "vp-site", third[0].ID)
}

func TestBuildBlocks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hero/block.json", `{"name":"vp/hero"}`)
	writeFile(t, dir, "card/index.js", "card")
	writeFile(t, dir, "notes.txt", "not a block")

	items, err := Build(context.Background(), Class{Name: "blocks", Dir: dir, URL: "/blocks", Dirs: true})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, Item{ID: "card", URL: "/blocks/card"}, items[0])
	assert.Equal(t, "hero", items[1].ID)
	assert.Equal(t, contentHash(`{"name":"vp/hero"}`), items[1].Hash)
}

func TestBuildMissingDirectory(t *testing.T) {
	items, err := Build(context.Background(), Class{Name: "styles", Dir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestBuildRejectsBadPattern(t *testing.T) {
	_, err := Build(context.Background(), Class{Name: "styles", Dir: t.TempDir(), Pattern: "[oops"})
	assert.Error(t, err)
}

func TestRegistryCachesManifestAsRootEntry(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	dir := t.TempDir()
	writeFile(t, dir, "a.js", "a")
	class := Class{Name: "scripts", Dir: dir, URL: "/js", Pattern: "**.js"}

	reg := NewRegistry(store, true, nil)
	items, err := reg.Manifest(context.Background(), class)
	require.NoError(t, err)
	require.Len(t, items, 1)

	stat := store.Stat()
	assert.Equal(t, 1, stat.Root)
	_, err = os.Stat(filepath.Join(store.Root(), "scripts.manifest"))
	require.NoError(t, err)

	// 缓存命中后不再扫描目录
	writeFile(t, dir, "b.js", "b")
	again, err := reg.Manifest(context.Background(), class)
	require.NoError(t, err)
	assert.Equal(t, items, again)

	// 内容失效不影响根条目
	require.True(t, store.Clear(""))
	again, err = reg.Manifest(context.Background(), class)
	require.NoError(t, err)
	assert.Len(t, again, 1)

	require.True(t, reg.Forget(class))
	again, err = reg.Manifest(context.Background(), class)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

func TestRegistryDisabledRemovesEntry(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	dir := t.TempDir()
	writeFile(t, dir, "a.css", "a")
	class := Class{Name: "styles", Dir: dir, URL: "/css", Pattern: "**.css"}

	_, err = NewRegistry(store, true, nil).Manifest(context.Background(), class)
	require.NoError(t, err)
	require.Equal(t, 1, store.Stat().Root)

	items, err := NewRegistry(store, false, nil).Manifest(context.Background(), class)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Zero(t, store.Stat().Root)
}

func TestClassesFromConfig(t *testing.T) {
	classes := Classes(config.DefaultAssets())
	require.Len(t, classes, 3)
	assert.Equal(t, "styles.manifest", classes[0].Key())
	assert.Equal(t, "@vp/", classes[1].IDPrefix)
	assert.True(t, classes[2].Dirs)
}

func contentHash(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:hashLen]
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}
