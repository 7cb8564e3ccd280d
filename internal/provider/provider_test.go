package provider

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilepull/internal/slippy"
)

func TestResolvePreset(t *testing.T) {
	src, err := Resolve("dark_all")
	require.NoError(t, err)
	assert.Equal(t, Presets["dark_all"], src.Template())
}

func TestResolveRawTemplate(t *testing.T) {
	src, err := Resolve("https://tile.example.com/{z}/{x}/{y}.png")
	require.NoError(t, err)
	assert.Equal(t, "https://tile.example.com/{z}/{x}/{y}.png", src.Template())
}

func TestResolveMissingPlaceholder(t *testing.T) {
	cases := []string{
		"https://tile.example.com/{x}/{y}.png",
		"https://tile.example.com/{z}/{y}.png",
		"https://tile.example.com/{z}/{x}.png",
		"not-a-template-at-all",
	}
	for _, template := range cases {
		_, err := Resolve(template)
		assert.Error(t, err, template)
	}
}

func TestTileURLSubstitution(t *testing.T) {
	src, err := Resolve("https://tile.example.com/{z}/{x}/{y}.png")
	require.NoError(t, err)

	url := src.TileURL(slippy.Tile{Z: 7, X: 41, Y: 55})
	assert.Equal(t, "https://tile.example.com/7/41/55.png", url)
}

func TestTileURLSubdomainRotation(t *testing.T) {
	src, err := Resolve("https://{s}.tile.example.com/{z}/{x}/{y}.png")
	require.NoError(t, err)

	tile := slippy.Tile{Z: 1, X: 0, Y: 0}
	var got []string
	for i := 0; i < len(Subdomains)*2; i++ {
		got = append(got, src.TileURL(tile))
	}

	// Two full cycles through the pool, in order.
	for i, url := range got {
		want := fmt.Sprintf("https://%s.tile.example.com/1/0/0.png", Subdomains[i%len(Subdomains)])
		assert.Equal(t, want, url)
	}
}

func TestTileURLRetina(t *testing.T) {
	src, err := Resolve("dark_all")
	require.NoError(t, err)

	tile := slippy.Tile{Z: 2, X: 1, Y: 3}
	assert.NotContains(t, src.TileURL(tile), "@2x")
	assert.NotContains(t, src.TileURL(tile), "{r}")

	src.SetRetina(true)
	assert.Contains(t, src.TileURL(tile), "2/1/3@2x.png")
}

func TestExt(t *testing.T) {
	cases := []struct {
		template string
		want     string
	}{
		{"https://tile.example.com/{z}/{x}/{y}.png", "png"},
		{"https://tile.example.com/{z}/{x}/{y}.jpg", "jpg"},
		{"https://tile.example.com/{z}/{x}/{y}.webp?key=abc", "webp"},
		{"https://tile.example.com/{z}/{x}/{y}", "png"},
	}
	for _, tc := range cases {
		src, err := Resolve(tc.template)
		require.NoError(t, err)
		assert.Equal(t, tc.want, src.Ext(), tc.template)
	}
}

func TestPresetNamesSorted(t *testing.T) {
	names := PresetNames()
	assert.Len(t, names, len(Presets))
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "dark_all")
	assert.Contains(t, names, "voyager")
}
