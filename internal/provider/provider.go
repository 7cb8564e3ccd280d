package provider

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"tilepull/internal/slippy"
)

// Presets maps preset names to CartoDB basemap URL templates. Templates use
// {s} for the subdomain, {z}/{x}/{y} for the tile address and {r} for the
// retina suffix.
var Presets = map[string]string{
	"dark_all":            "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
	"light_all":           "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
	"dark_nolabels":       "https://{s}.basemaps.cartocdn.com/dark_nolabels/{z}/{x}/{y}{r}.png",
	"light_nolabels":      "https://{s}.basemaps.cartocdn.com/light_nolabels/{z}/{x}/{y}{r}.png",
	"dark_only_labels":    "https://{s}.basemaps.cartocdn.com/dark_only_labels/{z}/{x}/{y}{r}.png",
	"light_only_labels":   "https://{s}.basemaps.cartocdn.com/light_only_labels/{z}/{x}/{y}{r}.png",
	"voyager":             "https://{s}.basemaps.cartocdn.com/rastertiles/voyager/{z}/{x}/{y}{r}.png",
	"voyager_nolabels":    "https://{s}.basemaps.cartocdn.com/rastertiles/voyager_nolabels/{z}/{x}/{y}{r}.png",
	"voyager_only_labels": "https://{s}.basemaps.cartocdn.com/rastertiles/voyager_only_labels/{z}/{x}/{y}{r}.png",
}

// Subdomains is the tile-server subdomain pool used for {s} rotation.
var Subdomains = []string{"a", "b", "c", "d"}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source builds tile URLs from a template. Requests rotate round-robin over
// the subdomain pool so load spreads evenly across tile-server mirrors.
type Source struct {
	template   string
	subdomains []string
	retina     string
	next       atomic.Uint64
}

// Resolve turns a preset name or a full URL template into a Source.
// A template must carry {z}, {x} and {y} placeholders.
func Resolve(nameOrTemplate string) (*Source, error) {
	template, ok := Presets[nameOrTemplate]
	if !ok {
		template = nameOrTemplate
	}

	for _, placeholder := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(template, placeholder) {
			return nil, fmt.Errorf("tile URL template missing %s placeholder: %s", placeholder, template)
		}
	}

	return &Source{
		template:   template,
		subdomains: Subdomains,
	}, nil
}

// SetRetina switches {r} substitution to the @2x suffix used by retina
// tile variants. Without it {r} renders empty.
func (s *Source) SetRetina(enabled bool) {
	if enabled {
		s.retina = "@2x"
	} else {
		s.retina = ""
	}
}

// TileURL renders the URL for one tile, substituting all placeholders.
func (s *Source) TileURL(t slippy.Tile) string {
	url := s.template

	if strings.Contains(url, "{s}") {
		idx := s.next.Add(1) - 1
		sub := s.subdomains[idx%uint64(len(s.subdomains))]
		url = strings.Replace(url, "{s}", sub, 1)
	}

	url = strings.Replace(url, "{z}", strconv.Itoa(t.Z), 1)
	url = strings.Replace(url, "{x}", strconv.Itoa(t.X), 1)
	url = strings.Replace(url, "{y}", strconv.Itoa(t.Y), 1)
	url = strings.Replace(url, "{r}", s.retina, 1)
	return url
}

// Ext returns the tile file extension implied by the template path,
// defaulting to png when the template carries none.
func (s *Source) Ext() string {
	trimmed := s.template
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := strings.TrimPrefix(path.Ext(trimmed), ".")
	if ext == "" || strings.ContainsAny(ext, "{}") {
		return "png"
	}
	return ext
}

// Template returns the raw URL template.
func (s *Source) Template() string {
	return s.template
}
