package rules

import (
	"context"
	"fmt"
	"os"

	extism "github.com/extism/go-sdk"
)

// pluginMatcher resolves a `func:` rule reference against a WASM module
// instead of the static FunctionRegistry — a dynamic extension point the
// caller must explicitly enable, never the default path. A rule opts in by
// writing `rule: plugin:/path/to/module.wasm:export_name`.
//
// Each matched WASM export is called with the candidate value as its input
// bytes and must return a single byte: 0x01 for match, 0x00 for no match.
type pluginMatcher struct {
	plugin *extism.Plugin
	export string
}

func (m *pluginMatcher) Match(s string) bool {
	_, out, err := m.plugin.Call(m.export, []byte(s))
	if err != nil {
		return false
	}
	return len(out) > 0 && out[0] == 0x01
}

func (m *pluginMatcher) Kind() MatchKind {
	return MatchFunc
}

// PluginLoader resolves plugin: references into compiled Matchers, caching
// one extism.Plugin instance per WASM file. Compiling a plugin loads and
// instantiates the module, so the cache avoids re-reading the file for
// every rule that shares it.
type PluginLoader struct {
	allowed bool
	cache   map[string]*extism.Plugin
}

// NewPluginLoader returns a loader. When allowed is false (the default —
// see EngineConfig.AllowPluginFunctions), Resolve always fails, so a rule
// file referencing a plugin without the caller's explicit opt-in aborts
// that rule's compilation rather than silently loading untrusted code.
func NewPluginLoader(allowed bool) *PluginLoader {
	return &PluginLoader{allowed: allowed, cache: make(map[string]*extism.Plugin)}
}

// Resolve loads (or reuses) the WASM module at path and returns a Matcher
// bound to the named export.
func (l *PluginLoader) Resolve(ctx context.Context, path, export string) (Matcher, error) {
	if !l.allowed {
		return nil, fmt.Errorf("dynamic plugin functions are disabled (AllowPluginFunctions=false): %s", path)
	}
	p, ok := l.cache[path]
	if !ok {
		wasmBytes, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read plugin %s: %w", path, err)
		}
		manifest := extism.Manifest{Wasm: []extism.Wasm{extism.WasmData{Data: wasmBytes}}}
		created, err := extism.NewPlugin(ctx, manifest, extism.PluginConfig{EnableWasi: true}, nil)
		if err != nil {
			return nil, fmt.Errorf("load plugin %s: %w", path, err)
		}
		p = created
		l.cache[path] = p
	}
	if !p.FunctionExists(export) {
		return nil, fmt.Errorf("plugin %s has no export %q", path, export)
	}
	return &pluginMatcher{plugin: p, export: export}, nil
}

// Close releases every loaded plugin's resources.
func (l *PluginLoader) Close() {
	for _, p := range l.cache {
		_ = p.Close(context.Background())
	}
	l.cache = make(map[string]*extism.Plugin)
}
