package hooks

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/harunnryd/halo/pkg/configutil"
	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/turn"
)

// Provider names registered by NewRegistry.
const (
	ProviderNoop    = "noop"
	ProviderLog     = "log"
	ProviderConsole = "console"
)

// Deps carries the runtime collaborators a provider may use.
type Deps struct {
	Logger *slog.Logger
	Out    io.Writer
}

// Factory builds hooks from a provider settings map.
type Factory func(settings map[string]any, deps Deps) (turn.Hooks, error)

// Registry maps provider names to hook factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(ProviderNoop, buildNoop)
	r.Register(ProviderLog, buildLogging)
	r.Register(ProviderConsole, buildConsole)
	return r
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[normalizeProvider(name)] = factory
}

// Providers lists registered provider names in order.
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build constructs the hooks for provider. An empty provider selects noop.
// A comma separated list such as "log,console" combines providers with
// NewMulti; settings are then keyed by provider name.
func (r *Registry) Build(provider string, settings map[string]any, deps Deps) (turn.Hooks, error) {
	if !strings.Contains(provider, ",") {
		return r.build(provider, settings, deps)
	}
	var names []string
	for _, part := range strings.Split(provider, ",") {
		if name := normalizeProvider(part); name != "" {
			names = append(names, name)
		}
	}
	if err := configutil.ValidateSettings(settings, configutil.Schema{Optional: names}); err != nil {
		return nil, err
	}
	parts := make(Multi, 0, len(names))
	for _, name := range names {
		sub, err := providerSettings(settings, name)
		if err != nil {
			return nil, err
		}
		h, err := r.build(name, sub, deps)
		if err != nil {
			return nil, err
		}
		parts = append(parts, h)
	}
	return NewMulti(parts...), nil
}

func providerSettings(settings map[string]any, name string) (map[string]any, error) {
	for k, v := range settings {
		if normalizeProvider(k) != name {
			continue
		}
		if v == nil {
			return nil, nil
		}
		sub, ok := v.(map[string]any)
		if !ok {
			return nil, errorsx.Errorf(errorsx.ReasonConfigInvalid, "hooks settings for %s must be a map", name)
		}
		return sub, nil
	}
	return nil, nil
}

func (r *Registry) build(provider string, settings map[string]any, deps Deps) (turn.Hooks, error) {
	name := normalizeProvider(provider)
	if name == "" {
		name = ProviderNoop
	}
	fn := r.factories[name]
	if fn == nil {
		return nil, errorsx.Errorf(errorsx.ReasonConfigInvalid, "hooks provider not registered: %s", provider)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	h, err := fn(settings, deps)
	if err != nil {
		return nil, errorsx.Errorf(errorsx.ReasonConfigInvalid, "hooks provider %s: %w", name, err)
	}
	return h, nil
}

func buildNoop(settings map[string]any, _ Deps) (turn.Hooks, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{}); err != nil {
		return nil, err
	}
	return turn.NoopHooks{}, nil
}

type logSettings struct {
	Level        string `mapstructure:"level"`
	PreviewChars int    `mapstructure:"preview_chars"`
}

var logSchema = configutil.Schema{Optional: []string{"level", "preview_chars"}}

func buildLogging(settings map[string]any, deps Deps) (turn.Hooks, error) {
	s := logSettings{Level: "info"}
	if err := configutil.Load(settings, logSchema, &s); err != nil {
		return nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Level)); err != nil {
		return nil, err
	}
	return NewLogging(deps.Logger.With(slog.String("component", "hooks")), level, s.PreviewChars), nil
}

type consoleSettings struct {
	PreviewChars int `mapstructure:"preview_chars"`
}

var consoleSchema = configutil.Schema{Optional: []string{"preview_chars"}}

func buildConsole(settings map[string]any, deps Deps) (turn.Hooks, error) {
	var s consoleSettings
	if err := configutil.Load(settings, consoleSchema, &s); err != nil {
		return nil, err
	}
	return NewConsole(deps.Out, s.PreviewChars), nil
}
