package dashboard

import (
	"fmt"
	"sort"
	"sync"
)

// WidgetDefinition describes a chart type: its label and the JSON schema its
// Configuration must satisfy.
type WidgetDefinition struct {
	Code        string         `json:"code" yaml:"code"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string         `json:"category,omitempty" yaml:"category,omitempty"`
	Schema      map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// WidgetHook lets packages register chart types/providers during init().
type WidgetHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []WidgetHook
)

// RegisterWidgetHook registers a hook executed against new registries.
func RegisterWidgetHook(h WidgetHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry implements ProviderRegistry with hook support. New registries
// know every built-in chart type.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]WidgetDefinition
	providers   map[string]Provider
}

var _ ProviderRegistry = (*Registry)(nil)

// NewRegistry builds a registry with the built-in chart types and applies global hooks.
func NewRegistry() *Registry {
	reg := &Registry{
		definitions: map[string]WidgetDefinition{},
		providers:   map[string]Provider{},
	}
	reg.registerDefaults()
	_ = reg.ApplyHooks()
	return reg
}

func (r *Registry) registerDefaults() {
	providers := defaultProviders()
	for _, def := range DefaultWidgetDefinitions() {
		_ = r.RegisterDefinition(def)
		if provider, ok := providers[ChartType(def.Code)]; ok {
			_ = r.RegisterProvider(def.Code, provider)
		}
	}
}

// ApplyHooks executes registered widget hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDefinition stores chart type metadata.
func (r *Registry) RegisterDefinition(def WidgetDefinition) error {
	if def.Code == "" {
		return fmt.Errorf("widget definition code is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.Code] = def
	return nil
}

// RegisterProvider associates a provider implementation with a definition.
func (r *Registry) RegisterProvider(code string, provider Provider) error {
	if code == "" {
		return fmt.Errorf("widget definition code is required to register provider")
	}
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.definitions[code]; !ok {
		return fmt.Errorf("widget definition %s not found", code)
	}
	r.providers[code] = provider
	return nil
}

// Definition fetches a widget definition by code.
func (r *Registry) Definition(code string) (WidgetDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[code]
	return def, ok
}

// Provider fetches a widget provider by code.
func (r *Registry) Provider(code string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[code]
	return provider, ok
}

// Definitions returns all registered definitions, built-in chart types first
// in display order, then the rest by code.
func (r *Registry) Definitions() []WidgetDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]WidgetDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	rank := func(code string) int {
		for i, t := range ChartTypes() {
			if string(t) == code {
				return i
			}
		}
		return len(ChartTypes())
	}
	sort.Slice(defs, func(i, j int) bool {
		ri, rj := rank(defs[i].Code), rank(defs[j].Code)
		if ri != rj {
			return ri < rj
		}
		return defs[i].Code < defs[j].Code
	})
	return defs
}
