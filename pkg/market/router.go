package market

import "fmt"

// Router resolves the provider serving each operation of an asset class.
type Router struct {
	providers map[string]Provider
	routes    map[AssetClass]Route
	fallback  string
}

// NewRouter binds configured routes to built providers. Classes without a
// route fall back to cfg.Default when set.
func NewRouter(cfg *Config, providers map[string]Provider) (*Router, error) {
	r := &Router{
		providers: providers,
		routes:    make(map[AssetClass]Route, len(cfg.Routes)),
		fallback:  cfg.Default,
	}
	for class, route := range cfg.Routes {
		if route == nil {
			continue
		}
		for _, ref := range []string{route.Quote, route.History, route.Assets} {
			if ref == "" {
				continue
			}
			if _, ok := providers[ref]; !ok {
				return nil, fmt.Errorf("market router: %s references unknown provider %q", class, ref)
			}
		}
		r.routes[class] = *route
	}
	if r.fallback != "" {
		if _, ok := providers[r.fallback]; !ok {
			return nil, fmt.Errorf("market router: default provider %q not built", r.fallback)
		}
	}
	return r, nil
}

// Quote returns the provider serving quotes for class.
func (r *Router) Quote(class AssetClass) (string, Provider, error) {
	return r.pick(class, "quote", func(rt Route) string { return rt.Quote })
}

// History returns the provider serving historical series for class.
func (r *Router) History(class AssetClass) (string, Provider, error) {
	return r.pick(class, "history", func(rt Route) string { return rt.History })
}

// Assets returns the provider serving asset listings for class.
func (r *Router) Assets(class AssetClass) (string, Provider, error) {
	return r.pick(class, "assets", func(rt Route) string { return rt.Assets })
}

func (r *Router) pick(class AssetClass, op string, field func(Route) string) (string, Provider, error) {
	name := ""
	if rt, ok := r.routes[class]; ok {
		name = field(rt)
	}
	if name == "" {
		name = r.fallback
	}
	if name == "" {
		return "", nil, NewFetchError(KindUnsupported, "", "", fmt.Errorf("no %s provider routed for %s", op, class))
	}
	p, ok := r.providers[name]
	if !ok {
		return "", nil, NewFetchError(KindUnsupported, name, "", fmt.Errorf("provider %q not built", name))
	}
	return name, p, nil
}
