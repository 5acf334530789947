package caddyfile

// Config is the desired-state snapshot: the parsed Caddyfile text plus the
// process settings (binary path, environment) that travel with it.
type Config struct {
	// Bin is the path to the managed executable. Empty for externally
	// managed processes.
	Bin string `json:"bin,omitempty"`

	// Global holds the content of the global options block, without the
	// surrounding braces.
	Global string `json:"global,omitempty"`

	// Fragments are reusable named blocks (snippets and named matchers),
	// in definition order. Names are unique.
	Fragments []Fragment `json:"fragments,omitempty"`

	// Sites are the per-site blocks, in definition order. Addresses are
	// unique and serve as the update key.
	Sites []Site `json:"sites,omitempty"`

	// Env holds environment pairs passed to a self-managed process,
	// in definition order.
	Env []EnvVar `json:"env,omitempty"`
}

// Fragment is a named reusable block such as a snippet.
type Fragment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Site is one site block keyed by its address line.
type Site struct {
	Address string `json:"address"`
	Content string `json:"content"`
}

// EnvVar is one environment pair.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Empty reports whether the config carries no configuration text. Bin and
// Env alone do not make a config non-empty; with no blocks there is nothing
// to push.
func (c *Config) Empty() bool {
	if c == nil {
		return true
	}
	return c.Global == "" && len(c.Fragments) == 0 && len(c.Sites) == 0
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{
		Bin:    c.Bin,
		Global: c.Global,
	}
	if len(c.Fragments) > 0 {
		out.Fragments = make([]Fragment, len(c.Fragments))
		copy(out.Fragments, c.Fragments)
	}
	if len(c.Sites) > 0 {
		out.Sites = make([]Site, len(c.Sites))
		copy(out.Sites, c.Sites)
	}
	if len(c.Env) > 0 {
		out.Env = make([]EnvVar, len(c.Env))
		copy(out.Env, c.Env)
	}
	return out
}

// FindSite returns the site block with the given address.
func (c *Config) FindSite(address string) (Site, bool) {
	for _, s := range c.Sites {
		if s.Address == address {
			return s, true
		}
	}
	return Site{}, false
}

// FindFragment returns the fragment with the given name.
func (c *Config) FindFragment(name string) (Fragment, bool) {
	for _, f := range c.Fragments {
		if f.Name == name {
			return f, true
		}
	}
	return Fragment{}, false
}

// Environ renders the environment pairs as KEY=VALUE strings for process
// spawning.
func (c *Config) Environ() []string {
	if len(c.Env) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.Env))
	for _, e := range c.Env {
		out = append(out, e.Key+"="+e.Value)
	}
	return out
}
