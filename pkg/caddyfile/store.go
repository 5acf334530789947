package caddyfile

import "sync"

// Store owns the desired configuration. All access goes through its methods;
// reads return deep copies, so callers never share memory with the stored
// value and never observe a half-applied mutation.
//
// The store holds text only. Pushing it to the process, validating it, and
// reacting to the change are the sync engine's and manager's concerns.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore returns a store seeded with initial, or with an empty config when
// initial is nil.
func NewStore(initial *Config) *Store {
	if initial == nil {
		initial = &Config{}
	}
	return &Store{cfg: initial.Clone()}
}

// Get returns a deep copy of the current config.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Empty reports whether the current config carries no configuration text.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Empty()
}

// Render serializes the current config to Caddyfile text.
func (s *Store) Render() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Serialize(s.cfg)
}

// Set replaces the whole config.
func (s *Store) Set(cfg *Config) {
	if cfg == nil {
		cfg = &Config{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Clone()
}

// SetCaddyfile parses text and replaces the text-derived parts of the
// config. Bin and Env are not representable in Caddyfile text and survive
// unchanged.
func (s *Store) SetCaddyfile(text string) {
	parsed := Parse([]byte(text))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = &Config{
		Bin:       s.cfg.Bin,
		Env:       s.cfg.Env,
		Global:    parsed.Global,
		Fragments: parsed.Fragments,
		Sites:     parsed.Sites,
	}
}

// SetGlobal replaces the global options block content.
func (s *Store) SetGlobal(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Global = content
}

// SetBin sets the managed executable path.
func (s *Store) SetBin(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Bin = path
}

// SetSite adds a site block, or replaces the content of the site with the
// same address, keeping its position.
func (s *Store) SetSite(address, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, site := range s.cfg.Sites {
		if site.Address == address {
			s.cfg.Sites[i].Content = content
			return
		}
	}
	s.cfg.Sites = append(s.cfg.Sites, Site{Address: address, Content: content})
}

// RemoveSite deletes the site with the given address, reporting whether it
// existed.
func (s *Store) RemoveSite(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, site := range s.cfg.Sites {
		if site.Address == address {
			s.cfg.Sites = append(s.cfg.Sites[:i], s.cfg.Sites[i+1:]...)
			return true
		}
	}
	return false
}

// SetFragment adds a named fragment, or replaces the content of the fragment
// with the same name, keeping its position.
func (s *Store) SetFragment(name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.cfg.Fragments {
		if f.Name == name {
			s.cfg.Fragments[i].Content = content
			return
		}
	}
	s.cfg.Fragments = append(s.cfg.Fragments, Fragment{Name: name, Content: content})
}

// RemoveFragment deletes the fragment with the given name, reporting whether
// it existed.
func (s *Store) RemoveFragment(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.cfg.Fragments {
		if f.Name == name {
			s.cfg.Fragments = append(s.cfg.Fragments[:i], s.cfg.Fragments[i+1:]...)
			return true
		}
	}
	return false
}

// SetEnv adds an environment pair, or replaces the value of the pair with
// the same key, keeping its position.
func (s *Store) SetEnv(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.cfg.Env {
		if e.Key == key {
			s.cfg.Env[i].Value = value
			return
		}
	}
	s.cfg.Env = append(s.cfg.Env, EnvVar{Key: key, Value: value})
}

// RemoveEnv deletes the environment pair with the given key, reporting
// whether it existed.
func (s *Store) RemoveEnv(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.cfg.Env {
		if e.Key == key {
			s.cfg.Env = append(s.cfg.Env[:i], s.cfg.Env[i+1:]...)
			return true
		}
	}
	return false
}

// Clear resets the store to an empty config.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = &Config{}
}
