package caddyfile

import "strings"

// Serialize renders the config to canonical Caddyfile text: the global block
// first (omitted when empty), then fragments, then sites, in stored order,
// separated by blank lines. Block bodies are indented two spaces.
// Parse(Serialize(c)) reproduces c's text parts for any config whose
// fragment names contain no ")" and whose site addresses contain no "{".
func Serialize(cfg *Config) []byte {
	if cfg == nil {
		return nil
	}

	var blocks []string
	if cfg.Global != "" {
		blocks = append(blocks, renderBlock("", cfg.Global))
	}
	for _, f := range cfg.Fragments {
		blocks = append(blocks, renderBlock("("+f.Name+")", f.Content))
	}
	for _, s := range cfg.Sites {
		blocks = append(blocks, renderBlock(s.Address, s.Content))
	}
	if len(blocks) == 0 {
		return nil
	}
	return []byte(strings.Join(blocks, "\n\n") + "\n")
}

// renderBlock emits one braced block. An empty header renders the bare
// global form.
func renderBlock(header, content string) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString(" ")
	}
	b.WriteString("{\n")
	if content != "" {
		b.WriteString(indent(content))
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// indent prefixes every non-blank line with two spaces.
func indent(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = "  " + line
		}
	}
	return strings.Join(lines, "\n")
}
