package caddyfile

import (
	"fmt"
	"strings"
)

// additionalFragmentPrefix names fragments synthesized from text that fits no
// block shape. The running counter keeps the names unique within one parse.
const additionalFragmentPrefix = "additional_"

// Parse splits Caddyfile text into its structured form. It cannot fail:
// every non-blank piece of input lands somewhere in the result, with
// unclassifiable text preserved as auto-named fragments. Bin and Env are not
// representable in Caddyfile text and come back empty.
func Parse(data []byte) *Config {
	cfg := &Config{}
	counter := 0
	seenGlobal := false

	for _, chunk := range splitBlocks(string(data)) {
		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" {
			continue
		}

		prefix, body, hasBrace := splitHeader(trimmed)
		switch {
		case !hasBrace:
			// Stray directives outside any block. Keep them.
			counter++
			cfg.Fragments = append(cfg.Fragments, Fragment{
				Name:    fmt.Sprintf("%s%d", additionalFragmentPrefix, counter),
				Content: trimmed,
			})

		case prefix == "":
			if !seenGlobal {
				seenGlobal = true
				cfg.Global = body
				continue
			}
			// A second brace-only block has no home; preserve it.
			counter++
			cfg.Fragments = append(cfg.Fragments, Fragment{
				Name:    fmt.Sprintf("%s%d", additionalFragmentPrefix, counter),
				Content: body,
			})

		case isFragmentHeader(prefix):
			name := strings.TrimSpace(prefix[1 : len(prefix)-1])
			cfg.Fragments = append(cfg.Fragments, Fragment{Name: name, Content: body})

		default:
			cfg.Sites = append(cfg.Sites, Site{Address: prefix, Content: body})
		}
	}
	return cfg
}

// splitBlocks cuts the input into top-level chunks. A chunk ends when brace
// depth returns to zero after having been positive. Text left over at end of
// input (including an unterminated block) becomes a final chunk so nothing
// is dropped.
func splitBlocks(text string) []string {
	var blocks []string
	var cur strings.Builder
	depth := 0

	for _, c := range text {
		cur.WriteRune(c)
		switch c {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					blocks = append(blocks, cur.String())
					cur.Reset()
				}
			}
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		blocks = append(blocks, cur.String())
	}
	return blocks
}

// splitHeader divides a trimmed chunk into the text before its first open
// brace and the dedented body inside the braces. hasBrace is false when the
// chunk contains no brace at all.
func splitHeader(chunk string) (prefix, body string, hasBrace bool) {
	open := strings.IndexByte(chunk, '{')
	if open < 0 {
		return "", "", false
	}

	prefix = strings.TrimSpace(chunk[:open])
	inner := chunk[open+1:]
	// A chunk cut at depth zero ends with the matching close brace; an
	// unterminated block at end of input has none to strip.
	if strings.HasSuffix(inner, "}") {
		inner = inner[:len(inner)-1]
	}
	return prefix, dedent(inner), true
}

// isFragmentHeader reports whether the block prefix is a (name) fragment
// header.
func isFragmentHeader(prefix string) bool {
	if !strings.HasPrefix(prefix, "(") || !strings.HasSuffix(prefix, ")") {
		return false
	}
	return strings.TrimSpace(prefix[1:len(prefix)-1]) != ""
}

// dedent strips the serializer's two-space indent (at most) from each line
// and trims leading and trailing blank lines, undoing exactly what indent
// applied.
func dedent(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "  "):
			lines[i] = line[2:]
		case strings.HasPrefix(line, " "):
			lines[i] = line[1:]
		}
	}

	start := 0
	end := len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
