package parser

import (
	"fmt"
	"strings"

	"github.com/shipcore/shipcore/internal/dispatcher"
)

// Tokenize splits a script line on whitespace. Double quotes group words,
// and "" inside quotes is a literal quote.
func Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' && quoted && i+1 < len(runes) && runes[i+1] == '"':
			cur.WriteRune('"')
			i++
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				tokens = append(tokens, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if started {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// ParseLine turns one script line into a command. Blank lines and lines
// starting with '#' yield ok=false.
func (p *Parser) ParseLine(line string, lineNo int) (cmd dispatcher.Command, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return cmd, false, nil
	}
	tokens, err := Tokenize(trimmed)
	if err != nil {
		return cmd, false, fmt.Errorf("line %d: %w", lineNo, err)
	}
	cmd = dispatcher.Command{
		Name: strings.ToLower(tokens[0]),
		Args: tokens[1:],
		Line: lineNo,
	}
	return cmd, true, nil
}

// ParseScript parses every line, numbering from 1.
func (p *Parser) ParseScript(lines []string) ([]dispatcher.Command, error) {
	cmds := make([]dispatcher.Command, 0, len(lines))
	for i, line := range lines {
		cmd, ok, err := p.ParseLine(line, i+1)
		if err != nil {
			return nil, err
		}
		if ok {
			cmds = append(cmds, cmd)
		}
	}
	p.logger.Debug("Parsed script", "lines", len(lines), "commands", len(cmds))
	return cmds, nil
}
