package sfzcore

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/GeoffreyPlitt/debuggo"
)

var parserDebug = debuggo.Debug("sfzcore:parser")

// HeaderListener receives the parser's (header, opcodes) stream per §6:
// parser.onHeader(name, opcodes) where name is one of global/control/master/
// group/region/curve/effect.
type HeaderListener interface {
	OnHeader(name string, opcodes []RawOpcode)
}

// ParseSfzFile scans an SFZ file's headers and opcodes and feeds them to
// listener in document order, generalizing the teacher's line-oriented
// scanner to the full SFZ grammar: unknown opcodes are reported rather than
// silently dropped, and values may contain spaces (sample paths).
func ParseSfzFile(path string, listener HeaderListener) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("sfzcore: failed to open SFZ file: %w", err)
	}
	defer file.Close()
	return parseSfzReader(bufio.NewScanner(file), listener)
}

// ParseSfzString is ParseSfzFile's in-memory counterpart, used by tests and
// by hosts that already have SFZ text loaded (e.g. from a DAW's preset blob).
func ParseSfzString(text string, listener HeaderListener) error {
	return parseSfzReader(bufio.NewScanner(strings.NewReader(text)), listener)
}

func parseSfzReader(scanner *bufio.Scanner, listener HeaderListener) error {
	var currentHeader string
	var currentOpcodes []RawOpcode
	lineNum := 0

	flush := func() {
		if currentHeader != "" {
			listener.OnHeader(currentHeader, currentOpcodes)
		}
		currentOpcodes = nil
	}

	for scanner.Scan() {
		lineNum++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for len(line) > 0 {
			if strings.HasPrefix(line, "<") {
				end := strings.Index(line, ">")
				if end < 0 {
					parserDebug("line %d: unterminated header %q", lineNum, line)
					line = ""
					break
				}
				flush()
				currentHeader = strings.ToLower(strings.TrimSpace(line[1:end]))
				currentOpcodes = nil
				line = strings.TrimSpace(line[end+1:])
				continue
			}

			op, rest, ok := scanNextOpcode(line)
			if !ok {
				parserDebug("line %d: could not parse remainder %q", lineNum, line)
				break
			}
			if currentHeader == "" {
				parserDebug("line %d: opcode %s outside any header, ignored", lineNum, op.Name)
			} else {
				currentOpcodes = append(currentOpcodes, op)
			}
			line = rest
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("sfzcore: error reading SFZ source: %w", err)
	}
	flush()
	return nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}

// scanNextOpcode extracts one "name=value" pair from the front of line,
// where value runs until the start of the next "name=" token or end of
// line, so unquoted sample paths containing spaces parse correctly.
func scanNextOpcode(line string) (RawOpcode, string, bool) {
	line = strings.TrimSpace(line)
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return RawOpcode{}, "", false
	}
	name := strings.ToLower(strings.TrimSpace(line[:eq]))
	rest := line[eq+1:]

	valueEnd := len(rest)
	for i := 0; i < len(rest); i++ {
		if rest[i] != ' ' {
			continue
		}
		j := i + 1
		for j < len(rest) && rest[j] == ' ' {
			j++
		}
		if isOpcodeNameStart(rest, j) {
			valueEnd = i
			break
		}
	}
	value := strings.TrimSpace(rest[:valueEnd])
	return ParseRawOpcode(name, value), rest[valueEnd:], true
}

// isOpcodeNameStart reports whether rest[j:] begins a plausible "name=" token.
func isOpcodeNameStart(rest string, j int) bool {
	if j >= len(rest) || !(unicode.IsLetter(rune(rest[j])) || rest[j] == '_') {
		return false
	}
	k := j
	for k < len(rest) && (unicode.IsLetter(rune(rest[k])) || unicode.IsDigit(rune(rest[k])) || rest[k] == '_') {
		k++
	}
	return k < len(rest) && rest[k] == '='
}
