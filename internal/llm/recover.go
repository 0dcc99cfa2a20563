package llm

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aurelia-jewels/po-extractor/internal/common"
)

// The model reliably produces JSON-shaped text but unreliably produces valid
// JSON: markdown fences, unquoted keys, missing commas, strings broken across
// lines, and hard truncation when the output budget runs out mid-array. The
// cascade below is an ordered list of pure text transforms, each safe to
// apply when the defect it targets is absent, followed by a structural parse
// with second-tier fallbacks and a last-resort truncation repair.

var (
	reFenceOpen     = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	reFenceClose    = regexp.MustCompile("(?m)\\s*```$")
	reBareKey       = regexp.MustCompile(`([{\[,]\s*)([A-Za-z0-9_]+)\s*:`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	reDoubleComma   = regexp.MustCompile(`,\s*,`)
	reAdjacentArrs  = regexp.MustCompile(`(\])\s*(\[)`)
)

// commaFixes inserts commas at detected adjacency boundaries: closers
// followed by openers or values, and values followed by values.
var commaFixes = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`}\s+"`), `}, "`},
	{regexp.MustCompile(`]\s+"`), `], "`},
	{regexp.MustCompile(`"\s+{`), `", {`},
	{regexp.MustCompile(`"\s+\[`), `", [`},
	{regexp.MustCompile(`(\d)\s+"`), `$1, "`},
	{regexp.MustCompile(`"\s+(\d)`), `", $1`},
	{regexp.MustCompile(`(true|false|null)\s+"`), `$1, "`},
	{regexp.MustCompile(`"\s+(true|false|null)`), `", $1`},
	{regexp.MustCompile(`}\s+{`), `}, {`},
	{regexp.MustCompile(`]\s+\[`), `], [`},
}

// ExtractJSON runs the repair cascade over raw model output and returns the
// best candidate JSON text. Order matters; every pass is idempotent on
// already-clean input.
func ExtractJSON(text string) string {
	cleaned := stripFences(text)
	cleaned = cleanControlChars(cleaned)
	cleaned = closeUnterminatedStrings(cleaned)
	cleaned = quoteBareKeys(cleaned)
	cleaned = fixMissingCommas(cleaned)
	cleaned = extractBalancedObject(cleaned)
	return strings.TrimSpace(removeTrailingCommas(cleaned))
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = reFenceOpen.ReplaceAllString(cleaned, "")
	cleaned = reFenceClose.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// cleanControlChars drops raw control bytes that make text illegal to parse,
// keeping newline, carriage return and tab.
func cleanControlChars(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x20 || r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		return -1
	}, text)
}

// closeUnterminatedStrings injects a closing quote before a literal newline
// that occurs inside a string, and at end of text if a string is still open.
func closeUnterminatedStrings(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	inStr, escape := false, false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch == '\n' && inStr {
			b.WriteByte('"')
			inStr = false
		}
		b.WriteByte(ch)
		if escape {
			escape = false
			continue
		}
		if ch == '\\' {
			escape = true
			continue
		}
		if ch == '"' {
			inStr = !inStr
		}
	}
	if inStr {
		b.WriteByte('"')
	}
	return b.String()
}

// quoteBareKeys wraps unquoted object keys immediately following '{', '[' or ','.
func quoteBareKeys(text string) string {
	return reBareKey.ReplaceAllString(text, `$1"$2":`)
}

func fixMissingCommas(text string) string {
	for _, f := range commaFixes {
		text = f.re.ReplaceAllString(text, f.repl)
	}
	return text
}

// extractBalancedObject truncates the text to the substring from the first
// '{' through its matching closing brace, discarding trailing prose.
func extractBalancedObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return text
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

func removeTrailingCommas(text string) string {
	return reTrailingComma.ReplaceAllString(text, "$1")
}

// ParseOptions controls fallback behavior during recovery parsing.
type ParseOptions struct {
	// OnTruncationRepaired is called with the recovered item count when the
	// text could only be parsed via truncation repair. Returning an error
	// rejects the partial result.
	OnTruncationRepaired func(recoveredItems int) error
	Logger               *slog.Logger
}

// ParseWithFallback parses candidate JSON text, applying second-tier repair
// strategies and finally truncation repair. It never fabricates items: the
// only destructive step is dropping a trailing incomplete item, and the
// resulting count is always surfaced through OnTruncationRepaired.
func ParseWithFallback(jsonText string, opts *ParseOptions) (map[string]any, error) {
	if opts == nil {
		opts = &ParseOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var v map[string]any
	firstErr := json.Unmarshal([]byte(jsonText), &v)
	if firstErr == nil {
		return v, nil
	}
	logger.Warn("llm.recover.first_parse_failed", "error", firstErr, "bytes", len(jsonText))

	offset := syntaxErrorOffset(firstErr, jsonText)

	strategies := []func(string) string{
		fixMissingCommas,
		func(t string) string {
			return removeTrailingCommas(reDoubleComma.ReplaceAllString(t, ","))
		},
		func(t string) string {
			return reAdjacentArrs.ReplaceAllString(t, "$1,$2")
		},
		func(t string) string {
			return insertCommaAtOffset(t, offset)
		},
	}
	for i, strategy := range strategies {
		repaired := strategy(jsonText)
		var v map[string]any
		if err := json.Unmarshal([]byte(repaired), &v); err == nil {
			logger.Info("llm.recover.fallback_ok", "strategy", i+1)
			return v, nil
		}
	}

	if offset > 0 {
		repaired := repairTruncated(jsonText, offset)
		var v map[string]any
		if err := json.Unmarshal([]byte(repaired), &v); err == nil {
			n := itemCount(v)
			logger.Warn("llm.recover.truncation_repaired", "items", n)
			if opts.OnTruncationRepaired != nil {
				if cbErr := opts.OnTruncationRepaired(n); cbErr != nil {
					return nil, cbErr
				}
			}
			return v, nil
		} else {
			logger.Warn("llm.recover.truncation_repair_failed", "error", err)
		}
	}

	return nil, common.NewRecoveryError(jsonText, firstErr)
}

// syntaxErrorOffset extracts the byte offset of a JSON syntax error.
// A truncated response ("unexpected end of JSON input") maps to end of text.
// Returns -1 when no offset is available.
func syntaxErrorOffset(err error, text string) int {
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		return -1
	}
	if syn.Offset <= 0 || syn.Offset > int64(len(text)) {
		return len(text)
	}
	return int(syn.Offset)
}

// insertCommaAtOffset inserts a comma at the reported error offset when the
// character there is plausibly the start of a missing-comma site.
func insertCommaAtOffset(t string, offset int) string {
	if offset < 0 || offset >= len(t) {
		return t
	}
	lastBracket := strings.LastIndexByte(t[:offset+1], '[')
	if lastBracket == -1 {
		return t
	}
	lastComma := strings.LastIndexByte(t[:lastBracket], ',')
	lastQuote := strings.LastIndexByte(t[:lastBracket], '"')
	if lastQuote > lastComma {
		switch t[offset] {
		case '"', '{', '[':
			return t[:offset] + "," + t[offset:]
		}
	}
	return t
}

// repairTruncated salvages output cut off by the model's token limit: keep
// the text up to the error offset, back up to the last complete item boundary
// ("}," preferred, else the last "}"), drop a dangling comma, then close the
// still-open brackets in reverse open order. Brackets inside string literals
// are ignored via string/escape tracking.
func repairTruncated(text string, offset int) string {
	end := offset
	if end > len(text) {
		end = len(text)
	}
	truncated := strings.TrimSpace(text[:end])

	if i := strings.LastIndex(truncated, "},"); i != -1 {
		truncated = strings.TrimSpace(truncated[:i+2])
	} else if i := strings.LastIndexByte(truncated, '}'); i != -1 {
		truncated = strings.TrimSpace(truncated[:i+1])
	}
	truncated = strings.TrimSuffix(strings.TrimRight(truncated, " \t\r\n"), ",")

	var stack []byte
	inStr, escape := false, false
	var quote byte
	for i := 0; i < len(truncated); i++ {
		ch := truncated[i]
		if inStr {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == quote {
				inStr = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inStr, quote = true, ch
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(truncated)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

func itemCount(v map[string]any) int {
	items, ok := v["items"].([]any)
	if !ok {
		return 0
	}
	return len(items)
}
