package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var (
	errNoJSONObject = errors.New("no JSON object found")
	errUnrepairable = errors.New("JSON could not be repaired")
)

// Repair notes recorded in parse metadata.
const (
	issueMarkdownFence   = "response wrapped in markdown fences"
	issueSurroundingText = "response had text around the JSON object"
	issueTrailingComma   = "removed trailing commas"
	issueStrayQuote      = "escaped stray quotes inside strings"
	issueRawControl      = "escaped raw control characters inside strings"
	issueTruncated       = "closed truncated JSON"
	issueDroppedTail     = "dropped incomplete trailing element"
)

// RepairJSON returns raw as a syntactically valid JSON object, fixing the
// mistakes LLMs commonly make: markdown fences, prose around the object,
// trailing commas, unescaped quotes or newlines inside strings, and output
// cut off mid-document.
func RepairJSON(raw string) (string, error) {
	repaired, _, err := repair(raw)
	return repaired, err
}

// maxCutbacks bounds how many commas repair backs up through before giving up.
const maxCutbacks = 32

// checkpoint marks a comma outside any string, where the document can be
// cut and closed if everything after it is broken.
type checkpoint struct {
	stack []byte
	pos   int
}

type repairState struct {
	out    []byte
	stack  []byte
	cps    []checkpoint
	issues map[string]bool
	inStr  bool
	esc    bool
	done   bool
}

func repair(raw string) (string, []string, error) {
	st := &repairState{issues: make(map[string]bool)}

	text := strings.TrimSpace(raw)
	if unfenced, ok := stripFences(text); ok {
		text = unfenced
		st.issues[issueMarkdownFence] = true
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", nil, errNoJSONObject
	}
	if start > 0 {
		st.issues[issueSurroundingText] = true
	}

	consumed := st.scan(text[start:])
	if st.done && strings.TrimSpace(text[start+consumed:]) != "" {
		st.issues[issueSurroundingText] = true
	}

	if candidate := st.close(); json.Valid(candidate) {
		return string(candidate), st.issueList(), nil
	}

	// Cut back to the latest comma that still yields a valid document,
	// trying at most maxCutbacks of them.
	buf := make([]byte, 0, len(st.out)+len(st.stack)+len("null"))
	for i, tried := len(st.cps)-1, 0; i >= 0 && tried < maxCutbacks; i, tried = i-1, tried+1 {
		cp := st.cps[i]
		candidate := closeStack(trimTail(append(buf[:0], st.out[:cp.pos]...)), cp.stack)
		if json.Valid(candidate) {
			st.issues[issueDroppedTail] = true
			return string(candidate), st.issueList(), nil
		}
	}

	return "", st.issueList(), errUnrepairable
}

// scan copies s into st.out, repairing as it goes. It stops after the outer
// object closes and returns the number of bytes consumed.
func (st *repairState) scan(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]

		if st.inStr {
			st.scanString(s, i, c)
			continue
		}

		switch c {
		case '"':
			st.inStr = true
			st.out = append(st.out, c)
		case '{':
			st.stack = append(st.stack, '}')
			st.out = append(st.out, c)
		case '[':
			st.stack = append(st.stack, ']')
			st.out = append(st.out, c)
		case '}', ']':
			if len(st.stack) == 0 {
				continue
			}
			if trimmed := trimTrailingComma(st.out); len(trimmed) != len(st.out) {
				st.issues[issueTrailingComma] = true
				st.out = trimmed
			}
			// Use the closer the document needs, not the one that was written.
			st.out = append(st.out, st.stack[len(st.stack)-1])
			st.stack = st.stack[:len(st.stack)-1]
			if len(st.stack) == 0 {
				st.done = true
				return i + 1
			}
		case ',':
			st.cps = append(st.cps, checkpoint{
				pos:   len(st.out),
				stack: append([]byte(nil), st.stack...),
			})
			st.out = append(st.out, c)
		default:
			st.out = append(st.out, c)
		}
	}
	return len(s)
}

func (st *repairState) scanString(s string, i int, c byte) {
	switch {
	case st.esc:
		st.out = append(st.out, c)
		st.esc = false
	case c == '\\':
		if i+1 < len(s) && strings.IndexByte(`"\/bfnrtu`, s[i+1]) >= 0 {
			st.out = append(st.out, c)
			st.esc = true
			return
		}
		st.out = append(st.out, '\\', '\\')
	case c == '"':
		if closesString(s, i+1) {
			st.out = append(st.out, c)
			st.inStr = false
			return
		}
		st.issues[issueStrayQuote] = true
		st.out = append(st.out, '\\', '"')
	case c == '\n':
		st.issues[issueRawControl] = true
		st.out = append(st.out, '\\', 'n')
	case c == '\r':
		st.issues[issueRawControl] = true
		st.out = append(st.out, '\\', 'r')
	case c == '\t':
		st.issues[issueRawControl] = true
		st.out = append(st.out, '\\', 't')
	default:
		st.out = append(st.out, c)
	}
}

// close finishes a document that ended early.
func (st *repairState) close() []byte {
	out := append([]byte(nil), st.out...)
	if st.done {
		return out
	}

	st.issues[issueTruncated] = true
	if st.inStr {
		if st.esc {
			out = out[:len(out)-1]
		}
		out = append(out, '"')
	}
	return closeStack(trimTail(out), st.stack)
}

func (st *repairState) issueList() []string {
	order := []string{
		issueMarkdownFence, issueSurroundingText, issueTrailingComma,
		issueStrayQuote, issueRawControl, issueTruncated, issueDroppedTail,
	}
	var list []string
	for _, issue := range order {
		if st.issues[issue] {
			list = append(list, issue)
		}
	}
	return list
}

// closesString reports whether a quote followed by s[j:] ends a string
// rather than being a stray quote inside it.
func closesString(s string, j int) bool {
	k := skipSpace(s, j)
	if k >= len(s) {
		return true
	}

	switch s[k] {
	case ':', '}', ']':
		return true
	case ',':
		n := skipSpace(s, k+1)
		if n >= len(s) {
			return true
		}
		return strings.IndexByte(`"{}[]-0123456789`, s[n]) >= 0
	default:
		return false
	}
}

func skipSpace(s string, j int) int {
	for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\r' || s[j] == '\t') {
		j++
	}
	return j
}

// trimTail removes whatever cannot end a value: whitespace and a dangling
// comma. A dangling colon gets a null value.
func trimTail(out []byte) []byte {
	out = trimTrailingComma(out)
	if n := len(out); n > 0 && out[n-1] == ':' {
		out = append(out, "null"...)
	}
	return out
}

func trimTrailingComma(out []byte) []byte {
	trimmed := bytes.TrimRight(out, " \n\r\t")
	if n := len(trimmed); n > 0 && trimmed[n-1] == ',' {
		return trimmed[:n-1]
	}
	return out
}

func closeStack(out, stack []byte) []byte {
	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out, stack[i])
	}
	return out
}

// stripFences extracts the body of a ```json fenced block.
func stripFences(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return s, false
	}

	body := s[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}
