package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Marker grammar, as emitted by responders in generated text:
//
//	marker = "[[tool:" id [ space+ object ] space* "]]"
//	id     = 1*( letter | digit | "_" | "-" )
//	object = a JSON object
//
// Anything that does not match is left in the text untouched.
const markerOpen = "[[tool:"

// Marker is one tool call found in generated text.
type Marker struct {
	ID     string
	Params map[string]any
	// Start and End are byte offsets of the marker in the source text.
	Start, End int
}

// ParseMarkers returns every well-formed marker in text, in order.
func ParseMarkers(text string) []Marker {
	var out []Marker
	pos := 0
	for {
		i := strings.Index(text[pos:], markerOpen)
		if i < 0 {
			return out
		}
		start := pos + i
		m, end, ok := parseMarker(text, start)
		if !ok {
			pos = start + len(markerOpen)
			continue
		}
		m.Start, m.End = start, end
		out = append(out, m)
		pos = end
	}
}

func parseMarker(text string, start int) (Marker, int, bool) {
	i := start + len(markerOpen)
	idStart := i
	for i < len(text) && isIDByte(text[i]) {
		i++
	}
	if i == idStart {
		return Marker{}, 0, false
	}
	m := Marker{ID: text[idStart:i], Params: map[string]any{}}

	j := skipSpace(text, i)
	if j < len(text) && text[j] == '{' {
		if j == i {
			// Object must be separated from the id.
			return Marker{}, 0, false
		}
		dec := json.NewDecoder(strings.NewReader(text[j:]))
		dec.UseNumber()
		var params map[string]any
		if err := dec.Decode(&params); err != nil {
			return Marker{}, 0, false
		}
		m.Params = params
		j = skipSpace(text, j+int(dec.InputOffset()))
	}

	if !strings.HasPrefix(text[j:], "]]") {
		return Marker{}, 0, false
	}
	return m, j + 2, true
}

func isIDByte(c byte) bool {
	return c == '_' || c == '-' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// Call is an executed marker.
type Call struct {
	Marker Marker
	Result Result
}

// Expand executes every marker in text whose id is in allowed (all ids when allowed
// is nil) and replaces it with the rendered result. Markers for tools that are not
// allowed are rendered as unavailable without being executed.
func Expand(ctx context.Context, exec Executor, text string, allowed []string) (string, []Call) {
	markers := ParseMarkers(text)
	if len(markers) == 0 {
		return text, nil
	}

	var permitted map[string]bool
	if allowed != nil {
		permitted = make(map[string]bool, len(allowed))
		for _, id := range allowed {
			permitted[id] = true
		}
	}

	var b strings.Builder
	calls := make([]Call, 0, len(markers))
	last := 0
	for _, m := range markers {
		b.WriteString(text[last:m.Start])
		var res Result
		if permitted != nil && !permitted[m.ID] {
			res = Result{Error: "tool not available to this responder"}
		} else {
			res = exec.Execute(ctx, m.ID, m.Params)
		}
		b.WriteString(Render(m.ID, res))
		calls = append(calls, Call{Marker: m, Result: res})
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String(), calls
}

// Render formats a result for inclusion in a reply.
func Render(id string, r Result) string {
	if !r.Success {
		return fmt.Sprintf("[%s unavailable: %s]", id, r.Error)
	}
	keys := make([]string, 0, len(r.Data))
	for k := range r.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, r.Data[k]))
	}
	return fmt.Sprintf("[%s] %s", id, strings.Join(parts, ", "))
}
