package logx

import (
	"strings"
	"sync/atomic"

	aho "github.com/petar-dambovaliev/aho-corasick"
)

// Placeholder replaces every redacted value in emitted log lines.
const Placeholder = "[REDACTED]"

var redactor atomic.Pointer[redactSet]

type redactSet struct {
	matcher aho.AhoCorasick
}

// Redact registers values that must never appear in log output, such as the
// attestation endpoint token. Calling it again replaces the previous set;
// calling it with no non-empty values disables redaction.
func Redact(secrets ...string) {
	var filtered []string
	for _, s := range secrets {
		if s != "" {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		redactor.Store(nil)
		return
	}
	builder := aho.NewAhoCorasickBuilder(aho.Opts{})
	redactor.Store(&redactSet{matcher: builder.Build(filtered)})
}

func (r *redactSet) apply(msg string) string {
	if r == nil {
		return msg
	}
	matches := r.matcher.FindAll(msg)
	if len(matches) == 0 {
		return msg
	}

	var b strings.Builder
	pos := 0
	for _, m := range matches {
		if m.Start() < pos {
			continue // overlapping match
		}
		b.WriteString(msg[pos:m.Start()])
		b.WriteString(Placeholder)
		pos = m.End()
	}
	b.WriteString(msg[pos:])
	return b.String()
}
