package crm

import "strings"

// formatTokens renders a repeated "key value" token sequence following the
// crm configure argument convention. Every item contributes a token of the
// form " <prefix> <item>", including the leading space, so the result can
// be concatenated directly onto a specification string:
//
//	formatTokens("op", []string{"monitor interval=60s"})
//
// yields " op monitor interval=60s". An empty slice yields the empty
// string. The exact spacing is parsed by the consuming CLI tool and must
// not change.
func formatTokens(prefix string, values []string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(" ")
		b.WriteString(prefix)
		b.WriteString(" ")
		b.WriteString(v)
	}
	return b.String()
}
