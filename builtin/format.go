// Package builtin provides the host services behind the runtime's builtin
// namespaces: the formatted-output service used by io.printf.
package builtin

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Format renders a C-style printf template. Supported verbs are %d and %i
// (integer), %f (float), %s (any value), %c (character) and %%. Flags,
// width and precision between % and the verb are passed through to fmt.
// Missing arguments render as %!v(MISSING); extra arguments are appended
// the way fmt reports them.
func Format(format string, args ...any) string {
	var sb strings.Builder
	next := 0
	take := func() (any, bool) {
		if next >= len(args) {
			return nil, false
		}
		a := args[next]
		next++
		return a, true
	}

	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			sb.WriteByte(ch)
			continue
		}

		// Collect flags, width and precision.
		j := i + 1
		for j < len(format) && strings.IndexByte("+- #0123456789.", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			sb.WriteString(format[i:])
			break
		}
		spec := format[i+1 : j]
		verb, width := utf8.DecodeRuneInString(format[j:])
		i = j + width - 1

		if verb == '%' {
			sb.WriteByte('%')
			continue
		}
		arg, ok := take()
		if !ok {
			sb.WriteString("%!" + string(verb) + "(MISSING)")
			continue
		}
		switch verb {
		case 'd', 'i':
			sb.WriteString(fmt.Sprintf("%"+spec+"d", asInt(arg)))
		case 'f', 'g', 'e':
			sb.WriteString(fmt.Sprintf("%"+spec+string(verb), asFloat(arg)))
		case 'c':
			sb.WriteString(fmt.Sprintf("%"+spec+"c", rune(asInt(arg))))
		case 's':
			sb.WriteString(fmt.Sprintf("%"+spec+"s", display(arg)))
		default:
			sb.WriteString(fmt.Sprintf("%"+spec+string(verb), arg))
		}
	}

	if next < len(args) {
		extra := make([]string, 0, len(args)-next)
		for _, a := range args[next:] {
			extra = append(extra, fmt.Sprintf("%T=%v", a, display(a)))
		}
		sb.WriteString("%!(EXTRA " + strings.Join(extra, ", ") + ")")
	}
	return sb.String()
}

func asInt(a any) int64 {
	switch v := a.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
	case string:
		if len(v) > 0 {
			return int64([]rune(v)[0])
		}
	}
	return 0
}

func asFloat(a any) float64 {
	switch v := a.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func display(a any) string {
	if a == nil {
		return "null"
	}
	return fmt.Sprint(a)
}
