package template

import (
	"fmt"
	"strings"
)

// Default generates the template used when an instance has not stored one.
func Default(n Name, fieldNames []string) string {
	var b strings.Builder
	switch n {
	case List, Single:
		b.WriteString("<div class=\"entry\">\n")
		for _, name := range fieldNames {
			b.WriteString(fieldBlock(n, name))
		}
		b.WriteString("<div class=\"meta\">##user## ##timeadded## ##approvalstatus##</div>\n")
		b.WriteString("<div class=\"actions\">##actionsmenu##</div>\n")
		if n == Single {
			b.WriteString("##tags##\n##comments##\n")
		}
		b.WriteString("</div>\n")
	case Add:
		for _, name := range fieldNames {
			b.WriteString(fieldBlock(n, name))
		}
	case Search:
		for _, name := range fieldNames {
			fmt.Fprintf(&b, "<div class=\"criterion\"><label for=\"[[%s#id]]\">[[%s#name]]</label> [[%s]]</div>\n", name, name, name)
		}
	case RSS:
		for _, name := range fieldNames {
			b.WriteString(fieldBlock(n, name))
		}
	case RSSTitle:
		if len(fieldNames) > 0 {
			fmt.Fprintf(&b, "[[%s]]", fieldNames[0])
		}
	}
	return b.String()
}

func fieldBlock(n Name, name string) string {
	if n == Add {
		return fmt.Sprintf("<div class=\"field\"><label for=\"[[%s#id]]\">[[%s#name]]</label> [[%s]]</div>\n", name, name, name)
	}
	return fmt.Sprintf("<div class=\"field\"><span class=\"name\">[[%s#name]]</span>: <span class=\"value\">[[%s]]</span></div>\n", name, name)
}
