package template

import (
	"fmt"
	"strings"
)

// RenameField rewrites every field and field information tag naming oldName.
func RenameField(body, oldName, newName string) string {
	if oldName == newName {
		return body
	}
	var b strings.Builder
	for _, t := range Tokenize(body) {
		switch {
		case t.Kind == FieldTag && t.Field == oldName:
			fmt.Fprintf(&b, "[[%s]]", newName)
		case t.Kind == FieldInfo && t.Field == oldName:
			fmt.Fprintf(&b, "[[%s#%s]]", newName, t.Info)
		default:
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// AppendField adds a block for a new field to a non-empty template of a kind that
// lists fields. It reports false when the template is left alone.
func AppendField(n Name, body, fieldName string) (string, bool) {
	if body == "" {
		return body, false
	}
	switch n {
	case Single, Add, RSS, List:
	default:
		return body, false
	}
	for _, t := range Tokenize(body) {
		if t.Kind == OtherFields || (t.Kind == FieldTag && t.Field == fieldName) {
			return body, false
		}
	}
	return body + fieldBlock(n, fieldName), true
}
