package template

import "fmt"

// Name identifies one of the templates an instance owns.
type Name string

const (
	List       Name = "list"
	ListHeader Name = "listheader"
	ListFooter Name = "listfooter"
	Single     Name = "single"
	Add        Name = "add"
	Search     Name = "asearch"
	RSS        Name = "rss"
	RSSTitle   Name = "rsstitle"
)

// Names lists every template kind in display order.
var Names = []Name{List, ListHeader, ListFooter, Single, Add, Search, RSS, RSSTitle}

// ParseName validates a template name.
func ParseName(s string) (Name, error) {
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, s)
}

// PerRecord reports whether the template is rendered once per record.
func (n Name) PerRecord() bool {
	switch n {
	case ListHeader, ListFooter:
		return false
	default:
		return true
	}
}
