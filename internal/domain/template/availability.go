package template

// TagAvailable reports whether an action or other tag produces output in template n.
// Unavailable tags resolve to empty output.
func TagAvailable(n Name, kind Kind, tag string) bool {
	switch kind {
	case Action:
		switch n {
		case Add, Search, RSSTitle, ListHeader, ListFooter:
			return false
		case Single:
			return tag != TagMore && tag != TagMoreURL && tag != TagDelCheck
		case RSS:
			return tag != TagExport
		}
		return true
	case Other, FieldTag, OtherFields:
		return n != ListHeader && n != ListFooter
	}
	return true
}
