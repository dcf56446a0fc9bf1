package template

import "strings"

// Kind is the category of a template token.
type Kind int

const (
	Literal Kind = iota
	FieldTag
	OtherFields
	FieldInfo
	Action
	Other
)

func (k Kind) String() string {
	switch k {
	case FieldTag:
		return "field"
	case OtherFields:
		return "otherfields"
	case FieldInfo:
		return "fieldinfo"
	case Action:
		return "action"
	case Other:
		return "other"
	default:
		return "literal"
	}
}

// Field information attributes.
const (
	InfoID          = "id"
	InfoName        = "name"
	InfoDescription = "description"
)

// Action tag names.
const (
	TagEdit        = "edit"
	TagDelete      = "delete"
	TagApprove     = "approve"
	TagDisapprove  = "disapprove"
	TagExport      = "export"
	TagMore        = "more"
	TagMoreURL     = "moreurl"
	TagDelCheck    = "delcheck"
	TagActionsMenu = "actionsmenu"
)

// Other tag names.
const (
	TagTimeAdded      = "timeadded"
	TagTimeModified   = "timemodified"
	TagUser           = "user"
	TagUserPicture    = "userpicture"
	TagApprovalStatus = "approvalstatus"
	TagID             = "id"
	TagComments       = "comments"
	TagTags           = "tags"
)

const tagOtherFields = "otherfields"

var actionTags = map[string]bool{
	TagEdit: true, TagDelete: true, TagApprove: true, TagDisapprove: true, TagExport: true,
	TagMore: true, TagMoreURL: true, TagDelCheck: true, TagActionsMenu: true,
}

var otherTags = map[string]bool{
	TagTimeAdded: true, TagTimeModified: true, TagUser: true, TagUserPicture: true,
	TagApprovalStatus: true, TagID: true, TagComments: true, TagTags: true,
}

// Token is one element of a tokenized template. Text always holds the source text,
// so concatenating every Text reproduces the template.
type Token struct {
	Kind Kind
	Text string
	// Field is the referenced field name for FieldTag and FieldInfo.
	Field string
	// Info is the requested attribute for FieldInfo.
	Info string
	// Tag is the tag name for Action and Other.
	Tag string
}

// Tokenize splits a template into tokens. Anything that is not a recognised tag is
// returned as literal text.
func Tokenize(s string) []Token {
	var toks []Token
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			toks = append(toks, Token{Kind: Literal, Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "[["):
			end := strings.Index(s[i+2:], "]]")
			if end < 0 {
				lit.WriteString("[[")
				i += 2
				continue
			}
			inner := s[i+2 : i+2+end]
			if tok, ok := fieldToken(inner); ok {
				flush()
				tok.Text = s[i : i+4+end]
				toks = append(toks, tok)
				i += 4 + end
				continue
			}
			lit.WriteString("[[")
			i += 2
		case strings.HasPrefix(s[i:], "##"):
			end := strings.Index(s[i+2:], "##")
			if end < 0 {
				lit.WriteString("##")
				i += 2
				continue
			}
			if tok, ok := hashToken(s[i+2 : i+2+end]); ok {
				flush()
				tok.Text = s[i : i+4+end]
				toks = append(toks, tok)
				i += 4 + end
				continue
			}
			lit.WriteString("##")
			i += 2
		default:
			lit.WriteByte(s[i])
			i++
		}
	}
	flush()
	return toks
}

func fieldToken(inner string) (Token, bool) {
	if inner == "" || strings.ContainsAny(inner, "[]") {
		return Token{}, false
	}
	name, info, found := strings.Cut(inner, "#")
	if !found {
		return Token{Kind: FieldTag, Field: inner}, true
	}
	switch info {
	case InfoID, InfoName, InfoDescription:
		if name == "" {
			return Token{}, false
		}
		return Token{Kind: FieldInfo, Field: name, Info: info}, true
	}
	return Token{}, false
}

func hashToken(inner string) (Token, bool) {
	switch {
	case inner == tagOtherFields:
		return Token{Kind: OtherFields}, true
	case actionTags[inner]:
		return Token{Kind: Action, Tag: inner}, true
	case otherTags[inner]:
		return Token{Kind: Other, Tag: inner}, true
	}
	return Token{}, false
}

// FieldNames returns the distinct field names referenced by field tags, in order of
// first appearance. Field information tags do not count as references.
func FieldNames(toks []Token) []string {
	seen := map[string]bool{}
	var names []string
	for _, t := range toks {
		if t.Kind == FieldTag && !seen[t.Field] {
			seen[t.Field] = true
			names = append(names, t.Field)
		}
	}
	return names
}
