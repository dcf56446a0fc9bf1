package field_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/rpggio/recordbase/internal/domain/field"
	"github.com/stretchr/testify/require"
)

func def(typ string, params ...string) field.Definition {
	d := field.Definition{ID: 7, InstanceID: 1, Name: typ + "field", Type: typ}
	copy(d.Params[:], params)
	return d
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestTypes_RoundTrip(t *testing.T) {
	reg := field.DefaultRegistry()
	tests := []struct {
		name  string
		def   field.Definition
		input field.Input
	}{
		{"text", def("text"), field.Input{"": {"Demo title"}}},
		{"textarea", def("textarea"), field.Input{"": {"line one\nline two"}}},
		{"number", def("number"), field.Input{"": {"-12.5"}}},
		{"url", def("url"), field.Input{"": {"example.com/a?b=c"}, "label": {"Example"}}},
		{"date", def("date"), field.Input{"": {"2024-03-09"}}},
		{"menu", def("menu", "red\ngreen\nblue"), field.Input{"": {"green"}}},
		{"radiobutton", def("radiobutton", "yes\nno"), field.Input{"": {"no"}}},
		{"checkbox", def("checkbox", "a\nb\nc"), field.Input{"": {"c", "a"}}},
		{"multimenu", def("multimenu", "x\ny"), field.Input{"": {"y"}}},
		{"latlong", def("latlong"), field.Input{"lat": {"-33.8688"}, "long": {"151.2093"}}},
		{"file", def("file"), field.Input{"": {"paper.pdf"}, "caption": {"Paper"}, "ref": {"abc"}}},
		{"picture", def("picture"), field.Input{"": {"face.png"}, "caption": {"Me"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := reg.Bind(tt.def)
			v, errs := f.Validate(tt.input)
			require.Empty(t, errs)
			require.False(t, v.Blank)

			loaded := f.Load(f.Store(v))
			require.Equal(t, v, loaded)
		})
	}
}

func TestTypes_RequiredEmpty(t *testing.T) {
	reg := field.DefaultRegistry()
	d := def("text")
	d.Required = true

	_, errs := reg.Bind(d).Validate(field.Input{"": {"   "}})
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], field.ErrRequired)
	require.Equal(t, "textfield", errs[0].Field)
}

func TestTypes_OptionalEmptyIsBlank(t *testing.T) {
	reg := field.DefaultRegistry()
	for _, name := range reg.Names() {
		v, errs := reg.Bind(def(name)).Validate(field.Input{})
		require.Empty(t, errs, name)
		require.True(t, v.Blank, name)
	}
}

func TestTypes_ValidationErrors(t *testing.T) {
	reg := field.DefaultRegistry()

	_, errs := reg.Bind(def("number")).Validate(field.Input{"": {"ten"}})
	require.ErrorIs(t, errs, field.ErrInvalidNumber)

	_, errs = reg.Bind(def("number", "", "1", "5")).Validate(field.Input{"": {"9"}})
	require.ErrorIs(t, errs, field.ErrOutOfRange)

	_, errs = reg.Bind(def("text", "", "3")).Validate(field.Input{"": {"abcd"}})
	require.ErrorIs(t, errs, field.ErrTooLong)

	_, errs = reg.Bind(def("url")).Validate(field.Input{"": {"http://"}})
	require.ErrorIs(t, errs, field.ErrInvalidURL)

	_, errs = reg.Bind(def("date")).Validate(field.Input{"": {"09/03/2024"}})
	require.ErrorIs(t, errs, field.ErrInvalidDate)

	_, errs = reg.Bind(def("menu", "a\nb")).Validate(field.Input{"": {"c"}})
	require.ErrorIs(t, errs, field.ErrInvalidOption)

	_, errs = reg.Bind(def("file")).Validate(field.Input{"": {"../etc/passwd"}})
	require.ErrorIs(t, errs, field.ErrInvalidFileName)
}

func TestTypes_NonFiniteNumbersRejected(t *testing.T) {
	reg := field.DefaultRegistry()

	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "infinity", "1e400"} {
		_, errs := reg.Bind(def("number", "", "0", "10")).Validate(field.Input{"": {raw}})
		require.ErrorIs(t, errs, field.ErrInvalidNumber, raw)
	}

	_, errs := reg.Bind(def("latlong")).Validate(field.Input{"lat": {"NaN"}, "long": {"+Inf"}})
	require.Len(t, errs, 2)
	require.ErrorIs(t, errs[0], field.ErrInvalidLatitude)
	require.ErrorIs(t, errs[1], field.ErrInvalidLongitude)

	f := reg.Bind(def("number"))
	_, err := f.Kind.SearchPredicate(f.Definition, "NaN..5")
	require.ErrorIs(t, err, field.ErrInvalidCriterion)
}

func TestTypes_URLSchemes(t *testing.T) {
	reg := field.DefaultRegistry()
	f := reg.Bind(def("url"))

	for _, raw := range []string{
		"javascript://example.com/%0aalert(document.cookie)",
		"data://text/html,hi",
		"vbscript://x.test/",
		"javascript:alert(1)",
	} {
		_, errs := f.Validate(field.Input{"": {raw}})
		require.ErrorIs(t, errs, field.ErrInvalidURL, raw)
	}

	for raw, want := range map[string]string{
		"https://example.com/x":  "https://example.com/x",
		"ftp://files.test/a":     "ftp://files.test/a",
		"mailto:ada@example.com": "mailto:ada@example.com",
	} {
		v, errs := f.Validate(field.Input{"": {raw}})
		require.Empty(t, errs, raw)
		require.Equal(t, want, v.Text)
	}

	got := f.Render(context.Background(), field.NewSlots("javascript://x.test/%0aalert(1)", "Click"), field.RenderContext{})
	require.Equal(t, "Click", got)
}

func TestTypes_MultipleErrorsForOneValue(t *testing.T) {
	reg := field.DefaultRegistry()

	_, errs := reg.Bind(def("latlong")).Validate(field.Input{"lat": {"91"}, "long": {"nope"}})
	require.Len(t, errs, 2)
	require.ErrorIs(t, errs[0], field.ErrInvalidLatitude)
	require.ErrorIs(t, errs[1], field.ErrInvalidLongitude)

	_, errs = reg.Bind(def("checkbox", "a\nb")).Validate(field.Input{"": {"x", "a", "y"}})
	require.Len(t, errs, 2)
}

func TestTypes_CheckboxStoresInOptionOrder(t *testing.T) {
	reg := field.DefaultRegistry()
	f := reg.Bind(def("checkbox", "a\nb\nc"))
	v, errs := f.Validate(field.Input{"": {"c", "a"}})
	require.Empty(t, errs)
	require.Equal(t, "a##c", f.Store(v).Get(field.SlotContent))
}

func TestTypes_Render(t *testing.T) {
	reg := field.DefaultRegistry()
	ctx := context.Background()
	rc := field.RenderContext{DateFormat: "2006-01-02"}

	render := func(d field.Definition, in field.Input) string {
		f := reg.Bind(d)
		v, errs := f.Validate(in)
		require.Empty(t, errs)
		return f.Render(ctx, f.Store(v), rc)
	}

	require.Equal(t, "&lt;b&gt;Demo&lt;/b&gt;", render(def("text"), field.Input{"": {"<b>Demo</b>"}}))
	require.Equal(t, "a<br />b", render(def("textarea"), field.Input{"": {"a\nb"}}))
	require.Equal(t, "3.50", render(def("number", "2"), field.Input{"": {"3.5"}}))
	require.Equal(t, `<a href="http://example.com">Ex</a>`, render(def("url"), field.Input{"": {"example.com"}, "label": {"Ex"}}))
	require.Equal(t, "2024-03-09", render(def("date"), field.Input{"": {"2024-03-09"}}))
	require.Equal(t, "a<br />c", render(def("checkbox", "a\nb\nc"), field.Input{"": {"a", "c"}}))
	require.Equal(t, "33.8688°S 151.2093°E", render(def("latlong"), field.Input{"lat": {"-33.8688"}, "long": {"151.2093"}}))
	require.Equal(t, "paper.pdf", render(def("file"), field.Input{"": {"paper.pdf"}}))
}

type staticLinker struct{}

func (staticLinker) FileURL(_ context.Context, ref string) (string, error) {
	return "https://files.test/" + ref, nil
}

func TestTypes_RenderAttachmentsWithLinks(t *testing.T) {
	reg := field.DefaultRegistry()
	ctx := context.Background()
	rc := field.RenderContext{Files: staticLinker{}}

	f := reg.Bind(def("file"))
	got := f.Render(ctx, field.NewSlots("paper.pdf", "", "k1"), rc)
	require.Equal(t, `<a href="https://files.test/k1">paper.pdf</a>`, got)

	p := reg.Bind(def("picture", "100"))
	got = p.Render(ctx, field.NewSlots("face.png", "Me", "k2"), rc)
	require.Equal(t, `<img src="https://files.test/k2" alt="Me" width="100" />`, got)
}

func TestTypes_SearchPredicates(t *testing.T) {
	reg := field.DefaultRegistry()

	match := func(d field.Definition, criterion string, stored field.Slots) bool {
		f := reg.Bind(d)
		pred, err := f.Kind.SearchPredicate(f.Definition, criterion)
		require.NoError(t, err)
		return field.Eval(pred, stored)
	}

	require.True(t, match(def("text"), "demo", field.NewSlots("A Demo Title")))
	require.False(t, match(def("text"), "other", field.NewSlots("A Demo Title")))

	require.True(t, match(def("number"), "5..10", field.NewSlots("7")))
	require.False(t, match(def("number"), "5..10", field.NewSlots("11")))
	require.True(t, match(def("number"), "..0", field.NewSlots("-3")))
	require.True(t, match(def("number"), "7", field.NewSlots("7")))

	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC).Unix()
	stored := field.NewSlots(itoa(day))
	require.True(t, match(def("date"), "2024-03-09", stored))
	require.False(t, match(def("date"), "2024-03-10", stored))
	require.True(t, match(def("date"), "2024-03-01..2024-03-09", stored))

	require.True(t, match(def("menu"), "green", field.NewSlots("green")))
	require.False(t, match(def("menu"), "gre", field.NewSlots("green")))

	set := field.NewSlots("a##bb##c")
	require.True(t, match(def("checkbox"), "bb", set))
	require.False(t, match(def("checkbox"), "b", set))
	require.True(t, match(def("checkbox"), "x##c", set))
	require.False(t, match(def("checkbox"), "all:x##c", set))
	require.True(t, match(def("checkbox"), "all:a##c", set))

	require.True(t, match(def("checkbox"), "red", field.NewSlots("red##blue")))
	require.False(t, match(def("checkbox"), "Red", field.NewSlots("red##blue")))
	require.False(t, match(def("checkbox"), "Red", field.NewSlots("red")))
	require.True(t, match(def("checkbox"), "Red", field.NewSlots("blue##Red")))
}

func TestTypes_InvalidCriterion(t *testing.T) {
	reg := field.DefaultRegistry()
	f := reg.Bind(def("number"))
	_, err := f.Kind.SearchPredicate(f.Definition, "ten..twenty")
	require.ErrorIs(t, err, field.ErrInvalidCriterion)

	p := reg.Bind(def("picture"))
	_, err = p.Kind.SearchPredicate(p.Definition, "face")
	require.ErrorIs(t, err, field.ErrNotSearchable)
}

func TestTypes_FullTextCoversAdvanced(t *testing.T) {
	reg := field.DefaultRegistry()
	day := itoa(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC).Unix())

	cases := []struct {
		def    field.Definition
		stored []field.Slots
		terms  []string
	}{
		{def("text"), []field.Slots{field.NewSlots("Alpha"), field.NewSlots("beta")}, []string{"alp", "BETA", "z"}},
		{def("number"), []field.Slots{field.NewSlots("7"), field.NewSlots("12.5")}, []string{"7", "5..10", "..20", "x"}},
		{def("date"), []field.Slots{field.NewSlots(day)}, []string{"2024-03-09", "2024-01-01..2024-12-31", "march"}},
		{def("checkbox", "a\nb"), []field.Slots{field.NewSlots("a##b"), field.NewSlots("b")}, []string{"a", "all:a##b", "a##b"}},
		{def("menu", "red\nblue"), []field.Slots{field.NewSlots("red")}, []string{"red", "re"}},
		{def("latlong"), []field.Slots{field.NewSlots("1.5", "2.5")}, []string{"2.5", "1"}},
	}

	for _, tc := range cases {
		f := reg.Bind(tc.def)
		for _, term := range tc.terms {
			adv, err := f.Kind.SearchPredicate(f.Definition, term)
			if err != nil || adv == nil {
				continue
			}
			full := f.FullTextPredicate(term)
			for _, s := range tc.stored {
				if field.Eval(adv, s) {
					require.True(t, field.Eval(full, s), "%s term %q", tc.def.Type, term)
				}
			}
		}
	}
}
