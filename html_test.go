package inlinestyles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProcessFragmentSVG(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg"><style>.st0 { fill: red }</style><rect class="st0" width="1" height="1"/></svg>`
	doc, err := New(DefaultOptions()).ProcessFragment(src)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err = Render(&sb, doc); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, `style="fill:red"`) {
		t.Errorf("rect not styled: %s", out)
	}
	if strings.Contains(out, "<style") {
		t.Errorf("style element not removed: %s", out)
	}
	if strings.Contains(out, "<html") || strings.Contains(out, "<body") {
		t.Errorf("fragment got wrapped: %s", out)
	}
}

func TestProcessFragmentProlog(t *testing.T) {
	prolog := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<!DOCTYPE svg PUBLIC \"-//W3C//DTD SVG 1.1//EN\" \"http://www.w3.org/Graphics/SVG/1.1/DTD/svg11.dtd\">\n"
	src := prolog + `<svg xmlns="http://www.w3.org/2000/svg"><defs><style><![CDATA[ .a > .b { fill: red } ]]></style></defs>` +
		`<g class="a"><rect class="b" width="1" height="1"/></g></svg>`
	doc, err := New(DefaultOptions()).ProcessFragment(src)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err = Render(&sb, doc); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.HasPrefix(out, prolog+"<svg") {
		t.Errorf("prolog not kept: %s", out)
	}
	if !strings.Contains(out, `<rect class="b" width="1" height="1" style="fill:red"`) {
		t.Errorf("rect not styled: %s", out)
	}
	if strings.Contains(out, "<!--?xml") {
		t.Errorf("declaration turned into a comment: %s", out)
	}
}

func TestSplitProlog(t *testing.T) {
	testdata := []struct {
		in     string
		prolog string
	}{
		{"<svg/>", ""},
		{"  \n<svg/>", ""},
		{"<!-- c --><svg/>", ""},
		{"<?xml version=\"1.0\"?><svg/>", "<?xml version=\"1.0\"?>"},
		{"\n<?xml version=\"1.0\"?>\n\n<svg/>", "\n<?xml version=\"1.0\"?>\n\n"},
		{"<!doctype svg [ <!ENTITY e \"x\"> ]>\n<svg/>", "<!doctype svg [ <!ENTITY e \"x\"> ]>\n"},
	}
	for _, td := range testdata {
		prolog, rest := splitProlog([]byte(td.in))
		if string(prolog) != td.prolog {
			t.Errorf("splitProlog(%q) prolog = %q, want %q", td.in, prolog, td.prolog)
		}
		if string(prolog)+string(rest) != td.in {
			t.Errorf("splitProlog(%q) lost input: %q + %q", td.in, prolog, rest)
		}
	}
}

func TestProcessHTMLChunk(t *testing.T) {
	doc, err := New(DefaultOptions()).ProcessHTMLChunk(`<style>h1 > span { color: red } </style><h1><span>x</span></h1>`)
	if err != nil {
		t.Fatal(err)
	}
	if style, _ := doc.Find("h1 span").Attr("style"); style != "color:red" {
		t.Errorf("style = %q, want %q", style, "color:red")
	}
	if doc.Find("html").Length() != 1 {
		t.Errorf("document has no html element")
	}
}

func TestProcessHTMLFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "in.html")
	if err := os.WriteFile(fn, []byte(`<style>#a{color:red}</style><p id="a">x</p>`), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := New(DefaultOptions()).ProcessHTMLFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if style, _ := doc.Find("#a").Attr("style"); style != "color:red" {
		t.Errorf("style = %q, want %q", style, "color:red")
	}
	if _, err = New(DefaultOptions()).ProcessHTMLFile(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Errorf("ProcessHTMLFile(missing) succeeded, want error")
	}
}

func TestSetTextKeepsRawCSS(t *testing.T) {
	opts := DefaultOptions()
	opts.RemoveMatchedSelectors = false
	doc, err := New(opts).ProcessHTMLChunk(`<style>div > p { color: red }</style><div><p>x</p></div>`)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err = Render(&sb, doc); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "<style>div>p{color:red}</style>") {
		t.Errorf("style text escaped or missing: %s", sb.String())
	}
}
