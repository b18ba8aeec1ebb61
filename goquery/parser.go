// Package goquery provides an HTML-based implementation of
// optsearch.Parser for docbook-style option manuals: definition lists
// where each term names one option and its definition carries the
// description plus labeled Type/Default/Example/Declared-by fields.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/optsearch"
)

var _ optsearch.Parser = (*Parser)(nil)

// fieldLabels maps the labels that introduce a structured paragraph in
// an option definition to setters on the record under construction.
var fieldLabels = map[string]func(*optsearch.Option, string){
	"Type:":        func(o *optsearch.Option, v string) { o.Type = v },
	"Default:":     func(o *optsearch.Option, v string) { o.Default = v },
	"Example:":     func(o *optsearch.Option, v string) { o.Example = v },
	"Declared by:": func(o *optsearch.Option, v string) { o.DeclaredBy = v },
}

// Parser extracts option records from a variablelist-style manual.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts all option definitions from the manual. Terms without
// a parseable option name are skipped; a document with no definitions
// at all is an error so callers can tell "wrong document" from "small
// manual".
func (p *Parser) Parse(raw string) ([]*optsearch.Option, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, optsearch.Errorf(optsearch.EINVALID, "parse manual: %s", err)
	}

	var records []*optsearch.Option
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		name := optionName(dt)
		if name == "" {
			return
		}
		rec := &optsearch.Option{
			Name:   name,
			Parent: optsearch.ParentPath(name),
		}
		if dd := dt.NextFiltered("dd"); dd.Length() > 0 {
			populate(rec, dd)
		}
		if rec.Validate() == nil {
			records = append(records, rec)
		}
	})

	if len(records) == 0 {
		return nil, optsearch.Errorf(optsearch.EINVALID, "no option definitions found in manual")
	}
	return records, nil
}

// optionName pulls the option name out of a term. Manuals mark it with
// <code class="option">; plain definition lists fall back to the term
// text itself, accepted only when it looks like a dotted option path.
func optionName(dt *goquery.Selection) string {
	if code := dt.Find("code.option").First(); code.Length() > 0 {
		return strings.TrimSpace(code.Text())
	}
	name := strings.TrimSpace(dt.Text())
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return ""
	}
	return name
}

// populate fills the record from the definition body. The first
// unlabeled paragraph is the description; labeled paragraphs carry the
// structured fields. A label whose value lives in a following sibling
// (Declared by: renders its filenames in a separate block) picks up
// that sibling's text.
func populate(rec *optsearch.Option, dd *goquery.Selection) {
	var desc []string
	dd.ChildrenFiltered("p").Each(func(_ int, para *goquery.Selection) {
		text := normalize(para.Text())
		if text == "" {
			return
		}
		for label, set := range fieldLabels {
			if !strings.HasPrefix(text, label) {
				continue
			}
			value := normalize(strings.TrimPrefix(text, label))
			if value == "" {
				value = normalize(para.NextUntil("p").Text())
			}
			set(rec, value)
			return
		}
		desc = append(desc, text)
	})
	rec.Description = strings.Join(desc, " ")
}

// normalize collapses runs of whitespace, which HTML rendering
// introduces freely, into single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
