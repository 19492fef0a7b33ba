// Package extract turns fetched the-numbers pages into movie records.
//
// Every lookup here is find-or-default: a missing region, heading, table or
// cell yields an empty selection and the caller substitutes the zero value.
// Nothing in this package returns an error for absent markup.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const headingSelector = "h1, h2, h3, h4, h5, h6"

// Parse builds a navigable document from raw HTML.
func Parse(html []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// text returns the trimmed text of s with non-breaking spaces collapsed.
func text(s *goquery.Selection) string {
	return strings.TrimSpace(strings.ReplaceAll(s.Text(), "\u00a0", " "))
}

// findHeading returns the first heading under scope whose text contains marker.
func findHeading(scope *goquery.Selection, marker string) (*goquery.Selection, bool) {
	var found *goquery.Selection
	scope.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(h.Text(), marker) {
			found = h
			return false
		}
		return true
	})
	return found, found != nil
}

// nextTable returns the first table following start in document order,
// climbing out of wrapper elements when start has no later siblings.
func nextTable(start *goquery.Selection) (*goquery.Selection, bool) {
	for cur := start; cur.Length() > 0 && !cur.Is("body, html"); cur = cur.Parent() {
		for sib := cur.Next(); sib.Length() > 0; sib = sib.Next() {
			if sib.Is("table") {
				return sib, true
			}
			if nested := sib.Find("table").First(); nested.Length() > 0 {
				return nested, true
			}
		}
	}
	return nil, false
}

// nextParagraph returns the first paragraph-like sibling after start.
func nextParagraph(start *goquery.Selection) (*goquery.Selection, bool) {
	p := start.NextAllFiltered("p, div").First()
	return p, p.Length() > 0
}

// rows returns the table's rows without descending into nested tables.
func rows(table *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.ParentsFiltered("table").First().IsSelection(table) {
			out = append(out, tr)
		}
	})
	return out
}

// cells returns the trimmed texts of the row's data cells.
func cells(row *goquery.Selection) []string {
	var out []string
	row.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
		out = append(out, text(td))
	})
	return out
}

// labelValue splits a two-column row into its normalised label and value.
func labelValue(row *goquery.Selection) (string, *goquery.Selection, bool) {
	tds := row.ChildrenFiltered("td")
	if tds.Length() < 2 {
		return "", nil, false
	}
	return text(tds.Eq(0)), tds.Eq(1), true
}

// beforeFirst returns the trimmed text preceding the first sep, or all of s.
func beforeFirst(s, sep string) string {
	before, _, _ := strings.Cut(s, sep)
	return strings.TrimSpace(before)
}
