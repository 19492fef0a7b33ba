package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
)

// Listing reads a year listing page into an ordered title -> detail path
// mapping. The first table row is a header and is always skipped; rows without
// a data cell or without a link inside it are ignored.
func Listing(doc *goquery.Document) *movie.Listing {
	listing := movie.NewListing()
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return listing
	}
	for i, row := range rows(table) {
		if i == 0 {
			continue
		}
		cell := row.Find("td.data").First()
		if cell.Length() == 0 {
			continue
		}
		link := cell.Find("a").First()
		if link.Length() == 0 {
			continue
		}
		href, _ := link.Attr("href")
		listing.Put(strings.TrimSpace(link.Text()), href)
	}
	return listing
}
