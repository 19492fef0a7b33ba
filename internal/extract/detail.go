package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/boxoffice-crawler/internal/movie"
)

const (
	summarySelector     = "#summary"
	castAndCrewSelector = "#cast-and-crew"
	creditSeparator     = " | "
)

// detailFields is the fixed, ordered list of label prefixes read from the
// Movie Details table. The first matching prefix wins.
var detailFields = []struct {
	prefix string
	set    func(*movie.Record, *goquery.Selection)
}{
	{"Domestic Releases:", func(r *movie.Record, v *goquery.Selection) { r.DomesticReleaseDate = beforeFirst(text(v), "(") }},
	{"Running Time:", func(r *movie.Record, v *goquery.Selection) { r.RunningTime = text(v) }},
	{"Keywords:", func(r *movie.Record, v *goquery.Selection) { r.Keywords = joinLinks(v) }},
	{"Source:", func(r *movie.Record, v *goquery.Selection) { r.Source = text(v) }},
	{"Genre:", func(r *movie.Record, v *goquery.Selection) { r.Genre = text(v) }},
	{"Production Method:", func(r *movie.Record, v *goquery.Selection) { r.ProductionMethod = text(v) }},
	{"Creative Type:", func(r *movie.Record, v *goquery.Selection) { r.CreativeType = text(v) }},
	{"Production/Financing Companies:", func(r *movie.Record, v *goquery.Selection) {
		r.ProductionFinancingCompanies = text(v)
	}},
	{"Production Countries:", func(r *movie.Record, v *goquery.Selection) { r.ProductionCountries = text(v) }},
	{"Languages:", func(r *movie.Record, v *goquery.Selection) { r.Languages = text(v) }},
}

// Details reads a movie detail page (mobile layout) into a Record. MovieURL
// and MovieTitle are left for the caller. Absent sections leave their fields
// empty; the function never fails.
func Details(doc *goquery.Document) movie.Record {
	rec := movie.NewRecord()
	root := doc.Selection
	summary(root, &rec)
	details(root, &rec)
	castAndCrew(root, &rec)
	return rec
}

func summary(root *goquery.Selection, rec *movie.Record) {
	region := root.Find(summarySelector).First()
	if region.Length() == 0 {
		return
	}
	if h, ok := findHeading(region, "Synopsis"); ok {
		if p, ok := nextParagraph(h); ok {
			rec.Synopsis = beforeFirst(text(p), "Metrics")
		}
	}

	table := region.Find("table").FilterFunction(func(_ int, t *goquery.Selection) bool {
		return !isRatingsTable(t)
	}).First()
	if table.Length() == 0 {
		return
	}
	for _, row := range rows(table) {
		label, value, ok := labelValue(row)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(label, "Opening Weekend:"):
			rec.OpeningWeekend, rec.PercentOfTotalGross = splitOpeningWeekend(text(value))
		case strings.Contains(label, "Production Budget:"):
			rec.ProductionBudget = text(value)
		}
	}
}

func isRatingsTable(t *goquery.Selection) bool {
	id, _ := t.Attr("id")
	class, _ := t.Attr("class")
	return strings.Contains(strings.ToLower(id+" "+class), "rating")
}

// splitOpeningWeekend splits "AMOUNT (PCT of total gross)" into its amount and
// percentage. Without a parenthesis the whole value is the amount.
func splitOpeningWeekend(value string) (string, string) {
	amount, rest, found := strings.Cut(value, "(")
	if !found {
		return strings.TrimSpace(value), ""
	}
	inner, _, _ := strings.Cut(rest, ")")
	pct := ""
	if fields := strings.Fields(inner); len(fields) > 0 {
		pct = fields[0]
	}
	return strings.TrimSpace(amount), pct
}

func details(root *goquery.Selection, rec *movie.Record) {
	h, ok := findHeading(root, "Movie Details")
	if !ok {
		return
	}
	table, ok := nextTable(h)
	if !ok {
		return
	}
	for _, row := range rows(table) {
		label, value, ok := labelValue(row)
		if !ok {
			continue
		}
		for _, field := range detailFields {
			if strings.HasPrefix(label, field.prefix) {
				field.set(rec, value)
				break
			}
		}
	}
}

// joinLinks comma-joins the link texts of a cell, falling back to its text.
func joinLinks(cell *goquery.Selection) string {
	links := cell.Find("a")
	if links.Length() == 0 {
		return text(cell)
	}
	parts := make([]string, 0, links.Length())
	links.Each(func(_ int, a *goquery.Selection) {
		if t := text(a); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, ", ")
}

func castAndCrew(root *goquery.Selection, rec *movie.Record) {
	region := root.Find(castAndCrewSelector).First()
	if region.Length() == 0 {
		return
	}
	if h, ok := findHeading(region, "Leading Cast"); ok {
		if table, ok := nextTable(h); ok {
			rec.LeadEnsembleMembers = leadEnsemble(table)
		}
	}
	if h, ok := findHeading(region, "Production and Technical Credits"); ok {
		if table, ok := nextTable(h); ok {
			lines := creditLines(table)
			if len(lines) > 0 {
				// Only the first collected line is structured.
				rec.ProductionTechnicalCredits = GroupCredits(strings.Split(lines[0], creditSeparator))
			}
		}
	}
}

func leadEnsemble(table *goquery.Selection) []movie.CastMember {
	members := []movie.CastMember{}
	for _, row := range rows(table) {
		c := cells(row)
		if len(c) < 3 {
			continue
		}
		members = append(members, movie.CastMember{Actor: c[0], Role: c[2]})
	}
	return members
}

// creditLines joins each row's cells with the credit separator, stopping at
// the first row that carries a horizontal rule.
func creditLines(table *goquery.Selection) []string {
	var lines []string
	for _, row := range rows(table) {
		if row.Find("hr").Length() > 0 {
			break
		}
		c := cells(row)
		if len(c) == 0 {
			continue
		}
		lines = append(lines, strings.Join(c, creditSeparator))
	}
	return lines
}

// GroupCredits groups a flat (name, filler, role) token stream by role. A
// trailing name without a role is filed under the empty role.
func GroupCredits(tokens []string) movie.Credits {
	credits := movie.Credits{}
	for i := 0; i < len(tokens); i += 3 {
		role := ""
		if i+2 < len(tokens) {
			role = tokens[i+2]
		}
		credits[role] = append(credits[role], tokens[i])
	}
	return credits
}
