// Package movie defines the records produced by the box-office crawl.
package movie

// Link points at a single movie detail page discovered on a year listing.
type Link struct {
	Title      string
	DetailPath string
}

// Listing is an ordered title -> detail path mapping. Re-adding a title keeps
// its original position and replaces the path.
type Listing struct {
	order []string
	paths map[string]string
}

// NewListing returns an empty Listing.
func NewListing() *Listing {
	return &Listing{paths: make(map[string]string)}
}

// Put records path for title, overwriting any earlier path for the same title.
func (l *Listing) Put(title, path string) {
	if _, ok := l.paths[title]; !ok {
		l.order = append(l.order, title)
	}
	l.paths[title] = path
}

// Get returns the detail path for title.
func (l *Listing) Get(title string) (string, bool) {
	if l == nil {
		return "", false
	}
	path, ok := l.paths[title]
	return path, ok
}

// Len reports the number of distinct titles.
func (l *Listing) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// Links returns the entries in first-seen order.
func (l *Listing) Links() []Link {
	if l == nil {
		return nil
	}
	links := make([]Link, 0, len(l.order))
	for _, title := range l.order {
		links = append(links, Link{Title: title, DetailPath: l.paths[title]})
	}
	return links
}

// CastMember is one row of the leading cast table.
type CastMember struct {
	Actor string `json:"actor"`
	Role  string `json:"role"`
}

// Credits maps a role name to the people credited with it, in page order.
type Credits map[string][]string

// Record is the unit of output. Every field is always present; missing page
// sections leave the zero value in place.
type Record struct {
	Synopsis                     string       `json:"synopsis"`
	OpeningWeekend               string       `json:"opening_weekend"`
	PercentOfTotalGross          string       `json:"percent_of_total_gross"`
	ProductionBudget             string       `json:"production_budget"`
	DomesticReleaseDate          string       `json:"domestic_release_date"`
	RunningTime                  string       `json:"running_time"`
	Keywords                     string       `json:"keywords"`
	Source                       string       `json:"source"`
	Genre                        string       `json:"genre"`
	ProductionMethod             string       `json:"production_method"`
	CreativeType                 string       `json:"creative_type"`
	ProductionFinancingCompanies string       `json:"production_financing_companies"`
	ProductionCountries          string       `json:"production_countries"`
	Languages                    string       `json:"languages"`
	LeadEnsembleMembers          []CastMember `json:"lead_ensemble_members"`
	ProductionTechnicalCredits   Credits      `json:"production_technical_credits"`
	MovieURL                     string       `json:"movie_url"`
	MovieTitle                   string       `json:"movie_title"`
}

// NewRecord returns a record with every collection initialised to empty.
func NewRecord() Record {
	return Record{
		LeadEnsembleMembers:        []CastMember{},
		ProductionTechnicalCredits: Credits{},
	}
}

// Columns is the header row used for tabular output, in field order.
var Columns = []string{
	"synopsis",
	"opening_weekend",
	"percent_of_total_gross",
	"production_budget",
	"domestic_release_date",
	"running_time",
	"keywords",
	"source",
	"genre",
	"production_method",
	"creative_type",
	"production_financing_companies",
	"production_countries",
	"languages",
	"lead_ensemble_members",
	"production_technical_credits",
	"movie_url",
	"movie_title",
}

// ScalarFields returns the string-valued fields keyed by column name.
func (r Record) ScalarFields() map[string]string {
	return map[string]string{
		"synopsis":                       r.Synopsis,
		"opening_weekend":                r.OpeningWeekend,
		"percent_of_total_gross":         r.PercentOfTotalGross,
		"production_budget":              r.ProductionBudget,
		"domestic_release_date":          r.DomesticReleaseDate,
		"running_time":                   r.RunningTime,
		"keywords":                       r.Keywords,
		"source":                         r.Source,
		"genre":                          r.Genre,
		"production_method":              r.ProductionMethod,
		"creative_type":                  r.CreativeType,
		"production_financing_companies": r.ProductionFinancingCompanies,
		"production_countries":           r.ProductionCountries,
		"languages":                      r.Languages,
		"movie_url":                      r.MovieURL,
		"movie_title":                    r.MovieTitle,
	}
}
