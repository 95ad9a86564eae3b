package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// folder case-folds Unicode text so identifiers and keyword matching behave
// the same for non-ASCII product names.
var folder = cases.Fold()

// Target is the product being analyzed: a company plus a product name and the
// search queries used to discover videos about it.
type Target struct {
	Company       string   `json:"company" yaml:"company"`
	Product       string   `json:"product" yaml:"product"`
	SearchQueries []string `json:"search_queries" yaml:"search_queries"`
}

// NewTarget builds a Target, generating a default query set when none is
// provided. SearchQueries is never empty after construction.
func NewTarget(company, product string, queries []string) Target {
	t := Target{
		Company:       strings.TrimSpace(company),
		Product:       strings.TrimSpace(product),
		SearchQueries: queries,
	}
	if len(t.SearchQueries) == 0 {
		t.SearchQueries = defaultQueries(t.Company, t.Product)
	}
	return t
}

func defaultQueries(company, product string) []string {
	return []string{
		fmt.Sprintf("%s %s", product, company),
		fmt.Sprintf("%s review", product),
		fmt.Sprintf("%s %s review", company, product),
		fmt.Sprintf("%s pros and cons", product),
		fmt.Sprintf("%s price options", product),
	}
}

// Identifier returns the stable join key for this target: a case-folded,
// whitespace-collapsed function of company and product. Two targets with equal
// (company, product) always produce the same identifier.
func (t Target) Identifier() string {
	joined := t.Company + " " + t.Product
	fields := strings.Fields(folder.String(joined))
	return strings.Join(fields, "_")
}

// Keywords returns the case-folded tokens of the product and company names,
// used by discovery to filter video titles for relevance.
func (t Target) Keywords() []string {
	var kws []string
	for _, w := range strings.Fields(t.Product) {
		kws = append(kws, folder.String(w))
	}
	for _, w := range strings.Fields(t.Company) {
		kws = append(kws, folder.String(w))
	}
	return kws
}

// Fold case-folds s for case-insensitive comparison.
func Fold(s string) string {
	return folder.String(s)
}
