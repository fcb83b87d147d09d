package matching

import "regexp"

// CategoryRule binds a merchant category to the name patterns that identify
// it and the ledger account codes bookkeeping expects for it.
type CategoryRule struct {
	Category     string
	Patterns     []*regexp.Regexp
	AccountCodes []string
}

// Taxonomy is an injected, ordered lookup table from merchant names to
// expected account codes. Rule order is significant: the first matching
// pattern wins, so classification stays deterministic.
type Taxonomy struct {
	rules []CategoryRule
}

func NewTaxonomy(rules []CategoryRule) *Taxonomy {
	copied := make([]CategoryRule, len(rules))
	copy(copied, rules)
	return &Taxonomy{rules: copied}
}

// Classify returns the category rule matching the merchant name, or nil if
// the merchant falls outside the taxonomy.
func (t *Taxonomy) Classify(merchantName string) *CategoryRule {
	for i := range t.rules {
		for _, pattern := range t.rules[i].Patterns {
			if pattern.MatchString(merchantName) {
				return &t.rules[i]
			}
		}
	}
	return nil
}

// DefaultTaxonomy covers the corporate-card merchant categories seen in the
// Korean card feeds, mapped to their expense account groups.
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy([]CategoryRule{
		{
			Category:     "TAXI",
			Patterns:     []*regexp.Regexp{regexp.MustCompile(`(?i)(택시|TAXI|대리운전)`)},
			AccountCodes: []string{"51110", "51111"},
		},
		{
			Category:     "MEAL",
			Patterns:     []*regexp.Regexp{regexp.MustCompile(`(?i)(식당|레스토랑|김밥|분식|치킨|피자|카페|커피|RESTAURANT|CAFE)`)},
			AccountCodes: []string{"51210", "51211"},
		},
		{
			Category:     "FUEL",
			Patterns:     []*regexp.Regexp{regexp.MustCompile(`(?i)(주유소|충전소|GS칼텍스|SK에너지|현대오일뱅크|S-OIL)`)},
			AccountCodes: []string{"51310", "51311"},
		},
		{
			Category:     "HOTEL",
			Patterns:     []*regexp.Regexp{regexp.MustCompile(`(?i)(호텔|모텔|펜션|리조트|HOTEL|RESORT)`)},
			AccountCodes: []string{"51410", "51411"},
		},
		{
			Category:     "OFFICE",
			Patterns:     []*regexp.Regexp{regexp.MustCompile(`(?i)(문구|사무용품|오피스|복사|인쇄)`)},
			AccountCodes: []string{"51510", "51511"},
		},
	})
}
