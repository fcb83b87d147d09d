package matching

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTaxonomyClassification(t *testing.T) {
	taxonomy := DefaultTaxonomy()

	cases := map[string]string{
		"카카오택시":         "TAXI",
		"Seoul TAXI":    "TAXI",
		"한솥도시락 식당":      "MEAL",
		"스타벅스 커피":       "MEAL",
		"GS칼텍스 역삼주유소":   "FUEL",
		"롯데호텔 서울":       "HOTEL",
		"Grand HOTEL":   "HOTEL",
		"오피스디포 문구":      "OFFICE",
	}
	for merchant, want := range cases {
		rule := taxonomy.Classify(merchant)
		require.NotNil(t, rule, "merchant %q should classify", merchant)
		assert.Equal(t, want, rule.Category, "merchant %q", merchant)
		assert.NotEmpty(t, rule.AccountCodes)
	}

	assert.Nil(t, taxonomy.Classify("무명상회"))
	assert.Nil(t, taxonomy.Classify(""))
}

func TestTaxonomyFirstRuleWins(t *testing.T) {
	taxonomy := NewTaxonomy([]CategoryRule{
		{
			Category:     "FIRST",
			Patterns:     []*regexp.Regexp{regexp.MustCompile(`배달`)},
			AccountCodes: []string{"51210"},
		},
		{
			Category:     "SECOND",
			Patterns:     []*regexp.Regexp{regexp.MustCompile(`배달|퀵`)},
			AccountCodes: []string{"51610"},
		},
	})

	rule := taxonomy.Classify("배달의민족")
	require.NotNil(t, rule)
	assert.Equal(t, "FIRST", rule.Category)

	rule = taxonomy.Classify("퀵서비스")
	require.NotNil(t, rule)
	assert.Equal(t, "SECOND", rule.Category)
}

func TestNewTaxonomyCopiesRules(t *testing.T) {
	rules := []CategoryRule{
		{
			Category:     "TAXI",
			Patterns:     []*regexp.Regexp{regexp.MustCompile(`택시`)},
			AccountCodes: []string{"51110"},
		},
	}
	taxonomy := NewTaxonomy(rules)

	rules[0].Category = "CHANGED"
	rule := taxonomy.Classify("서울택시")
	require.NotNil(t, rule)
	assert.Equal(t, "TAXI", rule.Category)
}
