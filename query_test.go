package hirezzie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		entities []string
		phrases  []string
		residual []string
		paired   bool
	}{
		{
			name:     "single subject",
			query:    "sunset beach",
			entities: []string{"sunset beach"},
			residual: []string{"sunset", "beach"},
		},
		{
			name:     "and connector",
			query:    "Olivia Rodrigo and Olivia Wilde",
			entities: []string{"Olivia Rodrigo", "Olivia Wilde"},
			residual: []string{"olivia", "rodrigo", "wilde"},
		},
		{
			name:     "comma and ampersand attached to words",
			query:    "Beyoncé, Rihanna & Adele",
			entities: []string{"Beyoncé", "Rihanna", "Adele"},
			residual: []string{"beyoncé", "rihanna", "adele"},
		},
		{
			name:     "ft. connector",
			query:    "Drake ft. Rihanna",
			entities: []string{"Drake", "Rihanna"},
			residual: []string{"drake", "rihanna"},
		},
		{
			name:     "versus",
			query:    "Federer versus Nadal",
			entities: []string{"Federer", "Nadal"},
			residual: []string{"federer", "nadal"},
		},
		{
			name:     "four tokens paired 2+2",
			query:    "Taylor Swift Travis Kelce",
			entities: []string{"Taylor Swift", "Travis Kelce"},
			residual: []string{"taylor", "swift", "travis", "kelce"},
			paired:   true,
		},
		{
			name:     "three tokens paired 2+1",
			query:    "Zendaya Tom Holland",
			entities: []string{"Zendaya Tom", "Holland"},
			residual: []string{"zendaya", "tom", "holland"},
			paired:   true,
		},
		{
			name:     "quoted phrase keeps connector inside",
			query:    `"Simon and Garfunkel" concert`,
			entities: []string{"Simon and Garfunkel concert"},
			phrases:  []string{"Simon and Garfunkel"},
			residual: []string{"concert"},
		},
		{
			name:     "curly quotes",
			query:    "“golden gate” bridge fog",
			entities: []string{"golden gate bridge fog"},
			phrases:  []string{"golden gate"},
			residual: []string{"bridge", "fog"},
		},
		{
			name:     "stop words dropped from residual terms",
			query:    "Eiffel Tower at night",
			entities: []string{"Eiffel Tower", "at night"},
			residual: []string{"eiffel", "tower", "night"},
			paired:   true,
		},
		{
			name:     "duplicate entities collapse",
			query:    "Adele and adele",
			entities: []string{"Adele"},
			residual: []string{"adele"},
		},
		{
			name:  "empty",
			query: "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Analyze(tt.query)
			assert.Equal(t, tt.entities, got.Entities)
			assert.Equal(t, tt.phrases, got.Phrases)
			assert.Equal(t, tt.residual, got.ResidualTerms)
			assert.Equal(t, tt.paired, got.Paired)
		})
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	t.Parallel()

	q := "Olivia Rodrigo and Olivia Wilde"
	assert.Equal(t, Analyze(q), Analyze(q))
}

func TestAnalyzerVariants(t *testing.T) {
	t.Parallel()

	q := "Taylor Swift Travis Kelce"

	got := HeuristicAnalyzer{NoPairing: true}.Analyze(q)
	assert.Equal(t, []string{"Taylor Swift Travis Kelce"}, got.Entities)
	assert.False(t, got.IsMultiEntity())

	got = ConnectorAnalyzer{}.Analyze(q)
	assert.Equal(t, []string{"Taylor Swift Travis Kelce"}, got.Entities)

	got = ConnectorAnalyzer{}.Analyze("Taylor Swift and Travis Kelce")
	assert.Equal(t, []string{"Taylor Swift", "Travis Kelce"}, got.Entities)
	assert.True(t, got.IsMultiEntity())
}

func TestPairingLimits(t *testing.T) {
	t.Parallel()

	assert.Len(t, Analyze("one two three four five six seven").Entities, 1)
	got := Analyze("aa bb cc dd ee ff")
	assert.Equal(t, []string{"aa bb cc", "dd ee ff"}, got.Entities)
}

func TestRefineQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		rewrites map[string]string
		strict   bool
		want     string
	}{
		{
			name:   "connector query quotes each multi-word entity",
			query:  "Olivia Rodrigo and Olivia Wilde",
			strict: true,
			want:   `"Olivia Rodrigo" "Olivia Wilde"`,
		},
		{
			name:   "connector query relaxed is left alone",
			query:  "Olivia Rodrigo and Olivia Wilde",
			strict: false,
			want:   "Olivia Rodrigo and Olivia Wilde",
		},
		{
			name:   "paired query is not quoted",
			query:  "Taylor Swift Travis Kelce",
			strict: true,
			want:   "Taylor Swift Travis Kelce",
		},
		{
			name:   "single word entities stay bare",
			query:  "Drake & Rihanna",
			strict: true,
			want:   "Drake Rihanna",
		},
		{
			name:   "relaxed strips quotes",
			query:  `"golden gate"   bridge`,
			strict: false,
			want:   "golden gate bridge",
		},
		{
			name:     "rewrite wins",
			query:    "Queen  Concert",
			rewrites: map[string]string{"queen concert": `"Queen" band live concert`},
			strict:   true,
			want:     `"Queen" band live concert`,
		},
		{
			name:     "relaxed rewrite is unquoted",
			query:    "queen concert",
			rewrites: map[string]string{"queen concert": `"Queen" band live concert`},
			strict:   false,
			want:     "Queen band live concert",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := RefineQuery(tt.query, Analyze(tt.query), tt.rewrites, tt.strict)
			assert.Equal(t, tt.want, got)
		})
	}
}
