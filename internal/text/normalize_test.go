package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/voice-service/internal/text"
)

func TestNormalizeEnglishNumbers(t *testing.T) {
	t.Parallel()

	norm := text.NewNormalizer("en-US")

	cases := map[string]string{
		"I have 3 cats":        "I have three cats",
		"chapter 21":           "chapter twenty one",
		"page 105 of 999":      "page one hundred five of nine hundred ninety nine",
		"in 1984 we met":       "in one thousand nine hundred eighty four we met",
		"2000000 reasons":      "two million reasons",
		"no digits here":       "no digits here",
		"0 results":            "zero results",
		"1000000000000 stars":  "one trillion stars",
		"error code ICD10":     "error code ICD10",
		"version v2 shipped":   "version v2 shipped",
		"serial A-42-B":        "serial A-forty two-B",
		"9999999999999 grains": "9999999999999 grains",
	}

	for input, want := range cases {
		assert.Equal(t, want, norm.NormalizeNumbers(input), "input %q", input)
	}
}

func TestNormalizeSpanishNumbers(t *testing.T) {
	t.Parallel()

	norm := text.NewNormalizer("es-ES")

	cases := map[string]string{
		"tengo 3 gatos":        "tengo tres gatos",
		"página 123":           "página ciento veintitrés",
		"capítulo 21":          "capítulo veintiuno",
		"son 100 metros":       "son cien metros",
		"hay 101 opciones":     "hay ciento uno opciones",
		"en 1984 nos vimos":    "en mil novecientos ochenta y cuatro nos vimos",
		"21000 habitantes":     "veintiún mil habitantes",
		"1000000 de razones":   "un millón de razones",
		"2000000 de euros":     "dos millones de euros",
		"500 años":             "quinientos años",
		"0 resultados":         "cero resultados",
		"revisión ICD10 lista": "revisión ICD10 lista",
	}

	for input, want := range cases {
		assert.Equal(t, want, norm.NormalizeNumbers(input), "input %q", input)
	}
}

func TestNormalizeLeavesHugeNumbersAlone(t *testing.T) {
	t.Parallel()

	norm := text.NewNormalizer("es-MX")

	input := "id 99999999999999999999 registrado"
	assert.Equal(t, input, norm.NormalizeNumbers(input))
}

func TestNormalizeLanguageSelection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dos", text.NewNormalizer("es").NormalizeNumbers("2"))
	assert.Equal(t, "two", text.NewNormalizer("en").NormalizeNumbers("2"))
	assert.Equal(t, "two", text.NewNormalizer("fr-FR").NormalizeNumbers("2"))
}
