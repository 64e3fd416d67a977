// Package text provides text normalization for synthesis input.
//
// Engines pronounce digit strings poorly, so isolated integers are
// expanded to words before dispatch. Numbers embedded in identifiers
// (for example "ICD10" or "v2") are left untouched.
package text

import (
	"regexp"
	"strconv"
	"strings"
)

// isolatedNumberPattern matches runs of digits not attached to letters,
// underscores, or other digits.
const isolatedNumberPattern = `\b\d+\b`

// maxSpeakableNumber is the largest integer converted to words. Anything
// larger stays in digit form to avoid absurdly long spoken output.
const maxSpeakableNumber = 1_000_000_000_000

// Scale boundaries shared by both language converters.
const (
	baseTen      = 10
	baseTwenty   = 20
	baseHundred  = 100
	baseThousand = 1000
	baseMillion  = 1_000_000
	baseBillion  = 1_000_000_000
)

// Normalizer expands isolated integers into words for a single language.
// The zero value is not usable; construct with NewNormalizer.
type Normalizer struct {
	numberPattern *regexp.Regexp
	convert       func(int64) string
}

// NewNormalizer creates a normalizer for the given BCP-47 language tag.
// Spanish tags get Spanish number words; everything else gets English.
func NewNormalizer(lang string) *Normalizer {
	convert := englishWords
	if strings.HasPrefix(strings.ToLower(lang), "es") {
		convert = spanishWords
	}

	return &Normalizer{
		numberPattern: regexp.MustCompile(isolatedNumberPattern),
		convert:       convert,
	}
}

// NormalizeNumbers replaces each isolated integer in text with its word
// form. Integers above maxSpeakableNumber or failing to parse pass
// through unchanged.
func (n *Normalizer) NormalizeNumbers(text string) string {
	if !strings.ContainsAny(text, "0123456789") {
		return text
	}

	return n.numberPattern.ReplaceAllStringFunc(text, func(raw string) string {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return raw
		}

		if value > maxSpeakableNumber {
			return raw
		}

		return n.convert(value)
	})
}

// englishWords converts a non-negative integer into English words.
func englishWords(number int64) string {
	if number == 0 {
		return "zero"
	}

	var parts []string

	scales := []struct {
		value int64
		name  string
	}{
		{maxSpeakableNumber, "trillion"},
		{baseBillion, "billion"},
		{baseMillion, "million"},
		{baseThousand, "thousand"},
	}

	remaining := number
	for _, scale := range scales {
		if remaining >= scale.value {
			parts = append(parts, englishUnderThousand(remaining/scale.value)+" "+scale.name)
			remaining %= scale.value
		}
	}

	if remaining > 0 {
		parts = append(parts, englishUnderThousand(remaining))
	}

	return strings.Join(parts, " ")
}

var englishOnes = []string{
	"", "one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine",
}

var englishTeens = []string{
	"ten", "eleven", "twelve", "thirteen", "fourteen",
	"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
}

var englishTens = []string{
	"", "", "twenty", "thirty", "forty", "fifty",
	"sixty", "seventy", "eighty", "ninety",
}

func englishUnderThousand(number int64) string {
	var parts []string

	if number >= baseHundred {
		parts = append(parts, englishOnes[number/baseHundred]+" hundred")
		number %= baseHundred
	}

	switch {
	case number == 0:
	case number < baseTen:
		parts = append(parts, englishOnes[number])
	case number < baseTwenty:
		parts = append(parts, englishTeens[number-baseTen])
	default:
		word := englishTens[number/baseTen]
		if number%baseTen > 0 {
			word += " " + englishOnes[number%baseTen]
		}

		parts = append(parts, word)
	}

	return strings.Join(parts, " ")
}

// spanishWords converts a non-negative integer into Spanish words,
// applying the standard apocopes before mil and millón ("veintiún mil",
// "un millón").
func spanishWords(number int64) string {
	if number == 0 {
		return "cero"
	}

	var parts []string

	remaining := number

	if remaining >= maxSpeakableNumber {
		parts = append(parts, spanishScale(remaining/maxSpeakableNumber, "billón", "billones"))
		remaining %= maxSpeakableNumber
	}

	if remaining >= baseMillion {
		parts = append(parts, spanishScale(remaining/baseMillion, "millón", "millones"))
		remaining %= baseMillion
	}

	if remaining >= baseThousand {
		thousands := remaining / baseThousand
		if thousands == 1 {
			parts = append(parts, "mil")
		} else {
			parts = append(parts, spanishUnderThousand(thousands, true)+" mil")
		}

		remaining %= baseThousand
	}

	if remaining > 0 {
		parts = append(parts, spanishUnderThousand(remaining, false))
	}

	return strings.Join(parts, " ")
}

// spanishScale renders a millón/billón group: "un millón", "dos millones".
func spanishScale(count int64, singular, plural string) string {
	if count == 1 {
		return "un " + singular
	}

	return spanishUnderThousand(count, true) + " " + plural
}

var spanishUnits = []string{
	"", "uno", "dos", "tres", "cuatro", "cinco",
	"seis", "siete", "ocho", "nueve",
}

var spanishTenToTwentyNine = []string{
	"diez", "once", "doce", "trece", "catorce", "quince",
	"dieciséis", "diecisiete", "dieciocho", "diecinueve",
	"veinte", "veintiuno", "veintidós", "veintitrés", "veinticuatro",
	"veinticinco", "veintiséis", "veintisiete", "veintiocho", "veintinueve",
}

var spanishTens = []string{
	"", "", "", "treinta", "cuarenta", "cincuenta",
	"sesenta", "setenta", "ochenta", "noventa",
}

var spanishHundreds = []string{
	"", "ciento", "doscientos", "trescientos", "cuatrocientos",
	"quinientos", "seiscientos", "setecientos", "ochocientos", "novecientos",
}

// spanishUnderThousand renders 1..999. With apocope set, "uno" becomes
// "un" and "veintiuno" becomes "veintiún" for use before mil/millón.
func spanishUnderThousand(number int64, apocope bool) string {
	var parts []string

	if number == baseHundred {
		return "cien"
	}

	if number >= baseHundred {
		parts = append(parts, spanishHundreds[number/baseHundred])
		number %= baseHundred
	}

	switch {
	case number == 0:
	case number < baseTen:
		word := spanishUnits[number]
		if apocope && number == 1 {
			word = "un"
		}

		parts = append(parts, word)
	case number < 30:
		word := spanishTenToTwentyNine[number-baseTen]
		if apocope && number == 21 {
			word = "veintiún"
		}

		parts = append(parts, word)
	default:
		word := spanishTens[number/baseTen]
		if unit := number % baseTen; unit > 0 {
			unitWord := spanishUnits[unit]
			if apocope && unit == 1 {
				unitWord = "un"
			}

			word += " y " + unitWord
		}

		parts = append(parts, word)
	}

	return strings.Join(parts, " ")
}
