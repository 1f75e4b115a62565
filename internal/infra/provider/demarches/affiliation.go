package demarches

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Affiliation tells whether banking details cover a whole SIREN or one SIRET.
type Affiliation int

const (
	AffiliationUnknown Affiliation = iota
	AffiliationOfferer
	AffiliationVenue
)

// Free-text choices offered by the form.
var affiliationChoices = []struct {
	choice      string
	affiliation Affiliation
}{
	{"Je souhaite utiliser ce RIB par défaut pour toute la structure (SIREN)", AffiliationOfferer},
	{"Par défaut pour tout le SIREN", AffiliationOfferer},
	{"Je souhaite utiliser ce RIB pour un lieu en particulier (SIRET)", AffiliationVenue},
	{"Pour un SIRET en particulier", AffiliationVenue},
}

// ParseAffiliation matches the applicant's choice ignoring case, accents and spacing.
func ParseAffiliation(choice string) Affiliation {
	normalized := normalizeChoice(choice)
	for _, c := range affiliationChoices {
		if normalizeChoice(c.choice) == normalized {
			return c.affiliation
		}
	}
	return AffiliationUnknown
}

// normalizeChoice folds accents and case and collapses whitespace.
func normalizeChoice(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
