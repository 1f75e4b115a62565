package demarches

import (
	"time"

	"provider-sync-service/internal/domain"
)

// PageSize is the number of applications requested per listing page.
const PageSize = 100

// Field labels read from application forms.
const (
	LabelIBAN        = "IBAN"
	LabelBIC         = "BIC"
	LabelAffiliation = "Affiliation du RIB"
	LabelVenueID     = "Identifiant du lieu"
	LabelSiret       = "SIRET"
)

// ListResponse represents one page of the procedure application list.
type ListResponse struct {
	Dossiers   []ApplicationSummary `json:"dossiers"`
	Pagination Pagination           `json:"pagination"`
}

// ApplicationSummary is an application as listed.
type ApplicationSummary struct {
	ID        int64                   `json:"id"`
	UpdatedAt time.Time               `json:"updated_at"`
	State     domain.ApplicationState `json:"state"`
}

// Pagination holds pagination info.
type Pagination struct {
	Page           int `json:"page"`
	ResultsPerPage int `json:"resultats_par_page"`
	NumberOfPages  int `json:"nombre_de_page"`
}

// DetailResponse wraps one application.
type DetailResponse struct {
	Dossier Application `json:"dossier"`
}

// Application is the full application form.
type Application struct {
	ID            int64                   `json:"id"`
	UpdatedAt     time.Time               `json:"updated_at"`
	State         domain.ApplicationState `json:"state"`
	Entreprise    Entreprise              `json:"entreprise"`
	Etablissement Etablissement           `json:"etablissement"`
	Champs        []Champ                 `json:"champs"`
}

// Entreprise is the applicant legal entity.
type Entreprise struct {
	Siren string `json:"siren"`
}

// Etablissement is the applicant establishment.
type Etablissement struct {
	Siret string `json:"siret"`
}

// Champ is one answered form field.
type Champ struct {
	Value       string `json:"value"`
	TypeDeChamp struct {
		Libelle string `json:"libelle"`
	} `json:"type_de_champ"`
}

// Field returns the value of the field labeled label, or "".
func (a Application) Field(label string) string {
	for _, c := range a.Champs {
		if c.TypeDeChamp.Libelle == label {
			return c.Value
		}
	}
	return ""
}
