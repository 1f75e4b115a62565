package domain

import "strings"

// BankInformationStatus is the validation status of banking details.
type BankInformationStatus string

const (
	BankInformationAccepted BankInformationStatus = "ACCEPTED"
	BankInformationRejected BankInformationStatus = "REJECTED"
	BankInformationDraft    BankInformationStatus = "DRAFT"
)

// ApplicationState is the state of a Démarches Simplifiées application.
type ApplicationState string

const (
	ApplicationClosed              ApplicationState = "closed"
	ApplicationRefused             ApplicationState = "refused"
	ApplicationWithoutContinuation ApplicationState = "without_continuation"
	ApplicationReceived            ApplicationState = "received"
	ApplicationInitiated           ApplicationState = "initiated"
)

// AllApplicationStates lists every state a banking provider may accept.
var AllApplicationStates = []ApplicationState{
	ApplicationClosed,
	ApplicationRefused,
	ApplicationWithoutContinuation,
	ApplicationReceived,
	ApplicationInitiated,
}

// StatusFromApplicationState maps an application state to a bank information status.
func StatusFromApplicationState(state ApplicationState) (BankInformationStatus, error) {
	switch state {
	case ApplicationRefused, ApplicationWithoutContinuation:
		return BankInformationRejected, nil
	case ApplicationClosed:
		return BankInformationAccepted, nil
	case ApplicationReceived, ApplicationInitiated:
		return BankInformationDraft, nil
	default:
		return "", &BusinessRuleError{Rule: "application_state", Message: "unknown application state " + string(state)}
	}
}

// BankInformation holds IBAN/BIC attached to an offerer or a venue.
// IDAtProviders is the application id.
type BankInformation struct {
	SyncMeta

	ID            int64
	OffererID     *int64
	VenueID       *int64
	ApplicationID int64
	IBAN          *string
	BIC           *string
	Status        BankInformationStatus
}

func (b *BankInformation) Kind() EntityKind { return KindBankInformation }
func (b *BankInformation) LocalID() int64   { return b.ID }
func (b *BankInformation) Meta() *SyncMeta  { return &b.SyncMeta }

// Clone implements Entity.
func (b *BankInformation) Clone() Entity {
	c := *b
	c.FieldsUpdated = cloneFieldSet(b.FieldsUpdated)

	return &c
}

// RestorePinned implements Entity.
func (b *BankInformation) RestorePinned(previous Entity) {
	prev, ok := previous.(*BankInformation)
	if !ok {
		return
	}
	b.FieldsUpdated = cloneFieldSet(prev.FieldsUpdated)
	for f := range prev.FieldsUpdated {
		switch f {
		case FieldIBAN:
			b.IBAN = prev.IBAN
		case FieldBIC:
			b.BIC = prev.BIC
		case FieldStatus:
			b.Status = prev.Status
		}
	}
}

// FormatIBANOrBIC upper-cases and strips spaces from a raw banking identifier.
// Returns nil for an empty value.
func FormatIBANOrBIC(raw string) *string {
	v := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if v == "" {
		return nil
	}

	return &v
}
