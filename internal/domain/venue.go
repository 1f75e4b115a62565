package domain

import "time"

// ProviderName identifies a concrete local provider implementation.
type ProviderName string

const (
	ProviderAllocineStocks                   ProviderName = "AllocineStocks"
	ProviderTiteLiveStocks                   ProviderName = "TiteLiveStocks"
	ProviderPraxielStocks                    ProviderName = "PraxielStocks"
	ProviderBankInformation                  ProviderName = "BankInformationProvider"
	ProviderVenueWithSIRETBankInformation    ProviderName = "VenueWithSIRETBankInformationProvider"
	ProviderVenueWithoutSIRETBankInformation ProviderName = "VenueWithoutSIRETBankInformationProvider"
)

// ProviderNames lists every known provider in a stable order.
var ProviderNames = []ProviderName{
	ProviderAllocineStocks,
	ProviderTiteLiveStocks,
	ProviderPraxielStocks,
	ProviderBankInformation,
	ProviderVenueWithSIRETBankInformation,
	ProviderVenueWithoutSIRETBankInformation,
}

// IsValid returns true if the name is a known provider.
func (n ProviderName) IsValid() bool {
	for _, valid := range ProviderNames {
		if n == valid {
			return true
		}
	}
	return false
}

// IsBanking reports whether the provider synchronizes bank information.
func (n ProviderName) IsBanking() bool {
	switch n {
	case ProviderBankInformation, ProviderVenueWithSIRETBankInformation, ProviderVenueWithoutSIRETBankInformation:
		return true
	default:
		return false
	}
}

// Provider is the stored record of an external data provider.
type Provider struct {
	ID         int64
	Name       string
	LocalClass ProviderName
	IsActive   bool
}

// Offerer is a legal entity owning venues.
type Offerer struct {
	ID    int64
	Name  string
	Siren string
}

// Venue is a location belonging to an offerer.
type Venue struct {
	ID                int64
	ManagingOffererID int64
	Name              string
	Siret             string
	DepartementCode   string
	BookingEmail      string
	WithdrawalDetails string
}

// VenueProvider links a venue to the provider it synchronizes from.
type VenueProvider struct {
	ID                     int64
	VenueID                int64
	ProviderID             int64
	VenueIDAtOfferProvider string
	IsActive               bool
	LastSyncDate           *time.Time

	// Allociné options.
	IsDuo      bool
	Quantity   *int
	PriceRules []PriceRule
}
