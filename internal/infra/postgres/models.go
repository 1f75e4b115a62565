package postgres

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"provider-sync-service/internal/domain"
)

// SyncColumns are the provenance columns shared by synchronizable tables.
type SyncColumns struct {
	IDAtProviders              string         `gorm:"column:id_at_providers;type:varchar(100);not null;uniqueIndex"`
	LastProviderID             *int64         `gorm:"column:last_provider_id;index"`
	DateModifiedAtLastProvider *time.Time     `gorm:"column:date_modified_at_last_provider"`
	FieldsUpdated              pq.StringArray `gorm:"column:fields_updated;type:text[];not null"`
}

func syncColumnsFromDomain(m *domain.SyncMeta) SyncColumns {
	cols := SyncColumns{
		IDAtProviders: m.IDAtProviders,
		FieldsUpdated: pq.StringArray(m.FieldsUpdated.Strings()),
	}
	if m.LastProviderID != 0 {
		id := m.LastProviderID
		cols.LastProviderID = &id
	}
	if !m.DateModifiedAtLastProvider.IsZero() {
		date := m.DateModifiedAtLastProvider.UTC()
		cols.DateModifiedAtLastProvider = &date
	}

	return cols
}

func (c SyncColumns) toDomain() domain.SyncMeta {
	meta := domain.SyncMeta{
		IDAtProviders: c.IDAtProviders,
		FieldsUpdated: domain.FieldSetFromStrings(c.FieldsUpdated),
	}
	if c.LastProviderID != nil {
		meta.LastProviderID = *c.LastProviderID
	}
	if c.DateModifiedAtLastProvider != nil {
		meta.DateModifiedAtLastProvider = c.DateModifiedAtLastProvider.UTC()
	}

	return meta
}

// ProductModel is the GORM model for the products table.
type ProductModel struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`
	SyncColumns

	Name            string            `gorm:"type:varchar(140);not null"`
	Type            string            `gorm:"type:varchar(50);not null;index"`
	Description     string            `gorm:"type:text"`
	DurationMinutes *int              `gorm:"column:duration_minutes"`
	ExtraData       datatypes.JSONMap `gorm:"type:jsonb"`
	ThumbCount      int               `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for ProductModel.
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts ProductModel to domain.Product.
func (m *ProductModel) ToDomain() *domain.Product {
	return &domain.Product{
		SyncMeta:        m.SyncColumns.toDomain(),
		ID:              m.ID,
		Name:            m.Name,
		Type:            domain.EventType(m.Type),
		Description:     m.Description,
		DurationMinutes: m.DurationMinutes,
		ExtraData:       map[string]any(m.ExtraData),
		ThumbCount:      m.ThumbCount,
	}
}

func productFromDomain(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:              p.ID,
		SyncColumns:     syncColumnsFromDomain(&p.SyncMeta),
		Name:            p.Name,
		Type:            string(p.Type),
		Description:     p.Description,
		DurationMinutes: p.DurationMinutes,
		ExtraData:       datatypes.JSONMap(p.ExtraData),
		ThumbCount:      p.ThumbCount,
	}
}

// OfferModel is the GORM model for the offers table.
type OfferModel struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`
	SyncColumns

	VenueID           int64             `gorm:"not null;index"`
	ProductID         int64             `gorm:"not null;index"`
	Name              string            `gorm:"type:varchar(140);not null"`
	Type              string            `gorm:"type:varchar(50);not null"`
	Description       string            `gorm:"type:text"`
	DurationMinutes   *int              `gorm:"column:duration_minutes"`
	ExtraData         datatypes.JSONMap `gorm:"type:jsonb"`
	BookingEmail      string            `gorm:"type:varchar(120)"`
	WithdrawalDetails string            `gorm:"type:text"`
	IsDuo             bool              `gorm:"not null"`
	IsActive          bool              `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for OfferModel.
func (OfferModel) TableName() string {
	return "offers"
}

// ToDomain converts OfferModel to domain.Offer.
func (m *OfferModel) ToDomain() *domain.Offer {
	return &domain.Offer{
		SyncMeta:          m.SyncColumns.toDomain(),
		ID:                m.ID,
		VenueID:           m.VenueID,
		ProductID:         m.ProductID,
		Name:              m.Name,
		Type:              domain.EventType(m.Type),
		Description:       m.Description,
		DurationMinutes:   m.DurationMinutes,
		ExtraData:         map[string]any(m.ExtraData),
		BookingEmail:      m.BookingEmail,
		WithdrawalDetails: m.WithdrawalDetails,
		IsDuo:             m.IsDuo,
		IsActive:          m.IsActive,
	}
}

func offerFromDomain(o *domain.Offer) *OfferModel {
	return &OfferModel{
		ID:                o.ID,
		SyncColumns:       syncColumnsFromDomain(&o.SyncMeta),
		VenueID:           o.VenueID,
		ProductID:         o.ProductID,
		Name:              o.Name,
		Type:              string(o.Type),
		Description:       o.Description,
		DurationMinutes:   o.DurationMinutes,
		ExtraData:         datatypes.JSONMap(o.ExtraData),
		BookingEmail:      o.BookingEmail,
		WithdrawalDetails: o.WithdrawalDetails,
		IsDuo:             o.IsDuo,
		IsActive:          o.IsActive,
	}
}

// StockModel is the GORM model for the stocks table.
type StockModel struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`
	SyncColumns

	OfferID              int64      `gorm:"not null;index"`
	Price                float64    `gorm:"type:decimal(10,2);not null"`
	Quantity             *int       `gorm:"column:quantity"`
	BeginningDatetime    *time.Time `gorm:"column:beginning_datetime;index"`
	EndDatetime          *time.Time `gorm:"column:end_datetime"`
	BookingLimitDatetime *time.Time `gorm:"column:booking_limit_datetime"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for StockModel.
func (StockModel) TableName() string {
	return "stocks"
}

// ToDomain converts StockModel to domain.Stock.
func (m *StockModel) ToDomain() *domain.Stock {
	return &domain.Stock{
		SyncMeta:             m.SyncColumns.toDomain(),
		ID:                   m.ID,
		OfferID:              m.OfferID,
		Price:                m.Price,
		Quantity:             m.Quantity,
		BeginningDatetime:    utcPtr(m.BeginningDatetime),
		EndDatetime:          utcPtr(m.EndDatetime),
		BookingLimitDatetime: utcPtr(m.BookingLimitDatetime),
	}
}

func stockFromDomain(s *domain.Stock) *StockModel {
	return &StockModel{
		ID:                   s.ID,
		SyncColumns:          syncColumnsFromDomain(&s.SyncMeta),
		OfferID:              s.OfferID,
		Price:                s.Price,
		Quantity:             s.Quantity,
		BeginningDatetime:    s.BeginningDatetime,
		EndDatetime:          s.EndDatetime,
		BookingLimitDatetime: s.BookingLimitDatetime,
	}
}

// BankInformationModel is the GORM model for the bank_information table.
type BankInformationModel struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`
	SyncColumns

	OffererID     *int64  `gorm:"index"`
	VenueID       *int64  `gorm:"index"`
	ApplicationID int64   `gorm:"not null;uniqueIndex"`
	IBAN          *string `gorm:"column:iban;type:varchar(27)"`
	BIC           *string `gorm:"column:bic;type:varchar(11)"`
	Status        string  `gorm:"type:varchar(20);not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for BankInformationModel.
func (BankInformationModel) TableName() string {
	return "bank_information"
}

// ToDomain converts BankInformationModel to domain.BankInformation.
func (m *BankInformationModel) ToDomain() *domain.BankInformation {
	return &domain.BankInformation{
		SyncMeta:      m.SyncColumns.toDomain(),
		ID:            m.ID,
		OffererID:     m.OffererID,
		VenueID:       m.VenueID,
		ApplicationID: m.ApplicationID,
		IBAN:          m.IBAN,
		BIC:           m.BIC,
		Status:        domain.BankInformationStatus(m.Status),
	}
}

func bankInformationFromDomain(b *domain.BankInformation) *BankInformationModel {
	return &BankInformationModel{
		ID:            b.ID,
		SyncColumns:   syncColumnsFromDomain(&b.SyncMeta),
		OffererID:     b.OffererID,
		VenueID:       b.VenueID,
		ApplicationID: b.ApplicationID,
		IBAN:          b.IBAN,
		BIC:           b.BIC,
		Status:        string(b.Status),
	}
}

// ProviderModel is the GORM model for the providers table.
type ProviderModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Name       string `gorm:"type:varchar(90);not null"`
	LocalClass string `gorm:"type:varchar(60);uniqueIndex"`
	IsActive   bool   `gorm:"not null"`
}

// TableName returns the table name for ProviderModel.
func (ProviderModel) TableName() string {
	return "providers"
}

// ToDomain converts ProviderModel to domain.Provider.
func (m *ProviderModel) ToDomain() *domain.Provider {
	return &domain.Provider{
		ID:         m.ID,
		Name:       m.Name,
		LocalClass: domain.ProviderName(m.LocalClass),
		IsActive:   m.IsActive,
	}
}

// OffererModel is the GORM model for the offerers table.
type OffererModel struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"type:varchar(140);not null"`
	Siren string `gorm:"type:varchar(9);uniqueIndex"`
}

// TableName returns the table name for OffererModel.
func (OffererModel) TableName() string {
	return "offerers"
}

// ToDomain converts OffererModel to domain.Offerer.
func (m *OffererModel) ToDomain() *domain.Offerer {
	return &domain.Offerer{ID: m.ID, Name: m.Name, Siren: m.Siren}
}

// VenueModel is the GORM model for the venues table.
type VenueModel struct {
	ID                int64   `gorm:"primaryKey;autoIncrement"`
	ManagingOffererID int64   `gorm:"not null;index"`
	Name              string  `gorm:"type:varchar(140);not null"`
	Siret             *string `gorm:"type:varchar(14);uniqueIndex"`
	DepartementCode   string  `gorm:"type:varchar(3)"`
	BookingEmail      string  `gorm:"type:varchar(120)"`
	WithdrawalDetails string  `gorm:"type:text"`
}

// TableName returns the table name for VenueModel.
func (VenueModel) TableName() string {
	return "venues"
}

// ToDomain converts VenueModel to domain.Venue.
func (m *VenueModel) ToDomain() *domain.Venue {
	v := &domain.Venue{
		ID:                m.ID,
		ManagingOffererID: m.ManagingOffererID,
		Name:              m.Name,
		DepartementCode:   m.DepartementCode,
		BookingEmail:      m.BookingEmail,
		WithdrawalDetails: m.WithdrawalDetails,
	}
	if m.Siret != nil {
		v.Siret = *m.Siret
	}

	return v
}

// VenueProviderModel is the GORM model for the venue_providers table.
type VenueProviderModel struct {
	ID                     int64      `gorm:"primaryKey;autoIncrement"`
	VenueID                int64      `gorm:"not null;index"`
	ProviderID             int64      `gorm:"not null;index"`
	VenueIDAtOfferProvider string     `gorm:"type:varchar(70)"`
	IsActive               bool       `gorm:"not null"`
	LastSyncDate           *time.Time `gorm:"column:last_sync_date"`
	IsDuo                  bool       `gorm:"not null"`
	Quantity               *int       `gorm:"column:quantity"`

	PriceRules []PriceRuleModel `gorm:"foreignKey:VenueProviderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for VenueProviderModel.
func (VenueProviderModel) TableName() string {
	return "venue_providers"
}

// ToDomain converts VenueProviderModel to domain.VenueProvider.
func (m *VenueProviderModel) ToDomain() *domain.VenueProvider {
	vp := &domain.VenueProvider{
		ID:                     m.ID,
		VenueID:                m.VenueID,
		ProviderID:             m.ProviderID,
		VenueIDAtOfferProvider: m.VenueIDAtOfferProvider,
		IsActive:               m.IsActive,
		LastSyncDate:           utcPtr(m.LastSyncDate),
		IsDuo:                  m.IsDuo,
		Quantity:               m.Quantity,
	}
	for _, r := range m.PriceRules {
		vp.PriceRules = append(vp.PriceRules, domain.PriceRule{Kind: domain.PriceRuleKind(r.Kind), Price: r.Price})
	}

	return vp
}

// PriceRuleModel is one ordered price rule of an Allociné venue provider.
type PriceRuleModel struct {
	ID              int64   `gorm:"primaryKey;autoIncrement"`
	VenueProviderID int64   `gorm:"not null;uniqueIndex:idx_price_rule_position"`
	Position        int     `gorm:"not null;uniqueIndex:idx_price_rule_position"`
	Kind            string  `gorm:"type:varchar(20);not null"`
	Price           float64 `gorm:"type:decimal(10,2);not null"`
}

// TableName returns the table name for PriceRuleModel.
func (PriceRuleModel) TableName() string {
	return "venue_provider_price_rules"
}

// LocalProviderEventModel is the GORM model for the local_provider_events table.
type LocalProviderEventModel struct {
	ID       int64     `gorm:"primaryKey;autoIncrement"`
	Date     time.Time `gorm:"not null;index"`
	Type     string    `gorm:"type:varchar(20);not null"`
	Provider string    `gorm:"type:varchar(60);not null;index"`
	Scope    string    `gorm:"type:varchar(60)"`
	Payload  string    `gorm:"type:text"`
}

// TableName returns the table name for LocalProviderEventModel.
func (LocalProviderEventModel) TableName() string {
	return "local_provider_events"
}

// ToDomain converts LocalProviderEventModel to domain.SyncEvent.
func (m *LocalProviderEventModel) ToDomain() domain.SyncEvent {
	return domain.SyncEvent{
		ID:       m.ID,
		Provider: domain.ProviderName(m.Provider),
		Scope:    m.Scope,
		Type:     domain.SyncEventType(m.Type),
		Payload:  m.Payload,
		Date:     m.Date.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
