package domain

import "time"

// EventType is the catalog category of a product or offer.
type EventType string

const (
	EventTypeCinema EventType = "EventType.CINEMA"
	EventTypeBook   EventType = "ThingType.LIVRE_EDITION"
)

// Product is the catalog-level description shared by many offers.
type Product struct {
	SyncMeta

	ID              int64
	Name            string
	Type            EventType
	Description     string
	DurationMinutes *int
	ExtraData       map[string]any
	ThumbCount      int
}

func (p *Product) Kind() EntityKind { return KindProduct }
func (p *Product) LocalID() int64   { return p.ID }
func (p *Product) Meta() *SyncMeta  { return &p.SyncMeta }

// Clone implements Entity.
func (p *Product) Clone() Entity {
	c := *p
	c.FieldsUpdated = cloneFieldSet(p.FieldsUpdated)
	c.ExtraData = cloneExtraData(p.ExtraData)
	if p.DurationMinutes != nil {
		d := *p.DurationMinutes
		c.DurationMinutes = &d
	}

	return &c
}

// RestorePinned implements Entity.
func (p *Product) RestorePinned(previous Entity) {
	prev, ok := previous.(*Product)
	if !ok {
		return
	}
	// Pins are manual edits; a Fill can neither change nor clear them.
	p.FieldsUpdated = cloneFieldSet(prev.FieldsUpdated)
	for f := range prev.FieldsUpdated {
		switch f {
		case FieldName:
			p.Name = prev.Name
		case FieldDescription:
			p.Description = prev.Description
		case FieldDurationMinutes:
			p.DurationMinutes = prev.DurationMinutes
		case FieldExtraData:
			p.ExtraData = prev.ExtraData
		}
	}
}

// Offer is a sellable proposition belonging to a venue.
type Offer struct {
	SyncMeta

	ID                int64
	VenueID           int64
	ProductID         int64
	Name              string
	Type              EventType
	Description       string
	DurationMinutes   *int
	ExtraData         map[string]any
	BookingEmail      string
	WithdrawalDetails string
	IsDuo             bool
	IsActive          bool
}

func (o *Offer) Kind() EntityKind { return KindOffer }
func (o *Offer) LocalID() int64   { return o.ID }
func (o *Offer) Meta() *SyncMeta  { return &o.SyncMeta }

// Clone implements Entity.
func (o *Offer) Clone() Entity {
	c := *o
	c.FieldsUpdated = cloneFieldSet(o.FieldsUpdated)
	c.ExtraData = cloneExtraData(o.ExtraData)
	if o.DurationMinutes != nil {
		d := *o.DurationMinutes
		c.DurationMinutes = &d
	}

	return &c
}

// RestorePinned implements Entity.
func (o *Offer) RestorePinned(previous Entity) {
	prev, ok := previous.(*Offer)
	if !ok {
		return
	}
	o.FieldsUpdated = cloneFieldSet(prev.FieldsUpdated)
	for f := range prev.FieldsUpdated {
		switch f {
		case FieldName:
			o.Name = prev.Name
		case FieldDescription:
			o.Description = prev.Description
		case FieldDurationMinutes:
			o.DurationMinutes = prev.DurationMinutes
		case FieldExtraData:
			o.ExtraData = prev.ExtraData
		case FieldBookingEmail:
			o.BookingEmail = prev.BookingEmail
		case FieldWithdrawalDetails:
			o.WithdrawalDetails = prev.WithdrawalDetails
		case FieldIsDuo:
			o.IsDuo = prev.IsDuo
		case FieldIsActive:
			o.IsActive = prev.IsActive
		}
	}
}

// Stock is a bookable inventory line under an offer.
type Stock struct {
	SyncMeta

	ID                   int64
	OfferID              int64
	Price                float64
	Quantity             *int
	BeginningDatetime    *time.Time
	EndDatetime          *time.Time
	BookingLimitDatetime *time.Time
}

func (s *Stock) Kind() EntityKind { return KindStock }
func (s *Stock) LocalID() int64   { return s.ID }
func (s *Stock) Meta() *SyncMeta  { return &s.SyncMeta }

// Clone implements Entity.
func (s *Stock) Clone() Entity {
	c := *s
	c.FieldsUpdated = cloneFieldSet(s.FieldsUpdated)
	if s.Quantity != nil {
		q := *s.Quantity
		c.Quantity = &q
	}

	return &c
}

// RestorePinned implements Entity.
func (s *Stock) RestorePinned(previous Entity) {
	prev, ok := previous.(*Stock)
	if !ok {
		return
	}
	s.FieldsUpdated = cloneFieldSet(prev.FieldsUpdated)
	for f := range prev.FieldsUpdated {
		switch f {
		case FieldPrice:
			s.Price = prev.Price
		case FieldQuantity:
			s.Quantity = prev.Quantity
		case FieldBeginningDatetime:
			s.BeginningDatetime = prev.BeginningDatetime
		case FieldEndDatetime:
			s.EndDatetime = prev.EndDatetime
		case FieldBookingLimitDatetime:
			s.BookingLimitDatetime = prev.BookingLimitDatetime
		}
	}
}
