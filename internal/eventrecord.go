package internal

import (
	"fmt"

	"github.com/chrisconley/couponfeat/specs"
)

// Canonical column names of event and feature tables.
const (
	ColumnUserID       = "user_id"
	ColumnMerchantID   = "merchant_id"
	ColumnCouponID     = "coupon_id"
	ColumnDiscountRate = "discount_rate"
	ColumnDistance     = "distance"
	ColumnDateReceived = "date_received"
	ColumnDateUsed     = "date_used"

	ColumnIsFullReduction = "is_full_reduction"
	ColumnFullCond        = "full_cond"
	ColumnFullSave        = "full_save"
	ColumnDaysGap         = "days_gap"
	ColumnLabel           = "label"
)

type EventRecord struct {
	UserID       EventUserID
	MerchantID   EventMerchantID
	CouponID     *string
	DiscountRate *string
	Distance     *string
	DateReceived *Date8
	DateUsed     *Date8
}

func NewEventRecord(spec specs.EventRecordSpec) (EventRecord, error) {
	userID, err := NewEventUserID(spec.UserID)
	if err != nil {
		return EventRecord{}, fmt.Errorf("invalid user ID: %w", err)
	}

	merchantID, err := NewEventMerchantID(spec.MerchantID)
	if err != nil {
		return EventRecord{}, fmt.Errorf("invalid merchant ID: %w", err)
	}

	received, err := parseOptionalDate8(spec.DateReceived)
	if err != nil {
		return EventRecord{}, fmt.Errorf("invalid date received: %w", err)
	}

	used, err := parseOptionalDate8(spec.DateUsed)
	if err != nil {
		return EventRecord{}, fmt.Errorf("invalid date used: %w", err)
	}

	return EventRecord{
		UserID:       userID,
		MerchantID:   merchantID,
		CouponID:     presentOrNil(spec.CouponID),
		DiscountRate: presentOrNil(spec.DiscountRate),
		Distance:     presentOrNil(spec.Distance),
		DateReceived: received,
		DateUsed:     used,
	}, nil
}

func presentOrNil(raw *string) *string {
	if raw == nil || specs.IsMissing(*raw) {
		return nil
	}
	return raw
}

func (r EventRecord) ToSpec() specs.EventRecordSpec {
	return specs.EventRecordSpec{
		UserID:       r.UserID.ToString(),
		MerchantID:   r.MerchantID.ToString(),
		CouponID:     r.CouponID,
		DiscountRate: r.DiscountRate,
		Distance:     r.Distance,
		DateReceived: date8String(r.DateReceived),
		DateUsed:     date8String(r.DateUsed),
	}
}

func date8String(d *Date8) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

type EventUserID struct {
	value string
}

func NewEventUserID(value string) (EventUserID, error) {
	if specs.IsMissing(value) {
		return EventUserID{}, fmt.Errorf("user ID is required")
	}
	return EventUserID{value: value}, nil
}

func (id EventUserID) ToString() string {
	return id.value
}

type EventMerchantID struct {
	value string
}

func NewEventMerchantID(value string) (EventMerchantID, error) {
	if specs.IsMissing(value) {
		return EventMerchantID{}, fmt.Errorf("merchant ID is required")
	}
	return EventMerchantID{value: value}, nil
}

func (id EventMerchantID) ToString() string {
	return id.value
}

// NewEventTable lays records out as raw text columns. The date_used column is
// only present when withUsedDate is set, matching the test split schema.
func NewEventTable(records []EventRecord, withUsedDate bool) (*Table, error) {
	n := len(records)
	userIDs := make([]Cell, n)
	merchantIDs := make([]Cell, n)
	couponIDs := make([]Cell, n)
	discounts := make([]Cell, n)
	distances := make([]Cell, n)
	received := make([]Cell, n)
	used := make([]Cell, n)

	for i, r := range records {
		userIDs[i] = TextCell(r.UserID.ToString())
		merchantIDs[i] = TextCell(r.MerchantID.ToString())
		couponIDs[i] = OptionalTextCell(r.CouponID)
		discounts[i] = OptionalTextCell(r.DiscountRate)
		distances[i] = OptionalTextCell(r.Distance)
		received[i] = OptionalTextCell(date8String(r.DateReceived))
		used[i] = OptionalTextCell(date8String(r.DateUsed))
	}

	columns := []*Column{
		NewColumn(ColumnUserID, TextColumn, userIDs),
		NewColumn(ColumnMerchantID, TextColumn, merchantIDs),
		NewColumn(ColumnCouponID, TextColumn, couponIDs),
		NewColumn(ColumnDiscountRate, TextColumn, discounts),
		NewColumn(ColumnDistance, TextColumn, distances),
		NewColumn(ColumnDateReceived, TextColumn, received),
	}
	if withUsedDate {
		columns = append(columns, NewColumn(ColumnDateUsed, TextColumn, used))
	}
	return NewTable(columns...)
}

// NewEventTableFromSpecs validates record specs and lays them out as a table.
func NewEventTableFromSpecs(recordSpecs []specs.EventRecordSpec, withUsedDate bool) (*Table, error) {
	records := make([]EventRecord, len(recordSpecs))
	for i, spec := range recordSpecs {
		record, err := NewEventRecord(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid record at index %d: %w", i, err)
		}
		records[i] = record
	}
	return NewEventTable(records, withUsedDate)
}
