package services

import (
	"context"
	"strings"
)

const poPrefix = "PO-"

// ValidatePONumber checks the local format rule only.
func ValidatePONumber(po string) error {
	if !strings.HasPrefix(po, poPrefix) {
		return ErrInvalidPoFormat
	}
	return nil
}

type POStatus string

const (
	POVerified    POStatus = "verified"
	PONoMatch     POStatus = "no_match"
	POUnavailable POStatus = "unavailable"
	POSkipped     POStatus = "skipped"
)

// POVerification is the outcome of asking the ERP about a purchase order.
type POVerification struct {
	Status          POStatus `json:"status"`
	ExternalOrderID int64    `json:"external_order_id,omitempty"`
	SupplierName    string   `json:"supplier_name,omitempty"`
}

func (v POVerification) Verified() bool {
	return v.Status == POVerified
}

// POValidator verifies a purchase order against an external system. An
// error is returned together with an "unavailable" result, never alone.
type POValidator interface {
	Validate(ctx context.Context, po string) (POVerification, error)
}

// NoopPOValidator is used when no ERP is configured.
type NoopPOValidator struct{}

func (NoopPOValidator) Validate(context.Context, string) (POVerification, error) {
	return POVerification{Status: POSkipped}, nil
}
