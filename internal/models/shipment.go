package models

import "time"

const (
	ShipmentAWBPending            = "PENDING"
	ShipmentIDManual              = "MANUAL_PROCESSING"
	ShipmentCourierUnassigned     = "To be assigned"
	ShipmentStatusPendingCreation = "pending_shipment_creation"
	ShipmentStatusCreated         = "created"
)

// Shipment is stored at users/{uid}/orders/{key}/shipment.
type Shipment struct {
	AWB         string     `json:"awb"`
	ShipmentID  string     `json:"shipmentId"`
	Courier     string     `json:"courier"`
	TrackingURL string     `json:"trackingUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	Status      string     `json:"status,omitempty"`
	LastStatus  string     `json:"lastStatus,omitempty"`
}

// PendingShipment is the placeholder written when the carrier could not
// create a shipment, so admins always have a record to act on.
func PendingShipment(now time.Time) Shipment {
	return Shipment{
		AWB:        ShipmentAWBPending,
		ShipmentID: ShipmentIDManual,
		Courier:    ShipmentCourierUnassigned,
		CreatedAt:  now,
		Status:     ShipmentStatusPendingCreation,
	}
}

// Trackable reports whether the shipment carries a real carrier AWB.
func (s *Shipment) Trackable() bool {
	return s != nil && s.AWB != "" && s.AWB != ShipmentAWBPending
}
