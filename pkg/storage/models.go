package storage

import (
	"time"

	"gorm.io/datatypes"
)

// FlightRecord is one launch of a rocket.
type FlightRecord struct {
	ID          uint       `json:"id" gorm:"primarykey"`
	SessionID   string     `json:"sessionId" gorm:"size:64;index:idx_flight_session"`
	FlightID    uint64     `json:"flightId"`
	Design      string     `json:"design" gorm:"size:16"`
	StartedAt   time.Time  `json:"startedAt" gorm:"index:idx_flight_started"`
	EndedAt     *time.Time `json:"endedAt"`
	Destroyed   bool       `json:"destroyed"`
	Turns       int        `json:"turns"`
	MaxAltitude float64    `json:"maxAltitude"`

	Samples []FlightSample      `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Events  []FlightEventRecord `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
}

// FlightSample is the telemetry of a flight at the end of a turn.
type FlightSample struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	FlightRecordID uint      `json:"flightRecordId" gorm:"index:idx_sample_flight"`
	RecordedAt     time.Time `json:"recordedAt"`
	Time           float64   `json:"time"`
	Altitude       float64   `json:"altitude"`
	Speed          float64   `json:"speed"`
	Fuel           float64   `json:"fuel"`
	Control        float64   `json:"control"`
	Rotation       float64   `json:"rotation"`
	Destroyed      bool      `json:"destroyed"`
}

// FlightEventRecord stores a discrete flight event with its payload.
type FlightEventRecord struct {
	ID             uint           `json:"id" gorm:"primarykey"`
	FlightRecordID uint           `json:"flightRecordId" gorm:"index:idx_event_flight"`
	RecordedAt     time.Time      `json:"recordedAt"`
	Type           string         `json:"type" gorm:"size:32"`
	Payload        datatypes.JSON `json:"payload"`
}

// Models lists every table the store migrates.
func Models() []any {
	return []any{&FlightRecord{}, &FlightSample{}, &FlightEventRecord{}}
}
