package models

// Trip represents a recorded vehicle trip from start to end location.
type Trip struct {
	ID        int64   `gorm:"column:trip_id;primaryKey;autoIncrement" bson:"_id" json:"trip_id"`
	DriverID  int64   `gorm:"column:driver_id;not null;index" bson:"driver_id" json:"driver_id"`
	VehicleID int64   `gorm:"column:vehicle_id;not null;index" bson:"vehicle_id" json:"vehicle_id"`
	StartTime string  `gorm:"column:start_time" bson:"start_time" json:"start_time"` // opaque, stored as sent
	EndTime   string  `gorm:"column:end_time" bson:"end_time" json:"end_time"`
	StartLat  float64 `gorm:"column:start_lat" bson:"start_lat" json:"start_lat"`
	StartLon  float64 `gorm:"column:start_lon" bson:"start_lon" json:"start_lon"`
	EndLat    float64 `gorm:"column:end_lat" bson:"end_lat" json:"end_lat"`
	EndLon    float64 `gorm:"column:end_lon" bson:"end_lon" json:"end_lon"`
	Distance  float64 `gorm:"column:distance" bson:"distance" json:"distance"`

	// Points are loaded separately and never saved through the association.
	Points []TripPoint `gorm:"foreignKey:TripID;references:ID" bson:"-" json:"points,omitempty"`
}

func (Trip) TableName() string {
	return "trips"
}

// StartLocation returns the trip's start coordinate pair.
func (t Trip) StartLocation() Location {
	return Location{Lat: t.StartLat, Lon: t.StartLon}
}

// EndLocation returns the trip's end coordinate pair.
func (t Trip) EndLocation() Location {
	return Location{Lat: t.EndLat, Lon: t.EndLon}
}
