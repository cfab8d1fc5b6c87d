package models

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// TripPoint is one timestamped sample of a trip. Points keep insertion order
// through their ascending ID.
type TripPoint struct {
	ID        int64   `gorm:"column:point_id;primaryKey;autoIncrement" bson:"_id" json:"point_id"`
	TripID    int64   `gorm:"column:trip_id;not null;index" bson:"trip_id" json:"trip_id"`
	Lat       float64 `gorm:"column:lat" bson:"lat" json:"lat"`
	Lon       float64 `gorm:"column:lon" bson:"lon" json:"lon"`
	Timestamp string  `gorm:"column:timestamp" bson:"timestamp" json:"timestamp"`
}

func (TripPoint) TableName() string {
	return "trip_points"
}

// PathFeature renders the trip and its points as a GeoJSON LineString feature.
func (t Trip) PathFeature() *geojson.Feature {
	line := make(orb.LineString, 0, len(t.Points))
	times := make([]string, 0, len(t.Points))
	for _, p := range t.Points {
		line = append(line, Location{Lat: p.Lat, Lon: p.Lon}.Point())
		times = append(times, p.Timestamp)
	}

	feature := geojson.NewFeature(line)
	feature.ID = t.ID
	feature.Properties["trip_id"] = t.ID
	feature.Properties["driver_id"] = t.DriverID
	feature.Properties["vehicle_id"] = t.VehicleID
	feature.Properties["start_time"] = t.StartTime
	feature.Properties["end_time"] = t.EndTime
	feature.Properties["distance"] = t.Distance
	feature.Properties["point_count"] = len(t.Points)
	feature.Properties["timestamps"] = times
	return feature
}
