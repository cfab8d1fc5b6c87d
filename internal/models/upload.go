package models

import "strings"

// UploadPoint is one track sample as sent by the client.
type UploadPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp"`
}

// UploadRequest is the ingestion payload for a single GPX file.
type UploadRequest struct {
	FileName     string        `json:"file_name"`
	GpxContent   string        `json:"gpx_content"`
	DriverName   string        `json:"driver_name"`
	VehiclePlate string        `json:"vehicle_plate"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	StartLat     float64       `json:"start_lat"`
	StartLon     float64       `json:"start_lon"`
	EndLat       float64       `json:"end_lat"`
	EndLon       float64       `json:"end_lon"`
	Distance     float64       `json:"distance"`
	Points       []UploadPoint `json:"points,omitempty"`
}

// MissingFields lists required fields that are blank.
func (r UploadRequest) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.FileName) == "" {
		missing = append(missing, "file_name")
	}
	if strings.TrimSpace(r.DriverName) == "" {
		missing = append(missing, "driver_name")
	}
	if strings.TrimSpace(r.VehiclePlate) == "" {
		missing = append(missing, "vehicle_plate")
	}
	return missing
}

// Trip builds the trip row for the request. Driver and vehicle ids are set by the caller.
func (r UploadRequest) Trip() Trip {
	return Trip{
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		StartLat:  r.StartLat,
		StartLon:  r.StartLon,
		EndLat:    r.EndLat,
		EndLon:    r.EndLon,
		Distance:  r.Distance,
	}
}

// TripPoints converts the uploaded samples into trip point rows, preserving order.
func (r UploadRequest) TripPoints(tripID int64) []TripPoint {
	if len(r.Points) == 0 {
		return nil
	}
	points := make([]TripPoint, len(r.Points))
	for i, p := range r.Points {
		points[i] = TripPoint{TripID: tripID, Lat: p.Lat, Lon: p.Lon, Timestamp: p.Timestamp}
	}
	return points
}
