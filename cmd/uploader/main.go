package main

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	log "github.com/sirupsen/logrus"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TrackPoint is one sample of a generated trip.
type TrackPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp"`
}

// Upload is the body of POST /upload-gpx.
type Upload struct {
	FileName     string       `json:"file_name"`
	GpxContent   string       `json:"gpx_content"`
	DriverName   string       `json:"driver_name"`
	VehiclePlate string       `json:"vehicle_plate"`
	StartTime    string       `json:"start_time"`
	EndTime      string       `json:"end_time"`
	StartLat     float64      `json:"start_lat"`
	StartLon     float64      `json:"start_lon"`
	EndLat       float64      `json:"end_lat"`
	EndLon       float64      `json:"end_lon"`
	Distance     float64      `json:"distance"`
	Points       []TrackPoint `json:"points"`
}

// Cities for realistic routes
var cities = []Location{
	{Lat: 51.5074, Lon: -0.1278},   // London
	{Lat: 40.7128, Lon: -74.0060},  // New York
	{Lat: 40.4168, Lon: -3.7038},   // Madrid
	{Lat: 35.1856, Lon: 33.3823},   // Nicosia
	{Lat: 48.8566, Lon: 2.3522},    // Paris
	{Lat: 41.0082, Lon: 28.9784},   // Istanbul
	{Lat: 52.5200, Lon: 13.4050},   // Berlin
	{Lat: 35.6762, Lon: 139.6503},  // Tokyo
	{Lat: -33.8688, Lon: 151.2093}, // Sydney
	{Lat: 43.6532, Lon: -79.3832},  // Toronto
}

var drivers = []string{"Alice Martin", "Bob Okafor", "Chen Wei", "Dana Novak", "Elif Kaya"}

var errDuplicate = errors.New("file already uploaded")

func jitterLocation(rng *rand.Rand, base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rng.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rng.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

// generateTrip drives from one point in a city to another, sampling every 30 seconds.
func generateTrip(rng *rand.Rand, name string, started time.Time, points int) Upload {
	if points < 2 {
		points = 2
	}
	city := cities[rng.Intn(len(cities))]
	start := jitterLocation(rng, city, 500)
	end := jitterLocation(rng, city, 15000)

	track := make([]TrackPoint, points)
	line := make(orb.LineString, points)
	for i := range track {
		loc := lerp(start, end, float64(i)/float64(points-1))
		if i > 0 && i < points-1 {
			loc = jitterLocation(rng, loc, 40)
		}
		track[i] = TrackPoint{
			Lat:       loc.Lat,
			Lon:       loc.Lon,
			Timestamp: started.Add(time.Duration(i) * 30 * time.Second).UTC().Format(time.RFC3339),
		}
		line[i] = orb.Point{loc.Lon, loc.Lat}
	}

	first, last := track[0], track[len(track)-1]
	return Upload{
		FileName:     name,
		GpxContent:   renderGPX(name, track),
		DriverName:   drivers[rng.Intn(len(drivers))],
		VehiclePlate: fmt.Sprintf("%c%c-%03d", 'A'+rng.Intn(26), 'A'+rng.Intn(26), rng.Intn(1000)),
		StartTime:    first.Timestamp,
		EndTime:      last.Timestamp,
		StartLat:     first.Lat,
		StartLon:     first.Lon,
		EndLat:       last.Lat,
		EndLon:       last.Lon,
		Distance:     math.Round(geo.LengthHaversine(line)) / 1000, // km
		Points:       track,
	}
}

type gpxDoc struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Track   gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name    string     `xml:"name"`
	Segment []gpxPoint `xml:"trkseg>trkpt"`
}

type gpxPoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Time string  `xml:"time"`
}

func renderGPX(name string, track []TrackPoint) string {
	doc := gpxDoc{
		Version: "1.1",
		Creator: "fleet-tracks uploader",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Track:   gpxTrack{Name: name},
	}
	for _, p := range track {
		doc.Track.Segment = append(doc.Track.Segment, gpxPoint{Lat: p.Lat, Lon: p.Lon, Time: p.Timestamp})
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		// only plain strings and floats are marshalled
		panic(err)
	}
	return xml.Header + string(data)
}

// uploadTrip posts the trip and returns the trip id assigned by the server.
func uploadTrip(client *http.Client, apiURL string, upload Upload) (int64, error) {
	data, err := json.Marshal(upload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal upload: %w", err)
	}

	resp, err := client.Post(apiURL+"/upload-gpx", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return 0, fmt.Errorf("failed to upload trip: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		return 0, errDuplicate
	default:
		return 0, fmt.Errorf("upload failed with status: %d", resp.StatusCode)
	}

	var result struct {
		TripID int64 `json:"trip_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.TripID, nil
}

func envInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func main() {
	count := envInt("UPLOAD_COUNT", 10)
	points := envInt("POINTS_PER_TRIP", 120)

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:3000/api"
	}
	prefix := os.Getenv("UPLOAD_PREFIX")
	if prefix == "" {
		prefix = "sim"
	}

	log.WithFields(log.Fields{
		"count":   count,
		"points":  points,
		"api_url": apiURL,
	}).Info("Starting trip upload")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	client := &http.Client{Timeout: 30 * time.Second}
	day := time.Now().UTC().Truncate(24 * time.Hour)

	var uploaded, skipped, failed int
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("%s-%s-%03d.gpx", prefix, day.Format("20060102"), i+1)
		trip := generateTrip(rng, name, day.Add(time.Duration(8*60+i*45)*time.Minute), points)

		tripID, err := uploadTrip(client, apiURL, trip)
		switch {
		case errors.Is(err, errDuplicate):
			skipped++
			log.WithField("file_name", name).Info("Already uploaded, skipping")
		case err != nil:
			failed++
			log.WithError(err).WithField("file_name", name).Error("Failed to upload trip")
		default:
			uploaded++
			log.WithFields(log.Fields{
				"file_name": name,
				"trip_id":   tripID,
				"distance":  trip.Distance,
			}).Info("Uploaded trip")
		}
	}

	log.WithFields(log.Fields{
		"uploaded": uploaded,
		"skipped":  skipped,
		"failed":   failed,
	}).Info("Trip upload completed")
	if failed > 0 {
		os.Exit(1)
	}
}
