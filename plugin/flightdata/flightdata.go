// Package flightdata produces sample flight, seat and pricing data.
// Output is derived from the request so the same question gets the same answer.
package flightdata

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	searchResultCount = 4
	seatRows          = 10
	seatColumns       = "ABCDEF"
)

var airlines = []struct {
	Name string
	Code string
}{
	{Name: "United Airlines", Code: "UA"},
	{Name: "American Airlines", Code: "AA"},
	{Name: "Delta Air Lines", Code: "DL"},
	{Name: "JetBlue Airways", Code: "B6"},
	{Name: "Alaska Airlines", Code: "AS"},
	{Name: "Southwest Airlines", Code: "WN"},
}

type Endpoint struct {
	CityName    string `json:"cityName"`
	AirportCode string `json:"airportCode"`
	AirportName string `json:"airportName,omitempty"`
	Timestamp   string `json:"timestamp"`
	Terminal    string `json:"terminal,omitempty"`
	Gate        string `json:"gate,omitempty"`
}

type Flight struct {
	ID            string   `json:"id"`
	FlightNumber  string   `json:"flightNumber"`
	Departure     Endpoint `json:"departure"`
	Arrival       Endpoint `json:"arrival"`
	Airlines      []string `json:"airlines"`
	PriceInUSD    float64  `json:"priceInUSD"`
	NumberOfStops int      `json:"numberOfStops"`
}

type SearchResult struct {
	Flights []Flight `json:"flights"`
}

type FlightStatus struct {
	FlightNumber         string   `json:"flightNumber"`
	Departure            Endpoint `json:"departure"`
	Arrival              Endpoint `json:"arrival"`
	TotalDistanceInMiles int      `json:"totalDistanceInMiles"`
}

type Seat struct {
	SeatNumber  string  `json:"seatNumber"`
	PriceInUSD  float64 `json:"priceInUSD"`
	IsAvailable bool    `json:"isAvailable"`
}

type SeatMap struct {
	Seats [][]Seat `json:"seats"`
}

type Price struct {
	TotalPriceInUSD float64 `json:"totalPriceInUSD"`
}

// PriceRequest is what a reservation is priced on.
type PriceRequest struct {
	FlightNumber string
	Seats        []string
	Origin       string
	Destination  string
}

// Generator builds sample data relative to the current day.
type Generator struct {
	now func() time.Time
}

// New creates a generator. A nil clock means time.Now.
func New(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// SearchFlights returns four flights from origin to destination departing tomorrow.
func (g *Generator) SearchFlights(origin, destination string) SearchResult {
	from, to := LookupAirport(origin), LookupAirport(destination)
	r := seeded("search", from.Code, to.Code, g.day())
	base := g.tomorrow()
	duration := flightDuration(from, to)

	flights := make([]Flight, 0, searchResultCount)
	for i := 0; i < searchResultCount; i++ {
		airline := airlines[r.IntN(len(airlines))]
		stops := r.IntN(3)
		departAt := base.Add(time.Duration(6+i*4+r.IntN(3)) * time.Hour).Add(time.Duration(r.IntN(4)*15) * time.Minute)
		arriveAt := departAt.Add(duration + time.Duration(stops)*75*time.Minute)
		names := []string{airline.Name}
		if stops > 0 {
			names = append(names, airlines[r.IntN(len(airlines))].Name)
		}
		flights = append(flights, Flight{
			ID:           fmt.Sprintf("%s-%s-%d", from.Code, to.Code, i+1),
			FlightNumber: fmt.Sprintf("%s %d", airline.Code, 100+r.IntN(9000)),
			Departure: Endpoint{
				CityName:    from.City,
				AirportCode: from.Code,
				Timestamp:   departAt.Format(time.RFC3339),
			},
			Arrival: Endpoint{
				CityName:    to.City,
				AirportCode: to.Code,
				Timestamp:   arriveAt.Format(time.RFC3339),
			},
			Airlines:      dedupe(names),
			PriceInUSD:    roundCents(150 + r.Float64()*650 - float64(stops)*40),
			NumberOfStops: stops,
		})
	}
	return SearchResult{Flights: flights}
}

// FlightStatus reports gates, terminals and schedule for a flight on a date.
func (g *Generator) FlightStatus(flightNumber, date string) FlightStatus {
	r := seeded("status", normalizeFlightNumber(flightNumber), date)
	from := popularAirports[r.IntN(len(popularAirports))]
	to := popularAirports[r.IntN(len(popularAirports))]
	for to.Code == from.Code {
		to = popularAirports[r.IntN(len(popularAirports))]
	}

	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		day = g.tomorrow()
	}
	departAt := day.Add(time.Duration(6+r.IntN(14)) * time.Hour).Add(time.Duration(r.IntN(4)*15) * time.Minute)
	arriveAt := departAt.Add(flightDuration(from, to))

	return FlightStatus{
		FlightNumber: flightNumber,
		Departure: Endpoint{
			CityName:    from.City,
			AirportCode: from.Code,
			AirportName: from.Name,
			Timestamp:   departAt.Format(time.RFC3339),
			Terminal:    fmt.Sprint(1 + r.IntN(5)),
			Gate:        gate(r),
		},
		Arrival: Endpoint{
			CityName:    to.City,
			AirportCode: to.Code,
			AirportName: to.Name,
			Timestamp:   arriveAt.Format(time.RFC3339),
			Terminal:    fmt.Sprint(1 + r.IntN(5)),
			Gate:        gate(r),
		},
		TotalDistanceInMiles: int(math.Round(distanceMiles(from, to))),
	}
}

// SeatMap lays out rows 1..10 with columns A to F.
func (g *Generator) SeatMap(flightNumber string) SeatMap {
	r := seeded("seats", normalizeFlightNumber(flightNumber))
	rows := make([][]Seat, 0, seatRows)
	for row := 1; row <= seatRows; row++ {
		seats := make([]Seat, 0, len(seatColumns))
		for _, column := range seatColumns {
			price := 20 + r.Float64()*30
			switch column {
			case 'A', 'F':
				price += 15
			case 'C', 'D':
				price += 10
			}
			if row <= 2 {
				price += 60
			}
			seats = append(seats, Seat{
				SeatNumber:  fmt.Sprintf("%d%c", row, column),
				PriceInUSD:  roundCents(price),
				IsAvailable: r.IntN(10) < 7,
			})
		}
		rows = append(rows, seats)
	}
	return SeatMap{Seats: rows}
}

// ReservationPrice prices every selected seat on the flight.
func (g *Generator) ReservationPrice(req PriceRequest) Price {
	r := seeded("price", normalizeFlightNumber(req.FlightNumber), strings.ToUpper(req.Origin), strings.ToUpper(req.Destination))
	perSeat := 150 + r.Float64()*550
	seats := len(req.Seats)
	if seats == 0 {
		seats = 1
	}
	return Price{TotalPriceInUSD: roundCents(perSeat * float64(seats))}
}

func (g *Generator) tomorrow() time.Time {
	now := g.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

func (g *Generator) day() string {
	return g.now().UTC().Format(time.DateOnly)
}

func seeded(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}

func flightDuration(from, to Airport) time.Duration {
	miles := distanceMiles(from, to)
	if miles == 0 {
		miles = 1200
	}
	// Cruise at ~500 mph plus taxi and climb.
	minutes := miles/500*60 + 30
	return time.Duration(minutes) * time.Minute
}

func distanceMiles(from, to Airport) float64 {
	if !from.hasCoordinates() || !to.hasCoordinates() {
		return 0
	}
	const earthRadiusMiles = 3958.8
	lat1, lat2 := radians(from.Latitude), radians(to.Latitude)
	dLat := lat2 - lat1
	dLon := radians(to.Longitude - from.Longitude)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func gate(r *rand.Rand) string {
	return fmt.Sprintf("%c%d", 'A'+rune(r.IntN(6)), 1+r.IntN(40))
}

func normalizeFlightNumber(flightNumber string) string {
	return strings.ToUpper(strings.ReplaceAll(flightNumber, " ", ""))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
