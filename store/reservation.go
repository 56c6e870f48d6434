package store

import (
	"context"
	"encoding/json"
)

// FlightEndpoint is one end of a reserved flight.
type FlightEndpoint struct {
	CityName    string `json:"cityName"`
	AirportCode string `json:"airportCode"`
	Timestamp   string `json:"timestamp"`
	Gate        string `json:"gate"`
	Terminal    string `json:"terminal"`
}

// ReservationDetails is the flight, seat and passenger snapshot taken at reservation time.
type ReservationDetails struct {
	Seats           []string       `json:"seats"`
	FlightNumber    string         `json:"flightNumber"`
	Departure       FlightEndpoint `json:"departure"`
	Arrival         FlightEndpoint `json:"arrival"`
	PassengerName   string         `json:"passengerName"`
	TotalPriceInUSD float64        `json:"totalPriceInUSD"`
}

// Reservation is never deleted; only HasCompletedPayment changes after creation.
type Reservation struct {
	ID                  string
	UserID              string
	Details             ReservationDetails
	HasCompletedPayment bool
	CreatedTs           int64
}

type FindReservation struct {
	ID     *string
	UserID *string
}

type UpdateReservation struct {
	ID                  string
	HasCompletedPayment *bool
}

func (s *Store) CreateReservation(ctx context.Context, create *Reservation) (*Reservation, error) {
	return s.driver.CreateReservation(ctx, create)
}

func (s *Store) ListReservations(ctx context.Context, find *FindReservation) ([]*Reservation, error) {
	return s.driver.ListReservations(ctx, find)
}

// GetReservation returns nil when no reservation matches.
func (s *Store) GetReservation(ctx context.Context, find *FindReservation) (*Reservation, error) {
	list, err := s.ListReservations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateReservation(ctx context.Context, update *UpdateReservation) (*Reservation, error) {
	return s.driver.UpdateReservation(ctx, update)
}

// MarshalReservationDetails encodes details for storage.
func MarshalReservationDetails(details ReservationDetails) (string, error) {
	b, err := json.Marshal(details)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalReservationDetails decodes stored details.
func UnmarshalReservationDetails(raw string) (ReservationDetails, error) {
	var details ReservationDetails
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		return ReservationDetails{}, err
	}
	return details, nil
}
