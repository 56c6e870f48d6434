// Package booking defines the flight booking tools offered to the model.
package booking

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jamilsonokay/iam-ai-chatbot/plugin/flightdata"
	"github.com/jamilsonokay/iam-ai-chatbot/plugin/weather"
	"github.com/jamilsonokay/iam-ai-chatbot/server/agent/tool"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

const (
	GetWeather          = "getWeather"
	DisplayFlightStatus = "displayFlightStatus"
	SearchFlights       = "searchFlights"
	SelectSeats         = "selectSeats"
	CreateReservation   = "createReservation"
	AuthorizePayment    = "authorizePayment"
	VerifyPayment       = "verifyPayment"
	DisplayBoardingPass = "displayBoardingPass"
)

// WeatherProvider returns the forecast view for a city.
type WeatherProvider interface {
	Forecast(ctx context.Context, location string) (*weather.Report, error)
}

type Dependencies struct {
	Store   *store.Store
	Weather WeatherProvider
	Flights *flightdata.Generator
	// NewID mints reservation ids. Defaults to random UUIDs.
	NewID func() string
}

type tools struct {
	Dependencies
}

// NewRegistry builds the registry of booking tools.
func NewRegistry(deps Dependencies) (*tool.Registry, error) {
	if deps.Store == nil {
		return nil, errors.New("booking tools need a store")
	}
	if deps.Flights == nil {
		deps.Flights = flightdata.New(nil)
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	t := &tools{Dependencies: deps}

	return tool.NewRegistry(
		tool.Descriptor{
			Name:        GetWeather,
			Description: "Get the current weather at a location",
			Schema:      tool.Object(tool.String("location", "The city name to get the weather for")),
			SideEffect:  tool.ExternalRead,
			Handler:     t.getWeather,
		},
		tool.Descriptor{
			Name:        DisplayFlightStatus,
			Description: "Display the status of a flight",
			Schema: tool.Object(
				tool.String("flightNumber", "Flight number"),
				tool.String("date", "Date of the flight"),
			),
			SideEffect: tool.Pure,
			Handler:    t.displayFlightStatus,
		},
		tool.Descriptor{
			Name:        SearchFlights,
			Description: "Search for flights based on the given parameters",
			Schema: tool.Object(
				tool.String("origin", "Origin airport or city"),
				tool.String("destination", "Destination airport or city"),
			),
			SideEffect: tool.Pure,
			Handler:    t.searchFlights,
		},
		tool.Descriptor{
			Name:        SelectSeats,
			Description: "Select seats for a flight",
			Schema:      tool.Object(tool.String("flightNumber", "Flight number")),
			SideEffect:  tool.Pure,
			Handler:     t.selectSeats,
		},
		tool.Descriptor{
			Name:        CreateReservation,
			Description: "Display pending reservation details",
			Schema: tool.Object(
				tool.ArrayOf("seats", "Array of selected seat numbers", tool.String("", "Seat number")),
				tool.String("flightNumber", "Flight number"),
				tool.Nested("departure", "Departure details", reservationEndpoint("departure")...),
				tool.Nested("arrival", "Arrival details", reservationEndpoint("arrival")...),
				tool.String("passengerName", "Name of the passenger"),
			),
			SideEffect: tool.ExternalWrite,
			Handler:    t.createReservation,
		},
		tool.Descriptor{
			Name:        AuthorizePayment,
			Description: "User will enter credentials to authorize payment, wait for user to repond when they are done",
			Schema:      tool.Object(tool.String("reservationId", "Unique identifier for the reservation")),
			SideEffect:  tool.Pure,
			Handler:     t.authorizePayment,
		},
		tool.Descriptor{
			Name:        VerifyPayment,
			Description: "Verify payment status",
			Schema:      tool.Object(tool.String("reservationId", "Unique identifier for the reservation")),
			SideEffect:  tool.ExternalRead,
			Handler:     t.verifyPayment,
		},
		tool.Descriptor{
			Name:        DisplayBoardingPass,
			Description: "Display a boarding pass",
			Schema: tool.Object(
				tool.String("reservationId", "Unique identifier for the reservation"),
				tool.String("passengerName", "Name of the passenger, in title case"),
				tool.String("flightNumber", "Flight number"),
				tool.String("seat", "Seat number"),
				tool.Nested("departure", "Departure details", boardingPassEndpoint("departure")...),
				tool.Nested("arrival", "Arrival details", boardingPassEndpoint("arrival")...),
			),
			SideEffect: tool.Pure,
			Handler:    t.displayBoardingPass,
		},
	)
}

func reservationEndpoint(side string) []tool.Field {
	return []tool.Field{
		tool.String("cityName", "Name of the "+side+" city"),
		tool.String("airportCode", "Code of the "+side+" airport"),
		tool.String("timestamp", "ISO 8601 date of "+side),
		tool.String("gate", cases.Title(language.English).String(side)+" gate"),
		tool.String("terminal", cases.Title(language.English).String(side)+" terminal"),
	}
}

func boardingPassEndpoint(side string) []tool.Field {
	return []tool.Field{
		tool.String("cityName", "Name of the "+side+" city"),
		tool.String("airportCode", "Code of the "+side+" airport"),
		tool.String("airportName", "Name of the "+side+" airport"),
		tool.String("timestamp", "ISO 8601 date of "+side),
		tool.String("terminal", cases.Title(language.English).String(side)+" terminal"),
		tool.String("gate", cases.Title(language.English).String(side)+" gate"),
	}
}

func (t *tools) getWeather(ctx context.Context, args tool.Args, _ tool.Session) (any, error) {
	location := args.String("location")
	if t.Weather == nil {
		return tool.Fail("%s", weather.ErrMissingAPIKey.Error()), nil
	}
	report, err := t.Weather.Forecast(ctx, location)
	switch {
	case err == nil:
		return report, nil
	case errors.Is(err, weather.ErrMissingAPIKey):
		return tool.Fail("%s", weather.ErrMissingAPIKey.Error()), nil
	case errors.Is(err, weather.ErrCityNotFound):
		return tool.Fail("Could not find the city %s. Please check the name and try again.", location), nil
	default:
		slog.Warn("weather lookup failed", "location", location, "err", err)
		return tool.Fail("An error occurred while fetching weather data for %s. Please try again later.", location), nil
	}
}

func (t *tools) displayFlightStatus(_ context.Context, args tool.Args, _ tool.Session) (any, error) {
	return t.Flights.FlightStatus(args.String("flightNumber"), args.String("date")), nil
}

func (t *tools) searchFlights(_ context.Context, args tool.Args, _ tool.Session) (any, error) {
	return t.Flights.SearchFlights(args.String("origin"), args.String("destination")), nil
}

func (t *tools) selectSeats(_ context.Context, args tool.Args, _ tool.Session) (any, error) {
	return t.Flights.SeatMap(args.String("flightNumber")), nil
}

type reservationResult struct {
	ID string `json:"id"`
	store.ReservationDetails
}

func (t *tools) createReservation(ctx context.Context, args tool.Args, session tool.Session) (any, error) {
	var details store.ReservationDetails
	if err := args.Decode(&details); err != nil {
		return nil, err
	}
	price := t.Flights.ReservationPrice(flightdata.PriceRequest{
		FlightNumber: details.FlightNumber,
		Seats:        details.Seats,
		Origin:       details.Departure.AirportCode,
		Destination:  details.Arrival.AirportCode,
	})
	details.TotalPriceInUSD = price.TotalPriceInUSD

	reservation, err := t.Store.CreateReservation(ctx, &store.Reservation{
		ID:      t.NewID(),
		UserID:  session.UserID,
		Details: details,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reservation")
	}
	return reservationResult{ID: reservation.ID, ReservationDetails: reservation.Details}, nil
}

func (t *tools) authorizePayment(_ context.Context, args tool.Args, _ tool.Session) (any, error) {
	return map[string]string{"reservationId": args.String("reservationId")}, nil
}

// verifyPayment only reads, and only the session owner's reservations. The flag is flipped by the payment completion endpoint.
func (t *tools) verifyPayment(ctx context.Context, args tool.Args, session tool.Session) (any, error) {
	id := args.String("reservationId")
	reservation, err := t.Store.GetReservation(ctx, &store.FindReservation{ID: &id})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get reservation")
	}
	if reservation == nil || reservation.UserID != session.UserID {
		return tool.Fail("Reservation %s not found", id), nil
	}
	return map[string]bool{"hasCompletedPayment": reservation.HasCompletedPayment}, nil
}

type boardingPassEndpointView struct {
	CityName    string `json:"cityName"`
	AirportCode string `json:"airportCode"`
	AirportName string `json:"airportName"`
	Timestamp   string `json:"timestamp"`
	Terminal    string `json:"terminal"`
	Gate        string `json:"gate"`
}

type boardingPass struct {
	ReservationID string                   `json:"reservationId"`
	PassengerName string                   `json:"passengerName"`
	FlightNumber  string                   `json:"flightNumber"`
	Seat          string                   `json:"seat"`
	Departure     boardingPassEndpointView `json:"departure"`
	Arrival       boardingPassEndpointView `json:"arrival"`
}

func (t *tools) displayBoardingPass(_ context.Context, args tool.Args, _ tool.Session) (any, error) {
	var pass boardingPass
	if err := args.Decode(&pass); err != nil {
		return nil, err
	}
	pass.PassengerName = cases.Title(language.English).String(pass.PassengerName)
	return pass, nil
}
