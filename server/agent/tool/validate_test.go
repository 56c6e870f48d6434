package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

var endpointFields = []Field{
	String("cityName", "Name of the city"),
	String("airportCode", "IATA code"),
}

var reservationSchema = Object(
	ArrayOf("seats", "Seat numbers", String("", "")),
	String("flightNumber", "Flight number"),
	Nested("departure", "Departure details", endpointFields...),
	Number("totalPriceInUSD", "Price").AsOptional(),
	Integer("passengers", "Passenger count").AsOptional(),
)

func TestValidateAcceptsWellFormedArguments(t *testing.T) {
	args, err := Validate(reservationSchema, json.RawMessage(`{
		"seats": ["12C", "12D"],
		"flightNumber": "UA 1234",
		"departure": {"cityName": "San Francisco", "airportCode": "SFO"},
		"totalPriceInUSD": 425.5,
		"passengers": 2
	}`))
	require.NoError(t, err)
	require.Equal(t, "UA 1234", args.String("flightNumber"))

	var decoded struct {
		Seats []string `json:"seats"`
	}
	require.NoError(t, args.Decode(&decoded))
	require.Equal(t, []string{"12C", "12D"}, decoded.Seats)
}

func TestValidateEmptyInputIsEmptyObject(t *testing.T) {
	_, err := Validate(Object(), nil)
	require.NoError(t, err)

	_, err = Validate(Object(String("city", "")), json.RawMessage("  "))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "city", verr.Field)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "missing required", raw: `{"seats":[],"departure":{"cityName":"a","airportCode":"b"}}`, field: "flightNumber"},
		{name: "unknown top-level field", raw: `{"seats":[],"flightNumber":"x","departure":{"cityName":"a","airportCode":"b"},"discount":1}`, field: "discount"},
		{name: "nested missing", raw: `{"seats":[],"flightNumber":"x","departure":{"cityName":"a"}}`, field: "departure.airportCode"},
		{name: "nested unknown", raw: `{"seats":[],"flightNumber":"x","departure":{"cityName":"a","airportCode":"b","gate":"c"}}`, field: "departure.gate"},
		{name: "numeric string is not a number", raw: `{"seats":[],"flightNumber":"x","departure":{"cityName":"a","airportCode":"b"},"totalPriceInUSD":"425.5"}`, field: "totalPriceInUSD"},
		{name: "fraction is not an integer", raw: `{"seats":[],"flightNumber":"x","departure":{"cityName":"a","airportCode":"b"},"passengers":1.5}`, field: "passengers"},
		{name: "number is not a string", raw: `{"seats":[],"flightNumber":1234,"departure":{"cityName":"a","airportCode":"b"}}`, field: "flightNumber"},
		{name: "array element type", raw: `{"seats":["12C",7],"flightNumber":"x","departure":{"cityName":"a","airportCode":"b"}}`, field: "seats[1]"},
		{name: "object expected", raw: `{"seats":[],"flightNumber":"x","departure":"SFO"}`, field: "departure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(reservationSchema, json.RawMessage(tt.raw))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[]`, `"SFO"`, `42`, `{"a":`, `{} {}`} {
		_, err := Validate(Object(), json.RawMessage(raw))
		require.Error(t, err, raw)
	}
}

func TestSchemaJSONSchemaIsClosed(t *testing.T) {
	rendered := reservationSchema.JSONSchema()
	require.Equal(t, "object", rendered.Type)
	require.NotNil(t, rendered.AdditionalProperties)
	require.NotNil(t, rendered.AdditionalProperties.Not)
	require.Equal(t, []string{"seats", "flightNumber", "departure"}, rendered.Required)

	departure := rendered.Properties["departure"]
	require.NotNil(t, departure.AdditionalProperties.Not)
	require.Equal(t, []string{"cityName", "airportCode"}, departure.Required)
	require.Equal(t, "string", rendered.Properties["seats"].Items.Type)
}

func TestResolvedSchemaRejectsWhatTheModelWasNotShown(t *testing.T) {
	resolved, err := reservationSchema.JSONSchema().Resolve(nil)
	require.NoError(t, err)

	valid := map[string]any{
		"seats":        []any{"12C"},
		"flightNumber": "UA 1234",
		"departure":    map[string]any{"cityName": "San Francisco", "airportCode": "SFO"},
	}
	require.NoError(t, resolved.Validate(valid))

	valid["departure"].(map[string]any)["gate"] = "A1"
	require.Error(t, resolved.Validate(valid))
}

func TestCompiledValidatorIsReusable(t *testing.T) {
	v, err := Compile(Object(String("origin", ""), String("destination", "")))
	require.NoError(t, err)

	_, err = v.Validate(json.RawMessage(`{"origin":"SFO","destination":"JFK"}`))
	require.NoError(t, err)

	_, err = v.Validate(json.RawMessage(`{"origin":"SFO"}`))
	require.EqualError(t, err, `invalid argument "destination": is required`)

	_, err = v.Validate(json.RawMessage(`{"origin":"SFO","destination":"JFK","cabin":"first"}`))
	require.EqualError(t, err, `invalid argument "cabin": is not allowed`)
}
