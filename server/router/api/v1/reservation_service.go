package v1

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/jamilsonokay/iam-ai-chatbot/store"
)

type reservationResponse struct {
	ID                  string                   `json:"id"`
	UserID              string                   `json:"userId"`
	Details             store.ReservationDetails `json:"details"`
	HasCompletedPayment bool                     `json:"hasCompletedPayment"`
	CreatedTs           int64                    `json:"createdTs"`
}

func convertReservation(r *store.Reservation) reservationResponse {
	return reservationResponse{
		ID:                  r.ID,
		UserID:              r.UserID,
		Details:             r.Details,
		HasCompletedPayment: r.HasCompletedPayment,
		CreatedTs:           r.CreatedTs,
	}
}

// loadOwnedReservation fetches the reservation named by ?id= and checks the caller owns it.
func (s *APIV1Service) loadOwnedReservation(c *echo.Context) (*store.Reservation, error) {
	id := c.QueryParam("id")
	if id == "" {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Not Found")
	}
	user, err := s.requireAuth(c)
	if err != nil {
		return nil, err
	}
	reservation, err := s.Store.GetReservation(c.Request().Context(), &store.FindReservation{ID: &id})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if reservation == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Reservation not found!")
	}
	if reservation.UserID != user.ID {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return reservation, nil
}

func (s *APIV1Service) getReservation(c *echo.Context) error {
	reservation, err := s.loadOwnedReservation(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertReservation(reservation))
}

// completeReservationPayment is the payment flow's callback: the only writer of hasCompletedPayment.
func (s *APIV1Service) completeReservationPayment(c *echo.Context) error {
	reservation, err := s.loadOwnedReservation(c)
	if err != nil {
		return err
	}
	if reservation.HasCompletedPayment {
		return echo.NewHTTPError(http.StatusConflict, "Reservation is already paid!")
	}

	paid := true
	updated, err := s.Store.UpdateReservation(c.Request().Context(), &store.UpdateReservation{
		ID:                  reservation.ID,
		HasCompletedPayment: &paid,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, convertReservation(updated))
}
