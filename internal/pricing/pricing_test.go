package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sooksun/tablebooking/internal/config"
	"github.com/sooksun/tablebooking/internal/models"
	"github.com/sooksun/tablebooking/internal/pricing"
)

func testCalculator() *pricing.Calculator {
	return pricing.NewCalculator(config.PricingConfig{
		TableBasePrice:   3000,
		ShirtCrewPrice:   250,
		ShirtPoloPrice:   350,
		ShirtDeliveryFee: 50,
	})
}

func TestShirtTotal(t *testing.T) {
	c := testCalculator()

	assert.Equal(t, 0, c.ShirtTotal(nil))
	assert.Equal(t, 500, c.ShirtTotal([]models.ShirtOrder{
		{Type: models.ShirtCrew, Size: "L", Quantity: 2},
	}))
	assert.Equal(t, 950, c.ShirtTotal([]models.ShirtOrder{
		{Type: models.ShirtCrew, Size: "M", Quantity: 1},
		{Type: models.ShirtPolo, Size: "XL", Quantity: 2},
	}))

	// Unknown shirt types charge nothing rather than guessing a price.
	assert.Equal(t, 0, c.ShirtTotal([]models.ShirtOrder{
		{Type: "hoodie", Size: "M", Quantity: 3},
	}))
}

func TestDeliveryFee(t *testing.T) {
	c := testCalculator()
	orders := []models.ShirtOrder{{Type: models.ShirtPolo, Size: "M", Quantity: 1}}

	assert.Equal(t, 50, c.DeliveryFee(orders, models.DeliveryCourier))
	assert.Equal(t, 0, c.DeliveryFee(orders, models.DeliveryPickup))

	// No shirts means no delivery fee even if courier was selected.
	assert.Equal(t, 0, c.DeliveryFee(nil, models.DeliveryCourier))
}

func TestBookingTotal(t *testing.T) {
	c := testCalculator()

	assert.Equal(t, 3000, c.BookingTotal(1, models.BookingExtras{}))
	assert.Equal(t, 6000, c.BookingTotal(2, models.BookingExtras{}))

	// Table count below one is treated as a single table.
	assert.Equal(t, 3000, c.BookingTotal(0, models.BookingExtras{}))

	total := c.BookingTotal(1, models.BookingExtras{
		Donation:      500,
		ShirtOrders:   []models.ShirtOrder{{Type: models.ShirtCrew, Size: "L", Quantity: 2}},
		ShirtDelivery: models.DeliveryCourier,
	})
	assert.Equal(t, 3000+500+500+50, total)

	// Negative donations do not discount the table price.
	assert.Equal(t, 3000, c.BookingTotal(1, models.BookingExtras{Donation: -900}))
}

func TestRegistrationTotal(t *testing.T) {
	c := testCalculator()

	assert.Equal(t, 0, c.RegistrationTotal(0, nil, ""))
	assert.Equal(t, 1000, c.RegistrationTotal(1000, nil, ""))
	assert.Equal(t, 0, c.RegistrationTotal(-50, nil, ""))

	orders := []models.ShirtOrder{{Type: models.ShirtPolo, Size: "S", Quantity: 2}}
	assert.Equal(t, 700, c.RegistrationTotal(0, orders, models.DeliveryPickup))
	assert.Equal(t, 750, c.RegistrationTotal(0, orders, models.DeliveryCourier))
}
