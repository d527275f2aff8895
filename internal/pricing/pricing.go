package pricing

import (
	"github.com/sooksun/tablebooking/internal/config"
	"github.com/sooksun/tablebooking/internal/models"
)

// Calculator turns table counts and shirt orders into charge amounts.
// Prices come from configuration so the event committee can adjust them
// without a rebuild.
type Calculator struct {
	cfg config.PricingConfig
}

func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

func (c *Calculator) BasePrice() int {
	return c.cfg.TableBasePrice
}

// ShirtTotal sums the price of every shirt in the order list.
func (c *Calculator) ShirtTotal(orders []models.ShirtOrder) int {
	total := 0
	for _, o := range orders {
		switch o.Type {
		case models.ShirtCrew:
			total += c.cfg.ShirtCrewPrice * o.Quantity
		case models.ShirtPolo:
			total += c.cfg.ShirtPoloPrice * o.Quantity
		}
	}
	return total
}

// DeliveryFee applies only when shirts were ordered and courier delivery chosen.
func (c *Calculator) DeliveryFee(orders []models.ShirtOrder, delivery string) int {
	if len(orders) > 0 && delivery == models.DeliveryCourier {
		return c.cfg.ShirtDeliveryFee
	}
	return 0
}

// BookingTotal is the minimum legal amount for a reservation of tableCount
// tables with the given extras.
func (c *Calculator) BookingTotal(tableCount int, extras models.BookingExtras) int {
	if tableCount < 1 {
		tableCount = 1
	}
	donation := extras.Donation
	if donation < 0 {
		donation = 0
	}
	return c.cfg.TableBasePrice*tableCount +
		donation +
		c.ShirtTotal(extras.ShirtOrders) +
		c.DeliveryFee(extras.ShirtOrders, extras.ShirtDelivery)
}

// RegistrationTotal is the amount for a table-less registration.
func (c *Calculator) RegistrationTotal(donation int, orders []models.ShirtOrder, delivery string) int {
	if donation < 0 {
		donation = 0
	}
	return donation + c.ShirtTotal(orders) + c.DeliveryFee(orders, delivery)
}
