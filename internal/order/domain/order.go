// Package domain holds orders, their lifecycle and the shopping cart.
package domain

import (
	"fmt"
	"time"

	"storefront/backend/internal/platform/errs"
)

// Status is where an order is in fulfilment.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// PaymentStatus tracks the money side of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanBecome reports whether an order in s may move to next. Delivered and cancelled are final.
func (s Status) CanBecome(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ErrTransition reports a status change the lifecycle does not allow.
func ErrTransition(from, to Status) error {
	return fmt.Errorf("%w: order cannot go from %s to %s", errs.ErrConflict, from, to)
}

// Item is one order line, priced when the order was placed.
type Item struct {
	ProductID       string  `json:"productId"`
	ProductName     string  `json:"productName"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"priceAtPurchase"`
}

// Order is a placed order.
type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Items           []Item        `json:"items"`
	TotalAmount     float64       `json:"totalAmount"`
	Currency        string        `json:"currency"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	PaymentMethodID string        `json:"paymentMethodId,omitempty"`
	DeliveryMethod  string        `json:"deliveryMethod,omitempty"`
	ShippingAddress string        `json:"shippingAddress"`
	BillingAddress  string        `json:"billingAddress"`
	TrackingNumber  string        `json:"trackingNumber,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// Total sums the order lines.
func Total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.PriceAtPurchase * float64(it.Quantity)
	}
	return sum
}

// Tracking is the customer-facing progress of an order.
type Tracking struct {
	OrderID        string    `json:"orderId"`
	Status         Status    `json:"status"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// StatusChange is a fulfilment update. TrackingNumber is kept when empty.
type StatusChange struct {
	Status         Status
	TrackingNumber string
	PaymentStatus  PaymentStatus
}

// CartItem is a quantity of one product in a cart.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is a user's pending selection.
type Cart struct {
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Quantity returns how many of productID are in the cart.
func (c *Cart) Quantity(productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// Set puts quantity of productID in the cart, appending new products. Zero removes the line.
func (c *Cart) Set(productID string, quantity int) {
	for i, it := range c.Items {
		if it.ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		return
	}
	if quantity > 0 {
		c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
	}
}
