package domain

// DeliveryMethod is an entry of the static delivery catalogue.
type DeliveryMethod struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	EstimatedDays string  `json:"estimatedDays"`
	Cost          float64 `json:"cost"`
	Active        bool    `json:"active"`
}

var deliveryMethods = []DeliveryMethod{
	{ID: "standard", Name: "Standard Delivery", Description: "Regular shipping", EstimatedDays: "5-7 business days", Cost: 5.99, Active: true},
	{ID: "express", Name: "Express Delivery", Description: "Faster shipping", EstimatedDays: "2-3 business days", Cost: 12.99, Active: true},
	{ID: "overnight", Name: "Overnight Delivery", Description: "Next day delivery", EstimatedDays: "1 business day", Cost: 24.99, Active: true},
	{ID: "pickup", Name: "Store Pickup", Description: "Pick up at nearest store", EstimatedDays: "Ready in 2 hours", Cost: 0, Active: true},
}

// DeliveryMethods returns the active delivery methods.
func DeliveryMethods() []DeliveryMethod {
	out := make([]DeliveryMethod, 0, len(deliveryMethods))
	for _, m := range deliveryMethods {
		if m.Active {
			out = append(out, m)
		}
	}
	return out
}

// DeliveryMethodByID returns the delivery method with id.
func DeliveryMethodByID(id string) (DeliveryMethod, bool) {
	for _, m := range deliveryMethods {
		if m.ID == id {
			return m, true
		}
	}
	return DeliveryMethod{}, false
}
