package orders

import (
	"github.com/swiftdrop/settlement-backend/pkg/enums"
)

// forwardEdges lists the single legal forward transition from each
// non-terminal status. Cancellation is handled separately.
var forwardEdges = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusPending:        enums.OrderStatusConfirmed,
	enums.OrderStatusConfirmed:      enums.OrderStatusPreparing,
	enums.OrderStatusPreparing:      enums.OrderStatusReady,
	enums.OrderStatusReady:          enums.OrderStatusOutForDelivery,
	enums.OrderStatusOutForDelivery: enums.OrderStatusDelivered,
}

// NextStatus returns the legal forward successor of current, if any.
func NextStatus(current enums.OrderStatus) (enums.OrderStatus, bool) {
	next, ok := forwardEdges[current]
	return next, ok
}

// deliveryRoles maps each fulfillment method to the actor roles allowed to
// mark the order delivered. Third-party courier deliveries have no in-app
// actor, so confirmation arrives from an operator or the courier webhook
// (system role).
var deliveryRoles = map[enums.FulfillmentMethod][]enums.ActorRole{
	enums.FulfillmentMethodSelfPickup:  {enums.ActorRoleCustomer},
	enums.FulfillmentMethodAgentPickup: {enums.ActorRoleAgent},
	enums.FulfillmentMethodFleet:       {enums.ActorRoleDriver},
	enums.FulfillmentMethodCourier:     {enums.ActorRoleOperator, enums.ActorRoleSystem},
}

// CanMarkDelivered reports whether the role may set delivered for the method.
func CanMarkDelivered(method enums.FulfillmentMethod, role enums.ActorRole) bool {
	for _, allowed := range deliveryRoles[method] {
		if allowed == role {
			return true
		}
	}
	return false
}
