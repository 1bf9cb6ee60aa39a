package domain

import (
	"sort"
	"strings"

	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

type DeliveryStatus string

const (
	DeliveryUnassigned     DeliveryStatus = "Unassigned"
	DeliveryAssigned       DeliveryStatus = "Assigned"
	DeliveryOutForDelivery DeliveryStatus = "OutForDelivery"
	DeliveryPaid           DeliveryStatus = "Paid"
)

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryUnassigned:     {DeliveryAssigned},
	DeliveryAssigned:       {DeliveryOutForDelivery, DeliveryPaid},
	DeliveryOutForDelivery: {DeliveryPaid},
}

func (s DeliveryStatus) CanTransition(to DeliveryStatus) bool {
	for _, next := range deliveryTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s DeliveryStatus) Settleable() bool { return s.CanTransition(DeliveryPaid) }

var deliveryRank = map[DeliveryStatus]int{
	DeliveryUnassigned:     -1,
	DeliveryAssigned:       0,
	DeliveryOutForDelivery: 1,
	DeliveryPaid:           2,
}

func (s DeliveryStatus) Rank() int { return deliveryRank[s] }

// SortByDeliveryRank orders Assigned, OutForDelivery, Paid; ties keep their input order.
func SortByDeliveryRank(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].DeliveryStatus.Rank() < orders[j].DeliveryStatus.Rank()
	})
}

func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	for st := range deliveryRank {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", apperr.Invalid("deliveryStatus", "unknown delivery status %q", s)
}
