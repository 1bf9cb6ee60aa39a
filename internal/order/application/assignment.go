package application

import (
	"context"

	catalog "github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/apperr"
)

func (s *Service) ListUnassigned(ctx context.Context) ([]domain.Order, error) {
	return s.repo.List(ctx, OrderFilter{DeliveryStatus: domain.DeliveryUnassigned})
}

// ListAssigned returns every order bound to an agent, ranked by delivery status.
func (s *Service) ListAssigned(ctx context.Context) ([]domain.Order, error) {
	all, err := s.repo.List(ctx, OrderFilter{})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, o := range all {
		if o.DeliveryStatus != domain.DeliveryUnassigned {
			out = append(out, o)
		}
	}
	domain.SortByDeliveryRank(out)
	return out, nil
}

func (s *Service) ListAgentOrders(ctx context.Context, agentID string) ([]domain.Order, error) {
	if agentID == "" {
		return nil, apperr.Invalid("agentId", "is required")
	}
	orders, err := s.repo.List(ctx, OrderFilter{DeliveryUserID: agentID})
	if err != nil {
		return nil, err
	}
	domain.SortByDeliveryRank(orders)
	return orders, nil
}

func (s *Service) ListDeliveryAgents(ctx context.Context) ([]catalog.DeliveryAgent, error) {
	users, err := s.users.Users(ctx, catalog.RoleDelivery)
	if err != nil {
		return nil, err
	}
	agents := make([]catalog.DeliveryAgent, 0, len(users))
	for _, u := range users {
		if u.IsDeliveryAgent() {
			agents = append(agents, u.Agent())
		}
	}
	return agents, nil
}

// Assign binds an Unassigned order to a delivery agent. A second assignment is a conflict.
func (s *Service) Assign(ctx context.Context, orderID, agentID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, apperr.Invalid("orderId", "is required")
	}
	if agentID == "" {
		return nil, apperr.Invalid("deliveryUserId", "is required")
	}
	if err := s.requireAgent(ctx, agentID); err != nil {
		return nil, err
	}

	now := s.now()
	o, err := s.repo.Update(ctx, orderID, func(o *domain.Order) error {
		return o.Assign(agentID, now)
	})
	if err != nil {
		s.log.WarnContext(ctx, "assign rejected", "order_id", orderID, "agent_id", agentID, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "order assigned", "order_id", orderID, "agent_id", agentID)
	return o, nil
}

func (s *Service) requireAgent(ctx context.Context, agentID string) error {
	agents, err := s.ListDeliveryAgents(ctx)
	if err != nil {
		return err
	}
	for _, a := range agents {
		if a.ID == agentID {
			return nil
		}
	}
	return apperr.Missing("delivery agent %s not found", agentID)
}
