package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"campus_api/internal/model"
	"campus_api/internal/query"
	"campus_api/internal/repository"
	"campus_api/internal/schema"
)

// profileRoles binds each profile entity to the account role that may own it.
var profileRoles = map[string]model.Role{
	schema.Customers:  model.RoleCustomer,
	schema.Deliverers: model.RoleDeliverer,
	schema.Partners:   model.RolePartner,
}

// MarketplaceService implements the ownership and lifecycle rules of the
// delivery marketplace on top of ResourceService.
type MarketplaceService struct {
	resources     *ResourceService
	accounts      repository.AccountRepository
	orders        *schema.Entity
	products      *schema.Entity
	contracts     *schema.Entity
	locations     *schema.Entity
	notifications *schema.Entity
	logger        *slog.Logger
}

// NewMarketplaceService creates a new MarketplaceService
func NewMarketplaceService(resources *ResourceService, accounts repository.AccountRepository, reg *schema.Registry, logger *slog.Logger) *MarketplaceService {
	return &MarketplaceService{
		resources:     resources,
		accounts:      accounts,
		orders:        reg.MustLookup(schema.Orders),
		products:      reg.MustLookup(schema.Products),
		contracts:     reg.MustLookup(schema.Contracts),
		locations:     reg.MustLookup(schema.Locations),
		notifications: reg.MustLookup(schema.Notifications),
		logger:        logger,
	}
}

// Profile returns the role profile (customer, deliverer or partner) of an account.
func (s *MarketplaceService) Profile(ctx context.Context, entity *schema.Entity, accountID string) (model.Record, error) {
	page, err := s.resources.Run(ctx, query.New(entity, s.resources.opts), Scope{"account": accountID})
	if err != nil {
		return nil, err
	}
	if len(page.Data) == 0 {
		return nil, ErrNotFound
	}
	return page.Data[0], nil
}

// SaveProfile creates or replaces the role profile of an account. A new
// profile requires a live account holding the matching role.
func (s *MarketplaceService) SaveProfile(ctx context.Context, entity *schema.Entity, accountID string, rec model.Record) (model.Record, error) {
	existing, err := s.Profile(ctx, entity, accountID)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := s.checkProfileOwner(ctx, entity, accountID); err != nil {
			return nil, err
		}
		rec["account"] = accountID
		return s.resources.Create(ctx, entity, rec)
	case err != nil:
		return nil, err
	}
	return s.resources.Update(ctx, entity, existing.ID(), rec)
}

func (s *MarketplaceService) checkProfileOwner(ctx context.Context, entity *schema.Entity, accountID string) error {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if acc == nil {
		return fmt.Errorf("%w: account %s", ErrNotFound, accountID)
	}
	if want, ok := profileRoles[entity.Name]; ok && acc.Role != want {
		return fmt.Errorf("%w: account %s is a %s, not a %s", ErrConflict, accountID, acc.Role, want)
	}
	return nil
}

// DeleteProfile soft-deletes the role profile of an account.
func (s *MarketplaceService) DeleteProfile(ctx context.Context, entity *schema.Entity, accountID string) error {
	existing, err := s.Profile(ctx, entity, accountID)
	if err != nil {
		return err
	}
	return s.resources.Delete(ctx, entity, existing.ID())
}

// ListOrders lists the orders placed by a customer or assigned to a deliverer.
// Admins see every order.
func (s *MarketplaceService) ListOrders(ctx context.Context, who model.Identity, params url.Values) (*model.Page, error) {
	scope := Scope{}
	switch who.Role {
	case model.RoleCustomer:
		scope["customer"] = who.Subject
	case model.RoleDeliverer:
		scope["deliverer"] = who.Subject
	case model.RoleAdmin:
	default:
		return nil, ErrForbidden
	}
	return s.resources.List(ctx, s.orders, params, scope)
}

// ListAvailableOrders lists pending orders waiting for a deliverer.
func (s *MarketplaceService) ListAvailableOrders(ctx context.Context, params url.Values) (*model.Page, error) {
	return s.resources.List(ctx, s.orders, params, Scope{"status": model.OrderPending})
}

// GetOrder returns an order visible to its customer, its deliverer or an admin.
func (s *MarketplaceService) GetOrder(ctx context.Context, who model.Identity, id string) (model.Record, error) {
	return s.resources.GetOwned(ctx, s.orders, id, who, "customer", "deliverer")
}

// CreateOrder places a pending order for the calling customer.
func (s *MarketplaceService) CreateOrder(ctx context.Context, who model.Identity, rec model.Record) (model.Record, error) {
	rec["customer"] = who.Subject
	rec["status"] = model.OrderPending
	return s.resources.Create(ctx, s.orders, rec)
}

// UpdateOrder edits an order while it is still pending.
func (s *MarketplaceService) UpdateOrder(ctx context.Context, who model.Identity, id string, changes model.Record) (model.Record, error) {
	order, err := s.resources.GetOwned(ctx, s.orders, id, who, "customer")
	if err != nil {
		return nil, err
	}
	return s.resources.transition(ctx, s.orders, order, "status", model.OrderPending, changes, model.OrderPending)
}

// AcceptOrder assigns a pending order to the calling deliverer.
func (s *MarketplaceService) AcceptOrder(ctx context.Context, who model.Identity, id string) (model.Record, error) {
	order, err := s.resources.Get(ctx, s.orders, id)
	if err != nil {
		return nil, err
	}
	if order.String("deliverer") != "" {
		return nil, ErrInvalidTransition
	}
	out, err := s.resources.transition(ctx, s.orders, order, "status", model.OrderAccepted,
		model.Record{"deliverer": who.Subject}, model.OrderPending)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, order.String("customer"), model.RoleCustomer, "Order accepted",
		"A deliverer accepted your order.", model.NotificationActionAccept, id)
	return out, nil
}

// DeliverOrder marks an accepted order delivered by its deliverer.
func (s *MarketplaceService) DeliverOrder(ctx context.Context, who model.Identity, id string) (model.Record, error) {
	order, err := s.resources.GetOwned(ctx, s.orders, id, who, "deliverer")
	if err != nil {
		return nil, err
	}
	out, err := s.resources.transition(ctx, s.orders, order, "status", model.OrderDelivered, nil, model.OrderAccepted)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, order.String("customer"), model.RoleCustomer, "Order delivered",
		"Your order has been delivered.", "", id)
	return out, nil
}

// CancelOrder cancels a pending or accepted order on behalf of its customer.
func (s *MarketplaceService) CancelOrder(ctx context.Context, who model.Identity, id string) (model.Record, error) {
	order, err := s.resources.GetOwned(ctx, s.orders, id, who, "customer")
	if err != nil {
		return nil, err
	}
	out, err := s.resources.transition(ctx, s.orders, order, "status", model.OrderCanceled, nil,
		model.OrderPending, model.OrderAccepted)
	if err != nil {
		return nil, err
	}
	if deliverer := order.String("deliverer"); deliverer != "" {
		s.notify(ctx, deliverer, model.RoleDeliverer, "Order canceled",
			"An order assigned to you was canceled by the customer.", model.NotificationActionReject, id)
	}
	return out, nil
}

// ListProducts lists the products of an order visible to who.
func (s *MarketplaceService) ListProducts(ctx context.Context, who model.Identity, orderID string, params url.Values) (*model.Page, error) {
	if _, err := s.GetOrder(ctx, who, orderID); err != nil {
		return nil, err
	}
	return s.resources.List(ctx, s.products, params, Scope{"order": orderID})
}

// CreateProduct adds a product to a pending order owned by who.
func (s *MarketplaceService) CreateProduct(ctx context.Context, who model.Identity, rec model.Record) (model.Record, error) {
	if err := s.checkEditableOrder(ctx, who, rec.String("order")); err != nil {
		return nil, err
	}
	return s.resources.Create(ctx, s.products, rec)
}

// UpdateProduct replaces a product of a pending order owned by who.
func (s *MarketplaceService) UpdateProduct(ctx context.Context, who model.Identity, id string, changes model.Record) (model.Record, error) {
	product, err := s.resources.Get(ctx, s.products, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkEditableOrder(ctx, who, product.String("order")); err != nil {
		return nil, err
	}
	if changes.String("order") != product.String("order") {
		return nil, ErrForbidden
	}
	return s.resources.Update(ctx, s.products, id, changes)
}

// DeleteProduct removes a product from a pending order owned by who.
func (s *MarketplaceService) DeleteProduct(ctx context.Context, who model.Identity, id string) error {
	product, err := s.resources.Get(ctx, s.products, id)
	if err != nil {
		return err
	}
	if err := s.checkEditableOrder(ctx, who, product.String("order")); err != nil {
		return err
	}
	return s.resources.Delete(ctx, s.products, id)
}

func (s *MarketplaceService) checkEditableOrder(ctx context.Context, who model.Identity, orderID string) error {
	order, err := s.resources.Get(ctx, s.orders, orderID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !owns(order, who, "customer") {
		return ErrForbidden
	}
	if order.String("status") != model.OrderPending {
		return ErrInvalidTransition
	}
	return nil
}

// ListContracts lists the contracts where who is the partner or the deliverer.
func (s *MarketplaceService) ListContracts(ctx context.Context, who model.Identity, params url.Values) (*model.Page, error) {
	scope := Scope{}
	switch who.Role {
	case model.RolePartner:
		scope["partner"] = who.Subject
	case model.RoleDeliverer:
		scope["deliverer"] = who.Subject
	case model.RoleAdmin:
	default:
		return nil, ErrForbidden
	}
	return s.resources.List(ctx, s.contracts, params, scope)
}

func (s *MarketplaceService) GetContract(ctx context.Context, who model.Identity, id string) (model.Record, error) {
	return s.resources.GetOwned(ctx, s.contracts, id, who, "partner", "deliverer")
}

// ProposeContract records a pending contract from the calling partner.
func (s *MarketplaceService) ProposeContract(ctx context.Context, who model.Identity, rec model.Record) (model.Record, error) {
	rec["partner"] = who.Subject
	rec["status"] = model.ContractPending
	out, err := s.resources.Create(ctx, s.contracts, rec)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, rec.String("deliverer"), model.RoleDeliverer, "Contract proposal",
		"A partner proposed a contract to you.", "", "")
	return out, nil
}

// contractTransitions lists, per target status, the allowed source statuses
// and the party who may request the move.
var contractTransitions = map[string]struct {
	from []string
	by   model.Role
}{
	model.ContractActive:      {from: []string{model.ContractPending}, by: model.RoleDeliverer},
	model.ContractRejected:    {from: []string{model.ContractPending}, by: model.RoleDeliverer},
	model.ContractCanceled:    {from: []string{model.ContractPending}, by: model.RolePartner},
	model.ContractInterrupted: {from: []string{model.ContractActive}, by: model.RolePartner},
	model.ContractExpired:     {from: []string{model.ContractActive}, by: model.RoleAdmin},
}

// SetContractStatus moves a contract through its lifecycle.
func (s *MarketplaceService) SetContractStatus(ctx context.Context, who model.Identity, id, status string) (model.Record, error) {
	rule, ok := contractTransitions[status]
	if !ok {
		return nil, ErrInvalidTransition
	}
	contract, err := s.GetContract(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if !who.IsAdmin() {
		if who.Role != rule.by || !owns(contract, who, string(rule.by)) {
			return nil, ErrForbidden
		}
	}
	out, err := s.resources.transition(ctx, s.contracts, contract, "status", status, nil, rule.from...)
	if err != nil {
		return nil, err
	}

	recipient, role := contract.String("partner"), model.RolePartner
	if who.Role == model.RolePartner {
		recipient, role = contract.String("deliverer"), model.RoleDeliverer
	}
	s.notify(ctx, recipient, role, "Contract "+status, "A contract you are part of is now "+status+".", "", "")
	return out, nil
}

// ListLocations lists the saved locations of who.
func (s *MarketplaceService) ListLocations(ctx context.Context, who model.Identity, params url.Values) (*model.Page, error) {
	return s.resources.List(ctx, s.locations, params, Scope{"user": who.Subject})
}

// CreateLocation saves a location for who.
func (s *MarketplaceService) CreateLocation(ctx context.Context, who model.Identity, rec model.Record) (model.Record, error) {
	rec["user"] = who.Subject
	rec["role"] = string(who.Role)
	return s.resources.Create(ctx, s.locations, rec)
}

func (s *MarketplaceService) UpdateLocation(ctx context.Context, who model.Identity, id string, changes model.Record) (model.Record, error) {
	return s.resources.UpdateOwned(ctx, s.locations, id, who, changes, "user")
}

func (s *MarketplaceService) DeleteLocation(ctx context.Context, who model.Identity, id string) error {
	return s.resources.DeleteOwned(ctx, s.locations, id, who, "user")
}

// ListNotifications lists the notifications addressed to who.
func (s *MarketplaceService) ListNotifications(ctx context.Context, who model.Identity, params url.Values) (*model.Page, error) {
	return s.resources.List(ctx, s.notifications, params, Scope{"user": who.Subject})
}

// MarkNotificationRead flags a notification of who as read.
func (s *MarketplaceService) MarkNotificationRead(ctx context.Context, who model.Identity, id string) (model.Record, error) {
	return s.resources.UpdateOwned(ctx, s.notifications, id, who, model.Record{"status": model.NotificationRead}, "user")
}

// notify stores a notification for user. Failures are logged and never fail the caller.
func (s *MarketplaceService) notify(ctx context.Context, user string, role model.Role, title, message, action, orderID string) {
	if user == "" {
		return
	}
	typ := model.NotificationTypeMessage
	rec := model.Record{
		"user":    user,
		"role":    string(role),
		"title":   title,
		"message": message,
		"status":  model.NotificationUnread,
	}
	if orderID != "" {
		typ = model.NotificationTypeOrder
		rec["order"] = orderID
	}
	if action != "" {
		rec["action"] = action
	}
	rec["type"] = typ

	if _, err := s.resources.Create(ctx, s.notifications, rec); err != nil {
		s.logger.Warn("failed to store notification", "user", user, "title", title, "error", err)
	}
}
