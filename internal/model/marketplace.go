package model

import "time"

// Order statuses.
const (
	OrderPending   = "pending"
	OrderAccepted  = "accepted"
	OrderExpired   = "expired"
	OrderCanceled  = "canceled"
	OrderDelivered = "delivered"
)

// Contract statuses.
const (
	ContractPending     = "pending"
	ContractActive      = "active"
	ContractExpired     = "expired"
	ContractRejected    = "rejected"
	ContractCanceled    = "canceled"
	ContractInterrupted = "interrupted"
)

// Notification attributes.
const (
	NotificationUnread = "unread"
	NotificationRead   = "read"

	NotificationTypeOrder   = "order"
	NotificationTypeMessage = "message"

	NotificationActionAccept = "accept"
	NotificationActionReject = "reject"
)

// CustomerRequest updates the customer profile keyed by the caller's account.
type CustomerRequest struct {
	SocketID *string `json:"socketId"`
	FullName *string `json:"fullName" binding:"omitempty,max=128"`
}

func (r *CustomerRequest) Record() Record {
	return Record{"socketId": r.SocketID, "fullName": r.FullName}
}

type DelivererRequest struct {
	SocketID      *string `json:"socketId"`
	Vehicle       string  `json:"vehicle" binding:"required"`
	VehiclePlate  string  `json:"vehiclePlate" binding:"required"`
	Cni           string  `json:"cni" binding:"required"`
	DriverLicense string  `json:"driverLicense" binding:"required"`
}

func (r *DelivererRequest) Record() Record {
	return Record{
		"socketId":      r.SocketID,
		"vehicle":       r.Vehicle,
		"vehiclePlate":  r.VehiclePlate,
		"cni":           r.Cni,
		"driverLicense": r.DriverLicense,
	}
}

type PartnerRequest struct {
	SocketID       *string `json:"socketId"`
	CompanyName    string  `json:"companyName" binding:"required"`
	CompanyAddress string  `json:"companyAddress" binding:"required"`
	CompanyPhone   string  `json:"companyPhone" binding:"required,phone"`
}

func (r *PartnerRequest) Record() Record {
	return Record{
		"socketId":       r.SocketID,
		"companyName":    r.CompanyName,
		"companyAddress": r.CompanyAddress,
		"companyPhone":   r.CompanyPhone,
	}
}

// OrderRequest is submitted by a customer. Customer and status are set by the server.
type OrderRequest struct {
	From  string     `json:"from" binding:"required"`
	To    string     `json:"to" binding:"required"`
	Price float64    `json:"price" binding:"required,gt=0"`
	Date  *time.Time `json:"date"`
}

func (r *OrderRequest) Record() Record {
	return Record{"from": r.From, "to": r.To, "price": r.Price, "date": dateOrToday(r.Date)}
}

type ProductRequest struct {
	Order       string  `json:"order" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	List        *string `json:"list"`
}

func (r *ProductRequest) Record() Record {
	return Record{"order": r.Order, "name": r.Name, "description": r.Description, "list": r.List}
}

// ContractRequest is a partner's proposal to a deliverer.
type ContractRequest struct {
	Deliverer string    `json:"deliverer" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required,gtfield=StartDate"`
}

func (r *ContractRequest) Record() Record {
	return Record{"deliverer": r.Deliverer, "startDate": r.StartDate, "endDate": r.EndDate}
}

type ContractStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active rejected canceled interrupted expired"`
}

type LocationRequest struct {
	Address   string   `json:"address" binding:"required"`
	Category  string   `json:"category" binding:"omitempty,oneof=home work other favorite current"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
}

func (r *LocationRequest) Record() Record {
	category := r.Category
	if category == "" {
		category = "other"
	}
	return Record{"address": r.Address, "category": category, "latitude": r.Latitude, "longitude": r.Longitude}
}
