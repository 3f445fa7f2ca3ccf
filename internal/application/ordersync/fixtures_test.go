package ordersync

import (
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
)

func testOptions() Options {
	return Options{
		SubsidiaryID:    3,
		DepartmentID:    7,
		DropShipMarkers: []string{"drop ship"},
		BulkDelay:       0,
	}
}

func testOrder(orderID string) *domain.Order {
	return &domain.Order{
		OrderID:   orderID,
		OrderDate: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		Status:    domain.OrderStatusNew,
		Billing: domain.BillingContact{
			FirstName: "John",
			LastName:  "Smith",
			Email:     "john@example.com",
			Phone:     "555-0100",
			Address:   "1 Main St",
			City:      "Austin",
			State:     "TX",
			Zip:       "78701",
		},
		Items: []domain.LineItem{
			{CatalogID: "501", ItemID: "SKU-501", Description: "Widget", Quantity: dec("2"), UnitPrice: dec("10.00"), OptionPrice: dec("2.50")},
			{CatalogID: "502", ItemID: "SKU-502", Description: "Gadget", Quantity: dec("1"), UnitPrice: dec("40.00")},
		},
		Amount:        dec("76.00"),
		Discount:      dec("5.00"),
		Tax:           dec("4.00"),
		Shipping:      dec("12.00"),
		PaymentMethod: "Credit Card",
		Shipments: []domain.Shipment{
			{
				FirstName:  "John",
				LastName:   "Smith",
				Address:    "9 Elm St",
				City:       "Dallas",
				State:      "TX",
				Zip:        "75001",
				MethodName: "UPS Ground",
				Cost:       dec("12.00"),
			},
		},
	}
}

func intPtr(n int) *int {
	return &n
}
