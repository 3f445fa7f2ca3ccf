package ordersync

import (
	"fmt"
	"strings"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
)

// childContactQuery finds a person customer with the given entity name under a parent company
func childContactQuery(entityName string, parentID int) string {
	return fmt.Sprintf(
		"SELECT id, entityid, firstname, lastname, email, phone, isperson, parent "+
			"FROM customer WHERE isperson = 'T' AND parent = %d AND entityid = %s ORDER BY id",
		parentID, domain.QuoteLiteral(entityName),
	)
}

// salesOrderStatusQuery finds sales orders by external reference, newest first
func salesOrderStatusQuery(externalRefs []string) string {
	quoted := make([]string, len(externalRefs))
	for i, ref := range externalRefs {
		quoted[i] = domain.QuoteLiteral(ref)
	}
	return "SELECT id, tranid, externalid, BUILTIN.DF(status) AS status, createddate " +
		"FROM transaction WHERE type = 'SalesOrd' AND externalid IN (" + strings.Join(quoted, ", ") + ") " +
		"ORDER BY createddate DESC"
}

func customerFromRow(row domain.QueryRow) *domain.Customer {
	return &domain.Customer{
		ID:          row.Int("id"),
		EntityID:    row.String("entityid"),
		IsPerson:    row.Bool("isperson"),
		CompanyName: row.String("companyname"),
		FirstName:   row.String("firstname"),
		LastName:    row.String("lastname"),
		Email:       row.String("email"),
		Phone:       row.String("phone"),
		ParentID:    row.IntPtr("parent"),
	}
}
