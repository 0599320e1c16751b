package testutil

import (
	"github.com/roach88/qmodel/internal/expr"
	"github.com/roach88/qmodel/internal/ir"
)

// Person is the item type of the People table.
var Person = expr.RecordOf("Person",
	expr.F("name", expr.String),
	expr.F("age", expr.Int),
	expr.F("city", expr.String),
)

// Order is the item type of the Orders table.
var Order = expr.RecordOf("Order",
	expr.F("id", expr.Int),
	expr.F("customer", expr.String),
	expr.F("total", expr.Float),
)

// PersonRow builds one People row.
func PersonRow(name string, age int64, city string) ir.IRObject {
	return ir.NewIRObjectFromPairs(
		ir.O("name", ir.IRString(name)),
		ir.O("age", ir.IRInt(age)),
		ir.O("city", ir.IRString(city)),
	)
}

// OrderRow builds one Orders row. total is a decimal literal.
func OrderRow(id int64, customer, total string) ir.IRObject {
	d, err := ir.ParseIRDecimal(total)
	if err != nil {
		panic(err)
	}
	return ir.NewIRObjectFromPairs(
		ir.O("id", ir.IRInt(id)),
		ir.O("customer", ir.IRString(customer)),
		ir.O("total", d),
	)
}

// PeopleRows is the fixed People table.
func PeopleRows() ir.IRArray {
	return ir.IRArray{
		PersonRow("ann", 34, "oslo"),
		PersonRow("bob", 27, "rome"),
		PersonRow("cy", 41, "oslo"),
		PersonRow("dee", 19, "lima"),
		PersonRow("eve", 34, "rome"),
	}
}

// OrderRows is the fixed Orders table.
func OrderRows() ir.IRArray {
	return ir.IRArray{
		OrderRow(1, "ann", "12.50"),
		OrderRow(2, "cy", "3.25"),
		OrderRow(3, "ann", "7.00"),
		OrderRow(4, "eve", "20.00"),
	}
}

// Tables returns the fixed tables by name.
func Tables() map[string]ir.IRArray {
	return map[string]ir.IRArray{
		"people": PeopleRows(),
		"orders": OrderRows(),
	}
}

// PeopleTable is the People table expression.
func PeopleTable() *expr.Table {
	return &expr.Table{Name: "people", T: expr.SequenceOf(Person)}
}

// OrdersTable is the Orders table expression.
func OrdersTable() *expr.Table {
	return &expr.Table{Name: "orders", T: expr.SequenceOf(Order)}
}
