package invoicing

import (
	"fmt"
	"strconv"

	money "github.com/rezonia/trendyol-invoicer/internal/decimal"
	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// LineTransformer converts order lines into invoice rows
type LineTransformer struct {
	VATPercentage int
	Discount      DiscountMode
}

// TransformLine returns the product row for a line, followed by its discount row when the line
// carries a seller discount. Marketplace-funded discounts are rejected: they are not the
// seller's to invoice.
func (t *LineTransformer) TransformLine(orderID int64, line model.OrderLine) ([]model.LineItem, error) {
	if line.Quantity <= 0 {
		return nil, model.NewDataInvariantError(orderID, "quantity",
			fmt.Sprintf("line %q has quantity %d", line.ProductName, line.Quantity))
	}
	if !money.IsNonNegative(line.Amount) {
		return nil, model.NewDataInvariantError(orderID, "amount",
			fmt.Sprintf("line %q has negative unit price %s", line.ProductName, line.Amount.String()))
	}
	for _, d := range line.DiscountDetails {
		if !d.LineItemTyDiscount.IsZero() {
			return nil, model.NewDataInvariantError(orderID, "discountDetails.lineItemTyDiscount",
				fmt.Sprintf("line %q has marketplace-funded discount %s", line.ProductName, d.LineItemTyDiscount.String()))
		}
	}

	unitDiscount := line.UnitDiscount()
	if !money.IsNonNegative(unitDiscount) {
		return nil, model.NewDataInvariantError(orderID, "discountDetails.lineItemDiscount",
			fmt.Sprintf("line %q has negative discount %s", line.ProductName, unitDiscount.String()))
	}

	items := make([]model.LineItem, 0, 2)
	items = append(items, model.NewProductItem(line.ProductName, productCode(line), line.Amount,
		line.Quantity, t.VATPercentage))

	discount := unitDiscount
	if t.Discount == DiscountPerUnit {
		discount = money.MulQty(unitDiscount, line.Quantity)
	}
	if money.IsPositive(discount) {
		items = append(items, model.NewDiscountItem(discount))
	}

	return items, nil
}

func productCode(line model.OrderLine) string {
	if line.ProductCode != 0 {
		return strconv.FormatInt(line.ProductCode, 10)
	}
	return line.MerchantSKU
}
