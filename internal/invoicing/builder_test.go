package invoicing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/model"
)

func testConfig() invoicing.Config {
	cfg := invoicing.DefaultConfig()
	cfg.CIF = "RO12345678"
	return cfg
}

// sectorThreeOrder has two lines (2 x 5.00 and 1 x 20.00 with a 1.50 discount) shipped to
// Bucharest Sector 3 and a marketplace total of 28.50.
func sectorThreeOrder() *model.Order {
	return &model.Order{
		ID:          3456789012,
		OrderNumber: "10654321987",
		CustomerID:  998877,
		TotalPrice:  decimal.RequireFromString("28.50"),
		Status:      "Delivered",
		InvoiceAddress: model.InvoiceAddress{
			FirstName:  "Ana",
			LastName:   "Pop",
			Address1:   "Str. Lipscani 10",
			Address2:   "Ap. 3",
			City:       "București",
			CountyID:   invoicing.BucharestCountyID,
			CountyName: "București",
			PostalCode: "030005",
		},
		Lines: []model.OrderLine{
			line("Cana ceramica", "5.00", 2, "0"),
			line("Ceainic", "20.00", 1, "1.50"),
		},
		PackageHistories: []model.PackageHistory{
			{CreatedDate: 1700000000000, Status: "Created"},
			{CreatedDate: 1700000500000, Status: "Delivered"},
		},
	}
}

func TestBuild_SectorThreeScenario(t *testing.T) {
	payload, err := invoicing.NewBuilder(testConfig()).Build(sectorThreeOrder())
	require.NoError(t, err)

	assert.Equal(t, "RO12345678", payload.CIF)
	assert.Equal(t, "AAA", payload.SeriesName)
	assert.Equal(t, "Sector 3", payload.Client.City)
	assert.Equal(t, "Ana Pop", payload.Client.Name)
	assert.Equal(t, "Str. Lipscani 10 Ap. 3", payload.Client.Address)
	assert.Equal(t, "București", payload.Client.State)
	assert.Equal(t, "Romania", payload.Client.Country)
	assert.Equal(t, "998877", payload.Client.Code)
	assert.True(t, bool(payload.Client.Save))

	require.Len(t, payload.Products, 3)
	assert.False(t, payload.Products[0].IsDiscount())
	assert.True(t, payload.Products[0].Price.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, 2, payload.Products[0].Quantity)
	assert.False(t, payload.Products[1].IsDiscount())
	assert.True(t, payload.Products[1].Price.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, 1, payload.Products[1].Quantity)
	assert.True(t, payload.Products[2].IsDiscount())
	assert.True(t, payload.Products[2].Discount.Equal(decimal.RequireFromString("1.50")))

	assert.Equal(t, "28.50", payload.Total().StringFixed(2))
}

func TestBuild_DiscountFollowsItsProduct(t *testing.T) {
	order := sectorThreeOrder()
	order.Lines = []model.OrderLine{
		line("A", "10.00", 1, "1.00"),
		line("B", "10.00", 1, ""),
		line("C", "10.00", 2, "0.50"),
	}

	payload, err := invoicing.NewBuilder(testConfig()).Build(order)
	require.NoError(t, err)

	kinds := make([]string, 0, len(payload.Products))
	for _, p := range payload.Products {
		if p.IsDiscount() {
			kinds = append(kinds, "discount")
		} else {
			kinds = append(kinds, p.Name)
		}
	}
	assert.Equal(t, []string{"A", "discount", "B", "C", "discount"}, kinds)
}

func TestBuild_NameAndAddressSkipEmptyParts(t *testing.T) {
	order := sectorThreeOrder()
	order.InvoiceAddress.FirstName = "  "
	order.InvoiceAddress.LastName = "Pop "
	order.InvoiceAddress.Address2 = ""

	payload, err := invoicing.NewBuilder(testConfig()).Build(order)
	require.NoError(t, err)
	assert.Equal(t, "Pop", payload.Client.Name)
	assert.Equal(t, "Str. Lipscani 10", payload.Client.Address)
}

func TestBuild_FallsBackToCustomerName(t *testing.T) {
	order := sectorThreeOrder()
	order.InvoiceAddress.FirstName = ""
	order.InvoiceAddress.LastName = ""
	order.CustomerFirstName = "Ion"
	order.CustomerLastName = "Ionescu"

	payload, err := invoicing.NewBuilder(testConfig()).Build(order)
	require.NoError(t, err)
	assert.Equal(t, "Ion Ionescu", payload.Client.Name)
}

func TestBuild_PolicyWithoutSectors(t *testing.T) {
	cfg := testConfig()
	cfg.Policy = invoicing.PolicyV1

	payload, err := invoicing.NewBuilder(cfg).Build(sectorThreeOrder())
	require.NoError(t, err)
	assert.Equal(t, "București", payload.Client.City)
}

func TestBuild_NoLines(t *testing.T) {
	order := sectorThreeOrder()
	order.Lines = nil

	_, err := invoicing.NewBuilder(testConfig()).Build(order)
	assert.True(t, model.IsDataInvariant(err))
}

func TestBuild_PropagatesLineError(t *testing.T) {
	order := sectorThreeOrder()
	order.Lines[1].DiscountDetails[0].LineItemTyDiscount = decimal.RequireFromString("1.50")

	payload, err := invoicing.NewBuilder(testConfig()).Build(order)
	assert.Nil(t, payload)

	var de *model.DataInvariantError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, order.ID, de.OrderID)
}

func TestBuild_IsPure(t *testing.T) {
	builder := invoicing.NewBuilder(testConfig())
	order := sectorThreeOrder()

	first, err := builder.Build(order)
	require.NoError(t, err)
	second, err := builder.Build(order)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "București", order.InvoiceAddress.City)
}

func BenchmarkBuild(b *testing.B) {
	builder := invoicing.NewBuilder(testConfig())
	order := sectorThreeOrder()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = builder.Build(order)
	}
}
