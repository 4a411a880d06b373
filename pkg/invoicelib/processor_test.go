package invoicelib_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/trendyol-invoicer/pkg/invoicelib"
)

const pageJSON = `{"page": 0, "size": 2, "totalPages": 1, "totalElements": 2, "content": [
	{"id": 11, "orderNumber": "B1", "customerId": 1, "totalPrice": 30.00,
	 "invoiceAddress": {"firstName": "Ana", "lastName": "Pop", "address1": "Str. 1", "city": "Bucuresti",
		"countyId": 12261437, "postalCode": "060100"},
	 "lines": [{"productName": "Perna", "productCode": 4, "amount": 15.00, "quantity": 2, "orderLineItemStatusName": "Delivered"}]},
	{"id": 12, "orderNumber": "B2", "customerId": 2, "totalPrice": 15.00,
	 "invoiceAddress": {"firstName": "Dan", "city": "Iasi", "countyId": 1},
	 "lines": [{"productName": "Perna", "productCode": 4, "amount": 15.00, "quantity": 1, "orderLineItemStatusName": "Awaiting"}]}
]}`

func newProcessor(t *testing.T, opts invoicelib.Options) *invoicelib.Processor {
	t.Helper()
	proc, err := invoicelib.NewProcessor(opts)
	require.NoError(t, err)
	return proc
}

func TestDefaultOptions(t *testing.T) {
	opts := invoicelib.DefaultOptions()

	assert.Equal(t, "AAA", opts.SeriesName)
	assert.Equal(t, 21, opts.VATPercentage)
	assert.Equal(t, int64(12261437), opts.BucharestCountyID)
	assert.Equal(t, "0.01", opts.Tolerance)
	assert.Equal(t, "v3", opts.Policy)
}

func TestNewProcessor_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts invoicelib.Options
	}{
		{"missing CIF", invoicelib.Options{}},
		{"bad tolerance", invoicelib.Options{CIF: "RO1", Tolerance: "abc"}},
		{"unknown policy", invoicelib.Options{CIF: "RO1", Policy: "v9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoicelib.NewProcessor(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestParseOrders(t *testing.T) {
	orders, err := invoicelib.ParseOrders(strings.NewReader(pageJSON))
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(11), orders[0].ID)

	bare, err := invoicelib.ParseOrders(strings.NewReader(`  [{"id": 5}]`))
	require.NoError(t, err)
	require.Len(t, bare, 1)
	assert.Equal(t, int64(5), bare[0].ID)

	_, err = invoicelib.ParseOrders(strings.NewReader(""))
	assert.Error(t, err)
	_, err = invoicelib.ParseOrders(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestProcessorPrepare(t *testing.T) {
	proc := newProcessor(t, invoicelib.Options{CIF: "RO12345678"})
	orders, err := invoicelib.ParseOrders(strings.NewReader(pageJSON))
	require.NoError(t, err)

	result, err := proc.Prepare(&orders[0])
	require.NoError(t, err)
	assert.True(t, result.Ready())
	assert.Equal(t, "Sector 6", result.Payload.Client.City)
	assert.True(t, result.Computed.Equal(decimal.RequireFromString("30")))
	assert.True(t, result.Delta.IsZero())

	skipped, err := proc.Prepare(&orders[1])
	require.NoError(t, err)
	assert.Equal(t, invoicelib.SkipAwaiting, skipped.Verdict)
	assert.False(t, skipped.Ready())
}

func TestProcessorPrepare_Mismatch(t *testing.T) {
	proc := newProcessor(t, invoicelib.Options{CIF: "RO12345678"})
	orders, err := invoicelib.ParseOrders(strings.NewReader(pageJSON))
	require.NoError(t, err)
	orders[0].TotalPrice = decimal.RequireFromString("29.00")

	result, err := proc.Prepare(&orders[0])
	var re *invoicelib.ReconciliationError
	require.ErrorAs(t, err, &re)
	assert.Nil(t, result.Payload)
	assert.True(t, result.Delta.Equal(decimal.RequireFromString("1")))
}

func TestProcessorPrepare_PolicyV1ReportsDeltaWithoutFailing(t *testing.T) {
	proc := newProcessor(t, invoicelib.Options{CIF: "RO12345678", Policy: "v1"})
	assert.Equal(t, invoicelib.PolicyV1, proc.Policy())

	orders, err := invoicelib.ParseOrders(strings.NewReader(pageJSON))
	require.NoError(t, err)
	orders[0].TotalPrice = decimal.RequireFromString("29.00")

	result, err := proc.Prepare(&orders[0])
	require.NoError(t, err)
	assert.True(t, result.Ready())
	assert.True(t, result.Delta.Equal(decimal.RequireFromString("1")))
	assert.Equal(t, "Bucuresti", result.Payload.Client.City)
}

func TestProcessorPrepareBatch(t *testing.T) {
	proc := newProcessor(t, invoicelib.Options{CIF: "RO12345678"})
	orders, err := invoicelib.ParseOrders(strings.NewReader(pageJSON))
	require.NoError(t, err)

	results, err := proc.PrepareBatch(orders)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, invoicelib.Proceed, results[0].Verdict)
	assert.Equal(t, invoicelib.SkipAwaiting, results[1].Verdict)
}

func TestProcessorPrepareBatch_ReturnsFirstError(t *testing.T) {
	proc := newProcessor(t, invoicelib.Options{CIF: "RO12345678"})
	orders, err := invoicelib.ParseOrders(strings.NewReader(pageJSON))
	require.NoError(t, err)
	orders[0].Lines[0].Quantity = 0

	results, err := proc.PrepareBatch(orders)
	require.Error(t, err)
	require.Len(t, results, 2)
	assert.NotNil(t, results[1])
}

func TestProcessorPrepareBatch_EarliestErrorWins(t *testing.T) {
	proc := newProcessor(t, invoicelib.Options{CIF: "RO12345678"})

	for i := 0; i < 50; i++ {
		orders, err := invoicelib.ParseOrders(strings.NewReader(pageJSON))
		require.NoError(t, err)
		orders[0].Lines[0].Quantity = 0
		orders[1].Lines[0].Status = "Delivered"
		orders[1].Lines[0].Quantity = 0

		results, err := proc.PrepareBatch(orders)
		require.Len(t, results, 2)

		var de *invoicelib.DataInvariantError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, int64(11), de.OrderID)
		assert.Nil(t, results[0].Payload)
		assert.Nil(t, results[1].Payload)
	}
}
