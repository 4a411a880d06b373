package invoicing

import (
	"strconv"

	"github.com/rezonia/trendyol-invoicer/internal/model"
)

// Builder assembles Oblio invoice payloads from orders
type Builder struct {
	cfg   Config
	lines *LineTransformer
}

// NewBuilder creates a builder for the given issuer settings
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		cfg: cfg,
		lines: &LineTransformer{
			VATPercentage: cfg.VATPercentage,
			Discount:      cfg.Policy.Discount,
		},
	}
}

// Build creates the invoice payload for an order. Rows keep the order of the lines,
// each product immediately followed by its discount.
func (b *Builder) Build(order *model.Order) (*model.InvoicePayload, error) {
	products := make([]model.LineItem, 0, len(order.Lines)*2)
	for _, line := range order.Lines {
		items, err := b.lines.TransformLine(order.ID, line)
		if err != nil {
			return nil, err
		}
		products = append(products, items...)
	}
	if len(products) == 0 {
		return nil, model.NewDataInvariantError(order.ID, "lines", "order has no lines")
	}

	return &model.InvoicePayload{
		CIF:        b.cfg.CIF,
		SeriesName: b.cfg.SeriesName,
		Client:     b.client(order),
		Products:   products,
	}, nil
}

func (b *Builder) client(order *model.Order) model.Client {
	addr := order.InvoiceAddress

	city := addr.City
	if b.cfg.Policy.NormalizeSectors {
		city = NormalizeCity(addr, b.cfg.BucharestCountyID)
	}

	name := joinNonEmpty(addr.FirstName, addr.LastName)
	if name == "" {
		name = joinNonEmpty(order.CustomerFirstName, order.CustomerLastName)
	}

	return model.Client{
		Name:    name,
		Address: joinNonEmpty(addr.Address1, addr.Address2),
		State:   addr.CountyName,
		City:    city,
		Country: model.CountryRomania,
		Save:    true,
		Code:    strconv.FormatInt(order.CustomerID, 10),
	}
}
