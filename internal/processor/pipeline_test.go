package processor_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rezonia/trendyol-invoicer/internal/invoicing"
	"github.com/rezonia/trendyol-invoicer/internal/ledger"
	"github.com/rezonia/trendyol-invoicer/internal/metrics"
	"github.com/rezonia/trendyol-invoicer/internal/model"
	"github.com/rezonia/trendyol-invoicer/internal/oblio"
	"github.com/rezonia/trendyol-invoicer/internal/processor"
)

type mockIssuer struct {
	mock.Mock
}

func (m *mockIssuer) CreateInvoice(ctx context.Context, payload *model.InvoicePayload) (*oblio.InvoiceResult, error) {
	args := m.Called(ctx, payload)
	if res := args.Get(0); res != nil {
		return res.(*oblio.InvoiceResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIssuer) GetInvoice(ctx context.Context, series, number string) (*oblio.InvoiceDocument, error) {
	args := m.Called(ctx, series, number)
	if doc := args.Get(0); doc != nil {
		return doc.(*oblio.InvoiceDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendInvoiceLink(ctx context.Context, link string, packageID int64) error {
	return m.Called(ctx, link, packageID).Error(0)
}

type fixture struct {
	issuer    *mockIssuer
	notifier  *mockNotifier
	links     *ledger.Log[model.InvoiceLinkEntry]
	cancelled *ledger.Log[model.CancelledOrderEntry]
	metrics   *metrics.Metrics
	clock     *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	return &fixture{
		issuer:    new(mockIssuer),
		notifier:  new(mockNotifier),
		links:     ledger.NewInvoiceLinks(filepath.Join(dir, ledger.InvoiceLinksFile)),
		cancelled: ledger.NewCancelledOrders(filepath.Join(dir, ledger.CancelledOrdersFile)),
		metrics:   metrics.New(prometheus.NewRegistry()),
		clock:     clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)),
	}
}

func (f *fixture) pipeline(t *testing.T, policy invoicing.Policy, opts ...processor.Option) *processor.Pipeline {
	t.Helper()
	cfg := invoicing.DefaultConfig()
	cfg.CIF = "RO12345678"
	cfg.Policy = policy
	engine, err := invoicing.NewEngine(cfg)
	require.NoError(t, err)

	base := []processor.Option{
		processor.WithIssuer(f.issuer),
		processor.WithNotifier(f.notifier),
		processor.WithLedgers(f.links, f.cancelled),
		processor.WithLogger(zaptest.NewLogger(t)),
		processor.WithMetrics(f.metrics),
		processor.WithClock(f.clock),
		processor.WithDelay(0),
		processor.WithRunID("run-1"),
	}
	p, err := processor.NewPipeline(engine, append(base, opts...)...)
	require.NoError(t, err)
	return p
}

// order has one line of 2 x 25.00 with a 5.00 unit discount, so a total of 40.00
func order(id int64) model.Order {
	return model.Order{
		ID:          id,
		OrderNumber: "N" + decimal.NewFromInt(id).String(),
		CustomerID:  1,
		TotalPrice:  decimal.RequireFromString("40.00"),
		InvoiceAddress: model.InvoiceAddress{
			FirstName: "Maria",
			LastName:  "Ionescu",
			Address1:  "Str. Florilor 1",
			City:      "Cluj-Napoca",
			CountyID:  12261440,
		},
		Lines: []model.OrderLine{{
			ProductName: "Lampa",
			ProductCode: 55,
			Amount:      decimal.RequireFromString("25.00"),
			Quantity:    2,
			Status:      "Delivered",
			DiscountDetails: []model.DiscountDetail{
				{LineItemPrice: decimal.RequireFromString("20.00"), LineItemDiscount: decimal.RequireFromString("5.00")},
				{LineItemPrice: decimal.RequireFromString("20.00"), LineItemDiscount: decimal.RequireFromString("5.00")},
			},
		}},
	}
}

func issued(number string) *oblio.InvoiceResult {
	return &oblio.InvoiceResult{SeriesName: "AAA", Number: oblio.Number(number), Link: "https://oblio.eu/docs/" + number}
}

func reported(total string) *oblio.InvoiceDocument {
	return &oblio.InvoiceDocument{Total: decimal.RequireFromString(total)}
}

func TestNewPipeline_RequiresClientsOutsideDryRun(t *testing.T) {
	engine, err := invoicing.NewEngine(func() invoicing.Config {
		cfg := invoicing.DefaultConfig()
		cfg.CIF = "RO1"
		return cfg
	}())
	require.NoError(t, err)

	_, err = processor.NewPipeline(engine)
	assert.ErrorIs(t, err, processor.ErrNotConfigured)

	p, err := processor.NewPipeline(engine, processor.WithDryRun(true))
	require.NoError(t, err)
	assert.NotEmpty(t, p.RunID())
}

func TestRun_SubmitsVerifiesAndLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.issuer.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(p *model.InvoicePayload) bool {
		return p.Total().StringFixed(2) == "40.00"
	})).Return(issued("101"), nil).Once()
	f.issuer.On("GetInvoice", mock.Anything, "AAA", "101").Return(reported("40.00"), nil).Once()
	f.notifier.On("SendInvoiceLink", mock.Anything, "https://oblio.eu/docs/101", int64(1)).Return(nil).Once()

	report, err := f.pipeline(t, invoicing.PolicyV3).Run(ctx, []model.Order{order(1)})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	result := report.Results[0]
	assert.Equal(t, processor.OutcomeSubmitted, result.Outcome)
	assert.NoError(t, result.Error)
	assert.Equal(t, model.StageReported, result.Reconciliation.Stage)
	assert.Equal(t, 1, report.Stats.Submitted)
	assert.Equal(t, "run-1", report.RunID)

	entry, found, err := f.links.Find("1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "101", entry.InvoiceNumber)
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, "40.00", entry.TotalAmount.StringFixed(2))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InvoicesSubmittedTotal))
	f.issuer.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestRun_SkipsAlreadyInvoicedOrders(t *testing.T) {
	f := newFixture(t)
	withLink := order(1)
	withLink.InvoiceLink = "https://oblio.eu/docs/1"

	_, err := f.links.Append(model.InvoiceLinkEntry{OrderID: 2, InvoiceNumber: "50", InvoiceLink: "https://oblio.eu/docs/50"})
	require.NoError(t, err)

	report, err := f.pipeline(t, invoicing.PolicyV3, processor.WithDryRun(true)).
		Run(context.Background(), []model.Order{withLink, order(2)})
	require.NoError(t, err)

	assert.Equal(t, processor.OutcomeSkippedHasLink, report.Results[0].Outcome)
	assert.Equal(t, processor.OutcomeSkippedAlreadyLogged, report.Results[1].Outcome)
	assert.Equal(t, 2, report.Stats.AlreadyInvoiced())
	f.issuer.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "SendInvoiceLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_RelinksLoggedInvoiceWithoutLink(t *testing.T) {
	f := newFixture(t)
	_, err := f.links.Append(model.InvoiceLinkEntry{OrderID: 7, InvoiceSeries: "AAA", InvoiceNumber: "88", InvoiceLink: "https://oblio.eu/docs/88"})
	require.NoError(t, err)

	f.notifier.On("SendInvoiceLink", mock.Anything, "https://oblio.eu/docs/88", int64(7)).Return(nil).Once()

	report, err := f.pipeline(t, invoicing.PolicyV3).Run(context.Background(), []model.Order{order(7)})
	require.NoError(t, err)

	assert.Equal(t, processor.OutcomeRelinked, report.Results[0].Outcome)
	assert.Equal(t, 1, report.Stats.Relinked)
	f.issuer.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
	f.notifier.AssertExpectations(t)
}

func TestRun_SkipsCancelledAndAwaiting(t *testing.T) {
	f := newFixture(t)
	cancelled := order(1)
	cancelled.Lines[0].Status = model.StatusCancelled
	awaiting := order(2)
	awaiting.PackageHistories = []model.PackageHistory{{CreatedDate: 1, Status: model.StatusAwaiting}}

	report, err := f.pipeline(t, invoicing.PolicyV3).Run(context.Background(), []model.Order{cancelled, awaiting})
	require.NoError(t, err)

	assert.Equal(t, processor.OutcomeSkippedCancelled, report.Results[0].Outcome)
	assert.Equal(t, processor.OutcomeSkippedAwaiting, report.Results[1].Outcome)
	assert.Equal(t, 1, report.Stats.Skipped[processor.OutcomeSkippedCancelled])
	assert.Equal(t, 1, report.Stats.Skipped[processor.OutcomeSkippedAwaiting])

	found, err := f.cancelled.Contains("1")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = f.cancelled.Contains("2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRun_PayloadMismatchHaltsBeforeSubmission(t *testing.T) {
	f := newFixture(t)
	bad := order(1)
	bad.TotalPrice = decimal.RequireFromString("50.00")

	report, err := f.pipeline(t, invoicing.PolicyV3).Run(context.Background(), []model.Order{bad, order(2)})
	require.Error(t, err)
	assert.True(t, model.IsReconciliation(err))

	require.Len(t, report.Results, 1)
	assert.Equal(t, processor.OutcomeFailed, report.Results[0].Outcome)
	assert.Equal(t, 1, report.Stats.Mismatches)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReconciliationMismatchesTotal.WithLabelValues(string(model.StagePayload))))
	f.issuer.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
}

func TestRun_ReportedMismatchDoesNotLink(t *testing.T) {
	f := newFixture(t)
	f.issuer.On("CreateInvoice", mock.Anything, mock.Anything).Return(issued("102"), nil).Once()
	f.issuer.On("GetInvoice", mock.Anything, "AAA", "102").Return(reported("40.02"), nil).Once()

	report, err := f.pipeline(t, invoicing.PolicyV3).Run(context.Background(), []model.Order{order(1)})
	require.Error(t, err)

	var re *model.ReconciliationError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, model.StageReported, re.Stage)
	assert.Equal(t, "102", report.Results[0].Invoice.Number.String())

	found, err := f.links.Contains("1")
	require.NoError(t, err)
	assert.False(t, found)
	f.notifier.AssertNotCalled(t, "SendInvoiceLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_PolicyV2SkipsReportedCheck(t *testing.T) {
	f := newFixture(t)
	f.issuer.On("CreateInvoice", mock.Anything, mock.Anything).Return(issued("103"), nil).Once()
	f.notifier.On("SendInvoiceLink", mock.Anything, mock.Anything, int64(1)).Return(nil).Once()

	report, err := f.pipeline(t, invoicing.PolicyV2).Run(context.Background(), []model.Order{order(1)})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeSubmitted, report.Results[0].Outcome)
	f.issuer.AssertNotCalled(t, "GetInvoice", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ContinueOnError(t *testing.T) {
	f := newFixture(t)
	f.issuer.On("CreateInvoice", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	f.issuer.On("CreateInvoice", mock.Anything, mock.Anything).Return(issued("104"), nil).Once()
	f.issuer.On("GetInvoice", mock.Anything, "AAA", "104").Return(reported("40.00"), nil).Once()
	f.notifier.On("SendInvoiceLink", mock.Anything, mock.Anything, int64(2)).Return(nil).Once()

	report, err := f.pipeline(t, invoicing.PolicyV3, processor.WithContinueOnError(true)).
		Run(context.Background(), []model.Order{order(1), order(2)})
	require.NoError(t, err)

	assert.Equal(t, processor.OutcomeFailed, report.Results[0].Outcome)
	assert.EqualError(t, report.Results[0].Error, "boom")
	assert.Equal(t, processor.OutcomeSubmitted, report.Results[1].Outcome)
	assert.Equal(t, 1, report.Stats.Failed)
	assert.Equal(t, 1, report.Stats.Submitted)
}

func TestRun_DryRunCallsNothing(t *testing.T) {
	f := newFixture(t)
	cancelled := order(2)
	cancelled.Lines[0].Status = model.StatusCancelled

	report, err := f.pipeline(t, invoicing.PolicyV3, processor.WithDryRun(true)).
		Run(context.Background(), []model.Order{order(1), cancelled})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, processor.OutcomeReady, report.Results[0].Outcome)
	require.NotNil(t, report.Results[0].Payload)
	assert.Equal(t, 1, report.Stats.Ready)

	entries, err := f.cancelled.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
	f.issuer.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
}

func TestRun_Limit(t *testing.T) {
	f := newFixture(t)
	report, err := f.pipeline(t, invoicing.PolicyV3, processor.WithDryRun(true), processor.WithLimit(2)).
		Run(context.Background(), []model.Order{order(1), order(2), order(3)})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Stats.Total)
}

func TestRun_DelaysBetweenSubmittedOrders(t *testing.T) {
	f := newFixture(t)
	f.issuer.On("CreateInvoice", mock.Anything, mock.Anything).Return(issued("105"), nil)
	f.issuer.On("GetInvoice", mock.Anything, "AAA", "105").Return(reported("40.00"), nil)
	f.notifier.On("SendInvoiceLink", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	p := f.pipeline(t, invoicing.PolicyV3, processor.WithDelay(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, []model.Order{order(1), order(2)})
		done <- err
	}()

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.issuer.AssertNumberOfCalls(t, "CreateInvoice", 1)
	f.clock.Advance(time.Second)

	require.NoError(t, <-done)
	f.issuer.AssertNumberOfCalls(t, "CreateInvoice", 2)
}

func TestRun_CancelledContextHalts(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.pipeline(t, invoicing.PolicyV3).Run(ctx, []model.Order{order(1)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
}

type staticSource []model.Order

func (s staticSource) FetchOrders(context.Context, string) ([]model.Order, error) {
	return s, nil
}

func TestRunSource(t *testing.T) {
	f := newFixture(t)
	report, err := f.pipeline(t, invoicing.PolicyV3, processor.WithDryRun(true)).
		RunSource(context.Background(), staticSource{order(1)}, "Delivered")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.Ready)
}
