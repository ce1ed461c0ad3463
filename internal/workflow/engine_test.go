package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perkflow/benefit-reimbursement/internal/classifier"
	"github.com/perkflow/benefit-reimbursement/internal/currency"
	"github.com/perkflow/benefit-reimbursement/internal/extraction"
	"github.com/perkflow/benefit-reimbursement/internal/models"
	"github.com/perkflow/benefit-reimbursement/internal/repository"
	"github.com/perkflow/benefit-reimbursement/internal/storage"
	"github.com/perkflow/benefit-reimbursement/internal/validation"
	"github.com/perkflow/benefit-reimbursement/pkg/database"
)

type fakeExtractor struct {
	data *extraction.Data
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, content []byte, contentType string) (*extraction.Data, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeMatcher struct {
	result *classifier.Result
	err    error
}

func (f *fakeMatcher) Classify(ctx context.Context, text string, items []models.InvoiceItem, categories []*models.Category) (*classifier.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeRateProvider struct {
	rate decimal.Decimal
}

func (f *fakeRateProvider) RateToReference(ctx context.Context, code string) (decimal.Decimal, error) {
	return f.rate, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *recordingNotifier) NotifyPendingReview(ctx context.Context, request *models.ReimbursementRequest, employee *models.Employee, rationale string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

type engineFixture struct {
	db       *database.DB
	engine   *Engine
	requests *repository.RequestRepository
	invoices *repository.InvoiceRepository
	balances *repository.BalanceRepository
	notifier *recordingNotifier
	employee *models.Employee
	category *models.Category
}

var engineNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// newEngineFixture wires an engine against real sqlite with fake
// extraction and classification providers. The seeded Fitness category
// has a 1000 transaction cap, 500 monthly limit and 3000 annual limit.
func newEngineFixture(t *testing.T, extractor extraction.Provider, matcher classifier.Provider) *engineFixture {
	t.Helper()

	dir := t.TempDir()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(dir, "test.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	employees := repository.NewEmployeeRepository(db.DB, logger)
	categories := repository.NewCategoryRepository(db.DB, logger)
	requests := repository.NewRequestRepository(db.DB, logger)
	invoices := repository.NewInvoiceRepository(db.DB, logger)
	balances := repository.NewBalanceRepository(db.DB, logger)

	employee := &models.Employee{ID: uuid.NewString(), Name: "Anna Kim", EmployeeCode: "E-1001"}
	require.NoError(t, employees.Create(nil, employee))

	category := &models.Category{
		ID:             uuid.NewString(),
		Name:           "Fitness",
		MaxTransaction: decimal.RequireFromString("1000"),
		AnnualLimit:    decimal.RequireFromString("3000"),
		MonthlyLimit:   decimal.RequireFromString("500"),
	}
	require.NoError(t, categories.Create(nil, category))

	store, err := storage.NewLocalDocumentStore(filepath.Join(dir, "docs"), "/documents", logger)
	require.NoError(t, err)

	converter := currency.NewConverter(
		&fakeRateProvider{rate: decimal.RequireFromString("1.10")},
		currency.NewRateCache(time.Hour),
		logger,
	)

	notifier := &recordingNotifier{}

	engine := NewEngine(
		db,
		employees,
		categories,
		requests,
		invoices,
		balances,
		store,
		extractor,
		matcher,
		classifier.NewGate(),
		validation.NewValidator(categories, balances, logger),
		converter,
		notifier,
		Config{ProviderTimeout: 5 * time.Second},
		logger,
	).WithClock(func() time.Time { return engineNow })

	return &engineFixture{
		db:       db,
		engine:   engine,
		requests: requests,
		invoices: invoices,
		balances: balances,
		notifier: notifier,
		employee: employee,
		category: category,
	}
}

func usdExtraction(amount string) *extraction.Data {
	vendor := "Gold Gym"
	return &extraction.Data{
		VendorName:    &vendor,
		TotalAmount:   decimal.RequireFromString(amount),
		Currency:      "USD",
		ExtractedText: "Gold Gym monthly membership",
	}
}

func jpegInput(f *engineFixture) SubmitInput {
	return SubmitInput{
		EmployeeID:  f.employee.ID,
		FileName:    "receipt.jpg",
		ContentType: "image/jpeg",
		Content:     []byte("fake jpeg bytes"),
	}
}

func TestSubmitRejectsUnsupportedFileType(t *testing.T) {
	f := newEngineFixture(t, &fakeExtractor{}, &fakeMatcher{})

	input := jpegInput(f)
	input.ContentType = "text/plain"

	_, err := f.engine.Submit(context.Background(), input)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestSubmitRejectsOversizedFile(t *testing.T) {
	f := newEngineFixture(t, &fakeExtractor{}, &fakeMatcher{})

	input := jpegInput(f)
	input.Content = make([]byte, MaxFileSize+1)

	_, err := f.engine.Submit(context.Background(), input)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSubmitUnknownEmployee(t *testing.T) {
	f := newEngineFixture(t, &fakeExtractor{}, &fakeMatcher{})

	input := jpegInput(f)
	input.EmployeeID = "no-such-employee"

	_, err := f.engine.Submit(context.Background(), input)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestSubmitApproves(t *testing.T) {
	matcher := &fakeMatcher{result: &classifier.Result{Confidence: 0.92}}
	f := newEngineFixture(t, &fakeExtractor{data: usdExtraction("120.50")}, matcher)
	matcher.result.CategoryID = &f.category.ID

	outcome, err := f.engine.Submit(context.Background(), jpegInput(f))
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, outcome.Request.Status)
	require.NotNil(t, outcome.Request.CategoryID)
	assert.Equal(t, f.category.ID, *outcome.Request.CategoryID)
	require.NotNil(t, outcome.CategoryName)
	assert.Equal(t, "Fitness", *outcome.CategoryName)
	require.NotNil(t, outcome.RemainingBalance)
	assert.True(t, outcome.RemainingBalance.Equal(decimal.RequireFromString("379.50")),
		"got %s", outcome.RemainingBalance)

	used, err := f.balances.MonthlyUsed(nil, f.employee.ID, f.category.ID, 2025, 6)
	require.NoError(t, err)
	assert.True(t, used.Equal(decimal.RequireFromString("120.50")), "approval accumulates the ledger")

	invoice, err := f.invoices.GetByRequestID(nil, outcome.Request.ID)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.True(t, invoice.TotalAmount.Equal(decimal.RequireFromString("120.50")))

	assert.Equal(t, 0, f.notifier.calls, "approved requests are not announced for review")
}

func TestSubmitConvertsBeforeValidation(t *testing.T) {
	// 600 EUR at the fake 1.10 rate is 660 USD, over the 500 monthly limit
	data := usdExtraction("600")
	data.Currency = "EUR"

	matcher := &fakeMatcher{result: &classifier.Result{Confidence: 0.92}}
	f := newEngineFixture(t, &fakeExtractor{data: data}, matcher)
	matcher.result.CategoryID = &f.category.ID

	outcome, err := f.engine.Submit(context.Background(), jpegInput(f))
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, outcome.Request.Status)
	require.NotNil(t, outcome.Request.RejectionReason)
	assert.Equal(t, "Insufficient monthly balance. Remaining: 500, Requested: 660", *outcome.Request.RejectionReason)

	used, err := f.balances.MonthlyUsed(nil, f.employee.ID, f.category.ID, 2025, 6)
	require.NoError(t, err)
	assert.True(t, used.IsZero(), "rejection never touches the ledger")
}

func TestSubmitRejectsOverTransactionCap(t *testing.T) {
	matcher := &fakeMatcher{result: &classifier.Result{Confidence: 0.92}}
	f := newEngineFixture(t, &fakeExtractor{data: usdExtraction("1000.01")}, matcher)
	matcher.result.CategoryID = &f.category.ID

	outcome, err := f.engine.Submit(context.Background(), jpegInput(f))
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, outcome.Request.Status)
	require.NotNil(t, outcome.Request.RejectionReason)
	assert.Equal(t, "Amount 1000.01 exceeds maximum transaction limit of 1000", *outcome.Request.RejectionReason)
}

func TestSubmitLowConfidenceDefers(t *testing.T) {
	matcher := &fakeMatcher{result: &classifier.Result{Confidence: 0.5}}
	f := newEngineFixture(t, &fakeExtractor{data: usdExtraction("120.50")}, matcher)
	matcher.result.CategoryID = &f.category.ID

	outcome, err := f.engine.Submit(context.Background(), jpegInput(f))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingReview, outcome.Request.Status)
	require.NotNil(t, outcome.Request.CategoryID, "the best guess survives deferral")
	assert.Equal(t, f.category.ID, *outcome.Request.CategoryID)
	assert.Nil(t, outcome.RemainingBalance)

	used, err := f.balances.MonthlyUsed(nil, f.employee.ID, f.category.ID, 2025, 6)
	require.NoError(t, err)
	assert.True(t, used.IsZero(), "deferred requests never touch the ledger")

	assert.Equal(t, 1, f.notifier.calls)
}

func TestSubmitUnclassifiedDefers(t *testing.T) {
	f := newEngineFixture(t,
		&fakeExtractor{data: usdExtraction("120.50")},
		&fakeMatcher{result: &classifier.Result{CategoryID: nil, Confidence: 0}},
	)

	outcome, err := f.engine.Submit(context.Background(), jpegInput(f))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingReview, outcome.Request.Status)
	assert.Nil(t, outcome.Request.CategoryID)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestSubmitExtractionFailureMarksFailed(t *testing.T) {
	f := newEngineFixture(t,
		&fakeExtractor{err: errors.New("vision model unavailable")},
		&fakeMatcher{},
	)

	_, err := f.engine.Submit(context.Background(), jpegInput(f))
	require.Error(t, err)

	var provider *ProviderError
	require.ErrorAs(t, err, &provider)
	assert.Equal(t, "extraction", provider.Stage)

	// the durable request row is flagged, nothing else persisted
	requests := listRequests(t, f)
	require.Len(t, requests, 1)
	assert.Equal(t, models.StatusFailed, requests[0].Status)

	invoice, err := f.invoices.GetByRequestID(nil, requests[0].ID)
	require.NoError(t, err)
	assert.Nil(t, invoice)
}

func TestSubmitConcurrentSharedLimit(t *testing.T) {
	// Two submissions of 300 against a 500 monthly limit: exactly one
	// may be approved regardless of interleaving.
	matcher := &fakeMatcher{result: &classifier.Result{Confidence: 0.92}}
	f := newEngineFixture(t, &fakeExtractor{data: usdExtraction("300")}, matcher)
	matcher.result.CategoryID = &f.category.ID

	var wg sync.WaitGroup
	outcomes := make([]*Outcome, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = f.engine.Submit(context.Background(), jpegInput(f))
		}(i)
	}
	wg.Wait()

	approved, rejected := 0, 0
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		switch outcomes[i].Request.Status {
		case models.StatusApproved:
			approved++
		case models.StatusRejected:
			rejected++
		}
	}

	assert.Equal(t, 1, approved, "only one submission fits the remaining limit")
	assert.Equal(t, 1, rejected)

	used, err := f.balances.MonthlyUsed(nil, f.employee.ID, f.category.ID, 2025, 6)
	require.NoError(t, err)
	assert.True(t, used.Equal(decimal.RequireFromString("300")), "ledger reflects exactly one approval")
}

func listRequests(t *testing.T, f *engineFixture) []*models.ReimbursementRequest {
	t.Helper()

	rows, err := f.db.Query(`SELECT id, status FROM reimbursement_requests`)
	require.NoError(t, err)
	defer rows.Close()

	var out []*models.ReimbursementRequest
	for rows.Next() {
		var req models.ReimbursementRequest
		var status string
		require.NoError(t, rows.Scan(&req.ID, &status))
		req.Status = models.RequestStatus(status)
		out = append(out, &req)
	}
	return out
}
