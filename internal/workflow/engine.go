package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
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

// MaxFileSize is the upload cap checked before any external call
const MaxFileSize = 10 * 1024 * 1024

// allowedContentTypes is the upload allow-list
var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// ReviewNotifier is told about requests deferred to manual review.
// Notification failures never fail the submission.
type ReviewNotifier interface {
	NotifyPendingReview(ctx context.Context, request *models.ReimbursementRequest, employee *models.Employee, rationale string) error
}

// Config holds engine tunables
type Config struct {
	// ProviderTimeout bounds each external collaborator call so a hung
	// provider aborts the submission instead of blocking it forever
	ProviderTimeout time.Duration
}

// Engine drives a submission through the approval pipeline:
// store document, create request, extract, classify, gate, validate,
// accumulate, finalize. The validate-accumulate-finalize step runs in
// one immediate transaction so concurrent submissions against the same
// balance period serialize.
type Engine struct {
	db         *database.DB
	employees  *repository.EmployeeRepository
	categories *repository.CategoryRepository
	requests   *repository.RequestRepository
	invoices   *repository.InvoiceRepository
	balances   *repository.BalanceRepository
	store      storage.DocumentStore
	extractor  extraction.Provider
	matcher    classifier.Provider
	gate       *classifier.Gate
	validator  *validation.Validator
	converter  *currency.Converter
	notifier   ReviewNotifier
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates a new approval engine
func NewEngine(
	db *database.DB,
	employees *repository.EmployeeRepository,
	categories *repository.CategoryRepository,
	requests *repository.RequestRepository,
	invoices *repository.InvoiceRepository,
	balances *repository.BalanceRepository,
	store storage.DocumentStore,
	extractor extraction.Provider,
	matcher classifier.Provider,
	gate *classifier.Gate,
	validator *validation.Validator,
	converter *currency.Converter,
	notifier ReviewNotifier,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 60 * time.Second
	}
	return &Engine{
		db:         db,
		employees:  employees,
		categories: categories,
		requests:   requests,
		invoices:   invoices,
		balances:   balances,
		store:      store,
		extractor:  extractor,
		matcher:    matcher,
		gate:       gate,
		validator:  validator,
		converter:  converter,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the engine clock, used by tests to pin the period
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// SubmitInput is one uploaded reimbursement submission
type SubmitInput struct {
	EmployeeID  string
	FileName    string
	ContentType string
	Content     []byte
}

// Outcome is the terminal result of a pipeline run
type Outcome struct {
	Request          *models.ReimbursementRequest
	Invoice          *models.Invoice
	Employee         *models.Employee
	CategoryName     *string
	RemainingBalance *decimal.Decimal // reference currency, approved only
	Rationale        string
}

// Submit runs the full approval pipeline for one uploaded document.
// File constraints are checked before any external call. Once the
// request row is durable, a fatal failure marks it failed and rolls
// back everything else.
func (e *Engine) Submit(ctx context.Context, input SubmitInput) (*Outcome, error) {
	if !allowedContentTypes[input.ContentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, input.ContentType)
	}
	if len(input.Content) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	employee, err := e.employees.GetByID(nil, input.EmployeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, input.EmployeeID)
	}

	doc, err := e.storeDocument(ctx, input)
	if err != nil {
		return nil, err
	}

	// The request is persisted immediately so a crash mid-pipeline
	// leaves a visible record instead of silently losing the submission.
	request := &models.ReimbursementRequest{
		EmployeeID:  employee.ID,
		Status:      models.StatusProcessing,
		Amount:      decimal.Zero,
		Currency:    currency.Reference,
		DocumentURL: doc.URL,
		DocumentID:  doc.PublicID,
		SubmittedAt: e.now(),
	}
	if err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return e.requests.Create(tx, request)
	}); err != nil {
		return nil, err
	}

	outcome, err := e.runPipeline(ctx, request, employee, input)
	if err != nil {
		e.logger.Error("Pipeline aborted",
			zap.String("request_id", request.ID),
			zap.Error(err))
		if markErr := e.requests.MarkFailed(request.ID); markErr != nil {
			e.logger.Error("Failed to mark request failed",
				zap.String("request_id", request.ID),
				zap.Error(markErr))
		}
		return nil, err
	}

	if outcome.Request.Status == models.StatusPendingReview && e.notifier != nil {
		if err := e.notifier.NotifyPendingReview(ctx, outcome.Request, employee, outcome.Rationale); err != nil {
			e.logger.Warn("Review notification failed",
				zap.String("request_id", request.ID),
				zap.Error(err))
		}
	}

	return outcome, nil
}

func (e *Engine) storeDocument(ctx context.Context, input SubmitInput) (*storage.StoredDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()

	doc, err := e.store.Store(ctx, input.Content, input.FileName)
	if err != nil {
		return nil, &ProviderError{Stage: "storage", Err: err}
	}
	return doc, nil
}

// runPipeline executes extraction through finalization. Any error here
// is fatal: the invoice row, ledger mutation and status all live in one
// transaction that is rolled back together.
func (e *Engine) runPipeline(ctx context.Context, request *models.ReimbursementRequest, employee *models.Employee, input SubmitInput) (*Outcome, error) {
	data, err := e.extract(ctx, input)
	if err != nil {
		return nil, err
	}

	request.Amount = data.TotalAmount
	request.Currency = data.Currency

	invoice := buildInvoice(request, data)

	decision, err := e.classify(ctx, data)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Classification gate decision",
		zap.String("request_id", request.ID),
		zap.String("route", decision.Route.String()),
		zap.Float64("confidence", decision.Confidence))

	// Normalize before opening the write transaction: rate lookups do
	// network I/O and must not run while holding the write lock.
	var normalized decimal.Decimal
	if decision.Route == classifier.RouteAutoEligible {
		normalized, err = e.normalize(ctx, request.Amount, request.Currency)
		if err != nil {
			return nil, err
		}
	}

	outcome := &Outcome{
		Request:   request,
		Invoice:   invoice,
		Employee:  employee,
		Rationale: decision.Rationale,
	}

	err = e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := e.requests.UpdateExtracted(tx, request); err != nil {
			return err
		}
		if err := e.invoices.Create(tx, invoice); err != nil {
			return err
		}

		switch decision.Route {
		case classifier.RouteAutoEligible:
			return e.decide(tx, request, *decision.CategoryID, normalized, outcome)

		case classifier.RouteDeferredWithGuess:
			request.Status = models.StatusPendingReview
			request.CategoryID = decision.CategoryID
			return e.requests.Finalize(tx, request)

		default: // RouteDeferredUnclassified
			request.Status = models.StatusPendingReview
			return e.requests.Finalize(tx, request)
		}
	})
	if err != nil {
		return nil, err
	}

	if request.CategoryID != nil {
		category, err := e.categories.GetByID(nil, *request.CategoryID)
		if err == nil && category != nil {
			outcome.CategoryName = &category.Name
		}
	}

	e.logger.Info("Submission finalized",
		zap.String("request_id", request.ID),
		zap.String("status", string(request.Status)))

	return outcome, nil
}

// decide runs validation and, on success, the ledger accumulation
// against the caller's transaction so the read-check-write sequence
// is atomic per balance period.
func (e *Engine) decide(tx *sql.Tx, request *models.ReimbursementRequest, categoryID string, normalized decimal.Decimal, outcome *Outcome) error {
	request.CategoryID = &categoryID

	result, err := e.validator.Validate(tx, request.EmployeeID, categoryID, normalized, e.now())
	if err != nil {
		return err
	}

	if !result.Valid {
		request.Status = models.StatusRejected
		request.RejectionReason = &result.Reason
		outcome.Rationale = result.Reason
		return e.requests.Finalize(tx, request)
	}

	now := e.now()
	if _, err := e.balances.Accumulate(tx, request.EmployeeID, categoryID, now.Year(), int(now.Month()), normalized); err != nil {
		return err
	}

	request.Status = models.StatusApproved
	if result.Remaining != nil {
		remaining := result.Remaining.Sub(normalized)
		outcome.RemainingBalance = &remaining
	}

	return e.requests.Finalize(tx, request)
}

func (e *Engine) extract(ctx context.Context, input SubmitInput) (*extraction.Data, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()

	data, err := e.extractor.Extract(ctx, input.Content, input.ContentType)
	if err != nil {
		return nil, &ProviderError{Stage: "extraction", Err: err}
	}
	return data, nil
}

func (e *Engine) classify(ctx context.Context, data *extraction.Data) (classifier.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()

	categories, err := e.categories.List(nil)
	if err != nil {
		return classifier.Decision{}, err
	}

	result, err := e.matcher.Classify(ctx, data.ExtractedText, data.Items, categories)
	if err != nil {
		return classifier.Decision{}, &ProviderError{Stage: "classification", Err: err}
	}

	return e.gate.Route(result), nil
}

func (e *Engine) normalize(ctx context.Context, amount decimal.Decimal, code string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()

	normalized, err := e.converter.ToReference(ctx, amount, code)
	if err != nil {
		var unsupported *currency.UnsupportedCurrencyError
		if errors.As(err, &unsupported) {
			return decimal.Zero, err
		}
		return decimal.Zero, &ProviderError{Stage: "rates", Err: err}
	}
	return normalized, nil
}

func buildInvoice(request *models.ReimbursementRequest, data *extraction.Data) *models.Invoice {
	invoice := &models.Invoice{
		RequestID:     request.ID,
		VendorName:    data.VendorName,
		Items:         data.Items,
		TotalAmount:   data.TotalAmount,
		Currency:      data.Currency,
		InvoiceNumber: data.InvoiceNumber,
		ExtractedText: data.ExtractedText,
	}

	if data.PurchaseDate != nil {
		if t, err := time.Parse("2006-01-02", *data.PurchaseDate); err == nil {
			invoice.PurchaseDate = &t
		}
		// Invalid date formats are dropped, matching lenient extraction
	}

	return invoice
}
