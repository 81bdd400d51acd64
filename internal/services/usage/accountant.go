package usage

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/models"
)

// Accountant keeps the append-only usage log. Every provider call ends
// up here, successful or not, priced from the configured table. Records
// are immutable once written; totals are always recomputed from the log
// rather than tracked as counters, so the two can never drift apart.
type Accountant struct {
	mu      sync.Mutex
	pricing map[string]common.ModelPricing
	records []*models.UsageRecord
	store   *badgerhold.Store // nil means in-memory only
	logger  arbor.ILogger
}

// NewAccountant creates an in-memory accountant.
func NewAccountant(pricing map[string]common.ModelPricing, logger arbor.ILogger) *Accountant {
	return &Accountant{
		pricing: pricing,
		logger:  logger,
	}
}

// NewPersistentAccountant creates an accountant backed by a badgerhold
// store at path, reloading any records from previous runs so totals
// survive restarts.
func NewPersistentAccountant(pricing map[string]common.ModelPricing, path string, logger arbor.ILogger) (*Accountant, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage store: %w", err)
	}

	accountant := &Accountant{
		pricing: pricing,
		store:   store,
		logger:  logger,
	}

	var persisted []models.UsageRecord
	if err := store.Find(&persisted, badgerhold.Where("ID").Ne("")); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load usage records: %w", err)
	}
	for i := range persisted {
		accountant.records = append(accountant.records, &persisted[i])
	}

	if len(persisted) > 0 {
		logger.Debug().Int("records", len(persisted)).Msg("Loaded persisted usage records")
	}

	return accountant, nil
}

// Call describes one provider call to be recorded.
type Call struct {
	SessionID    string
	ModelID      string
	Operation    models.UsageOperation
	InputTokens  int64
	OutputTokens int64
	Latency      time.Duration
	Success      bool
	ErrorKind    string
}

// Record appends one usage record. The model must exist in the pricing
// table; accounting never guesses a rate. Failed calls are recorded with
// whatever token counts the provider reported (usually zero).
func (a *Accountant) Record(call Call) (*models.UsageRecord, error) {
	pricing, ok := a.pricing[call.ModelID]
	if !ok {
		return nil, &models.UnknownPricingModelError{ModelID: call.ModelID}
	}

	record := &models.UsageRecord{
		ID:           common.NewUsageRecordID(),
		Timestamp:    time.Now().UTC(),
		SessionID:    call.SessionID,
		ModelID:      call.ModelID,
		Operation:    call.Operation,
		InputTokens:  call.InputTokens,
		OutputTokens: call.OutputTokens,
		Cost: float64(call.InputTokens)/1_000_000*pricing.InputPerMillion +
			float64(call.OutputTokens)/1_000_000*pricing.OutputPerMillion,
		LatencyMS: call.Latency.Milliseconds(),
		Success:   call.Success,
		ErrorKind: call.ErrorKind,
	}

	a.mu.Lock()
	a.records = append(a.records, record)
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Insert(record.ID, record); err != nil {
			a.logger.Warn().Str("record_id", record.ID).Err(err).Msg("Failed to persist usage record")
		}
	}

	return record, nil
}

// Totals aggregates the log. An empty sessionID aggregates everything;
// otherwise only the given session's records are summed.
func (a *Accountant) Totals(sessionID string) models.UsageTotals {
	a.mu.Lock()
	defer a.mu.Unlock()

	var totals models.UsageTotals
	for _, record := range a.records {
		if sessionID != "" && record.SessionID != sessionID {
			continue
		}
		totals.Calls++
		if !record.Success {
			totals.Failures++
		}
		totals.InputTokens += record.InputTokens
		totals.OutputTokens += record.OutputTokens
		totals.Cost += record.Cost
	}
	return totals
}

// Records returns a copy of the log, optionally filtered by session.
func (a *Accountant) Records(sessionID string) []*models.UsageRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*models.UsageRecord, 0, len(a.records))
	for _, record := range a.records {
		if sessionID != "" && record.SessionID != sessionID {
			continue
		}
		out = append(out, record)
	}
	return out
}

// Close releases the underlying store.
func (a *Accountant) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
