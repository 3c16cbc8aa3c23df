package protection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt records one executed protection
type Receipt struct {
	ID                 string          `json:"id"`
	PositionID         string          `json:"position_id"`
	UserID             string          `json:"user_id"`
	ContractID         string          `json:"contract_id"`
	TxHash             string          `json:"tx_hash"`
	Actions            []Action        `json:"actions"`
	HealthFactorBefore decimal.Decimal `json:"health_factor_before"`
	HealthFactorAfter  decimal.Decimal `json:"health_factor_after"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ReceiptStore persists protection receipts
type ReceiptStore interface {
	Save(ctx context.Context, r *Receipt) error
	Get(ctx context.Context, id string) (*Receipt, error)
	ListByPosition(ctx context.Context, positionID string) ([]*Receipt, error)
	Ping(ctx context.Context) error
}

// MemoryReceiptStore keeps receipts in process memory
type MemoryReceiptStore struct {
	mu       sync.RWMutex
	receipts map[string]*Receipt
}

func NewMemoryReceiptStore() *MemoryReceiptStore {
	return &MemoryReceiptStore{receipts: make(map[string]*Receipt)}
}

func (s *MemoryReceiptStore) Save(_ context.Context, r *Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.Actions = append([]Action(nil), r.Actions...)
	s.receipts[r.ID] = &cp
	return nil
}

func (s *MemoryReceiptStore) Get(_ context.Context, id string) (*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	if !ok {
		return nil, ErrReceiptNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryReceiptStore) ListByPosition(_ context.Context, positionID string) ([]*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Receipt
	for _, r := range s.receipts {
		if r.PositionID == positionID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryReceiptStore) Ping(context.Context) error {
	return nil
}
