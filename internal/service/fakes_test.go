package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// In-memory store fakes. The ledger, lock manager, signal bus and quote
// cache come from their real in-process implementations; only the SQL-backed
// stores are faked here.

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memMarketStore struct {
	mu      sync.Mutex
	nextID  uint64
	markets map[uint64]domain.Market
}

func newMemMarketStore() *memMarketStore {
	return &memMarketStore{markets: make(map[uint64]domain.Market)}
}

func (s *memMarketStore) Create(_ context.Context, m domain.Market) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	s.markets[m.ID] = m
	return m.ID, nil
}

func (s *memMarketStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.markets, id)
	return nil
}

func (s *memMarketStore) GetByID(_ context.Context, id uint64) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMarketStore) UpdateState(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.markets[m.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Reserves = m.Reserves
	stored.YesSupply = m.YesSupply
	stored.NoSupply = m.NoSupply
	stored.Status = m.Status
	stored.Outcome = m.Outcome
	s.markets[m.ID] = stored
	return nil
}

func (s *memMarketStore) ListActive(_ context.Context, _ domain.ListOpts) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Market
	for _, m := range s.markets {
		if m.Status == domain.MarketStatusActive {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMarketStore) List(_ context.Context, _ domain.ListOpts) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Market
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

func (s *memMarketStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.markets)), nil
}

type memTradeStore struct {
	mu     sync.Mutex
	trades []domain.Trade
}

func (s *memTradeStore) Insert(_ context.Context, t domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return nil
}

func (s *memTradeStore) ListByMarket(_ context.Context, marketID uint64, _ domain.ListOpts) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Trade
	for _, t := range s.trades {
		if t.MarketID == marketID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memRedemptionStore struct {
	mu          sync.Mutex
	redemptions []domain.Redemption
}

func (s *memRedemptionStore) Insert(_ context.Context, r domain.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redemptions = append(s.redemptions, r)
	return nil
}

func (s *memRedemptionStore) ListByMarket(_ context.Context, marketID uint64, _ domain.ListOpts) ([]domain.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Redemption
	for _, r := range s.redemptions {
		if r.MarketID == marketID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memProtocolStore struct {
	mu sync.Mutex
	p  domain.Protocol
}

func newMemProtocolStore(p domain.Protocol) *memProtocolStore {
	return &memProtocolStore{p: p}
}

func (s *memProtocolStore) Init(_ context.Context, p domain.Protocol) (domain.Protocol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, nil
}

func (s *memProtocolStore) Get(_ context.Context) (domain.Protocol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, nil
}

func (s *memProtocolStore) SetPaused(_ context.Context, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Paused = paused
	return nil
}

func (s *memProtocolStore) SetFeeBps(_ context.Context, feeBps uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.FeeBps = feeBps
	return nil
}

func (s *memProtocolStore) AccrueFees(_ context.Context, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.FeesAccrued += amount
	return nil
}

func (s *memProtocolStore) IncrementMarketCount(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.MarketCount++
	return nil
}

type memAuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (s *memAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{
		ID:     int64(len(s.entries) + 1),
		Event:  event,
		Detail: detail,
	})
	return nil
}

func (s *memAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.entries...), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type recordingArchiver struct {
	mu       sync.Mutex
	archived []uint64
	trades   int
}

func (a *recordingArchiver) ArchiveMarket(_ context.Context, m domain.Market, trades []domain.Trade) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, m.ID)
	a.trades += len(trades)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Compile-time checks that the fakes satisfy the store interfaces.
var (
	_ domain.MarketStore     = (*memMarketStore)(nil)
	_ domain.TradeStore      = (*memTradeStore)(nil)
	_ domain.RedemptionStore = (*memRedemptionStore)(nil)
	_ domain.ProtocolStore   = (*memProtocolStore)(nil)
	_ domain.AuditStore      = (*memAuditStore)(nil)
)
