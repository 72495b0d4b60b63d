package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/marketdata"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// memStore is an in-memory Store. Units of work stage their writes and
// apply them on Commit, holding the store lock for the whole unit so
// concurrent writers serialize the way row locks do in postgres.
type memStore struct {
	mu          sync.Mutex
	assets      map[string]*models.Asset
	txs         []*models.Transaction
	imported    map[string]bool
	nextAssetID int
	nextTxID    int
}

func newMemStore() *memStore {
	return &memStore{
		assets:      make(map[string]*models.Asset),
		imported:    make(map[string]bool),
		nextAssetID: 1,
		nextTxID:    1,
	}
}

func assetKey(portfolioID int, symbol string) string {
	return fmt.Sprintf("%d:%s", portfolioID, symbol)
}

func importKey(orderID, source string) string {
	return orderID + "|" + source
}

func copyAsset(a *models.Asset) *models.Asset {
	c := *a
	if a.LastPrice != nil {
		p := *a.LastPrice
		c.LastPrice = &p
	}
	return &c
}

func (s *memStore) Begin(ctx context.Context) (UnitOfWork, error) {
	s.mu.Lock()
	return &memUnitOfWork{store: s}, nil
}

func (s *memStore) GetAsset(portfolioID int, symbol string) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.assets[assetKey(portfolioID, symbol)]; ok {
		return copyAsset(a), nil
	}
	return nil, nil
}

func (s *memStore) GetAssetsByPortfolio(portfolioID int) ([]*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var assets []*models.Asset
	for _, a := range s.assets {
		if a.PortfolioID == portfolioID {
			assets = append(assets, copyAsset(a))
		}
	}
	return assets, nil
}

func (s *memStore) GetTransactionsBySymbol(portfolioID int, symbol string) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []*models.Transaction
	for _, t := range s.txs {
		if t.PortfolioID == portfolioID && t.AssetSymbol == symbol {
			c := *t
			txs = append(txs, &c)
		}
	}
	return txs, nil
}

func (s *memStore) GetTransactionsByPortfolio(portfolioID int) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []*models.Transaction
	for _, t := range s.txs {
		if t.PortfolioID == portfolioID {
			c := *t
			txs = append(txs, &c)
		}
	}
	return txs, nil
}

func (s *memStore) UpdateAssetPrice(portfolioID int, symbol string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[assetKey(portfolioID, symbol)]
	if !ok {
		return fmt.Errorf("asset not found: %s", symbol)
	}
	p := price
	a.LastPrice = &p
	return nil
}

// memUnitOfWork stages writes until Commit so failed operations leave
// no partial state.
type memUnitOfWork struct {
	store    *memStore
	created  []*models.Asset
	updated  []*models.Asset
	appended []*models.Transaction
	marks    []string
	done     bool
}

func (u *memUnitOfWork) GetAssetForUpdate(portfolioID int, symbol string) (*models.Asset, error) {
	if a, ok := u.store.assets[assetKey(portfolioID, symbol)]; ok {
		return copyAsset(a), nil
	}
	return nil, nil
}

func (u *memUnitOfWork) CreateAsset(a *models.Asset) error {
	a.ID = u.store.nextAssetID
	u.store.nextAssetID++
	u.created = append(u.created, a)
	return nil
}

func (u *memUnitOfWork) UpdateAssetPosition(a *models.Asset) error {
	u.updated = append(u.updated, a)
	return nil
}

func (u *memUnitOfWork) AppendTransaction(t *models.Transaction) error {
	t.ID = u.store.nextTxID
	u.store.nextTxID++
	u.appended = append(u.appended, t)
	return nil
}

func (u *memUnitOfWork) MarkTradeImported(orderID, source string) error {
	key := importKey(orderID, source)
	if u.store.imported[key] {
		return fmt.Errorf("trade already imported: %s/%s", orderID, source)
	}
	u.marks = append(u.marks, key)
	return nil
}

func (u *memUnitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	for _, a := range u.created {
		u.store.assets[assetKey(a.PortfolioID, a.Symbol)] = copyAsset(a)
	}
	for _, a := range u.updated {
		u.store.assets[assetKey(a.PortfolioID, a.Symbol)] = copyAsset(a)
	}
	for _, t := range u.appended {
		c := *t
		u.store.txs = append(u.store.txs, &c)
	}
	for _, key := range u.marks {
		u.store.imported[key] = true
	}
	u.done = true
	u.store.mu.Unlock()
	return nil
}

func (u *memUnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.mu.Unlock()
	return nil
}

// createRaceStore simulates another writer winning a first-buy race:
// the first CreateAsset fails with ErrAssetExists after the winner's
// row lands in the store, the way a unique-index violation surfaces
// once the competing transaction commits.
type createRaceStore struct {
	*memStore
	winner models.Asset
	raced  bool
}

func (s *createRaceStore) Begin(ctx context.Context) (UnitOfWork, error) {
	uow, err := s.memStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &createRaceUnitOfWork{uow.(*memUnitOfWork), s}, nil
}

type createRaceUnitOfWork struct {
	*memUnitOfWork
	s *createRaceStore
}

func (u *createRaceUnitOfWork) CreateAsset(a *models.Asset) error {
	if !u.s.raced {
		u.s.raced = true
		w := u.s.winner
		u.s.assets[assetKey(w.PortfolioID, w.Symbol)] = copyAsset(&w)
		return fmt.Errorf("%w: %s", ErrAssetExists, a.Symbol)
	}
	return u.memUnitOfWork.CreateAsset(a)
}

// fakeProvider serves canned asset info keyed by normalized symbol.
type fakeProvider struct {
	infos      map[string]marketdata.AssetInfo
	prices     map[string]decimal.Decimal
	fetchCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		infos:  make(map[string]marketdata.AssetInfo),
		prices: make(map[string]decimal.Decimal),
	}
}

func (p *fakeProvider) FetchAssetInfo(ctx context.Context, symbol, assetClass string) (*marketdata.AssetInfo, error) {
	p.fetchCalls++
	if info, ok := p.infos[symbol]; ok {
		return &info, nil
	}
	return nil, marketdata.ErrSymbolNotFound
}

func (p *fakeProvider) FetchLatestPrice(ctx context.Context, symbol, assetClass string) (*decimal.Decimal, error) {
	if price, ok := p.prices[symbol]; ok {
		return &price, nil
	}
	return nil, nil
}
