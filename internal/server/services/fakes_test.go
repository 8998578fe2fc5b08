package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/dbx"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/cart"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/products"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/users"
)

// memStore backs the fake repositories. Every method takes mu, so the
// fakes are safe for concurrent use.
type memStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	users    map[int64]models.User
	cart     map[int64]map[string]int

	upsertCalls  int
	failUpsertAt int // 1-based call number that fails; 0 never
	usersErr     error
	productsErr  error
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]models.Product{},
		users:    map[int64]models.User{},
		cart:     map[int64]map[string]int{},
	}
}

func (m *memStore) addProducts(ps ...models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		m.products[p.Article] = p
	}
}

func (m *memStore) addUser(id int64, role models.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = models.User{ID: id, Role: role}
}

func (m *memStore) cartQty(userID int64, article string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart[userID][article]
}

func (m *memStore) sorted(filter func(models.Product) bool, less func(a, b models.Product) bool) []models.Product {
	var out []models.Product
	for _, p := range m.products {
		if filter == nil || filter(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byName(a, b models.Product) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Article < b.Article
}

type fakeProducts struct{ s *memStore }

func (f fakeProducts) UpsertBatch(_ context.Context, batch []models.Product) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.upsertCalls++
	if f.s.failUpsertAt == f.s.upsertCalls {
		return errors.New("db error: connection reset")
	}
	for _, p := range batch {
		f.s.products[p.Article] = p
	}
	return nil
}

func (f fakeProducts) GetByArticle(_ context.Context, article string) (*models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.products[article]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (f fakeProducts) LockByArticle(ctx context.Context, article string) (*models.Product, error) {
	return f.GetByArticle(ctx, article)
}

func (f fakeProducts) Count(context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.productsErr != nil {
		return 0, f.s.productsErr
	}
	return len(f.s.products), nil
}

func (f fakeProducts) Departments(context.Context) ([]int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	seen := map[int]bool{}
	var out []int
	for _, p := range f.s.products {
		if !seen[p.Department] {
			seen[p.Department] = true
			out = append(out, p.Department)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (f fakeProducts) PathsUnder(_ context.Context, dept int, prefix string) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.productsErr != nil {
		return nil, f.s.productsErr
	}
	seen := map[string]bool{}
	var out []string
	for _, p := range f.s.products {
		if p.Department != dept || p.CategoryPath == "" || seen[p.CategoryPath] {
			continue
		}
		if prefix == "" || p.CategoryPath == prefix || strings.HasPrefix(p.CategoryPath, prefix+"/") {
			seen[p.CategoryPath] = true
			out = append(out, p.CategoryPath)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f fakeProducts) ListByPath(_ context.Context, dept int, path string, limit, offset int) ([]models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	all := f.s.sorted(func(p models.Product) bool { return p.Department == dept && p.CategoryPath == path }, byName)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (f fakeProducts) CountByPath(_ context.Context, dept int, path string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, p := range f.s.products {
		if p.Department == dept && p.CategoryPath == path {
			n++
		}
	}
	return n, nil
}

func (f fakeProducts) Search(_ context.Context, query string, limit int) ([]models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	q := strings.ToLower(query)
	all := f.s.sorted(func(p models.Product) bool {
		return p.Article == query || strings.Contains(strings.ToLower(p.Name), q)
	}, byName)
	return all[:min(limit, len(all))], nil
}

func (f fakeProducts) ListAll(_ context.Context, dept *int) ([]models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.sorted(func(p models.Product) bool { return dept == nil || p.Department == *dept },
		func(a, b models.Product) bool {
			if a.Department != b.Department {
				return a.Department < b.Department
			}
			return byName(a, b)
		}), nil
}

func (f fakeProducts) ReplenishmentCandidates(_ context.Context, critical float64) ([]models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.sorted(func(p models.Product) bool {
		return (p.StockQty < p.SalesQty || p.StockQty < critical) && p.SalesQty > 0
	}, func(a, b models.Product) bool {
		if a.Supplier != b.Supplier {
			return a.Supplier < b.Supplier
		}
		return byName(a, b)
	}), nil
}

func (f fakeProducts) LowStock(_ context.Context, below float64) ([]models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.sorted(func(p models.Product) bool { return p.StockQty < below }, byName), nil
}

func (f fakeProducts) TopSales(_ context.Context, limit int) ([]models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	all := f.s.sorted(nil, func(a, b models.Product) bool { return a.SalesSum > b.SalesSum })
	return all[:min(limit, len(all))], nil
}

type fakeUsers struct{ s *memStore }

func (f fakeUsers) Touch(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return nil, f.s.usersErr
	}
	if old, ok := f.s.users[u.ID]; ok {
		u.Role = old.Role
	} else if u.Role == "" {
		u.Role = models.RoleShop
	}
	f.s.users[u.ID] = *u
	return u, nil
}

func (f fakeUsers) Get(_ context.Context, id int64) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return nil, f.s.usersErr
	}
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (f fakeUsers) Ensure(_ context.Context, id int64, role models.Role) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return f.s.usersErr
	}
	if _, ok := f.s.users[id]; !ok {
		f.s.users[id] = models.User{ID: id, Role: role}
	}
	return nil
}

func (f fakeUsers) SetRole(_ context.Context, id int64, role models.Role) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Role = role
	f.s.users[id] = u
	return nil
}

func (f fakeUsers) ids() []int64 {
	var ids []int64
	for id := range f.s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f fakeUsers) List(_ context.Context, limit, offset int) ([]models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ids := f.ids()
	if offset >= len(ids) {
		return nil, nil
	}
	var out []models.User
	for _, id := range ids[offset:min(offset+limit, len(ids))] {
		out = append(out, f.s.users[id])
	}
	return out, nil
}

func (f fakeUsers) Count(context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.usersErr != nil {
		return 0, f.s.usersErr
	}
	return len(f.s.users), nil
}

func (f fakeUsers) IDs(context.Context) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.ids(), nil
}

type fakeCart struct{ s *memStore }

// errFakeCartUserFK mirrors the cart.user_id foreign key on users.
var errFakeCartUserFK = errors.New(`db error: insert or update on table "cart" violates foreign key constraint "cart_user_id_fkey"`)

func (f fakeCart) Set(_ context.Context, userID int64, article string, qty int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[userID]; !ok {
		return errFakeCartUserFK
	}
	if f.s.cart[userID] == nil {
		f.s.cart[userID] = map[string]int{}
	}
	f.s.cart[userID][article] = qty
	return nil
}

func (f fakeCart) Lines(_ context.Context, userID int64) ([]models.CartLine, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.CartLine
	for article, qty := range f.s.cart[userID] {
		p := f.s.products[article]
		out = append(out, models.CartLine{
			Article: article, Name: p.Name, Quantity: qty, Department: p.Department, Supplier: p.Supplier,
			StockQty: p.StockQty, StockSum: p.StockSum, SalesQty: p.SalesQty, SalesSum: p.SalesSum,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeCart) Clear(_ context.Context, userID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.cart, userID)
	return nil
}

func (f fakeCart) RemoveLine(_ context.Context, userID int64, article string, quantity int) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	lines := f.s.cart[userID]
	if q, ok := lines[article]; !ok || q != quantity {
		return false, nil
	}
	delete(lines, article)
	if len(lines) == 0 {
		delete(f.s.cart, userID)
	}
	return true, nil
}

func (f fakeCart) HeldByOthers(_ context.Context, article string, userID int64) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	held := 0
	for uid, lines := range f.s.cart {
		if uid != userID {
			held += lines[article]
		}
	}
	return held, nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Products(dbx.DBTX) products.Repository       { return fakeProducts{m.s} }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return fakeUsers{m.s} }
func (m *fakeRepoManager) Cart(dbx.DBTX) cart.Repository               { return fakeCart{m.s} }

// lockingTx serializes units of work the way a row lock would, and counts
// commits and rollbacks.
type lockingTx struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (l *lockingTx) WithTx(ctx context.Context, fn dbx.TxFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fn(ctx, nil); err != nil {
		l.rollbacks++
		return err
	}
	l.commits++
	return nil
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.LoadDefaults()
	cfg.AdminIDs = []int64{1}
	return cfg
}
