// Package console is a line-oriented front end for the inventory bot core.
// It plays the role of the chat client: every command acts on behalf of one
// chat user and files are "sent" by copying them into an outbox directory.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/filex"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/notify"
	"github.com/dmitrijs2005/stockkeeper/internal/server/catalog"
	"github.com/dmitrijs2005/stockkeeper/internal/server/exporter"
	"github.com/dmitrijs2005/stockkeeper/internal/server/importer"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
	"github.com/dmitrijs2005/stockkeeper/internal/server/services"
)

const (
	progressInterval = 2 * time.Second
	defaultArchive   = 10
)

type catalogAPI interface {
	Open(ctx context.Context, loc catalog.Location, page int) (*services.CatalogView, error)
	Ref(ctx context.Context, loc catalog.Location) (string, error)
	Resolve(ctx context.Context, ref string) (catalog.Location, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
	Card(ctx context.Context, article string) (*models.Product, error)
}

type cartAPI interface {
	SetQuantity(ctx context.Context, userID int64, article string, qty int) (*services.Reservation, error)
	View(ctx context.Context, userID int64) (*services.CartView, error)
	Clear(ctx context.Context, userID int64) error
}

type orderAPI interface {
	Submit(ctx context.Context, userID int64, deliver exporter.Deliverer) (*services.Delivery, error)
	AutoOrder(ctx context.Context, userID int64, mode models.GroupingMode, deliver exporter.Deliverer) (*services.Delivery, error)
	LowStock(ctx context.Context, userID int64, deliver exporter.Deliverer) (*services.Delivery, error)
	TopSales(ctx context.Context, userID int64, deliver exporter.Deliverer) (*services.Delivery, error)
	ExportBase(ctx context.Context, userID int64, department *int, deliver exporter.Deliverer) (*services.Delivery, error)
	Archive(ctx context.Context, limit int) ([]exporter.ArchivedFile, error)
}

type userAPI interface {
	Touch(ctx context.Context, user models.User) (*models.User, error)
	List(ctx context.Context, page int) (*services.UserPage, error)
	SetRole(ctx context.Context, actorID, targetID int64, role string, notify services.SendFunc) error
	Stats(ctx context.Context) (*services.Stats, error)
	Broadcast(ctx context.Context, actorID int64, text string, send services.SendFunc) (int, error)
}

type importAPI interface {
	Import(ctx context.Context, path string, progress importer.ProgressFunc) (*services.ImportResult, error)
}

type sourceResolver interface {
	Resolve(ctx context.Context, source, dir string) (string, error)
}

// Services bundles what the console drives.
type Services struct {
	Catalog  catalogAPI
	Cart     cartAPI
	Orders   orderAPI
	Users    userAPI
	Imports  importAPI
	Sources  sourceResolver
	Notifier *notify.Notifier
}

// Console keeps the per-user session: acting user, role and catalog
// position.
type Console struct {
	svc     Services
	outbox  string
	tempDir string
	log     logging.Logger

	user *models.User
	loc  catalog.Location
	page int
}

// New returns a console acting as userID. Files are delivered into outbox;
// downloads land in tempDir.
func New(svc Services, userID int64, outbox, tempDir string, log logging.Logger) *Console {
	return &Console{
		svc:     svc,
		outbox:  outbox,
		tempDir: tempDir,
		log:     log.With("module", "console"),
		user:    &models.User{ID: userID, Role: models.RoleShop},
		loc:     catalog.TopLevel(),
		page:    1,
	}
}

// Run registers the acting user and reads commands from in until EOF,
// "exit" or ctx cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	if err := c.touch(ctx, c.user.ID); err != nil {
		return err
	}
	c.log.Info(ctx, "console session started", "user_id", c.user.ID, "role", string(c.user.Role))
	runREPL(ctx, c, c.status, bufio.NewScanner(in))
	c.log.Info(ctx, "console session finished", "user_id", c.user.ID)
	return nil
}

func (c *Console) status() string {
	return fmt.Sprintf("%d/%s", c.user.ID, c.user.Role)
}

func (c *Console) isAdmin() bool { return c.user.Role == models.RoleAdmin }

func (c *Console) touch(ctx context.Context, id int64) error {
	u, err := c.svc.Users.Touch(ctx, models.User{ID: id, Username: "console", FullName: "Console " + strconv.FormatInt(id, 10)})
	if err != nil {
		return err
	}
	c.user = u
	return nil
}

// deliver copies a generated file into the outbox.
func (c *Console) deliver(_ context.Context, path string) error {
	dir, err := filex.EnsureDir(c.outbox)
	if err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(path))
	if err := filex.CopyFile(path, dst); err != nil {
		return err
	}
	printlnFn("📎 Sent:", dst)
	return nil
}

// send prints a message addressed to another chat user.
func (c *Console) send(_ context.Context, userID int64, text string) error {
	printlnFn(fmt.Sprintf("✉️  to %d: %s", userID, notify.StripHTML(text)))
	return nil
}

func (c *Console) As(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("as <user id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usageError("as <user id>")
	}
	if err := c.touch(ctx, id); err != nil {
		return err
	}
	c.loc, c.page = catalog.TopLevel(), 1
	printlnFn(fmt.Sprintf("Acting as %d (%s)", c.user.ID, c.user.Role))
	return nil
}

func (c *Console) Import(ctx context.Context, args []string) error {
	if !c.isAdmin() {
		return common.ErrorUnauthorized
	}
	if len(args) != 1 {
		return usageError("import <path|url>")
	}

	path, err := c.svc.Sources.Resolve(ctx, args[0], c.tempDir)
	if err != nil {
		c.svc.Notifier.Error(ctx, "Import: cannot get <b>"+args[0]+"</b>", err)
		return err
	}
	if path != args[0] {
		defer func() { _ = filex.Remove(path) }()
	}

	progress := importer.ThrottledProgress(func(processed, total int, stage importer.Stage) {
		if stage == importer.StageReading {
			printlnFn("📥 Reading file...")
			return
		}
		printlnFn(fmt.Sprintf("💾 Saving %s (%d/%d)", notify.ProgressBar(processed, total), processed, total))
	}, progressInterval)

	res, err := c.svc.Imports.Import(ctx, path, progress)
	if err != nil {
		if res != nil {
			printlnFn(fmt.Sprintf("Partially saved: %d of %d rows", res.Upserted, res.Stats.Normalized))
		}
		c.svc.Notifier.Error(ctx, "Import failed", err)
		return err
	}

	printlnFn(fmt.Sprintf("✅ Import done in %s: read %d, saved %d, no article %d, dead stock %d",
		res.Duration.Round(time.Millisecond), res.Stats.Read, res.Upserted, res.Stats.NoArticle, res.Stats.DeadStock))
	if res.CatalogSize >= 0 {
		printlnFn(fmt.Sprintf("Catalog size: %d", res.CatalogSize))
	}
	c.svc.Notifier.Info(ctx, fmt.Sprintf("Import by %d: <b>%d</b> rows saved", c.user.ID, res.Upserted))
	return nil
}

func (c *Console) Browse(ctx context.Context, args []string) error {
	loc := catalog.TopLevel()
	if len(args) > 0 {
		var err error
		if loc, err = c.svc.Catalog.Resolve(ctx, args[0]); err != nil {
			return err
		}
	}
	return c.open(ctx, loc, 1)
}

func (c *Console) Page(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("page <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return usageError("page <n>")
	}
	return c.open(ctx, c.loc, n)
}

func (c *Console) Back(ctx context.Context) error {
	return c.open(ctx, c.loc.Parent(), 1)
}

func (c *Console) open(ctx context.Context, loc catalog.Location, page int) error {
	v, err := c.svc.Catalog.Open(ctx, loc, page)
	if err != nil {
		return err
	}
	c.loc, c.page = v.Location, v.Page

	if loc.Top {
		printlnFn("📂 Departments:")
		for _, d := range v.Departments {
			ref, err := c.svc.Catalog.Ref(ctx, catalog.DepartmentRoot(d))
			if err != nil {
				return err
			}
			printlnFn(fmt.Sprintf("  [%s] Department %d", ref, d))
		}
		return nil
	}

	title := fmt.Sprintf("Department %d", loc.Department)
	if loc.Path != "" {
		title += " / " + loc.Path
	}
	printlnFn("📂 " + title)
	for _, f := range v.Folders {
		ref, err := c.svc.Catalog.Ref(ctx, loc.Child(f))
		if err != nil {
			return err
		}
		printlnFn(fmt.Sprintf("  [%s] %s/", ref, f))
	}
	for _, p := range v.Items {
		printlnFn(fmt.Sprintf("  %s  %s  (stock %.0f)", p.Article, p.Name, p.StockQty))
	}
	if v.Pages > 1 {
		printlnFn(fmt.Sprintf("  page %d/%d, %d items", v.Page, v.Pages, v.TotalItems))
	}
	return nil
}

func (c *Console) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("search <article or name>")
	}
	found, err := c.svc.Catalog.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(found) == 0 {
		printlnFn("Nothing found")
		return nil
	}
	for _, p := range found {
		printlnFn(fmt.Sprintf("  %s  %s  (stock %.0f)", p.Article, p.Name, p.StockQty))
	}
	return nil
}

func (c *Console) Card(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("card <article>")
	}
	p, err := c.svc.Catalog.Card(ctx, args[0])
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("📦 %s\n  article: %s\n  department: %d\n  category: %s\n  supplier: %s\n  stock: %.0f\n  sales: %.0f\n  price: %s",
		p.Name, p.Article, p.Department, p.CategoryPath, p.Supplier, p.StockQty, p.SalesQty, p.UnitPrice().StringFixed(2)))
	return nil
}

func (c *Console) Add(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("add <article> <qty>")
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return usageError("add <article> <qty>")
	}
	r, err := c.svc.Cart.SetQuantity(ctx, c.user.ID, args[0], qty)
	if err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("🛒 %s x %d in cart (available %d)", r.Article, r.Quantity, r.Limit))
	return nil
}

func (c *Console) Cart(ctx context.Context) error {
	v, err := c.svc.Cart.View(ctx, c.user.ID)
	if err != nil {
		return err
	}
	if len(v.Lines) == 0 {
		printlnFn("🛒 Cart is empty")
		return nil
	}
	for _, l := range v.Lines {
		printlnFn(fmt.Sprintf("  %s  %s  x%d  = %s", l.Article, l.Name, l.Quantity, l.Total().StringFixed(2)))
	}
	printlnFn("Total: " + v.Total.StringFixed(2))
	return nil
}

func (c *Console) Clear(ctx context.Context) error {
	if err := c.svc.Cart.Clear(ctx, c.user.ID); err != nil {
		return err
	}
	printlnFn("🛒 Cart cleared")
	return nil
}

func (c *Console) Submit(ctx context.Context) error {
	d, err := c.svc.Orders.Submit(ctx, c.user.ID, c.deliver)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("✅ Order sent: %d lines in %d file(s), grouped by %s", d.Lines, d.Files, d.Mode))
	c.svc.Notifier.Info(ctx, fmt.Sprintf("Order from <b>%d</b>: %d lines, %d file(s)", c.user.ID, d.Lines, d.Files))
	return nil
}

func (c *Console) AutoOrder(ctx context.Context, args []string) error {
	mode := models.GroupByDepartment
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "dept", "department":
		case "supplier":
			mode = models.GroupBySupplier
		default:
			return usageError("autoorder [dept|supplier]")
		}
	}
	d, err := c.svc.Orders.AutoOrder(ctx, c.user.ID, mode, c.deliver)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("📊 Auto-order: %d lines in %d file(s)", d.Lines, d.Files))
	return nil
}

func (c *Console) LowStock(ctx context.Context) error {
	d, err := c.svc.Orders.LowStock(ctx, c.user.ID, c.deliver)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("📉 Low stock: %d items", d.Lines))
	return nil
}

func (c *Console) Top(ctx context.Context) error {
	d, err := c.svc.Orders.TopSales(ctx, c.user.ID, c.deliver)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("🏆 Top sales: %d items", d.Lines))
	return nil
}

func (c *Console) Users(ctx context.Context, args []string) error {
	if !c.isAdmin() {
		return common.ErrorUnauthorized
	}
	page := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return usageError("users [page]")
		}
		page = n
	}
	p, err := c.svc.Users.List(ctx, page)
	if err != nil {
		return err
	}
	for _, u := range p.Users {
		printlnFn(fmt.Sprintf("  %d  %-7s %s (@%s)", u.ID, u.Role, u.FullName, u.Username))
	}
	printlnFn(fmt.Sprintf("page %d/%d, %d users", p.Page, p.Pages, p.Total))
	return nil
}

func (c *Console) Role(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("role <user id> <shop|patron|admin>")
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usageError("role <user id> <shop|patron|admin>")
	}
	if err := c.svc.Users.SetRole(ctx, c.user.ID, target, args[1], c.send); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Role of %d set to %s", target, strings.ToLower(args[1])))
	return nil
}

func (c *Console) Stats(ctx context.Context) error {
	if !c.isAdmin() {
		return common.ErrorUnauthorized
	}
	s, err := c.svc.Users.Stats(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("📊 Users: %d, products: %d", s.Users, s.Products))
	return nil
}

func (c *Console) Archive(ctx context.Context, args []string) error {
	if !c.isAdmin() {
		return common.ErrorUnauthorized
	}
	limit := defaultArchive
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return usageError("archive [n]")
		}
		limit = n
	}
	files, err := c.svc.Orders.Archive(ctx, limit)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		printlnFn("Archive is empty")
		return nil
	}
	for _, f := range files {
		printlnFn(fmt.Sprintf("  %s  %s  %d KB", f.ModTime.Format("2006-01-02 15:04"), f.Name, f.Size/1024))
	}
	return nil
}

func (c *Console) Broadcast(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("broadcast <text>")
	}
	n, err := c.svc.Users.Broadcast(ctx, c.user.ID, strings.Join(args, " "), c.send)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("📢 Delivered to %d users", n))
	return nil
}

func (c *Console) ExportBase(ctx context.Context, args []string) error {
	var dept *int
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil {
			return usageError("exportbase [department]")
		}
		dept = &d
	}
	d, err := c.svc.Orders.ExportBase(ctx, c.user.ID, dept, c.deliver)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("📤 Exported %d products", d.Lines))
	return nil
}
