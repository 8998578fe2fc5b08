package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// Console satisfies it; tests provide a lightweight stub.
type execIface interface {
	isAdmin() bool
	As(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Browse(ctx context.Context, args []string) error
	Page(ctx context.Context, args []string) error
	Back(ctx context.Context) error
	Search(ctx context.Context, args []string) error
	Card(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Cart(ctx context.Context) error
	Submit(ctx context.Context) error
	Clear(ctx context.Context) error
	AutoOrder(ctx context.Context, args []string) error
	LowStock(ctx context.Context) error
	Top(ctx context.Context) error
	Users(ctx context.Context, args []string) error
	Role(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
	Archive(ctx context.Context, args []string) error
	Broadcast(ctx context.Context, args []string) error
	ExportBase(ctx context.Context, args []string) error
}

// runREPL reads one command per line from scanner and dispatches it to a.
// The loop exits on EOF, on "exit"/"quit" or when ctx is cancelled.
//
// Commands:
//
//	help                    show available commands
//	as <id>                 act as another chat user
//	browse [ref]            open the catalog (top level without ref)
//	page <n>                switch page of the current category
//	back                    go one level up
//	search <text>           find by article or name
//	card <article>          show one product
//	add <article> <qty>     set the cart quantity
//	cart | clear | submit   view, empty or send the cart
//	autoorder [supplier]    replenishment proposal (analytics roles)
//	lowstock | top          analytics reports
//
//	Admin only:
//	  import <path|url>     load a stock report
//	  users [page] | role <id> <role> | stats | archive [n]
//	  broadcast <text> | exportbase [dept]
//
// Handler errors are reported and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("sk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn("Available commands: browse, page, back, search, card, add, cart, clear, submit, autoorder, lowstock, top, as, exit")
			if a.isAdmin() {
				printlnFn("Admin commands: import, users, role, stats, archive, broadcast, exportbase")
			}

		case "as":
			err = a.As(ctx, args)

		case "import":
			err = a.Import(ctx, args)

		case "browse", "open":
			err = a.Browse(ctx, args)

		case "page":
			err = a.Page(ctx, args)

		case "back":
			err = a.Back(ctx)

		case "search", "s":
			err = a.Search(ctx, args)

		case "card":
			err = a.Card(ctx, args)

		case "add":
			err = a.Add(ctx, args)

		case "cart":
			err = a.Cart(ctx)

		case "clear":
			err = a.Clear(ctx)

		case "submit":
			err = a.Submit(ctx)

		case "autoorder":
			err = a.AutoOrder(ctx, args)

		case "lowstock":
			err = a.LowStock(ctx)

		case "top":
			err = a.Top(ctx)

		case "users":
			err = a.Users(ctx, args)

		case "role":
			err = a.Role(ctx, args)

		case "stats":
			err = a.Stats(ctx)

		case "archive":
			err = a.Archive(ctx, args)

		case "broadcast":
			err = a.Broadcast(ctx, args)

		case "exportbase":
			err = a.ExportBase(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", userMessage(err))
		}
	}
}

// userMessage turns a handler error into a short chat-style reply.
func userMessage(err error) string {
	var (
		stock  *common.InsufficientStockError
		schema *common.SchemaError
		format *common.FormatError
		tr     *common.TransportError
		usage  usageError
	)
	switch {
	case errors.As(err, &usage):
		return "usage: " + string(usage)
	case errors.As(err, &stock):
		return fmt.Sprintf("only %d available for %s", stock.Limit, stock.Article)
	case errors.As(err, &schema):
		return schema.Error()
	case errors.As(err, &format):
		return format.Error()
	case errors.As(err, &tr):
		return tr.Error()
	case errors.Is(err, common.ErrorUnauthorized):
		return "not allowed for your role"
	case errors.Is(err, common.ErrInvalidNavRef):
		return "this menu is outdated, open the catalog again"
	case errors.Is(err, common.ErrorNotFound):
		return "not found"
	case errors.Is(err, common.ErrEmptyCart), errors.Is(err, common.ErrInvalidQuantity),
		errors.Is(err, common.ErrInvalidRole), errors.Is(err, common.ErrNothingToExport):
		return err.Error()
	default:
		return "internal error, see the log"
	}
}

// usageError carries the expected syntax of a command.
type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }
