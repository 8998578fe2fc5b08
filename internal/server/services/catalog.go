package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/dmitrijs2005/stockkeeper/internal/logging"
	"github.com/dmitrijs2005/stockkeeper/internal/server/catalog"
	"github.com/dmitrijs2005/stockkeeper/internal/server/config"
	"github.com/dmitrijs2005/stockkeeper/internal/server/models"
	"github.com/dmitrijs2005/stockkeeper/internal/server/repositories/repomanager"
)

const searchLimit = 10

// CatalogView is one screen of the catalog. At the top level only
// Departments is filled. Elsewhere Folders holds the next category level
// and Items the page of products whose path is exactly the location.
type CatalogView struct {
	Location    catalog.Location
	Departments []int
	Folders     []string
	Items       []models.Product
	TotalItems  int
	Page        int
	Pages       int
}

// Leaf reports whether the location has no deeper categories.
func (v *CatalogView) Leaf() bool {
	return !v.Location.Top && len(v.Folders) == 0
}

// CatalogService walks the materialized category paths of the products
// table. Nothing is cached: every call re-reads the current import.
type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cfg         config.Config
	refs        *catalog.RefCodec
	log         logging.Logger
}

// NewCatalogService constructs a CatalogService. registry backs navigation
// references too long for the compact form and may be nil.
func NewCatalogService(db *sql.DB, m repomanager.RepositoryManager, cfg config.Config, registry catalog.Registry, log logging.Logger) *CatalogService {
	s := &CatalogService{
		db:          db,
		repomanager: m,
		cfg:         cfg,
		log:         log.With("module", "catalog"),
	}
	s.refs = catalog.NewRefCodec(s.Children, registry, catalog.DefaultRefBudget)
	return s
}

// Children lists the sorted category segments directly below loc.
func (s *CatalogService) Children(ctx context.Context, loc catalog.Location) ([]string, error) {
	if loc.Top {
		return nil, nil
	}
	paths, err := s.repomanager.Products(s.db).PathsUnder(ctx, loc.Department, loc.Path)
	if err != nil {
		return nil, err
	}
	return catalog.ChildSegments(loc.Path, paths), nil
}

// Open builds the view of loc. page is 1-based and clamped. A category
// location with neither sub-categories nor products is ErrorNotFound.
func (s *CatalogService) Open(ctx context.Context, loc catalog.Location, page int) (*CatalogView, error) {
	repo := s.repomanager.Products(s.db)

	if loc.Top {
		depts, err := repo.Departments(ctx)
		if err != nil {
			return nil, err
		}
		return &CatalogView{Location: loc, Departments: depts, Page: 1, Pages: 1}, nil
	}

	folders, err := s.Children(ctx, loc)
	if err != nil {
		return nil, err
	}

	total, err := repo.CountByPath(ctx, loc.Department, loc.Path)
	if err != nil {
		return nil, err
	}

	if loc.Depth() > 0 && len(folders) == 0 && total == 0 {
		return nil, common.ErrorNotFound
	}

	size := pageSize(s.cfg)
	v := &CatalogView{Location: loc, Folders: folders, TotalItems: total}
	v.Pages = pageCount(total, size)
	v.Page = clampPage(page, v.Pages)

	if total > 0 {
		v.Items, err = repo.ListByPath(ctx, loc.Department, loc.Path, size, (v.Page-1)*size)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Back is the parent of loc.
func (s *CatalogService) Back(loc catalog.Location) catalog.Location {
	return loc.Parent()
}

// Ref encodes loc for a chat button.
func (s *CatalogService) Ref(ctx context.Context, loc catalog.Location) (string, error) {
	return s.refs.Encode(ctx, loc)
}

// Resolve decodes a reference produced by Ref.
func (s *CatalogService) Resolve(ctx context.Context, ref string) (catalog.Location, error) {
	loc, err := s.refs.Decode(ctx, ref)
	if err != nil {
		s.log.Debug(ctx, "cannot resolve navigation ref", "ref", ref, "error", err)
	}
	return loc, err
}

// Search matches the article exactly or the name as a case-insensitive
// substring. A blank query finds nothing.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.repomanager.Products(s.db).Search(ctx, query, searchLimit)
}

// Card returns one product by article.
func (s *CatalogService) Card(ctx context.Context, article string) (*models.Product, error) {
	return s.repomanager.Products(s.db).GetByArticle(ctx, strings.TrimSpace(article))
}
