package service

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/policy"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
)

const (
	recentReviewsLimit   = 3
	recommendedLimit     = 6
	featuredAuthorsLimit = 4
	defaultExternalLimit = 10
)

type CatalogService struct {
	log           *zap.Logger
	repo          repository.Repository
	external      ExternalCatalog
	externalLimit int
}

func NewCatalogService(repo repository.Repository, external ExternalCatalog, externalLimit int, log *zap.Logger) *CatalogService {
	if externalLimit <= 0 {
		externalLimit = defaultExternalLimit
	}
	return &CatalogService{
		log:           log.Named("catalog"),
		repo:          repo,
		external:      external,
		externalLimit: externalLimit,
	}
}

// bookFromInput normalises the form and enforces the rules validator tags cannot express.
func bookFromInput(inp model.BookInput) (model.Book, error) {
	b := model.Book{
		Title:         strings.TrimSpace(inp.Title),
		Authors:       model.SplitList(inp.Authors),
		ISBN:          model.SplitList(inp.ISBN),
		PublishDate:   strings.TrimSpace(inp.PublishDate),
		NumberOfPages: inp.NumberOfPages,
		CoverURL:      strings.TrimSpace(inp.CoverURL),
		Stock:         inp.Stock,
		Available:     true,
	}
	if id := strings.TrimSpace(inp.OpenLibraryID); id != "" {
		b.OpenLibraryID = &id
	}
	if inp.Available != nil {
		b.Available = *inp.Available
	}
	switch {
	case b.Title == "":
		return model.Book{}, errs.Validation("title is required")
	case len(b.Authors) == 0:
		return model.Book{}, errs.Validation("at least one author is required")
	case b.Stock < 0:
		return model.Book{}, errs.Validation("stock must not be negative")
	case b.NumberOfPages != nil && *b.NumberOfPages <= 0:
		return model.Book{}, errs.Validation("number of pages must be positive")
	}
	return b, nil
}

func (s *CatalogService) checkDuplicate(ctx context.Context, b model.Book, excludeID int) error {
	var olid string
	if b.OpenLibraryID != nil {
		olid = *b.OpenLibraryID
	}
	_, err := s.repo.FindDuplicateBook(ctx, olid, b.ISBN, excludeID)
	switch {
	case err == nil:
		return errs.ErrAlreadyCataloged
	case errors.Is(err, errs.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *CatalogService) CreateBook(ctx context.Context, actorID int, inp model.BookInput) (model.Book, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionManageCatalog, nil); err != nil {
		return model.Book{}, err
	}
	b, err := bookFromInput(inp)
	if err != nil {
		return model.Book{}, err
	}
	if err = s.checkDuplicate(ctx, b, 0); err != nil {
		return model.Book{}, err
	}

	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		if b, err = tx.CreateBook(ctx, b); err != nil {
			return err
		}
		if err = tx.SetBookCategories(ctx, b.ID, inp.CategoryIDs); err != nil {
			return err
		}
		cats, err := tx.BookCategories(ctx, b.ID)
		b.Categories = cats[b.ID]
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	s.log.Info("book cataloged", zap.Int("bookID", b.ID), zap.String("title", b.Title))
	return b, nil
}

func (s *CatalogService) UpdateBook(ctx context.Context, actorID, bookID int, inp model.BookInput) (model.Book, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionManageCatalog, nil); err != nil {
		return model.Book{}, err
	}
	cur, err := s.repo.GetBook(ctx, bookID, false)
	if err != nil {
		return model.Book{}, err
	}
	b, err := bookFromInput(inp)
	if err != nil {
		return model.Book{}, err
	}
	if inp.Available == nil {
		b.Available = cur.Available
	}
	b.ID = bookID
	if err = s.checkDuplicate(ctx, b, bookID); err != nil {
		return model.Book{}, err
	}

	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		if b, err = tx.UpdateBook(ctx, b); err != nil {
			return err
		}
		if inp.CategoryIDs != nil {
			if err = tx.SetBookCategories(ctx, b.ID, inp.CategoryIDs); err != nil {
				return err
			}
		}
		cats, err := tx.BookCategories(ctx, b.ID)
		b.Categories = cats[b.ID]
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	return b, nil
}

func (s *CatalogService) DeleteBook(ctx context.Context, actorID, bookID int) error {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionManageCatalog, nil); err != nil {
		return err
	}
	return s.repo.DeleteBook(ctx, bookID)
}

func (s *CatalogService) CreateCategory(ctx context.Context, actorID int, inp model.CategoryInput) (model.Category, error) {
	actor, err := authorize(ctx, s.repo, actorID, policy.ActionManageCatalog, nil)
	if err != nil {
		return model.Category{}, err
	}
	name := strings.TrimSpace(inp.Name)
	if name == "" {
		return model.Category{}, errs.Validation("category name is required")
	}
	return s.repo.CreateCategory(ctx, model.Category{
		Name:        name,
		Description: strings.TrimSpace(inp.Description),
		CreatedBy:   actor.ID,
	})
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogService) SetBookCategories(ctx context.Context, actorID, bookID int, categoryIDs []int) ([]model.Category, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionManageCatalog, nil); err != nil {
		return nil, err
	}
	var cats map[int][]model.Category
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		if _, err := tx.GetBook(ctx, bookID, true); err != nil {
			return err
		}
		if err := tx.SetBookCategories(ctx, bookID, categoryIDs); err != nil {
			return err
		}
		var err error
		cats, err = tx.BookCategories(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cats[bookID], nil
}

func (s *CatalogService) AddCopy(ctx context.Context, actorID, bookID int, inp model.CopyInput) (model.BookStock, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionManageCatalog, nil); err != nil {
		return model.BookStock{}, err
	}
	physicalID := strings.TrimSpace(inp.PhysicalID)
	if physicalID == "" {
		return model.BookStock{}, errs.Validation("physical id is required")
	}
	if _, err := s.repo.GetBook(ctx, bookID, false); err != nil {
		return model.BookStock{}, err
	}
	return s.repo.AddCopy(ctx, model.BookStock{
		BookID:     bookID,
		PhysicalID: physicalID,
		Status:     model.CopyAvailable,
		Condition:  strings.TrimSpace(inp.Condition),
	})
}

// SetCopyStatus changes one physical copy. Book.Available is not touched.
func (s *CatalogService) SetCopyStatus(ctx context.Context, actorID, copyID int, status model.CopyStatus) (model.BookStock, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionManageCatalog, nil); err != nil {
		return model.BookStock{}, err
	}
	if !status.Valid() {
		return model.BookStock{}, errs.Validation("unknown copy status " + string(status))
	}
	return s.repo.SetCopyStatus(ctx, copyID, status)
}

func (s *CatalogService) ListCopies(ctx context.Context, bookID int) ([]model.BookStock, error) {
	if _, err := s.repo.GetBook(ctx, bookID, false); err != nil {
		return nil, err
	}
	return s.repo.ListCopies(ctx, bookID)
}

// Search returns local matches with their categories attached.
func (s *CatalogService) Search(ctx context.Context, query string) ([]model.Book, error) {
	books, err := s.repo.SearchBooks(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	return s.withCategories(ctx, books)
}

func (s *CatalogService) withCategories(ctx context.Context, books []model.Book) ([]model.Book, error) {
	if len(books) == 0 {
		return books, nil
	}
	ids := make([]int, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	cats, err := s.repo.BookCategories(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].Categories = cats[books[i].ID]
	}
	return books, nil
}

// SearchExternal proxies the external catalog. Failures surface as ErrUpstream.
func (s *CatalogService) SearchExternal(ctx context.Context, query string) ([]model.ExternalBook, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Validation("query is required")
	}
	books, err := s.external.Search(ctx, query, s.externalLimit)
	if err != nil {
		return nil, err
	}
	return books, s.markExisting(ctx, books)
}

// SearchAll runs the local and the external search concurrently. An external
// failure leaves the external section empty.
func (s *CatalogService) SearchAll(ctx context.Context, query string) (model.SearchResult, error) {
	res := model.SearchResult{Query: strings.TrimSpace(query), Local: []model.Book{}, External: []model.ExternalBook{}}
	if res.Query == "" {
		return res, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		local, err := s.Search(gCtx, res.Query)
		if err != nil {
			return err
		}
		if local != nil {
			res.Local = local
		}
		return nil
	})
	g.Go(func() error {
		external, err := s.external.Search(gCtx, res.Query, s.externalLimit)
		if err != nil {
			s.log.Warn("external search", zap.String("query", res.Query), zap.Error(err))
			return nil
		}
		if external != nil {
			res.External = external
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.SearchResult{}, err
	}
	return res, s.markExisting(ctx, res.External)
}

func (s *CatalogService) markExisting(ctx context.Context, books []model.ExternalBook) error {
	if len(books) == 0 {
		return nil
	}
	var ids, isbn []string
	for _, b := range books {
		if b.ExternalID != "" {
			ids = append(ids, b.ExternalID)
		}
		isbn = append(isbn, b.ISBN...)
	}
	found, err := s.repo.FindCataloged(ctx, ids, isbn)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(found))
	for _, b := range found {
		if b.OpenLibraryID != nil {
			known["ol:"+*b.OpenLibraryID] = struct{}{}
		}
		for _, code := range b.ISBN {
			known["isbn:"+code] = struct{}{}
		}
	}
	for i := range books {
		if _, ok := known["ol:"+books[i].ExternalID]; ok {
			books[i].Existing = true
			continue
		}
		for _, code := range books[i].ISBN {
			if _, ok := known["isbn:"+code]; ok {
				books[i].Existing = true
				break
			}
		}
	}
	return nil
}

// BookDetail assembles the book page. viewerID 0 means anonymous.
func (s *CatalogService) BookDetail(ctx context.Context, bookID, viewerID int) (model.BookDetail, error) {
	book, err := s.repo.GetBook(ctx, bookID, false)
	if err != nil {
		return model.BookDetail{}, err
	}
	d := model.BookDetail{Book: book}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, err := s.repo.BookCategories(gCtx, bookID)
		d.Book.Categories = cats[bookID]
		return err
	})
	g.Go(func() (err error) {
		d.Copies, err = s.repo.ListCopies(gCtx, bookID)
		return err
	})
	g.Go(func() (err error) {
		d.RecentReviews, err = s.repo.RecentReviews(gCtx, bookID, recentReviewsLimit)
		return err
	})
	g.Go(func() error {
		count, avg, err := s.repo.ReviewSummary(gCtx, bookID)
		d.ReviewCount, d.AverageRating = count, math.Round(avg*10)/10
		return err
	})
	g.Go(func() (err error) {
		d.TotalLoans, err = s.repo.CountBookLoans(gCtx, bookID)
		return err
	})
	if viewerID != 0 {
		g.Go(func() error {
			r, err := s.repo.GetReview(gCtx, viewerID, bookID)
			switch {
			case err == nil:
				d.UserReview, d.UserHasReviewed = &r, true
			case !errors.Is(err, errs.ErrNotFound):
				return err
			}
			return nil
		})
		g.Go(func() (err error) {
			d.IsFavorite, err = s.repo.IsFavorite(gCtx, viewerID, bookID)
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return model.BookDetail{}, err
	}
	return d, nil
}

func (s *CatalogService) Home(ctx context.Context) (model.Home, error) {
	var h model.Home
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		h.Stats, err = s.repo.HomeStats(gCtx)
		return err
	})
	g.Go(func() (err error) {
		h.RecommendedBooks, err = s.repo.RecentAvailableBooks(gCtx, recommendedLimit)
		return err
	})
	g.Go(func() (err error) {
		h.FeaturedAuthors, err = s.repo.FeaturedAuthors(gCtx, featuredAuthorsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Home{}, err
	}
	return h, nil
}
