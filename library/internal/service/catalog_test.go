package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

type stubExternal struct {
	books []model.ExternalBook
	err   error
}

func (s *stubExternal) Search(_ context.Context, _ string, _ int) ([]model.ExternalBook, error) {
	return s.books, s.err
}

func newCatalogFixture(ext *stubExternal) (*fakeRepo, *CatalogService, model.User, model.User) {
	repo := newFakeRepo()
	librarian := repo.addUser(model.User{Username: "lib", DNI: "1", Role: model.RoleLibrarian, IsActiveMember: true})
	reader := repo.addUser(model.User{Username: "ana", DNI: "2", Role: model.RoleReader, IsActiveMember: true})
	return repo, NewCatalogService(repo, ext, 10, zap.NewNop()), librarian, reader
}

func TestCatalogService_CreateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc, librarian, reader := newCatalogFixture(&stubExternal{})

	cat, err := svc.CreateCategory(ctx, librarian.ID, model.CategoryInput{Name: "Novela"})
	require.NoError(t, err)
	require.Equal(t, librarian.ID, cat.CreatedBy)

	pages := 417
	inp := model.BookInput{
		OpenLibraryID: "OL7353617M",
		Title:         "Cien años de soledad",
		Authors:       "Gabriel García Márquez, ",
		ISBN:          "9780307474728, 0060883286",
		NumberOfPages: &pages,
		CategoryIDs:   []int{cat.ID},
		Stock:         2,
	}
	_, err = svc.CreateBook(ctx, reader.ID, inp)
	require.ErrorIs(t, err, errs.ErrForbidden)

	book, err := svc.CreateBook(ctx, librarian.ID, inp)
	require.NoError(t, err)
	require.Equal(t, []string{"Gabriel García Márquez"}, book.Authors)
	require.Equal(t, []string{"9780307474728", "0060883286"}, book.ISBN)
	require.True(t, book.Available)
	require.Equal(t, []model.Category{cat}, book.Categories)

	dupISBN := model.BookInput{Title: "Otra edición", Authors: "GGM", ISBN: "0060883286"}
	_, err = svc.CreateBook(ctx, librarian.ID, dupISBN)
	require.ErrorIs(t, err, errs.ErrAlreadyCataloged)

	dupOL := model.BookInput{OpenLibraryID: "OL7353617M", Title: "Copia", Authors: "GGM"}
	_, err = svc.CreateBook(ctx, librarian.ID, dupOL)
	require.ErrorIs(t, err, errs.ErrAlreadyCataloged)

	invalid := []model.BookInput{
		{Title: " ", Authors: "x"},
		{Title: "Sin autor", Authors: " , "},
		{Title: "Negativo", Authors: "x", Stock: -1},
		{Title: "Sin páginas", Authors: "x", NumberOfPages: new(int)},
	}
	for _, in := range invalid {
		_, err = svc.CreateBook(ctx, librarian.ID, in)
		require.ErrorIs(t, err, errs.ErrValidation, in.Title)
	}

	unavailable := false
	upd := inp
	upd.Title = "Cien años de soledad (ed. 50 aniversario)"
	upd.Available = &unavailable
	updated, err := svc.UpdateBook(ctx, librarian.ID, book.ID, upd)
	require.NoError(t, err, "a book is not its own duplicate")
	require.False(t, updated.Available)

	require.NoError(t, svc.DeleteBook(ctx, librarian.ID, book.ID))
	require.ErrorIs(t, svc.DeleteBook(ctx, librarian.ID, book.ID), errs.ErrNotFound)
	require.Empty(t, repo.books)
}

func TestCatalogService_Copies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, svc, librarian, _ := newCatalogFixture(&stubExternal{})
	book := repo.addBook(model.Book{Title: "Rayuela", Authors: []string{"Julio Cortázar"}, Available: true})

	c, err := svc.AddCopy(ctx, librarian.ID, book.ID, model.CopyInput{PhysicalID: "RAY-001", Condition: "good"})
	require.NoError(t, err)
	require.Equal(t, model.CopyAvailable, c.Status)

	_, err = svc.AddCopy(ctx, librarian.ID, book.ID, model.CopyInput{PhysicalID: "RAY-001"})
	require.ErrorIs(t, err, errs.ErrDuplicateCopy)

	_, err = svc.SetCopyStatus(ctx, librarian.ID, c.ID, "burnt")
	require.ErrorIs(t, err, errs.ErrValidation)

	c, err = svc.SetCopyStatus(ctx, librarian.ID, c.ID, model.CopyMaintenance)
	require.NoError(t, err)
	require.Equal(t, model.CopyMaintenance, c.Status)

	b, _ := repo.GetBook(ctx, book.ID, false)
	require.True(t, b.Available, "copy status never changes the aggregate flag")
}

func TestCatalogService_Search(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	olid := "OL1M"
	ext := &stubExternal{books: []model.ExternalBook{
		{Title: "Ficciones", ExternalID: "OL1M"},
		{Title: "El Aleph", ExternalID: "OL2M", ISBN: []string{"111"}},
		{Title: "Otro", ExternalID: "OL3M"},
	}}
	repo, svc, librarian, _ := newCatalogFixture(ext)
	cat, err := svc.CreateCategory(ctx, librarian.ID, model.CategoryInput{Name: "Cuentos"})
	require.NoError(t, err)
	ficciones := repo.addBook(model.Book{OpenLibraryID: &olid, Title: "Ficciones", Authors: []string{"Jorge Luis Borges"}, Available: true})
	aleph := repo.addBook(model.Book{Title: "El Aleph", Authors: []string{"Jorge Luis Borges"}, ISBN: []string{"111"}, Available: true})
	repo.addBook(model.Book{Title: "Rayuela", Authors: []string{"Julio Cortázar"}, Available: true})
	_, err = svc.SetBookCategories(ctx, librarian.ID, aleph.ID, []int{cat.ID})
	require.NoError(t, err)

	books, err := svc.Search(ctx, "BORGES")
	require.NoError(t, err)
	require.Len(t, books, 2)
	require.Equal(t, ficciones.ID, books[0].ID)
	require.Equal(t, aleph.ID, books[1].ID)

	books, err = svc.Search(ctx, "cuent")
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, []model.Category{cat}, books[0].Categories)

	books, err = svc.Search(ctx, "")
	require.NoError(t, err)
	require.Empty(t, books)

	res, err := svc.SearchAll(ctx, "borges")
	require.NoError(t, err)
	require.Len(t, res.Local, 2)
	require.Len(t, res.External, 3)
	require.True(t, res.External[0].Existing)
	require.True(t, res.External[1].Existing)
	require.False(t, res.External[2].Existing)

	ext.err = errs.New(errs.ErrUpstream, "down")
	res, err = svc.SearchAll(ctx, "borges")
	require.NoError(t, err, "external failure degrades to an empty section")
	require.Len(t, res.Local, 2)
	require.Empty(t, res.External)

	_, err = svc.SearchExternal(ctx, "borges")
	require.ErrorIs(t, err, errs.ErrUpstream)
	_, err = svc.SearchExternal(ctx, "  ")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestCatalogService_SearchAllLocalFailure(t *testing.T) {
	t.Parallel()
	repo := &failingSearchRepo{fakeRepo: newFakeRepo(), err: errors.New("db gone")}
	svc := NewCatalogService(repo, &stubExternal{}, 10, zap.NewNop())
	_, err := svc.SearchAll(context.Background(), "x")
	require.Error(t, err)
}

type failingSearchRepo struct {
	*fakeRepo
	err error
}

func (r *failingSearchRepo) SearchBooks(context.Context, string) ([]model.Book, error) {
	return nil, r.err
}
