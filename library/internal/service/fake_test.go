package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
)

// fakeRepo keeps everything in memory. WithinTx is serialised, which gives the
// same guarantees as the row locks taken by the postgres repository.
type fakeRepo struct {
	repository.Repository // unimplemented methods panic

	txMu sync.Mutex
	mu   sync.Mutex
	seq  int

	users       map[int]model.User
	profiles    map[int]model.UserProfile
	books       map[int]model.Book
	bookCats    map[int][]int
	categories  map[int]model.Category
	copies      map[int]model.BookStock
	requests    map[int]model.LoanRequest
	loans       map[int]model.Loan
	renewals    []model.Renewal
	reviews     map[int]model.Review
	favorites   map[[2]int]bool
	subscribers map[int]model.Subscriber
	campaigns   map[int]model.Campaign
	events      []model.LoanEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:       map[int]model.User{},
		profiles:    map[int]model.UserProfile{},
		books:       map[int]model.Book{},
		bookCats:    map[int][]int{},
		categories:  map[int]model.Category{},
		copies:      map[int]model.BookStock{},
		requests:    map[int]model.LoanRequest{},
		loans:       map[int]model.Loan{},
		reviews:     map[int]model.Review{},
		favorites:   map[[2]int]bool{},
		subscribers: map[int]model.Subscriber{},
		campaigns:   map[int]model.Campaign{},
	}
}

func (f *fakeRepo) next() int {
	f.seq++
	return f.seq
}

func (f *fakeRepo) WithinTx(_ context.Context, fn func(repository.Repository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(f)
}

func (f *fakeRepo) CreateUser(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.users {
		if x.Username == u.Username || (u.DNI != "" && x.DNI == u.DNI) {
			return model.User{}, errs.ErrDuplicateUser
		}
	}
	u.ID = f.next()
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) CreateProfile(_ context.Context, p model.UserProfile) (model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.next()
	p.RegistrationDate = time.Now()
	f.profiles[p.UserID] = p
	return p, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id int, _ bool) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, errs.ErrNotFound
}

func (f *fakeRepo) GetProfile(_ context.Context, userID int) (model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return model.UserProfile{}, errs.ErrNotFound
	}
	email := strings.ToLower(f.users[userID].Email)
	for _, s := range f.subscribers {
		if s.IsActive && ((s.UserID != nil && *s.UserID == userID) || (email != "" && s.Email == email)) {
			p.NewsletterSubscribed = true
		}
	}
	return p, nil
}

func (f *fakeRepo) UpdateScore(_ context.Context, userID int, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errs.ErrNotFound
	}
	u.Score = score
	f.users[userID] = u
	return nil
}

func (f *fakeRepo) CreateBook(_ context.Context, b model.Book) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.next()
	b.CreatedAt = time.Now()
	b.Categories = nil
	f.books[b.ID] = b
	return b, nil
}

func (f *fakeRepo) UpdateBook(_ context.Context, b model.Book) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.books[b.ID]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	b.CreatedAt = cur.CreatedAt
	f.books[b.ID] = b
	return b, nil
}

func (f *fakeRepo) DeleteBook(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.books, id)
	return nil
}

func (f *fakeRepo) GetBook(_ context.Context, id int, _ bool) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	return b, nil
}

func sharesAny(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func (f *fakeRepo) FindDuplicateBook(_ context.Context, olid string, isbn []string, excludeID int) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.sortedBookIDs() {
		b := f.books[id]
		if b.ID == excludeID {
			continue
		}
		if (olid != "" && b.OpenLibraryID != nil && *b.OpenLibraryID == olid) || sharesAny(b.ISBN, isbn) {
			return b, nil
		}
	}
	return model.Book{}, errs.ErrNotFound
}

func (f *fakeRepo) FindCataloged(_ context.Context, olids, isbn []string) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Book
	for _, id := range f.sortedBookIDs() {
		b := f.books[id]
		if (b.OpenLibraryID != nil && sharesAny([]string{*b.OpenLibraryID}, olids)) || sharesAny(b.ISBN, isbn) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) SetBookAvailable(_ context.Context, id int, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return errs.ErrNotFound
	}
	b.Available = available
	f.books[id] = b
	return nil
}

func (f *fakeRepo) sortedBookIDs() []int {
	ids := make([]int, 0, len(f.books))
	for id := range f.books {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (f *fakeRepo) SearchBooks(_ context.Context, query string) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if query == "" {
		return nil, nil
	}
	q := strings.ToLower(query)
	var out []model.Book
	for _, id := range f.sortedBookIDs() {
		b := f.books[id]
		hay := []string{b.Title, strings.Join(b.Authors, " ")}
		for _, cid := range f.bookCats[id] {
			hay = append(hay, f.categories[cid].Name)
		}
		for _, h := range hay {
			if strings.Contains(strings.ToLower(h), q) {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateCategory(_ context.Context, c model.Category) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.next()
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeRepo) SetBookCategories(_ context.Context, bookID int, ids []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookCats[bookID] = append([]int(nil), ids...)
	return nil
}

func (f *fakeRepo) BookCategories(_ context.Context, bookIDs ...int) (map[int][]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[int][]model.Category{}
	for _, id := range bookIDs {
		for _, cid := range f.bookCats[id] {
			if c, ok := f.categories[cid]; ok {
				out[id] = append(out[id], c)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) AddCopy(_ context.Context, s model.BookStock) (model.BookStock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.copies {
		if c.PhysicalID == s.PhysicalID {
			return model.BookStock{}, errs.ErrDuplicateCopy
		}
	}
	s.ID = f.next()
	f.copies[s.ID] = s
	return s, nil
}

func (f *fakeRepo) SetCopyStatus(_ context.Context, id int, status model.CopyStatus) (model.BookStock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.copies[id]
	if !ok {
		return model.BookStock{}, errs.ErrNotFound
	}
	c.Status = status
	f.copies[id] = c
	return c, nil
}

func (f *fakeRepo) CreateLoanRequest(_ context.Context, r model.LoanRequest) (model.LoanRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.next()
	f.requests[r.ID] = r
	return r, nil
}

func (f *fakeRepo) GetLoanRequest(_ context.Context, id int, _ bool) (model.LoanRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return model.LoanRequest{}, errs.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) UpdateLoanRequest(_ context.Context, r model.LoanRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[r.ID]; !ok {
		return errs.ErrNotFound
	}
	f.requests[r.ID] = r
	return nil
}

func (f *fakeRepo) ListLoanRequests(_ context.Context, flt repository.RequestFilter) ([]model.LoanRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LoanRequest
	for _, r := range f.requests {
		if (flt.UserID == 0 || r.UserID == flt.UserID) && (flt.Status == "" || r.Status == flt.Status) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) CreateLoan(_ context.Context, l model.Loan) (model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = f.next()
	f.loans[l.ID] = l
	return l, nil
}

func (f *fakeRepo) GetLoan(_ context.Context, id int, _ bool) (model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	return l, nil
}

func (f *fakeRepo) UpdateLoan(_ context.Context, l model.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.loans[l.ID]; !ok {
		return errs.ErrNotFound
	}
	f.loans[l.ID] = l
	return nil
}

func (f *fakeRepo) ListLoans(_ context.Context, flt repository.LoanFilter) ([]model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Loan
	for _, l := range f.loans {
		if flt.UserID != 0 && l.UserID != flt.UserID {
			continue
		}
		if flt.ExcludeOpen && l.Status == model.LoanActive {
			continue
		}
		if len(flt.Statuses) > 0 {
			match := false
			for _, st := range flt.Statuses {
				match = match || st == l.Status
			}
			if !match {
				continue
			}
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) CountActiveLoans(_ context.Context, userID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.loans {
		if l.UserID == userID && l.Status == model.LoanActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CreateRenewal(_ context.Context, r model.Renewal) (model.Renewal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.next()
	f.renewals = append(f.renewals, r)
	return r, nil
}

func (f *fakeRepo) CreateReview(_ context.Context, r model.Review) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.reviews {
		if x.UserID == r.UserID && x.BookID == r.BookID {
			return model.Review{}, errs.ErrDuplicateReview
		}
	}
	r.ID = f.next()
	r.CreatedAt = time.Now()
	f.reviews[r.ID] = r
	return r, nil
}

func (f *fakeRepo) GetReview(_ context.Context, userID, bookID int) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.UserID == userID && r.BookID == bookID {
			return r, nil
		}
	}
	return model.Review{}, errs.ErrNotFound
}

func (f *fakeRepo) UpdateReview(_ context.Context, r model.Review) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[r.ID]; !ok {
		return model.Review{}, errs.ErrNotFound
	}
	f.reviews[r.ID] = r
	return r, nil
}

func (f *fakeRepo) DeleteReview(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.reviews, id)
	return nil
}

func (f *fakeRepo) AddFavorite(_ context.Context, userID, bookID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorites[[2]int{userID, bookID}] = true
	return nil
}

func (f *fakeRepo) RemoveFavorite(_ context.Context, userID, bookID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int{userID, bookID}
	ok := f.favorites[key]
	delete(f.favorites, key)
	return ok, nil
}

func (f *fakeRepo) IsFavorite(_ context.Context, userID, bookID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.favorites[[2]int{userID, bookID}], nil
}

func (f *fakeRepo) CreateSubscriber(_ context.Context, s model.Subscriber) (model.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.subscribers {
		if x.Email == s.Email {
			return model.Subscriber{}, errs.ErrAlreadySubscribed
		}
	}
	s.ID = f.next()
	s.SubscribedAt = time.Now()
	f.subscribers[s.ID] = s
	return s, nil
}

func (f *fakeRepo) UpdateSubscriber(_ context.Context, s model.Subscriber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subscribers[s.ID]; !ok {
		return errs.ErrNotFound
	}
	f.subscribers[s.ID] = s
	return nil
}

func (f *fakeRepo) GetSubscriberByEmail(_ context.Context, email string) (model.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subscribers {
		if s.Email == email {
			return s, nil
		}
	}
	return model.Subscriber{}, errs.ErrNotFound
}

func (f *fakeRepo) GetSubscriberByToken(_ context.Context, token string) (model.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subscribers {
		if s.Token == token {
			return s, nil
		}
	}
	return model.Subscriber{}, errs.ErrNotFound
}

func (f *fakeRepo) ListActiveSubscribers(_ context.Context) ([]model.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Subscriber
	for _, s := range f.subscribers {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) CreateCampaign(_ context.Context, c model.Campaign) (model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.next()
	c.CreatedAt = time.Now()
	f.campaigns[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetCampaign(_ context.Context, id int) (model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return model.Campaign{}, errs.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) ListDueCampaigns(_ context.Context, now time.Time) ([]model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Campaign
	for _, c := range f.campaigns {
		if !c.IsSent && c.ScheduledFor != nil && !c.ScheduledFor.After(now) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) ClaimCampaign(_ context.Context, id int, sentAt time.Time) (model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.IsSent {
		return model.Campaign{}, errs.ErrNotFound
	}
	c.IsSent, c.SentAt = true, &sentAt
	f.campaigns[id] = c
	return c, nil
}

func (f *fakeRepo) RecordCampaignTotals(_ context.Context, id, recipients, sent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return errs.ErrNotFound
	}
	c.TotalRecipients, c.TotalSent = recipients, sent
	f.campaigns[id] = c
	return nil
}

func (f *fakeRepo) SaveLoanEvent(_ context.Context, e model.LoanEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.events {
		if x.ID == e.ID {
			return nil
		}
	}
	f.events = append(f.events, e)
	return nil
}

// seed helpers

func (f *fakeRepo) addUser(u model.User) model.User {
	u, _ = f.CreateUser(context.Background(), u)
	return u
}

func (f *fakeRepo) addBook(b model.Book) model.Book {
	b, _ = f.CreateBook(context.Background(), b)
	return b
}
