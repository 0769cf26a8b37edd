package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/service"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

func newLoanService(store *fakeStore, adminForceReturn bool) *service.LoanService {
	return service.NewLoanService(service.LoanDependencies{
		Store:  store,
		Policy: auth.NewPolicy(adminForceReturn),
	})
}

func memberActor(user *domain.User) domain.Actor {
	return domain.Actor{UserID: user.ID, Role: domain.RoleMember}
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func Test_Borrow_IssuesBookAndOpensLoan(t *testing.T) {
	store := newFakeStore()
	member := store.addUser("asha", domain.RoleMember)
	book := store.addBook("The Last Stepwell", "Anaya Iyer", true)
	svc := newLoanService(store, true)

	loan, err := svc.Borrow(context.Background(), memberActor(member), book.ID)

	require.NoError(t, err)
	assert.Equal(t, book.ID, loan.BookID)
	assert.Equal(t, member.ID, loan.UserID)
	assert.Nil(t, loan.ReturnedAt)
	assert.False(t, loan.BorrowedAt.IsZero())

	stored, err := store.Books().GetByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.False(t, stored.Available)

	open := store.openLoanFor(book.ID)
	require.NotNil(t, open)
	assert.Equal(t, loan.ID, open.ID)
}

func Test_Borrow_UnknownBook_NotFound(t *testing.T) {
	store := newFakeStore()
	member := store.addUser("asha", domain.RoleMember)
	svc := newLoanService(store, true)

	_, err := svc.Borrow(context.Background(), memberActor(member), "missing")

	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
	assert.Equal(t, 0, store.loanCount())
}

func Test_Borrow_IssuedBook_Conflict(t *testing.T) {
	store := newFakeStore()
	first := store.addUser("asha", domain.RoleMember)
	second := store.addUser("rohan", domain.RoleMember)
	book := store.addBook("Whispers of the Monsoon", "Rohan Mehra", true)
	svc := newLoanService(store, true)

	_, err := svc.Borrow(context.Background(), memberActor(first), book.ID)
	require.NoError(t, err)

	_, err = svc.Borrow(context.Background(), memberActor(second), book.ID)

	require.Error(t, err)
	assert.Equal(t, "CONFLICT", errorCode(t, err))
	assert.Equal(t, 1, store.loanCount())

	stored, err := store.Books().GetByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.False(t, stored.Available)
}

func Test_Borrow_AdminRole_Forbidden(t *testing.T) {
	store := newFakeStore()
	admin := store.addUser("admin", domain.RoleAdmin)
	book := store.addBook("Marigold and Ashes", "Kavya Nair", true)
	svc := newLoanService(store, true)

	_, err := svc.Borrow(context.Background(), domain.Actor{UserID: admin.ID, Role: domain.RoleAdmin}, book.ID)

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))
	assert.Equal(t, 0, store.loanCount())
}

func Test_BorrowThenReturn_RoundTrip(t *testing.T) {
	store := newFakeStore()
	member := store.addUser("asha", domain.RoleMember)
	book := store.addBook("Tales of the Banyan Court", "Devansh Rathore", true)
	svc := newLoanService(store, true)
	actor := memberActor(member)

	borrowed, err := svc.Borrow(context.Background(), actor, book.ID)
	require.NoError(t, err)

	returned, err := svc.Return(context.Background(), actor, book.ID)
	require.NoError(t, err)

	assert.Equal(t, borrowed.ID, returned.ID)
	require.NotNil(t, returned.ReturnedAt)
	assert.False(t, returned.BorrowedAt.After(*returned.ReturnedAt))

	stored, err := store.Books().GetByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.True(t, stored.Available)
	assert.Nil(t, store.openLoanFor(book.ID))
	assert.Equal(t, 1, store.loanCount())
}

func Test_Return_NoOpenLoan_Conflict(t *testing.T) {
	store := newFakeStore()
	member := store.addUser("asha", domain.RoleMember)
	book := store.addBook("The Glass Lantern of Jodhpur", "Samarjeet Bhatia", true)
	svc := newLoanService(store, true)

	_, err := svc.Return(context.Background(), memberActor(member), book.ID)

	require.Error(t, err)
	assert.Equal(t, "CONFLICT", errorCode(t, err))

	stored, err := store.Books().GetByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.True(t, stored.Available)
}

func Test_Return_OtherMembersLoan_Forbidden(t *testing.T) {
	store := newFakeStore()
	owner := store.addUser("asha", domain.RoleMember)
	other := store.addUser("rohan", domain.RoleMember)
	book := store.addBook("Echoes from the Spice Market", "Mehul Joshi", true)
	svc := newLoanService(store, true)

	_, err := svc.Borrow(context.Background(), memberActor(owner), book.ID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), memberActor(other), book.ID)

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))
	require.NotNil(t, store.openLoanFor(book.ID))
}

func Test_Return_AdminForceReturn(t *testing.T) {
	store := newFakeStore()
	owner := store.addUser("asha", domain.RoleMember)
	admin := store.addUser("admin", domain.RoleAdmin)
	book := store.addBook("The Midnight Kite of Varanasi", "Arunika Senapati", true)
	svc := newLoanService(store, true)

	_, err := svc.Borrow(context.Background(), memberActor(owner), book.ID)
	require.NoError(t, err)

	closed, err := svc.Return(context.Background(), domain.Actor{UserID: admin.ID, Role: domain.RoleAdmin}, book.ID)

	require.NoError(t, err)
	assert.Equal(t, owner.ID, closed.UserID)
	require.NotNil(t, closed.ReturnedAt)
	assert.Nil(t, store.openLoanFor(book.ID))
}

func Test_Return_AdminForceReturnDisabled_Forbidden(t *testing.T) {
	store := newFakeStore()
	owner := store.addUser("asha", domain.RoleMember)
	admin := store.addUser("admin", domain.RoleAdmin)
	book := store.addBook("The Midnight Kite of Varanasi", "Arunika Senapati", true)
	svc := newLoanService(store, false)

	_, err := svc.Borrow(context.Background(), memberActor(owner), book.ID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), domain.Actor{UserID: admin.ID, Role: domain.RoleAdmin}, book.ID)

	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))
	require.NotNil(t, store.openLoanFor(book.ID))
}

func Test_Borrow_ConcurrentRace_ExactlyOneWinner(t *testing.T) {
	store := newFakeStore()
	book := store.addBook("The River's Secret of Kaveri", "Priyanka Deshpande", true)
	svc := newLoanService(store, true)

	const contenders = 8
	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		member := store.addUser("member", domain.RoleMember)
		wg.Add(1)
		go func(idx int, actor domain.Actor) {
			defer wg.Done()
			_, results[idx] = svc.Borrow(context.Background(), actor, book.ID)
		}(i, memberActor(member))
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.Equal(t, "CONFLICT", errorCode(t, err))
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, store.loanCount())
	require.NotNil(t, store.openLoanFor(book.ID))
}

func Test_Lifecycle_FullScenario(t *testing.T) {
	store := newFakeStore()
	owner := store.addUser("user42", domain.RoleMember)
	other := store.addUser("user7", domain.RoleMember)
	book := store.addBook("X", "Y", true)
	svc := newLoanService(store, true)
	ctx := context.Background()

	loan, err := svc.Borrow(ctx, memberActor(owner), book.ID)
	require.NoError(t, err)
	assert.Nil(t, loan.ReturnedAt)

	stored, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, stored.Available)

	_, err = svc.Borrow(ctx, memberActor(other), book.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", errorCode(t, err))
	assert.Equal(t, 1, store.loanCount())

	closed, err := svc.Return(ctx, memberActor(owner), book.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.ReturnedAt)

	stored, err = store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, stored.Available)

	_, err = svc.Return(ctx, memberActor(owner), book.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", errorCode(t, err))
}

func Test_Borrow_LedgerMismatch_IsFatal(t *testing.T) {
	store := newFakeStore()
	member := store.addUser("asha", domain.RoleMember)
	book := store.addBook("Broken", "State", true)
	svc := newLoanService(store, true)

	// Simulate a partial write: an open loan exists while the catalog still
	// reports the book as available.
	require.NoError(t, store.Loans().Create(context.Background(), &domain.Loan{
		BookID:     book.ID,
		UserID:     member.ID,
		BorrowedAt: time.Now(),
	}))

	_, err := svc.Borrow(context.Background(), memberActor(member), book.ID)

	require.Error(t, err)
	assert.Equal(t, "LEDGER_MISMATCH", errorCode(t, err))
}

func Test_Borrow_StoreFailure_SurfacesAsUnavailable(t *testing.T) {
	store := newFakeStore()
	member := store.addUser("asha", domain.RoleMember)
	book := store.addBook("Flaky", "Store", true)
	store.beginErr = errors.New("connection refused")
	svc := newLoanService(store, true)

	_, err := svc.Borrow(context.Background(), memberActor(member), book.ID)

	require.Error(t, err)
	assert.Equal(t, "STORE_UNAVAILABLE", errorCode(t, err))
}

func Test_History_OwnAndAll(t *testing.T) {
	store := newFakeStore()
	first := store.addUser("asha", domain.RoleMember)
	second := store.addUser("rohan", domain.RoleMember)
	admin := store.addUser("admin", domain.RoleAdmin)
	bookA := store.addBook("A", "Author A", true)
	bookB := store.addBook("B", "Author B", true)
	svc := newLoanService(store, true)
	ctx := context.Background()

	_, err := svc.Borrow(ctx, memberActor(first), bookA.ID)
	require.NoError(t, err)
	_, err = svc.Return(ctx, memberActor(first), bookA.ID)
	require.NoError(t, err)
	_, err = svc.Borrow(ctx, memberActor(first), bookB.ID)
	require.NoError(t, err)

	own, err := svc.HistoryOwn(ctx, memberActor(first))
	require.NoError(t, err)
	require.Len(t, own, 2)
	// most recent first
	assert.Equal(t, bookB.ID, own[0].BookID)
	assert.Equal(t, "B", own[0].BookTitle)

	open, err := svc.OpenLoans(ctx, memberActor(first))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, bookB.ID, open[0].BookID)

	othersView, err := svc.HistoryOwn(ctx, memberActor(second))
	require.NoError(t, err)
	assert.Empty(t, othersView)

	_, err = svc.HistoryAll(ctx, memberActor(second))
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errorCode(t, err))

	all, err := svc.HistoryAll(ctx, domain.Actor{UserID: admin.ID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func Test_Borrow_PublishesEvent(t *testing.T) {
	store := newFakeStore()
	member := store.addUser("asha", domain.RoleMember)
	book := store.addBook("Evented", "Author", true)

	dispatcher := events.NewInMemoryDispatcher()
	var seen []events.Event
	dispatcher.Subscribe(events.EventBookBorrowed, func(_ context.Context, event events.Event) error {
		seen = append(seen, event)
		return nil
	})

	svc := service.NewLoanService(service.LoanDependencies{
		Store:      store,
		Policy:     auth.NewPolicy(true),
		Dispatcher: dispatcher,
	})

	loan, err := svc.Borrow(context.Background(), memberActor(member), book.ID)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, book.ID, seen[0].BookID)
	payload, ok := seen[0].Payload.(events.BookBorrowedPayload)
	require.True(t, ok)
	assert.Equal(t, loan.ID, payload.LoanID)
}
