package listmanager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (i item) RecordID() string { return i.ID }

func (i item) Row() map[string]string { return map[string]string{"id": i.ID, "name": i.Name} }

type fakeBackend struct {
	mu      sync.Mutex
	queries []models.ListQuery
	total   int
	fail    error
	block   chan struct{}
}

func (f *fakeBackend) fetch(ctx context.Context, q models.ListQuery) (models.Page[item], error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	block := f.block
	fail := f.fail
	total := f.total
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.Page[item]{}, ctx.Err()
		}
	}
	if fail != nil {
		return models.Page[item]{}, fail
	}

	items := make([]item, 0, q.PageSize)
	for i := 0; i < q.PageSize; i++ {
		n := (q.Page-1)*q.PageSize + i
		if n >= total {
			break
		}
		items = append(items, item{ID: fmt.Sprintf("id%d", n), Name: fmt.Sprintf("item %d", n)})
	}
	if q.Page == 1 && total > 0 && len(items) > 0 {
		items[0].ID = "abc123"
	}
	return models.Page[item]{Items: items, Page: q.Page, PageSize: q.PageSize, TotalCount: total, TotalPages: totalPages(total, q.PageSize)}, nil
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeBackend) last() models.ListQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeBackend) set(fn func(*fakeBackend)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

type staleCounter struct{ n atomic.Int32 }

func (s *staleCounter) RecordStaleDiscard(string) { s.n.Add(1) }

func newMounted(t *testing.T, backend *fakeBackend, opts Options) *Manager[item] {
	t.Helper()
	m := New[item]("products", backend.fetch, opts)
	require.NoError(t, m.Mount(context.Background()))
	t.Cleanup(m.Unmount)
	return m
}

func TestMountLoadsFirstPage(t *testing.T) {
	backend := &fakeBackend{total: 25}
	m := newMounted(t, backend, Options{})

	v := m.View()
	assert.Equal(t, StatusLoaded, v.Status)
	assert.Len(t, v.Items, 10)
	assert.Equal(t, 25, v.Pagination.TotalCount)
	assert.Equal(t, 3, v.Pagination.TotalPages)
	assert.Equal(t, 1, backend.last().Page)
	assert.Equal(t, 10, backend.last().PageSize)
}

func TestSearchIsDebounced(t *testing.T) {
	backend := &fakeBackend{total: 25}
	m := newMounted(t, backend, Options{Debounce: 40 * time.Millisecond})
	require.NoError(t, m.SetPage(2))
	require.Equal(t, 2, backend.calls())

	for _, term := range []string{"w", "wi", "wid", "widg", "widge", "widget"} {
		require.NoError(t, m.SetSearch(term))
	}
	assert.Equal(t, "widget", m.View().DraftSearch)
	assert.Equal(t, "", m.View().Query.Search)

	require.Eventually(t, func() bool { return backend.calls() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 3, backend.calls())

	q := backend.last()
	assert.Equal(t, "widget", q.Search)
	assert.Equal(t, 1, q.Page)
	assert.Eventually(t, func() bool { return m.View().Status == StatusLoaded }, time.Second, 5*time.Millisecond)
}

func TestFilterResetsToFirstPage(t *testing.T) {
	backend := &fakeBackend{total: 40}
	m := newMounted(t, backend, Options{})
	require.NoError(t, m.SetPage(3))

	require.NoError(t, m.SetFilter("status", "active"))
	q := backend.last()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, "active", q.Filters["status"])

	require.NoError(t, m.SetFilter("status", ""))
	assert.NotContains(t, backend.last().Filters, "status")
}

func TestDeleteRemovesExactlyOneRecord(t *testing.T) {
	backend := &fakeBackend{total: 25}
	m := newMounted(t, backend, Options{})
	calls := backend.calls()

	err := m.Delete(context.Background(), "abc123", func(context.Context) error { return nil })
	require.NoError(t, err)

	v := m.View()
	assert.Len(t, v.Items, 9)
	assert.Equal(t, 24, v.Pagination.TotalCount)
	for _, it := range v.Items {
		assert.NotEqual(t, "abc123", it.ID)
	}
	assert.Equal(t, calls, backend.calls())
}

func TestCreateOnFirstPagePrepends(t *testing.T) {
	backend := &fakeBackend{total: 5}
	m := newMounted(t, backend, Options{})
	calls := backend.calls()

	created, err := m.Create(context.Background(), func(context.Context) (item, error) {
		return item{ID: "new", Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)

	v := m.View()
	assert.Equal(t, "new", v.Items[0].ID)
	assert.Equal(t, 6, v.Pagination.TotalCount)
	assert.Equal(t, calls, backend.calls())
}

func TestCreateOnLaterPageReturnsToFirst(t *testing.T) {
	backend := &fakeBackend{total: 25}
	m := newMounted(t, backend, Options{})
	require.NoError(t, m.SetPage(2))
	calls := backend.calls()

	_, err := m.Create(context.Background(), func(context.Context) (item, error) {
		return item{ID: "new"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, calls+1, backend.calls())
	assert.Equal(t, 1, backend.last().Page)
	assert.Equal(t, 1, m.View().Pagination.Page)
}

func TestUpdatePatchesInPlace(t *testing.T) {
	backend := &fakeBackend{total: 10}
	m := newMounted(t, backend, Options{})
	before := m.Items()

	_, err := m.Update(context.Background(), "id3", func(context.Context) (item, error) {
		return item{ID: "id3", Name: "renamed"}, nil
	})
	require.NoError(t, err)

	after := m.Items()
	require.Len(t, after, len(before))
	for i := range after {
		if after[i].ID == "id3" {
			assert.Equal(t, "renamed", after[i].Name)
			continue
		}
		assert.Equal(t, before[i], after[i])
	}
}

func TestSubmitFailureLeavesPageUntouched(t *testing.T) {
	backend := &fakeBackend{total: 10}
	m := newMounted(t, backend, Options{})
	before := m.Items()

	_, err := m.Update(context.Background(), "id3", func(context.Context) (item, error) {
		return item{}, appErrors.Validation("invalid", map[string]string{"price": "must be positive"})
	})
	require.Error(t, err)

	v := m.View()
	assert.Equal(t, StatusSubmitError, v.Status)
	assert.Equal(t, before, v.Items)
	require.NotNil(t, v.Error)
	assert.Equal(t, "must be positive", v.Error.Fields["price"])
	assert.False(t, v.Retryable)
}

func TestSecondSubmitWhileBusyIsRejected(t *testing.T) {
	backend := &fakeBackend{total: 10}
	m := newMounted(t, backend, Options{})

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := m.Update(context.Background(), "id3", func(context.Context) (item, error) {
			close(started)
			<-release
			return item{ID: "id3"}, nil
		})
		done <- err
	}()
	<-started
	assert.Equal(t, StatusSubmitting, m.View().Status)

	err := m.Delete(context.Background(), "id4", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, appErrors.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusLoaded, m.View().Status)
}

func TestOlderFetchResponseIsDiscarded(t *testing.T) {
	backend := &fakeBackend{total: 50}
	stale := &staleCounter{}
	m := newMounted(t, backend, Options{Observer: stale})

	gate := make(chan struct{})
	backend.set(func(f *fakeBackend) { f.block = gate })

	first := make(chan error, 1)
	go func() { first <- m.SetPage(2) }()
	require.Eventually(t, func() bool { return backend.calls() == 2 }, time.Second, 5*time.Millisecond)

	backend.set(func(f *fakeBackend) { f.block = nil })
	require.NoError(t, m.SetPage(3))

	err := <-first
	assert.True(t, appErrors.IsCancelled(err))
	assert.EqualValues(t, 1, stale.n.Load())

	v := m.View()
	assert.Equal(t, 3, v.Pagination.Page)
	assert.Equal(t, "id20", v.Items[0].ID)
}

func TestMutationAfterQueryChangeSkipsPatch(t *testing.T) {
	backend := &fakeBackend{total: 25}
	m := newMounted(t, backend, Options{})

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := m.Create(context.Background(), func(context.Context) (item, error) {
			close(started)
			<-release
			return item{ID: "late"}, nil
		})
		done <- err
	}()
	<-started
	require.NoError(t, m.SetFilter("status", "inactive"))
	close(release)
	require.NoError(t, <-done)

	for _, it := range m.Items() {
		assert.NotEqual(t, "late", it.ID)
	}
	assert.Equal(t, 25, m.View().Pagination.TotalCount)
}

func TestLoadErrorKeepsStalePage(t *testing.T) {
	backend := &fakeBackend{total: 10}
	m := newMounted(t, backend, Options{})

	backend.set(func(f *fakeBackend) { f.fail = appErrors.ErrNetwork })
	err := m.Refresh()
	require.ErrorIs(t, err, appErrors.ErrNetwork)

	v := m.View()
	assert.Equal(t, StatusLoadError, v.Status)
	assert.True(t, v.Stale)
	assert.True(t, v.Retryable)
	assert.Len(t, v.Items, 10)

	backend.set(func(f *fakeBackend) { f.fail = nil })
	require.NoError(t, m.Refresh())
	v = m.View()
	assert.Equal(t, StatusLoaded, v.Status)
	assert.False(t, v.Stale)
	assert.Nil(t, v.Error)
}

func TestUnmountCancelsInFlightFetch(t *testing.T) {
	backend := &fakeBackend{total: 10}
	m := New[item]("products", backend.fetch, Options{})
	require.NoError(t, m.Mount(context.Background()))

	backend.set(func(f *fakeBackend) { f.block = make(chan struct{}) })
	done := make(chan error, 1)
	go func() { done <- m.Refresh() }()
	require.Eventually(t, func() bool { return backend.calls() == 2 }, time.Second, 5*time.Millisecond)

	m.Unmount()
	select {
	case err := <-done:
		assert.True(t, appErrors.IsCancelled(err))
	case <-time.After(time.Second):
		t.Fatal("fetch was not cancelled")
	}
	assert.ErrorIs(t, m.SetPage(2), appErrors.ErrNotMounted)
}

func TestUnmountStopsPendingSearch(t *testing.T) {
	backend := &fakeBackend{total: 10}
	m := New[item]("products", backend.fetch, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, m.Mount(context.Background()))

	require.NoError(t, m.SetSearch("widget"))
	m.Unmount()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, backend.calls())
}

func TestRemountStartsFresh(t *testing.T) {
	backend := &fakeBackend{total: 30}
	m := New[item]("products", backend.fetch, Options{Filters: map[string]string{"sort": "newest"}})
	require.NoError(t, m.Mount(context.Background()))
	require.NoError(t, m.SetPage(3))
	m.Unmount()

	require.NoError(t, m.Mount(context.Background()))
	defer m.Unmount()
	q := backend.last()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, "newest", q.Filters["sort"])
}

func TestSubmitFromPreviousMountLeavesNewMountAlone(t *testing.T) {
	backend := &fakeBackend{total: 10}
	m := newMounted(t, backend, Options{})

	releaseOld := make(chan struct{})
	startedOld := make(chan struct{})
	doneOld := make(chan error, 1)
	go func() {
		_, err := m.Create(context.Background(), func(ctx context.Context) (item, error) {
			close(startedOld)
			<-releaseOld
			return item{}, ctx.Err()
		})
		doneOld <- err
	}()
	<-startedOld

	m.Unmount()
	require.NoError(t, m.Mount(context.Background()))

	releaseNew := make(chan struct{})
	startedNew := make(chan struct{})
	doneNew := make(chan error, 1)
	go func() {
		_, err := m.Create(context.Background(), func(context.Context) (item, error) {
			close(startedNew)
			<-releaseNew
			return item{ID: "fresh"}, nil
		})
		doneNew <- err
	}()
	<-startedNew

	close(releaseOld)
	assert.True(t, appErrors.IsCancelled(<-doneOld))

	v := m.View()
	assert.Equal(t, StatusSubmitting, v.Status)
	assert.Nil(t, v.Error)

	err := m.Delete(context.Background(), "id1", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, appErrors.ErrBusy)

	close(releaseNew)
	require.NoError(t, <-doneNew)
	v = m.View()
	assert.Equal(t, StatusLoaded, v.Status)
	assert.Nil(t, v.Error)
	assert.Equal(t, "fresh", v.Items[0].ID)
}

func TestRejectSurfacesLocalValidation(t *testing.T) {
	backend := &fakeBackend{total: 10}
	m := newMounted(t, backend, Options{})

	err := m.Reject(appErrors.Validation("bad", map[string]string{"name": "is required"}))
	require.Error(t, err)
	v := m.View()
	assert.Equal(t, StatusSubmitError, v.Status)
	assert.Equal(t, "is required", v.Error.Fields["name"])
	assert.Equal(t, 1, backend.calls())
}
