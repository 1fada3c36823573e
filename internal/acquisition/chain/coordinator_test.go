package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"acquisition_backend/internal/acquisition/domain"
	"acquisition_backend/internal/acquisition/ports"
	"acquisition_backend/internal/acquisition/session"
	"acquisition_backend/platform/apperr"
)

// fakeFolders is a minimal FolderStore. byParent simulates the backend
// unique constraint; racing makes the first lookup miss even though a
// concurrent create already won.
type fakeFolders struct {
	ports.FolderStore
	mu       sync.Mutex
	known    map[uuid.UUID]bool
	byParent map[uuid.UUID]domain.PreListingFolder
	racing   bool
	creates  int
	lookups  int
	failWith error
}

func newFakeFolders(firstImpressionIDs ...uuid.UUID) *fakeFolders {
	f := &fakeFolders{known: map[uuid.UUID]bool{}, byParent: map[uuid.UUID]domain.PreListingFolder{}}
	for _, id := range firstImpressionIDs {
		f.known[id] = true
	}
	return f
}

func (f *fakeFolders) GetFolder(_ context.Context, _, id uuid.UUID) (domain.PreListingFolder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, folder := range f.byParent {
		if folder.ID == id {
			return folder, nil
		}
	}
	return domain.PreListingFolder{}, apperr.NotFound("folder not found")
}

func (f *fakeFolders) GetFolderByFirstImpression(_ context.Context, _, fiID uuid.UUID) (domain.PreListingFolder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.failWith != nil {
		return domain.PreListingFolder{}, f.failWith
	}
	if f.racing {
		f.racing = false
		f.byParent[fiID] = domain.PreListingFolder{ID: uuid.New(), FirstImpressionID: fiID}
		return domain.PreListingFolder{}, apperr.NotFound("folder not found")
	}
	folder, ok := f.byParent[fiID]
	if !ok {
		return domain.PreListingFolder{}, apperr.NotFound("folder not found")
	}
	return folder, nil
}

func (f *fakeFolders) CreateFolderFromFirstImpression(_ context.Context, _, fiID uuid.UUID) (domain.PreListingFolder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if !f.known[fiID] {
		return domain.PreListingFolder{}, apperr.NotFound("first impression not found")
	}
	if _, exists := f.byParent[fiID]; exists {
		return domain.PreListingFolder{}, apperr.Conflict("folder already exists")
	}
	folder := domain.PreListingFolder{ID: uuid.New(), FirstImpressionID: fiID}
	f.byParent[fiID] = folder
	return folder, nil
}

type fakeContracts struct {
	ports.ContractStore
	mu       sync.Mutex
	byParent map[uuid.UUID]domain.MediationContract
	creates  int
}

func (f *fakeContracts) GetContract(_ context.Context, _, id uuid.UUID) (domain.MediationContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byParent {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.MediationContract{}, apperr.NotFound("contract not found")
}

func (f *fakeContracts) GetContractByFirstImpression(_ context.Context, _, fiID uuid.UUID) (domain.MediationContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byParent[fiID]
	if !ok {
		return domain.MediationContract{}, apperr.NotFound("contract not found")
	}
	return c, nil
}

func (f *fakeContracts) CreateContractFromFirstImpression(_ context.Context, _, fiID uuid.UUID) (domain.MediationContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if _, ok := f.byParent[fiID]; ok {
		return domain.MediationContract{}, apperr.Conflict("contract already exists")
	}
	c := domain.MediationContract{ID: uuid.New(), FirstImpressionID: fiID, Status: domain.StatusDraft}
	f.byParent[fiID] = c
	return c, nil
}

func TestEnsureFolderTwiceCreatesOne(t *testing.T) {
	fiID := uuid.New()
	folders := newFakeFolders(fiID)
	coord := New(folders, &fakeContracts{byParent: map[uuid.UUID]domain.MediationContract{}})

	first := session.New(uuid.New(), uuid.New(), fiID)
	second := session.New(first.OrganizationID, first.AgentID, fiID)

	a, err := coord.EnsureFolder(context.Background(), first)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	b, err := coord.EnsureFolder(context.Background(), second)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	if a.ID != b.ID {
		t.Fatalf("expected same folder, got %s and %s", a.ID, b.ID)
	}
	if len(folders.byParent) != 1 || folders.creates != 1 {
		t.Fatalf("expected exactly one folder and one create, got %d folders %d creates", len(folders.byParent), folders.creates)
	}
	if first.FolderID == nil || *first.FolderID != a.ID {
		t.Fatal("expected folder id cached on session")
	}
}

func TestEnsureFolderConcurrentDoubleTap(t *testing.T) {
	fiID := uuid.New()
	folders := newFakeFolders(fiID)
	coord := New(folders, &fakeContracts{byParent: map[uuid.UUID]domain.MediationContract{}})
	orgID := uuid.New()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			folder, err := coord.EnsureFolder(context.Background(), session.New(orgID, uuid.New(), fiID))
			if err != nil {
				t.Errorf("ensure %d: %v", i, err)
				return
			}
			ids[i] = folder.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("expected one folder id, got %v", ids)
		}
	}
	if len(folders.byParent) != 1 {
		t.Fatalf("expected one folder, got %d", len(folders.byParent))
	}
}

func TestEnsureFolderRefetchesAfterConflict(t *testing.T) {
	fiID := uuid.New()
	folders := newFakeFolders(fiID)
	folders.racing = true
	coord := New(folders, &fakeContracts{byParent: map[uuid.UUID]domain.MediationContract{}})

	folder, err := coord.EnsureFolder(context.Background(), session.New(uuid.New(), uuid.New(), fiID))
	if err != nil {
		t.Fatalf("expected conflict to be recovered, got %v", err)
	}
	if folder.ID != folders.byParent[fiID].ID {
		t.Fatal("expected the folder created by the racing call")
	}
	if folders.lookups != 2 || folders.creates != 1 {
		t.Fatalf("expected fetch/create/fetch, got %d lookups %d creates", folders.lookups, folders.creates)
	}
}

func TestEnsureFolderMissingFirstImpression(t *testing.T) {
	coord := New(newFakeFolders(), &fakeContracts{byParent: map[uuid.UUID]domain.MediationContract{}})

	_, err := coord.EnsureFolder(context.Background(), session.New(uuid.New(), uuid.New(), uuid.New()))
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEnsureFolderPropagatesBackendErrors(t *testing.T) {
	folders := newFakeFolders()
	boom := errors.New("connection reset")
	folders.failWith = boom
	coord := New(folders, &fakeContracts{byParent: map[uuid.UUID]domain.MediationContract{}})

	s := session.New(uuid.New(), uuid.New(), uuid.New())
	_, err := coord.EnsureFolder(context.Background(), s)
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error unchanged, got %v", err)
	}
	if folders.creates != 0 {
		t.Fatal("create must not run after a non-NotFound lookup failure")
	}
	if s.FolderID != nil {
		t.Fatal("failed ensure must not cache an id")
	}
}

func TestEnsureContractReturnsSameID(t *testing.T) {
	contracts := &fakeContracts{byParent: map[uuid.UUID]domain.MediationContract{}}
	coord := New(newFakeFolders(), contracts)
	s := session.New(uuid.New(), uuid.New(), uuid.New())

	first, err := coord.EnsureContract(context.Background(), s)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := coord.EnsureContract(context.Background(), s)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first.ID != second.ID || contracts.creates != 1 {
		t.Fatalf("expected one contract, got %s/%s after %d creates", first.ID, second.ID, contracts.creates)
	}
}

func TestEnsureEntityRetriesAtMostOnce(t *testing.T) {
	fetches := 0
	_, err := ensureEntity(context.Background(),
		func(context.Context) (int, error) {
			fetches++
			return 0, apperr.NotFound("missing")
		},
		func(context.Context) (int, error) {
			return 0, apperr.Conflict("exists")
		},
	)
	if fetches != 2 {
		t.Fatalf("expected exactly two fetches, got %d", fetches)
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected the second fetch error, got %v", err)
	}
}

// slowFolders holds creates until released and fails them if the context
// they run under is done.
type slowFolders struct {
	*fakeFolders
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (f *slowFolders) CreateFolderFromFirstImpression(ctx context.Context, orgID, fiID uuid.UUID) (domain.PreListingFolder, error) {
	f.once.Do(func() { close(f.entered) })
	<-f.release
	if err := ctx.Err(); err != nil {
		return domain.PreListingFolder{}, err
	}
	return f.fakeFolders.CreateFolderFromFirstImpression(ctx, orgID, fiID)
}

func TestEnsureFolderSurvivesFirstCallerCancel(t *testing.T) {
	fiID := uuid.New()
	folders := &slowFolders{
		fakeFolders: newFakeFolders(fiID),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	c := New(folders, &fakeContracts{byParent: map[uuid.UUID]domain.MediationContract{}})
	orgID := uuid.New()

	firstCtx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.EnsureFolder(firstCtx, session.New(orgID, uuid.New(), fiID))
		firstDone <- err
	}()
	<-folders.entered

	secondDone := make(chan error, 1)
	var second domain.PreListingFolder
	go func() {
		var err error
		second, err = c.EnsureFolder(context.Background(), session.New(orgID, uuid.New(), fiID))
		secondDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(folders.release)

	if err := <-secondDone; err != nil {
		t.Fatalf("second tap should get the folder, got %v", err)
	}
	<-firstDone
	if second.ID == uuid.Nil {
		t.Fatal("expected a folder id")
	}
	if folders.creates != 1 {
		t.Fatalf("expected one create, got %d", folders.creates)
	}
}
