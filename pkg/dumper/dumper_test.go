package dumper

import (
	"context"
	"fmt"
	"testing"

	"vkdump/internal/downloader"
	"vkdump/pkg/logger"
	"vkdump/pkg/ratelimit"
	"vkdump/pkg/resume"
	"vkdump/pkg/ui"
	"vkdump/pkg/vk"
)

// page is one canned API response
type page struct {
	items    []vk.Item
	nextFrom string
	err      error
}

// fakeSource replays canned pages keyed by the cursor they were requested with
type fakeSource struct {
	pages   map[string]page
	cursors []string
}

func (f *fakeSource) FetchHistoryAttachments(ctx context.Context, peerID int64, count int, startFrom string) ([]vk.Item, string, error) {
	f.cursors = append(f.cursors, startFrom)
	p, ok := f.pages[startFrom]
	if !ok {
		return nil, "", fmt.Errorf("unexpected cursor %q", startFrom)
	}
	return p.items, p.nextFrom, p.err
}

// fakeExecutor reports every planned job as downloaded
type fakeExecutor struct {
	batches [][]downloader.DownloadJob
	cancel  context.CancelFunc
}

func (f *fakeExecutor) Run(ctx context.Context, jobs []downloader.DownloadJob) downloader.BatchResult {
	f.batches = append(f.batches, jobs)
	if f.cancel != nil {
		f.cancel()
	}
	return downloader.BatchResult{Downloaded: len(jobs)}
}

// fakeStore records every persisted snapshot in order
type fakeStore struct {
	initial   resume.State
	snapshots []resume.State
}

func (f *fakeStore) Load() resume.State {
	if f.initial == nil {
		return resume.State{}
	}
	return f.initial
}

func (f *fakeStore) Save(state resume.State) error {
	snapshot := resume.State{}
	for k, v := range state {
		snapshot[k] = v
	}
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func (f *fakeStore) last(t *testing.T) resume.State {
	t.Helper()
	if len(f.snapshots) == 0 {
		t.Fatal("Expected at least one persisted snapshot")
	}
	return f.snapshots[len(f.snapshots)-1]
}

func photoItem(id int64) vk.Item {
	return vk.Item{
		Attachment: vk.Attachment{
			Type: vk.MediaTypePhoto,
			Photo: &vk.Photo{
				ID: id,
				Sizes: []vk.PhotoSize{
					{Type: "w", URL: fmt.Sprintf("https://cdn.example.com/%d.jpg", id), Width: 2560},
				},
			},
		},
	}
}

func newTestDumper(source PageSource, executor BatchExecutor, store ResumeStore) *Dumper {
	return &Dumper{
		source:   source,
		executor: executor,
		store:    store,
		limiter:  ratelimit.NewPerSecond(1000),
		progress: ui.NewProgress(),
		pageSize: 200,
		logger:   logger.GetLogger(),
	}
}

func TestDownloadConversationPhotosTwoPages(t *testing.T) {
	source := &fakeSource{pages: map[string]page{
		"":    {items: []vk.Item{photoItem(1), photoItem(2)}, nextFrom: "abc"},
		"abc": {items: []vk.Item{photoItem(3)}, nextFrom: ""},
	}}
	executor := &fakeExecutor{}
	store := &fakeStore{}

	d := newTestDumper(source, executor, store)
	count, err := d.DownloadConversationPhotos(context.Background(), 12345, t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 downloads, got %d", count)
	}

	// First page persisted its cursor, the final save cleared the key
	if len(store.snapshots) != 2 {
		t.Fatalf("Expected 2 persisted snapshots, got %d", len(store.snapshots))
	}
	if cursor, ok := store.snapshots[0].Get(12345); !ok || cursor != "abc" {
		t.Errorf("Expected first snapshot to carry cursor abc, got %q (ok=%v)", cursor, ok)
	}
	if len(store.last(t)) != 0 {
		t.Errorf("Expected final snapshot empty, got %v", store.last(t))
	}
}

func TestDownloadConversationPhotosCursorOnlyAfterBatch(t *testing.T) {
	source := &fakeSource{pages: map[string]page{
		"": {items: []vk.Item{photoItem(1)}, nextFrom: "next1"},
	}}
	store := &fakeStore{}

	// The executor observing zero prior snapshots proves the cursor is not
	// persisted before the page's batch runs.
	executor := &checkOrderExecutor{store: store, t: t}

	d := newTestDumper(source, executor, store)

	ctx, cancel := context.WithCancel(context.Background())
	executor.cancel = cancel

	_, err := d.DownloadConversationPhotos(ctx, 12345, t.TempDir())
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
}

type checkOrderExecutor struct {
	store  *fakeStore
	t      *testing.T
	cancel context.CancelFunc
}

func (c *checkOrderExecutor) Run(ctx context.Context, jobs []downloader.DownloadJob) downloader.BatchResult {
	if len(c.store.snapshots) != 0 {
		c.t.Error("Cursor was persisted before the page's batch finished")
	}
	if c.cancel != nil {
		c.cancel()
	}
	return downloader.BatchResult{Downloaded: len(jobs)}
}

func TestDownloadConversationPhotosResumesFromCursor(t *testing.T) {
	source := &fakeSource{pages: map[string]page{
		"saved": {items: []vk.Item{photoItem(9)}, nextFrom: ""},
	}}
	executor := &fakeExecutor{}
	store := &fakeStore{initial: resume.State{"12345": "saved"}}

	d := newTestDumper(source, executor, store)
	count, err := d.DownloadConversationPhotos(context.Background(), 12345, t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 download, got %d", count)
	}
	if len(source.cursors) != 1 || source.cursors[0] != "saved" {
		t.Errorf("Expected first fetch to resume from saved cursor, got %v", source.cursors)
	}
}

func TestDownloadConversationPhotosFetchErrorAborts(t *testing.T) {
	source := &fakeSource{pages: map[string]page{
		"":    {items: []vk.Item{photoItem(1)}, nextFrom: "abc"},
		"abc": {err: fmt.Errorf("server error")},
	}}
	executor := &fakeExecutor{}
	store := &fakeStore{}

	d := newTestDumper(source, executor, store)
	count, err := d.DownloadConversationPhotos(context.Background(), 12345, t.TempDir())
	if err == nil {
		t.Fatal("Expected fetch error to abort the run")
	}
	if count != 1 {
		t.Errorf("Expected count from completed pages, got %d", count)
	}

	// The cursor persisted for page one survives the abort untouched
	if cursor, ok := store.last(t).Get(12345); !ok || cursor != "abc" {
		t.Errorf("Expected cursor abc preserved after abort, got %q (ok=%v)", cursor, ok)
	}
}

func TestDownloadConversationPhotosEmptyFirstPage(t *testing.T) {
	source := &fakeSource{pages: map[string]page{
		"": {items: nil, nextFrom: ""},
	}}
	executor := &fakeExecutor{}
	store := &fakeStore{}

	d := newTestDumper(source, executor, store)
	count, err := d.DownloadConversationPhotos(context.Background(), 12345, t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 downloads, got %d", count)
	}
	if len(executor.batches) != 0 {
		t.Errorf("Expected no batches for an empty conversation, got %d", len(executor.batches))
	}
	if len(store.last(t)) != 0 {
		t.Errorf("Expected final snapshot empty, got %v", store.last(t))
	}
}

func TestDownloadConversationPhotosEmptyPageWithCursor(t *testing.T) {
	// Some conversations return a cursor alongside an empty page; that still
	// means end-of-stream.
	source := &fakeSource{pages: map[string]page{
		"": {items: nil, nextFrom: "ghost"},
	}}
	executor := &fakeExecutor{}
	store := &fakeStore{}

	d := newTestDumper(source, executor, store)
	if _, err := d.DownloadConversationPhotos(context.Background(), 12345, t.TempDir()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(source.cursors) != 1 {
		t.Errorf("Expected exactly one fetch, got %d", len(source.cursors))
	}
	if len(store.last(t)) != 0 {
		t.Errorf("Expected final snapshot empty, got %v", store.last(t))
	}
}

func TestDownloadConversationPhotosCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{pages: map[string]page{}}
	store := &fakeStore{}
	d := newTestDumper(source, &fakeExecutor{}, store)

	count, err := d.DownloadConversationPhotos(ctx, 12345, t.TempDir())
	if err == nil {
		t.Fatal("Expected context error")
	}
	if count != 0 {
		t.Errorf("Expected 0 downloads, got %d", count)
	}
	if len(source.cursors) != 0 {
		t.Errorf("Expected no fetches after cancellation, got %d", len(source.cursors))
	}
}

func TestDownloadConversationPhotosCancelledMidBatch(t *testing.T) {
	source := &fakeSource{pages: map[string]page{
		"": {items: []vk.Item{photoItem(1)}, nextFrom: "abc"},
	}}
	store := &fakeStore{}
	executor := &fakeExecutor{}

	ctx, cancel := context.WithCancel(context.Background())
	executor.cancel = cancel

	d := newTestDumper(source, executor, store)
	count, err := d.DownloadConversationPhotos(ctx, 12345, t.TempDir())
	if err == nil {
		t.Fatal("Expected context error")
	}
	if count != 1 {
		t.Errorf("Expected the finished batch counted, got %d", count)
	}

	// The interrupted page's cursor is never recorded
	if len(store.snapshots) != 0 {
		t.Errorf("Expected no snapshot for an interrupted page, got %v", store.snapshots)
	}
}
