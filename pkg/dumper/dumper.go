package dumper

import (
	"context"
	"fmt"

	"vkdump/internal/downloader"
	"vkdump/pkg/config"
	"vkdump/pkg/logger"
	"vkdump/pkg/planner"
	"vkdump/pkg/ratelimit"
	"vkdump/pkg/resume"
	"vkdump/pkg/storage"
	"vkdump/pkg/ui"
	"vkdump/pkg/vk"
)

// Dumper drives the page-by-page download of a conversation's photos.
// Pagination is strictly sequential: each page's cursor depends on the result
// of the previous page, so only downloads within one page run concurrently.
type Dumper struct {
	source   PageSource
	executor BatchExecutor
	store    ResumeStore
	limiter  ratelimit.Limiter
	progress *ui.Progress
	pageSize int
	logger   logger.Logger
}

// New creates a dumper wired to the real VK client and download pool,
// writing into outputDir and persisting resume state per cfg.
func New(cfg *config.Config, client *vk.Client, outputDir string) (*Dumper, error) {
	log := logger.GetLogger()

	storageManager, err := storage.NewManager(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	pool := downloader.NewPool(
		cfg.Download.Concurrency,
		client,
		storageManager,
		cfg.Download.DownloadTimeout,
		log,
	)

	return &Dumper{
		source:   client,
		executor: pool,
		store:    resume.NewStore(cfg.Output.StateFile, log),
		limiter:  ratelimit.NewPerSecond(cfg.RateLimit.RequestsPerSecond),
		progress: ui.NewProgress(),
		pageSize: cfg.Download.PageSize,
		logger:   log,
	}, nil
}

// DownloadConversationPhotos pages through the conversation's photo
// attachments and downloads them into the planned destinations. It returns
// the number of newly downloaded files, which is valid even when err is
// non-nil (aborted run or cancellation).
//
// The cursor for a page is persisted only after every download task derived
// from that page has finished, so an interrupted run never skips attachments
// that were never attempted.
func (d *Dumper) DownloadConversationPhotos(ctx context.Context, peerID int64, outputDir string) (int, error) {
	state := d.store.Load()
	cursor, resumed := state.Get(peerID)

	if resumed {
		d.logger.InfoWithFields("resuming conversation", map[string]interface{}{
			"peer_id": peerID,
			"cursor":  cursor,
		})
	} else {
		d.logger.InfoWithFields("starting conversation", map[string]interface{}{
			"peer_id": peerID,
		})
	}

	total := 0
	defer d.progress.Finish()

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		d.limiter.Wait()

		items, nextFrom, err := d.source.FetchHistoryAttachments(ctx, peerID, d.pageSize, cursor)
		if err != nil {
			// Abort the run; the previously persisted cursor stays valid
			d.logger.WithError(err).WithField("peer_id", peerID).Error("page fetch failed")
			return total, err
		}

		if len(items) == 0 {
			// Natural end-of-stream
			d.finishConversation(state, peerID)
			return total, nil
		}

		tasks := planner.Plan(items, outputDir)

		jobs := make([]downloader.DownloadJob, len(tasks))
		for i, task := range tasks {
			jobs[i] = downloader.DownloadJob{
				URL:     task.URL,
				Dest:    task.Dest,
				PhotoID: task.PhotoID,
			}
		}

		batch := d.executor.Run(ctx, jobs)
		total += batch.Downloaded
		d.progress.Add(batch.Downloaded)

		d.logger.DebugWithFields("page processed", map[string]interface{}{
			"peer_id":    peerID,
			"items":      len(items),
			"planned":    len(tasks),
			"downloaded": batch.Downloaded,
			"skipped":    batch.Skipped,
			"failed":     batch.Failed,
			"next_from":  nextFrom,
		})

		if err := ctx.Err(); err != nil {
			// Cancelled mid-batch: do not record this page as complete
			return total, err
		}

		cursor = nextFrom
		if cursor == "" {
			d.finishConversation(state, peerID)
			return total, nil
		}

		state.Set(peerID, cursor)
		d.persist(state)
	}
}

// finishConversation removes the resume key and persists the state; the
// conversation is fully drained.
func (d *Dumper) finishConversation(state resume.State, peerID int64) {
	state.Set(peerID, "")
	d.persist(state)

	d.logger.InfoWithFields("conversation drained", map[string]interface{}{
		"peer_id": peerID,
	})
}

// persist saves resume state, logging failures instead of escalating them.
// A lost save only costs one re-fetched page on the next run.
func (d *Dumper) persist(state resume.State) {
	if err := d.store.Save(state); err != nil {
		d.logger.WithError(err).Warn("failed to persist resume state")
	}
}
