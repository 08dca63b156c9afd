package dumper

import (
	"context"

	"vkdump/internal/downloader"
	"vkdump/pkg/resume"
	"vkdump/pkg/vk"
)

// PageSource fetches one page of photo attachments for a conversation.
// Satisfied by *vk.Client.
type PageSource interface {
	FetchHistoryAttachments(ctx context.Context, peerID int64, count int, startFrom string) ([]vk.Item, string, error)
}

// BatchExecutor runs one page's download jobs to completion.
// Satisfied by *downloader.Pool.
type BatchExecutor interface {
	Run(ctx context.Context, jobs []downloader.DownloadJob) downloader.BatchResult
}

// ResumeStore owns the durable pagination state.
// Satisfied by *resume.Store.
type ResumeStore interface {
	Load() resume.State
	Save(state resume.State) error
}
