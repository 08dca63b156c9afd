package planner

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"vkdump/pkg/vk"
)

// Task is one planned download: where to get the bytes and where to put them
type Task struct {
	URL     string
	Dest    string
	PhotoID int64
}

// Plan maps one page of attachment items to download tasks. Items without a
// photo, without size variants or without a usable URL are skipped one by
// one; a malformed item never aborts planning for the rest of the page.
func Plan(items []vk.Item, outputDir string) []Task {
	tasks := make([]Task, 0, len(items))

	for _, item := range items {
		photo := item.Attachment.Photo
		if photo == nil {
			continue
		}

		best, ok := photo.BestSize()
		if !ok || best.URL == "" {
			continue
		}

		filename := fmt.Sprintf("photo_%d.%s", photo.ID, extFromURL(best.URL))
		tasks = append(tasks, Task{
			URL:     best.URL,
			Dest:    filepath.Join(outputDir, filename),
			PhotoID: photo.ID,
		})
	}

	return tasks
}

// extFromURL derives the file extension from the URL path: query string
// stripped, last dot-delimited segment of the final path element.
func extFromURL(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	} else if i := strings.Index(p, "?"); i >= 0 {
		p = p[:i]
	}

	base := path.Base(p)
	if i := strings.LastIndex(base, "."); i >= 0 && i < len(base)-1 {
		return base[i+1:]
	}
	return "jpg"
}
