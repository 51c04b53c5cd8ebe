package importer

import (
	"context"
	"errors"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/mutation"
)

// Writer creates folders and links. Implemented by *mutation.Service.
type Writer interface {
	AddFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error)
	AddLink(ctx context.Context, params model.NewLinkParams) (model.Link, error)
}

// Stats summarizes a merge.
type Stats struct {
	FoldersAdded  int
	FoldersReused int
	LinksAdded    int
	Duplicates    int // URL already saved, or repeated in the file
	Invalid       int // links rejected by validation

	// InvalidFolders were rejected by validation. Their links are saved
	// unfiled and counted in Unfiled.
	InvalidFolders int
	Unfiled        int
}

// Merge adds the parsed folders and links to userID's collections in existing.
// Folders are reused by case-insensitive name and links whose URL is already
// saved are skipped. Folders and links that fail validation are counted and
// skipped, and the links of a skipped folder land unfiled; any other write
// error aborts the merge.
func Merge(ctx context.Context, w Writer, userID string, existing *model.Snapshot, folders []Folder, links []Link, log logrus.FieldLogger) (Stats, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{"component": "importer", "user_id": userID})

	var stats Stats

	folderIDs := map[string]string{} // lower-case name -> id
	for _, f := range existing.Folders {
		key := strings.ToLower(f.Name)
		if _, ok := folderIDs[key]; !ok {
			folderIDs[key] = f.ID
		}
	}
	rejected := mapset.NewThreadUnsafeSet[string]()
	for _, f := range folders {
		key := strings.ToLower(f.Name)
		if _, ok := folderIDs[key]; ok {
			stats.FoldersReused++
			continue
		}
		created, err := w.AddFolder(ctx, model.NewFolderParams{
			Name:      f.Name,
			IsPrivate: f.IsPrivate,
			UserID:    userID,
		})
		if errors.Is(err, mutation.ErrValidation) {
			log.WithError(err).WithField("folder", f.Name).Warn("skipping invalid folder")
			stats.InvalidFolders++
			rejected.Add(key)
			continue
		}
		if err != nil {
			return stats, err
		}
		folderIDs[key] = created.ID
		stats.FoldersAdded++
	}

	seen := mapset.NewThreadUnsafeSetWithSize[string](len(existing.Links) + len(links))
	for _, l := range existing.Links {
		seen.Add(l.URL)
	}

	for _, l := range links {
		if !seen.Add(l.URL) {
			stats.Duplicates++
			continue
		}

		var folderID *string
		folderRejected := false
		if l.Folder != "" {
			key := strings.ToLower(l.Folder)
			if id, ok := folderIDs[key]; ok {
				folderID = &id
			} else {
				folderRejected = rejected.Contains(key)
			}
		}

		_, err := w.AddLink(ctx, model.NewLinkParams{
			Title:     l.Title,
			URL:       l.URL,
			Platform:  l.Platform,
			FolderID:  folderID,
			IsPrivate: l.IsPrivate,
			UserID:    userID,
			CreatedAt: l.CreatedAt,
		})
		if errors.Is(err, mutation.ErrValidation) {
			log.WithError(err).WithField("url", l.URL).Warn("skipping invalid link")
			stats.Invalid++
			continue
		}
		if err != nil {
			return stats, err
		}
		stats.LinksAdded++
		if folderRejected {
			stats.Unfiled++
		}
	}

	log.WithFields(logrus.Fields{
		"folders_added": stats.FoldersAdded,
		"links_added":   stats.LinksAdded,
		"duplicates":    stats.Duplicates,
		"invalid":       stats.Invalid + stats.InvalidFolders,
	}).Info("import finished")
	return stats, nil
}
