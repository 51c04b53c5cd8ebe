// Package mutation is the write side of the app. Every operation is scoped to
// the signed-in user and goes straight to the document store; the sync engine
// picks the result up from its subscriptions.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/tora/internal/docstore"
	"github.com/nikbrunner/tora/internal/model"
	"github.com/nikbrunner/tora/internal/projection"
)

// CurrentUser reports the signed-in user. Implemented by session providers and the sync engine.
type CurrentUser interface {
	CurrentUserID() (string, bool)
}

// Service applies validated writes to the store.
type Service struct {
	store docstore.Store
	user  CurrentUser
	log   logrus.FieldLogger
	now   func() time.Time
}

// New creates a Service writing to store on behalf of user.
func New(store docstore.Store, user CurrentUser, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store: store,
		user:  user,
		log:   log.WithField("component", "mutation"),
		now:   time.Now,
	}
}

// SetClock replaces the time source used for createdAt.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// session returns the active user id. ok is false when nobody is signed in,
// in which case the caller returns without touching the store.
func (s *Service) session() (string, bool) {
	if s.user == nil {
		return "", false
	}
	id, ok := s.user.CurrentUserID()
	return id, ok && id != ""
}

// AddFolder creates an unordered folder owned by params.UserID.
func (s *Service) AddFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error) {
	if err := validateNewFolder(&params); err != nil {
		return model.Folder{}, err
	}

	folder := model.NewFolder(params, s.now())
	id, err := s.store.Create(ctx, params.UserID, docstore.KindFolders, folder.Fields())
	if err != nil {
		return model.Folder{}, err
	}
	folder.ID = id

	s.log.WithFields(logrus.Fields{"user_id": params.UserID, "folder_id": id}).Debug("folder added")
	return folder, nil
}

// UpdateFolder writes the non-nil fields of upd.
func (s *Service) UpdateFolder(ctx context.Context, folderID string, upd model.FolderUpdate) error {
	if err := validateFolderUpdate(&upd); err != nil {
		return err
	}
	userID, ok := s.session()
	if !ok || upd.IsEmpty() {
		return nil
	}
	return s.store.Update(ctx, userID, docstore.KindFolders, folderID, upd.Fields())
}

// AddLink creates a link owned by params.UserID. A nil FolderID leaves it unfiled.
func (s *Service) AddLink(ctx context.Context, params model.NewLinkParams) (model.Link, error) {
	if err := validateNewLink(&params); err != nil {
		return model.Link{}, err
	}

	link := model.NewLink(params, s.now())
	id, err := s.store.Create(ctx, params.UserID, docstore.KindLinks, link.Fields())
	if err != nil {
		return model.Link{}, err
	}
	link.ID = id

	s.log.WithFields(logrus.Fields{"user_id": params.UserID, "link_id": id}).Debug("link added")
	return link, nil
}

// ToggleFavorite writes the negation of current without reading the link first.
func (s *Service) ToggleFavorite(ctx context.Context, linkID string, current bool) error {
	userID, ok := s.session()
	if !ok {
		return nil
	}
	return s.store.Update(ctx, userID, docstore.KindLinks, linkID, map[string]any{
		model.FieldIsFavorite: !current,
	})
}

// DeleteLink removes one link.
func (s *Service) DeleteLink(ctx context.Context, linkID string) error {
	userID, ok := s.session()
	if !ok {
		return nil
	}
	return s.store.Delete(ctx, userID, docstore.KindLinks, linkID)
}

// DeleteFolder removes a folder and every link filed in it in one batch.
// Links are selected from a read taken just before the batch; a link added to
// the folder between that read and the commit survives, unfiled in effect.
func (s *Service) DeleteFolder(ctx context.Context, folderID string) error {
	userID, ok := s.session()
	if !ok {
		return nil
	}

	docs, err := s.store.List(ctx, userID, docstore.KindLinks)
	if err != nil {
		return fmt.Errorf("list links of folder %s: %w", folderID, err)
	}

	var ops []docstore.Op
	for _, doc := range docs {
		if fid, ok := doc.Fields[model.FieldFolderID].(string); ok && fid == folderID {
			ops = append(ops, docstore.DeleteOp(docstore.KindLinks, doc.ID))
		}
	}
	ops = append(ops, docstore.DeleteOp(docstore.KindFolders, folderID))

	if err := s.store.BatchWrite(ctx, userID, ops); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   userID,
		"folder_id": folderID,
		"links":     len(ops) - 1,
	}).Debug("folder deleted")
	return nil
}

// ReorderFolders sets order=i on ids[i] in one batch. Folders not listed keep
// their order. An empty sequence writes nothing.
func (s *Service) ReorderFolders(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	seen := mapset.NewThreadUnsafeSetWithSize[string](len(ids))
	for _, id := range ids {
		if id == "" {
			return invalid(errors.New("folder id must not be empty"))
		}
		if !seen.Add(id) {
			return invalid(fmt.Errorf("folder %s listed more than once", id))
		}
	}

	userID, ok := s.session()
	if !ok {
		return nil
	}

	ops := make([]docstore.Op, len(ids))
	for i, id := range ids {
		ops[i] = docstore.UpdateOp(docstore.KindFolders, id, map[string]any{model.FieldOrder: i})
	}
	return s.store.BatchWrite(ctx, userID, ops)
}

// MoveFolder applies a drag of draggedID onto targetID within ids, the current
// public folder order. Nothing is written when the drag changes nothing.
func (s *Service) MoveFolder(ctx context.Context, ids []string, draggedID, targetID string) error {
	next := projection.MoveFolder(ids, draggedID, targetID)
	if slices.Equal(next, ids) {
		return nil
	}
	return s.ReorderFolders(ctx, next)
}
