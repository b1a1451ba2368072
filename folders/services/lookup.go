// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"errors"

	uuid "github.com/gofrs/uuid"

	folderErrors "github.com/qolzam/telar-drive/folders/errors"
	folderRepository "github.com/qolzam/telar-drive/folders/repository"
	storageErrors "github.com/qolzam/telar-drive/storage/errors"
	storageServices "github.com/qolzam/telar-drive/storage/services"
)

// Lookup adapts the folder repository to the storage module's
// FolderLookup dependency, translating sentinels across the module
// boundary.
type Lookup struct {
	repo folderRepository.Repository
}

var _ storageServices.FolderLookup = (*Lookup)(nil)

// NewLookup creates a FolderLookup backed by the folder repository.
func NewLookup(repo folderRepository.Repository) *Lookup {
	return &Lookup{repo: repo}
}

func (l *Lookup) Lookup(ctx context.Context, id uuid.UUID) (*storageServices.FolderRef, error) {
	folder, err := l.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, folderErrors.ErrFolderNotFound) {
			return nil, storageErrors.ErrFolderNotFound
		}
		return nil, err
	}
	return &storageServices.FolderRef{
		ID:      folder.ID,
		OwnerID: folder.OwnerID,
		Path:    folder.Path,
	}, nil
}
