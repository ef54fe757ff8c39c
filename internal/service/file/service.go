package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/storage"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/tabular"
)

const attendanceUploadDir = "attendance-uploads"

type FileService interface {
	// ArchiveAttendanceDocument stores an uploaded sheet under its content fingerprint.
	// A document already archived under the same key is not written again.
	ArchiveAttendanceDocument(ctx context.Context, fingerprint string, format tabular.Format, data []byte) (string, error)

	// Generic operations
	OpenFile(ctx context.Context, path string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, path string) error
}

type fileServiceImpl struct {
	storage storage.FileStorage
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
	}
}

// ArchiveAttendanceDocument uploads an attendance sheet
func (s *fileServiceImpl) ArchiveAttendanceDocument(ctx context.Context, fingerprint string, format tabular.Format, data []byte) (string, error) {
	if fingerprint == "" {
		return "", fmt.Errorf("%w: empty fingerprint", storage.ErrInvalidPath)
	}

	// Generate path: attendance-uploads/{fingerprint}.{format}
	key := path.Join(attendanceUploadDir, fmt.Sprintf("%s.%s", fingerprint, format))

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check archived document: %w", err)
	}
	if exists {
		return key, nil
	}

	uploadedPath, err := s.storage.Upload(ctx, bytes.NewReader(data), key, format.ContentType())
	if err != nil {
		return "", fmt.Errorf("failed to archive attendance document: %w", err)
	}

	return uploadedPath, nil
}

// OpenFile opens a stored file for reading
func (s *fileServiceImpl) OpenFile(ctx context.Context, path string) (io.ReadCloser, error) {
	return s.storage.Download(ctx, path)
}

// DeleteFile deletes a file from storage
func (s *fileServiceImpl) DeleteFile(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}
