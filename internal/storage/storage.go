package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoredDocument identifies an uploaded document in the backing store
type StoredDocument struct {
	URL      string
	PublicID string
}

// DocumentStore persists uploaded invoice documents. It is an external
// collaborator; errors are fatal to the submission.
type DocumentStore interface {
	Store(ctx context.Context, content []byte, filename string) (*StoredDocument, error)
}

// LocalDocumentStore implements DocumentStore on the local filesystem.
// Documents are written under baseDir and addressed by a generated id;
// URL is the path a static file server would expose.
type LocalDocumentStore struct {
	baseDir   string
	publicURL string
	logger    *zap.Logger
}

// NewLocalDocumentStore creates a store rooted at baseDir
func NewLocalDocumentStore(baseDir, publicURL string, logger *zap.Logger) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document dir: %w", err)
	}
	return &LocalDocumentStore{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}, nil
}

// Store writes the document and returns its public reference
func (s *LocalDocumentStore) Store(ctx context.Context, content []byte, filename string) (*StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	publicID := uuid.NewString() + ext

	fullPath := filepath.Join(s.baseDir, publicID)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to store document",
			zap.String("filename", filename),
			zap.Error(err))
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	s.logger.Info("Document stored",
		zap.String("public_id", publicID),
		zap.Int("size", len(content)))

	return &StoredDocument{
		URL:      s.publicURL + "/" + publicID,
		PublicID: publicID,
	}, nil
}

// validatePath rejects traversal outside the base directory
func (s *LocalDocumentStore) validatePath(fullPath string) error {
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base dir: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(os.PathSeparator)) {
		return fmt.Errorf("path %s escapes storage directory", fullPath)
	}
	return nil
}
