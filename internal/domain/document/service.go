package document

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lazos/clinic/internal/domain/audit"
	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/db"
	"github.com/lazos/clinic/internal/platform/softdelete"
)

// MaxUploadSize caps document uploads at 20 MiB.
const MaxUploadSize = 20 << 20

type Service struct {
	repo   Repository
	blobs  BlobStore
	audit  audit.Recorder
	tx     db.TxRunner
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, blobs BlobStore, recorder audit.Recorder, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		blobs:  blobs,
		audit:  recorder,
		tx:     tx,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// sanitizeFileName strips any path components and control characters
// from a client-supplied name.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}

type UploadInput struct {
	PatientID   uuid.UUID
	FileName    string
	ContentType string
	Body        io.Reader
}

// Upload stores the bytes first, then records the index row and its
// audit entry in one transaction. If the transaction fails the orphaned
// blob is removed.
func (s *Service) Upload(ctx context.Context, actor auth.Actor, in UploadInput) (*Document, error) {
	name := sanitizeFileName(in.FileName)
	if name == "" {
		v := apperror.NewValidation()
		v.Add("file", "a file name is required")
		return nil, v.Err()
	}

	d := &Document{
		ID:          uuid.New(),
		PatientID:   in.PatientID,
		UploadedBy:  actor.ID,
		FileName:    name,
		ContentType: in.ContentType,
		Fields:      softdelete.Active(),
		CreatedAt:   s.now(),
	}
	d.StoragePath = path.Join(d.PatientID.String(), d.ID.String()+"_"+name)

	size, err := s.blobs.Save(ctx, d.StoragePath, io.LimitReader(in.Body, MaxUploadSize))
	if err != nil {
		return nil, err
	}
	d.Size = size

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, d); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionCreate, "document", d.ID.String(), map[string]interface{}{
			"patient_id": d.PatientID.String(),
			"file_name":  d.FileName,
		})
	})
	if err != nil {
		if rmErr := s.blobs.Remove(ctx, d.StoragePath); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("path", d.StoragePath).Msg("orphaned blob left behind")
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

// Open returns the document row and a reader over its bytes. Deleted
// documents are not served.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !d.IsActive {
		return nil, nil, apperror.NotFound("document")
	}
	rc, err := s.blobs.Open(ctx, d.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return d, rc, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Document, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Delete soft-deletes the index row. The blob stays on disk so the
// audit trail can be reconstructed.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.tx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := d.Mark(actor.ID, s.now()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		return s.audit.Record(ctx, &actor, audit.ActionDelete, "document", d.ID.String(), nil)
	})
}
