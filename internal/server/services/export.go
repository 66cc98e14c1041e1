package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/dbx"
	"github.com/dmitrijs2005/securemsg/internal/logging"
	"github.com/dmitrijs2005/securemsg/internal/netx"
	sc "github.com/dmitrijs2005/securemsg/internal/server/config"
	"github.com/dmitrijs2005/securemsg/internal/server/metrics"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/dmitrijs2005/securemsg/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

const (
	archiveContentType = "application/zip"
	presignExpiry      = 15 * time.Minute
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	uploadToPresignedURL = netx.UploadToPresignedURL
)

// ExportService dumps every table for offline inspection. Message content
// stays ciphertext.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	log         logging.Logger
	metrics     *metrics.Registry
	httpClient  *http.Client
	now         func() time.Time
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config,
	log logging.Logger, mr *metrics.Registry) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: m,
		config:      cfg,
		log:         log.With("module", "export"),
		metrics:     mr,
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		now:         time.Now,
	}
}

// ListTables returns the names of all base tables in the public schema.
func (s *ExportService) ListTables(ctx context.Context) ([]string, error) {
	tables, err := s.repomanager.Export(s.db).ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return tables, nil
}

// DumpTable returns every row of name. Only names reported by ListTables are
// accepted.
func (s *ExportService) DumpTable(ctx context.Context, name string) ([]models.Row, error) {
	var rows []models.Row
	err := s.snapshot(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		t, err := s.dump(ctx, tx, name)
		if err != nil {
			return err
		}
		rows = t.Rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// snapshot runs fn inside dbx.WithSnapshot. Errors returned by fn pass
// through as they are; failures to begin or commit the transaction are
// reported as common.ErrStoreUnavailable.
func (s *ExportService) snapshot(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	var inner error
	err := dbx.WithSnapshot(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		inner = fn(ctx, tx)
		return inner
	})
	if err != nil && inner == nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return err
}

func (s *ExportService) dump(ctx context.Context, tx dbx.DBTX, name string) (*models.Table, error) {
	repo := s.repomanager.Export(tx)

	if err := repo.SetStatementTimeout(ctx, s.config.StatementTimeout); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	tables, err := repo.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	if !slices.Contains(tables, name) {
		return nil, common.ErrUnknownTable
	}

	t, err := repo.DumpTable(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return t, nil
}

// WriteArchive writes a zip archive with one <table>.csv per table to w.
// All tables are read from a single consistent snapshot.
func (s *ExportService) WriteArchive(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	modified := s.now().UTC()

	err := s.snapshot(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Export(tx)

		if err := repo.SetStatementTimeout(ctx, s.config.StatementTimeout); err != nil {
			return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}

		tables, err := repo.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}

		for _, name := range tables {
			t, err := repo.DumpTable(ctx, name)
			if err != nil {
				return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
			}
			if err := writeTableCSV(zw, t, modified); err != nil {
				return err
			}
			s.log.Debug(ctx, "table exported", "table", name, "rows", len(t.Rows))
		}
		return nil
	})
	if err != nil {
		s.metrics.Export("archive", err)
		return err
	}

	err = zw.Close()
	s.metrics.Export("archive", err)
	return err
}

func writeTableCSV(zw *zip.Writer, t *models.Table, modified time.Time) error {
	f, err := zw.CreateHeader(&zip.FileHeader{
		Name:     t.Name + ".csv",
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}

	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			record[i] = formatValue(row[c])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatValue renders a column value the way psql's text output does for
// the types the schema uses.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return `\x` + hex.EncodeToString(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// ArchiveKey returns the object key for an archive created at t.
func ArchiveKey(t time.Time) string {
	return fmt.Sprintf("exports/%s-%s.zip", t.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

func (s *ExportService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// Upload builds the archive and stores it in the configured bucket through a
// presigned PUT. It returns the object key and a presigned GET URL.
func (s *ExportService) Upload(ctx context.Context) (string, string, error) {
	key, url, err := s.upload(ctx)
	s.metrics.Export("s3", err)
	return key, url, err
}

func (s *ExportService) upload(ctx context.Context) (string, string, error) {
	var buf bytes.Buffer
	if err := s.WriteArchive(ctx, &buf); err != nil {
		return "", "", err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := ArchiveKey(s.now())
	contentType := archiveContentType

	putReq, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", err
	}

	size := int64(buf.Len())
	if err := uploadToPresignedURL(ctx, s.httpClient, putReq.URL, &buf, size, contentType); err != nil {
		return "", "", err
	}

	getReq, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", err
	}

	s.log.Info(ctx, "export uploaded", "key", key, "bytes", size)
	return key, getReq.URL, nil
}
