package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	cfg "github.com/maheshrc27/postflow-publisher/configs"
)

// R2Scheme prefixes media references stored in the configured R2 bucket.
const R2Scheme = "r2://"

// TempMedia is a downloaded media file. It is removed once the callback
// passed to WithTempFile returns.
type TempMedia struct {
	File *os.File
	Kind types.Type
	Size int64
}

func (m *TempMedia) IsImage() bool {
	return m.Kind.MIME.Type == "image"
}

func (m *TempMedia) IsVideo() bool {
	return m.Kind.MIME.Type == "video"
}

type MediaService interface {
	WithTempFile(ctx context.Context, ref string, fn func(*TempMedia) error) error
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type mediaService struct {
	config  cfg.Config
	client  *http.Client
	once    sync.Once
	objects objectGetter
	initErr error
}

func NewMediaService(c cfg.Config, client *http.Client) MediaService {
	if client == nil {
		client = http.DefaultClient
	}
	return &mediaService{config: c, client: client}
}

func (m *mediaService) r2Client() (objectGetter, error) {
	m.once.Do(func() {
		if m.objects != nil {
			return
		}
		awsCfg, err := config.LoadDefaultConfig(context.Background(),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.config.R2.AccessKey, m.config.R2.SecretKey, "")),
			config.WithRegion("auto"),
		)
		if err != nil {
			m.initErr = err
			return
		}
		m.objects = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.config.R2.AccountID))
		})
	})
	return m.objects, m.initErr
}

// WithTempFile downloads ref into a temporary file, detects its type and
// calls fn. The file is closed and removed on every return path.
func (m *mediaService) WithTempFile(ctx context.Context, ref string, fn func(*TempMedia) error) error {
	body, err := m.open(ctx, ref)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.CreateTemp(m.config.MediaTempDir, "media-*")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	defer func() {
		f.Close()
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temporary media", "path", f.Name(), "error", err)
		}
	}()

	limit := m.config.MaxMediaBytes
	if limit <= 0 {
		limit = cfg.DefaultMaxMediaBytes
	}
	size, err := io.Copy(f, io.LimitReader(body, limit+1))
	if err != nil {
		return fmt.Errorf("error saving media to temporary file: %w", err)
	}
	if size > limit {
		return fmt.Errorf("media larger than %d bytes: %w", limit, ErrUnsupportedMedia)
	}

	head := make([]byte, 261)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return err
	}
	kind, _ := filetype.Match(head[:n])

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	return fn(&TempMedia{File: f, Kind: kind, Size: size})
}

func (m *mediaService) open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if key, ok := strings.CutPrefix(ref, R2Scheme); ok {
		objects, err := m.r2Client()
		if err != nil {
			return nil, fmt.Errorf("error creating R2 client: %w", err)
		}
		out, err := objects.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(m.config.R2.BucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("error downloading %s from R2: %w", key, err)
		}
		return out.Body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid media reference %q: %w", ref, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected response status downloading media: %d", resp.StatusCode)
	}
	return resp.Body, nil
}
