// Package exporters turns content records into provider documents.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/eztutor/drive-export/internal/clock"
	"github.com/eztutor/drive-export/internal/entities"
	"github.com/eztutor/drive-export/internal/metrics"
	"github.com/eztutor/drive-export/internal/storage"
)

// DefaultRootFolder is the top-level folder every export lands under.
const DefaultRootFolder = "EZTutor"

const defaultFolderName = "General"

// Pipeline exports one content record per call. It writes nothing locally
// apart from folder-id cache hints; recording the export is the caller's job.
type Pipeline struct {
	client     storage.Client
	cache      FolderCache
	rootFolder string
	group      singleflight.Group
	clock      clock.Clock
	metrics    metrics.Sink
	logger     *zap.Logger
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

func WithFolderCache(c FolderCache) PipelineOption {
	return func(p *Pipeline) {
		p.cache = c
	}
}

func WithRootFolder(name string) PipelineOption {
	return func(p *Pipeline) {
		if name != "" {
			p.rootFolder = name
		}
	}
}

func WithClock(c clock.Clock) PipelineOption {
	return func(p *Pipeline) {
		p.clock = c
	}
}

func WithMetrics(s metrics.Sink) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = s
	}
}

func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}

func NewPipeline(client storage.Client, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:     client,
		cache:      NopFolderCache{},
		rootFolder: DefaultRootFolder,
		clock:      clock.Real{},
		metrics:    metrics.Nop{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FolderPath returns the four folder names for content:
// root / type bucket / subject / topic.
func (p *Pipeline) FolderPath(content *entities.ExportContent) []string {
	topic := strings.TrimSpace(content.Topic)
	subject := strings.TrimSpace(content.Subject)
	if subject == "" {
		subject = topic
	}
	if subject == "" {
		subject = defaultFolderName
	}
	if topic == "" {
		topic = defaultFolderName
	}
	return []string{p.rootFolder, content.Type.FolderName(), subject, topic}
}

// Export creates the document for content in the user's storage and
// best-effort uploads a DOCX copy next to it. A failed DOCX step is not an
// error: the native document reference is returned instead.
func (p *Pipeline) Export(ctx context.Context, userID uint, accessToken string, content *entities.ExportContent) (*entities.ExportResult, error) {
	start := p.clock.Now()
	defer func() {
		p.metrics.Observe(metrics.PipelineDuration, p.clock.Now().Sub(start).Seconds())
	}()

	path := p.FolderPath(content)
	title := DocumentTitle(content)
	body := GenerateHTML(content)

	folderID, doc, err := p.createDocument(ctx, userID, accessToken, path, title, body)
	if errors.Is(err, storage.ErrNotFound) {
		// A cached folder was deleted upstream; resolve again without hints.
		p.logger.Info("cached folder missing, re-resolving path", zap.Uint("user_id", userID), zap.Strings("path", path))
		p.evict(ctx, folderKeys(userID, path))
		folderID, doc, err = p.createDocument(ctx, userID, accessToken, path, title, body)
	}
	if err != nil {
		return nil, err
	}

	result := &entities.ExportResult{
		FileID:     doc.ID,
		FileURL:    doc.WebViewLink,
		Name:       doc.Name,
		FolderPath: strings.Join(path, "/"),
	}
	if result.Name == "" {
		result.Name = title
	}

	docx, err := p.uploadDocx(ctx, accessToken, doc.ID, title, folderID)
	if err != nil {
		p.metrics.Inc(metrics.ExportDocxFallback)
		p.logger.Warn("docx conversion failed, returning native document",
			zap.Uint("user_id", userID),
			zap.String("file_id", doc.ID),
			zap.Error(err),
		)
		return result, nil
	}

	result.DocxID = docx.ID
	result.DocxURL = docx.WebViewLink
	return result, nil
}

// createDocument resolves path and creates the document in its leaf folder.
func (p *Pipeline) createDocument(ctx context.Context, userID uint, accessToken string, path []string, title, body string) (string, *storage.FileInfo, error) {
	folderID, err := p.resolvePath(ctx, userID, accessToken, path)
	if err != nil {
		return "", nil, err
	}
	doc, err := p.client.CreateDocument(ctx, accessToken, title, folderID, body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create document: %w", err)
	}
	return folderID, doc, nil
}

func (p *Pipeline) uploadDocx(ctx context.Context, accessToken, fileID, title, folderID string) (*storage.FileInfo, error) {
	data, err := p.client.ExportFile(ctx, accessToken, fileID, storage.MimeTypeDocx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	info, err := p.client.UploadFile(ctx, accessToken, docxFilename(title), folderID, storage.MimeTypeDocx, data)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	return info, nil
}

// resolvePath walks path from the root, looking up or creating each folder,
// and returns the leaf folder id.
func (p *Pipeline) resolvePath(ctx context.Context, userID uint, accessToken string, path []string) (string, error) {
	parentID := ""
	for i, name := range path {
		id, err := p.ensureFolder(ctx, accessToken, folderKey(userID, path[:i+1]), name, parentID)
		if err != nil {
			return "", fmt.Errorf("failed to ensure folder %q: %w", strings.Join(path[:i+1], "/"), err)
		}
		parentID = id
	}
	return parentID, nil
}

// folderKeys returns the cache key of every level of path.
func folderKeys(userID uint, path []string) []string {
	keys := make([]string, 0, len(path))
	for i := range path {
		keys = append(keys, folderKey(userID, path[:i+1]))
	}
	return keys
}

// ensureFolder is lookup-or-create for a single level. Concurrent calls
// for the same key in this process share one round trip; across processes
// a duplicate folder can still appear and is tolerated.
func (p *Pipeline) ensureFolder(ctx context.Context, accessToken, key, name, parentID string) (string, error) {
	if id, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Warn("folder cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		p.metrics.Inc(metrics.FolderCacheHit)
		return id, nil
	}
	p.metrics.Inc(metrics.FolderCacheMiss)

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		id, found, err := p.client.FindFolder(ctx, accessToken, name, parentID)
		if err != nil {
			return "", err
		}
		if !found {
			id, err = p.client.CreateFolder(ctx, accessToken, name, parentID)
			if err != nil {
				return "", err
			}
		}
		if err := p.cache.Set(ctx, key, id); err != nil {
			p.logger.Warn("folder cache write failed", zap.String("key", key), zap.Error(err))
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *Pipeline) evict(ctx context.Context, keys []string) {
	if err := p.cache.Delete(ctx, keys...); err != nil {
		p.logger.Warn("folder cache eviction failed", zap.Error(err))
	}
}

func folderKey(userID uint, path []string) string {
	return fmt.Sprintf("%d:%s", userID, strings.Join(path, "/"))
}
