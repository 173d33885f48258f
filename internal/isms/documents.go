package isms

import (
	"context"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"nciso/server/internal/db"
)

type ListDocumentsArgs struct {
	TenantArgs
	Limit        int    `json:"limit" validate:"omitempty,min=1,max=500"`
	DocumentType string `json:"document_type"`
	ControlID    string `json:"control_id" validate:"omitempty,uuid"`
}

func (s *Service) ListTechnicalDocuments(ctx context.Context, args ListDocumentsArgs) ([]db.TechnicalDocument, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListTechnicalDocuments(ctx, db.DocumentFilter{
		Limit:        args.Limit,
		DocumentType: args.DocumentType,
		ControlID:    args.ControlID,
	})
}

// ListExternalDocuments lists documents that entered through ingestion.
func (s *Service) ListExternalDocuments(ctx context.Context, args ListDocumentsArgs) ([]db.TechnicalDocument, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	return c.ListTechnicalDocuments(ctx, db.DocumentFilter{
		Limit:        args.Limit,
		Source:       db.SourceExternal,
		DocumentType: args.DocumentType,
		ControlID:    args.ControlID,
	})
}

type CreateDocumentArgs struct {
	TenantArgs
	Title        string         `json:"title" validate:"required,max=500"`
	Description  string         `json:"description"`
	DocumentType string         `json:"document_type"`
	Version      string         `json:"version"`
	FilePath     string         `json:"file_path"`
	FileSize     int64          `json:"file_size" validate:"gte=0"`
	FileType     string         `json:"file_type"`
	ScopeID      *string        `json:"scope_id" validate:"omitempty,uuid"`
	AssetID      *string        `json:"asset_id" validate:"omitempty,uuid"`
	ControlID    *string        `json:"control_id" validate:"omitempty,uuid"`
	Metadata     map[string]any `json:"metadata"`
}

// tenantObject reports whether p names an object under the tenant's storage prefix.
func tenantObject(tenantID, p string) bool {
	if strings.Contains(p, "..") {
		return false
	}
	return strings.HasPrefix(path.Clean(p), tenantID+"/")
}

func (s *Service) CreateTechnicalDocument(ctx context.Context, actor Actor, args CreateDocumentArgs) (*db.TechnicalDocument, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	if args.FilePath != "" && !tenantObject(c.TenantID(), args.FilePath) {
		return nil, invalid("file_path", "file_path deve estar sob o prefixo %s/", c.TenantID())
	}
	d := &db.TechnicalDocument{
		Title:        args.Title,
		Description:  args.Description,
		DocumentType: args.DocumentType,
		Version:      args.Version,
		FilePath:     args.FilePath,
		FileSize:     args.FileSize,
		FileType:     args.FileType,
		ScopeID:      args.ScopeID,
		AssetID:      args.AssetID,
		ControlID:    args.ControlID,
		Source:       db.SourceUpload,
	}
	if args.Metadata != nil {
		d.Metadata = db.NewJSON(args.Metadata)
	}
	if actor.UserID != "" {
		d.CreatedBy = &actor.UserID
	}
	if err := c.CreateTechnicalDocument(ctx, d); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "create_technical_document", "technical_document", d.ID, map[string]any{"title": d.Title})
	return d, nil
}

type IngestDocumentArgs struct {
	TenantArgs
	Title        string         `json:"title" validate:"required,max=500"`
	SourceURL    string         `json:"source_url" validate:"required_without=Content,omitempty,url"`
	Content      string         `json:"content" validate:"required_without=SourceURL"`
	ContentType  string         `json:"content_type"`
	DocumentType string         `json:"document_type"`
	ControlID    *string        `json:"control_id" validate:"omitempty,uuid"`
	Metadata     map[string]any `json:"metadata"`
}

// preferredExt overrides the first registered extension for common types.
var preferredExt = map[string]string{
	"text/plain":       ".txt",
	"text/html":        ".html",
	"application/json": ".json",
	"image/jpeg":       ".jpg",
}

func extensionFor(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := preferredExt[mediaType]; ok {
			return ext
		}
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".txt"
}

// IngestExternalDocument records a document from an external source. Inline
// content is uploaded to object storage when one is configured.
func (s *Service) IngestExternalDocument(ctx context.Context, actor Actor, args IngestDocumentArgs) (*db.TechnicalDocument, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{}
	for k, v := range args.Metadata {
		meta[k] = v
	}
	meta["ingested_at"] = s.now().UTC()

	d := &db.TechnicalDocument{
		Title:        args.Title,
		DocumentType: args.DocumentType,
		ControlID:    args.ControlID,
		Source:       db.SourceExternal,
		SourceURL:    args.SourceURL,
	}
	if actor.UserID != "" {
		d.CreatedBy = &actor.UserID
	}

	if args.Content != "" {
		contentType := args.ContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		d.FileType = contentType
		d.FileSize = int64(len(args.Content))
		meta["uploaded"] = false
		if s.objects != nil {
			objectPath := path.Join(c.TenantID(), "external", uuid.NewString()+extensionFor(contentType))
			if err := s.objects.Upload(ctx, objectPath, contentType, []byte(args.Content)); err != nil {
				return nil, errors.Wrap(err, "upload document")
			}
			d.FilePath = objectPath
			meta["uploaded"] = true
		}
	}
	d.Metadata = db.NewJSON(meta)

	if err := c.CreateTechnicalDocument(ctx, d); err != nil {
		return nil, err
	}
	s.audit(ctx, c, actor, "ingest_external_document", "technical_document", d.ID, map[string]any{
		"title":      d.Title,
		"source_url": d.SourceURL,
		"file_path":  d.FilePath,
		"file_size":  d.FileSize,
	})
	return d, nil
}

// ErrNoObjectStore means no object storage is configured for downloads.
var ErrNoObjectStore = errors.New("armazenamento de objetos não configurado")

type DownloadURLArgs struct {
	TenantArgs
	ID        string `json:"id" validate:"required,uuid"`
	ExpiresIn int    `json:"expires_in" validate:"omitempty,min=60,max=86400"`
}

// DownloadURL is a time-limited link to a stored document body.
type DownloadURL struct {
	DocumentID string    `json:"document_id"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DocumentDownloadURL signs a download link for a document whose body was
// uploaded to object storage. The link lives for expires_in seconds, one hour
// by default.
func (s *Service) DocumentDownloadURL(ctx context.Context, args DownloadURLArgs) (*DownloadURL, error) {
	c, err := s.begin(args)
	if err != nil {
		return nil, err
	}
	d, err := c.GetTechnicalDocument(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if d.FilePath == "" {
		return nil, invalid("id", "documento %s não possui arquivo armazenado", d.ID)
	}
	if !tenantObject(c.TenantID(), d.FilePath) {
		return nil, errors.Wrap(db.ErrNotFound, "stored file")
	}
	if s.objects == nil {
		return nil, ErrNoObjectStore
	}

	ttl := time.Hour
	if args.ExpiresIn > 0 {
		ttl = time.Duration(args.ExpiresIn) * time.Second
	}
	url, err := s.objects.SignedURL(ctx, d.FilePath, ttl)
	if err != nil {
		return nil, errors.Wrap(err, "sign download url")
	}
	return &DownloadURL{DocumentID: d.ID, URL: url, ExpiresAt: s.now().UTC().Add(ttl)}, nil
}
