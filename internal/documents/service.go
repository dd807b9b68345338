package documents

import (
	"context"
	"time"

	"github.com/questai/mongodb-tools-api/internal/logger"
	"github.com/questai/mongodb-tools-api/internal/platform"
)

const disconnectTimeout = 5 * time.Second

// DetailsProvider resolves the MongoDB deployment of a project for a caller.
type DetailsProvider interface {
	GetMongoDBDetails(ctx context.Context, token, project string) (*platform.MongoDBDetails, error)
}

var _ DetailsProvider = (*platform.Client)(nil)

// Service runs document operations. Every call opens a fresh connection to the
// project's deployment and closes it before returning.
type Service struct {
	details DetailsProvider
	dialer  Dialer
	logger  *logger.Logger
}

func NewService(log *logger.Logger, details DetailsProvider, dialer Dialer) *Service {
	if log == nil {
		log = logger.Production()
	}
	return &Service{
		details: details,
		dialer:  dialer,
		logger:  log,
	}
}

func (s *Service) ListDatabases(ctx context.Context, token, project string) ([]string, error) {
	var names []string
	err := s.withBackend(ctx, token, project, func(b Backend) error {
		var err error
		names, err = b.ListDatabases(ctx)
		return err
	})
	return nonNil(names), err
}

func (s *Service) ListCollections(ctx context.Context, token, project, database string) ([]string, error) {
	var names []string
	err := s.withBackend(ctx, token, project, func(b Backend) error {
		var err error
		names, err = b.ListCollections(ctx, database)
		return err
	})
	return nonNil(names), err
}

func (s *Service) Insert(ctx context.Context, token, project, database, collection string, req InsertRequest) (*InsertResponse, error) {
	docs := make([]any, len(req.Documents))
	for i, doc := range req.Documents {
		docs[i] = normalizeDocument(doc)
	}

	var ids []any
	err := s.withBackend(ctx, token, project, func(b Backend) error {
		var err error
		ids, err = b.InsertMany(ctx, database, collection, docs)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &InsertResponse{InsertedIDs: make([]string, len(ids))}
	for i, id := range ids {
		resp.InsertedIDs[i] = IDString(id)
	}
	return resp, nil
}

func (s *Service) Find(ctx context.Context, token, project, database, collection string, req FindRequest) ([]map[string]any, error) {
	query := req.Query()
	query.Filter = NormalizeFilter(normalizeDocument(query.Filter))

	var docs []map[string]any
	err := s.withBackend(ctx, token, project, func(b Backend) error {
		found, err := b.Find(ctx, database, collection, query)
		if err != nil {
			return err
		}
		docs = make([]map[string]any, len(found))
		for i, doc := range found {
			docs[i] = ToJSON(doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Service) Update(ctx context.Context, token, project, database, collection string, req UpdateRequest) (*UpdateResponse, error) {
	filter := NormalizeFilter(normalizeDocument(req.Filter))
	update := normalizeDocument(req.Update)
	if update == nil {
		update = map[string]any{}
	}

	var res UpdateResult
	err := s.withBackend(ctx, token, project, func(b Backend) error {
		var err error
		res, err = b.Update(ctx, database, collection, filter, update, req.Multi, req.Upsert)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &UpdateResponse{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (s *Service) Delete(ctx context.Context, token, project, database, collection string, req DeleteRequest) (*DeleteResponse, error) {
	filter := NormalizeFilter(normalizeDocument(req.Filter))

	var deleted int64
	err := s.withBackend(ctx, token, project, func(b Backend) error {
		var err error
		deleted, err = b.Delete(ctx, database, collection, filter, req.Multi)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &DeleteResponse{DeletedCount: deleted}, nil
}

func (s *Service) withBackend(ctx context.Context, token, project string, fn func(Backend) error) error {
	details, err := s.details.GetMongoDBDetails(ctx, token, project)
	if err != nil {
		return err
	}

	backend, err := s.dialer.Dial(ctx, details.ConnectionString)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			s.logger.Warn("Failed to close MongoDB connection", "project", project, "error", err)
		}
	}()

	return fn(backend)
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
