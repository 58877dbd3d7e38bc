package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

var (
	errBoom         = errors.New("boom")
	errTypeNotFound = ports.ErrAssetTypeNotFound
)

type stubAssetStore struct {
	assets    map[string]types.Record
	order     []string
	nextID    int
	insertErr error
	getErr    error
	listErr   error
	replaced  map[string]types.Record
}

func newStubAssetStore() *stubAssetStore {
	return &stubAssetStore{assets: map[string]types.Record{}, replaced: map[string]types.Record{}}
}

func (s *stubAssetStore) put(id string, rec types.Record) {
	if _, ok := s.assets[id]; !ok {
		s.order = append(s.order, id)
	}
	s.assets[id] = rec
}

func (s *stubAssetStore) Get(_ context.Context, id string) (types.Asset, error) {
	if s.getErr != nil {
		return types.Asset{}, s.getErr
	}
	rec, ok := s.assets[id]
	if !ok {
		return types.Asset{}, ports.ErrAssetNotFound
	}
	return types.Asset{ID: id, Data: rec.Clone()}, nil
}

func (s *stubAssetStore) List(_ context.Context, ids []string) ([]types.Asset, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	want := ids
	if len(want) == 0 {
		want = s.order
	}
	var out []types.Asset
	for _, id := range want {
		if rec, ok := s.assets[id]; ok {
			out = append(out, types.Asset{ID: id, Data: rec.Clone()})
		}
	}
	return out, nil
}

func (s *stubAssetStore) Insert(ctx context.Context, rec types.Record) (string, error) {
	ids, err := s.InsertMany(ctx, []types.Record{rec})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (s *stubAssetStore) InsertMany(_ context.Context, recs []types.Record) ([]string, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		s.nextID++
		id := "a" + strconv.Itoa(s.nextID)
		s.put(id, rec.Clone())
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *stubAssetStore) Replace(_ context.Context, id string, rec types.Record) error {
	if _, ok := s.assets[id]; !ok {
		return ports.ErrAssetNotFound
	}
	s.assets[id] = rec.Clone()
	s.replaced[id] = rec.Clone()
	return nil
}

func (s *stubAssetStore) Delete(_ context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := s.assets[id]; ok {
			delete(s.assets, id)
			n++
		}
	}
	return n, nil
}

type stubPreviewStore struct {
	previews  map[string]types.ImportPreview
	saveErr   error
	deleteErr error
	deleted   []string
}

func newStubPreviewStore() *stubPreviewStore {
	return &stubPreviewStore{previews: map[string]types.ImportPreview{}}
}

func (s *stubPreviewStore) Save(_ context.Context, p types.ImportPreview) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.previews[p.ID] = p
	return nil
}

func (s *stubPreviewStore) Load(_ context.Context, id string) (types.ImportPreview, error) {
	p, ok := s.previews[id]
	if !ok {
		return types.ImportPreview{}, ports.ErrPreviewNotFound
	}
	return p, nil
}

func (s *stubPreviewStore) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.previews, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type admitFunc func(AdmissionInput) (bool, error)

func (f admitFunc) Admit(_ context.Context, in AdmissionInput) (bool, error) { return f(in) }
