package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bizscreen/console/domains/assistant/be/service"
	"github.com/bizscreen/console/platform/go/cache"
)

// rejectedMarker replaces a suggestion body once it is rejected.
var rejectedMarker = []byte(`{"rejected":true}`)

// KVSuggestionStore keeps suggestions and generated slides in a cache.KV (Redis or memory).
type KVSuggestionStore struct {
	kv cache.KV
}

func NewKVSuggestionStore(kv cache.KV) *KVSuggestionStore {
	if kv == nil {
		panic("kv is required")
	}
	return &KVSuggestionStore{kv: kv}
}

func suggestionKey(id uuid.UUID) string { return "suggestion:" + id.String() }

func slidesKey(id uuid.UUID, playlist string) string {
	return fmt.Sprintf("slides:%s:%s", id, playlist)
}

func (s *KVSuggestionStore) Save(ctx context.Context, sug service.Suggestion, ttl time.Duration) error {
	raw, err := json.Marshal(sug)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, suggestionKey(sug.ID), raw, ttl)
}

func (s *KVSuggestionStore) Get(ctx context.Context, id uuid.UUID) (service.Suggestion, error) {
	raw, err := s.kv.Get(ctx, suggestionKey(id))
	if errors.Is(err, cache.ErrMiss) {
		return service.Suggestion{}, service.ErrSuggestionNotFound
	}
	if err != nil {
		return service.Suggestion{}, err
	}

	var marker struct {
		Rejected bool `json:"rejected"`
	}
	if err := json.Unmarshal(raw, &marker); err == nil && marker.Rejected {
		return service.Suggestion{}, service.ErrSuggestionRejected
	}
	var sug service.Suggestion
	if err := json.Unmarshal(raw, &sug); err != nil {
		return service.Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}
	return sug, nil
}

// Reject overwrites the suggestion with a tombstone that outlives it for ttl.
func (s *KVSuggestionStore) Reject(ctx context.Context, id uuid.UUID, ttl time.Duration) error {
	return s.kv.Set(ctx, suggestionKey(id), rejectedMarker, ttl)
}

func (s *KVSuggestionStore) SaveSlides(ctx context.Context, id uuid.UUID, playlist string, slides []service.Slide, ttl time.Duration) error {
	raw, err := json.Marshal(slides)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, slidesKey(id, playlist), raw, ttl)
}

func (s *KVSuggestionStore) GetSlides(ctx context.Context, id uuid.UUID, playlist string) ([]service.Slide, bool, error) {
	raw, err := s.kv.Get(ctx, slidesKey(id, playlist))
	if errors.Is(err, cache.ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var slides []service.Slide
	if err := json.Unmarshal(raw, &slides); err != nil {
		return nil, false, fmt.Errorf("decode slides: %w", err)
	}
	return slides, true, nil
}

var _ service.SuggestionStore = (*KVSuggestionStore)(nil)
