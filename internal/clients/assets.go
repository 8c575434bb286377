package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"messenger-service/internal/models"
)

// AssetStore resolves uploaded asset ids to attachment metadata.
type AssetStore interface {
	BulkAssets(ctx context.Context, ids []int) ([]models.AssetView, error)
}

// HTTPAssetStore calls the asset service's internal REST API.
type HTTPAssetStore struct {
	baseURL string
	http    *http.Client
}

// NewHTTPAssetStore constructs an HTTPAssetStore.
func NewHTTPAssetStore(baseURL string) *HTTPAssetStore {
	return &HTTPAssetStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// BulkAssets fetches metadata for multiple assets in one call. Unknown ids are
// omitted from the result rather than failing the whole batch.
func (s *HTTPAssetStore) BulkAssets(ctx context.Context, ids []int) ([]models.AssetView, error) {
	if len(ids) == 0 {
		return []models.AssetView{}, nil
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/internal/assets?ids="+strings.Join(parts, ","), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset service status %d", resp.StatusCode)
	}

	var payload struct {
		Assets []models.AssetView `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Assets, nil
}
