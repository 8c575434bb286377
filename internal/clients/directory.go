package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrUserNotFound = errors.New("user not found")

// User is the directory's view of a platform user.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Directory resolves usernames and user ids against the user service.
type Directory interface {
	ResolveUsername(ctx context.Context, username string) (User, error)
	GetUser(ctx context.Context, userID int) (User, error)
	BulkUsers(ctx context.Context, ids []int) ([]User, error)
}

// HTTPDirectory calls the user service's internal REST API, caching username
// resolutions in Redis when a client is configured.
type HTTPDirectory struct {
	baseURL  string
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewHTTPDirectory constructs an HTTPDirectory. cache may be nil.
func NewHTTPDirectory(baseURL string, cache *redis.Client) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 5 * time.Second},
		cache:    cache,
		cacheTTL: 5 * time.Minute,
	}
}

// ResolveUsername maps a username to a user.
func (d *HTTPDirectory) ResolveUsername(ctx context.Context, username string) (User, error) {
	cacheKey := "directory:username:" + username
	if d.cache != nil {
		if data, err := d.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var user User
			if err := json.Unmarshal(data, &user); err == nil {
				return user, nil
			}
		}
	}

	var user User
	if err := d.getJSON(ctx, "/internal/users/by-username/"+url.PathEscape(username), &user); err != nil {
		return User{}, err
	}

	if d.cache != nil {
		if data, err := json.Marshal(user); err == nil {
			if err := d.cache.Set(ctx, cacheKey, data, d.cacheTTL).Err(); err != nil {
				log.Printf("directory cache set failed: %v", err)
			}
		}
	}
	return user, nil
}

// GetUser fetches a user by id.
func (d *HTTPDirectory) GetUser(ctx context.Context, userID int) (User, error) {
	var user User
	err := d.getJSON(ctx, "/internal/users/"+strconv.Itoa(userID), &user)
	return user, err
}

// BulkUsers fetches multiple users in one call.
func (d *HTTPDirectory) BulkUsers(ctx context.Context, ids []int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}

	var resp struct {
		Users []User `json:"users"`
	}
	if err := d.getJSON(ctx, "/internal/users?ids="+strings.Join(parts, ","), &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (d *HTTPDirectory) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("user service request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("user service status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
