package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// cacheEntry represents a cached secret payload with expiration
type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// GCPSecretManager reads secrets from Google Cloud Secret Manager. Used to
// source the Shopify access token when it is not supplied directly in the
// environment.
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// AccessSecret retrieves the latest version of a secret's payload. The
// argument may be a bare secret id or a full resource name.
func (sm *GCPSecretManager) AccessSecret(ctx context.Context, secretName string) (string, error) {
	name := sm.resolveName(secretName)

	sm.cacheMu.RLock()
	if entry, ok := sm.cache[name]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.value, nil
	}
	sm.cacheMu.RUnlock()

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name + "/versions/latest",
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", name, err)
	}

	value := strings.TrimSpace(string(result.Payload.Data))

	sm.cacheMu.Lock()
	sm.cache[name] = &cacheEntry{value: value, expiresAt: time.Now().Add(sm.cacheTTL)}
	sm.cacheMu.Unlock()

	return value, nil
}

// InvalidateCache removes a secret from the cache
func (sm *GCPSecretManager) InvalidateCache(secretName string) {
	name := sm.resolveName(secretName)
	sm.cacheMu.Lock()
	delete(sm.cache, name)
	sm.cacheMu.Unlock()
}

// resolveName expands a bare secret id into a full resource name
func (sm *GCPSecretManager) resolveName(secretName string) string {
	if strings.HasPrefix(secretName, "projects/") {
		return secretName
	}
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretName)
}
