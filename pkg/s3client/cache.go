package s3client

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rescp17/s3tui/pkg/credentials"
)

// Factory builds a client for one credential
type Factory func(ctx context.Context, cred credentials.FileCredential) (S3API, error)

type cacheKey struct {
	accessKey string
	region    string
	endpoint  string
	pathStyle bool
}

// ClientCache hands out one client per access key, region and endpoint
type ClientCache struct {
	mu      sync.Mutex
	clients map[cacheKey]S3API
	factory Factory
}

func NewClientCache(factory Factory) *ClientCache {
	if factory == nil {
		factory = NewClient
	}
	return &ClientCache{
		clients: make(map[cacheKey]S3API),
		factory: factory,
	}
}

// Get returns the cached client for cred, creating it on first use.
// Credentials restored from a snapshot must be re-bound before use.
func (c *ClientCache) Get(ctx context.Context, cred credentials.FileCredential) (S3API, error) {
	if !cred.HasSecrets() {
		return nil, fmt.Errorf("%w: %q has no keys loaded", credentials.ErrCredentialNotFound, cred.Name)
	}
	key := cacheKey{
		accessKey: cred.AccessKey,
		region:    cred.DefaultRegion,
		endpoint:  cred.EndpointURL,
		pathStyle: cred.ForcePathStyle,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[key]; ok {
		return client, nil
	}
	client, err := c.factory(ctx, cred)
	if err != nil {
		return nil, err
	}
	c.clients[key] = client
	return client, nil
}

// Len is the number of cached clients
func (c *ClientCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// NewClient builds an S3 client with static keys from cred
func NewClient(ctx context.Context, cred credentials.FileCredential) (S3API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cred.DefaultRegion),
		awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cred.AccessKey, cred.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, &Error{Op: "client initialization", Err: err}
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cred.ForcePathStyle
		if cred.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cred.EndpointURL)
		}
	}), nil
}
