// Package vault reads emitter certificates from a HashiCorp Vault KV v2 mount.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"billing/internal/core/ports"
	"billing/internal/pkg/errs"

	"github.com/hashicorp/vault/api"
)

const (
	defaultTimeout = 10 * time.Second
	mountPath      = "secret"
)

// ErrSecretsUnavailable is returned when Vault cannot be reached or answers
// with an error other than "not found".
var ErrSecretsUnavailable = errors.New("secrets store unavailable")

type Client struct {
	kv *api.KVv2
}

var _ ports.SecretsClient = (*Client)(nil)

// NewClient builds a client for address. The remaining settings, such as
// VAULT_MAX_RETRIES or VAULT_CACERT, are read from the environment by the
// Vault SDK. An empty token keeps VAULT_TOKEN.
func NewClient(address, token string) (*Client, error) {
	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault config: %w", cfg.Error)
	}
	if address != "" {
		cfg.Address = address
	}
	cfg.Timeout = defaultTimeout

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	return &Client{kv: client.KVv2(mountPath)}, nil
}

// GetCredentials reads secret/data/certificate/{userID}.
func (c *Client) GetCredentials(ctx context.Context, userID int64) (ports.Credentials, error) {
	secret, err := c.kv.Get(ctx, fmt.Sprintf("certificate/%d", userID))
	switch {
	case errors.Is(err, api.ErrSecretNotFound):
		return ports.Credentials{}, errs.NewObjectNotFoundErrorWithCause("certificate", userID, err)
	case err != nil:
		return ports.Credentials{}, fmt.Errorf("%w: %w", ErrSecretsUnavailable, err)
	}

	cert, _ := secret.Data["cert"].(string)
	key, _ := secret.Data["key"].(string)
	if cert == "" || key == "" {
		return ports.Credentials{}, errs.NewObjectNotFoundErrorWithCause("certificate", userID,
			errors.New("secret is missing cert or key"))
	}

	return ports.Credentials{Certificate: cert, PrivateKey: key}, nil
}
