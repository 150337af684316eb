package protected

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/hashicorp/vault-client-go/schema"

	"bookmarker/internal/config"
	"bookmarker/internal/lib/extensions"
	"bookmarker/internal/storage"
)

// Keys looked up in the kv secret
const (
	KeySessionSecret = "session_secret"
	KeyMailPassword  = "mail_password"
	KeyS3SecretKey   = "s3_secret_key"
)

// Vault is a client instance to Hashicorp Vault secure storage for storing secrets
type Vault struct {
	Client *vault.Client
	mount  string
	path   string
	log    *slog.Logger
}

// NewVaultClient creates new instance of Vault client and authenticates it,
// either with a static token or through AppRole login
func NewVaultClient(ctx context.Context, log *slog.Logger, cfg *config.VaultConfig) (*Vault, error) {
	const op = "protected.NewVaultClient"

	client, err := vault.New(
		vault.WithAddress(cfg.Address),
		vault.WithRequestTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: error while creating new vault client instance: %w", op, err)
	}

	v := &Vault{
		Client: client,
		mount:  cfg.Mount,
		path:   cfg.Path,
		log:    log.With(slog.String("op", op), slog.String("address", cfg.Address)),
	}

	if cfg.Token != "" {
		if err := client.SetToken(cfg.Token); err != nil {
			return nil, fmt.Errorf("%s: error while setting token: %w", op, err)
		}
		return v, nil
	}

	roleID := cfg.RoleID
	if roleID == "" {
		roleID = extensions.GetTextFromFile(cfg.RoleIDFile)
	}
	secretID := cfg.SecretID
	if secretID == "" {
		secretID = extensions.GetTextFromFile(cfg.SecretIDFile)
	}
	if err := v.AuthUser(ctx, roleID, secretID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// AuthUser authenticated service-user as Vault client
func (v *Vault) AuthUser(ctx context.Context, roleID string, secretID string) error {
	resp, err := v.Client.Auth.AppRoleLogin(ctx, schema.AppRoleLoginRequest{
		RoleId:   roleID,
		SecretId: secretID,
	})
	if err != nil {
		return fmt.Errorf("approle login: %w", err)
	}
	if resp.Auth == nil {
		return fmt.Errorf("approle login: empty auth block")
	}
	if err := v.Client.SetToken(resp.Auth.ClientToken); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	v.log.Debug("vault approle login succeeded")
	return nil
}

// Secrets reads the kv v2 secret at the configured mount and path
func (v *Vault) Secrets(ctx context.Context) (map[string]string, error) {
	const op = "protected.Secrets"

	resp, err := v.Client.Secrets.KvV2Read(ctx, v.path, vault.WithMountPath(v.mount))
	if err != nil {
		if vault.IsErrorStatus(err, 404) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrSecretNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	secrets := make(map[string]string, len(resp.Data.Data))
	for k, val := range resp.Data.Data {
		if s, ok := val.(string); ok {
			secrets[k] = s
		}
	}
	return secrets, nil
}

// Apply overrides config secrets with the values stored in Vault
func (v *Vault) Apply(ctx context.Context, cfg *config.Config) error {
	secrets, err := v.Secrets(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for key, dst := range map[string]*string{
		KeySessionSecret: &cfg.Session.Secret,
		KeyMailPassword:  &cfg.Mail.Password,
		KeyS3SecretKey:   &cfg.S3.SecretKey,
	} {
		if val, ok := secrets[key]; ok && val != "" {
			*dst = val
			applied++
		}
	}
	v.log.Info("secrets loaded from vault", slog.Int("count", applied))
	return nil
}
