package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storacha/sasurl/pkg/config"
	"github.com/storacha/sasurl/pkg/sas"
	"github.com/storacha/sasurl/pkg/sas/s3sas"
	"github.com/storacha/sasurl/pkg/sas/sharedkey"
	"github.com/storacha/sasurl/pkg/secrets"
	"github.com/storacha/sasurl/pkg/store"
)

type mapSource map[string]string

func (m mapSource) Get(ctx context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", secrets.ErrMissingSecret
	}
	return v, nil
}

func sourceOf(src secrets.Source) SecretSourceFunc {
	return func(ctx context.Context) (secrets.Source, error) {
		return src, nil
	}
}

func noSecrets(t *testing.T) SecretSourceFunc {
	return func(ctx context.Context) (secrets.Source, error) {
		t.Fatal("secret source should not be opened")
		return nil, nil
	}
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Stack: "dev",
		Identity: config.IdentityConfig{
			AccountName:       "a4sa",
			ResourceGroupName: "a4_resourceGroup",
			ContainerName:     "a4container",
			BlobName:          "index.zip",
			EndpointSuffix:    "blob.core.windows.net",
		},
		Window: config.WindowConfig{Start: "2021-01-01", End: "2030-01-01"},
		Issuer: config.IssuerConfig{
			Backend:   config.BackendSharedKey,
			SharedKey: config.SharedKeyConfig{AccountKey: "a2V5"},
		},
		Directories: config.DirectoriesConfig{DataDir: t.TempDir()},
	}
}

func TestResolveSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("literal wins", func(t *testing.T) {
		v, err := resolveSecret(ctx, "literal", "/param", noSecrets(t))
		require.NoError(t, err)
		require.Equal(t, "literal", v)
	})

	t.Run("from parameter", func(t *testing.T) {
		v, err := resolveSecret(ctx, "", "/param", sourceOf(mapSource{"/param": "secret"}))
		require.NoError(t, err)
		require.Equal(t, "secret", v)
	})

	t.Run("missing parameter", func(t *testing.T) {
		_, err := resolveSecret(ctx, "", "/param", sourceOf(mapSource{}))
		require.ErrorIs(t, err, secrets.ErrMissingSecret)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("SASURL_TEST_ACCOUNT_KEY", "a2V5")
		v, err := resolveSecret(ctx, "", "env:SASURL_TEST_ACCOUNT_KEY", noSecrets(t))
		require.NoError(t, err)
		require.Equal(t, "a2V5", v)

		_, err = resolveSecret(ctx, "", "env:SASURL_TEST_UNSET", noSecrets(t))
		require.ErrorIs(t, err, secrets.ErrMissingSecret)
	})

	t.Run("source unavailable", func(t *testing.T) {
		unavailable := errors.New("no credentials")
		_, err := resolveSecret(ctx, "", "/param", func(ctx context.Context) (secrets.Source, error) {
			return nil, unavailable
		})
		require.ErrorIs(t, err, unavailable)
	})
}

func TestNewIssuer(t *testing.T) {
	ctx := context.Background()

	t.Run("sharedkey", func(t *testing.T) {
		issuer, err := NewIssuer(ctx, testConfig(t), noSecrets(t))
		require.NoError(t, err)
		require.IsType(t, &sharedkey.Issuer{}, issuer)
	})

	t.Run("sharedkey from parameter", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Issuer.SharedKey = config.SharedKeyConfig{AccountKeyParam: "/sasurl/account-key"}
		issuer, err := NewIssuer(ctx, cfg, sourceOf(mapSource{"/sasurl/account-key": "a2V5"}))
		require.NoError(t, err)
		require.IsType(t, &sharedkey.Issuer{}, issuer)
	})

	t.Run("s3", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Issuer.Backend = config.BackendS3
		cfg.Issuer.S3 = config.S3Config{
			Endpoint:        "https://localhost:9000",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
		}
		issuer, err := NewIssuer(ctx, cfg, noSecrets(t))
		require.NoError(t, err)
		require.IsType(t, &s3sas.S3ReadPresigner{}, issuer)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Issuer.Backend = "gcs"
		_, err := NewIssuer(ctx, cfg, noSecrets(t))
		require.Error(t, err)
	})
}

func TestNewComposer(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Window = config.WindowConfig{Start: "2024-01-01", End: "2024-01-08"}

	composer, err := NewComposer(ctx, cfg, noSecrets(t))
	require.NoError(t, err)

	window, err := cfg.Window.AccessWindow()
	require.NoError(t, err)
	require.Equal(t, window, composer.Window())

	signed, err := composer.Compose(ctx, "https://a4sa.blob.core.windows.net/a4container/index.zip", cfg.ResourceIdentity())
	require.NoError(t, err)
	require.Contains(t, signed, "https://a4sa.blob.core.windows.net/a4container/index.zip?")
	require.Contains(t, signed, "sp=r")
}

func TestCanonicalPath(t *testing.T) {
	p, err := CanonicalPath("a4sa", "a4container", "index.zip")
	require.NoError(t, err)
	require.Equal(t, "/blob/a4sa/a4container/index.zip", p)

	p, err = CanonicalPath("a4sa", "a4container", "releases/v1/index.zip")
	require.NoError(t, err)
	require.Equal(t, "/blob/a4sa/a4container/releases/v1/index.zip", p)

	_, err = CanonicalPath("a4sa", "a4/container", "index.zip")
	require.ErrorIs(t, err, sas.ErrMalformedIdentity)

	_, err = CanonicalPath("", "a4container", "index.zip")
	require.ErrorIs(t, err, sas.ErrMalformedIdentity)
}

func TestOpenOutputStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	s, closeStore, err := OpenOutputStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "dev", "blobUrl", "https://a4sa.blob.core.windows.net/a4container/index.zip"))
	require.NoError(t, closeStore())

	_, err = os.Stat(filepath.Join(cfg.Directories.DataDir, "outputs"))
	require.NoError(t, err)

	// values survive reopening
	s, closeStore, err = OpenOutputStore(cfg)
	require.NoError(t, err)
	defer closeStore()

	v, err := s.Get(ctx, "dev", "blobUrl")
	require.NoError(t, err)
	require.Equal(t, "https://a4sa.blob.core.windows.net/a4container/index.zip", v)

	_, err = s.Get(ctx, "prod", "blobUrl")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMkdirp(t *testing.T) {
	root := t.TempDir()
	dir, err := mkdirp(root, "a", "b")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "a", "b"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestBaseBlobURL(t *testing.T) {
	cfg := testConfig(t)
	u, err := BaseBlobURL(cfg)
	require.NoError(t, err)
	require.Empty(t, u)

	cfg.Identity.BlobURL = "https://cdn.example.com/index.zip"
	u, err = BaseBlobURL(cfg)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/index.zip", u)

	cfg.Identity.BlobURL = ""
	cfg.Issuer.Backend = config.BackendS3
	cfg.Issuer.S3.Endpoint = "https://localhost:9000"
	u, err = BaseBlobURL(cfg)
	require.NoError(t, err)
	require.Equal(t, "https://localhost:9000/a4container/index.zip", u)
}
