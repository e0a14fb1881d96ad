package service_test

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/service"
	"github.com/wkalt/outline/storage"
)

func TestParseConfig(t *testing.T) {
	cases := []struct {
		assertion string
		input     string
		check     func(t *testing.T, c *service.Config)
		err       bool
	}{
		{
			"empty file keeps defaults",
			"",
			func(t *testing.T, c *service.Config) {
				t.Helper()
				require.Equal(t, service.DefaultConfig(), c)
			},
			false,
		},
		{
			"overrides",
			`
port: 9000
log_level: debug
database:
  driver: postgres
  dsn: postgres://localhost/outline
verify_invariants: true
allowed_origins: [http://example.com]
snapshots:
  s3:
    endpoint: localhost:9000
    bucket: outline
`,
			func(t *testing.T, c *service.Config) {
				t.Helper()
				require.Equal(t, 9000, c.Port)
				require.Equal(t, "debug", c.LogLevel)
				require.Equal(t, "text", c.LogFormat)
				require.Equal(t, "postgres", c.Database.Driver)
				require.True(t, c.VerifyInvariants)
				require.Equal(t, []string{"http://example.com"}, c.AllowedOrigins)
				require.Equal(t, "outline", c.Snapshots.S3.Bucket)
			},
			false,
		},
		{"unknown key", "prot: 9000", nil, true},
		{"malformed", "port: [", nil, true},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			conf, err := service.ParseConfig([]byte(c.input))
			if c.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			c.check(t, conf)
		})
	}
}

func TestSnapshotProvider(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		provider, err := service.DefaultConfig().SnapshotProvider()
		require.NoError(t, err)
		require.Nil(t, provider)
	})
	t.Run("directory", func(t *testing.T) {
		conf := service.DefaultConfig()
		conf.Snapshots.Dir = filepath.Join(t.TempDir(), "snapshots")
		provider, err := conf.SnapshotProvider()
		require.NoError(t, err)
		require.IsType(t, &storage.DirectoryStore{}, provider)
	})
	t.Run("s3", func(t *testing.T) {
		conf := service.DefaultConfig()
		conf.Snapshots.S3 = &service.S3Config{Endpoint: "localhost:9000", Bucket: "outline"}
		provider, err := conf.SnapshotProvider()
		require.NoError(t, err)
		require.NotNil(t, provider)
	})
	t.Run("both", func(t *testing.T) {
		conf := service.DefaultConfig()
		conf.Snapshots.Dir = t.TempDir()
		conf.Snapshots.S3 = &service.S3Config{Endpoint: "localhost:9000", Bucket: "outline"}
		_, err := conf.SnapshotProvider()
		require.Error(t, err)
	})
	t.Run("s3 without bucket", func(t *testing.T) {
		conf := service.DefaultConfig()
		conf.Snapshots.S3 = &service.S3Config{Endpoint: "localhost:9000"}
		_, err := conf.SnapshotProvider()
		require.Error(t, err)
	})
}

func TestStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dsn := filepath.Join(t.TempDir(), "outline.db") + "?_txlock=immediate&_busy_timeout=5000"
	svc := service.NewOutlineService()
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx,
			service.WithPort(0),
			service.WithDatabase("sqlite3", dsn),
			service.WithInvariantChecks(true),
			service.WithSnapshotProvider(storage.NewMemStore()),
		)
	}()

	var addr string
	select {
	case addr = <-svc.Ready():
	case err := <-done:
		require.NoError(t, err)
		t.Fatal("service exited before listening")
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for service")
	}
	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	url := "http://localhost:" + port

	resp, err := http.Post(url+"/books/b/divisions", "application/json",
		bytes.NewBufferString(`{"title":"a","placement":"root"}`))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(url + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}

func TestStartRejectsUnknownDriver(t *testing.T) {
	err := service.NewOutlineService().Start(context.Background(), service.WithDatabase("oracle", "x"))
	require.ErrorContains(t, err, "unsupported database driver")
}
