package minioutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/util/testutils"
)

/*
minioutil runs an in-process minio server for tests of the S3 snapshot
provider. minio keeps process-global state, so start at most one server per
test binary.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	accessKeyID     = "minioadmin"
	secretAccessKey = "minioadmin"
	startupTimeout  = 10 * time.Second
)

// Server is a running minio server with one bucket created.
type Server struct {
	Endpoint    string
	AccessKeyID string
	SecretKey   string
	Bucket      string
	Client      *mclient.Client
}

// NewServer starts a minio server on a free port, backed by a temporary
// directory, and creates bucket on it.
func NewServer(t *testing.T, bucket string) *Server {
	t.Helper()
	ctx := context.Background()
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	endpoint := fmt.Sprintf("localhost:%d", port)
	dir := t.TempDir()

	madm, err := madmin.New(endpoint, accessKeyID, secretAccessKey, false)
	require.NoError(t, err)
	go minio.Main([]string{"minio", "server", "--quiet", "--address", endpoint, dir})
	waitReady(t, madm)

	mc, err := mclient.New(endpoint, &mclient.Options{
		Creds: credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{}))

	// minio exits the process when stopped, so stop it only after the test
	// binary has had time to finish.
	t.Cleanup(func() {
		go func() {
			time.Sleep(5 * time.Second)
			if err := madm.ServiceStop(context.Background()); err != nil {
				t.Log(err)
			}
		}()
	})
	return &Server{
		Endpoint:    endpoint,
		AccessKeyID: accessKeyID,
		SecretKey:   secretAccessKey,
		Bucket:      bucket,
		Client:      mc,
	}
}

func waitReady(t *testing.T, madm *madmin.AdminClient) {
	t.Helper()
	deadline := time.Now().Add(startupTimeout)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := madm.ServerInfo(ctx)
		cancel()
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("minio did not start within %s: %s", startupTimeout, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
