package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/outlinemgr"
	"github.com/wkalt/outline/service"
	"github.com/wkalt/outline/storage/minioutil"
)

func TestS3Snapshots(t *testing.T) {
	ctx := context.Background()
	srv := minioutil.NewServer(t, "outline")

	conf := service.DefaultConfig()
	conf.Snapshots.S3 = &service.S3Config{
		Endpoint:    srv.Endpoint,
		AccessKeyID: srv.AccessKeyID,
		SecretKey:   srv.SecretKey,
		Bucket:      srv.Bucket,
	}
	provider, err := conf.SnapshotProvider()
	require.NoError(t, err)

	mgr := outlinemgr.NewManager(divisionstore.NewMemStore(), outlinemgr.WithSnapshotProvider(provider))
	r, err := mgr.CreateRoot(ctx, "book", "r")
	require.NoError(t, err)
	_, err = mgr.CreateRoot(ctx, "book", "s")
	require.NoError(t, err)

	info, err := mgr.Snapshot(ctx, "book")
	require.NoError(t, err)
	_, err = mgr.Delete(ctx, r.ID)
	require.NoError(t, err)

	infos, err := mgr.Snapshots(ctx, "book")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, info.Key, infos[0].Key)

	n, err := mgr.Restore(ctx, "book", info.Key)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, mgr.Verify(ctx, "book"))
}
