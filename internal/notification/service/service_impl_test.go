package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/influmarkt/influmarkt/internal/clock"
	"github.com/influmarkt/influmarkt/internal/config"
	"github.com/influmarkt/influmarkt/internal/notification/domain"
	notificationrepo "github.com/influmarkt/influmarkt/internal/notification/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*Service, *snowflake.Node, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Notification{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)),
		Policy: config.StaticPolicyHolder(config.DefaultPolicy()),
		Repo:   notificationrepo.Provide(),
	})
	return svc, node, db
}

func TestNotifyAndList(t *testing.T) {
	svc, node, _ := newService(t)
	ctx := context.Background()

	notifier := node.Generate()
	sender := node.Generate()
	order := node.Generate()

	require.NoError(t, svc.Notify(ctx, notifier, sender, order, "order_paid"))
	require.NoError(t, svc.Notify(ctx, notifier, sender, order, "order_accepted"))

	items, err := svc.List(ctx, notifier, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Newest first.
	assert.Equal(t, "order_accepted", items[0].EntityAction)
	assert.Equal(t, "order_paid", items[1].EntityAction)

	others, err := svc.List(ctx, sender, 10)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestInboxCapEvictsOldest(t *testing.T) {
	svc, node, _ := newService(t)
	ctx := context.Background()

	cap := config.DefaultPolicy().NotificationCap
	notifier := node.Generate()
	sender := node.Generate()

	for i := 0; i < cap+5; i++ {
		require.NoError(t, svc.Notify(ctx, notifier, sender, node.Generate(), fmt.Sprintf("action_%d", i)))
	}

	items, err := svc.List(ctx, notifier, 0)
	require.NoError(t, err)
	require.Len(t, items, cap)

	// The oldest five are gone; the newest survives at the top.
	assert.Equal(t, fmt.Sprintf("action_%d", cap+4), items[0].EntityAction)
	assert.Equal(t, "action_5", items[len(items)-1].EntityAction)
}

func TestListClampsLimit(t *testing.T) {
	svc, node, _ := newService(t)
	ctx := context.Background()

	notifier := node.Generate()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, notifier, node.Generate(), node.Generate(), "order_paid"))
	}

	items, err := svc.List(ctx, notifier, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.List(ctx, notifier, -1)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	items, err = svc.List(ctx, notifier, 10000)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}
