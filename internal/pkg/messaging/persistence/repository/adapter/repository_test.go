package adapter

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daoob/internal/infrastructure/database"
	messaging "daoob/internal/pkg/messaging/application/domain"
	repository "daoob/internal/pkg/messaging/persistence/repository/port"
	userAdapter "daoob/internal/repository/adapter"
	userPort "daoob/internal/repository/port"
)

// exerciseMessageRepository runs the behaviour every MessageRepository must share.
func exerciseMessageRepository(t *testing.T, repo repository.MessageRepository, users userPort.UserRepository) {
	ctx := context.Background()
	suffix := time.Now().UnixNano()
	ids := make([]int64, 3)
	for i := range ids {
		id, err := users.Create(ctx, userPort.User{Username: fmt.Sprintf("user-%d-%d", i, suffix)})
		require.NoError(t, err)
		ids[i] = id
	}
	a, b, c := ids[0], ids[1], ids[2]
	base := time.Now().UTC().Truncate(time.Microsecond)

	save := func(from, to int64, content string, offset time.Duration) messaging.Message {
		m, err := repo.SaveMessage(ctx, messaging.Message{SenderID: from, ReceiverID: to, Content: content, CreatedAt: base.Add(offset)})
		require.NoError(t, err)
		require.NotZero(t, m.ID)
		return m
	}

	first := save(a, b, "Hi", 0)
	save(b, a, "Hello", time.Second)
	save(c, a, "Your quotation", 2*time.Second)
	save(b, c, "unrelated", 3*time.Second)

	t.Run("thread is symmetric and ascending", func(t *testing.T) {
		ab, err := repo.GetThread(ctx, a, b)
		require.NoError(t, err)
		ba, err := repo.GetThread(ctx, b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
		require.Len(t, ab, 2)
		assert.Equal(t, first, ab[0])
		assert.Equal(t, "Hello", ab[1].Content)
	})

	t.Run("list for user includes sent and received", func(t *testing.T) {
		msgs, err := repo.ListMessagesForUser(ctx, a)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		for i := 1; i < len(msgs); i++ {
			assert.False(t, msgs[i].Before(msgs[i-1]))
		}
	})

	t.Run("read markers only move forward", func(t *testing.T) {
		markers, err := repo.ReadMarkers(ctx, a)
		require.NoError(t, err)
		assert.Empty(t, markers)

		later := base.Add(time.Minute)
		require.NoError(t, repo.MarkRead(ctx, a, b, later))
		require.NoError(t, repo.MarkRead(ctx, a, b, base))

		markers, err = repo.ReadMarkers(ctx, a)
		require.NoError(t, err)
		require.Contains(t, markers, b)
		assert.True(t, markers[b].Equal(later), "got %v", markers[b])
	})

	t.Run("concurrent appends", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.SaveMessage(ctx, messaging.Message{SenderID: c, ReceiverID: b, Content: fmt.Sprintf("burst %d", i), CreatedAt: base.Add(time.Hour)})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()
		thread, err := repo.GetThread(ctx, b, c)
		require.NoError(t, err)
		assert.Len(t, thread, 11)
	})
}

func TestSQLiteMessageRepository(t *testing.T) {
	db, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	exerciseMessageRepository(t, NewSQLiteMessageRepository(db), userAdapter.NewSQLiteUserRepository(db))
}

func TestSQLiteMessageRepositoryRejectsUnknownUsers(t *testing.T) {
	db, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = NewSQLiteMessageRepository(db).SaveMessage(context.Background(), messaging.Message{SenderID: 1, ReceiverID: 2, Content: "x", CreatedAt: time.Now()})
	assert.Error(t, err, "foreign keys must hold")
}

func TestPgMessageRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}
	ctx := context.Background()
	pool, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.MigratePostgres(ctx, pool))

	exerciseMessageRepository(t, NewPgMessageRepository(pool), userAdapter.NewPgUserRepository(pool))
}
