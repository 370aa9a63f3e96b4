package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"docflow/internal/models"
	"docflow/internal/notifications"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatRepository is a mock of the ChatRepository interface
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatRepository) ListRecent(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

func TestPostMessageValidation(t *testing.T) {
	chatRepo := new(MockChatRepository)
	userRepo := new(MockUserRepository)
	svc := NewChatService(chatRepo, userRepo, nil, nil)
	actor := Actor{UserID: 1, Role: models.RoleEditor}

	_, err := svc.PostMessage(context.Background(), actor, "")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.PostMessage(context.Background(), actor, strings.Repeat("x", 4001))
	assert.True(t, models.IsCode(err, models.CodeValidation))

	chatRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestPostMessagePersistsAndAttachesSender(t *testing.T) {
	chatRepo := new(MockChatRepository)
	userRepo := new(MockUserRepository)
	svc := NewChatService(chatRepo, userRepo, nil, nil)

	sender := &models.User{ID: 4, Name: "Ada", Role: models.RoleEditor}
	userRepo.On("GetByID", mock.Anything, uint(4)).Return(sender, nil)
	chatRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m *models.ChatMessage) bool {
		return m.UserID == 4 && m.Body == "hello team"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.ChatMessage).ID = 7
	}).Return(nil)

	msg, err := svc.PostMessage(context.Background(), Actor{UserID: 4, Role: models.RoleEditor}, "hello team")
	require.NoError(t, err)
	assert.Equal(t, uint(7), msg.ID)
	require.NotNil(t, msg.User)
	assert.Equal(t, "Ada", msg.User.Name)
}

func TestPostMessageBroadcastsOverRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	sub := rdb.Subscribe(context.Background(), notifications.ChatChannel)
	defer func() { _ = sub.Close() }()
	ch := sub.Channel()

	chatRepo := new(MockChatRepository)
	userRepo := new(MockUserRepository)
	svc := NewChatService(chatRepo, userRepo, notifications.NewNotifier(rdb), nil)

	sender := &models.User{ID: 4, Name: "Ada", Role: models.RoleEditor}
	userRepo.On("GetByID", mock.Anything, uint(4)).Return(sender, nil)
	chatRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(nil)

	_, err = svc.PostMessage(context.Background(), Actor{UserID: 4, Role: models.RoleEditor}, "ship it")
	require.NoError(t, err)

	select {
	case raw := <-ch:
		var decoded models.ChatMessage
		require.NoError(t, json.Unmarshal([]byte(raw.Payload), &decoded))
		assert.Equal(t, "ship it", decoded.Body)
		require.NotNil(t, decoded.User)
		assert.Equal(t, "Ada", decoded.User.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestHistoryDelegatesToRepo(t *testing.T) {
	chatRepo := new(MockChatRepository)
	svc := NewChatService(chatRepo, new(MockUserRepository), nil, nil)

	chatRepo.On("ListRecent", mock.Anything, 25).Return([]*models.ChatMessage{
		{ID: 1, Body: "first"},
		{ID: 2, Body: "second"},
	}, nil)

	msgs, err := svc.History(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Body)
}
