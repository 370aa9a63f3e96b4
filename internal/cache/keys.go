package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	RequestKeyPrefix   = "request:%d"
	RequestsListKey    = "requests:list"
	MetricsSummaryKey  = "metrics:summary"
	KnowledgeListKey   = "kb:list"
	DocumentKeyPrefix  = "document:%d"
	ChatHistoryKey     = "chat:history"
)

const (
	UserTTL     = 5 * time.Minute
	RequestTTL  = 2 * time.Minute
	ListTTL     = 30 * time.Second
	MetricsTTL  = time.Minute
	DocumentTTL = 10 * time.Minute
	ChatTTL     = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func RequestKey(requestID uint) string {
	return fmt.Sprintf(RequestKeyPrefix, requestID)
}

func DocumentKey(documentID uint) string {
	return fmt.Sprintf(DocumentKeyPrefix, documentID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateRequest drops the single-request entry plus the aggregates
// derived from it.
func InvalidateRequest(ctx context.Context, requestID uint) {
	Invalidate(ctx, RequestKey(requestID))
	Invalidate(ctx, RequestsListKey)
	Invalidate(ctx, MetricsSummaryKey)
}

func InvalidateDocument(ctx context.Context, documentID uint) {
	Invalidate(ctx, DocumentKey(documentID))
}
