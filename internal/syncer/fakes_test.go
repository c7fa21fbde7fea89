package syncer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/metrics"
	"github.com/linkpilot/linkpilot/internal/models"
	"github.com/linkpilot/linkpilot/internal/social"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCollector() *metrics.SyncCollector {
	collector, err := metrics.NewSyncCollector(metrics.NewRegistry())
	if err != nil {
		panic(err)
	}
	return collector
}

// memSessions is an in-memory SyncSessionRepository.
type memSessions struct {
	sessions map[string]*models.SyncSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*models.SyncSession)}
}

func (m *memSessions) Create(_ context.Context, session *models.SyncSession) error {
	for _, existing := range m.sessions {
		if existing.Date == session.Date {
			return fmt.Errorf("session for %s already exists", session.Date)
		}
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memSessions) GetByDate(_ context.Context, date string) (*models.SyncSession, error) {
	for _, session := range m.sessions {
		if session.Date == date {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memSessions) LatestUnfinished(_ context.Context) (*models.SyncSession, error) {
	var latest *models.SyncSession
	for _, session := range m.sessions {
		if !session.Unfinished() {
			continue
		}
		if latest == nil || session.Date > latest.Date {
			latest = session
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *memSessions) Update(_ context.Context, id string, update models.SyncSessionUpdate) error {
	session, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	if update.Status != nil {
		session.Status = *update.Status
	}
	if update.TotalConnections != nil {
		session.TotalConnections = *update.TotalConnections
	}
	if update.ConnectionsSynced != nil {
		session.ConnectionsSynced = *update.ConnectionsSynced
	}
	if update.APICallsUsed != nil {
		session.APICallsUsed = *update.APICallsUsed
	}
	if update.APICallLimit != nil {
		session.APICallLimit = *update.APICallLimit
	}
	if update.LastConnectionID != nil {
		session.LastConnectionID = *update.LastConnectionID
	}
	if update.Error != nil {
		session.Error = *update.Error
	}
	if update.PausedAt != nil {
		session.PausedAt = update.PausedAt
	}
	if update.CompletedAt != nil {
		session.CompletedAt = update.CompletedAt
	}
	return nil
}

func (m *memSessions) List(_ context.Context, limit int) ([]*models.SyncSession, error) {
	var out []*models.SyncSession
	for _, session := range m.sessions {
		copied := *session
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessions) get(id string) *models.SyncSession {
	return m.sessions[id]
}

// memConnections is an in-memory ConnectionRepository.
type memConnections struct {
	connections map[string]*models.Connection
	order       []string
}

func newMemConnections(connections ...*models.Connection) *memConnections {
	m := &memConnections{connections: make(map[string]*models.Connection)}
	for _, conn := range connections {
		m.connections[conn.ID] = conn
		m.order = append(m.order, conn.ID)
	}
	return m
}

func (m *memConnections) Store(_ context.Context, conn *models.Connection) error {
	if _, ok := m.connections[conn.ID]; !ok {
		m.order = append(m.order, conn.ID)
	}
	m.connections[conn.ID] = conn
	return nil
}

func (m *memConnections) GetByID(_ context.Context, id string) (*models.Connection, error) {
	conn, ok := m.connections[id]
	if !ok {
		return nil, nil
	}
	return conn, nil
}

func (m *memConnections) ListAll(_ context.Context) ([]*models.Connection, error) {
	out := make([]*models.Connection, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.connections[id])
	}
	return out, nil
}

func (m *memConnections) SetRelevant(_ context.Context, id string, relevant bool) error {
	conn, ok := m.connections[id]
	if !ok {
		return fmt.Errorf("connection %s not found", id)
	}
	conn.Relevant = relevant
	return nil
}

func (m *memConnections) Count(_ context.Context) (int, error) {
	return len(m.connections), nil
}

// memQueue is an in-memory SyncQueueRepository implementing the documented
// eligibility and ordering rules.
type memQueue struct {
	items  map[string]*models.SyncQueueItem
	nextID int64
}

func newMemQueue() *memQueue {
	return &memQueue{items: make(map[string]*models.SyncQueueItem)}
}

func (m *memQueue) Upsert(_ context.Context, connectionID string, priority int, now time.Time) error {
	if item, ok := m.items[connectionID]; ok {
		if item.Status != models.QueueStatusProcessing && item.Status != models.QueueStatusCompleted {
			item.Priority = priority
			item.Status = models.QueueStatusPending
			item.UpdatedAt = now
		}
		return nil
	}
	m.nextID++
	m.items[connectionID] = &models.SyncQueueItem{
		ID:           m.nextID,
		ConnectionID: connectionID,
		Priority:     priority,
		Status:       models.QueueStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return nil
}

func (m *memQueue) ResetCompleted(_ context.Context, now time.Time) error {
	for _, item := range m.items {
		if item.Status == models.QueueStatusCompleted {
			item.Status = models.QueueStatusPending
			item.UpdatedAt = now
		}
	}
	return nil
}

func (m *memQueue) NextBatch(_ context.Context, n int, now time.Time, maxAttempts int) ([]*models.SyncQueueItem, error) {
	var eligible []*models.SyncQueueItem
	for _, item := range m.items {
		switch item.Status {
		case models.QueueStatusPending:
			eligible = append(eligible, item)
		case models.QueueStatusFailed:
			if item.Attempts < maxAttempts && (item.NextRetryAt == nil || !item.NextRetryAt.After(now)) {
				eligible = append(eligible, item)
			}
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].ID < eligible[j].ID
	})
	if len(eligible) > n {
		eligible = eligible[:n]
	}
	out := make([]*models.SyncQueueItem, 0, len(eligible))
	for _, item := range eligible {
		copied := *item
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memQueue) find(id int64) *models.SyncQueueItem {
	for _, item := range m.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (m *memQueue) MarkProcessing(_ context.Context, id int64, now time.Time) error {
	item := m.find(id)
	if item == nil {
		return fmt.Errorf("queue item %d not found", id)
	}
	item.Status = models.QueueStatusProcessing
	item.LastAttemptAt = &now
	item.UpdatedAt = now
	return nil
}

func (m *memQueue) MarkCompleted(_ context.Context, id int64, now time.Time) error {
	item := m.find(id)
	if item == nil {
		return fmt.Errorf("queue item %d not found", id)
	}
	item.Status = models.QueueStatusCompleted
	item.Error = ""
	item.UpdatedAt = now
	return nil
}

func (m *memQueue) MarkFailed(_ context.Context, id int64, errMsg string, now, nextRetry time.Time) error {
	item := m.find(id)
	if item == nil {
		return fmt.Errorf("queue item %d not found", id)
	}
	item.Status = models.QueueStatusFailed
	item.Attempts++
	item.Error = errMsg
	item.NextRetryAt = &nextRetry
	item.UpdatedAt = now
	return nil
}

func (m *memQueue) MarkPending(_ context.Context, id int64, now time.Time) error {
	item := m.find(id)
	if item == nil {
		return fmt.Errorf("queue item %d not found", id)
	}
	item.Status = models.QueueStatusPending
	item.UpdatedAt = now
	return nil
}

func (m *memQueue) GetByConnection(_ context.Context, connectionID string) (*models.SyncQueueItem, error) {
	item, ok := m.items[connectionID]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *memQueue) Stats(_ context.Context) (*models.SyncQueueStats, error) {
	stats := &models.SyncQueueStats{}
	for _, item := range m.items {
		switch item.Status {
		case models.QueueStatusPending:
			stats.Pending++
		case models.QueueStatusProcessing:
			stats.Processing++
		case models.QueueStatusCompleted:
			stats.Completed++
		case models.QueueStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// memEvents is an in-memory EngagementEventRepository with the idempotent
// append key.
type memEvents struct {
	events []*models.EngagementEvent
}

func newMemEvents() *memEvents {
	return &memEvents{}
}

func (m *memEvents) Append(_ context.Context, event *models.EngagementEvent) error {
	for _, existing := range m.events {
		if existing.ConnectionID == event.ConnectionID &&
			existing.PostID == event.PostID &&
			existing.Type == event.Type &&
			existing.OccurredAt.Equal(event.OccurredAt) {
			return nil
		}
	}
	copied := *event
	m.events = append(m.events, &copied)
	return nil
}

func (m *memEvents) ListByConnection(_ context.Context, connectionID string) ([]*models.EngagementEvent, error) {
	var out []*models.EngagementEvent
	for _, event := range m.events {
		if event.ConnectionID == connectionID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *memEvents) CountByConnection(_ context.Context, connectionID string) (int, error) {
	count := 0
	for _, event := range m.events {
		if event.ConnectionID == connectionID {
			count++
		}
	}
	return count, nil
}

// memSummaries is an in-memory EngagementSummaryRepository.
type memSummaries struct {
	summaries map[string]*models.EngagementSummary
}

func newMemSummaries() *memSummaries {
	return &memSummaries{summaries: make(map[string]*models.EngagementSummary)}
}

func (m *memSummaries) Upsert(_ context.Context, summary *models.EngagementSummary) error {
	copied := *summary
	m.summaries[summary.ConnectionID] = &copied
	return nil
}

func (m *memSummaries) GetByConnection(_ context.Context, connectionID string) (*models.EngagementSummary, error) {
	summary, ok := m.summaries[connectionID]
	if !ok {
		return nil, nil
	}
	copied := *summary
	return &copied, nil
}

func (m *memSummaries) ListAll(_ context.Context) ([]*models.EngagementSummary, error) {
	var out []*models.EngagementSummary
	for _, summary := range m.summaries {
		copied := *summary
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out, nil
}

// memPosts is an in-memory TrackedPostRepository.
type memPosts struct {
	posts map[string]*models.TrackedPost
}

func newMemPosts(posts ...*models.TrackedPost) *memPosts {
	m := &memPosts{posts: make(map[string]*models.TrackedPost)}
	for _, post := range posts {
		m.posts[post.ID] = post
	}
	return m
}

func (m *memPosts) Store(_ context.Context, post *models.TrackedPost) error {
	copied := *post
	m.posts[post.ID] = &copied
	return nil
}

func (m *memPosts) ListTop(_ context.Context, n int) ([]*models.TrackedPost, error) {
	var out []*models.TrackedPost
	for _, post := range m.posts {
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SyncPriority != out[j].SyncPriority {
			return out[i].SyncPriority > out[j].SyncPriority
		}
		return out[i].PostedAt.After(out[j].PostedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *memPosts) TouchSynced(_ context.Context, id string, at time.Time) error {
	post, ok := m.posts[id]
	if !ok {
		return fmt.Errorf("post %s not found", id)
	}
	post.LastSyncedAt = &at
	return nil
}

// memInsights is an in-memory NetworkInsightRepository.
type memInsights struct {
	insights map[string]*models.NetworkInsight
}

func newMemInsights() *memInsights {
	return &memInsights{insights: make(map[string]*models.NetworkInsight)}
}

func insightKey(userID, date string, typ models.InsightType) string {
	return userID + "|" + date + "|" + string(typ)
}

func (m *memInsights) Upsert(_ context.Context, insight *models.NetworkInsight) error {
	copied := *insight
	m.insights[insightKey(insight.UserID, insight.Date, insight.Type)] = &copied
	return nil
}

func (m *memInsights) GetByKey(_ context.Context, userID, date string, typ models.InsightType) (*models.NetworkInsight, error) {
	insight, ok := m.insights[insightKey(userID, date, typ)]
	if !ok {
		return nil, nil
	}
	copied := *insight
	return &copied, nil
}

func (m *memInsights) ListByDate(_ context.Context, userID, date string) ([]*models.NetworkInsight, error) {
	var out []*models.NetworkInsight
	for _, insight := range m.insights {
		if insight.UserID == userID && insight.Date == date {
			copied := *insight
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// fakeClient is a scripted APIClient.
type fakeClient struct {
	posts           []social.Post
	postsErr        error
	engagement      map[string][]social.EngagementActor
	engagementErr   error
	engagementCalls int

	// rateLimitAfter, when positive, rate-limits every engagement call
	// past that many successes.
	rateLimitAfter int
}

func (f *fakeClient) ListRecentPosts(_ context.Context) ([]social.Post, error) {
	if f.postsErr != nil {
		return nil, f.postsErr
	}
	return f.posts, nil
}

func (f *fakeClient) ListEngagementForPost(_ context.Context, postURN string) ([]social.EngagementActor, error) {
	f.engagementCalls++
	if f.engagementErr != nil {
		return nil, f.engagementErr
	}
	if f.rateLimitAfter > 0 && f.engagementCalls > f.rateLimitAfter {
		return nil, social.ErrRateLimited
	}
	return f.engagement[postURN], nil
}
