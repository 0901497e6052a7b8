package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/pkg/llm"
	"tutor-smart-go/pkg/tasks"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// fakeLLM 按顺序返回 replies，最后一个回复会被重复使用。
type fakeLLM struct {
	replies []string
	err     error
	chunks  []string
	calls   [][]llm.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) StreamChatMessages(_ context.Context, messages []llm.Message, _ *llm.GenerationParams, w llm.MessageWriter) error {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := w.WriteMessage(websocket.TextMessage, []byte(c)); err != nil {
			return err
		}
	}
	return nil
}

type memUserRepo struct {
	users     map[uint]*model.User
	findCalls []uint
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{users: map[uint]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	user.ID = uint(len(r.users) + 1)
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, userID uint) (*model.User, error) {
	r.findCalls = append(r.findCalls, userID)
	u, ok := r.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) FindWithPagination(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	ids := make([]int, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	var out []model.User
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		out = append(out, *r.users[uint(ids[i])])
	}
	return out, int64(len(ids)), nil
}

type memClassRepo struct {
	classes     map[uint]*model.Class
	memberCalls []uint
}

func newMemClassRepo(classes ...*model.Class) *memClassRepo {
	r := &memClassRepo{classes: map[uint]*model.Class{}}
	for _, c := range classes {
		r.classes[c.ID] = c
	}
	return r
}

func (r *memClassRepo) Create(_ context.Context, class *model.Class) error {
	class.ID = uint(len(r.classes) + 1)
	r.classes[class.ID] = class
	return nil
}

func (r *memClassRepo) FindByID(_ context.Context, classID uint) (*model.Class, error) {
	c, ok := r.classes[classID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *memClassRepo) FindByMember(_ context.Context, userID uint) ([]model.Class, error) {
	r.memberCalls = append(r.memberCalls, userID)
	var out []model.Class
	for id := uint(1); id <= uint(len(r.classes)); id++ {
		c, ok := r.classes[id]
		if !ok {
			continue
		}
		if c.TeacherID == userID {
			out = append(out, *c)
			continue
		}
		for _, m := range c.Members {
			if m.ID == userID {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (r *memClassRepo) AddMembers(_ context.Context, classID uint, userIDs []uint) error {
	c := r.classes[classID]
	for _, id := range userIDs {
		c.Members = append(c.Members, model.User{ID: id})
	}
	return nil
}

func (r *memClassRepo) RemoveMember(_ context.Context, classID, userID uint) error {
	c := r.classes[classID]
	kept := c.Members[:0]
	for _, m := range c.Members {
		if m.ID != userID {
			kept = append(kept, m)
		}
	}
	c.Members = kept
	return nil
}

type memConversationRepo struct {
	mu      sync.Mutex
	current map[uint]string
	history map[string][]model.ChatMessage
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{current: map[uint]string{}, history: map[string][]model.ChatMessage{}}
}

func (r *memConversationRepo) GetOrCreateConversationID(_ context.Context, userID uint) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.current[userID]; ok {
		return id, nil
	}
	id := "conv-" + strings.Repeat("x", len(r.current)+1)
	r.current[userID] = id
	return id, nil
}

func (r *memConversationRepo) GetConversationHistory(_ context.Context, conversationID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage(nil), r.history[conversationID]...), nil
}

func (r *memConversationRepo) UpdateConversationHistory(_ context.Context, conversationID string, messages []model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[conversationID] = messages
	return nil
}

func (r *memConversationRepo) ResetConversation(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.current, userID)
	return nil
}

type memSubmissionRepo struct {
	rows map[uint]*model.Submission
}

func newMemSubmissionRepo() *memSubmissionRepo {
	return &memSubmissionRepo{rows: map[uint]*model.Submission{}}
}

func (r *memSubmissionRepo) Create(_ context.Context, s *model.Submission) error {
	s.ID = uint(len(r.rows) + 1)
	r.rows[s.ID] = s
	return nil
}

func (r *memSubmissionRepo) FindByID(_ context.Context, id uint) (*model.Submission, error) {
	s, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *memSubmissionRepo) FindByUserID(_ context.Context, userID uint, limit int) ([]model.Submission, error) {
	var out []model.Submission
	for id := uint(len(r.rows)); id >= 1 && len(out) < limit; id-- {
		if s := r.rows[id]; s != nil && s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSubmissionRepo) UpdateStatus(_ context.Context, id uint, status string) error {
	r.rows[id].Status = status
	return nil
}

func (r *memSubmissionRepo) SaveAnswerText(_ context.Context, id uint, text string) error {
	r.rows[id].AnswerText = text
	return nil
}

func (r *memSubmissionRepo) MarkGraded(_ context.Context, id uint, feedback string) error {
	r.rows[id].Status = model.SubmissionGraded
	r.rows[id].Feedback = feedback
	return nil
}

func (r *memSubmissionRepo) MarkFailed(_ context.Context, id uint, reason string) error {
	r.rows[id].Status = model.SubmissionFailed
	r.rows[id].LastError = reason
	return nil
}

type fakePublisher struct {
	err       error
	published []tasks.GradingTask
}

func (p *fakePublisher) Publish(_ context.Context, task tasks.GradingTask) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, task)
	return nil
}

type fakeStore struct {
	objects map[string]string
}

func (s *fakeStore) PutObject(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = string(b)
	return nil
}

type memTokenRepo struct {
	revoked map[string]time.Duration
}

func (r *memTokenRepo) Revoke(_ context.Context, token string, ttl time.Duration) error {
	r.revoked[token] = ttl
	return nil
}

func (r *memTokenRepo) IsRevoked(_ context.Context, token string) (bool, error) {
	_, ok := r.revoked[token]
	return ok, nil
}

// recordingWriter 记录写入 websocket 的消息。
type recordingWriter struct {
	messages []string
}

func (w *recordingWriter) WriteMessage(_ int, data []byte) error {
	w.messages = append(w.messages, string(data))
	return nil
}
