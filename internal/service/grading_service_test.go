package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"tutor-smart-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGradingFixture() (GradingService, *memSubmissionRepo, *fakePublisher, *fakeStore) {
	repo := newMemSubmissionRepo()
	pub := &fakePublisher{}
	store := &fakeStore{objects: map[string]string{}}
	return NewGradingService(repo, pub, store), repo, pub, store
}

func TestSubmitWritingEnqueues(t *testing.T) {
	svc, repo, pub, _ := newGradingFixture()

	sub, err := svc.SubmitWriting(context.Background(), 2, "Discuss cities.", "Cities are busy.")
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionPending, sub.Status)
	assert.Equal(t, model.SubmissionWriting, repo.rows[sub.ID].Kind)

	require.Len(t, pub.published, 1)
	assert.Equal(t, sub.ID, pub.published[0].SubmissionID)
	assert.Equal(t, "writing", pub.published[0].Kind)
	assert.Equal(t, uint(2), pub.published[0].UserID)
}

func TestSubmitRejectsEmpty(t *testing.T) {
	svc, repo, pub, _ := newGradingFixture()
	_, err := svc.SubmitWriting(context.Background(), 2, " ", "text")
	assert.ErrorIs(t, err, ErrEmptySubmission)
	_, err = svc.SubmitSpeaking(context.Background(), 2, "Q", "")
	assert.ErrorIs(t, err, ErrEmptySubmission)
	assert.Empty(t, repo.rows)
	assert.Empty(t, pub.published)
}

func TestSubmitWritingFileStoresObject(t *testing.T) {
	svc, repo, pub, store := newGradingFixture()

	sub, err := svc.SubmitWritingFile(context.Background(), 2, "Discuss cities.", SubmissionFile{
		Name: "Essay.DOCX", Size: 5, ContentType: "application/octet-stream", Body: strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sub.ObjectKey, "writing/2/"))
	assert.True(t, strings.HasSuffix(sub.ObjectKey, ".docx"))
	assert.Equal(t, "hello", store.objects[sub.ObjectKey])
	assert.Empty(t, repo.rows[sub.ID].AnswerText)
	assert.Len(t, pub.published, 1)

	_, err = svc.SubmitWritingFile(context.Background(), 2, "Q", SubmissionFile{Name: "run.exe", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	_, err = svc.SubmitWritingFile(context.Background(), 2, "Q", SubmissionFile{Name: "a.pdf", Size: MaxSubmissionFileSize + 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrSubmissionFileTooBig)
}

func TestSubmitPublishFailureMarksFailed(t *testing.T) {
	svc, repo, pub, _ := newGradingFixture()
	pub.err = errors.New("broker down")

	_, err := svc.SubmitSpeaking(context.Background(), 2, "Describe your hometown.", "I come from Hue.")
	require.Error(t, err)
	require.Len(t, repo.rows, 1)
	assert.Equal(t, model.SubmissionFailed, repo.rows[1].Status)
	assert.Equal(t, "broker down", repo.rows[1].LastError)
}

func TestGetSubmissionOwnership(t *testing.T) {
	svc, _, _, _ := newGradingFixture()
	sub, err := svc.SubmitWriting(context.Background(), 2, "Q", "A")
	require.NoError(t, err)

	got, err := svc.GetSubmission(context.Background(), 2, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	_, err = svc.GetSubmission(context.Background(), 3, sub.ID)
	assert.ErrorIs(t, err, ErrSubmissionForbidden)

	list, err := svc.ListSubmissions(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
