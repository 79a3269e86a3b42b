package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	noRetryDelay(t)

	calls := 0
	got, err := retry(3, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)

	sentinel := errors.New("down")
	calls = 0
	_, err = retry(2, func() (string, error) {
		calls++
		return "", sentinel
	})
	assert.True(t, errors.Is(err, sentinel))
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://models/tfidf/vectorizer.json")
	require.NoError(t, err)
	assert.Equal(t, "models", bucket)
	assert.Equal(t, "tfidf/vectorizer.json", key)

	for _, bad := range []string{"models/x.json", "s3://models", "s3:///x.json", "s3://models/"} {
		_, _, err := parseS3URL(bad)
		assert.Error(t, err, bad)
	}
}

func TestOpenArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.csv")
	require.NoError(t, os.WriteFile(path, []byte("title\nAnalyst\n"), 0o600))

	rc, err := openArtifact(context.Background(), path, nil)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "title\nAnalyst\n", string(data))

	_, err = openArtifact(context.Background(), "s3://models/matrix.json", nil)
	assert.ErrorContains(t, err, "R2 is not configured")

	_, err = openArtifact(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSessionUpdate(t *testing.T) {
	id := uuid.New()

	u := sessionUpdate(id, statusCompleted, "ranking completed")

	assert.Equal(t, id, u["session_id"])
	assert.Equal(t, statusCompleted, u["status"])
	assert.Equal(t, "ranking completed", u["message"])
	assert.Contains(t, u, "timestamp")
}
