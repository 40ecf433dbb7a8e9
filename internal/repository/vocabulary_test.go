package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/internal/repository/storage"
)

func newVocabularyRepo(t *testing.T) VocabularyRepository {
	t.Helper()

	sqlite, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "vocabulary.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = sqlite.Close()
	})

	require.NoError(t, sqlite.Init(context.Background()))

	return NewVocabularyRepository(sqlite.Connection)
}

func TestVocabularyRepository_GetRandom(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty vocabulary", func(t *testing.T) {
		repo := newVocabularyRepo(t)

		// When: a word is requested from an empty table
		word, err := repo.GetRandom(ctx)

		// Then: ErrNotFound is returned
		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Nil(t, word)
	})

	t.Run("Returns a stored word", func(t *testing.T) {
		repo := newVocabularyRepo(t)

		// Given: one stored word
		saved := &entity.VocabularyWord{Prompt: "gato", Answer: "cat"}
		require.NoError(t, repo.Save(ctx, saved))
		assert.NotZero(t, saved.ID)

		// When: a random word is requested
		word, err := repo.GetRandom(ctx)

		// Then: the stored word comes back
		require.NoError(t, err)
		assert.Equal(t, saved, word)
	})
}

func TestVocabularyRepository_Save(t *testing.T) {
	ctx := context.Background()
	repo := newVocabularyRepo(t)

	// Given: a word saved twice with a different answer
	require.NoError(t, repo.Save(ctx, &entity.VocabularyWord{Prompt: "perro", Answer: "hound"}))

	updated := &entity.VocabularyWord{Prompt: "perro", Answer: "dog"}
	require.NoError(t, repo.Save(ctx, updated))

	// Then: the prompt is stored once with the latest answer
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	word, err := repo.GetRandom(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dog", word.Answer)
	assert.Equal(t, updated.ID, word.ID)
}
