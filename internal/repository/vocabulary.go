package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

type VocabularyRepository interface {
	Save(ctx context.Context, word *entity.VocabularyWord) error
	GetRandom(ctx context.Context) (*entity.VocabularyWord, error)
	Count(ctx context.Context) (int, error)
}

type vocabularyRepository struct {
	conn *sql.DB
}

func NewVocabularyRepository(conn *sql.DB) VocabularyRepository {
	return &vocabularyRepository{
		conn: conn,
	}
}

// Save inserts the word or replaces the answer of an existing prompt, and
// fills in word.ID.
func (that *vocabularyRepository) Save(ctx context.Context, word *entity.VocabularyWord) error {
	query := `INSERT INTO vocabulary (prompt, answer) VALUES (?, ?)
		ON CONFLICT(prompt) DO UPDATE SET answer = excluded.answer
		RETURNING id`

	if err := that.conn.QueryRowContext(ctx, query, word.Prompt, word.Answer).Scan(&word.ID); err != nil {
		return fmt.Errorf("can't save word: %w", err)
	}

	return nil
}

func (that *vocabularyRepository) GetRandom(ctx context.Context) (*entity.VocabularyWord, error) {
	query := `SELECT id, prompt, answer FROM vocabulary ORDER BY RANDOM() LIMIT 1`

	var word entity.VocabularyWord

	err := that.conn.QueryRowContext(ctx, query).Scan(&word.ID, &word.Prompt, &word.Answer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't get random word: %w", err)
	}

	return &word, nil
}

func (that *vocabularyRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM vocabulary`

	var count int
	if err := that.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("can't count words: %w", err)
	}

	return count, nil
}
