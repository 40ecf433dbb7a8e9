package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

type QuizService interface {
	RequestQuizChallenge(ctx context.Context) (*entity.QuizChallenge, error)
	SeedVocabulary(ctx context.Context, words []*entity.VocabularyWord) error
}

type vocabularyRepo interface {
	Save(ctx context.Context, word *entity.VocabularyWord) error
	GetRandom(ctx context.Context) (*entity.VocabularyWord, error)
	Count(ctx context.Context) (int, error)
}

type quizService struct {
	logger         *slog.Logger
	vocabularyRepo vocabularyRepo
}

func NewQuizService(logger *slog.Logger, vocabularyRepo vocabularyRepo) QuizService {
	return &quizService{
		logger:         logger.With("component", "quiz"),
		vocabularyRepo: vocabularyRepo,
	}
}

// RequestQuizChallenge returns a random word to translate, or nil when the
// vocabulary is empty.
func (that *quizService) RequestQuizChallenge(ctx context.Context) (*entity.QuizChallenge, error) {
	word, err := that.vocabularyRepo.GetRandom(ctx)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil //nolint: nilnil // no vocabulary means no quiz
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get random word: %w", err)
	}

	return entity.NewQuizChallenge(word), nil
}

func (that *quizService) SeedVocabulary(ctx context.Context, words []*entity.VocabularyWord) error {
	log := that.logger.With("method", "SeedVocabulary")

	for _, word := range words {
		if word.Prompt == "" || word.Answer == "" {
			log.Warn("skipping incomplete vocabulary entry", "prompt", word.Prompt)
			continue
		}

		if err := that.vocabularyRepo.Save(ctx, word); err != nil {
			return fmt.Errorf("could not save word %q: %w", word.Prompt, err)
		}
	}

	total, err := that.vocabularyRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("could not count vocabulary: %w", err)
	}

	if total == 0 {
		log.Warn("vocabulary is empty, online turns will not be quizzed")
	}

	log.Info("vocabulary seeded", "words", len(words), "total", total)

	return nil
}
