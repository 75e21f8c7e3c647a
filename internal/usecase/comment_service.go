package usecase

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/repository"
)

// CommentService - comments on tasks. Only the task owner may read or write comments,
// and only the author may edit or delete one.
type CommentService struct {
	store  repository.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewCommentService(store repository.Store, logger zerolog.Logger) *CommentService {
	return &CommentService{
		store:  store,
		logger: logger.With().Str("component", "comment_service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *CommentService) CreateComment(ctx context.Context, taskID, userID int, req *entity.CreateCommentRequest) (*entity.Comment, error) {
	content, err := commentContent(req.Content)
	if err != nil {
		return nil, err
	}
	if _, err := ownedTask(ctx, s.store, taskID, userID); err != nil {
		return nil, err
	}

	now := s.now()
	comment, err := s.store.Comments().Create(ctx, &entity.Comment{
		TaskID:    taskID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("comment_id", comment.ID).Int("task_id", taskID).Msg("comment created")
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, taskID, userID int) ([]entity.Comment, error) {
	if _, err := ownedTask(ctx, s.store, taskID, userID); err != nil {
		return nil, err
	}
	return s.store.Comments().ListByTaskId(ctx, taskID)
}

func (s *CommentService) UpdateComment(ctx context.Context, commentID, userID int, req *entity.UpdateCommentRequest) (*entity.Comment, error) {
	content, err := commentContent(req.Content)
	if err != nil {
		return nil, err
	}

	comment, err := s.authoredComment(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}
	comment.Content = content
	comment.UpdatedAt = s.now()

	updated, err := s.store.Comments().Update(ctx, comment)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("comment_id", commentID).Msg("comment updated")
	return updated, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, commentID, userID int) error {
	if _, err := s.authoredComment(ctx, commentID, userID); err != nil {
		return err
	}
	if err := s.store.Comments().SoftDelete(ctx, commentID); err != nil {
		return err
	}
	s.logger.Info().Int("comment_id", commentID).Msg("comment deleted")
	return nil
}

func (s *CommentService) authoredComment(ctx context.Context, commentID, userID int) (*entity.Comment, error) {
	comment, err := s.store.Comments().GetById(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, entity.ErrCommentNotFound
	}
	if comment.UserID != userID {
		return nil, entity.ErrForbidden
	}
	return comment, nil
}

func commentContent(raw string) (string, error) {
	content := entity.SanitizeText(raw)
	if content == "" {
		return "", entity.NewValidationError("content", "comment must not be empty")
	}
	if utf8.RuneCountInString(content) > entity.MaxCommentLength {
		return "", entity.NewValidationError("content", "comment is too long")
	}
	return content, nil
}

// ownedTask loads a live task and checks that userID owns it.
func ownedTask(ctx context.Context, store repository.Store, taskID, userID int) (*entity.Task, error) {
	task, err := store.Tasks().GetByTaskId(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, entity.ErrTaskNotFound
	}
	if task.OwnerID != userID {
		return nil, entity.ErrForbidden
	}
	return task, nil
}
