package service

import (
	"context"
	"strings"

	"event-booking-engine/internal/clock"
	"event-booking-engine/internal/model"
	"event-booking-engine/internal/repository"
	"event-booking-engine/pkg/logger"

	"go.uber.org/zap"
)

type UserService interface {
	CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
}

type UserServiceImpl struct {
	repo  repository.UserRepository
	clock clock.Clock
	log   *zap.Logger
}

func NewUserService(repo repository.UserRepository, clk clock.Clock) UserService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &UserServiceImpl{repo: repo, clock: clk, log: logger.WithComponent("service")}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	user := model.NewUser(strings.TrimSpace(req.Email), req.FirstName, req.LastName, req.PhoneNumber, req.Role, s.clock.Now())
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", zap.String("user_id", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.repo.List(ctx)
}
