package base

import (
	"context"

	"github.com/wykstemteam/wykoj"
)

func (s *BaseAPI) Task(ctx context.Context, id int) (*wykoj.Task, error) {
	task, err := s.db.Task(ctx, id)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get task")
	}
	if task == nil {
		return nil, wykoj.ErrNotFound
	}
	return task, nil
}

func (s *BaseAPI) TaskByName(ctx context.Context, taskID string) (*wykoj.Task, error) {
	task, err := s.db.TaskByName(ctx, taskID)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get task")
	}
	if task == nil {
		return nil, wykoj.ErrNotFound
	}
	return task, nil
}

func (s *BaseAPI) Tasks(ctx context.Context) ([]*wykoj.Task, error) {
	tasks, err := s.db.Tasks(ctx)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get tasks")
	}
	return tasks, nil
}

func (s *BaseAPI) CreateTask(ctx context.Context, task *wykoj.Task) error {
	if existing, err := s.db.TaskByName(ctx, task.TaskID); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't check task")
	} else if existing != nil {
		return wykoj.Statusf(400, "Task %q already exists", task.TaskID)
	}
	if err := s.db.CreateTask(ctx, task); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't create task")
	}
	return nil
}

func (s *BaseAPI) UpdateTask(ctx context.Context, id int, upd wykoj.TaskUpdate) error {
	if err := s.db.UpdateTask(ctx, id, upd); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't update task")
	}
	return nil
}

func (s *BaseAPI) User(ctx context.Context, id int) (*wykoj.User, error) {
	user, err := s.db.User(ctx, id)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get user")
	}
	if user == nil {
		return nil, wykoj.ErrNotFound
	}
	return user, nil
}

func (s *BaseAPI) UserByName(ctx context.Context, username string) (*wykoj.User, error) {
	user, err := s.db.UserByName(ctx, username)
	if err != nil {
		return nil, wykoj.WrapError(err, 500, "Couldn't get user")
	}
	if user == nil {
		return nil, wykoj.ErrNotFound
	}
	return user, nil
}

func (s *BaseAPI) CreateUser(ctx context.Context, user *wykoj.User) error {
	if existing, err := s.db.UserByName(ctx, user.Username); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't check username")
	} else if existing != nil {
		return wykoj.Statusf(400, "Username %q is taken", user.Username)
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return wykoj.WrapError(err, 500, "Couldn't create user")
	}
	return nil
}
