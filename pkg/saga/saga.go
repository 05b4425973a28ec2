// Package saga 提供跨本地存储与外部编排器的多步操作的补偿执行器
//
// 每个步骤成功后压入一个补偿函数，某一步失败时按相反顺序执行已压入的补偿。
//
//	s := saga.New(logger)
//	clusterID, err := allocateCluster()
//	if err != nil {
//	    return err
//	}
//	s.Defer("delete cluster", func(ctx context.Context) error { return deleteCluster(ctx, clusterID) })
//	if err := createRecord(); err != nil {
//	    return s.Abort(ctx, err)
//	}
//	s.Commit()
package saga

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Compensation 补偿函数
type Compensation func(ctx context.Context) error

type step struct {
	name string
	fn   Compensation
}

// Saga 补偿栈
type Saga struct {
	name      string
	logger    *zerolog.Logger
	steps     []step
	committed bool
}

// New 创建补偿栈，name 用于日志
func New(ctx context.Context, name string) *Saga {
	return &Saga{
		name:   name,
		logger: zerolog.Ctx(ctx),
	}
}

// Defer 压入一个补偿函数
func (s *Saga) Defer(name string, fn Compensation) {
	s.steps = append(s.steps, step{name: name, fn: fn})
}

// Len 已压入的补偿数量
func (s *Saga) Len() int {
	return len(s.steps)
}

// Commit 标记成功，之后的 Abort 不再执行补偿
func (s *Saga) Commit() {
	s.committed = true
	s.steps = nil
}

// Abort 按相反顺序执行所有补偿并返回 cause
// 补偿失败只记录日志，不会覆盖原始错误
func (s *Saga) Abort(ctx context.Context, cause error) error {
	if s.committed {
		return cause
	}

	var compErrs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := st.fn(ctx); err != nil {
			s.logger.Warn().
				Err(err).
				Str("saga", s.name).
				Str("step", st.name).
				Msg("Compensation failed")
			compErrs = append(compErrs, err)
			continue
		}
		s.logger.Debug().
			Str("saga", s.name).
			Str("step", st.name).
			Msg("Compensation applied")
	}
	s.steps = nil

	if len(compErrs) > 0 {
		s.logger.Error().
			Err(errors.Join(compErrs...)).
			AnErr("cause", cause).
			Str("saga", s.name).
			Msg("Saga aborted with partial compensation")
	}
	return cause
}

// Accumulator 尽力而为的清理：记录每一步的错误但不停止后续步骤
type Accumulator struct {
	msgs []string
}

// Add 记录一个失败，err 为 nil 时忽略
func (a *Accumulator) Add(err error) {
	if err != nil {
		a.msgs = append(a.msgs, err.Error())
	}
}

// AddMessage 记录一条失败消息
func (a *Accumulator) AddMessage(msg string) {
	a.msgs = append(a.msgs, msg)
}

// Failed 是否有任何一步失败
func (a *Accumulator) Failed() bool {
	return len(a.msgs) > 0
}

// Messages 按记录顺序返回所有失败消息
func (a *Accumulator) Messages() []string {
	return a.msgs
}

// Err 返回以分号连接的错误，没有失败时返回 nil
func (a *Accumulator) Err() error {
	if !a.Failed() {
		return nil
	}
	return &AccumulatedError{Messages: a.msgs}
}

// AccumulatedError 多个清理步骤的失败
type AccumulatedError struct {
	Messages []string
}

func (e *AccumulatedError) Error() string {
	return strings.Join(e.Messages, ";")
}
