package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/orchestrator"
	"github.com/rs/zerolog"
)

// sessionDelimiter 会话令牌 username:secret 的分隔符
const sessionDelimiter = ":"

// Caller 通过认证的调用方
type Caller struct {
	User    *model.User
	Admin   bool
	Session string
}

// Owns 调用方是否可以操作 userID 的资源
func (c *Caller) Owns(userID uint) bool {
	return c.Admin || c.User.ID == userID
}

// Operation 在认证通过后执行的操作体
type Operation func(ctx context.Context, caller *Caller) (any, error)

// Gate 每个资源服务一个的操作入口
//
// 同一个 Gate 上的操作完全串行；不同资源的 Gate 互不影响。
type Gate struct {
	resource string
	mu       sync.Mutex
	users    repository.UserRepository
	client   orchestrator.Client
}

// NewGate 创建资源 resource 的 Gate
func NewGate(resource string, users repository.UserRepository, client orchestrator.Client) *Gate {
	return &Gate{
		resource: resource,
		users:    users,
		client:   client,
	}
}

// Execute 认证 session 并执行 body
//
// 任何失败（包括 body 的 panic）都转换为 OK=false 的结果，每个操作只记录一条日志。
func (g *Gate) Execute(ctx context.Context, op, session string, requireAdmin bool, body Operation) (result *entity.Result) {
	start := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	logger := zerolog.Ctx(ctx).With().
		Str("resource", g.resource).
		Str("op", op).
		Logger()
	ctx = logger.WithContext(ctx)

	var (
		username string
		stack    []byte
		warn     bool
	)
	defer func() {
		g.record(logger, op, username, result, warn, stack, time.Since(start))
	}()

	username, err := parseSession(session)
	if err != nil {
		warn = true
		return entity.Failure(err)
	}

	user, err := g.users.GetByName(ctx, username)
	if err != nil {
		warn = true
		if repository.IsNotFound(err) {
			return entity.Failure(apierror.Newf(apierror.ErrAuthFailed, "User[%s] not found", username))
		}
		return entity.Failure(consistencyError("load user", err))
	}
	if !user.Enabled {
		warn = true
		return entity.Failure(apierror.Newf(apierror.ErrAuthFailed, "User[%s] is disabled", username))
	}

	class, message, err := g.client.Authenticate(ctx, session)
	if err != nil {
		return entity.Failure(externalError("authenticate", err))
	}
	switch class {
	case orchestrator.AuthAdmin, orchestrator.AuthUser:
	default:
		logger.Warn().
			Str("user", username).
			Str("remote_message", message).
			Msg("Authentication rejected by orchestrator")
		return entity.Failure(apierror.Newf(apierror.ErrAuthFailed, "User[%s] authentication failed: %s", username, message))
	}
	if requireAdmin && class != orchestrator.AuthAdmin {
		return entity.Failure(apierror.Newf(apierror.ErrPermissionDenied, "User[%s] is not an administrator", username))
	}

	caller := &Caller{
		User:    user,
		Admin:   class == orchestrator.AuthAdmin,
		Session: session,
	}

	payload, err := g.run(ctx, caller, body, &stack)
	if err != nil {
		return entity.Failure(err)
	}
	return entity.Success(payload)
}

// run 执行 body，panic 转换为 internal error
func (g *Gate) run(ctx context.Context, caller *Caller, body Operation, stack *[]byte) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			*stack = debug.Stack()
			err = apierror.Newf(apierror.ErrInternalError, "%v", r)
		}
	}()
	return body(ctx, caller)
}

func (g *Gate) record(logger zerolog.Logger, op, username string, result *entity.Result, warn bool, stack []byte, elapsed time.Duration) {
	outcome := "success"
	if !result.OK {
		outcome = "failure"
	}
	gateOperationsTotal.WithLabelValues(g.resource, op, outcome).Inc()
	gateOperationDuration.WithLabelValues(g.resource, op).Observe(elapsed.Seconds())

	var event *zerolog.Event
	switch {
	case stack != nil:
		event = logger.Error().Bytes("stack", stack)
	case result.OK:
		event = logger.Info()
	case warn:
		event = logger.Warn()
	default:
		event = logger.Error()
	}
	event.
		Str("user", username).
		Bool("ok", result.OK).
		Str("message", result.Message).
		Dur("duration", elapsed).
		Msg("Operation finished")
}

// parseSession 从 username:secret 中取出用户名
func parseSession(session string) (string, error) {
	username, _, found := strings.Cut(session, sessionDelimiter)
	if !found || username == "" {
		return "", apierror.New(apierror.ErrAuthFailed, "malformed session token")
	}
	return username, nil
}

// requireOwner 调用方必须是资源所有者或管理员
func requireOwner(caller *Caller, ownerID uint, what string) error {
	if caller.Owns(ownerID) {
		return nil
	}
	return apierror.New(apierror.ErrPermissionDenied,
		fmt.Sprintf("%s don't have permission to use %s", caller.User.Name, what))
}
