package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/orchestrator"
	"github.com/jimyag/zcp/pkg/saga"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// UserService 用户服务
type UserService struct {
	gate         *Gate
	users        repository.UserRepository
	zones        repository.ZoneRepository
	vms          repository.VMRepository
	client       orchestrator.Client
	adminSession string
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.Repository, client orchestrator.Client, adminSession string) *UserService {
	users := repository.NewUserRepository(repo.DB())
	return &UserService{
		gate:         NewGate("user", users, client),
		users:        users,
		zones:        repository.NewZoneRepository(repo.DB()),
		vms:          repository.NewVMRepository(repo.DB()),
		client:       client,
		adminSession: adminSession,
	}
}

// Pool 列出所有用户
func (s *UserService) Pool(ctx context.Context, session string) *entity.Result {
	return s.gate.Execute(ctx, "pool", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		users, err := s.users.List(ctx)
		if err != nil {
			return nil, consistencyError("list users", err)
		}
		result := make([]*entity.User, 0, len(users))
		for _, u := range users {
			e, err := s.toEntity(ctx, u)
			if err != nil {
				return nil, err
			}
			result = append(result, e)
		}
		return result, nil
	})
}

// Info 查询用户，普通用户只能查询自己
func (s *UserService) Info(ctx context.Context, session string, req *entity.UserIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "info", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		if err := requireOwner(caller, req.ID, fmt.Sprintf("User[%d]", req.ID)); err != nil {
			return nil, err
		}
		user, err := s.user(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return s.toEntity(ctx, user)
	})
}

// Allocate 在外部编排器和本地同时创建用户
func (s *UserService) Allocate(ctx context.Context, session string, req *entity.AllocateUserRequest) *entity.Result {
	return s.gate.Execute(ctx, "allocate", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		if strings.Contains(req.Name, sessionDelimiter) {
			return nil, apierror.Newf(apierror.ErrInvalidParameter, "user name must not contain %q", sessionDelimiter)
		}
		if _, err := s.users.GetByName(ctx, req.Name); err == nil {
			return nil, apierror.Newf(apierror.ErrConflict, "User[%s] already exists", req.Name)
		} else if !repository.IsNotFound(err) {
			return nil, consistencyError("load user", err)
		}

		oid, err := s.client.AllocateUser(ctx, s.adminSession, req.Name, req.Password)
		if err != nil {
			return nil, externalError(fmt.Sprintf("allocate User[%s]", req.Name), err)
		}

		sg := saga.New(ctx, "allocate user")
		sg.Defer("delete external user", func(ctx context.Context) error {
			return s.client.DeleteUser(ctx, s.adminSession, oid)
		})

		user := &model.User{OID: oid, Name: req.Name, Enabled: true}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, sg.Abort(ctx, createError(fmt.Sprintf("User[%s]", req.Name), err))
		}
		sg.Commit()

		zerolog.Ctx(ctx).Info().
			Str("name", user.Name).
			Int("oid", oid).
			Msg("User created")
		return &entity.IDResponse{ID: user.ID}, nil
	})
}

// Delete 删除用户，用户还有虚拟机时拒绝
func (s *UserService) Delete(ctx context.Context, session string, req *entity.UserIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "delete", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		user, err := s.user(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		vms, err := s.vms.ListByUser(ctx, user.ID)
		if err != nil {
			return nil, consistencyError("list virtual machines", err)
		}
		if len(vms) > 0 {
			return nil, apierror.Newf(apierror.ErrConflict, "User[%s] still owns %d virtual machines", user.Name, len(vms))
		}
		if err := s.client.DeleteUser(ctx, s.adminSession, user.OID); err != nil {
			return nil, externalError(fmt.Sprintf("delete User[%s]", user.Name), err)
		}
		if err := s.users.Delete(ctx, user.ID); err != nil {
			return nil, consistencyError(fmt.Sprintf("delete User[%s]", user.Name), err)
		}
		return nil, nil
	})
}

// Enable 启用用户
func (s *UserService) Enable(ctx context.Context, session string, req *entity.UserIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "enable", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		return nil, s.setEnabled(ctx, req.ID, true)
	})
}

// Disable 禁用用户，被禁用的用户无法通过认证
func (s *UserService) Disable(ctx context.Context, session string, req *entity.UserIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "disable", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		return nil, s.setEnabled(ctx, req.ID, false)
	})
}

// SetQuota 授权用户使用 Zone 并设置虚拟机配额
func (s *UserService) SetQuota(ctx context.Context, session string, req *entity.SetQuotaRequest) *entity.Result {
	return s.gate.Execute(ctx, "set_quota", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		user, err := s.user(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		zone, err := s.zones.GetByID(ctx, req.ZoneID)
		if _, err = lookup(zone, err, "Zone[%d]", req.ZoneID); err != nil {
			return nil, err
		}
		if err := s.users.SetZoneQuota(ctx, user.ID, req.ZoneID, req.Quota); err != nil {
			return nil, consistencyError("set quota", err)
		}
		return nil, nil
	})
}

// RemoveZone 取消用户对 Zone 的授权
func (s *UserService) RemoveZone(ctx context.Context, session string, req *entity.RemoveZoneRequest) *entity.Result {
	return s.gate.Execute(ctx, "remove_zone", session, true, func(ctx context.Context, _ *Caller) (any, error) {
		user, err := s.user(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		uz, err := s.users.Zone(ctx, user.ID, req.ZoneID)
		if _, err = lookup(uz, err, "Zone[%d] of User[%s]", req.ZoneID, user.Name); err != nil {
			return nil, err
		}
		if err := s.users.RemoveZone(ctx, user.ID, req.ZoneID); err != nil {
			return nil, consistencyError("remove zone", err)
		}
		return nil, nil
	})
}

// SetKey 设置用户 SSH 公钥，普通用户只能设置自己的
func (s *UserService) SetKey(ctx context.Context, session string, req *entity.SetKeyRequest) *entity.Result {
	return s.gate.Execute(ctx, "set_key", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		if err := requireOwner(caller, req.ID, fmt.Sprintf("User[%d]", req.ID)); err != nil {
			return nil, err
		}
		key, err := normalizePublicKey(req.PublicKey)
		if err != nil {
			return nil, err
		}
		user, err := s.user(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		user.SSHPublicKey = key
		if err := s.users.Update(ctx, user); err != nil {
			return nil, consistencyError("update user", err)
		}
		return nil, nil
	})
}

func (s *UserService) setEnabled(ctx context.Context, id uint, enabled bool) error {
	user, err := s.user(ctx, id)
	if err != nil {
		return err
	}
	user.Enabled = enabled
	if err := s.users.Update(ctx, user); err != nil {
		return consistencyError("update user", err)
	}
	return nil
}

func (s *UserService) user(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	return lookup(user, err, "User[%d]", id)
}

func (s *UserService) toEntity(ctx context.Context, user *model.User) (*entity.User, error) {
	zones, err := s.users.Zones(ctx, user.ID)
	if err != nil {
		return nil, consistencyError("list zones", err)
	}
	e, err := userModelToEntity(user, zones)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "convert user", err)
	}
	return e, nil
}

// normalizePublicKey 校验 authorized_keys 格式的公钥，返回单行形式
func normalizePublicKey(publicKey string) (string, error) {
	pk, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", apierror.WrapError(apierror.ErrInvalidParameter, "invalid SSH public key", err)
	}
	key := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pk)))
	if comment != "" {
		key += " " + comment
	}
	return key, nil
}
