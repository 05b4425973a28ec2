package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/filelock"
	"github.com/jimyag/zcp/pkg/idgen"
	"github.com/jimyag/zcp/pkg/orchestrator"
	"github.com/jimyag/zcp/pkg/rwlock"
	"github.com/rs/zerolog"
)

// TransferChunkSize 单次 put/get 的分块大小
const TransferChunkSize = 1 << 20

// TransferService 分块文件传输会话
//
// 所有路径都限制在传输根目录下。同一路径的读写通过 locks 协调，
// 写入时另外持有文件的 flock。
type TransferService struct {
	gate        *Gate
	transfers   repository.TransferRepository
	locks       *rwlock.Set
	idGen       *idgen.Generator
	root        string
	lockTimeout time.Duration
	now         func() time.Time
}

// NewTransferService 创建传输服务，root 不存在时创建
func NewTransferService(repo *repository.Repository, client orchestrator.Client, locks *rwlock.Set, root string) (*TransferService, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve transfer root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create transfer root: %w", err)
	}
	return &TransferService{
		gate:        NewGate("transfer", repository.NewUserRepository(repo.DB()), client),
		transfers:   repository.NewTransferRepository(repo.DB()),
		locks:       locks,
		idGen:       idgen.New(),
		root:        abs,
		lockTimeout: filelock.DefaultTimeout,
		now:         time.Now,
	}, nil
}

// Init 创建传输会话
//
// put 会在根目录下创建空文件；get 要求文件已存在，并以实际大小覆盖声明的大小。
func (s *TransferService) Init(ctx context.Context, session string, req *entity.InitTransferRequest) *entity.Result {
	return s.gate.Execute(ctx, "init", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		token, err := s.idGen.GenerateTransferToken(caller.User.Name, req.Seed)
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, "generate transfer token", err)
		}

		rel := req.Path
		if rel == "" && req.Type == model.TransferPut {
			rel = token
		}
		path, err := s.resolve(rel)
		if err != nil {
			return nil, err
		}

		size := req.Size
		switch req.Type {
		case model.TransferPut:
			if err := createEmpty(path); err != nil {
				if errors.Is(err, os.ErrExist) {
					return nil, apierror.Newf(apierror.ErrConflict, "file %s already exists", rel)
				}
				return nil, apierror.WrapError(apierror.ErrInternalError, "create transfer file", err)
			}
		case model.TransferGet:
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil, apierror.Newf(apierror.ErrNotFound, "file %s not found", rel)
			}
			size = info.Size()
		default:
			return nil, apierror.Newf(apierror.ErrInvalidParameter, "unknown transfer type %q", req.Type)
		}

		transfer := &model.Transfer{
			Name:      token,
			UserID:    caller.User.ID,
			Type:      req.Type,
			Path:      path,
			Size:      size,
			CreatedAt: s.now(),
		}
		if err := s.transfers.Create(ctx, transfer); err != nil {
			if req.Type == model.TransferPut {
				_ = os.Remove(path)
			}
			return nil, createError("Transfer", err)
		}

		zerolog.Ctx(ctx).Debug().
			Str("type", req.Type).
			Str("path", path).
			Int64("size", size).
			Msg("Transfer session initialized")
		return &entity.InitTransferResponse{
			Token:     token,
			Path:      rel,
			Size:      size,
			ChunkSize: TransferChunkSize,
		}, nil
	})
}

// Put 追加一个分块
func (s *TransferService) Put(ctx context.Context, session string, req *entity.PutChunkRequest) *entity.Result {
	return s.gate.Execute(ctx, "put", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		transfer, err := s.activeSession(ctx, caller, req.Token, model.TransferPut)
		if err != nil {
			return nil, err
		}
		if len(req.Data) > TransferChunkSize {
			return nil, apierror.Newf(apierror.ErrProtocol, "chunk of %d bytes exceeds the chunk size %d", len(req.Data), TransferChunkSize)
		}

		unlock := s.locks.Lock(transfer.Path)
		defer unlock()

		err = filelock.With(ctx, transfer.Path, s.lockTimeout, func() error {
			f, err := os.OpenFile(transfer.Path, os.O_WRONLY|os.O_APPEND, 0)
			if err != nil {
				return err
			}
			if _, err := f.Write(req.Data); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		})
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, "write chunk", err)
		}
		return nil, nil
	})
}

// Get 从 offset 开始读取一个分块，到达文件末尾时返回短读
func (s *TransferService) Get(ctx context.Context, session string, req *entity.GetChunkRequest) *entity.Result {
	return s.gate.Execute(ctx, "get", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		transfer, err := s.activeSession(ctx, caller, req.Token, model.TransferGet)
		if err != nil {
			return nil, err
		}
		if req.Offset < 0 {
			return nil, apierror.New(apierror.ErrProtocol, "offset must not be negative")
		}

		unlock := s.locks.RLock(transfer.Path)
		defer unlock()

		f, err := os.Open(transfer.Path)
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrNotFound, "transfer file is gone", err)
		}
		defer f.Close()

		buf := make([]byte, TransferChunkSize)
		n, err := f.ReadAt(buf, req.Offset)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, apierror.WrapError(apierror.ErrInternalError, "read chunk", err)
		}
		return &entity.GetChunkResponse{
			Data: buf[:n],
			EOF:  req.Offset+int64(n) >= transfer.Size,
		}, nil
	})
}

// Finalize 完成会话
//
// 已完成的会话再次完成是空操作。put 会话的文件大小与声明不符时删除文件并返回错误，会话不会被标记完成。
func (s *TransferService) Finalize(ctx context.Context, session string, req *entity.TransferTokenRequest) *entity.Result {
	return s.gate.Execute(ctx, "finalize", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		transfer, err := s.session(ctx, caller, req.Token)
		if err != nil {
			return nil, err
		}
		if transfer.Done {
			return nil, nil
		}

		if transfer.Type == model.TransferPut {
			unlock := s.locks.Lock(transfer.Path)
			defer unlock()

			var size int64 = -1
			if info, err := os.Stat(transfer.Path); err == nil {
				size = info.Size()
			}
			if size != transfer.Size {
				if err := os.Remove(transfer.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
					zerolog.Ctx(ctx).Warn().Err(err).Str("path", transfer.Path).Msg("Failed to remove mismatched transfer file")
				}
				return nil, apierror.Newf(apierror.ErrProtocol,
					"size mismatch: declared %d bytes, received %d bytes", transfer.Size, max(size, 0))
			}
		}

		if _, err := s.transfers.MarkDone(ctx, transfer.Name); err != nil {
			return nil, consistencyError("finalize transfer", err)
		}
		return nil, nil
	})
}

// Cancel 取消会话：put 会话的文件无条件删除，随后删除会话记录
func (s *TransferService) Cancel(ctx context.Context, session string, req *entity.TransferTokenRequest) *entity.Result {
	return s.gate.Execute(ctx, "cancel", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		transfer, err := s.session(ctx, caller, req.Token)
		if err != nil {
			return nil, err
		}
		if transfer.Type == model.TransferPut {
			if err := s.removeFile(transfer.Path); err != nil {
				return nil, apierror.WrapError(apierror.ErrInternalError, "remove transfer file", err)
			}
		}
		if err := s.transfers.Delete(ctx, transfer.Name); err != nil {
			return nil, consistencyError("delete transfer", err)
		}
		return nil, nil
	})
}

// Delete 删除传输根目录下的文件，文件不存在时是空操作
func (s *TransferService) Delete(ctx context.Context, session string, req *entity.DeleteFileRequest) *entity.Result {
	return s.gate.Execute(ctx, "delete", session, false, func(ctx context.Context, _ *Caller) (any, error) {
		path, err := s.resolve(req.Path)
		if err != nil {
			return nil, err
		}
		if err := s.removeFile(path); err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, "remove file", err)
		}
		return nil, nil
	})
}

// session 加载调用方的会话
func (s *TransferService) session(ctx context.Context, caller *Caller, token string) (*model.Transfer, error) {
	transfer, err := s.transfers.GetByName(ctx, token)
	if transfer, err = lookup(transfer, err, "Transfer[%s]", token); err != nil {
		return nil, err
	}
	if err := requireOwner(caller, transfer.UserID, "Transfer["+token+"]"); err != nil {
		return nil, err
	}
	return transfer, nil
}

// activeSession 加载未完成且方向为 direction 的会话
func (s *TransferService) activeSession(ctx context.Context, caller *Caller, token, direction string) (*model.Transfer, error) {
	transfer, err := s.session(ctx, caller, token)
	if err != nil {
		return nil, err
	}
	if transfer.Done {
		return nil, apierror.Newf(apierror.ErrProtocol, "Transfer[%s] is already finalized", token)
	}
	if transfer.Type != direction {
		return nil, apierror.Newf(apierror.ErrProtocol, "Transfer[%s] is a %s session", token, transfer.Type)
	}
	return transfer, nil
}

// resolve 将调用方路径解析为根目录下的绝对路径
func (s *TransferService) resolve(p string) (string, error) {
	if p == "" {
		return "", apierror.New(apierror.ErrInvalidParameter, "path is required")
	}
	full := filepath.Clean(p)
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.root, full)
	}
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apierror.Newf(apierror.ErrPermissionDenied, "path %s is outside the transfer root", p)
	}
	return full, nil
}

func (s *TransferService) removeFile(path string) error {
	unlock := s.locks.Lock(path)
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func createEmpty(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
