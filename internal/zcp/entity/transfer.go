package entity

import "github.com/jimyag/zcp/pkg/apierror"

// InitTransferRequest 初始化传输会话
type InitTransferRequest struct {
	Type string `json:"type"` // put, get
	Seed string `json:"seed"` // 客户端随机种子
	Size int64  `json:"size"` // put 时声明的文件大小
	Path string `json:"path"` // 相对传输根目录的路径，put 时可为空
}

func (r *InitTransferRequest) IsValid() error {
	switch r.Type {
	case "put":
		if r.Size < 0 {
			return apierror.New(apierror.ErrInvalidParameter, "size must not be negative")
		}
	case "get":
		if r.Path == "" {
			return apierror.New(apierror.ErrInvalidParameter, "path is required for get")
		}
	default:
		return apierror.Newf(apierror.ErrInvalidParameter, "unknown transfer type %q", r.Type)
	}
	return nil
}

// InitTransferResponse 传输会话信息
type InitTransferResponse struct {
	Token     string `json:"token"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	ChunkSize int    `json:"chunk_size"`
}

// TransferTokenRequest 按令牌操作会话
type TransferTokenRequest struct {
	Token string `uri:"token" json:"-"`
}

// PutChunkRequest 上传一个分块，Data 在 JSON 中为 base64
type PutChunkRequest struct {
	Token string `uri:"token" json:"-"`
	Data  []byte `json:"data"`
}

// GetChunkRequest 从 Offset 开始读取一个分块
type GetChunkRequest struct {
	Token  string `uri:"token" json:"-"`
	Offset int64  `form:"offset" json:"-"`
}

// GetChunkResponse 读取到的数据，EOF 表示已到文件末尾
type GetChunkResponse struct {
	Data []byte `json:"data"`
	EOF  bool   `json:"eof"`
}

// DeleteFileRequest 删除传输根目录下的文件
type DeleteFileRequest struct {
	Path string `json:"path" form:"path"`
}
