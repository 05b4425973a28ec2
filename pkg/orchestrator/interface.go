// Package orchestrator 定义外部虚拟机/集群编排器的 RPC 契约
//
// 控制面只通过这里的接口访问外部编排器。每个远程操作都是同步的、
// 最多执行一次的请求/响应，返回 [ok, payload|message] 的结构。
package orchestrator

import "context"

// AuthClass 外部编排器对会话的认证分类
type AuthClass int

const (
	// AuthAdmin 认证通过且是管理员
	AuthAdmin AuthClass = 0
	// AuthFailed 认证失败
	AuthFailed AuthClass = 1
	// AuthUser 认证通过但不是管理员
	AuthUser AuthClass = 2
)

func (c AuthClass) String() string {
	switch c {
	case AuthAdmin:
		return "authenticated-admin"
	case AuthFailed:
		return "authentication-failed"
	case AuthUser:
		return "authenticated"
	default:
		return "unknown"
	}
}

// 虚拟机动作
const (
	ActionShutdown = "shutdown"
	ActionFinalize = "finalize"
	ActionReboot   = "reboot"
	ActionHold     = "hold"
	ActionRelease  = "release"
	ActionStop     = "stop"
	ActionSuspend  = "suspend"
	ActionResume   = "resume"
	ActionRestart  = "restart"
)

// Client 外部编排器客户端接口
// 用于抽象编排器操作，便于测试和 mock
type Client interface {
	// 认证
	Authenticate(ctx context.Context, session string) (AuthClass, string, error)

	// 用户
	AllocateUser(ctx context.Context, session, name, password string) (int, error)
	DeleteUser(ctx context.Context, session string, id int) error

	// 集群
	AllocateCluster(ctx context.Context, session, name string) (int, error)
	DeleteCluster(ctx context.Context, session string, id int) error
	ClusterInfo(ctx context.Context, session string, id int) (*Cluster, error)
	ClusterAddHost(ctx context.Context, session string, clusterID, hostID int) error
	ClusterDelHost(ctx context.Context, session string, clusterID, hostID int) error
	ClusterAddVnet(ctx context.Context, session string, clusterID, vnetID int) error
	ClusterDelVnet(ctx context.Context, session string, clusterID, vnetID int) error

	// 主机
	AllocateHost(ctx context.Context, session, hostname string) (int, error)
	DeleteHost(ctx context.Context, session string, id int) error

	// 虚拟网络
	AllocateVnet(ctx context.Context, session, definition string) (int, error)
	DeleteVnet(ctx context.Context, session string, id int) error

	// 虚拟机
	AllocateVM(ctx context.Context, session, definition string) (int, error)
	VMAction(ctx context.Context, session, action string, id int) error
	VMInfo(ctx context.Context, session string, id int) (*VM, error)
	VMPool(ctx context.Context, session string) ([]VM, error)
	SaveDisk(ctx context.Context, session string, vmID, diskID, imageID int) error

	// 镜像
	AllocateImage(ctx context.Context, session, definition string, datastoreID int) (int, error)
	DeleteImage(ctx context.Context, session string, id int) error
	ImageInfo(ctx context.Context, session string, id int) (*Image, error)
}
