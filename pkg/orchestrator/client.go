package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var callsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "zcp",
		Subsystem: "orchestrator",
		Name:      "calls_total",
		Help:      "Total number of external orchestrator calls by method and result",
	},
	[]string{"method", "result"},
)

func init() {
	prometheus.MustRegister(callsTotal)
}

// 默认值
const (
	DefaultTimeout     = 30 * time.Second
	DefaultReadRetries = 2
)

// HostDrivers 注册主机时使用的驱动
type HostDrivers struct {
	IM  string `yaml:"im"`
	VMM string `yaml:"vmm"`
	VNM string `yaml:"vnm"`
}

// Config 客户端配置
type Config struct {
	// Endpoint XML-RPC 端点，例如 http://localhost:2633/RPC2
	Endpoint string
	// Timeout 单次调用的超时时间，包含网络往返
	Timeout time.Duration
	// ReadRetries 只读调用在传输错误时的重试次数，变更类调用从不重试
	ReadRetries int
	// HostDrivers 注册主机时使用的驱动
	HostDrivers HostDrivers
	// HTTPClient 可选，测试时注入
	HTTPClient *http.Client
}

// RPCClient 基于 XML-RPC over HTTP 的 Client 实现，编解码使用 kolo/xmlrpc
type RPCClient struct {
	endpoint    string
	timeout     time.Duration
	readRetries int
	drivers     HostDrivers
	httpClient  *http.Client
}

var _ Client = (*RPCClient)(nil)

// New 创建客户端
func New(cfg Config) (*RPCClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("orchestrator endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReadRetries < 0 {
		cfg.ReadRetries = 0
	}
	if cfg.HostDrivers.IM == "" {
		cfg.HostDrivers.IM = "kvm"
	}
	if cfg.HostDrivers.VMM == "" {
		cfg.HostDrivers.VMM = "kvm"
	}
	if cfg.HostDrivers.VNM == "" {
		cfg.HostDrivers.VNM = "dummy"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &RPCClient{
		endpoint:    cfg.Endpoint,
		timeout:     cfg.Timeout,
		readRetries: cfg.ReadRetries,
		drivers:     cfg.HostDrivers,
		httpClient:  httpClient,
	}, nil
}

// call 执行一次远程调用
// readOnly 的调用在传输错误时按 readRetries 重试；ok=false 的结果不会重试
func (c *RPCClient) call(ctx context.Context, readOnly bool, method string, args ...any) (any, error) {
	body, err := encodeCall(method, args...)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	attempts := 1
	if readOnly {
		attempts += c.readRetries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			zerolog.Ctx(ctx).Debug().
				Str("method", method).
				Int("attempt", i+1).
				Err(lastErr).
				Msg("Retrying orchestrator call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * 200 * time.Millisecond):
			}
		}

		resp, err := c.roundTrip(ctx, method, body)
		if err != nil {
			lastErr = &TransportError{Method: method, Err: err}
			continue
		}
		if !resp.OK {
			msg, _ := asString(resp.Payload)
			callsTotal.WithLabelValues(method, "failed").Inc()
			return nil, &CallError{Method: method, Message: msg, Code: resp.Code}
		}
		callsTotal.WithLabelValues(method, "ok").Inc()
		return resp.Payload, nil
	}

	callsTotal.WithLabelValues(method, "transport_error").Inc()
	return nil, lastErr
}

func (c *RPCClient) roundTrip(ctx context.Context, method string, body []byte) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected http status %d", httpResp.StatusCode)
	}
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(method, data)
}

func (c *RPCClient) callID(ctx context.Context, method string, args ...any) (int, error) {
	v, err := c.call(ctx, false, method, args...)
	if err != nil {
		return 0, err
	}
	id, ok := asInt(v)
	if !ok {
		return 0, &TransportError{Method: method, Err: errors.New("response payload is not an id")}
	}
	return id, nil
}

func (c *RPCClient) callNoResult(ctx context.Context, method string, args ...any) error {
	_, err := c.call(ctx, false, method, args...)
	return err
}

func (c *RPCClient) callDocument(ctx context.Context, method string, out any, args ...any) error {
	v, err := c.call(ctx, true, method, args...)
	if err != nil {
		return err
	}
	doc, ok := asString(v)
	if !ok {
		return &TransportError{Method: method, Err: errors.New("response payload is not a document")}
	}
	return decodeDocument(method, doc, out)
}

// Authenticate 对会话进行分类
// 编排器返回 ok=false 时视为认证失败并返回其原始消息
func (c *RPCClient) Authenticate(ctx context.Context, session string) (AuthClass, string, error) {
	const method = "one.user.authenticate"
	v, err := c.call(ctx, true, method, session)
	if err != nil {
		var ce *CallError
		if errors.As(err, &ce) {
			return AuthFailed, ce.Message, nil
		}
		return AuthFailed, "", err
	}
	n, ok := asInt(v)
	if !ok {
		return AuthFailed, "", &TransportError{Method: method, Err: errors.New("classification is not an integer")}
	}
	switch AuthClass(n) {
	case AuthAdmin, AuthFailed, AuthUser:
		return AuthClass(n), "", nil
	default:
		return AuthFailed, "", &TransportError{Method: method, Err: fmt.Errorf("unknown classification %d", n)}
	}
}

func (c *RPCClient) AllocateUser(ctx context.Context, session, name, password string) (int, error) {
	return c.callID(ctx, "one.user.allocate", session, name, password)
}

func (c *RPCClient) DeleteUser(ctx context.Context, session string, id int) error {
	return c.callNoResult(ctx, "one.user.delete", session, id)
}

func (c *RPCClient) AllocateCluster(ctx context.Context, session, name string) (int, error) {
	return c.callID(ctx, "one.cluster.allocate", session, name)
}

func (c *RPCClient) DeleteCluster(ctx context.Context, session string, id int) error {
	return c.callNoResult(ctx, "one.cluster.delete", session, id)
}

func (c *RPCClient) ClusterInfo(ctx context.Context, session string, id int) (*Cluster, error) {
	var cluster Cluster
	if err := c.callDocument(ctx, "one.cluster.info", &cluster, session, id); err != nil {
		return nil, err
	}
	return &cluster, nil
}

func (c *RPCClient) ClusterAddHost(ctx context.Context, session string, clusterID, hostID int) error {
	return c.callNoResult(ctx, "one.cluster.addhost", session, clusterID, hostID)
}

func (c *RPCClient) ClusterDelHost(ctx context.Context, session string, clusterID, hostID int) error {
	return c.callNoResult(ctx, "one.cluster.delhost", session, clusterID, hostID)
}

func (c *RPCClient) ClusterAddVnet(ctx context.Context, session string, clusterID, vnetID int) error {
	return c.callNoResult(ctx, "one.cluster.addvnet", session, clusterID, vnetID)
}

func (c *RPCClient) ClusterDelVnet(ctx context.Context, session string, clusterID, vnetID int) error {
	return c.callNoResult(ctx, "one.cluster.delvnet", session, clusterID, vnetID)
}

// AllocateHost 注册主机，不放入任何集群（集群 ID -1）
func (c *RPCClient) AllocateHost(ctx context.Context, session, hostname string) (int, error) {
	return c.callID(ctx, "one.host.allocate", session, hostname, c.drivers.IM, c.drivers.VMM, c.drivers.VNM, -1)
}

func (c *RPCClient) DeleteHost(ctx context.Context, session string, id int) error {
	return c.callNoResult(ctx, "one.host.delete", session, id)
}

func (c *RPCClient) AllocateVnet(ctx context.Context, session, definition string) (int, error) {
	return c.callID(ctx, "one.vn.allocate", session, definition, -1)
}

func (c *RPCClient) DeleteVnet(ctx context.Context, session string, id int) error {
	return c.callNoResult(ctx, "one.vn.delete", session, id)
}

func (c *RPCClient) AllocateVM(ctx context.Context, session, definition string) (int, error) {
	return c.callID(ctx, "one.vm.allocate", session, definition, false)
}

func (c *RPCClient) VMAction(ctx context.Context, session, action string, id int) error {
	return c.callNoResult(ctx, "one.vm.action", session, action, id)
}

func (c *RPCClient) VMInfo(ctx context.Context, session string, id int) (*VM, error) {
	var vm VM
	if err := c.callDocument(ctx, "one.vm.info", &vm, session, id); err != nil {
		return nil, err
	}
	return &vm, nil
}

// VMPool 返回会话所属用户的虚拟机，不包含已结束 (DONE) 的历史记录
func (c *RPCClient) VMPool(ctx context.Context, session string) ([]VM, error) {
	var pool vmPool
	// filter -3: 只属于调用者; start/end -1: 全部; state -1: 除 DONE 之外的所有状态
	if err := c.callDocument(ctx, "one.vmpool.info", &pool, session, -3, -1, -1, -1); err != nil {
		return nil, err
	}
	return pool.VMs, nil
}

func (c *RPCClient) SaveDisk(ctx context.Context, session string, vmID, diskID, imageID int) error {
	return c.callNoResult(ctx, "one.vm.savedisk", session, vmID, diskID, imageID)
}

func (c *RPCClient) AllocateImage(ctx context.Context, session, definition string, datastoreID int) (int, error) {
	return c.callID(ctx, "one.image.allocate", session, definition, datastoreID)
}

func (c *RPCClient) DeleteImage(ctx context.Context, session string, id int) error {
	return c.callNoResult(ctx, "one.image.delete", session, id)
}

func (c *RPCClient) ImageInfo(ctx context.Context, session string, id int) (*Image, error) {
	var image Image
	if err := c.callDocument(ctx, "one.image.info", &image, session, id); err != nil {
		return nil, err
	}
	return &image, nil
}
