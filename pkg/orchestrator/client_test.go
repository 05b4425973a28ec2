package orchestrator

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer 按方法名返回预设响应的 XML-RPC 服务
type fakeServer struct {
	handlers map[string]func(args []any) string
	calls    atomic.Int32
}

func okResponse(payload string) string {
	return `<?xml version="1.0"?><methodResponse><params><param><value><array><data>` +
		`<value><boolean>1</boolean></value>` + payload + `<value><i4>0</i4></value>` +
		`</data></array></value></param></params></methodResponse>`
}

func failResponse(msg string, code int) string {
	return fmt.Sprintf(`<?xml version="1.0"?><methodResponse><params><param><value><array><data>`+
		`<value><boolean>0</boolean></value><value><string>%s</string></value><value><i4>%d</i4></value>`+
		`</data></array></value></param></params></methodResponse>`, msg, code)
}

func intPayload(n int) string {
	return fmt.Sprintf("<value><i4>%d</i4></value>", n)
}

func docPayload(doc string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(doc))
	return "<value><string>" + b.String() + "</string></value>"
}

// decodeCall 解析 methodCall，参数值交给 xmlrpc 解码
func decodeCall(body []byte) (string, []any, error) {
	var call struct {
		MethodName string `xml:"methodName"`
		Params     []struct {
			Raw []byte `xml:",innerxml"`
		} `xml:"params>param"`
	}
	if err := xml.Unmarshal(body, &call); err != nil {
		return "", nil, err
	}
	args := make([]any, 0, len(call.Params))
	for _, p := range call.Params {
		var v any
		if err := xmlrpc.Response(p.Raw).Unmarshal(&v); err != nil {
			return "", nil, err
		}
		args = append(args, v)
	}
	return call.MethodName, args, nil
}

func newFakeServer(t *testing.T, handlers map[string]func(args []any) string) (*fakeServer, *RPCClient) {
	t.Helper()

	fs := &fakeServer{handlers: handlers}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		method, args, err := decodeCall(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h, ok := fs.handlers[method]
		if !ok {
			_, _ = io.WriteString(w, failResponse("unknown method "+method, -1))
			return
		}
		_, _ = io.WriteString(w, h(args))
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{Endpoint: srv.URL, Timeout: 2 * time.Second, ReadRetries: 2})
	require.NoError(t, err)
	return fs, client
}

func TestNew_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{Endpoint: "http://localhost:2633/RPC2"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, "kvm", c.drivers.IM)
	assert.Equal(t, "dummy", c.drivers.VNM)
}

func TestRPCClient_Authenticate(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name      string
		response  string
		wantClass AuthClass
		wantMsg   string
		wantErr   bool
	}{
		{name: "admin", response: okResponse(intPayload(0)), wantClass: AuthAdmin},
		{name: "user", response: okResponse(intPayload(2)), wantClass: AuthUser},
		{name: "failed classification", response: okResponse(intPayload(1)), wantClass: AuthFailed},
		{name: "remote rejection", response: failResponse("bad password", 256), wantClass: AuthFailed, wantMsg: "bad password"},
		{name: "unknown classification", response: okResponse(intPayload(9)), wantClass: AuthFailed, wantErr: true},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, client := newFakeServer(t, map[string]func([]any) string{
				"one.user.authenticate": func(args []any) string {
					if args[0] != "alice:secret" {
						return failResponse("wrong session forwarded", 0)
					}
					return tc.response
				},
			})

			class, msg, err := client.Authenticate(context.Background(), "alice:secret")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantClass, class)
			assert.Equal(t, tc.wantMsg, msg)
		})
	}
}

func TestRPCClient_AllocateReturnsID(t *testing.T) {
	t.Parallel()

	fs, client := newFakeServer(t, map[string]func([]any) string{
		"one.host.allocate": func(args []any) string {
			if !assert.Len(t, args, 6) {
				return failResponse("bad arguments", 0)
			}
			assert.Equal(t, "node01", args[1])
			assert.Equal(t, []any{"kvm", "kvm", "dummy"}, args[2:5])
			assert.Equal(t, int64(-1), args[5])
			return okResponse(intPayload(42))
		},
	})

	id, err := client.AllocateHost(context.Background(), "admin:pw", "node01")
	require.NoError(t, err)
	assert.Equal(t, 42, id)
	assert.Equal(t, int32(1), fs.calls.Load())
}

func TestRPCClient_CallFailure(t *testing.T) {
	t.Parallel()

	_, client := newFakeServer(t, map[string]func([]any) string{
		"one.cluster.delete": func([]any) string { return failResponse("cluster is not empty", 2048) },
	})

	err := client.DeleteCluster(context.Background(), "admin:pw", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCallFailed))
	assert.Equal(t, "cluster is not empty", RemoteMessage(err))

	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2048, ce.Code)
	assert.Equal(t, "one.cluster.delete", ce.Method)
}

func TestRPCClient_MutationsAreNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{Endpoint: srv.URL, Timeout: time.Second, ReadRetries: 3})
	require.NoError(t, err)

	_, err = client.AllocateVM(context.Background(), "alice:pw", "CPU = \"1\"")
	require.Error(t, err)
	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.VMInfo(context.Background(), "alice:pw", 7)
	require.Error(t, err)
	assert.Equal(t, int32(1+4), calls.Load(), "read-only calls retry on transport errors")
}

func TestRPCClient_Timeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	client, err := New(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = client.AllocateCluster(context.Background(), "admin:pw", "zone1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRPCClient_Documents(t *testing.T) {
	t.Parallel()

	_, client := newFakeServer(t, map[string]func([]any) string{
		"one.cluster.info": func([]any) string {
			return okResponse(docPayload(`<CLUSTER><ID>5</ID><NAME>zone-a</NAME><HOSTS><ID>1</ID><ID>2</ID></HOSTS><VNETS/></CLUSTER>`))
		},
		"one.image.info": func([]any) string {
			return okResponse(docPayload(`<IMAGE><ID>9</ID><NAME>ubuntu</NAME><PERSISTENT>0</PERSISTENT>` +
				`<TEMPLATE><BUS>virtio</BUS><DEV_PREFIX>vd</DEV_PREFIX><NIC_MODEL>virtio</NIC_MODEL></TEMPLATE></IMAGE>`))
		},
		"one.vm.info": func([]any) string {
			return okResponse(docPayload(`<VM><ID>7</ID><UID>3</UID><STATE>3</STATE><TEMPLATE>` +
				`<DISK><DISK_ID>0</DISK_ID><IMAGE_ID>9</IMAGE_ID></DISK>` +
				`<DISK><DISK_ID>1</DISK_ID><TYPE>swap</TYPE><SAVE_AS>12</SAVE_AS></DISK>` +
				`<NIC><NETWORK_ID>4</NETWORK_ID><IP>10.0.0.2</IP></NIC></TEMPLATE></VM>`))
		},
		"one.vmpool.info": func(args []any) string {
			assert.Equal(t, []any{int64(-3), int64(-1), int64(-1), int64(-1)}, args[1:])
			return okResponse(docPayload(`<VM_POOL><VM><ID>1</ID><STATE>3</STATE></VM><VM><ID>2</ID><STATE>1</STATE></VM></VM_POOL>`))
		},
	})
	ctx := context.Background()

	cluster, err := client.ClusterInfo(ctx, "admin:pw", 5)
	require.NoError(t, err)
	assert.Equal(t, "zone-a", cluster.Name)
	assert.Equal(t, []int{1, 2}, cluster.Hosts)

	image, err := client.ImageInfo(ctx, "alice:pw", 9)
	require.NoError(t, err)
	meta, err := image.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "vd", meta.DevPrefix)
	assert.False(t, meta.Persistent)

	vm, err := client.VMInfo(ctx, "alice:pw", 7)
	require.NoError(t, err)
	assert.True(t, vm.Active())
	d0, ok := vm.Disk(0)
	require.True(t, ok)
	assert.False(t, d0.MarkedForSave())
	d1, ok := vm.Disk(1)
	require.True(t, ok)
	assert.True(t, d1.MarkedForSave())
	require.Len(t, vm.Template.Nics, 1)
	assert.Equal(t, "10.0.0.2", vm.Template.Nics[0].IP)

	pool, err := client.VMPool(ctx, "alice:pw")
	require.NoError(t, err)
	assert.Len(t, pool, 2)
}

func TestImage_MetadataMissingFields(t *testing.T) {
	t.Parallel()

	img := &Image{ID: 3, Template: ImageTemplate{Bus: "virtio"}}
	_, err := img.Metadata()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEV_PREFIX")
	assert.Contains(t, err.Error(), "NIC_MODEL")
	assert.Contains(t, err.Error(), "PERSISTENT")
}
