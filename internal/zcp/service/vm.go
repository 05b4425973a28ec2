package service

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jimyag/zcp/internal/zcp/entity"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/apierror"
	"github.com/jimyag/zcp/pkg/definition"
	"github.com/jimyag/zcp/pkg/idgen"
	"github.com/jimyag/zcp/pkg/orchestrator"
	"github.com/jimyag/zcp/pkg/saga"
	"github.com/rs/zerolog"
)

// authorizedKeysFile 虚拟机上下文中的公钥文件名
const authorizedKeysFile = "authorized_keys"

// vmActions 对外的动作名到编排器动作的映射
var vmActions = map[string]string{
	"SHUTDOWN": orchestrator.ActionShutdown,
	"FINALIZE": orchestrator.ActionFinalize,
	"REBOOT":   orchestrator.ActionReboot,
	"HOLD":     orchestrator.ActionHold,
	"RELEASE":  orchestrator.ActionRelease,
	"STOP":     orchestrator.ActionStop,
	"SUSPEND":  orchestrator.ActionSuspend,
	"RESUME":   orchestrator.ActionResume,
	"RESTART":  orchestrator.ActionRestart,
}

// VMConfig 虚拟机服务配置
type VMConfig struct {
	AdminSession   string
	ArtifactRoot   string
	SwapRatio      float64
	ImageDatastore int
}

// VMService 虚拟机服务
type VMService struct {
	gate      *Gate
	allocator *LeaseAllocator
	client    orchestrator.Client
	idGen     *idgen.Generator
	cfg       VMConfig

	users    repository.UserRepository
	zones    repository.ZoneRepository
	networks repository.NetworkRepository
	leases   repository.LeaseRepository
	vmTypes  repository.VMTypeRepository
	vms      repository.VMRepository
}

// NewVMService 创建虚拟机服务
func NewVMService(repo *repository.Repository, client orchestrator.Client, allocator *LeaseAllocator, cfg VMConfig) *VMService {
	users := repository.NewUserRepository(repo.DB())
	return &VMService{
		gate:      NewGate("vm", users, client),
		allocator: allocator,
		client:    client,
		idGen:     idgen.New(),
		cfg:       cfg,
		users:     users,
		zones:     repository.NewZoneRepository(repo.DB()),
		networks:  repository.NewNetworkRepository(repo.DB()),
		leases:    repository.NewLeaseRepository(repo.DB()),
		vmTypes:   repository.NewVMTypeRepository(repo.DB()),
		vms:       repository.NewVMRepository(repo.DB()),
	}
}

// nicBinding 一块网卡对应的网络和租约
type nicBinding struct {
	network *model.VirtualNetwork
	lease   *model.Lease
}

// Pool 列出调用方的虚拟机，管理员列出全部
func (s *VMService) Pool(ctx context.Context, session string) *entity.Result {
	return s.gate.Execute(ctx, "pool", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		var (
			vms []*model.VirtualMachine
			err error
		)
		if caller.Admin {
			vms, err = s.vms.List(ctx)
		} else {
			vms, err = s.vms.ListByUser(ctx, caller.User.ID)
		}
		if err != nil {
			return nil, consistencyError("list virtual machines", err)
		}
		result := make([]*entity.VirtualMachine, 0, len(vms))
		for _, vm := range vms {
			e, err := s.toEntity(ctx, vm)
			if err != nil {
				return nil, err
			}
			result = append(result, e)
		}
		return result, nil
	})
}

// Info 查询虚拟机，包括外部编排器中的状态
func (s *VMService) Info(ctx context.Context, session string, req *entity.VMIDRequest) *entity.Result {
	return s.gate.Execute(ctx, "info", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		vm, err := s.ownedVM(ctx, caller, req.ID)
		if err != nil {
			return nil, err
		}
		e, err := s.toEntity(ctx, vm)
		if err != nil {
			return nil, err
		}
		info, err := s.client.VMInfo(ctx, caller.Session, vm.OID)
		if err != nil {
			return nil, externalError(fmt.Sprintf("VM[%d] info", vm.OID), err)
		}
		e.State = info.State
		e.LCMState = info.LCMState
		e.Active = info.Active()
		return e, nil
	})
}

// Allocate 创建虚拟机
func (s *VMService) Allocate(ctx context.Context, session string, req *entity.AllocateVMRequest) *entity.Result {
	return s.gate.Execute(ctx, "allocate", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		vm, leaseIDs, err := s.allocate(ctx, caller, req)
		if err != nil {
			return nil, err
		}
		return vmModelToEntity(vm, leaseIDs)
	})
}

func (s *VMService) allocate(ctx context.Context, caller *Caller, req *entity.AllocateVMRequest) (*model.VirtualMachine, []uint, error) {
	logger := zerolog.Ctx(ctx)
	user := caller.User

	// 后续步骤按下标访问第一张网卡，至少要有一个网络
	if err := req.IsValid(); err != nil {
		return nil, nil, err
	}

	// 1. 解析规格、Zone 和镜像
	vmType, err := s.resolveType(ctx, req.Type)
	if err != nil {
		return nil, nil, err
	}
	zone, err := s.resolveZone(ctx, req.Zone)
	if err != nil {
		return nil, nil, err
	}
	if req.ImageID == nil {
		return nil, nil, apierror.New(apierror.ErrInvalidParameter, "image_id is required")
	}

	// 2. Zone 授权
	grant, err := s.users.Zone(ctx, user.ID, zone.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, apierror.Newf(apierror.ErrPermissionDenied,
				"%s don't have permission to use Zone[%s]", user.Name, zone.Name)
		}
		return nil, nil, consistencyError("load zone grant", err)
	}

	// 3. 配额：外部编排器中仍存在的、该用户在该 Zone 的虚拟机数量
	count, err := s.countActive(ctx, caller, zone)
	if err != nil {
		return nil, nil, err
	}
	if count >= grant.Quota {
		return nil, nil, apierror.Newf(apierror.ErrQuotaExceeded,
			"%s has reached the quota (%d) of Zone[%s]", user.Name, grant.Quota, zone.Name)
	}

	// 4. 镜像元数据
	image, err := s.client.ImageInfo(ctx, caller.Session, *req.ImageID)
	if err != nil {
		return nil, nil, externalError(fmt.Sprintf("Image[%d] info", *req.ImageID), err)
	}
	meta, err := image.Metadata()
	if err != nil {
		return nil, nil, apierror.WrapError(apierror.ErrExternalCall, err.Error(), err)
	}

	// 5. Zone 对应的外部集群
	cluster, err := s.client.ClusterInfo(ctx, s.cfg.AdminSession, zone.OID)
	if err != nil {
		return nil, nil, externalError(fmt.Sprintf("Cluster[%d] info", zone.OID), err)
	}

	// 6. 网络与租约
	nics, err := s.resolveNICs(ctx, user, zone, req.Networks)
	if err != nil {
		return nil, nil, err
	}

	// 7. 上下文文件与定义文档
	hostname, err := s.idGen.GenerateHostname()
	if err != nil {
		return nil, nil, apierror.WrapError(apierror.ErrInternalError, "generate hostname", err)
	}

	sg := saga.New(ctx, "allocate vm")
	keyPath, err := s.writeArtifacts(hostname, user.SSHPublicKey)
	if err != nil {
		return nil, nil, apierror.WrapError(apierror.ErrInternalError, "write vm context files", err)
	}
	sg.Defer("remove vm artifacts", func(context.Context) error {
		return s.removeArtifacts(hostname)
	})

	def, err := s.vmDefinition(hostname, vmType, meta, cluster, nics, keyPath)
	if err != nil {
		return nil, nil, sg.Abort(ctx, apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err))
	}

	// 8. 外部创建
	oid, err := s.client.AllocateVM(ctx, caller.Session, def)
	if err != nil {
		return nil, nil, sg.Abort(ctx, externalError("allocate VM", err))
	}
	sg.Defer("finalize vm", func(ctx context.Context) error {
		return s.client.VMAction(ctx, caller.Session, orchestrator.ActionFinalize, oid)
	})

	// 9. 本地记录
	leaseIDs := make([]uint, 0, len(nics))
	for _, nic := range nics {
		leaseIDs = append(leaseIDs, nic.lease.ID)
	}
	vm := &model.VirtualMachine{
		OID:      oid,
		UserID:   user.ID,
		ZoneID:   zone.ID,
		LeaseID:  leaseIDs[0],
		TypeID:   vmType.ID,
		ImageID:  meta.ID,
		Hostname: hostname,
		Info:     req.Info,
	}
	if err := s.vms.Create(ctx, vm, leaseIDs[1:]); err != nil {
		return nil, nil, sg.Abort(ctx, consistencyError("create VM record", err))
	}
	sg.Defer("delete vm record", func(ctx context.Context) error {
		return s.vms.Delete(ctx, vm.ID)
	})

	// 10. 标记租约为使用中
	if err := s.leases.SetUsed(ctx, leaseIDs, true); err != nil {
		return nil, nil, sg.Abort(ctx, consistencyError("mark leases used", err))
	}
	sg.Commit()

	logger.Info().
		Str("user", user.Name).
		Str("zone", zone.Name).
		Int("oid", oid).
		Str("hostname", hostname).
		Msg("Virtual machine allocated")
	return vm, leaseIDs, nil
}

// Action 执行虚拟机动作；SHUTDOWN 和 FINALIZE 之后释放租约并删除本地记录
func (s *VMService) Action(ctx context.Context, session string, req *entity.VMActionRequest) *entity.Result {
	return s.gate.Execute(ctx, "action", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		verb := req.Normalize()
		action, ok := vmActions[verb]
		if !ok {
			return nil, apierror.Newf(apierror.ErrInvalidParameter, "unknown action %s", req.Action)
		}
		vm, err := s.ownedVM(ctx, caller, req.ID)
		if err != nil {
			return nil, err
		}
		if err := s.client.VMAction(ctx, caller.Session, action, vm.OID); err != nil {
			return nil, externalError(fmt.Sprintf("%s VM[%d]", verb, vm.OID), err)
		}
		if action == orchestrator.ActionShutdown || action == orchestrator.ActionFinalize {
			return nil, s.teardown(ctx, vm)
		}
		return nil, nil
	})
}

// teardown 释放虚拟机的租约、删除本地记录和上下文文件
func (s *VMService) teardown(ctx context.Context, vm *model.VirtualMachine) error {
	acc := &saga.Accumulator{}
	leaseIDs, err := s.vms.LeaseIDs(ctx, vm)
	if err != nil {
		acc.AddMessage(fmt.Sprintf("list leases: %v", err))
	} else if err := s.leases.SetUsed(ctx, leaseIDs, false); err != nil {
		acc.AddMessage(fmt.Sprintf("release leases: %v", err))
	}
	if err := s.vms.Delete(ctx, vm.ID); err != nil {
		acc.AddMessage(fmt.Sprintf("delete record: %v", err))
	}
	if err := s.removeArtifacts(vm.Hostname); err != nil {
		acc.AddMessage(fmt.Sprintf("remove artifacts: %v", err))
	}
	if err := acc.Err(); err != nil {
		return apierror.WrapError(apierror.ErrConsistency, err.Error(), err)
	}
	return nil
}

// MarkSave 将虚拟机磁盘保存为新镜像
func (s *VMService) MarkSave(ctx context.Context, session string, req *entity.MarkSaveRequest) *entity.Result {
	return s.gate.Execute(ctx, "mark_save", session, false, func(ctx context.Context, caller *Caller) (any, error) {
		vm, err := s.ownedVM(ctx, caller, req.ID)
		if err != nil {
			return nil, err
		}
		info, err := s.client.VMInfo(ctx, caller.Session, vm.OID)
		if err != nil {
			return nil, externalError(fmt.Sprintf("VM[%d] info", vm.OID), err)
		}
		disk, ok := info.Disk(req.DiskID)
		if !ok {
			return nil, apierror.Newf(apierror.ErrNotFound, "Disk[%d] not found in VM[%d]", req.DiskID, vm.OID)
		}
		if disk.MarkedForSave() {
			return nil, apierror.Newf(apierror.ErrConflict, "Disk[%d] of VM[%d] is already marked for saving", req.DiskID, vm.OID)
		}

		doc := definition.New().Set("NAME", req.ImageName)
		if req.Description != "" {
			doc.Set("DESCRIPTION", req.Description)
		}
		def, err := doc.Render()
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err)
		}

		imageID, err := s.client.AllocateImage(ctx, caller.Session, def, s.cfg.ImageDatastore)
		if err != nil {
			return nil, externalError(fmt.Sprintf("allocate Image[%s]", req.ImageName), err)
		}
		sg := saga.New(ctx, "mark save")
		sg.Defer("delete image", func(ctx context.Context) error {
			return s.client.DeleteImage(ctx, caller.Session, imageID)
		})
		if err := s.client.SaveDisk(ctx, caller.Session, vm.OID, req.DiskID, imageID); err != nil {
			return nil, sg.Abort(ctx, externalError(fmt.Sprintf("save Disk[%d] of VM[%d]", req.DiskID, vm.OID), err))
		}
		sg.Commit()
		return &entity.MarkSaveResponse{ImageID: imageID}, nil
	})
}

// resolveType 按 ID 或名称查找规格
func (s *VMService) resolveType(ctx context.Context, ref string) (*model.VMType, error) {
	var (
		vmType *model.VMType
		err    error
	)
	if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil {
		vmType, err = s.vmTypes.GetByID(ctx, uint(id))
	} else {
		vmType, err = s.vmTypes.GetByName(ctx, ref)
	}
	return lookup(vmType, err, "VMType[%s]", ref)
}

// resolveZone 按 ID 或名称查找 Zone
func (s *VMService) resolveZone(ctx context.Context, ref string) (*model.Zone, error) {
	var (
		zone *model.Zone
		err  error
	)
	if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil {
		zone, err = s.zones.GetByID(ctx, uint(id))
	} else {
		zone, err = s.zones.GetByName(ctx, ref)
	}
	return lookup(zone, err, "Zone[%s]", ref)
}

// countActive 统计调用方在 Zone 中、外部编排器里仍未结束的虚拟机
func (s *VMService) countActive(ctx context.Context, caller *Caller, zone *model.Zone) (int, error) {
	local, err := s.vms.ListByUserZone(ctx, caller.User.ID, zone.ID)
	if err != nil {
		return 0, consistencyError("list virtual machines", err)
	}
	if len(local) == 0 {
		return 0, nil
	}
	pool, err := s.client.VMPool(ctx, caller.Session)
	if err != nil {
		return 0, externalError("VM pool", err)
	}
	active := make(map[int]bool, len(pool))
	for _, vm := range pool {
		if vm.Active() {
			active[vm.ID] = true
		}
	}
	count := 0
	for _, vm := range local {
		if active[vm.OID] {
			count++
		}
	}
	return count, nil
}

// resolveNICs 解析每块网卡的网络和租约
func (s *VMService) resolveNICs(ctx context.Context, user *model.User, zone *model.Zone, requests []entity.VMNetworkRequest) ([]nicBinding, error) {
	picked := make(map[uint]bool, len(requests))
	nics := make([]nicBinding, 0, len(requests))

	for _, r := range requests {
		uniqueName := model.UniqueNetworkName(zone.Name, r.Network)
		network, err := s.networks.GetByUniqueName(ctx, uniqueName)
		if network, err = lookup(network, err, "Network[%s]", uniqueName); err != nil {
			return nil, err
		}

		var lease *model.Lease
		if r.Lease != "" {
			lease, err = s.leases.GetByName(ctx, r.Lease)
			if lease, err = lookup(lease, err, "Lease[%s]", r.Lease); err != nil {
				return nil, err
			}
			switch {
			case lease.VnetID != network.ID:
				return nil, apierror.Newf(apierror.ErrInvalidParameter, "Lease[%s] does not belong to Network[%s]", lease.Name, uniqueName)
			case lease.Used || picked[lease.ID]:
				return nil, apierror.Newf(apierror.ErrConflict, "Lease[%s] is in use", lease.Name)
			case lease.AssignedTo != int64(user.ID):
				return nil, apierror.Newf(apierror.ErrPermissionDenied, "%s don't have permission to use Lease[%s]", user.Name, lease.Name)
			}
		} else {
			lease, err = s.allocator.Pick(ctx, network, user.ID, picked)
			if err != nil {
				return nil, err
			}
		}
		picked[lease.ID] = true
		nics = append(nics, nicBinding{network: network, lease: lease})
	}
	return nics, nil
}

// vmDefinition 生成虚拟机定义
func (s *VMService) vmDefinition(hostname string, vmType *model.VMType, meta *orchestrator.ImageMetadata,
	cluster *orchestrator.Cluster, nics []nicBinding, keyPath string,
) (string, error) {
	swap := int(math.Ceil(float64(vmType.Memory) * s.cfg.SwapRatio))

	doc := definition.New().
		Set("NAME", hostname).
		Setf("CPU", "%d", vmType.CPU).
		Setf("VCPU", "%d", vmType.CPU).
		Setf("MEMORY", "%d", vmType.Memory).
		Vector("DISK",
			definition.P("IMAGE_ID", strconv.Itoa(meta.ID)),
			definition.P("DEV_PREFIX", meta.DevPrefix),
			definition.P("BUS", meta.Bus),
		).
		Vector("DISK",
			definition.P("TYPE", "swap"),
			definition.P("SIZE", strconv.Itoa(swap)),
			definition.P("DEV_PREFIX", meta.DevPrefix),
		)

	for _, nic := range nics {
		doc.Vector("NIC",
			definition.P("NETWORK_ID", strconv.Itoa(nic.network.OID)),
			definition.P("IP", nic.lease.Address),
			definition.P("MODEL", meta.NicModel),
		)
	}

	ctxPairs := []definition.Pair{
		definition.P("HOSTNAME", hostname),
		definition.P("NETWORK", "YES"),
		definition.P("ZONE", cluster.Name),
	}
	var dns, ntp []string
	for i, nic := range nics {
		prefix := fmt.Sprintf("ETH%d_", i)
		ctxPairs = append(ctxPairs,
			definition.P(prefix+"IP", fmt.Sprintf("$NIC[IP, NETWORK_ID=%d]", nic.network.OID)),
			definition.P(prefix+"MASK", nic.network.Netmask),
		)
		dns = appendUnique(dns, nic.network.DNS...)
		ntp = appendUnique(ntp, nic.network.NTP...)
	}
	if gw := nics[0].network.Gateway; gw != "" {
		ctxPairs = append(ctxPairs, definition.P("GATEWAY", gw))
	}
	if len(dns) > 0 {
		ctxPairs = append(ctxPairs, definition.P("DNS", strings.Join(dns, " ")))
	}
	if len(ntp) > 0 {
		ctxPairs = append(ctxPairs, definition.P("NTP", strings.Join(ntp, " ")))
	}
	if keyPath != "" {
		ctxPairs = append(ctxPairs, definition.P("FILES", keyPath))
	}
	doc.Vector("CONTEXT", ctxPairs...)
	doc.Setf("SCHED_REQUIREMENTS", "CLUSTER_ID = %d", cluster.ID)

	return doc.Render()
}

// writeArtifacts 写入虚拟机上下文文件，返回公钥文件路径；用户没有公钥时返回空
func (s *VMService) writeArtifacts(hostname, publicKey string) (string, error) {
	if publicKey == "" {
		return "", nil
	}
	dir := filepath.Join(s.cfg.ArtifactRoot, hostname)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}
	path := filepath.Join(dir, authorizedKeysFile)
	if err := os.WriteFile(path, []byte(publicKey+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write authorized keys: %w", err)
	}
	return path, nil
}

func (s *VMService) removeArtifacts(hostname string) error {
	if hostname == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(s.cfg.ArtifactRoot, hostname))
}

func (s *VMService) ownedVM(ctx context.Context, caller *Caller, id uint) (*model.VirtualMachine, error) {
	vm, err := s.vms.GetByID(ctx, id)
	if vm, err = lookup(vm, err, "VM[%d]", id); err != nil {
		return nil, err
	}
	if err := requireOwner(caller, vm.UserID, fmt.Sprintf("VM[%d]", id)); err != nil {
		return nil, err
	}
	return vm, nil
}

func (s *VMService) toEntity(ctx context.Context, vm *model.VirtualMachine) (*entity.VirtualMachine, error) {
	leaseIDs, err := s.vms.LeaseIDs(ctx, vm)
	if err != nil {
		return nil, consistencyError("list leases", err)
	}
	e, err := vmModelToEntity(vm, leaseIDs)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "convert virtual machine", err)
	}
	return e, nil
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}
