package orchestrator

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// 虚拟机状态（STATE 字段）
const (
	VMStateInit      = 0
	VMStatePending   = 1
	VMStateHold      = 2
	VMStateActive    = 3
	VMStateStopped   = 4
	VMStateSuspended = 5
	VMStateDone      = 6
	VMStateFailed    = 7
)

// Cluster 集群信息文档
type Cluster struct {
	XMLName xml.Name `xml:"CLUSTER"`
	ID      int      `xml:"ID"`
	Name    string   `xml:"NAME"`
	Hosts   []int    `xml:"HOSTS>ID"`
	Vnets   []int    `xml:"VNETS>ID"`
}

// Image 镜像信息文档
type Image struct {
	XMLName    xml.Name      `xml:"IMAGE"`
	ID         int           `xml:"ID"`
	Name       string        `xml:"NAME"`
	Persistent *int          `xml:"PERSISTENT"`
	Template   ImageTemplate `xml:"TEMPLATE"`
}

// ImageTemplate 镜像模板中与虚拟机定义相关的字段
type ImageTemplate struct {
	Bus       string `xml:"BUS"`
	DevPrefix string `xml:"DEV_PREFIX"`
	NicModel  string `xml:"NIC_MODEL"`
}

// ImageMetadata 生成虚拟机定义所需的镜像元数据
type ImageMetadata struct {
	ID         int
	Name       string
	Bus        string
	DevPrefix  string
	NicModel   string
	Persistent bool
}

// Metadata 校验并返回镜像元数据，四个字段都是必需的
func (i *Image) Metadata() (*ImageMetadata, error) {
	var missing []string
	if i.Template.Bus == "" {
		missing = append(missing, "BUS")
	}
	if i.Template.DevPrefix == "" {
		missing = append(missing, "DEV_PREFIX")
	}
	if i.Template.NicModel == "" {
		missing = append(missing, "NIC_MODEL")
	}
	if i.Persistent == nil {
		missing = append(missing, "PERSISTENT")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("image %d template is missing %s", i.ID, strings.Join(missing, ", "))
	}
	return &ImageMetadata{
		ID:         i.ID,
		Name:       i.Name,
		Bus:        i.Template.Bus,
		DevPrefix:  i.Template.DevPrefix,
		NicModel:   i.Template.NicModel,
		Persistent: *i.Persistent == 1,
	}, nil
}

// VM 虚拟机信息文档
type VM struct {
	XMLName  xml.Name   `xml:"VM"`
	ID       int        `xml:"ID"`
	UID      int        `xml:"UID"`
	Name     string     `xml:"NAME"`
	State    int        `xml:"STATE"`
	LCMState int        `xml:"LCM_STATE"`
	Template VMTemplate `xml:"TEMPLATE"`
}

// VMTemplate 虚拟机当前的磁盘与网卡
type VMTemplate struct {
	Disks []VMDisk `xml:"DISK"`
	Nics  []VMNic  `xml:"NIC"`
}

// VMDisk 虚拟机磁盘
type VMDisk struct {
	DiskID  int    `xml:"DISK_ID"`
	ImageID string `xml:"IMAGE_ID"`
	Type    string `xml:"TYPE"`
	Save    string `xml:"SAVE"`
	SaveAs  string `xml:"SAVE_AS"`
}

// MarkedForSave 磁盘是否已经被标记为保存
func (d VMDisk) MarkedForSave() bool {
	return d.SaveAs != "" || strings.EqualFold(d.Save, "YES")
}

// VMNic 虚拟机网卡
type VMNic struct {
	NetworkID string `xml:"NETWORK_ID"`
	IP        string `xml:"IP"`
	MAC       string `xml:"MAC"`
}

// Disk 按 DISK_ID 查找磁盘
func (v *VM) Disk(id int) (VMDisk, bool) {
	for _, d := range v.Template.Disks {
		if d.DiskID == id {
			return d, true
		}
	}
	return VMDisk{}, false
}

// Active 是否处于非终止状态
func (v *VM) Active() bool {
	return v.State != VMStateDone && v.State != VMStateFailed
}

type vmPool struct {
	XMLName xml.Name `xml:"VM_POOL"`
	VMs     []VM     `xml:"VM"`
}

func decodeDocument(method, payload string, out any) error {
	if err := xml.Unmarshal([]byte(payload), out); err != nil {
		return &TransportError{Method: method, Err: fmt.Errorf("decode document: %w", err)}
	}
	return nil
}
