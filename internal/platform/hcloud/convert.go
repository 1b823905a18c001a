package hcloud

import (
	"maps"
	"net"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

const (
	// labelKeypair records the SSH key a server was created with.
	labelKeypair = "cloudbroker.io/keypair"
	// labelTagPrefix marks a network tag stored as a label.
	labelTagPrefix = "tag.cloudbroker.io/"

	publicNetwork = "public"
	publicPortID  = "public"

	addressFixed    = "fixed"
	addressFloating = "floating"

	maxLabelValueLen = 63
)

// serverState is the status, power state and task of a server status.
type serverState struct {
	status string
	power  int
	task   string
}

var serverStates = map[hcloud.ServerStatus]serverState{
	hcloud.ServerStatusRunning:      {status: "ACTIVE", power: 1},
	hcloud.ServerStatusInitializing: {status: "BUILD", task: "spawning"},
	hcloud.ServerStatusStarting:     {status: "ACTIVE", power: 4, task: "powering-on"},
	hcloud.ServerStatusStopping:     {status: "ACTIVE", power: 1, task: "powering-off"},
	hcloud.ServerStatusOff:          {status: "SHUTOFF", power: 4},
	hcloud.ServerStatusDeleting:     {status: "ACTIVE", power: 1, task: "deleting"},
	hcloud.ServerStatusRebuilding:   {status: "REBUILD", power: 1, task: "rebuilding"},
	hcloud.ServerStatusMigrating:    {status: "MIGRATING", power: 1, task: "migrating"},
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// parseID parses a numeric hcloud id. Ids that cannot exist are reported as
// missing resources of kind.
func parseID(kind, id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, notFound(kind, id)
	}
	return n, nil
}

// serverPortID names the port of a server on a private network, or on the public
// network when networkID is publicPortID.
func serverPortID(serverID int64, networkID string) string {
	return formatID(serverID) + ":" + networkID
}

// splitPortID is the inverse of serverPortID.
func splitPortID(id string) (serverID int64, networkID string, err error) {
	server, network, ok := strings.Cut(id, ":")
	if !ok || network == "" {
		return 0, "", notFound("Port", id)
	}
	serverID, err = parseID("Port", server)
	if err != nil {
		return 0, "", notFound("Port", id)
	}
	return serverID, network, nil
}

// serverIndex resolves the references a server record only carries by id.
type serverIndex struct {
	networks    map[int64]*hcloud.Network
	floatingIPs map[int64][]*hcloud.FloatingIP
}

func newServerIndex(networks []*hcloud.Network, fips []*hcloud.FloatingIP) serverIndex {
	idx := serverIndex{
		networks:    make(map[int64]*hcloud.Network, len(networks)),
		floatingIPs: make(map[int64][]*hcloud.FloatingIP),
	}
	for _, n := range networks {
		idx.networks[n.ID] = n
	}
	for _, f := range fips {
		if f.Server != nil {
			idx.floatingIPs[f.Server.ID] = append(idx.floatingIPs[f.Server.ID], f)
		}
	}
	return idx
}

func (idx serverIndex) networkName(id int64) string {
	if n, ok := idx.networks[id]; ok && n.Name != "" {
		return n.Name
	}
	return formatID(id)
}

func (b *Backend) toServer(srv *hcloud.Server, idx serverIndex) cloudapi.Server {
	state, ok := serverStates[srv.Status]
	if !ok {
		state = serverState{status: "UNKNOWN"}
	}
	out := cloudapi.Server{
		ID:         formatID(srv.ID),
		Name:       srv.Name,
		Status:     state.status,
		PowerState: state.power,
		TaskState:  state.task,
		Addresses:  make(map[string][]cloudapi.Address),
		Metadata:   make(map[string]string, len(srv.Labels)),
		UserID:     b.username,
		KeyName:    srv.Labels[labelKeypair],
		Created:    srv.Created,
	}
	if srv.Image != nil {
		out.ImageID = formatID(srv.Image.ID)
	}
	if srv.ServerType != nil {
		out.FlavorID = formatID(srv.ServerType.ID)
	}
	if srv.Datacenter != nil && srv.Datacenter.Location != nil {
		out.Zone = srv.Datacenter.Location.Name
	}
	for k, v := range srv.Labels {
		if k != labelKeypair {
			out.Metadata[k] = v
		}
	}
	for _, v := range srv.Volumes {
		out.AttachedVolumes = append(out.AttachedVolumes, formatID(v.ID))
	}

	floatingNet := publicNetwork
	for i, pn := range srv.PrivateNet {
		if pn.Network == nil {
			continue
		}
		name := idx.networkName(pn.Network.ID)
		if i == 0 {
			floatingNet = name
		}
		out.Addresses[name] = append(out.Addresses[name], address(pn.IP, addressFixed))
	}
	if ip := srv.PublicNet.IPv4.IP; usable(ip) {
		out.Addresses[publicNetwork] = append(out.Addresses[publicNetwork], address(ip, addressFixed))
	}
	if ip := srv.PublicNet.IPv6.IP; usable(ip) {
		out.Addresses[publicNetwork] = append(out.Addresses[publicNetwork], address(ip, addressFixed))
	}
	for _, f := range idx.floatingIPs[srv.ID] {
		if usable(f.IP) {
			out.Addresses[floatingNet] = append(out.Addresses[floatingNet], address(f.IP, addressFloating))
		}
	}
	return out
}

func usable(ip net.IP) bool {
	return ip != nil && !ip.IsUnspecified()
}

func address(ip net.IP, kind string) cloudapi.Address {
	version := 6
	if ip.To4() != nil {
		version = 4
	}
	return cloudapi.Address{Addr: ip.String(), Version: version, Type: kind}
}

func toFlavor(st *hcloud.ServerType) cloudapi.Flavor {
	return cloudapi.Flavor{
		ID:    formatID(st.ID),
		Name:  st.Name,
		VCPUs: st.Cores,
		RAM:   int(st.Memory * 1024),
		Disk:  st.Disk,
	}
}

func toKeypair(key *hcloud.SSHKey) cloudapi.Keypair {
	return cloudapi.Keypair{Name: key.Name, PublicKey: key.PublicKey}
}

func toVolume(v *hcloud.Volume) cloudapi.Volume {
	out := cloudapi.Volume{
		ID:     formatID(v.ID),
		Name:   v.Name,
		Status: string(v.Status),
		Size:   v.Size,
	}
	if v.Server != nil {
		out.Status = "in-use"
		out.Attachments = []cloudapi.VolumeAttachment{toAttachment(v)}
	}
	return out
}

func toAttachment(v *hcloud.Volume) cloudapi.VolumeAttachment {
	return cloudapi.VolumeAttachment{
		ID:       formatID(v.ID),
		ServerID: formatID(v.Server.ID),
		VolumeID: formatID(v.ID),
		Device:   v.LinuxDevice,
	}
}

func toImage(img *hcloud.Image) cloudapi.Image {
	out := cloudapi.Image{
		ID:         formatID(img.ID),
		Name:       img.Name,
		Status:     "queued",
		Visibility: "public",
		Size:       int64(img.ImageSize * (1 << 30)),
		Properties: maps.Clone(img.Labels),
	}
	if out.Name == "" {
		out.Name = img.Description
	}
	if img.Status == hcloud.ImageStatusAvailable {
		out.Status = "active"
	}
	if img.Type != hcloud.ImageTypeSystem && img.Type != hcloud.ImageTypeApp {
		out.Visibility = "private"
	}
	if out.Properties == nil {
		out.Properties = make(map[string]string)
	}
	if img.OSFlavor != "" {
		out.Properties["os_distro"] = img.OSFlavor
	}
	if img.Architecture != "" {
		out.Properties["architecture"] = string(img.Architecture)
	}
	return out
}

func (b *Backend) toNetwork(n *hcloud.Network) cloudapi.Network {
	out := cloudapi.Network{ID: formatID(n.ID), Name: n.Name, ProjectID: b.projectID}
	for k := range n.Labels {
		if tag, ok := strings.CutPrefix(k, labelTagPrefix); ok {
			out.Tags = append(out.Tags, tag)
		}
	}
	return out
}

func (b *Backend) publicNetwork() cloudapi.Network {
	return cloudapi.Network{ID: publicPortID, Name: publicNetwork, ProjectID: b.projectID, External: true, Shared: true}
}

func toFloatingIP(f *hcloud.FloatingIP) cloudapi.FloatingIP {
	out := cloudapi.FloatingIP{ID: formatID(f.ID), FloatingNetworkID: publicPortID}
	if f.IP != nil {
		out.FloatingIPAddress = f.IP.String()
	}
	if f.Server != nil {
		out.PortID = serverPortID(f.Server.ID, publicPortID)
	}
	return out
}

// labelValue turns s into a valid label value: at most 63 characters of
// [a-zA-Z0-9._-] that start and end alphanumeric. Other characters become
// underscores.
func labelValue(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if len(mapped) > maxLabelValueLen {
		mapped = mapped[:maxLabelValueLen]
	}
	return strings.TrimFunc(mapped, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}
