package crm

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
)

// Standard monitoring defaults attached to managed resources.
const (
	monitorMeta  = `migration-threshold="INFINITY" failure-timeout="5s"`
	serviceOp    = `monitor interval="5s"`
	vipMonitorOp = `monitor timeout="20s" interval="10s" depth="0"`
)

// Descriptor is a transient builder that knows how to register one logical
// resource (and its supporting entries) in a CRM configuration. A virtual
// IP, for example, hides the agent selection and parameter formatting
// behind a single descriptor.
type Descriptor interface {
	ConfigureResource(c *CRM) error
}

// InitService describes an init system (sysvinit/upstart) service to be
// managed by the cluster.
type InitService struct {
	ServiceName string
	InitName    string
	Clone       bool
}

// NewInitService returns a descriptor for an init system service. When
// clone is true the service runs on every node.
func NewInitService(serviceName, initName string, clone bool) *InitService {
	return &InitService{ServiceName: serviceName, InitName: initName, Clone: clone}
}

func (s *InitService) ConfigureResource(c *CRM) error {
	key := fmt.Sprintf("res_%s_%s", identifier(s.ServiceName), identifier(s.InitName))
	c.Primitive(key, "lsb:"+s.InitName, &PrimitiveOptions{
		Op: []string{serviceOp},
	})
	c.AddInitServices(s.InitName)
	if s.Clone {
		c.Clone("cl_"+key, key, nil)
	}
	return nil
}

// SystemdService describes a systemd service to be managed by the cluster.
type SystemdService struct {
	ServiceName string
	SystemdName string
	Clone       bool
}

// NewSystemdService returns a descriptor for a systemd service. When clone
// is true the service runs on every node.
func NewSystemdService(serviceName, systemdName string, clone bool) *SystemdService {
	return &SystemdService{ServiceName: serviceName, SystemdName: systemdName, Clone: clone}
}

func (s *SystemdService) ConfigureResource(c *CRM) error {
	key := fmt.Sprintf("res_%s_%s", identifier(s.ServiceName), identifier(s.SystemdName))
	c.Primitive(key, "systemd:"+s.SystemdName, &PrimitiveOptions{
		Meta: []string{monitorMeta},
		Op:   []string{serviceOp},
	})
	c.AddSystemdServices(s.SystemdName)
	if s.Clone {
		c.Clone("cl_"+key, key, nil)
	}
	return nil
}

// VirtualIP describes a floating IP address resource. The address family
// selects the agent: IPaddr2 for IPv4, IPv6addr for IPv6.
type VirtualIP struct {
	ServiceName string
	VIP         string
	NIC         string
	CIDR        string
}

// NewVirtualIP returns a descriptor for a virtual IP. NIC and CIDR may be
// empty; without a NIC the resource id is derived from a short stable
// fingerprint of the address instead.
func NewVirtualIP(serviceName, vip, nic, cidr string) *VirtualIP {
	return &VirtualIP{ServiceName: serviceName, VIP: vip, NIC: nic, CIDR: cidr}
}

func (v *VirtualIP) ConfigureResource(c *CRM) error {
	addr, err := netip.ParseAddr(v.VIP)
	if err != nil {
		return fmt.Errorf("virtual ip %q: %w", v.VIP, err)
	}

	qualifier := v.NIC
	if qualifier == "" {
		qualifier = shortFingerprint(v.VIP)
	}

	var agent, params string
	key := fmt.Sprintf("res_%s_%s_vip", identifier(v.ServiceName), qualifier)
	if addr.Is4() {
		agent = "ocf:heartbeat:IPaddr2"
		params = fmt.Sprintf("ip=%q", v.VIP)
	} else {
		agent = "ocf:heartbeat:IPv6addr"
		params = fmt.Sprintf("ipv6addr=%q", v.VIP)
		key = fmt.Sprintf("res_%s_%s_ipv6addr_vip", identifier(v.ServiceName), qualifier)
	}

	if v.NIC != "" {
		params += fmt.Sprintf(" nic=%q", v.NIC)
	}
	if v.CIDR != "" {
		params += fmt.Sprintf(" cidr_netmask=%q", v.CIDR)
	}

	c.Primitive(key, agent, &PrimitiveOptions{
		Params: []string{params},
		Meta:   []string{monitorMeta},
		Op:     []string{vipMonitorOp},
	})
	return nil
}

// DNSEntry describes a DNS record resource pointing a FQDN at an address,
// managed through the MAAS dns agent.
type DNSEntry struct {
	ServiceName  string
	IP           string
	FQDN         string
	EndpointType string
}

// NewDNSEntry returns a descriptor for a DNS record resource.
func NewDNSEntry(serviceName, ip, fqdn, endpointType string) *DNSEntry {
	return &DNSEntry{ServiceName: serviceName, IP: ip, FQDN: fqdn, EndpointType: endpointType}
}

func (d *DNSEntry) ConfigureResource(c *CRM) error {
	key := fmt.Sprintf("res_%s_%s_hostname", identifier(d.ServiceName), identifier(d.EndpointType))
	// The leading space inside the params value is part of the published
	// byte format consumed by the peer.
	c.Primitive(key, "ocf:maas:dns", &PrimitiveOptions{
		Params: []string{fmt.Sprintf(" fqdn=%q ip_address=%q", d.FQDN, d.IP)},
	})
	return nil
}

// identifier normalizes a name into a resource id fragment.
func identifier(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// shortFingerprint derives a stable 7 character fingerprint from a value.
// Resource ids for unnamed VIPs embed it, so the derivation must never
// change once deployed (SHA-1, first 7 hex characters).
func shortFingerprint(value string) string {
	sum := sha1.Sum([]byte(value))
	return hex.EncodeToString(sum[:])[:7]
}
