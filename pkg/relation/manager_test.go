package relation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterbay/pacelink/pkg/crm"
	"github.com/clusterbay/pacelink/pkg/events"
	"github.com/clusterbay/pacelink/pkg/storage"
)

// countingChannel wraps InMemoryChannel and counts publishes, so tests can
// observe the publish/no-op contract.
type countingChannel struct {
	*InMemoryChannel
	publishes int
}

func (c *countingChannel) Publish(key, value string) error {
	c.publishes++
	return c.InMemoryChannel.Publish(key, value)
}

func newTestManager(t *testing.T) (*Manager, *countingChannel) {
	t.Helper()
	channel := &countingChannel{InMemoryChannel: NewInMemoryChannel()}
	mgr, err := NewManager(&Config{
		RelationName: "ha",
		Store:        storage.NewMemStore(),
		Channel:      channel,
	})
	require.NoError(t, err)
	return mgr, channel
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(&Config{Channel: NewInMemoryChannel()})
	assert.Error(t, err)

	_, err = NewManager(&Config{Store: storage.NewMemStore()})
	assert.Error(t, err)
}

func TestAddVIP(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.AddVIP("mysql", "10.110.5.43", "", ""))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)

	assert.Equal(t, "ocf:heartbeat:IPaddr2", cfg.Resources["res_mysql_4b8ce37_vip"])
	assert.Equal(t,
		`  params ip="10.110.5.43"`+
			`  meta migration-threshold="INFINITY" failure-timeout="5s"`+
			`  op monitor timeout="20s" interval="10s" depth="0"`,
		cfg.ResourceParams["res_mysql_4b8ce37_vip"])
	assert.Empty(t, cfg.Groups, "a single vip does not form a group")
}

func TestAddAdditionalVIP(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.AddVIP("mysql", "10.110.5.43", "", ""))
	require.NoError(t, mgr.AddVIP("mysql", "10.120.5.43", "", ""))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)

	assert.Len(t, cfg.Resources, 2)
	assert.Equal(t,
		"res_mysql_1993276_vip res_mysql_4b8ce37_vip",
		cfg.Groups["grp_mysql_vips"])
}

func TestAddVIPIdempotent(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.AddVIP("mysql", "10.110.5.43", "", ""))
	require.NoError(t, mgr.AddVIP("mysql", "10.110.5.43", "", ""))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)
	assert.Len(t, cfg.Resources, 1)
	assert.Empty(t, cfg.Groups)
}

func TestAddDNSHA(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.AddDNSHA("keystone", "10.110.5.43", "keystone.public", "public"))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)

	assert.Equal(t, "ocf:maas:dns", cfg.Resources["res_keystone_public_hostname"])
	assert.Equal(t,
		`  params  fqdn="keystone.public" ip_address="10.110.5.43"`,
		cfg.ResourceParams["res_keystone_public_hostname"])
	assert.Empty(t, cfg.Groups)
}

func TestAddAdditionalDNSHA(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.AddDNSHA("keystone", "10.110.5.43", "keystone.public", "public"))
	require.NoError(t, mgr.AddDNSHA("keystone", "10.120.5.43", "keystone.admin", "admin"))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)

	assert.Equal(t,
		"res_keystone_admin_hostname res_keystone_public_hostname",
		cfg.Groups["grp_keystone_hostnames"])
}

func TestAddInitService(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.AddInitService("mysql", "telnetd", true))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)

	assert.Equal(t, "lsb:telnetd", cfg.Resources["res_mysql_telnetd"])
	assert.Equal(t, []string{"telnetd"}, cfg.InitServices)
	assert.Equal(t, "res_mysql_telnetd", cfg.Clones["cl_res_mysql_telnetd"])
}

func TestAddSystemdService(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.AddSystemdService("mysql", "telnetd", true))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)

	assert.Equal(t, "systemd:telnetd", cfg.Resources["res_mysql_telnetd"])
	assert.Equal(t,
		`  meta migration-threshold="INFINITY" failure-timeout="5s"  op monitor interval="5s"`,
		cfg.ResourceParams["res_mysql_telnetd"])
	assert.Equal(t, []string{"telnetd"}, cfg.SystemdServices)
}

func TestDeleteResource(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.AddVIP("mysql", "10.110.5.43", "ens3", "24"))
	require.NoError(t, mgr.AddVIP("mysql", "10.120.5.43", "ens4", "24"))
	require.NoError(t, mgr.AddInitService("mysql", "telnetd", false))

	require.NoError(t, mgr.DeleteResource("res_mysql_ens3_vip"))
	require.NoError(t, mgr.DeleteResource("res_mysql_ens4_vip"))
	require.NoError(t, mgr.DeleteResource("telnetd"))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"res_mysql_ens3_vip", "res_mysql_ens4_vip", "telnetd"},
		cfg.DeleteResources)
	assert.NotContains(t, cfg.Resources, "res_mysql_ens3_vip")
	assert.NotContains(t, cfg.ResourceParams, "res_mysql_ens3_vip")
	assert.NotContains(t, cfg.Resources, "res_mysql_ens4_vip")
	assert.NotContains(t, cfg.ResourceParams, "res_mysql_ens4_vip")
	assert.NotContains(t, cfg.InitServices, "telnetd")
}

func TestDeleteResourceDeduplicates(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.DeleteResource("res_mysql_vip"))
	require.NoError(t, mgr.DeleteResource("res_mysql_vip"))

	cfg, err := mgr.LoadResources()
	require.NoError(t, err)
	assert.Equal(t, []string{"res_mysql_vip"}, cfg.DeleteResources)
}

func haproxyConfig(t *testing.T) *crm.CRM {
	t.Helper()
	cfg := crm.New()
	cfg.Primitive("res_neutron_haproxy", "lsb:haproxy", &crm.PrimitiveOptions{
		Op: []string{`monitor interval="5s"`},
	})
	cfg.AddInitServices("haproxy")
	cfg.Clone("cl_nova_haproxy", "res_neutron_haproxy", nil)
	return cfg
}

func TestManageResources(t *testing.T) {
	mgr, channel := newTestManager(t)
	require.NoError(t, mgr.ManageResources(haproxyConfig(t)))

	expected := map[string]string{
		"json_resources":       `{"res_neutron_haproxy":"lsb:haproxy"}`,
		"json_resource_params": `{"res_neutron_haproxy":"  op monitor interval=\"5s\""}`,
		"json_clones":          `{"cl_nova_haproxy":"res_neutron_haproxy"}`,
		"json_init_services":   `["haproxy"]`,
	}
	for key, want := range expected {
		got, ok := channel.Published(key)
		require.True(t, ok, "missing published key %s", key)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, len(expected), channel.publishes)
}

func TestManageResourcesNoChange(t *testing.T) {
	mgr, channel := newTestManager(t)
	require.NoError(t, mgr.ManageResources(haproxyConfig(t)))
	first := channel.publishes
	assert.Positive(t, first)

	// Byte-identical content must not republish.
	require.NoError(t, mgr.ManageResources(haproxyConfig(t)))
	assert.Equal(t, first, channel.publishes)
}

// flakyChannel fails the first failures publishes, then behaves like the
// in-memory channel.
type flakyChannel struct {
	*InMemoryChannel
	failures  int
	publishes int
}

func (c *flakyChannel) Publish(key, value string) error {
	if c.failures > 0 {
		c.failures--
		return errors.New("peer unreachable")
	}
	c.publishes++
	return c.InMemoryChannel.Publish(key, value)
}

func newFlakyManager(t *testing.T, failures int) (*Manager, *flakyChannel) {
	t.Helper()
	channel := &flakyChannel{InMemoryChannel: NewInMemoryChannel(), failures: failures}
	mgr, err := NewManager(&Config{
		RelationName: "ha",
		Store:        storage.NewMemStore(),
		Channel:      channel,
	})
	require.NoError(t, err)
	return mgr, channel
}

func TestManageResourcesRetriesAfterPublishFailure(t *testing.T) {
	mgr, channel := newFlakyManager(t, 1)
	require.Error(t, mgr.ManageResources(haproxyConfig(t)))

	// The failed publish must not be remembered as delivered: replaying
	// the identical configuration publishes everything.
	require.NoError(t, mgr.ManageResources(haproxyConfig(t)))
	assert.Equal(t, 4, channel.publishes)
	got, ok := channel.Published("json_resources")
	require.True(t, ok)
	assert.Equal(t, `{"res_neutron_haproxy":"lsb:haproxy"}`, got)
}

func TestBindResourcesRetriesAfterPublishFailure(t *testing.T) {
	mgr, channel := newFlakyManager(t, 1)
	require.Error(t, mgr.BindResources("eth0", 4440))

	require.NoError(t, mgr.BindResources("eth0", 4440))
	port, ok := channel.Published("corosync_mcastport")
	require.True(t, ok)
	assert.Equal(t, "4440", port)
	iface, ok := channel.Published("corosync_bindiface")
	require.True(t, ok)
	assert.Equal(t, "eth0", iface)
}

func TestManageResourcesRepublishesOnChange(t *testing.T) {
	mgr, channel := newTestManager(t)
	require.NoError(t, mgr.ManageResources(haproxyConfig(t)))
	first := channel.publishes

	cfg := haproxyConfig(t)
	cfg.AddInitServices("apache2")
	require.NoError(t, mgr.ManageResources(cfg))
	assert.Greater(t, channel.publishes, first)
}

func TestBindResources(t *testing.T) {
	mgr, channel := newTestManager(t)
	require.NoError(t, mgr.AddVIP("mysql", "10.110.5.43", "", ""))
	require.NoError(t, mgr.BindResources("tr34", 111))

	iface, ok := channel.Published("corosync_bindiface")
	require.True(t, ok)
	assert.Equal(t, "tr34", iface)

	port, ok := channel.Published("corosync_mcastport")
	require.True(t, ok)
	assert.Equal(t, "111", port)

	_, ok = channel.Published("json_resources")
	assert.True(t, ok, "stored resources should be published")
}

func TestBindResourcesDefaultPort(t *testing.T) {
	mgr, channel := newTestManager(t)
	require.NoError(t, mgr.BindResources("", 0))

	port, ok := channel.Published("corosync_mcastport")
	require.True(t, ok)
	assert.Equal(t, "4440", port)
}

func TestBindResourcesUnchangedBinding(t *testing.T) {
	mgr, channel := newTestManager(t)
	require.NoError(t, mgr.BindResources("eth0", 4440))
	first := channel.publishes

	require.NoError(t, mgr.BindResources("eth0", 4440))
	assert.Equal(t, first, channel.publishes)
}

func TestGetRemoteAll(t *testing.T) {
	mgr, channel := newTestManager(t)
	unit1 := channel.AddUnit()
	unit2 := channel.AddUnit()
	unit3 := channel.AddUnit()
	channel.SetUnitData(unit1, "key1", "value1")
	channel.SetUnitData(unit1, "key2", "value2")
	channel.SetUnitData(unit2, "key1", "value1")
	channel.SetUnitData(unit2, "key2", "value3")
	channel.SetUnitData(unit3, "key1", "value1")

	values, err := mgr.GetRemoteAll("key1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"value1"}, values, "values are de-duplicated")

	values, err = mgr.GetRemoteAll("key2", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"value2", "value3"}, values)

	values, err = mgr.GetRemoteAll("key100", "")
	require.NoError(t, err)
	assert.Empty(t, values)

	values, err = mgr.GetRemoteAll("key100", "defaultvalue")
	require.NoError(t, err)
	assert.Equal(t, []string{"defaultvalue"}, values)
}

func TestIsClustered(t *testing.T) {
	tests := []struct {
		name      string
		values    []string
		clustered bool
	}{
		{name: "no peers", values: nil, clustered: false},
		{name: "true", values: []string{"true"}, clustered: true},
		{name: "capitalized", values: []string{"True"}, clustered: true},
		{name: "yes", values: []string{"yes"}, clustered: true},
		{name: "yes uppercase", values: []string{"YES"}, clustered: true},
		{name: "false", values: []string{"false"}, clustered: false},
		{name: "garbage", values: []string{"flump"}, clustered: false},
		{name: "mixed", values: []string{"false", "yes"}, clustered: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, channel := newTestManager(t)
			for _, v := range tt.values {
				unit := channel.AddUnit()
				channel.SetUnitData(unit, "clustered", v)
			}
			assert.Equal(t, tt.clustered, mgr.IsClustered())
		})
	}
}

func TestLifecycle(t *testing.T) {
	broker := events.NewBroker()
	channel := &countingChannel{InMemoryChannel: NewInMemoryChannel()}
	mgr, err := NewManager(&Config{
		RelationName: "ha",
		Store:        storage.NewMemStore(),
		Channel:      channel,
		Broker:       broker,
	})
	require.NoError(t, err)

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	assert.Equal(t, StateInitial, mgr.State())
	assert.False(t, mgr.IsConnected())

	unit := channel.AddUnit()
	mgr.PeerJoined()
	assert.Equal(t, StateConnected, mgr.State())
	assert.True(t, mgr.IsConnected())
	assert.False(t, mgr.IsAvailable())
	assert.Equal(t, events.EventPeerJoined, (<-sub).Type)

	// Peer changed without the clustered flag: still only connected.
	mgr.PeerChanged()
	assert.Equal(t, StateConnected, mgr.State())

	channel.SetUnitData(unit, "clustered", "yes")
	mgr.PeerChanged()
	assert.Equal(t, StateAvailable, mgr.State())
	assert.True(t, mgr.IsAvailable())
	assert.Equal(t, events.EventHAReady, (<-sub).Type)

	channel.RemoveUnit(unit)
	mgr.PeerDeparted()
	assert.Equal(t, StateInitial, mgr.State())
	assert.False(t, mgr.IsConnected())
	assert.Equal(t, events.EventPeerDeparted, (<-sub).Type)
}

func TestPeerChangedNotClusteredDowngrades(t *testing.T) {
	mgr, channel := newTestManager(t)
	unit := channel.AddUnit()
	mgr.PeerJoined()

	channel.SetUnitData(unit, "clustered", "yes")
	mgr.PeerChanged()
	require.Equal(t, StateAvailable, mgr.State())

	// The peer withdrawing the clustered flag drops the relation back to
	// connected.
	channel.SetUnitData(unit, "clustered", "false")
	mgr.PeerChanged()
	assert.Equal(t, StateConnected, mgr.State())
	assert.False(t, mgr.IsAvailable())
	assert.True(t, mgr.IsConnected())
}
