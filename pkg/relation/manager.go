package relation

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clusterbay/pacelink/pkg/crm"
	"github.com/clusterbay/pacelink/pkg/events"
	"github.com/clusterbay/pacelink/pkg/log"
	"github.com/clusterbay/pacelink/pkg/metrics"
	"github.com/clusterbay/pacelink/pkg/storage"
)

// DefaultMcastPort is the corosync multicast port published when the
// caller does not supply one.
const DefaultMcastPort = 4440

const (
	localPrefix     = "local-data."
	resourcesKey    = "resources"
	dataChangedKey  = "data_changed."
	bindFingerprint = "corosync-bind"
)

// Config configures a relation resource manager.
type Config struct {
	// RelationName names the relation this manager serves, e.g. "ha".
	RelationName string
	Store        storage.Store
	Channel      Channel
	// Broker receives lifecycle events. Optional.
	Broker *events.Broker
}

// Manager drives the resource half of the relation: it keeps the current
// resource configuration in the local store, applies incremental changes,
// and publishes the result to the peer only when the content fingerprint
// moved.
//
// Each operation runs to completion in reaction to a single relation
// event; a Manager is never mutated concurrently.
type Manager struct {
	relationName string
	store        storage.Store
	channel      Channel
	broker       *events.Broker
	state        State
	logger       zerolog.Logger
}

// NewManager creates a manager over the given store and channel.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("relation manager requires a store")
	}
	if cfg.Channel == nil {
		return nil, errors.New("relation manager requires a channel")
	}
	name := cfg.RelationName
	if name == "" {
		name = "ha"
	}
	return &Manager{
		relationName: name,
		store:        cfg.Store,
		channel:      cfg.Channel,
		broker:       cfg.Broker,
		state:        StateInitial,
		logger:       log.WithComponent("relation"),
	}, nil
}

// --- local store access ---

func (m *Manager) getLocal(key string, out any) (bool, error) {
	return m.store.Get(localPrefix+key, out)
}

func (m *Manager) setLocal(key string, value any) error {
	return m.store.Set(localPrefix+key, value)
}

// LoadResources returns the currently stored resource configuration, or an
// empty one when none has been stored yet.
func (m *Manager) LoadResources() (*crm.CRM, error) {
	cfg := crm.New()
	if _, err := m.getLocal(resourcesKey, cfg); err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	return cfg, nil
}

func (m *Manager) saveResources(cfg *crm.CRM) error {
	if err := m.setLocal(resourcesKey, cfg); err != nil {
		return fmt.Errorf("save resources: %w", err)
	}
	return nil
}

// dataChanged fingerprints data (md5 over its sorted-key JSON encoding)
// and reports whether it differs from the fingerprint stored under id.
// The new fingerprint is returned so the caller can commit it once the
// dependent writes succeed; committing early would make a failed publish
// look already-delivered on the next replay.
func (m *Manager) dataChanged(id string, data any) (bool, string, error) {
	serialized, err := json.Marshal(data)
	if err != nil {
		return false, "", fmt.Errorf("fingerprint %s: %w", id, err)
	}
	sum := md5.Sum(serialized)
	newHash := hex.EncodeToString(sum[:])

	var oldHash string
	if _, err := m.getLocal(dataChangedKey+id, &oldHash); err != nil {
		return false, "", err
	}
	return oldHash != newHash, newHash, nil
}

func (m *Manager) commitFingerprint(id, hash string) error {
	return m.setLocal(dataChangedKey+id, hash)
}

// --- incremental resource operations ---

// AddVIP adds a virtual IP resource for the named service and regroups all
// of the service's VIPs into grp_<name>_vips.
func (m *Manager) AddVIP(name, vip, iface, netmask string) error {
	cfg, err := m.LoadResources()
	if err != nil {
		return err
	}
	if err := cfg.Add(crm.NewVirtualIP(name, vip, iface, netmask)); err != nil {
		return err
	}
	m.regroup(cfg, fmt.Sprintf("grp_%s_vips", name), "_vip")
	m.logger.Info().Str("service", name).Str("vip", vip).Msg("added vip resource")
	return m.saveResources(cfg)
}

// AddDNSHA adds a DNS record resource for the named service and regroups
// all of the service's hostname resources into grp_<name>_hostnames.
func (m *Manager) AddDNSHA(name, ip, fqdn, endpointType string) error {
	cfg, err := m.LoadResources()
	if err != nil {
		return err
	}
	if err := cfg.Add(crm.NewDNSEntry(name, ip, fqdn, endpointType)); err != nil {
		return err
	}
	m.regroup(cfg, fmt.Sprintf("grp_%s_hostnames", name), "_hostname")
	m.logger.Info().Str("service", name).Str("fqdn", fqdn).Msg("added dns ha resource")
	return m.saveResources(cfg)
}

// AddInitService puts an init system service under cluster management.
func (m *Manager) AddInitService(name, service string, clone bool) error {
	cfg, err := m.LoadResources()
	if err != nil {
		return err
	}
	if err := cfg.Add(crm.NewInitService(name, service, clone)); err != nil {
		return err
	}
	m.logger.Info().Str("service", name).Str("init", service).Msg("added init service resource")
	return m.saveResources(cfg)
}

// AddSystemdService puts a systemd service under cluster management.
func (m *Manager) AddSystemdService(name, service string, clone bool) error {
	cfg, err := m.LoadResources()
	if err != nil {
		return err
	}
	if err := cfg.Add(crm.NewSystemdService(name, service, clone)); err != nil {
		return err
	}
	m.logger.Info().Str("service", name).Str("systemd", service).Msg("added systemd service resource")
	return m.saveResources(cfg)
}

// regroup rebuilds the derived group of all resource ids carrying the
// given suffix, sorted for determinism. A group needs at least two
// members.
func (m *Manager) regroup(cfg *crm.CRM, group, suffix string) {
	var members []string
	for id := range cfg.Resources {
		if strings.HasSuffix(id, suffix) {
			members = append(members, id)
		}
	}
	if len(members) < 2 {
		return
	}
	sort.Strings(members)
	cfg.Group(group, members, nil)
}

// DeleteResource removes each id from the stored configuration and marks
// it for deletion on the peer.
func (m *Manager) DeleteResource(ids ...string) error {
	cfg, err := m.LoadResources()
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(cfg.Resources, id)
		delete(cfg.ResourceParams, id)
		cfg.InitServices = remove(cfg.InitServices, id)
		cfg.SystemdServices = remove(cfg.SystemdServices, id)
		cfg.AddDeleteResource(id)
		metrics.ResourceDeletes.Inc()
	}
	m.logger.Info().Strs("resources", ids).Msg("marked resources for deletion")
	if m.broker != nil {
		m.broker.Publish(events.Event{
			Type:     events.EventResourcesDeleted,
			Relation: m.relationName,
		})
	}
	return m.saveResources(cfg)
}

func remove(list []string, item string) []string {
	out := list[:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}

// --- publication ---

// ManageResources publishes the configuration to the local store and the
// peer, as individually JSON-encoded json_<field> keys. Replaying an
// unchanged configuration publishes nothing.
func (m *Manager) ManageResources(cfg *crm.CRM) error {
	data, err := publishData(cfg)
	if err != nil {
		return err
	}

	changed, hash, err := m.dataChanged(resourcesKey, data)
	if err != nil {
		return err
	}
	if !changed {
		metrics.PublishNoops.Inc()
		m.logger.Debug().Msg("resource configuration unchanged, skipping publish")
		return nil
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := m.setLocal(k, data[k]); err != nil {
			return err
		}
		if err := m.channel.Publish(k, data[k]); err != nil {
			return fmt.Errorf("publish %s: %w", k, err)
		}
	}
	if err := m.commitFingerprint(resourcesKey, hash); err != nil {
		return err
	}

	metrics.ResourcePublishes.Inc()
	m.logger.Info().Int("fields", len(data)).Msg("published resource configuration")
	if m.broker != nil {
		m.broker.Publish(events.Event{
			Type:     events.EventResourcesPublished,
			Relation: m.relationName,
		})
	}
	return nil
}

// publishData flattens the non-empty fields of a configuration into
// json_<field> keys holding their sorted-key JSON serialization.
func publishData(cfg *crm.CRM) (map[string]string, error) {
	data := map[string]string{}
	addMap := func(field string, v map[string]string) error {
		if len(v) == 0 {
			return nil
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		data["json_"+field] = string(encoded)
		return nil
	}
	addList := func(field string, v []string) error {
		if len(v) == 0 {
			return nil
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		data["json_"+field] = string(encoded)
		return nil
	}

	for _, err := range []error{
		addMap("resources", cfg.Resources),
		addList("delete_resources", cfg.DeleteResources),
		addMap("resource_params", cfg.ResourceParams),
		addMap("groups", cfg.Groups),
		addMap("ms", cfg.MasterSlaves),
		addMap("orders", cfg.Orders),
		addMap("colocations", cfg.Colocations),
		addMap("clones", cfg.Clones),
		addMap("locations", cfg.Locations),
		addList("init_services", cfg.InitServices),
		addList("systemd_services", cfg.SystemdServices),
	} {
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// BindResources publishes the corosync binding parameters when they
// changed, then republishes the stored resource configuration.
func (m *Manager) BindResources(iface string, mcastport int) error {
	if mcastport == 0 {
		mcastport = DefaultMcastPort
	}
	if err := m.bindOn(iface, mcastport); err != nil {
		return err
	}
	cfg, err := m.LoadResources()
	if err != nil {
		return err
	}
	return m.ManageResources(cfg)
}

func (m *Manager) bindOn(iface string, mcastport int) error {
	data := map[string]string{}
	if iface != "" {
		data["corosync_bindiface"] = iface
	}
	if mcastport != 0 {
		data["corosync_mcastport"] = strconv.Itoa(mcastport)
	}
	if len(data) == 0 {
		return nil
	}

	changed, hash, err := m.dataChanged(bindFingerprint, data)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	for k, v := range data {
		if err := m.setLocal(k, v); err != nil {
			return err
		}
		if err := m.channel.Publish(k, v); err != nil {
			return fmt.Errorf("publish %s: %w", k, err)
		}
	}
	if err := m.commitFingerprint(bindFingerprint, hash); err != nil {
		return err
	}
	m.logger.Info().Str("iface", iface).Int("mcastport", mcastport).Msg("published corosync binding")
	return nil
}

// --- peer data ---

// GetRemoteAll collects the values every peer unit presents for key,
// de-duplicated. When no unit supplied the key and a default was given,
// the default is returned as a single-element result.
func (m *Manager) GetRemoteAll(key, defaultValue string) ([]string, error) {
	collected, err := m.channel.Collect(key)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", key, err)
	}

	seen := map[string]bool{}
	var values []string
	for _, v := range collected {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	if len(values) == 0 && defaultValue != "" {
		return []string{defaultValue}, nil
	}
	return values, nil
}

// IsClustered reports whether any peer unit declared the cluster formed.
func (m *Manager) IsClustered() bool {
	values, err := m.GetRemoteAll("clustered", "")
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to read clustered flag")
		return false
	}
	for _, v := range values {
		switch strings.ToLower(v) {
		case "true", "yes":
			metrics.Clustered.Set(1)
			return true
		}
	}
	metrics.Clustered.Set(0)
	return false
}
