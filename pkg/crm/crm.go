package crm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Ordering constraint kinds (the score value of an order constraint).
const (
	Mandatory = "Mandatory"
	Optional  = "Optional"
	Serialize = "Serialize"
)

// Constraint weights.
const (
	Infinity    = "inf"
	NegInfinity = "-inf"
)

// Weights aliased to their interpretations for colocation constraints.
const (
	Always = Infinity
	Never  = NegInfinity
)

// CRM describes the Pacemaker resource configuration requested from the
// cluster manager. Each collection maps a resource id to its formatted
// specification string, in the form the crm configure CLI expects.
//
// The JSON field names are part of the wire contract: each non-empty
// collection is published to the peer as json_<field>.
type CRM struct {
	Resources       map[string]string `json:"resources"`
	DeleteResources []string          `json:"delete_resources"`
	ResourceParams  map[string]string `json:"resource_params"`
	Groups          map[string]string `json:"groups"`
	MasterSlaves    map[string]string `json:"ms"`
	Orders          map[string]string `json:"orders"`
	Colocations     map[string]string `json:"colocations"`
	Clones          map[string]string `json:"clones"`
	Locations       map[string]string `json:"locations"`
	InitServices    []string          `json:"init_services"`
	SystemdServices []string          `json:"systemd_services"`
}

// New creates an empty resource configuration. All collections are
// initialized so the serialized form always carries every field.
func New() *CRM {
	return &CRM{
		Resources:       map[string]string{},
		DeleteResources: []string{},
		ResourceParams:  map[string]string{},
		Groups:          map[string]string{},
		MasterSlaves:    map[string]string{},
		Orders:          map[string]string{},
		Colocations:     map[string]string{},
		Clones:          map[string]string{},
		Locations:       map[string]string{},
		InitServices:    []string{},
		SystemdServices: []string{},
	}
}

// PrimitiveOptions holds the optional clauses of a primitive resource.
// Empty values contribute nothing to the specification.
type PrimitiveOptions struct {
	Description string
	Params      []string
	Meta        []string
	Utilization []string
	Operations  []string
	Op          []string
}

// CloneOptions holds the optional clauses shared by clone, group and
// master/slave resources.
type CloneOptions struct {
	Description string
	Meta        []string
	Params      []string
}

// ColocationOptions holds the optional clauses of a colocation constraint.
type ColocationOptions struct {
	NodeAttribute string
}

// OrderOptions holds the optional clauses of an ordering constraint.
type OrderOptions struct {
	// Symmetrical, when set, controls whether the resources are stopped
	// in reverse order.
	Symmetrical *bool
}

// LocationOptions holds the optional clauses of a location constraint.
type LocationOptions struct {
	Attributes []string
	Rules      []string
}

// Primitive registers a resource managed by the given agent, for example:
//
//	c.Primitive("www8", "apache", &crm.PrimitiveOptions{
//		Params:     []string{"configfile=/etc/apache/www8.conf"},
//		Operations: []string{"$id-ref=apache_ops"},
//	})
//
// Clauses are emitted in the order the crm manual specifies: description,
// params, meta, utilization, operations, op. The parameter entry is only
// stored when at least one clause was supplied.
func (c *CRM) Primitive(name, agent string, opts *PrimitiveOptions) {
	c.Resources[name] = agent
	if opts == nil {
		return
	}

	var spec strings.Builder
	if opts.Description != "" {
		fmt.Fprintf(&spec, "description=%q", opts.Description)
	}
	for _, clause := range []struct {
		key    string
		values []string
	}{
		{"params", opts.Params},
		{"meta", opts.Meta},
		{"utilization", opts.Utilization},
		{"operations", opts.Operations},
		{"op", opts.Op},
	} {
		if len(clause.values) == 0 {
			continue
		}
		spec.WriteString(" " + formatTokens(clause.key, clause.values))
	}

	if spec.Len() > 0 {
		c.ResourceParams[name] = spec.String()
	}
}

// Clone creates a resource which should run on all nodes.
func (c *CRM) Clone(name, resource string, opts *CloneOptions) {
	c.Clones[name] = cloneSpec(resource, opts)
}

// MS creates a master/slave variant of the given resource.
func (c *CRM) MS(name, resource string, opts *CloneOptions) {
	c.MasterSlaves[name] = cloneSpec(resource, opts)
}

func cloneSpec(resource string, opts *CloneOptions) string {
	spec := resource
	if opts == nil {
		return spec
	}
	if opts.Description != "" {
		spec += fmt.Sprintf(" description=%q", opts.Description)
	}
	if len(opts.Meta) > 0 {
		spec += " " + formatTokens("meta", opts.Meta)
	}
	if len(opts.Params) > 0 {
		spec += " " + formatTokens("params", opts.Params)
	}
	return spec
}

// Group creates a named group of resources, in the given order.
func (c *CRM) Group(name string, resources []string, opts *CloneOptions) {
	spec := strings.Join(resources, " ")
	if opts != nil {
		if opts.Description != "" {
			spec += fmt.Sprintf(" description=%q", opts.Description)
		}
		if len(opts.Meta) > 0 {
			spec += " " + formatTokens("meta", opts.Meta)
		}
		if len(opts.Params) > 0 {
			spec += " " + formatTokens("params", opts.Params)
		}
	}
	c.Groups[name] = spec
}

// Colocation constrains where resources run relative to each other. A
// positive score keeps the resources together, Never keeps them apart:
//
//	c.Colocation("console_with_vip", crm.Always,
//		[]string{"nova-console", "vip"}, nil)
//
// At least two resources are required.
func (c *CRM) Colocation(name, score string, resources []string, opts *ColocationOptions) error {
	if len(resources) < 2 {
		return fmt.Errorf("colocation %s: at least two resources required, got %d", name, len(resources))
	}
	spec := fmt.Sprintf("%s: %s", score, strings.Join(resources, " "))
	if opts != nil && opts.NodeAttribute != "" {
		spec += " node-attribute=" + opts.NodeAttribute
	}
	c.Colocations[name] = spec
	return nil
}

// Order constrains the relative start/stop sequencing of resources. An
// empty score leaves the kind prefix out. At least two resources are
// required.
func (c *CRM) Order(name, score string, resources []string, opts *OrderOptions) error {
	if len(resources) < 2 {
		return fmt.Errorf("order %s: at least two resources required, got %d", name, len(resources))
	}
	spec := ""
	if score != "" {
		spec = score + ":"
	}
	spec += " " + strings.Join(resources, " ")
	if opts != nil && opts.Symmetrical != nil {
		spec += " symmetrical=" + strconv.FormatBool(*opts.Symmetrical)
	}
	c.Orders[name] = spec
	return nil
}

// Location defines node placement preferences for a resource.
func (c *CRM) Location(name, resource string, opts *LocationOptions) {
	spec := resource
	if opts != nil {
		if len(opts.Attributes) > 0 {
			spec += " " + strings.Join(opts.Attributes, " ")
		}
		if len(opts.Rules) > 0 {
			spec += " " + formatTokens("rule", opts.Rules)
		}
	}
	c.Locations[name] = spec
}

// AddDeleteResource marks a resource for removal. Adding an id already
// present is a no-op.
func (c *CRM) AddDeleteResource(id string) {
	c.DeleteResources = appendUnique(c.DeleteResources, id)
}

// DeleteResource marks one or more resources for removal, preserving
// order and dropping duplicates.
func (c *CRM) DeleteResource(ids ...string) {
	c.DeleteResources = appendUnique(c.DeleteResources, ids...)
}

// AddInitServices notes services managed through the init system. The
// cluster manager disables and stops them before taking ownership.
func (c *CRM) AddInitServices(names ...string) {
	c.InitServices = appendUnique(c.InitServices, names...)
}

// AddSystemdServices notes services managed through systemd.
func (c *CRM) AddSystemdServices(names ...string) {
	c.SystemdServices = appendUnique(c.SystemdServices, names...)
}

// Add applies a resource descriptor to this configuration.
func (c *CRM) Add(desc Descriptor) error {
	if desc == nil {
		return errors.New("invalid resource descriptor: nil")
	}
	return desc.ConfigureResource(c)
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		present := false
		for _, existing := range list {
			if existing == item {
				present = true
				break
			}
		}
		if !present {
			list = append(list, item)
		}
	}
	return list
}
