/*
Package crm builds declarative Pacemaker resource configuration for the
hacluster relation.

A CRM value accumulates named resource entries (primitives, groups, clones,
master/slave resources, colocation/order/location constraints) together with
the lists of init and systemd services the cluster should take over. Each
entry is a formatted specification string in the shape the crm configure
CLI expects, so the peer can replay it verbatim.

Resources can be registered directly through the builder methods:

	c := crm.New()
	c.Primitive("res_neutron_haproxy", "lsb:haproxy", &crm.PrimitiveOptions{
		Op: []string{`monitor interval="5s"`},
	})
	c.AddInitServices("haproxy")
	c.Clone("cl_nova_haproxy", "res_neutron_haproxy", nil)

or through a Descriptor, which hides the naming and monitoring conventions
for a logical resource kind:

	c.Add(crm.NewVirtualIP("mysql", "10.110.5.43", "ens3", "24"))

The built-in descriptors are InitService, SystemdService, VirtualIP and
DNSEntry; new kinds only need to implement ConfigureResource.

The formatted strings and the JSON field names are a wire contract shared
with the consuming hacluster service. Do not change the spacing or key
derivation of existing entries; already-deployed clusters identify
resources by these exact ids.

See http://crmsh.github.io/man for the definitions of the underlying
Pacemaker resource kinds.
*/
package crm
