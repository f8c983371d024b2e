package config

import "strings"

// NetworkResource describes one supported Microsoft.Network resource type.
type NetworkResource struct {
	// Key is the config/report identifier, e.g. "virtual_networks".
	Key string
	// ARMType is the full resource type used when listing, e.g.
	// "Microsoft.Network/virtualNetworks".
	ARMType string
}

// DisplayName renders the key the way the reports title it,
// e.g. "virtual_networks" -> "Virtual Networks".
func (n NetworkResource) DisplayName() string {
	words := strings.Split(n.Key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

type networkResources []NetworkResource

// SupportedNetworkResources is the registry of network resource types the
// collector knows how to enumerate and health-check.
var SupportedNetworkResources = networkResources{
	{
		Key:     "er_vpn_connections",
		ARMType: "Microsoft.Network/connections",
	},
	{
		Key:     "expressroute_circuits",
		ARMType: "Microsoft.Network/expressRouteCircuits",
	},
	{
		Key:     "express_route_gateways",
		ARMType: "Microsoft.Network/expressRouteGateways",
	},
	{
		Key:     "network_interfaces",
		ARMType: "Microsoft.Network/networkInterfaces",
	},
	{
		Key:     "network_security_groups",
		ARMType: "Microsoft.Network/networkSecurityGroups",
	},
	{
		Key:     "network_virtual_appliances",
		ARMType: "Microsoft.Network/networkVirtualAppliances",
	},
	{
		Key:     "private_endpoints",
		ARMType: "Microsoft.Network/privateEndpoints",
	},
	{
		Key:     "public_ips",
		ARMType: "Microsoft.Network/publicIPAddresses",
	},
	{
		Key:     "route_tables",
		ARMType: "Microsoft.Network/routeTables",
	},
	{
		Key:     "virtual_network_gateways",
		ARMType: "Microsoft.Network/virtualNetworkGateways",
	},
	{
		Key:     "virtual_networks",
		ARMType: "Microsoft.Network/virtualNetworks",
	},
}

func (nr networkResources) Get(key string) *NetworkResource {
	for i := range nr {
		if nr[i].Key == key {
			return &nr[i]
		}
	}
	return nil
}

func (nr networkResources) Keys() []string {
	keys := make([]string, 0, len(nr))
	for _, r := range nr {
		keys = append(keys, r.Key)
	}
	return keys
}
