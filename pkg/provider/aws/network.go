package aws

import (
	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
)

type SubnetKind string

const (
	SubnetPublic   SubnetKind = "Public"
	SubnetPrivate  SubnetKind = "Private"
	SubnetIsolated SubnetKind = "Isolated"
)

func (b *Builder) Vpc(name string, cidr string) construct.ResourceId {
	return b.Add(VPC_TYPE, name, construct.Properties{
		"CidrBlock":          cidr,
		"EnableDnsHostnames": true,
		"EnableDnsSupport":   true,
		"InstanceTenancy":    "default",
		"Tags":               b.NameTag(name),
	})
}

// Subnet declares a subnet in the stack region's azIndex'th availability zone.
func (b *Builder) Subnet(name string, vpc construct.ResourceId, cidr any, azIndex int, kind SubnetKind) construct.ResourceId {
	tags := append(b.NameTag(name), Tag("grace:subnet-type", string(kind)))
	return b.Add(SUBNET_TYPE, name, construct.Properties{
		"VpcId":               vpc,
		"CidrBlock":           cidr,
		"AvailabilityZone":    intrinsic.Select{Index: azIndex, List: intrinsic.GetAZs{}},
		"MapPublicIpOnLaunch": kind == SubnetPublic,
		"Tags":                tags,
	})
}

func (b *Builder) InternetGateway(name string) construct.ResourceId {
	return b.Add(INTERNET_GATEWAY_TYPE, name, construct.Properties{
		"Tags": b.NameTag(name),
	})
}

func (b *Builder) VpcGatewayAttachment(name string, vpc, igw construct.ResourceId) construct.ResourceId {
	return b.Add(VPC_GATEWAY_ATTACHMENT_TYPE, name, construct.Properties{
		"VpcId":             vpc,
		"InternetGatewayId": igw,
	})
}

// ElasticIp declares a VPC-domain address. The attachment is required so that the address is only
// allocated once the VPC can route to the internet.
func (b *Builder) ElasticIp(name string, attachment construct.ResourceId) construct.ResourceId {
	id := b.Add(ELASTIC_IP_TYPE, name, construct.Properties{
		"Domain": "vpc",
		"Tags":   b.NameTag(name),
	})
	b.DependsOn(id, attachment)
	return id
}

func (b *Builder) NatGateway(name string, subnet, eip construct.ResourceId) construct.ResourceId {
	return b.Add(NAT_GATEWAY_TYPE, name, construct.Properties{
		"SubnetId":     subnet,
		"AllocationId": ref(eip, "AllocationId"),
		"Tags":         b.NameTag(name),
	})
}

func (b *Builder) RouteTable(name string, vpc construct.ResourceId) construct.ResourceId {
	return b.Add(ROUTE_TABLE_TYPE, name, construct.Properties{
		"VpcId": vpc,
		"Tags":  b.NameTag(name),
	})
}

// Route declares a default (0.0.0.0/0) route through target, which is either an internet gateway or
// a NAT gateway.
func (b *Builder) Route(name string, table, target construct.ResourceId, dependsOn ...construct.ResourceId) construct.ResourceId {
	props := construct.Properties{
		"RouteTableId":         table,
		"DestinationCidrBlock": "0.0.0.0/0",
	}
	if target.Type == NAT_GATEWAY_TYPE {
		props["NatGatewayId"] = target
	} else {
		props["GatewayId"] = target
	}
	id := b.Add(ROUTE_TYPE, name, props)
	b.DependsOn(id, dependsOn...)
	return id
}

func (b *Builder) SubnetRouteTableAssociation(name string, subnet, table construct.ResourceId) construct.ResourceId {
	return b.Add(SUBNET_ROUTE_TABLE_ASSOCIATION_TYPE, name, construct.Properties{
		"SubnetId":     subnet,
		"RouteTableId": table,
	})
}

// SecurityGroup declares a group that allows all outbound traffic and no inbound traffic.
func (b *Builder) SecurityGroup(name string, vpc any, description string) construct.ResourceId {
	return b.Add(SECURITY_GROUP_TYPE, name, construct.Properties{
		"GroupDescription": description,
		"VpcId":            vpc,
		"SecurityGroupEgress": []any{
			map[string]any{
				"CidrIp":      "0.0.0.0/0",
				"Description": "Allow all outbound traffic by default",
				"IpProtocol":  "-1",
			},
		},
		"Tags": b.NameTag(name),
	})
}

// SecurityGroupIngress allows TCP traffic on port into group from members of source.
func (b *Builder) SecurityGroupIngress(name string, group, source any, port int, description string) construct.ResourceId {
	return b.Add(SECURITY_GROUP_INGRESS_TYPE, name, construct.Properties{
		"GroupId":               group,
		"SourceSecurityGroupId": source,
		"IpProtocol":            "tcp",
		"FromPort":              port,
		"ToPort":                port,
		"Description":           description,
	})
}
