package stacks

import (
	"fmt"

	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
)

type networkOutputs struct {
	vpc             construct.ResourceId
	publicSubnets   []construct.ResourceId
	privateSubnets  []construct.ResourceId
	isolatedSubnets []construct.ResourceId
}

// subnetGroups are allocated /24 blocks of the VPC in this order, one per availability zone.
var subnetGroups = []aws.SubnetKind{aws.SubnetPublic, aws.SubnetPrivate, aws.SubnetIsolated}

func (a *App) networkStack() (*Stack, error) {
	cfg := a.Config.Network
	s := NewStack(NetworkStackName, "Network for the GRACE project: VPC with public, private, and isolated subnets")
	out := &networkOutputs{}

	out.vpc = s.Vpc("GraceVpc", cfg.Cidr)
	igw := s.InternetGateway("GraceVpcIGW")
	attachment := s.VpcGatewayAttachment("GraceVpcVPCGW", out.vpc, igw)

	blocks := intrinsic.Cidr{
		IpBlock:  construct.PropertyRef{Resource: out.vpc, Property: "CidrBlock"},
		Count:    len(subnetGroups) * cfg.MaxAzs,
		CidrBits: 8,
	}
	var nats []construct.ResourceId
	for g, kind := range subnetGroups {
		for az := 0; az < cfg.MaxAzs; az++ {
			name := fmt.Sprintf("%sSubnet%d", kind, az+1)
			subnet := s.Subnet(name, out.vpc, intrinsic.Select{Index: g*cfg.MaxAzs + az, List: blocks}, az, kind)
			table := s.RouteTable(name+"RouteTable", out.vpc)
			s.SubnetRouteTableAssociation(name+"RouteTableAssociation", subnet, table)

			switch kind {
			case aws.SubnetPublic:
				out.publicSubnets = append(out.publicSubnets, subnet)
				s.Route(name+"DefaultRoute", table, igw, attachment)
				if az < cfg.NatGateways {
					eip := s.ElasticIp(name+"EIP", attachment)
					nats = append(nats, s.NatGateway(name+"NATGateway", subnet, eip))
				}

			case aws.SubnetPrivate:
				out.privateSubnets = append(out.privateSubnets, subnet)
				if len(nats) > 0 {
					s.Route(name+"DefaultRoute", table, nats[az%len(nats)])
				}

			case aws.SubnetIsolated:
				out.isolatedSubnets = append(out.isolatedSubnets, subnet)
			}
		}
	}

	s.AddOutput("VpcId", out.vpc, "ID of the VPC")
	a.network = out
	return s, nil
}
