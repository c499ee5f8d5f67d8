package main

import (
	"fmt"
	"net"

	"github.com/c-robinson/iplib"
)

// StackConfig holds configuration for the karst platform stacks.
type StackConfig struct {
	Environment      string
	Prefix           string
	VpcCidr          string
	MaxAzs           float64
	TableName        string
	DatabaseName     string
	ContainerImage   string
	ContainerPort    float64
	DesiredCount     float64
	Cpu              float64
	MemoryMiB        float64
	MinCapacity      float64
	MaxCapacity      float64
	LogRetentionDays float64
	AlarmEmail       string
	DestroyOnDelete  bool
}

// DefaultConfig returns a StackConfig with sensible defaults.
func DefaultConfig() StackConfig {
	return StackConfig{
		Environment:      "dev",
		Prefix:           "karst",
		VpcCidr:          "10.40.0.0/16",
		MaxAzs:           2,
		TableName:        "karst",
		DatabaseName:     "karst",
		ContainerImage:   "public.ecr.aws/docker/library/nginx:stable",
		ContainerPort:    8080,
		DesiredCount:     2,
		Cpu:              512,
		MemoryMiB:        1024,
		MinCapacity:      2,
		MaxCapacity:      6,
		LogRetentionDays: 30,
	}
}

// subnetMask derives the per-subnet prefix length from the VPC CIDR: four
// extra bits, capped at /28. Fails on an unparsable CIDR instead of letting
// synth produce a broken network.
func subnetMask(cidr string) (float64, error) {
	ip, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return 0, fmt.Errorf("parsing VPC CIDR %q: %w", cidr, err)
	}
	ones, _ := network.Mask.Size()

	subnetPrefix := ones + 4
	if subnetPrefix > 28 {
		return 0, fmt.Errorf("VPC CIDR %q leaves no room for subnets", cidr)
	}

	// confirm the block actually splits into enough subnets for two AZs
	n := iplib.NewNet4(ip, ones)
	subnets, err := n.Subnet(subnetPrefix)
	if err != nil {
		return 0, fmt.Errorf("deriving subnets from %q: %w", cidr, err)
	}
	if len(subnets) < 4 {
		return 0, fmt.Errorf("VPC CIDR %q yields only %d subnets, need 4", cidr, len(subnets))
	}
	return float64(subnetPrefix), nil
}
