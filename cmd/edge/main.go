package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/karstlabs/platform-infra/internal/edge"
)

func main() {
	pulumi.Run(edge.Program())
}
