package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
)

// configFromEnv starts from the defaults and applies KARST_* overrides so a
// single binary can synth every environment.
func configFromEnv() StackConfig {
	cfg := DefaultConfig()
	if v := os.Getenv("KARST_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("KARST_VPC_CIDR"); v != "" {
		cfg.VpcCidr = v
	}
	if v := os.Getenv("KARST_TABLE_NAME"); v != "" {
		cfg.TableName = v
	}
	if v := os.Getenv("KARST_CONTAINER_IMAGE"); v != "" {
		cfg.ContainerImage = v
	}
	if v := os.Getenv("KARST_ALARM_EMAIL"); v != "" {
		cfg.AlarmEmail = v
	}
	if v := os.Getenv("KARST_DESIRED_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DesiredCount = float64(n)
		}
	}
	if v := os.Getenv("KARST_LOG_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LogRetentionDays = float64(n)
		}
	}
	cfg.DestroyOnDelete = cfg.Environment != "prod"
	return cfg
}

func stackID(cfg StackConfig, name string) string {
	return fmt.Sprintf("%s-%s-%s", cfg.Prefix, cfg.Environment, name)
}

func main() {
	defer jsii.Close()

	cfg := configFromEnv()
	app := awscdk.NewApp(nil)

	identity := NewIdentityStack(app, stackID(cfg, "identity"), cfg)
	network := NewNetworkStack(app, stackID(cfg, "network"), cfg)
	data := NewDataStack(app, stackID(cfg, "data"), cfg, network)
	compute := NewComputeStack(app, stackID(cfg, "compute"), cfg, network, identity, data)
	monitoring := NewMonitoringStack(app, stackID(cfg, "monitoring"), cfg, compute, data)

	data.Stack.AddDependency(network.Stack, jsii.String("data lives in the platform VPC"))
	compute.Stack.AddDependency(identity.Stack, jsii.String("service runs with identity roles"))
	compute.Stack.AddDependency(data.Stack, jsii.String("service reads platform state"))
	monitoring.Stack.AddDependency(compute.Stack, jsii.String("alarms watch the service"))

	app.Synth(nil)
}
