package types

// Environment describes one deployment target of the edge stack.
type Environment struct {
	Name    string            `yaml:"name" json:"name"`
	Stack   string            `yaml:"stack,omitempty" json:"stack,omitempty"` // defaults to Name
	Region  string            `yaml:"region" json:"region"`
	Profile string            `yaml:"profile,omitempty" json:"profile,omitempty"`
	Config  map[string]string `yaml:"config,omitempty" json:"config,omitempty"` // extra pulumi stack config
	Tags    map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// StackName returns the Pulumi stack name for the environment.
func (e Environment) StackName() string {
	if e.Stack != "" {
		return e.Stack
	}
	return e.Name
}

// AlertType identifies an alert sink implementation.
type AlertType string

// AlertType values enumerate the supported drift report sinks.
const (
	AlertConsole     AlertType = "console"
	AlertFile        AlertType = "file"
	AlertWebhook     AlertType = "webhook"
	AlertSNS         AlertType = "sns"
	AlertSQS         AlertType = "sqs"
	AlertEventBridge AlertType = "eventbridge"
)

// AlertConfig configures a single alert sink.
type AlertConfig struct {
	Type     AlertType `yaml:"type" json:"type"`
	URL      string    `yaml:"url,omitempty" json:"url,omitempty"`           // webhook
	Path     string    `yaml:"path,omitempty" json:"path,omitempty"`         // file
	TopicARN string    `yaml:"topicArn,omitempty" json:"topicArn,omitempty"` // sns
	QueueURL string    `yaml:"queueUrl,omitempty" json:"queueUrl,omitempty"` // sqs
	EventBus string    `yaml:"eventBus,omitempty" json:"eventBus,omitempty"` // eventbridge
}

// DriftConfig tunes the drift detector.
type DriftConfig struct {
	Parallelism   int      `yaml:"parallelism,omitempty" json:"parallelism,omitempty"`
	FailOn        Severity `yaml:"failOn,omitempty" json:"failOn,omitempty"`
	PluginVersion string   `yaml:"pluginVersion,omitempty" json:"pluginVersion,omitempty"`
}

// ProjectConfig is the parsed platform.yaml.
type ProjectConfig struct {
	Project      string        `yaml:"project" json:"project"`
	Environments []Environment `yaml:"environments" json:"environments"`
	Alerts       []AlertConfig `yaml:"alerts,omitempty" json:"alerts,omitempty"`
	Drift        DriftConfig   `yaml:"drift,omitempty" json:"drift,omitempty"`
}

// Env returns the environment with the given name, or nil.
func (c *ProjectConfig) Env(name string) *Environment {
	for i := range c.Environments {
		if c.Environments[i].Name == name {
			return &c.Environments[i]
		}
	}
	return nil
}
