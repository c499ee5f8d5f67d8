package lambdax

import (
	"fmt"

	"github.com/karstlabs/platform-infra/pkg/types"
)

// ResourceRecord is one row of the resource inventory table. The partition
// key is the environment, the sort key the record ID; Count is the number of
// live resources the platform expects for that kind.
type ResourceRecord struct {
	Environment string `dynamodbav:"environment" json:"environment"`
	ID          string `dynamodbav:"id" json:"id"`
	Kind        string `dynamodbav:"kind" json:"kind"`
	Count       int    `dynamodbav:"count" json:"count"`
	UpdatedAt   string `dynamodbav:"updated_at" json:"updatedAt,omitempty"`
}

// CollectResponse reports where the drift snapshot landed.
type CollectResponse struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// AuditRequest carries the drift report to check against the inventory.
type AuditRequest struct {
	Report types.DriftReport `json:"report"`
}

// AuditResult is the auditor verdict.
type AuditResult struct {
	Environment  string   `json:"environment"`
	Pass         bool     `json:"pass"`
	Reasons      []string `json:"reasons,omitempty"`
	FindingCount int      `json:"findingCount"`
}

// NotifyRequest is the notifier input, produced by the auditor step.
type NotifyRequest struct {
	Report types.DriftReport `json:"report"`
	Audit  AuditResult       `json:"audit"`
}

// NotifyResponse carries the published message ID.
type NotifyResponse struct {
	MessageID string `json:"messageId"`
}

// RemediationRequest starts a remediation execution for an environment.
type RemediationRequest struct {
	Environment string `json:"environment"`
}

// WorkflowState is the execution document the remediation state machine
// threads between tasks. Collect reads Report and writes Snapshot, Audit
// reads Report and writes Audit, Notify reads Report and Audit. The ASL
// paths in deploy/remediation.asl.json must keep matching these fields.
type WorkflowState struct {
	Report   types.DriftReport `json:"report"`
	Snapshot CollectResponse   `json:"snapshot"`
	Audit    AuditResult       `json:"audit"`
}

// SnapshotKey is the bucket key for a drift report snapshot.
func SnapshotKey(environment, runID string) string {
	return fmt.Sprintf("drift/%s/%s.json", environment, runID)
}
