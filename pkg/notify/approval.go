// Package notify carries the out-of-band human-approval request R5 Human
// Approval stamps into state but never sends itself: the orchestrator
// observes a fresh "waiting_for_approval" stop reason at a stage boundary
// and hands the approval payload to an ApprovalNotifier.
package notify

import "context"

// ApprovalNotifier delivers a need-approval request to a human outside the
// pipeline. SessionID lets a reply be routed back to the right session;
// payload is react's ApprovalPayload (skill, params, reason) verbatim.
type ApprovalNotifier interface {
	NotifyApprovalRequired(ctx context.Context, sessionID string, payload map[string]interface{}) error
}
